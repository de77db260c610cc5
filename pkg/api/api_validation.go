package api

import (
	"fmt"
	"sort"
	"strings"

	"github.com/sysreg/sysreg/internal/config"
	"github.com/sysreg/sysreg/internal/logger"
)

func validateColor(value StderrColor) logger.StderrColor {
	switch value {
	case ColorIfTerminal:
		return logger.ColorIfTerminal
	case ColorNever:
		return logger.ColorNever
	case ColorAlways:
		return logger.ColorAlways
	default:
		panic("Invalid color")
	}
}

func validateLogLevel(value LogLevel) logger.LogLevel {
	switch value {
	case LogLevelSilent:
		return logger.LevelSilent
	case LogLevelDebug:
		return logger.LevelDebug
	case LogLevelInfo:
		return logger.LevelInfo
	case LogLevelWarning:
		return logger.LevelWarning
	case LogLevelError:
		return logger.LevelError
	default:
		panic("Invalid log level")
	}
}

func validateRenamedDependencies(log logger.Log, value map[string]string) map[string]string {
	if len(value) == 0 {
		return nil
	}

	// Sort so the errors come out in a stable order
	keys := make([]string, 0, len(value))
	for from := range value {
		keys = append(keys, from)
	}
	sort.Strings(keys)

	renamed := make(map[string]string, len(value))
	for _, from := range keys {
		to := value[from]
		if from == "" {
			log.AddError(nil, logger.Range{}, fmt.Sprintf("Cannot rename the empty dependency to %q", to))
			continue
		}
		if to == "" {
			log.AddError(nil, logger.Range{}, fmt.Sprintf("Cannot rename dependency %q to the empty string", from))
			continue
		}
		renamed[from] = to
	}
	return renamed
}

func validateModuleName(log logger.Log, value string) string {
	if value != strings.TrimSpace(value) {
		log.AddError(nil, logger.Range{}, fmt.Sprintf("Invalid module name %q: leading or trailing whitespace", value))
		return ""
	}
	return value
}

func validateOptions(log logger.Log, options TransformOptions) config.Options {
	result := config.Options{
		ModuleName:          validateModuleName(log, options.ModuleName),
		ModuleNameFromPath:  options.ModuleNameFromPath,
		RootDir:             options.RootDir,
		RenamedDependencies: validateRenamedDependencies(log, options.RenamedDependencies),
		ImportHelpers:       options.ImportHelpers,
		HelpersModule:       options.HelpersModule,
		AlwaysStrict:        options.AlwaysStrict,
		NoImplicitUseStrict: options.NoImplicitUseStrict,
	}

	if options.HelpersModule != "" && !options.ImportHelpers {
		log.AddID(logger.MsgID_None, logger.Warning, nil, logger.Range{},
			"The helpers module has no effect unless helpers are imported")
	}
	if options.RootDir != "" && !options.ModuleNameFromPath {
		log.AddID(logger.MsgID_None, logger.Warning, nil, logger.Range{},
			"The root directory has no effect unless module names are derived from paths")
	}
	if options.AlwaysStrict && options.NoImplicitUseStrict {
		log.AddID(logger.MsgID_None, logger.Warning, nil, logger.Range{},
			"\"use strict\" is always emitted when strict mode is forced")
	}

	return result
}
