package api

import (
	"fmt"
	"runtime"

	"github.com/sysreg/sysreg/internal/binder"
	"github.com/sysreg/sysreg/internal/config"
	"github.com/sysreg/sysreg/internal/estree"
	"github.com/sysreg/sysreg/internal/helpers"
	"github.com/sysreg/sysreg/internal/js_printer"
	"github.com/sysreg/sysreg/internal/logger"
	"github.com/sysreg/sysreg/internal/renamer"
	"github.com/sysreg/sysreg/internal/sysreg"
	"golang.org/x/sync/errgroup"
)

type resolveSpecifierHost func(importer string, specifier string) (string, bool)

func (host resolveSpecifierHost) ResolveSpecifier(importer string, specifier string) (string, bool) {
	return host(importer, specifier)
}

type fileResult struct {
	code []byte
	msgs []logger.Msg
}

func transformImpl(input string, options TransformOptions) TransformResult {
	results := transformFilesImpl([]InputFile{{Path: options.Sourcefile, Contents: input}}, options)
	return results[0]
}

func transformFilesImpl(files []InputFile, options TransformOptions) []TransformResult {
	logLevel := validateLogLevel(options.LogLevel)
	color := validateColor(options.Color)

	// Option errors apply to every file, so nothing is transformed if there
	// are any
	optionsLog := logger.NewDeferLog(logLevel)
	transformOptions := validateOptions(optionsLog, options)
	optionMsgs := optionsLog.Done()

	results := make([]fileResult, len(files))
	if !optionsLog.HasErrors() {
		g := errgroup.Group{}
		g.SetLimit(runtime.GOMAXPROCS(0))
		for i, file := range files {
			i, file := i, file
			g.Go(func() error {
				results[i] = transformFile(uint32(i), file, transformOptions, options.ResolveSpecifier, logLevel)
				return nil
			})
		}
		g.Wait()
	}

	// Messages are printed after everything is done so the output for one file
	// is never interleaved with the output for another
	if logLevel != logger.LevelSilent {
		stderr := logger.NewStderrLog(logger.OutputOptions{Color: color, LogLevel: logLevel})
		for _, msg := range optionMsgs {
			stderr.AddMsg(msg)
		}
		for _, result := range results {
			for _, msg := range result.msgs {
				stderr.AddMsg(msg)
			}
		}
		stderr.Done()
	}

	public := make([]TransformResult, len(files))
	for i, result := range results {
		msgs := append(append([]logger.Msg(nil), optionMsgs...), result.msgs...)
		public[i] = TransformResult{
			Errors:   convertMessagesToPublic(logger.Error, msgs),
			Warnings: convertMessagesToPublic(logger.Warning, msgs),
		}
		if len(public[i].Errors) == 0 {
			public[i].Code = result.code
		}
	}
	return public
}

func transformFile(
	sourceIndex uint32,
	file InputFile,
	options config.Options,
	resolveSpecifier func(string, string) (string, bool),
	logLevel logger.LogLevel,
) (result fileResult) {
	path := file.Path
	if path == "" {
		path = "<stdin>"
	}
	source := logger.Source{
		Index:      sourceIndex,
		KeyPath:    logger.Path{Text: path, Namespace: "file"},
		PrettyPath: path,
		Contents:   file.Contents,
	}
	if file.Path == "" {
		source.KeyPath.Namespace = ""
	}

	log := logger.NewDeferLog(logLevel)
	defer func() {
		if r := recover(); r != nil {
			log.AddError(nil, logger.Range{}, fmt.Sprintf("panic while transforming %q: %v\n%s", path, r, helpers.PrettyPrintedStack()))
			result.code = nil
		}
		result.msgs = attachFile(log.Done(), path)
	}()

	tree, ok := estree.Parse(log, source, estree.Options{SourceIndex: sourceIndex})
	if !ok {
		return
	}

	var host sysreg.Host
	if resolveSpecifier != nil {
		host = resolveSpecifierHost(resolveSpecifier)
	}
	transformer := sysreg.NewTransformer(log, options, host)
	out := transformer.Transform(source, tree, binder.NewResolver(tree))
	symbols := out.SymbolMap()
	result.code = js_printer.Print(*out, symbols, renamer.NewNoOpRenamer(symbols), js_printer.Options{
		Hooks: transformer.Substituter(),
	}).JS
	return
}

// Messages about the structure of the ESTree input have no useful position
// in the JSON text, but they still need to say which file they came from
func attachFile(msgs []logger.Msg, path string) []logger.Msg {
	for i, msg := range msgs {
		if msg.Location == nil {
			msgs[i].Location = &logger.MsgLocation{File: path}
		}
	}
	return msgs
}

func convertMessagesToPublic(kind logger.MsgKind, msgs []logger.Msg) []Message {
	var filtered []Message
	for _, msg := range msgs {
		if msg.Kind != kind {
			continue
		}
		var location *Location
		if loc := msg.Location; loc != nil {
			location = &Location{
				File:     loc.File,
				Line:     loc.Line,
				Column:   loc.Column,
				Length:   loc.Length,
				LineText: loc.LineText,
			}
		}
		filtered = append(filtered, Message{
			ID:       logger.MsgIDToString(msg.ID),
			Text:     msg.Text,
			Location: location,
		})
	}
	return filtered
}
