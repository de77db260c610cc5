package config

import (
	"path"
	"strings"
)

const DefaultHelpersModule = "tslib"

type Options struct {
	// An explicit registration name. This takes precedence over a name that
	// came from the AST (a "<amd-module>" pragma) and over a derived name.
	ModuleName string

	// If true and no module name is otherwise known, the registration name is
	// the source path relative to RootDir without its extension. This is what
	// lets several registered modules be concatenated into one file.
	ModuleNameFromPath bool
	RootDir            string

	// Maps import specifiers as written to the specifier that should appear in
	// the dependency array, for example "jquery" => "vendor/jquery"
	RenamedDependencies map[string]string

	// Import runtime helpers from a module instead of expecting them to be
	// declared in the file:
	//
	//   var tslib_1;
	//   ... setters: [function (tslib_1_1) { tslib_1 = tslib_1_1; }] ...
	//   ... tslib_1.__awaiter(...) ...
	//
	ImportHelpers bool
	HelpersModule string

	// Loose:  "use strict" is emitted unless NoImplicitUseStrict is set
	// Strict: "use strict" is always emitted
	AlwaysStrict        bool
	NoImplicitUseStrict bool
}

func (options *Options) HelpersModuleOrDefault() string {
	if options.HelpersModule != "" {
		return options.HelpersModule
	}
	return DefaultHelpersModule
}

func (options *Options) ShouldEmitUseStrict() bool {
	return options.AlwaysStrict || !options.NoImplicitUseStrict
}

func (options *Options) RenameDependency(specifier string) string {
	if renamed, ok := options.RenamedDependencies[specifier]; ok {
		return renamed
	}
	return specifier
}

// Computes the registration name for a source path. Paths are treated as
// slash-separated regardless of platform. A path outside of "rootDir" keeps
// its leading "../" segments.
func ModuleNameFromPath(sourcePath string, rootDir string) string {
	sourcePath = path.Clean(strings.ReplaceAll(sourcePath, "\\", "/"))
	if rootDir != "" {
		rootDir = path.Clean(strings.ReplaceAll(rootDir, "\\", "/"))
		sourcePath = relativePath(rootDir, sourcePath)
	}

	// Strip the extension, including compound ones like ".d.ts"
	base := path.Base(sourcePath)
	for _, ext := range []string{".d.ts", ".d.mts", ".d.cts"} {
		if strings.HasSuffix(base, ext) {
			return strings.TrimSuffix(sourcePath, ext)
		}
	}
	return strings.TrimSuffix(sourcePath, path.Ext(base))
}

func relativePath(base string, target string) string {
	if base == "." {
		return target
	}
	baseParts := strings.Split(base, "/")
	targetParts := strings.Split(target, "/")

	common := 0
	for common < len(baseParts) && common < len(targetParts) && baseParts[common] == targetParts[common] {
		common++
	}

	var parts []string
	for i := common; i < len(baseParts); i++ {
		parts = append(parts, "..")
	}
	parts = append(parts, targetParts[common:]...)
	return strings.Join(parts, "/")
}
