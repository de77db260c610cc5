// Package api is the public interface to the transform. The input to every
// call is a module in its ESTree JSON form and the output is the text of the
// equivalent System.register module.
package api

type Location struct {
	File     string
	Line     int // 1-based
	Column   int // 0-based, in bytes
	Length   int // in bytes
	LineText string
}

type Message struct {
	ID       string
	Text     string
	Location *Location
}

type StderrColor uint8

const (
	ColorIfTerminal StderrColor = iota
	ColorNever
	ColorAlways
)

type LogLevel uint8

const (
	LogLevelSilent LogLevel = iota
	LogLevelDebug
	LogLevelInfo
	LogLevelWarning
	LogLevelError
)

////////////////////////////////////////////////////////////////////////////////
// Transform API

type TransformOptions struct {
	Color    StderrColor
	LogLevel LogLevel

	// The path used for the module in messages and when the registration name
	// is derived from the path. Defaults to "<stdin>".
	Sourcefile string

	// Registration name handling. An explicit "ModuleName" wins over an
	// "<amd-module>" pragma, which wins over a name derived from the path.
	ModuleName         string
	ModuleNameFromPath bool
	RootDir            string

	RenamedDependencies map[string]string

	// Decides what goes into the dependency array for each import specifier.
	// Returning false drops the dependency. Must be safe to call from several
	// goroutines when used with "TransformFiles".
	ResolveSpecifier func(importer string, specifier string) (string, bool)

	ImportHelpers bool
	HelpersModule string

	AlwaysStrict        bool
	NoImplicitUseStrict bool
}

type TransformResult struct {
	Errors   []Message
	Warnings []Message

	// Empty if there were errors
	Code []byte
}

func Transform(input string, options TransformOptions) TransformResult {
	return transformImpl(input, options)
}

type InputFile struct {
	Path     string
	Contents string
}

// Transforms each file on its own, several at a time. The results are in the
// same order as "files". Each file's path is used as its "Sourcefile".
func TransformFiles(files []InputFile, options TransformOptions) []TransformResult {
	return transformFilesImpl(files, options)
}
