package cli

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/sysreg/sysreg/internal/cli_helpers"
	"github.com/sysreg/sysreg/internal/exitcode"
	"github.com/sysreg/sysreg/internal/helpers"
	"github.com/sysreg/sysreg/internal/logger"
	"github.com/sysreg/sysreg/pkg/api"
)

type runOptions struct {
	transform api.TransformOptions
	inputs    []string
	outdir    string
}

func newRunOptions() runOptions {
	return runOptions{
		transform: api.TransformOptions{
			// Apply defaults appropriate for the CLI
			LogLevel: api.LogLevelInfo,
		},
	}
}

func parseOptionsImpl(osArgs []string, options *runOptions) *cli_helpers.ErrorWithNote {
	for _, arg := range osArgs {
		switch {
		case arg == "--import-helpers":
			options.transform.ImportHelpers = true

		case arg == "--always-strict":
			options.transform.AlwaysStrict = true

		case arg == "--no-implicit-use-strict":
			options.transform.NoImplicitUseStrict = true

		case arg == "--module-name-from-path":
			options.transform.ModuleNameFromPath = true

		case strings.HasPrefix(arg, "--module-name="):
			options.transform.ModuleName = arg[len("--module-name="):]

		case strings.HasPrefix(arg, "--helpers-module="):
			options.transform.HelpersModule = arg[len("--helpers-module="):]

		case strings.HasPrefix(arg, "--root-dir="):
			options.transform.RootDir = arg[len("--root-dir="):]

		case strings.HasPrefix(arg, "--sourcefile="):
			options.transform.Sourcefile = arg[len("--sourcefile="):]

		case strings.HasPrefix(arg, "--outdir="):
			options.outdir = arg[len("--outdir="):]

		case strings.HasPrefix(arg, "--rename-dep:"):
			from, to, err := cli_helpers.ParseRenamedDependency(arg[len("--rename-dep:"):])
			if err != nil {
				return err
			}
			if options.transform.RenamedDependencies == nil {
				options.transform.RenamedDependencies = make(map[string]string)
			}
			options.transform.RenamedDependencies[from] = to

		case strings.HasPrefix(arg, "--log-level="):
			value, err := cli_helpers.ParseLogLevel(arg[len("--log-level="):])
			if err != nil {
				return err
			}
			options.transform.LogLevel = value

		case strings.HasPrefix(arg, "--color="):
			value, err := cli_helpers.ParseColor(arg[len("--color="):])
			if err != nil {
				return err
			}
			options.transform.Color = value

		case !strings.HasPrefix(arg, "-"):
			options.inputs = append(options.inputs, arg)

		default:
			return invalidFlagError(arg)
		}
	}

	if options.transform.Sourcefile != "" && len(options.inputs) > 0 {
		return cli_helpers.MakeErrorWithNote(
			"Cannot use \"--sourcefile\" with input files",
			"The source file name only applies when reading from stdin.",
		)
	}
	return nil
}

var knownFlags = []string{
	"--always-strict",
	"--color",
	"--helpers-module",
	"--import-helpers",
	"--log-level",
	"--module-name",
	"--module-name-from-path",
	"--no-implicit-use-strict",
	"--outdir",
	"--rename-dep",
	"--root-dir",
	"--sourcefile",
}

var flagTypoDetector = helpers.MakeTypoDetector(knownFlags)

func invalidFlagError(arg string) *cli_helpers.ErrorWithNote {
	name := arg
	if i := strings.IndexAny(name, "=:"); i != -1 {
		name = name[:i]
	}
	if corrected, ok := flagTypoDetector.MaybeCorrectTypo(name); ok {
		return cli_helpers.MakeErrorWithNote(
			fmt.Sprintf("Invalid flag: %q", arg),
			fmt.Sprintf("Did you mean %q instead?", corrected+arg[len(name):]),
		)
	}
	return cli_helpers.MakeErrorWithNote(
		fmt.Sprintf("Invalid flag: %q", arg),
		"Use \"--help\" to see the available flags.",
	)
}

func parseOptionsForRun(osArgs []string) (runOptions, *cli_helpers.ErrorWithNote) {
	options := newRunOptions()
	if err := parseOptionsImpl(osArgs, &options); err != nil {
		return runOptions{}, err
	}
	return options, nil
}

// Inputs are usually named after the module they hold with ".json" added,
// like "src/main.js.json". The module's own path is used for messages and
// for deriving the registration name.
func modulePathForInput(input string) string {
	return strings.TrimSuffix(filepath.ToSlash(input), ".json")
}

// The output keeps the input's path relative to the root directory if there
// is one. Otherwise only the base name is kept.
func outputPathForModule(outdir string, rootDir string, modulePath string) string {
	rel := ""
	if rootDir != "" {
		if r, err := filepath.Rel(rootDir, filepath.FromSlash(modulePath)); err == nil && !strings.HasPrefix(filepath.ToSlash(r), "../") {
			rel = r
		}
	}
	if rel == "" {
		rel = filepath.Base(filepath.FromSlash(modulePath))
	}
	rel = strings.TrimSuffix(rel, filepath.Ext(rel))
	return filepath.Join(outdir, rel+".js")
}

func runImpl(osArgs []string, stdin io.Reader, stdout io.Writer) int {
	options, parseErr := parseOptionsForRun(osArgs)
	if parseErr != nil {
		logger.PrintErrorToStderr(osArgs, parseErr.Error())
		return exitcode.Get(parseErr)
	}

	if len(options.inputs) == 0 {
		return exitcode.Get(transformStdin(osArgs, options, stdin, stdout))
	}
	return exitcode.Get(transformInputs(osArgs, options, stdout))
}

func transformStdin(osArgs []string, options runOptions, stdin io.Reader, stdout io.Writer) error {
	bytes, err := io.ReadAll(stdin)
	if err != nil {
		err = fmt.Errorf("Could not read from stdin: %w", err)
		logger.PrintErrorToStderr(osArgs, err.Error())
		return err
	}

	result := api.Transform(string(bytes), options.transform)
	if len(result.Errors) > 0 {
		return fmt.Errorf("%d errors", len(result.Errors))
	}

	if options.outdir != "" {
		name := options.transform.Sourcefile
		if name == "" {
			name = "stdin"
		}
		return writeOutput(osArgs, outputPathForModule(options.outdir, options.transform.RootDir, name), result.Code)
	}
	if _, err := stdout.Write(result.Code); err != nil {
		err = fmt.Errorf("Failed to write to stdout: %w", err)
		logger.PrintErrorToStderr(osArgs, err.Error())
		return err
	}
	return nil
}

func transformInputs(osArgs []string, options runOptions, stdout io.Writer) error {
	files := make([]api.InputFile, 0, len(options.inputs))
	for _, input := range options.inputs {
		contents, err := os.ReadFile(input)
		if err != nil {
			err = fmt.Errorf("Could not read from file %q: %w", input, err)
			logger.PrintErrorToStderr(osArgs, err.Error())
			return err
		}
		files = append(files, api.InputFile{Path: modulePathForInput(input), Contents: string(contents)})
	}

	// Keep going after a failed module so every problem is reported at once.
	// Outputs are still only written for the modules that succeeded.
	var firstErr error
	results := api.TransformFiles(files, options.transform)
	for i, result := range results {
		if len(result.Errors) > 0 {
			if firstErr == nil {
				firstErr = fmt.Errorf("%d errors in %q", len(result.Errors), options.inputs[i])
			}
			continue
		}

		if options.outdir == "" {
			// Modules with a registration name can be concatenated and still
			// work, so several inputs go to stdout one after another
			if _, err := stdout.Write(result.Code); err != nil {
				err = fmt.Errorf("Failed to write to stdout: %w", err)
				logger.PrintErrorToStderr(osArgs, err.Error())
				return err
			}
			continue
		}

		outputPath := outputPathForModule(options.outdir, options.transform.RootDir, files[i].Path)
		if err := writeOutput(osArgs, outputPath, result.Code); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func writeOutput(osArgs []string, path string, contents []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		err = fmt.Errorf("Failed to create output directory: %w", err)
		logger.PrintErrorToStderr(osArgs, err.Error())
		return err
	}
	if err := os.WriteFile(path, contents, 0644); err != nil {
		err = fmt.Errorf("Failed to write to output file: %w", err)
		logger.PrintErrorToStderr(osArgs, err.Error())
		return err
	}
	return nil
}
