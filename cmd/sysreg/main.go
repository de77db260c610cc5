package main

import (
	"fmt"
	"os"
	"runtime/pprof"
	"strings"

	"github.com/sysreg/sysreg/internal/logger"
	"github.com/sysreg/sysreg/pkg/cli"
)

const sysregVersion = "0.1.0"

const helpText = `
Usage:
  sysreg [options] [module.js.json ...]

Each input is a module in ESTree JSON form, as produced by acorn, espree or
typescript-estree. A trailing ".json" is dropped from the input path to get
the module's own path. Without inputs the module is read from stdin.

Options:
  --outdir=...              Write one ".js" file per input to this directory
                            (default: write to stdout)
  --module-name=...         Register the module under this name
  --module-name-from-path   Register each module under its path without the
                            extension, relative to --root-dir
  --root-dir=...            The directory module names are relative to
  --rename-dep:A=B          Use B in the dependency array for imports of A
  --import-helpers          Import runtime helpers like __awaiter instead of
                            expecting them to be declared in the module
  --helpers-module=...      The module helpers are imported from
                            (default: tslib)
  --always-strict           Always emit "use strict"
  --no-implicit-use-strict  Don't emit "use strict" unless --always-strict
                            is given

Advanced options:
  --version                 Print the current version and exit (` + sysregVersion + `)
  --sourcefile=...          The module's path when reading from stdin
  --log-level=...           Disable logging (debug, info, warning, error,
                            silent, default info)
  --color=...               Force use of color terminal escapes (true or false)
  --cpuprofile=...          Write a CPU profile to this file

Examples:
  # Produces dist/app/main.js registered as "app/main"
  sysreg --module-name-from-path --root-dir=src --outdir=dist src/app/main.js.json

  # Provide input via stdin, get output via stdout
  acorn --ecma2022 --module main.js | sysreg --sourcefile=main.js
`

func main() {
	osArgs := os.Args[1:]
	cpuprofileFile := ""

	// Do an initial scan over the argument list
	argsEnd := 0
	for _, arg := range osArgs {
		switch {
		// Show help if a common help flag is provided
		case arg == "-h", arg == "-help", arg == "--help", arg == "/?":
			fmt.Fprintf(os.Stderr, "%s\n", helpText)
			os.Exit(0)

		// Special-case the version flag here
		case arg == "--version":
			fmt.Fprintf(os.Stderr, "%s\n", sysregVersion)
			os.Exit(0)

		case strings.HasPrefix(arg, "--cpuprofile="):
			cpuprofileFile = arg[len("--cpuprofile="):]

		default:
			// Strip any arguments that were handled above
			osArgs[argsEnd] = arg
			argsEnd++
		}
	}
	osArgs = osArgs[:argsEnd]

	// Print help text when there are no arguments and nothing is piped in
	if len(osArgs) == 0 && logger.GetTerminalInfo(os.Stdin).IsTTY {
		fmt.Fprintf(os.Stderr, "%s\n", helpText)
		os.Exit(0)
	}

	// Capture the defer statements below so the profile is flushed before exiting
	exitCode := 1
	func() {
		// To view a CPU profile, drop the file into https://speedscope.app
		if cpuprofileFile != "" {
			f, err := os.Create(cpuprofileFile)
			if err != nil {
				logger.PrintErrorToStderr(osArgs, fmt.Sprintf(
					"Failed to create cpuprofile file: %s", err.Error()))
				return
			}
			defer f.Close()
			pprof.StartCPUProfile(f)
			defer pprof.StopCPUProfile()
		}

		exitCode = cli.Run(osArgs)
	}()

	os.Exit(exitCode)
}
