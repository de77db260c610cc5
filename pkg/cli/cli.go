// Package cli implements the "sysreg" command line tool. Each input file holds
// a module in its ESTree JSON form. The converted modules are written to
// stdout, or to one ".js" file per input in the output directory.
package cli

import (
	"os"
)

// Returns the exit code
func Run(osArgs []string) int {
	return runImpl(osArgs, os.Stdin, os.Stdout)
}
