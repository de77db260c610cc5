// This package contains internal CLI-related code that must be shared with
// other internal code outside of the CLI package.

package cli_helpers

import (
	"fmt"
	"strings"

	"github.com/sysreg/sysreg/internal/exitcode"
	"github.com/sysreg/sysreg/pkg/api"
)

type ErrorWithNote struct {
	Text string
	Note string
}

func MakeErrorWithNote(text string, note string) *ErrorWithNote {
	return &ErrorWithNote{
		Text: text,
		Note: note,
	}
}

func (e *ErrorWithNote) Error() string {
	if e.Note == "" {
		return e.Text
	}
	return fmt.Sprintf("%s\n\n%s", e.Text, e.Note)
}

// Anything wrong with the arguments is a usage error
func (e *ErrorWithNote) ExitCode() int {
	return exitcode.Usage
}

var _ exitcode.Coder = (*ErrorWithNote)(nil)

func ParseLogLevel(text string) (api.LogLevel, *ErrorWithNote) {
	switch text {
	case "debug":
		return api.LogLevelDebug, nil
	case "info":
		return api.LogLevelInfo, nil
	case "warning":
		return api.LogLevelWarning, nil
	case "error":
		return api.LogLevelError, nil
	case "silent":
		return api.LogLevelSilent, nil
	default:
		return api.LogLevelSilent, MakeErrorWithNote(
			fmt.Sprintf("Invalid log level value: %q", text),
			"Valid values are \"debug\", \"info\", \"warning\", \"error\", or \"silent\".",
		)
	}
}

func ParseColor(text string) (api.StderrColor, *ErrorWithNote) {
	switch text {
	case "true":
		return api.ColorAlways, nil
	case "false":
		return api.ColorNever, nil
	default:
		return api.ColorIfTerminal, MakeErrorWithNote(
			fmt.Sprintf("Invalid color value: %q", text),
			"Valid values are \"true\" or \"false\".",
		)
	}
}

// Parses "from=to". The split is on the last "=", so only the original
// specifier may contain one.
func ParseRenamedDependency(text string) (string, string, *ErrorWithNote) {
	equals := strings.LastIndexByte(text, '=')
	if equals == -1 {
		return "", "", MakeErrorWithNote(
			fmt.Sprintf("Missing \"=\" in renamed dependency: %q", text),
			"You need to use \"--rename-dep:from=to\" to rename a dependency.",
		)
	}
	return text[:equals], text[equals+1:], nil
}
