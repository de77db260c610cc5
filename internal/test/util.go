package test

import (
	"fmt"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/sysreg/sysreg/internal/logger"
)

func AssertEqual(t *testing.T, observed interface{}, expected interface{}) {
	t.Helper()
	if observed != expected {
		t.Fatalf("%s != %s", observed, expected)
	}
}

func AssertEqualWithDiff(t *testing.T, observed interface{}, expected interface{}) {
	t.Helper()
	if observed != expected {
		stringA := fmt.Sprintf("%v", observed)
		stringB := fmt.Sprintf("%v", expected)
		color := !logger.HasNoColorEnvironmentVariable()
		t.Fatal("\n" + Diff(stringB, stringA, color))
	}
}

// Structured values (collector output, dependency groups) are compared with
// cmp so that slices and maps report a readable path to the first mismatch.
func AssertDeepEqual(t *testing.T, observed interface{}, expected interface{}, opts ...cmp.Option) {
	t.Helper()
	if diff := cmp.Diff(expected, observed, opts...); diff != "" {
		t.Fatalf("mismatch (-expected +observed):\n%s", diff)
	}
}

func SourceForTest(contents string) logger.Source {
	return logger.Source{
		Index:          0,
		KeyPath:        logger.Path{Text: "<stdin>"},
		PrettyPath:     "<stdin>",
		Contents:       contents,
		IdentifierName: "stdin",
	}
}
