package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/sysreg/sysreg/internal/exitcode"
	"github.com/sysreg/sysreg/internal/test"
	"github.com/sysreg/sysreg/pkg/api"
)

func TestParseOptions(t *testing.T) {
	options, err := parseOptionsForRun([]string{
		"--module-name=app",
		"--rename-dep:jquery=vendor/jquery",
		"--rename-dep:a=b=c",
		"--import-helpers",
		"--helpers-module=my-helpers",
		"--always-strict",
		"--no-implicit-use-strict",
		"--module-name-from-path",
		"--root-dir=src",
		"--log-level=warning",
		"--color=false",
		"--outdir=out",
		"src/a.js.json",
		"src/b.js.json",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	expected := runOptions{
		transform: api.TransformOptions{
			Color:               api.ColorNever,
			LogLevel:            api.LogLevelWarning,
			ModuleName:          "app",
			ModuleNameFromPath:  true,
			RootDir:             "src",
			RenamedDependencies: map[string]string{"jquery": "vendor/jquery", "a=b": "c"},
			ImportHelpers:       true,
			HelpersModule:       "my-helpers",
			AlwaysStrict:        true,
			NoImplicitUseStrict: true,
		},
		inputs: []string{"src/a.js.json", "src/b.js.json"},
		outdir: "out",
	}
	if diff := cmp.Diff(expected, options, cmp.AllowUnexported(runOptions{})); diff != "" {
		t.Fatalf("unexpected options (-want +got):\n%s", diff)
	}
}

func TestParseOptionsDefaults(t *testing.T) {
	options, err := parseOptionsForRun(nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	test.AssertEqual(t, options.transform.LogLevel, api.LogLevelInfo)
	test.AssertEqual(t, options.transform.Color, api.ColorIfTerminal)
	test.AssertEqual(t, len(options.inputs), 0)
}

func TestParseOptionsErrors(t *testing.T) {
	expectError := func(args []string, text string) {
		t.Helper()
		t.Run(strings.Join(args, " "), func(t *testing.T) {
			t.Helper()
			_, err := parseOptionsForRun(args)
			if err == nil {
				t.Fatalf("expected an error")
			}
			test.AssertEqual(t, err.Text, text)
			test.AssertEqual(t, exitcode.Get(err), exitcode.Usage)
		})
	}

	expectError([]string{"--log-level=loud"}, `Invalid log level value: "loud"`)
	expectError([]string{"--color=maybe"}, `Invalid color value: "maybe"`)
	expectError([]string{"--rename-dep:jquery"}, `Missing "=" in renamed dependency: "jquery"`)
	expectError([]string{"--bundle"}, `Invalid flag: "--bundle"`)
	expectError([]string{"--sourcefile=a.js", "a.js.json"}, `Cannot use "--sourcefile" with input files`)
}

func TestInvalidFlagSuggestion(t *testing.T) {
	_, err := parseOptionsForRun([]string{"--outdr=dist"})
	if err == nil {
		t.Fatalf("expected an error")
	}
	test.AssertEqual(t, err.Text, `Invalid flag: "--outdr=dist"`)
	test.AssertEqual(t, err.Note, `Did you mean "--outdir=dist" instead?`)

	_, err = parseOptionsForRun([]string{"--minify"})
	test.AssertEqual(t, err.Note, `Use "--help" to see the available flags.`)
}

func TestModulePathForInput(t *testing.T) {
	test.AssertEqual(t, modulePathForInput("src/a.js.json"), "src/a.js")
	test.AssertEqual(t, modulePathForInput("src/a.json"), "src/a")
	test.AssertEqual(t, modulePathForInput("src/a.js"), "src/a.js")
}

func TestOutputPathForModule(t *testing.T) {
	test.AssertEqual(t, outputPathForModule("out", "", "src/app/main.js"), filepath.Join("out", "main.js"))
	test.AssertEqual(t, outputPathForModule("out", "src", "src/app/main.ts"), filepath.Join("out", "app", "main.js"))
	test.AssertEqual(t, outputPathForModule("out", "src", "lib/other.js"), filepath.Join("out", "other.js"))
	test.AssertEqual(t, outputPathForModule("out", "", "stdin"), filepath.Join("out", "stdin.js"))
}

type obj = map[string]interface{}

func module(body ...obj) []byte {
	bytes, err := json.Marshal(obj{"type": "Program", "sourceType": "module", "body": body})
	if err != nil {
		panic(err)
	}
	return bytes
}

func exportConst(name string, value interface{}) obj {
	return obj{"type": "ExportNamedDeclaration", "specifiers": []obj{}, "declaration": obj{
		"type": "VariableDeclaration", "kind": "const", "declarations": []obj{{
			"type": "VariableDeclarator",
			"id":   obj{"type": "Identifier", "name": name},
			"init": obj{"type": "Literal", "value": value},
		}},
	}}
}

func writeFile(t *testing.T, path string, contents []byte) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, contents, 0644); err != nil {
		t.Fatal(err)
	}
}

func TestRunWithOutdir(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "src")
	out := filepath.Join(dir, "out")
	writeFile(t, filepath.Join(src, "a.js.json"), module(exportConst("a", 1)))
	writeFile(t, filepath.Join(src, "nested", "b.js.json"), module(exportConst("b", 2)))

	code := runImpl([]string{
		"--log-level=silent",
		"--module-name-from-path",
		"--root-dir=" + src,
		"--outdir=" + out,
		filepath.Join(src, "a.js.json"),
		filepath.Join(src, "nested", "b.js.json"),
	}, strings.NewReader(""), &bytes.Buffer{})
	test.AssertEqual(t, code, exitcode.Success)

	a, err := os.ReadFile(filepath.Join(out, "a.js"))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(string(a), `System.register("a", [], `) || !strings.Contains(string(a), `exports_1("a", a = 1);`) {
		t.Fatalf("unexpected output:\n%s", a)
	}

	b, err := os.ReadFile(filepath.Join(out, "nested", "b.js"))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(string(b), `System.register("nested/b", [], `) {
		t.Fatalf("unexpected output:\n%s", b)
	}
}

func TestRunReportsFailedModules(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "good.js.json"), module(exportConst("x", 1)))
	writeFile(t, filepath.Join(dir, "bad.js.json"), []byte(`{"type": "Program"`))

	stdout := &bytes.Buffer{}
	code := runImpl([]string{
		"--log-level=silent",
		filepath.Join(dir, "bad.js.json"),
		filepath.Join(dir, "good.js.json"),
	}, strings.NewReader(""), stdout)
	test.AssertEqual(t, code, exitcode.Failure)

	// The module that did work is still written
	if !strings.HasPrefix(stdout.String(), `System.register([], `) {
		t.Fatalf("unexpected output:\n%s", stdout.String())
	}
}

func TestRunMissingInput(t *testing.T) {
	code := runImpl([]string{"--log-level=silent", filepath.Join(t.TempDir(), "missing.json")}, strings.NewReader(""), &bytes.Buffer{})
	test.AssertEqual(t, code, exitcode.Failure)
}

func TestRunStdin(t *testing.T) {
	stdout := &bytes.Buffer{}
	code := runImpl([]string{"--log-level=silent", "--module-name=named"}, bytes.NewReader(module(exportConst("x", 1))), stdout)
	test.AssertEqual(t, code, exitcode.Success)
	if !strings.HasPrefix(stdout.String(), `System.register("named", [], `) {
		t.Fatalf("unexpected output:\n%s", stdout.String())
	}

	code = runImpl([]string{"--log-level=silent"}, strings.NewReader(`not json`), &bytes.Buffer{})
	test.AssertEqual(t, code, exitcode.Failure)
}

func TestRunUsageError(t *testing.T) {
	code := runImpl([]string{"--log-level=silent", "--frobnicate"}, strings.NewReader(""), &bytes.Buffer{})
	test.AssertEqual(t, code, exitcode.Usage)
}
