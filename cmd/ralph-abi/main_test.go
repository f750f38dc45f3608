package main

import (
	"bytes"
	"errors"
	"io"
	"strings"
	"testing"

	"gopkg.in/yaml.v3"

	"github.com/raymyers/ralph-abi/pkg/cabi"
	"github.com/raymyers/ralph-abi/pkg/ctypes"
)

func TestVersion(t *testing.T) {
	if version == "" {
		t.Error("version should not be empty")
	}
}

func TestTargetFlagsExist(t *testing.T) {
	var out, errOut bytes.Buffer
	cmd := newRootCmd(&out, &errOut)

	for _, flagName := range []string{"arch", "os", "bits", "convention"} {
		if cmd.PersistentFlags().Lookup(flagName) == nil {
			t.Errorf("expected flag --%s to exist", flagName)
		}
	}
	if f := cmd.PersistentFlags().ShorthandLookup("c"); f == nil || f.Name != "convention" {
		t.Error("expected -c to be short for --convention")
	}
}

func TestCommandsExist(t *testing.T) {
	var out, errOut bytes.Buffer
	cmd := newRootCmd(&out, &errOut)

	for _, name := range []string{"resolve", "layouts", "struct", "classify", "varargs", "repl"} {
		if c, _, err := cmd.Find([]string{name}); err != nil || c.Name() != name {
			t.Errorf("expected command %q to exist", name)
		}
	}
}

func TestSelectConvention(t *testing.T) {
	testCases := []struct {
		name string
		set  func()
		want cabi.Convention
	}{
		{"by name", func() { convFlag = "ppc64-aix" }, cabi.AIXPPC64},
		{"name wins over platform", func() { convFlag = "win64"; osFlag = "Linux" }, cabi.Win64},
		{"platform", func() { archFlag = "riscv64"; osFlag = "linux"; bitsFlag = 64 }, cabi.LinuxRISCV64},
		{"go names", func() { archFlag = "arm64"; osFlag = "darwin"; bitsFlag = 64 }, cabi.MacOSAArch64},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			resetFlags()
			tc.set()
			var errOut bytes.Buffer
			got, err := selectConvention(&errOut)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tc.want {
				t.Errorf("got %s, want %s", got, tc.want)
			}
			if errOut.Len() != 0 {
				t.Errorf("unexpected diagnostics %q", errOut.String())
			}
		})
	}
	resetFlags()
}

func TestUnsupportedPlatform(t *testing.T) {
	resetFlags()

	var out, errOut bytes.Buffer
	cmd := newRootCmd(&out, &errOut)
	cmd.SetArgs([]string{"--arch", "sparc64", "--os", "Solaris", "--bits", "64", "layouts"})
	err := cmd.Execute()

	if !errors.Is(err, cabi.ErrUnsupportedPlatform) {
		t.Fatalf("expected ErrUnsupportedPlatform, got %v", err)
	}
	if !strings.HasPrefix(errOut.String(), "ralph-abi: ") {
		t.Errorf("expected a ralph-abi diagnostic, got %q", errOut.String())
	}
	if !strings.Contains(errOut.String(), "Solaris, sparc64, 64") {
		t.Errorf("expected the platform in the diagnostic, got %q", errOut.String())
	}
	if out.Len() != 0 {
		t.Errorf("expected no output, got %q", out.String())
	}
}

func TestLayoutsYAML(t *testing.T) {
	resetFlags()

	var out, errOut bytes.Buffer
	cmd := newRootCmd(&out, &errOut)
	cmd.SetArgs([]string{"-c", "ppc64-aix", "layouts", "--yaml"})
	if err := cmd.Execute(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var table layoutTable
	if err := yaml.Unmarshal(out.Bytes(), &table); err != nil {
		t.Fatalf("output is not YAML: %v\n%s", err, out.String())
	}
	if table.Convention != "ppc64-aix" {
		t.Errorf("convention = %q", table.Convention)
	}
	if len(table.Layouts) != len(ctypes.Kinds) {
		t.Fatalf("got %d layouts, want %d", len(table.Layouts), len(ctypes.Kinds))
	}
	for i, k := range ctypes.Kinds {
		row := table.Layouts[i]
		l := ctypes.LayoutOf(cabi.AIXPPC64, k)
		if row.Kind != k.String() || row.Size != l.ByteSize || row.Align != l.ByteAlign || row.Float != l.Float {
			t.Errorf("row %d = %+v, want %+v", i, row, l)
		}
	}
	resetFlags()
}

func TestParseValue(t *testing.T) {
	s := ctypes.For(cabi.SysV)
	testCases := []struct {
		typ  ctypes.Type
		in   string
		want any
	}{
		{s.Bool(), "true", true},
		{s.Char(), "-128", int8(-128)},
		{s.Short(), "0x7fff", int16(0x7fff)},
		{s.Int(), "-7", int32(-7)},
		{s.Long(), "1234567890123", int64(1234567890123)},
		{s.Float(), "0.25", float32(0.25)},
		{s.Double(), "-1e10", float64(-1e10)},
		{s.Pointer(), "0xdeadbeef", uint64(0xdeadbeef)},
	}

	for _, tc := range testCases {
		t.Run(tc.typ.String(), func(t *testing.T) {
			got, err := parseValue(tc.typ, tc.in)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tc.want {
				t.Errorf("got %#v, want %#v", got, tc.want)
			}
		})
	}

	if _, err := parseValue(s.Char(), "128"); err == nil {
		t.Error("expected an error for a char out of range")
	}
	if _, err := parseValue(ctypes.StructOf(s.Int(), s.Int()), "zz"); err == nil {
		t.Error("expected an error for a bad hex image")
	}
}

// scriptPrompter replays lines as if typed at the prompt
type scriptPrompter struct {
	lines   []string
	prompts []string
	history []string
}

func (p *scriptPrompter) Prompt(prompt string) (string, error) {
	p.prompts = append(p.prompts, prompt)
	if len(p.lines) == 0 {
		return "", io.EOF
	}
	line := p.lines[0]
	p.lines = p.lines[1:]
	return line, nil
}

func (p *scriptPrompter) AppendHistory(item string) {
	p.history = append(p.history, item)
}

func TestRepl(t *testing.T) {
	p := &scriptPrompter{lines: []string{
		"struct point {",
		"  int x; int y;",
		"}",
		"long labs(long)",
		":conv win64",
		"long labs(long)",
		":conv",
		"widget w",
		":bogus",
		"",
		":quit",
		"int never(void)",
	}}

	var out, errOut bytes.Buffer
	runRepl(p, &out, &errOut, cabi.SysV)
	output := out.String()

	for _, want := range []string{
		"ralph-abi " + version + " (sysv-x86-64)",
		"struct point: size 8, align 4\n",
		"sysv-x86-64 long(long)\n",
		"  arg0  long    INTEGER rdi\n",
		"win64 long(long)\n",
		"  arg0  long    INTEGER rcx\n",
		"win64\n",
	} {
		if !strings.Contains(output, want) {
			t.Errorf("expected output to contain %q\ngot:\n%s", want, output)
		}
	}
	if strings.Contains(output, "never") {
		t.Errorf("input after :quit was evaluated:\n%s", output)
	}

	diag := errOut.String()
	if !strings.Contains(diag, "ralph-abi: ") || !strings.Contains(diag, "unknown command :bogus") {
		t.Errorf("unexpected diagnostics %q", diag)
	}

	if len(p.history) != 3 || p.history[0] != "struct point {   int x; int y; }" {
		t.Errorf("history = %q", p.history)
	}
	if p.prompts[0] != promptMain || p.prompts[1] != promptCont || p.prompts[3] != promptMain {
		t.Errorf("prompts = %q", p.prompts)
	}
}

func TestReplEOF(t *testing.T) {
	p := &scriptPrompter{lines: []string{"int f(int a,"}}

	var out, errOut bytes.Buffer
	runRepl(p, &out, &errOut, cabi.LinuxAArch64)

	// An unfinished declaration is still evaluated at end of input
	if !strings.Contains(errOut.String(), "ralph-abi: ") {
		t.Errorf("expected a syntax error, got %q", errOut.String())
	}
	if !strings.HasSuffix(out.String(), "\n\n") {
		t.Errorf("expected a trailing newline at end of input, got %q", out.String())
	}
}
