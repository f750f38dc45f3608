package callconv

import (
	"bytes"
	"strings"
	"testing"

	"github.com/raymyers/ralph-abi/pkg/cabi"
	"github.com/raymyers/ralph-abi/pkg/ctypes"
)

func TestPrintPlan(t *testing.T) {
	s := ctypes.For(cabi.SysV)
	plan := MustClassify(cabi.SysV, VarFunc(s.Int(), 1, s.Pointer(), s.Double()))

	var buf bytes.Buffer
	NewPrinter(&buf).PrintPlan(plan)
	out := buf.String()

	for _, want := range []string{
		"sysv-x86-64 int(void*, ...double)\n",
		"  ret   int     INTEGER rax\n",
		"  arg0  void*   INTEGER rdi\n",
		"  arg1  double  FLOAT   xmm0 variadic\n",
		"  stack 0 bytes, 1 int regs, 1 float regs\n",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestPrintPlanByRef(t *testing.T) {
	s := ctypes.For(cabi.Win64)
	big := ctypes.NewStruct("big", ctypes.F("a", s.LongLong()), ctypes.F("b", s.LongLong()))
	plan := MustClassify(cabi.Win64, Func(big, big))

	var buf bytes.Buffer
	NewPrinter(&buf).PrintPlan(plan)
	out := buf.String()

	if !strings.Contains(out, "  sret  void*   INTEGER rcx\n") {
		t.Errorf("missing sret line:\n%s", out)
	}
	if !strings.Contains(out, "  arg0  struct big INTEGER rdx byref\n") {
		t.Errorf("missing byref argument:\n%s", out)
	}
}
