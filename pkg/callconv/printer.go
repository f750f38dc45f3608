package callconv

import (
	"fmt"
	"io"
	"strings"
)

// Printer outputs plans in a readable one-line-per-value format:
//
//	sysv-x86-64 int(char*, ...double)
//	  ret   int     INTEGER rax
//	  arg0  char*   INTEGER rdi
//	  arg1  double  FLOAT   xmm0  variadic
//	  stack 0 bytes, 1 int regs, 1 float regs
type Printer struct {
	w io.Writer
}

// NewPrinter creates a new plan printer
func NewPrinter(w io.Writer) *Printer {
	return &Printer{w: w}
}

// PrintPlan outputs a single plan
func (p *Printer) PrintPlan(plan *Plan) {
	fmt.Fprintf(p.w, "%s %s\n", plan.Convention, plan.Descriptor)
	if plan.ResultPointer != nil {
		fmt.Fprintf(p.w, "  %-5s %-7s %-7s %s\n", "sret", "void*", IntReg, slotString(*plan.ResultPointer))
	}
	if plan.Return != nil {
		p.printAssignment("ret", *plan.Return)
	}
	for i, a := range plan.Args {
		p.printAssignment(argName(i), a)
	}
	fmt.Fprintf(p.w, "  stack %d bytes, %d int regs, %d float regs\n", plan.StackSize, plan.IntRegs, plan.FloatRegs)
}

func (p *Printer) printAssignment(name string, a Assignment) {
	var locs []string
	for _, s := range a.Slots {
		locs = append(locs, slotString(s))
	}
	if a.ByRef {
		locs = append(locs, "byref")
	}
	if a.Variadic {
		locs = append(locs, "variadic")
	}
	line := fmt.Sprintf("  %-5s %-7s %-7s %s", name, a.Type, a.Class, strings.Join(locs, " "))
	fmt.Fprintln(p.w, strings.TrimRight(line, " "))
}

func slotString(s Slot) string {
	var loc string
	if s.Class == Stack {
		loc = fmt.Sprintf("[sp+%d]", s.Index)
	} else {
		loc = s.Reg
	}
	if s.Shadow {
		loc = "(" + loc + ")"
	}
	if s.Offset != 0 {
		loc = fmt.Sprintf("%s@%d", loc, s.Offset)
	}
	return loc
}
