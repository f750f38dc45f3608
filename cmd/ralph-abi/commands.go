package main

import (
	"encoding/hex"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/samber/lo"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/raymyers/ralph-abi/pkg/cabi"
	"github.com/raymyers/ralph-abi/pkg/callconv"
	"github.com/raymyers/ralph-abi/pkg/ctypes"
	"github.com/raymyers/ralph-abi/pkg/parser"
	"github.com/raymyers/ralph-abi/pkg/vararg"
)

func newLayoutsCmd(out, errOut io.Writer) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "layouts",
		Short: "Show the size and alignment of every primitive C type",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			conv, err := selectConvention(errOut)
			if err != nil {
				return err
			}
			return printLayouts(out, conv, yamlOutput)
		},
	}
	cmd.Flags().BoolVar(&yamlOutput, "yaml", false, "Emit the table as YAML")
	return cmd
}

func newStructCmd(out, errOut io.Writer) *cobra.Command {
	return &cobra.Command{
		Use:   "struct <declaration>",
		Short: "Lay out a C type, e.g. 'struct { char c; double d; }'",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			conv, err := selectConvention(errOut)
			if err != nil {
				return err
			}
			if err := printType(out, conv, strings.Join(args, " ")); err != nil {
				fmt.Fprintf(errOut, "ralph-abi: %v\n", err)
				return err
			}
			return nil
		},
	}
}

func newClassifyCmd(out, errOut io.Writer) *cobra.Command {
	return &cobra.Command{
		Use:   "classify <prototype>",
		Short: "Show where each argument of a call is passed, e.g. 'int printf(const char *, ...)'",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			conv, err := selectConvention(errOut)
			if err != nil {
				return err
			}
			if err := printPlan(out, conv, strings.Join(args, " ")); err != nil {
				fmt.Fprintf(errOut, "ralph-abi: %v\n", err)
				return err
			}
			return nil
		},
	}
}

func newVarargsCmd(out, errOut io.Writer) *cobra.Command {
	return &cobra.Command{
		Use:   "varargs <type=value>...",
		Short: "Build a va_list from typed values and read it back",
		Long: `Build a va_list from typed values and read it back.

Each argument is a C type and a value separated by the last '=':
integers and pointers accept Go literal syntax (42, -1, 0x10), floats
accept decimal notation, and aggregates take the hex bytes of their
image, e.g. 'struct { int a; int b; }=0100000002000000'.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			conv, err := selectConvention(errOut)
			if err != nil {
				return err
			}
			if err := printVarargs(out, conv, args); err != nil {
				fmt.Fprintf(errOut, "ralph-abi: %v\n", err)
				return err
			}
			return nil
		},
	}
}

// layoutRow is one primitive in the YAML layout table
type layoutRow struct {
	Kind  string `yaml:"kind"`
	Size  int64  `yaml:"size"`
	Align int64  `yaml:"align"`
	Float bool   `yaml:"float,omitempty"`
}

type layoutTable struct {
	Convention string      `yaml:"convention"`
	Layouts    []layoutRow `yaml:"layouts"`
}

func printLayouts(w io.Writer, conv cabi.Convention, asYAML bool) error {
	table := layoutTable{
		Convention: conv.String(),
		Layouts: lo.Map(ctypes.Table(conv), func(l ctypes.Layout, _ int) layoutRow {
			return layoutRow{Kind: l.Kind.String(), Size: l.ByteSize, Align: l.ByteAlign, Float: l.Float}
		}),
	}
	if asYAML {
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(table); err != nil {
			return err
		}
		return enc.Close()
	}
	fmt.Fprintf(w, "%s\n", table.Convention)
	for _, row := range table.Layouts {
		fmt.Fprintf(w, "  %-10s size %d, align %d\n", row.Kind, row.Size, row.Align)
	}
	return nil
}

// maxLeafDump is the largest aggregate whose flattened leaves are listed
const maxLeafDump = 256

func printType(w io.Writer, conv cabi.Convention, src string) error {
	t, err := parser.ParseType(conv, src)
	if err != nil {
		return err
	}
	if t == nil {
		return fmt.Errorf("void has no layout")
	}
	fmt.Fprintf(w, "%s: size %d, align %d\n", t, t.Size(), t.Align())
	if s, ok := t.(*ctypes.Struct); ok {
		for _, f := range s.Fields {
			fmt.Fprintf(w, "  %4d  %-10s %s\n", f.Offset, f.Type, f.Name)
		}
	}
	if ctypes.IsAggregate(t) && t.Size() <= maxLeafDump {
		leaves := ctypes.Flatten(t)
		kinds := lo.Map(leaves, func(l ctypes.Leaf, _ int) string {
			return fmt.Sprintf("%s@%d", l.Layout.Kind, l.Offset)
		})
		fmt.Fprintf(w, "  leaves: %s\n", strings.Join(kinds, " "))
	}
	return nil
}

func printPlan(w io.Writer, conv cabi.Convention, src string) error {
	d, err := parser.ParseFunc(conv, src)
	if err != nil {
		return err
	}
	plan, err := callconv.Classify(conv, d)
	if err != nil {
		return err
	}
	callconv.NewPrinter(w).PrintPlan(plan)
	return nil
}

// varargValue is one parsed type=value argument
type varargValue struct {
	typ   ctypes.Type
	value any
}

func printVarargs(w io.Writer, conv cabi.Convention, args []string) error {
	values := make([]varargValue, 0, len(args))
	for _, arg := range args {
		v, err := parseVararg(conv, arg)
		if err != nil {
			return err
		}
		values = append(values, v)
	}

	scope := vararg.NewScope()
	defer scope.Close()

	b := vararg.NewBuilder(conv, scope)
	for _, v := range values {
		b.Add(v.typ, v.value)
	}
	list, err := b.Build()
	if err != nil {
		return err
	}
	header, err := list.Header()
	if err != nil {
		return err
	}

	fmt.Fprintf(w, "%s va_list at %#x\n", conv, list.Address())
	fmt.Fprintf(w, "  header  %s\n", hex.EncodeToString(header))
	for _, seg := range scope.Segments() {
		fmt.Fprintf(w, "  segment %#x %d bytes\n", seg.Addr, len(seg.Data))
	}

	r := list.Reader()
	for i, v := range values {
		got, err := r.Next(v.typ)
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "  arg%d %s = %s\n", i, v.typ, formatValue(got))
	}
	return nil
}

// parseVararg splits "type=value" at the last '=' and converts the value to
// the Go type the builder expects for that C type
func parseVararg(conv cabi.Convention, arg string) (varargValue, error) {
	i := strings.LastIndex(arg, "=")
	if i < 0 {
		return varargValue{}, fmt.Errorf("argument %q: want type=value", arg)
	}
	typ, err := parser.ParseType(conv, arg[:i])
	if err != nil {
		return varargValue{}, err
	}
	if typ == nil {
		return varargValue{}, fmt.Errorf("argument %q: void cannot be passed", arg)
	}
	v, err := parseValue(typ, strings.TrimSpace(arg[i+1:]))
	if err != nil {
		return varargValue{}, fmt.Errorf("argument %q: %w", arg, err)
	}
	return varargValue{typ: typ, value: v}, nil
}

func parseValue(t ctypes.Type, s string) (any, error) {
	l, ok := t.(ctypes.Layout)
	if !ok {
		b, err := hex.DecodeString(s)
		if err != nil {
			return nil, err
		}
		if int64(len(b)) != t.Size() {
			return nil, fmt.Errorf("%s needs %d bytes, got %d", t, t.Size(), len(b))
		}
		return b, nil
	}
	switch l.Kind {
	case ctypes.Bool:
		return strconv.ParseBool(s)
	case ctypes.Char:
		n, err := strconv.ParseInt(s, 0, 8)
		return int8(n), err
	case ctypes.Short:
		n, err := strconv.ParseInt(s, 0, 16)
		return int16(n), err
	case ctypes.Int:
		n, err := strconv.ParseInt(s, 0, 32)
		return int32(n), err
	case ctypes.Long, ctypes.LongLong:
		return strconv.ParseInt(s, 0, 64)
	case ctypes.Float:
		f, err := strconv.ParseFloat(s, 32)
		return float32(f), err
	case ctypes.Double:
		return strconv.ParseFloat(s, 64)
	case ctypes.Pointer, ctypes.VaList:
		return strconv.ParseUint(s, 0, 64)
	}
	return nil, fmt.Errorf("unsupported type %s", t)
}

func formatValue(v any) string {
	switch vv := v.(type) {
	case []byte:
		return hex.EncodeToString(vv)
	case uint64:
		return fmt.Sprintf("%#x", vv)
	}
	return fmt.Sprint(v)
}
