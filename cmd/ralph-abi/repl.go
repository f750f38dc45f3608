package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/peterh/liner"
	"github.com/spf13/cobra"

	"github.com/raymyers/ralph-abi/pkg/cabi"
	"github.com/raymyers/ralph-abi/pkg/parser"
)

const (
	historyFile = ".ralph_abi_history"
	promptMain  = "abi> "
	promptCont  = "...> "
)

const replHelp = `Enter a C declaration to lay out a type or classify a prototype:
  struct { char c; double d; }
  int printf(const char *fmt, ...)
Commands:
  :conv [name]  show or switch the calling convention
  :layouts      show the primitive layouts
  :help         show this message
  :quit         leave the shell`

// prompter reads lines of input; *liner.State satisfies it
type prompter interface {
	Prompt(prompt string) (string, error)
	AppendHistory(item string)
}

func newReplCmd(out, errOut io.Writer) *cobra.Command {
	return &cobra.Command{
		Use:   "repl",
		Short: "Interactive shell for layouts and call classification",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			conv, err := selectConvention(errOut)
			if err != nil {
				return err
			}

			ln := liner.NewLiner()
			defer ln.Close()
			ln.SetCtrlCAborts(true)

			home, _ := os.UserHomeDir()
			histPath := filepath.Join(home, historyFile)
			if f, err := os.Open(histPath); err == nil {
				_, _ = ln.ReadHistory(f)
				_ = f.Close()
			}
			defer func() {
				if f, err := os.Create(histPath); err == nil {
					_, _ = ln.WriteHistory(f)
					_ = f.Close()
				}
			}()

			runRepl(ln, out, errOut, conv)
			return nil
		},
	}
}

// runRepl evaluates declarations until end of input or :quit
func runRepl(p prompter, out, errOut io.Writer, conv cabi.Convention) {
	fmt.Fprintf(out, "ralph-abi %s (%s). Type :help for help.\n", version, conv)
	for {
		src, ok := readDecl(p)
		if !ok {
			fmt.Fprintln(out)
			return
		}
		src = strings.TrimSpace(src)
		if src == "" {
			continue
		}

		if strings.HasPrefix(src, ":") {
			fields := strings.Fields(src)
			switch fields[0] {
			case ":quit", ":q":
				return
			case ":help":
				fmt.Fprintln(out, replHelp)
			case ":layouts":
				_ = printLayouts(out, conv, false)
			case ":conv":
				if len(fields) == 1 {
					fmt.Fprintln(out, conv)
					break
				}
				c, err := cabi.ParseConvention(fields[1])
				if err != nil {
					fmt.Fprintf(errOut, "ralph-abi: %v\n", err)
					break
				}
				conv = c
				fmt.Fprintln(out, conv)
			default:
				fmt.Fprintf(errOut, "ralph-abi: unknown command %s. Type :help for help.\n", fields[0])
			}
			continue
		}

		if err := evalDecl(out, conv, src); err != nil {
			fmt.Fprintf(errOut, "ralph-abi: %v\n", err)
			continue
		}
		p.AppendHistory(strings.ReplaceAll(src, "\n", " "))
	}
}

// readDecl reads lines until every brace and parenthesis is closed
func readDecl(p prompter) (string, bool) {
	var b strings.Builder
	depth := 0
	for {
		prompt := promptMain
		if b.Len() > 0 {
			prompt = promptCont
		}
		line, err := p.Prompt(prompt)
		if errors.Is(err, io.EOF) || errors.Is(err, liner.ErrPromptAborted) {
			if b.Len() > 0 {
				return b.String(), true
			}
			return "", false
		}
		if err != nil {
			return "", false
		}

		if b.Len() > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(line)
		for _, r := range line {
			switch r {
			case '{', '(':
				depth++
			case '}', ')':
				depth--
			}
		}
		if depth <= 0 {
			return b.String(), true
		}
	}
}

// evalDecl classifies src when it declares a function and lays it out
// otherwise
func evalDecl(w io.Writer, conv cabi.Convention, src string) error {
	decls, err := parser.Parse(conv, src)
	if err != nil {
		return err
	}
	if decls[len(decls)-1].Func != nil {
		return printPlan(w, conv, src)
	}
	return printType(w, conv, src)
}
