package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/raymyers/ralph-abi/pkg/cabi"
	"github.com/raymyers/ralph-abi/pkg/platform"
)

var version = "0.1.0"

// Target selection flags
var (
	archFlag string
	osFlag   string
	bitsFlag int
	convFlag string
)

// Output flags
var yamlOutput bool

// resetFlags restores every flag to its default
func resetFlags() {
	archFlag = ""
	osFlag = ""
	bitsFlag = 0
	convFlag = ""
	yamlOutput = false
}

func main() {
	os.Exit(run())
}

func run() int {
	rootCmd := newRootCmd(os.Stdout, os.Stderr)
	if err := rootCmd.Execute(); err != nil {
		return 1
	}
	return 0
}

func newRootCmd(out, errOut io.Writer) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "ralph-abi",
		Short: "ralph-abi inspects native calling conventions",
		Long: `ralph-abi resolves the native calling convention of a platform and
shows how it lays out C types, assigns call arguments to registers and
stack slots, and builds va_list objects.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.SetOut(out)
	rootCmd.SetErr(errOut)

	addTargetFlags(rootCmd.PersistentFlags())

	rootCmd.AddCommand(
		newResolveCmd(out, errOut),
		newLayoutsCmd(out, errOut),
		newStructCmd(out, errOut),
		newClassifyCmd(out, errOut),
		newVarargsCmd(out, errOut),
		newReplCmd(out, errOut),
	)
	return rootCmd
}

func addTargetFlags(fs *pflag.FlagSet) {
	fs.StringVar(&archFlag, "arch", "", "Target architecture, e.g. amd64, aarch64, ppc64le (default: host)")
	fs.StringVar(&osFlag, "os", "", `Target operating system, e.g. Linux, Windows, "Mac OS X" (default: host)`)
	fs.IntVar(&bitsFlag, "bits", 0, "Target pointer width in bits (default: host)")
	fs.StringVarP(&convFlag, "convention", "c", "", "Calling convention by name; overrides --arch, --os and --bits")
}

// targetPlatform returns the platform named by the flags, taking any part
// that was not given from the host
func targetPlatform() platform.Info {
	info := platform.Host()
	if archFlag != "" {
		info.Arch = archFlag
	}
	if osFlag != "" {
		info.OS = osFlag
	}
	if bitsFlag != 0 {
		info.PointerBits = bitsFlag
	}
	return platform.Normalize(info)
}

// selectConvention returns the convention commands operate on: the one
// named by --convention, the one of the platform named by --arch, --os and
// --bits, or the process convention.
func selectConvention(errOut io.Writer) (cabi.Convention, error) {
	var (
		conv cabi.Convention
		err  error
	)
	switch {
	case convFlag != "":
		conv, err = cabi.ParseConvention(convFlag)
	case archFlag != "" || osFlag != "" || bitsFlag != 0:
		conv, err = cabi.ResolveInfo(targetPlatform())
	default:
		conv, err = cabi.Current()
	}
	if err != nil {
		fmt.Fprintf(errOut, "ralph-abi: %v\n", err)
		return 0, err
	}
	return conv, nil
}

func newResolveCmd(out, errOut io.Writer) *cobra.Command {
	return &cobra.Command{
		Use:   "resolve [os/arch[/bits]]",
		Short: "Show the calling convention of a platform",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var info platform.Info
			if len(args) == 1 {
				var err error
				info, err = platform.Parse(args[0])
				if err != nil {
					fmt.Fprintf(errOut, "ralph-abi: %v\n", err)
					return err
				}
			} else if archFlag != "" || osFlag != "" || bitsFlag != 0 {
				info = targetPlatform()
			} else {
				conv, err := cabi.Current()
				if err != nil {
					fmt.Fprintf(errOut, "ralph-abi: %v\n", err)
					return err
				}
				fmt.Fprintf(out, "%s: %s\n", cabi.CurrentPlatform(), conv)
				return nil
			}

			conv, err := cabi.ResolveInfo(info)
			if err != nil {
				fmt.Fprintf(errOut, "ralph-abi: %v\n", err)
				return err
			}
			fmt.Fprintf(out, "%s: %s\n", info, conv)
			return nil
		},
	}
}
