// Package platform identifies the host the process runs on: the raw
// architecture name, operating system name, and pointer width.
package platform

import (
	"fmt"
	"runtime"
	"strconv"
	"strings"
)

// Info holds the raw identifying strings of a platform.
// Names use the canonical spellings ("amd64", "aarch64", "Linux",
// "Mac OS X", "Windows", "AIX"); Normalize converts Go-style names.
type Info struct {
	Arch        string
	OS          string
	PointerBits int
}

func (i Info) String() string {
	return i.OS + "/" + i.Arch + "/" + strconv.Itoa(i.PointerBits)
}

// archNames maps GOARCH values to canonical architecture names
var archNames = map[string]string{
	"amd64":   "amd64",
	"x86_64":  "x86_64",
	"arm64":   "aarch64",
	"aarch64": "aarch64",
	"riscv64": "riscv64",
	"ppc64":   "ppc64",
	"ppc64le": "ppc64le",
	"s390x":   "s390x",
	"386":     "x86",
	"arm":     "arm",
}

// osNames maps GOOS values to canonical operating system names
var osNames = map[string]string{
	"linux":   "Linux",
	"android": "Linux",
	"darwin":  "Mac OS X",
	"ios":     "Mac OS X",
	"windows": "Windows",
	"aix":     "AIX",
	"freebsd": "FreeBSD",
	"openbsd": "OpenBSD",
	"netbsd":  "NetBSD",
}

// Normalize converts Go-style names (GOARCH/GOOS, uname output) to the
// canonical names. Names that are already canonical, or unknown, are kept.
func Normalize(info Info) Info {
	if a, ok := archNames[strings.ToLower(info.Arch)]; ok {
		info.Arch = a
	}
	if o, ok := osNames[strings.ToLower(info.OS)]; ok {
		info.OS = o
	}
	return info
}

// Parse reads an "os/arch/bits" triple as printed by Info.String.
// The bits component is optional and defaults to 64.
func Parse(s string) (Info, error) {
	parts := strings.Split(s, "/")
	if len(parts) < 2 || len(parts) > 3 {
		return Info{}, fmt.Errorf("platform %q: want os/arch[/bits]", s)
	}
	info := Info{OS: parts[0], Arch: parts[1], PointerBits: 64}
	if len(parts) == 3 {
		bits, err := strconv.Atoi(parts[2])
		if err != nil {
			return Info{}, fmt.Errorf("platform %q: bad pointer width: %w", s, err)
		}
		info.PointerBits = bits
	}
	return Normalize(info), nil
}

// Go returns the platform described by the Go toolchain constants.
func Go() Info {
	return Normalize(Info{
		Arch:        runtime.GOARCH,
		OS:          runtime.GOOS,
		PointerBits: strconv.IntSize,
	})
}

// sameFamily reports whether two canonical architecture names describe the
// same instruction set family.
func sameFamily(a, b string) bool {
	switch {
	case a == b:
		return true
	case (a == "amd64" || a == "x86_64") && (b == "amd64" || b == "x86_64"):
		return true
	case len(a) >= 5 && len(b) >= 5 && a[:5] == "ppc64" && b[:5] == "ppc64":
		return true
	}
	return false
}
