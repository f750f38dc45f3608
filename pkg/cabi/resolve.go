package cabi

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/raymyers/ralph-abi/pkg/platform"
)

// ErrUnsupportedPlatform is returned when no convention matches a platform.
var ErrUnsupportedPlatform = errors.New("unsupported platform")

// Resolve maps an architecture name, operating system name and pointer width
// to a calling convention. Names are matched exactly as the host reports
// them (see platform.Normalize); operating systems match by prefix.
func Resolve(arch, os string, pointerBits int) (Convention, error) {
	switch {
	case (arch == "amd64" || arch == "x86_64") && pointerBits == 64:
		if strings.HasPrefix(os, "Windows") {
			return Win64, nil
		}
		return SysV, nil

	case arch == "aarch64":
		if strings.HasPrefix(os, "Mac") {
			return MacOSAArch64, nil
		}
		if strings.HasPrefix(os, "Windows") {
			return WindowsAArch64, nil
		}
		// Linux and everything else follow the standard AAPCS64
		return LinuxAArch64, nil

	case arch == "riscv64":
		if strings.HasPrefix(os, "Linux") {
			return LinuxRISCV64, nil
		}

	case strings.HasPrefix(arch, "ppc64"):
		if strings.HasPrefix(os, "Linux") {
			return SysVPPC64LE, nil
		}
		return AIXPPC64, nil

	case arch == "s390x" && strings.HasPrefix(os, "Linux"):
		return SysVS390x, nil
	}

	return 0, fmt.Errorf("%w: unsupported os, arch, or address size: %s, %s, %d",
		ErrUnsupportedPlatform, os, arch, pointerBits)
}

// ResolveInfo is Resolve applied to a platform.Info.
func ResolveInfo(info platform.Info) (Convention, error) {
	return Resolve(info.Arch, info.OS, info.PointerBits)
}

// Process-wide convention. Written exactly once by Init, read-only after.
var current struct {
	once sync.Once
	info platform.Info
	conv Convention
	err  error
}

// Init resolves the process convention from info. Only the first call has
// an effect; every call returns the result of that first resolution.
func Init(info platform.Info) (Convention, error) {
	current.once.Do(func() {
		current.info = info
		current.conv, current.err = ResolveInfo(info)
	})
	return current.conv, current.err
}

// Current returns the process convention, resolving it from the host
// platform if Init has not been called.
func Current() (Convention, error) {
	return Init(platform.Host())
}

// MustCurrent is like Current but panics if the platform is unsupported.
func MustCurrent() Convention {
	c, err := Current()
	if err != nil {
		panic(err)
	}
	return c
}

// CurrentPlatform returns the platform the process convention was resolved
// from, resolving it from the host first if needed.
func CurrentPlatform() platform.Info {
	Current()
	return current.info
}
