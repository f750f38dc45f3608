//go:build unix

package platform

import (
	"golang.org/x/sys/unix"
)

// Host queries the running kernel for its name and machine type.
// uname is consulted so a 64-bit kernel reports its own machine even when
// GOARCH names a compatible variant (ppc64 vs ppc64le); the pointer width
// always comes from the process.
func Host() Info {
	info := Go()

	var uts unix.Utsname
	if err := unix.Uname(&uts); err != nil {
		return info
	}
	sysname := unix.ByteSliceToString(uts.Sysname[:])
	machine := unix.ByteSliceToString(uts.Machine[:])

	if sysname != "" {
		info.OS = Normalize(Info{OS: sysname}).OS
	}
	// Only trust the machine name when it agrees with the process' family,
	// e.g. a 32-bit process on a 64-bit kernel keeps its own GOARCH.
	if m := Normalize(Info{Arch: machine}).Arch; sameFamily(m, info.Arch) {
		info.Arch = m
	}
	return info
}
