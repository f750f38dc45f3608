// Package cabi enumerates the native C calling conventions this module
// understands and resolves which one is in effect for a platform.
package cabi

import (
	"encoding/binary"
	"fmt"
	"strings"
)

// Convention identifies a native C calling convention.
type Convention int

const (
	SysV Convention = iota
	Win64
	LinuxAArch64
	MacOSAArch64
	WindowsAArch64
	LinuxRISCV64
	SysVPPC64LE
	SysVS390x
	AIXPPC64
)

// All lists every convention in declaration order.
var All = []Convention{
	SysV, Win64, LinuxAArch64, MacOSAArch64, WindowsAArch64,
	LinuxRISCV64, SysVPPC64LE, SysVS390x, AIXPPC64,
}

var conventionNames = []string{
	"sysv-x86-64",
	"win64",
	"aarch64-linux",
	"aarch64-macos",
	"aarch64-windows",
	"riscv64-linux",
	"ppc64le-sysv",
	"s390x-sysv",
	"ppc64-aix",
}

func (c Convention) String() string {
	if c >= 0 && int(c) < len(conventionNames) {
		return conventionNames[c]
	}
	return fmt.Sprintf("Convention(%d)", int(c))
}

// ParseConvention returns the convention with the given String name.
func ParseConvention(name string) (Convention, error) {
	for i, n := range conventionNames {
		if strings.EqualFold(n, name) {
			return Convention(i), nil
		}
	}
	return 0, fmt.Errorf("unknown convention %q", name)
}

// Valid reports whether c is one of the enumerated conventions.
func (c Convention) Valid() bool {
	return c >= SysV && c <= AIXPPC64
}

// ByteOrder returns the byte order of the convention's target.
func (c Convention) ByteOrder() binary.ByteOrder {
	if c.BigEndian() {
		return binary.BigEndian
	}
	return binary.LittleEndian
}

// BigEndian reports whether the convention's target stores values
// most-significant byte first.
func (c Convention) BigEndian() bool {
	return c == SysVS390x || c == AIXPPC64
}

// AddressSize is the pointer width in bytes. Every supported convention
// is a 64-bit one.
func (c Convention) AddressSize() int64 {
	return 8
}

// IsAArch64 reports whether the convention is one of the AAPCS64 variants.
func (c Convention) IsAArch64() bool {
	return c == LinuxAArch64 || c == MacOSAArch64 || c == WindowsAArch64
}
