package cabi

import (
	"errors"
	"testing"

	"github.com/raymyers/ralph-abi/pkg/platform"
)

func TestResolve(t *testing.T) {
	tests := []struct {
		arch string
		os   string
		bits int
		want Convention
	}{
		{"amd64", "Linux", 64, SysV},
		{"x86_64", "Mac OS X", 64, SysV},
		{"amd64", "FreeBSD", 64, SysV},
		{"amd64", "Windows 10", 64, Win64},
		{"x86_64", "Windows Server 2022", 64, Win64},
		{"aarch64", "Linux", 64, LinuxAArch64},
		{"aarch64", "FreeBSD", 64, LinuxAArch64},
		{"aarch64", "Mac OS X", 64, MacOSAArch64},
		{"aarch64", "Windows 11", 64, WindowsAArch64},
		{"riscv64", "Linux", 64, LinuxRISCV64},
		{"ppc64le", "Linux", 64, SysVPPC64LE},
		{"ppc64", "Linux", 64, SysVPPC64LE},
		{"ppc64", "AIX", 64, AIXPPC64},
		{"s390x", "Linux", 64, SysVS390x},
	}

	for _, tt := range tests {
		t.Run(tt.os+"/"+tt.arch, func(t *testing.T) {
			got, err := Resolve(tt.arch, tt.os, tt.bits)
			if err != nil {
				t.Fatalf("Resolve(%q, %q, %d) error: %v", tt.arch, tt.os, tt.bits, err)
			}
			if got != tt.want {
				t.Errorf("Resolve(%q, %q, %d) = %v, want %v", tt.arch, tt.os, tt.bits, got, tt.want)
			}
		})
	}
}

func TestResolveUnsupported(t *testing.T) {
	tests := []struct {
		arch string
		os   string
		bits int
	}{
		{"amd64", "Linux", 32},
		{"x86_64", "Windows 10", 32},
		{"x86", "Linux", 32},
		{"arm", "Linux", 32},
		{"riscv64", "FreeBSD", 64},
		{"s390x", "z/OS", 64},
		{"sparcv9", "SunOS", 64},
		{"", "", 0},
	}

	for _, tt := range tests {
		_, err := Resolve(tt.arch, tt.os, tt.bits)
		if !errors.Is(err, ErrUnsupportedPlatform) {
			t.Errorf("Resolve(%q, %q, %d) error = %v, want ErrUnsupportedPlatform", tt.arch, tt.os, tt.bits, err)
		}
	}
}

func TestResolveDeterministic(t *testing.T) {
	for i := 0; i < 3; i++ {
		got, err := Resolve("aarch64", "Mac OS X", 64)
		if err != nil || got != MacOSAArch64 {
			t.Fatalf("Resolve = %v, %v", got, err)
		}
	}
}

func TestInitOnce(t *testing.T) {
	first, err := Init(platform.Info{Arch: "s390x", OS: "Linux", PointerBits: 64})
	if err != nil {
		t.Fatalf("Init error: %v", err)
	}
	if first != SysVS390x {
		t.Fatalf("Init = %v, want %v", first, SysVS390x)
	}

	// A second Init with a different platform keeps the first result
	second, err := Init(platform.Info{Arch: "amd64", OS: "Windows", PointerBits: 64})
	if err != nil || second != first {
		t.Errorf("second Init = %v, %v; want %v", second, err, first)
	}

	cur, err := Current()
	if err != nil || cur != first {
		t.Errorf("Current() = %v, %v; want %v", cur, err, first)
	}
	if MustCurrent() != first {
		t.Errorf("MustCurrent() = %v, want %v", MustCurrent(), first)
	}
	if p := CurrentPlatform(); p.Arch != "s390x" {
		t.Errorf("CurrentPlatform().Arch = %q, want s390x", p.Arch)
	}
}

func TestConventionString(t *testing.T) {
	for _, c := range All {
		got, err := ParseConvention(c.String())
		if err != nil {
			t.Fatalf("ParseConvention(%q) error: %v", c.String(), err)
		}
		if got != c {
			t.Errorf("ParseConvention(%q) = %v, want %v", c.String(), got, c)
		}
	}
	if _, err := ParseConvention("vax"); err == nil {
		t.Error("expected error for unknown convention")
	}
	if s := Convention(42).String(); s != "Convention(42)" {
		t.Errorf("String() = %q", s)
	}
}

func TestByteOrder(t *testing.T) {
	for _, c := range All {
		want := c == SysVS390x || c == AIXPPC64
		if c.BigEndian() != want {
			t.Errorf("%v.BigEndian() = %v, want %v", c, c.BigEndian(), want)
		}
		if c.AddressSize() != 8 {
			t.Errorf("%v.AddressSize() = %d, want 8", c, c.AddressSize())
		}
	}
}
