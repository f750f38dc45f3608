package platform

import (
	"strconv"
	"testing"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		in   Info
		want Info
	}{
		{Info{"arm64", "darwin", 64}, Info{"aarch64", "Mac OS X", 64}},
		{Info{"amd64", "windows", 64}, Info{"amd64", "Windows", 64}},
		{Info{"x86_64", "Linux", 64}, Info{"x86_64", "Linux", 64}},
		{Info{"ppc64", "aix", 64}, Info{"ppc64", "AIX", 64}},
		{Info{"s390x", "linux", 64}, Info{"s390x", "Linux", 64}},
		{Info{"mips64", "plan9", 64}, Info{"mips64", "plan9", 64}},
	}

	for _, tt := range tests {
		if got := Normalize(tt.in); got != tt.want {
			t.Errorf("Normalize(%v) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestParse(t *testing.T) {
	info, err := Parse("linux/riscv64")
	if err != nil {
		t.Fatalf("Parse error: %v", err)
	}
	if info != (Info{"riscv64", "Linux", 64}) {
		t.Errorf("Parse = %v", info)
	}

	info, err = Parse("windows/amd64/32")
	if err != nil {
		t.Fatalf("Parse error: %v", err)
	}
	if info.PointerBits != 32 || info.OS != "Windows" {
		t.Errorf("Parse = %v", info)
	}

	for _, bad := range []string{"linux", "a/b/c/d", "linux/amd64/x"} {
		if _, err := Parse(bad); err == nil {
			t.Errorf("Parse(%q) expected error", bad)
		}
	}
}

func TestHost(t *testing.T) {
	h := Host()
	if h.PointerBits != strconv.IntSize {
		t.Errorf("Host().PointerBits = %d, want %d", h.PointerBits, strconv.IntSize)
	}
	if h.Arch == "" || h.OS == "" {
		t.Errorf("Host() = %v, want non-empty names", h)
	}
	if h.Arch != Go().Arch && !sameFamily(h.Arch, Go().Arch) {
		t.Errorf("Host().Arch = %q not in family of %q", h.Arch, Go().Arch)
	}
}

func TestInfoString(t *testing.T) {
	if s := (Info{"aarch64", "Linux", 64}).String(); s != "Linux/aarch64/64" {
		t.Errorf("String() = %q", s)
	}
}
