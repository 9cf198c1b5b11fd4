package version

import "testing"

func TestVersionStringNonEmpty(t *testing.T) {
	if s := String(); s == "" {
		t.Fatalf("version string is empty")
	}
}

func TestVersionStringFallback(t *testing.T) {
	old := Version
	Version = ""
	t.Cleanup(func() { Version = old })
	if got := String(); got != "dev" {
		t.Fatalf("String() = %q, want dev", got)
	}
}
