package attrs

import (
	"errors"
	"testing"
)

var allModes = []Mode{
	ModeStrictReadOnly,
	ModeReadOnly,
	ModeReadWrite,
	ModeWriteOnly,
	ModeWriteOnce,
	ModeWriteOnceTransient,
}

func TestModePermits(t *testing.T) {
	readOriented := map[Mode]bool{ModeStrictReadOnly: true, ModeReadOnly: true, ModeReadWrite: true}
	writeOriented := map[Mode]bool{ModeReadWrite: true, ModeWriteOnly: true, ModeWriteOnce: true, ModeWriteOnceTransient: true}

	for _, base := range allModes {
		for _, attr := range allModes {
			var want bool
			switch base {
			case ModeReadWrite:
				want = true
			case ModeStrictReadOnly, ModeReadOnly:
				want = readOriented[attr]
			default:
				want = writeOriented[attr]
			}
			if got := base.Permits(attr); got != want {
				t.Fatalf("%s.Permits(%s) = %v, want %v", base, attr, got, want)
			}
		}
	}
	if ModeReadWrite.Permits(ModeInherit) {
		t.Fatalf("expected inherit to be rejected as an attribute mode")
	}
}

func TestModeReadable(t *testing.T) {
	readable := map[Mode]bool{ModeStrictReadOnly: true, ModeReadOnly: true, ModeReadWrite: true, ModeWriteOnce: true}
	for _, mode := range allModes {
		if got := mode.Readable(); got != readable[mode] {
			t.Fatalf("%s.Readable() = %v, want %v", mode, got, readable[mode])
		}
	}
}

func TestIncompatibleModeFailsRegistration(t *testing.T) {
	for _, base := range allModes {
		for _, attr := range allModes {
			_, err := NewSchema(base, []Field{{Name: "a", Mode: attr}})
			if base.Permits(attr) {
				if err != nil {
					t.Fatalf("base %s attr %s: unexpected error %v", base, attr, err)
				}
				continue
			}
			if !errors.Is(err, ErrIncompatibleMode) {
				t.Fatalf("base %s attr %s: expected ErrIncompatibleMode, got %v", base, attr, err)
			}
		}
	}
}

func TestParseMode(t *testing.T) {
	cases := map[string]Mode{
		"":                     ModeInherit,
		"read_only":            ModeReadOnly,
		"Read-Write":           ModeReadWrite,
		"write once transient": ModeWriteOnceTransient,
		"strict_read_only":     ModeStrictReadOnly,
	}
	for input, want := range cases {
		got, err := ParseMode(input)
		if err != nil {
			t.Fatalf("ParseMode(%q) returned error: %v", input, err)
		}
		if got != want {
			t.Fatalf("ParseMode(%q) = %s, want %s", input, got, want)
		}
	}
	if _, err := ParseMode("sometimes"); err == nil {
		t.Fatalf("expected error for unknown mode")
	}
	for _, mode := range allModes {
		parsed, err := ParseMode(mode.String())
		if err != nil || parsed != mode {
			t.Fatalf("round trip of %s gave %s (%v)", mode, parsed, err)
		}
	}
}

func TestFlags(t *testing.T) {
	flags, err := ParseFlags("required", "Auto-Immutable", " volatile ")
	if err != nil {
		t.Fatalf("ParseFlags returned error: %v", err)
	}
	if !flags.Has(Required) || !flags.Has(AutoImmutable) || !flags.Has(Volatile) {
		t.Fatalf("expected parsed flags, got %s", flags)
	}
	if flags.Has(Lazy) || flags.Has(Required|Lazy) {
		t.Fatalf("unexpected flag in %s", flags)
	}
	if got := flags.String(); got != "required|auto_immutable|volatile" {
		t.Fatalf("unexpected flag string %q", got)
	}
	if got := Flag(0).String(); got != "none" {
		t.Fatalf("expected none, got %q", got)
	}
	if _, err := ParseFlags("sticky"); err == nil {
		t.Fatalf("expected error for unknown flag")
	}
}
