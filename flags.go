package attrs

import (
	"fmt"
	"strings"
)

// Flag qualifies an attribute beyond its mode. Flags combine with bitwise or.
type Flag uint8

const (
	// Required attributes must be provided at initialization.
	Required Flag = 1 << iota
	// Automatic attributes are assigned by the backing store on insert.
	Automatic
	// Immutable attributes cannot change once persisted.
	Immutable
	// AutoImmutable attributes cannot be written once constructed.
	AutoImmutable
	// Volatile attributes are never snapshotted, tracked or stored.
	Volatile
	// Lazy attributes defer validation until first read.
	Lazy
)

var flagNames = []struct {
	flag Flag
	name string
}{
	{Required, "required"},
	{Automatic, "automatic"},
	{Immutable, "immutable"},
	{AutoImmutable, "auto_immutable"},
	{Volatile, "volatile"},
	{Lazy, "lazy"},
}

// Has reports whether every bit of flag is set.
func (f Flag) Has(flag Flag) bool {
	return flag != 0 && f&flag == flag
}

func (f Flag) String() string {
	if f == 0 {
		return "none"
	}
	var parts []string
	for _, entry := range flagNames {
		if f.Has(entry.flag) {
			parts = append(parts, entry.name)
		}
	}
	return strings.Join(parts, "|")
}

// ParseFlags combines the named flags into a single Flag value.
func ParseFlags(names ...string) (Flag, error) {
	var out Flag
	for _, name := range names {
		normalized := strings.ToLower(strings.TrimSpace(name))
		normalized = strings.ReplaceAll(normalized, "-", "_")
		found := false
		for _, entry := range flagNames {
			if entry.name == normalized {
				out |= entry.flag
				found = true
				break
			}
		}
		if !found {
			return 0, fmt.Errorf("attrs: unknown flag %q", name)
		}
	}
	return out, nil
}
