package attrs

import (
	"fmt"
	"strings"
)

// Mode is the read/write capability class of an attribute, or the default
// class of a registry when used as its base mode.
type Mode uint8

const (
	// ModeInherit marks a field that takes the schema base mode.
	ModeInherit Mode = iota
	// ModeStrictReadOnly attributes can never be written, not even during initialization.
	ModeStrictReadOnly
	// ModeReadOnly attributes can only be written during initialization.
	ModeReadOnly
	// ModeReadWrite attributes can be read and written at any time.
	ModeReadWrite
	// ModeWriteOnly attributes can be written but never read back.
	ModeWriteOnly
	// ModeWriteOnce attributes accept a single write during initialization.
	ModeWriteOnce
	// ModeWriteOnceTransient attributes accept a single write during
	// initialization and are discarded once it completes.
	ModeWriteOnceTransient
)

var modeNames = map[Mode]string{
	ModeInherit:            "inherit",
	ModeStrictReadOnly:     "strict_read_only",
	ModeReadOnly:           "read_only",
	ModeReadWrite:          "read_write",
	ModeWriteOnly:          "write_only",
	ModeWriteOnce:          "write_once",
	ModeWriteOnceTransient: "write_once_transient",
}

func (m Mode) String() string {
	if name, ok := modeNames[m]; ok {
		return name
	}
	return fmt.Sprintf("mode(%d)", uint8(m))
}

// ParseMode converts the string form of a mode back into a Mode. An empty
// string maps to ModeInherit.
func ParseMode(value string) (Mode, error) {
	normalized := strings.ToLower(strings.TrimSpace(value))
	normalized = strings.NewReplacer("-", "_", " ", "_").Replace(normalized)
	if normalized == "" {
		return ModeInherit, nil
	}
	for mode, name := range modeNames {
		if name == normalized {
			return mode, nil
		}
	}
	return ModeInherit, fmt.Errorf("attrs: unknown mode %q", value)
}

// Readable reports whether values of an attribute in this mode can be read.
// WriteOnce restricts writes only.
func (m Mode) Readable() bool {
	return m.readOriented() || m == ModeWriteOnce
}

func (m Mode) readOriented() bool {
	switch m {
	case ModeStrictReadOnly, ModeReadOnly, ModeReadWrite:
		return true
	default:
		return false
	}
}

// writableAfterInit reports whether the mode allows writes once the registry
// is initialized.
func (m Mode) writableAfterInit() bool {
	switch m {
	case ModeReadWrite, ModeWriteOnly:
		return true
	default:
		return false
	}
}

func (m Mode) valid() bool {
	return m >= ModeStrictReadOnly && m <= ModeWriteOnceTransient
}

// Permits reports whether an attribute mode is legal under the receiver used
// as a base mode.
func (m Mode) Permits(attr Mode) bool {
	if !m.valid() || !attr.valid() {
		return false
	}
	switch m {
	case ModeReadWrite:
		return true
	case ModeStrictReadOnly, ModeReadOnly:
		return attr.readOriented()
	default:
		return attr != ModeStrictReadOnly && attr != ModeReadOnly
	}
}
