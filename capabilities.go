package pushz

import "strings"

// Capabilities is the set of behavioral guarantees a stream advertises.
type Capabilities uint8

const (
	// LateBinding means the stream may be bound to its peer after the
	// scheduling turn in which it was created.
	LateBinding Capabilities = 1 << iota

	// ImmediateSuspend means Resume(nil) takes effect before the call
	// returns: no item is pushed after it.
	ImmediateSuspend
)

// Has reports whether every capability in other is present in c.
func (c Capabilities) Has(other Capabilities) bool {
	return c&other == other
}

func (c Capabilities) String() string {
	if c == 0 {
		return "none"
	}
	var parts []string
	if c.Has(LateBinding) {
		parts = append(parts, "LATE_BINDING")
	}
	if c.Has(ImmediateSuspend) {
		parts = append(parts, "IMMEDIATE_SUSPEND")
	}
	return strings.Join(parts, "|")
}

// Capable is implemented by streams that advertise capabilities.
type Capable interface {
	Capabilities() Capabilities
}

// CapabilitiesOf returns the capabilities advertised by stream, or none when
// it does not implement Capable.
func CapabilitiesOf(stream any) Capabilities {
	if c, ok := stream.(Capable); ok {
		return c.Capabilities()
	}
	return 0
}
