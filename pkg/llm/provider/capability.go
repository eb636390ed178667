package provider

// Capability probes platform features the router depends on. Implemented
// differently per target platform; the router only sees the interface.
type Capability interface {
	// OnDeviceAvailable reports whether local generation can serve a
	// request right now. Must be synchronous and cheap.
	OnDeviceAvailable() bool
}

// FixedCapability is a Capability with a constant answer.
type FixedCapability bool

// OnDeviceAvailable implements Capability.
func (f FixedCapability) OnDeviceAvailable() bool { return bool(f) }

// CapabilityFunc adapts a function to the Capability interface.
type CapabilityFunc func() bool

// OnDeviceAvailable implements Capability.
func (f CapabilityFunc) OnDeviceAvailable() bool { return f() }
