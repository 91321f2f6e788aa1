package registry

// NodeID identifies a namespace node in the tree arena.
type NodeID uint32

const (
	// NoNodeID marks the absence of a namespace reference.
	NoNodeID NodeID = 0
	// RootID is the global namespace, always present.
	RootID NodeID = 1
)

// IsValid reports whether the node ID refers to an allocated namespace.
func (id NodeID) IsValid() bool { return id != NoNodeID }
