package registry

import (
	"maps"
	"slices"

	"ember/internal/typehash"
)

// VTable is a class's polymorphic dispatch table. A virtual call compiles
// to a slot index; runtime dispatch reads whatever implementation currently
// occupies that slot on the receiver's concrete class, so overrides reuse
// the base slot and existing call sites keep working.
type VTable struct {
	// Slots: slot index -> current implementation function hash.
	Slots []typehash.Hash
	// SlotsByName: simple method name -> slot indexes (own + inherited +
	// mixed-in). This is the candidate source for overload resolution.
	SlotsByName map[string][]int
	// SignatureIndex: owner-free signature hash -> slot. Internal, used
	// only to detect base/derived overrides during construction.
	SignatureIndex map[typehash.Hash]int
}

// NewVTable allocates an empty vtable.
func NewVTable() VTable {
	return VTable{
		SlotsByName:    make(map[string][]int),
		SignatureIndex: make(map[typehash.Hash]int),
	}
}

// Clone deep-copies the vtable; the derived class starts from a copy of the
// base class's table.
func (v VTable) Clone() VTable {
	out := VTable{
		Slots:          slices.Clone(v.Slots),
		SlotsByName:    make(map[string][]int, len(v.SlotsByName)),
		SignatureIndex: maps.Clone(v.SignatureIndex),
	}
	if out.SignatureIndex == nil {
		out.SignatureIndex = make(map[typehash.Hash]int)
	}
	for name, slots := range v.SlotsByName {
		out.SlotsByName[name] = slices.Clone(slots)
	}
	return out
}

// Install places a method into the table. If the signature already has a
// slot the implementation is overwritten in place (override); otherwise a
// new slot is appended and registered under the simple name. Returns the
// slot index and whether this was an override.
func (v *VTable) Install(name string, sig, impl typehash.Hash) (int, bool) {
	if slot, ok := v.SignatureIndex[sig]; ok {
		v.Slots[slot] = impl
		return slot, true
	}
	slot := len(v.Slots)
	v.Slots = append(v.Slots, impl)
	v.SlotsByName[name] = append(v.SlotsByName[name], slot)
	v.SignatureIndex[sig] = slot
	return slot, false
}

// SlotOf returns the slot currently holding the implementation hash.
func (v *VTable) SlotOf(impl typehash.Hash) (int, bool) {
	for i, h := range v.Slots {
		if h == impl {
			return i, true
		}
	}
	return 0, false
}

// ITable is the dispatch table for one implemented interface: one slot per
// interface method, laid out in the interface's declaration order.
type ITable struct {
	Interface typehash.Hash
	// Slots: interface method index -> implementing function hash.
	Slots []typehash.Hash
}

// NewITable allocates a table with every slot unfilled.
func NewITable(iface typehash.Hash, methodCount int) *ITable {
	return &ITable{
		Interface: iface,
		Slots:     make([]typehash.Hash, methodCount),
	}
}

// Complete reports whether every slot holds an implementation.
func (t *ITable) Complete() bool {
	for _, s := range t.Slots {
		if s.IsEmpty() {
			return false
		}
	}
	return true
}
