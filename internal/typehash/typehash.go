// Package typehash derives deterministic 64-bit fingerprints for types,
// function overloads and vtable slot signatures.
//
// Hashes are computed from names and signatures rather than handed out
// sequentially, so a hash can be computed before its entry is registered.
// That is what makes forward references and registration-order independence
// possible: the same input always produces the same hash, and the registry
// addresses everything by hash after completion.
//
// Domain mixing constants keep the hash spaces of types, functions, slot
// signatures and module-local types apart even when names collide.
// Collisions between genuinely distinct inputs inside one domain are an
// accepted risk of the 64-bit space and are not detected.
package typehash

import (
	"encoding/binary"

	"github.com/cespare/xxhash/v2"
)

// Hash is a deterministic 64-bit fingerprint identifying a type, a function
// overload, or a vtable slot signature shape.
type Hash uint64

// Empty is the zero hash, used as "no type" sentinel.
const Empty Hash = 0

// Domain mixing constants. Each entity domain gets its own marker so a type
// named "foo" and a function named "foo" never share a hash.
const (
	sepConst       uint64 = 0x4bc94d6bd06053ad
	typeConst      uint64 = 0x2fac10b63a6cc57c
	functionConst  uint64 = 0x5ea77ffbcdf5f302
	signatureConst uint64 = 0x7d3c8b4a92e15f6d
	moduleConst    uint64 = 0x9a7f3d5e2b8c4601
)

// paramMarkers gives each parameter position a distinct mixing constant so
// parameter order matters: (int, float) hashes differently from (float, int).
var paramMarkers = [32]uint64{
	0x9e3779b97f4a7c15,
	0xbf58476d1ce4e5b9,
	0x94d049bb133111eb,
	0xd6e8feb86659fd93,
	0xe7037ed1a0b428db,
	0xc6a4a7935bd1e995,
	0x8648dbbc94d49b8d,
	0xa2b48b2c69e0d657,
	0x7c3e9f2a5b8d1403,
	0x5d8c7b4a3e9f2106,
	0x3f1e9d8c7b5a4203,
	0x1a2b3c4d5e6f7089,
	0x9f8e7d6c5b4a3210,
	0x2468ace013579bdf,
	0xfdb97531eca86420,
	0x123456789abcdef0,
	0xfedcba9876543210,
	0x0f1e2d3c4b5a6978,
	0x89abcdef01234567,
	0x76543210fedcba98,
	0xabcdef0123456789,
	0x3210fedcba987654,
	0xcdef0123456789ab,
	0x6789abcdef012345,
	0x456789abcdef0123,
	0xef0123456789abcd,
	0x23456789abcdef01,
	0xba9876543210fedc,
	0xdcba9876543210fe,
	0x10fedcba98765432,
	0x5432dcba98761fed,
	0x98761fedcba54320,
}

func marker(i int) uint64 {
	if i < len(paramMarkers) {
		return paramMarkers[i]
	}
	return paramMarkers[0] + uint64(i) //nolint:gosec // wraparound is fine, this only needs to differ per position
}

// FromName hashes a qualified type or global name, e.g. "Game::Player".
// A degenerate empty name still hashes deterministically.
func FromName(name string) Hash {
	return Hash(typeConst ^ xxhash.Sum64String(name))
}

// FromFunction hashes a function overload: qualified name plus ordered
// parameter type hashes. The return type is deliberately excluded so that
// overload sets are keyed by parameters alone.
func FromFunction(name string, params []Hash) Hash {
	h := functionConst ^ xxhash.Sum64String(name)
	for i, p := range params {
		// Multiply-mix keeps the fold non-commutative: parameter order matters.
		h = h*sepConst + (marker(i) ^ uint64(p))
	}
	return Hash(h)
}

// ParamSig folds a parameter's type hash with its in/out/inout and const
// modifiers, for use with FromSignature. `foo(int)` and `foo(int &out)` must
// land in different vtable slots.
func ParamSig(t Hash, ref RefMod, isConst bool) uint64 {
	sig := uint64(t) ^ (uint64(ref) << 1)
	if isConst {
		sig ^= 0x1
	}
	return sig
}

// RefMod is a parameter passing mode for signature hashing.
type RefMod uint8

const (
	RefValue RefMod = iota
	RefIn
	RefOut
	RefInOut
)

// FromSignature hashes a method's override shape: simple name plus ordered
// parameter signatures plus method constness. Owner type and return type are
// excluded on purpose — a base method and its override on a derived class
// must hash identically so vtable construction can match them to one slot.
func FromSignature(name string, paramSigs []uint64, isConst bool) Hash {
	constBit := uint64(0)
	if isConst {
		constBit = 1
	}
	h := signatureConst ^ xxhash.Sum64String(name) ^ constBit
	for i, p := range paramSigs {
		h = h*sepConst + (marker(i) ^ p)
	}
	return Hash(h)
}

// FromModuleType salts a type name with a per-unit id so that non-shared
// script types declared in different modules never collide.
func FromModuleType(name string, unit uint32) Hash {
	var salt [4]byte
	binary.LittleEndian.PutUint32(salt[:], unit)
	d := xxhash.New()
	_, _ = d.WriteString(name)
	_, _ = d.Write(salt[:])
	return Hash(moduleConst ^ d.Sum64())
}

// IsEmpty reports whether the hash is the zero sentinel.
func (h Hash) IsEmpty() bool { return h == Empty }

func (h Hash) String() string {
	const hexdigits = "0123456789abcdef"
	buf := make([]byte, 18)
	buf[0], buf[1] = '0', 'x'
	for i := 0; i < 16; i++ {
		buf[17-i] = hexdigits[(uint64(h)>>(4*i))&0xf]
	}
	return string(buf)
}
