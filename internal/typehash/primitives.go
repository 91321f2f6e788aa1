package typehash

// Well-known hashes for primitive types, computed once at startup.
var (
	Void   = FromName("void")
	Bool   = FromName("bool")
	Int8   = FromName("int8")
	Int16  = FromName("int16")
	Int32  = FromName("int")
	Int64  = FromName("int64")
	Uint8  = FromName("uint8")
	Uint16 = FromName("uint16")
	Uint32 = FromName("uint")
	Uint64 = FromName("uint64")
	Float  = FromName("float")
	Double = FromName("double")

	// Null is the type of the null literal; it converts to any handle.
	Null = FromName("<null>")
)

// Variable is the `?` parameter type: it accepts any argument.
// A sentinel rather than a computed hash.
const Variable Hash = 0x3f3f3f3f3f3f3f3f

// IsPrimitiveNumeric reports whether the hash names a primitive numeric
// type (bool included, since it participates in promotion ranking).
func IsPrimitiveNumeric(h Hash) bool {
	switch h {
	case Bool, Int8, Int16, Int32, Int64, Uint8, Uint16, Uint32, Uint64, Float, Double:
		return true
	}
	return false
}
