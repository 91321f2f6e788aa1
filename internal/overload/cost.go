// Package overload implements function overload resolution and operator
// resolution against a completed registry. Both consume VTable candidate
// sets and the conversion-cost ladder below; neither ever walks an
// inheritance chain at call time.
package overload

import (
	"ember/internal/registry"
	"ember/internal/typehash"
)

// Conversion cost ladder. Lower is better; exact matches always beat any
// conversion, and a candidate whose argument has no entry on the ladder is
// eliminated outright.
const (
	CostExact          = 0
	CostConst          = 1
	CostEnumToInt      = 2
	CostIntToEnum      = 3
	CostWidening       = 4
	CostNarrowing      = 5
	CostSignedUnsigned = 6
	CostUnsignedSigned = 7
	CostIntToFloat     = 8
	CostFloatToInt     = 9
	CostRefCast        = 10
	CostVarArg         = 13
	// CostVariable is the `?` parameter: it accepts anything, so it ranks
	// below every real conversion and only wins when nothing else matches.
	CostVariable = 13
)

// numInfo places a primitive numeric type on the promotion ladder.
// Unsigned outranks signed at equal width, so promotion across signedness
// is always well defined.
type numInfo struct {
	rank     int
	unsigned bool
	float    bool
}

func numericInfo(h typehash.Hash) (numInfo, bool) {
	switch h {
	case typehash.Bool:
		return numInfo{rank: 0}, true
	case typehash.Int8:
		return numInfo{rank: 1}, true
	case typehash.Uint8:
		return numInfo{rank: 2, unsigned: true}, true
	case typehash.Int16:
		return numInfo{rank: 3}, true
	case typehash.Uint16:
		return numInfo{rank: 4, unsigned: true}, true
	case typehash.Int32:
		return numInfo{rank: 5}, true
	case typehash.Uint32:
		return numInfo{rank: 6, unsigned: true}, true
	case typehash.Int64:
		return numInfo{rank: 7}, true
	case typehash.Uint64:
		return numInfo{rank: 8, unsigned: true}, true
	case typehash.Float:
		return numInfo{rank: 9, float: true}, true
	case typehash.Double:
		return numInfo{rank: 10, float: true}, true
	}
	return numInfo{}, false
}

// Promote returns the common type two primitive numeric operands promote
// to: the one with the higher ladder rank.
func Promote(a, b typehash.Hash) (typehash.Hash, bool) {
	ia, ok := numericInfo(a)
	if !ok {
		return typehash.Empty, false
	}
	ib, ok := numericInfo(b)
	if !ok {
		return typehash.Empty, false
	}
	if ia.rank >= ib.rank {
		return a, true
	}
	return b, true
}

// ConversionCost rates converting an argument into a parameter. The second
// return is false when no implicit conversion exists, which eliminates the
// candidate.
func ConversionCost(reg *registry.Registry, arg, param registry.DataType) (int, bool) {
	if param.Type == typehash.Variable {
		return CostVariable, true
	}

	if arg.Type == param.Type && arg.IsHandle == param.IsHandle {
		if arg.IsConst == param.IsConst {
			return CostExact, true
		}
		if param.IsConst {
			// Adding const is always allowed.
			return CostConst, true
		}
		if arg.IsHandle {
			// A const handle never converts to a mutable one.
			return 0, false
		}
		// Value copy sheds const.
		return CostConst, true
	}

	// The null literal converts to any handle.
	if arg.Type == typehash.Null && param.IsHandle {
		return CostConst, true
	}

	if c, ok := numericCost(arg.Type, param.Type); ok {
		return c, true
	}
	if c, ok := enumCost(reg, arg.Type, param.Type); ok {
		return c, true
	}
	if arg.IsHandle && param.IsHandle && constCompatible(arg, param) {
		if reg.IsDerivedFrom(arg.Type, param.Type) || reg.Implements(arg.Type, param.Type) {
			return CostRefCast, true
		}
	}
	return 0, false
}

func constCompatible(arg, param registry.DataType) bool {
	// Stripping const through a handle conversion is not allowed.
	return !arg.IsConst || param.IsConst
}

func numericCost(arg, param typehash.Hash) (int, bool) {
	ia, ok := numericInfo(arg)
	if !ok {
		return 0, false
	}
	ip, ok := numericInfo(param)
	if !ok {
		return 0, false
	}
	switch {
	case ia.float && !ip.float:
		return CostFloatToInt, true
	case !ia.float && ip.float:
		return CostIntToFloat, true
	case ia.unsigned && !ip.unsigned:
		return CostUnsignedSigned, true
	case !ia.unsigned && ip.unsigned:
		return CostSignedUnsigned, true
	case ia.rank < ip.rank:
		return CostWidening, true
	default:
		return CostNarrowing, true
	}
}

func enumCost(reg *registry.Registry, arg, param typehash.Hash) (int, bool) {
	if isEnum(reg, arg) {
		if _, numeric := numericInfo(param); numeric {
			return CostEnumToInt, true
		}
		return 0, false
	}
	if isEnum(reg, param) {
		if _, numeric := numericInfo(arg); numeric {
			return CostIntToEnum, true
		}
	}
	return 0, false
}

func isEnum(reg *registry.Registry, h typehash.Hash) bool {
	e, ok := reg.TypeByHash(h)
	return ok && e.Kind == registry.KindEnum
}
