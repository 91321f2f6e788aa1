package diag

import (
	"fmt"
)

type Code uint16

const (
	UnknownCode Code = 0

	// Registration (1000-1999): local-only checks during the declaration walk.
	RegInfo              Code = 1000
	RegDuplicateType     Code = 1001
	RegDuplicateFunction Code = 1002
	RegDuplicateGlobal   Code = 1003
	RegDuplicateProperty Code = 1004
	RegDuplicateEnumVal  Code = 1005
	RegBadEnumValue      Code = 1006

	// Completion (2000-2999): pending-reference resolution, inheritance,
	// dispatch table construction.
	ResInfo                   Code = 2000
	ResUnknownType            Code = 2001
	ResUnknownFunction        Code = 2002
	ResInvalidOperation       Code = 2003
	ResCircularInheritance    Code = 2004
	ResMissingInterfaceMethod Code = 2005
	ResAmbiguousName          Code = 2006

	// Call resolution (3000-3999): raised per call site during the later
	// compilation pass.
	CallInfo               Code = 3000
	CallUnknownFunction    Code = 3001
	CallNoMatchingOverload Code = 3002
	CallAmbiguousOverload  Code = 3003
	CallNoMatchingOperator Code = 3004
	CallConstViolation     Code = 3005

	// IO / project (4000-4999)
	IOInfo             Code = 4000
	IOFileNotFound     Code = 4001
	IOManifestInvalid  Code = 4002
	IOCacheUnreadable  Code = 4003
)

var codeDescription = map[Code]string{
	UnknownCode: "unknown error",

	RegInfo:              "registration info",
	RegDuplicateType:     "duplicate type declaration",
	RegDuplicateFunction: "duplicate function with identical signature",
	RegDuplicateGlobal:   "duplicate global variable",
	RegDuplicateProperty: "duplicate property declaration",
	RegDuplicateEnumVal:  "duplicate enum value name",
	RegBadEnumValue:      "enum value must be an integer constant",

	ResInfo:                   "completion info",
	ResUnknownType:            "unknown type",
	ResUnknownFunction:        "unknown function",
	ResInvalidOperation:       "invalid inheritance or mixin operation",
	ResCircularInheritance:    "circular inheritance",
	ResMissingInterfaceMethod: "missing interface method implementation",
	ResAmbiguousName:          "ambiguous name brought in by multiple using directives",

	CallInfo:               "call resolution info",
	CallUnknownFunction:    "unknown function at call site",
	CallNoMatchingOverload: "no matching overload",
	CallAmbiguousOverload:  "ambiguous overload",
	CallNoMatchingOperator: "no matching operator",
	CallConstViolation:     "non-const method called through const reference",

	IOInfo:            "io info",
	IOFileNotFound:    "file not found",
	IOManifestInvalid: "invalid project manifest",
	IOCacheUnreadable: "unreadable compile cache entry",
}

func (c Code) ID() string {
	switch ic := int(c); {
	case ic >= 1000 && ic < 2000:
		return fmt.Sprintf("REG%04d", ic)
	case ic >= 2000 && ic < 3000:
		return fmt.Sprintf("RES%04d", ic)
	case ic >= 3000 && ic < 4000:
		return fmt.Sprintf("CALL%04d", ic)
	case ic >= 4000 && ic < 5000:
		return fmt.Sprintf("IO%04d", ic)
	}
	return "E0000"
}

func (c Code) Title() string {
	desc, ok := codeDescription[c]
	if !ok {
		return codeDescription[Code(0)]
	}
	return desc
}

func (c Code) String() string {
	return fmt.Sprintf("[%s]: %s", c.ID(), c.Title())
}
