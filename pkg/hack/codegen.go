package hack

import (
	"fmt"
	"strings"
)

// ----------------------------------------------------------------------------
// Translation tables

// This section contains the translation tables cornerstone of the codegen phase.
//
// 'compTable' maps every 'comp' expression to its 6 bit c1..c6 code. The 'a'
// (M vs A) and 'w' (W vs A) selector bits are computed separately from comp's
// text rather than folded into the table, since the same 6 bit code applies
// regardless of which register comp actually reads/writes (the reference
// implementation's commutative-retry trick, see EncodeC below, relies on this
// split). 'dest' and 'jump' bits are likewise computed by membership test,
// not table lookup, so that any subset of "ADMW"/any jump name is representable
// without enumerating every combination up front.

var compTable = map[string]uint16{
	// Constants and identities
	"0": 0b101010, "1": 0b111111, "-1": 0b111010,
	"D": 0b001100, "A": 0b110000,
	// Binary and numerical negations
	"!D": 0b001101, "!A": 0b110001,
	"-D": 0b001111, "-A": 0b110011,
	// Increment and decrement operations
	"D+1": 0b011111, "A+1": 0b110111,
	"D-1": 0b001110, "A-1": 0b110010,
	// Register with register operations
	"D+A": 0b000010, "D-A": 0b010011, "A-D": 0b000111,
	// Bitwise register with register operations
	"D&A": 0b000000, "D|A": 0b010101,
}

// PredefinedSymbols returns the Hack spec's built-in symbol -> address map.
// 'Extended' adds the T0-T2 scratch aliases (same cells as R13-R15) on top of
// the compatibility floor's SP/LCL/ARG/THIS/THAT, R0-R15, SCREEN and KBD.
func PredefinedSymbols(profile Profile) map[string]uint16 {
	table := map[string]uint16{
		// Virtual Machine specific aliases (see project 7)
		"SP": 0, "LCL": 1, "ARG": 2, "THIS": 3, "THAT": 4,
		// Named general purpose registers
		"R0": 0, "R1": 1, "R2": 2, "R3": 3, "R4": 4, "R5": 5,
		"R6": 6, "R7": 7, "R8": 8, "R9": 9, "R10": 10, "R11": 11,
		"R12": 12, "R13": 13, "R14": 14, "R15": 15,
		// Memory mapped I/O locations
		"SCREEN": 16384, "KBD": 24576,
	}
	if profile == Extended {
		table["T0"], table["T1"], table["T2"] = 13, 14, 15
	}
	return table
}

// BuiltInTable is the compat-profile predefined symbol set, kept at package
// scope (rather than only reachable through PredefinedSymbols) since the
// ASM-level lowering step (pkg/asm) needs it to classify an A Instruction
// operand as BuiltIn vs Label before a Profile is even known.
var BuiltInTable = PredefinedSymbols(Compat)

func isOneOf(s string, options ...string) bool {
	for _, opt := range options {
		if s == opt {
			return true
		}
	}
	return false
}

func boolBit(b bool) int {
	if b {
		return 1
	}
	return 0
}

// ----------------------------------------------------------------------------
// A Instruction encoding

// EncodeA converts inst to its 16 bit Hack machine word. Labels and variables
// are resolved through table; Raw operands go through ParseNumeric (C3),
// surfacing a truncation warning rather than failing outright, per §7.
func EncodeA(inst AInstruction, table *SymbolTable) (bits string, warnings []string, err error) {
	var address uint16

	switch inst.LocType {
	case Raw:
		addr, truncated, perr := ParseNumeric(inst.LocName)
		if perr != nil {
			return "", nil, perr
		}
		address = addr
		if truncated {
			warnings = append(warnings, fmt.Sprintf("literal %q truncated to 15 bits (%d)", inst.LocName, addr))
		}
	case BuiltIn:
		addr, found := table.Get(inst.LocName)
		if !found {
			return "", nil, fmt.Errorf("unresolved built-in symbol %q", inst.LocName)
		}
		address = addr
	case Label:
		addr, found := table.Get(inst.LocName)
		if !found {
			return "", nil, fmt.Errorf("unresolved symbol %q", inst.LocName)
		}
		address = addr
	default:
		return "", nil, fmt.Errorf("unrecognized location type for %q", inst.LocName)
	}

	if address >= MaxAddressableMemory {
		return "", nil, fmt.Errorf("location %q resolved to an out-of-bound address %d", inst.LocName, address)
	}

	return fmt.Sprintf("0%015b", address), warnings, nil
}

// ----------------------------------------------------------------------------
// C Instruction encoding

// EncodeC converts inst to its 16 bit Hack machine word, implementing the
// exact bit layout:
//
//	1 | ~w | ~d4 | a | c1 c2 c3 c4 c5 c6 | d1 d2 d3 | j1 j2 j3
//
// 'a' selects A vs M in comp, 'w' selects A vs W; both can't be set at once
// (a computation can't read both M and W). Dest bits d1..d4 correspond to
// A/D/M/W membership in inst.Dest; jump bits are computed the same way the
// reference implementation does it, by checking jump membership in the three
// overlapping direction sets rather than a lookup table. When comp isn't
// found verbatim, and it's a two-operand expression whose operator is
// commutative (+, &, |), the operands are swapped and the lookup retried —
// this is how "A+D" resolves to the same code as "D+A" without doubling the
// table.
func EncodeC(inst CInstruction, profile Profile) (string, error) {
	if inst.Comp == "" {
		return "", fmt.Errorf("C instruction is missing a 'comp' expression")
	}

	comp := strings.ReplaceAll(inst.Comp, " ", "")
	dest := inst.Dest
	jump := inst.Jump
	if jump == "" {
		jump = NoJump
	}

	a := boolBit(strings.Contains(comp, "M"))
	w := boolBit(strings.Contains(comp, "W"))
	if a == 1 && w == 1 {
		return "", fmt.Errorf("computation %q cannot reference both M and W", inst.Comp)
	}
	if profile == Compat && (w == 1 || strings.Contains(dest, "W")) {
		return "", fmt.Errorf("W register is not available in the compatibility profile")
	}

	d1 := boolBit(strings.Contains(dest, "A"))
	d2 := boolBit(strings.Contains(dest, "D"))
	d3 := boolBit(strings.Contains(dest, "M"))
	d4 := boolBit(strings.Contains(dest, "W"))

	j1 := boolBit(isOneOf(jump, "JLT", "JLE", "JNE", "JMP"))
	j2 := boolBit(isOneOf(jump, "JLE", "JGE", "JEQ", "JMP"))
	j3 := boolBit(isOneOf(jump, "JGT", "JGE", "JNE", "JMP"))
	if jump != NoJump && j1 == 0 && j2 == 0 && j3 == 0 {
		return "", fmt.Errorf("unknown jump directive %q", inst.Jump)
	}

	normalized := comp
	if a == 1 {
		normalized = strings.ReplaceAll(normalized, "M", "A")
	}
	if w == 1 {
		normalized = strings.ReplaceAll(normalized, "W", "A")
	}

	code, found := compTable[normalized]
	if !found && len(normalized) == 3 && isOneOf(string(normalized[1]), "+", "&", "|") {
		reversed := string(normalized[2]) + string(normalized[1]) + string(normalized[0])
		code, found = compTable[reversed]
	}
	if !found {
		return "", fmt.Errorf("unsupported computation %q", inst.Comp)
	}

	notW, notD4 := 1-w, 1-d4
	bits := fmt.Sprintf("1%d%d%d%06b%d%d%d%d%d%d", notW, notD4, a, code, d1, d2, d3, j1, j2, j3)
	return bits, nil
}
