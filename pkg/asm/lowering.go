package asm

import (
	"fmt"
	"strconv"
	"strings"

	"its-hmny.dev/nand2tetris/pkg/hack"
)

// ----------------------------------------------------------------------------
// Asm Lowerer

// The Lowerer takes an 'asm.Program' (already macro-expanded by the Preprocessor, see
// preprocessor.go) and produces its 'hack.Program' counterpart.
//
// Lowering is a single linear pass, not a DFS: by the time a Program reaches here it's already
// flat (macro expansion is what could have introduced nested structure, and it runs first).
// For each instruction we produce its 'hack.Instruction' counterpart (A/C Instruction or Label),
// classifying A Instruction operands (Raw | BuiltIn | Label) and, under the Extended profile,
// inserting a nop around any C Instruction that both reads and writes M: the relay that backs M
// latches its input one cycle late, so a same-instruction read-modify-write of M needs a cycle of
// slack on either side (see pkg/hack.NewNop).
type Lowerer struct {
	program Program
	profile hack.Profile
}

// Initializes and returns to the caller a brand new 'Lowerer' struct.
// Requires the argument Program to be not nil nor empty.
func NewLowerer(p Program, profile hack.Profile) Lowerer {
	return Lowerer{program: p, profile: profile}
}

// Triggers the lowering process. It iterates instruction by instruction producing a flat
// 'hack.Program'; no symbol resolution happens here, that's 'hack.SymbolTable.Resolve's job
// once the whole pipeline hands this Program to 'hack.Assemble'.
func (l *Lowerer) Lower() (hack.Program, error) {
	if len(l.program) == 0 {
		return nil, fmt.Errorf("the given 'program' is empty")
	}

	converted := make(hack.Program, 0, len(l.program))

	for _, asmInst := range l.program {
		switch tAsmInst := asmInst.(type) {
		case AInstruction: // Converts 'asm.AInstruction' to 'hack.AInstruction'
			hackInst, err := l.HandleAInst(tAsmInst)
			if err != nil {
				return nil, err
			}
			converted = append(converted, hackInst)

		case CInstruction: // Converts 'asm.CInstruction' to 'hack.CInstruction' (+ nop padding)
			hackInst, err := l.HandleCInst(tAsmInst)
			if err != nil {
				return nil, err
			}
			if l.profile == hack.Extended && readsAndWritesM(tAsmInst) {
				converted = append(converted, hack.NewNop())
				converted = append(converted, hackInst)
				converted = append(converted, hack.NewNop())
				continue
			}
			converted = append(converted, hackInst)

		case LabelDecl: // Converts 'asm.LabelDecl' to 'hack.LabelInstr'
			converted = append(converted, hack.NewLabel(tAsmInst.Name))

		case MacroCall:
			return nil, fmt.Errorf("unexpanded macro '$%s' reached the lowerer, run Preprocess first", tAsmInst.Name)

		default: // Error case, unrecognized operation type
			return nil, fmt.Errorf("unrecognized instruction '%T'", asmInst)
		}
	}

	return converted, nil
}

func readsAndWritesM(inst CInstruction) bool {
	return strings.Contains(inst.Comp, "M") && strings.Contains(inst.Dest, "M")
}

// Specialized function to convert a 'asm.AInstruction' node to an 'hack.AInstruction'.
func (Lowerer) HandleAInst(inst AInstruction) (hack.Instruction, error) {
	// Based on one of the following cases below (the type of the symbol) we do different things:
	// 1) If it's present in the BuiltInTable we set the 'LocType' to 'BuiltIn' accordingly
	if _, found := hack.BuiltInTable[inst.Location]; found {
		return hack.NewAInstruction(hack.BuiltIn, inst.Location), nil
	}
	// 2) If it can be parsed as an int (any of the bases pkg/hack.ParseNumeric accepts) we set
	// the 'LocType' to 'Raw' accordingly
	if isNumericLiteral(inst.Location) {
		return hack.NewAInstruction(hack.Raw, inst.Location), nil
	}
	// 3) Else it's a user defined label and we set 'LocType' to 'Label' accordingly
	return hack.NewAInstruction(hack.Label, inst.Location), nil
}

func isNumericLiteral(token string) bool {
	cleaned := strings.ReplaceAll(token, "_", "")
	switch {
	case strings.HasPrefix(cleaned, "0x") || strings.HasPrefix(cleaned, "0X"):
		_, err := strconv.ParseInt(cleaned[2:], 16, 64)
		return err == nil
	case strings.HasPrefix(cleaned, "0b") || strings.HasPrefix(cleaned, "0B"):
		_, err := strconv.ParseInt(cleaned[2:], 2, 64)
		return err == nil
	default:
		_, err := strconv.ParseInt(cleaned, 10, 64)
		return err == nil
	}
}

// Specialized function to convert a 'asm.CInstruction' node to an 'hack.CInstruction'.
func (Lowerer) HandleCInst(inst CInstruction) (hack.Instruction, error) {
	if inst.Comp == "" { // Pre-check: CInstruction.Comp should always be provided
		return nil, fmt.Errorf("'Comp' sub-instruction should always be provided")
	}
	if err := validateDest(inst.Dest); err != nil {
		return nil, err
	}
	return hack.NewCInstruction(inst.Dest, inst.Comp, inst.Jump), nil
}

// validateDest rejects a repeated register in a multi-destination assignment (e.g. "AA"),
// which the parser's regex alphabet match alone can't catch.
func validateDest(dest string) error {
	seen := map[rune]bool{}
	for _, r := range dest {
		if seen[r] {
			return fmt.Errorf("destination %q repeats register %q", dest, string(r))
		}
		seen[r] = true
	}
	return nil
}
