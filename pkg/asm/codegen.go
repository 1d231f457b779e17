package asm

import (
	"errors"
	"fmt"

	"its-hmny.dev/nand2tetris/pkg/hack"
)

// ----------------------------------------------------------------------------
// Code Generator

// Takes a set of 'asm.Instruction' (typically already macro-expanded, see preprocessor.go)
// and spits out their textual Asm counterparts, one line per instruction.
//
// This is not part of the main assembly pipeline (that path goes straight from 'asm.Program'
// to 'hack.Program' via the Lowerer, see lowering.go, since the binary encoder only needs the
// AST). It backs the assembler CLI's '-E' debug option instead: dumping the
// macro-expanded source lets a user see exactly what a '$call'/'$copy_mm'/... line turned into
// without reading machine code.
type CodeGenerator struct {
	program Program // The set of instructions to convert to their textual Asm form
}

// Initializes and returns to the caller a brand new 'CodeGenerator' struct.
// Requires that argument Program 'p' (what we want to translate) is non-nil.
func NewCodeGenerator(p Program) CodeGenerator {
	return CodeGenerator{program: p}
}

// Translate each instruction in the 'program' field to the Asm textual format.
//
// Each instruction will pass through the following step: evaluation, validation and
// then conversion to its textual representation (a string) so that it can be further
// elaborated by the caller (e.g. dumping to a file, runtime interpretation, ...).
func (cg *CodeGenerator) Generate() ([]string, error) {
	lines := make([]string, 0, len(cg.program))

	for _, instruction := range cg.program {
		var generated string
		var err error

		switch tInstruction := instruction.(type) {
		case AInstruction:
			generated, err = cg.GenerateAInst(tInstruction)
		case CInstruction:
			generated, err = cg.GenerateCInst(tInstruction)
		case LabelDecl:
			generated, err = cg.GenerateLabelDecl(tInstruction)
		case MacroCall:
			err = fmt.Errorf("unexpanded macro '$%s' reached the code generator, run Preprocess first", tInstruction.Name)
		default:
			err = fmt.Errorf("unrecognized instruction '%T'", instruction)
		}

		if err != nil {
			return nil, err
		}
		lines = append(lines, generated)
	}

	return lines, nil
}

// Specialized function to convert an A Instruction to the Asm format.
func (CodeGenerator) GenerateAInst(stmt AInstruction) (string, error) {
	if stmt.Location == "" {
		return "", errors.New("unable to produce an A Instruction with an empty location")
	}

	return fmt.Sprintf("@%s", stmt.Location), nil
}

// Specialized function to convert a C Instruction to the Asm format.
//
// A C Instruction needs at least one of 'Dest'/'Jump' to have any observable effect; both may be
// present together ("MD=D+1;JGT"), in which case the textual form is "dest=comp;jump".
func (cg *CodeGenerator) GenerateCInst(stmt CInstruction) (string, error) {
	if stmt.Comp == "" {
		return "", errors.New("expected 'comp' directive in C Instruction")
	}
	if stmt.Dest == "" && stmt.Jump == "" {
		return "", errors.New("expected at least one of 'dest' or 'jump' directive in C Instruction")
	}

	generated := stmt.Comp
	if stmt.Dest != "" {
		generated = stmt.Dest + "=" + generated
	}
	if stmt.Jump != "" {
		generated = generated + ";" + stmt.Jump
	}

	return generated, nil
}

// Specialized function to convert an Label Declaration to the Asm format.
func (cg *CodeGenerator) GenerateLabelDecl(stmt LabelDecl) (string, error) {
	if stmt.Name == "" {
		return "", errors.New("unable to produce an empty label declaration")
	}
	if _, found := hack.BuiltInTable[stmt.Name]; found {
		return "", fmt.Errorf("unable to override built-in label '%s'", stmt.Name)
	}

	return fmt.Sprintf("(%s)", stmt.Name), nil
}
