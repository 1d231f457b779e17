package asm

// ----------------------------------------------------------------------------
// General information

// This section contains some general information about the Asm language.
//
// We declare a shared 'Instruction' interface for both A and C instructions as well as defining
// custom labels for specific code section (allowing arbitrary jumps) at runtime during code execution.
// This in turns enables iterations and conditionals both here and at the upper levels (VM, Compiler).
//
// The extended profile allows 'W' (the register macro.go uses to cache the stack pointer, see
// pkg/hack) in both 'Comp' and 'Dest',
// and 'Dest' to hold more than one register at once (e.g. "AD=D+1"); both are plain strings here,
// membership-tested rather than enumerated, the same design pkg/hack's codegen uses.

// Just used to put together label declaration, A inst and C inst in the same datatype.
type Instruction interface{}

// Program is the ordered sequence parsed straight out of the source text, source order preserved.
type Program []Instruction

// ----------------------------------------------------------------------------
// Label Declarations

// In memory representation of a label declaration statement for the Assembler language.
//
// There's not much here to be honest, we just keep track of the user defined name to resolve
// future references to the same label (e.g. when referencing a label in an A Instruction).
// During the lowering phase this becomes a 'hack.LabelInstr', left for 'hack.SymbolTable.Resolve'
// to bind to a program counter.
type LabelDecl struct {
	Name string // The symbol/ident chosen by the user for the label
}

// ----------------------------------------------------------------------------
// A Instructions

// In memory representation of an A Instruction for the Assembler language.
//
// The A instruction has only one functionality in the Hack computer, it instructs
// the CPU to load a specific memory address/location from the computer memory (this
// includes both the RAM and the memory mapped I/O). The location can be referenced
// either by an alias (labels) or by specifying the raw location.
// During the lowering phase each label will be assigned its type (Raw | BuiltIn | Label).
type AInstruction struct {
	Location string // A generic "payload" (the label/builtin/raw symbol)
}

// ----------------------------------------------------------------------------
// C Instructions

// In memory representation of an C Instruction for the Assembler language.
//
// The C instruction handles the computation side of the Hack computer, it instructs
// the CPU on what operation to execute and which register to use, also it allows to
// specify jump conditions to change the execution flow at runtime.
//
// 'Dest' may hold any combination of "ADMW" (e.g. "AMD"), matched by membership rather
// than a fixed enumeration once it reaches pkg/hack; the parser only guarantees it is
// built from that alphabet (see pDest in parsing.go), and the Lowerer rejects repeats.
type CInstruction struct {
	Comp string // The 'computation' expression, defines the calculation that the CPU should perform
	Dest string // The 'destination' registers, defines if/where the result should be saved
	Jump string // The 'jump' directive, defines on what premise the jump to another instruction should occur
}

// ----------------------------------------------------------------------------
// Macro invocations

// In memory representation of a '$name arg1 arg2 ...' macro invocation.
//
// A macro line never reaches 'hack.Program' as-is: the Preprocessor (preprocessor.go) walks
// a freshly parsed Program and replaces every MacroCall with the concrete A/C Instructions and
// LabelDecls it expands to before the Lowerer ever sees it.
type MacroCall struct {
	Name string   // The macro identifier, without the leading '$' (e.g. "call", "copy_mm")
	Args []string // Whitespace separated arguments, exactly as they appeared on the line
}
