package hack

// ----------------------------------------------------------------------------
// General information

// This section contains some general information about the Hack instruction set.
//
// We declare a shared 'Instruction' interface for A, C and Label statements as well
// as defining some useful constants for runtime assertions during the codegen phase
// such as the 'MaxAddressableMemory' that defines the upper limit to Memory capacity.
//
// The extended profile adds a fourth destination register (W, which the ASM macros use
// to cache the stack pointer) on top of the compatibility floor's A/D/M; see
// 'Profile' below and the 'w'/'d4' bits in codegen.go.

// Just used to put together A, C and Label instructions, use type switch to disambiguate.
type Instruction interface{}

const MaxAddressableMemory uint16 = (1 << 15) // Max memory address indexable for an A Instruction.

// NoJump is the sentinel value for "never jump", kept distinct from the empty
// string so that a C Instruction with no jump directive is still explicit about it.
const NoJump = "NOJUMP"

// Profile selects the instruction subset a Program must stay within.
//
// 'Compat' is the strict compatibility floor: bit-exact with the reference
// assembler, no W register, no nop insertion. 'Extended' unlocks the W
// register, multi-destination assignments and the extra predefined symbols
// (T0-T2), at the cost of inserting a nop before/after any C Instruction that
// both reads and writes M (the relay latches one memory cycle).
type Profile uint8

const (
	Compat   Profile = iota // Bit-exact w/ the reference implementation, no W register.
	Extended                // W register, multi-dest, nop insertion, extra predefined symbols.
)

// Program is the ordered sequence of instructions the assembler walks. The optimiser
// never splices the slice: it flips 'Emit' to false on the instructions it wants
// skipped, so program counter bookkeeping never has to account for shifting indices.
type Program []Instruction

// ----------------------------------------------------------------------------
// A Instructions

// In memory representation of an A Instruction for the Hack architecture spec.
//
// The A instruction has only one functionality in the Hack computer, it instructs
// the CPU to load a specific memory address from the computer memory (this includes
// both the RAM as well as the memory mapped I/O such as Keyboard and Screen).
//
// The location can be expressed in multiple way:
// - A raw memory address (e.g. 1, 2, 3) possibly written in hex/bin (e.g. 0xFF, 0b101)
// - A user defined label (e.g. LOOP, ADD, TEMP)
// - A built-in symbols from the Hack architecture spec (e.g. SP, THIS, THAT)
type AInstruction struct {
	LocType LocationType // The type of the location identified by 'LocName' field
	LocName string       // A generic "payload" (the label/builtin/raw symbol)

	Emit      bool // Cleared by the optimiser to drop this instruction without splicing the Program
	Generated bool // True for instructions synthesized by the toolchain rather than the source text
}

type LocationType uint8 // Enumeration for all the different type of location (built-in, label, raw)

const (
	Raw     LocationType = 0 // Raw address literal (e.g. @2345, @0xFF, @0b101)
	Label   LocationType = 1 // User-defined location w/ a user given name (e.g. @MAIN, @LOOP)
	BuiltIn LocationType = 2 // Predefined associations by the Hack specs (@SCREEN, @KBD, @R1)
)

// NewAInstruction returns an emitting, non-generated A Instruction.
func NewAInstruction(locType LocationType, locName string) AInstruction {
	return AInstruction{LocType: locType, LocName: locName, Emit: true}
}

// ----------------------------------------------------------------------------
// C Instructions

// In memory representation of an C Instruction for the Hack architecture spec.
//
// The C instruction handles the computation side of the Hack computer, it instructs
// the CPU on what operation to execute and which register to use, also it allows to
// specify jump conditions to change the execution flow at runtime.
//
// 'Dest' is a subset of "ADMW" (any permutation thereof, matched by membership rather
// than a fixed enumeration) and 'W' is only legal under the Extended profile.
type CInstruction struct {
	Comp string // The 'computation' expression, defines the calculation that the CPU should perform
	Dest string // The 'destination' registers, defines if/where the result should be saved
	Jump string // The 'jump' directive, defines on what premise the jump should occur (or NoJump)

	Emit      bool // Cleared by the optimiser to drop this instruction without splicing the Program
	Generated bool // True for instructions synthesized by the toolchain rather than the source text
}

// NewCInstruction returns an emitting, non-generated C Instruction. An empty jump is
// normalised to NoJump so membership tests never have to special-case the empty string.
func NewCInstruction(dest, comp, jump string) CInstruction {
	if jump == "" {
		jump = NoJump
	}
	return CInstruction{Dest: dest, Comp: comp, Jump: jump, Emit: true}
}

// NewNop returns a generated C{dest:"", comp:"0", jump:NOJUMP} instruction, the
// memory-latency filler the extended profile inserts around M read-modify-writes.
func NewNop() CInstruction {
	return CInstruction{Comp: "0", Jump: NoJump, Emit: true, Generated: true}
}

// IsNop reports whether inst is a generated zero-compute filler, the shape every
// nop-focused peephole pass is looking for.
func IsNop(inst CInstruction) bool {
	return inst.Generated && inst.Comp == "0"
}

// RegenerateExpression rebuilds the textual "dest=comp;jump" form from the current
// field values, used by the annotated emission mode after the optimiser has mutated
// Dest/Comp/Jump in place (e.g. multi-destination coalescing).
func (c CInstruction) RegenerateExpression() string {
	expr := c.Comp
	if c.Dest != "" {
		expr = c.Dest + "=" + expr
	}
	if c.Jump != "" && c.Jump != NoJump {
		expr += ";" + c.Jump
	}
	return expr
}

// ----------------------------------------------------------------------------
// Label pseudo-instruction

// LabelInstr binds Name to the program counter value of the next emitted instruction.
// It never emits machine code and never advances the program counter; it exists purely
// to be resolved away during the symbol table's label pass.
type LabelInstr struct {
	Name string
}

func NewLabel(name string) LabelInstr {
	return LabelInstr{Name: name}
}
