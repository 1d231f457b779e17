package vm

// ----------------------------------------------------------------------------
// General information

// This section contains some general information about the VM intermediate language.
//
// We declare a shared 'Operation' interface for every macro operation available for the
// language and we define some other useful top-level struct such as Program and Module.
// Is important to note that a VM program can be composed of multiple translation units
// that can be also referenced as file or modules or also classes.
//
// The extended profile adds three comparison opcodes ('neq', 'lte', 'gte', the mirror
// image of 'eq'/'gt'/'lt') and a family of direct-segment operations ('s_neg', 's_not',
// 's_inc', 's_dec', 's_set', 's_clear') that mutate a segment cell in place without ever
// touching the stack, useful for runtime library code that manages its own state.

// A VM Program links together every translation unit of a compilation, keyed by module
// name (conventionally the source filename without its '.vm' extension): this is exactly
// the granularity the 'static' segment namespaces against (see pkg/vm's Translator) and
// the granularity the CLI front end reads one file at a time.
type Program map[string]Module

// A VM Module is just a linear list of VM operations/instructions, the bytecode of a
// single translation unit (one source '.vm' file, one Jack class).
type Module []Operation

// Used to put together all operation in the VM language (Memory, Arithmetic, ... ops).
type Operation interface{}

// ----------------------------------------------------------------------------
// Memory Op

// In memory representation of a Memory operation for the VM language.
//
// In the VM intermediate language there are only two possible memory operation on the stack.
// We could either push a new value taken from the specified segment location on the stack's
// top or take the stack's top and saves its value at the specified segment location.
type MemoryOp struct {
	Operation OperationType // The type of operation, either 'push' or 'pop'
	Segment   SegmentType   // The named memory segment to use (this, that, temp, ...)
	Offset    uint16        // The specific location/offset inside of the memory segment
}

type OperationType string // Enum to manage the operation allowed for a MemoryOp

const (
	Push OperationType = "push"
	Pop  OperationType = "pop"
)

type SegmentType string // Enum to manage the segment accessible for a MemoryOp

const (
	Temp     SegmentType = "temp"     // Real segment used to store intermediate computations
	Constant SegmentType = "constant" // Virtual segment used to access numeric constant

	Local    SegmentType = "local"    // Real segment used to store local function variables
	Static   SegmentType = "static"   // Real segment used to store shared/static variables
	Argument SegmentType = "argument" // Real segment used to store function's argument

	This    SegmentType = "this"    // Virtual segment used to point to a specific memory location
	That    SegmentType = "that"    // Virtual segment used to point to a specific memory location
	Pointer SegmentType = "pointer" // Real segment w/ 2 location used to set the 'this' and 'that' pointers
)

// ----------------------------------------------------------------------------
// Arithmetic Op

// In memory representation of a Arithmetic operation for the VM language.
//
// In the VM intermediate language there are just a handful of operation available.
// In particular each operation acts directly on the top of the stack, of course we have both unary
// and binary operation, the specific management of each op will be handled in the codegen phase.
//
// 'Eq'/'Gt'/'Lt' and their extended mirror images 'Neq'/'Lte'/'Gte' pop two operands, compare and
// push a boolean; every other operation here acts on the stack without changing its depth except
// 'Add'/'Sub'/'And'/'Or' (binary, pop two push one) vs 'Neg'/'Not' (unary, pop one push one).
type ArithmeticOp struct{ Operation ArithOpType }

type ArithOpType string // Enum to manage the operation allowed for an ArithmeticOp

const (
	Eq ArithOpType = "eq" // Comparison operations
	Gt ArithOpType = "gt"
	Lt ArithOpType = "lt"

	Neq ArithOpType = "neq" // Extended comparison operations, the negation of the three above
	Lte ArithOpType = "lte"
	Gte ArithOpType = "gte"

	Add ArithOpType = "add" // Arithmetic operations
	Sub ArithOpType = "sub"
	Neg ArithOpType = "neg"

	Not ArithOpType = "not" // Bitwise operations
	And ArithOpType = "and"
	Or  ArithOpType = "or"
)

// ----------------------------------------------------------------------------
// Direct segment Op (extended profile only)

// DirectOp mutates segment[index] in place without ever pushing/popping the stack, grounded on
// the extended profile's runtime-helper niche: zeroing or flipping a cell a library routine owns
// without paying for a push/pop round trip through the stack.
type DirectOp struct {
	Operation DirectOpType
	Segment   SegmentType
	Offset    uint16
}

type DirectOpType string // Enum to manage the operation allowed for a DirectOp

const (
	SNeg   DirectOpType = "s_neg"   // segment[i] = -segment[i]
	SNot   DirectOpType = "s_not"   // segment[i] = !segment[i]
	SInc   DirectOpType = "s_inc"   // segment[i] = segment[i] + 1
	SDec   DirectOpType = "s_dec"   // segment[i] = segment[i] - 1
	SSet   DirectOpType = "s_set"   // segment[i] = -1 (all ones, boolean true)
	SClear DirectOpType = "s_clear" // segment[i] = 0
)

// ----------------------------------------------------------------------------
// Control flow Op

// LabelDecl binds Name to the current position in its enclosing module, scoped at emission time
// by the Lowerer to the enclosing function ('F::L'); a free-floating label is left unqualified.
type LabelDecl struct{ Name string }

// JumpType distinguishes an unconditional jump from a pop-and-branch-on-nonzero jump; the string
// values match the VM text format's own opcodes so codegen is a direct cast.
type JumpType string

const (
	Unconditional JumpType = "goto"
	Conditional   JumpType = "if-goto"
)

// GotoOp is either a 'goto L' (unconditional jump to L) or an 'if-goto L' (pop the stack top,
// jump to L if it's nonzero).
type GotoOp struct {
	Jump  JumpType
	Label string
}

// ----------------------------------------------------------------------------
// Function Op

// FuncDecl declares a function entry point and how many zero-initialised locals to push before
// falling into the function body.
type FuncDecl struct {
	Name   string
	NLocal uint8
}

// FuncCallOp invokes Name with NArgs arguments already pushed on the stack by the caller.
type FuncCallOp struct {
	Name  string
	NArgs uint8
}

// ReturnOp unwinds the current function's frame and jumps back to the caller.
type ReturnOp struct{}
