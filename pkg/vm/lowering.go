package vm

import (
	"fmt"
	"strconv"

	"its-hmny.dev/nand2tetris/pkg/asm"
	"its-hmny.dev/nand2tetris/pkg/hack"
)

// ----------------------------------------------------------------------------
// Vm Lowerer

// The Lowerer takes a single already-parsed 'vm.Module' (one translation unit) and produces its
// 'asm.Program' counterpart, ready for the Preprocessor and Asm Lowerer to take over.
//
// Lowering is a single linear pass over the Module, not a tree walk: by the time a Module reaches
// here it's already a flat operation list (see parsing.go). Stack pointer manipulation never
// references 'SP' or 'W' directly; every push/pop/arithmetic template is built out of
// pkg/asm's LoadSP/SaveSP/IncSP/DecSP/PushD/PopToD, so a Compat-profile translation and an
// Extended-profile one share one single idea of "where the stack pointer lives", the same
// vocabulary the Asm Preprocessor's '$call'/'$return' macros consume. 'call'/'return' operations
// are not expanded here at all: they're handed off as 'asm.MacroCall' nodes, leaving the frame-save
// protocol to the single place that already implements it (pkg/asm/preprocessor.go).
type Lowerer struct {
	module   Module
	file     string // translation unit name, scopes 'static i' and the compare ops' minted labels
	profile  hack.Profile
	function string // name of the innermost enclosing 'function', scopes labels; empty if free-floating
	fresh    freshCounter
}

type freshCounter struct{ n int }

func (c *freshCounter) next(prefix string) string {
	c.n++
	return fmt.Sprintf("%s.%d", prefix, c.n)
}

// Initializes and returns to the caller a brand new 'Lowerer' struct.
// Requires the argument Module to be not nil nor empty, and 'file' to name the translation unit
// it came from (used to namespace the 'static' segment and the labels minted for compare ops;
// free-floating user labels are left unqualified, see scopedLabel).
func NewLowerer(m Module, file string, profile hack.Profile) *Lowerer {
	return &Lowerer{module: m, file: file, profile: profile}
}

// Triggers the lowering process. It walks the Module operation by operation, producing a flat
// 'asm.Program'; a 'function' operation updates the Lowerer's notion of the enclosing function so
// that every 'label'/'goto'/'if-goto' seen afterwards is scoped to it.
func (l *Lowerer) Lower() (asm.Program, error) {
	if len(l.module) == 0 {
		return nil, fmt.Errorf("the given module is empty")
	}

	out := make(asm.Program, 0, len(l.module)*4)

	for _, operation := range l.module {
		var frag asm.Program
		var err error

		switch tOperation := operation.(type) {
		case MemoryOp:
			frag, err = l.lowerMemoryOp(tOperation)
		case ArithmeticOp:
			frag, err = l.lowerArithmeticOp(tOperation)
		case DirectOp:
			frag, err = l.lowerDirectOp(tOperation)
		case LabelDecl:
			frag, err = l.lowerLabelDecl(tOperation)
		case GotoOp:
			frag, err = l.lowerGotoOp(tOperation)
		case FuncDecl:
			frag, err = l.lowerFuncDecl(tOperation)
		case FuncCallOp:
			frag, err = l.lowerFuncCallOp(tOperation)
		case ReturnOp:
			frag, err = l.lowerReturnOp(tOperation)
		default:
			err = fmt.Errorf("unrecognized operation '%T'", operation)
		}

		if err != nil {
			return nil, err
		}
		out = append(out, frag...)
	}

	return out, nil
}

// label mints a fresh, collision-free label scoped to this translation unit; used for the
// tentative-true/overwrite-false branch every compare op needs.
func (l *Lowerer) label(prefix string) string {
	return l.fresh.next(l.file + "." + prefix)
}

// scopedLabel namespaces a user-visible VM label to the innermost enclosing function ('F::L'); a
// label declared outside any function is left unqualified, matching the reference translator's
// acceptance of free-floating control flow in a file with no 'function' declarations.
func (l *Lowerer) scopedLabel(name string) string {
	if l.function == "" {
		return name
	}
	return l.function + "::" + name
}

// ----------------------------------------------------------------------------
// Segment addressing

// segmentPointer reports the register holding the base address of an indirect segment, and
// whether seg is one of those four ('argument'/'local'/'this'/'that'); every other segment
// resolves to a single fixed address instead (see directAddress).
func segmentPointer(seg SegmentType) (string, bool) {
	switch seg {
	case Argument:
		return "ARG", true
	case Local:
		return "LCL", true
	case This:
		return "THIS", true
	case That:
		return "THAT", true
	}
	return "", false
}

// directAddress resolves a fixed-address segment ('pointer'/'temp'/'static') to the concrete
// location an asm.AInstruction should name, enforcing the index bounds of §4.9.
func (l *Lowerer) directAddress(seg SegmentType, offset uint16) (string, error) {
	switch seg {
	case Pointer:
		if offset > 1 {
			return "", fmt.Errorf("invalid 'pointer' offset, got %d", offset)
		}
		if offset == 0 {
			return "THIS", nil
		}
		return "THAT", nil
	case Temp:
		if offset > 7 {
			return "", fmt.Errorf("invalid 'temp' offset, got %d", offset)
		}
		return strconv.Itoa(5 + int(offset)), nil
	case Static:
		if offset >= 240 {
			return "", fmt.Errorf("invalid 'static' offset, got %d", offset)
		}
		return fmt.Sprintf("%s::STATIC%d", l.file, offset), nil
	default:
		return "", fmt.Errorf("unrecognized segment '%s'", seg)
	}
}

// addressOf returns the fragment that leaves A pointing at segment[offset], ready for the caller
// to read or write M directly. For the four indirect segments this dereferences their base
// register (adding offset only when it's non-zero, the §4.9 fast path); every other segment
// resolves to a single constant address with no indirection at all.
func (l *Lowerer) addressOf(seg SegmentType, offset uint16) (asm.Program, error) {
	if base, ok := segmentPointer(seg); ok {
		if offset == 0 {
			return asm.Program{
				asm.AInstruction{Location: base}, asm.CInstruction{Dest: "A", Comp: "M"},
			}, nil
		}
		return asm.Program{
			asm.AInstruction{Location: base}, asm.CInstruction{Dest: "D", Comp: "M"},
			asm.AInstruction{Location: strconv.Itoa(int(offset))}, asm.CInstruction{Dest: "A", Comp: "D+A"},
		}, nil
	}

	addr, err := l.directAddress(seg, offset)
	if err != nil {
		return nil, err
	}
	return asm.Program{asm.AInstruction{Location: addr}}, nil
}

// usesD reports whether addressOf needs the D register to compute seg[offset]'s address; a pop
// into such a segment must compute the address *before* popping, since popping also clobbers D.
func usesD(seg SegmentType, offset uint16) bool {
	_, ok := segmentPointer(seg)
	return ok && offset != 0
}

// ----------------------------------------------------------------------------
// Memory Op

func (l *Lowerer) lowerMemoryOp(op MemoryOp) (asm.Program, error) {
	switch op.Operation {
	case Push:
		return l.lowerPush(op.Segment, op.Offset)
	case Pop:
		return l.lowerPop(op.Segment, op.Offset)
	default:
		return nil, fmt.Errorf("unrecognized memory operation '%s'", op.Operation)
	}
}

// lowerPush loads segment[offset] (or the immediate value itself, for 'constant') into D and
// pushes it, via PushD so the fragment is profile-agnostic.
func (l *Lowerer) lowerPush(seg SegmentType, offset uint16) (asm.Program, error) {
	var frag asm.Program

	if seg == Constant {
		frag = asm.Program{
			asm.AInstruction{Location: strconv.Itoa(int(offset))}, asm.CInstruction{Dest: "D", Comp: "A"},
		}
	} else {
		addrFrag, err := l.addressOf(seg, offset)
		if err != nil {
			return nil, err
		}
		frag = append(addrFrag, asm.CInstruction{Dest: "D", Comp: "M"})
	}

	return append(frag, asm.PushD(l.profile)...), nil
}

// lowerPop pops the stack top into segment[offset]. When the destination address itself needs D
// to compute (an indexed argument/local/this/that access), the address is stashed in R13 before
// popping so the pop's own use of D doesn't clobber it.
func (l *Lowerer) lowerPop(seg SegmentType, offset uint16) (asm.Program, error) {
	if seg == Constant {
		return nil, fmt.Errorf("'constant' segment is push-only, cannot pop into it")
	}

	if usesD(seg, offset) {
		addrFrag, err := l.addressOf(seg, offset)
		if err != nil {
			return nil, err
		}
		frag := append(asm.Program{}, addrFrag...)
		frag = append(frag,
			asm.CInstruction{Dest: "D", Comp: "A"},
			asm.AInstruction{Location: "R13"}, asm.CInstruction{Dest: "M", Comp: "D"},
		)
		frag = append(frag, asm.PopToD(l.profile)...)
		return append(frag,
			asm.AInstruction{Location: "R13"}, asm.CInstruction{Dest: "A", Comp: "M"},
			asm.CInstruction{Dest: "M", Comp: "D"},
		), nil
	}

	frag := asm.PopToD(l.profile)
	addrFrag, err := l.addressOf(seg, offset)
	if err != nil {
		return nil, err
	}
	frag = append(frag, addrFrag...)
	return append(frag, asm.CInstruction{Dest: "M", Comp: "D"}), nil
}

// ----------------------------------------------------------------------------
// Arithmetic Op

var binaryComp = map[ArithOpType]string{
	Add: "D+M",
	Sub: "M-D",
	And: "D&M",
	Or:  "D|M",
}

var unaryComp = map[ArithOpType]string{
	Neg: "-M",
	Not: "!M",
}

var compareJump = map[ArithOpType]string{
	Eq: "JEQ", Neq: "JNE",
	Gt: "JGT", Gte: "JGE",
	Lt: "JLT", Lte: "JLE",
}

func (l *Lowerer) lowerArithmeticOp(op ArithmeticOp) (asm.Program, error) {
	if comp, ok := binaryComp[op.Operation]; ok {
		return l.lowerBinaryOp(comp), nil
	}
	if comp, ok := unaryComp[op.Operation]; ok {
		return l.lowerUnaryOp(comp), nil
	}
	if jump, ok := compareJump[op.Operation]; ok {
		return l.lowerCompareOp(jump), nil
	}
	return nil, fmt.Errorf("unrecognized arithmetic operation '%s'", op.Operation)
}

// lowerBinaryOp pops the top two values and writes comp(a, b) in the lower of the two slots,
// decrementing the stack pointer once: the merge never needs a second, separate pop.
func (l *Lowerer) lowerBinaryOp(comp string) asm.Program {
	frag := asm.DecSP(l.profile)
	frag = append(frag, asm.LoadSP(l.profile)...)
	frag = append(frag,
		asm.CInstruction{Dest: "D", Comp: "M"},
		asm.CInstruction{Dest: "A", Comp: "A-1"},
		asm.CInstruction{Dest: "M", Comp: comp},
	)
	return frag
}

// lowerUnaryOp rewrites the stack top in place; the stack depth never changes.
func (l *Lowerer) lowerUnaryOp(comp string) asm.Program {
	frag := asm.LoadSP(l.profile)
	frag = append(frag,
		asm.CInstruction{Dest: "A", Comp: "A-1"},
		asm.CInstruction{Dest: "M", Comp: comp},
	)
	return frag
}

// lowerCompareOp subtracts the two operands, tentatively writes the all-ones "true" at the result
// slot, and branches on jump past the fall-through overwrite that turns it into "false": the
// fall-through recomputes the result slot's address (LoadSP again, then A-1) rather than stashing
// it, since the branch's own A-instruction to the end label already clobbered A.
func (l *Lowerer) lowerCompareOp(jump string) asm.Program {
	end := l.label("COMPARE_END")

	frag := asm.DecSP(l.profile)
	frag = append(frag, asm.LoadSP(l.profile)...)
	frag = append(frag,
		asm.CInstruction{Dest: "D", Comp: "M"},
		asm.CInstruction{Dest: "A", Comp: "A-1"},
		asm.CInstruction{Dest: "D", Comp: "M-D"},
		asm.CInstruction{Dest: "M", Comp: "-1"},
		asm.AInstruction{Location: end}, asm.CInstruction{Comp: "D", Jump: jump},
	)
	frag = append(frag, asm.LoadSP(l.profile)...)
	frag = append(frag,
		asm.CInstruction{Dest: "A", Comp: "A-1"},
		asm.CInstruction{Dest: "M", Comp: "0"},
		asm.LabelDecl{Name: end},
	)
	return frag
}

// ----------------------------------------------------------------------------
// Direct segment Op (extended profile only)

var directComp = map[DirectOpType]string{
	SNeg: "-M", SNot: "!M",
	SInc: "M+1", SDec: "M-1",
	SSet: "-1", SClear: "0",
}

func (l *Lowerer) lowerDirectOp(op DirectOp) (asm.Program, error) {
	frag, err := l.addressOf(op.Segment, op.Offset)
	if err != nil {
		return nil, err
	}
	comp, ok := directComp[op.Operation]
	if !ok {
		return nil, fmt.Errorf("unrecognized direct operation '%s'", op.Operation)
	}
	return append(frag, asm.CInstruction{Dest: "M", Comp: comp}), nil
}

// ----------------------------------------------------------------------------
// Control flow Op

func (l *Lowerer) lowerLabelDecl(op LabelDecl) (asm.Program, error) {
	if op.Name == "" {
		return nil, fmt.Errorf("unable to lower an empty label declaration")
	}
	return asm.Program{asm.LabelDecl{Name: l.scopedLabel(op.Name)}}, nil
}

func (l *Lowerer) lowerGotoOp(op GotoOp) (asm.Program, error) {
	if op.Label == "" {
		return nil, fmt.Errorf("unable to lower a jump to an empty label")
	}
	target := l.scopedLabel(op.Label)

	if op.Jump == Unconditional {
		return asm.Program{
			asm.AInstruction{Location: target}, asm.CInstruction{Comp: "0", Jump: "JMP"},
		}, nil
	}

	frag := asm.PopToD(l.profile)
	return append(frag,
		asm.AInstruction{Location: target}, asm.CInstruction{Comp: "D", Jump: "JNE"},
	), nil
}

// ----------------------------------------------------------------------------
// Function Op

// lowerFuncDecl enters op.Name's scope (for every label/goto lowered after it) and, if it declares
// any locals, zeroes them with a single walking-A sweep: load SP once, write zero and advance A n
// times, then commit A back as the new SP with one SaveSP instead of n independent push sequences.
func (l *Lowerer) lowerFuncDecl(op FuncDecl) (asm.Program, error) {
	if op.Name == "" {
		return nil, fmt.Errorf("unable to lower a function declaration with an empty name")
	}
	l.function = op.Name

	frag := asm.Program{asm.LabelDecl{Name: op.Name}}
	if op.NLocal == 0 {
		return frag, nil
	}

	frag = append(frag, asm.LoadSP(l.profile)...)
	for i := uint8(0); i < op.NLocal; i++ {
		frag = append(frag,
			asm.CInstruction{Dest: "M", Comp: "0"},
			asm.CInstruction{Dest: "A", Comp: "A+1"},
		)
	}
	frag = append(frag, asm.SaveSP(l.profile)...)
	return frag, nil
}

// lowerFuncCallOp hands the call off whole to the Asm Preprocessor's '$call' macro rather than
// re-implementing the frame-save protocol here a second time.
func (l *Lowerer) lowerFuncCallOp(op FuncCallOp) (asm.Program, error) {
	if op.Name == "" {
		return nil, fmt.Errorf("unable to lower a function call with an empty name")
	}
	return asm.Program{
		asm.MacroCall{Name: "call", Args: []string{op.Name, strconv.Itoa(int(op.NArgs))}},
	}, nil
}

// lowerReturnOp likewise defers to the Preprocessor's '$return' macro.
func (l *Lowerer) lowerReturnOp(ReturnOp) (asm.Program, error) {
	return asm.Program{asm.MacroCall{Name: "return"}}, nil
}
