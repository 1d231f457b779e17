package asm

import (
	"fmt"
	"strconv"
	"strings"

	"its-hmny.dev/nand2tetris/pkg/hack"
)

// ----------------------------------------------------------------------------
// Preprocessor (C7)

// Preprocessor expands every '$name arg...' MacroCall in a freshly parsed Program into the
// concrete A/C Instructions and LabelDecls it stands for, so the Lowerer never has to know macros
// exist. Grounded on the reference assembler's 'preprocess' pass and its per-macro
// '_parse_*_macro' handlers: '$call'/'$return' implement the project 8 calling convention,
// '$gosub'/'$goback' are the lightweight single-slot version used by runtime helper routines that
// never nest, '$copy_mm'/'$copy_mv' are straight-line memory moves, the '$if_*_goto' family
// compares D against an operand and branches, '$const' binds a compile time name to a literal and
// '$this' is substituted directly in label text (see substituteThis), not dispatched as a macro.
type Preprocessor struct {
	fresh   freshCounter
	consts  map[string]uint16
	context string       // current '$this' expansion, empty unless SetContext was called
	profile hack.Profile // governs whether push/pop route through a W register or real memory
}

// NewPreprocessor returns a Preprocessor with no bound constants, no '$this' context and the
// Compat profile (the zero value of hack.Profile); call SetProfile to opt into the Extended
// profile's W-register stack pointer caching.
func NewPreprocessor() *Preprocessor {
	return &Preprocessor{consts: map[string]uint16{}}
}

// SetContext binds '$this' to name for every subsequent Expand call on this Preprocessor; while no
// context is bound, '$this' is left as written. Neither pkg/vm nor the CLI front ends call it.
func (p *Preprocessor) SetContext(name string) { p.context = name }

// SetProfile selects which profile's push/pop idiom '$call'/'$return' expand to ('$gosub'/'$goback'
// expand the same way under either profile): under Extended, the W register caches the stack pointer (see pkg/asm/macro.go), avoiding a
// memory round trip through 'SP' on every push/pop.
func (p *Preprocessor) SetProfile(profile hack.Profile) { p.profile = profile }

// Expand walks prog replacing MacroCall nodes with their expansion and substituting '$this' in
// A Instruction operands, label declarations and macro arguments, returning a flat Program
// containing only AInstruction/CInstruction/LabelDecl.
func (p *Preprocessor) Expand(prog Program) (Program, error) {
	out := make(Program, 0, len(prog))

	for _, inst := range prog {
		switch v := inst.(type) {
		case MacroCall:
			args := make([]string, len(v.Args))
			for i, arg := range v.Args {
				args[i] = p.substituteThis(arg)
			}
			frag, err := p.expand(MacroCall{Name: v.Name, Args: args})
			if err != nil {
				return nil, err
			}
			out = append(out, frag...)
		case AInstruction:
			out = append(out, AInstruction{Location: p.substituteThis(v.Location)})
		case LabelDecl:
			out = append(out, LabelDecl{Name: p.substituteThis(v.Name)})
		default:
			out = append(out, inst)
		}
	}

	return p.applyConstants(out)
}

// substituteThis replaces a literal "$this" prefix anywhere it appears in s, matching the
// reference implementation's unconditional string replace rather than requiring "$this." exactly.
func (p *Preprocessor) substituteThis(s string) string {
	if p.context == "" || !strings.Contains(s, "$this") {
		return s
	}
	return strings.ReplaceAll(s, "$this", p.context)
}

// applyConstants rewrites any AInstruction whose Location names a '$const'-bound symbol into the
// literal value it was bound to; run last since a constant can be referenced before its '$const'
// line if the source chooses to declare constants at the bottom of the file.
func (p *Preprocessor) applyConstants(prog Program) (Program, error) {
	if len(p.consts) == 0 {
		return prog, nil
	}
	out := make(Program, 0, len(prog))
	for _, inst := range prog {
		if a, ok := inst.(AInstruction); ok {
			if val, found := p.consts[a.Location]; found {
				out = append(out, AInstruction{Location: strconv.Itoa(int(val))})
				continue
			}
		}
		out = append(out, inst)
	}
	return out, nil
}

func (p *Preprocessor) expand(call MacroCall) (Program, error) {
	switch call.Name {
	case "const":
		return p.expandConst(call.Args)
	case "copy_mm":
		return p.expandCopyMM(call.Args)
	case "copy_mv":
		return p.expandCopyMV(call.Args)
	case "if_eq_goto", "if_ne_goto", "if_gt_goto", "if_ge_goto", "if_lt_goto", "if_le_goto":
		return p.expandIfGoto(call.Name, call.Args)
	case "gosub":
		return p.expandGosub(call.Args)
	case "goback":
		return p.expandGoback(call.Args)
	case "call":
		return p.expandCall(call.Args)
	case "return":
		return p.expandReturn(call.Args)
	default:
		return nil, fmt.Errorf("unrecognized macro '$%s'", call.Name)
	}
}

func (p *Preprocessor) expandConst(args []string) (Program, error) {
	if len(args) != 2 {
		return nil, fmt.Errorf("$const expects 'NAME VALUE', got %v", args)
	}
	value, _, err := hack.ParseNumeric(args[1])
	if err != nil {
		return nil, fmt.Errorf("$const %s: %w", args[0], err)
	}
	p.consts[args[0]] = value
	return Program{}, nil
}

// expandCopyMM moves SRC's cell into DST's cell through D, a straight-line memory-to-memory copy.
func (p *Preprocessor) expandCopyMM(args []string) (Program, error) {
	if len(args) != 2 {
		return nil, fmt.Errorf("$copy_mm expects 'SRC DST', got %v", args)
	}
	src, dst := args[0], args[1]
	return Program{
		AInstruction{Location: src}, CInstruction{Dest: "D", Comp: "M"},
		AInstruction{Location: dst}, CInstruction{Dest: "M", Comp: "D"},
	}, nil
}

// expandCopyMV stores the literal/symbol VALUE into DST's cell.
func (p *Preprocessor) expandCopyMV(args []string) (Program, error) {
	if len(args) != 2 {
		return nil, fmt.Errorf("$copy_mv expects 'DST VALUE', got %v", args)
	}
	dst, value := args[0], args[1]
	return Program{
		AInstruction{Location: value}, CInstruction{Dest: "D", Comp: "A"},
		AInstruction{Location: dst}, CInstruction{Dest: "M", Comp: "D"},
	}, nil
}

var ifGotoJump = map[string]string{
	"if_eq_goto": "JEQ", "if_ne_goto": "JNE",
	"if_gt_goto": "JGT", "if_ge_goto": "JGE",
	"if_lt_goto": "JLT", "if_le_goto": "JLE",
}

// expandIfGoto compares the current value of D against VALUE and jumps to LABEL if the named
// condition holds, consuming D in the process (D is left holding D-VALUE).
func (p *Preprocessor) expandIfGoto(name string, args []string) (Program, error) {
	if len(args) != 2 {
		return nil, fmt.Errorf("$%s expects 'VALUE LABEL', got %v", name, args)
	}
	value, label := args[0], args[1]
	return Program{
		AInstruction{Location: value}, CInstruction{Dest: "D", Comp: "D-A"},
		AInstruction{Location: label}, CInstruction{Comp: "D", Jump: ifGotoJump[name]},
	}, nil
}

// expandGosub jumps to LABEL after stashing the return address in R5, the lightweight,
// non-reentrant counterpart to '$call' used by runtime helper routines that never nest: a real
// call stack frame would be wasted ceremony for a routine that's never called while one of its
// own invocations is still on the stack.
func (p *Preprocessor) expandGosub(args []string) (Program, error) {
	if len(args) != 1 {
		return nil, fmt.Errorf("$gosub expects 'LABEL', got %v", args)
	}
	retLabel := p.fresh.next("GOSUB_RET")
	return Program{
		AInstruction{Location: retLabel}, CInstruction{Dest: "D", Comp: "A"},
		AInstruction{Location: "R5"}, CInstruction{Dest: "M", Comp: "D"},
		AInstruction{Location: args[0]}, CInstruction{Comp: "0", Jump: "JMP"},
		LabelDecl{Name: retLabel},
	}, nil
}

// expandGoback jumps back to the address a prior '$gosub' stashed in R5.
func (p *Preprocessor) expandGoback(args []string) (Program, error) {
	if len(args) != 0 {
		return nil, fmt.Errorf("$goback takes no arguments, got %v", args)
	}
	return Program{
		AInstruction{Location: "R5"}, CInstruction{Dest: "A", Comp: "M"},
		CInstruction{Comp: "0", Jump: "JMP"},
	}, nil
}

// expandCall implements the project 8 calling convention: push the return address and the
// caller's LCL/ARG/THIS/THAT, reposition ARG below the pushed arguments and frame, set LCL to the
// new frame's base, and jump into the callee.
func (p *Preprocessor) expandCall(args []string) (Program, error) {
	if len(args) != 2 {
		return nil, fmt.Errorf("$call expects 'FUNCTION NARGS', got %v", args)
	}
	function, nargsStr := args[0], args[1]
	nargs, err := strconv.Atoi(nargsStr)
	if err != nil || nargs < 0 {
		return nil, fmt.Errorf("$call: invalid argument count %q", nargsStr)
	}

	retLabel := p.fresh.next("CALL_RET")
	frag := Program{
		AInstruction{Location: retLabel}, CInstruction{Dest: "D", Comp: "A"},
	}
	frag = append(frag, PushD(p.profile)...)

	for _, segment := range []string{"LCL", "ARG", "THIS", "THAT"} {
		frag = append(frag, AInstruction{Location: segment}, CInstruction{Dest: "D", Comp: "M"})
		frag = append(frag, PushD(p.profile)...)
	}

	frag = append(frag, ReadSP(p.profile)...)
	frag = append(frag,
		AInstruction{Location: strconv.Itoa(nargs + 5)}, CInstruction{Dest: "D", Comp: "D-A"},
		AInstruction{Location: "ARG"}, CInstruction{Dest: "M", Comp: "D"},
	)
	frag = append(frag, ReadSP(p.profile)...)
	frag = append(frag,
		AInstruction{Location: "LCL"}, CInstruction{Dest: "M", Comp: "D"},
		AInstruction{Location: function}, CInstruction{Comp: "0", Jump: "JMP"},
		LabelDecl{Name: retLabel},
	)
	return frag, nil
}

// expandReturn implements the project 8 return sequence. RET (the return address) is read out of
// the frame into R14 *before* the return value overwrites ARG's cell: with zero arguments ARG and
// the frame's saved RET slot are the same cell, so saving RET first is load-bearing, not stylistic.
func (p *Preprocessor) expandReturn(args []string) (Program, error) {
	if len(args) != 0 {
		return nil, fmt.Errorf("$return takes no arguments, got %v", args)
	}

	frag := Program{
		AInstruction{Location: "LCL"}, CInstruction{Dest: "D", Comp: "M"},
		AInstruction{Location: "R13"}, CInstruction{Dest: "M", Comp: "D"}, // FRAME = LCL
		AInstruction{Location: "5"}, CInstruction{Dest: "A", Comp: "D-A"}, CInstruction{Dest: "D", Comp: "M"},
		AInstruction{Location: "R14"}, CInstruction{Dest: "M", Comp: "D"}, // RET = *(FRAME-5)
	}
	frag = append(frag, PopToD(p.profile)...)
	frag = append(frag,
		AInstruction{Location: "ARG"}, CInstruction{Dest: "A", Comp: "M"}, CInstruction{Dest: "M", Comp: "D"}, // *ARG = pop()
		AInstruction{Location: "ARG"}, CInstruction{Dest: "D", Comp: "M+1"},
	)
	frag = append(frag, WriteSP(p.profile)...) // SP = ARG+1

	for offset, segment := range []string{"THAT", "THIS", "ARG", "LCL"} {
		frag = append(frag,
			AInstruction{Location: "R13"}, CInstruction{Dest: "D", Comp: "M"},
			AInstruction{Location: strconv.Itoa(offset + 1)}, CInstruction{Dest: "A", Comp: "D-A"},
			CInstruction{Dest: "D", Comp: "M"},
			AInstruction{Location: segment}, CInstruction{Dest: "M", Comp: "D"},
		)
	}

	frag = append(frag,
		AInstruction{Location: "R14"}, CInstruction{Dest: "A", Comp: "M"}, CInstruction{Comp: "0", Jump: "JMP"}, // goto RET
	)
	return frag, nil
}
