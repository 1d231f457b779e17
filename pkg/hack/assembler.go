package hack

import (
	"fmt"
	"strings"
)

// ----------------------------------------------------------------------------
// Assembler core (C5)

// Options configures a single Assemble run: which profile to enforce, which
// peephole passes (if any) to run, and how to format the emitted lines.
type Options struct {
	Profile     Profile
	Optimize    Pass // 0 disables the optimiser entirely
	Annotate    bool // append "// PC=n" to each line and keep removed instructions as comments
	PrettyPrint bool // group bits with '_' instead of emitting a flat 16 character string
}

// Result is what a completed assembly run hands back to the caller (a CLI
// command, a test, or any other embedder): the machine code lines in source
// order, how many were actually emitted, and the accumulated non-fatal
// warnings from §7 (literal truncation, unused labels, missing trailing jump).
type Result struct {
	Lines            []string
	InstructionCount int
	Warnings         []string
}

// Assemble drives the two-pass symbol resolution, the optional peephole
// optimiser and the final bit-encoding emission over an already-lowered
// Program (see pkg/asm.Lowerer for how ASM source becomes one of these).
// Resolve runs twice — once before optimising and once after — since
// deleting instructions shifts every label's program counter.
func Assemble(prog Program, opts Options) (*Result, error) {
	table := NewSymbolTable(opts.Profile)
	var warnings []string

	if err := table.Resolve(prog); err != nil {
		return nil, err
	}

	if opts.Optimize != 0 {
		Optimize(prog, opts.Optimize)
		if err := table.Resolve(prog); err != nil {
			return nil, err
		}
	}

	lines := make([]string, 0, len(prog))
	pc := 0

	for _, inst := range prog {
		switch v := inst.(type) {
		case AInstruction:
			if !v.Emit {
				if opts.Annotate {
					lines = append(lines, "// [OPTIMISER REMOVED] @"+v.LocName)
				}
				continue
			}
			bits, warns, err := EncodeA(v, table)
			if err != nil {
				return nil, err
			}
			warnings = append(warnings, warns...)
			lines = append(lines, formatLine(bits, pc, opts))
			pc++

		case CInstruction:
			if !v.Emit {
				if opts.Annotate {
					lines = append(lines, "// [OPTIMISER REMOVED] "+v.RegenerateExpression())
				}
				continue
			}
			bits, err := EncodeC(v, opts.Profile)
			if err != nil {
				return nil, err
			}
			lines = append(lines, formatLine(bits, pc, opts))
			pc++

		case LabelInstr:
			continue

		default:
			return nil, fmt.Errorf("unrecognized instruction %T", inst)
		}
	}

	if unused := table.UnusedLabels(prog); len(unused) > 0 {
		warnings = append(warnings, fmt.Sprintf("unused label(s): %s", strings.Join(unused, ", ")))
	}
	if pc > 0 {
		if !endsWithJump(prog) {
			warnings = append(warnings, "program does not end with a jump instruction; execution falls through past the last instruction")
		}
	}

	return &Result{Lines: lines, InstructionCount: pc, Warnings: warnings}, nil
}

func endsWithJump(prog Program) bool {
	for i := len(prog) - 1; i >= 0; i-- {
		switch v := prog[i].(type) {
		case CInstruction:
			if !v.Emit {
				continue
			}
			return v.Jump != "" && v.Jump != NoJump
		case AInstruction:
			if v.Emit {
				return false
			}
		}
	}
	return false
}

func formatLine(bits string, pc int, opts Options) string {
	line := bits
	if opts.PrettyPrint {
		line = prettify(bits)
	}
	if opts.Annotate {
		line = fmt.Sprintf("%s // PC=%d", line, pc)
	}
	return line
}

// prettify groups a flat 16 character bit string with '_' separators: A
// Instructions split as opcode|address (1|15), C Instructions as
// opcode|w|d4|a|comp|dest|jump (1|1|1|1|6|3|3).
func prettify(bits string) string {
	if len(bits) != 16 {
		return bits
	}
	groups := []int{1, 15}
	if bits[0] == '1' {
		groups = []int{1, 1, 1, 1, 6, 3, 3}
	}

	var out strings.Builder
	pos := 0
	for i, size := range groups {
		if i > 0 {
			out.WriteByte('_')
		}
		out.WriteString(bits[pos : pos+size])
		pos += size
	}
	return out.String()
}
