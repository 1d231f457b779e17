package vm

import (
	"fmt"
	"sort"
	"strconv"

	"its-hmny.dev/nand2tetris/pkg/asm"
	"its-hmny.dev/nand2tetris/pkg/hack"
)

// ----------------------------------------------------------------------------
// Vm Translator

// Translator links every translation unit of a Program into one 'asm.Program', in sorted module
// name order: lower each Module on its own (so 'static i' namespaces to the right file) and
// concatenate, optionally preceded by the
// bootstrap sequence that sets up the stack and jumps into the init function.
//
// What Translator hands back still carries unexpanded '$call'/'$return' asm.MacroCall nodes and
// raw AInstruction/CInstruction/LabelDecl: macro expansion, ASM-level lowering and machine code
// emission are each already a composable pipeline stage (pkg/asm.Preprocessor, pkg/asm.Lowerer,
// pkg/hack.Assemble); Translator's job stops at producing their input, not re-running them.
type Translator struct {
	Profile      hack.Profile
	NoInit       bool   // skip the bootstrap sequence entirely (used by project 7/8 unit tests)
	InitFunction string // defaults to "Sys.init" when empty

	// Segment base overrides applied by the bootstrap sequence, for test harnesses that need a
	// specific LCL/ARG/THIS/THAT rather than the ones 'call Sys.init 0' would leave behind. A nil
	// pointer means "leave this one alone".
	LCL, ARG, THIS, THAT *uint16

	// RAM holds additional '--RAM AAA=VVV' address/value overrides applied after the segment
	// pointers, in the order given.
	RAM []RAMOverride
}

// RAMOverride is one '--RAM AAA=VVV' CLI argument: set RAM[Address] = Value during bootstrap.
type RAMOverride struct {
	Address uint16
	Value   uint16
}

// Translate lowers and links every Module in prog, in filename order, prefixed by the bootstrap
// sequence unless NoInit is set.
func (t *Translator) Translate(prog Program) (asm.Program, error) {
	if len(prog) == 0 {
		return nil, fmt.Errorf("the given program has no translation units")
	}

	out := asm.Program{}
	if !t.NoInit {
		boot, err := t.bootstrap()
		if err != nil {
			return nil, err
		}
		out = append(out, boot...)
	}

	for _, file := range sortedModuleNames(prog) {
		module := prog[file]
		if len(module) == 0 {
			continue
		}
		lowered, err := NewLowerer(module, file, t.Profile).Lower()
		if err != nil {
			return nil, fmt.Errorf("%s: %w", file, err)
		}
		out = append(out, lowered...)
	}

	return out, nil
}

func sortedModuleNames(prog Program) []string {
	names := make([]string, 0, len(prog))
	for name := range prog {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// bootstrap sets SP to 256 (the stack base, above the sixteen registers R0-R15 and the
// static/variable area at 16-255), applies any segment pointer and RAM overrides, zeroes the extended profile's T0-T2
// scratch cells, and finally hands off to the configured init function with '$call', exactly as a
// hand-written '.asm' bootstrap would.
func (t *Translator) bootstrap() (asm.Program, error) {
	frag := asm.Program{asm.AInstruction{Location: "256"}}
	frag = append(frag, asm.SaveSP(t.Profile)...) // SP = 256 (W, under Extended; the real cell otherwise)

	for _, override := range []struct {
		reg   string
		value *uint16
	}{{"LCL", t.LCL}, {"ARG", t.ARG}, {"THIS", t.THIS}, {"THAT", t.THAT}} {
		if override.value == nil {
			continue
		}
		frag = append(frag,
			asm.AInstruction{Location: strconv.Itoa(int(*override.value))}, asm.CInstruction{Dest: "D", Comp: "A"},
			asm.AInstruction{Location: override.reg}, asm.CInstruction{Dest: "M", Comp: "D"},
		)
	}

	for _, ram := range t.RAM {
		frag = append(frag,
			asm.AInstruction{Location: strconv.Itoa(int(ram.Value))}, asm.CInstruction{Dest: "D", Comp: "A"},
			asm.AInstruction{Location: strconv.Itoa(int(ram.Address))}, asm.CInstruction{Dest: "M", Comp: "D"},
		)
	}

	if t.Profile == hack.Extended {
		for _, scratch := range []string{"T0", "T1", "T2"} {
			frag = append(frag,
				asm.AInstruction{Location: "0"}, asm.CInstruction{Dest: "D", Comp: "A"},
				asm.AInstruction{Location: scratch}, asm.CInstruction{Dest: "M", Comp: "D"},
			)
		}
	}

	initFunction := t.InitFunction
	if initFunction == "" {
		initFunction = "Sys.init"
	}
	frag = append(frag, asm.MacroCall{Name: "call", Args: []string{initFunction, "0"}})

	return frag, nil
}
