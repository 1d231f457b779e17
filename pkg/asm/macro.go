package asm

import (
	"fmt"

	"its-hmny.dev/nand2tetris/pkg/hack"
)

// ----------------------------------------------------------------------------
// Macro expansion helpers (C2)

// This section builds the small, frequently repeated Asm fragments every higher level macro is
// assembled out of: moving values to/from the stack pointer and minting fresh, collision-free
// label names. Grounded on the reference VM-to-Asm translator's 'ASM' helper class, which keeps
// exactly this vocabulary ('load_sp'/'save_sp'/'inc_sp'/'dec_sp') plus a monotonic counter for
// fresh names ('$_'). Exported so pkg/vm's lowering step can build its own push/pop/arithmetic
// templates out of the same vocabulary the ASM preprocessor's '$call'/'$return' use, rather than
// reimplementing the Compat/Extended split a second time.
type freshCounter struct{ n int }

// next mints "prefix.N", bumping the counter; used anywhere a macro needs a label of its own
// that can't collide with another expansion of the same macro later in the same file.
func (c *freshCounter) next(prefix string) string {
	c.n++
	return fmt.Sprintf("%s.%d", prefix, c.n)
}

// LoadSP returns the fragment that loads the stack top's address into A. Under Compat the
// address always lives in the 'SP' memory cell; under Extended it's cached directly in the W
// register, so loading it costs a register copy instead of a memory round trip.
func LoadSP(profile hack.Profile) Program {
	if profile == hack.Extended {
		return Program{CInstruction{Dest: "A", Comp: "W"}}
	}
	return Program{AInstruction{Location: "SP"}, CInstruction{Dest: "A", Comp: "M"}}
}

// SaveSP returns the fragment that writes A's current value back as the stack top's address;
// used to set up SP itself (e.g. bootstrap's 'SP = 256'), not to push a value onto the stack.
func SaveSP(profile hack.Profile) Program {
	if profile == hack.Extended {
		return Program{CInstruction{Dest: "W", Comp: "A"}}
	}
	return Program{CInstruction{Dest: "D", Comp: "A"}, AInstruction{Location: "SP"}, CInstruction{Dest: "M", Comp: "D"}}
}

// IncSP returns the fragment that advances the stack pointer itself (push epilogue).
func IncSP(profile hack.Profile) Program {
	if profile == hack.Extended {
		return Program{CInstruction{Dest: "W", Comp: "W+1"}}
	}
	return Program{AInstruction{Location: "SP"}, CInstruction{Dest: "M", Comp: "M+1"}}
}

// DecSP returns the fragment that retreats the stack pointer itself (pop prologue).
func DecSP(profile hack.Profile) Program {
	if profile == hack.Extended {
		return Program{CInstruction{Dest: "W", Comp: "W-1"}}
	}
	return Program{AInstruction{Location: "SP"}, CInstruction{Dest: "M", Comp: "M-1"}}
}

// PushD returns the fragment that pushes the current value of D onto the stack, incrementing SP:
// point A at the current top (LoadSP), write D there, then advance the pointer.
func PushD(profile hack.Profile) Program {
	frag := LoadSP(profile)
	frag = append(frag, CInstruction{Dest: "M", Comp: "D"})
	return append(frag, IncSP(profile)...)
}

// PopToD returns the fragment that pops the stack's top value into D: retreat the pointer first,
// then dereference it.
func PopToD(profile hack.Profile) Program {
	frag := DecSP(profile)
	frag = append(frag, LoadSP(profile)...)
	return append(frag, CInstruction{Dest: "D", Comp: "M"})
}

// ReadSP returns the fragment that reads the stack pointer's numeric value (not *SP, SP itself)
// into D; used anywhere arithmetic has to be done on the pointer value, e.g. '$call' repositioning
// ARG relative to the current stack depth.
func ReadSP(profile hack.Profile) Program {
	if profile == hack.Extended {
		return Program{CInstruction{Dest: "D", Comp: "W"}}
	}
	return Program{AInstruction{Location: "SP"}, CInstruction{Dest: "D", Comp: "M"}}
}

// WriteSP returns the fragment that sets the stack pointer's numeric value to D; the mirror of
// ReadSP, used whenever a new stack depth is computed in D rather than an address sitting in A.
func WriteSP(profile hack.Profile) Program {
	if profile == hack.Extended {
		return Program{CInstruction{Dest: "W", Comp: "D"}}
	}
	return Program{AInstruction{Location: "SP"}, CInstruction{Dest: "M", Comp: "D"}}
}
