package hack

import (
	"fmt"
	"strings"
)

// ----------------------------------------------------------------------------
// Peephole optimiser (C6)

// Pass selects which of the four peephole passes Optimize should run, so the
// CLI's '-O' flag can enable a subset for debugging a specific optimisation.
type Pass uint8

const (
	RedundantLoads    Pass = 1 << iota // Drop an A Instruction that repeats the value already in A.
	MultiDestAssign                    // Fold "X=expr" followed by "Y=X" into one multi-dest C Instruction.
	ConsecutiveNops                    // Collapse a run of generated nops into a single one.
	UnneededNops                       // Drop a generated nop whose neighbours never touch M.
)

// All enables every peephole pass, the CLI's '-O all' setting (without '-O'
// no pass runs).
const All = RedundantLoads | MultiDestAssign | ConsecutiveNops | UnneededNops

// Optimize runs the selected peephole passes over prog in place, mutating
// Emit/Dest/Comp fields on the CInstruction/AInstruction values held in the
// slice. Instructions are never removed from the slice, only marked
// non-emitting, so callers must re-run SymbolTable.Resolve afterwards: label
// program counters shift once the assembler's emission step skips the
// now-silenced instructions.
//
// Order matters and follows the reference optimiser: redundant loads, then
// consecutive nops, then unneeded nops, then multi-destination coalescing
// last.
func Optimize(prog Program, passes Pass) {
	if passes&RedundantLoads != 0 {
		removeRedundantLoads(prog)
	}
	if passes&ConsecutiveNops != 0 {
		removeConsecutiveNops(prog)
	}
	if passes&UnneededNops != 0 {
		removeUnneededNops(prog)
	}
	if passes&MultiDestAssign != 0 {
		coalesceMultiDestination(prog)
	}
}

// ----------------------------------------------------------------------------
// Redundant A-load elimination

// removeRedundantLoads drops an A Instruction whenever the register already
// holds the same value, tracked by comparing the unresolved operand
// ("expression"), not the resolved address — matching the reference
// implementation, which runs this pass before addresses are final. The
// tracked value is invalidated by any C Instruction that writes A, and by any
// label (a possible jump target, where nothing about A can be assumed).
func removeRedundantLoads(prog Program) {
	var lastA string
	haveLastA := false

	for i, inst := range prog {
		switch v := inst.(type) {
		case AInstruction:
			if !v.Emit {
				continue
			}
			key := fmt.Sprintf("%d:%s", v.LocType, v.LocName)
			if haveLastA && lastA == key {
				v.Emit = false
				prog[i] = v
				continue
			}
			lastA, haveLastA = key, true
		case CInstruction:
			if v.Emit && strings.Contains(v.Dest, "A") {
				haveLastA = false
			}
		case LabelInstr:
			haveLastA = false
		}
	}
}

// ----------------------------------------------------------------------------
// Consecutive nop coalescing

// removeConsecutiveNops keeps only the first nop in any run of adjacent,
// emitted, generated nops: two nops back to back serve no purpose the first
// one doesn't already.
func removeConsecutiveNops(prog Program) {
	inRun := false
	for i, inst := range prog {
		c, ok := inst.(CInstruction)
		if !ok || !c.Emit {
			inRun = false
			continue
		}
		if !IsNop(c) {
			inRun = false
			continue
		}
		if inRun {
			c.Emit = false
			prog[i] = c
		} else {
			inRun = true
		}
	}
}

// ----------------------------------------------------------------------------
// Unneeded nop removal

// removeUnneededNops drops a generated nop when neither of its emitted
// neighbours reads or writes M: the nop exists solely to absorb the relay's
// one-cycle memory latency, so if nothing around it touches memory it is
// pure filler.
func removeUnneededNops(prog Program) {
	idx := emittedIndices(prog)

	for k, i := range idx {
		c, ok := prog[i].(CInstruction)
		if !ok || !IsNop(c) {
			continue
		}

		neighborTouchesM := false
		if k > 0 {
			if prev, ok := prog[idx[k-1]].(CInstruction); ok && touchesM(prev) {
				neighborTouchesM = true
			}
		}
		if k < len(idx)-1 {
			if next, ok := prog[idx[k+1]].(CInstruction); ok && touchesM(next) {
				neighborTouchesM = true
			}
		}

		if !neighborTouchesM {
			c.Emit = false
			prog[i] = c
		}
	}
}

func touchesM(c CInstruction) bool {
	return strings.Contains(c.Comp, "M") || strings.Contains(c.Dest, "M")
}

// emittedIndices returns the Program indices of every instruction still
// marked Emit, in order; LabelInstr never appears since it has no Emit flag
// (it is resolved away before codegen and never reaches the optimiser as a
// PC-consuming unit).
func emittedIndices(prog Program) []int {
	idx := make([]int, 0, len(prog))
	for i, inst := range prog {
		switch v := inst.(type) {
		case AInstruction:
			if v.Emit {
				idx = append(idx, i)
			}
		case CInstruction:
			if v.Emit {
				idx = append(idx, i)
			}
		}
	}
	return idx
}

// ----------------------------------------------------------------------------
// Multi-destination assignment coalescing

// coalesceMultiDestination folds a single-dest assignment "X=expr" followed
// by "Y=X" into one instruction "X,Y=expr", provided Y isn't read in
// between: the second instruction's entire comp must be the bare register
// the first one just wrote. A candidate is any emitted C Instruction with a
// single-character Dest; once set, read_vars tracks every register any
// following non-candidate instruction's Comp reads, so a merge is refused if
// Y's old value was observed in between. The candidate resets whenever a
// jump, a multi-destination instruction, an emitted A Instruction or a label
// is seen (each can change control flow, the addressed cell, or write more
// than the merge could account for), but a failed merge attempt
// doesn't prevent the instruction that failed it from becoming the next
// candidate itself.
func coalesceMultiDestination(prog Program) {
	candidate := -1
	readVars := map[byte]bool{}

	pureAssign := func(jump string) bool { return jump == "" || jump == NoJump }

	for i, inst := range prog {
		switch v := inst.(type) {
		case AInstruction:
			if v.Emit {
				candidate = -1
			}
			continue
		case LabelInstr:
			candidate = -1
			continue
		}
		c, ok := inst.(CInstruction)
		if !ok || !c.Emit {
			continue
		}

		if candidate != -1 {
			cand := prog[candidate].(CInstruction)
			canOptimize := len(c.Dest) == 1 &&
				len(c.Comp) == 1 &&
				c.Comp == cand.Dest &&
				!readVars[c.Dest[0]]

			if canOptimize {
				c.Emit = false
				prog[i] = c

				cand.Dest = cand.Dest + "," + c.Dest
				prog[candidate] = cand

				candidate = -1
				continue
			}
		}

		if len(c.Dest) == 1 {
			candidate = i
			readVars = map[byte]bool{}
			continue
		}

		for _, reg := range "ADMW" {
			if strings.ContainsRune(c.Comp, reg) {
				readVars[byte(reg)] = true
			}
		}

		if !pureAssign(c.Jump) {
			candidate = -1
		}
		if len(c.Dest) > 1 {
			candidate = -1
		}
	}
}
