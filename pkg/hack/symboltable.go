package hack

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"unicode"
)

// ----------------------------------------------------------------------------
// Symbol Table

// SymbolTable maps every label and variable name in a Program to its resolved
// 16 bit address. It is seeded with the Hack spec's predefined symbols for its
// profile (see PredefinedSymbols) and grows as Resolve walks a Program.
//
// Resolution happens in two passes over the same Program, run back to back by
// a single call to Resolve: first every label declaration is bound to the
// program counter of the instruction that follows it, then every unresolved
// A Instruction operand is treated as a variable and assigned the next free
// RAM cell starting at address 16. Resolve is meant to be called twice by the
// assembler core: once before the peephole optimiser runs and once after,
// since deleting instructions shifts every label's program counter.
type SymbolTable struct {
	symbols    map[string]uint16
	labelNames map[string]bool // subset of 'symbols' bound by a label pass, not a variable pass
	nextVar    uint16
}

// NewSymbolTable returns a SymbolTable seeded with the predefined symbols for profile.
func NewSymbolTable(profile Profile) *SymbolTable {
	st := &SymbolTable{symbols: map[string]uint16{}, labelNames: map[string]bool{}, nextVar: 16}
	for name, addr := range PredefinedSymbols(profile) {
		st.symbols[name] = addr
	}
	return st
}

// Get looks up a resolved symbol by name.
func (st *SymbolTable) Get(name string) (uint16, bool) {
	addr, found := st.symbols[name]
	return addr, found
}

// Set forces a symbol to a given address, overriding any existing binding.
// (The ASM preprocessor's '$const' macro does not go through here: it
// substitutes constants into the source before lowering.)
func (st *SymbolTable) Set(name string, addr uint16) {
	st.symbols[name] = addr
}

// Resolve performs the label pass followed by the variable pass over prog,
// mutating the table in place. It is idempotent w.r.t. already-resolved
// symbols: a second call (post-optimisation) only re-binds labels to their
// possibly-shifted program counters and never reassigns a variable that
// already has an address.
func (st *SymbolTable) Resolve(prog Program) error {
	pc := uint16(0)
	seen := map[string]bool{}

	for _, inst := range prog {
		switch v := inst.(type) {
		case LabelInstr:
			if err := validateSymbolName(v.Name); err != nil {
				return err
			}
			if seen[v.Name] {
				return fmt.Errorf("label %q redefined (was %d, now %d)", v.Name, st.symbols[v.Name], pc)
			}
			seen[v.Name] = true
			st.symbols[v.Name] = pc
			st.labelNames[v.Name] = true
		case AInstruction:
			if v.Emit {
				pc++
			}
		case CInstruction:
			if v.Emit {
				pc++
			}
		}
	}

	// Variable pass: walk in source order so first-seen-wins allocation is
	// deterministic across runs (no reliance on Go's randomised map order).
	for _, inst := range prog {
		a, ok := inst.(AInstruction)
		if !ok || !a.Emit || a.LocType != Label {
			continue
		}
		if _, exists := st.symbols[a.LocName]; exists {
			continue
		}
		if err := validateSymbolName(a.LocName); err != nil {
			return err
		}
		if st.nextVar >= MaxAddressableMemory {
			return fmt.Errorf("out of RAM allocating variable %q", a.LocName)
		}
		st.symbols[a.LocName] = st.nextVar
		st.nextVar++
	}

	return nil
}

// UnusedLabels returns, in sorted order, every label bound by the label pass
// that no A Instruction in prog ever references. Used to surface the
// dead-label hygiene warning from §7.
func (st *SymbolTable) UnusedLabels(prog Program) []string {
	referenced := map[string]bool{}
	for _, inst := range prog {
		if a, ok := inst.(AInstruction); ok && a.LocType == Label {
			referenced[a.LocName] = true
		}
	}

	unused := make([]string, 0)
	for name := range st.labelNames {
		if !referenced[name] {
			unused = append(unused, name)
		}
	}
	sort.Strings(unused)
	return unused
}

func validateSymbolName(name string) error {
	if name == "" {
		return errors.New("symbol name cannot be empty")
	}
	for i, r := range name {
		if i == 0 && unicode.IsDigit(r) {
			return fmt.Errorf("symbol %q cannot start with a digit", name)
		}
		if !isSymbolChar(r) {
			return fmt.Errorf("symbol %q contains invalid character %q", name, string(r))
		}
	}
	return nil
}

func isSymbolChar(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r) || strings.ContainsRune("_.$:", r)
}
