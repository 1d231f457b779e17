package asm_test

import (
	"testing"

	"its-hmny.dev/nand2tetris/pkg/asm"
	"its-hmny.dev/nand2tetris/pkg/hack"
)

// Under Extended profile the W register caches the stack pointer, so none of the push/pop
// plumbing inside '$call'/'$return' should ever touch the 'SP' memory cell directly.
func TestExtendedProfileCallNeverTouchesSPMemoryCell(t *testing.T) {
	pp := asm.NewPreprocessor()
	pp.SetProfile(hack.Extended)

	expanded, err := pp.Expand(asm.Program{asm.MacroCall{Name: "call", Args: []string{"Main.fibonacci", "1"}}})
	if err != nil {
		t.Fatal(err)
	}
	for _, inst := range expanded {
		if a, ok := inst.(asm.AInstruction); ok && a.Location == "SP" {
			t.Fatalf("extended profile call expansion should never reference 'SP' directly, found it in: %+v", expanded)
		}
	}
}

// Under Compat profile (the zero value, no SetProfile call) push/pop must still route through
// the real 'SP' memory cell, preserving bit-exact compatibility with the reference assembler.
func TestCompatProfileCallRoutesThroughSPMemoryCell(t *testing.T) {
	pp := asm.NewPreprocessor()

	expanded, err := pp.Expand(asm.Program{asm.MacroCall{Name: "call", Args: []string{"Main.fibonacci", "1"}}})
	if err != nil {
		t.Fatal(err)
	}
	found := false
	for _, inst := range expanded {
		if a, ok := inst.(asm.AInstruction); ok && a.Location == "SP" {
			found = true
		}
	}
	if !found {
		t.Fatal("expected the compat profile expansion to reference 'SP' directly")
	}
}
