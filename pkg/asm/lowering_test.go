package asm_test

import (
	"testing"

	"its-hmny.dev/nand2tetris/pkg/asm"
	"its-hmny.dev/nand2tetris/pkg/hack"
)

func TestLowererClassifiesAInstructions(t *testing.T) {
	prog := asm.Program{
		asm.AInstruction{Location: "42"},
		asm.AInstruction{Location: "0xFF"},
		asm.AInstruction{Location: "SCREEN"},
		asm.AInstruction{Location: "counter"},
		asm.CInstruction{Comp: "0", Jump: "JMP"},
	}

	l := asm.NewLowerer(prog, hack.Compat)
	lowered, err := l.Lower()
	if err != nil {
		t.Fatal(err)
	}

	want := []hack.LocationType{hack.Raw, hack.Raw, hack.BuiltIn, hack.Label}
	for i, locType := range want {
		a, ok := lowered[i].(hack.AInstruction)
		if !ok {
			t.Fatalf("expected hack.AInstruction at %d, got %T", i, lowered[i])
		}
		if a.LocType != locType {
			t.Fatalf("instruction %d: expected LocType %v, got %v", i, locType, a.LocType)
		}
	}
}

func TestLowererRejectsComp(t *testing.T) {
	prog := asm.Program{asm.CInstruction{Dest: "D", Comp: ""}}
	l := asm.NewLowerer(prog, hack.Compat)
	if _, err := l.Lower(); err == nil {
		t.Fatal("expected an error for a C Instruction missing 'comp'")
	}
}

func TestLowererRejectsRepeatedDest(t *testing.T) {
	prog := asm.Program{asm.CInstruction{Dest: "AA", Comp: "D"}}
	l := asm.NewLowerer(prog, hack.Compat)
	if _, err := l.Lower(); err == nil {
		t.Fatal("expected an error for a repeated destination register")
	}
}

func TestLowererInsertsNopsAroundMReadModifyWrite(t *testing.T) {
	prog := asm.Program{asm.CInstruction{Dest: "M", Comp: "M+1"}}

	t.Run("Compat profile never inserts nops", func(t *testing.T) {
		l := asm.NewLowerer(prog, hack.Compat)
		lowered, err := l.Lower()
		if err != nil {
			t.Fatal(err)
		}
		if len(lowered) != 1 {
			t.Fatalf("expected exactly 1 instruction under Compat, got %d", len(lowered))
		}
	})

	t.Run("Extended profile pads with a nop on each side", func(t *testing.T) {
		l := asm.NewLowerer(prog, hack.Extended)
		lowered, err := l.Lower()
		if err != nil {
			t.Fatal(err)
		}
		if len(lowered) != 3 {
			t.Fatalf("expected 3 instructions (nop, c-inst, nop), got %d", len(lowered))
		}
		first, ok := lowered[0].(hack.CInstruction)
		if !ok || !hack.IsNop(first) {
			t.Fatal("expected the first instruction to be a generated nop")
		}
		last, ok := lowered[2].(hack.CInstruction)
		if !ok || !hack.IsNop(last) {
			t.Fatal("expected the last instruction to be a generated nop")
		}
	})

	t.Run("A plain M read (no write) is never padded", func(t *testing.T) {
		l := asm.NewLowerer(asm.Program{asm.CInstruction{Dest: "D", Comp: "M"}}, hack.Extended)
		lowered, err := l.Lower()
		if err != nil {
			t.Fatal(err)
		}
		if len(lowered) != 1 {
			t.Fatalf("expected no nop padding for a plain read, got %d instructions", len(lowered))
		}
	})
}

func TestLowererConvertsLabelDecl(t *testing.T) {
	l := asm.NewLowerer(asm.Program{asm.LabelDecl{Name: "LOOP"}}, hack.Compat)
	lowered, err := l.Lower()
	if err != nil {
		t.Fatal(err)
	}
	label, ok := lowered[0].(hack.LabelInstr)
	if !ok || label.Name != "LOOP" {
		t.Fatalf("expected hack.LabelInstr{Name: \"LOOP\"}, got %+v", lowered[0])
	}
}

func TestLowererRejectsUnexpandedMacro(t *testing.T) {
	l := asm.NewLowerer(asm.Program{asm.MacroCall{Name: "call", Args: []string{"f", "0"}}}, hack.Compat)
	if _, err := l.Lower(); err == nil {
		t.Fatal("expected an error when a macro reaches the lowerer unexpanded")
	}
}
