package hack_test

import (
	"testing"

	"its-hmny.dev/nand2tetris/pkg/hack"
)

func TestSymbolTablePredefined(t *testing.T) {
	t.Run("Compat profile has no scratch aliases", func(t *testing.T) {
		table := hack.NewSymbolTable(hack.Compat)
		if _, found := table.Get("T0"); found {
			t.Fail()
		}
		if addr, found := table.Get("SP"); !found || addr != 0 {
			t.Fail()
		}
		if addr, found := table.Get("SCREEN"); !found || addr != 16384 {
			t.Fail()
		}
	})

	t.Run("Extended profile adds T0-T2 aliasing R13-R15", func(t *testing.T) {
		table := hack.NewSymbolTable(hack.Extended)
		for name, want := range map[string]uint16{"T0": 13, "T1": 14, "T2": 15} {
			if addr, found := table.Get(name); !found || addr != want {
				t.Fail()
			}
		}
	})
}

func TestSymbolTableResolveLabels(t *testing.T) {
	program := hack.Program{
		hack.NewLabel("LOOP"),
		hack.NewCInstruction("D", "M", ""),
		hack.NewAInstruction(hack.Label, "LOOP"),
		hack.NewCInstruction("", "0", "JMP"),
	}

	table := hack.NewSymbolTable(hack.Compat)
	if err := table.Resolve(program); err != nil {
		t.Fatal(err)
	}

	if addr, found := table.Get("LOOP"); !found || addr != 0 {
		t.Fatalf("expected LOOP bound to PC 0, got %d (found=%v)", addr, found)
	}
}

func TestSymbolTableResolveVariables(t *testing.T) {
	program := hack.Program{
		hack.NewAInstruction(hack.Label, "counter"),
		hack.NewCInstruction("D", "M", ""),
		hack.NewAInstruction(hack.Label, "total"),
		hack.NewCInstruction("M", "D", ""),
		hack.NewAInstruction(hack.Label, "counter"), // re-reference must not reallocate
	}

	table := hack.NewSymbolTable(hack.Compat)
	if err := table.Resolve(program); err != nil {
		t.Fatal(err)
	}

	counter, found := table.Get("counter")
	if !found || counter != 16 {
		t.Fatalf("expected 'counter' allocated at 16, got %d (found=%v)", counter, found)
	}
	total, found := table.Get("total")
	if !found || total != 17 {
		t.Fatalf("expected 'total' allocated at 17, got %d (found=%v)", total, found)
	}
}

func TestSymbolTableResolveIsIdempotentAcrossOptimisation(t *testing.T) {
	program := hack.Program{
		hack.NewNop(), // generated nop with no M-touching neighbour, optimiser drops it
		hack.NewLabel("LOOP"),
		hack.NewCInstruction("", "0", "JMP"),
	}

	table := hack.NewSymbolTable(hack.Compat)
	if err := table.Resolve(program); err != nil {
		t.Fatal(err)
	}
	if addr, _ := table.Get("LOOP"); addr != 1 {
		t.Fatalf("expected LOOP at PC 1 before optimisation, got %d", addr)
	}

	hack.Optimize(program, hack.All)

	if err := table.Resolve(program); err != nil {
		t.Fatal(err)
	}
	if addr, _ := table.Get("LOOP"); addr != 0 {
		t.Fatalf("expected LOOP re-bound to PC 0 after the nop was dropped, got %d", addr)
	}
}

func TestSymbolTableRejectsInvalidNames(t *testing.T) {
	table := hack.NewSymbolTable(hack.Compat)

	t.Run("Leading digit", func(t *testing.T) {
		program := hack.Program{hack.NewAInstruction(hack.Label, "1LOOP"), hack.NewCInstruction("", "0", "")}
		if err := table.Resolve(program); err == nil {
			t.Fail()
		}
	})

	t.Run("Invalid character", func(t *testing.T) {
		program := hack.Program{hack.NewAInstruction(hack.Label, "bad name"), hack.NewCInstruction("", "0", "")}
		if err := table.Resolve(program); err == nil {
			t.Fail()
		}
	})
}

func TestSymbolTableUnusedLabels(t *testing.T) {
	program := hack.Program{
		hack.NewLabel("USED"),
		hack.NewCInstruction("", "0", ""),
		hack.NewLabel("DEAD"),
		hack.NewCInstruction("", "0", ""),
		hack.NewAInstruction(hack.Label, "USED"),
	}

	table := hack.NewSymbolTable(hack.Compat)
	if err := table.Resolve(program); err != nil {
		t.Fatal(err)
	}

	unused := table.UnusedLabels(program)
	if len(unused) != 1 || unused[0] != "DEAD" {
		t.Fatalf("expected only 'DEAD' reported unused, got %v", unused)
	}
}
