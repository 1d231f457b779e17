package vm_test

import (
	"testing"

	"its-hmny.dev/nand2tetris/pkg/asm"
	"its-hmny.dev/nand2tetris/pkg/hack"
	"its-hmny.dev/nand2tetris/pkg/vm"
)

func lower(t *testing.T, module vm.Module, file string, profile hack.Profile) asm.Program {
	t.Helper()
	prog, err := vm.NewLowerer(module, file, profile).Lower()
	if err != nil {
		t.Fatalf("unexpected lowering error: %s", err)
	}
	return prog
}

// never touches 'SP' directly, asserting the same invariant macro_test.go checks for '$call'.
func assertNeverTouchesSP(t *testing.T, prog asm.Program) {
	t.Helper()
	for _, inst := range prog {
		if a, ok := inst.(asm.AInstruction); ok && a.Location == "SP" {
			t.Fatalf("extended profile lowering should never reference 'SP' directly, found it in: %+v", prog)
		}
	}
}

func TestLowerEmptyModule(t *testing.T) {
	_, err := vm.NewLowerer(vm.Module{}, "test", hack.Compat).Lower()
	if err == nil {
		t.Fatal("expected an error lowering an empty module")
	}
}

func TestLowerPushConstant(t *testing.T) {
	prog := lower(t, vm.Module{vm.MemoryOp{Operation: vm.Push, Segment: vm.Constant, Offset: 5}}, "test", hack.Compat)

	a, ok := prog[0].(asm.AInstruction)
	if !ok || a.Location != "5" {
		t.Fatalf("expected the literal to be loaded first, got %+v", prog[0])
	}
	c, ok := prog[1].(asm.CInstruction)
	if !ok || c.Dest != "D" || c.Comp != "A" {
		t.Fatalf("expected 'D=A' to move the literal into D, got %+v", prog[1])
	}
	// The remainder is PushD's fragment: @SP A=M; M=D; @SP M=M+1.
	if len(prog) != 7 {
		t.Fatalf("expected 7 instructions, got %d: %+v", len(prog), prog)
	}
}

func TestLowerPopLocalOffsetZero(t *testing.T) {
	prog := lower(t, vm.Module{vm.MemoryOp{Operation: vm.Pop, Segment: vm.Local, Offset: 0}}, "test", hack.Compat)

	base := prog[len(prog)-3].(asm.AInstruction)
	if base.Location != "LCL" {
		t.Fatalf("expected the destination address to dereference LCL, got %+v", base)
	}
	deref := prog[len(prog)-2].(asm.CInstruction)
	if deref.Dest != "A" || deref.Comp != "M" {
		t.Fatalf("expected 'A=M' to follow LCL's pointer, got %+v", deref)
	}
	write := prog[len(prog)-1].(asm.CInstruction)
	if write.Dest != "M" || write.Comp != "D" {
		t.Fatalf("expected the popped value to land in M, got %+v", write)
	}
}

func TestLowerPopArgumentWithOffsetStashesAddress(t *testing.T) {
	prog := lower(t, vm.Module{vm.MemoryOp{Operation: vm.Pop, Segment: vm.Argument, Offset: 3}}, "test", hack.Compat)

	foundStash := false
	for _, inst := range prog {
		if a, ok := inst.(asm.AInstruction); ok && a.Location == "R13" {
			foundStash = true
		}
	}
	if !foundStash {
		t.Fatalf("expected the computed address to be stashed in R13 before popping, got %+v", prog)
	}
}

func TestLowerConstantIsPushOnly(t *testing.T) {
	_, err := vm.NewLowerer(
		vm.Module{vm.MemoryOp{Operation: vm.Pop, Segment: vm.Constant, Offset: 0}}, "test", hack.Compat,
	).Lower()
	if err == nil {
		t.Fatal("expected popping into 'constant' to be a hard error")
	}
}

func TestLowerBinaryArithmeticOp(t *testing.T) {
	prog := lower(t, vm.Module{vm.ArithmeticOp{Operation: vm.Add}}, "test", hack.Compat)

	last := prog[len(prog)-1].(asm.CInstruction)
	if last.Dest != "M" || last.Comp != "D+M" {
		t.Fatalf("expected 'add' to compute 'M=D+M' at the merged slot, got %+v", last)
	}
}

func TestLowerCompareOpEmitsFreshEndLabel(t *testing.T) {
	prog := lower(t, vm.Module{vm.ArithmeticOp{Operation: vm.Eq}}, "test", hack.Compat)

	var labels []string
	for _, inst := range prog {
		if l, ok := inst.(asm.LabelDecl); ok {
			labels = append(labels, l.Name)
		}
	}
	if len(labels) != 1 || labels[0] != "test.COMPARE_END.1" {
		t.Fatalf("expected exactly one fresh end label, got %+v", labels)
	}

	// The tentative write must be -1 (all-ones boolean true), overwritten with 0 on fall-through,
	// in that order.
	tentative, fallthroughIdx := -1, -1
	for i, inst := range prog {
		if c, ok := inst.(asm.CInstruction); ok && c.Dest == "M" {
			switch c.Comp {
			case "-1":
				tentative = i
			case "0":
				fallthroughIdx = i
			}
		}
	}
	if tentative == -1 || fallthroughIdx == -1 || fallthroughIdx <= tentative {
		t.Fatalf("expected a tentative '-1' write (at %d) before a fall-through '0' (at %d)", tentative, fallthroughIdx)
	}
}

func TestLowerTwoCompareOpsGetDistinctLabels(t *testing.T) {
	prog := lower(t, vm.Module{
		vm.ArithmeticOp{Operation: vm.Eq},
		vm.ArithmeticOp{Operation: vm.Lt},
	}, "test", hack.Compat)

	var labels []string
	for _, inst := range prog {
		if l, ok := inst.(asm.LabelDecl); ok {
			labels = append(labels, l.Name)
		}
	}
	if len(labels) != 2 || labels[0] == labels[1] {
		t.Fatalf("expected two distinct end labels, got %+v", labels)
	}
}

func TestLowerDirectOpOnStatic(t *testing.T) {
	prog := lower(t, vm.Module{vm.DirectOp{Operation: vm.SClear, Segment: vm.Static, Offset: 2}}, "Main", hack.Extended)

	a := prog[0].(asm.AInstruction)
	if a.Location != "Main::STATIC2" {
		t.Fatalf("expected the static segment to namespace by file, got %+v", a)
	}
	c := prog[1].(asm.CInstruction)
	if c.Dest != "M" || c.Comp != "0" {
		t.Fatalf("expected 's_clear' to write M=0, got %+v", c)
	}
}

func TestLowerLabelAndGotoAreFunctionScoped(t *testing.T) {
	prog := lower(t, vm.Module{
		vm.FuncDecl{Name: "Main.loop", NLocal: 0},
		vm.LabelDecl{Name: "WHILE"},
		vm.GotoOp{Jump: vm.Unconditional, Label: "WHILE"},
	}, "Main", hack.Compat)

	var labels []asm.LabelDecl
	for _, inst := range prog {
		if l, ok := inst.(asm.LabelDecl); ok {
			labels = append(labels, l)
		}
	}
	if len(labels) != 2 || labels[0].Name != "Main.loop" || labels[1].Name != "Main.loop::WHILE" {
		t.Fatalf("expected the label to be scoped to the enclosing function, got %+v", labels)
	}

	last, ok := prog[len(prog)-2].(asm.AInstruction)
	if !ok || last.Location != "Main.loop::WHILE" {
		t.Fatalf("expected the goto to target the scoped label, got %+v", prog[len(prog)-2])
	}
}

func TestLowerConditionalGotoPopsFirst(t *testing.T) {
	prog := lower(t, vm.Module{vm.GotoOp{Jump: vm.Conditional, Label: "END"}}, "test", hack.Compat)

	jump := prog[len(prog)-1].(asm.CInstruction)
	if jump.Comp != "D" || jump.Jump != "JNE" {
		t.Fatalf("expected 'if-goto' to branch on D != 0, got %+v", jump)
	}
}

func TestLowerFuncDeclZeroesLocalsWithWalkingA(t *testing.T) {
	prog := lower(t, vm.Module{vm.FuncDecl{Name: "Main.new", NLocal: 3}}, "Main", hack.Compat)

	label, ok := prog[0].(asm.LabelDecl)
	if !ok || label.Name != "Main.new" {
		t.Fatalf("expected the function's own label first, got %+v", prog[0])
	}

	zeroWrites := 0
	for _, inst := range prog {
		if c, ok := inst.(asm.CInstruction); ok && c.Dest == "M" && c.Comp == "0" {
			zeroWrites++
		}
	}
	if zeroWrites != 3 {
		t.Fatalf("expected exactly 3 zero-writes for 3 locals, got %d", zeroWrites)
	}
}

func TestLowerFuncDeclWithNoLocalsSkipsStackWork(t *testing.T) {
	prog := lower(t, vm.Module{vm.FuncDecl{Name: "Main.noop", NLocal: 0}}, "Main", hack.Compat)
	if len(prog) != 1 {
		t.Fatalf("expected only the function label, got %+v", prog)
	}
}

func TestLowerFuncCallDelegatesToMacro(t *testing.T) {
	prog := lower(t, vm.Module{vm.FuncCallOp{Name: "Main.fibonacci", NArgs: 1}}, "test", hack.Compat)

	call, ok := prog[0].(asm.MacroCall)
	if !ok || call.Name != "call" || len(call.Args) != 2 || call.Args[0] != "Main.fibonacci" || call.Args[1] != "1" {
		t.Fatalf("expected a '$call Main.fibonacci 1' macro, got %+v", prog[0])
	}
}

func TestLowerReturnDelegatesToMacro(t *testing.T) {
	prog := lower(t, vm.Module{vm.ReturnOp{}}, "test", hack.Compat)

	ret, ok := prog[0].(asm.MacroCall)
	if !ok || ret.Name != "return" {
		t.Fatalf("expected a '$return' macro, got %+v", prog[0])
	}
}

func TestLowerExtendedProfileNeverTouchesSPDirectly(t *testing.T) {
	module := vm.Module{
		vm.MemoryOp{Operation: vm.Push, Segment: vm.Constant, Offset: 1},
		vm.MemoryOp{Operation: vm.Pop, Segment: vm.Local, Offset: 0},
		vm.ArithmeticOp{Operation: vm.Add},
		vm.ArithmeticOp{Operation: vm.Eq},
		vm.FuncDecl{Name: "Main.f", NLocal: 2},
	}
	assertNeverTouchesSP(t, lower(t, module, "test", hack.Extended))
}
