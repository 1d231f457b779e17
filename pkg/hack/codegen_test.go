package hack_test

import (
	"fmt"
	"testing"

	"its-hmny.dev/nand2tetris/pkg/hack"
)

func TestEncodeA(t *testing.T) {
	table := hack.NewSymbolTable(hack.Compat)
	table.Set("Test1", 0)
	table.Set("Test2", 67)
	table.Set("hmny", 9393)
	table.Set("n2t", 754)
	table.Set("JUMP", 90)

	test := func(inst hack.AInstruction, expected string, fail bool) {
		res, _, err := hack.EncodeA(inst, table)
		if len(res) == 16 && res != expected {
			t.Fail()
		}
		if err != nil && !fail {
			t.Fail()
		}
	}

	t.Run("Raw memory access", func(t *testing.T) {
		test(hack.AInstruction{LocType: hack.Raw, LocName: "38"}, fmt.Sprintf("%016b", 38), false)
		test(hack.AInstruction{LocType: hack.Raw, LocName: "42"}, fmt.Sprintf("%016b", 42), false)
		test(hack.AInstruction{LocType: hack.Raw, LocName: "64"}, fmt.Sprintf("%016b", 64), false)
		test(hack.AInstruction{LocType: hack.Raw, LocName: "128"}, fmt.Sprintf("%016b", 128), false)
		test(hack.AInstruction{LocType: hack.Raw, LocName: "32767"}, fmt.Sprintf("%016b", 32767), false)
		// A negative literal has no 15 bit representation: it must be rejected
		test(hack.AInstruction{LocType: hack.Raw, LocName: "-1"}, "", true)
		// Literals past the 15 bit ceiling wrap around silently (with a warning, see below), they don't error
		test(hack.AInstruction{LocType: hack.Raw, LocName: "32768"}, fmt.Sprintf("%016b", 0), false)
		test(hack.AInstruction{LocType: hack.Raw, LocName: "70000"}, fmt.Sprintf("%016b", 70000&0x7FFF), false)
	})

	t.Run("Numeric literal formats", func(t *testing.T) {
		// Hex and binary literals resolve to the same address as their decimal form
		test(hack.AInstruction{LocType: hack.Raw, LocName: "0xFF"}, fmt.Sprintf("%016b", 255), false)
		test(hack.AInstruction{LocType: hack.Raw, LocName: "0b101"}, fmt.Sprintf("%016b", 5), false)
		test(hack.AInstruction{LocType: hack.Raw, LocName: "1_000"}, fmt.Sprintf("%016b", 1000), false)
		// Literals past the 15 bit ceiling are masked, not rejected; truncation is a warning not an error
		_, warns, err := hack.EncodeA(hack.AInstruction{LocType: hack.Raw, LocName: "0x8001"}, table)
		if err != nil || len(warns) == 0 {
			t.Fail()
		}
	})

	t.Run("Hack built-in labels", func(t *testing.T) {
		test(hack.AInstruction{LocType: hack.BuiltIn, LocName: "SP"}, fmt.Sprintf("%016b", 0), false)
		test(hack.AInstruction{LocType: hack.BuiltIn, LocName: "LCL"}, fmt.Sprintf("%016b", 1), false)
		test(hack.AInstruction{LocType: hack.BuiltIn, LocName: "ARG"}, fmt.Sprintf("%016b", 2), false)
		test(hack.AInstruction{LocType: hack.BuiltIn, LocName: "THIS"}, fmt.Sprintf("%016b", 3), false)
		test(hack.AInstruction{LocType: hack.BuiltIn, LocName: "THAT"}, fmt.Sprintf("%016b", 4), false)
		test(hack.AInstruction{LocType: hack.BuiltIn, LocName: "R13"}, fmt.Sprintf("%016b", 13), false)
		test(hack.AInstruction{LocType: hack.BuiltIn, LocName: "KBD"}, fmt.Sprintf("%016b", 24576), false)
		test(hack.AInstruction{LocType: hack.BuiltIn, LocName: "SCREEN"}, fmt.Sprintf("%016b", 16384), false)
	})

	t.Run("User-defined labels", func(t *testing.T) {
		test(hack.AInstruction{LocType: hack.Label, LocName: "Test1"}, fmt.Sprintf("%016b", 0), false)
		test(hack.AInstruction{LocType: hack.Label, LocName: "Test2"}, fmt.Sprintf("%016b", 67), false)
		test(hack.AInstruction{LocType: hack.Label, LocName: "hmny"}, fmt.Sprintf("%016b", 9393), false)
		test(hack.AInstruction{LocType: hack.Label, LocName: "n2t"}, fmt.Sprintf("%016b", 754), false)
		test(hack.AInstruction{LocType: hack.Label, LocName: "JUMP"}, fmt.Sprintf("%016b", 90), false)
		// Labels absent from the table are unresolved, not auto-allocated: that's SymbolTable.Resolve's job
		test(hack.AInstruction{LocType: hack.Label, LocName: "MISSING"}, "", true)
	})
}

func TestEncodeCCompat(t *testing.T) {
	test := func(inst hack.CInstruction, expected string, fail bool) {
		res, err := hack.EncodeC(inst, hack.Compat)
		if len(res) == 16 && res != expected {
			t.Fail()
		}
		if err != nil && !fail {
			t.Fail()
		}
	}

	t.Run("Comps and Jumps", func(t *testing.T) {
		test(hack.CInstruction{Comp: "M", Jump: ""}, "1111110000000000", false)
		test(hack.CInstruction{Comp: "A", Jump: ""}, "1110110000000000", false)
		test(hack.CInstruction{Comp: "0", Jump: "JGT"}, "1110101010000001", false)
		test(hack.CInstruction{Comp: "1", Jump: "JEQ"}, "1110111111000010", false)
		test(hack.CInstruction{Comp: "-1", Jump: "JEQ"}, "1110111010000010", false)
		test(hack.CInstruction{Comp: "D", Jump: "JGE"}, "1110001100000011", false)
		test(hack.CInstruction{Comp: "A", Jump: "JGE"}, "1110110000000011", false)
		test(hack.CInstruction{Comp: "!A", Jump: "JLT"}, "1110110001000100", false)
		test(hack.CInstruction{Comp: "!M", Jump: "JNE"}, "1111110001000101", false)
		test(hack.CInstruction{Comp: "-D", Jump: "JNE"}, "1110001111000101", false)
		test(hack.CInstruction{Comp: "-A", Jump: "JLE"}, "1110110011000110", false)
		test(hack.CInstruction{Comp: "-M", Jump: "JLE"}, "1111110011000110", false)
		test(hack.CInstruction{Comp: "D+1", Jump: "JMP"}, "1110011111000111", false)
		test(hack.CInstruction{Comp: "A+1", Jump: "JMP"}, "1110110111000111", false)
		test(hack.CInstruction{Comp: "M+1", Jump: ""}, "1111110111000000", false)
		test(hack.CInstruction{Comp: "D-1", Jump: ""}, "1110001110000000", false)
		test(hack.CInstruction{Comp: "A-1", Jump: "JGT"}, "1110110010000001", false)
		test(hack.CInstruction{Comp: "M-1", Jump: "JGT"}, "1111110010000001", false)
	})

	t.Run("Register with register and dest directives", func(t *testing.T) {
		test(hack.CInstruction{Comp: "D+A", Dest: ""}, "1110000010000000", false)
		test(hack.CInstruction{Comp: "D+M", Dest: ""}, "1111000010000000", false)
		test(hack.CInstruction{Comp: "D-A", Dest: "M"}, "1110010011001000", false)
		test(hack.CInstruction{Comp: "D-M", Dest: "M"}, "1111010011001000", false)
		test(hack.CInstruction{Comp: "A-D", Dest: "D"}, "1110000111010000", false)
		test(hack.CInstruction{Comp: "M-D", Dest: "D"}, "1111000111010000", false)
		test(hack.CInstruction{Comp: "D&A", Dest: "A"}, "1110000000100000", false)
		test(hack.CInstruction{Comp: "D&M", Dest: "A"}, "1111000000100000", false)
		test(hack.CInstruction{Comp: "D|A", Dest: "MD"}, "1110010101011000", false)
		test(hack.CInstruction{Comp: "D|M", Dest: "MD"}, "1111010101011000", false)
		test(hack.CInstruction{Comp: "M", Dest: "AM"}, "1111110000101000", false)
		test(hack.CInstruction{Comp: "A", Dest: "AM"}, "1110110000101000", false)
		test(hack.CInstruction{Comp: "0", Dest: "AD"}, "1110101010110000", false)
		test(hack.CInstruction{Comp: "1", Dest: "AD"}, "1110111111110000", false)
		test(hack.CInstruction{Comp: "-1", Dest: "AMD"}, "1110111010111000", false)
		test(hack.CInstruction{Comp: "D", Dest: "AMD"}, "1110001100111000", false)
		test(hack.CInstruction{Comp: "A", Dest: "AMD"}, "1110110000111000", false)
	})

	t.Run("Commutative operand order", func(t *testing.T) {
		// "A+D" is never a table entry, only "D+A" is; the encoder must retry reversed.
		lhs, err := hack.EncodeC(hack.CInstruction{Comp: "D+A", Dest: "M"}, hack.Compat)
		if err != nil {
			t.Fatal(err)
		}
		rhs, err := hack.EncodeC(hack.CInstruction{Comp: "A+D", Dest: "M"}, hack.Compat)
		if err != nil {
			t.Fatal(err)
		}
		if lhs != rhs {
			t.Fail()
		}
	})

	t.Run("Malformed instructions", func(t *testing.T) {
		test(hack.CInstruction{Comp: ""}, "", true)
		test(hack.CInstruction{Comp: "Q"}, "", true)
		test(hack.CInstruction{Comp: "D", Jump: "JBOGUS"}, "", true)
		// W is unavailable under the compat profile, whether in comp or dest
		test(hack.CInstruction{Comp: "W", Dest: "D"}, "", true)
		test(hack.CInstruction{Comp: "D", Dest: "W"}, "", true)
	})
}

func TestEncodeCExtended(t *testing.T) {
	test := func(inst hack.CInstruction, fail bool) string {
		res, err := hack.EncodeC(inst, hack.Extended)
		if err != nil && !fail {
			t.Fatalf("unexpected error for %+v: %s", inst, err)
		}
		if err == nil && fail {
			t.Fatalf("expected error for %+v", inst)
		}
		return res
	}

	t.Run("W register computations", func(t *testing.T) {
		bits := test(hack.CInstruction{Comp: "W", Dest: "D"}, false)
		if len(bits) != 16 || bits[1] != '0' { // notW bit must be 0 when comp reads W
			t.Fail()
		}
	})

	t.Run("W and M are mutually exclusive", func(t *testing.T) {
		test(hack.CInstruction{Comp: "W+M", Dest: "D"}, true)
	})

	t.Run("Multi-destination with W", func(t *testing.T) {
		bits := test(hack.CInstruction{Comp: "D", Dest: "AW"}, false)
		if len(bits) != 16 || bits[2] != '0' { // notD4 bit must be 0 when W is a destination
			t.Fail()
		}
	})
}
