package main

import (
	"bytes"
	"fmt"
	"os"
	"strings"

	"github.com/teris-io/cli"
	"its-hmny.dev/nand2tetris/pkg/asm"
	"its-hmny.dev/nand2tetris/pkg/hack"
)

var Description = strings.ReplaceAll(`
The Hack Assembler takes assembly language code written in the Hack assembly language
and translates it into machine code that can be executed by the Hack computer. The process
involves parsing the assembly code, expanding any '$macro' invocation, resolving symbols,
optionally running the peephole optimiser, and generating machine code.
`, "\n", " ")

var optimizerPasses = map[string]hack.Pass{
	"all":                  hack.All,
	"loads":                hack.RedundantLoads,
	"consec_nops":          hack.ConsecutiveNops,
	"unneeded_nops":        hack.UnneededNops,
	"multidest_assignment": hack.MultiDestAssign,
}

var HackAssembler = cli.New(Description).
	WithOption(cli.NewOption("i", "The assembler (.asm) file to be compiled").WithChar('i').WithType(cli.TypeString)).
	WithOption(cli.NewOption("o", "The compiled binary output (.hack)").WithChar('o').WithType(cli.TypeString)).
	WithOption(cli.NewOption("C", "Enforce the strict compatibility profile (no 'W' register, bit-exact output)").WithChar('C').WithType(cli.TypeBool)).
	WithOption(cli.NewOption("P", "Pretty-print the emitted bits, grouped with '_' separators").WithChar('P').WithType(cli.TypeBool)).
	WithOption(cli.NewOption("A", "Annotate each line with its program counter and keep optimised-away instructions as comments").WithChar('A').WithType(cli.TypeBool)).
	WithOption(cli.NewOption("O", "Peephole passes to run: all|loads|consec_nops|unneeded_nops|multidest_assignment").WithChar('O').WithType(cli.TypeString)).
	WithOption(cli.NewOption("count", "Print the emitted instruction count to stderr").WithType(cli.TypeBool)).
	WithOption(cli.NewOption("E", "Stop after macro-expansion and dump the expanded '.asm' text instead of machine code").WithChar('E').WithType(cli.TypeBool)).
	WithAction(Handler)

func Handler(args []string, options map[string]string) int {
	inputPath, outputPath := options["i"], options["o"]
	if inputPath == "" || outputPath == "" {
		fmt.Println("ERROR: both '-i input' and '-o output' are required")
		return -1
	}

	input, err := os.ReadFile(inputPath)
	if err != nil {
		fmt.Printf("ERROR: Unable to open input file: %s\n", err)
		return -1
	}

	output, err := os.Create(outputPath)
	if err != nil {
		fmt.Printf("ERROR: Unable to open output file: %s\n", err)
		return -1
	}
	defer output.Close()

	profile := hack.Extended
	if optionSet(options, "C") {
		profile = hack.Compat
	}

	// Instantiate a parser for the Asm program
	parser := asm.NewParser(bytes.NewReader(input))
	// Parses the input file content and extract an AST (as a 'asm.Program') from it.
	asmProgram, err := parser.Parse()
	if err != nil {
		fmt.Printf("ERROR: Unable to complete 'parsing' pass: %s\n", err)
		return -1
	}

	// Expands every '$macro' call ($call, $return, $const, ...) into plain A/C Instructions.
	preprocessor := asm.NewPreprocessor()
	preprocessor.SetProfile(profile)
	expanded, err := preprocessor.Expand(asmProgram)
	if err != nil {
		fmt.Printf("ERROR: Unable to complete 'preprocessing' pass: %s\n", err)
		return -1
	}

	// With '-E' stop here and dump the macro-expanded source for inspection, skipping the
	// Hack-level lowering/encoding passes entirely.
	if optionSet(options, "E") {
		codegen := asm.NewCodeGenerator(expanded)
		lines, err := codegen.Generate()
		if err != nil {
			fmt.Printf("ERROR: Unable to complete 'codegen' pass: %s\n", err)
			return -1
		}
		for _, line := range lines {
			output.Write([]byte(line + "\n"))
		}
		return 0
	}

	// Instantiate a lowerer to convert the program from Asm to Hack
	lowerer := asm.NewLowerer(expanded, profile)
	// Lowers the asm.Program to an in-memory/IR representation of its Hack counterpart 'hack.Program'.
	hackProgram, err := lowerer.Lower()
	if err != nil {
		fmt.Printf("ERROR: Unable to complete 'lowering' pass: %s\n", err)
		return -1
	}

	opts := hack.Options{Profile: profile, Annotate: optionSet(options, "A"), PrettyPrint: optionSet(options, "P")}
	if raw, ok := options["O"]; ok {
		selected, err := parseOptimizerPasses(raw)
		if err != nil {
			fmt.Printf("ERROR: %s\n", err)
			return -1
		}
		opts.Optimize = selected
	}

	result, err := hack.Assemble(hackProgram, opts)
	if err != nil {
		fmt.Printf("ERROR: Unable to complete 'assembling' pass: %s\n", err)
		return -1
	}

	for _, line := range result.Lines {
		output.Write([]byte(line + "\n"))
	}
	for _, warning := range result.Warnings {
		fmt.Printf("WARNING: %s\n", warning)
	}
	if optionSet(options, "count") {
		fmt.Fprintf(os.Stderr, "instructions: %d\n", result.InstructionCount)
	}

	return 0
}

func optionSet(options map[string]string, name string) bool {
	_, ok := options[name]
	return ok
}

func parseOptimizerPasses(raw string) (hack.Pass, error) {
	var passes hack.Pass
	for _, name := range strings.Split(raw, ",") {
		name = strings.TrimSpace(name)
		pass, ok := optimizerPasses[name]
		if !ok {
			return 0, fmt.Errorf("unrecognized optimiser pass %q", name)
		}
		passes |= pass
	}
	return passes, nil
}

func main() { os.Exit(HackAssembler.Run(os.Args, os.Stdout)) }
