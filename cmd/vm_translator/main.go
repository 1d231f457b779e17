package main

import (
	"bytes"
	"fmt"
	"os"
	"path"
	"strconv"
	"strings"

	"github.com/teris-io/cli"
	"its-hmny.dev/nand2tetris/pkg/asm"
	"its-hmny.dev/nand2tetris/pkg/hack"
	"its-hmny.dev/nand2tetris/pkg/vm"
)

var Description = strings.ReplaceAll(`
The VM Translator translates programs (composed of multiple modules/files) written in
the VM language into Hack assembly code that can be further elaborated. The VM language
is a higher-level (bytecode'like) language tailored for use with the Hack computer arch.
`, "\n", " ")

var VmTranslator = cli.New(Description).
	// 'AsOptional()' allows to have more than one input .vm file
	WithArg(cli.NewArg("inputs", "The bytecode (.vm) file(s) to be compiled").
		AsOptional().WithType(cli.TypeString)).
	WithOption(cli.NewOption("o", "The compiled output (Hack machine code, or '.asm' text with -A)").WithChar('o').WithType(cli.TypeString)).
	WithOption(cli.NewOption("C", "Enforce the strict compatibility profile (no 'W' register)").WithChar('C').WithType(cli.TypeBool)).
	WithOption(cli.NewOption("A", "Annotate the translation: write readable, macro-expanded '.asm' instead of machine code").WithChar('A').WithType(cli.TypeBool)).
	WithOption(cli.NewOption("LCL", "Initial LCL segment base, overriding the bootstrap default").WithType(cli.TypeString)).
	WithOption(cli.NewOption("ARG", "Initial ARG segment base, overriding the bootstrap default").WithType(cli.TypeString)).
	WithOption(cli.NewOption("THIS", "Initial THIS segment base, overriding the bootstrap default").WithType(cli.TypeString)).
	WithOption(cli.NewOption("THAT", "Initial THAT segment base, overriding the bootstrap default").WithType(cli.TypeString)).
	WithOption(cli.NewOption("RAM", "One or more 'AAA=VVV' RAM overrides applied during bootstrap, comma separated").WithType(cli.TypeString)).
	WithOption(cli.NewOption("no-init", "Skip the bootstrap sequence entirely").WithType(cli.TypeBool)).
	WithOption(cli.NewOption("init-function", "Function the bootstrap hands off to (default 'Sys.init')").WithType(cli.TypeString)).
	WithAction(Handler)

func Handler(args []string, options map[string]string) int {
	if len(args) < 1 || options["o"] == "" {
		fmt.Printf("ERROR: at least one '.vm' input and '-o output' are required, use --help\n")
		return -1
	}

	output, err := os.Create(options["o"])
	if err != nil {
		fmt.Printf("ERROR: Unable to open output file: %s\n", err)
		return -1
	}
	defer output.Close()

	profile := hack.Extended
	if _, compat := options["C"]; compat {
		profile = hack.Compat
	}

	// Allocates a 'vm.Program' struct to save all the parsed translation units (the .vm files)
	// that will be lowered independently, namespaced by file, and then linked into one program.
	program := vm.Program{}

	for _, input := range args {
		content, err := os.ReadFile(input)
		if err != nil {
			fmt.Printf("ERROR: Unable to open input file: %s\n", err)
			return -1
		}

		module, err := vm.NewParser(bytes.NewReader(content)).Parse()
		if err != nil {
			fmt.Printf("ERROR: Unable to complete 'parsing' pass on %q: %s\n", input, err)
			return -1
		}
		name := path.Base(input)
		name = strings.TrimSuffix(name, path.Ext(name))
		program[name] = module
	}

	translator := &vm.Translator{Profile: profile}
	if _, noInit := options["no-init"]; noInit {
		translator.NoInit = true
	}
	if fn, ok := options["init-function"]; ok {
		translator.InitFunction = fn
	}
	for _, override := range []struct {
		name string
		dest **uint16
	}{{"LCL", &translator.LCL}, {"ARG", &translator.ARG}, {"THIS", &translator.THIS}, {"THAT", &translator.THAT}} {
		v, ok := options[override.name]
		if !ok {
			continue
		}
		*override.dest, err = parseUint16Option(override.name, v)
		if err != nil {
			fmt.Printf("ERROR: %s\n", err)
			return -1
		}
	}
	if raw, ok := options["RAM"]; ok {
		translator.RAM, err = parseRAMOverrides(raw)
		if err != nil {
			fmt.Printf("ERROR: %s\n", err)
			return -1
		}
	}

	// Links every translation unit into one (still macro-laden) asm.Program.
	asmProgram, err := translator.Translate(program)
	if err != nil {
		fmt.Printf("ERROR: Unable to complete 'translation' pass: %s\n", err)
		return -1
	}

	// Expands every '$call'/'$return' macro the translator emitted into plain A/C Instructions.
	preprocessor := asm.NewPreprocessor()
	preprocessor.SetProfile(profile)
	expanded, err := preprocessor.Expand(asmProgram)
	if err != nil {
		fmt.Printf("ERROR: Unable to complete 'preprocessing' pass: %s\n", err)
		return -1
	}

	// With '-A' the output stays assembly text, one macro-expansion pass deep, for inspection;
	// otherwise it is lowered and assembled all the way down to machine code.
	if _, annotate := options["A"]; annotate {
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

	lowerer := asm.NewLowerer(expanded, profile)
	hackProgram, err := lowerer.Lower()
	if err != nil {
		fmt.Printf("ERROR: Unable to complete 'lowering' pass: %s\n", err)
		return -1
	}

	result, err := hack.Assemble(hackProgram, hack.Options{Profile: profile})
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

	return 0
}

func parseUint16Option(name, raw string) (*uint16, error) {
	value, err := strconv.ParseUint(raw, 0, 16)
	if err != nil {
		return nil, fmt.Errorf("invalid --%s value %q: %w", name, raw, err)
	}
	casted := uint16(value)
	return &casted, nil
}

func parseRAMOverrides(raw string) ([]vm.RAMOverride, error) {
	var overrides []vm.RAMOverride
	for _, entry := range strings.Split(raw, ",") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		parts := strings.SplitN(entry, "=", 2)
		if len(parts) != 2 {
			return nil, fmt.Errorf("invalid --RAM entry %q, expected 'AAA=VVV'", entry)
		}
		addr, err := strconv.ParseUint(strings.TrimSpace(parts[0]), 0, 16)
		if err != nil {
			return nil, fmt.Errorf("invalid --RAM address in %q: %w", entry, err)
		}
		value, err := strconv.ParseUint(strings.TrimSpace(parts[1]), 0, 16)
		if err != nil {
			return nil, fmt.Errorf("invalid --RAM value in %q: %w", entry, err)
		}
		overrides = append(overrides, vm.RAMOverride{Address: uint16(addr), Value: uint16(value)})
	}
	return overrides, nil
}

func main() { os.Exit(VmTranslator.Run(os.Args, os.Stdout)) }
