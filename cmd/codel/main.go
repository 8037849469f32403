// codel CLI - compile, run, debug and serve colour-grid programs
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"

	"github.com/tliron/commonlog"

	"github.com/chazu/codel/compiler"
	"github.com/chazu/codel/grid"
	"github.com/chazu/codel/manifest"
	"github.com/chazu/codel/server"
	"github.com/chazu/codel/store"
	"github.com/chazu/codel/vm"

	_ "github.com/tliron/commonlog/simple"
)

func main() {
	compileOnly := flag.Bool("c", false, "Compile and print the disassembly")
	outFile := flag.String("o", "", "Write the compiled program (CBOR) to this file")
	loadFile := flag.String("load", "", "Run a compiled program (CBOR) instead of a grid")
	input := flag.String("input", "", "Program input (default: codel.toml, then stdin)")
	interp := flag.Bool("interp", false, "Walk the grid directly instead of compiling")
	debug := flag.Bool("d", false, "Start the interactive debugger")
	maxSteps := flag.Int("max-steps", 0, "Stop after this many steps (default: codel.toml or 100000)")
	palette := flag.String("palette", "", "List the command reached from this codel (e.g. 0 or a) to every colour")
	serveMode := flag.Bool("serve", false, "Start the debug server (Connect HTTP/JSON)")
	servePort := flag.Int("port", 0, "Debug server port (used with -serve)")
	dbPath := flag.String("db", "", "Program library database (used with -serve)")
	lspMode := flag.Bool("lsp", false, "Start the language server on stdio")
	verbosity := flag.Int("v", -1, "Log verbosity 0-4 (default: codel.toml)")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: codel [options] [grid.codel]\n\n")
		fmt.Fprintf(os.Stderr, "Runs a colour-grid program. Without a path, the program named in codel.toml is used.\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  codel hello.codel              # Compile and run\n")
		fmt.Fprintf(os.Stderr, "  codel -c hello.codel           # Print the disassembly\n")
		fmt.Fprintf(os.Stderr, "  codel -o hello.cbor hello.codel && codel -load hello.cbor\n")
		fmt.Fprintf(os.Stderr, "  codel -d -input '3 4' add.codel  # Debug with input\n")
		fmt.Fprintf(os.Stderr, "  codel -palette 0               # Commands from light red\n")
		fmt.Fprintf(os.Stderr, "\nServers:\n")
		fmt.Fprintf(os.Stderr, "  codel -serve -port 4700 -db codel.db\n")
		fmt.Fprintf(os.Stderr, "  codel -lsp\n")
	}
	flag.Parse()

	cwd, err := os.Getwd()
	if err != nil {
		fatalf("%v", err)
	}
	m, err := manifest.FindAndLoad(cwd)
	if err != nil {
		fatalf("%v", err)
	}
	if m == nil {
		m = manifest.Default(cwd)
	}

	level := m.Log.Verbosity
	if *verbosity >= 0 {
		level = *verbosity
	}
	commonlog.Configure(level, nil)

	if *maxSteps <= 0 {
		*maxSteps = m.Run.MaxSteps
	}
	if *servePort == 0 {
		*servePort = m.Server.Port
	}
	if *dbPath == "" {
		*dbPath = m.DatabasePath()
	}
	inputSet := isFlagSet("input")
	if !inputSet && m.Program.Input != "" {
		*input, inputSet = m.Program.Input, true
	}
	*interp = *interp || m.Run.Interpret

	opts, err := m.CompileOptions()
	if err != nil {
		fatalf("%v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	switch {
	case *palette != "":
		if err := printPalette(os.Stdout, *palette); err != nil {
			fatalf("%v", err)
		}
		return

	case *lspMode:
		if err := server.NewLSP(opts).Run(); err != nil {
			fatalf("LSP error: %v", err)
		}
		return

	case *serveMode:
		if err := serve(m, *servePort, *dbPath, *maxSteps); err != nil {
			fatalf("Server error: %v", err)
		}
		return

	case *loadFile != "":
		prog, err := readProgram(*loadFile)
		if err != nil {
			fatalf("%v", err)
		}
		if *compileOnly {
			fmt.Print(prog.DisassembleWithName(*loadFile))
			return
		}
		os.Exit(runStepper(ctx, vm.NewMachine(prog, programInput(*input, inputSet)), *maxSteps, level > 0))
	}

	path := m.ProgramPath()
	if flag.NArg() > 0 {
		path = flag.Arg(0)
	}
	g, err := readGrid(path)
	if err != nil {
		fatalf("%v", err)
	}

	if *debug {
		d, err := vm.NewDebugSession(g, vm.SessionOptions{Compile: opts, Interpret: *interp, Input: *input})
		if err != nil {
			fatalf("%v", err)
		}
		for _, bp := range m.Debug.Breakpoints {
			if err := setBreakpointAt(d, bp[0], bp[1]); err != nil {
				fmt.Fprintf(os.Stderr, "Warning: codel.toml breakpoint %v: %v\n", bp, err)
			}
		}
		runDebugger(ctx, d, os.Stdin, os.Stdout, *maxSteps)
		return
	}

	ectx, err := compiler.NewExecutionContext(g, nil)
	if err != nil {
		fatalf("%v", err)
	}

	if *interp {
		os.Exit(runStepper(ctx, vm.NewInterpreter(ectx, opts, programInput(*input, inputSet)), *maxSteps, level > 0))
	}

	prog, err := compiler.Compile(ectx, opts)
	if err != nil {
		fatalf("%v", err)
	}
	if *outFile != "" {
		if err := writeProgram(*outFile, prog); err != nil {
			fatalf("%v", err)
		}
	}
	if *compileOnly {
		fmt.Print(prog.DisassembleWithName(path))
		return
	}
	if *outFile != "" {
		return
	}
	os.Exit(runStepper(ctx, vm.NewMachine(prog, programInput(*input, inputSet)), *maxSteps, level > 0))
}

func fatalf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "Error: "+format+"\n", args...)
	os.Exit(1)
}

func isFlagSet(name string) bool {
	set := false
	flag.Visit(func(f *flag.Flag) {
		if f.Name == name {
			set = true
		}
	})
	return set
}

func programInput(text string, set bool) vm.Input {
	if set {
		return vm.NewStringInput(text)
	}
	return vm.NewReaderInput(os.Stdin)
}

// ---------------------------------------------------------------------------
// Files
// ---------------------------------------------------------------------------

func readGrid(path string) (*grid.Grid, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	g, err := grid.Parse(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return g, nil
}

func readProgram(path string) (*compiler.Program, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	prog, err := compiler.UnmarshalProgram(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return prog, nil
}

func writeProgram(path string, prog *compiler.Program) error {
	data, err := compiler.MarshalProgram(prog)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// ---------------------------------------------------------------------------
// Batch run
// ---------------------------------------------------------------------------

// runStepper runs s to completion and returns the process exit code.
func runStepper(ctx context.Context, s vm.Stepper, maxSteps int, verbose bool) int {
	res, err := vm.Run(ctx, s, maxSteps, func(snap vm.Snapshot) {
		if snap.Output != "" {
			fmt.Print(snap.Output)
		}
	})
	if verbose {
		fmt.Fprintf(os.Stderr, "\n%d steps, %d recoverable errors, stack %v\n", res.Steps, res.Errors, res.Stack)
	}
	if err != nil {
		if errors.Is(err, context.Canceled) {
			fmt.Fprintln(os.Stderr, "\ninterrupted")
			return 130
		}
		fmt.Fprintf(os.Stderr, "\nError: %v\n", err)
		return 1
	}
	return 0
}

// printPalette lists the command performed by moving from base to every
// colour.
func printPalette(w io.Writer, base string) error {
	r := []rune(strings.TrimSpace(base))
	if len(r) != 1 {
		return fmt.Errorf("palette: want one codel character, got %q", base)
	}
	v, ok := grid.CodelValue(r[0])
	if !ok {
		return fmt.Errorf("palette: unknown codel %q", r[0])
	}
	c := grid.Colour(v)
	if !c.Chromatic() {
		return fmt.Errorf("palette: %s has no commands", c)
	}

	fmt.Fprintf(w, "From %s (%c, %s):\n", c, grid.CodelChar(c), c.Hex())
	for _, e := range compiler.DefaultTable().Row(c) {
		if !e.Defined {
			continue
		}
		fmt.Fprintf(w, "  %c  %-15s %s\n", grid.CodelChar(e.Colour), e.Colour, e.Op)
	}
	return nil
}

// ---------------------------------------------------------------------------
// Servers
// ---------------------------------------------------------------------------

func serve(m *manifest.Manifest, port int, dbPath string, maxSteps int) error {
	ttl, err := m.SessionTTL()
	if err != nil {
		return err
	}
	st, err := store.Open(dbPath)
	if err != nil {
		return err
	}
	defer st.Close()

	srv := server.New(
		server.WithStore(st),
		server.WithMaxSteps(maxSteps),
		server.WithSessionTTL(ttl),
	)
	defer srv.Stop()
	return srv.ListenAndServe(fmt.Sprintf(":%d", port))
}
