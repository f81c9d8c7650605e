package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/mattn/go-isatty"

	"github.com/loxlang/golox/internal/config"
	"github.com/loxlang/golox/internal/repl"
	"github.com/loxlang/golox/internal/vm"
)

func main() {
	flags, err := config.LoadDebugFlags()
	if err != nil {
		fmt.Fprintf(os.Stderr, "lox: %v\n", err)
		os.Exit(74)
	}

	var (
		trace       = flag.Bool("trace", flags.TraceExecution, "trace each executed instruction")
		disassemble = flag.Bool("disassemble", flags.DisassembleChunks, "disassemble each compiled chunk")
		gcLog       = flag.Bool("gc-log", flags.LogGC, "log garbage collector activity")
		stressGC    = flag.Bool("stress-gc", flags.StressGC, "collect before every allocation")
		historyPath = flag.String("history", "", "sqlite path for REPL line history (default: in-memory)")
	)
	flag.Usage = func() {
		fmt.Fprintln(os.Stderr, "Usage: lox [path]")
	}
	flag.Parse()

	flags.TraceExecution = *trace
	flags.DisassembleChunks = *disassemble
	flags.LogGC = *gcLog
	flags.StressGC = *stressGC

	args := flag.Args()
	if len(args) > 1 {
		flag.Usage()
		os.Exit(0)
	}

	sessionID := uuid.New()
	if flags.LogGC {
		fmt.Fprintf(os.Stderr, "lox: session %s\n", sessionID)
	}

	machine := vm.New(flags, os.Stdout, os.Stderr)

	if len(args) == 1 {
		os.Exit(runFile(machine, args[0]))
	}
	os.Exit(runPrompt(machine, *historyPath))
}

func runFile(machine *vm.VM, path string) int {
	source, err := os.ReadFile(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "lox: %v\n", err)
		return 74
	}

	switch machine.Interpret(string(source)) {
	case vm.InterpretCompileError:
		return 65
	case vm.InterpretRuntimeError:
		return 70
	default:
		return 0
	}
}

func runPrompt(machine *vm.VM, historyPath string) int {
	hist, err := openHistory(historyPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "lox: %v; falling back to in-memory history\n", err)
		hist = repl.NewMemoryHistory()
	}
	defer hist.Close()

	interactive := isatty.IsTerminal(os.Stdin.Fd()) || isatty.IsCygwinTerminal(os.Stdin.Fd())
	repl.Run(machine, hist, os.Stdin, os.Stdout, interactive)
	return 0
}

func openHistory(path string) (*repl.History, error) {
	if path == "" {
		return repl.NewMemoryHistory(), nil
	}
	return repl.Open(path)
}
