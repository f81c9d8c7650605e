package repl

import (
	"bufio"
	"fmt"
	"io"
	"os"

	"github.com/loxlang/golox/internal/vm"
)

// Run reads one line at a time from in, interprets it with machine, and
// loops until EOF. Every line is appended to hist regardless of outcome.
// The "> " prompt is only printed when interactive, so piped input doesn't
// get prompt noise interleaved with its own output.
func Run(machine *vm.VM, hist *History, in io.Reader, out io.Writer, interactive bool) {
	scanner := bufio.NewScanner(in)
	for {
		if interactive {
			fmt.Fprint(out, "> ")
		}
		if !scanner.Scan() {
			return
		}
		line := scanner.Text()

		if err := hist.Append(line); err != nil {
			fmt.Fprintf(os.Stderr, "warning: could not record history: %v\n", err)
		}

		machine.Interpret(line)
	}
}
