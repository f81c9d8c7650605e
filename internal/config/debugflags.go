package config

import (
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// DebugFlags controls the optional tracing/instrumentation surface described
// in the interpreter's environment/debug-flags contract: disassembling
// compiled chunks, tracing executed instructions, logging GC activity, and
// forcing a collection before every allocation (stress mode).
type DebugFlags struct {
	DisassembleChunks bool `yaml:"disassemble"`
	TraceExecution    bool `yaml:"trace"`
	LogGC             bool `yaml:"gcLog"`
	StressGC          bool `yaml:"stressGC"`
}

// FileName is the debug-flag dotfile golox looks for, first in the current
// directory and then in the user's home directory.
const FileName = ".golox.yaml"

// LoadDebugFlags reads FileName from cwd, falling back to $HOME, and merges
// it over zero-valued defaults. A missing file is not an error.
func LoadDebugFlags() (DebugFlags, error) {
	var flags DebugFlags

	for _, dir := range candidateDirs() {
		path := filepath.Join(dir, FileName)
		data, err := os.ReadFile(path)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return flags, err
		}
		if err := yaml.Unmarshal(data, &flags); err != nil {
			return flags, err
		}
		return flags, nil
	}

	return flags, nil
}

func candidateDirs() []string {
	dirs := []string{"."}
	if home, err := os.UserHomeDir(); err == nil {
		dirs = append(dirs, home)
	}
	return dirs
}
