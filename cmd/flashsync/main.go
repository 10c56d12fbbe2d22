package main

import (
	"os"
)

func main() {
	os.Exit(runMain(&DefaultConfigLoader{}))
}

// runMain builds the root command from loader, executes it, and returns
// the process exit code.
func runMain(loader ConfigLoader) int {
	cmd := NewRootCmd(loader)
	if err := cmd.Execute(); err != nil {
		return 1
	}
	return 0
}
