package main

import (
	"os"
)

var (
	// Version information injected at build time.
	GitCommit string = "unknown"
	BuildTime string = "unknown"
)

func main() {
	os.Exit(run())
}

func run() int {
	defer closeLogger()
	if err := rootCmd.Execute(); err != nil {
		return 1
	}
	return 0
}
