// Package main is the entry point of the CAPM portfolio selector.
//
// Usage:
//
//	capm run                 # run one selection and exit
//	capm serve               # HTTP API plus scheduled runs
//	capm --config capm.yaml run
package main

import (
	"os"

	"github.com/aristath/capm/cmd/capm/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
