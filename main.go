package main

import (
	"fmt"
	"os"

	"ssupscaler/cmd/cli"
)

const (
	exitErrorTemplateConstant = "%v\n"
)

// main executes the ssupscaler command-line application.
func main() {
	if executionError := cli.Execute(); executionError != nil {
		fmt.Fprintf(os.Stderr, exitErrorTemplateConstant, executionError)
		os.Exit(1)
	}
}
