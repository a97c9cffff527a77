// Strata - Component tree manager for binary analysis databases.
//
// Strata ingests disassembler exports into a queryable database of
// functions, data variables and types, and overlays a named component
// hierarchy for organizing reverse engineering work.
package main

import (
	"fmt"
	"os"

	"github.com/strata-re/strata-go/cmd"
)

func main() {
	cli := cmd.NewCLI()

	if err := cli.Execute(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
