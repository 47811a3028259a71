// Command docgen generates an OpenAPI document from the structured
// docstrings of one application. A run either ends with the document written
// and zero errors, or with every collected error listed and nothing written.
package main

import (
	"fmt"
	"os"

	"github.com/CloudCIX/docgen/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
