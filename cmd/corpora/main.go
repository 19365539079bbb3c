// Command corpora answers questions against a persisted document index.
package main

import (
	"fmt"
	"os"

	"github.com/corpora-labs/corpora-cli/internal/adapters/driving/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
