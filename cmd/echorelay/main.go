// Command echorelay is the entry point for the EchoRelay message
// enhancement service. It provides a CLI interface (via Cobra) and an
// optional HTTP server exposing the message, enhancement, and retrieval
// APIs.
package main

import (
	"fmt"
	"os"

	"github.com/echorelay/echorelay/cmd/echorelay/commands"
)

func main() {
	if err := commands.NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
