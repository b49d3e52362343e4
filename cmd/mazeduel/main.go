// Command mazeduel plays Maze Master vs Adventurers matches from the command
// line and serves the local HTTP control surface.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
