// Command pushsort sorts the lines of a file, spilling sorted runs to disk
// when they do not fit in memory.
package main

import (
	"fmt"
	"os"

	"github.com/zoobzio/pushz/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "pushsort:", err)
		os.Exit(1)
	}
}
