package main

import (
	"os"

	"github.com/hanulsoft/kistrader/cmd/kistrader/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
