package main

import (
	"fmt"
	"os"

	"github.com/kilianp07/simforecast/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "simforecast:", err)
		os.Exit(1)
	}
}
