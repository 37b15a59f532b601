package main

import (
	"os"

	"github.com/kulmaganbetov/overbot123/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
