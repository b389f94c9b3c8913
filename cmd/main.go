package main

import (
	"os"

	"github.com/tapestry-kg/tapestry/cmd/tapestry"
)

func main() {
	if err := tapestry.Execute(); err != nil {
		os.Exit(1)
	}
}
