package main

import (
	"os"

	"go.pilab.hu/storefront/cmd/storefront/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
