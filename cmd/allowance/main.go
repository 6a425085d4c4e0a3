package main

import (
	"os"

	"github.com/pawbank/allowance/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
