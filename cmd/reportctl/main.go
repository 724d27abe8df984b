package main

import (
	"os"

	"github.com/pagewise/bookstore/backend/cmd/reportctl/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
