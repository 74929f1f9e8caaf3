package main

import (
	"os"

	"github.com/phillipshepard1/internal-re-crm-sub000/cmd/leadctl/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
