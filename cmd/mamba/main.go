package main

import (
	"os"

	"github.com/pbrit/mamba/internal/cmd"
)

func main() {
	os.Exit(cmd.Execute())
}
