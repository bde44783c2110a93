package main

import (
	"os"

	"github.com/dagctl/dagctl/internal/cli"
)

func main() {
	os.Exit(cli.Execute())
}
