package main

import (
	"os"

	"github.com/josephlewis42/mpwsh/cmd"
)

func main() {
	os.Exit(cmd.Execute())
}
