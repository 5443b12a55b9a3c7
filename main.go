package main

import (
	"os"

	"github.com/canarysec/canary-scanner/cmd"
)

func main() {
	os.Exit(cmd.Execute())
}
