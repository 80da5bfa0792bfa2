package main

import (
	"github.com/demuxlab/barcodex/cmd"
)

func main() {
	cmd.Execute()
}
