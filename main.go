package main

import (
	"github.com/royo00/music/cmd"
)

func main() {
	cmd.Execute()
}
