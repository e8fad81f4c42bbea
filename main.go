// The main package for the leadgen executable.
package main

import (
	"github.com/skillverse/leadgen/cmd"
)

func main() {
	cmd.Execute()
}
