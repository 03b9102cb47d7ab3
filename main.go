// The main package for the gradcafe executable.
package main

import (
	"github.com/JakeFAU/gradcafe-crawler/cmd"
)

// main defers all execution to the Cobra CLI.
func main() {
	cmd.Execute()
}
