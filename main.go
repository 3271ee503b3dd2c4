// The main package for the stories executable.
package main

import (
	"github.com/sandeepAGI/ai-story-repo-sub000/cmd"
)

// main defers all execution to the Cobra CLI.
func main() {
	cmd.Execute()
}
