// Idiomatic entrypoint for the Cobra CLI; it delegates straight to the
// root command in cmd/gpufft/cmd/root.go.
package main

import (
	"github.com/arnek/gpufft/cmd/gpufft/cmd"
)

func main() {
	cmd.Execute()
}
