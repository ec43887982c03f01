// Command awsmcp serves the AWS cost and usage dispatcher, calls it, and
// runs the scheduled automation driver against it.
package main

import (
	"context"
	"fmt"
	"os"
)

func main() {
	if err := newRootCmd().ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
