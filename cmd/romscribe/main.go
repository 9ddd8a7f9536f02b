package main

import (
	"context"
	"errors"
	"fmt"
	"os"
)

func main() {
	if err := newRootCommand().ExecuteContext(context.Background()); err != nil {
		// Interrupted runs already reported their partial summary.
		if !errors.Is(err, context.Canceled) {
			fmt.Fprintln(os.Stderr, "romscribe:", err)
		}
		os.Exit(1)
	}
}
