package main

import (
	"context"
	"fmt"
	"os"

	"github.com/coral-mesh/listquery/internal/cli"
)

func main() {
	if err := cli.Execute(context.Background()); err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
