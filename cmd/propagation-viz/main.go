package main

import (
	"context"
	"os"

	"github.com/santiagotion/sentinel-sub001/interfaces/cli"
)

func main() {
	if err := cli.Execute(context.Background()); err != nil {
		cli.Bad.Fprintf(os.Stderr, "propagation-viz: %v\n", err)
		os.Exit(1)
	}
}
