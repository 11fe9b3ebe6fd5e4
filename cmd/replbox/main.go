package main

import (
	"context"
	"fmt"
	"os"

	"github.com/urfave/cli/v3"
)

func main() {
	app := &cli.Command{
		Name:    "replbox",
		Version: Version,
		Usage:   "Local JavaScript playground with source-to-source compilation",
		Commands: []*cli.Command{
			versionCmd,
			serveCmd,
			compileCmd,
		},
	}

	if err := app.Run(context.Background(), os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
