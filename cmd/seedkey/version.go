package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

// Set at build time:
//
//	go build -ldflags "-X main.version=0.2.0 -X main.commit=$(git describe --always --dirty)"
var (
	version = "0.1.0"
	commit  = "unknown"
)

func versionString() string {
	return fmt.Sprintf("v%s-%s", version, commit)
}

func (a *app) newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  exactArgs(0),
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, err := fmt.Fprintf(a.stdout, "seedkey %s\n", versionString())
			return err
		},
	}
}
