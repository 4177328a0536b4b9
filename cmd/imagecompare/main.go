// Package main provides the entry point for the imagecompare CLI.
package main

import (
	"os"

	"github.com/toshas/imagecompare/cmd/imagecompare/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
