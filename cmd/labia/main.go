// Package main is the labia CLI: PDF ingestion for the lab QC retrieval collection.
package main

import (
	"fmt"
	"os"
)

var version = "dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "labia:", err)
		os.Exit(1)
	}
}
