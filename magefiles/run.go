//go:build mage

package main

import (
	"os"
	"path/filepath"

	"github.com/magefile/mage/mg"
	"github.com/magefile/mage/sh"
)

func binPath() string { return filepath.Join(binDir, binName) }

// Search builds the CLI and runs a PubMed search for TERMS, storing the
// records in the library.
func Search() error {
	mg.Deps(Build)
	terms := os.Getenv("TERMS")
	if terms == "" {
		terms = "crispr"
	}
	return sh.RunV(binPath(), "search", terms, "--store", "--format", "table")
}

// Serve builds the CLI and starts the HTTP API on ADDR (default :8080).
func Serve() error {
	mg.Deps(Build, Init)
	args := []string{"serve"}
	if addr := os.Getenv("ADDR"); addr != "" {
		args = append(args, "--addr", addr)
	}
	return sh.RunV(binPath(), args...)
}
