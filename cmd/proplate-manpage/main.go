package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra/doc"

	"github.com/yumet023/proplate/cmd/proplate"
	"github.com/yumet023/proplate/internal/version"
)

func main() {
	rootCmd := proplate.NewRootCmd()

	header := &doc.GenManHeader{
		Title:   "PROPLATE",
		Section: "1",
		Source:  "proplate " + version.Version,
		Manual:  "proplate manual",
	}

	if err := doc.GenMan(rootCmd, header, os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "Error generating man page: %v\n", err)
		os.Exit(1)
	}
}
