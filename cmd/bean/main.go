// Package main is the entry point for the bean CLI.
package main

import (
	"os"

	"github.com/shunichi-ikebuchi/beancount-cli/cmd/bean/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
