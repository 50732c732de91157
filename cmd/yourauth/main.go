package main

import (
	"fmt"
	"os"

	"git.sr.ht/~jakintosh/yourauth/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "yourauth: %v\n", err)
		os.Exit(1)
	}
}
