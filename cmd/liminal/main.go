package main

import (
	"fmt"
	"os"
)

func main() {
	if err := Execute(); err != nil {
		fatal(err)
		os.Exit(1)
	}
}

func fatal(err error) {
	fmt.Fprintln(os.Stderr, err)
}
