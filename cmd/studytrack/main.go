package main

import (
	"os"

	"github.com/nhle/studytrack/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
