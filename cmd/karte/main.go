// Package main - karte CLI
package main

import (
	"os"

	"github.com/alwitt/karte/internal/cli"
	"github.com/apex/log"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		log.WithError(err).Error("karte failed")
		os.Exit(1)
	}
}
