// Package main is the entry point of the hustsync manager and worker.
package main

import (
	"os"

	"github.com/hustsync/hustsync/cmd/hustsync/app"
)

func main() {
	// environment-only logger until the root command has parsed its flags
	app.SetupLogging(nil)

	if err := app.NewRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
