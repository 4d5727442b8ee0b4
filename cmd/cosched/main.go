// Command cosched runs, serves, and traces cooperative task scheduler
// programs described in YAML.
package main

import (
	"os"

	"github.com/me/cosched/internal/cli"
)

func main() {
	if err := cli.NewRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
