// Command bm25 ranks a JSON-lines corpus from the command line.
package main

import (
	"os"

	"github.com/Adithya-Monish-Kumar-K/rankengine/cmd/bm25/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
