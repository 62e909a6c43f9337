// Command textsearch indexes directories of text documents and answers
// TF-IDF ranked queries from the command line, an interactive shell or an
// HTTP API.
package main

import (
	"os"

	"github.com/Adithya-Monish-Kumar-K/textsearch/cmd/textsearch/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
