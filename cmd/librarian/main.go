// Command librarian reorganizes the category tree of a text catalog.
package main

import (
	"os"

	"github.com/mesh-intelligence/librarian/internal/cli"
)

func main() {
	os.Exit(cli.Execute())
}
