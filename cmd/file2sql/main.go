// file2sql watches a directory tree for CSV files and mirrors each one into a
// relational table.
package main

import (
	"os"

	"github.com/hupe1980/file2sql/internal/cli"
)

func main() {
	os.Exit(cli.Execute())
}
