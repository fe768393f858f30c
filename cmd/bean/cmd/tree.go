package cmd

import (
	"fmt"
	"io"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/shunichi-ikebuchi/beancount-cli/pkg/ledger"
	"github.com/shunichi-ikebuchi/beancount-cli/pkg/logging"
)

// treeCmd represents the tree command.
var treeCmd = &cobra.Command{
	Use:     "tree [ledger-file]",
	Aliases: []string{"map"},
	Short:   "Show the include tree of the ledger",
	Long: `Print every file the ledger loads, nested under the file that
includes it. Paths are relative to the directory of the root ledger.

Example:
  bean tree
  bean tree ~/books/main.beancount`,
	Args: cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		exitOnError(runTree(streamsOf(cmd), args), "failed to show include tree")
	},
}

func runTree(s streams, args []string) error {
	path, err := ledgerFile(args)
	if err != nil {
		return err
	}
	snap, err := ledger.Load(path)
	if err != nil {
		return err
	}
	logger.WithField(logging.FieldCount, len(snap.Files())).Debug("Loaded include tree")

	fmt.Fprintln(s.out, filepath.Base(snap.Root()))
	printIncludes(s.out, snap, snap.Root(), "")
	return nil
}

func printIncludes(out io.Writer, snap *ledger.Snapshot, file, indent string) {
	children := snap.Includes(file)
	for i, child := range children {
		branch, next := "├── ", "│   "
		if i == len(children)-1 {
			branch, next = "└── ", "    "
		}
		name, err := filepath.Rel(snap.Dir(), child)
		if err != nil {
			name = child
		}
		fmt.Fprintf(out, "%s%s%s\n", indent, branch, name)
		printIncludes(out, snap, child, indent+next)
	}
}
