package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pletcher/kodon/pkg/resolver"
)

var childrenCmd = &cobra.Command{
	Use:   "children <urn>",
	Short: "List the direct children of a node",
	Long: `Prints the URN of each direct child, one per line. A document
lists its root textparts and document-scoped elements; a textpart lists
its child textparts and top-level elements; an element lists its child
elements and direct tokens.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		conn, err := openStore()
		if err != nil {
			return err
		}
		defer conn.Close()

		nodes, err := resolver.New(conn).Children(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		for _, n := range nodes {
			fmt.Println(n.URN())
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(childrenCmd)
}
