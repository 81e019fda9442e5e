package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pletcher/kodon/pkg/db"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show store row counts",
	Long: `Displays row counts for the whole store and per document.

Examples:
  kodon stats
  kodon stats --db ./corpus.db`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		conn, err := openStore()
		if err != nil {
			return err
		}
		defer conn.Close()

		stats, err := db.GetStats(conn)
		if err != nil {
			return err
		}

		fmt.Printf("Documents: %d\n", stats.Documents)
		fmt.Printf("Textparts: %d\n", stats.Textparts)
		fmt.Printf("Elements:  %d\n", stats.Elements)
		fmt.Printf("Tokens:    %d\n", stats.Tokens)

		docs, err := db.ListDocuments(conn)
		if err != nil {
			return err
		}
		if len(docs) == 0 {
			return nil
		}

		fmt.Println()
		for _, d := range docs {
			counts, err := db.GetDocumentCounts(conn, d.URN)
			if err != nil {
				return err
			}
			fmt.Printf("%s (%s): %d textparts, %d elements, %d tokens\n",
				d.URN, d.Lang, counts.Textparts, counts.Elements, counts.Tokens)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(statsCmd)
}
