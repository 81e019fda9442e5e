package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pletcher/kodon/pkg/resolver"
)

var rangeCmd = &cobra.Command{
	Use:   "range <start-urn> <end-urn>",
	Short: "Print the tokens between two citation endpoints",
	Long: `Prints the token sequence between two endpoints in document
order, one URN per line, endpoints inclusive. Both endpoints must sit
under the same root citation node of the same document; textpart and
element endpoints contribute their first and last tokens.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		conn, err := openStore()
		if err != nil {
			return err
		}
		defer conn.Close()

		toks, err := resolver.New(conn).Range(cmd.Context(), args[0], args[1])
		if err != nil {
			return err
		}
		for _, tok := range toks {
			fmt.Println(tok.URN)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(rangeCmd)
}
