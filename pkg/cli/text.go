package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pletcher/kodon/pkg/resolver"
)

var textCmd = &cobra.Command{
	Use:   "text <urn>",
	Short: "Print the reconstructed text of a passage",
	Long: `Reassembles the stored tokens of the cited passage into running
text. Textpart and element URNs cover their whole subtree; a document
URN prints every passage, one per line.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		conn, err := openStore()
		if err != nil {
			return err
		}
		defer conn.Close()

		text, err := resolver.New(conn).Text(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		fmt.Println(text)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(textCmd)
}
