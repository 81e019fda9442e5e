package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pletcher/kodon/pkg/resolver"
)

var lsCmd = &cobra.Command{
	Use:   "ls <urn>",
	Short: "List the descendant textparts of a citation node",
	Long: `Prints the URN of every textpart under the given node in
document order, one per line. A document URN lists the whole citation
hierarchy; a textpart URN lists itself and everything below it.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		conn, err := openStore()
		if err != nil {
			return err
		}
		defer conn.Close()

		parts, err := resolver.New(conn).Descendants(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		for _, tp := range parts {
			fmt.Println(tp.URN)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(lsCmd)
}
