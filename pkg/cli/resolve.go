package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/pletcher/kodon/pkg/resolver"
)

var resolveCmd = &cobra.Command{
	Use:   "resolve <urn>",
	Short: "Look up the node a URN names",
	Long: `Resolves a URN against the store by exact match and prints the
node's kind and fields. Documents, textparts, elements, and tokens are
tried in that order.

Examples:
  kodon resolve urn:cts:greekLit:tlg0012.tlg001.msA-grc1:1.1
  kodon resolve 'urn:cts:greekLit:tlg0012.tlg001.msA-grc1:1.1@Μῆνιν[1]'`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		conn, err := openStore()
		if err != nil {
			return err
		}
		defer conn.Close()

		node, err := resolver.New(conn).Resolve(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		printNode(node)
		return nil
	},
}

func printNode(n *resolver.Node) {
	fmt.Printf("kind:     %s\n", n.Kind)
	fmt.Printf("urn:      %s\n", n.URN())
	switch n.Kind {
	case resolver.KindDocument:
		fmt.Printf("lang:     %s\n", n.Document.Lang)
		fmt.Printf("created:  %s\n", n.Document.CreatedAt.Format(time.RFC3339))
	case resolver.KindTextpart:
		fmt.Printf("document: %s\n", n.Textpart.DocumentURN)
		fmt.Printf("location: %s\n", n.Textpart.Location)
		fmt.Printf("subtype:  %s\n", n.Textpart.Subtype)
		fmt.Printf("n:        %s\n", n.Textpart.N)
	case resolver.KindElement:
		fmt.Printf("document: %s\n", n.Element.DocumentURN)
		fmt.Printf("tagname:  %s\n", n.Element.Tagname)
		if n.Element.TextpartID != 0 {
			fmt.Printf("textpart: %s\n", n.Element.TextpartURN)
		}
		if n.Element.Attributes != "" && n.Element.Attributes != "{}" {
			fmt.Printf("attrs:    %s\n", n.Element.Attributes)
		}
	case resolver.KindToken:
		fmt.Printf("document: %s\n", n.Token.DocumentURN)
		fmt.Printf("text:     %s\n", n.Token.Text)
		fmt.Printf("position: %d\n", n.Token.Position)
	}
}

func init() {
	rootCmd.AddCommand(resolveCmd)
}
