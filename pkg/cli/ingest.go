package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/pletcher/kodon/pkg/ingest"
)

var (
	onDuplicateFlag string
	workersFlag     int
	statusVerbose   bool
)

var ingestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Corpus ingestion commands",
}

var ingestLoadCmd = &cobra.Command{
	Use:   "load <dir>",
	Short: "Load a directory of document files into the store",
	Long: `Discovers *.json and *.json.xz document files under the given
directory and commits each document as a single transaction.

Duplicate handling is controlled by --on-duplicate:
  reject   fail the file, keep the stored document (default)
  replace  drop the stored document and commit the new one
  skip     keep the stored document, count the file as skipped

Examples:
  kodon ingest load ./corpus
  kodon ingest load ./corpus --on-duplicate replace --workers 8`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		policyName := cfg.OnDuplicate
		if cmd.Flags().Changed("on-duplicate") {
			policyName = onDuplicateFlag
		}
		policy, err := ingest.ParsePolicy(policyName)
		if err != nil {
			return err
		}
		workers := cfg.Workers
		if cmd.Flags().Changed("workers") {
			workers = workersFlag
		}

		conn, err := openStore()
		if err != nil {
			return err
		}
		defer conn.Close()

		ig := ingest.NewIngester(conn)
		ig.Logger = logger
		ig.OnDuplicate = policy
		ig.Workers = workers

		var progressed bool
		ig.OnProgress = func(done, total int) {
			progressed = true
			fmt.Fprintf(os.Stderr, "\rLoading %d/%d", done, total)
		}

		summary, err := ig.IngestDir(cmd.Context(), args[0])
		if progressed {
			fmt.Fprintln(os.Stderr)
		}
		if err != nil {
			return err
		}

		fmt.Println(summary.String())
		return nil
	},
}

var ingestStatusCmd = &cobra.Command{
	Use:   "status <dir>",
	Short: "Check which document files are already loaded",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		conn, err := openStore()
		if err != nil {
			return err
		}
		defer conn.Close()

		statuses, err := ingest.Status(cmd.Context(), conn, args[0], cfg.Workers)
		if err != nil {
			return err
		}

		loaded := 0
		for _, st := range statuses {
			if st.Loaded {
				loaded++
			}
		}

		fmt.Printf("Total document files: %d\n", len(statuses))
		fmt.Printf("Loaded to database:   %d\n", loaded)
		if pending := len(statuses) - loaded; pending > 0 {
			fmt.Printf("\nPending load: %d files\n", pending)
		}

		if statusVerbose {
			fmt.Println("\nFile details:")
			for _, st := range statuses {
				switch {
				case st.Err != nil:
					fmt.Printf("  [!] %s (%v)\n", st.Path, st.Err)
				case st.Loaded:
					fmt.Printf("  [+] %s\n", st.Path)
				default:
					fmt.Printf("  [-] %s\n", st.Path)
				}
				if st.URN != "" {
					fmt.Printf("      URN: %s\n", st.URN)
				}
			}
		}
		return nil
	},
}

func init() {
	ingestLoadCmd.Flags().StringVar(&onDuplicateFlag, "on-duplicate", "", "Duplicate policy: reject, replace, or skip (default from config)")
	ingestLoadCmd.Flags().IntVar(&workersFlag, "workers", 0, "Concurrent document builds (default from config)")
	ingestStatusCmd.Flags().BoolVarP(&statusVerbose, "verbose", "v", false, "Show details for each file")

	ingestCmd.AddCommand(ingestLoadCmd)
	ingestCmd.AddCommand(ingestStatusCmd)
	rootCmd.AddCommand(ingestCmd)
}
