package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show the vault audit log",
	Long:  `Show the append-only audit log of vault operations, newest first.`,
	RunE:  runHistory,
}

var (
	historyLimitFlag int
	historyJSONFlag  bool
)

func init() {
	rootCmd.AddCommand(historyCmd)

	historyCmd.Flags().IntVarP(&historyLimitFlag, "limit", "n", 20, "number of entries to show")
	historyCmd.Flags().BoolVar(&historyJSONFlag, "json", false, "output as JSON")
}

func runHistory(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	store, err := initStore()
	if err != nil {
		return err
	}
	defer store.Close()

	entries, err := store.ListEvents(ctx, historyLimitFlag)
	if err != nil {
		return fmt.Errorf("failed to list events: %w", err)
	}

	if historyJSONFlag {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(entries)
	}

	if len(entries) == 0 {
		fmt.Println("No events recorded.")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "TIME\tTYPE\tLOCK\tTOKEN\tCALLER")
	fmt.Fprintln(w, "----\t----\t----\t-----\t------")
	for _, e := range entries {
		lockID := "-"
		if e.LockID != nil {
			lockID = fmt.Sprintf("#%d", *e.LockID)
		}
		token := e.PositionTokenID
		if token == "" {
			token = "-"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
			e.CreatedAt.Format(time.RFC3339), e.Type, lockID, token, e.Caller)
	}
	w.Flush()

	return nil
}
