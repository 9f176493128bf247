package cmd

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

var withdrawCmd = &cobra.Command{
	Use:   "withdraw <lock-id>",
	Short: "Withdraw a matured lock",
	Long: `Return a locked position to its depositor.

Only the depositor may withdraw, and only once the lock has matured. A lock
can be withdrawn exactly once; the record stays in the registry afterward as
an audit trail.`,
	Args: cobra.ExactArgs(1),
	RunE: runWithdraw,
}

var withdrawCallerFlag string

func init() {
	rootCmd.AddCommand(withdrawCmd)

	withdrawCmd.Flags().StringVar(&withdrawCallerFlag, "caller", "", "caller address (default: derived from signing key)")
}

func runWithdraw(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	lockID, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return fmt.Errorf("invalid lock id %q", args[0])
	}

	caller, err := resolveCaller(withdrawCallerFlag)
	if err != nil {
		return err
	}

	vaultLock, err := acquireVaultLock(ctx)
	if err != nil {
		return err
	}
	defer vaultLock.Release()

	store, err := initStore()
	if err != nil {
		return err
	}
	defer store.Close()

	reg, closeBackend, err := buildChainRegistry(ctx, store)
	if err != nil {
		return err
	}
	defer closeBackend()

	if err := reg.Withdraw(ctx, caller, lockID); err != nil {
		return err
	}

	fmt.Printf("Lock #%d withdrawn, position returned to %s.\n", lockID, caller.Hex())

	return nil
}
