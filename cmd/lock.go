package cmd

import (
	"fmt"
	"os"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/lockboxlabs/lplocker/internal/tui"
	"github.com/lockboxlabs/lplocker/internal/validate"
	"github.com/spf13/cobra"
)

var lockCmd = &cobra.Command{
	Use:   "lock",
	Short: "Manage position locks",
	Long:  `Create and inspect position locks.`,
}

var lockCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Lock a position token",
	Long: `Lock a liquidity-position token in vault custody for a fixed duration.

The depositor must hold the token and must have approved the vault address on
the position manager. The payment must cover the configured lock fee; any
overpayment is forwarded to the fee collector in full.

Examples:
  lplocker lock create --token 7 --duration 86400 --payment 10000000000000000
  lplocker lock create --token 7 --duration 720h --payment 10000000000000000`,
	RunE: runLockCreate,
}

var lockListCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List locks",
	RunE:    runLockList,
}

var lockShowCmd = &cobra.Command{
	Use:   "show <lock-id>",
	Short: "Show a lock record",
	Args:  cobra.ExactArgs(1),
	RunE:  runLockShow,
}

var (
	lockTokenFlag    string
	lockDurationFlag string
	lockPaymentFlag  string
	lockCallerFlag   string
	lockActiveFlag   bool
	lockLimitFlag    int
)

func init() {
	rootCmd.AddCommand(lockCmd)
	lockCmd.AddCommand(lockCreateCmd)
	lockCmd.AddCommand(lockListCmd)
	lockCmd.AddCommand(lockShowCmd)

	lockCreateCmd.Flags().StringVar(&lockTokenFlag, "token", "", "position token id (required)")
	lockCreateCmd.Flags().StringVar(&lockDurationFlag, "duration", "", "lock duration, seconds or Go duration (required)")
	lockCreateCmd.Flags().StringVar(&lockPaymentFlag, "payment", "0", "payment in wei")
	lockCreateCmd.Flags().StringVar(&lockCallerFlag, "depositor", "", "depositor address (default: derived from signing key)")
	lockCreateCmd.MarkFlagRequired("token")
	lockCreateCmd.MarkFlagRequired("duration")

	lockListCmd.Flags().BoolVarP(&lockActiveFlag, "active", "a", false, "show only active locks")
	lockListCmd.Flags().IntVarP(&lockLimitFlag, "limit", "n", 50, "number of locks to show")
}

func runLockCreate(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	tokenID, err := validate.TokenID(lockTokenFlag)
	if err != nil {
		return err
	}
	duration, err := validate.Duration(lockDurationFlag)
	if err != nil {
		return err
	}
	payment, err := validate.Amount(lockPaymentFlag)
	if err != nil {
		return fmt.Errorf("invalid payment: %w", err)
	}
	caller, err := resolveCaller(lockCallerFlag)
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

	printVerbose("Locking token %s for %s as %s", tokenID, duration, caller.Hex())

	lock, err := reg.CreateLock(ctx, caller, tokenID, duration, payment)
	if err != nil {
		return err
	}

	fmt.Printf("Lock #%d created.\n", lock.ID)
	fmt.Printf("  Position:  %s\n", lock.PositionTokenID)
	fmt.Printf("  Depositor: %s\n", lock.Depositor)
	fmt.Printf("  Unlocks:   %s\n", lock.UnlockAt.Format(time.RFC3339))

	return nil
}

func runLockList(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	store, err := initStore()
	if err != nil {
		return err
	}
	defer store.Close()

	locks, err := store.ListLocks(ctx, lockActiveFlag, lockLimitFlag)
	if err != nil {
		return fmt.Errorf("failed to list locks: %w", err)
	}

	if len(locks) == 0 {
		fmt.Println("No locks found.")
		return nil
	}

	now := time.Now().UTC()
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tPOSITION\tDEPOSITOR\tSTATUS\tUNLOCKS")
	fmt.Fprintln(w, "--\t--------\t---------\t------\t-------")
	for _, l := range locks {
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\n",
			l.ID, l.PositionTokenID, l.Depositor,
			tui.RenderLockStatus(l.Active, l.UnlockAt, now),
			l.UnlockAt.Format(time.RFC3339),
		)
	}
	w.Flush()

	return nil
}

func runLockShow(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	lockID, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return fmt.Errorf("invalid lock id %q", args[0])
	}

	store, err := initStore()
	if err != nil {
		return err
	}
	defer store.Close()

	lock, err := store.GetLock(ctx, lockID)
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	fmt.Println(tui.TitleStyle.Render(fmt.Sprintf("Lock #%d", lock.ID)))
	fmt.Printf("%s %s\n", tui.LabelStyle.Render("Position:"), lock.PositionTokenID)
	fmt.Printf("%s %s\n", tui.LabelStyle.Render("Depositor:"), lock.Depositor)
	fmt.Printf("%s %s\n", tui.LabelStyle.Render("Status:"), tui.RenderLockStatus(lock.Active, lock.UnlockAt, now))
	fmt.Printf("%s %s\n", tui.LabelStyle.Render("Created:"), lock.CreatedAt.Format(time.RFC3339))
	fmt.Printf("%s %s\n", tui.LabelStyle.Render("Unlocks:"), lock.UnlockAt.Format(time.RFC3339))
	if lock.WithdrawnAt != nil {
		fmt.Printf("%s %s\n", tui.LabelStyle.Render("Withdrawn:"), lock.WithdrawnAt.Format(time.RFC3339))
	}

	return nil
}
