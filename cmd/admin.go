package cmd

import (
	"fmt"
	"time"

	"github.com/lockboxlabs/lplocker/internal/tui"
	"github.com/lockboxlabs/lplocker/internal/validate"
	"github.com/spf13/cobra"
)

var adminCmd = &cobra.Command{
	Use:   "admin",
	Short: "Owner-only vault administration",
	Long: `Change the vault's fee policy.

Only the vault owner may change the lock fee or the fee collector. The
position manager address is immutable after init. Fee changes never affect
existing locks.`,
}

var adminSetFeeCmd = &cobra.Command{
	Use:   "set-fee <wei>",
	Short: "Set the lock creation fee",
	Args:  cobra.ExactArgs(1),
	RunE:  runAdminSetFee,
}

var adminSetCollectorCmd = &cobra.Command{
	Use:   "set-collector <address>",
	Short: "Set the fee collector address",
	Args:  cobra.ExactArgs(1),
	RunE:  runAdminSetCollector,
}

var adminShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the vault configuration",
	RunE:  runAdminShow,
}

var adminCallerFlag string

func init() {
	rootCmd.AddCommand(adminCmd)
	adminCmd.AddCommand(adminSetFeeCmd)
	adminCmd.AddCommand(adminSetCollectorCmd)
	adminCmd.AddCommand(adminShowCmd)

	adminCmd.PersistentFlags().StringVar(&adminCallerFlag, "caller", "", "caller address (default: derived from signing key)")
}

func runAdminSetFee(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	fee, err := validate.Amount(args[0])
	if err != nil {
		return fmt.Errorf("invalid fee: %w", err)
	}
	caller, err := resolveCaller(adminCallerFlag)
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

	if err := buildAdminRegistry(store).SetLockFee(ctx, caller, fee); err != nil {
		return err
	}

	fmt.Printf("Lock fee set to %s wei.\n", fee)
	return nil
}

func runAdminSetCollector(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	collector, err := validate.NonZeroAddress(args[0])
	if err != nil {
		return fmt.Errorf("invalid collector: %w", err)
	}
	caller, err := resolveCaller(adminCallerFlag)
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

	if err := buildAdminRegistry(store).SetFeeCollector(ctx, caller, collector); err != nil {
		return err
	}

	fmt.Printf("Fee collector set to %s.\n", collector.Hex())
	return nil
}

func runAdminShow(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	store, err := initStore()
	if err != nil {
		return err
	}
	defer store.Close()

	cfg, err := store.GetConfig(ctx)
	if err != nil {
		return err
	}

	fmt.Println(tui.TitleStyle.Render("Vault Configuration"))
	fmt.Printf("%s %s\n", tui.LabelStyle.Render("Position manager:"), cfg.PositionManager)
	fmt.Printf("%s %s\n", tui.LabelStyle.Render("Owner:"), cfg.Owner)
	fmt.Printf("%s %s wei\n", tui.LabelStyle.Render("Lock fee:"), cfg.LockFee)
	fmt.Printf("%s %s\n", tui.LabelStyle.Render("Fee collector:"), cfg.FeeCollector)
	fmt.Printf("%s %s\n", tui.LabelStyle.Render("Min duration:"), cfg.MinDuration)
	fmt.Printf("%s %s\n", tui.LabelStyle.Render("Updated:"), cfg.UpdatedAt.Format(time.RFC3339))

	return nil
}
