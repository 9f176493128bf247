package cmd

import (
	"fmt"

	"github.com/lockboxlabs/lplocker/internal/state"
	"github.com/lockboxlabs/lplocker/internal/validate"
	"github.com/spf13/cobra"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize the vault",
	Long: `Initialize the vault configuration.

The position manager address is written once and cannot be changed afterward.
The lock fee and fee collector can be changed later by the owner via
'lplocker admin'.

Example:
  lplocker init --position-manager 0xC364... --owner 0xAb12... --lock-fee 10000000000000000`,
	RunE: runInit,
}

var (
	initPositionManagerFlag string
	initOwnerFlag           string
	initLockFeeFlag         string
	initFeeCollectorFlag    string
	initMinDurationFlag     string
)

func init() {
	rootCmd.AddCommand(initCmd)

	initCmd.Flags().StringVar(&initPositionManagerFlag, "position-manager", "", "position manager contract address (required)")
	initCmd.Flags().StringVar(&initOwnerFlag, "owner", "", "vault owner address (required)")
	initCmd.Flags().StringVar(&initLockFeeFlag, "lock-fee", "0", "lock creation fee in wei")
	initCmd.Flags().StringVar(&initFeeCollectorFlag, "fee-collector", "", "fee collector address (default: owner)")
	initCmd.Flags().StringVar(&initMinDurationFlag, "min-duration", "1", "minimum lock duration (seconds or Go duration)")

	initCmd.MarkFlagRequired("position-manager")
	initCmd.MarkFlagRequired("owner")
}

func runInit(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	manager, err := validate.NonZeroAddress(initPositionManagerFlag)
	if err != nil {
		return fmt.Errorf("invalid position manager: %w", err)
	}
	owner, err := validate.NonZeroAddress(initOwnerFlag)
	if err != nil {
		return fmt.Errorf("invalid owner: %w", err)
	}

	fee, err := validate.Amount(initLockFeeFlag)
	if err != nil {
		return fmt.Errorf("invalid lock fee: %w", err)
	}

	collector := owner
	if initFeeCollectorFlag != "" {
		collector, err = validate.NonZeroAddress(initFeeCollectorFlag)
		if err != nil {
			return fmt.Errorf("invalid fee collector: %w", err)
		}
	}

	minDuration, err := validate.Duration(initMinDurationFlag)
	if err != nil {
		return fmt.Errorf("invalid minimum duration: %w", err)
	}

	store, err := initStore()
	if err != nil {
		return err
	}
	defer store.Close()

	cfg := &state.Config{
		PositionManager: manager.Hex(),
		Owner:           owner.Hex(),
		LockFee:         fee.String(),
		FeeCollector:    collector.Hex(),
		MinDuration:     minDuration,
	}
	if err := store.InitConfig(ctx, cfg); err != nil {
		return err
	}

	fmt.Printf("Vault initialized.\n")
	fmt.Printf("  Position manager: %s\n", cfg.PositionManager)
	fmt.Printf("  Owner:            %s\n", cfg.Owner)
	fmt.Printf("  Lock fee:         %s wei\n", cfg.LockFee)
	fmt.Printf("  Fee collector:    %s\n", cfg.FeeCollector)

	return nil
}
