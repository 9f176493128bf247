// Package cmd provides CLI commands for lplocker.
package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/joho/godotenv"
	"github.com/lockboxlabs/lplocker/internal/custody"
	"github.com/lockboxlabs/lplocker/internal/events"
	"github.com/lockboxlabs/lplocker/internal/feegate"
	"github.com/lockboxlabs/lplocker/internal/oplock"
	"github.com/lockboxlabs/lplocker/internal/registry"
	"github.com/lockboxlabs/lplocker/internal/state"
	"github.com/lockboxlabs/lplocker/internal/validate"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// Version is the current version of lplocker.
// Can be overridden at build time: go build -ldflags "-X github.com/lockboxlabs/lplocker/cmd.Version=v1.0.0"
var Version = "v0.3.0"

var (
	cfgFile string
	dataDir string
	verbose bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "lplocker",
	Short: "Time-locked custody for liquidity-position NFTs",
	Long: `lplocker locks liquidity-position NFTs in vault custody for a fixed
duration. While a position is locked only its depositor can harvest the
trading fees it accrues, and nobody -- the depositor included -- can move or
withdraw it before maturity.

The lock registry is the verifiable audit trail backing that guarantee.`,
	Version: Version,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Set up signal handling
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigCh
		fmt.Fprintf(os.Stderr, "\nReceived signal %v, shutting down...\n", sig)
		cancel()
	}()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.lplocker/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&dataDir, "data-dir", "", "data directory (default is $HOME/.lplocker)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose output")

	// Bind flags to viper
	viper.BindPFlag("data-dir", rootCmd.PersistentFlags().Lookup("data-dir"))
	viper.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose"))
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	// Operator secrets (RPC_URL, PRIVATE_KEY) may live in a .env next to the
	// working directory, hardhat style.
	godotenv.Load()

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		cobra.CheckErr(err)

		configDir := filepath.Join(home, ".lplocker")
		viper.AddConfigPath(configDir)
		viper.SetConfigType("yaml")
		viper.SetConfigName("config")
	}

	// Read environment variables
	viper.SetEnvPrefix("LPLOCKER")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	viper.AutomaticEnv()
	viper.BindEnv("rpc-url", "RPC_URL", "LPLOCKER_RPC_URL")
	viper.BindEnv("private-key", "PRIVATE_KEY", "LPLOCKER_PRIVATE_KEY")

	// Read config file
	if err := viper.ReadInConfig(); err == nil && verbose {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

// getDataDir returns the data directory, defaulting to $HOME/.lplocker
func getDataDir() (string, error) {
	if dataDir != "" {
		return dataDir, nil
	}
	if d := viper.GetString("data-dir"); d != "" {
		return d, nil
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(home, ".lplocker"), nil
}

// initStore initializes and returns the custody ledger store.
func initStore() (*state.Store, error) {
	dir, err := getDataDir()
	if err != nil {
		return nil, err
	}

	store, err := state.New(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize store: %w", err)
	}

	return store, nil
}

// acquireVaultLock serializes mutating commands across processes.
func acquireVaultLock(ctx context.Context) (*oplock.Lock, error) {
	dir, err := getDataDir()
	if err != nil {
		return nil, err
	}

	manager, err := oplock.NewManager(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize vault lock: %w", err)
	}

	return manager.Acquire(ctx)
}

// newChainBackend builds the position-manager adapter and fee forwarder for
// the configured chain. Swappable in tests.
var newChainBackend = func(ctx context.Context, manager common.Address) (custody.Adapter, feegate.Forwarder, func(), error) {
	wallet, err := custody.NewWallet(ctx, viper.GetString("rpc-url"), viper.GetString("private-key"))
	if err != nil {
		return nil, nil, nil, err
	}

	adapter, err := custody.NewNPMAdapter(wallet, manager)
	if err != nil {
		wallet.Close()
		return nil, nil, nil, err
	}

	return adapter, custody.NewNativeForwarder(wallet), wallet.Close, nil
}

// newNotifyManager assembles the configured notification backends.
func newNotifyManager() *events.Manager {
	manager := events.NewManager()
	if url := viper.GetString("notify.webhook-url"); url != "" {
		manager.Register(events.NewWebhookNotifier(url, nil))
	}
	if url := viper.GetString("notify.discord-url"); url != "" {
		manager.Register(events.NewDiscordNotifier(url, viper.GetString("notify.discord-username")))
	}
	return manager
}

// buildChainRegistry wires a registry with the full chain backend. The
// returned close function releases the RPC connection.
func buildChainRegistry(ctx context.Context, store *state.Store) (*registry.Registry, func(), error) {
	cfg, err := store.GetConfig(ctx)
	if err != nil {
		return nil, nil, err
	}

	adapter, forwarder, closeFn, err := newChainBackend(ctx, common.HexToAddress(cfg.PositionManager))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect chain backend: %w", err)
	}

	reg := registry.New(store, adapter, feegate.New(forwarder), newNotifyManager())
	reg.OnWarn = warnf
	return reg, closeFn, nil
}

// buildAdminRegistry wires a registry for configuration-only operations,
// which never touch the chain.
func buildAdminRegistry(store *state.Store) *registry.Registry {
	reg := registry.New(store, nil, feegate.New(nil), newNotifyManager())
	reg.OnWarn = warnf
	return reg
}

// resolveCaller determines the caller address for a mutating operation:
// the --caller flag, the configured caller, or the address derived from the
// configured private key, in that order.
func resolveCaller(flagValue string) (common.Address, error) {
	if flagValue != "" {
		return validate.NonZeroAddress(flagValue)
	}
	if configured := viper.GetString("caller"); configured != "" {
		return validate.NonZeroAddress(configured)
	}

	privHex := viper.GetString("private-key")
	if privHex == "" {
		return common.Address{}, fmt.Errorf("no caller: set --caller, the caller config key, or a private key")
	}
	key, err := crypto.HexToECDSA(strings.TrimPrefix(privHex, "0x"))
	if err != nil {
		return common.Address{}, fmt.Errorf("failed to derive caller from private key: %w", err)
	}
	return crypto.PubkeyToAddress(key.PublicKey), nil
}

// isVerbose returns true if verbose output is enabled.
func isVerbose() bool {
	return verbose || viper.GetBool("verbose")
}

// printVerbose prints a message if verbose mode is enabled.
func printVerbose(format string, args ...interface{}) {
	if isVerbose() {
		fmt.Fprintf(os.Stderr, format+"\n", args...)
	}
}

// warnf prints a warning to stderr.
func warnf(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, "warning: "+format+"\n", args...)
}
