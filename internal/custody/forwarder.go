package custody

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

const transferGasLimit = 21000

// NativeForwarder forwards lock-creation payments to the fee collector as
// plain native-currency transfers signed with the vault key. The payer has
// already settled with the vault out of band; the vault account fronts the
// on-chain transfer.
type NativeForwarder struct {
	wallet *Wallet
}

// NewNativeForwarder creates a forwarder backed by the vault wallet.
func NewNativeForwarder(wallet *Wallet) *NativeForwarder {
	return &NativeForwarder{wallet: wallet}
}

// Forward sends amount wei to the collector and waits for inclusion.
func (f *NativeForwarder) Forward(ctx context.Context, from, to common.Address, amount *big.Int) error {
	nonce, err := f.wallet.client.PendingNonceAt(ctx, f.wallet.address)
	if err != nil {
		return fmt.Errorf("failed to read nonce: %w", err)
	}

	gasPrice, err := f.wallet.client.SuggestGasPrice(ctx)
	if err != nil {
		return fmt.Errorf("failed to read gas price: %w", err)
	}

	tx := types.NewTx(&types.LegacyTx{
		Nonce:    nonce,
		To:       &to,
		Value:    amount,
		Gas:      transferGasLimit,
		GasPrice: gasPrice,
	})

	signed, err := types.SignTx(tx, types.LatestSignerForChainID(f.wallet.chainID), f.wallet.key)
	if err != nil {
		return fmt.Errorf("failed to sign transfer: %w", err)
	}

	if err := f.wallet.client.SendTransaction(ctx, signed); err != nil {
		return fmt.Errorf("failed to send transfer: %w", err)
	}

	receipt, err := bind.WaitMined(ctx, f.wallet.client, signed)
	if err != nil {
		return fmt.Errorf("failed to wait for transfer %s: %w", signed.Hash().Hex(), err)
	}
	if receipt.Status != types.ReceiptStatusSuccessful {
		return fmt.Errorf("transfer %s reverted", signed.Hash().Hex())
	}

	return nil
}
