package custody

import (
	"context"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

// Subset of the NonfungiblePositionManager ABI the adapter needs.
const positionManagerABI = `[
	{"name":"safeTransferFrom","type":"function","stateMutability":"nonpayable","inputs":[{"name":"from","type":"address"},{"name":"to","type":"address"},{"name":"tokenId","type":"uint256"}],"outputs":[]},
	{"name":"collect","type":"function","stateMutability":"payable","inputs":[{"name":"params","type":"tuple","components":[{"name":"tokenId","type":"uint256"},{"name":"recipient","type":"address"},{"name":"amount0Max","type":"uint128"},{"name":"amount1Max","type":"uint128"}]}],"outputs":[{"name":"amount0","type":"uint256"},{"name":"amount1","type":"uint256"}]},
	{"name":"ownerOf","type":"function","stateMutability":"view","inputs":[{"name":"tokenId","type":"uint256"}],"outputs":[{"name":"","type":"address"}]}
]`

// maxUint128 caps collect amounts, i.e. "everything owed".
var maxUint128 = new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 128), big.NewInt(1))

// NPMAdapter drives a NonfungiblePositionManager contract over JSON-RPC.
type NPMAdapter struct {
	wallet   *Wallet
	contract *bind.BoundContract
	manager  common.Address
}

type collectParams struct {
	TokenId    *big.Int
	Recipient  common.Address
	Amount0Max *big.Int
	Amount1Max *big.Int
}

// NewNPMAdapter binds the position manager contract at the given address.
func NewNPMAdapter(wallet *Wallet, manager common.Address) (*NPMAdapter, error) {
	parsed, err := abi.JSON(strings.NewReader(positionManagerABI))
	if err != nil {
		return nil, fmt.Errorf("failed to parse position manager abi: %w", err)
	}

	return &NPMAdapter{
		wallet:   wallet,
		contract: bind.NewBoundContract(manager, parsed, wallet.client, wallet.client, wallet.client),
		manager:  manager,
	}, nil
}

// TakeCustody pulls the token from the depositor into the vault account.
// The depositor must have approved the vault on the position manager.
func (a *NPMAdapter) TakeCustody(ctx context.Context, tokenID *big.Int, from common.Address) error {
	return a.transfer(ctx, from, a.wallet.address, tokenID)
}

// ReturnCustody pushes the token from the vault account back out.
func (a *NPMAdapter) ReturnCustody(ctx context.Context, tokenID *big.Int, to common.Address) error {
	return a.transfer(ctx, a.wallet.address, to, tokenID)
}

// HarvestFees collects all accrued fees of the position to the recipient.
// The call is simulated first to learn the payout amounts, then sent.
func (a *NPMAdapter) HarvestFees(ctx context.Context, tokenID *big.Int, recipient common.Address) (*Harvest, error) {
	params := collectParams{
		TokenId:    tokenID,
		Recipient:  recipient,
		Amount0Max: maxUint128,
		Amount1Max: maxUint128,
	}

	var out []interface{}
	callOpts := &bind.CallOpts{Context: ctx, From: a.wallet.address}
	if err := a.contract.Call(callOpts, &out, "collect", params); err != nil {
		return nil, fmt.Errorf("collect simulation failed: %w", err)
	}
	if len(out) != 2 {
		return nil, fmt.Errorf("collect simulation returned %d values, want 2", len(out))
	}
	amount0, ok0 := out[0].(*big.Int)
	amount1, ok1 := out[1].(*big.Int)
	if !ok0 || !ok1 {
		return nil, fmt.Errorf("collect simulation returned unexpected types")
	}

	opts, err := a.wallet.transactOpts(ctx)
	if err != nil {
		return nil, err
	}
	tx, err := a.contract.Transact(opts, "collect", params)
	if err != nil {
		return nil, fmt.Errorf("collect failed: %w", err)
	}
	if err := a.waitMined(ctx, tx); err != nil {
		return nil, err
	}

	return &Harvest{Amount0: amount0, Amount1: amount1}, nil
}

// PositionOwner reports the current on-chain owner of a position token.
func (a *NPMAdapter) PositionOwner(ctx context.Context, tokenID *big.Int) (common.Address, error) {
	var out []interface{}
	callOpts := &bind.CallOpts{Context: ctx}
	if err := a.contract.Call(callOpts, &out, "ownerOf", tokenID); err != nil {
		return common.Address{}, fmt.Errorf("ownerOf failed: %w", err)
	}
	if len(out) != 1 {
		return common.Address{}, fmt.Errorf("ownerOf returned %d values, want 1", len(out))
	}
	owner, ok := out[0].(common.Address)
	if !ok {
		return common.Address{}, fmt.Errorf("ownerOf returned unexpected type")
	}
	return owner, nil
}

func (a *NPMAdapter) transfer(ctx context.Context, from, to common.Address, tokenID *big.Int) error {
	opts, err := a.wallet.transactOpts(ctx)
	if err != nil {
		return err
	}

	tx, err := a.contract.Transact(opts, "safeTransferFrom", from, to, tokenID)
	if err != nil {
		return fmt.Errorf("safeTransferFrom failed: %w", err)
	}

	return a.waitMined(ctx, tx)
}

func (a *NPMAdapter) waitMined(ctx context.Context, tx *types.Transaction) error {
	receipt, err := bind.WaitMined(ctx, a.wallet.client, tx)
	if err != nil {
		return fmt.Errorf("failed to wait for transaction %s: %w", tx.Hash().Hex(), err)
	}
	if receipt.Status != types.ReceiptStatusSuccessful {
		return fmt.Errorf("transaction %s reverted", tx.Hash().Hex())
	}
	return nil
}
