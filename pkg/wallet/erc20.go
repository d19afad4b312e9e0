package wallet

import (
	"context"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"go.uber.org/zap"

	swaptypes "ooga-swap/pkg/types"
)

// Minimal ERC20 ABI, only the methods we call
const erc20ABI = `[
	{"name":"balanceOf","type":"function","stateMutability":"view","inputs":[{"name":"_owner","type":"address"}],"outputs":[{"name":"balance","type":"uint256"}]},
	{"name":"allowance","type":"function","stateMutability":"view","inputs":[{"name":"_owner","type":"address"},{"name":"_spender","type":"address"}],"outputs":[{"name":"","type":"uint256"}]},
	{"name":"approve","type":"function","stateMutability":"nonpayable","inputs":[{"name":"_spender","type":"address"},{"name":"_value","type":"uint256"}],"outputs":[{"name":"","type":"bool"}]},
	{"name":"decimals","type":"function","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"uint8"}]}
]`

var parsedERC20 = func() abi.ABI {
	a, err := abi.JSON(strings.NewReader(erc20ABI))
	if err != nil {
		panic(fmt.Sprintf("parse ERC20 ABI: %v", err))
	}
	return a
}()

// TokenReader is the read-only chain access needed for token lookups
type TokenReader interface {
	ethereum.ContractCaller
	BalanceAt(ctx context.Context, account common.Address, blockNumber *big.Int) (*big.Int, error)
}

func callERC20(ctx context.Context, caller ethereum.ContractCaller, token common.Address, method string, args ...interface{}) ([]interface{}, error) {
	data, err := parsedERC20.Pack(method, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to pack %s: %w", method, err)
	}

	out, err := caller.CallContract(ctx, ethereum.CallMsg{To: &token, Data: data}, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to call %s on %s: %w", method, token.Hex(), err)
	}

	values, err := parsedERC20.Unpack(method, out)
	if err != nil {
		return nil, fmt.Errorf("failed to unpack %s from %s: %w", method, token.Hex(), err)
	}
	return values, nil
}

// ReadDecimals returns the token's decimals. The native coin has 18.
func ReadDecimals(ctx context.Context, caller ethereum.ContractCaller, token common.Address) (uint8, error) {
	if token == swaptypes.NativeToken {
		return 18, nil
	}
	values, err := callERC20(ctx, caller, token, "decimals")
	if err != nil {
		return 0, err
	}
	return *abi.ConvertType(values[0], new(uint8)).(*uint8), nil
}

// ReadBalance returns owner's balance of token in base units
func ReadBalance(ctx context.Context, reader TokenReader, token, owner common.Address) (*big.Int, error) {
	if token == swaptypes.NativeToken {
		return reader.BalanceAt(ctx, owner, nil)
	}
	values, err := callERC20(ctx, reader, token, "balanceOf", owner)
	if err != nil {
		return nil, err
	}
	return *abi.ConvertType(values[0], new(*big.Int)).(**big.Int), nil
}

// TokenDecimals returns the decimals of token, 18 for the native coin
func (w *Wallet) TokenDecimals(ctx context.Context, token common.Address) (uint8, error) {
	return ReadDecimals(ctx, w.backend, token)
}

// TokenBalance returns the wallet's balance of token
func (w *Wallet) TokenBalance(ctx context.Context, token common.Address) (*big.Int, error) {
	return ReadBalance(ctx, w.backend, token, w.address)
}

// Allowance returns how much spender may pull from the wallet
func (w *Wallet) Allowance(ctx context.Context, token, spender common.Address) (*big.Int, error) {
	values, err := callERC20(ctx, w.backend, token, "allowance", w.address, spender)
	if err != nil {
		return nil, err
	}
	return *abi.ConvertType(values[0], new(*big.Int)).(**big.Int), nil
}

// Approve sends an ERC20 approve transaction
func (w *Wallet) Approve(ctx context.Context, token, spender common.Address, amount *big.Int) (*types.Transaction, error) {
	data, err := parsedERC20.Pack("approve", spender, amount)
	if err != nil {
		return nil, fmt.Errorf("failed to pack approve: %w", err)
	}
	return w.Send(ctx, TxRequest{To: token, Data: data})
}

// EnsureAllowance approves spender for amount when the current allowance is
// lower, and waits for the approval to be mined. It returns a nil receipt
// when nothing had to be sent, including for the native coin.
func (w *Wallet) EnsureAllowance(ctx context.Context, token, spender common.Address, amount *big.Int) (*types.Receipt, error) {
	if token == swaptypes.NativeToken {
		return nil, nil
	}

	current, err := w.Allowance(ctx, token, spender)
	if err != nil {
		return nil, err
	}
	if current.Cmp(amount) >= 0 {
		w.log.Debug("allowance sufficient",
			zap.String("token", token.Hex()),
			zap.String("spender", spender.Hex()),
			zap.String("allowance", current.String()),
		)
		return nil, nil
	}

	w.log.Info("approving router",
		zap.String("token", token.Hex()),
		zap.String("spender", spender.Hex()),
		zap.String("amount", amount.String()),
	)

	tx, err := w.Approve(ctx, token, spender, amount)
	if err != nil {
		return nil, fmt.Errorf("approve failed: %w", err)
	}
	return w.WaitForReceipt(ctx, tx)
}
