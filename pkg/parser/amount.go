package parser

import (
	"errors"
	"fmt"
	"math"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"

	"ooga-swap/pkg/types"
)

var (
	ErrInvalidAmount   = errors.New("invalid amount")
	ErrInvalidAddress  = errors.New("invalid address")
	ErrInvalidSlippage = errors.New("slippage must be in [0, 1)")
)

// ParseBaseUnits parses an integer amount already expressed in the token's
// smallest unit. Scientific notation is accepted as long as the value is
// a whole number, so "1e8" and "100000000" are equivalent.
func ParseBaseUnits(amount string) (*big.Int, error) {
	r, err := parseDecimal(amount)
	if err != nil {
		return nil, err
	}
	if !r.IsInt() {
		return nil, fmt.Errorf("%w: %s is not a whole number of base units", ErrInvalidAmount, amount)
	}
	return new(big.Int).Set(r.Num()), nil
}

// ParseAmount converts a human amount in whole tokens (e.g. "1.5") to base
// units using the token's decimals. The conversion is exact: an amount with
// more fractional digits than the token supports is rejected.
func ParseAmount(amount string, decimals uint8) (*big.Int, error) {
	r, err := parseDecimal(amount)
	if err != nil {
		return nil, err
	}

	scale := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(decimals)), nil)
	r.Mul(r, new(big.Rat).SetInt(scale))
	if !r.IsInt() {
		return nil, fmt.Errorf("%w: %s has more than %d decimal places", ErrInvalidAmount, amount, decimals)
	}
	return new(big.Int).Set(r.Num()), nil
}

func parseDecimal(amount string) (*big.Rat, error) {
	amount = strings.TrimSpace(amount)
	if amount == "" {
		return nil, fmt.Errorf("%w: amount is required", ErrInvalidAmount)
	}
	if strings.ContainsAny(amount, "/xX") {
		return nil, fmt.Errorf("%w: %s", ErrInvalidAmount, amount)
	}

	r, ok := new(big.Rat).SetString(amount)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrInvalidAmount, amount)
	}
	if r.Sign() < 0 {
		return nil, fmt.Errorf("%w: %s is negative", ErrInvalidAmount, amount)
	}
	return r, nil
}

// FormatAmount renders base units as a decimal string in whole tokens
func FormatAmount(amount *big.Int, decimals uint8) string {
	if amount == nil {
		return "0"
	}
	scale := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(decimals)), nil)
	s := new(big.Rat).SetFrac(amount, scale).FloatString(int(decimals))
	if strings.Contains(s, ".") {
		s = strings.TrimRight(strings.TrimRight(s, "0"), ".")
	}
	return s
}

// ParseAddress validates and parses a hex address
func ParseAddress(addr string) (common.Address, error) {
	addr = strings.TrimSpace(addr)
	if !common.IsHexAddress(addr) {
		return common.Address{}, fmt.Errorf("%w: %q", ErrInvalidAddress, addr)
	}
	return common.HexToAddress(addr), nil
}

// ValidateSwapRequest validates that a swap request has all required fields
func ValidateSwapRequest(req *types.SwapRequest) error {
	if req.Amount == nil || req.Amount.Sign() <= 0 {
		return fmt.Errorf("%w: amount must be greater than 0", ErrInvalidAmount)
	}
	if req.TokenIn == req.TokenOut {
		return fmt.Errorf("input and output token are the same (%s)", req.TokenIn.Hex())
	}
	if req.To == (common.Address{}) {
		return fmt.Errorf("%w: recipient is required", ErrInvalidAddress)
	}
	if math.IsNaN(req.Slippage) || req.Slippage < 0 || req.Slippage >= 1 {
		return fmt.Errorf("%w: got %v", ErrInvalidSlippage, req.Slippage)
	}
	return nil
}
