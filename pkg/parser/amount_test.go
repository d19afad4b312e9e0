package parser

import (
	"math"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ooga-swap/pkg/types"
)

func TestParseBaseUnits(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{in: "100000000", want: "100000000"},
		{in: "1e8", want: "100000000"},
		{in: " 42 ", want: "42"},
		{in: "1.5", wantErr: true},
		{in: "-1", wantErr: true},
		{in: "", wantErr: true},
		{in: "0x10", wantErr: true},
		{in: "1/2", wantErr: true},
		{in: "abc", wantErr: true},
	}

	for _, tt := range tests {
		got, err := ParseBaseUnits(tt.in)
		if tt.wantErr {
			assert.ErrorIs(t, err, ErrInvalidAmount, "input %q", tt.in)
			continue
		}
		require.NoError(t, err, "input %q", tt.in)
		assert.Equal(t, tt.want, got.String())
	}
}

func TestParseAmount(t *testing.T) {
	got, err := ParseAmount("1.5", 18)
	require.NoError(t, err)
	assert.Equal(t, "1500000000000000000", got.String())

	got, err = ParseAmount("100", 6)
	require.NoError(t, err)
	assert.Equal(t, "100000000", got.String())

	got, err = ParseAmount("0.000001", 6)
	require.NoError(t, err)
	assert.Equal(t, "1", got.String())

	_, err = ParseAmount("0.0000001", 6)
	assert.ErrorIs(t, err, ErrInvalidAmount)
}

func TestFormatAmount(t *testing.T) {
	assert.Equal(t, "1.5", FormatAmount(big.NewInt(1500000), 6))
	assert.Equal(t, "100", FormatAmount(big.NewInt(100000000), 6))
	assert.Equal(t, "42", FormatAmount(big.NewInt(42), 0))
	assert.Equal(t, "0", FormatAmount(nil, 18))
}

func TestParseAddress(t *testing.T) {
	addr, err := ParseAddress("0xed63E871F5de87cb1919671eE9e2d331183Eda8f")
	require.NoError(t, err)
	assert.Equal(t, common.HexToAddress("0xed63E871F5de87cb1919671eE9e2d331183Eda8f"), addr)

	// 39 hex digits
	_, err = ParseAddress("0x2Ef5ffA9884E9ef76883df8212b5d70927B8586")
	assert.ErrorIs(t, err, ErrInvalidAddress)
}

func TestValidateSwapRequest(t *testing.T) {
	valid := func() *types.SwapRequest {
		return &types.SwapRequest{
			TokenIn:  common.HexToAddress("0x0555E30da8f98308EdB960aa94C0Db47230d2B9c"),
			Amount:   big.NewInt(100000000),
			TokenOut: common.HexToAddress("0x657e8C867D8B37dCC18fA4Caead9C45EB088C642"),
			To:       common.HexToAddress("0xed63E871F5de87cb1919671eE9e2d331183Eda8f"),
			Slippage: 0.01,
		}
	}

	assert.NoError(t, ValidateSwapRequest(valid()))

	req := valid()
	req.Amount = big.NewInt(0)
	assert.ErrorIs(t, ValidateSwapRequest(req), ErrInvalidAmount)

	req = valid()
	req.TokenOut = req.TokenIn
	assert.Error(t, ValidateSwapRequest(req))

	req = valid()
	req.To = common.Address{}
	assert.ErrorIs(t, ValidateSwapRequest(req), ErrInvalidAddress)

	req = valid()
	req.Slippage = 1
	assert.ErrorIs(t, ValidateSwapRequest(req), ErrInvalidSlippage)

	req = valid()
	req.Slippage = -0.1
	assert.ErrorIs(t, ValidateSwapRequest(req), ErrInvalidSlippage)

	for _, slippage := range []float64{math.NaN(), math.Inf(1), math.Inf(-1)} {
		req = valid()
		req.Slippage = slippage
		assert.ErrorIs(t, ValidateSwapRequest(req), ErrInvalidSlippage, "slippage %v", slippage)
	}

	req = valid()
	req.Slippage = 0
	assert.NoError(t, ValidateSwapRequest(req))
}
