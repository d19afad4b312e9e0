package router

import (
	"context"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	ethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ooga-swap/pkg/types"
)

var (
	tokenIn   = common.HexToAddress("0x0555E30da8f98308EdB960aa94C0Db47230d2B9c")
	tokenOut  = common.HexToAddress("0x657e8C867D8B37dCC18fA4Caead9C45EB088C642")
	receiver  = common.HexToAddress("0xed63E871F5de87cb1919671eE9e2d331183Eda8f")
	executor  = common.HexToAddress("0xa1F2b1C1f0d7F4b6D5a1E3F1B5c2a8E7D6b5A4c3")
	routerAdr = common.HexToAddress("0xFd88aD4849BA0F729D6fF4bC27Ff948Ab1Ac3dE7")
)

func sampleTokenInfo() TokenInfo {
	return TokenInfo{
		InputToken:     tokenIn,
		InputAmount:    big.NewInt(100000000),
		OutputToken:    tokenOut,
		OutputQuote:    big.NewInt(99000000),
		OutputMin:      big.NewInt(98010000),
		OutputReceiver: receiver,
	}
}

func sampleRequest() *types.SwapRequest {
	return &types.SwapRequest{
		TokenIn:  tokenIn,
		Amount:   big.NewInt(100000000),
		TokenOut: tokenOut,
		To:       receiver,
		Slippage: 0.01,
	}
}

func packSwap(t *testing.T, info TokenInfo) []byte {
	data, err := MustABI().Pack("swap", info, []byte{0xaa, 0xbb}, executor, uint32(5))
	require.NoError(t, err)
	return data
}

func TestABIContents(t *testing.T) {
	parsed, err := ABI()
	require.NoError(t, err)

	for _, name := range []string{"swap", "swapERC20Permit", "swapPermit2", "paused", "owner", "referralLookup", "transferRouterFunds"} {
		assert.Contains(t, parsed.Methods, name)
	}
	for _, name := range []string{"Swap", "Paused", "Unpaused", "OwnershipTransferred"} {
		assert.Contains(t, parsed.Events, name)
	}
	for _, name := range []string{"SlippageExceeded", "MinimumOutputIsZero", "SameTokenInAndOut"} {
		assert.Contains(t, parsed.Errors, name)
	}
	assert.True(t, parsed.HasReceive())
}

func TestDecodeSwapCall(t *testing.T) {
	call, err := DecodeSwapCall(packSwap(t, sampleTokenInfo()))
	require.NoError(t, err)

	assert.Equal(t, "swap", call.Method)
	assert.Equal(t, tokenIn, call.TokenInfo.InputToken)
	assert.Equal(t, int64(100000000), call.TokenInfo.InputAmount.Int64())
	assert.Equal(t, int64(98010000), call.TokenInfo.OutputMin.Int64())
	assert.Equal(t, receiver, call.TokenInfo.OutputReceiver)
	assert.Equal(t, []byte{0xaa, 0xbb}, []byte(call.PathDefinition))
	assert.Equal(t, executor, call.Executor)
	assert.Equal(t, uint32(5), call.ReferralCode)

	assert.NoError(t, VerifySwapCall(call, sampleRequest()))
}

func TestDecodeSwapCallRejectsOtherMethods(t *testing.T) {
	data, err := MustABI().Pack("pause")
	require.NoError(t, err)

	_, err = DecodeSwapCall(data)
	assert.ErrorIs(t, err, ErrNotSwapCall)

	_, err = DecodeSwapCall([]byte{0x01})
	assert.ErrorIs(t, err, ErrNotSwapCall)

	_, err = DecodeSwapCall([]byte{0xde, 0xad, 0xbe, 0xef})
	assert.ErrorIs(t, err, ErrNotSwapCall)
}

func TestVerifySwapCallMismatch(t *testing.T) {
	info := sampleTokenInfo()
	info.OutputReceiver = executor
	info.InputAmount = big.NewInt(1)

	call, err := DecodeSwapCall(packSwap(t, info))
	require.NoError(t, err)

	err = VerifySwapCall(call, sampleRequest())
	require.ErrorIs(t, err, ErrCalldataMismatch)
	assert.Contains(t, err.Error(), "receiver")
	assert.Contains(t, err.Error(), "input amount")
}

func TestDecodeRevertCustomError(t *testing.T) {
	e := MustABI().Errors["SlippageExceeded"]
	args, err := e.Inputs.Pack(big.NewInt(90), big.NewInt(100))
	require.NoError(t, err)

	rev, err := DecodeRevert(append(e.ID[:4:4], args...))
	require.NoError(t, err)
	assert.Equal(t, "SlippageExceeded", rev.Name)
	assert.Equal(t, "SlippageExceeded(90, 100)", rev.String())
}

func TestDecodeRevertNoArgs(t *testing.T) {
	e := MustABI().Errors["MinimumOutputIsZero"]

	rev, err := DecodeRevert(e.ID[:4])
	require.NoError(t, err)
	assert.Equal(t, "MinimumOutputIsZero()", rev.String())
}

func TestDecodeRevertErrorString(t *testing.T) {
	stringType, err := abi.NewType("string", "", nil)
	require.NoError(t, err)
	packed, err := abi.Arguments{{Type: stringType}}.Pack("insufficient allowance")
	require.NoError(t, err)

	data := append(common.FromHex("0x08c379a0"), packed...)
	rev, err := DecodeRevert(data)
	require.NoError(t, err)
	assert.Equal(t, "Error", rev.Name)
	assert.Equal(t, []interface{}{"insufficient allowance"}, rev.Args)
}

func TestDecodeRevertUnknown(t *testing.T) {
	_, err := DecodeRevert([]byte{0x12, 0x34, 0x56, 0x78})
	assert.ErrorIs(t, err, ErrUnknownRevert)

	_, err = DecodeRevert(nil)
	assert.ErrorIs(t, err, ErrUnknownRevert)
}

func TestParseSwapEvents(t *testing.T) {
	ev := MustABI().Events["Swap"]
	data, err := ev.Inputs.Pack(receiver, big.NewInt(100000000), tokenIn, big.NewInt(99500000), tokenOut, big.NewInt(-500000), uint32(5))
	require.NoError(t, err)

	txHash := common.HexToHash("0x01")
	logs := []*ethtypes.Log{
		{Address: routerAdr, Topics: []common.Hash{ev.ID}, Data: data, TxHash: txHash, Index: 3},
		// same event from another contract
		{Address: executor, Topics: []common.Hash{ev.ID}, Data: data},
		// unrelated event from the router
		{Address: routerAdr, Topics: []common.Hash{MustABI().Events["Paused"].ID}},
	}

	events, err := ParseSwapEvents(logs, routerAdr)
	require.NoError(t, err)
	require.Len(t, events, 1)

	got := events[0]
	assert.Equal(t, receiver, got.Sender)
	assert.Equal(t, int64(99500000), got.AmountOut.Int64())
	assert.Equal(t, int64(-500000), got.Slippage.Int64())
	assert.Equal(t, uint32(5), got.ReferralCode)
	assert.Equal(t, txHash, got.TxHash)
	assert.Equal(t, uint(3), got.LogIndex)
}

type fakeCaller struct {
	out  []byte
	msgs []ethereum.CallMsg
}

func (f *fakeCaller) CallContract(_ context.Context, msg ethereum.CallMsg, _ *big.Int) ([]byte, error) {
	f.msgs = append(f.msgs, msg)
	return f.out, nil
}

func TestPaused(t *testing.T) {
	out, err := MustABI().Methods["paused"].Outputs.Pack(true)
	require.NoError(t, err)

	caller := &fakeCaller{out: out}
	paused, err := Paused(context.Background(), caller, routerAdr)
	require.NoError(t, err)
	assert.True(t, paused)

	require.Len(t, caller.msgs, 1)
	assert.Equal(t, routerAdr, *caller.msgs[0].To)
	assert.Equal(t, MustABI().Methods["paused"].ID, caller.msgs[0].Data)
}
