package router

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	ethtypes "github.com/ethereum/go-ethereum/core/types"

	"ooga-swap/pkg/types"
)

var (
	ErrNotSwapCall      = errors.New("calldata is not a router swap call")
	ErrCalldataMismatch = errors.New("router calldata does not match the swap request")
	ErrUnknownRevert    = errors.New("unknown revert reason")
)

// swapMethods are the router entry points that carry a tokenInfo tuple
var swapMethods = map[string]bool{
	"swap":            true,
	"swapERC20Permit": true,
	"swapPermit2":     true,
}

// TokenInfo mirrors the router's swapTokenInfo struct
type TokenInfo struct {
	InputToken     common.Address `json:"inputToken"`
	InputAmount    *big.Int       `json:"inputAmount"`
	OutputToken    common.Address `json:"outputToken"`
	OutputQuote    *big.Int       `json:"outputQuote"`
	OutputMin      *big.Int       `json:"outputMin"`
	OutputReceiver common.Address `json:"outputReceiver"`
}

// SwapCall is a decoded call to one of the router's swap methods
type SwapCall struct {
	Method         string         `json:"method"`
	TokenInfo      TokenInfo      `json:"tokenInfo"`
	PathDefinition hexutil.Bytes  `json:"pathDefinition"`
	Executor       common.Address `json:"executor"`
	ReferralCode   uint32         `json:"referralCode"`
}

// DecodeSwapCall decodes transaction calldata sent to the router
func DecodeSwapCall(data []byte) (*SwapCall, error) {
	parsed, err := ABI()
	if err != nil {
		return nil, err
	}
	if len(data) < 4 {
		return nil, fmt.Errorf("%w: calldata too short (%d bytes)", ErrNotSwapCall, len(data))
	}

	method, err := parsed.MethodById(data[:4])
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNotSwapCall, err)
	}
	if !swapMethods[method.Name] {
		return nil, fmt.Errorf("%w: method %s", ErrNotSwapCall, method.Name)
	}

	args := make(map[string]interface{})
	if err := method.Inputs.UnpackIntoMap(args, data[4:]); err != nil {
		return nil, fmt.Errorf("failed to unpack %s arguments: %w", method.Name, err)
	}

	call := &SwapCall{Method: method.Name}
	info, ok := abi.ConvertType(args["tokenInfo"], new(TokenInfo)).(*TokenInfo)
	if !ok {
		return nil, fmt.Errorf("unexpected tokenInfo type %T", args["tokenInfo"])
	}
	call.TokenInfo = *info
	path, ok := args["pathDefinition"].([]byte)
	if !ok {
		return nil, fmt.Errorf("unexpected pathDefinition type %T", args["pathDefinition"])
	}
	call.PathDefinition = path
	if call.Executor, ok = args["executor"].(common.Address); !ok {
		return nil, fmt.Errorf("unexpected executor type %T", args["executor"])
	}
	if call.ReferralCode, ok = args["referralCode"].(uint32); !ok {
		return nil, fmt.Errorf("unexpected referralCode type %T", args["referralCode"])
	}

	return call, nil
}

// VerifySwapCall checks that the calldata swaps exactly what was requested
func VerifySwapCall(call *SwapCall, req *types.SwapRequest) error {
	var mismatches []string

	info := call.TokenInfo
	if info.InputToken != req.TokenIn {
		mismatches = append(mismatches, fmt.Sprintf("input token %s != %s", info.InputToken.Hex(), req.TokenIn.Hex()))
	}
	if info.InputAmount == nil || req.Amount == nil || info.InputAmount.Cmp(req.Amount) != 0 {
		mismatches = append(mismatches, fmt.Sprintf("input amount %v != %v", info.InputAmount, req.Amount))
	}
	if info.OutputToken != req.TokenOut {
		mismatches = append(mismatches, fmt.Sprintf("output token %s != %s", info.OutputToken.Hex(), req.TokenOut.Hex()))
	}
	if info.OutputReceiver != req.To {
		mismatches = append(mismatches, fmt.Sprintf("receiver %s != %s", info.OutputReceiver.Hex(), req.To.Hex()))
	}
	if info.OutputMin != nil && info.OutputQuote != nil && info.OutputMin.Cmp(info.OutputQuote) > 0 {
		mismatches = append(mismatches, fmt.Sprintf("minimum output %s exceeds quote %s", info.OutputMin, info.OutputQuote))
	}

	if len(mismatches) > 0 {
		return fmt.Errorf("%w: %s", ErrCalldataMismatch, strings.Join(mismatches, "; "))
	}
	return nil
}

// Revert is a decoded revert reason
type Revert struct {
	Name string        `json:"name"`
	Args []interface{} `json:"args"`
}

func (r *Revert) String() string {
	if len(r.Args) == 0 {
		return r.Name + "()"
	}
	parts := make([]string, len(r.Args))
	for i, a := range r.Args {
		parts[i] = fmt.Sprintf("%v", a)
	}
	return fmt.Sprintf("%s(%s)", r.Name, strings.Join(parts, ", "))
}

// DecodeRevert decodes revert data using the router's custom errors, falling
// back to the standard Error(string) and Panic(uint256) encodings.
func DecodeRevert(data []byte) (*Revert, error) {
	if len(data) < 4 {
		return nil, fmt.Errorf("%w: revert data too short", ErrUnknownRevert)
	}

	if reason, err := abi.UnpackRevert(data); err == nil {
		return &Revert{Name: "Error", Args: []interface{}{reason}}, nil
	}

	parsed, err := ABI()
	if err != nil {
		return nil, err
	}
	for name, e := range parsed.Errors {
		if !bytes.Equal(e.ID[:4], data[:4]) {
			continue
		}
		values, err := e.Inputs.Unpack(data[4:])
		if err != nil {
			return nil, fmt.Errorf("failed to unpack %s: %w", name, err)
		}
		return &Revert{Name: name, Args: values}, nil
	}

	return nil, fmt.Errorf("%w: selector %x", ErrUnknownRevert, data[:4])
}

// SwapEvent is the router's Swap log
type SwapEvent struct {
	Sender       common.Address
	InputAmount  *big.Int
	InputToken   common.Address
	AmountOut    *big.Int
	OutputToken  common.Address
	Slippage     *big.Int
	ReferralCode uint32

	TxHash   common.Hash
	LogIndex uint
}

// ParseSwapEvents decodes the Swap events emitted by the router in a receipt
func ParseSwapEvents(logs []*ethtypes.Log, routerAddr common.Address) ([]SwapEvent, error) {
	parsed, err := ABI()
	if err != nil {
		return nil, err
	}
	swapEvent := parsed.Events["Swap"]

	var events []SwapEvent
	for _, l := range logs {
		if l.Address != routerAddr || len(l.Topics) == 0 || l.Topics[0] != swapEvent.ID {
			continue
		}

		var ev SwapEvent
		if err := parsed.UnpackIntoInterface(&ev, "Swap", l.Data); err != nil {
			return nil, fmt.Errorf("failed to unpack Swap log %d: %w", l.Index, err)
		}
		ev.TxHash = l.TxHash
		ev.LogIndex = l.Index
		events = append(events, ev)
	}
	return events, nil
}

// Paused reports whether the router is paused. A paused router rejects swaps.
func Paused(ctx context.Context, caller ethereum.ContractCaller, routerAddr common.Address) (bool, error) {
	parsed, err := ABI()
	if err != nil {
		return false, err
	}

	data, err := parsed.Pack("paused")
	if err != nil {
		return false, fmt.Errorf("failed to pack paused call: %w", err)
	}

	out, err := caller.CallContract(ctx, ethereum.CallMsg{To: &routerAddr, Data: data}, nil)
	if err != nil {
		return false, fmt.Errorf("failed to call paused: %w", err)
	}

	values, err := parsed.Unpack("paused", out)
	if err != nil {
		return false, fmt.Errorf("failed to unpack paused result: %w", err)
	}
	paused, ok := values[0].(bool)
	if !ok {
		return false, fmt.Errorf("unexpected paused result type %T", values[0])
	}
	return paused, nil
}
