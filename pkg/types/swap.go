package types

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

// NativeToken is how the quote API refers to the chain's native coin
var NativeToken = common.Address{}

// SwapRequest holds the parameters sent to the quote API
type SwapRequest struct {
	TokenIn  common.Address `json:"tokenIn"`
	Amount   *big.Int       `json:"amount"`
	TokenOut common.Address `json:"tokenOut"`
	To       common.Address `json:"to"`
	Slippage float64        `json:"slippage"`
}

// IsNativeIn reports whether the input side is the native coin
func (r *SwapRequest) IsNativeIn() bool {
	return r.TokenIn == NativeToken
}

// Quantity is an integer amount the API may encode as a JSON string
// (decimal or 0x-prefixed hex) or as a bare JSON number.
type Quantity string

// UnmarshalJSON accepts both quoted and unquoted values
func (q *Quantity) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*q = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*q = Quantity(strings.TrimSpace(s))
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("invalid quantity %s: %w", string(data), err)
	}
	*q = Quantity(n.String())
	return nil
}

// Int parses the quantity. An empty quantity is zero.
func (q Quantity) Int() (*big.Int, error) {
	s := string(q)
	if s == "" {
		return new(big.Int), nil
	}
	if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
		v, err := hexutil.DecodeBig(s)
		if err != nil {
			return nil, fmt.Errorf("invalid hex quantity %q: %w", s, err)
		}
		return v, nil
	}
	v, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return nil, fmt.Errorf("invalid quantity %q", s)
	}
	return v, nil
}

// TxDescriptor is the ready-to-sign transaction returned with a quote
type TxDescriptor struct {
	From  common.Address `json:"from"`
	To    common.Address `json:"to"`
	Data  hexutil.Bytes  `json:"data"`
	Value Quantity       `json:"value,omitempty"`
}

// ValueWei returns the native value attached to the transaction
func (t *TxDescriptor) ValueWei() (*big.Int, error) {
	return t.Value.Int()
}

// SwapTokenInfo mirrors the router's tokenInfo tuple
type SwapTokenInfo struct {
	InputToken     common.Address `json:"inputToken"`
	InputAmount    Quantity       `json:"inputAmount"`
	OutputToken    common.Address `json:"outputToken"`
	OutputQuote    Quantity       `json:"outputQuote"`
	OutputMin      Quantity       `json:"outputMin"`
	OutputReceiver common.Address `json:"outputReceiver"`
}

// RouterParams are the arguments the quote API encoded into the router call
type RouterParams struct {
	SwapTokenInfo  SwapTokenInfo  `json:"swapTokenInfo"`
	PathDefinition hexutil.Bytes  `json:"pathDefinition"`
	Executor       common.Address `json:"executor"`
	ReferralCode   uint32         `json:"referralCode"`
	Value          Quantity       `json:"value,omitempty"`
}

// SwapResponse is the body of a /v1/swap reply
type SwapResponse struct {
	Tx           *TxDescriptor  `json:"tx"`
	RouterParams *RouterParams  `json:"routerParams"`
	RouterAddr   common.Address `json:"routerAddr"`

	// RawRouterParams keeps routerParams exactly as received for logging
	RawRouterParams json.RawMessage `json:"-"`
}

// UnmarshalJSON decodes the typed fields and keeps routerParams verbatim
func (r *SwapResponse) UnmarshalJSON(data []byte) error {
	type plain SwapResponse
	var aux struct {
		plain
		RouterParams json.RawMessage `json:"routerParams"`
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	*r = SwapResponse(aux.plain)
	r.RouterParams = nil
	r.RawRouterParams = nil

	if len(aux.RouterParams) > 0 && !bytes.Equal(aux.RouterParams, []byte("null")) {
		var params RouterParams
		if err := json.Unmarshal(aux.RouterParams, &params); err != nil {
			return fmt.Errorf("invalid routerParams: %w", err)
		}
		r.RouterParams = &params
		r.RawRouterParams = aux.RouterParams
	}
	return nil
}

// SwapStatus summarises a submitted swap
type SwapStatus struct {
	TxHash      string `json:"tx_hash"`
	Status      string `json:"status"`
	BlockNumber uint64 `json:"block_number"`
	GasUsed     uint64 `json:"gas_used"`
}
