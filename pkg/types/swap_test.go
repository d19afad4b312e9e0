package types

import (
	"encoding/json"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleResponse = `{
	"tx": {
		"from": "0xed63E871F5de87cb1919671eE9e2d331183Eda8f",
		"to": "0xFd88aD4849BA0F729D6fF4bC27Ff948Ab1Ac3dE7",
		"data": "0xdeadbeef",
		"value": "0x0"
	},
	"routerParams": {
		"swapTokenInfo": {
			"inputToken": "0x0555E30da8f98308EdB960aa94C0Db47230d2B9c",
			"inputAmount": "100000000",
			"outputToken": "0x657e8C867D8B37dCC18fA4Caead9C45EB088C642",
			"outputQuote": 99000000,
			"outputMin": "98010000",
			"outputReceiver": "0xed63E871F5de87cb1919671eE9e2d331183Eda8f"
		},
		"pathDefinition": "0x0102",
		"executor": "0xa1F2b1C1f0d7F4b6D5a1E3F1B5c2a8E7D6b5A4c3",
		"referralCode": 7
	},
	"routerAddr": "0xFd88aD4849BA0F729D6fF4bC27Ff948Ab1Ac3dE7"
}`

func TestSwapResponseDecode(t *testing.T) {
	var resp SwapResponse
	require.NoError(t, json.Unmarshal([]byte(sampleResponse), &resp))

	require.NotNil(t, resp.Tx)
	assert.Equal(t, common.HexToAddress("0xFd88aD4849BA0F729D6fF4bC27Ff948Ab1Ac3dE7"), resp.Tx.To)
	assert.Equal(t, []byte{0xde, 0xad, 0xbe, 0xef}, []byte(resp.Tx.Data))
	assert.Equal(t, resp.Tx.To, resp.RouterAddr)

	require.NotNil(t, resp.RouterParams)
	info := resp.RouterParams.SwapTokenInfo
	assert.Equal(t, Quantity("100000000"), info.InputAmount)
	assert.Equal(t, Quantity("99000000"), info.OutputQuote)
	assert.Equal(t, uint32(7), resp.RouterParams.ReferralCode)
	assert.Equal(t, []byte{0x01, 0x02}, []byte(resp.RouterParams.PathDefinition))
	assert.Contains(t, string(resp.RawRouterParams), `"pathDefinition": "0x0102"`)
}

func TestSwapResponseWithoutRouterParams(t *testing.T) {
	var resp SwapResponse
	require.NoError(t, json.Unmarshal([]byte(`{"tx":{"to":"0xFd88aD4849BA0F729D6fF4bC27Ff948Ab1Ac3dE7","data":"0x"},"routerParams":null}`), &resp))

	assert.NotNil(t, resp.Tx)
	assert.Nil(t, resp.RouterParams)
	assert.Empty(t, resp.RawRouterParams)
}

func TestQuantityInt(t *testing.T) {
	tests := []struct {
		in      Quantity
		want    *big.Int
		wantErr bool
	}{
		{in: "", want: big.NewInt(0)},
		{in: "0x0", want: big.NewInt(0)},
		{in: "0x5f5e100", want: big.NewInt(100000000)},
		{in: "100000000", want: big.NewInt(100000000)},
		{in: "1.5", wantErr: true},
		{in: "0xzz", wantErr: true},
	}

	for _, tt := range tests {
		got, err := tt.in.Int()
		if tt.wantErr {
			assert.Error(t, err, "input %q", tt.in)
			continue
		}
		require.NoError(t, err, "input %q", tt.in)
		assert.Equal(t, 0, tt.want.Cmp(got), "input %q: got %s", tt.in, got)
	}
}

func TestTxDescriptorValueWei(t *testing.T) {
	var tx TxDescriptor
	require.NoError(t, json.Unmarshal([]byte(`{"to":"0xFd88aD4849BA0F729D6fF4bC27Ff948Ab1Ac3dE7","data":"0x","value":1000}`), &tx))

	v, err := tx.ValueWei()
	require.NoError(t, err)
	assert.Equal(t, int64(1000), v.Int64())

	empty := TxDescriptor{}
	v, err = empty.ValueWei()
	require.NoError(t, err)
	assert.Equal(t, 0, v.Sign())
}

func TestIsNativeIn(t *testing.T) {
	req := &SwapRequest{}
	assert.True(t, req.IsNativeIn())

	req.TokenIn = common.HexToAddress("0x0555E30da8f98308EdB960aa94C0Db47230d2B9c")
	assert.False(t, req.IsNativeIn())
}
