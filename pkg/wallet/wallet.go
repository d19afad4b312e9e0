package wallet

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
	"go.uber.org/zap"
)

var (
	ErrChainMismatch = errors.New("RPC endpoint is on a different chain")
	ErrTxFailed      = errors.New("transaction reverted")
)

// gasBufferPercent is added on top of estimated gas
const gasBufferPercent = 20

// Backend is the part of an Ethereum RPC client the wallet needs.
// *ethclient.Client and the go-ethereum simulated backend both satisfy it.
type Backend interface {
	bind.DeployBackend
	ethereum.ContractCaller
	ethereum.GasEstimator
	ethereum.TransactionSender

	PendingNonceAt(ctx context.Context, account common.Address) (uint64, error)
	SuggestGasPrice(ctx context.Context) (*big.Int, error)
	SuggestGasTipCap(ctx context.Context) (*big.Int, error)
	HeaderByNumber(ctx context.Context, number *big.Int) (*types.Header, error)
	BalanceAt(ctx context.Context, account common.Address, blockNumber *big.Int) (*big.Int, error)
	ChainID(ctx context.Context) (*big.Int, error)
}

// TxRequest is an unsigned transaction to send from the wallet
type TxRequest struct {
	To    common.Address
	Data  []byte
	Value *big.Int
	// Gas overrides estimation when non-zero
	Gas uint64
}

// Wallet signs and broadcasts transactions for a single key
type Wallet struct {
	backend    Backend
	privateKey *ecdsa.PrivateKey
	address    common.Address
	chainID    *big.Int
	log        *zap.Logger
	closer     func()
}

// Dial connects to an RPC endpoint and loads the signing key. A non-zero
// chainID must match the chain reported by the endpoint.
func Dial(ctx context.Context, rpcURL, privateKeyHex string, chainID int64, log *zap.Logger) (*Wallet, error) {
	if rpcURL == "" {
		return nil, fmt.Errorf("RPC URL not configured")
	}

	privateKey, err := ParsePrivateKey(privateKeyHex)
	if err != nil {
		return nil, err
	}

	client, err := ethclient.DialContext(ctx, rpcURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RPC endpoint: %w", err)
	}

	w, err := New(ctx, client, privateKey, chainID, log)
	if err != nil {
		client.Close()
		return nil, err
	}
	w.closer = client.Close
	return w, nil
}

// New builds a wallet on top of an existing backend
func New(ctx context.Context, backend Backend, privateKey *ecdsa.PrivateKey, chainID int64, log *zap.Logger) (*Wallet, error) {
	if log == nil {
		log = zap.NewNop()
	}

	remoteID, err := backend.ChainID(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get chain id: %w", err)
	}
	if chainID != 0 && remoteID.Cmp(big.NewInt(chainID)) != 0 {
		return nil, fmt.Errorf("%w: configured %d, endpoint reports %s", ErrChainMismatch, chainID, remoteID)
	}

	return &Wallet{
		backend:    backend,
		privateKey: privateKey,
		address:    crypto.PubkeyToAddress(privateKey.PublicKey),
		chainID:    remoteID,
		log:        log,
	}, nil
}

// ParsePrivateKey parses a hex private key with or without 0x prefix
func ParsePrivateKey(privateKeyHex string) (*ecdsa.PrivateKey, error) {
	if privateKeyHex == "" {
		return nil, fmt.Errorf("private key not configured")
	}
	privateKey, err := crypto.HexToECDSA(strings.TrimPrefix(strings.TrimSpace(privateKeyHex), "0x"))
	if err != nil {
		return nil, fmt.Errorf("invalid private key: %w", err)
	}
	return privateKey, nil
}

// Address returns the wallet's account address
func (w *Wallet) Address() common.Address { return w.address }

// ChainID returns the chain the wallet signs for
func (w *Wallet) ChainID() *big.Int { return new(big.Int).Set(w.chainID) }

// Backend exposes the underlying RPC client for read-only calls
func (w *Wallet) Backend() Backend { return w.backend }

// Balance returns the wallet's native balance
func (w *Wallet) Balance(ctx context.Context) (*big.Int, error) {
	return w.backend.BalanceAt(ctx, w.address, nil)
}

// Send signs and broadcasts a transaction. Fees are EIP-1559 when the chain
// reports a base fee, legacy gas price otherwise.
func (w *Wallet) Send(ctx context.Context, req TxRequest) (*types.Transaction, error) {
	value := req.Value
	if value == nil {
		value = new(big.Int)
	}

	nonce, err := w.backend.PendingNonceAt(ctx, w.address)
	if err != nil {
		return nil, fmt.Errorf("failed to get nonce: %w", err)
	}

	gasLimit := req.Gas
	if gasLimit == 0 {
		to := req.To
		estimated, err := w.backend.EstimateGas(ctx, ethereum.CallMsg{
			From:  w.address,
			To:    &to,
			Value: value,
			Data:  req.Data,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to estimate gas: %w", err)
		}
		gasLimit = estimated * (100 + gasBufferPercent) / 100
	}

	head, err := w.backend.HeaderByNumber(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to get latest header: %w", err)
	}

	var tx *types.Transaction
	if head.BaseFee != nil {
		tip, err := w.backend.SuggestGasTipCap(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to get gas tip: %w", err)
		}
		feeCap := new(big.Int).Add(new(big.Int).Mul(head.BaseFee, big.NewInt(2)), tip)

		tx = types.NewTx(&types.DynamicFeeTx{
			ChainID:   w.chainID,
			Nonce:     nonce,
			GasTipCap: tip,
			GasFeeCap: feeCap,
			Gas:       gasLimit,
			To:        &req.To,
			Value:     value,
			Data:      req.Data,
		})
	} else {
		gasPrice, err := w.backend.SuggestGasPrice(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to get gas price: %w", err)
		}

		tx = types.NewTx(&types.LegacyTx{
			Nonce:    nonce,
			GasPrice: gasPrice,
			Gas:      gasLimit,
			To:       &req.To,
			Value:    value,
			Data:     req.Data,
		})
	}

	signed, err := types.SignTx(tx, types.LatestSignerForChainID(w.chainID), w.privateKey)
	if err != nil {
		return nil, fmt.Errorf("failed to sign transaction: %w", err)
	}

	if err := w.backend.SendTransaction(ctx, signed); err != nil {
		return nil, fmt.Errorf("failed to send transaction: %w", err)
	}

	w.log.Debug("transaction sent",
		zap.String("hash", signed.Hash().Hex()),
		zap.Uint64("nonce", nonce),
		zap.Uint64("gas", gasLimit),
		zap.String("to", req.To.Hex()),
		zap.String("value", value.String()),
	)

	return signed, nil
}

// WaitForReceipt blocks until the transaction is mined or ctx is done.
// A mined but reverted transaction returns its receipt together with ErrTxFailed.
func (w *Wallet) WaitForReceipt(ctx context.Context, tx *types.Transaction) (*types.Receipt, error) {
	receipt, err := bind.WaitMined(ctx, w.backend, tx)
	if err != nil {
		return nil, fmt.Errorf("failed waiting for %s: %w", tx.Hash().Hex(), err)
	}
	if receipt.Status != types.ReceiptStatusSuccessful {
		return receipt, fmt.Errorf("%w: %s", ErrTxFailed, tx.Hash().Hex())
	}
	return receipt, nil
}

// Close closes the RPC connection if the wallet opened it
func (w *Wallet) Close() {
	if w.closer != nil {
		w.closer()
	}
}

// RevertData extracts revert data from an RPC error, if the node returned any
func RevertData(err error) ([]byte, bool) {
	var dataErr interface{ ErrorData() interface{} }
	if !errors.As(err, &dataErr) {
		return nil, false
	}
	s, ok := dataErr.ErrorData().(string)
	if !ok {
		return nil, false
	}
	data, decodeErr := hexutil.Decode(s)
	if decodeErr != nil || len(data) == 0 {
		return nil, false
	}
	return data, true
}
