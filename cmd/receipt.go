package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/briandowns/spinner"
	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	ethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"ooga-swap/config"
	"ooga-swap/pkg/router"
	"ooga-swap/pkg/types"
)

var (
	receiptRouter   string
	watchReceipt    bool
	receiptInterval int
)

var receiptCmd = &cobra.Command{
	Use:   "receipt <tx-hash>",
	Short: "Check the status of a swap transaction",
	Long: `Look up the receipt of a submitted swap and decode the router's Swap events.

The router address defaults to the transaction's destination.

Examples:
  ooga-swap receipt 0x1234...abcd
  ooga-swap receipt 0x1234...abcd --watch
  ooga-swap receipt 0x1234...abcd --watch --interval 2 --router 0xFd88...`,
	Args: cobra.ExactArgs(1),
	Run:  runReceipt,
}

func init() {
	rootCmd.AddCommand(receiptCmd)

	receiptCmd.Flags().StringVar(&receiptRouter, "router", "", "Router address whose events to decode")
	receiptCmd.Flags().BoolVarP(&watchReceipt, "watch", "w", false, "Wait until the transaction is mined")
	receiptCmd.Flags().IntVar(&receiptInterval, "interval", 5, "Polling interval in seconds (when watching)")
}

func runReceipt(cmd *cobra.Command, args []string) {
	log := newLogger(cmd)
	defer log.Sync()

	if err := executeReceipt(cmd, log, args[0]); err != nil {
		printError(err)
		os.Exit(1)
	}
}

func executeReceipt(cmd *cobra.Command, log *zap.Logger, hashArg string) error {
	jsonOutput, _ := cmd.Flags().GetBool("json")

	if !isTxHash(hashArg) {
		return fmt.Errorf("invalid transaction hash: %s", hashArg)
	}
	hash := common.HexToHash(hashArg)

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if err := cfg.RequireRPC(); err != nil {
		return err
	}

	ctx, stop := signalContext()
	defer stop()

	client, err := ethclient.DialContext(ctx, cfg.RPCURL)
	if err != nil {
		return fmt.Errorf("failed to connect to RPC endpoint: %w", err)
	}
	defer client.Close()

	var receipt *ethtypes.Receipt
	if watchReceipt {
		if jsonOutput {
			return fmt.Errorf("watch mode not supported with JSON output")
		}
		receipt, err = watchForReceipt(ctx, client, hash, time.Duration(receiptInterval)*time.Second)
	} else {
		s := spinner.New(spinner.CharSets[14], 100*time.Millisecond)
		if !jsonOutput {
			s.Suffix = " Fetching receipt..."
			s.Start()
		}
		receipt, err = client.TransactionReceipt(ctx, hash)
		if !jsonOutput {
			s.Stop()
		}
		if errors.Is(err, ethereum.NotFound) {
			return fmt.Errorf("transaction %s is pending or unknown", hash.Hex())
		}
	}
	if err != nil {
		return err
	}

	routerAddr, err := resolveRouter(ctx, client, hash, receiptRouter)
	if err != nil {
		log.Warn("could not resolve router address, skipping event decoding", zap.Error(err))
	}

	var events []router.SwapEvent
	if routerAddr != (common.Address{}) {
		events, err = router.ParseSwapEvents(receipt.Logs, routerAddr)
		if err != nil {
			log.Warn("could not decode swap events", zap.Error(err))
		}
	}
	recordOutcome(log, openHistory(log, cfg.HistoryFile), receipt, events)

	if jsonOutput {
		jsonData, _ := json.MarshalIndent(receiptSummary(receipt, events), "", "  ")
		fmt.Println(string(jsonData))
	} else {
		displayReceipt(receipt, events)
	}
	return nil
}

func isTxHash(s string) bool {
	s = strings.TrimPrefix(s, "0x")
	if len(s) != 64 {
		return false
	}
	_, err := hexutil.Decode("0x" + s)
	return err == nil
}

// resolveRouter returns the --router flag, or the transaction's destination
func resolveRouter(ctx context.Context, client *ethclient.Client, hash common.Hash, flag string) (common.Address, error) {
	if flag != "" {
		if !common.IsHexAddress(flag) {
			return common.Address{}, fmt.Errorf("invalid --router address: %s", flag)
		}
		return common.HexToAddress(flag), nil
	}

	tx, _, err := client.TransactionByHash(ctx, hash)
	if err != nil {
		return common.Address{}, err
	}
	if tx.To() == nil {
		return common.Address{}, fmt.Errorf("transaction %s is a contract creation", hash.Hex())
	}
	return *tx.To(), nil
}

func watchForReceipt(ctx context.Context, client *ethclient.Client, hash common.Hash, interval time.Duration) (*ethtypes.Receipt, error) {
	if interval <= 0 {
		interval = time.Second
	}

	fmt.Printf("\nWatching transaction %s\n", color.CyanString(hash.Hex()))
	fmt.Printf("Checking every %s. Press Ctrl+C to stop.\n\n", interval)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		receipt, err := client.TransactionReceipt(ctx, hash)
		switch {
		case err == nil:
			return receipt, nil
		case errors.Is(err, ethereum.NotFound):
			color.Yellow("%s  PENDING", time.Now().Format("15:04:05"))
		default:
			color.Red("Error: %v", err)
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}

func receiptSummary(receipt *ethtypes.Receipt, events []router.SwapEvent) map[string]interface{} {
	status := swapStatus(receipt)

	swaps := make([]map[string]interface{}, 0, len(events))
	for _, ev := range events {
		swaps = append(swaps, map[string]interface{}{
			"sender":        ev.Sender.Hex(),
			"input_token":   ev.InputToken.Hex(),
			"input_amount":  ev.InputAmount.String(),
			"output_token":  ev.OutputToken.Hex(),
			"amount_out":    ev.AmountOut.String(),
			"slippage":      ev.Slippage.String(),
			"referral_code": ev.ReferralCode,
		})
	}

	return map[string]interface{}{
		"receipt": status,
		"swaps":   swaps,
	}
}

func swapStatus(receipt *ethtypes.Receipt) types.SwapStatus {
	status := types.SwapStatus{
		TxHash:  receipt.TxHash.Hex(),
		Status:  receiptStatus(receipt),
		GasUsed: receipt.GasUsed,
	}
	if receipt.BlockNumber != nil {
		status.BlockNumber = receipt.BlockNumber.Uint64()
	}
	return status
}

func displayReceipt(receipt *ethtypes.Receipt, events []router.SwapEvent) {
	fmt.Println("\n" + strings.Repeat("=", 70))
	color.Green("                          SWAP RECEIPT")
	fmt.Println(strings.Repeat("=", 70))

	fmt.Printf("\n  Tx Hash:         %s\n", color.CyanString(receipt.TxHash.Hex()))
	fmt.Printf("  Status:          %s\n", getColoredStatus(receiptStatus(receipt)))
	if receipt.BlockNumber != nil {
		fmt.Printf("  Block:           %s\n", receipt.BlockNumber)
	}
	fmt.Printf("  Gas Used:        %d\n", receipt.GasUsed)

	for _, ev := range events {
		fmt.Printf("\n  Swap by %s\n", color.HiBlackString(ev.Sender.Hex()))
		fmt.Printf("    In:            %s %s\n", ev.InputAmount, color.YellowString(ev.InputToken.Hex()))
		fmt.Printf("    Out:           %s %s\n", ev.AmountOut, color.YellowString(ev.OutputToken.Hex()))
		fmt.Printf("    Slippage:      %s\n", ev.Slippage)
	}

	fmt.Println("\n" + strings.Repeat("=", 70) + "\n")
}

func getColoredStatus(status string) string {
	status = strings.ToUpper(status)

	switch status {
	case "SUCCESS":
		return color.GreenString(status)
	case "PENDING":
		return color.YellowString(status)
	case "REVERTED":
		return color.RedString(status)
	default:
		return status
	}
}
