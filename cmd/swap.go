package cmd

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/briandowns/spinner"
	"github.com/ethereum/go-ethereum/common"
	ethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"ooga-swap/config"
	"ooga-swap/pkg/client"
	"ooga-swap/pkg/history"
	"ooga-swap/pkg/httputil"
	"ooga-swap/pkg/parser"
	"ooga-swap/pkg/router"
	"ooga-swap/pkg/types"
	"ooga-swap/pkg/wallet"
)

const (
	defaultTokenIn  = "0x0555E30da8f98308EdB960aa94C0Db47230d2B9c"
	defaultAmount   = "1e8"
	defaultTokenOut = "0x657e8C867D8B37dCC18fA4Caead9C45EB088C642"
	defaultTo       = "0xed63E871F5de87cb1919671eE9e2d331183Eda8f"
)

// ErrConfirmationRequired is returned when a swap would be broadcast without
// an interactive prompt and without --yes.
var ErrConfirmationRequired = errors.New("--submit with --json needs --yes, there is no interactive prompt in JSON mode")

// swapOptions are the raw flag values of the swap command
type swapOptions struct {
	tokenIn    string
	amount     string
	decimals   int
	tokenOut   string
	to         string
	slippage   float64
	executor   string
	submit     bool
	noConfirm  bool
	skipVerify bool
}

var swapOpts swapOptions

var swapCmd = &cobra.Command{
	Use:   "swap",
	Short: "Fetch a swap quote and optionally execute it",
	Long: `Request a swap from the OogaBooga API and log the transaction it returns.

Without --submit nothing is signed: the quote, router parameters and router
address are printed and the command exits. With --submit the calldata is checked
against the request, the router is approved for the input token if needed, and
the transaction is signed with PRIVATE_KEY, broadcast to RPC_URL and waited on.

Amounts are in base units unless --decimals is given.

Examples:
  # Quote only, using the default token pair
  ooga-swap swap

  # Quote 1.5 tokens of an 18-decimals token with 0.5% slippage
  ooga-swap swap --token-in 0x... --token-out 0x... --to 0x... --amount 1.5 --decimals 18 --slippage 0.005

  # Execute without a confirmation prompt
  ooga-swap swap --submit --yes`,
	Args: cobra.NoArgs,
	Run:  runSwap,
}

func init() {
	rootCmd.AddCommand(swapCmd)

	swapCmd.Flags().StringVar(&swapOpts.tokenIn, "token-in", defaultTokenIn, "Input token address (zero address for the native coin)")
	swapCmd.Flags().StringVar(&swapOpts.amount, "amount", defaultAmount, "Amount of the input token")
	swapCmd.Flags().IntVar(&swapOpts.decimals, "decimals", -1, "Read --amount in whole tokens with this many decimals")
	swapCmd.Flags().StringVar(&swapOpts.tokenOut, "token-out", defaultTokenOut, "Output token address")
	swapCmd.Flags().StringVar(&swapOpts.to, "to", defaultTo, "Recipient of the output tokens")
	swapCmd.Flags().Float64Var(&swapOpts.slippage, "slippage", 0, "Slippage tolerance as a fraction (default from SLIPPAGE, else 0.01)")
	swapCmd.Flags().StringVar(&swapOpts.executor, "executor", "", "Expected executor address; warn when the quote uses another")
	swapCmd.Flags().BoolVar(&swapOpts.submit, "submit", false, "Sign and broadcast the swap transaction")
	swapCmd.Flags().BoolVarP(&swapOpts.noConfirm, "yes", "y", false, "Skip confirmation prompt")
	swapCmd.Flags().BoolVar(&swapOpts.skipVerify, "skip-verify", false, "Submit even if the calldata does not match the request")
}

func runSwap(cmd *cobra.Command, args []string) {
	log := newLogger(cmd)
	defer log.Sync()

	if err := executeSwap(cmd, log); err != nil {
		printError(err)
		os.Exit(1)
	}
}

func executeSwap(cmd *cobra.Command, log *zap.Logger) error {
	jsonOutput, _ := cmd.Flags().GetBool("json")

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if err := cfg.RequireAPIKey(); err != nil {
		return err
	}

	opts := swapOpts
	if !cmd.Flags().Changed("slippage") {
		opts.slippage = cfg.Slippage
	}

	swapReq, err := buildSwapRequest(opts)
	if err != nil {
		return err
	}
	if err := checkSubmitFlags(opts, jsonOutput); err != nil {
		return err
	}

	log.Info("swapParams",
		zap.String("tokenIn", swapReq.TokenIn.Hex()),
		zap.String("amount", swapReq.Amount.String()),
		zap.String("tokenOut", swapReq.TokenOut.Hex()),
		zap.String("to", swapReq.To.Hex()),
		zap.Float64("slippage", swapReq.Slippage),
	)

	ctx, stop := signalContext()
	defer stop()

	// Create client
	apiClient := client.NewOogaBoogaClient(cfg.BaseURL, cfg.APIKey,
		client.WithHTTPClient(&http.Client{Timeout: cfg.HTTPTimeout}),
		client.WithRetry(httputil.RetryConfig{
			MaxAttempts: cfg.MaxAttempts,
			BaseDelay:   httputil.DefaultRetry.BaseDelay,
			MaxDelay:    httputil.DefaultRetry.MaxDelay,
			Logger:      log,
		}),
		client.WithLogger(log),
	)

	// Get quote with spinner
	s := spinner.New(spinner.CharSets[14], 100*time.Millisecond)
	if !jsonOutput {
		s.Suffix = " Fetching quote..."
		s.Start()
	}

	quote, err := apiClient.GetSwap(ctx, swapReq)
	if !jsonOutput {
		s.Stop()
	}
	if err != nil {
		return err
	}

	logQuote(log, quote)
	checkExecutor(log, opts.executor, quote)

	if jsonOutput {
		jsonData, _ := json.MarshalIndent(quoteSummary(swapReq, quote), "", "  ")
		fmt.Println(string(jsonData))
	} else {
		displayQuote(swapReq, quote)
	}

	if !opts.submit {
		if !jsonOutput {
			fmt.Println("Quote only. Re-run with --submit to sign and broadcast this transaction.")
		}
		return nil
	}

	if err := cfg.RequireWallet(); err != nil {
		return err
	}

	w, err := wallet.Dial(ctx, cfg.RPCURL, cfg.PrivateKey, cfg.ChainID, log)
	if err != nil {
		return err
	}
	defer w.Close()

	return submitSwap(ctx, cfg, log, w, swapReq, quote, opts, jsonOutput)
}

// buildSwapRequest turns flag values into a validated swap request
func buildSwapRequest(opts swapOptions) (*types.SwapRequest, error) {
	tokenIn, err := parser.ParseAddress(opts.tokenIn)
	if err != nil {
		return nil, fmt.Errorf("--token-in: %w", err)
	}
	tokenOut, err := parser.ParseAddress(opts.tokenOut)
	if err != nil {
		return nil, fmt.Errorf("--token-out: %w", err)
	}
	to, err := parser.ParseAddress(opts.to)
	if err != nil {
		return nil, fmt.Errorf("--to: %w", err)
	}

	req := &types.SwapRequest{
		TokenIn:  tokenIn,
		TokenOut: tokenOut,
		To:       to,
		Slippage: opts.slippage,
	}

	switch {
	case opts.decimals < 0:
		req.Amount, err = parser.ParseBaseUnits(opts.amount)
	case opts.decimals > 255:
		err = fmt.Errorf("--decimals must be at most 255")
	default:
		req.Amount, err = parser.ParseAmount(opts.amount, uint8(opts.decimals))
	}
	if err != nil {
		return nil, err
	}

	if err := parser.ValidateSwapRequest(req); err != nil {
		return nil, err
	}
	return req, nil
}

// checkSubmitFlags refuses to broadcast unattended unless --yes was given
func checkSubmitFlags(opts swapOptions, jsonOutput bool) error {
	if opts.submit && jsonOutput && !opts.noConfirm {
		return ErrConfirmationRequired
	}
	return nil
}

func logQuote(log *zap.Logger, quote *types.SwapResponse) {
	value, _ := quote.Tx.ValueWei()
	log.Info("tx",
		zap.String("from", quote.Tx.From.Hex()),
		zap.String("to", quote.Tx.To.Hex()),
		zap.String("data", quote.Tx.Data.String()),
		zap.Stringer("value", value),
	)
	log.Info("routerParams", zap.String("routerParams", string(quote.RawRouterParams)))
	log.Info("routerAddr", zap.String("routerAddr", quote.RouterAddr.Hex()))
}

// checkExecutor warns when the quote routes through an unexpected executor
func checkExecutor(log *zap.Logger, expected string, quote *types.SwapResponse) {
	if expected == "" || quote.RouterParams == nil {
		return
	}
	want, err := parser.ParseAddress(expected)
	if err != nil {
		log.Warn("ignoring --executor", zap.Error(err))
		return
	}
	log.Debug("exec", zap.String("exec", want.Hex()))
	if quote.RouterParams.Executor != want {
		log.Warn("quote uses a different executor",
			zap.String("expected", want.Hex()),
			zap.String("actual", quote.RouterParams.Executor.Hex()),
		)
	}
}

func quoteSummary(req *types.SwapRequest, quote *types.SwapResponse) map[string]interface{} {
	out := map[string]interface{}{
		"token_in":    req.TokenIn.Hex(),
		"amount":      req.Amount.String(),
		"token_out":   req.TokenOut.Hex(),
		"to":          req.To.Hex(),
		"slippage":    req.Slippage,
		"router_addr": quote.RouterAddr.Hex(),
		"tx":          quote.Tx,
		"status":      "quote_generated",
	}
	if quote.RouterParams != nil {
		out["output_quote"] = string(quote.RouterParams.SwapTokenInfo.OutputQuote)
		out["output_min"] = string(quote.RouterParams.SwapTokenInfo.OutputMin)
		out["executor"] = quote.RouterParams.Executor.Hex()
		out["router_params"] = json.RawMessage(quote.RawRouterParams)
	}
	return out
}

// verifyQuote checks the transaction returned by the API before it is signed.
// tx.from is not checked here: the API may fill it with the recipient.
func verifyQuote(req *types.SwapRequest, quote *types.SwapResponse) error {
	if quote.RouterAddr != (common.Address{}) && quote.Tx.To != quote.RouterAddr {
		return fmt.Errorf("%w: transaction targets %s, router is %s", router.ErrCalldataMismatch, quote.Tx.To.Hex(), quote.RouterAddr.Hex())
	}

	call, err := router.DecodeSwapCall(quote.Tx.Data)
	if err != nil {
		return err
	}
	if err := router.VerifySwapCall(call, req); err != nil {
		return err
	}

	value, err := quote.Tx.ValueWei()
	if err != nil {
		return err
	}
	if req.IsNativeIn() && value.Cmp(req.Amount) != 0 {
		return fmt.Errorf("%w: native swap sends %s, requested %s", router.ErrCalldataMismatch, value, req.Amount)
	}
	return nil
}

func submitSwap(ctx context.Context, cfg *config.Config, log *zap.Logger, w *wallet.Wallet, swapReq *types.SwapRequest, quote *types.SwapResponse, opts swapOptions, jsonOutput bool) error {
	if err := checkSubmitFlags(opts, jsonOutput); err != nil {
		return err
	}

	if err := verifyQuote(swapReq, quote); err != nil {
		if !opts.skipVerify {
			return err
		}
		log.Warn("calldata verification failed, submitting anyway", zap.Error(err))
	}
	if from := quote.Tx.From; from != (common.Address{}) && from != w.Address() {
		log.Warn("quote was built for another sender",
			zap.String("from", from.Hex()),
			zap.String("wallet", w.Address().Hex()),
		)
	}

	routerAddr := quote.Tx.To
	if paused, err := router.Paused(ctx, w.Backend(), routerAddr); err != nil {
		log.Warn("could not read router pause state", zap.Error(err))
	} else if paused {
		return fmt.Errorf("router %s is paused", routerAddr.Hex())
	}

	balance, err := w.TokenBalance(ctx, swapReq.TokenIn)
	if err != nil {
		return fmt.Errorf("failed to read input token balance: %w", err)
	}
	if balance.Cmp(swapReq.Amount) < 0 {
		return fmt.Errorf("insufficient balance: have %s, need %s", balance, swapReq.Amount)
	}

	if !opts.noConfirm {
		decimals, err := w.TokenDecimals(ctx, swapReq.TokenIn)
		if err != nil {
			log.Debug("could not read token decimals", zap.Error(err))
			decimals = 0
		}
		fmt.Printf("  Sender:            %s\n", color.CyanString(w.Address().Hex()))
		fmt.Printf("  Balance:           %s\n", parser.FormatAmount(balance, decimals))
		fmt.Printf("  Spending:          %s\n", parser.FormatAmount(swapReq.Amount, decimals))
		if !confirmSwap() {
			fmt.Println("\nSwap cancelled.")
			return nil
		}
	}

	s := spinner.New(spinner.CharSets[14], 100*time.Millisecond)
	if !jsonOutput {
		s.Suffix = " Checking allowance..."
		s.Start()
	}
	approval, err := w.EnsureAllowance(ctx, swapReq.TokenIn, routerAddr, swapReq.Amount)
	if !jsonOutput {
		s.Stop()
	}
	if err != nil {
		return err
	}
	if approval != nil {
		log.Info("approval mined", zap.String("hash", approval.TxHash.Hex()))
	}

	value, err := quote.Tx.ValueWei()
	if err != nil {
		return err
	}

	log.Info("Submitting swap...")
	tx, err := w.Send(ctx, wallet.TxRequest{To: routerAddr, Data: quote.Tx.Data, Value: value})
	if err != nil {
		return explainRevert(err)
	}
	log.Info("hash", zap.String("hash", tx.Hash().Hex()))

	store := openHistory(log, cfg.HistoryFile)
	if store != nil {
		rec := &history.Record{
			SwapStatus: types.SwapStatus{TxHash: tx.Hash().Hex()},
			Router:     routerAddr.Hex(),
			TokenIn:    swapReq.TokenIn.Hex(),
			TokenOut:   swapReq.TokenOut.Hex(),
			Amount:     swapReq.Amount.String(),
			To:         swapReq.To.Hex(),
		}
		if addErr := store.Add(rec); addErr != nil {
			log.Warn("could not record swap", zap.Error(addErr))
		}
	}

	waitCtx, cancel := context.WithTimeout(ctx, cfg.ReceiptTimeout)
	defer cancel()

	if !jsonOutput {
		s.Suffix = " Waiting for receipt..."
		s.Start()
	}
	receipt, err := w.WaitForReceipt(waitCtx, tx)
	if !jsonOutput {
		s.Stop()
	}
	if err != nil && !errors.Is(err, wallet.ErrTxFailed) {
		return err
	}

	log.Info("Swap complete", zap.String("status", receiptStatus(receipt)))

	events, evErr := router.ParseSwapEvents(receipt.Logs, routerAddr)
	if evErr != nil {
		log.Warn("could not decode swap events", zap.Error(evErr))
	}
	recordOutcome(log, store, receipt, events)

	if jsonOutput {
		jsonData, _ := json.MarshalIndent(receiptSummary(receipt, events), "", "  ")
		fmt.Println(string(jsonData))
	} else {
		displayReceipt(receipt, events)
	}

	return err
}

// explainRevert decodes router revert data carried by an RPC error
func explainRevert(err error) error {
	data, ok := wallet.RevertData(err)
	if !ok {
		return err
	}
	rev, decodeErr := router.DecodeRevert(data)
	if decodeErr != nil {
		return err
	}
	return fmt.Errorf("%w (reverted with %s)", err, rev)
}

func receiptStatus(receipt *ethtypes.Receipt) string {
	if receipt.Status == ethtypes.ReceiptStatusSuccessful {
		return "success"
	}
	return "reverted"
}

func displayQuote(req *types.SwapRequest, quote *types.SwapResponse) {
	fmt.Println("\n" + strings.Repeat("=", 70))
	color.Green("                            SWAP QUOTE")
	fmt.Println(strings.Repeat("=", 70))

	fmt.Printf("\n  Token In:          %s\n", color.YellowString(req.TokenIn.Hex()))
	fmt.Printf("  Amount In:         %s\n", req.Amount.String())
	fmt.Printf("  Token Out:         %s\n", color.YellowString(req.TokenOut.Hex()))
	if p := quote.RouterParams; p != nil {
		fmt.Printf("  Quoted Out:        ~%s\n", p.SwapTokenInfo.OutputQuote)
		fmt.Printf("  Minimum Out:       %s\n", p.SwapTokenInfo.OutputMin)
		fmt.Printf("  Executor:          %s\n", color.HiBlackString(p.Executor.Hex()))
	}
	fmt.Printf("  Recipient:         %s\n", color.CyanString(req.To.Hex()))
	fmt.Printf("  Slippage:          %g%%\n", req.Slippage*100)
	fmt.Printf("  Router:            %s\n", color.CyanString(quote.RouterAddr.Hex()))
	fmt.Printf("  Calldata:          %d bytes\n", len(quote.Tx.Data))

	fmt.Println("\n" + strings.Repeat("=", 70) + "\n")
}

func confirmSwap() bool {
	reader := bufio.NewReader(os.Stdin)
	fmt.Print("\nProceed with swap? (y/N): ")

	response, err := reader.ReadString('\n')
	if err != nil {
		return false
	}

	response = strings.TrimSpace(strings.ToLower(response))
	return response == "y" || response == "yes"
}
