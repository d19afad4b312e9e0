package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"math/big"
	"os"
	"strings"
	"time"

	"github.com/briandowns/spinner"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"ooga-swap/config"
	"ooga-swap/pkg/parser"
	"ooga-swap/pkg/wallet"
)

var tokensOwner string

var tokensCmd = &cobra.Command{
	Use:     "tokens <address>...",
	Aliases: []string{"token"},
	Short:   "Show decimals and balances of tokens",
	Long: `Read decimals and balances of ERC20 tokens from RPC_URL.

Balances are shown for --owner, or for the PRIVATE_KEY account when no owner
is given. The zero address stands for the native coin.

Examples:
  ooga-swap tokens 0x0555E30da8f98308EdB960aa94C0Db47230d2B9c
  ooga-swap tokens 0x0000000000000000000000000000000000000000 0x657e... --owner 0xed63...`,
	Args: cobra.MinimumNArgs(1),
	Run:  runTokens,
}

func init() {
	rootCmd.AddCommand(tokensCmd)

	tokensCmd.Flags().StringVar(&tokensOwner, "owner", "", "Account whose balances are shown")
}

// tokenInfo is one row of the tokens output
type tokenInfo struct {
	Token    string `json:"token"`
	Decimals uint8  `json:"decimals"`
	Balance  string `json:"balance,omitempty"`
	Amount   string `json:"amount,omitempty"`
	Error    string `json:"error,omitempty"`
}

func runTokens(cmd *cobra.Command, args []string) {
	jsonOutput, _ := cmd.Flags().GetBool("json")

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		printError(err)
		os.Exit(1)
	}
	if err := cfg.RequireRPC(); err != nil {
		printError(err)
		os.Exit(1)
	}

	tokens := make([]common.Address, 0, len(args))
	for _, arg := range args {
		token, err := parser.ParseAddress(arg)
		if err != nil {
			printError(err)
			os.Exit(1)
		}
		tokens = append(tokens, token)
	}

	owner, err := resolveOwner(tokensOwner, cfg.PrivateKey)
	if err != nil {
		printError(err)
		os.Exit(1)
	}

	ctx, stop := signalContext()
	defer stop()

	client, err := ethclient.DialContext(ctx, cfg.RPCURL)
	if err != nil {
		printError(fmt.Errorf("failed to connect to %s: %w", cfg.RPCURL, err))
		os.Exit(1)
	}
	defer client.Close()

	s := spinner.New(spinner.CharSets[14], 100*time.Millisecond)
	if !jsonOutput {
		s.Suffix = " Reading tokens..."
		s.Start()
	}

	infos := readTokens(ctx, client, tokens, owner)
	if !jsonOutput {
		s.Stop()
	}

	if jsonOutput {
		jsonData, _ := json.MarshalIndent(infos, "", "  ")
		fmt.Println(string(jsonData))
	} else {
		displayTokens(infos, owner)
	}
}

// resolveOwner picks the --owner flag, else the address of the configured key.
// A nil result means balances are skipped.
func resolveOwner(flag, privateKey string) (*common.Address, error) {
	if flag != "" {
		addr, err := parser.ParseAddress(flag)
		if err != nil {
			return nil, fmt.Errorf("--owner: %w", err)
		}
		return &addr, nil
	}
	if privateKey == "" {
		return nil, nil
	}
	key, err := wallet.ParsePrivateKey(privateKey)
	if err != nil {
		return nil, err
	}
	addr := crypto.PubkeyToAddress(key.PublicKey)
	return &addr, nil
}

// readTokens looks up every token. Failures are reported per token.
func readTokens(ctx context.Context, reader wallet.TokenReader, tokens []common.Address, owner *common.Address) []tokenInfo {
	infos := make([]tokenInfo, 0, len(tokens))
	for _, token := range tokens {
		info := tokenInfo{Token: token.Hex()}

		decimals, err := wallet.ReadDecimals(ctx, reader, token)
		if err != nil {
			info.Error = err.Error()
			infos = append(infos, info)
			continue
		}
		info.Decimals = decimals

		if owner != nil {
			var balance *big.Int
			balance, err = wallet.ReadBalance(ctx, reader, token, *owner)
			if err != nil {
				info.Error = err.Error()
			} else {
				info.Balance = balance.String()
				info.Amount = parser.FormatAmount(balance, decimals)
			}
		}
		infos = append(infos, info)
	}
	return infos
}

func displayTokens(infos []tokenInfo, owner *common.Address) {
	fmt.Println("\n" + strings.Repeat("=", 90))
	color.Green("                                  TOKENS")
	fmt.Println(strings.Repeat("=", 90))

	if owner != nil {
		fmt.Printf("\n  Owner: %s\n", color.CyanString(owner.Hex()))
	}
	fmt.Println(strings.Repeat("-", 90))

	for _, info := range infos {
		if info.Error != "" {
			fmt.Printf("  %s  %s\n", color.HiBlackString(info.Token), color.RedString(info.Error))
			continue
		}
		if info.Amount != "" {
			fmt.Printf("  %s  %2d decimals  %s\n", color.HiBlackString(info.Token), info.Decimals, color.YellowString(info.Amount))
		} else {
			fmt.Printf("  %s  %2d decimals\n", color.HiBlackString(info.Token), info.Decimals)
		}
	}

	fmt.Println("\n" + strings.Repeat("=", 90))
	fmt.Printf("\nTotal: %d tokens\n\n", len(infos))
}
