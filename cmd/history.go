package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	ethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"ooga-swap/config"
	"ooga-swap/pkg/history"
	"ooga-swap/pkg/router"
)

var historyStatus string

var historyCmd = &cobra.Command{
	Use:     "history",
	Aliases: []string{"ls"},
	Short:   "List swaps submitted from this machine",
	Long: `List swaps broadcast with "swap --submit", newest first.

Pending entries are resolved by "receipt <tx-hash>".

Examples:
  ooga-swap history
  ooga-swap history --status pending`,
	Args: cobra.NoArgs,
	Run:  runHistory,
}

func init() {
	rootCmd.AddCommand(historyCmd)

	historyCmd.Flags().StringVar(&historyStatus, "status", "", "Filter by status (pending, success, reverted)")
}

func runHistory(cmd *cobra.Command, args []string) {
	jsonOutput, _ := cmd.Flags().GetBool("json")

	cfg, err := config.Load()
	if err != nil {
		printError(err)
		os.Exit(1)
	}

	switch historyStatus {
	case "", history.StatusPending, history.StatusSuccess, history.StatusReverted:
	default:
		printError(fmt.Errorf("invalid --status %q", historyStatus))
		os.Exit(1)
	}

	store, err := history.Open(cfg.HistoryFile)
	if err != nil {
		printError(err)
		os.Exit(1)
	}

	records := store.List(historyStatus)

	if jsonOutput {
		jsonData, _ := json.MarshalIndent(records, "", "  ")
		fmt.Println(string(jsonData))
		return
	}
	displayHistory(records)
}

// openHistory opens the swap history, logging instead of failing
func openHistory(log *zap.Logger, path string) *history.Store {
	store, err := history.Open(path)
	if err != nil {
		log.Warn("swap history unavailable", zap.Error(err))
		return nil
	}
	return store
}

// recordOutcome stores a mined receipt against its history entry, if any
func recordOutcome(log *zap.Logger, store *history.Store, receipt *ethtypes.Receipt, events []router.SwapEvent) {
	if store == nil || receipt == nil {
		return
	}

	var amountOut string
	if len(events) > 0 {
		amountOut = events[0].AmountOut.String()
	}

	found, err := store.Resolve(swapStatus(receipt), amountOut)
	if err != nil {
		log.Warn("could not update swap history", zap.Error(err))
		return
	}
	if found {
		log.Debug("swap history updated", zap.String("hash", receipt.TxHash.Hex()), zap.String("path", store.Path()))
	}
}

func displayHistory(records []*history.Record) {
	if len(records) == 0 {
		fmt.Println("\nNo swaps recorded.")
		return
	}

	fmt.Println("\n" + strings.Repeat("=", 90))
	color.Green("                                SWAP HISTORY")
	fmt.Println(strings.Repeat("=", 90))

	for _, rec := range records {
		fmt.Printf("\n  %s  %s\n", color.CyanString(rec.TxHash), getColoredStatus(rec.Status))
		fmt.Printf("    Submitted:     %s\n", rec.SubmittedAt.Local().Format("2006-01-02 15:04:05"))
		fmt.Printf("    In:            %s %s\n", rec.Amount, color.YellowString(rec.TokenIn))
		if rec.AmountOut != "" {
			fmt.Printf("    Out:           %s %s\n", rec.AmountOut, color.YellowString(rec.TokenOut))
		} else {
			fmt.Printf("    Out:           %s\n", color.YellowString(rec.TokenOut))
		}
		if rec.BlockNumber > 0 {
			fmt.Printf("    Block:         %d\n", rec.BlockNumber)
		}
	}

	fmt.Println("\n" + strings.Repeat("=", 90))
	fmt.Printf("\nTotal: %d swaps\n\n", len(records))
}
