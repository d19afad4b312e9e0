package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"ooga-swap/pkg/logger"
)

var rootCmd = &cobra.Command{
	Use:   "ooga-swap",
	Short: "A CLI for token swaps through the OogaBooga swap API",
	Long: `ooga-swap fetches a swap quote from the OogaBooga API, logs the ready-to-sign
transaction it returns and, when asked to, signs and broadcasts that transaction
and waits for its receipt.

Examples:
  ooga-swap swap
  ooga-swap swap --token-in 0x0555... --amount 1e8 --token-out 0x657e... --to 0xed63...
  ooga-swap swap --amount 1.5 --decimals 18 --submit
  ooga-swap decode 0x...
  ooga-swap receipt 0x<tx-hash> --watch
  ooga-swap tokens 0x0555... --owner 0xed63...
  ooga-swap history --status pending`,
	Version:       "0.1.0",
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	// Add global flags
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose output")
	rootCmd.PersistentFlags().BoolP("json", "j", false, "Output in JSON format")
}

// newLogger builds the zap logger from the global flags
func newLogger(cmd *cobra.Command) *zap.Logger {
	verbose, _ := cmd.Flags().GetBool("verbose")
	jsonOutput, _ := cmd.Flags().GetBool("json")

	log, err := logger.New(verbose, jsonOutput)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error creating logger: %v\n", err)
		return zap.NewNop()
	}
	return log
}

// signalContext is cancelled on Ctrl+C or SIGTERM
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func printError(err error) {
	fmt.Printf("\nError: %v\n\n", err)
}

func printSuccess(message string) {
	fmt.Printf("\n%s\n\n", message)
}
