package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"ooga-swap/pkg/router"
)

var decodeCmd = &cobra.Command{
	Use:   "decode <hex>",
	Short: "Decode router calldata or revert data",
	Long: `Decode hex data with the embedded router ABI.

Swap calldata (swap, swapERC20Permit, swapPermit2) is shown argument by argument.
Anything else is tried as revert data against the router's custom errors.

Examples:
  ooga-swap decode 0x<tx-data>
  ooga-swap decode 0x<revert-data> --json`,
	Args: cobra.ExactArgs(1),
	Run:  runDecode,
}

func init() {
	rootCmd.AddCommand(decodeCmd)
}

func runDecode(cmd *cobra.Command, args []string) {
	jsonOutput, _ := cmd.Flags().GetBool("json")

	out, err := decodeHex(args[0])
	if err != nil {
		printError(err)
		os.Exit(1)
	}

	if jsonOutput {
		jsonData, _ := json.MarshalIndent(out, "", "  ")
		fmt.Println(string(jsonData))
		return
	}

	switch v := out.(type) {
	case *router.SwapCall:
		displaySwapCall(v)
	case *router.Revert:
		printSuccess(fmt.Sprintf("Revert: %s", color.RedString(v.String())))
	}
}

// decodeHex returns a *router.SwapCall or a *router.Revert
func decodeHex(input string) (interface{}, error) {
	input = strings.TrimSpace(input)
	if !strings.HasPrefix(input, "0x") {
		input = "0x" + input
	}
	data, err := hexutil.Decode(input)
	if err != nil {
		return nil, fmt.Errorf("invalid hex data: %w", err)
	}

	call, err := router.DecodeSwapCall(data)
	if err == nil {
		return call, nil
	}
	if !errors.Is(err, router.ErrNotSwapCall) {
		return nil, err
	}

	rev, revErr := router.DecodeRevert(data)
	if revErr != nil {
		return nil, fmt.Errorf("data is neither a swap call nor a known revert: %w", revErr)
	}
	return rev, nil
}

func displaySwapCall(call *router.SwapCall) {
	info := call.TokenInfo

	fmt.Println("\n" + strings.Repeat("=", 70))
	color.Green("                         ROUTER CALL: %s", call.Method)
	fmt.Println(strings.Repeat("=", 70))

	fmt.Printf("\n  Input Token:       %s\n", color.YellowString(info.InputToken.Hex()))
	fmt.Printf("  Input Amount:      %s\n", info.InputAmount)
	fmt.Printf("  Output Token:      %s\n", color.YellowString(info.OutputToken.Hex()))
	fmt.Printf("  Output Quote:      %s\n", info.OutputQuote)
	fmt.Printf("  Output Min:        %s\n", info.OutputMin)
	fmt.Printf("  Receiver:          %s\n", color.CyanString(info.OutputReceiver.Hex()))
	fmt.Printf("  Executor:          %s\n", color.HiBlackString(call.Executor.Hex()))
	fmt.Printf("  Referral Code:     %d\n", call.ReferralCode)
	fmt.Printf("  Path Definition:   %d bytes\n", len(call.PathDefinition))

	fmt.Println("\n" + strings.Repeat("=", 70) + "\n")
}
