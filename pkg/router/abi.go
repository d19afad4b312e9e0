package router

import (
	"bytes"
	_ "embed"
	"fmt"
	"sync"

	"github.com/ethereum/go-ethereum/accounts/abi"
)

// routerABI describes the OogaBooga router contract: swap entry points,
// admin functions, events and custom errors.
//
//go:embed router.abi.json
var routerABI []byte

var (
	parsedOnce sync.Once
	parsed     abi.ABI
	parseErr   error
)

// ABI returns the parsed router ABI
func ABI() (abi.ABI, error) {
	parsedOnce.Do(func() {
		parsed, parseErr = abi.JSON(bytes.NewReader(routerABI))
		if parseErr != nil {
			parseErr = fmt.Errorf("failed to parse router ABI: %w", parseErr)
		}
	})
	return parsed, parseErr
}

// MustABI is ABI for callers that cannot recover from a broken embedded ABI
func MustABI() abi.ABI {
	a, err := ABI()
	if err != nil {
		panic(err)
	}
	return a
}
