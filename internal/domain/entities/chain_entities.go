package entities

import (
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

// ChainConfig holds the static per-network parameters of the bridge. Loaded once, never mutated.
type ChainConfig struct {
	Key                string   `json:"key"`
	DisplayName        string   `json:"display_name"`
	CustodyBlockchain  string   `json:"custody_blockchain"`
	EVMChainID         int64    `json:"evm_chain_id"`
	DomainID           uint32   `json:"domain_id"`
	TokenAddress       string   `json:"token_address"`
	TokenMessenger     string   `json:"token_messenger"`
	MessageTransmitter string   `json:"message_transmitter"`
	TokenDecimals      int32    `json:"token_decimals"`
	NativeDecimals     int32    `json:"native_decimals"`
	NativeSymbol       string   `json:"native_symbol"`
	MinNativeGas       string   `json:"min_native_gas"`
	RPCURLs            []string `json:"-"`
	ExplorerTxURL      string   `json:"explorer_tx_url"`
	IsHub              bool     `json:"is_hub"`
}

// TxURL renders the explorer link for a transaction hash.
func (c ChainConfig) TxURL(txHash string) string {
	if c.ExplorerTxURL == "" || txHash == "" {
		return ""
	}
	if strings.Contains(c.ExplorerTxURL, "%s") {
		return fmt.Sprintf(c.ExplorerTxURL, txHash)
	}
	return strings.TrimRight(c.ExplorerTxURL, "/") + "/" + txHash
}

// Validate checks the invariants every registry entry must satisfy.
func (c ChainConfig) Validate() error {
	if strings.TrimSpace(c.Key) == "" {
		return fmt.Errorf("chain key is required")
	}
	if c.CustodyBlockchain == "" {
		return fmt.Errorf("chain %s: custody blockchain is required", c.Key)
	}
	for name, addr := range map[string]string{
		"token_address":       c.TokenAddress,
		"token_messenger":     c.TokenMessenger,
		"message_transmitter": c.MessageTransmitter,
	} {
		if !IsHexAddress(addr) {
			return fmt.Errorf("chain %s: %s %q is not a valid address", c.Key, name, addr)
		}
	}
	if c.TokenDecimals < 0 || c.TokenDecimals > 36 {
		return fmt.Errorf("chain %s: token decimals %d out of range", c.Key, c.TokenDecimals)
	}
	if c.NativeDecimals < 0 || c.NativeDecimals > 36 {
		return fmt.Errorf("chain %s: native decimals %d out of range", c.Key, c.NativeDecimals)
	}
	if len(c.RPCURLs) == 0 {
		return fmt.Errorf("chain %s: at least one rpc url is required", c.Key)
	}
	return nil
}

// IsHexAddress reports whether s is a 0x-prefixed 20-byte hex string.
func IsHexAddress(s string) bool {
	return strings.HasPrefix(s, "0x") && common.IsHexAddress(s)
}

// SameAddress reports whether a and b are valid addresses naming the same account, ignoring checksum case.
func SameAddress(a, b string) bool {
	a, b = strings.TrimSpace(a), strings.TrimSpace(b)
	if !IsHexAddress(a) || !IsHexAddress(b) {
		return false
	}
	return common.HexToAddress(a) == common.HexToAddress(b)
}
