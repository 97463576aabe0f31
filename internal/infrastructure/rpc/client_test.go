package rpc

import (
	"context"
	"encoding/json"
	"fmt"
	"math/big"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type rpcRequest struct {
	ID     json.RawMessage   `json:"id"`
	Method string            `json:"method"`
	Params []json.RawMessage `json:"params"`
}

// newNode serves a minimal JSON-RPC node. results maps method (or eth_call selector) to a result value.
func newNode(t *testing.T, results map[string]interface{}) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req rpcRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))

		key := req.Method
		if req.Method == "eth_call" {
			var call struct {
				Input string `json:"input"`
				Data  string `json:"data"`
			}
			require.NoError(t, json.Unmarshal(req.Params[0], &call))
			input := call.Input
			if input == "" {
				input = call.Data
			}
			key = "eth_call:" + input[:10]
		}

		result, ok := results[key]
		if !ok {
			t.Fatalf("unexpected rpc call %s", key)
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{"jsonrpc": "2.0", "id": req.ID, "result": result})
	}))
}

func word(v int64) string {
	return fmt.Sprintf("0x%064x", v)
}

func TestERC20Reads(t *testing.T) {
	node := newNode(t, map[string]interface{}{
		"eth_call:0x70a08231": word(1500000), // balanceOf
		"eth_call:0xdd62ed3e": word(250000),  // allowance
	})
	defer node.Close()

	client, err := NewClient(map[string][]string{"baseSepolia": {node.URL}}, zap.NewNop())
	require.NoError(t, err)
	defer client.Close()

	ctx := context.Background()
	balance, err := client.ERC20Balance(ctx, "baseSepolia", "0x036CbD53842c5426634e7929541eC2318f3dCF7e", "0x1111111111111111111111111111111111111111")
	require.NoError(t, err)
	assert.Equal(t, big.NewInt(1500000), balance)

	allowance, err := client.ERC20Allowance(ctx, "baseSepolia", "0x036CbD53842c5426634e7929541eC2318f3dCF7e",
		"0x1111111111111111111111111111111111111111", "0x8FE6B999Dc680CcFDD5Bf7EB0974218be2542DAA")
	require.NoError(t, err)
	assert.Equal(t, big.NewInt(250000), allowance)
}

func TestNativeBalanceFailover(t *testing.T) {
	broken := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer broken.Close()

	node := newNode(t, map[string]interface{}{"eth_getBalance": "0xde0b6b3a7640000"}) // 1e18
	defer node.Close()

	client, err := NewClient(map[string][]string{"arcTestnet": {broken.URL, node.URL}}, zap.NewNop())
	require.NoError(t, err)
	defer client.Close()

	balance, err := client.NativeBalance(context.Background(), "arcTestnet", "0x1111111111111111111111111111111111111111")
	require.NoError(t, err)
	want, _ := new(big.Int).SetString("1000000000000000000", 10)
	assert.Equal(t, want, balance)
}

func TestTransactionReceiptNotFound(t *testing.T) {
	node := newNode(t, map[string]interface{}{"eth_getTransactionReceipt": nil})
	defer node.Close()

	client, err := NewClient(map[string][]string{"baseSepolia": {node.URL}}, zap.NewNop())
	require.NoError(t, err)
	defer client.Close()

	_, err = client.TransactionReceipt(context.Background(), "baseSepolia", "0x"+strings.Repeat("ab", 32))
	assert.ErrorIs(t, err, ErrReceiptNotFound)
}

func TestUnknownChain(t *testing.T) {
	client, err := NewClient(nil, zap.NewNop())
	require.NoError(t, err)

	_, err = client.NativeBalance(context.Background(), "nowhere", "0x1111111111111111111111111111111111111111")
	assert.Error(t, err)
}
