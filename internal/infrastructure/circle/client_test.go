package circle

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/x509"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"encoding/pem"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/rail-service/hub_bridge/internal/domain/entities"
)

const testEntitySecret = "0x8f2b7c1d9e4a6b3c5d7e9f1a2b4c6d8e0f1a3b5c7d9e1f2a4b6c8d0e2f4a6b8c"

func newTestKey(t *testing.T) (*rsa.PrivateKey, string) {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	der, err := x509.MarshalPKIXPublicKey(&key.PublicKey)
	require.NoError(t, err)
	return key, string(pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: der}))
}

func newTestClient(t *testing.T, server *httptest.Server, cfg Config) *Client {
	t.Helper()
	cfg.BaseURL = server.URL
	cfg.APIKey = "TEST_API_KEY"
	cfg.RetryBackoff = time.Millisecond
	cfg.RequestsPerSecond = 1000
	client, err := NewClient(cfg, zap.NewNop())
	require.NoError(t, err)
	return client
}

func TestEntitySecretSealer(t *testing.T) {
	ctx := context.Background()

	t.Run("fresh ciphertext per call under the entity key", func(t *testing.T) {
		key, pemKey := newTestKey(t)
		fetches := 0
		sealer, err := NewEntitySecretSealer(testEntitySecret, "", func(context.Context) (string, error) {
			fetches++
			return pemKey, nil
		}, zap.NewNop())
		require.NoError(t, err)

		first, err := sealer.Ciphertext(ctx)
		require.NoError(t, err)
		second, err := sealer.Ciphertext(ctx)
		require.NoError(t, err)

		assert.NotEqual(t, first, second)
		assert.Equal(t, 1, fetches)

		raw, err := base64.StdEncoding.DecodeString(first)
		require.NoError(t, err)
		plain, err := rsa.DecryptOAEP(sha256.New(), rand.Reader, key, raw, nil)
		require.NoError(t, err)
		assert.Equal(t, testEntitySecret[2:], hex.EncodeToString(plain))
	})

	t.Run("falls back to static ciphertext", func(t *testing.T) {
		sealer, err := NewEntitySecretSealer("", "STATIC", nil, zap.NewNop())
		require.NoError(t, err)
		c, err := sealer.Ciphertext(ctx)
		require.NoError(t, err)
		assert.Equal(t, "STATIC", c)
	})

	t.Run("nothing configured", func(t *testing.T) {
		sealer, err := NewEntitySecretSealer("", "", nil, zap.NewNop())
		require.NoError(t, err)
		_, err = sealer.Ciphertext(ctx)
		assert.ErrorIs(t, err, ErrNoEntitySecret)
	})

	t.Run("rejects short secret", func(t *testing.T) {
		_, err := NewEntitySecretSealer("abcd", "", nil, zap.NewNop())
		assert.Error(t, err)
	})

	t.Run("parses pkcs1 keys", func(t *testing.T) {
		key, err := rsa.GenerateKey(rand.Reader, 2048)
		require.NoError(t, err)
		pemKey := pem.EncodeToMemory(&pem.Block{Type: "RSA PUBLIC KEY", Bytes: x509.MarshalPKCS1PublicKey(&key.PublicKey)})
		pub, err := ParseRSAPublicKey(string(pemKey))
		require.NoError(t, err)
		assert.Equal(t, key.PublicKey.N, pub.N)
	})
}

func TestCreateWallets(t *testing.T) {
	_, pemKey := newTestKey(t)
	var received entities.CircleWalletCreateRequest

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case publicKeyPath:
			json.NewEncoder(w).Encode(map[string]interface{}{"data": map[string]string{"publicKey": pemKey}})
		case developerWallets:
			assert.Equal(t, http.MethodPost, r.Method)
			assert.Equal(t, "Bearer TEST_API_KEY", r.Header.Get("Authorization"))
			assert.NotEmpty(t, r.Header.Get("X-Request-ID"))
			require.NoError(t, json.NewDecoder(r.Body).Decode(&received))
			json.NewEncoder(w).Encode(map[string]interface{}{
				"data": map[string]interface{}{
					"wallets": []map[string]interface{}{
						{"id": "w-arc", "address": "0xabc", "blockchain": "ARC-TESTNET", "accountType": "SCA", "refId": "user-1"},
						{"id": "w-base", "address": "0xabc", "blockchain": "BASE-SEPOLIA", "accountType": "SCA", "refId": "user-1"},
					},
				},
			})
		default:
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
	}))
	defer server.Close()

	client := newTestClient(t, server, Config{EntitySecret: testEntitySecret})
	resp, err := client.CreateWallets(context.Background(), entities.CircleWalletCreateRequest{
		IdempotencyKey: "fixed-key",
		Blockchains:    []string{"ARC-TESTNET", "BASE-SEPOLIA"},
		Count:          1,
		AccountType:    "SCA",
		WalletSetID:    "set-1",
		Metadata:       []entities.CircleWalletMetadata{{Name: "AGENT-SCA-UNIVERSAL", RefID: "user-1"}},
	})

	require.NoError(t, err)
	require.Len(t, resp.Wallets, 2)
	assert.Equal(t, "w-base", resp.Wallets[1].ID)
	assert.Equal(t, "fixed-key", received.IdempotencyKey)
	assert.NotEmpty(t, received.EntitySecretCiphertext)
	assert.Equal(t, []string{"ARC-TESTNET", "BASE-SEPOLIA"}, received.Blockchains)
	require.Len(t, received.Metadata, 1)
	assert.Equal(t, "user-1", received.Metadata[0].RefID)
}

func TestListWalletsByRefID(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, walletsPath, r.URL.Path)
		assert.Equal(t, "user 1", r.URL.Query().Get("refId"))
		assert.Equal(t, "set-1", r.URL.Query().Get("walletSetId"))
		json.NewEncoder(w).Encode(map[string]interface{}{"data": map[string]interface{}{"wallets": []interface{}{}}})
	}))
	defer server.Close()

	client := newTestClient(t, server, Config{})
	resp, err := client.ListWalletsByRefID(context.Background(), "set-1", "user 1")

	require.NoError(t, err)
	assert.Empty(t, resp.Wallets)
}

func TestContractExecutionAndTransaction(t *testing.T) {
	var executions int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case contractExecutionPath:
			var req entities.CircleContractExecutionRequest
			require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
			assert.Equal(t, "STATIC", req.EntitySecretCiphertext)
			assert.Equal(t, "approve(address,uint256)", req.AbiFunctionSignature)
			if atomic.AddInt32(&executions, 1) == 1 {
				w.WriteHeader(http.StatusServiceUnavailable)
				return
			}
			json.NewEncoder(w).Encode(map[string]interface{}{"data": map[string]string{"id": "tx-1", "state": "INITIATED"}})
		case transactionsPath + "/tx-1":
			json.NewEncoder(w).Encode(map[string]interface{}{
				"data": map[string]interface{}{"transaction": map[string]string{"id": "tx-1", "state": "COMPLETE", "txHash": "0xhash"}},
			})
		default:
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
	}))
	defer server.Close()

	client := newTestClient(t, server, Config{EntitySecretCiphertext: "STATIC"})
	ctx := context.Background()

	created, err := client.CreateContractExecutionTransaction(ctx, entities.CircleContractExecutionRequest{
		WalletID:             "w-1",
		ContractAddress:      "0x3600000000000000000000000000000000000000",
		AbiFunctionSignature: "approve(address,uint256)",
		AbiParameters:        []interface{}{"0x8FE6B999Dc680CcFDD5Bf7EB0974218be2542DAA", "1500000"},
	})
	require.NoError(t, err)
	assert.Equal(t, "tx-1", created.Transaction.ID)
	assert.Equal(t, int32(2), atomic.LoadInt32(&executions))

	tx, err := client.GetTransaction(ctx, "tx-1")
	require.NoError(t, err)
	assert.Equal(t, "0xhash", tx.Transaction.TxHash)
	assert.Equal(t, entities.CircleTxStateComplete, tx.Transaction.State)
}

func TestClientErrors(t *testing.T) {
	t.Run("validation errors are typed and not retried", func(t *testing.T) {
		var calls int32
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			atomic.AddInt32(&calls, 1)
			w.WriteHeader(http.StatusBadRequest)
			w.Write([]byte(`{"code":2,"message":"Invalid amount","errors":[{"field":"amounts","message":"bad"}]}`))
		}))
		defer server.Close()

		client := newTestClient(t, server, Config{EntitySecretCiphertext: "STATIC"})
		_, err := client.CreateTransferTransaction(context.Background(), entities.CircleTransferRequest{WalletID: "w-1", Amounts: []string{"x"}})

		var apiErr *entities.CircleAPIError
		require.ErrorAs(t, err, &apiErr)
		assert.Equal(t, "validation", apiErr.Type)
		assert.Equal(t, "Invalid amount", apiErr.Message)
		assert.Len(t, apiErr.Errors, 1)
		assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
	})

	t.Run("retry after header is honoured", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Retry-After", "7")
			w.WriteHeader(http.StatusTooManyRequests)
		}))
		defer server.Close()

		client := newTestClient(t, server, Config{})
		resp, err := http.Get(server.URL)
		require.NoError(t, err)
		defer resp.Body.Close()

		err = client.handleErrorResponse(resp, nil, "req-1")
		var apiErr *entities.CircleAPIError
		require.ErrorAs(t, err, &apiErr)
		assert.True(t, apiErr.IsRetryable())
		assert.Equal(t, 7*time.Second, apiErr.GetRetryAfter())
	})

	t.Run("mutating call without any secret fails before sending", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			t.Fatalf("request should not be sent")
		}))
		defer server.Close()

		client := newTestClient(t, server, Config{})
		_, err := client.CreateWalletSet(context.Background(), "ArcHub-Autonomous-v3", "")
		assert.ErrorIs(t, err, ErrNoEntitySecret)
	})
}

func TestCalculateBackoff(t *testing.T) {
	d := calculateBackoff(time.Second, 3, 0)
	assert.InDelta(t, float64(8*time.Second), float64(d), float64(800*time.Millisecond))

	capped := calculateBackoff(time.Second, 10, 0)
	assert.LessOrEqual(t, capped, maxBackoff+maxBackoff/10)

	ra := calculateBackoff(time.Second, 0, 5*time.Minute)
	assert.LessOrEqual(t, ra, maxRetryAfter+maxRetryAfter/10)
}
