package circle

import (
	"bytes"
	"context"
	"crypto/rand"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/rail-service/hub_bridge/internal/domain/entities"
)

const (
	// Circle API URLs
	ProductionBaseURL = "https://api.circle.com"
	SandboxBaseURL    = "https://api-sandbox.circle.com"

	// Timeouts and limits
	defaultTimeout    = 30 * time.Second
	maxRetries        = 5
	defaultBackoff    = 1 * time.Second
	maxBackoff        = 32 * time.Second
	jitterRange       = 0.1 // 10% jitter
	defaultRetryAfter = 5 * time.Second
	maxRetryAfter     = 60 * time.Second
	defaultRPS        = 10
)

const (
	walletSetsPath        = "/v1/w3s/walletSets"
	developerWalletSets   = "/v1/w3s/developer/walletSets"
	walletsPath           = "/v1/w3s/wallets"
	developerWallets      = "/v1/w3s/developer/wallets"
	transferPath          = "/v1/w3s/developer/transactions/transfer"
	contractExecutionPath = "/v1/w3s/developer/transactions/contractExecution"
	transactionsPath      = "/v1/w3s/transactions"
	publicKeyPath         = "/v1/w3s/config/entity/publicKey"
)

// Config represents Circle API configuration
type Config struct {
	APIKey                 string        `json:"api_key"`
	BaseURL                string        `json:"base_url"`
	Environment            string        `json:"environment"` // "sandbox" or "production"
	Timeout                time.Duration `json:"timeout"`
	EntitySecret           string        `json:"-"`                        // Raw 32-byte hex secret, encrypted per request
	EntitySecretCiphertext string        `json:"entity_secret_ciphertext"` // Pre-registered ciphertext from Circle Dashboard
	RequestsPerSecond      float64       `json:"requests_per_second"`
	RetryBackoff           time.Duration `json:"retry_backoff"`
}

// Client represents a Circle developer-controlled wallets API client
type Client struct {
	config         Config
	httpClient     *http.Client
	circuitBreaker *gobreaker.CircuitBreaker
	rateLimiter    *rate.Limiter
	sealer         *EntitySecretSealer
	logger         *zap.Logger
}

// sealedRequest is a mutating request body that needs a fresh entity secret ciphertext per attempt.
type sealedRequest interface {
	SetEntitySecretCiphertext(string)
}

// NewClient creates a new Circle API client
func NewClient(config Config, logger *zap.Logger) (*Client, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if config.Timeout == 0 {
		config.Timeout = defaultTimeout
	}
	if config.RetryBackoff == 0 {
		config.RetryBackoff = defaultBackoff
	}
	if config.RequestsPerSecond <= 0 {
		config.RequestsPerSecond = defaultRPS
	}

	if config.BaseURL == "" {
		// The wallets API serves testnet and mainnet chains from the same host
		config.BaseURL = ProductionBaseURL
	}
	config.BaseURL = strings.TrimRight(config.BaseURL, "/")

	httpClient := &http.Client{
		Timeout: config.Timeout,
		Transport: &http.Transport{
			TLSClientConfig: &tls.Config{
				MinVersion: tls.VersionTLS12,
			},
			MaxIdleConns:        100,
			MaxIdleConnsPerHost: 10,
			IdleConnTimeout:     90 * time.Second,
		},
	}

	st := gobreaker.Settings{
		Name:        "CircleAPI",
		MaxRequests: 5,
		Interval:    10 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures > 5
		},
		IsSuccessful: func(err error) bool {
			var apiErr *entities.CircleAPIError
			if errors.As(err, &apiErr) {
				return !apiErr.IsRetryable()
			}
			return err == nil
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.Info("Circuit breaker state changed",
				zap.String("name", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()))
		},
	}

	c := &Client{
		config:         config,
		httpClient:     httpClient,
		circuitBreaker: gobreaker.NewCircuitBreaker(st),
		rateLimiter:    rate.NewLimiter(rate.Limit(config.RequestsPerSecond), 1),
		logger:         logger,
	}

	sealer, err := NewEntitySecretSealer(config.EntitySecret, config.EntitySecretCiphertext, c.GetEntityPublicKey, logger)
	if err != nil {
		return nil, err
	}
	c.sealer = sealer

	return c, nil
}

// ListWalletSets lists the wallet sets visible to the API key
func (c *Client) ListWalletSets(ctx context.Context) (*entities.CircleWalletSetListResponse, error) {
	var response entities.CircleWalletSetListResponse
	if err := c.execute(ctx, http.MethodGet, walletSetsPath, nil, &response); err != nil {
		c.logger.Error("Failed to list wallet sets", zap.Error(err))
		return nil, fmt.Errorf("list wallet sets failed: %w", err)
	}
	return &response, nil
}

// CreateWalletSet creates a new developer-controlled wallet set
func (c *Client) CreateWalletSet(ctx context.Context, name, idempotencyKey string) (*entities.CircleWalletSetResponse, error) {
	if strings.TrimSpace(idempotencyKey) == "" {
		idempotencyKey = uuid.NewString()
	}

	request := &entities.CircleWalletSetRequest{
		IdempotencyKey: idempotencyKey,
		Name:           name,
	}

	c.logger.Info("Creating developer-controlled wallet set",
		zap.String("walletSetName", name))

	var response entities.CircleWalletSetResponse
	if err := c.execute(ctx, http.MethodPost, developerWalletSets, request, &response); err != nil {
		c.logger.Error("Failed to create developer-controlled wallet set",
			zap.String("name", name),
			zap.Error(err))
		return nil, fmt.Errorf("create wallet set failed: %w", err)
	}

	c.logger.Info("Created developer-controlled wallet set successfully",
		zap.String("name", name),
		zap.String("walletSetId", response.WalletSet.ID))

	return &response, nil
}

// ListWalletsByRefID lists wallets tagged with refID, optionally scoped to one wallet set
func (c *Client) ListWalletsByRefID(ctx context.Context, walletSetID, refID string) (*entities.CircleWalletListResponse, error) {
	query := url.Values{}
	query.Set("refId", refID)
	query.Set("pageSize", "50")
	if walletSetID != "" {
		query.Set("walletSetId", walletSetID)
	}
	endpoint := walletsPath + "?" + query.Encode()

	var response entities.CircleWalletListResponse
	if err := c.execute(ctx, http.MethodGet, endpoint, nil, &response); err != nil {
		c.logger.Error("Failed to list wallets",
			zap.String("refId", refID),
			zap.Error(err))
		return nil, fmt.Errorf("list wallets failed: %w", err)
	}

	return &response, nil
}

// CreateWallets creates one wallet per requested blockchain in a single call
func (c *Client) CreateWallets(ctx context.Context, req entities.CircleWalletCreateRequest) (*entities.CircleWalletListResponse, error) {
	if strings.TrimSpace(req.IdempotencyKey) == "" {
		req.IdempotencyKey = uuid.NewString()
	}

	c.logger.Info("Creating developer-controlled wallets",
		zap.String("walletSetId", req.WalletSetID),
		zap.Strings("blockchains", req.Blockchains),
		zap.String("accountType", req.AccountType),
		zap.Int("count", req.Count))

	var response entities.CircleWalletListResponse
	if err := c.execute(ctx, http.MethodPost, developerWallets, &req, &response); err != nil {
		c.logger.Error("Failed to create developer-controlled wallets",
			zap.String("walletSetId", req.WalletSetID),
			zap.Strings("blockchains", req.Blockchains),
			zap.String("accountType", req.AccountType),
			zap.Error(err))
		return nil, fmt.Errorf("create wallets failed: %w", err)
	}

	c.logger.Info("Created developer-controlled wallets successfully",
		zap.String("walletSetId", req.WalletSetID),
		zap.Int("walletCount", len(response.Wallets)))

	return &response, nil
}

// CreateTransferTransaction transfers tokens out of a developer-controlled wallet
func (c *Client) CreateTransferTransaction(ctx context.Context, req entities.CircleTransferRequest) (*entities.CircleTransactionResponse, error) {
	if strings.TrimSpace(req.IdempotencyKey) == "" {
		req.IdempotencyKey = uuid.NewString()
	}

	c.logger.Info("Transferring funds",
		zap.String("walletId", req.WalletID),
		zap.String("blockchain", req.Blockchain),
		zap.Strings("amounts", req.Amounts),
		zap.String("tokenAddress", req.TokenAddress))

	var response entities.CircleTransactionResponse
	if err := c.execute(ctx, http.MethodPost, transferPath, &req, &response); err != nil {
		c.logger.Error("Failed to transfer funds",
			zap.String("walletId", req.WalletID),
			zap.Strings("amounts", req.Amounts),
			zap.Error(err))
		return nil, fmt.Errorf("transfer funds failed: %w", err)
	}

	return &response, nil
}

// CreateContractExecutionTransaction submits an ABI call signed by a developer-controlled wallet
func (c *Client) CreateContractExecutionTransaction(ctx context.Context, req entities.CircleContractExecutionRequest) (*entities.CircleTransactionResponse, error) {
	if strings.TrimSpace(req.IdempotencyKey) == "" {
		req.IdempotencyKey = uuid.NewString()
	}

	c.logger.Info("Executing contract call",
		zap.String("walletId", req.WalletID),
		zap.String("contract", req.ContractAddress),
		zap.String("function", req.AbiFunctionSignature))

	var response entities.CircleTransactionResponse
	if err := c.execute(ctx, http.MethodPost, contractExecutionPath, &req, &response); err != nil {
		c.logger.Error("Failed to execute contract call",
			zap.String("walletId", req.WalletID),
			zap.String("function", req.AbiFunctionSignature),
			zap.Error(err))
		return nil, fmt.Errorf("contract execution failed: %w", err)
	}

	return &response, nil
}

// GetTransaction retrieves a custody transaction by ID
func (c *Client) GetTransaction(ctx context.Context, transactionID string) (*entities.CircleTransactionResponse, error) {
	endpoint := fmt.Sprintf("%s/%s", transactionsPath, url.PathEscape(transactionID))

	var response entities.CircleTransactionResponse
	if err := c.execute(ctx, http.MethodGet, endpoint, nil, &response); err != nil {
		return nil, fmt.Errorf("get transaction failed: %w", err)
	}

	return &response, nil
}

// GetWalletTokenBalance retrieves token balances for a wallet, filtered to tokenAddress when given
func (c *Client) GetWalletTokenBalance(ctx context.Context, walletID, tokenAddress string) (*entities.CircleWalletBalancesResponse, error) {
	endpoint := fmt.Sprintf("%s/%s/balances", walletsPath, url.PathEscape(walletID))
	if tokenAddress != "" {
		endpoint += "?tokenAddress=" + url.QueryEscape(tokenAddress)
	}

	var response entities.CircleWalletBalancesResponse
	if err := c.execute(ctx, http.MethodGet, endpoint, nil, &response); err != nil {
		c.logger.Error("Failed to get wallet balances",
			zap.String("walletId", walletID),
			zap.Error(err))
		return nil, fmt.Errorf("get wallet balances failed: %w", err)
	}

	return &response, nil
}

// GetEntityPublicKey retrieves the PEM public key used to seal the entity secret
func (c *Client) GetEntityPublicKey(ctx context.Context) (string, error) {
	var response struct {
		Data struct {
			PublicKey string `json:"publicKey"`
		} `json:"data"`
		PublicKey string `json:"publicKey"`
	}
	if err := c.execute(ctx, http.MethodGet, publicKeyPath, nil, &response); err != nil {
		c.logger.Error("Failed to get entity public key", zap.Error(err))
		return "", fmt.Errorf("get entity public key failed: %w", err)
	}

	if response.Data.PublicKey != "" {
		return response.Data.PublicKey, nil
	}
	if response.PublicKey != "" {
		return response.PublicKey, nil
	}
	return "", fmt.Errorf("public key not found in response")
}

// HealthCheck performs a health check against Circle API
func (c *Client) HealthCheck(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.config.BaseURL+walletSetsPath, nil)
	if err != nil {
		return fmt.Errorf("failed to create health check request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+c.config.APIKey)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("circle API health check failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 500 {
		return fmt.Errorf("circle API health check failed with status %d", resp.StatusCode)
	}
	return nil
}

// GetMetrics returns circuit breaker metrics for monitoring
func (c *Client) GetMetrics() map[string]interface{} {
	counts := c.circuitBreaker.Counts()
	return map[string]interface{}{
		"circuit_breaker_state": c.circuitBreaker.State().String(),
		"requests":              counts.Requests,
		"consecutive_successes": counts.ConsecutiveSuccesses,
		"consecutive_failures":  counts.ConsecutiveFailures,
		"total_successes":       counts.TotalSuccesses,
		"total_failures":        counts.TotalFailures,
	}
}

func (c *Client) execute(ctx context.Context, method, endpoint string, requestBody, responseBody interface{}) error {
	_, err := c.circuitBreaker.Execute(func() (interface{}, error) {
		return nil, c.doRequestWithRetry(ctx, method, endpoint, requestBody, responseBody)
	})
	return err
}

// addJitter adds random jitter to a duration to prevent thundering herd
func addJitter(duration time.Duration) time.Duration {
	randomBytes := make([]byte, 1)
	_, _ = rand.Read(randomBytes)
	randomFloat := float64(randomBytes[0])/255.0*2 - 1 // -1 to 1

	jitter := time.Duration(float64(duration) * jitterRange * randomFloat)
	return duration + jitter
}

// calculateBackoff calculates exponential backoff with jitter
func calculateBackoff(base time.Duration, attempt int, retryAfter time.Duration) time.Duration {
	if retryAfter > 0 {
		if retryAfter > maxRetryAfter {
			retryAfter = maxRetryAfter
		}
		return addJitter(retryAfter)
	}

	delay := time.Duration(math.Pow(2, float64(attempt))) * base
	if delay > maxBackoff {
		delay = maxBackoff
	}
	return addJitter(delay)
}

// doRequestWithRetry performs HTTP request with exponential backoff retry and jitter
func (c *Client) doRequestWithRetry(ctx context.Context, method, endpoint string, requestBody, responseBody interface{}) error {
	var lastErr error
	requestID := uuid.NewString()

	for attempt := 0; attempt <= maxRetries; attempt++ {
		if attempt > 0 {
			var retryAfter time.Duration
			var circleErr *entities.CircleAPIError
			if errors.As(lastErr, &circleErr) && circleErr.RetryAfter != nil {
				retryAfter = *circleErr.RetryAfter
			}
			backoff := calculateBackoff(c.config.RetryBackoff, attempt-1, retryAfter)

			c.logger.Info("Retrying Circle API request",
				zap.String("request_id", requestID),
				zap.Int("attempt", attempt),
				zap.Duration("backoff", backoff),
				zap.String("method", method),
				zap.String("endpoint", endpoint))

			timer := time.NewTimer(backoff)
			select {
			case <-ctx.Done():
				timer.Stop()
				return ctx.Err()
			case <-timer.C:
			}
		}

		if err := c.rateLimiter.Wait(ctx); err != nil {
			return fmt.Errorf("rate limiter: %w", err)
		}

		if sealed, ok := requestBody.(sealedRequest); ok {
			ciphertext, err := c.sealer.Ciphertext(ctx)
			if err != nil {
				return fmt.Errorf("failed to generate entity secret ciphertext: %w", err)
			}
			sealed.SetEntitySecretCiphertext(ciphertext)
		}

		err := c.doRequest(ctx, method, endpoint, requestBody, responseBody, requestID)
		if err == nil {
			return nil
		}

		lastErr = err

		if !c.shouldRetry(err) {
			c.logger.Debug("Not retrying Circle API request due to error type",
				zap.String("request_id", requestID),
				zap.Error(err),
				zap.String("method", method),
				zap.String("endpoint", endpoint))
			return err
		}

		c.logger.Warn("Circle API request failed, will retry",
			zap.String("request_id", requestID),
			zap.Error(err),
			zap.Int("attempt", attempt+1),
			zap.Int("maxRetries", maxRetries),
			zap.String("method", method),
			zap.String("endpoint", endpoint))
	}

	return fmt.Errorf("request failed after %d attempts: %w", maxRetries+1, lastErr)
}

// doRequest performs a single HTTP request
func (c *Client) doRequest(ctx context.Context, method, endpoint string, requestBody, responseBody interface{}, requestID string) error {
	fullURL := c.config.BaseURL + endpoint

	var reqBody io.Reader
	if requestBody != nil {
		jsonData, err := json.Marshal(requestBody)
		if err != nil {
			return fmt.Errorf("failed to marshal request body: %w", err)
		}
		reqBody = bytes.NewReader(jsonData)
	}

	req, err := http.NewRequestWithContext(ctx, method, fullURL, reqBody)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+c.config.APIKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "Hub-Bridge/1.0")
	req.Header.Set("X-Request-ID", requestID)

	c.logger.Debug("Making Circle API request",
		zap.String("request_id", requestID),
		zap.String("method", method),
		zap.String("endpoint", endpoint))

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("HTTP request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}

	c.logger.Debug("Received Circle API response",
		zap.String("request_id", requestID),
		zap.String("endpoint", endpoint),
		zap.Int("statusCode", resp.StatusCode))

	if resp.StatusCode >= 400 {
		return c.handleErrorResponse(resp, body, requestID)
	}

	if responseBody != nil && len(body) > 0 {
		if err := json.Unmarshal(body, responseBody); err != nil {
			return fmt.Errorf("failed to unmarshal response: %w", err)
		}
	}

	return nil
}

// handleErrorResponse processes Circle API error responses and returns typed errors
func (c *Client) handleErrorResponse(resp *http.Response, body []byte, requestID string) error {
	var retryAfter *time.Duration
	if header := resp.Header.Get("Retry-After"); header != "" {
		if seconds, err := strconv.Atoi(header); err == nil && seconds > 0 {
			ra := time.Duration(seconds) * time.Second
			retryAfter = &ra
		}
	}
	if retryAfter == nil && resp.StatusCode == http.StatusTooManyRequests {
		ra := defaultRetryAfter
		retryAfter = &ra
	}

	var payload struct {
		Code    int                         `json:"code"`
		Message string                      `json:"message"`
		Errors  []entities.CircleFieldError `json:"errors"`
	}
	message := fmt.Sprintf("HTTP %d: %s", resp.StatusCode, string(body))
	if err := json.Unmarshal(body, &payload); err == nil && payload.Message != "" {
		message = payload.Message
	}

	apiErr := entities.NewCircleAPIError(resp.StatusCode, message, requestID, retryAfter)
	apiErr.Errors = payload.Errors
	return apiErr
}

// shouldRetry determines if a request should be retried based on the error
func (c *Client) shouldRetry(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	var circleErr *entities.CircleAPIError
	if errors.As(err, &circleErr) {
		return circleErr.IsRetryable()
	}

	// Network errors
	return true
}
