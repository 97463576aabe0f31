package entities

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Circle transaction states
const (
	CircleTxStateInitiated = "INITIATED"
	CircleTxStateQueued    = "QUEUED"
	CircleTxStateSent      = "SENT"
	CircleTxStateConfirmed = "CONFIRMED"
	CircleTxStateComplete  = "COMPLETE"
	CircleTxStateFailed    = "FAILED"
	CircleTxStateCancelled = "CANCELLED"
	CircleTxStateDenied    = "DENIED"
)

// IsTerminalFailure reports whether a Circle transaction state can never produce a hash.
func IsTerminalFailure(state string) bool {
	switch strings.ToUpper(state) {
	case CircleTxStateFailed, CircleTxStateCancelled, CircleTxStateDenied:
		return true
	}
	return false
}

// CircleWalletSetRequest represents Circle wallet set creation request
type CircleWalletSetRequest struct {
	IdempotencyKey         string `json:"idempotencyKey"`
	EntitySecretCiphertext string `json:"entitySecretCiphertext"`
	Name                   string `json:"name"`
}

// SetEntitySecretCiphertext stamps a fresh ciphertext before each attempt.
func (r *CircleWalletSetRequest) SetEntitySecretCiphertext(c string) { r.EntitySecretCiphertext = c }

// CircleWalletSetData represents Circle wallet set data
type CircleWalletSetData struct {
	ID          string    `json:"id"`
	CustodyType string    `json:"custodyType"`
	Name        string    `json:"name"`
	CreatedDate time.Time `json:"createDate"`
	UpdatedDate time.Time `json:"updateDate"`
}

// CircleWalletSetResponse represents Circle wallet set response
type CircleWalletSetResponse struct {
	WalletSet CircleWalletSetData `json:"walletSet"`
}

// UnmarshalJSON normalizes Circle wallet set responses that may wrap data
func (r *CircleWalletSetResponse) UnmarshalJSON(data []byte) error {
	aux := struct {
		Data struct {
			WalletSet CircleWalletSetData `json:"walletSet"`
		} `json:"data"`
		WalletSet *CircleWalletSetData `json:"walletSet"`
	}{}

	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}

	switch {
	case aux.Data.WalletSet.ID != "":
		r.WalletSet = aux.Data.WalletSet
	case aux.WalletSet != nil:
		r.WalletSet = *aux.WalletSet
	default:
		r.WalletSet = CircleWalletSetData{}
	}
	return nil
}

// CircleWalletSetListResponse represents the wallet set listing
type CircleWalletSetListResponse struct {
	WalletSets []CircleWalletSetData `json:"walletSets"`
}

// UnmarshalJSON normalizes wrapped and unwrapped listings
func (r *CircleWalletSetListResponse) UnmarshalJSON(data []byte) error {
	aux := struct {
		Data struct {
			WalletSets []CircleWalletSetData `json:"walletSets"`
		} `json:"data"`
		WalletSets []CircleWalletSetData `json:"walletSets"`
	}{}

	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}

	r.WalletSets = aux.Data.WalletSets
	if len(r.WalletSets) == 0 {
		r.WalletSets = aux.WalletSets
	}
	if r.WalletSets == nil {
		r.WalletSets = []CircleWalletSetData{}
	}
	return nil
}

// CircleWalletMetadata tags a created wallet with an owner reference.
type CircleWalletMetadata struct {
	Name  string `json:"name,omitempty"`
	RefID string `json:"refId"`
}

// CircleWalletCreateRequest creates one wallet per listed blockchain in a single call.
type CircleWalletCreateRequest struct {
	IdempotencyKey         string                 `json:"idempotencyKey"`
	EntitySecretCiphertext string                 `json:"entitySecretCiphertext"`
	Blockchains            []string               `json:"blockchains"`
	Count                  int                    `json:"count"`
	AccountType            string                 `json:"accountType"`
	WalletSetID            string                 `json:"walletSetId"`
	Metadata               []CircleWalletMetadata `json:"metadata,omitempty"`
}

// SetEntitySecretCiphertext stamps a fresh ciphertext before each attempt.
func (r *CircleWalletCreateRequest) SetEntitySecretCiphertext(c string) { r.EntitySecretCiphertext = c }

// CircleWalletData represents Circle wallet data
type CircleWalletData struct {
	ID          string    `json:"id"`
	State       string    `json:"state"`
	WalletSetId string    `json:"walletSetId"`
	CustodyType string    `json:"custodyType"`
	AccountType string    `json:"accountType,omitempty"`
	Address     string    `json:"address"`
	Blockchain  string    `json:"blockchain"`
	RefID       string    `json:"refId,omitempty"`
	Name        string    `json:"name,omitempty"`
	CreatedDate time.Time `json:"createDate"`
	UpdatedDate time.Time `json:"updateDate"`
}

// CircleWalletListResponse is returned by wallet listing and bulk creation.
type CircleWalletListResponse struct {
	Wallets []CircleWalletData `json:"wallets"`
}

// UnmarshalJSON normalizes Circle wallet responses that may wrap data
func (r *CircleWalletListResponse) UnmarshalJSON(data []byte) error {
	aux := struct {
		Data struct {
			Wallets []CircleWalletData `json:"wallets"`
		} `json:"data"`
		Wallets []CircleWalletData `json:"wallets"`
	}{}

	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}

	switch {
	case len(aux.Data.Wallets) > 0:
		r.Wallets = aux.Data.Wallets
	case len(aux.Wallets) > 0:
		r.Wallets = aux.Wallets
	default:
		r.Wallets = []CircleWalletData{}
	}
	return nil
}

// CircleTransferRequest moves tokens out of a developer-controlled wallet.
type CircleTransferRequest struct {
	IdempotencyKey         string   `json:"idempotencyKey"`
	EntitySecretCiphertext string   `json:"entitySecretCiphertext"`
	WalletID               string   `json:"walletId"`
	TokenAddress           string   `json:"tokenAddress,omitempty"`
	Blockchain             string   `json:"blockchain,omitempty"`
	DestinationAddress     string   `json:"destinationAddress"`
	Amounts                []string `json:"amounts"`
	FeeLevel               string   `json:"feeLevel,omitempty"`
	RefID                  string   `json:"refId,omitempty"`
}

// SetEntitySecretCiphertext stamps a fresh ciphertext before each attempt.
func (r *CircleTransferRequest) SetEntitySecretCiphertext(c string) { r.EntitySecretCiphertext = c }

// CircleContractExecutionRequest calls an arbitrary contract function from a wallet.
type CircleContractExecutionRequest struct {
	IdempotencyKey         string        `json:"idempotencyKey"`
	EntitySecretCiphertext string        `json:"entitySecretCiphertext"`
	WalletID               string        `json:"walletId"`
	ContractAddress        string        `json:"contractAddress"`
	AbiFunctionSignature   string        `json:"abiFunctionSignature"`
	AbiParameters          []interface{} `json:"abiParameters"`
	FeeLevel               string        `json:"feeLevel,omitempty"`
	RefID                  string        `json:"refId,omitempty"`
}

// SetEntitySecretCiphertext stamps a fresh ciphertext before each attempt.
func (r *CircleContractExecutionRequest) SetEntitySecretCiphertext(c string) {
	r.EntitySecretCiphertext = c
}

// CircleTransactionData is the custody view of a submitted job.
type CircleTransactionData struct {
	ID          string `json:"id"`
	State       string `json:"state"`
	TxHash      string `json:"txHash,omitempty"`
	Blockchain  string `json:"blockchain,omitempty"`
	WalletID    string `json:"walletId,omitempty"`
	ErrorReason string `json:"errorReason,omitempty"`
}

// CircleTransactionResponse normalizes both {data:{id,state}} and {data:{transaction:{...}}} shapes.
type CircleTransactionResponse struct {
	Transaction CircleTransactionData `json:"transaction"`
}

// UnmarshalJSON normalizes Circle transaction responses
func (r *CircleTransactionResponse) UnmarshalJSON(data []byte) error {
	aux := struct {
		Data struct {
			CircleTransactionData
			Transaction *CircleTransactionData `json:"transaction"`
		} `json:"data"`
		Transaction *CircleTransactionData `json:"transaction"`
	}{}

	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}

	switch {
	case aux.Data.Transaction != nil:
		r.Transaction = *aux.Data.Transaction
	case aux.Data.ID != "":
		r.Transaction = aux.Data.CircleTransactionData
	case aux.Transaction != nil:
		r.Transaction = *aux.Transaction
	default:
		r.Transaction = CircleTransactionData{}
	}
	return nil
}

// CircleTokenInfo represents token metadata from Circle API
type CircleTokenInfo struct {
	ID           string `json:"id"`
	Blockchain   string `json:"blockchain"`
	TokenAddress string `json:"tokenAddress,omitempty"`
	Name         string `json:"name"`
	Symbol       string `json:"symbol"`
	Decimals     int    `json:"decimals"`
	IsNative     bool   `json:"isNative"`
}

// CircleTokenBalance represents a single token balance from Circle API
type CircleTokenBalance struct {
	Token  CircleTokenInfo `json:"token"`
	Amount string          `json:"amount"`
}

// CircleWalletBalancesResponse represents the Circle API response for wallet balances
type CircleWalletBalancesResponse struct {
	TokenBalances []CircleTokenBalance `json:"tokenBalances"`
}

// UnmarshalJSON normalizes Circle balance responses that wrap data
func (r *CircleWalletBalancesResponse) UnmarshalJSON(data []byte) error {
	aux := struct {
		Data struct {
			TokenBalances []CircleTokenBalance `json:"tokenBalances"`
		} `json:"data"`
		TokenBalances []CircleTokenBalance `json:"tokenBalances"`
	}{}

	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}

	switch {
	case len(aux.Data.TokenBalances) > 0:
		r.TokenBalances = aux.Data.TokenBalances
	case len(aux.TokenBalances) > 0:
		r.TokenBalances = aux.TokenBalances
	default:
		r.TokenBalances = []CircleTokenBalance{}
	}
	return nil
}

// TokenAmount returns the human amount held for tokenAddress, or "0".
func (r *CircleWalletBalancesResponse) TokenAmount(tokenAddress string) string {
	for _, balance := range r.TokenBalances {
		if strings.EqualFold(balance.Token.TokenAddress, tokenAddress) {
			return balance.Amount
		}
	}
	return "0"
}

// CircleFieldError represents field-specific error
type CircleFieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// CircleAPIError represents a Circle API error with type information
type CircleAPIError struct {
	Code       int                `json:"code"`
	Message    string             `json:"message"`
	Errors     []CircleFieldError `json:"errors,omitempty"`
	RequestID  string             `json:"request_id,omitempty"`
	RetryAfter *time.Duration     `json:"retry_after,omitempty"`
	Type       string             `json:"type"`
}

// Error implements error interface
func (e CircleAPIError) Error() string {
	if len(e.Errors) > 0 {
		details := make([]string, 0, len(e.Errors))
		for _, fieldErr := range e.Errors {
			details = append(details, fmt.Sprintf("%s: %s", fieldErr.Field, fieldErr.Message))
		}
		return fmt.Sprintf("Circle %s error %d: %s (%s)", e.Type, e.Code, e.Message, strings.Join(details, ", "))
	}
	return fmt.Sprintf("Circle %s error %d: %s", e.Type, e.Code, e.Message)
}

// IsRetryable returns true for rate limiting and server errors
func (e CircleAPIError) IsRetryable() bool {
	return e.Code == 429 || e.Code >= 500
}

// GetRetryAfter returns the retry delay for rate limit errors
func (e CircleAPIError) GetRetryAfter() time.Duration {
	if e.RetryAfter != nil {
		return *e.RetryAfter
	}
	if e.Code >= 500 {
		return 5 * time.Second
	}
	return 0
}

// NewCircleAPIError types an HTTP failure by status code.
func NewCircleAPIError(code int, message string, requestID string, retryAfter *time.Duration) *CircleAPIError {
	apiErr := &CircleAPIError{
		Code:       code,
		Message:    message,
		RequestID:  requestID,
		RetryAfter: retryAfter,
	}

	switch {
	case code == 401 || code == 403:
		apiErr.Type = "auth"
	case code == 400:
		apiErr.Type = "validation"
	case code == 404:
		apiErr.Type = "not_found"
	case code == 409:
		apiErr.Type = "conflict"
	case code == 429:
		apiErr.Type = "rate_limit"
	case code >= 500:
		apiErr.Type = "server"
	default:
		apiErr.Type = "client"
	}
	return apiErr
}
