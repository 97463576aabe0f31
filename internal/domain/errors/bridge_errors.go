package errors

import "errors"

// Bridge-specific errors
var (
	// Chain errors
	ErrChainResolution = errors.New("chain could not be resolved")
	ErrSameChain       = errors.New("source and destination chains are the same")

	// Wallet errors
	ErrMissingUserID          = errors.New("user id is required")
	ErrWalletProvisioning     = errors.New("wallet provisioning failed")
	ErrAddressMismatch        = errors.New("custodial wallet addresses differ across chains")
	ErrChainNotProvisioned    = errors.New("existing custodial account has no wallet on chain")
	ErrWalletChainUnsupported = errors.New("chain is not provisioned for custodial wallets")

	// Funds errors
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrGasInsufficient   = errors.New("insufficient native gas balance")

	// Stage errors
	ErrApprovalFailed     = errors.New("approval failed")
	ErrBurnFailed         = errors.New("burn failed")
	ErrAttestationTimeout = errors.New("attestation not available before timeout")
	ErrMintFailed         = errors.New("mint failed")
	ErrDeliveryFailed     = errors.New("delivery transfer failed")

	// Executor errors
	ErrExecutionTimeout  = errors.New("transaction hash not available before timeout")
	ErrExecutionRejected = errors.New("custody transaction reached a terminal failure state")

	// Saga record errors
	ErrSagaNotFound     = errors.New("bridge saga not found")
	ErrSagaNotResumable = errors.New("bridge saga cannot be resumed")
)

// ChainResolutionError reports an input that did not match the alias table.
func ChainResolutionError(field, input string) *DomainError {
	return &DomainError{
		Err:     ErrChainResolution,
		Code:    "CHAIN_UNRESOLVED",
		Message: "unknown chain " + quote(input),
		Details: map[string]interface{}{
			"field": field,
			"input": input,
		},
	}
}

// MissingUserIDError is a precondition violation raised before any network call.
func MissingUserIDError() *DomainError {
	return &DomainError{
		Err:     ErrMissingUserID,
		Code:    "MISSING_USER_ID",
		Message: "user id is required",
	}
}

// WalletProvisioningError wraps a custody failure. Transient failures are retryable by the caller.
func WalletProvisioningError(userID, chain string, cause error) *DomainError {
	return &DomainError{
		Err:       ErrWalletProvisioning,
		Cause:     cause,
		Code:      "WALLET_PROVISIONING_FAILED",
		Message:   "wallet provisioning failed",
		Retryable: true,
		Details: map[string]interface{}{
			"user_id": userID,
			"chain":   chain,
		},
	}
}

// AddressMismatchError signals that the custody service broke the same-address guarantee. Not retryable.
func AddressMismatchError(userID string, addresses map[string]string) *DomainError {
	details := map[string]interface{}{"user_id": userID}
	for chain, addr := range addresses {
		details["address_"+chain] = addr
	}
	return &DomainError{
		Err:     ErrWalletProvisioning,
		Cause:   ErrAddressMismatch,
		Code:    "WALLET_ADDRESS_MISMATCH",
		Message: "wallet provisioning failed",
		Details: details,
	}
}

// ChainNotProvisionedError is returned when an account exists but not on the requested chain.
func ChainNotProvisionedError(userID, chain string) *DomainError {
	return &DomainError{
		Err:     ErrWalletProvisioning,
		Cause:   ErrChainNotProvisioned,
		Code:    "WALLET_CHAIN_NOT_PROVISIONED",
		Message: "wallet provisioning failed",
		Details: map[string]interface{}{
			"user_id": userID,
			"chain":   chain,
		},
	}
}

// WalletChainUnsupportedError is returned for registry chains outside the provisioned set.
func WalletChainUnsupportedError(chain string) *DomainError {
	return &DomainError{
		Err:     ErrInvalidInput,
		Cause:   ErrWalletChainUnsupported,
		Code:    "WALLET_CHAIN_UNSUPPORTED",
		Message: "custodial wallets are not provisioned on " + chain,
		Details: map[string]interface{}{"chain": chain},
	}
}

// InsufficientFundsError carries the balance that was observed.
func InsufficientFundsError(chain, have, need string) *DomainError {
	return &DomainError{
		Err:     ErrInsufficientFunds,
		Code:    "INSUFFICIENT_FUNDS",
		Message: "insufficient funds on " + chain + ": have " + have + ", need " + need,
		Details: map[string]interface{}{
			"chain": chain,
			"have":  have,
			"need":  need,
		},
	}
}

// GasInsufficientError applies to externally-owned destination wallets only.
func GasInsufficientError(chain, address, have string) *DomainError {
	return &DomainError{
		Err:     ErrGasInsufficient,
		Code:    "GAS_INSUFFICIENT",
		Message: "insufficient native gas on " + chain + ", fund " + address + " to complete the mint",
		Details: map[string]interface{}{
			"chain":   chain,
			"address": address,
			"have":    have,
		},
	}
}

// StageError builds one of the stage failures (approval, burn, attestation, mint, delivery).
func StageError(category error, code string, cause error) *DomainError {
	return &DomainError{
		Err:     category,
		Cause:   cause,
		Code:    code,
		Message: category.Error(),
	}
}

// SagaNotFoundError reports a missing saga record.
func SagaNotFoundError(id string) *DomainError {
	return &DomainError{
		Err:     ErrNotFound,
		Cause:   ErrSagaNotFound,
		Code:    "SAGA_NOT_FOUND",
		Message: "bridge saga not found",
		Details: map[string]interface{}{"saga_id": id},
	}
}

// SagaNotResumableError reports a saga whose stage has no resume path.
func SagaNotResumableError(id, stage string) *DomainError {
	return &DomainError{
		Err:     ErrConflict,
		Cause:   ErrSagaNotResumable,
		Code:    "SAGA_NOT_RESUMABLE",
		Message: "bridge saga cannot be resumed from stage " + stage,
		Details: map[string]interface{}{"saga_id": id, "stage": stage},
	}
}

// IsInFlight reports whether err means funds are committed but finalization is unresolved.
func IsInFlight(err error) bool {
	return errors.Is(err, ErrAttestationTimeout) || errors.Is(err, ErrDeliveryFailed)
}

func quote(s string) string {
	return "\"" + s + "\""
}
