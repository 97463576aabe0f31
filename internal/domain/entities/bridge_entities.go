package entities

import (
	"math/big"
	"time"
)

// SagaStage is the last state a bridge saga reached.
type SagaStage string

const (
	StageInitiated SagaStage = "initiated" // Record created, nothing on-chain yet
	StageBurned    SagaStage = "burned"    // Burn confirmed on the source chain
	StageAttested  SagaStage = "attested"  // Oracle certified the burn
	StageMinted    SagaStage = "minted"    // Mint confirmed on the destination chain
	StageDelivered SagaStage = "delivered" // Funds transferred to the final recipient
)

// Next returns the stage a saga attempts after s.
func (s SagaStage) Next() SagaStage {
	switch s {
	case StageInitiated:
		return StageBurned
	case StageBurned:
		return StageAttested
	case StageAttested:
		return StageMinted
	case StageMinted:
		return StageDelivered
	default:
		return ""
	}
}

// SagaOutcome is the derived result of a saga.
type SagaOutcome string

const (
	OutcomePending   SagaOutcome = "pending"
	OutcomeMinted    SagaOutcome = "minted"
	OutcomeDelivered SagaOutcome = "delivered"
	OutcomeFailed    SagaOutcome = "failed"
)

// BridgeRequest is the validated, canonical input of a saga.
// Amount is a human decimal string; it is only converted to atomic units when building contract calls.
type BridgeRequest struct {
	UserID           string `json:"user_id" validate:"required"`
	SourceChain      string `json:"source_chain" validate:"required"`
	DestinationChain string `json:"destination_chain" validate:"required,nefield=SourceChain"`
	Amount           string `json:"amount" validate:"required,decimal_gt0"`
	Recipient        string `json:"recipient,omitempty" validate:"omitempty,eth_addr"`
}

// BurnReceipt is produced by a confirmed burn and consumed by the attestation poller.
type BurnReceipt struct {
	SourceChain       string
	SourceDomain      uint32
	TxHash            string
	Amount            *big.Int
	DestinationDomain uint32
	MintRecipient     string
}

// AttestationStatus mirrors the oracle status field.
type AttestationStatus string

const (
	AttestationPending  AttestationStatus = "pending"
	AttestationComplete AttestationStatus = "complete"
)

// Attestation carries the opaque hex payloads required by the mint call.
type Attestation struct {
	Message     string
	Attestation string
	Status      AttestationStatus
}

// IsComplete reports whether the attestation may be consumed by a mint.
func (a Attestation) IsComplete() bool {
	return a.Status == AttestationComplete && a.Message != "" && a.Attestation != ""
}

// BridgeSaga is the durable record of one bridge operation.
// Stage is the last state reached; FailedAt names the state whose transition failed.
type BridgeSaga struct {
	ID                       string      `json:"id" db:"id"`
	UserID                   string      `json:"user_id" db:"user_id"`
	SourceChain              string      `json:"source_chain" db:"source_chain"`
	DestinationChain         string      `json:"destination_chain" db:"destination_chain"`
	Recipient                string      `json:"recipient" db:"recipient"`
	Amount                   string      `json:"amount" db:"amount"`
	Stage                    SagaStage   `json:"stage" db:"stage"`
	Outcome                  SagaOutcome `json:"outcome" db:"outcome"`
	FailedAt                 SagaStage   `json:"failed_at,omitempty" db:"failed_at"`
	FailureCode              string      `json:"failure_code,omitempty" db:"failure_code"`
	FailureMessage           string      `json:"failure_message,omitempty" db:"failure_message"`
	ApprovalTxHash           string      `json:"approval_tx_hash,omitempty" db:"approval_tx_hash"`
	BurnTxHash               string      `json:"burn_tx_hash,omitempty" db:"burn_tx_hash"`
	MintTxHash               string      `json:"mint_tx_hash,omitempty" db:"mint_tx_hash"`
	DeliveryTxHash           string      `json:"delivery_tx_hash,omitempty" db:"delivery_tx_hash"`
	DestinationWalletAddress string      `json:"destination_wallet_address,omitempty" db:"destination_wallet_address"`
	DeliveryAttempts         int         `json:"delivery_attempts" db:"delivery_attempts"`
	AwaitCompletion          bool        `json:"await_completion" db:"await_completion"`
	Stalled                  bool        `json:"stalled" db:"stalled"`
	CreatedAt                time.Time   `json:"created_at" db:"created_at"`
	UpdatedAt                time.Time   `json:"updated_at" db:"updated_at"`
}

// IsTerminal reports whether nothing more will happen without an operator.
func (s *BridgeSaga) IsTerminal() bool {
	return s.Outcome != OutcomePending
}

// IsResumable reports whether a post-burn saga can continue from its record.
func (s *BridgeSaga) IsResumable() bool {
	if s.BurnTxHash == "" {
		return false
	}
	switch s.Outcome {
	case OutcomeFailed:
		return s.FailedAt == StageAttested || s.FailedAt == StageMinted || s.FailedAt == StageDelivered
	case OutcomePending:
		return s.Stalled
	default:
		return false
	}
}

// NeedsDelivery reports whether the final recipient differs from the destination custodial wallet.
func (s *BridgeSaga) NeedsDelivery() bool {
	return s.Recipient != "" && !SameAddress(s.Recipient, s.DestinationWalletAddress)
}

// BridgeSagaSummary is the list view returned to API callers.
type BridgeSagaSummary struct {
	ID               string      `json:"id"`
	SourceChain      string      `json:"source_chain"`
	DestinationChain string      `json:"destination_chain"`
	Amount           string      `json:"amount"`
	Stage            SagaStage   `json:"stage"`
	Outcome          SagaOutcome `json:"outcome"`
	BurnTxHash       string      `json:"burn_tx_hash,omitempty"`
	CreatedAt        time.Time   `json:"created_at"`
}

// Summary builds the list view.
func (s *BridgeSaga) Summary() BridgeSagaSummary {
	return BridgeSagaSummary{
		ID:               s.ID,
		SourceChain:      s.SourceChain,
		DestinationChain: s.DestinationChain,
		Amount:           s.Amount,
		Stage:            s.Stage,
		Outcome:          s.Outcome,
		BurnTxHash:       s.BurnTxHash,
		CreatedAt:        s.CreatedAt,
	}
}
