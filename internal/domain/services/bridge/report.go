package bridge

import (
	"fmt"
	"strings"

	"github.com/rail-service/hub_bridge/internal/domain/entities"
	domainerrors "github.com/rail-service/hub_bridge/internal/domain/errors"
)

// SagaReport is the single terminal (or, for fire-and-forget, post-burn) view handed back to the caller.
type SagaReport struct {
	Saga            entities.BridgeSaga `json:"saga"`
	SourceName      string              `json:"source_name"`
	DestinationName string              `json:"destination_name"`
	ApprovalTxURL   string              `json:"approval_tx_url,omitempty"`
	BurnTxURL       string              `json:"burn_tx_url,omitempty"`
	MintTxURL       string              `json:"mint_tx_url,omitempty"`
	DeliveryTxURL   string              `json:"delivery_tx_url,omitempty"`
	InFlight        bool                `json:"in_flight"`
	Text            string              `json:"message"`
	Err             error               `json:"-"`
}

func newReport(saga *entities.BridgeSaga, src, dst entities.ChainConfig, err error) *SagaReport {
	r := &SagaReport{
		Saga:            *saga,
		SourceName:      displayName(src),
		DestinationName: displayName(dst),
		ApprovalTxURL:   src.TxURL(saga.ApprovalTxHash),
		BurnTxURL:       src.TxURL(saga.BurnTxHash),
		MintTxURL:       dst.TxURL(saga.MintTxHash),
		DeliveryTxURL:   dst.TxURL(saga.DeliveryTxHash),
		Err:             err,
	}
	r.InFlight = saga.BurnTxHash != "" && (saga.Outcome == entities.OutcomePending || domainerrors.IsInFlight(err))
	r.Text = r.Message()
	return r
}

func displayName(c entities.ChainConfig) string {
	if c.DisplayName != "" {
		return c.DisplayName
	}
	return c.Key
}

// Succeeded reports whether funds reached their final holder.
func (r *SagaReport) Succeeded() bool {
	return r.Saga.Outcome == entities.OutcomeMinted || r.Saga.Outcome == entities.OutcomeDelivered
}

// Message describes which stages completed and which did not.
func (r *SagaReport) Message() string {
	s := r.Saga
	var b strings.Builder

	switch s.Outcome {
	case entities.OutcomeDelivered:
		fmt.Fprintf(&b, "Bridged %s USDC from %s to %s and delivered it to %s.\n", s.Amount, r.SourceName, r.DestinationName, s.Recipient)
	case entities.OutcomeMinted:
		fmt.Fprintf(&b, "Bridged %s USDC from %s to %s, minted to %s.\n", s.Amount, r.SourceName, r.DestinationName, s.DestinationWalletAddress)
	case entities.OutcomePending:
		if s.BurnTxHash != "" {
			fmt.Fprintf(&b, "Bridge started: burned %s USDC on %s for %s. Attestation, mint and delivery continue in the background.\n",
				s.Amount, r.SourceName, r.DestinationName)
		} else {
			fmt.Fprintf(&b, "Bridge of %s USDC from %s to %s has not burned yet.\n", s.Amount, r.SourceName, r.DestinationName)
		}
	case entities.OutcomeFailed:
		b.WriteString(r.failureHeadline())
		b.WriteString("\n")
	}

	r.writeStages(&b)

	if s.BurnTxHash != "" && s.Outcome != entities.OutcomeDelivered && s.Outcome != entities.OutcomeMinted {
		fmt.Fprintf(&b, "Saga %s, burn %s on %s.", s.ID, s.BurnTxHash, s.SourceChain)
	} else {
		fmt.Fprintf(&b, "Saga %s.", s.ID)
	}
	return b.String()
}

func (r *SagaReport) failureHeadline() string {
	s := r.Saga
	reason := s.FailureMessage
	if reason == "" && r.Err != nil {
		reason = r.Err.Error()
	}

	if s.BurnTxHash == "" {
		return fmt.Sprintf("Bridge did not happen: %s. No funds left %s.", reason, r.SourceName)
	}

	switch s.FailedAt {
	case entities.StageAttested:
		return fmt.Sprintf("Burn complete, finalization unresolved: %s. Funds are in flight to %s and the saga can be resumed.",
			reason, r.DestinationName)
	case entities.StageDelivered:
		return fmt.Sprintf("Minted on %s, delivery unresolved: %s. The funds are held by %s and the saga can be resumed.",
			r.DestinationName, reason, s.DestinationWalletAddress)
	case entities.StageMinted:
		return fmt.Sprintf("Mint did not happen on %s: %s. The burn is still valid and the saga can be resumed.",
			r.DestinationName, reason)
	default:
		return fmt.Sprintf("Bridge failed at %s: %s.", s.FailedAt, reason)
	}
}

func (r *SagaReport) writeStages(b *strings.Builder) {
	s := r.Saga
	if s.ApprovalTxHash != "" {
		writeStage(b, "Approval", s.ApprovalTxHash, r.ApprovalTxURL)
	}
	if s.BurnTxHash != "" {
		writeStage(b, "Burn", s.BurnTxHash, r.BurnTxURL)
	}

	switch {
	case reached(s.Stage, entities.StageAttested):
		b.WriteString("Attestation: complete\n")
	case s.BurnTxHash != "" && s.FailedAt == entities.StageAttested:
		b.WriteString("Attestation: not yet available\n")
	}

	if s.MintTxHash != "" {
		writeStage(b, "Mint", s.MintTxHash, r.MintTxURL)
	}
	if s.DeliveryTxHash != "" {
		writeStage(b, "Delivery", s.DeliveryTxHash, r.DeliveryTxURL)
	} else if s.FailedAt == entities.StageDelivered {
		fmt.Fprintf(b, "Delivery: not completed after %d attempts\n", s.DeliveryAttempts)
	}
}

func writeStage(b *strings.Builder, label, hash, url string) {
	if url != "" {
		fmt.Fprintf(b, "%s: %s (%s)\n", label, hash, url)
		return
	}
	fmt.Fprintf(b, "%s: %s\n", label, hash)
}

var stageOrder = map[entities.SagaStage]int{
	entities.StageInitiated: 0,
	entities.StageBurned:    1,
	entities.StageAttested:  2,
	entities.StageMinted:    3,
	entities.StageDelivered: 4,
}

// reached reports whether stage is at or past target.
func reached(stage, target entities.SagaStage) bool {
	return stageOrder[stage] >= stageOrder[target]
}
