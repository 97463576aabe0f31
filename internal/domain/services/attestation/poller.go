package attestation

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/rail-service/hub_bridge/internal/domain/entities"
	domainerrors "github.com/rail-service/hub_bridge/internal/domain/errors"
	"github.com/rail-service/hub_bridge/internal/infrastructure/adapters/cctp"
	"github.com/rail-service/hub_bridge/pkg/metrics"
	"github.com/rail-service/hub_bridge/pkg/retry"
)

// Config bounds how long a burn may wait for its attestation.
type Config struct {
	PollInterval time.Duration
	MaxAttempts  int
}

// DefaultConfig covers the standard-finality window: 60 polls, 15 seconds apart.
func DefaultConfig() Config {
	return Config{
		PollInterval: 15 * time.Second,
		MaxAttempts:  60,
	}
}

// Poller waits for the oracle to certify a burn.
type Poller struct {
	client cctp.CCTPClient
	config Config
	sleep  retry.Sleeper
	logger *zap.Logger
}

// NewPoller creates a new attestation poller
func NewPoller(client cctp.CCTPClient, config Config, logger *zap.Logger) *Poller {
	defaults := DefaultConfig()
	if config.MaxAttempts <= 0 {
		config.MaxAttempts = defaults.MaxAttempts
	}
	if config.PollInterval <= 0 {
		config.PollInterval = defaults.PollInterval
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Poller{
		client: client,
		config: config,
		sleep:  retry.ContextSleep,
		logger: logger,
	}
}

// WithSleeper replaces the wait between polls.
func (p *Poller) WithSleeper(s retry.Sleeper) *Poller {
	if s != nil {
		p.sleep = s
	}
	return p
}

// AwaitAttestation polls until the oracle reports a complete attestation for the burn in receipt.
// Not-found responses and transport errors count as "not yet"; only exhausting the budget fails.
func (p *Poller) AwaitAttestation(ctx context.Context, receipt entities.BurnReceipt) (*entities.Attestation, error) {
	var found *entities.Attestation
	burnTxHash, sourceDomain := receipt.TxHash, receipt.SourceDomain

	policy := retry.PollPolicy{MaxAttempts: p.config.MaxAttempts, Interval: p.config.PollInterval}
	attempts, err := retry.Poll(ctx, policy, p.sleep, func(ctx context.Context, attempt int) (bool, error) {
		resp, err := p.client.GetMessages(ctx, sourceDomain, burnTxHash)
		if err != nil {
			result := "error"
			if errors.Is(err, cctp.ErrNoMessages) {
				result = "not_found"
			}
			metrics.AttestationPollsTotal.WithLabelValues(result).Inc()
			p.logger.Debug("Attestation not available yet",
				zap.String("burnTxHash", burnTxHash),
				zap.Int("attempt", attempt),
				zap.Error(err))
			return false, nil
		}

		for _, msg := range resp.Messages {
			if msg.IsComplete() {
				found = &entities.Attestation{
					Message:     msg.Message,
					Attestation: msg.Attestation,
					Status:      entities.AttestationComplete,
				}
				metrics.AttestationPollsTotal.WithLabelValues("complete").Inc()
				return true, nil
			}
		}

		metrics.AttestationPollsTotal.WithLabelValues("pending").Inc()
		if attempt%10 == 0 {
			p.logger.Info("Waiting for attestation",
				zap.String("burnTxHash", burnTxHash),
				zap.Int("attempt", attempt),
				zap.Int("maxAttempts", p.config.MaxAttempts))
		}
		return false, nil
	})

	if err != nil {
		p.logger.Warn("Attestation polling stopped",
			zap.String("burnTxHash", burnTxHash),
			zap.Uint32("sourceDomain", sourceDomain),
			zap.Int("attempts", attempts),
			zap.Error(err))
		return nil, domainerrors.StageError(domainerrors.ErrAttestationTimeout, "ATTESTATION_TIMEOUT", err).
			WithDetails(map[string]interface{}{
				"burn_tx_hash": burnTxHash,
				"attempts":     attempts,
			})
	}

	p.logger.Info("Attestation complete",
		zap.String("burnTxHash", burnTxHash),
		zap.Int("attempts", attempts))
	return found, nil
}
