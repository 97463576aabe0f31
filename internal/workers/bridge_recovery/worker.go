package bridge_recovery

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/rail-service/hub_bridge/internal/domain/entities"
	"github.com/rail-service/hub_bridge/pkg/metrics"
)

// SagaStore is the persistence the sweep reads and flags.
type SagaStore interface {
	ListStalled(ctx context.Context, before time.Time, limit int) ([]*entities.BridgeSaga, error)
	MarkStalled(ctx context.Context, id string) (bool, error)
}

// RunningChecker reports sagas still owned by a goroutine in this process.
type RunningChecker interface {
	IsRunning(sagaID string) bool
}

// Alerter notifies operators about a stalled saga.
type Alerter interface {
	SagaStalled(ctx context.Context, saga *entities.BridgeSaga) error
}

type Config struct {
	Schedule   string
	StaleAfter time.Duration
	Limit      int
}

// Worker periodically flags sagas that stopped making progress. It never resumes them.
type Worker struct {
	store   SagaStore
	running RunningChecker
	alerter Alerter
	config  Config
	cron    *cron.Cron
	now     func() time.Time
	logger  *zap.Logger
}

func NewWorker(store SagaStore, running RunningChecker, alerter Alerter, config Config, logger *zap.Logger) *Worker {
	if config.Schedule == "" {
		config.Schedule = "@every 5m"
	}
	if config.StaleAfter <= 0 {
		config.StaleAfter = 30 * time.Minute
	}
	if config.Limit <= 0 {
		config.Limit = 100
	}
	return &Worker{
		store:   store,
		running: running,
		alerter: alerter,
		config:  config,
		cron:    cron.New(),
		now:     time.Now,
		logger:  logger,
	}
}

func (w *Worker) Start() error {
	_, err := w.cron.AddFunc(w.config.Schedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
		defer cancel()

		if _, err := w.Sweep(ctx); err != nil {
			w.logger.Error("Failed to sweep stalled bridge sagas", zap.Error(err))
		}
	})
	if err != nil {
		return err
	}

	w.cron.Start()
	w.logger.Info("Bridge recovery worker started", zap.String("schedule", w.config.Schedule))
	return nil
}

// Stop waits for a running sweep to finish.
func (w *Worker) Stop() {
	<-w.cron.Stop().Done()
	w.logger.Info("Bridge recovery worker stopped")
}

// Sweep runs one pass and returns the sagas it flagged.
func (w *Worker) Sweep(ctx context.Context) ([]*entities.BridgeSaga, error) {
	before := w.now().Add(-w.config.StaleAfter)
	candidates, err := w.store.ListStalled(ctx, before, w.config.Limit)
	if err != nil {
		return nil, err
	}

	var flagged []*entities.BridgeSaga
	for _, saga := range candidates {
		if w.running != nil && w.running.IsRunning(saga.ID) {
			continue
		}

		marked, err := w.store.MarkStalled(ctx, saga.ID)
		if err != nil {
			w.logger.Error("Failed to mark saga stalled", zap.String("sagaID", saga.ID), zap.Error(err))
			continue
		}
		if !marked {
			continue
		}
		saga.Stalled = true
		metrics.StalledSagasTotal.Inc()
		flagged = append(flagged, saga)

		if w.alerter != nil {
			if err := w.alerter.SagaStalled(ctx, saga); err != nil {
				w.logger.Warn("Stalled saga alert failed", zap.String("sagaID", saga.ID), zap.Error(err))
			}
		}
	}

	if len(flagged) > 0 {
		w.logger.Info("Flagged stalled bridge sagas", zap.Int("count", len(flagged)))
	}
	return flagged, nil
}
