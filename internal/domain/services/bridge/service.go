package bridge

import (
	"context"
	"errors"
	"math/big"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/segmentio/ksuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/rail-service/hub_bridge/internal/domain/entities"
	domainerrors "github.com/rail-service/hub_bridge/internal/domain/errors"
	"github.com/rail-service/hub_bridge/internal/domain/services/chains"
	"github.com/rail-service/hub_bridge/internal/domain/services/executor"
	"github.com/rail-service/hub_bridge/pkg/metrics"
	"github.com/rail-service/hub_bridge/pkg/retry"
	"github.com/rail-service/hub_bridge/pkg/units"
)

// SagaRepository persists saga records
type SagaRepository interface {
	Create(ctx context.Context, saga *entities.BridgeSaga) error
	GetByID(ctx context.Context, id string) (*entities.BridgeSaga, error)
	ListByUser(ctx context.Context, userID string, limit int) ([]*entities.BridgeSaga, error)
	Update(ctx context.Context, saga *entities.BridgeSaga) error
}

// WalletProvisioner provides custodial wallets
type WalletProvisioner interface {
	EnsureWallet(ctx context.Context, userID, chainKey string) (entities.CustodialWallet, error)
}

// BalanceReader reads on-chain balances in atomic units
type BalanceReader interface {
	TokenBalance(ctx context.Context, chainKey, address string) (*big.Int, error)
	Allowance(ctx context.Context, chainKey, owner string) (*big.Int, error)
	NativeBalance(ctx context.Context, chainKey, address string) (*big.Int, error)
}

// CallExecutor signs and submits calls through the custody service
type CallExecutor interface {
	Execute(ctx context.Context, call executor.ContractCall) (*executor.Result, error)
	Transfer(ctx context.Context, call executor.TransferCall) (*executor.Result, error)
}

// AttestationPoller waits for the oracle to certify a burn
type AttestationPoller interface {
	AwaitAttestation(ctx context.Context, receipt entities.BurnReceipt) (*entities.Attestation, error)
}

// Config captures runtime configuration for the saga
type Config struct {
	HubChain          string
	DeliveryBackoff   []time.Duration
	MaxFee            string
	MinFinality       uint32
	BackgroundTimeout time.Duration
}

// DefaultConfig returns the testnet defaults.
func DefaultConfig() Config {
	return Config{
		HubChain:          chains.ArcTestnet,
		DeliveryBackoff:   []time.Duration{20 * time.Second, 40 * time.Second, 60 * time.Second, 60 * time.Second, 60 * time.Second},
		MaxFee:            "0",
		MinFinality:       0,
		BackgroundTimeout: 45 * time.Minute,
	}
}

// Service orchestrates burn, attestation, mint and delivery for one bridge at a time per call
type Service struct {
	repo         SagaRepository
	wallets      WalletProvisioner
	balances     BalanceReader
	executor     CallExecutor
	attestations AttestationPoller
	registry     *chains.Registry
	config       Config
	validate     *validator.Validate
	sleep        retry.Sleeper
	newID        func() string
	now          func() time.Time
	tracer       trace.Tracer
	logger       *zap.Logger

	running sync.Map
	wg      sync.WaitGroup
}

// NewService creates a new bridge service
func NewService(
	repo SagaRepository,
	wallets WalletProvisioner,
	balances BalanceReader,
	exec CallExecutor,
	attestations AttestationPoller,
	registry *chains.Registry,
	config Config,
	logger *zap.Logger,
) *Service {
	defaults := DefaultConfig()
	if config.HubChain == "" {
		config.HubChain = registry.Hub().Key
	}
	if len(config.DeliveryBackoff) == 0 {
		config.DeliveryBackoff = defaults.DeliveryBackoff
	}
	if config.MaxFee == "" {
		config.MaxFee = defaults.MaxFee
	}
	if config.BackgroundTimeout <= 0 {
		config.BackgroundTimeout = defaults.BackgroundTimeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Service{
		repo:         repo,
		wallets:      wallets,
		balances:     balances,
		executor:     exec,
		attestations: attestations,
		registry:     registry,
		config:       config,
		validate:     NewValidator(),
		sleep:        retry.ContextSleep,
		newID:        func() string { return ksuid.New().String() },
		now:          time.Now,
		tracer:       otel.Tracer("hub_bridge/bridge"),
		logger:       logger,
	}
}

// WithSleeper replaces the wait between delivery attempts.
func (s *Service) WithSleeper(sl retry.Sleeper) *Service {
	if sl != nil {
		s.sleep = sl
	}
	return s
}

// Bridge validates req, records the saga and runs it.
// The burn always completes before Bridge returns. With awaitCompletion the call also blocks through
// attestation, mint and delivery; otherwise those continue in the background and the report reflects the burn.
// A non-nil error means the request was rejected and no saga was started; saga failures are reported
// through SagaReport.Err.
func (s *Service) Bridge(ctx context.Context, req entities.BridgeRequest, awaitCompletion bool) (*SagaReport, error) {
	if req.UserID == "" {
		return nil, domainerrors.MissingUserIDError()
	}

	src, dst, req, err := s.resolve(req)
	if err != nil {
		return nil, err
	}
	if err := ValidateRequest(s.validate, req); err != nil {
		return nil, err
	}
	if _, err := units.ToAtomic(req.Amount, src.TokenDecimals); err != nil {
		return nil, domainerrors.ValidationError(FieldAmount, err.Error())
	}

	now := s.now()
	saga := &entities.BridgeSaga{
		ID:               s.newID(),
		UserID:           req.UserID,
		SourceChain:      src.Key,
		DestinationChain: dst.Key,
		Recipient:        req.Recipient,
		Amount:           req.Amount,
		Stage:            entities.StageInitiated,
		Outcome:          entities.OutcomePending,
		AwaitCompletion:  awaitCompletion,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if err := s.repo.Create(ctx, saga); err != nil {
		return nil, domainerrors.NewDomainError(domainerrors.ErrInternal, "SAGA_CREATE_FAILED", "could not record bridge").WithCause(err)
	}

	logger := s.sagaLogger(saga)
	logger.Info("Bridge saga initiated", zap.Bool("await", awaitCompletion))

	s.begin(saga.ID)
	receipt, destWallet, err := s.burn(ctx, saga, src, dst)
	if err != nil {
		s.fail(ctx, saga, entities.StageBurned, err)
		s.end(saga)
		return newReport(saga, src, dst, err), nil
	}

	return s.run(ctx, saga, receipt, src, dst, destWallet, awaitCompletion), nil
}

// Resume continues a failed or stalled post-burn saga from its durable record.
// Amount, recipient and user always come from the record.
func (s *Service) Resume(ctx context.Context, sagaID string, awaitCompletion bool) (*SagaReport, error) {
	saga, err := s.repo.GetByID(ctx, sagaID)
	if err != nil {
		return nil, err
	}
	if !saga.IsResumable() {
		return nil, domainerrors.SagaNotResumableError(saga.ID, string(saga.Stage))
	}

	src, err := s.registry.Get(saga.SourceChain)
	if err != nil {
		return nil, err
	}
	dst, err := s.registry.Get(saga.DestinationChain)
	if err != nil {
		return nil, err
	}

	if !s.claim(saga.ID) {
		return nil, domainerrors.SagaNotResumableError(saga.ID, string(saga.Stage)).
			WithDetails(map[string]interface{}{"reason": "saga is already running"})
	}

	saga.Outcome = entities.OutcomePending
	saga.FailedAt = ""
	saga.FailureCode = ""
	saga.FailureMessage = ""
	saga.Stalled = false
	saga.AwaitCompletion = awaitCompletion

	s.sagaLogger(saga).Info("Resuming bridge saga", zap.String("stage", string(saga.Stage)))

	destWallet, err := s.wallets.EnsureWallet(context.WithoutCancel(ctx), saga.UserID, dst.Key)
	if err != nil {
		s.fail(ctx, saga, saga.Stage.Next(), err)
		s.end(saga)
		return newReport(saga, src, dst, err), nil
	}
	if saga.DestinationWalletAddress != "" && !entities.SameAddress(saga.DestinationWalletAddress, destWallet.Address) {
		err := domainerrors.AddressMismatchError(saga.UserID, map[string]string{
			"recorded": saga.DestinationWalletAddress,
			dst.Key:    destWallet.Address,
		})
		s.fail(ctx, saga, saga.Stage.Next(), err)
		s.end(saga)
		return newReport(saga, src, dst, err), nil
	}
	saga.DestinationWalletAddress = destWallet.Address
	s.persist(ctx, saga)

	receipt, err := newBurnReceipt(saga, src, dst)
	if err != nil {
		s.fail(ctx, saga, saga.Stage.Next(), err)
		s.end(saga)
		return newReport(saga, src, dst, err), nil
	}

	return s.run(ctx, saga, receipt, src, dst, destWallet, awaitCompletion), nil
}

// GetSaga returns the saga record.
func (s *Service) GetSaga(ctx context.Context, sagaID string) (*entities.BridgeSaga, error) {
	return s.repo.GetByID(ctx, sagaID)
}

// ListSagas returns the most recent sagas of a user.
func (s *Service) ListSagas(ctx context.Context, userID string, limit int) ([]*entities.BridgeSaga, error) {
	if userID == "" {
		return nil, domainerrors.MissingUserIDError()
	}
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	return s.repo.ListByUser(ctx, userID, limit)
}

// IsRunning reports whether a goroutine in this process currently owns the saga.
func (s *Service) IsRunning(sagaID string) bool {
	_, ok := s.running.Load(sagaID)
	return ok
}

// Wait blocks until every background saga of this process has returned.
func (s *Service) Wait() {
	s.wg.Wait()
}

func (s *Service) resolve(req entities.BridgeRequest) (entities.ChainConfig, entities.ChainConfig, entities.BridgeRequest, error) {
	var src, dst entities.ChainConfig
	var err error

	if req.SourceChain == "" {
		src, err = s.registry.Get(s.config.HubChain)
	} else {
		src, err = s.registry.Resolve(req.SourceChain)
	}
	if err != nil {
		return src, dst, req, retag(err, FieldSourceChain)
	}

	if req.DestinationChain == "" {
		return src, dst, req, domainerrors.ValidationError(FieldDestinationChain, "destination chain is required")
	}
	dst, err = s.registry.Resolve(req.DestinationChain)
	if err != nil {
		return src, dst, req, retag(err, FieldDestinationChain)
	}

	req.SourceChain = src.Key
	req.DestinationChain = dst.Key
	return src, dst, req, nil
}

func retag(err error, field string) error {
	var de *domainerrors.DomainError
	if errors.As(err, &de) && de.Details != nil {
		de.Details["field"] = field
	}
	return err
}

// run drives the post-burn stages. Once the burn is submitted the saga cannot be cancelled, so both
// modes run on a context detached from the caller and bounded by BackgroundTimeout.
func (s *Service) run(ctx context.Context, saga *entities.BridgeSaga, receipt entities.BurnReceipt, src, dst entities.ChainConfig, destWallet entities.CustodialWallet, awaitCompletion bool) *SagaReport {
	detached, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.config.BackgroundTimeout)

	if awaitCompletion {
		defer cancel()
		err := s.finish(detached, saga, receipt, dst, destWallet)
		s.end(saga)
		return newReport(saga, src, dst, err)
	}

	report := newReport(saga, src, dst, nil)
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer cancel()
		defer s.end(saga)
		if err := s.finish(detached, saga, receipt, dst, destWallet); err != nil {
			s.sagaLogger(saga).Warn("Background bridge saga ended without completing", zap.Error(err))
		}
	}()
	return report
}

// newBurnReceipt rebuilds the receipt of a recorded burn.
func newBurnReceipt(saga *entities.BridgeSaga, src, dst entities.ChainConfig) (entities.BurnReceipt, error) {
	amount, err := units.ToAtomic(saga.Amount, src.TokenDecimals)
	if err != nil {
		return entities.BurnReceipt{}, domainerrors.ValidationError(FieldAmount, err.Error())
	}
	return entities.BurnReceipt{
		SourceChain:       src.Key,
		SourceDomain:      src.DomainID,
		TxHash:            saga.BurnTxHash,
		Amount:            amount,
		DestinationDomain: dst.DomainID,
		MintRecipient:     PadAddress(saga.DestinationWalletAddress),
	}, nil
}

// burn provisions both wallets, checks funds, approves if needed and burns. Nothing irreversible happens
// before the balance check passes.
func (s *Service) burn(ctx context.Context, saga *entities.BridgeSaga, src, dst entities.ChainConfig) (entities.BurnReceipt, entities.CustodialWallet, error) {
	ctx, span := s.startSpan(ctx, "bridge.burn", saga)
	defer span.End()
	logger := s.sagaLogger(saga)

	var srcWallet, destWallet entities.CustodialWallet
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		w, err := s.wallets.EnsureWallet(gctx, saga.UserID, src.Key)
		srcWallet = w
		return err
	})
	g.Go(func() error {
		w, err := s.wallets.EnsureWallet(gctx, saga.UserID, dst.Key)
		destWallet = w
		return err
	})
	if err := g.Wait(); err != nil {
		recordSpanError(span, err)
		return entities.BurnReceipt{}, destWallet, err
	}

	saga.DestinationWalletAddress = destWallet.Address
	if saga.Recipient == "" {
		saga.Recipient = destWallet.Address
	}
	s.persist(ctx, saga)

	amount, err := units.ToAtomic(saga.Amount, src.TokenDecimals)
	if err != nil {
		return entities.BurnReceipt{}, destWallet, domainerrors.ValidationError(FieldAmount, err.Error())
	}

	balance, err := s.balances.TokenBalance(ctx, src.Key, srcWallet.Address)
	if err != nil {
		recordSpanError(span, err)
		return entities.BurnReceipt{}, destWallet, domainerrors.StageError(domainerrors.ErrBurnFailed, "BALANCE_UNAVAILABLE", err).WithRetryable(true)
	}
	if balance.Cmp(amount) < 0 {
		err := domainerrors.InsufficientFundsError(src.Key, units.FromAtomic(balance, src.TokenDecimals), saga.Amount)
		recordSpanError(span, err)
		return entities.BurnReceipt{}, destWallet, err
	}

	allowance, err := s.balances.Allowance(ctx, src.Key, srcWallet.Address)
	if err != nil {
		recordSpanError(span, err)
		return entities.BurnReceipt{}, destWallet, domainerrors.StageError(domainerrors.ErrApprovalFailed, "ALLOWANCE_UNAVAILABLE", err).WithRetryable(true)
	}
	if allowance.Cmp(amount) < 0 {
		logger.Info("Approving token messenger", zap.String("allowance", allowance.String()), zap.String("amount", amount.String()))
		res, err := s.executor.Execute(ctx, executor.ContractCall{
			WalletID:          srcWallet.WalletID,
			ChainKey:          src.Key,
			ContractAddress:   src.TokenAddress,
			FunctionSignature: approveSignature,
			Parameters:        approveParams(src.TokenMessenger, amount),
			RefID:             saga.ID,
		})
		if err != nil {
			recordSpanError(span, err)
			return entities.BurnReceipt{}, destWallet, domainerrors.StageError(domainerrors.ErrApprovalFailed, "APPROVAL_FAILED", err)
		}
		saga.ApprovalTxHash = res.TxHash
		s.persist(ctx, saga)
	}

	// The burn may land once submitted, so its confirmation poll is not tied to the caller.
	res, err := s.executor.Execute(context.WithoutCancel(ctx), executor.ContractCall{
		WalletID:          srcWallet.WalletID,
		ChainKey:          src.Key,
		ContractAddress:   src.TokenMessenger,
		FunctionSignature: depositForBurnSignature,
		Parameters:        depositForBurnParams(amount, dst.DomainID, destWallet.Address, src.TokenAddress, s.config.MaxFee, s.config.MinFinality),
		RefID:             saga.ID,
	})
	if err != nil {
		recordSpanError(span, err)
		return entities.BurnReceipt{}, destWallet, domainerrors.StageError(domainerrors.ErrBurnFailed, "BURN_FAILED", err)
	}

	saga.BurnTxHash = res.TxHash
	s.advance(ctx, saga, entities.StageBurned)
	span.SetAttributes(attribute.String("burn_tx_hash", res.TxHash))
	logger.Info("Burn confirmed",
		zap.String("burnTxHash", res.TxHash),
		zap.String("mintRecipient", destWallet.Address),
		zap.Uint32("destinationDomain", dst.DomainID))

	return entities.BurnReceipt{
		SourceChain:       src.Key,
		SourceDomain:      src.DomainID,
		TxHash:            res.TxHash,
		Amount:            amount,
		DestinationDomain: dst.DomainID,
		MintRecipient:     PadAddress(destWallet.Address),
	}, destWallet, nil
}

// finish drives the saga from its current post-burn stage to a terminal outcome.
func (s *Service) finish(ctx context.Context, saga *entities.BridgeSaga, receipt entities.BurnReceipt, dst entities.ChainConfig, destWallet entities.CustodialWallet) error {
	if saga.Stage == entities.StageBurned || saga.Stage == entities.StageAttested {
		att, err := s.attest(ctx, saga, receipt)
		if err != nil {
			s.fail(ctx, saga, saga.Stage.Next(), err)
			return err
		}
		if saga.Stage == entities.StageBurned {
			s.advance(ctx, saga, entities.StageAttested)
		}

		if err := s.mint(ctx, saga, dst, destWallet, att); err != nil {
			s.fail(ctx, saga, entities.StageMinted, err)
			return err
		}
		s.advance(ctx, saga, entities.StageMinted)
	}

	if !saga.NeedsDelivery() {
		s.complete(ctx, saga, entities.OutcomeMinted)
		return nil
	}

	if err := s.deliver(ctx, saga, dst, destWallet); err != nil {
		s.fail(ctx, saga, entities.StageDelivered, err)
		return err
	}
	saga.Stage = entities.StageDelivered
	s.complete(ctx, saga, entities.OutcomeDelivered)
	return nil
}

func (s *Service) attest(ctx context.Context, saga *entities.BridgeSaga, receipt entities.BurnReceipt) (*entities.Attestation, error) {
	ctx, span := s.startSpan(ctx, "bridge.attest", saga)
	defer span.End()

	att, err := s.attestations.AwaitAttestation(ctx, receipt)
	if err != nil {
		recordSpanError(span, err)
		if !errors.Is(err, domainerrors.ErrAttestationTimeout) {
			err = domainerrors.StageError(domainerrors.ErrAttestationTimeout, "ATTESTATION_TIMEOUT", err)
		}
		return nil, err
	}
	return att, nil
}

func (s *Service) mint(ctx context.Context, saga *entities.BridgeSaga, dst entities.ChainConfig, destWallet entities.CustodialWallet, att *entities.Attestation) error {
	ctx, span := s.startSpan(ctx, "bridge.mint", saga)
	defer span.End()
	logger := s.sagaLogger(saga)

	if !destWallet.AccountType.SponsorsGas() {
		if err := s.checkGas(ctx, dst, destWallet); err != nil {
			recordSpanError(span, err)
			return err
		}
	} else {
		logger.Debug("Smart contract account, skipping native gas check")
	}

	res, err := s.executor.Execute(ctx, executor.ContractCall{
		WalletID:          destWallet.WalletID,
		ChainKey:          dst.Key,
		ContractAddress:   dst.MessageTransmitter,
		FunctionSignature: receiveMessageSignature,
		Parameters:        receiveMessageParams(att.Message, att.Attestation),
		RefID:             saga.ID,
	})
	if err != nil {
		recordSpanError(span, err)
		return domainerrors.StageError(domainerrors.ErrMintFailed, "MINT_FAILED", err)
	}

	saga.MintTxHash = res.TxHash
	span.SetAttributes(attribute.String("mint_tx_hash", res.TxHash))
	logger.Info("Mint confirmed", zap.String("mintTxHash", res.TxHash))
	return nil
}

// checkGas requires a native balance strictly above the chain minimum.
func (s *Service) checkGas(ctx context.Context, dst entities.ChainConfig, wallet entities.CustodialWallet) error {
	native, err := s.balances.NativeBalance(ctx, dst.Key, wallet.Address)
	if err != nil {
		return domainerrors.StageError(domainerrors.ErrMintFailed, "GAS_BALANCE_UNAVAILABLE", err).WithRetryable(true)
	}

	floor := big.NewInt(0)
	if dst.MinNativeGas != "" {
		if m, err := units.ToAtomic(dst.MinNativeGas, dst.NativeDecimals); err == nil {
			floor = m
		}
	}
	if native.Cmp(floor) <= 0 {
		return domainerrors.GasInsufficientError(dst.Key, wallet.Address, units.FromAtomic(native, dst.NativeDecimals))
	}
	return nil
}

// deliver transfers the original decimal amount to the recipient, retrying on the backoff table
// because the custody balance view can lag the mint.
func (s *Service) deliver(ctx context.Context, saga *entities.BridgeSaga, dst entities.ChainConfig, destWallet entities.CustodialWallet) error {
	ctx, span := s.startSpan(ctx, "bridge.deliver", saga)
	defer span.End()
	logger := s.sagaLogger(saga)

	retrier, err := retry.New(retry.NewTablePolicy(s.config.DeliveryBackoff...), logger)
	if err != nil {
		recordSpanError(span, err)
		return domainerrors.StageError(domainerrors.ErrDeliveryFailed, "DELIVERY_FAILED", err)
	}
	retrier.WithSleeper(s.sleep).
		OnRetry(func(attempt int, err error, delay time.Duration) {
			metrics.DeliveryAttemptsTotal.WithLabelValues("retry").Inc()
		})

	var txHash string
	attempts, err := retrier.Do(ctx, func(ctx context.Context, attempt int) error {
		saga.DeliveryAttempts++
		res, err := s.executor.Transfer(ctx, executor.TransferCall{
			WalletID:           destWallet.WalletID,
			ChainKey:           dst.Key,
			TokenAddress:       dst.TokenAddress,
			DestinationAddress: saga.Recipient,
			Amount:             saga.Amount,
			RefID:              saga.ID,
		})
		if err != nil {
			return err
		}
		txHash = res.TxHash
		return nil
	})
	span.SetAttributes(attribute.Int("attempts", attempts))

	if err != nil {
		metrics.DeliveryAttemptsTotal.WithLabelValues("exhausted").Inc()
		recordSpanError(span, err)
		return domainerrors.StageError(domainerrors.ErrDeliveryFailed, "DELIVERY_FAILED", err).
			WithDetails(map[string]interface{}{"attempts": attempts})
	}

	metrics.DeliveryAttemptsTotal.WithLabelValues("success").Inc()
	saga.DeliveryTxHash = txHash
	logger.Info("Delivery confirmed",
		zap.String("deliveryTxHash", txHash),
		zap.String("recipient", saga.Recipient),
		zap.Int("attempts", attempts))
	return nil
}

func (s *Service) advance(ctx context.Context, saga *entities.BridgeSaga, stage entities.SagaStage) {
	saga.Stage = stage
	metrics.SagaStageTotal.WithLabelValues(string(stage), "success").Inc()
	s.persist(ctx, saga)
}

func (s *Service) complete(ctx context.Context, saga *entities.BridgeSaga, outcome entities.SagaOutcome) {
	saga.Outcome = outcome
	if outcome == entities.OutcomeDelivered {
		metrics.SagaStageTotal.WithLabelValues(string(entities.StageDelivered), "success").Inc()
	}
	s.persist(ctx, saga)
	s.sagaLogger(saga).Info("Bridge saga completed", zap.String("outcome", string(outcome)))
}

// fail records failedAt as the state whose transition did not happen; Stage keeps the last state reached.
func (s *Service) fail(ctx context.Context, saga *entities.BridgeSaga, failedAt entities.SagaStage, err error) {
	saga.Outcome = entities.OutcomeFailed
	saga.FailedAt = failedAt
	saga.FailureCode = domainerrors.GetErrorCode(err)
	saga.FailureMessage = err.Error()
	metrics.SagaStageTotal.WithLabelValues(string(failedAt), "failure").Inc()
	s.persist(ctx, saga)

	fields := []zap.Field{
		zap.String("failedAt", string(failedAt)),
		zap.String("code", saga.FailureCode),
		zap.Error(err),
	}
	if saga.BurnTxHash != "" {
		fields = append(fields, zap.String("burnTxHash", saga.BurnTxHash))
	}
	if domainerrors.IsInFlight(err) {
		s.sagaLogger(saga).Warn("Bridge saga stopped with funds in flight", fields...)
		return
	}
	s.sagaLogger(saga).Error("Bridge saga failed", fields...)
}

// persist writes the record. The on-chain side effect already happened, so a write failure is only logged.
func (s *Service) persist(ctx context.Context, saga *entities.BridgeSaga) {
	saga.UpdatedAt = s.now()
	if err := s.repo.Update(context.WithoutCancel(ctx), saga); err != nil {
		s.sagaLogger(saga).Error("Failed to persist bridge saga",
			zap.String("stage", string(saga.Stage)),
			zap.Error(err))
	}
}

func (s *Service) begin(sagaID string) {
	s.running.Store(sagaID, s.now())
	metrics.SagasInFlight.Inc()
}

// claim is begin for a saga another caller may already own.
func (s *Service) claim(sagaID string) bool {
	if _, loaded := s.running.LoadOrStore(sagaID, s.now()); loaded {
		return false
	}
	metrics.SagasInFlight.Inc()
	return true
}

func (s *Service) end(saga *entities.BridgeSaga) {
	started, ok := s.running.LoadAndDelete(saga.ID)
	metrics.SagasInFlight.Dec()
	if ok {
		metrics.SagaDuration.WithLabelValues(string(saga.Outcome)).Observe(s.now().Sub(started.(time.Time)).Seconds())
	}
}

func (s *Service) startSpan(ctx context.Context, name string, saga *entities.BridgeSaga) (context.Context, trace.Span) {
	return s.tracer.Start(ctx, name, trace.WithAttributes(
		attribute.String("saga_id", saga.ID),
		attribute.String("source_chain", saga.SourceChain),
		attribute.String("destination_chain", saga.DestinationChain),
	))
}

func recordSpanError(span trace.Span, err error) {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}

func (s *Service) sagaLogger(saga *entities.BridgeSaga) *zap.Logger {
	return s.logger.With(
		zap.String("sagaId", saga.ID),
		zap.String("userId", saga.UserID),
		zap.String("sourceChain", saga.SourceChain),
		zap.String("destinationChain", saga.DestinationChain),
		zap.String("amount", saga.Amount))
}
