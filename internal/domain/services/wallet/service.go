package wallet

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/rail-service/hub_bridge/internal/domain/entities"
	domainerrors "github.com/rail-service/hub_bridge/internal/domain/errors"
	"github.com/rail-service/hub_bridge/internal/domain/services/chains"
	"github.com/rail-service/hub_bridge/pkg/metrics"
)

const (
	defaultWalletSetName = "ArcHub-Autonomous-v3"
	defaultMetadataName  = "AGENT-SCA-UNIVERSAL"
	developerCustody     = "DEVELOPER"

	defaultProvisionTimeout = 2 * time.Minute
)

// Service provisions custodial wallets that share one address across every supported chain.
type Service struct {
	custody  CircleClient
	registry *chains.Registry
	store    Store
	locker   Locker
	config   Config
	logger   *zap.Logger

	mu    sync.RWMutex
	cache map[cacheKey]entities.CustodialWallet
	group singleflight.Group

	setMu       sync.Mutex
	walletSetID string
}

// Config captures runtime configuration for the wallet service
type Config struct {
	WalletSetID     string
	WalletSetName   string
	MetadataName    string
	AccountType     entities.AccountType
	SupportedChains []string
	// ProvisionTimeout bounds one shared provisioning run, independent of any single caller.
	ProvisionTimeout time.Duration
}

// CircleClient is the custody surface used for provisioning.
type CircleClient interface {
	ListWalletSets(ctx context.Context) (*entities.CircleWalletSetListResponse, error)
	CreateWalletSet(ctx context.Context, name, idempotencyKey string) (*entities.CircleWalletSetResponse, error)
	ListWalletsByRefID(ctx context.Context, walletSetID, refID string) (*entities.CircleWalletListResponse, error)
	CreateWallets(ctx context.Context, req entities.CircleWalletCreateRequest) (*entities.CircleWalletListResponse, error)
}

// Store is an optional cache shared between instances. It is never a source of truth:
// a miss or an error always falls through to the custody service.
type Store interface {
	GetWallets(ctx context.Context, userID string) (map[string]entities.CustodialWallet, error)
	PutWallets(ctx context.Context, userID string, wallets []entities.CustodialWallet) error
}

// Locker serializes provisioning of one user across instances.
type Locker interface {
	Acquire(ctx context.Context, userID string) (release func(), err error)
}

type cacheKey struct {
	userID string
	chain  string
}

// NewService creates a new wallet service. store and locker may be nil.
func NewService(custody CircleClient, registry *chains.Registry, store Store, locker Locker, cfg Config, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.WalletSetName == "" {
		cfg.WalletSetName = defaultWalletSetName
	}
	if cfg.MetadataName == "" {
		cfg.MetadataName = defaultMetadataName
	}
	if !cfg.AccountType.IsValid() {
		cfg.AccountType = entities.AccountTypeSCA
	}
	if cfg.ProvisionTimeout <= 0 {
		cfg.ProvisionTimeout = defaultProvisionTimeout
	}
	cfg.SupportedChains = normalizeSupportedChains(registry, cfg.SupportedChains, logger)

	return &Service{
		custody:     custody,
		registry:    registry,
		store:       store,
		locker:      locker,
		config:      cfg,
		logger:      logger,
		cache:       make(map[cacheKey]entities.CustodialWallet),
		walletSetID: strings.TrimSpace(cfg.WalletSetID),
	}
}

func normalizeSupportedChains(registry *chains.Registry, keys []string, logger *zap.Logger) []string {
	if len(keys) == 0 {
		keys = []string{chains.ArcTestnet, chains.EthereumSepolia, chains.BaseSepolia}
	}

	normalized := make([]string, 0, len(keys))
	seen := make(map[string]struct{}, len(keys))
	for _, key := range keys {
		chain, err := registry.Resolve(key)
		if err != nil {
			logger.Warn("Ignoring unsupported wallet chain in configuration", zap.String("chain", key))
			continue
		}
		if _, ok := seen[chain.Key]; ok {
			continue
		}
		seen[chain.Key] = struct{}{}
		normalized = append(normalized, chain.Key)
	}
	return normalized
}

// SupportedChains returns the chains every account is created on.
func (s *Service) SupportedChains() []string {
	return append([]string(nil), s.config.SupportedChains...)
}

// EnsureWallet returns the user's custodial wallet on chainKey, creating the user's account on every
// supported chain in one batched request if none exists yet.
func (s *Service) EnsureWallet(ctx context.Context, userID, chainKey string) (entities.CustodialWallet, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return entities.CustodialWallet{}, domainerrors.MissingUserIDError()
	}

	chain, err := s.registry.Get(chainKey)
	if err != nil {
		return entities.CustodialWallet{}, err
	}
	if !s.isSupported(chain.Key) {
		return entities.CustodialWallet{}, domainerrors.WalletChainUnsupportedError(chain.Key)
	}

	if w, ok := s.cached(userID, chain.Key); ok {
		metrics.WalletProvisioningTotal.WithLabelValues("cache_hit").Inc()
		return w, nil
	}

	// A run shared with a caller asking for another chain may have been served from the store
	// without this chain, so a shared miss gets one run of its own.
	for run := 0; ; run++ {
		shared, err := s.provisionShared(ctx, userID, chain.Key)
		if err != nil {
			metrics.WalletProvisioningTotal.WithLabelValues("error").Inc()
			s.logger.Error("Wallet provisioning failed",
				zap.String("userID", userID),
				zap.String("chain", chain.Key),
				zap.Error(err))
			return entities.CustodialWallet{}, err
		}

		if w, ok := s.cached(userID, chain.Key); ok {
			return w, nil
		}
		if !shared || run > 0 {
			return entities.CustodialWallet{}, domainerrors.ChainNotProvisionedError(userID, chain.Key)
		}
	}
}

// provisionShared joins the in-flight provisioning of userID or starts one. The run uses a context
// detached from any single caller; a caller that gives up stops waiting without cancelling the others.
func (s *Service) provisionShared(ctx context.Context, userID, chainKey string) (bool, error) {
	ch := s.group.DoChan(userID, func() (interface{}, error) {
		pctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.config.ProvisionTimeout)
		defer cancel()
		return nil, s.provision(pctx, userID, chainKey)
	})

	select {
	case res := <-ch:
		return res.Shared, res.Err
	case <-ctx.Done():
		return false, domainerrors.WalletProvisioningError(userID, chainKey, ctx.Err())
	}
}

// provision fills the cache for every chain of the user's account.
func (s *Service) provision(ctx context.Context, userID, chainKey string) error {
	if s.store != nil {
		stored, err := s.store.GetWallets(ctx, userID)
		if err != nil {
			s.logger.Warn("Wallet store read failed, querying custody", zap.String("userID", userID), zap.Error(err))
		} else if _, ok := stored[chainKey]; ok {
			wallets := make([]entities.CustodialWallet, 0, len(stored))
			for _, w := range stored {
				wallets = append(wallets, w)
			}
			if err := s.remember(userID, wallets); err == nil {
				metrics.WalletProvisioningTotal.WithLabelValues("store_hit").Inc()
				return nil
			}
			s.logger.Warn("Ignoring inconsistent stored wallets", zap.String("userID", userID))
		}
	}

	if s.locker != nil {
		release, err := s.locker.Acquire(ctx, userID)
		if err != nil {
			return domainerrors.WalletProvisioningError(userID, "", err)
		}
		defer release()
	}

	walletSetID, err := s.ensureWalletSet(ctx)
	if err != nil {
		return domainerrors.WalletProvisioningError(userID, "", err)
	}

	existing, err := s.lookup(ctx, walletSetID, userID)
	if err != nil {
		return domainerrors.WalletProvisioningError(userID, "", err)
	}
	if len(existing) > 0 {
		s.logger.Info("Found existing custodial wallets",
			zap.String("userID", userID),
			zap.Int("count", len(existing)))
		metrics.WalletProvisioningTotal.WithLabelValues("lookup").Inc()
		return s.rememberAndStore(ctx, userID, existing)
	}

	created, err := s.create(ctx, walletSetID, userID)
	if err != nil {
		return err
	}
	metrics.WalletProvisioningTotal.WithLabelValues("created").Inc()
	return s.rememberAndStore(ctx, userID, created)
}

// lookup returns the wallets already tagged with userID, mapped to registry chains.
func (s *Service) lookup(ctx context.Context, walletSetID, userID string) ([]entities.CustodialWallet, error) {
	resp, err := s.custody.ListWalletsByRefID(ctx, walletSetID, userID)
	if err != nil {
		return nil, err
	}

	wallets := make([]entities.CustodialWallet, 0, len(resp.Wallets))
	for _, data := range resp.Wallets {
		if data.RefID != "" && data.RefID != userID {
			continue
		}
		if data.AccountType != "" && entities.ParseAccountType(data.AccountType) != s.config.AccountType {
			continue
		}
		if w, ok := s.toWallet(data); ok {
			wallets = append(wallets, w)
		}
	}
	return wallets, nil
}

// create issues the single batched request naming every supported chain.
// The idempotency key is derived from userID so a retried request never creates a second account.
func (s *Service) create(ctx context.Context, walletSetID, userID string) ([]entities.CustodialWallet, error) {
	blockchains := make([]string, 0, len(s.config.SupportedChains))
	for _, key := range s.config.SupportedChains {
		chain, err := s.registry.Get(key)
		if err != nil {
			return nil, err
		}
		blockchains = append(blockchains, chain.CustodyBlockchain)
	}

	s.logger.Info("Creating universal custodial wallet",
		zap.String("userID", userID),
		zap.Strings("blockchains", blockchains),
		zap.String("accountType", string(s.config.AccountType)))

	resp, err := s.custody.CreateWallets(ctx, entities.CircleWalletCreateRequest{
		IdempotencyKey: IdempotencyKey(userID),
		Blockchains:    blockchains,
		Count:          1,
		AccountType:    string(s.config.AccountType),
		WalletSetID:    walletSetID,
		Metadata: []entities.CircleWalletMetadata{{
			Name:  s.config.MetadataName,
			RefID: userID,
		}},
	})
	if err != nil {
		return nil, domainerrors.WalletProvisioningError(userID, "", err)
	}
	if len(resp.Wallets) == 0 {
		return nil, domainerrors.WalletProvisioningError(userID, "", errEmptyCreation)
	}

	wallets := make([]entities.CustodialWallet, 0, len(resp.Wallets))
	for _, data := range resp.Wallets {
		if w, ok := s.toWallet(data); ok {
			if data.AccountType == "" {
				w.AccountType = s.config.AccountType
			}
			wallets = append(wallets, w)
		}
	}
	return wallets, nil
}

func (s *Service) toWallet(data entities.CircleWalletData) (entities.CustodialWallet, bool) {
	chain, ok := s.registry.ByCustodyBlockchain(data.Blockchain)
	if !ok {
		s.logger.Debug("Skipping wallet on unknown blockchain", zap.String("blockchain", data.Blockchain))
		return entities.CustodialWallet{}, false
	}
	accountType := s.config.AccountType
	if data.AccountType != "" {
		accountType = entities.ParseAccountType(data.AccountType)
	}
	return entities.CustodialWallet{
		WalletID:    data.ID,
		Address:     data.Address,
		AccountType: accountType,
		ChainKey:    chain.Key,
		WalletSetID: data.WalletSetId,
	}, true
}

func (s *Service) rememberAndStore(ctx context.Context, userID string, wallets []entities.CustodialWallet) error {
	if err := s.remember(userID, wallets); err != nil {
		return err
	}
	if s.store != nil {
		if err := s.store.PutWallets(ctx, userID, wallets); err != nil {
			s.logger.Warn("Wallet store write failed", zap.String("userID", userID), zap.Error(err))
		}
	}
	return nil
}

// remember verifies the single-address invariant against the batch and anything already cached,
// then inserts entries that are not yet present.
func (s *Service) remember(userID string, wallets []entities.CustodialWallet) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	addresses := make(map[string]string, len(wallets))
	var address string
	for _, key := range s.config.SupportedChains {
		if w, ok := s.cache[cacheKey{userID, key}]; ok {
			addresses[key] = w.Address
			if address == "" {
				address = w.Address
			}
		}
	}
	mismatch := false
	for _, w := range wallets {
		addresses[w.ChainKey] = w.Address
		if address == "" {
			address = w.Address
		}
		if !entities.SameAddress(address, w.Address) {
			mismatch = true
		}
	}
	if mismatch {
		return domainerrors.AddressMismatchError(userID, addresses)
	}

	for _, w := range wallets {
		key := cacheKey{userID, w.ChainKey}
		if _, exists := s.cache[key]; !exists {
			s.cache[key] = w
		}
	}
	return nil
}

func (s *Service) cached(userID, chainKey string) (entities.CustodialWallet, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	w, ok := s.cache[cacheKey{userID, chainKey}]
	return w, ok
}

func (s *Service) isSupported(chainKey string) bool {
	for _, key := range s.config.SupportedChains {
		if key == chainKey {
			return true
		}
	}
	return false
}

// ensureWalletSet resolves the wallet set once per process: configured id, then the named developer set,
// then any developer set, then a new one.
func (s *Service) ensureWalletSet(ctx context.Context) (string, error) {
	s.setMu.Lock()
	defer s.setMu.Unlock()

	if s.walletSetID != "" {
		return s.walletSetID, nil
	}

	sets, err := s.custody.ListWalletSets(ctx)
	if err != nil {
		s.logger.Warn("Listing wallet sets failed, creating one", zap.Error(err))
	} else {
		var fallback string
		for _, set := range sets.WalletSets {
			if !strings.EqualFold(set.CustodyType, developerCustody) {
				continue
			}
			if set.Name == s.config.WalletSetName {
				s.walletSetID = set.ID
				return s.walletSetID, nil
			}
			if fallback == "" {
				fallback = set.ID
			}
		}
		if fallback != "" {
			s.logger.Info("Named wallet set not found, using first developer set",
				zap.String("walletSetId", fallback))
			s.walletSetID = fallback
			return s.walletSetID, nil
		}
	}

	key := uuid.NewSHA1(uuid.NameSpaceDNS, []byte("wallet-set-"+s.config.WalletSetName)).String()
	created, err := s.custody.CreateWalletSet(ctx, s.config.WalletSetName, key)
	if err != nil {
		return "", err
	}
	if created.WalletSet.ID == "" {
		return "", errEmptyWalletSet
	}

	s.walletSetID = created.WalletSet.ID
	s.logger.Info("Created wallet set", zap.String("walletSetId", s.walletSetID))
	return s.walletSetID, nil
}

// IdempotencyKey is the deterministic account-creation key for a user.
func IdempotencyKey(userID string) string {
	return uuid.NewSHA1(uuid.NameSpaceDNS, []byte("universal-wallet-"+userID)).String()
}
