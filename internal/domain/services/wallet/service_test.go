package wallet

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/rail-service/hub_bridge/internal/domain/entities"
	domainerrors "github.com/rail-service/hub_bridge/internal/domain/errors"
	"github.com/rail-service/hub_bridge/internal/domain/services/chains"
)

const universalAddress = "0xAbC0000000000000000000000000000000000001"

type MockCircleClient struct {
	mock.Mock
}

func (m *MockCircleClient) ListWalletSets(ctx context.Context) (*entities.CircleWalletSetListResponse, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.CircleWalletSetListResponse), args.Error(1)
}

func (m *MockCircleClient) CreateWalletSet(ctx context.Context, name, idempotencyKey string) (*entities.CircleWalletSetResponse, error) {
	args := m.Called(ctx, name, idempotencyKey)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.CircleWalletSetResponse), args.Error(1)
}

func (m *MockCircleClient) ListWalletsByRefID(ctx context.Context, walletSetID, refID string) (*entities.CircleWalletListResponse, error) {
	args := m.Called(ctx, walletSetID, refID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.CircleWalletListResponse), args.Error(1)
}

func (m *MockCircleClient) CreateWallets(ctx context.Context, req entities.CircleWalletCreateRequest) (*entities.CircleWalletListResponse, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.CircleWalletListResponse), args.Error(1)
}

type memoryStore struct {
	mu      sync.Mutex
	wallets map[string]map[string]entities.CustodialWallet
}

func (s *memoryStore) GetWallets(_ context.Context, userID string) (map[string]entities.CustodialWallet, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.wallets[userID], nil
}

func (s *memoryStore) PutWallets(_ context.Context, userID string, wallets []entities.CustodialWallet) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.wallets == nil {
		s.wallets = make(map[string]map[string]entities.CustodialWallet)
	}
	if s.wallets[userID] == nil {
		s.wallets[userID] = make(map[string]entities.CustodialWallet)
	}
	for _, w := range wallets {
		s.wallets[userID][w.ChainKey] = w
	}
	return nil
}

func createdWallets(userID string) *entities.CircleWalletListResponse {
	return &entities.CircleWalletListResponse{Wallets: []entities.CircleWalletData{
		{ID: "w-arc-" + userID, Address: universalAddress, Blockchain: "ARC-TESTNET", AccountType: "SCA", RefID: userID, WalletSetId: "set-1"},
		{ID: "w-eth-" + userID, Address: universalAddress, Blockchain: "ETH-SEPOLIA", AccountType: "SCA", RefID: userID, WalletSetId: "set-1"},
		{ID: "w-base-" + userID, Address: universalAddress, Blockchain: "BASE-SEPOLIA", AccountType: "SCA", RefID: userID, WalletSetId: "set-1"},
	}}
}

func newTestService(custody CircleClient, store Store) *Service {
	return NewService(custody, chains.NewDefaultRegistry(), store, nil, Config{WalletSetID: "set-1"}, zap.NewNop())
}

func TestEnsureWallet_CreatesUniversalAccount(t *testing.T) {
	ctx := context.Background()
	custody := new(MockCircleClient)
	custody.On("ListWalletsByRefID", mock.Anything, "set-1", "user-1").Return(&entities.CircleWalletListResponse{}, nil).Once()
	custody.On("CreateWallets", mock.Anything, mock.MatchedBy(func(req entities.CircleWalletCreateRequest) bool {
		return req.IdempotencyKey == IdempotencyKey("user-1") &&
			assert.ObjectsAreEqual([]string{"ARC-TESTNET", "ETH-SEPOLIA", "BASE-SEPOLIA"}, req.Blockchains) &&
			req.Count == 1 && req.AccountType == "SCA" && req.WalletSetID == "set-1" &&
			len(req.Metadata) == 1 && req.Metadata[0].RefID == "user-1" && req.Metadata[0].Name == "AGENT-SCA-UNIVERSAL"
	})).Return(createdWallets("user-1"), nil).Once()

	svc := newTestService(custody, nil)

	arc, err := svc.EnsureWallet(ctx, "user-1", chains.ArcTestnet)
	require.NoError(t, err)
	base, err := svc.EnsureWallet(ctx, "user-1", chains.BaseSepolia)
	require.NoError(t, err)
	again, err := svc.EnsureWallet(ctx, "user-1", chains.ArcTestnet)
	require.NoError(t, err)

	assert.NotEqual(t, arc.WalletID, base.WalletID)
	assert.Equal(t, arc.Address, base.Address)
	assert.Equal(t, arc, again)
	assert.Equal(t, entities.AccountTypeSCA, arc.AccountType)
	custody.AssertExpectations(t)
}

func TestEnsureWallet_RestartRequeries(t *testing.T) {
	ctx := context.Background()

	first := new(MockCircleClient)
	first.On("ListWalletsByRefID", mock.Anything, "set-1", "user-2").Return(&entities.CircleWalletListResponse{}, nil)
	first.On("CreateWallets", mock.Anything, mock.Anything).Return(createdWallets("user-2"), nil)
	before, err := newTestService(first, nil).EnsureWallet(ctx, "user-2", chains.EthereumSepolia)
	require.NoError(t, err)

	second := new(MockCircleClient)
	second.On("ListWalletsByRefID", mock.Anything, "set-1", "user-2").Return(createdWallets("user-2"), nil).Once()
	after, err := newTestService(second, nil).EnsureWallet(ctx, "user-2", chains.EthereumSepolia)
	require.NoError(t, err)

	assert.Equal(t, before, after)
	second.AssertNotCalled(t, "CreateWallets", mock.Anything, mock.Anything)
}

func TestEnsureWallet_MissingUserID(t *testing.T) {
	custody := new(MockCircleClient)
	svc := newTestService(custody, nil)

	_, err := svc.EnsureWallet(context.Background(), "  ", chains.ArcTestnet)

	assert.ErrorIs(t, err, domainerrors.ErrMissingUserID)
	custody.AssertExpectations(t)
}

func TestEnsureWallet_AddressMismatchIsFatal(t *testing.T) {
	ctx := context.Background()
	resp := createdWallets("user-3")
	resp.Wallets[2].Address = "0xDEF0000000000000000000000000000000000002"

	custody := new(MockCircleClient)
	custody.On("ListWalletsByRefID", mock.Anything, "set-1", "user-3").Return(&entities.CircleWalletListResponse{}, nil)
	custody.On("CreateWallets", mock.Anything, mock.Anything).Return(resp, nil)

	svc := newTestService(custody, nil)
	_, err := svc.EnsureWallet(ctx, "user-3", chains.ArcTestnet)

	assert.ErrorIs(t, err, domainerrors.ErrAddressMismatch)
	assert.False(t, domainerrors.IsRetryable(err))
	_, cached := svc.cached("user-3", chains.ArcTestnet)
	assert.False(t, cached)
}

func TestEnsureWallet_ExistingAccountMissingChain(t *testing.T) {
	ctx := context.Background()
	resp := createdWallets("user-4")
	resp.Wallets = resp.Wallets[:1]

	custody := new(MockCircleClient)
	custody.On("ListWalletsByRefID", mock.Anything, "set-1", "user-4").Return(resp, nil)

	svc := newTestService(custody, nil)
	_, err := svc.EnsureWallet(ctx, "user-4", chains.BaseSepolia)

	assert.ErrorIs(t, err, domainerrors.ErrChainNotProvisioned)
	custody.AssertNotCalled(t, "CreateWallets", mock.Anything, mock.Anything)
}

func TestEnsureWallet_CustodyUnavailableIsRetryable(t *testing.T) {
	ctx := context.Background()
	custody := new(MockCircleClient)
	custody.On("ListWalletsByRefID", mock.Anything, "set-1", "user-5").Return(nil, errors.New("connection refused"))

	_, err := newTestService(custody, nil).EnsureWallet(ctx, "user-5", chains.ArcTestnet)

	assert.ErrorIs(t, err, domainerrors.ErrWalletProvisioning)
	assert.True(t, domainerrors.IsRetryable(err))
}

func TestEnsureWallet_UnsupportedChain(t *testing.T) {
	svc := newTestService(new(MockCircleClient), nil)

	_, err := svc.EnsureWallet(context.Background(), "user-6", chains.PolygonAmoy)
	assert.ErrorIs(t, err, domainerrors.ErrWalletChainUnsupported)

	_, err = svc.EnsureWallet(context.Background(), "user-6", "dogechain")
	assert.ErrorIs(t, err, domainerrors.ErrChainResolution)
}

func TestEnsureWallet_ConcurrentCallersCreateOnce(t *testing.T) {
	ctx := context.Background()
	custody := new(MockCircleClient)
	custody.On("ListWalletsByRefID", mock.Anything, "set-1", "user-7").Return(&entities.CircleWalletListResponse{}, nil)
	custody.On("CreateWallets", mock.Anything, mock.Anything).Return(createdWallets("user-7"), nil)

	svc := newTestService(custody, nil)

	var wg sync.WaitGroup
	addresses := make([]string, 10)
	for i := range addresses {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			chain := chains.ArcTestnet
			if i%2 == 1 {
				chain = chains.BaseSepolia
			}
			w, err := svc.EnsureWallet(ctx, "user-7", chain)
			assert.NoError(t, err)
			addresses[i] = w.Address
		}(i)
	}
	wg.Wait()

	for _, addr := range addresses {
		assert.Equal(t, universalAddress, addr)
	}
	custody.AssertNumberOfCalls(t, "CreateWallets", 1)
}

func TestEnsureWallet_StoreHitSkipsCustody(t *testing.T) {
	ctx := context.Background()
	store := &memoryStore{}
	require.NoError(t, store.PutWallets(ctx, "user-8", []entities.CustodialWallet{
		{WalletID: "w-arc", Address: universalAddress, AccountType: entities.AccountTypeSCA, ChainKey: chains.ArcTestnet},
	}))

	custody := new(MockCircleClient)
	w, err := newTestService(custody, store).EnsureWallet(ctx, "user-8", chains.ArcTestnet)

	require.NoError(t, err)
	assert.Equal(t, "w-arc", w.WalletID)
	custody.AssertExpectations(t)
}

func TestEnsureWallet_PartialStoreFallsThrough(t *testing.T) {
	ctx := context.Background()
	store := &memoryStore{}
	require.NoError(t, store.PutWallets(ctx, "user-10", []entities.CustodialWallet{
		{WalletID: "w-arc", Address: universalAddress, AccountType: entities.AccountTypeSCA, ChainKey: chains.ArcTestnet},
	}))

	custody := new(MockCircleClient)
	custody.On("ListWalletsByRefID", mock.Anything, "set-1", "user-10").Return(createdWallets("user-10"), nil).Once()

	w, err := newTestService(custody, store).EnsureWallet(ctx, "user-10", chains.BaseSepolia)

	require.NoError(t, err)
	assert.Equal(t, "w-base-user-10", w.WalletID)
	assert.Equal(t, universalAddress, w.Address)
	custody.AssertExpectations(t)
	custody.AssertNotCalled(t, "CreateWallets", mock.Anything, mock.Anything)
}

func TestEnsureWallet_CancelledCallerDoesNotFailOthers(t *testing.T) {
	started := make(chan struct{})
	unblock := make(chan struct{})
	var once sync.Once

	custody := new(MockCircleClient)
	custody.On("ListWalletsByRefID", mock.Anything, "set-1", "user-11").
		Run(func(args mock.Arguments) {
			once.Do(func() { close(started) })
			<-unblock
		}).
		Return(createdWallets("user-11"), nil)

	svc := newTestService(custody, nil)

	firstCtx, cancelFirst := context.WithCancel(context.Background())
	firstErr := make(chan error, 1)
	go func() {
		_, err := svc.EnsureWallet(firstCtx, "user-11", chains.ArcTestnet)
		firstErr <- err
	}()
	<-started

	second := make(chan entities.CustodialWallet, 1)
	secondErr := make(chan error, 1)
	go func() {
		w, err := svc.EnsureWallet(context.Background(), "user-11", chains.ArcTestnet)
		second <- w
		secondErr <- err
	}()

	cancelFirst()
	err := <-firstErr
	assert.ErrorIs(t, err, domainerrors.ErrWalletProvisioning)
	assert.ErrorIs(t, err, context.Canceled)

	close(unblock)
	require.NoError(t, <-secondErr)
	assert.Equal(t, "w-arc-user-11", (<-second).WalletID)
	custody.AssertNotCalled(t, "CreateWallets", mock.Anything, mock.Anything)
}

func TestEnsureWallet_WritesStore(t *testing.T) {
	ctx := context.Background()
	store := &memoryStore{}
	custody := new(MockCircleClient)
	custody.On("ListWalletsByRefID", mock.Anything, "set-1", "user-9").Return(createdWallets("user-9"), nil)

	_, err := newTestService(custody, store).EnsureWallet(ctx, "user-9", chains.ArcTestnet)
	require.NoError(t, err)

	stored, _ := store.GetWallets(ctx, "user-9")
	assert.Len(t, stored, 3)
}

func TestEnsureWalletSet(t *testing.T) {
	ctx := context.Background()

	t.Run("prefers the named developer set", func(t *testing.T) {
		custody := new(MockCircleClient)
		custody.On("ListWalletSets", ctx).Return(&entities.CircleWalletSetListResponse{WalletSets: []entities.CircleWalletSetData{
			{ID: "set-user", CustodyType: "ENDUSER", Name: "ArcHub-Autonomous-v3"},
			{ID: "set-other", CustodyType: "DEVELOPER", Name: "legacy"},
			{ID: "set-named", CustodyType: "DEVELOPER", Name: "ArcHub-Autonomous-v3"},
		}}, nil).Once()

		svc := NewService(custody, chains.NewDefaultRegistry(), nil, nil, Config{}, zap.NewNop())
		id, err := svc.ensureWalletSet(ctx)
		require.NoError(t, err)
		assert.Equal(t, "set-named", id)

		id, err = svc.ensureWalletSet(ctx)
		require.NoError(t, err)
		assert.Equal(t, "set-named", id)
		custody.AssertExpectations(t)
	})

	t.Run("creates when none exist", func(t *testing.T) {
		custody := new(MockCircleClient)
		custody.On("ListWalletSets", ctx).Return(&entities.CircleWalletSetListResponse{}, nil)
		custody.On("CreateWalletSet", ctx, "ArcHub-Autonomous-v3", mock.AnythingOfType("string")).
			Return(&entities.CircleWalletSetResponse{WalletSet: entities.CircleWalletSetData{ID: "set-new"}}, nil)

		svc := NewService(custody, chains.NewDefaultRegistry(), nil, nil, Config{}, zap.NewNop())
		id, err := svc.ensureWalletSet(ctx)
		require.NoError(t, err)
		assert.Equal(t, "set-new", id)
	})
}

func TestIdempotencyKeyIsDeterministic(t *testing.T) {
	assert.Equal(t, IdempotencyKey("user-1"), IdempotencyKey("user-1"))
	assert.NotEqual(t, IdempotencyKey("user-1"), IdempotencyKey("user-2"))
}
