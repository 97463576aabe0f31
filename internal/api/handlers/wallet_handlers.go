package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/rail-service/hub_bridge/internal/domain/entities"
	domainerrors "github.com/rail-service/hub_bridge/internal/domain/errors"
)

// WalletProvisioner returns the caller's custodial wallet on a chain, creating it on first use.
type WalletProvisioner interface {
	EnsureWallet(ctx context.Context, userID, chainKey string) (entities.CustodialWallet, error)
}

// BalanceReader reads human-decimal balances.
type BalanceReader interface {
	Balances(ctx context.Context, chainKey, address string) (*entities.WalletBalanceResponse, error)
}

// ChainDirectory resolves free-form chain names.
type ChainDirectory interface {
	Resolve(input string) (entities.ChainConfig, error)
	All() []entities.ChainConfig
}

// WalletHandlers serves wallet and chain read endpoints
type WalletHandlers struct {
	wallets   WalletProvisioner
	balances  BalanceReader
	chains    ChainDirectory
	custodial map[string]bool
	logger    *zap.Logger
}

// NewWalletHandlers creates wallet handlers. custodialChains lists the chains wallets are provisioned on.
func NewWalletHandlers(wallets WalletProvisioner, balances BalanceReader, chains ChainDirectory, custodialChains []string, logger *zap.Logger) *WalletHandlers {
	custodial := make(map[string]bool, len(custodialChains))
	for _, k := range custodialChains {
		custodial[k] = true
	}
	return &WalletHandlers{
		wallets:   wallets,
		balances:  balances,
		chains:    chains,
		custodial: custodial,
		logger:    logger,
	}
}

// GetWallet handles GET /api/v1/wallets/:chain
// @Summary Get the caller's custodial wallet
// @Tags wallets
// @Produce json
// @Param chain path string true "Chain key or alias"
// @Success 200 {object} entities.WalletResponse
// @Failure 400 {object} entities.ErrorResponse
// @Failure 503 {object} entities.ErrorResponse
// @Security BearerAuth
// @Router /api/v1/wallets/{chain} [get]
func (h *WalletHandlers) GetWallet(c *gin.Context) {
	wallet, ok := h.callerWallet(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, wallet.ToResponse())
}

// GetBalance handles GET /api/v1/wallets/:chain/balance
// @Summary Get token and native balances of the caller's wallet
// @Tags wallets
// @Produce json
// @Param chain path string true "Chain key or alias"
// @Success 200 {object} entities.WalletBalanceResponse
// @Failure 400 {object} entities.ErrorResponse
// @Failure 503 {object} entities.ErrorResponse
// @Security BearerAuth
// @Router /api/v1/wallets/{chain}/balance [get]
func (h *WalletHandlers) GetBalance(c *gin.Context) {
	wallet, ok := h.callerWallet(c)
	if !ok {
		return
	}

	balances, err := h.balances.Balances(c.Request.Context(), wallet.ChainKey, wallet.Address)
	if err != nil {
		respondDomainError(c, h.logger, domainerrors.ServiceUnavailableError("chain rpc", err))
		return
	}
	c.JSON(http.StatusOK, balances)
}

// ListChains handles GET /api/v1/chains
// @Summary List supported chains
// @Tags chains
// @Produce json
// @Success 200 {object} map[string][]entities.ChainSummary
// @Security BearerAuth
// @Router /api/v1/chains [get]
func (h *WalletHandlers) ListChains(c *gin.Context) {
	all := h.chains.All()
	out := make([]entities.ChainSummary, 0, len(all))
	for _, chain := range all {
		out = append(out, entities.ChainSummary{
			Key:           chain.Key,
			DisplayName:   chain.DisplayName,
			DomainID:      chain.DomainID,
			ExplorerTxURL: chain.ExplorerTxURL,
			IsHub:         chain.IsHub,
			Custodial:     h.custodial[chain.Key],
		})
	}
	c.JSON(http.StatusOK, gin.H{"chains": out})
}

func (h *WalletHandlers) callerWallet(c *gin.Context) (entities.CustodialWallet, bool) {
	userID, ok := getUserID(c)
	if !ok {
		respondError(c, http.StatusUnauthorized, ErrCodeUnauthorized, MsgUnauthorized, nil)
		return entities.CustodialWallet{}, false
	}

	chain, err := h.chains.Resolve(c.Param("chain"))
	if err != nil {
		respondDomainError(c, h.logger, err)
		return entities.CustodialWallet{}, false
	}

	wallet, err := h.wallets.EnsureWallet(c.Request.Context(), userID, chain.Key)
	if err != nil {
		respondDomainError(c, h.logger, err)
		return entities.CustodialWallet{}, false
	}
	return wallet, true
}
