package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/rail-service/hub_bridge/internal/domain/entities"
	"github.com/rail-service/hub_bridge/internal/domain/services/bridge"
)

var errAwaitNotBool = errors.New("await must be a boolean")

// BridgeService is the saga surface the API drives.
type BridgeService interface {
	Bridge(ctx context.Context, req entities.BridgeRequest, awaitCompletion bool) (*bridge.SagaReport, error)
	Resume(ctx context.Context, sagaID string, awaitCompletion bool) (*bridge.SagaReport, error)
	GetSaga(ctx context.Context, sagaID string) (*entities.BridgeSaga, error)
	ListSagas(ctx context.Context, userID string, limit int) ([]*entities.BridgeSaga, error)
}

// BridgeHandlers serves the bridge saga endpoints
type BridgeHandlers struct {
	service BridgeService
	logger  *zap.Logger
}

// NewBridgeHandlers creates new bridge handlers
func NewBridgeHandlers(service BridgeService, logger *zap.Logger) *BridgeHandlers {
	return &BridgeHandlers{service: service, logger: logger}
}

// CreateBridge handles POST /api/v1/bridge.
// The body uses any of the accepted field aliases plus an optional "await" flag.
// @Summary Start a bridge saga
// @Description Burns on the source chain and mints on the destination. Returns 202 with the burn recorded unless await is true.
// @Tags bridge
// @Accept json
// @Produce json
// @Param request body object true "amount, destination chain, optional source chain, recipient and await"
// @Param await query bool false "Block until the saga reaches a terminal outcome"
// @Success 200 {object} bridge.SagaReport
// @Success 202 {object} bridge.SagaReport
// @Failure 400 {object} entities.ErrorResponse
// @Failure 401 {object} entities.ErrorResponse
// @Failure 503 {object} entities.ErrorResponse
// @Security BearerAuth
// @Router /api/v1/bridge [post]
func (h *BridgeHandlers) CreateBridge(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		respondError(c, http.StatusUnauthorized, ErrCodeUnauthorized, MsgUnauthorized, nil)
		return
	}

	body := map[string]interface{}{}
	decoder := json.NewDecoder(c.Request.Body)
	decoder.UseNumber()
	if err := decoder.Decode(&body); err != nil {
		respondError(c, http.StatusBadRequest, ErrCodeInvalidRequest, MsgInvalidRequest, map[string]interface{}{"error": err.Error()})
		return
	}

	await, err := awaitFlag(body["await"], parseBoolParam(c, "await", false))
	if err != nil {
		respondError(c, http.StatusBadRequest, ErrCodeInvalidRequest, err.Error(), map[string]interface{}{"field": "await"})
		return
	}

	req, err := bridge.MapAliases(userID, body)
	if err != nil {
		respondDomainError(c, h.logger, err)
		return
	}

	report, err := h.service.Bridge(c.Request.Context(), req, await)
	if err != nil {
		respondDomainError(c, h.logger, err)
		return
	}

	h.respondReport(c, report, await)
}

// GetBridge handles GET /api/v1/bridge/:id
// @Summary Get a bridge saga
// @Tags bridge
// @Produce json
// @Param id path string true "Saga ID"
// @Success 200 {object} entities.BridgeSaga
// @Failure 404 {object} entities.ErrorResponse
// @Security BearerAuth
// @Router /api/v1/bridge/{id} [get]
func (h *BridgeHandlers) GetBridge(c *gin.Context) {
	saga, ok := h.ownedSaga(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, saga)
}

// ListBridges handles GET /api/v1/bridge
// @Summary List the caller's bridge sagas
// @Tags bridge
// @Produce json
// @Param limit query int false "Maximum number of sagas" default(20)
// @Success 200 {object} map[string]interface{}
// @Failure 401 {object} entities.ErrorResponse
// @Security BearerAuth
// @Router /api/v1/bridge [get]
func (h *BridgeHandlers) ListBridges(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		respondError(c, http.StatusUnauthorized, ErrCodeUnauthorized, MsgUnauthorized, nil)
		return
	}

	sagas, err := h.service.ListSagas(c.Request.Context(), userID, parseIntParam(c, "limit", 20))
	if err != nil {
		respondDomainError(c, h.logger, err)
		return
	}

	summaries := make([]entities.BridgeSagaSummary, 0, len(sagas))
	for _, s := range sagas {
		summaries = append(summaries, s.Summary())
	}
	c.JSON(http.StatusOK, gin.H{"sagas": summaries, "count": len(summaries)})
}

// ResumeBridge handles POST /api/v1/bridge/:id/resume
// @Summary Resume a failed or stalled saga
// @Description Continues from the recorded stage. Amount and recipient come from the record.
// @Tags bridge
// @Produce json
// @Param id path string true "Saga ID"
// @Param await query bool false "Block until the saga reaches a terminal outcome"
// @Success 200 {object} bridge.SagaReport
// @Success 202 {object} bridge.SagaReport
// @Failure 404 {object} entities.ErrorResponse
// @Failure 409 {object} entities.ErrorResponse
// @Security BearerAuth
// @Router /api/v1/bridge/{id}/resume [post]
func (h *BridgeHandlers) ResumeBridge(c *gin.Context) {
	saga, ok := h.ownedSaga(c)
	if !ok {
		return
	}

	await := parseBoolParam(c, "await", false)
	report, err := h.service.Resume(c.Request.Context(), saga.ID, await)
	if err != nil {
		respondDomainError(c, h.logger, err)
		return
	}

	h.respondReport(c, report, await)
}

// ownedSaga loads the saga in the path and hides sagas of other users behind a 404.
func (h *BridgeHandlers) ownedSaga(c *gin.Context) (*entities.BridgeSaga, bool) {
	userID, ok := getUserID(c)
	if !ok {
		respondError(c, http.StatusUnauthorized, ErrCodeUnauthorized, MsgUnauthorized, nil)
		return nil, false
	}

	saga, err := h.service.GetSaga(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondDomainError(c, h.logger, err)
		return nil, false
	}
	if saga.UserID != userID {
		respondError(c, http.StatusNotFound, "SAGA_NOT_FOUND", MsgSagaNotFound, nil)
		return nil, false
	}
	return saga, true
}

func (h *BridgeHandlers) respondReport(c *gin.Context, report *bridge.SagaReport, await bool) {
	status := http.StatusOK
	if !await && report.Saga.Outcome == entities.OutcomePending {
		status = http.StatusAccepted
	}
	if report.Err != nil {
		h.logger.Info("Bridge saga did not complete",
			zap.String("sagaId", report.Saga.ID),
			zap.String("failureCode", report.Saga.FailureCode),
			zap.Bool("inFlight", report.InFlight))
	}
	c.JSON(status, report)
}

func awaitFlag(raw interface{}, fallback bool) (bool, error) {
	switch v := raw.(type) {
	case nil:
		return fallback, nil
	case bool:
		return v, nil
	case string:
		if b, err := strconv.ParseBool(strings.TrimSpace(v)); err == nil {
			return b, nil
		}
	}
	return false, errAwaitNotBool
}
