package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"github.com/gorilla/mux"

	"github.com/wonny/quantgem/backend/internal/contracts"
	"github.com/wonny/quantgem/backend/internal/query"
	"github.com/wonny/quantgem/backend/internal/returns"
	"github.com/wonny/quantgem/backend/pkg/logger"
)

// QueryService is what the returns endpoints read from
type QueryService interface {
	Rankings(ctx context.Context, req query.RankingsRequest) (*query.RankingsResult, error)
	Statistics(ctx context.Context, req query.StatisticsRequest) (*contracts.MarketSnapshot, error)
	History(ctx context.Context, req query.HistoryRequest) ([]contracts.ReturnRecord, error)
	Heatmap(ctx context.Context, req query.HeatmapRequest) (*query.HeatmapResult, error)
	Explain(ctx context.Context, symbol string, h contracts.Horizon, date *time.Time) (*query.ExplainResult, error)
}

// Recomputer runs the returns batch
type Recomputer interface {
	Run(ctx context.Context, symbols []string) (*returns.RunResult, error)
}

// ReturnsHandler handles /api/returns endpoints
// ⭐ SSOT: 수익률 API 핸들러는 이 구조체에서만
type ReturnsHandler struct {
	svc     QueryService
	runner  Recomputer
	baseCtx context.Context
	running atomic.Bool // 동시 재계산 1개만
	logger  *logger.Logger
}

// NewReturnsHandler creates a returns handler. baseCtx bounds background
// recomputes (cancelled on shutdown). runner may be nil to disable POST.
func NewReturnsHandler(baseCtx context.Context, svc QueryService, runner Recomputer, log *logger.Logger) *ReturnsHandler {
	return &ReturnsHandler{
		svc:     svc,
		runner:  runner,
		baseCtx: baseCtx,
		logger:  log.WithField("module", "api.returns"),
	}
}

var errInvalidParam = errors.New("invalid parameter")

// GetRankings returns ranked returns
// GET /api/returns/rankings?period=&market=&returnRange=&volumeThreshold=&limit=&offset=&date=
func (h *ReturnsHandler) GetRankings(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	req := query.RankingsRequest{}
	var err error
	if req.Horizon, err = contracts.ParseHorizon(q.Get("period")); err != nil {
		h.badRequest(w, err)
		return
	}
	if req.Market, err = contracts.ParseMarket(q.Get("market")); err != nil {
		h.badRequest(w, err)
		return
	}
	if req.Range, err = contracts.ParseReturnRange(q.Get("returnRange")); err != nil {
		h.badRequest(w, err)
		return
	}
	if req.VolumeThreshold, err = intParam(q.Get("volumeThreshold"), 0, "volumeThreshold"); err != nil {
		h.badRequest(w, err)
		return
	}
	limit, err := intParam(q.Get("limit"), query.DefaultRankingsLimit, "limit")
	if err != nil {
		h.badRequest(w, err)
		return
	}
	offset, err := intParam(q.Get("offset"), 0, "offset")
	if err != nil {
		h.badRequest(w, err)
		return
	}
	req.Limit, req.Offset = int(limit), int(offset)
	if req.Date, err = dateParam(q.Get("date"), "date"); err != nil {
		h.badRequest(w, err)
		return
	}

	res, err := h.svc.Rankings(r.Context(), req)
	if err != nil {
		h.internalError(w, err, "Failed to get rankings")
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"success":  true,
		"data":     res.Results,
		"period":   res.Period,
		"total":    res.Total,
		"asOfDate": res.AsOfDate,
	})
}

// GetStatistics returns the market snapshot
// GET /api/returns/statistics?period=&date=&market=
func (h *ReturnsHandler) GetStatistics(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	horizon, err := contracts.ParseHorizon(q.Get("period"))
	if err != nil {
		h.badRequest(w, err)
		return
	}
	market, err := contracts.ParseMarket(q.Get("market"))
	if err != nil {
		h.badRequest(w, err)
		return
	}
	date, err := dateParam(q.Get("date"), "date")
	if err != nil {
		h.badRequest(w, err)
		return
	}

	snap, err := h.svc.Statistics(r.Context(), query.StatisticsRequest{Horizon: horizon, Market: market, Date: date})
	if err != nil {
		h.internalError(w, err, "Failed to get statistics")
		return
	}

	var requested interface{}
	if date != nil {
		requested = date.Format("2006-01-02")
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"success":  true,
		"data":     snap,
		"period":   horizon,
		"date":     requested,
		"asOfDate": snap.AsOfDate,
	})
}

// GetHistory returns a symbol's return history
// GET /api/returns/{symbol}/history?startDate=&endDate=&limit=
func (h *ReturnsHandler) GetHistory(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	symbol := strings.TrimSpace(mux.Vars(r)["symbol"])

	start, err := dateParam(q.Get("startDate"), "startDate")
	if err != nil {
		h.badRequest(w, err)
		return
	}
	end, err := dateParam(q.Get("endDate"), "endDate")
	if err != nil {
		h.badRequest(w, err)
		return
	}
	limit, err := intParam(q.Get("limit"), query.DefaultHistoryLimit, "limit")
	if err != nil {
		h.badRequest(w, err)
		return
	}

	recs, err := h.svc.History(r.Context(), query.HistoryRequest{Symbol: symbol, Start: start, End: end, Limit: int(limit)})
	if err != nil {
		if isInvalidInput(err) {
			h.badRequest(w, err)
			return
		}
		h.internalError(w, err, "Failed to get return history")
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"data":    recs,
	})
}

// GetHeatmap returns per-symbol returns for the heatmap
// GET /api/returns/heatmap?period=&market=&limit=&date=
func (h *ReturnsHandler) GetHeatmap(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	horizon, err := contracts.ParseHorizon(q.Get("period"))
	if err != nil {
		h.badRequest(w, err)
		return
	}
	market, err := contracts.ParseMarket(q.Get("market"))
	if err != nil {
		h.badRequest(w, err)
		return
	}
	limit, err := intParam(q.Get("limit"), query.DefaultHeatmapLimit, "limit")
	if err != nil {
		h.badRequest(w, err)
		return
	}
	date, err := dateParam(q.Get("date"), "date")
	if err != nil {
		h.badRequest(w, err)
		return
	}

	res, err := h.svc.Heatmap(r.Context(), query.HeatmapRequest{Horizon: horizon, Market: market, Limit: int(limit), Date: date})
	if err != nil {
		h.internalError(w, err, "Failed to get heatmap")
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"success":  true,
		"data":     res.Cells,
		"period":   res.Period,
		"asOfDate": res.AsOfDate,
	})
}

// ExplainReturn shows the stored record behind one symbol's return
// GET /api/returns/debug/return?symbol=&period=&date=
func (h *ReturnsHandler) ExplainReturn(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	symbol := strings.TrimSpace(q.Get("symbol"))
	if symbol == "" {
		h.badRequest(w, contracts.ErrInvalidSymbol)
		return
	}
	horizon, err := contracts.ParseHorizon(q.Get("period"))
	if err != nil {
		h.badRequest(w, err)
		return
	}
	date, err := dateParam(q.Get("date"), "date")
	if err != nil {
		h.badRequest(w, err)
		return
	}

	res, err := h.svc.Explain(r.Context(), symbol, horizon, date)
	if err != nil {
		h.internalError(w, err, "Failed to explain return")
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"data":    res,
	})
}

// CalculateRequest is the optional body of POST /api/returns/calculate
type CalculateRequest struct {
	Symbol string `json:"symbol"`
}

// Calculate starts a background recompute (all symbols or one)
// POST /api/returns/calculate
func (h *ReturnsHandler) Calculate(w http.ResponseWriter, r *http.Request) {
	if h.runner == nil {
		respondError(w, http.StatusServiceUnavailable, "Recompute is not enabled")
		return
	}

	var req CalculateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if !h.running.CompareAndSwap(false, true) {
		respondError(w, http.StatusConflict, "Recompute already in progress")
		return
	}

	var symbols []string
	if s := strings.TrimSpace(req.Symbol); s != "" {
		symbols = []string{s}
	}

	go func() {
		defer h.running.Store(false)

		if _, err := h.runner.Run(h.baseCtx, symbols); err != nil {
			h.logger.WithError(err).Error("Background recompute failed")
		}
	}()

	h.logger.WithField("symbol", req.Symbol).Info("Recompute triggered")

	respondJSON(w, http.StatusAccepted, map[string]interface{}{
		"success": true,
		"message": "Recompute started",
		"data":    req,
	})
}

// --- helpers ---

func (h *ReturnsHandler) badRequest(w http.ResponseWriter, err error) {
	respondError(w, http.StatusBadRequest, err.Error())
}

func (h *ReturnsHandler) internalError(w http.ResponseWriter, err error, message string) {
	h.logger.WithError(err).Error(message)
	respondError(w, http.StatusInternalServerError, message)
}

func isInvalidInput(err error) bool {
	return errors.Is(err, contracts.ErrInvalidHorizon) ||
		errors.Is(err, contracts.ErrInvalidMarket) ||
		errors.Is(err, contracts.ErrInvalidRange) ||
		errors.Is(err, contracts.ErrInvalidDate) ||
		errors.Is(err, contracts.ErrInvalidSymbol) ||
		errors.Is(err, errInvalidParam)
}
