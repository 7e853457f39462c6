// Package api provides the HTTP and WebSocket server for the tradegate
// platform, exposing trading, account, strategy, and backtest endpoints.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"tradegate/internal/backtest"
	"tradegate/internal/broker"
	"tradegate/internal/domain"
	"tradegate/internal/engine"
	"tradegate/internal/store"
	"tradegate/internal/strategy"
	"tradegate/internal/stream"
)

const timeLayout = time.RFC3339

// dateLayout is the wire format for backtest date ranges.
const dateLayout = "2006-01-02"

// Server hosts the HTTP API and WebSocket endpoints.
type Server struct {
	engine     *engine.Engine
	backtests  *backtest.Runner
	strategies *strategy.Runner
	registry   *strategy.Registry
	runs       store.RunStore // optional; nil disables run history
	orderHub   *stream.Hub
	bookHub    *stream.Hub
	log        *slog.Logger
}

// NewServer creates a Server wired with the given dependencies. Either hub
// may be nil to disable its WebSocket endpoint.
func NewServer(
	eng *engine.Engine,
	backtests *backtest.Runner,
	strategies *strategy.Runner,
	registry *strategy.Registry,
	runs store.RunStore,
	orderHub, bookHub *stream.Hub,
	log *slog.Logger,
) *Server {
	if log == nil {
		log = slog.Default()
	}
	return &Server{
		engine:     eng,
		backtests:  backtests,
		strategies: strategies,
		registry:   registry,
		runs:       runs,
		orderHub:   orderHub,
		bookHub:    bookHub,
		log:        log.With("component", "api"),
	}
}

// RegisterRoutes registers all API routes on the given mux.
func (s *Server) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/v1/health", s.handleHealth)

	mux.HandleFunc("POST /api/v1/trade/order", s.handleSubmitOrder)
	mux.HandleFunc("GET /api/v1/trade/order/{id}", s.handleGetOrder)
	mux.HandleFunc("DELETE /api/v1/trade/order/{id}", s.handleCancelOrder)

	mux.HandleFunc("GET /api/v1/account/balance", s.handleBalance)
	mux.HandleFunc("POST /api/v1/account/history", s.handleAccountHistory)
	mux.HandleFunc("POST /api/v1/account/orders", s.handleAccountOrders)

	mux.HandleFunc("POST /api/v1/market/positions", s.handlePositions)
	mux.HandleFunc("GET /api/v1/market/orderbook/{symbol}", s.handleOrderBook)

	mux.HandleFunc("GET /api/v1/strategy/list", s.handleStrategyList)
	mux.HandleFunc("POST /api/v1/strategy/run", s.handleStrategyRun)

	mux.HandleFunc("POST /api/v1/backtest", s.handleBacktest)
	mux.HandleFunc("GET /api/v1/backtest/runs", s.handleBacktestRuns)

	if s.orderHub != nil {
		mux.HandleFunc("GET /ws/orders", s.orderHub.ServeWS)
	}
	if s.bookHub != nil {
		mux.HandleFunc("GET /ws/orderbook", s.bookHub.ServeWS)
	}
}

// Handler returns an http.Handler with CORS middleware.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	s.RegisterRoutes(mux)
	return corsMiddleware(mux)
}

// ListenAndServe starts the HTTP listener on addr and blocks until ctx is
// cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info("http server listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}

// ---------------------------------------------------------------------------
// Handlers
// ---------------------------------------------------------------------------

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, map[string]string{"status": "ok"})
}

func (s *Server) handleSubmitOrder(w http.ResponseWriter, r *http.Request) {
	var req orderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.Symbol == "" || req.Qty <= 0 {
		writeError(w, http.StatusBadRequest, "symbol and positive qty are required")
		return
	}
	side := domain.OrderSide(req.Side)
	if side != domain.OrderSideBuy && side != domain.OrderSideSell {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid side %q", req.Side))
		return
	}
	orderType := domain.OrderType(req.Type)
	if orderType == "" {
		orderType = domain.OrderTypeMarket
	}
	if orderType != domain.OrderTypeMarket && orderType != domain.OrderTypeLimit {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid type %q", req.Type))
		return
	}

	order, err := s.engine.SubmitOrder(r.Context(), &domain.Order{
		Symbol:     req.Symbol,
		Side:       side,
		Type:       orderType,
		Qty:        req.Qty,
		LimitPrice: req.LimitPrice,
	})
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, orderResponse{Order: toOrderDTO(order)})
}

func (s *Server) handleGetOrder(w http.ResponseWriter, r *http.Request) {
	order, err := s.engine.GetOrder(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, orderResponse{Order: toOrderDTO(order)})
}

func (s *Server) handleCancelOrder(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := s.engine.CancelOrder(r.Context(), id); err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, map[string]string{"status": "cancelled", "id": id})
}

func (s *Server) handleBalance(w http.ResponseWriter, r *http.Request) {
	account, err := s.engine.GetAccount(r.Context())
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, account)
}

func (s *Server) handleAccountHistory(w http.ResponseWriter, r *http.Request) {
	activities, err := s.engine.GetActivities(r.Context())
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, map[string]any{"activities": activities})
}

func (s *Server) handleAccountOrders(w http.ResponseWriter, r *http.Request) {
	var req ordersRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	orders, err := s.engine.ListOrders(r.Context(), req.Status, req.Limit)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	dtos := make([]orderDTO, 0, len(orders))
	for i := range orders {
		dtos = append(dtos, toOrderDTO(&orders[i]))
	}
	writeJSON(w, map[string]any{"orders": dtos})
}

func (s *Server) handlePositions(w http.ResponseWriter, r *http.Request) {
	var req positionsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	positions, err := s.engine.GetPositions(r.Context(), broker.PositionFilter{
		Market:     domain.Market(req.Market),
		PLRatioMin: req.PLRatioMin,
		PLRatioMax: req.PLRatioMax,
	})
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, map[string]any{"positions": positions})
}

func (s *Server) handleOrderBook(w http.ResponseWriter, r *http.Request) {
	book, err := s.engine.GetOrderBook(r.Context(), r.PathValue("symbol"))
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, book)
}

func (s *Server) handleStrategyList(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, map[string]any{"strategies": s.registry.List()})
}

func (s *Server) handleStrategyRun(w http.ResponseWriter, r *http.Request) {
	var req strategyRunRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.StrategyID == "" || req.Symbol == "" {
		writeError(w, http.StatusBadRequest, "strategy_id and symbol are required")
		return
	}

	runReq := strategy.RunRequest{
		StrategyID:     req.StrategyID,
		Symbol:         req.Symbol,
		Parameters:     req.Parameters,
		Qty:            req.Qty,
		IsBacktest:     req.IsBacktest,
		InitialCapital: req.InitialCapital,
	}
	if req.IsBacktest {
		var err error
		runReq.Start, runReq.End, err = parseDateRange(req.StartDate, req.EndDate)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
	}

	result, err := s.strategies.Run(r.Context(), runReq)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, result)
}

func (s *Server) handleBacktest(w http.ResponseWriter, r *http.Request) {
	var req backtestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.StrategyID == "" || req.Symbol == "" {
		writeError(w, http.StatusBadRequest, "strategy_id and symbol are required")
		return
	}
	start, end, err := parseDateRange(req.StartDate, req.EndDate)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	result, err := s.backtests.Run(r.Context(), backtest.Request{
		StrategyID:     req.StrategyID,
		Symbol:         req.Symbol,
		Start:          start,
		End:            end,
		InitialCapital: req.InitialCapital,
		Parameters:     req.Parameters,
	})
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, result)
}

func (s *Server) handleBacktestRuns(w http.ResponseWriter, r *http.Request) {
	if s.runs == nil {
		writeError(w, http.StatusNotFound, "run history is not enabled")
		return
	}
	runs, err := s.runs.ListRuns(r.Context(), 0)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, map[string]any{"runs": runs})
}

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

func parseDateRange(startDate, endDate string) (time.Time, time.Time, error) {
	start, err := time.Parse(dateLayout, startDate)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("invalid start_date %q (want YYYY-MM-DD)", startDate)
	}
	end, err := time.Parse(dateLayout, endDate)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("invalid end_date %q (want YYYY-MM-DD)", endDate)
	}
	if end.Before(start) {
		return time.Time{}, time.Time{}, fmt.Errorf("end_date %s precedes start_date %s", endDate, startDate)
	}
	return start, end, nil
}

// writeDomainError maps domain sentinel errors onto HTTP statuses.
func (s *Server) writeDomainError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, backtest.ErrInvalidConfig):
		status = http.StatusBadRequest
	case errors.Is(err, backtest.ErrUnknownStrategy):
		status = http.StatusNotFound
	case errors.Is(err, broker.ErrOrderNotFound):
		status = http.StatusNotFound
	case errors.Is(err, backtest.ErrStrategyUnimplemented):
		status = http.StatusNotImplemented
	case errors.Is(err, backtest.ErrDataUnavailable):
		status = http.StatusBadGateway
	case errors.Is(err, backtest.ErrInsufficientData):
		status = http.StatusUnprocessableEntity
	case errors.Is(err, backtest.ErrInvalidPrice):
		status = http.StatusUnprocessableEntity
	}
	if status == http.StatusInternalServerError {
		s.log.Error("request failed", "error", err)
	}
	writeError(w, status, err.Error())
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("encoding JSON response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
