package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/parceldeck/broker/internal/addressbook"
	"github.com/parceldeck/broker/internal/order"
	"github.com/parceldeck/broker/internal/storage"
	"github.com/parceldeck/broker/pkg/carrier"
	"go.uber.org/zap"
)

// businessIDHeader carries the caller's business identity. Required for order
// operations; optional on quotes, where it enables wallet-affordability
// filtering.
const businessIDHeader = "X-Business-ID"

func (s *Server) handleGetQuotes(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	ctx := r.Context()

	var dto QuoteRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}
	if err := s.validate.Struct(&dto); err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var balance *carrier.Money
	if businessID := r.Header.Get(businessIDHeader); businessID != "" {
		amount, err := s.wallets.Balance(ctx, businessID)
		if err == nil {
			balance = &carrier.Money{Amount: amount}
		} else if !errors.Is(err, storage.ErrNotFound) {
			s.logger.Ctx(ctx).Warn("balance lookup failed, skipping affordability filter",
				zap.String("business_id", businessID),
				zap.Error(err),
			)
		}
	}

	quotes, err := s.aggregator.GetQuotes(ctx, dto.toRequest(), balance)
	if err != nil {
		s.logger.Ctx(ctx).Error("quote aggregation failed", zap.Error(err))
		s.writeError(w, http.StatusInternalServerError, "quote aggregation failed")
		s.record("get_quotes", "all", "error", start)
		return
	}

	s.writeJSON(w, http.StatusOK, QuoteResponseDTO{Quotes: quotes})
	s.record("get_quotes", "all", "ok", start)
}

func (s *Server) handleCreateOrder(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	ctx := r.Context()

	businessID := r.Header.Get(businessIDHeader)
	if businessID == "" {
		s.writeError(w, http.StatusUnauthorized, "missing "+businessIDHeader+" header")
		return
	}

	var dto CreateOrderDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}
	if err := s.validate.Struct(&dto); err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	result, err := s.orchestrator.CreateOrder(ctx, order.CreateInput{
		CarrierKey: carrier.Key(dto.Carrier),
		Request:    dto.Request.toRequest(),
		BusinessID: businessID,
	})
	if err != nil {
		s.writeOrderError(w, r, err)
		s.record("create_order", dto.Carrier, "error", start)
		return
	}

	s.writeJSON(w, http.StatusCreated, resultToDTO(result))
	s.record("create_order", dto.Carrier, "ok", start)
}

func (s *Server) handleGetOrder(w http.ResponseWriter, r *http.Request) {
	record, err := s.orders.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			s.writeError(w, http.StatusNotFound, "order not found")
			return
		}
		s.writeError(w, http.StatusInternalServerError, "fetching order failed")
		return
	}
	s.writeJSON(w, http.StatusOK, orderToDTO(record))
}

func (s *Server) handleSyncOrder(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	record, err := s.orchestrator.SyncStatus(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeOrderError(w, r, err)
		s.record("sync_order", "", "error", start)
		return
	}
	s.writeJSON(w, http.StatusOK, orderToDTO(record))
	s.record("sync_order", record.CarrierKey, "ok", start)
}

func (s *Server) handleCancelOrder(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	var dto CancelOrderDTO
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
			s.writeError(w, http.StatusBadRequest, "invalid JSON: "+err.Error())
			return
		}
	}

	record, err := s.orchestrator.Cancel(r.Context(), chi.URLParam(r, "id"), dto.Reason)
	if err != nil {
		s.writeOrderError(w, r, err)
		s.record("cancel_order", "", "error", start)
		return
	}
	s.writeJSON(w, http.StatusOK, orderToDTO(record))
	s.record("cancel_order", record.CarrierKey, "ok", start)
}

// writeOrderError maps orchestrator and storage failures onto HTTP statuses.
func (s *Server) writeOrderError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, order.ErrInvalidProvider):
		s.writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, order.ErrInsufficientBalance):
		s.writeError(w, http.StatusPaymentRequired, err.Error())
	case errors.Is(err, storage.ErrNotFound), errors.Is(err, carrier.ErrOrderNotFound),
		errors.Is(err, addressbook.ErrNotFound):
		s.writeError(w, http.StatusNotFound, "order not found")
	case errors.Is(err, carrier.ErrCancellationNotAllowed):
		s.writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, order.ErrProviderRejected):
		s.writeError(w, http.StatusBadGateway, err.Error())
	default:
		s.logger.Ctx(r.Context()).Error("order operation failed", zap.Error(err))
		s.writeError(w, http.StatusInternalServerError, err.Error())
	}
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func (s *Server) writeError(w http.ResponseWriter, status int, msg string) {
	s.writeJSON(w, status, errorResponse{Error: msg})
}

func (s *Server) record(operation, carrierKey, status string, start time.Time) {
	if s.metrics == nil {
		return
	}
	s.metrics.RecordRequest(operation, carrierKey, status, time.Since(start).Seconds())
}
