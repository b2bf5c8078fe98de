package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"airwave/internal/config"
	"airwave/internal/database"
	"airwave/internal/metrics"
	"airwave/internal/models"
	"airwave/internal/service"

	"github.com/rs/zerolog"
)

// HTTPServer exposes the storefront and back-office API.
type HTTPServer struct {
	cfg       config.APIConfig
	bookings  *service.BookingService
	catalog   *service.CatalogService
	inventory *service.InventoryService
	server    *http.Server
	auth      *HTTPAuth
	logger    *zerolog.Logger
}

func NewHTTPServer(cfg config.APIConfig, bookings *service.BookingService, catalog *service.CatalogService, inventory *service.InventoryService, logger *zerolog.Logger) *HTTPServer {
	mux := http.NewServeMux()
	srv := &HTTPServer{
		cfg:       cfg,
		bookings:  bookings,
		catalog:   catalog,
		inventory: inventory,
		logger:    logger,
	}
	srv.auth = NewHTTPAuth(cfg)

	mux.HandleFunc("/api/v1/availability", srv.handleAvailability)
	mux.HandleFunc("/api/v1/bookings", srv.handleBookings)
	mux.HandleFunc("/api/v1/bookings/", srv.handleBookingByID)
	mux.HandleFunc("/api/v1/packages", srv.handlePackages)
	mux.HandleFunc("/api/v1/inventory", srv.handleInventory)
	mux.HandleFunc("/api/v1/inventory/", srv.handleInventoryByID)

	handler := srv.loggingMiddleware(srv.auth.Wrap(mux))

	srv.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTP.Port),
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      15 * time.Second,
	}

	return srv
}

func (s *HTTPServer) Start() error {
	if s.server == nil {
		return fmt.Errorf("http server is not initialized")
	}
	s.logger.Info().Str("addr", s.server.Addr).Msg("HTTP API listening")
	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *HTTPServer) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

// Handler returns the fully wrapped handler, used directly in tests.
func (s *HTTPServer) Handler() http.Handler {
	return s.server.Handler
}

func (s *HTTPServer) handleAvailability(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	q := r.URL.Query()
	catalogID := strings.TrimSpace(q.Get("catalogEntryId"))
	startStr := strings.TrimSpace(q.Get("startDate"))
	endStr := strings.TrimSpace(q.Get("endDate"))
	if catalogID == "" {
		writeError(w, http.StatusBadRequest, "catalogEntryId is required")
		return
	}
	if startStr == "" || endStr == "" {
		writeError(w, http.StatusBadRequest, "startDate and endDate are required")
		return
	}

	start, end, err := service.ParseDateRange(startStr, endStr)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid date range; expected YYYY-MM-DD, endDate >= startDate")
		return
	}

	info, err := s.bookings.CheckAvailability(r.Context(), catalogID, start, end)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, info)
}

func (s *HTTPServer) handleBookings(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		s.listBookings(w, r)
	case http.MethodPost:
		s.createBooking(w, r)
	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (s *HTTPServer) listBookings(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	fromStr := strings.TrimSpace(q.Get("from"))
	toStr := strings.TrimSpace(q.Get("to"))

	var (
		bookings []*models.Booking
		err      error
	)
	if fromStr != "" && toStr != "" {
		var from, to time.Time
		from, to, err = service.ParseDateRange(fromStr, toStr)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid date range; expected YYYY-MM-DD, to >= from")
			return
		}
		bookings, err = s.bookings.GetBookingsByDateRange(r.Context(), from, to)
	} else {
		bookings, err = s.bookings.ListBookings(r.Context())
	}
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"bookings": bookings})
}

func (s *HTTPServer) createBooking(w http.ResponseWriter, r *http.Request) {
	var req service.CreateBookingRequest
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	booking, err := s.bookings.CreateBooking(r.Context(), &req)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, booking)
}

func (s *HTTPServer) handleBookingByID(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/api/v1/bookings/")
	parts := strings.Split(strings.Trim(rest, "/"), "/")

	switch {
	case len(parts) == 1 && parts[0] != "":
		if r.Method != http.MethodGet {
			writeError(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}
		booking, err := s.bookings.GetBooking(r.Context(), parts[0])
		if err != nil {
			s.writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, booking)
	case len(parts) == 2 && parts[0] != "":
		if r.Method != http.MethodPost {
			writeError(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}
		s.transitionBooking(w, r, parts[0], parts[1])
	default:
		writeError(w, http.StatusNotFound, "not found")
	}
}

func (s *HTTPServer) transitionBooking(w http.ResponseWriter, r *http.Request, id, action string) {
	type request struct {
		Version int64 `json:"version"`
	}
	var body request
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
	}

	// Без явной версии переход применяется к текущей — один клиент,
	// без гонки. Конкурирующие клиенты обязаны передавать version.
	if body.Version == 0 {
		booking, err := s.bookings.GetBooking(r.Context(), id)
		if err != nil {
			s.writeServiceError(w, err)
			return
		}
		body.Version = booking.Version
	}

	var (
		booking *models.Booking
		err     error
	)
	switch action {
	case "confirm":
		booking, err = s.bookings.ConfirmBooking(r.Context(), id, body.Version)
	case "activate":
		booking, err = s.bookings.ActivateBooking(r.Context(), id, body.Version)
	case "complete":
		booking, err = s.bookings.CompleteBooking(r.Context(), id, body.Version)
	case "cancel":
		booking, err = s.bookings.CancelBooking(r.Context(), id, body.Version)
	default:
		writeError(w, http.StatusNotFound, "unknown action")
		return
	}
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, booking)
}

func (s *HTTPServer) handlePackages(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	entries, err := s.catalog.GetActiveCatalog(r.Context())
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"packages": entries})
}

func (s *HTTPServer) handleInventory(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		q := r.URL.Query()
		units, err := s.inventory.ListUnits(r.Context(),
			strings.TrimSpace(q.Get("catalogEntryId")),
			strings.TrimSpace(q.Get("status")))
		if err != nil {
			s.writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"units": units})
	case http.MethodPost:
		var unit models.SerializedUnit
		decoder := json.NewDecoder(r.Body)
		decoder.DisallowUnknownFields()
		if err := decoder.Decode(&unit); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
		if err := s.inventory.CreateUnit(r.Context(), &unit); err != nil {
			s.writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, unit)
	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (s *HTTPServer) handleInventoryByID(w http.ResponseWriter, r *http.Request) {
	id := strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/v1/inventory/"), "/")
	if id == "" || strings.Contains(id, "/") {
		writeError(w, http.StatusNotFound, "not found")
		return
	}

	switch r.Method {
	case http.MethodGet:
		unit, err := s.inventory.GetUnit(r.Context(), id)
		if err != nil {
			s.writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, unit)
	case http.MethodPatch:
		var patch models.UnitPatch
		decoder := json.NewDecoder(r.Body)
		decoder.DisallowUnknownFields()
		if err := decoder.Decode(&patch); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
		unit, err := s.inventory.PatchUnit(r.Context(), id, patch)
		if err != nil {
			s.writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, unit)
	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

// writeServiceError maps engine errors onto HTTP status codes.
func (s *HTTPServer) writeServiceError(w http.ResponseWriter, err error) {
	if field, ok := service.IsMissingField(err); ok {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": err.Error(),
			"field": field,
		})
		return
	}

	switch {
	case errors.Is(err, service.ErrInvalidDateRange),
		errors.Is(err, service.ErrInvalidHeadsetDistribution),
		errors.Is(err, service.ErrInvalidUnit),
		// Для витрины "ничего не свободно" — ошибка запроса, не конфликт.
		errors.Is(err, database.ErrNoAvailableUnit):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, database.ErrCatalogNotFound),
		errors.Is(err, database.ErrBookingNotFound),
		errors.Is(err, database.ErrUnitNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, database.ErrConcurrentModification),
		errors.Is(err, service.ErrInvalidTransition):
		writeError(w, http.StatusConflict, err.Error())
	default:
		s.logger.Error().Err(err).Msg("internal api error")
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func (s *HTTPServer) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		recorder := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(recorder, r)
		dur := time.Since(start)

		metrics.IncHTTP(r.URL.Path, strconv.Itoa(recorder.status))
		s.logger.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", recorder.status).
			Dur("duration", dur).
			Msg("http request")
	})
}

func writeJSON(w http.ResponseWriter, statusCode int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, statusCode int, message string) {
	writeJSON(w, statusCode, map[string]string{"error": message})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}
