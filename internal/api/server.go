// Package api exposes the booking engine over HTTP.
package api

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/cors"
	"github.com/rs/zerolog"

	"stillwater/internal/calendar"
	"stillwater/internal/flow"
	"stillwater/internal/models"
	"stillwater/internal/service"
)

// BookingService is the engine surface the handlers call.
type BookingService interface {
	Calendar(cursor int) []calendar.SessionDate
	AvailableTimes(ctx context.Context, date string) ([]string, error)
	DaySlots(ctx context.Context, date string) ([]service.SlotInfo, error)
	Reserve(ctx context.Context, req service.ReserveRequest) (*service.ReserveResult, error)
	VerifyPayment(ctx context.Context, req service.VerifyRequest) (*models.Booking, error)
	Cancel(ctx context.Context, id, userID string) error
	UserBookings(ctx context.Context, userID string) ([]models.Booking, error)
}

// AuditExporter renders the audit trail for the admin endpoint.
type AuditExporter interface {
	WriteXLSX(ctx context.Context, from, to time.Time, w io.Writer) error
}

// Config holds the server's auth and CORS settings.
type Config struct {
	JWTSecret      string
	AdminEmails    []string
	AllowedOrigins []string
}

// Server routes HTTP traffic to the engine.
type Server struct {
	svc       BookingService
	exporter  AuditExporter
	wsHandler http.HandlerFunc
	sessions  *flow.SessionStore
	fsm       *flow.FSM
	cfg       Config
	admins    map[string]bool
	limiter   *ipLimiter
	logger    *zerolog.Logger
}

// NewServer wires the router dependencies. wsHandler and exporter may be
// nil when the deployment runs without them.
func NewServer(svc BookingService, exporter AuditExporter, wsHandler http.HandlerFunc,
	sessions *flow.SessionStore, cfg Config, logger *zerolog.Logger) *Server {
	admins := make(map[string]bool, len(cfg.AdminEmails))
	for _, email := range cfg.AdminEmails {
		admins[email] = true
	}
	return &Server{
		svc:       svc,
		exporter:  exporter,
		wsHandler: wsHandler,
		sessions:  sessions,
		fsm:       flow.NewFSM(),
		cfg:       cfg,
		admins:    admins,
		limiter:   newIPLimiter(5, 10),
		logger:    logger,
	}
}

// Router builds the full handler chain.
func (s *Server) Router() http.Handler {
	r := mux.NewRouter()

	v1 := r.PathPrefix("/api/v1").Subrouter()
	v1.HandleFunc("/calendar", s.handleCalendar).Methods(http.MethodGet)
	v1.HandleFunc("/slots/{date}", s.handleDaySlots).Methods(http.MethodGet)
	v1.HandleFunc("/availability/{date}", s.handleAvailability).Methods(http.MethodGet)
	v1.Handle("/bookings", s.limiter.wrap(http.HandlerFunc(s.handleReserve))).Methods(http.MethodPost)
	v1.HandleFunc("/payments/verify", s.handleVerifyPayment).Methods(http.MethodPost)
	v1.Handle("/bookings/my", s.requireAuth(s.handleMyBookings)).Methods(http.MethodGet)
	v1.Handle("/bookings/{id}", s.requireAuth(s.handleCancel)).Methods(http.MethodDelete)
	v1.Handle("/admin/audit/export", s.requireAdmin(s.handleAuditExport)).Methods(http.MethodGet)
	if s.wsHandler != nil {
		v1.HandleFunc("/ws", s.wsHandler)
	}

	r.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)

	c := cors.New(cors.Options{
		AllowedOrigins:   s.cfg.AllowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Authorization", "Content-Type", flowSessionHeader},
		ExposedHeaders:   []string{flowSessionHeader},
		AllowCredentials: true,
	})
	return c.Handler(s.identity(r))
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
