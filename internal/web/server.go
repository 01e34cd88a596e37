// Package web exposes the HTTP side of the bot: CSV/XLSX exports, the cart
// of the authenticated user, and logout. Sessions are minted by the Telegram
// /login command; this server only consumes them.
package web

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"kladovka/internal/database"
	"kladovka/internal/export"
	"kladovka/internal/service"
	"kladovka/internal/session"
)

const sessionHeader = "X-Session-Token"

// Server carries the HTTP handlers and their dependencies.
type Server struct {
	svc      *service.BookingService
	sessions *session.Store
	db       *database.DB
	logger   *zerolog.Logger
}

func NewServer(svc *service.BookingService, sessions *session.Store, db *database.DB, logger *zerolog.Logger) *Server {
	return &Server{svc: svc, sessions: sessions, db: db, logger: logger}
}

// Handler builds the route table.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /entries.csv", s.handleEntriesCSV)
	mux.HandleFunc("GET /reservations.xlsx", s.handleReservationsXLSX)
	mux.HandleFunc("GET /cart", s.withSession(s.handleCart))
	mux.HandleFunc("GET /logout", s.handleLogout)
	mux.HandleFunc("POST /logout", s.handleLogout)
	return s.requestLog(mux)
}

// Run serves until ctx is done, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, port int) error {
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		ctxShutdown, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctxShutdown)
	}()

	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// requestLog tags every request with an id and logs it on completion.
func (s *Server) requestLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := uuid.NewString()
		w.Header().Set("X-Request-Id", requestID)

		start := time.Now()
		next.ServeHTTP(w, r)

		s.logger.Debug().
			Str("request_id", requestID).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Dur("elapsed", time.Since(start)).
			Msg("http request")
	})
}

// withSession resolves the session token header and passes the username on.
// Missing, unknown and expired tokens are indistinguishable to the caller.
func (s *Server) withSession(next func(http.ResponseWriter, *http.Request, session.Session)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, ok := s.sessions.Check(r.Header.Get(sessionHeader))
		if !ok {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		next(w, r, sess)
	}
}

func (s *Server) handleEntriesCSV(w http.ResponseWriter, r *http.Request) {
	entries, err := s.svc.Entries(r.Context())
	if err != nil {
		s.logger.Error().Err(err).Msg("list entries failed")
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	if err := export.WriteEntriesCSV(w, entries); err != nil {
		s.logger.Error().Err(err).Msg("csv export failed")
	}
}

func (s *Server) handleReservationsXLSX(w http.ResponseWriter, r *http.Request) {
	rows, err := s.db.ListReservations(r.Context())
	if err != nil {
		s.logger.Error().Err(err).Msg("list reservations failed")
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", `attachment; filename="reservations.xlsx"`)
	if err := export.WriteReservationsXLSX(w, rows); err != nil {
		s.logger.Error().Err(err).Msg("xlsx export failed")
	}
}

func (s *Server) handleCart(w http.ResponseWriter, r *http.Request, sess session.Session) {
	entries, err := s.svc.Cart(r.Context(), sess.Username)
	if err != nil {
		s.logger.Error().Err(err).Str("user", sess.Username).Msg("get cart failed")
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	if err := export.WriteEntriesCSV(w, entries); err != nil {
		s.logger.Error().Err(err).Msg("cart export failed")
	}
}

// handleLogout terminates a session either by its token (header) or by the
// logout key (?key=), which lets a user kill a session without holding its
// token.
func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if key := r.URL.Query().Get("key"); key != "" {
		if s.sessions.DeleteByLogoutKey(key) {
			w.WriteHeader(http.StatusOK)
			return
		}
		http.Error(w, "unknown logout key", http.StatusNotFound)
		return
	}

	if token := r.Header.Get(sessionHeader); token != "" {
		if s.sessions.Delete(token) {
			w.WriteHeader(http.StatusOK)
			return
		}
	}
	http.Error(w, "no session", http.StatusNotFound)
}
