package api

import (
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"strings"
	"time"

	"fonteyn/internal/database"
	"fonteyn/internal/metrics"
	"fonteyn/internal/models"
	"fonteyn/internal/service"
)

type registerRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type bookRequest struct {
	RoomName  string  `json:"room_name"`
	Price     float64 `json:"price"`
	StartDate string  `json:"start_date"`
	EndDate   string  `json:"end_date"`
}

type bookingResponse struct {
	ID        int64   `json:"id"`
	RoomName  string  `json:"room_name"`
	StartDate string  `json:"start_date"`
	EndDate   string  `json:"end_date"`
	TotalCost float64 `json:"total_cost"`
}

func bookingToResponse(b *models.Booking) bookingResponse {
	return bookingResponse{
		ID:        b.ID,
		RoomName:  b.RoomName,
		StartDate: b.StartDate.Format(models.DateLayout),
		EndDate:   b.EndDate.Format(models.DateLayout),
		TotalCost: b.TotalCost,
	}
}

func (s *HTTPServer) handleRegister(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed")
		return
	}

	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request")
		return
	}

	ctx, cancel := s.requestContext(r)
	defer cancel()

	user, err := s.auth.Register(ctx, req.Username, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, database.ErrDuplicateUsername):
			writeError(w, http.StatusConflict, "duplicate_username")
		case errors.Is(err, service.ErrAuthFailure):
			writeError(w, http.StatusBadRequest, "invalid_request")
		default:
			writeError(w, http.StatusInternalServerError, "storage_failure")
		}
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{
		"id":       user.ID,
		"username": user.Username,
		"redirect": "/api/v1/login",
	})
}

func (s *HTTPServer) handleLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed")
		return
	}

	ctx, cancel := s.requestContext(r)
	defer cancel()

	// Local token bucket first, then the session-store counter that
	// survives restarts and is shared across instances.
	key := clientKey(r)
	if !s.limiter.Allow(key) ||
		!s.auth.CheckLoginRateLimit(ctx, "login:"+key, models.LoginAttemptLimit, models.LoginAttemptWindow*time.Second) {
		metrics.IncLogin("throttled")
		writeError(w, http.StatusTooManyRequests, "too_many_requests")
		return
	}

	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request")
		return
	}

	session, err := s.auth.Login(ctx, req.Username, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrAuthFailure):
			metrics.IncLogin("failed")
			writeError(w, http.StatusUnauthorized, "auth_failure")
		default:
			writeError(w, http.StatusInternalServerError, "storage_failure")
		}
		return
	}

	metrics.IncLogin("ok")
	s.setSessionCookie(w, session)
	writeJSON(w, http.StatusOK, map[string]string{
		"token":    session.Token,
		"redirect": "/api/v1/accommodations",
	})
}

func (s *HTTPServer) handleLogout(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed")
		return
	}

	ctx, cancel := s.requestContext(r)
	defer cancel()

	token := s.sessionToken(r)
	if err := s.auth.Logout(ctx, token); err != nil {
		writeError(w, http.StatusInternalServerError, "storage_failure")
		return
	}

	s.clearSessionCookie(w)
	writeJSON(w, http.StatusOK, map[string]string{"redirect": "/api/v1/login"})
}

func (s *HTTPServer) handleAccommodations(w http.ResponseWriter, r *http.Request, _ int64) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed")
		return
	}

	ctx, cancel := s.requestContext(r)
	defer cancel()

	accommodations, err := s.catalog.ListAccommodations(ctx)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "storage_failure")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"accommodations": accommodations})
}

func (s *HTTPServer) handleBook(w http.ResponseWriter, r *http.Request, userID int64) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed")
		return
	}

	var req bookRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request")
		return
	}

	ctx, cancel := s.requestContext(r)
	defer cancel()

	booking, err := s.bookings.CreateBooking(ctx, userID, req.RoomName, req.Price, req.StartDate, req.EndDate)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidDateRange):
			writeError(w, http.StatusBadRequest, "invalid_date_range")
		default:
			writeError(w, http.StatusInternalServerError, "storage_failure")
		}
		return
	}

	metrics.IncBookingCreated()
	resp := bookingToResponse(booking)
	writeJSON(w, http.StatusCreated, map[string]any{
		"booking":  resp,
		"redirect": "/api/v1/bookings/latest",
	})
}

func (s *HTTPServer) handleLatestBooking(w http.ResponseWriter, r *http.Request, userID int64) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed")
		return
	}

	ctx, cancel := s.requestContext(r)
	defer cancel()

	booking, err := s.bookings.LatestBooking(ctx, userID)
	if err != nil {
		switch {
		case errors.Is(err, database.ErrNotFound):
			writeRedirectError(w, http.StatusNotFound, "not_found", "/api/v1/accommodations")
		default:
			writeError(w, http.StatusInternalServerError, "storage_failure")
		}
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"booking": bookingToResponse(booking)})
}

// sessionHandler is a handler that additionally receives the authenticated
// user id resolved from the session token.
type sessionHandler func(w http.ResponseWriter, r *http.Request, userID int64)

func (s *HTTPServer) requireSession(next sessionHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := s.requestContext(r)
		defer cancel()

		userID, err := s.auth.Authenticate(ctx, s.sessionToken(r))
		if err != nil {
			if errors.Is(err, service.ErrNotAuthenticated) {
				writeRedirectError(w, http.StatusUnauthorized, "not_authenticated", "/api/v1/login")
				return
			}
			writeError(w, http.StatusInternalServerError, "storage_failure")
			return
		}
		next(w, r, userID)
	}
}

// sessionToken extracts the token from the session cookie or, for API
// clients without a cookie jar, from the Authorization header.
func (s *HTTPServer) sessionToken(r *http.Request) string {
	if cookie, err := r.Cookie(s.cfg.Session.CookieName); err == nil && cookie.Value != "" {
		return cookie.Value
	}
	auth := r.Header.Get("Authorization")
	if strings.HasPrefix(auth, "Bearer ") {
		return strings.TrimPrefix(auth, "Bearer ")
	}
	return ""
}

func (s *HTTPServer) setSessionCookie(w http.ResponseWriter, session *models.Session) {
	http.SetCookie(w, &http.Cookie{
		Name:     s.cfg.Session.CookieName,
		Value:    session.Token,
		Path:     "/",
		Expires:  session.ExpiresAt,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

func (s *HTTPServer) clearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     s.cfg.Session.CookieName,
		Value:    "",
		Path:     "/",
		Expires:  time.Unix(0, 0),
		MaxAge:   -1,
		HttpOnly: true,
	})
}

// clientKey identifies the caller for rate limiting. Host part only, so a
// client churning source ports does not reset its budget.
func clientKey(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
