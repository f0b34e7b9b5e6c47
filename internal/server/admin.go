package server

import (
	"crypto/subtle"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/sells-group/lead-intake/internal/model"
	"github.com/sells-group/lead-intake/internal/store"
)

const (
	sessionCookie = "intake_admin"
	sessionPrefix = "intake-admin:"
	sessionTTL    = 24 * time.Hour
)

// The session token is an unsigned base64 string carrying only an expiry.
// This is a deliberate placeholder matching the current deployment, not a
// signed credential; anyone who can forge the cookie format gets in.

func (s *Server) handleAdminAuth(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if subtle.ConstantTimeCompare([]byte(req.Password), []byte(s.adminPass)) != 1 {
		zap.L().Warn("admin auth failed", zap.String("ip", clientIP(r)))
		writeError(w, http.StatusUnauthorized, "invalid password")
		return
	}

	expiry := time.Now().Add(sessionTTL).Unix()
	token := base64.StdEncoding.EncodeToString([]byte(fmt.Sprintf("%s%d", sessionPrefix, expiry)))

	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    token,
		Path:     "/",
		MaxAge:   int(sessionTTL.Seconds()),
		HttpOnly: true,
		Secure:   s.cfg.Env == "production",
		SameSite: http.SameSiteLaxMode,
	})
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// requireAdmin gates admin routes on a valid, unexpired session cookie.
func (s *Server) requireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cookie, err := r.Cookie(sessionCookie)
		if err != nil || !validSession(cookie.Value) {
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func validSession(token string) bool {
	raw, err := base64.StdEncoding.DecodeString(token)
	if err != nil {
		return false
	}
	payload := string(raw)
	if !strings.HasPrefix(payload, sessionPrefix) {
		return false
	}
	expiry, err := strconv.ParseInt(strings.TrimPrefix(payload, sessionPrefix), 10, 64)
	if err != nil {
		return false
	}
	return time.Now().Unix() < expiry
}

func (s *Server) handleListBriefs(w http.ResponseWriter, r *http.Request) {
	filter := store.BriefFilter{}
	if status := r.URL.Query().Get("status"); status != "" {
		if !model.ValidBriefStatus(model.BriefStatus(status)) {
			writeError(w, http.StatusBadRequest, "unknown status")
			return
		}
		filter.Status = model.BriefStatus(status)
	}

	briefs, err := s.store.ListBriefs(r.Context(), filter)
	if err != nil {
		zap.L().Error("list briefs failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to list briefs")
		return
	}
	stats, err := s.store.Stats(r.Context())
	if err != nil {
		zap.L().Error("brief stats failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to compute stats")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"briefs": briefs,
		"stats":  stats,
	})
}

func (s *Server) handleUpdateBrief(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ID     string `json:"id"`
		Status string `json:"status,omitempty"`
		Spam   bool   `json:"spam,omitempty"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.ID == "" {
		writeError(w, http.StatusBadRequest, "id is required")
		return
	}

	if req.Spam {
		flagged, err := s.store.FlagSpam(r.Context(), req.ID)
		if err != nil {
			zap.L().Error("flag spam failed", zap.String("brief_id", req.ID), zap.Error(err))
			writeError(w, http.StatusInternalServerError, "failed to flag brief")
			return
		}
		if !flagged {
			writeError(w, http.StatusNotFound, "brief not found")
			return
		}
		writeJSON(w, http.StatusOK, map[string]bool{"success": true})
		return
	}

	status := model.BriefStatus(req.Status)
	if !model.ValidBriefStatus(status) {
		writeError(w, http.StatusBadRequest, "unknown status")
		return
	}
	if err := s.store.UpdateStatus(r.Context(), req.ID, status); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "brief not found")
			return
		}
		zap.L().Error("update status failed", zap.String("brief_id", req.ID), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to update brief")
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}
