package simulator

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/theiiinsiderz/AppConnect360-sub000/internal/tags/models"
)

// Router wires the simulated tag-service HTTP surface. Everything under
// /tags except the public lookup requires a bearer token minted by
// POST /auth/token.
func (s *Simulator) Router() http.Handler {
	r := chi.NewRouter()

	r.Post("/auth/token", s.handleToken)
	r.Get("/tags/{id}/public", s.handlePublicLookup)

	r.Group(func(r chi.Router) {
		r.Use(s.requireAuth)
		r.Get("/tags", s.handleList)
		r.Post("/tags", s.handleRegister)
		r.Post("/tags/activate", s.handleActivate)
		r.Post("/tags/activate/send-otp", s.handleActivateSendOTP)
		r.Post("/tags/activate/verify-otp", s.handleActivateVerifyOTP)
		r.Patch("/tags/{id}/privacy", s.handlePrivacy)
		r.Put("/tags/{id}", s.handleUpdate)
		r.Post("/tags/{id}/otp/send", s.handleSendOTP)
		r.Post("/tags/{id}/otp/verify", s.handleVerifyOTP)
	})

	return r
}

// handleToken mints a short-lived dev token for any user id. The simulator
// trusts its callers; it only exists to exercise the 401 path realistically.
func (s *Simulator) handleToken(w http.ResponseWriter, r *http.Request) {
	var req struct {
		UserID string `json:"userId"`
	}
	_ = json.NewDecoder(r.Body).Decode(&req)
	if req.UserID == "" {
		req.UserID = uuid.NewString()
	}

	claims := jwt.MapClaims{
		"sub": req.UserID,
		"exp": time.Now().Add(12 * time.Hour).Unix(),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.jwtKey)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error", "could not sign token")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"token": token})
}

func (s *Simulator) requireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
		if raw == "" || raw == r.Header.Get("Authorization") {
			writeError(w, http.StatusUnauthorized, "unauthenticated", "missing bearer token")
			return
		}
		_, err := jwt.Parse(raw, func(t *jwt.Token) (any, error) {
			return s.jwtKey, nil
		}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
		if err != nil {
			writeError(w, http.StatusUnauthorized, "unauthenticated", "invalid or expired token")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// writeMigrated emulates a retired endpoint. Structured mode answers with
// the endpoint_migrated error code; prose mode answers the way the old
// backend actually does, with a notice buried in the message.
func (s *Simulator) writeMigrated(w http.ResponseWriter) {
	s.mu.Lock()
	structured := s.structuredMigration
	s.mu.Unlock()
	if structured {
		writeError(w, http.StatusGone, "endpoint_migrated", "this endpoint has been retired")
		return
	}
	writeError(w, http.StatusInternalServerError, "", "This API is not implemented here anymore, it was migrated to the new platform")
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, map[string]string{"error": code, "message": message})
}

func (s *Simulator) handleList(w http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	out := make([]map[string]any, 0, len(s.records))
	for _, rec := range s.records {
		out = append(out, render(rec))
	}
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, map[string]any{"tags": out})
}

func (s *Simulator) handleRegister(w http.ResponseWriter, r *http.Request) {
	if s.isMigrated("register") {
		s.writeMigrated(w)
		return
	}
	var req models.RegisterTagRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Code == "" {
		writeError(w, http.StatusBadRequest, "bad_request", "code is required")
		return
	}

	s.mu.Lock()
	if s.findByCode(req.Code) != nil {
		s.mu.Unlock()
		writeError(w, http.StatusConflict, "conflict", "A tag with code "+req.Code+" is already registered")
		return
	}
	rec := &Record{
		ID:     uuid.NewString(),
		Code:   req.Code,
		Domain: req.Domain,
		Config: req.DisplayConfig,
		Status: "ACTIVE",
	}
	s.records = append(s.records, rec)
	rendered := render(rec)
	s.mu.Unlock()

	writeJSON(w, http.StatusCreated, map[string]any{"tag": rendered})
}

func (s *Simulator) handleActivate(w http.ResponseWriter, r *http.Request) {
	if s.isMigrated("activate") {
		s.writeMigrated(w)
		return
	}
	var req models.ActivateTagRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Code == "" {
		writeError(w, http.StatusBadRequest, "bad_request", "code is required")
		return
	}

	s.mu.Lock()
	rec := s.findByCode(req.Code)
	if rec == nil {
		rec = &Record{ID: uuid.NewString(), Code: req.Code, Domain: req.Domain, Config: req.DisplayConfig}
		s.records = append(s.records, rec)
	}
	rec.Status = "ACTIVE"
	rec.Phone = req.Phone
	if req.DisplayConfig != nil {
		rec.Config = req.DisplayConfig
	}
	rendered := render(rec)
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, map[string]any{"tag": rendered})
}

func (s *Simulator) handleActivateSendOTP(w http.ResponseWriter, r *http.Request) {
	var req models.ActivateOTPRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Code == "" || req.Phone == "" {
		writeError(w, http.StatusBadRequest, "bad_request", "code and phone are required")
		return
	}
	s.mu.Lock()
	s.actOTP[req.Code] = true
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, map[string]bool{"sent": true})
}

func (s *Simulator) handleActivateVerifyOTP(w http.ResponseWriter, r *http.Request) {
	var req models.ActivateOTPRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Code == "" {
		writeError(w, http.StatusBadRequest, "bad_request", "code is required")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.actOTP[req.Code] {
		writeError(w, http.StatusBadRequest, "bad_request", "no verification pending for this tag")
		return
	}
	if req.OTP != DevOTP {
		writeError(w, http.StatusBadRequest, "bad_request", "incorrect verification code")
		return
	}
	delete(s.actOTP, req.Code)

	rec := s.findByCode(req.Code)
	if rec == nil {
		rec = &Record{ID: uuid.NewString(), Code: req.Code}
		s.records = append(s.records, rec)
	}
	rec.Status = "ACTIVE"
	rec.Phone = req.Phone
	writeJSON(w, http.StatusOK, map[string]any{"tag": render(rec)})
}

func (s *Simulator) handlePrivacy(w http.ResponseWriter, r *http.Request) {
	if s.isMigrated("privacy") {
		s.writeMigrated(w)
		return
	}
	var req struct {
		Setting string `json:"setting"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || !models.KnownSetting(req.Setting) {
		writeError(w, http.StatusBadRequest, "bad_request", "unknown privacy setting")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	rec := s.findByID(chi.URLParam(r, "id"))
	if rec == nil {
		writeError(w, http.StatusNotFound, "not_found", "tag not found")
		return
	}
	rec.Privacy = rec.Privacy.WithValue(req.Setting, !rec.Privacy.Value(req.Setting))
	writeJSON(w, http.StatusOK, map[string]any{"tag": render(rec)})
}

func (s *Simulator) handlePublicLookup(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := chi.URLParam(r, "id")
	rec := s.findByID(id)
	if rec == nil {
		rec = s.findByCode(id)
	}
	if rec == nil {
		writeError(w, http.StatusNotFound, "not_found", "tag not found")
		return
	}
	if rec.PublicLocked {
		writeJSON(w, http.StatusForbidden, map[string]any{
			"locked":  true,
			"code":    rec.Code,
			"domain":  string(rec.Domain),
			"message": "The owner has locked public lookups for this tag",
		})
		return
	}
	writeJSON(w, http.StatusOK, models.PublicTag{
		Code:          rec.Code,
		Domain:        rec.Domain,
		DisplayConfig: rec.Config,
	})
}

func (s *Simulator) handleUpdate(w http.ResponseWriter, r *http.Request) {
	if s.isMigrated("update") {
		s.writeMigrated(w)
		return
	}
	var req models.UpdateTagRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "invalid request body")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	rec := s.findByID(chi.URLParam(r, "id"))
	if rec == nil {
		writeError(w, http.StatusNotFound, "not_found", "tag not found")
		return
	}

	// Phone and domain changes are identity-bearing and need verification.
	if req.Phone != "" || (req.Domain != "" && req.Domain != rec.Domain) {
		writeJSON(w, http.StatusOK, map[string]bool{"otpRequired": true})
		return
	}
	if req.DisplayConfig != nil {
		rec.Config = req.DisplayConfig
	}
	writeJSON(w, http.StatusOK, map[string]any{"tag": render(rec)})
}

func (s *Simulator) handleSendOTP(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec := s.findByID(chi.URLParam(r, "id"))
	if rec == nil {
		writeError(w, http.StatusNotFound, "not_found", "tag not found")
		return
	}
	s.otpSent[rec.ID] = true
	writeJSON(w, http.StatusOK, map[string]bool{"sent": true})
}

func (s *Simulator) handleVerifyOTP(w http.ResponseWriter, r *http.Request) {
	var req models.VerifyOTPRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "invalid request body")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	rec := s.findByID(chi.URLParam(r, "id"))
	if rec == nil {
		writeError(w, http.StatusNotFound, "not_found", "tag not found")
		return
	}
	if !s.otpSent[rec.ID] {
		writeError(w, http.StatusBadRequest, "bad_request", "no verification pending for this tag")
		return
	}
	if req.OTP != DevOTP {
		writeError(w, http.StatusBadRequest, "bad_request", "incorrect verification code")
		return
	}
	delete(s.otpSent, rec.ID)

	// Apply the pending changes submitted alongside the code.
	if req.Changes.Domain != "" {
		rec.Domain = req.Changes.Domain
	}
	if req.Changes.Phone != "" {
		rec.Phone = req.Changes.Phone
	}
	if req.Changes.DisplayConfig != nil {
		rec.Config = req.Changes.DisplayConfig
	}
	writeJSON(w, http.StatusOK, map[string]any{"tag": render(rec)})
}
