package httpapi

import (
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	wsadapter "skillpath/adapters/websocket"
	"skillpath/core"
	"skillpath/engine"
	"skillpath/leaderboard"
	"skillpath/realtime"
)

// Options configures the HTTP API surface.
type Options struct {
	// PathPrefix, if set, is prepended to all routes (e.g., "/api").
	PathPrefix string
	// AllowCORSOrigin, if non-empty, enables basic CORS with the given origin (use "*" for any).
	AllowCORSOrigin string
	// APIKeys, if non-empty, enables static API key auth via Authorization: Bearer or X-API-Key.
	APIKeys []string
	// RateLimitEnabled toggles rate limiting.
	RateLimitEnabled bool
	// RateLimitRPM is the allowed requests per minute per client key.
	RateLimitRPM int
	// RateLimitBurst defines burst capacity.
	RateLimitBurst int
	// DemoEnabled turns on demo access for every request; the demo query
	// param can still enable it per request when this is off.
	DemoEnabled bool
}

type figureRequest struct {
	FigureID string `json:"figure_id"`
	Status   string `json:"status"`
}

type trainingRequest struct {
	LevelID    string `json:"level_id"`
	TrainingID string `json:"training_id"`
}

type challengeRequest struct {
	ChallengeID   string `json:"challenge_id"`
	Participating bool   `json:"participating"`
	Completed     bool   `json:"completed"`
	Status        string `json:"status"`
}

// NewMux builds an http.Handler exposing the progression REST API and WebSocket stream.
// Routes:
//   - GET  {prefix}/users/{id}/paths/{key}?admin_preview=1&demo=1&premium=1
//   - POST {prefix}/users/{id}/paths/{key}/figures
//   - POST {prefix}/users/{id}/paths/{key}/trainings
//   - POST {prefix}/users/{id}/paths/{key}/challenges
//   - GET  {prefix}/users/{id}/achievements
//   - GET  {prefix}/paths/{key}/leaderboard?n=10
//   - GET  {prefix}/healthz
//   - WS   {prefix}/ws
func NewMux(svc *engine.ProgressService, hub *realtime.Hub, boards *leaderboard.Boards, opts Options) http.Handler {
	mux := http.NewServeMux()

	// health
	mux.HandleFunc(withPrefix(opts.PathPrefix, "/healthz"), func(w http.ResponseWriter, r *http.Request) {
		healthCheck(w, r, svc)
	})

	// WebSocket events
	if hub != nil {
		mux.Handle(withPrefix(opts.PathPrefix, "/ws"), wsadapter.Handler(hub))
	}

	// Leaderboard API
	mux.HandleFunc(withPrefix(opts.PathPrefix, "/paths/"), func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			writeError(w, http.StatusNotFound, "not_found", "route not found", nil)
			return
		}
		parts := routeParts(r.URL.Path, opts.PathPrefix)
		if len(parts) != 3 || parts[2] != "leaderboard" {
			writeError(w, http.StatusNotFound, "not_found", "route not found", nil)
			return
		}
		if boards == nil {
			writeError(w, http.StatusNotFound, "not_found", "leaderboard disabled", nil)
			return
		}
		n := 10
		if raw := r.URL.Query().Get("n"); raw != "" {
			v, err := strconv.Atoi(raw)
			if err != nil || v <= 0 {
				writeError(w, http.StatusBadRequest, "invalid_n", "n must be a positive integer", nil)
				return
			}
			n = v
		}
		entries := boards.TopN(core.PathKey(parts[1]), n)
		if entries == nil {
			entries = []leaderboard.Entry{}
		}
		writeJSON(w, map[string]any{"path": parts[1], "entries": entries})
	})

	// Users API
	mux.HandleFunc(withPrefix(opts.PathPrefix, "/users/"), func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet && r.Method != http.MethodPost {
			writeError(w, http.StatusNotFound, "not_found", "route not found", nil)
			return
		}
		parts := routeParts(r.URL.Path, opts.PathPrefix)
		// users/{id}/achievements
		if len(parts) == 3 && parts[0] == "users" && parts[2] == "achievements" {
			if r.Method != http.MethodGet {
				writeError(w, http.StatusNotFound, "not_found", "route not found", nil)
				return
			}
			user, err := core.NormalizeUserID(core.UserID(parts[1]))
			if err != nil {
				writeError(w, http.StatusBadRequest, "invalid_user", err.Error(), nil)
				return
			}
			achievements, err := svc.Achievements(r.Context(), user)
			if err != nil {
				writeEvalError(w, err)
				return
			}
			if achievements == nil {
				achievements = []core.AchievementID{}
			}
			writeJSON(w, map[string]any{"user_id": user, "achievements": achievements})
			return
		}
		// users/{id}/paths/{key}[/...]
		if len(parts) < 4 || parts[0] != "users" || parts[2] != "paths" {
			writeError(w, http.StatusNotFound, "not_found", "route not found", nil)
			return
		}
		user, err := core.NormalizeUserID(core.UserID(parts[1]))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_user", err.Error(), nil)
			return
		}
		if err := core.ValidateID(parts[3]); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_path", err.Error(), nil)
			return
		}
		key := core.PathKey(parts[3])
		evalOpts := evaluateOptions(r, opts)

		switch r.Method {
		case http.MethodGet:
			if len(parts) != 4 {
				break
			}
			eval, err := svc.EvaluatePath(r.Context(), user, key, evalOpts)
			if err != nil {
				writeEvalError(w, err)
				return
			}
			writeJSON(w, eval)
			return
		case http.MethodPost:
			if len(parts) != 5 {
				break
			}
			switch parts[4] {
			case "figures":
				var req figureRequest
				if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
					writeError(w, http.StatusBadRequest, "invalid_body", "malformed JSON body", nil)
					return
				}
				if err := core.ValidateID(req.FigureID); err != nil {
					writeError(w, http.StatusBadRequest, "invalid_figure", err.Error(), nil)
					return
				}
				eval, err := svc.RecordFigureStatus(r.Context(), user, key, core.FigureID(req.FigureID), core.FigureStatus(req.Status), evalOpts)
				if err != nil {
					writeEvalError(w, err)
					return
				}
				writeJSON(w, eval)
				return
			case "trainings":
				var req trainingRequest
				if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
					writeError(w, http.StatusBadRequest, "invalid_body", "malformed JSON body", nil)
					return
				}
				if err := core.ValidateID(req.LevelID); err != nil {
					writeError(w, http.StatusBadRequest, "invalid_level", err.Error(), nil)
					return
				}
				if err := core.ValidateID(req.TrainingID); err != nil {
					writeError(w, http.StatusBadRequest, "invalid_training", err.Error(), nil)
					return
				}
				eval, err := svc.RecordTraining(r.Context(), user, key, core.LevelID(req.LevelID), core.TrainingID(req.TrainingID), evalOpts)
				if err != nil {
					writeEvalError(w, err)
					return
				}
				writeJSON(w, eval)
				return
			case "challenges":
				var req challengeRequest
				if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
					writeError(w, http.StatusBadRequest, "invalid_body", "malformed JSON body", nil)
					return
				}
				if err := core.ValidateID(req.ChallengeID); err != nil {
					writeError(w, http.StatusBadRequest, "invalid_challenge", err.Error(), nil)
					return
				}
				eval, err := svc.RecordChallenge(r.Context(), user, key, core.ChallengeParticipation{
					ChallengeID:   core.ChallengeID(req.ChallengeID),
					Participating: req.Participating,
					Completed:     req.Completed,
					Status:        req.Status,
				}, evalOpts)
				if err != nil {
					writeEvalError(w, err)
					return
				}
				writeJSON(w, eval)
				return
			}
		}
		writeError(w, http.StatusNotFound, "not_found", "route not found", nil)
	})

	var handler http.Handler = mux
	if opts.AllowCORSOrigin != "" {
		handler = withCORS(handler, opts.AllowCORSOrigin)
	}
	if len(opts.APIKeys) > 0 {
		handler = withAPIKeyAuth(handler, opts.APIKeys)
	}
	if opts.RateLimitEnabled && opts.RateLimitRPM > 0 && opts.RateLimitBurst > 0 {
		handler = withRateLimit(handler, opts.RateLimitRPM, opts.RateLimitBurst)
	}
	return handler
}

// Helpers

func evaluateOptions(r *http.Request, opts Options) engine.EvaluateOptions {
	q := r.URL.Query()
	return engine.EvaluateOptions{
		AdminPreview: boolParam(q.Get("admin_preview")),
		DemoEnabled:  opts.DemoEnabled || boolParam(q.Get("demo")),
		Premium:      boolParam(q.Get("premium")),
	}
}

func boolParam(v string) bool {
	b, err := strconv.ParseBool(v)
	return err == nil && b
}

func writeEvalError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, core.ErrPathNotFound):
		writeError(w, http.StatusNotFound, "path_not_found", err.Error(), nil)
	case errors.Is(err, engine.ErrInvalidStatus):
		writeError(w, http.StatusBadRequest, "invalid_status", err.Error(), nil)
	default:
		writeError(w, http.StatusInternalServerError, "internal", err.Error(), nil)
	}
}

// healthCheck verifies the service is working properly
func healthCheck(w http.ResponseWriter, r *http.Request, svc *engine.ProgressService) {
	ctx := r.Context()

	// Verify storage works by fetching a probe snapshot.
	// Safe and lightweight, does not affect real data.
	_, err := svc.Snapshot(ctx, core.UserID("healthcheck_probe"), "")

	status := map[string]any{
		"status": "healthy",
		"checks": map[string]any{
			"storage": "ok",
		},
	}

	if err != nil {
		w.WriteHeader(http.StatusServiceUnavailable)
		status["status"] = "unhealthy"
		status["checks"].(map[string]any)["storage"] = "failed"
	} else {
		w.WriteHeader(http.StatusOK)
	}

	writeJSON(w, status)
}

func withPrefix(prefix, path string) string {
	if prefix == "" || prefix == "/" {
		return path
	}
	if prefix[len(prefix)-1] == '/' {
		return prefix[:len(prefix)-1] + path
	}
	return prefix + path
}

func routeParts(path, prefix string) []string {
	p := strings.TrimPrefix(path, prefix)
	if p == "" || p[0] != '/' {
		p = "/" + p
	}
	return split(p, '/')
}

func split(p string, sep rune) []string {
	var parts []string
	cur := make([]rune, 0, len(p))
	// trim leading '/'
	for len(p) > 0 && p[0] == '/' {
		p = p[1:]
	}
	for _, r := range p {
		if r == sep {
			if len(cur) > 0 {
				parts = append(parts, string(cur))
				cur = cur[:0]
			}
			continue
		}
		cur = append(cur, r)
	}
	if len(cur) > 0 {
		parts = append(parts, string(cur))
	}
	return parts
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

type apiError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

func writeError(w http.ResponseWriter, status int, code, msg string, details any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(apiError{Code: code, Message: msg, Details: details})
}

// withCORS wraps a handler with a minimal CORS policy.
func withCORS(next http.Handler, origin string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", origin)
		w.Header().Set("Vary", "Origin")
		if r.Method == http.MethodOptions {
			w.Header().Set("Access-Control-Allow-Methods", "GET,POST,OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type,Authorization")
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// withAPIKeyAuth enforces a shared API key list.
func withAPIKeyAuth(next http.Handler, apiKeys []string) http.Handler {
	allowed := make(map[string]struct{}, len(apiKeys))
	for _, k := range apiKeys {
		k = strings.TrimSpace(k)
		if k != "" {
			allowed[k] = struct{}{}
		}
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := extractAPIKey(r)
		if key == "" {
			writeError(w, http.StatusUnauthorized, "unauthorized", "missing API key", nil)
			return
		}
		if _, ok := allowed[key]; !ok {
			writeError(w, http.StatusUnauthorized, "unauthorized", "invalid API key", nil)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// withRateLimit applies a simple token-bucket limiter per client key.
func withRateLimit(next http.Handler, rpm int, burst int) http.Handler {
	limiter := newRateLimiter(rpm, burst)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := clientKey(r)
		if !limiter.allow(key) {
			writeError(w, http.StatusTooManyRequests, "rate_limited", "too many requests", nil)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func extractAPIKey(r *http.Request) string {
	auth := r.Header.Get("Authorization")
	if strings.HasPrefix(strings.ToLower(auth), "bearer ") {
		return strings.TrimSpace(auth[7:])
	}
	if key := r.Header.Get("X-API-Key"); key != "" {
		return key
	}
	return ""
}

// clientKey uses API key if present, otherwise remote IP.
func clientKey(r *http.Request) string {
	if key := extractAPIKey(r); key != "" {
		return key
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

type rateLimiter struct {
	rpm   float64
	burst float64
	mu    sync.Mutex
	b     map[string]*bucket
}

type bucket struct {
	tokens float64
	last   time.Time
}

func newRateLimiter(rpm, burst int) *rateLimiter {
	return &rateLimiter{
		rpm:   float64(rpm),
		burst: float64(burst),
		b:     make(map[string]*bucket),
	}
}

func (l *rateLimiter) allow(key string) bool {
	now := time.Now()
	l.mu.Lock()
	defer l.mu.Unlock()

	b, ok := l.b[key]
	if !ok {
		l.b[key] = &bucket{tokens: l.burst - 1, last: now}
		return true
	}

	elapsed := now.Sub(b.last).Minutes()
	b.tokens += elapsed * l.rpm
	if b.tokens > l.burst {
		b.tokens = l.burst
	}
	if b.tokens < 1 {
		b.last = now
		return false
	}
	b.tokens--
	b.last = now
	return true
}
