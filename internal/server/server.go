package server

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"io"
	"io/fs"
	"net/http"
	"strconv"
	"time"

	"github.com/Masterminds/sprig/v3"
	"github.com/go-chi/chi/v5"

	"starbroker/internal/app"
	"starbroker/internal/ratelimit"
	"starbroker/internal/util"
	"starbroker/pkg/domain"
	"starbroker/pkg/store"
	"starbroker/web"
)

// NavigationHeader carries the navigate tool's result to the browser as
// JSON, a typed channel alongside the assistant's prose.
const NavigationHeader = "X-Starbroker-Navigation"

const (
	galleryPageSize = 50
	rateWindow      = time.Minute
)

// Config wires required dependencies for the HTTP server.
type Config struct {
	App     *app.App
	Catalog store.Store

	Theme                  string
	RedisAddr              string
	RedisPassword          string
	ChatRateLimitPerMinute int
	TrustedProxyCIDRs      []string
}

// Server exposes the page routes, static assets, and the chat API.
type Server struct {
	app         *app.App
	catalog     store.Store
	theme       string
	tmpl        *template.Template
	chatLimiter *ratelimit.FixedWindowLimiter
	proxies     *util.TrustedProxies
	router      chi.Router
}

// New constructs the server with routes configured. The chat rate limiter
// is wired only when a Redis address is set; the demo default runs without
// one.
func New(cfg Config) (*Server, error) {
	funcMap := sprig.HtmlFuncMap()
	funcMap["formatDistance"] = formatDistance
	funcMap["formatMagnitude"] = formatMagnitude

	tmpl, err := template.New("").Funcs(funcMap).ParseFS(web.Templates,
		"templates/includes/*.tmpl",
		"templates/pages/*.tmpl",
	)
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}

	proxies, err := util.NewTrustedProxies(cfg.TrustedProxyCIDRs)
	if err != nil {
		return nil, fmt.Errorf("parse trusted proxies: %w", err)
	}

	s := &Server{
		app:     cfg.App,
		catalog: cfg.Catalog,
		theme:   cfg.Theme,
		tmpl:    tmpl,
		proxies: proxies,
	}

	if cfg.RedisAddr != "" && cfg.ChatRateLimitPerMinute > 0 {
		limiter, err := ratelimit.NewRedisFixedWindowLimiter(
			cfg.RedisAddr, cfg.RedisPassword, "starbroker:chat",
			cfg.ChatRateLimitPerMinute, rateWindow,
		)
		if err != nil {
			return nil, fmt.Errorf("init chat rate limiter: %w", err)
		}
		s.chatLimiter = limiter
	}

	s.routes()
	return s, nil
}

// Router returns the configured handler.
func (s *Server) Router() http.Handler {
	return s.router
}

func (s *Server) routes() {
	r := chi.NewRouter()
	r.Use(util.WithRequestID)
	r.Use(util.WithRequestLog)
	r.Use(util.WithSecurityHeaders)
	r.Use(util.WithCORS)

	r.Get("/healthz", s.handleHealth)
	r.Post("/api/chat", s.handleChat)
	r.Get("/", s.handleGallery)
	r.Get("/star/{id}", s.handleStar)

	static, err := fs.Sub(web.Static, "static")
	if err != nil {
		panic(fmt.Sprintf("embedded static assets missing: %v", err))
	}
	r.Handle("/static/*", http.StripPrefix("/static/", http.FileServer(http.FS(static))))

	s.router = r
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type chatRequest struct {
	Message string `json:"message"`
	History []struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	} `json:"history"`
	SystemPrompt string `json:"systemPrompt"`
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	if !s.allowRate(w, r) {
		return
	}
	var req chatRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, 1<<20)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.Message == "" {
		writeError(w, http.StatusBadRequest, "message is required")
		return
	}

	history := make([]domain.Message, 0, len(req.History))
	for _, m := range req.History {
		history = append(history, domain.Message{Role: domain.Role(m.Role), Content: m.Content})
	}

	logger := util.LoggerFromContext(r.Context())
	result, err := s.app.RunTurn(r.Context(), app.TurnRequest{
		Message:      req.Message,
		History:      history,
		SystemPrompt: req.SystemPrompt,
	})
	if err != nil {
		if errors.Is(err, app.ErrEmptyMessage) {
			writeError(w, http.StatusBadRequest, "message is required")
			return
		}
		logger.Error("chat_turn_failed", "class", app.Classify(err), "err", err)
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	if result.Navigation != nil {
		nav, err := json.Marshal(result.Navigation)
		if err == nil {
			w.Header().Set(NavigationHeader, string(nav))
		}
	}
	// No Content-Length: the reply goes out chunked in one flush.
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = io.WriteString(w, result.Reply)
	if f, ok := w.(http.Flusher); ok {
		f.Flush()
	}
}

func (s *Server) handleGallery(w http.ResponseWriter, r *http.Request) {
	stars, err := s.catalog.ListStars(galleryPageSize)
	if err != nil {
		util.LoggerFromContext(r.Context()).Error("list stars", "err", err)
		s.renderErrorPage(w, r)
		return
	}
	s.render(w, r, http.StatusOK, "gallery", pageData{Title: "Gallery", ThemeAccent: s.theme, Stars: stars})
}

func (s *Server) handleStar(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		s.render(w, r, http.StatusNotFound, "notfound", pageData{Title: "Star Not Found", ThemeAccent: s.theme})
		return
	}
	star, found, err := s.catalog.GetStar(id)
	if err != nil {
		util.LoggerFromContext(r.Context()).Error("get star", "id", id, "err", err)
		s.renderErrorPage(w, r)
		return
	}
	if !found {
		s.render(w, r, http.StatusNotFound, "notfound", pageData{Title: "Star Not Found", ThemeAccent: s.theme})
		return
	}
	s.render(w, r, http.StatusOK, "star", pageData{Title: star.Name, ThemeAccent: s.theme, Star: star})
}

type pageData struct {
	Title       string
	ThemeAccent string
	Stars       []domain.Star
	Star        domain.Star
}

// render executes the named page into a buffer first so a template failure
// can still become a clean error response.
func (s *Server) render(w http.ResponseWriter, r *http.Request, status int, name string, data pageData) {
	var buf bytes.Buffer
	if err := s.tmpl.ExecuteTemplate(&buf, name, data); err != nil {
		util.LoggerFromContext(r.Context()).Error("render template", "template", name, "err", err)
		s.renderErrorPage(w, r)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

func (s *Server) renderErrorPage(w http.ResponseWriter, r *http.Request) {
	var buf bytes.Buffer
	if err := s.tmpl.ExecuteTemplate(&buf, "error", pageData{Title: "Error", ThemeAccent: s.theme}); err != nil {
		util.LoggerFromContext(r.Context()).Error("render error page", "err", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusInternalServerError)
	_, _ = buf.WriteTo(w)
}

func (s *Server) allowRate(w http.ResponseWriter, r *http.Request) bool {
	if s.chatLimiter == nil {
		return true
	}
	key := r.URL.Path + "|" + util.ClientIP(r, s.proxies)
	if s.chatLimiter.Allow(key) {
		return true
	}
	util.LoggerFromContext(r.Context()).Warn("security_event", "event", "rate_limited", "path", r.URL.Path)
	w.Header().Set("Retry-After", "60")
	writeError(w, http.StatusTooManyRequests, "too many chat requests")
	return false
}

func formatDistance(lightYears float64) string {
	return strconv.FormatFloat(lightYears, 'f', -1, 64) + " light-years"
}

func formatMagnitude(magnitude float64) string {
	return strconv.FormatFloat(magnitude, 'f', 2, 64)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
