package server

import (
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"lifebook/internal/app"
	"lifebook/internal/ratelimit"
	"lifebook/internal/util"
	"lifebook/pkg/domain"
)

// TokenVerifier checks a bearer token and returns the caller's user id.
// The JWKS implementation lives in internal/usertoken; tests stub it.
type TokenVerifier interface {
	VerifySubject(token string) (string, error)
}

// Config wires required dependencies for the HTTP server.
type Config struct {
	App                        *app.App
	TokenVerifier              TokenVerifier
	RedisAddr                  string
	RedisPassword              string
	GenerateRateLimitPerMinute int
	TrustedProxies             *util.TrustedProxies
}

// Server exposes the HTTP endpoints of the lifebook service.
type Server struct {
	app        *app.App
	verifier   TokenVerifier
	mux        *http.ServeMux
	genLimiter *ratelimit.FixedWindowLimiter
	trusted    *util.TrustedProxies
}

// New constructs the server with routes configured.
func New(cfg Config) (*Server, error) {
	genLimit := cfg.GenerateRateLimitPerMinute
	if genLimit <= 0 {
		genLimit = 20
	}
	genLimiter, err := ratelimit.NewRedisFixedWindowLimiter(
		cfg.RedisAddr, cfg.RedisPassword, "lifebook:ratelimit:generate", genLimit, time.Minute)
	if err != nil {
		return nil, fmt.Errorf("init generate limiter: %w", err)
	}
	s := &Server{
		app:        cfg.App,
		verifier:   cfg.TokenVerifier,
		mux:        http.NewServeMux(),
		genLimiter: genLimiter,
		trusted:    cfg.TrustedProxies,
	}
	s.routes()
	return s, nil
}

// Router returns the configured handler.
func (s *Server) Router() http.Handler {
	return util.WithRequestID(util.WithRequestLog("lifebook", util.WithSecurityHeaders(util.WithCORS(s.mux))))
}

func (s *Server) routes() {
	s.mux.HandleFunc("/healthz", s.handleHealth)

	// document pipelines (auth required)
	s.mux.Handle("/api/memoirs", s.withUser(s.rateLimited(s.handleCreateMemoir)))
	s.mux.Handle("/api/toddler-books", s.withUser(s.rateLimited(s.handleCreateToddlerBook)))
	s.mux.Handle("/api/myths", s.withUser(s.rateLimited(s.handleCreateMyth)))
	s.mux.Handle("/api/articles", s.withUser(s.rateLimited(s.handleCreateArticle)))
	s.mux.Handle("/api/memoirs/cooldown", s.withUser(s.handleCooldown))
	s.mux.Handle("/api/memoirs/story", s.withUser(s.rateLimited(s.handleMemoirStory)))

	// stored documents (auth required)
	s.mux.Handle("/api/documents", s.withUser(s.handleDocuments))
	s.mux.Handle("/api/documents/", s.withUser(s.handleDocumentByID))

	// single-call text generation (rate limited per IP)
	s.mux.HandleFunc("/api/toddler-books/story", s.generation(s.handleToddlerStory))
	s.mux.HandleFunc("/api/myths/story", s.generation(s.handleMythStory))
	s.mux.HandleFunc("/api/books/title", s.generation(s.handleBookTitle))
	s.mux.HandleFunc("/api/myths/titles", s.generation(s.handleMythTitles))
	s.mux.HandleFunc("/api/myths/author-intro", s.generation(s.handleAuthorIntro))
	s.mux.HandleFunc("/api/myths/respond", s.generation(s.handleMythRespond))
	s.mux.HandleFunc("/api/empathy", s.generation(s.handleEmpathy))
	s.mux.HandleFunc("/api/interviews/respond", s.generation(s.handleInterviewRespond))
	s.mux.HandleFunc("/api/smartfarm/respond", s.generation(s.handleSmartFarmRespond))
	s.mux.HandleFunc("/api/smartfarm/summary", s.generation(s.handleInterviewSummary))
	s.mux.HandleFunc("/api/articles/headlines", s.generation(s.handleHeadlines))

	// transcript / lead storage (identity optional)
	s.mux.HandleFunc("/api/interviews", s.handleSubmitInterview)
	s.mux.HandleFunc("/api/smartfarm/interviews", s.handleSubmitSmartFarmInterview)
	s.mux.HandleFunc("/api/smartfarm/leads", s.handleSubmitLead)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type userHandler func(http.ResponseWriter, *http.Request, string)

func (s *Server) withUser(next userHandler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.verifier == nil {
			writeAppError(w, app.NewError(app.CodeUnauthenticated, "인증이 설정되지 않았습니다"))
			return
		}
		token, ok := bearerToken(r)
		if !ok {
			writeAppError(w, app.NewError(app.CodeUnauthenticated, "로그인이 필요합니다"))
			return
		}
		userID, err := s.verifier.VerifySubject(token)
		if err != nil || strings.TrimSpace(userID) == "" {
			writeAppError(w, app.NewError(app.CodeUnauthenticated, "유효하지 않은 토큰입니다"))
			return
		}
		next(w, r, userID)
	})
}

// optionalUser resolves the user id when a valid bearer token is present and
// returns "" otherwise. Used by transcript storage where identity is optional.
func (s *Server) optionalUser(r *http.Request) string {
	if s.verifier == nil {
		return ""
	}
	token, ok := bearerToken(r)
	if !ok {
		return ""
	}
	userID, err := s.verifier.VerifySubject(token)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(userID)
}

func (s *Server) rateLimited(next userHandler) userHandler {
	return func(w http.ResponseWriter, r *http.Request, userID string) {
		if !s.allowGenerate(w, r) {
			return
		}
		next(w, r, userID)
	}
}

// generation wraps the open single-call text endpoints: POST only plus the
// per-IP generation limiter.
func (s *Server) generation(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			methodNotAllowed(w)
			return
		}
		if !s.allowGenerate(w, r) {
			return
		}
		next(w, r)
	}
}

func (s *Server) allowGenerate(w http.ResponseWriter, r *http.Request) bool {
	key := r.URL.Path + "|" + util.ClientIP(r, s.trusted)
	ok, retryAfter := s.genLimiter.Allow(key)
	if ok {
		return true
	}
	writeAppError(w, app.RateLimitedError("요청이 너무 많습니다. 잠시 후 다시 시도해주세요", retryAfter))
	return false
}

// document pipeline handlers

type pipelineRequest struct {
	QnAData   domain.AnswerSet `json:"qnaData"`
	FullStory string           `json:"fullStory"`
}

// documentCreatedResponse is the success shape of the document pipelines:
// status + documentId, with the persisted document included for clients that
// render immediately.
func documentCreatedResponse(doc domain.Document) map[string]any {
	return map[string]any{
		"status":     "success",
		"documentId": doc.ID,
		"document":   doc,
	}
}

func (s *Server) handleCreateMemoir(w http.ResponseWriter, r *http.Request, userID string) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	var req pipelineRequest
	if !decodeBody(w, r, &req) {
		return
	}
	doc, err := s.app.CreateMemoir(r.Context(), userID, req.QnAData, req.FullStory)
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, documentCreatedResponse(doc))
}

func (s *Server) handleCreateToddlerBook(w http.ResponseWriter, r *http.Request, userID string) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	var req pipelineRequest
	if !decodeBody(w, r, &req) {
		return
	}
	doc, err := s.app.CreateToddlerBook(r.Context(), userID, req.QnAData, req.FullStory)
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, documentCreatedResponse(doc))
}

func (s *Server) handleCreateMyth(w http.ResponseWriter, r *http.Request, userID string) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	var req pipelineRequest
	if !decodeBody(w, r, &req) {
		return
	}
	doc, err := s.app.CreateMyth(r.Context(), userID, req.QnAData)
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, documentCreatedResponse(doc))
}

type articleRequest struct {
	UserInfo        map[string]string `json:"userInfo"`
	Summary         string            `json:"summary"`
	Headline        string            `json:"headline"`
	Style           string            `json:"style"`
	IncludeHardship bool              `json:"includeHardship"`
}

func (s *Server) handleCreateArticle(w http.ResponseWriter, r *http.Request, userID string) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	var req articleRequest
	if !decodeBody(w, r, &req) {
		return
	}
	article, err := s.app.CreateArticle(r.Context(), userID, req.UserInfo, req.Summary, app.ArticleConfig{
		Headline:        req.Headline,
		Style:           req.Style,
		IncludeHardship: req.IncludeHardship,
	})
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{
		"status":    "success",
		"articleId": article.ID,
		"article":   article,
	})
}

func (s *Server) handleCooldown(w http.ResponseWriter, r *http.Request, userID string) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	onCooldown, remainingSeconds, err := s.app.CooldownStatus(r.Context(), userID)
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"onCooldown":       onCooldown,
		"remainingSeconds": remainingSeconds,
	})
}

// document read/delete handlers

func (s *Server) handleDocuments(w http.ResponseWriter, r *http.Request, userID string) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	docs, err := s.app.ListDocuments(r.Context(), userID)
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"items": docs,
		"count": len(docs),
	})
}

// /api/documents/{id}
func (s *Server) handleDocumentByID(w http.ResponseWriter, r *http.Request, userID string) {
	id := strings.TrimPrefix(r.URL.Path, "/api/documents/")
	if id == "" || strings.Contains(id, "/") {
		writeAppError(w, app.NewError(app.CodeNotFound, "not found"))
		return
	}
	if r.Method != http.MethodDelete {
		methodNotAllowed(w)
		return
	}
	if err := s.app.DeleteDocument(r.Context(), userID, id); err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

// transcript / lead handlers

type interviewRequest struct {
	UserInfo     map[string]string `json:"userInfo"`
	Conversation []domain.QA       `json:"conversation"`
	Summary      string            `json:"summary"`
}

func (s *Server) handleSubmitInterview(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	var req interviewRequest
	if !decodeBody(w, r, &req) {
		return
	}
	interview, err := s.app.SubmitInterview(r.Context(), s.optionalUser(r), req.UserInfo, req.Conversation)
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, interview)
}

func (s *Server) handleSubmitSmartFarmInterview(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	var req interviewRequest
	if !decodeBody(w, r, &req) {
		return
	}
	interview, err := s.app.SubmitSmartFarmInterview(r.Context(), req.UserInfo, req.Conversation, req.Summary)
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, interview)
}

type leadRequest struct {
	Name  string `json:"name"`
	Phone string `json:"phone"`
	Email string `json:"email"`
}

func (s *Server) handleSubmitLead(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	var req leadRequest
	if !decodeBody(w, r, &req) {
		return
	}
	lead, err := s.app.SubmitLead(r.Context(), req.Name, req.Phone, req.Email)
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, lead)
}

// helpers

func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(io.LimitReader(r.Body, 1<<20)).Decode(dst); err != nil {
		writeAppError(w, app.NewError(app.CodeInvalidInput, "invalid JSON body"))
		return false
	}
	return true
}

func bearerToken(r *http.Request) (string, bool) {
	authHeader := r.Header.Get("Authorization")
	if !strings.HasPrefix(authHeader, "Bearer ") {
		return "", false
	}
	token := strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer "))
	if token == "" {
		return "", false
	}
	return token, true
}

func methodNotAllowed(w http.ResponseWriter) {
	writeJSON(w, http.StatusMethodNotAllowed, errorResponse{
		Error: "method not allowed",
		Code:  "method_not_allowed",
	})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

type errorResponse struct {
	Error     string `json:"error"`
	Code      string `json:"code"`
	RequestID string `json:"requestId,omitempty"`
}

// writeAppError maps the typed error taxonomy onto HTTP statuses. Anything
// untyped is treated as an internal persistence-level failure.
func writeAppError(w http.ResponseWriter, err error) {
	appErr, ok := app.AsError(err)
	if !ok {
		appErr = app.WrapError(app.CodePersistenceFailed, "internal error", err)
	}
	status := statusForCode(appErr.Code)
	if appErr.Code == app.CodeRateLimited && appErr.RetryAfter > 0 {
		// Rounded up so callers never retry inside the window.
		seconds := int(math.Ceil(appErr.RetryAfter.Seconds()))
		w.Header().Set("Retry-After", strconv.Itoa(seconds))
	}
	writeJSON(w, status, errorResponse{
		Error:     appErr.Message,
		Code:      string(appErr.Code),
		RequestID: strings.TrimSpace(w.Header().Get("X-Request-Id")),
	})
}

func statusForCode(code app.Code) int {
	switch code {
	case app.CodeInvalidInput:
		return http.StatusBadRequest
	case app.CodeUnauthenticated:
		return http.StatusUnauthorized
	case app.CodePermissionDenied:
		return http.StatusForbidden
	case app.CodeNotFound:
		return http.StatusNotFound
	case app.CodeRateLimited:
		return http.StatusTooManyRequests
	case app.CodeGenerationFailed, app.CodeUpstreamUnavailable:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
