package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"

	"lifebook/internal/app"
	"lifebook/internal/pipeline"
	"lifebook/pkg/ai"
	"lifebook/pkg/domain"
	"lifebook/pkg/store"
)

type stubVerifier struct {
	subjects map[string]string
}

func (v *stubVerifier) VerifySubject(token string) (string, error) {
	if uid, ok := v.subjects[token]; ok {
		return uid, nil
	}
	return "", errors.New("unknown token")
}

type fakeText struct {
	mu sync.Mutex
	fn func(system, user string) (string, error)
}

func (f *fakeText) GenerateText(_ context.Context, system, user string, _ ...ai.TextOption) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fn != nil {
		return f.fn(system, user)
	}
	return "generated text", nil
}

type fakeImage struct{}

func (f *fakeImage) GenerateImage(context.Context, string) ([]byte, error) {
	return []byte{0x89, 0x50, 0x4e, 0x47}, nil
}

type fakeObjects struct {
	mu   sync.Mutex
	puts int
}

func (f *fakeObjects) PutPublic(_ context.Context, key string, _ []byte, _ string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.puts++
	return "https://cdn.test/" + key, nil
}

func (f *fakeObjects) Delete(context.Context, string) error { return nil }

func (f *fakeObjects) KeyFromURL(rawURL string) (string, bool) {
	key, ok := strings.CutPrefix(rawURL, "https://cdn.test/")
	return key, ok
}

type stubGate struct {
	remaining time.Duration
	recorded  int
}

func (g *stubGate) Remaining(context.Context, string) (time.Duration, error) {
	return g.remaining, nil
}

func (g *stubGate) RecordSuccess(context.Context, string) error {
	g.recorded++
	return nil
}

func (g *stubGate) Window() time.Duration { return 10 * time.Minute }

type testEnv struct {
	server *Server
	store  *store.MemoryStore
	gate   *stubGate
	redis  *miniredis.Miniredis
}

func newTestEnv(t *testing.T, text *fakeText) *testEnv {
	t.Helper()
	mr := miniredis.RunT(t)
	if text == nil {
		text = &fakeText{fn: func(system, user string) (string, error) {
			if strings.Contains(system, "편집자") {
				return "장면 하나 ::: 장면 둘", nil
			}
			if strings.Contains(system, "키워드") {
				return "바다, 가족, 여름", nil
			}
			return "생성된 텍스트", nil
		}}
	}
	st := store.NewMemoryStore()
	objects := &fakeObjects{}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	pipe := pipeline.New(text, &fakeImage{}, objects, st, logger,
		pipeline.WithImageInterval(time.Millisecond))
	gate := &stubGate{}
	a := app.New(st, objects, text, &fakeImage{}, pipe, gate, logger)
	srv, err := New(Config{
		App: a,
		TokenVerifier: &stubVerifier{subjects: map[string]string{
			"token-1": "user-1",
			"token-2": "user-2",
		}},
		RedisAddr:                  mr.Addr(),
		GenerateRateLimitPerMinute: 100,
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return &testEnv{server: srv, store: st, gate: gate, redis: mr}
}

func doJSON(t *testing.T, handler http.Handler, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func memoirBody() map[string]any {
	return map[string]any{
		"qnaData": map[string]string{
			"penName": "김작가",
			"start":   "1999년",
		},
		"fullStory": "어린 시절 바닷가 마을 이야기.",
	}
}

func TestCreateMemoirRequiresAuth(t *testing.T) {
	env := newTestEnv(t, nil)
	router := env.server.Router()

	rec := doJSON(t, router, http.MethodPost, "/api/memoirs", "", memoirBody())
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("no token: expected 401, got %d", rec.Code)
	}

	rec = doJSON(t, router, http.MethodPost, "/api/memoirs", "bogus", memoirBody())
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("bad token: expected 401, got %d", rec.Code)
	}
	var resp struct {
		Code string `json:"code"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode error body: %v", err)
	}
	if resp.Code != "unauthenticated" {
		t.Fatalf("expected unauthenticated code, got %q", resp.Code)
	}
	if env.store.DocumentCount() != 0 {
		t.Fatalf("no document should exist, got %d", env.store.DocumentCount())
	}
}

func TestCreateMemoirHappyPath(t *testing.T) {
	env := newTestEnv(t, nil)
	router := env.server.Router()

	rec := doJSON(t, router, http.MethodPost, "/api/memoirs", "token-1", memoirBody())
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	var resp struct {
		Status     string          `json:"status"`
		DocumentID string          `json:"documentId"`
		Document   domain.Document `json:"document"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Status != "success" {
		t.Fatalf("status: expected success, got %q", resp.Status)
	}
	if resp.DocumentID == "" || resp.DocumentID != resp.Document.ID {
		t.Fatalf("documentId %q should match document id %q", resp.DocumentID, resp.Document.ID)
	}
	if resp.Document.OwnerID != "user-1" {
		t.Fatalf("owner: expected user-1, got %q", resp.Document.OwnerID)
	}
	if resp.Document.Kind != domain.KindMemoir {
		t.Fatalf("kind: expected memoir, got %q", resp.Document.Kind)
	}
	if len(resp.Document.Pages) == 0 {
		t.Fatalf("expected pages in response")
	}
	if env.gate.recorded != 1 {
		t.Fatalf("cooldown should be recorded once, got %d", env.gate.recorded)
	}
}

func TestCreateMemoirCooldownResponse(t *testing.T) {
	env := newTestEnv(t, nil)
	env.gate.remaining = 90 * time.Second
	router := env.server.Router()

	rec := doJSON(t, router, http.MethodPost, "/api/memoirs", "token-1", memoirBody())
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", rec.Code)
	}
	if got := rec.Header().Get("Retry-After"); got != "90" {
		t.Fatalf("Retry-After: expected 90, got %q", got)
	}
	var resp struct {
		Code string `json:"code"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode error body: %v", err)
	}
	if resp.Code != "rate_limited" {
		t.Fatalf("expected rate_limited code, got %q", resp.Code)
	}
}

func TestRetryAfterRoundsUpToWholeSeconds(t *testing.T) {
	env := newTestEnv(t, nil)
	env.gate.remaining = 89400 * time.Millisecond
	router := env.server.Router()

	rec := doJSON(t, router, http.MethodPost, "/api/memoirs", "token-1", memoirBody())
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", rec.Code)
	}
	if got := rec.Header().Get("Retry-After"); got != "90" {
		t.Fatalf("Retry-After: expected 90 (rounded up from 89.4s), got %q", got)
	}
}

func TestMemoirStoryRequiresAuth(t *testing.T) {
	env := newTestEnv(t, nil)
	router := env.server.Router()

	body := map[string]any{"qnaData": map[string]string{"start": "1999년"}}

	rec := doJSON(t, router, http.MethodPost, "/api/memoirs/story", "", body)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("no token: expected 401, got %d", rec.Code)
	}

	rec = doJSON(t, router, http.MethodPost, "/api/memoirs/story", "token-1", body)
	if rec.Code != http.StatusOK {
		t.Fatalf("authed: expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var resp struct {
		Story   string `json:"story"`
		Summary string `json:"summary"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if resp.Story == "" || resp.Summary == "" {
		t.Fatalf("expected story and summary, got %+v", resp)
	}
}

func TestCooldownStatusEndpoint(t *testing.T) {
	env := newTestEnv(t, nil)
	env.gate.remaining = 299500 * time.Millisecond
	router := env.server.Router()

	rec := doJSON(t, router, http.MethodGet, "/api/memoirs/cooldown", "token-1", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var resp struct {
		OnCooldown       bool `json:"onCooldown"`
		RemainingSeconds int  `json:"remainingSeconds"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if !resp.OnCooldown || resp.RemainingSeconds != 300 {
		t.Fatalf("expected onCooldown with 300s, got %+v", resp)
	}
}

func TestGenerateRateLimit(t *testing.T) {
	env := newTestEnv(t, nil)
	// Rebuild with a tight limit on the same redis.
	srv, err := New(Config{
		App:                        env.server.app,
		TokenVerifier:              env.server.verifier,
		RedisAddr:                  env.redis.Addr(),
		GenerateRateLimitPerMinute: 2,
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	router := srv.Router()

	body := map[string]string{"userAnswer": "오늘 정원을 가꿨어요"}
	for i := 0; i < 2; i++ {
		rec := doJSON(t, router, http.MethodPost, "/api/empathy", "", body)
		if rec.Code != http.StatusOK {
			t.Fatalf("request %d: expected 200, got %d: %s", i+1, rec.Code, rec.Body.String())
		}
	}
	rec := doJSON(t, router, http.MethodPost, "/api/empathy", "", body)
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429 after limit, got %d", rec.Code)
	}
	if rec.Header().Get("Retry-After") == "" {
		t.Fatalf("expected Retry-After header on 429")
	}
}

func TestTextEndpointErrorMapping(t *testing.T) {
	failing := &fakeText{fn: func(string, string) (string, error) {
		return "", errors.New("connection refused")
	}}
	env := newTestEnv(t, failing)
	router := env.server.Router()

	rec := doJSON(t, router, http.MethodPost, "/api/books/title",
		"", map[string]string{"fullStory": "옛날 옛적에"})
	if rec.Code != http.StatusBadGateway {
		t.Fatalf("expected 502, got %d", rec.Code)
	}
	var resp struct {
		Code string `json:"code"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode error body: %v", err)
	}
	if resp.Code != "upstream_unavailable" {
		t.Fatalf("expected upstream_unavailable, got %q", resp.Code)
	}
}

func TestEmptyCompletionMapsToGenerationFailed(t *testing.T) {
	empty := &fakeText{fn: func(string, string) (string, error) {
		return "", ai.ErrEmptyCompletion
	}}
	env := newTestEnv(t, empty)
	router := env.server.Router()

	rec := doJSON(t, router, http.MethodPost, "/api/books/title",
		"", map[string]string{"fullStory": "옛날 옛적에"})
	if rec.Code != http.StatusBadGateway {
		t.Fatalf("expected 502, got %d", rec.Code)
	}
	var resp struct {
		Code string `json:"code"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode error body: %v", err)
	}
	if resp.Code != "generation_failed" {
		t.Fatalf("expected generation_failed, got %q", resp.Code)
	}
}

func TestMythTitlesShape(t *testing.T) {
	titles := &fakeText{fn: func(string, string) (string, error) {
		return "1. 별의 약속\n2. 바람의 서사\n3. 새벽의 강\n4. 불꽃의 길", nil
	}}
	env := newTestEnv(t, titles)
	router := env.server.Router()

	rec := doJSON(t, router, http.MethodPost, "/api/myths/titles",
		"", map[string]string{"fullStory": "주인공은 먼 길을 떠났다."})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var resp struct {
		Titles []string `json:"titles"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if len(resp.Titles) != 4 || resp.Titles[0] != "별의 약속" {
		t.Fatalf("unexpected titles: %v", resp.Titles)
	}
}

func TestDocumentDeleteOwnershipOverHTTP(t *testing.T) {
	env := newTestEnv(t, nil)
	router := env.server.Router()

	rec := doJSON(t, router, http.MethodPost, "/api/memoirs", "token-1", memoirBody())
	if rec.Code != http.StatusCreated {
		t.Fatalf("create: expected 201, got %d", rec.Code)
	}
	var created struct {
		DocumentID string `json:"documentId"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &created); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	docID := created.DocumentID

	rec = doJSON(t, router, http.MethodDelete, "/api/documents/"+docID, "token-2", nil)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("foreign delete: expected 403, got %d", rec.Code)
	}

	rec = doJSON(t, router, http.MethodDelete, "/api/documents/"+docID, "token-1", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("owner delete: expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	rec = doJSON(t, router, http.MethodDelete, "/api/documents/"+docID, "token-1", nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("second delete: expected 404, got %d", rec.Code)
	}
}

func TestListDocumentsScopedToCaller(t *testing.T) {
	env := newTestEnv(t, nil)
	router := env.server.Router()

	if rec := doJSON(t, router, http.MethodPost, "/api/memoirs", "token-1", memoirBody()); rec.Code != http.StatusCreated {
		t.Fatalf("create: expected 201, got %d", rec.Code)
	}

	rec := doJSON(t, router, http.MethodGet, "/api/documents", "token-2", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var resp struct {
		Items []domain.Document `json:"items"`
		Count int               `json:"count"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if resp.Count != 0 || len(resp.Items) != 0 {
		t.Fatalf("user-2 should see no documents, got %d", resp.Count)
	}
}

func TestSubmitInterviewOptionalIdentity(t *testing.T) {
	env := newTestEnv(t, nil)
	router := env.server.Router()

	body := map[string]any{
		"userInfo": map[string]string{"penName": "참여자A"},
		"conversation": []map[string]string{
			{"question": "농사를 시작한 계기는?", "answer": "가업을 잇고 싶었어요"},
		},
	}
	rec := doJSON(t, router, http.MethodPost, "/api/interviews", "", body)
	if rec.Code != http.StatusCreated {
		t.Fatalf("anonymous: expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	var anon domain.Interview
	if err := json.Unmarshal(rec.Body.Bytes(), &anon); err != nil {
		t.Fatalf("decode interview: %v", err)
	}
	if anon.UserID != "" {
		t.Fatalf("anonymous interview should have empty userId, got %q", anon.UserID)
	}

	rec = doJSON(t, router, http.MethodPost, "/api/interviews", "token-1", body)
	if rec.Code != http.StatusCreated {
		t.Fatalf("authed: expected 201, got %d", rec.Code)
	}
	var authed domain.Interview
	if err := json.Unmarshal(rec.Body.Bytes(), &authed); err != nil {
		t.Fatalf("decode interview: %v", err)
	}
	if authed.UserID != "user-1" {
		t.Fatalf("expected userId user-1, got %q", authed.UserID)
	}
}

func TestSubmitLeadValidation(t *testing.T) {
	env := newTestEnv(t, nil)
	router := env.server.Router()

	rec := doJSON(t, router, http.MethodPost, "/api/smartfarm/leads",
		"", map[string]string{"name": "김철수", "phone": "", "email": "a@b.c"})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}

	rec = doJSON(t, router, http.MethodPost, "/api/smartfarm/leads",
		"", map[string]string{"name": " 김철수 ", "phone": "010-1234-5678", "email": "a@b.c"})
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	var lead domain.Lead
	if err := json.Unmarshal(rec.Body.Bytes(), &lead); err != nil {
		t.Fatalf("decode lead: %v", err)
	}
	if lead.Name != "김철수" {
		t.Fatalf("name should be trimmed, got %q", lead.Name)
	}
}

func TestInvalidJSONBody(t *testing.T) {
	env := newTestEnv(t, nil)
	router := env.server.Router()

	req := httptest.NewRequest(http.MethodPost, "/api/empathy", strings.NewReader("{not json"))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestMethodNotAllowed(t *testing.T) {
	env := newTestEnv(t, nil)
	router := env.server.Router()

	for _, path := range []string{"/api/memoirs", "/api/documents"} {
		rec := doJSON(t, router, http.MethodPut, path, "token-1", nil)
		if rec.Code != http.StatusMethodNotAllowed {
			t.Fatalf("%s: expected 405, got %d", path, rec.Code)
		}
	}
}

func TestHealthz(t *testing.T) {
	env := newTestEnv(t, nil)
	router := env.server.Router()

	rec := doJSON(t, router, http.MethodGet, "/healthz", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if got := rec.Header().Get("X-Request-Id"); got == "" {
		t.Fatalf("expected X-Request-Id header")
	}
}

func TestRequestIDEchoedOnErrors(t *testing.T) {
	env := newTestEnv(t, nil)
	router := env.server.Router()

	req := httptest.NewRequest(http.MethodPost, "/api/memoirs", bytes.NewReader([]byte(`{}`)))
	req.Header.Set("X-Request-Id", "req-abc-123")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
	var resp struct {
		RequestID string `json:"requestId"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode error body: %v", err)
	}
	if resp.RequestID != "req-abc-123" {
		t.Fatalf("expected request id echoed, got %q", resp.RequestID)
	}
}

func TestInterviewRespondShape(t *testing.T) {
	env := newTestEnv(t, nil)
	router := env.server.Router()

	rec := doJSON(t, router, http.MethodPost, "/api/interviews/respond", "", map[string]string{
		"previousQuestion": "처음 농사를 시작했을 때 어땠나요?",
		"userAnswer":       "막막했지만 설렜습니다",
		"nextQuestion":     "가장 힘들었던 순간은 언제였나요?",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var resp struct {
		Response string `json:"response"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if resp.Response == "" {
		t.Fatalf("expected non-empty response")
	}

	rec = doJSON(t, router, http.MethodPost, "/api/interviews/respond", "", map[string]string{
		"previousQuestion": "질문",
	})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("missing fields: expected 400, got %d", rec.Code)
	}
}

func TestCreateArticleOverHTTP(t *testing.T) {
	env := newTestEnv(t, nil)
	router := env.server.Router()

	body := map[string]any{
		"userInfo": map[string]string{"penName": "이농부"},
		"summary":  "스마트팜으로 첫 수확에 성공했다.",
		"headline": "청년 농부, 스마트팜으로 미래를 열다",
		"style":    "사회면",
	}
	rec := doJSON(t, router, http.MethodPost, "/api/articles", "token-1", body)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	var resp struct {
		Status    string         `json:"status"`
		ArticleID string         `json:"articleId"`
		Article   domain.Article `json:"article"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Status != "success" || resp.ArticleID == "" {
		t.Fatalf("expected success with articleId, got %+v", resp)
	}
	if resp.Article.OwnerID != "user-1" {
		t.Fatalf("owner: expected user-1, got %q", resp.Article.OwnerID)
	}
	if !strings.Contains(resp.Article.ImageURL, fmt.Sprintf("newspaper-articles/%s/", "user-1")) {
		t.Fatalf("unexpected image url %q", resp.Article.ImageURL)
	}
}
