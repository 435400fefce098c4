package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/avvvet/kidzone-services/internal/websvc/kv"
	"github.com/avvvet/kidzone-services/internal/websvc/models"
	"github.com/avvvet/kidzone-services/internal/websvc/service"
	"github.com/avvvet/kidzone-services/internal/websvc/store"
	"github.com/go-chi/chi"
	"github.com/go-chi/jwtauth"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type FakeSubmissionStore struct {
	mu   sync.Mutex
	subs map[int64]*models.GameSubmission
}

func NewFakeSubmissionStore(subs ...*models.GameSubmission) *FakeSubmissionStore {
	f := &FakeSubmissionStore{subs: map[int64]*models.GameSubmission{}}
	for _, s := range subs {
		f.subs[s.ID] = s
	}
	return f
}

func (f *FakeSubmissionStore) Create(ctx context.Context, sub models.GameSubmission) (*models.GameSubmission, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	sub.ID = int64(len(f.subs) + 1)
	f.subs[sub.ID] = &sub
	return &sub, nil
}

func (f *FakeSubmissionStore) GetByID(ctx context.Context, id int64) (*models.GameSubmission, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.subs[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := *s
	return &cp, nil
}

func (f *FakeSubmissionStore) Moderate(ctx context.Context, id int64, status, reviewer, notes string) (*models.GameSubmission, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.subs[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	s.Status = status
	if status == models.SubmissionApproved {
		now := time.Now()
		s.ApprovedBy = &reviewer
		s.ApprovedAt = &now
	}
	cp := *s
	return &cp, nil
}

func (f *FakeSubmissionStore) LatestApproved(ctx context.Context, slug string) (*models.GameSubmission, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, s := range f.subs {
		if s.GameSlug == slug && s.Status == models.SubmissionApproved {
			cp := *s
			return &cp, nil
		}
	}
	return nil, store.ErrNotFound
}

func (f *FakeSubmissionStore) ListByStatus(ctx context.Context, status string, limit int) ([]*models.GameSubmission, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*models.GameSubmission
	for _, s := range f.subs {
		if status == "" || s.Status == status {
			cp := *s
			out = append(out, &cp)
		}
	}
	return out, nil
}

type FakeSessionStore struct {
	mu       sync.Mutex
	sessions map[string]*models.Session
}

func (f *FakeSessionStore) CreateSession(ctx context.Context, sess models.Session) (*models.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.sessions == nil {
		f.sessions = map[string]*models.Session{}
	}
	sess.StartedAt = time.Now()
	f.sessions[sess.ID] = &sess
	return &sess, nil
}

func (f *FakeSessionStore) GetSession(ctx context.Context, id string) (*models.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.sessions[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := *s
	return &cp, nil
}

func (f *FakeSessionStore) EndSession(ctx context.Context, id string, score store.ScoreFunc) (*models.SessionClose, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	sess, ok := f.sessions[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	if sess.EndedAt != nil {
		return nil, store.ErrSessionClosed
	}
	now := time.Now()
	sc := score(models.SessionStats{})
	sess.EndedAt, sess.Score = &now, &sc
	return &models.SessionClose{Score: sc, EndedAt: now}, nil
}

func (f *FakeSessionStore) CloseStale(ctx context.Context, cutoff time.Time) (int64, error) {
	return 0, nil
}

func (f *FakeSessionStore) ListProgress(ctx context.Context, userID int64) ([]models.FactProgress, error) {
	return nil, nil
}

func (f *FakeSessionStore) ApplyAttempt(ctx context.Context, userID int64, sessionID string, fact models.Fact, decide store.AttemptFunc) (*models.Attempt, *models.FactProgress, error) {
	p, a, _ := decide(models.FactProgress{UserID: userID, Fact: fact})
	return &a, &p, nil
}

func (f *FakeSessionStore) Stats(ctx context.Context, sessionID string) (models.SessionStats, error) {
	return models.SessionStats{}, nil
}

type testServer struct {
	router    *chi.Mux
	tokenAuth *jwtauth.JWTAuth
	subs      *FakeSubmissionStore
	sessions  *FakeSessionStore
}

func newTestServer(t *testing.T, board service.ScoreBoard, subs ...*models.GameSubmission) *testServer {
	t.Helper()
	tokenAuth := jwtauth.New("HS256", []byte("test-secret"), nil)
	subStore := NewFakeSubmissionStore(subs...)
	sessions := &FakeSessionStore{}
	scores := service.NewScoreService(board)

	h := NewHandler(tokenAuth, Services{
		Submissions: service.NewSubmissionService(subStore, nil),
		Tables:      service.NewTablesService(sessions, scores),
		Scores:      scores,
		Catalog:     service.NewCatalogService(subStore),
		Friends:     service.NewFriendService(nil),
		Hints:       service.NewHintService(nil, 1),
		Analytics:   service.NewAnalyticsService(nil),
	}, nil, false, func(r *http.Request) bool { return true })

	r := chi.NewRouter()
	h.SetRoutes(r)
	return &testServer{router: r, tokenAuth: tokenAuth, subs: subStore, sessions: sessions}
}

func (s *testServer) token(t *testing.T, id string, admin bool) string {
	t.Helper()
	_, tok, err := s.tokenAuth.Encode(map[string]interface{}{
		"sub":   id,
		"name":  "Ada",
		"admin": admin,
	})
	require.NoError(t, err)
	return tok
}

func (s *testServer) do(method, path string, body interface{}, token string) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.AddCookie(&http.Cookie{Name: cookieName, Value: token})
	}
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func decodeResponse(t *testing.T, rec *httptest.ResponseRecorder) Response {
	t.Helper()
	var rsp Response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &rsp))
	return rsp
}

func TestHealth(t *testing.T) {
	s := newTestServer(t, nil)
	rec := s.do(http.MethodGet, "/healthz", nil, "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 200, decodeResponse(t, rec).Code)
}

func TestGameDemo(t *testing.T) {
	s := newTestServer(t, nil, &models.GameSubmission{
		ID:            1,
		GameSlug:      "bubble-pop",
		Status:        models.SubmissionApproved,
		GeneratedCode: "<html><body>pop!</body></html>",
	}, &models.GameSubmission{
		ID:            2,
		GameSlug:      "secret",
		Status:        models.SubmissionPending,
		GeneratedCode: "<html>hidden</html>",
	})

	rec := s.do(http.MethodGet, "/games/bubble-pop/demo", nil, "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/html; charset=utf-8", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Security-Policy"), "sandbox")
	assert.Equal(t, "<html><body>pop!</body></html>", rec.Body.String())

	rec = s.do(http.MethodGet, "/games/secret/demo", nil, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = s.do(http.MethodGet, "/games/missing/demo", nil, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = s.do(http.MethodGet, "/games/Bad_Slug/demo", nil, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAdminRoutes_RequireAdmin(t *testing.T) {
	s := newTestServer(t, nil)

	rec := s.do(http.MethodGet, "/v1/admin/submissions", nil, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = s.do(http.MethodGet, "/v1/admin/submissions", nil, "not-a-token")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = s.do(http.MethodGet, "/v1/admin/submissions", nil, s.token(t, "7", false))
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = s.do(http.MethodGet, "/v1/admin/submissions", nil, s.token(t, "7", true))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestApproveSubmission(t *testing.T) {
	s := newTestServer(t, nil, &models.GameSubmission{
		ID:            3,
		GameSlug:      "comet-catch",
		Status:        models.SubmissionPending,
		GeneratedCode: "<html>comet</html>",
	})
	admin := s.token(t, "1", true)

	rec := s.do(http.MethodPost, "/v1/admin/submissions/99/approve", nil, admin)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = s.do(http.MethodPost, "/v1/admin/submissions/abc/approve", nil, admin)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(http.MethodPost, "/v1/admin/submissions/3/approve", map[string]string{"notes": "fun"}, admin)
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Data models.GameSubmission `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, models.SubmissionApproved, body.Data.Status)
	assert.Empty(t, body.Data.GeneratedCode)
	require.NotNil(t, body.Data.ApprovedBy)
	assert.Equal(t, "Ada", *body.Data.ApprovedBy)

	rec = s.do(http.MethodGet, "/games/comet-catch/demo", nil, "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRejectSubmission_EmptyBody(t *testing.T) {
	s := newTestServer(t, nil, &models.GameSubmission{ID: 4, GameSlug: "meh", Status: models.SubmissionPending})

	rec := s.do(http.MethodPost, "/v1/admin/submissions/4/reject", nil, s.token(t, "1", true))
	require.Equal(t, http.StatusOK, rec.Code)

	sub, err := s.subs.GetByID(context.Background(), 4)
	require.NoError(t, err)
	assert.Equal(t, models.SubmissionRejected, sub.Status)
	assert.Nil(t, sub.ApprovedAt)
}

func TestScores_Unconfigured(t *testing.T) {
	s := newTestServer(t, nil)

	rec := s.do(http.MethodPost, "/v1/scores", map[string]interface{}{"slug": "space-race", "name": "Ada", "score": 12}, "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"ok":true}`, rec.Body.String())

	rec = s.do(http.MethodGet, "/v1/scores/space-race", nil, "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"top":[]}`, rec.Body.String())
}

func TestScores_SlugFromQuery(t *testing.T) {
	s := newTestServer(t, nil)

	rec := s.do(http.MethodGet, "/v1/scores?slug=space-race", nil, "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"top":[]}`, rec.Body.String())

	rec = s.do(http.MethodGet, "/v1/scores", nil, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Contains(t, body["error"], "slug is required")
}

func TestScores_Redis(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	s := newTestServer(t, kv.NewLeaderboard(client, 0))

	for _, sc := range []float64{3.7, -5, 2e9} {
		rec := s.do(http.MethodPost, "/v1/scores", map[string]interface{}{"slug": "space-race", "name": "Ada", "score": sc}, "")
		require.Equal(t, http.StatusOK, rec.Code)
	}

	rec := s.do(http.MethodGet, "/v1/scores/space-race", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Top []models.ScoreEntry `json:"top"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Top, 3)
	assert.Equal(t, int64(service.MaxScore), body.Top[0].Score)
	assert.Equal(t, int64(3), body.Top[1].Score)
	assert.Equal(t, int64(0), body.Top[2].Score)
	assert.Equal(t, "Ada", body.Top[0].Name)
}

func TestScores_BadRequest(t *testing.T) {
	s := newTestServer(t, nil)

	rec := s.do(http.MethodPost, "/v1/scores", map[string]interface{}{"slug": "space-race", "name": "Ada"}, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.NotEmpty(t, body["error"])

	rec = s.do(http.MethodPost, "/v1/scores", map[string]interface{}{"slug": "../etc", "score": 1}, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestTrack(t *testing.T) {
	s := newTestServer(t, nil)

	rec := s.do(http.MethodPost, "/v1/analytics/track", map[string]interface{}{"event": "game_start", "props": map[string]interface{}{"slug": "space-race"}}, "")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = s.do(http.MethodPost, "/v1/analytics/track", map[string]interface{}{"event": "Not Valid!"}, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(http.MethodPost, "/v1/analytics/track", nil, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(http.MethodGet, "/v1/admin/analytics", nil, s.token(t, "1", true))
	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		Data map[string]int64 `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, int64(1), body.Data["game_start"])
}

func TestTables_SessionLifecycle(t *testing.T) {
	s := newTestServer(t, nil)
	kid := s.token(t, "7", false)

	rec := s.do(http.MethodPost, "/v1/tables/sessions", map[string]interface{}{"tables": []int{3}}, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = s.do(http.MethodPost, "/v1/tables/sessions", map[string]interface{}{"tables": []int{3}}, kid)
	require.Equal(t, http.StatusCreated, rec.Code)

	var created struct {
		Data models.Session `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	assert.Equal(t, models.ModePractice, created.Data.Mode)
	require.Len(t, created.Data.Targets, 10)

	fact := created.Data.Targets[0]
	path := "/v1/tables/sessions/" + created.Data.ID + "/attempts"

	rec = s.do(http.MethodPost, path, map[string]int{"a": fact.A, "b": fact.B, "answer": fact.Product()}, s.token(t, "8", false))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = s.do(http.MethodPost, path, map[string]int{"a": fact.A, "b": fact.B, "answer": fact.Product()}, kid)
	require.Equal(t, http.StatusOK, rec.Code)
	var attempt struct {
		Data service.AttemptResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &attempt))
	assert.True(t, attempt.Data.Correct)

	rec = s.do(http.MethodPost, path, map[string]int{"a": fact.A, "b": fact.B, "answer": service.MaxAnswer + 1}, kid)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(http.MethodPost, "/v1/tables/sessions/"+created.Data.ID+"/end", nil, kid)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = s.do(http.MethodPost, path, map[string]int{"a": fact.A, "b": fact.B, "answer": fact.Product()}, kid)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = s.do(http.MethodPost, "/v1/tables/sessions", map[string]interface{}{"mode": "marathon"}, kid)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHintAndProblem(t *testing.T) {
	s := newTestServer(t, nil)
	kid := s.token(t, "7", false)

	rec := s.do(http.MethodGet, "/v1/tables/hint?a=9&b=7", nil, kid)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = s.do(http.MethodGet, "/v1/tables/hint?a=x&b=7", nil, kid)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(http.MethodGet, "/v1/tables/problem?table=13", nil, kid)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(http.MethodGet, "/v1/tables/problem?table=4", nil, kid)
	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		Data service.Problem `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, body.Data.A*body.Data.B, body.Data.Answer)
}

func TestFriendChat_Fallback(t *testing.T) {
	s := newTestServer(t, nil)

	rec := s.do(http.MethodPost, "/v1/friends/pip/chat", map[string]string{"message": "hi pip"}, "")
	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		Data service.ChatReply `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "fallback", body.Data.Source)
	assert.Equal(t, service.FallbackReply("pip", "hi pip"), body.Data.Reply)

	rec = s.do(http.MethodPost, "/v1/friends/nobody/chat", map[string]string{"message": "hi"}, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
