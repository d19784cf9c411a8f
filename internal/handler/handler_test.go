package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"classtrack/internal/attendance"
	"classtrack/internal/auth"
	"classtrack/internal/config"
	"classtrack/internal/export"
	"classtrack/internal/queue"
	"classtrack/internal/schedule"
	"classtrack/internal/session"
	"classtrack/internal/sessiontoken"
)

type fakeMarkRepo struct {
	records []attendance.Record
}

func (f *fakeMarkRepo) Insert(_ context.Context, rec attendance.Record) (attendance.Record, error) {
	for _, r := range f.records {
		if r.SessionID == rec.SessionID && r.StudentID == rec.StudentID {
			return attendance.Record{}, attendance.ErrAlreadyMarked
		}
	}
	rec.ID = int64(len(f.records) + 1)
	f.records = append(f.records, rec)
	return rec, nil
}

type fakeProfiles struct{}

func (fakeProfiles) Profile(_ context.Context, userID string) (attendance.Profile, error) {
	return attendance.Profile{RegNo: "2024-SE-01", Name: "Asad"}, nil
}

type fakeSlots struct{}

func (fakeSlots) Slot(_ context.Context, slotID, batchID string) (*schedule.Slot, error) {
	if slotID != "slot-os" || batchID != "b1" {
		return nil, nil
	}
	return &schedule.Slot{
		ID: "slot-os", BatchID: "b1", Weekday: 1,
		Subject: "OS", Start: "08:30", End: "10:30", Location: "Lab 2",
	}, nil
}

type env struct {
	router *gin.Engine
	codec  *sessiontoken.Codec
	repo   *fakeMarkRepo
	q      *queue.InMemory
	cfg    config.App
}

func newEnv(t *testing.T) *env {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cfg := config.App{
		JWTSecret:    "test-secret",
		ClientURL:    "http://localhost:3000",
		UserTokenTTL: time.Hour,
	}
	codec := sessiontoken.New(cfg.JWTSecret)
	repo := &fakeMarkRepo{}
	marks := attendance.NewService(repo, fakeProfiles{}, codec)
	sessions := session.NewService(fakeSlots{}, codec, cfg.ClientURL)
	staging, err := export.NewStaging(t.TempDir())
	require.NoError(t, err)
	q := queue.NewInMemory(8)

	h := New(cfg, nil, nil, sessions, marks, nil, nil, staging, q)

	r := gin.New()
	authn := auth.RequireAuth(cfg.JWTSecret)
	r.POST("/api/attendance/mark", authn, h.MarkAttendance)
	r.POST("/api/sessions/:batchId/generate", authn, auth.RequireAdmin(), h.GenerateSession)

	return &env{router: r, codec: codec, repo: repo, q: q, cfg: cfg}
}

func (e *env) userToken(t *testing.T, role, batchID string) string {
	t.Helper()
	tok, err := auth.Issue("u-"+role, role, "Asad", "2024-SE-01", batchID, e.cfg.JWTSecret, e.cfg.UserTokenTTL)
	require.NoError(t, err)
	return tok
}

func (e *env) do(t *testing.T, method, path, bearer string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func futureMonday() string {
	d := time.Now().AddDate(0, 0, 1)
	for d.Weekday() != time.Monday {
		d = d.AddDate(0, 0, 1)
	}
	return d.Format("2006-01-02")
}

func (e *env) sessionToken(t *testing.T, batchID, dateYMD string) string {
	t.Helper()
	tok, err := e.codec.Issue(sessiontoken.Payload{
		SessionID: "sess-1",
		BatchID:   batchID,
		DateYMD:   dateYMD,
		Slot:      sessiontoken.Slot{Subject: "OS", Start: "08:30", End: "10:30", Location: "Lab 2"},
	})
	require.NoError(t, err)
	return tok
}

func TestMarkRequiresAuth(t *testing.T) {
	e := newEnv(t)
	rec := e.do(t, http.MethodPost, "/api/attendance/mark", "", gin.H{"token": "x"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestMarkHappyPath(t *testing.T) {
	e := newEnv(t)
	rec := e.do(t, http.MethodPost, "/api/attendance/mark",
		e.userToken(t, "student", "b1"),
		gin.H{"token": e.sessionToken(t, "b1", futureMonday())})

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var resp struct {
		OK      bool   `json:"ok"`
		SavedTo string `json:"savedTo"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.OK)
	assert.Contains(t, resp.SavedTo, "b1.csv")
	require.Len(t, e.repo.records, 1)
	assert.Equal(t, "OS", e.repo.records[0].Subject)

	// record was handed to the staging queue
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	msgs, err := e.q.Consume(ctx)
	require.NoError(t, err)
	select {
	case msg := <-msgs:
		assert.Equal(t, "mark", msg.Type)
		var staged attendance.Record
		require.NoError(t, json.Unmarshal(msg.Body, &staged))
		assert.Equal(t, "sess-1", staged.SessionID)
	case <-ctx.Done():
		t.Fatal("no staging message published")
	}
}

func TestMarkErrorMapping(t *testing.T) {
	e := newEnv(t)
	monday := futureMonday()

	tests := []struct {
		name     string
		bearer   string
		token    string
		wantCode int
	}{
		{"garbage token", e.userToken(t, "student", "b1"), "not-a-token", http.StatusBadRequest},
		{"wrong batch", e.userToken(t, "student", "b2"), e.sessionToken(t, "b1", monday), http.StatusForbidden},
		{"missing token", e.userToken(t, "student", "b1"), "", http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := e.do(t, http.MethodPost, "/api/attendance/mark", tt.bearer, gin.H{"token": tt.token})
			assert.Equal(t, tt.wantCode, rec.Code, rec.Body.String())
		})
	}
	assert.Empty(t, e.repo.records, "no record may survive a rejected mark")
}

func TestMarkDuplicateConflict(t *testing.T) {
	e := newEnv(t)
	bearer := e.userToken(t, "student", "b1")
	body := gin.H{"token": e.sessionToken(t, "b1", futureMonday())}

	first := e.do(t, http.MethodPost, "/api/attendance/mark", bearer, body)
	require.Equal(t, http.StatusOK, first.Code)
	second := e.do(t, http.MethodPost, "/api/attendance/mark", bearer, body)
	assert.Equal(t, http.StatusConflict, second.Code)
	assert.Len(t, e.repo.records, 1)
}

func TestGenerateSessionAdminOnly(t *testing.T) {
	e := newEnv(t)
	body := gin.H{"dateYMD": futureMonday(), "slotId": "slot-os"}

	rec := e.do(t, http.MethodPost, "/api/sessions/b1/generate", e.userToken(t, "student", "b1"), body)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = e.do(t, http.MethodPost, "/api/sessions/b1/generate", e.userToken(t, "admin", "b1"), body)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp struct {
		URL       string `json:"url"`
		QRDataURL string `json:"qrDataUrl"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Contains(t, resp.URL, "/scan?token=")
	assert.Contains(t, resp.QRDataURL, "data:image/png;base64,")
}

func TestGenerateSessionSlotNotFound(t *testing.T) {
	e := newEnv(t)
	rec := e.do(t, http.MethodPost, "/api/sessions/b1/generate",
		e.userToken(t, "admin", "b1"),
		gin.H{"dateYMD": futureMonday(), "slotId": "slot-nope"})
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = e.do(t, http.MethodPost, "/api/sessions/b2/generate",
		e.userToken(t, "admin", "b2"),
		gin.H{"dateYMD": futureMonday(), "slotId": "slot-os"})
	assert.Equal(t, http.StatusNotFound, rec.Code, "cross-batch slot must 404")
}
