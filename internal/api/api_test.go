package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"cruisesync/internal/auth"
	"cruisesync/internal/orchestrator"
	"cruisesync/internal/pipeline"
	"cruisesync/internal/reconcile"
	"cruisesync/internal/session"
	"cruisesync/internal/store"
	"cruisesync/pkg/models"
)

func init() { gin.SetMode(gin.TestMode) }

var tokens = auth.TokenService{Secret: []byte("test"), Issuer: "cruisesync", Duration: time.Hour}

type fakeSessions struct {
	snap     session.Snapshot
	prepared *pipeline.Prepared
	err      error
	calls    []string
}

func (f *fakeSessions) Snapshot() session.Snapshot   { return f.snap }
func (f *fakeSessions) Prepared() *pipeline.Prepared { return f.prepared }
func (f *fakeSessions) Start(context.Context) error {
	f.calls = append(f.calls, "start")
	return f.err
}
func (f *fakeSessions) Confirm(context.Context) error {
	f.calls = append(f.calls, "confirm")
	return f.err
}
func (f *fakeSessions) Cancel(context.Context) error {
	f.calls = append(f.calls, "cancel")
	return f.err
}

func newRouter(t *testing.T, s Sessions, st store.Store) *gin.Engine {
	t.Helper()
	return NewRouter(Deps{
		Sessions: s,
		Store:    st,
		Tokens:   tokens,
		Logger:   zap.NewNop(),
		Now:      func() time.Time { return time.Date(2026, 1, 10, 0, 0, 0, 0, time.UTC) },
	})
}

func do(r http.Handler, method, path, role string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	if role != "" {
		tok, _, _ := tokens.Sign("tester", role)
		req.Header.Set("Authorization", "Bearer "+tok)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestHealthAndReady(t *testing.T) {
	r := newRouter(t, &fakeSessions{}, store.NewMemory())

	assert.Equal(t, http.StatusOK, do(r, http.MethodGet, "/health", "").Code)
	w := do(r, http.MethodGet, "/ready", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"ready"`)

	w = do(r, http.MethodGet, "/metrics", "")
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestSession_Get(t *testing.T) {
	fs := &fakeSessions{snap: session.Snapshot{ID: "s1", Status: session.RunningStep(2), Step: 2, StepLabel: "bookings"}}
	r := newRouter(t, fs, store.NewMemory())

	w := do(r, http.MethodGet, "/session", "")
	require.Equal(t, http.StatusOK, w.Code)
	var snap session.Snapshot
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &snap))
	assert.Equal(t, session.RunningStep(2), snap.Status)
	assert.Equal(t, "bookings", snap.StepLabel)
}

func TestSession_Preview(t *testing.T) {
	fs := &fakeSessions{}
	r := newRouter(t, fs, store.NewMemory())
	assert.Equal(t, http.StatusNotFound, do(r, http.MethodGet, "/session/preview", "").Code)

	fs.prepared = &pipeline.Prepared{Summary: map[models.Kind]reconcile.Counts{models.KindOffers: {New: 2}}}
	w := do(r, http.MethodGet, "/session/preview", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"offers":{"new":2`)
}

func TestSession_Actions(t *testing.T) {
	tests := []struct {
		path string
		role string
		err  error
		want int
	}{
		{"/session/start", "", nil, http.StatusUnauthorized},
		{"/session/start", auth.RoleExtractor, nil, http.StatusForbidden},
		{"/session/start", auth.RoleOperator, nil, http.StatusAccepted},
		{"/session/start", auth.RoleOperator, orchestrator.ErrBusy, http.StatusConflict},
		{"/session/start", auth.RoleOperator, orchestrator.ErrNotAuthenticated, http.StatusPreconditionFailed},
		{"/session/confirm", auth.RoleOperator, nil, http.StatusOK},
		{"/session/confirm", auth.RoleOperator, orchestrator.ErrNotReady, http.StatusConflict},
		{"/session/confirm", auth.RoleOperator, &pipeline.CommitError{Kind: models.KindOffers, Err: errors.New("disk full")}, http.StatusInternalServerError},
		{"/session/cancel", auth.RoleOperator, nil, http.StatusOK},
		{"/session/cancel", auth.RoleOperator, orchestrator.ErrStopped, http.StatusServiceUnavailable},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprintf("%s %s %v", tt.path, tt.role, tt.err), func(t *testing.T) {
			fs := &fakeSessions{err: tt.err}
			r := newRouter(t, fs, store.NewMemory())
			w := do(r, http.MethodPost, tt.path, tt.role)
			assert.Equal(t, tt.want, w.Code)
			if tt.err != nil {
				assert.Contains(t, w.Body.String(), tt.err.Error())
			}
		})
	}
}

func TestRecords(t *testing.T) {
	st := store.NewMemory()
	offers := []models.CanonicalOffer{{OfferCode: "A1"}, {OfferCode: "B2"}, {OfferCode: "C3"}}
	docs, err := store.Encode(offers, reconcile.OfferKey)
	require.NoError(t, err)
	require.NoError(t, st.WriteSnapshot(context.Background(), models.KindOffers, docs))

	r := newRouter(t, &fakeSessions{}, st)

	w := do(r, http.MethodGet, "/records/offers?limit=2&offset=1", "")
	require.Equal(t, http.StatusOK, w.Code)
	var resp struct {
		Total int                     `json:"total"`
		Items []models.CanonicalOffer `json:"items"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 3, resp.Total)
	require.Len(t, resp.Items, 2)
	assert.Equal(t, "B2", resp.Items[0].OfferCode)

	w = do(r, http.MethodGet, "/records/offers?offset=10", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"items":[]`)

	assert.Equal(t, http.StatusBadRequest, do(r, http.MethodGet, "/records/ships", "").Code)
}

func TestQuality(t *testing.T) {
	st := store.NewMemory()
	r := newRouter(t, &fakeSessions{}, st)

	w := do(r, http.MethodGet, "/quality", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"records":0`)

	cruises := []models.CanonicalCruise{{ShipName: "Icon of the Seas", SailDate: "03-15-2026", Nights: 7}}
	docs, _ := store.Encode(cruises, reconcile.CruiseKey)
	require.NoError(t, st.WriteSnapshot(context.Background(), models.KindCruises, docs))
	booked := []models.BookedCruise{{BookingID: "B1", CanonicalCruise: models.CanonicalCruise{ShipName: "Wonder of the Seas", SailDate: "05-01-2026", Nights: 4}}}
	docs, _ = store.Encode(booked, reconcile.BookedKey)
	require.NoError(t, st.WriteSnapshot(context.Background(), models.KindBookedCruises, docs))

	w = do(r, http.MethodGet, "/quality", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"records":2`)
}

func TestStatusFor(t *testing.T) {
	wrapped := fmt.Errorf("start: %w", orchestrator.ErrBusy)
	assert.Equal(t, http.StatusConflict, statusFor(wrapped))
	assert.Equal(t, http.StatusGone, statusFor(orchestrator.ErrCancelled))
	assert.Equal(t, http.StatusGone, statusFor(fmt.Errorf("%w: %w", orchestrator.ErrCancelled, context.Canceled)))
	assert.Equal(t, http.StatusPreconditionFailed, statusFor(orchestrator.ErrNotAuthenticated))
	assert.Equal(t, http.StatusInternalServerError, statusFor(errors.New("boom")))
}
