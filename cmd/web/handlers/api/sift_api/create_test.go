package sift_api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"
	"thirdcoast.systems/sift/internal/db"
	"thirdcoast.systems/sift/internal/sift"
)

type fakePipeline struct {
	lastReq sift.Request
	record  *db.Sift
	err     error
}

func (f *fakePipeline) PerformFullSift(_ context.Context, req sift.Request) (*db.Sift, error) {
	f.lastReq = req
	return f.record, f.err
}

func postJSON(t *testing.T, handler echo.HandlerFunc, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	require.NoError(t, handler(c))
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestHandleCreate_Success(t *testing.T) {
	pipeline := &fakePipeline{record: &db.Sift{
		OwnerID: "user-1",
		Title:   "Quick Pasta",
		Tags:    []string{"Pasta", "Dinner"},
	}}

	rec := postJSON(t, HandleCreate(pipeline), "/api/sifts",
		`{"url":"https://example.com","user_id":"user-1","id":"abc","user_tier":"free"}`)

	require.Equal(t, 200, rec.Code)
	body := decodeBody(t, rec)
	require.Equal(t, "success", body["status"])
	data := body["data"].(map[string]any)
	require.Equal(t, "Quick Pasta", data["title"])

	require.Equal(t, "https://example.com", pipeline.lastReq.URL)
	require.Equal(t, "abc", pipeline.lastReq.ExistingID)
	require.Equal(t, "free", pipeline.lastReq.Tier)
}

func TestHandleCreate_IgnoresClientMetadata(t *testing.T) {
	pipeline := &fakePipeline{record: &db.Sift{OwnerID: "user-1", Title: "Saved"}}

	rec := postJSON(t, HandleCreate(pipeline), "/api/sifts",
		`{"url":"https://example.com","user_id":"user-1","metadata":{"source":"share-sheet"}}`)

	require.Equal(t, 200, rec.Code)
	body := decodeBody(t, rec)
	require.Equal(t, "success", body["status"])
	require.Equal(t, "https://example.com", pipeline.lastReq.URL)
}

func TestHandleCreate_MissingInput(t *testing.T) {
	pipeline := &fakePipeline{err: sift.ErrMissingInput}

	rec := postJSON(t, HandleCreate(pipeline), "/api/sifts", `{"user_id":"user-1"}`)

	require.Equal(t, 400, rec.Code)
	body := decodeBody(t, rec)
	require.Equal(t, "error", body["status"])
	require.Equal(t, "URL or Image is required", body["message"])
}

func TestHandleCreate_LimitReached(t *testing.T) {
	pipeline := &fakePipeline{err: &sift.QuotaError{Limit: 50, UpgradeURL: "https://upgrade.example"}}

	rec := postJSON(t, HandleCreate(pipeline), "/api/sifts",
		`{"url":"https://example.com","user_id":"user-1"}`)

	require.Equal(t, 403, rec.Code)
	body := decodeBody(t, rec)
	require.Equal(t, "limit_reached", body["status"])
	require.Equal(t, "https://upgrade.example", body["upgrade_url"])
	require.NotEmpty(t, body["message"])
}

func TestHandleCreate_TotalFailure(t *testing.T) {
	pipeline := &fakePipeline{err: context.DeadlineExceeded}

	rec := postJSON(t, HandleCreate(pipeline), "/api/sifts",
		`{"url":"https://example.com","user_id":"user-1"}`)

	require.Equal(t, 500, rec.Code)
	body := decodeBody(t, rec)
	require.Equal(t, "error", body["status"])
	require.Equal(t, "Total Failure", body["message"])
}

func TestHandleCreate_MissingUser(t *testing.T) {
	pipeline := &fakePipeline{}

	rec := postJSON(t, HandleCreate(pipeline), "/api/sifts", `{"url":"https://example.com"}`)

	require.Equal(t, 400, rec.Code)
	// Rejected before the pipeline ran.
	require.Empty(t, pipeline.lastReq.URL)
}

type fakeStore struct {
	inserted  *db.SiftParams
	insertErr error
	byID      map[string]*db.Sift
	byOwner   []*db.Sift
	deleted   []string
	deleteErr error
}

func (f *fakeStore) InsertSift(_ context.Context, id *uuid.UUID, p *db.SiftParams) (*db.Sift, error) {
	f.inserted = p
	if f.insertErr != nil {
		return nil, f.insertErr
	}
	rowID := uuid.New()
	if id != nil {
		rowID = *id
	}
	return &db.Sift{
		ID:        pgtype.UUID{Bytes: rowID, Valid: true},
		OwnerID:   p.OwnerID,
		SourceURL: p.SourceURL,
		Title:     p.Title,
		Summary:   p.Summary,
		Tags:      p.Tags,
		Metadata:  p.Metadata,
	}, nil
}

func (f *fakeStore) SelectSiftByID(_ context.Context, id pgtype.UUID) (*db.Sift, error) {
	s, ok := f.byID[uuid.UUID(id.Bytes).String()]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return s, nil
}

func (f *fakeStore) SelectSiftsByOwner(_ context.Context, ownerID string, limit int) ([]*db.Sift, error) {
	return f.byOwner, nil
}

func (f *fakeStore) DeleteSift(_ context.Context, id pgtype.UUID, ownerID string) error {
	if f.deleteErr != nil {
		return f.deleteErr
	}
	f.deleted = append(f.deleted, uuid.UUID(id.Bytes).String())
	return nil
}

func TestHandleCreatePlaceholder(t *testing.T) {
	store := &fakeStore{}

	rec := postJSON(t, HandleCreatePlaceholder(store), "/api/sifts/placeholder",
		`{"url":"https://example.com/post","user_id":"user-1"}`)

	require.Equal(t, 200, rec.Code)
	body := decodeBody(t, rec)
	require.Equal(t, "success", body["status"])
	data := body["data"].(map[string]any)
	require.NotEmpty(t, data["id"])

	require.NotNil(t, store.inserted)
	require.Equal(t, "https://example.com/post", store.inserted.SourceURL)
	require.Equal(t, db.SiftStatusPending, store.inserted.Metadata.Status)
}

func TestHandleCreatePlaceholder_MissingURL(t *testing.T) {
	store := &fakeStore{}

	rec := postJSON(t, HandleCreatePlaceholder(store), "/api/sifts/placeholder",
		`{"user_id":"user-1"}`)

	require.Equal(t, 400, rec.Code)
	require.Nil(t, store.inserted)
}
