package server

import (
	"context"
	"encoding/base64"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ndcscan/internal"
	"ndcscan/internal/pipeline"
	"ndcscan/internal/rxnorm"
	"ndcscan/internal/storage"
)

type fakeAnalyzer struct {
	calls atomic.Int32
	doc   *internal.Document
	err   error
}

func (f *fakeAnalyzer) Process(ctx context.Context, content []byte, mimeType string) (*internal.Document, error) {
	f.calls.Add(1)
	if f.err != nil {
		return nil, f.err
	}
	return f.doc, nil
}

type pingFunc func(ctx context.Context) error

func (f pingFunc) Ping(ctx context.Context) error { return f(ctx) }

func span(start, end int64) *internal.TextAnchor {
	return &internal.TextAnchor{Segments: []internal.TextSegment{{StartIndex: start, EndIndex: end}}}
}

func seededDB(t *testing.T) *storage.DB {
	t.Helper()
	db, err := storage.Open(storage.Options{Driver: storage.DriverSQLite, DSN: filepath.Join(t.TempDir(), "ndc.db")}, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	_, err = db.UpsertMappings(context.Background(), []internal.NDCMapping{
		{NDC: "00071015523", RXCUI: "123456", Name: "Aspirin"},
	})
	require.NoError(t, err)
	return db
}

func newTestServer(t *testing.T, analyzer *fakeAnalyzer, resolver pipeline.Resolver, db Pinger) *Server {
	t.Helper()
	tr := pipeline.NewTranslator(resolver, pipeline.TranslatorOptions{MaxInFlight: 4}, nil)
	return New(analyzer, tr, db, Options{MaxBodyBytes: "1M", MaxPDFPages: 15, CORSAllowOrigins: []string{"*"}}, nil)
}

func post(t *testing.T, s *Server, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/processDocument", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func encoded(v string) string {
	return base64.StdEncoding.EncodeToString([]byte(v))
}

func TestProcessDocumentEndToEnd(t *testing.T) {
	db := seededDB(t)
	analyzer := &fakeAnalyzer{doc: &internal.Document{
		Text: "NDC 00071-0155-23 and 12345-6789-01",
		Entities: []internal.Entity{
			{Type: "NDC", Anchor: span(4, 17)},
			{Type: "LOT", Anchor: span(18, 21)},
			{Type: "NDC", Anchor: span(22, 35)},
		},
	}}
	s := newTestServer(t, analyzer, rxnorm.NewClient(db, nil), db)

	rec := post(t, s, `{"encodedImage":"`+encoded("image")+`","mimeType":"image/jpeg"}`)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.JSONEq(t, `{"scannedNdcs":[
		{"ndc":"00071015523","rxcui":"123456","drugName":"Aspirin"},
		{"ndc":"12345678901","rxcui":null,"drugName":null}
	]}`, rec.Body.String())
	assert.NotEmpty(t, rec.Header().Get(echo.HeaderXRequestID))
	assert.Equal(t, int32(1), analyzer.calls.Load())
}

func TestProcessDocumentNoEntities(t *testing.T) {
	db := seededDB(t)
	analyzer := &fakeAnalyzer{doc: &internal.Document{Text: "blank page"}}
	s := newTestServer(t, analyzer, rxnorm.NewClient(db, nil), db)

	rec := post(t, s, `{"encodedImage":"`+encoded("image")+`","mimeType":"image/png"}`)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"scannedNdcs":[]}`, rec.Body.String())
}

func TestProcessDocumentValidation(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		wantBody string
	}{
		{name: "missing mimeType", body: `{"encodedImage":"aGVsbG8="}`, wantBody: "Invalid request: missing mimeType"},
		{name: "missing encodedImage", body: `{"mimeType":"image/png"}`, wantBody: "Invalid request: missing encodedImage"},
		{name: "missing both", body: `{}`, wantBody: "Invalid request: missing encodedImage and mimeType"},
		{name: "empty strings", body: `{"encodedImage":"","mimeType":" "}`, wantBody: "Invalid request: missing encodedImage and mimeType"},
		{name: "malformed json", body: `{"encodedImage":`, wantBody: "Invalid request: body must be a JSON object"},
		{name: "bad base64", body: `{"encodedImage":"***","mimeType":"image/png"}`, wantBody: "Invalid request: encodedImage is not valid base64"},
		{name: "unreadable pdf", body: `{"encodedImage":"` + encoded("plain text") + `","mimeType":"application/pdf"}`, wantBody: "Invalid request: encodedImage is not a readable PDF"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			analyzer := &fakeAnalyzer{doc: &internal.Document{}}
			resolver := rxnorm.NewClient(seededDB(t), nil)
			s := newTestServer(t, analyzer, resolver, nil)

			rec := post(t, s, tt.body)

			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Equal(t, tt.wantBody, rec.Body.String())
			assert.True(t, strings.HasPrefix(rec.Header().Get(echo.HeaderContentType), echo.MIMETextPlain))
			assert.Zero(t, analyzer.calls.Load())
		})
	}
}

func TestProcessDocumentAnalyzerFailure(t *testing.T) {
	db := seededDB(t)
	analyzer := &fakeAnalyzer{err: internal.CollaboratorError("process document", errors.New("googleapi: Error 403: permission denied for projects/secret"))}
	s := newTestServer(t, analyzer, rxnorm.NewClient(db, nil), db)

	rec := post(t, s, `{"encodedImage":"`+encoded("image")+`","mimeType":"image/png"}`)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "Failed to process document", rec.Body.String())
	assert.NotContains(t, rec.Body.String(), "secret")
}

func TestProcessDocumentResolutionFailure(t *testing.T) {
	db := seededDB(t)
	analyzer := &fakeAnalyzer{doc: &internal.Document{
		Text: "AAAAAAAAAAABBBBBBBBBBBCCCCCCCCCCC",
		Entities: []internal.Entity{
			{Type: "NDC", Anchor: span(0, 11)},
			{Type: "NDC", Anchor: span(11, 22)},
			{Type: "NDC", Anchor: span(22, 33)},
		},
	}}
	require.NoError(t, db.Close())
	s := newTestServer(t, analyzer, rxnorm.NewClient(db, nil), nil)

	rec := post(t, s, `{"encodedImage":"`+encoded("image")+`","mimeType":"image/png"}`)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "Failed to process document", rec.Body.String())
}

func TestProcessDocumentBodyTooLarge(t *testing.T) {
	analyzer := &fakeAnalyzer{doc: &internal.Document{}}
	s := newTestServer(t, analyzer, rxnorm.NewClient(seededDB(t), nil), nil)

	big := strings.Repeat("A", 2<<20)
	rec := post(t, s, `{"encodedImage":"`+big+`","mimeType":"image/png"}`)

	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	assert.Zero(t, analyzer.calls.Load())
}

func TestHealth(t *testing.T) {
	analyzer := &fakeAnalyzer{}
	resolver := rxnorm.NewClient(seededDB(t), nil)

	ok := newTestServer(t, analyzer, resolver, pingFunc(func(ctx context.Context) error { return nil }))
	rec := httptest.NewRecorder()
	ok.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())

	down := newTestServer(t, analyzer, resolver, pingFunc(func(ctx context.Context) error { return errors.New("no route to host") }))
	rec = httptest.NewRecorder()
	down.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestDecodeImage(t *testing.T) {
	want := []byte{0xff, 0xd8, 0xff, 0xe0}
	for _, in := range []string{
		base64.StdEncoding.EncodeToString(want),
		base64.RawStdEncoding.EncodeToString(want),
		base64.URLEncoding.EncodeToString(want),
		"data:image/jpeg;base64," + base64.StdEncoding.EncodeToString(want),
		" /9j/\n4A== ",
	} {
		got, err := decodeImage(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := decodeImage("not base64!")
	assert.Error(t, err)
}
