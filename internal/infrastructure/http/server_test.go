package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/0xcro3dile/pdfchat/internal/domain/entities"
)

// fakeChat is a scripted ChatService.
type fakeChat struct {
	mu        sync.Mutex
	processed [][]entities.UploadedDocument
	questions []string

	report    *entities.ProcessReport
	processFn func(docs []entities.UploadedDocument) (*entities.ProcessReport, error)
	askFn     func(q string) (*entities.Answer, error)
	status    entities.IndexStatus
	statusErr error
}

func (f *fakeChat) ProcessDocuments(ctx context.Context, docs []entities.UploadedDocument) (*entities.ProcessReport, error) {
	f.mu.Lock()
	f.processed = append(f.processed, docs)
	f.mu.Unlock()
	if f.processFn != nil {
		return f.processFn(docs)
	}
	if len(docs) == 0 {
		return nil, entities.ErrNoDocuments
	}
	return f.report, nil
}

func (f *fakeChat) AskQuestion(ctx context.Context, question string) (*entities.Answer, error) {
	if strings.TrimSpace(question) == "" {
		return nil, entities.ErrEmptyQuestion
	}
	f.mu.Lock()
	f.questions = append(f.questions, question)
	f.mu.Unlock()
	if f.askFn != nil {
		return f.askFn(question)
	}
	return &entities.Answer{Text: "ok"}, nil
}

func (f *fakeChat) IndexStatus(ctx context.Context) (entities.IndexStatus, error) {
	return f.status, f.statusErr
}

func newTestServer(t *testing.T, chat *fakeChat) (*Server, *Metrics) {
	t.Helper()
	m := NewMetrics()
	s, err := NewServer(chat, m, Config{MaxUploadBytes: 1 << 20}, nil)
	require.NoError(t, err)
	return s, m
}

type upload struct {
	name string
	data string
}

func multipartBody(t *testing.T, files ...upload) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for _, f := range files {
		fw, err := mw.CreateFormFile(uploadField, f.name)
		require.NoError(t, err)
		_, err = fw.Write([]byte(f.data))
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}

func postUploads(t *testing.T, h http.Handler, path string, files ...upload) *httptest.ResponseRecorder {
	t.Helper()
	body, contentType := multipartBody(t, files...)
	req := httptest.NewRequest(http.MethodPost, path, body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func postQuestion(h http.Handler, path, question string) *httptest.ResponseRecorder {
	form := url.Values{"question": {question}}
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func get(h http.Handler, path string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func TestIndexPage(t *testing.T) {
	s, _ := newTestServer(t, &fakeChat{})

	rec := get(s.Handler(), "/")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/html")
	body := rec.Body.String()
	assert.Contains(t, body, "Multi-PDF Chat Agent")
	assert.Contains(t, body, "Ask something from your uploaded PDFs:")
	assert.Contains(t, body, `name="pdf_docs"`)
	assert.Contains(t, body, "Submit &amp; Process")
	assert.Contains(t, body, "No index yet")
}

func TestIndexPage_ShowsReadyIndex(t *testing.T) {
	s, _ := newTestServer(t, &fakeChat{status: entities.IndexStatus{Ready: true, Chunks: 7}})

	body := get(s.Handler(), "/").Body.String()

	assert.Contains(t, body, "Index ready")
	assert.Contains(t, body, "7 chunk(s)")
}

func TestProcess_NoFilesShowsWarning(t *testing.T) {
	chat := &fakeChat{}
	s, m := newTestServer(t, chat)

	rec := postUploads(t, s.Handler(), "/process")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), msgNoDocuments)
	assert.NotContains(t, rec.Body.String(), msgProcessed)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.processTotal.WithLabelValues("no_documents")))
}

func TestProcess_PassesFilesInOrder(t *testing.T) {
	chat := &fakeChat{report: &entities.ProcessReport{Documents: 2, Characters: 11, Chunks: 1, Duration: 42 * time.Millisecond}}
	s, m := newTestServer(t, chat)

	rec := postUploads(t, s.Handler(), "/process",
		upload{name: "a.pdf", data: "first"},
		upload{name: "b.pdf", data: "second"})

	assert.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, chat.processed, 1)
	docs := chat.processed[0]
	require.Len(t, docs, 2)
	assert.Equal(t, "a.pdf", docs[0].Name)
	assert.Equal(t, "first", string(docs[0].Data))
	assert.Equal(t, "b.pdf", docs[1].Name)
	assert.NotEmpty(t, docs[0].ID)
	assert.NotEqual(t, docs[0].ID, docs[1].ID)

	body := rec.Body.String()
	assert.Contains(t, body, msgProcessed)
	assert.Contains(t, body, "42 ms")
	assert.Equal(t, 1.0, testutil.ToFloat64(m.processTotal.WithLabelValues("success")))
}

func TestProcess_NonPDFIsPassedThrough(t *testing.T) {
	chat := &fakeChat{report: &entities.ProcessReport{Documents: 1}}
	s, _ := newTestServer(t, chat)

	postUploads(t, s.Handler(), "/process", upload{name: "notes.txt", data: "plain"})

	require.Len(t, chat.processed, 1)
	assert.Equal(t, "notes.txt", chat.processed[0][0].Name)
}

func TestProcess_StageErrorShowsBanner(t *testing.T) {
	chat := &fakeChat{processFn: func([]entities.UploadedDocument) (*entities.ProcessReport, error) {
		return nil, &entities.StageError{Stage: entities.StageExtract, Err: errors.New("corrupt file")}
	}}
	s, m := newTestServer(t, chat)

	rec := postUploads(t, s.Handler(), "/process", upload{name: "bad.pdf", data: "junk"})

	assert.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "Something went wrong: extract: corrupt file")
	assert.NotContains(t, body, msgProcessed)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.processTotal.WithLabelValues("extract_error")))
}

func TestProcess_TooLarge(t *testing.T) {
	chat := &fakeChat{}
	s, _ := newTestServer(t, chat)

	rec := postUploads(t, s.Handler(), "/api/process",
		upload{name: "big.pdf", data: strings.Repeat("x", 2<<20)})

	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	assert.Empty(t, chat.processed)
}

func TestAsk_ShowsAnswer(t *testing.T) {
	chat := &fakeChat{
		status: entities.IndexStatus{Ready: true, Chunks: 1},
		askFn: func(q string) (*entities.Answer, error) {
			return &entities.Answer{
				Text: "Paris",
				Sources: []entities.QueryResult{
					{Chunk: entities.Chunk{Content: "The capital of France is Paris.", Index: 0}, Score: 0.91},
				},
			}, nil
		},
	}
	s, m := newTestServer(t, chat)

	rec := postQuestion(s.Handler(), "/ask", "What is the capital of France?")

	assert.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, msgAnswer)
	assert.Contains(t, body, "<p>Paris</p>")
	assert.Contains(t, body, "91%")
	assert.Contains(t, body, `value="What is the capital of France?"`)
	assert.Equal(t, []string{"What is the capital of France?"}, chat.questions)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.questionsTotal.WithLabelValues("success")))
}

func TestAsk_EmptyQuestionDoesNothing(t *testing.T) {
	chat := &fakeChat{}
	s, m := newTestServer(t, chat)

	for _, q := range []string{"", "   "} {
		rec := postQuestion(s.Handler(), "/ask", q)
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.NotContains(t, rec.Body.String(), msgAnswer)
		assert.NotContains(t, rec.Body.String(), msgErrorPrefix)
	}
	assert.Empty(t, chat.questions)
	assert.Equal(t, 0, testutil.CollectAndCount(m.questionsTotal))
}

func TestAsk_NoIndexShowsInfo(t *testing.T) {
	chat := &fakeChat{askFn: func(string) (*entities.Answer, error) {
		return nil, entities.ErrIndexNotReady
	}}
	s, m := newTestServer(t, chat)

	rec := postQuestion(s.Handler(), "/ask", "anything?")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), msgNoIndex)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.questionsTotal.WithLabelValues("no_index")))
}

func TestAsk_HandlerErrorKeepsServing(t *testing.T) {
	chat := &fakeChat{askFn: func(string) (*entities.Answer, error) {
		return nil, &entities.StageError{Stage: entities.StageAnswer, Err: errors.New("index not found")}
	}}
	s, _ := newTestServer(t, chat)

	rec := postQuestion(s.Handler(), "/ask", "Q?")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Something went wrong: answer: index not found")

	// the next request is served normally
	chat.askFn = nil
	rec = postQuestion(s.Handler(), "/ask", "Q again?")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "<p>ok</p>")
}

func TestAsk_CachedAnswerCounted(t *testing.T) {
	chat := &fakeChat{askFn: func(string) (*entities.Answer, error) {
		return &entities.Answer{Text: "Paris", Cached: true}, nil
	}}
	s, m := newTestServer(t, chat)

	postQuestion(s.Handler(), "/ask", "capital?")

	assert.Equal(t, 1.0, testutil.ToFloat64(m.questionsTotal.WithLabelValues("cached")))
}

func TestAPI_StatusCodes(t *testing.T) {
	tests := []struct {
		name      string
		askErr    error
		wantCode  int
		wantStage string
	}{
		{"no index", entities.ErrIndexNotReady, http.StatusConflict, ""},
		{"stage failure", &entities.StageError{Stage: entities.StageAnswer, Err: errors.New("boom")}, http.StatusBadGateway, "answer"},
		{"other", errors.New("odd"), http.StatusBadRequest, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			chat := &fakeChat{askFn: func(string) (*entities.Answer, error) { return nil, tt.askErr }}
			s, _ := newTestServer(t, chat)

			req := httptest.NewRequest(http.MethodPost, "/api/ask", strings.NewReader(`{"question":"Q?"}`))
			req.Header.Set("Content-Type", "application/json")
			rec := httptest.NewRecorder()
			s.Handler().ServeHTTP(rec, req)

			assert.Equal(t, tt.wantCode, rec.Code)
			var resp errorResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
			assert.Equal(t, tt.askErr.Error(), resp.Error)
			assert.Equal(t, tt.wantStage, resp.Stage)
		})
	}
}

func TestAPI_AskReturnsSources(t *testing.T) {
	chat := &fakeChat{askFn: func(string) (*entities.Answer, error) {
		return &entities.Answer{
			Text: "Paris",
			Sources: []entities.QueryResult{
				{Chunk: entities.Chunk{Content: "France  has\ncapital Paris", Index: 3}, Score: 0.5},
			},
		}, nil
	}}
	s, _ := newTestServer(t, chat)

	req := httptest.NewRequest(http.MethodPost, "/api/ask", strings.NewReader(`{"question":"capital?"}`))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp askResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "Paris", resp.Answer)
	require.Len(t, resp.Sources, 1)
	assert.Equal(t, sourceResponse{Chunk: 3, Score: 0.5, Excerpt: "France has capital Paris"}, resp.Sources[0])
	assert.NotContains(t, rec.Body.String(), `"document"`)
}

func TestAPI_AskEmptyQuestion(t *testing.T) {
	s, _ := newTestServer(t, &fakeChat{})

	rec := postQuestion(s.Handler(), "/api/ask", " ")

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAPI_AskInvalidJSON(t *testing.T) {
	s, _ := newTestServer(t, &fakeChat{})

	req := httptest.NewRequest(http.MethodPost, "/api/ask", strings.NewReader(`{`))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAPI_Process(t *testing.T) {
	chat := &fakeChat{report: &entities.ProcessReport{Documents: 1, Characters: 5, Chunks: 1, Duration: 2 * time.Second}}
	s, _ := newTestServer(t, chat)

	rec := postUploads(t, s.Handler(), "/api/process", upload{name: "a.pdf", data: "hello"})

	require.Equal(t, http.StatusOK, rec.Code)
	var resp processResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, processResponse{Documents: 1, Characters: 5, Chunks: 1, DurationMS: 2000}, resp)

	rec = postUploads(t, s.Handler(), "/api/process")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAPI_ProcessWithoutText(t *testing.T) {
	chat := &fakeChat{processFn: func([]entities.UploadedDocument) (*entities.ProcessReport, error) {
		return nil, &entities.StageError{Stage: entities.StageExtract, Err: entities.ErrNoText}
	}}
	s, _ := newTestServer(t, chat)

	rec := postUploads(t, s.Handler(), "/api/process", upload{name: "scan.pdf", data: "%PDF"})

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	var resp errorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "extract", resp.Stage)
}

func TestAPI_StatusAndHealth(t *testing.T) {
	s, _ := newTestServer(t, &fakeChat{status: entities.IndexStatus{Ready: true, Chunks: 3}})

	rec := get(s.Handler(), "/api/status")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"ready":true,"chunks":3}`, rec.Body.String())

	rec = get(s.Handler(), "/api/health")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestMetricsEndpoint(t *testing.T) {
	s, _ := newTestServer(t, &fakeChat{})
	postQuestion(s.Handler(), "/ask", "Q?")

	rec := get(s.Handler(), "/metrics")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `pdfchat_questions_total{outcome="success"} 1`)
}

func TestRequestID(t *testing.T) {
	s, _ := newTestServer(t, &fakeChat{})

	rec := get(s.Handler(), "/api/health")
	assert.NotEmpty(t, rec.Header().Get(requestIDHeader))

	req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
	req.Header.Set(requestIDHeader, "abc-123")
	rec = httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	assert.Equal(t, "abc-123", rec.Header().Get(requestIDHeader))
}

func TestRecoveryMiddleware(t *testing.T) {
	chat := &fakeChat{askFn: func(string) (*entities.Answer, error) { panic("kaboom") }}
	s, _ := newTestServer(t, chat)

	rec := postQuestion(s.Handler(), "/api/ask", "Q?")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)

	rec = get(s.Handler(), "/api/health")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestStaticFiles(t *testing.T) {
	s, _ := newTestServer(t, &fakeChat{})

	for _, path := range []string{"/static/style.css", "/static/app.js", "/static/pdf.svg"} {
		rec := get(s.Handler(), path)
		assert.Equal(t, http.StatusOK, rec.Code, path)
		assert.NotEmpty(t, rec.Body.Bytes(), path)
	}
}

func TestCORSPreflight(t *testing.T) {
	s, _ := newTestServer(t, &fakeChat{})

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodOptions, "/api/ask", nil))

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestBannerFor(t *testing.T) {
	assert.Nil(t, bannerFor(nil))
	assert.Nil(t, bannerFor(entities.ErrEmptyQuestion))
	assert.Equal(t, bannerWarning, bannerFor(entities.ErrNoDocuments).Kind)
	assert.Equal(t, bannerInfo, bannerFor(entities.ErrIndexNotReady).Kind)
	b := bannerFor(errors.New("x"))
	assert.Equal(t, bannerError, b.Kind)
	assert.Equal(t, "Something went wrong: x", b.Message)
}

func TestExcerpt(t *testing.T) {
	assert.Equal(t, "a b c", excerpt(" a\n b\tc ", 10))
	assert.Equal(t, "abc…", excerpt("abcdef", 3))
}
