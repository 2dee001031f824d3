package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ragchat/internal/augment"
	"ragchat/internal/chat"
	"ragchat/internal/chunker"
	"ragchat/internal/docstore"
	"ragchat/internal/embedding/hashing"
	"ragchat/internal/ready"
	"ragchat/internal/store"
	"ragchat/internal/summarizer"
	"ragchat/internal/vectorindex/memory"
)

type stubCompleter struct {
	reply string
	err   error
}

func (s stubCompleter) Complete(context.Context, string) (string, error) {
	return s.reply, s.err
}

func newTestRouter(t *testing.T, completer chat.Completer) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	emb, err := hashing.NewEmbedder(hashing.Config{Dimension: 128})
	require.NoError(t, err)
	files, err := docstore.NewFileStore(t.TempDir())
	require.NoError(t, err)

	gate := ready.NewGate(nil)
	gate.Start(func() (*store.VectorStore, error) {
		return store.New(chunker.NewSentenceChunker(), emb, memory.NewIndex(), nil), nil
	})

	policy := augment.NewPolicy(gate.Retriever(time.Second), 0, 0, nil)
	chatSvc := chat.NewService(files, policy, completer, nil)

	srv := New(gate, files, chatSvc, summarizer.NewFrequencySummarizer(), time.Second, nil)
	return srv.Router()
}

func doJSON(t *testing.T, router *gin.Engine, method, path string, body any) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	var resp map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp), "body: %s", w.Body.String())
	return w, resp
}

func uploadFile(t *testing.T, router *gin.Engine, filename, content string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = part.Write([]byte(content))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/upload", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	var resp map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp), "body: %s", w.Body.String())
	return w, resp
}

func TestInitializationStatus(t *testing.T) {
	router := newTestRouter(t, stubCompleter{reply: "ok"})

	// poll until the background init completes
	require.Eventually(t, func() bool {
		_, resp := doJSON(t, router, http.MethodGet, "/initialization_status", nil)
		done, _ := resp["is_complete"].(bool)
		return done
	}, time.Second, 10*time.Millisecond)

	w, resp := doJSON(t, router, http.MethodGet, "/initialization_status", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, false, resp["is_initializing"])
	assert.Equal(t, true, resp["is_complete"])
	assert.Nil(t, resp["error"])
}

func TestInitializationStatusReportsFailure(t *testing.T) {
	gin.SetMode(gin.TestMode)
	files, err := docstore.NewFileStore(t.TempDir())
	require.NoError(t, err)

	gate := ready.NewGate(nil)
	gate.Start(func() (*store.VectorStore, error) {
		return nil, errors.New("model artifacts missing")
	})
	policy := augment.NewPolicy(gate.Retriever(time.Second), 0, 0, nil)
	chatSvc := chat.NewService(files, policy, stubCompleter{}, nil)
	router := New(gate, files, chatSvc, summarizer.NewFrequencySummarizer(), time.Second, nil).Router()

	require.Eventually(t, func() bool {
		_, resp := doJSON(t, router, http.MethodGet, "/initialization_status", nil)
		return resp["error"] != nil
	}, time.Second, 10*time.Millisecond)

	_, resp := doJSON(t, router, http.MethodGet, "/initialization_status", nil)
	assert.Equal(t, false, resp["is_complete"])
	assert.Contains(t, resp["error"], "model artifacts missing")
}

func TestUploadAndListFiles(t *testing.T) {
	router := newTestRouter(t, stubCompleter{reply: "ok"})

	w, resp := uploadFile(t, router, "animals.txt", "Cats are mammals. Fish live in water.")
	require.Equal(t, http.StatusOK, w.Code, "body: %s", w.Body.String())
	assert.Equal(t, "animals.txt", resp["filename"])
	assert.Equal(t, float64(2), resp["chunks"])
	assert.NotEmpty(t, resp["summary"])

	w, resp = doJSON(t, router, http.MethodGet, "/files", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []any{"animals.txt"}, resp["files"])
}

func TestUploadRejectsMissingFileField(t *testing.T) {
	router := newTestRouter(t, stubCompleter{})

	req := httptest.NewRequest(http.MethodPost, "/upload", strings.NewReader(""))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestUploadRejectsNonTxtFile(t *testing.T) {
	router := newTestRouter(t, stubCompleter{})

	w, resp := uploadFile(t, router, "binary.bin", "data")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, resp["error"], ".txt")
}

func TestRemoveFile(t *testing.T) {
	router := newTestRouter(t, stubCompleter{reply: "ok"})

	w, _ := uploadFile(t, router, "gone.txt", "Something here.")
	require.Equal(t, http.StatusOK, w.Code)

	w, resp := doJSON(t, router, http.MethodDelete, "/files/gone.txt", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "gone.txt", resp["filename"])
	assert.Equal(t, float64(1), resp["removed_chunks"])

	w, resp = doJSON(t, router, http.MethodGet, "/files", nil)
	assert.Equal(t, []any{}, resp["files"])

	w, _ = doJSON(t, router, http.MethodDelete, "/files/gone.txt", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestChatPlainMessage(t *testing.T) {
	router := newTestRouter(t, stubCompleter{reply: "hello back"})

	w, resp := doJSON(t, router, http.MethodPost, "/chat", gin.H{"message": "hello"})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "hello back", resp["response"])
}

func TestChatWithDocumentMention(t *testing.T) {
	router := newTestRouter(t, stubCompleter{reply: "it is about cats"})

	w, _ := uploadFile(t, router, "cats.txt", "Cats are mammals.")
	require.Equal(t, http.StatusOK, w.Code)

	w, resp := doJSON(t, router, http.MethodPost, "/chat", gin.H{"message": "what is @cats.txt about?"})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "it is about cats", resp["response"])
}

func TestChatMissingMessage(t *testing.T) {
	router := newTestRouter(t, stubCompleter{})

	w, resp := doJSON(t, router, http.MethodPost, "/chat", gin.H{})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "missing message", resp["error"])
}

func TestChatBackendErrorIsReturnedInBody(t *testing.T) {
	router := newTestRouter(t, stubCompleter{err: errors.New("connection refused")})

	w, resp := doJSON(t, router, http.MethodPost, "/chat", gin.H{"message": "hello"})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Error connecting to the completion backend: connection refused", resp["response"])
}
