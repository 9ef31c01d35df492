package drive

import (
	"context"
	"encoding/json"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"passagens/internal/domain"
)

func TestUploadSendsMetadataAndMedia(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.True(t, strings.HasSuffix(r.URL.Path, "/files"), r.URL.Path)
		assert.Equal(t, "multipart", r.URL.Query().Get("uploadType"))

		mediaType, params, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
		require.NoError(t, err)
		assert.Equal(t, "multipart/related", mediaType)

		mr := multipart.NewReader(r.Body, params["boundary"])
		metaPart, err := mr.NextPart()
		require.NoError(t, err)
		var meta struct {
			Name    string   `json:"name"`
			Parents []string `json:"parents"`
		}
		require.NoError(t, json.NewDecoder(metaPart).Decode(&meta))
		assert.Equal(t, "bilhete.pdf", meta.Name)
		assert.Equal(t, []string{"folder-1"}, meta.Parents)

		mediaPart, err := mr.NextPart()
		require.NoError(t, err)
		assert.Equal(t, "application/pdf", mediaPart.Header.Get("Content-Type"))
		data, _ := io.ReadAll(mediaPart)
		assert.Equal(t, "%PDF-1.3", string(data))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"file-9","webViewLink":"https://drive.google.com/file/d/file-9/view"}`))
	}))
	defer srv.Close()

	c, err := New(context.Background(), srv.Client(), srv.URL, "folder-1")
	require.NoError(t, err)
	res, err := c.Upload(context.Background(), "bilhete.pdf", "application/pdf", []byte("%PDF-1.3"))
	require.NoError(t, err)
	assert.Equal(t, "file-9", res.FileID)
	assert.Contains(t, res.WebViewLink, "file-9")
}

func TestUploadErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "quota", http.StatusForbidden)
	}))
	defer srv.Close()

	c, err := New(context.Background(), srv.Client(), srv.URL, "")
	require.NoError(t, err)
	_, err = c.Upload(context.Background(), "a.pdf", "application/pdf", []byte("x"))
	require.Error(t, err)
	assert.True(t, domain.IsUpstream(err))
}

func TestNewFromCredentialsFileMissing(t *testing.T) {
	_, err := NewFromCredentialsFile(context.Background(), "/nonexistent/key.json", "")
	assert.Error(t, err)
}
