package apiclient

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codeexpert/syncengine/pkg/project"
)

type fakeSigner struct {
	lastPayload map[string]any
}

func (f *fakeSigner) Sign(payload map[string]any) (string, error) {
	f.lastPayload = payload
	return "signed-token", nil
}

func TestGetProjectInfoDecodesResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/project/p1/info", r.URL.Path)
		assert.Equal(t, "Bearer signed-token", r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(ProjectInfoResponse{
			ID: "p1",
			Files: []project.RemoteFileInfo{
				{Path: "a.txt", Type: project.TypeFile, Version: 1, Permissions: project.PermReadWrite},
			},
		})
	}))
	defer srv.Close()

	client := New(srv.URL, &fakeSigner{})
	resp, err := client.GetProjectInfo(context.Background(), "p1")
	require.NoError(t, err)
	assert.Equal(t, project.ID("p1"), resp.ID)
	require.Len(t, resp.Files, 1)
	assert.Equal(t, "a.txt", resp.Files[0].Path)
}

func TestRequestClassifiesServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte("boom"))
	}))
	defer srv.Close()

	client := New(srv.URL, &fakeSigner{})
	_, err := client.GetProjectInfo(context.Background(), "p1")
	require.Error(t, err)

	var apiErr *ApiError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, KindServerError, apiErr.Kind)
}

func TestRequestClassifiesClientError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	client := New(srv.URL, &fakeSigner{})
	_, err := client.GetProjectInfo(context.Background(), "missing")
	require.Error(t, err)

	var apiErr *ApiError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, KindClientError, apiErr.Kind)
}

func TestGetClientIDIsUnsigned(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Empty(t, r.Header.Get("Authorization"))
		json.NewEncoder(w).Encode(ClientIDResponse{Token: "tok"})
	}))
	defer srv.Close()

	client := New(srv.URL, &fakeSigner{})
	resp, err := client.GetClientID(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "tok", resp.Token)
}

func TestPostProjectFilesSignsTarHashAndRemoveFiles(t *testing.T) {
	signer := &fakeSigner{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "application/x-tar", r.Header.Get("Content-Type"))
		assert.Equal(t, "br", r.Header.Get("Content-Encoding"))
		json.NewEncoder(w).Encode(ProjectInfoResponse{ID: "p1"})
	}))
	defer srv.Close()

	client := New(srv.URL, signer)
	_, err := client.PostProjectFiles(context.Background(), "p1", "abc123", []byte("tarbytes"), []string{"old.txt"})
	require.NoError(t, err)

	assert.Equal(t, "abc123", signer.lastPayload["tarHash"])
	assert.Equal(t, []string{"old.txt"}, signer.lastPayload["removeFiles"])
}
