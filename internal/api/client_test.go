package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(handler http.Handler) (*Client, *httptest.Server) {
	srv := httptest.NewServer(handler)
	return NewClient(srv.URL, 5*time.Second), srv
}

func testCreds() Credentials {
	return Credentials{AccessToken: "token-1", StoreHash: "abc123"}
}

func TestGetStoreHash(t *testing.T) {
	t.Run("returns the discovered hash", func(t *testing.T) {
		client, srv := newTestClient(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/stores/v3/lookup", r.URL.Path)
			assert.Equal(t, "https://store.example.com", r.URL.Query().Get("storeUrl"))
			assert.Equal(t, "token-1", r.Header.Get("X-Auth-Token"))
			json.NewEncoder(w).Encode(map[string]string{"store_hash": "abc123"})
		}))
		defer srv.Close()

		hash, err := client.GetStoreHash(context.Background(), "token-1", "https://store.example.com")
		require.NoError(t, err)
		assert.Equal(t, "abc123", hash)
	})

	t.Run("non-2xx is an APIError", func(t *testing.T) {
		client, srv := newTestClient(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			http.Error(w, "nope", http.StatusForbidden)
		}))
		defer srv.Close()

		_, err := client.GetStoreHash(context.Background(), "token-1", "https://store.example.com")

		var apiErr *APIError
		require.ErrorAs(t, err, &apiErr)
		assert.Equal(t, http.StatusForbidden, apiErr.Status)
		assert.False(t, apiErr.Timeout())
	})
}

func TestGetThemes(t *testing.T) {
	client, srv := newTestClient(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/stores/abc123/v3/themes", r.URL.Path)
		json.NewEncoder(w).Encode(map[string]any{
			"data": []map[string]any{
				{"uuid": "t1", "name": "old", "is_private": true, "is_active": false, "updated_at": "2024-01-02T00:00:00Z"},
			},
		})
	}))
	defer srv.Close()

	themes, err := client.GetThemes(context.Background(), testCreds())
	require.NoError(t, err)
	require.Len(t, themes, 1)
	assert.Equal(t, "t1", themes[0].UUID)
	assert.True(t, themes[0].IsPrivate)
	assert.Equal(t, 2024, themes[0].UpdatedAt.Year())
}

func TestPostTheme(t *testing.T) {
	bundlePath := filepath.Join(t.TempDir(), "theme.zip")
	require.NoError(t, os.WriteFile(bundlePath, []byte("zipbytes"), 0o644))

	t.Run("uploads the artifact as multipart and returns the job", func(t *testing.T) {
		client, srv := newTestClient(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			require.NoError(t, r.ParseMultipartForm(1<<20))
			file, header, err := r.FormFile("file")
			require.NoError(t, err)
			defer file.Close()
			assert.Equal(t, "theme.zip", header.Filename)
			json.NewEncoder(w).Encode(map[string]any{"job_id": "job-9", "theme_limit_reached": false})
		}))
		defer srv.Close()

		result, err := client.PostTheme(context.Background(), testCreds(), bundlePath)
		require.NoError(t, err)
		assert.Equal(t, "job-9", result.JobID)
		assert.False(t, result.ThemeLimitReached)
	})

	t.Run("conflict maps to the limit-reached flag, not an error", func(t *testing.T) {
		client, srv := newTestClient(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusConflict)
			json.NewEncoder(w).Encode(map[string]any{"theme_limit_reached": true})
		}))
		defer srv.Close()

		result, err := client.PostTheme(context.Background(), testCreds(), bundlePath)
		require.NoError(t, err)
		assert.True(t, result.ThemeLimitReached)
	})
}

func TestGetJob(t *testing.T) {
	t.Run("non-completed status is pending", func(t *testing.T) {
		client, srv := newTestClient(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/stores/abc123/v3/themes/jobs/job-9", r.URL.Path)
			json.NewEncoder(w).Encode(map[string]any{
				"data": map[string]any{"status": "PENDING", "percent_complete": 40},
			})
		}))
		defer srv.Close()

		job, err := client.GetJob(context.Background(), testCreds(), "job-9")
		require.NoError(t, err)
		assert.True(t, job.Pending)
		assert.Equal(t, 40, job.PercentComplete)
	})

	t.Run("completed status is terminal and carries the result", func(t *testing.T) {
		client, srv := newTestClient(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			json.NewEncoder(w).Encode(map[string]any{
				"data": map[string]any{
					"status": "COMPLETED", "percent_complete": 100,
					"result": map[string]any{"theme_id": "theme-1"},
				},
			})
		}))
		defer srv.Close()

		job, err := client.GetJob(context.Background(), testCreds(), "job-9")
		require.NoError(t, err)
		assert.False(t, job.Pending)
		assert.Equal(t, "theme-1", job.Result.ThemeID)
	})
}

func TestVariationsAndActivation(t *testing.T) {
	client, srv := newTestClient(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodGet:
			json.NewEncoder(w).Encode(map[string]any{
				"data": map[string]any{
					"variations": []map[string]string{
						{"uuid": "v1", "name": "Light"},
						{"uuid": "v2", "name": "Dark"},
					},
				},
			})
		case r.Method == http.MethodPost:
			var body map[string]string
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			assert.Equal(t, "v2", body["variation_id"])
			w.WriteHeader(http.StatusNoContent)
		}
	}))
	defer srv.Close()

	variations, err := client.GetVariationsByThemeID(context.Background(), testCreds(), "theme-1")
	require.NoError(t, err)
	require.Len(t, variations, 2)
	assert.Equal(t, "Dark", variations[1].Name)

	require.NoError(t, client.ActivateThemeByVariationID(context.Background(), testCreds(), "v2"))
}

func TestDeleteThemeByID(t *testing.T) {
	client, srv := newTestClient(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodDelete, r.Method)
		assert.Equal(t, "/stores/abc123/v3/themes/t1", r.URL.Path)
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	require.NoError(t, client.DeleteThemeByID(context.Background(), testCreds(), "t1"))
}

func TestAPIErrorTimeoutClassification(t *testing.T) {
	assert.True(t, (&APIError{Status: http.StatusGatewayTimeout}).Timeout())
	assert.True(t, (&APIError{Status: http.StatusRequestTimeout}).Timeout())
	assert.False(t, (&APIError{Status: http.StatusBadRequest}).Timeout())
}
