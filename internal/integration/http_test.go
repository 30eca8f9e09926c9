package integration

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bookclub/internal/config"
	"bookclub/internal/httpapi"
	"bookclub/internal/identity"
	blobfs "bookclub/internal/infra/blob/fs"
	"bookclub/internal/roster"
)

func TestHTTPJourneyWithSignedTokens(t *testing.T) {
	svc := openService(t, config.StorageConfig{Driver: config.StorageSQLite, SQLitePath: filepath.Join(t.TempDir(), "http.db")})
	blobs, err := blobfs.New(t.TempDir())
	require.NoError(t, err)
	verifier, err := identity.NewHMACVerifier([]byte("integration-secret"), "bookclub")
	require.NoError(t, err)
	server := httpapi.NewServer(svc, verifier, httpapi.WithExporter(roster.NewExporter(svc, blobs)))

	token := func(subject string) string {
		tok, err := verifier.IssueToken(subject, time.Hour)
		require.NoError(t, err)
		return tok
	}
	call := func(method, path, subject string, body any) (int, map[string]any) {
		var reader io.Reader
		if body != nil {
			raw, err := json.Marshal(body)
			require.NoError(t, err)
			reader = bytes.NewReader(raw)
		}
		req := httptest.NewRequest(method, path, reader)
		req.Header.Set("Content-Type", "application/json")
		if subject != "" {
			req.Header.Set("Authorization", "Bearer "+token(subject))
		}
		resp, err := server.App().Test(req, -1)
		require.NoError(t, err)
		defer resp.Body.Close()
		var out map[string]any
		raw, err := io.ReadAll(resp.Body)
		require.NoError(t, err)
		if len(raw) > 0 {
			require.NoError(t, json.Unmarshal(raw, &out), string(raw))
		}
		return resp.StatusCode, out
	}

	status, _ := call(http.MethodPost, "/api/v1/people", "ada", map[string]any{"email": "ada@example.com", "nickname": "Ada"})
	require.Equal(t, http.StatusCreated, status)
	status, _ = call(http.MethodPost, "/api/v1/people", "grace", map[string]any{"email": "grace@example.com", "nickname": "Grace"})
	require.Equal(t, http.StatusCreated, status)

	status, club := call(http.MethodPost, "/api/v1/clubs", "ada", map[string]any{
		"name":            "Compilers",
		"currentBook":     map[string]any{"title": "Dragon Book", "isbn": "9780321486813"},
		"contentWarnings": []string{"parsing"},
	})
	require.Equal(t, http.StatusCreated, status, club)
	clubID := club["clubId"].(string)

	status, _ = call(http.MethodPost, "/api/v1/clubs/"+clubID+"/join", "grace", nil)
	require.Equal(t, http.StatusCreated, status)

	status, listed := call(http.MethodGet, "/api/v1/clubs?status=NOT_MEMBER", "grace", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Empty(t, listed["clubs"])

	status, export := call(http.MethodPost, "/api/v1/clubs/"+clubID+"/roster-exports?format=json", "ada", nil)
	require.Equal(t, http.StatusCreated, status, export)
	assert.EqualValues(t, 2, export["members"])
	assert.Equal(t, "ada", export["requestedBy"])

	status, body := call(http.MethodPost, "/api/v1/clubs/"+clubID+"/leave", "ada", nil)
	assert.Equal(t, http.StatusConflict, status)
	assert.Equal(t, "owner_cannot_leave", body["error"].(map[string]any)["code"])

	req := httptest.NewRequest(http.MethodGet, "/api/v1/clubs", nil)
	req.Header.Set("Authorization", "Bearer "+token("ada")+"tampered")
	resp, err := server.App().Test(req, -1)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}
