package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t testing.TB, handler http.HandlerFunc) *Client {
	t.Helper()

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	return New(srv.URL)
}

func TestClient_Login(t *testing.T) {
	t.Run("success sends form-encoded credentials", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, http.MethodPost, r.Method)
			assert.Equal(t, "/auth/token", r.URL.Path)
			assert.Equal(t, "application/x-www-form-urlencoded", r.Header.Get("Content-Type"))
			assert.Empty(t, r.Header.Get("Authorization"))

			require.NoError(t, r.ParseForm())
			assert.Equal(t, "alice", r.PostForm.Get("username"))
			assert.Equal(t, "secret", r.PostForm.Get("password"))

			json.NewEncoder(w).Encode(map[string]string{
				"access_token": "tok-123",
				"token_type":   "bearer",
			})
		})

		token, err := client.Login(context.Background(), "alice", "secret")

		assert.NoError(t, err)
		assert.Equal(t, "tok-123", token)
	})

	t.Run("invalid credentials surface the server detail", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusUnauthorized)
			json.NewEncoder(w).Encode(map[string]string{
				"detail": "Incorrect username or password",
			})
		})

		expired := 0
		client.OnAuthExpired(func() { expired++ })

		token, err := client.Login(context.Background(), "invaliduser", "invalidpassword")

		assert.Empty(t, token)
		assert.NotErrorIs(t, err, ErrAuthExpired)

		var apiErr *Error
		require.ErrorAs(t, err, &apiErr)
		assert.Equal(t, http.StatusUnauthorized, apiErr.Status)
		assert.Equal(t, "Incorrect username or password", apiErr.Detail)
		assert.Zero(t, expired, "an unauthenticated 401 must not expire the session")
	})
}

func TestClient_BearerInjection(t *testing.T) {
	t.Run("token attached when held", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "Bearer tok-123", r.Header.Get("Authorization"))
			json.NewEncoder(w).Encode(map[string]any{"id": 1, "username": "alice"})
		})
		client.SetToken("tok-123")

		user, err := client.CurrentUser(context.Background())

		assert.NoError(t, err)
		assert.Equal(t, "alice", user.Username)
	})

	t.Run("no header without token", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			assert.Empty(t, r.Header.Get("Authorization"))
			w.WriteHeader(http.StatusOK)
			w.Write([]byte(`{}`))
		})

		assert.NoError(t, client.Health(context.Background()))
	})
}

func TestClient_AuthExpired(t *testing.T) {
	t.Run("401 clears the token and fires the hook once", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			if r.Header.Get("Authorization") != "" {
				w.WriteHeader(http.StatusUnauthorized)
				json.NewEncoder(w).Encode(map[string]string{"detail": "Could not validate credentials"})
				return
			}
			w.WriteHeader(http.StatusUnauthorized)
			w.Write([]byte(`{"detail": "Not authenticated"}`))
		})

		expired := 0
		client.OnAuthExpired(func() { expired++ })
		client.SetToken("tok-dead")

		_, err := client.CurrentUser(context.Background())
		assert.ErrorIs(t, err, ErrAuthExpired)
		assert.Equal(t, 1, expired)

		_, held := client.Token()
		assert.False(t, held, "token must be cleared synchronously on 401")

		// A follow-up call goes out unauthenticated; its 401 is a plain
		// API error and must not re-trigger the expiry reaction.
		_, err = client.CurrentUser(context.Background())
		assert.NotErrorIs(t, err, ErrAuthExpired)
		assert.Equal(t, 1, expired)
	})

	t.Run("stale 401 does not tear down a re-established session", func(t *testing.T) {
		client := New("http://unused")

		expired := 0
		client.OnAuthExpired(func() { expired++ })
		client.SetToken("tok-new")

		// A queued response rejecting the previous token arrives late.
		client.expire("tok-old")

		token, held := client.Token()
		assert.True(t, held)
		assert.Equal(t, "tok-new", token)
		assert.Zero(t, expired)
	})
}

func TestClient_Errors(t *testing.T) {
	t.Run("non-2xx propagates status and detail", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusConflict)
			json.NewEncoder(w).Encode(map[string]string{"detail": "Short code already exists"})
		})
		client.SetToken("tok-123")

		_, err := client.CreateLinkRecord(context.Background(), CreateLink{
			ShortCode: "docs",
			TargetURL: "https://example.com",
			Title:     "Docs",
		})

		var apiErr *Error
		require.ErrorAs(t, err, &apiErr)
		assert.Equal(t, http.StatusConflict, apiErr.Status)
		assert.Equal(t, "Short code already exists", apiErr.Detail)

		token, held := client.Token()
		assert.True(t, held, "non-401 errors must not touch session state")
		assert.Equal(t, "tok-123", token)
	})

	t.Run("structured detail falls back to generic message", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusUnprocessableEntity)
			w.Write([]byte(`{"detail": [{"loc": ["body", "target_url"], "msg": "invalid url"}]}`))
		})

		_, err := client.GetLink(context.Background(), 1)

		var apiErr *Error
		require.ErrorAs(t, err, &apiErr)
		assert.Equal(t, http.StatusUnprocessableEntity, apiErr.Status)
		assert.Empty(t, apiErr.Detail)
		assert.Contains(t, apiErr.Error(), "unexpected status 422")
	})

	t.Run("unreachable server yields a network error", func(t *testing.T) {
		srv := httptest.NewServer(http.NotFoundHandler())
		srv.Close()

		client := New(srv.URL)

		err := client.Health(context.Background())

		var netErr *NetworkError
		assert.ErrorAs(t, err, &netErr)
	})
}

func TestClient_LinkEndpoints(t *testing.T) {
	t.Run("list passes pagination and search parameters", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/links", r.URL.Path)
			assert.Equal(t, "20", r.URL.Query().Get("skip"))
			assert.Equal(t, "10", r.URL.Query().Get("limit"))
			assert.Equal(t, "docs", r.URL.Query().Get("search"))

			json.NewEncoder(w).Encode(map[string]any{
				"links": []any{}, "total": 0, "page": 3, "per_page": 10,
			})
		})
		client.SetToken("tok-123")

		page, err := client.ListLinks(context.Background(), 20, 10, "docs")

		assert.NoError(t, err)
		assert.Equal(t, 3, page.Page)
	})

	t.Run("empty search term is omitted", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			_, present := r.URL.Query()["search"]
			assert.False(t, present)
			json.NewEncoder(w).Encode(map[string]any{"links": []any{}})
		})

		_, err := client.ListLinks(context.Background(), 0, 10, "")
		assert.NoError(t, err)
	})

	t.Run("detail, update and delete address links by id", func(t *testing.T) {
		var gotPaths []string
		var gotMethods []string

		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			gotPaths = append(gotPaths, r.URL.Path)
			gotMethods = append(gotMethods, r.Method)
			json.NewEncoder(w).Encode(map[string]any{"id": 42, "short_code": "docs"})
		})
		client.SetToken("tok-123")

		_, err := client.GetLink(context.Background(), 42)
		require.NoError(t, err)

		title := "Updated"
		_, err = client.UpdateLinkRecord(context.Background(), 42, UpdateLink{Title: &title})
		require.NoError(t, err)

		err = client.DeleteLinkRecord(context.Background(), 42)
		require.NoError(t, err)

		assert.Equal(t, []string{"/links/id/42", "/links/42", "/links/42"}, gotPaths)
		assert.Equal(t, []string{http.MethodGet, http.MethodPut, http.MethodDelete}, gotMethods)
	})

	t.Run("update sends only the set fields", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			var body map[string]any
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))

			assert.Equal(t, map[string]any{"is_active": false}, body)
			json.NewEncoder(w).Encode(map[string]any{"id": 42})
		})
		client.SetToken("tok-123")

		inactive := false
		_, err := client.UpdateLinkRecord(context.Background(), 42, UpdateLink{IsActive: &inactive})
		assert.NoError(t, err)
	})

	t.Run("stats is addressed by short code", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/links/stats/docs", r.URL.Path)
			json.NewEncoder(w).Encode(map[string]any{
				"short_code":   "docs",
				"access_count": 0,
				"created_at":   "2024-05-01T10:00:00Z",
			})
		})
		client.SetToken("tok-123")

		stats, err := client.LinkStats(context.Background(), "docs")

		assert.NoError(t, err)
		assert.Zero(t, stats.AccessCount)
		assert.Nil(t, stats.LastAccessed, "never-visited links have no last access")
	})
}
