package provider_test

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/contractcheck/contractcheck/internal/core/domain"
	apperrors "github.com/contractcheck/contractcheck/internal/errors"
	"github.com/contractcheck/contractcheck/internal/log"
	"github.com/contractcheck/contractcheck/internal/provider"
)

func TestHTTPClientExecute(t *testing.T) {
	t.Run("replays the request and decodes the response", func(t *testing.T) {
		var got *http.Request
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			got = r.Clone(context.Background())
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusCreated)
			w.Write([]byte(`{"id": 1}`))
		}))
		defer server.Close()

		client := provider.NewHTTPClient(server.URL, log.Noop(),
			provider.WithHeaders(map[string]string{"Authorization": "Bearer token"}))
		request := &domain.Request{
			Method:  "POST",
			Path:    "/users",
			Query:   map[string][]string{"notify": {"true"}},
			Headers: map[string][]string{"Accept": {"application/json"}},
			Body: domain.PresentBody([]byte(`{"name": "fred"}`),
				domain.ParseContentType("application/json")),
		}

		response, err := client.Execute(context.Background(), request)
		require.NoError(t, err)

		assert.Equal(t, "POST", got.Method)
		assert.Equal(t, "/users", got.URL.Path)
		assert.Equal(t, "true", got.URL.Query().Get("notify"))
		assert.Equal(t, "application/json", got.Header.Get("Accept"))
		assert.Equal(t, "application/json", got.Header.Get("Content-Type"))
		assert.Equal(t, "Bearer token", got.Header.Get("Authorization"))

		assert.Equal(t, 201, response.Status)
		assert.True(t, response.Body.ContentType.IsJSON())
		assert.JSONEq(t, `{"id": 1}`, response.Body.ValueString())
	})

	t.Run("unreachable provider", func(t *testing.T) {
		client := provider.NewHTTPClient("http://127.0.0.1:1", log.Noop())
		_, err := client.Execute(context.Background(), &domain.Request{Method: "GET", Path: "/"})
		assert.Error(t, err)
	})

	t.Run("unresponsive provider hits the client timeout", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			time.Sleep(500 * time.Millisecond)
		}))
		defer server.Close()

		client := provider.NewHTTPClient(server.URL, log.Noop(),
			provider.WithHTTPClient(&http.Client{Timeout: 20 * time.Millisecond}))

		start := time.Now()
		_, err := client.Execute(context.Background(), &domain.Request{Method: "GET", Path: "/"})
		require.Error(t, err)
		assert.Equal(t, apperrors.CodeTimeout, apperrors.GetCode(err))
		assert.Less(t, time.Since(start), 500*time.Millisecond)
	})
}

func TestHTTPClientExecuteMessage(t *testing.T) {
	interaction := &domain.Interaction{
		Description:    "a user created event",
		ProviderStates: []domain.ProviderState{{Name: "user exists"}},
	}

	t.Run("posts the description and decodes the message", func(t *testing.T) {
		metadata := base64.StdEncoding.EncodeToString([]byte(`{"queue": "users"}`))
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/messages", r.URL.Path)
			w.Header().Set("Content-Type", "application/json")
			w.Header().Set("Pact-Message-Metadata", metadata)
			w.Write([]byte(`{"id": 42}`))
		}))
		defer server.Close()

		client := provider.NewHTTPClient(server.URL, log.Noop(),
			provider.WithMessagePath("/messages"))
		message, err := client.ExecuteMessage(context.Background(), interaction)
		require.NoError(t, err)

		assert.JSONEq(t, `{"id": 42}`, message.Contents.ValueString())
		assert.Equal(t, "users", message.Metadata["queue"])
		assert.Equal(t, "application/json", message.Metadata["contentType"])
	})

	t.Run("non-2xx response is an error", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNotFound)
		}))
		defer server.Close()

		client := provider.NewHTTPClient(server.URL, log.Noop())
		_, err := client.ExecuteMessage(context.Background(), interaction)
		assert.Error(t, err)
	})
}

func TestStateChanger(t *testing.T) {
	interaction := &domain.Interaction{Description: "a request"}
	state := domain.ProviderState{Name: "user 42 exists", Params: map[string]any{"id": 42}}

	t.Run("setup posts the state and returns generator values", func(t *testing.T) {
		var body map[string]any
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			require.NoError(t, decodeJSON(r, &body))
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(`{"userId": "42"}`))
		}))
		defer server.Close()

		changer := provider.NewStateChanger(server.URL, log.Noop())
		values, err := changer.Setup(context.Background(), interaction, state)
		require.NoError(t, err)

		assert.Equal(t, "user 42 exists", body["state"])
		assert.Equal(t, "setup", body["action"])
		assert.Equal(t, map[string]any{"id": float64(42)}, body["params"])
		assert.Equal(t, map[string]any{"userId": "42"}, values)
	})

	t.Run("no URL configured is a no-op", func(t *testing.T) {
		changer := provider.NewStateChanger("", log.Noop())
		values, err := changer.Setup(context.Background(), interaction, state)
		require.NoError(t, err)
		assert.Nil(t, values)
	})

	t.Run("failing handler", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		}))
		defer server.Close()

		changer := provider.NewStateChanger(server.URL, log.Noop())
		_, err := changer.Setup(context.Background(), interaction, state)
		assert.Error(t, err)
	})

	t.Run("unresponsive handler hits the client timeout", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			time.Sleep(500 * time.Millisecond)
		}))
		defer server.Close()

		changer := provider.NewStateChanger(server.URL, log.Noop(),
			provider.WithStateHTTPClient(&http.Client{Timeout: 20 * time.Millisecond}))
		_, err := changer.Setup(context.Background(), interaction, state)
		require.Error(t, err)
		assert.Equal(t, apperrors.CodeTimeout, apperrors.GetCode(err))
	})

	t.Run("teardown only fires when enabled", func(t *testing.T) {
		calls := 0
		var body map[string]any
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			calls++
			require.NoError(t, decodeJSON(r, &body))
		}))
		defer server.Close()

		quiet := provider.NewStateChanger(server.URL, log.Noop())
		require.NoError(t, quiet.Teardown(context.Background(), interaction, state))
		assert.Equal(t, 0, calls)

		changer := provider.NewStateChanger(server.URL, log.Noop(), provider.WithTeardownCalls())
		require.NoError(t, changer.Teardown(context.Background(), interaction, state))
		assert.Equal(t, 1, calls)
		assert.Equal(t, "teardown", body["action"])
	})
}

func decodeJSON(r *http.Request, into *map[string]any) error {
	defer r.Body.Close()
	return json.NewDecoder(r.Body).Decode(into)
}
