package pactfile_test

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/contractcheck/contractcheck/internal/core/domain"
	"github.com/contractcheck/contractcheck/internal/pactfile"
)

// fakeBroker serves the HAL resources a verification run touches: the index,
// the pacts-for-verification endpoint and the pact documents themselves.
func fakeBroker(t *testing.T) (*httptest.Server, *map[string]any) {
	t.Helper()
	var lastQuery map[string]any
	mux := http.NewServeMux()
	server := httptest.NewServer(mux)

	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, `{"_links": {
			"pb:provider-pacts-for-verification": {
				"href": "%s/pacts/provider/{provider}/for-verification", "templated": true
			}
		}}`, server.URL)
	})
	mux.HandleFunc("/pacts/provider/Provider/for-verification", func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(body, &lastQuery))
		fmt.Fprintf(w, `{"_embedded": {"pacts": [
			{
				"_links": {"self": {"href": "%s/pacts/1", "name": "Consumer"}},
				"verificationProperties": {
					"pending": true,
					"notices": [{"when": "before_verification", "text": "pending pact"}]
				}
			}
		]}}`, server.URL)
	})
	mux.HandleFunc("/pacts/1", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, `{
			"consumer": {"name": "Consumer"},
			"provider": {"name": "Provider"},
			"interactions": [
				{"description": "a request", "request": {"method": "GET", "path": "/"},
				 "response": {"status": 200}}
			],
			"_links": {"pb:publish-verification-results": {"href": "%s/publish/1"}}
		}`, server.URL)
	})
	return server, &lastQuery
}

func TestBrokerSource(t *testing.T) {
	server, lastQuery := fakeBroker(t)
	defer server.Close()

	latest := true
	source := &pactfile.BrokerSource{
		BaseURL:         server.URL,
		Provider:        "Provider",
		Selectors:       []pactfile.ConsumerVersionSelector{{Tag: "main", Latest: &latest}},
		IncludePending:  true,
		IncludeWIPSince: "2026-01-01",
	}

	pacts, err := source.Fetch(context.Background())
	require.NoError(t, err)
	require.Len(t, pacts, 1)

	pact := pacts[0]
	assert.Equal(t, "Consumer", pact.Consumer)
	assert.True(t, pact.Pending)
	require.Len(t, pact.Notices, 1)
	assert.Equal(t, "before_verification", pact.Notices[0].When)
	assert.Contains(t, pact.Links, "pb:publish-verification-results")

	query := *lastQuery
	assert.Equal(t, true, query["includePendingStatus"])
	assert.Equal(t, "2026-01-01", query["includeWipPactsSince"])
	selectors, ok := query["consumerVersionSelectors"].([]any)
	require.True(t, ok)
	require.Len(t, selectors, 1)
	assert.Equal(t, map[string]any{"tag": "main", "latest": true}, selectors[0])
}

func TestBrokerSourceErrors(t *testing.T) {
	t.Run("index without the verification relation", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprint(w, `{"_links": {}}`)
		}))
		defer server.Close()

		source := &pactfile.BrokerSource{BaseURL: server.URL, Provider: "Provider"}
		_, err := source.Fetch(context.Background())
		assert.Error(t, err)
	})

	t.Run("unauthorised index", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusForbidden)
		}))
		defer server.Close()

		source := &pactfile.BrokerSource{BaseURL: server.URL, Provider: "Provider"}
		_, err := source.Fetch(context.Background())
		assert.Error(t, err)
	})
}

func TestBrokerPublisher(t *testing.T) {
	var published map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(body, &published))
		w.WriteHeader(http.StatusCreated)
	}))
	defer server.Close()

	pact := &domain.Pact{
		Consumer: "Consumer",
		Provider: "Provider",
		Links: map[string]any{
			"pb:publish-verification-results": map[string]any{"href": server.URL + "/publish/1"},
		},
	}
	publisher := &pactfile.BrokerPublisher{
		ProviderVersion: "1.2.3",
		ProviderBranch:  "main",
		BuildURL:        "https://ci.example.com/builds/42",
	}

	t.Run("publishes a passing result", func(t *testing.T) {
		result := domain.TestResult{OK: true, InteractionIDs: []string{"1"}}
		require.NoError(t, publisher.Publish(context.Background(), pact, result))

		assert.Equal(t, true, published["success"])
		assert.Equal(t, "1.2.3", published["providerApplicationVersion"])
		assert.Equal(t, "main", published["providerVersionBranch"])
		assert.Equal(t, "https://ci.example.com/builds/42", published["buildUrl"])
	})

	t.Run("publishes failures with their descriptions", func(t *testing.T) {
		result := domain.TestResult{OK: false, Failures: []domain.InteractionResult{
			{InteractionID: "2", Description: "a request", Status: domain.StatusFailed},
		}}
		require.NoError(t, publisher.Publish(context.Background(), pact, result))

		assert.Equal(t, false, published["success"])
		tests, ok := published["testResults"].([]any)
		require.True(t, ok)
		require.Len(t, tests, 1)
	})

	t.Run("fails without a publish link", func(t *testing.T) {
		bare := &domain.Pact{Consumer: "Consumer", Provider: "Provider"}
		err := publisher.Publish(context.Background(), bare, domain.TestResult{OK: true})
		assert.Error(t, err)
	})
}
