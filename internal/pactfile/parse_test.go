package pactfile_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/contractcheck/contractcheck/internal/core/domain"
	"github.com/contractcheck/contractcheck/internal/pactfile"
)

func TestParseV2(t *testing.T) {
	data := []byte(`{
		"consumer": {"name": "Consumer"},
		"provider": {"name": "Provider"},
		"interactions": [
			{
				"description": "a request for users",
				"providerState": "users exist",
				"request": {
					"method": "get",
					"path": "/users",
					"query": "page=1&size=20",
					"headers": {"Accept": "application/json"},
					"matchingRules": {
						"$.body.name": {"match": "type"},
						"$.query.page": {"match": "regex", "regex": "\\d+"}
					},
					"body": {"name": "fred"}
				},
				"response": {
					"headers": {"Content-Type": "application/json"},
					"body": {"name": "fred"}
				}
			}
		],
		"metadata": {"pactSpecification": {"version": "2.0.0"}}
	}`)

	pact, err := pactfile.Parse(data, "test.json")
	require.NoError(t, err)

	assert.Equal(t, "Consumer", pact.Consumer)
	assert.Equal(t, "Provider", pact.Provider)
	assert.Equal(t, "test.json", pact.Source)
	require.Len(t, pact.Interactions, 1)

	interaction := pact.Interactions[0]
	assert.Equal(t, "a request for users", interaction.Description)
	require.Len(t, interaction.ProviderStates, 1)
	assert.Equal(t, "users exist", interaction.ProviderStates[0].Name)

	request := interaction.Request
	require.NotNil(t, request)
	assert.Equal(t, "GET", request.Method)
	assert.Equal(t, "/users", request.Path)
	assert.Equal(t, map[string][]string{"page": {"1"}, "size": {"20"}}, request.Query)
	assert.Equal(t, []string{"application/json"}, request.Headers["Accept"])
	assert.True(t, request.Body.IsPresent())
	assert.True(t, request.Body.ContentType.IsJSON())

	rules, ok := request.Rules().Category(domain.CategoryBody).RulesForExpression("$.name")
	require.True(t, ok)
	require.Len(t, rules.Rules, 1)
	assert.Equal(t, domain.RuleType, rules.Rules[0].Kind)

	rules, ok = request.Rules().Category(domain.CategoryQuery).RulesForExpression("$.page")
	require.True(t, ok)
	require.Len(t, rules.Rules, 1)
	assert.Equal(t, domain.RuleRegex, rules.Rules[0].Kind)
	assert.Equal(t, `\d+`, rules.Rules[0].Regex)

	response := interaction.Response
	require.NotNil(t, response)
	assert.Equal(t, 200, response.Status, "status defaults to 200")
}

func TestParseV3(t *testing.T) {
	data := []byte(`{
		"consumer": {"name": "Consumer"},
		"provider": {"name": "Provider"},
		"interactions": [
			{
				"description": "a request for a user",
				"providerStates": [
					{"name": "user 42 exists", "params": {"id": 42}}
				],
				"request": {
					"method": "GET",
					"path": "/users/42",
					"query": {"include": ["address", "phone"]},
					"matchingRules": {
						"path": {"matchers": [{"match": "regex", "regex": "/users/\\d+"}]}
					}
				},
				"response": {
					"status": 200,
					"headers": {"Content-Type": "application/json"},
					"body": {"id": 42},
					"matchingRules": {
						"body": {
							"$.id": {"matchers": [{"match": "integer"}], "combine": "AND"}
						}
					}
				}
			}
		],
		"messages": [
			{
				"description": "a user created event",
				"metaData": {"contentType": "application/json", "queue": "users"},
				"contents": {"id": 42},
				"matchingRules": {
					"body": {"$.id": {"matchers": [{"match": "type"}]}}
				}
			}
		],
		"metadata": {"pactSpecification": {"version": "3.0.0"}}
	}`)

	pact, err := pactfile.Parse(data, "v3.json")
	require.NoError(t, err)
	require.Len(t, pact.Interactions, 2)

	http := pact.Interactions[0]
	require.NotNil(t, http.Request)
	require.Len(t, http.ProviderStates, 1)
	assert.Equal(t, "user 42 exists", http.ProviderStates[0].Name)
	assert.Equal(t, map[string]any{"id": float64(42)}, http.ProviderStates[0].Params)
	assert.Equal(t, map[string][]string{"include": {"address", "phone"}}, http.Request.Query)

	rules, ok := http.Request.Rules().Category(domain.CategoryPath).RulesForExpression("$")
	require.True(t, ok)
	require.Len(t, rules.Rules, 1)
	assert.Equal(t, domain.RuleRegex, rules.Rules[0].Kind)

	rules, ok = http.Response.Rules().Category(domain.CategoryBody).RulesForExpression("$.id")
	require.True(t, ok)
	require.Len(t, rules.Rules, 1)
	assert.Equal(t, domain.RuleInteger, rules.Rules[0].Kind)

	message := pact.Interactions[1]
	require.True(t, message.IsMessage())
	assert.Equal(t, "a user created event", message.Description)
	assert.Equal(t, "users", message.Message.Metadata["queue"])
	assert.True(t, message.Message.Contents.ContentType.IsJSON())

	rules, ok = message.Message.Rules().Category(domain.CategoryBody).RulesForExpression("$.id")
	require.True(t, ok)
	assert.Equal(t, domain.RuleType, rules.Rules[0].Kind)
}

func TestParseV4(t *testing.T) {
	data := []byte(`{
		"consumer": {"name": "Consumer"},
		"provider": {"name": "Provider"},
		"interactions": [
			{
				"type": "Synchronous/HTTP",
				"key": "7b2d1a",
				"pending": true,
				"description": "a request for a report",
				"request": {
					"method": "GET",
					"path": "/report"
				},
				"response": {
					"status": 200,
					"body": {
						"content": "JVBERi0xLjQ=",
						"contentType": "application/pdf",
						"encoded": "base64"
					}
				}
			},
			{
				"type": "Asynchronous/Messages",
				"description": "an order event",
				"contents": {
					"content": {"order": 1},
					"contentType": "application/json"
				},
				"metadata": {"queue": "orders"}
			}
		],
		"metadata": {"pactSpecification": {"version": "4.0"}}
	}`)

	pact, err := pactfile.Parse(data, "v4.json")
	require.NoError(t, err)
	require.Len(t, pact.Interactions, 2)

	http := pact.Interactions[0]
	assert.Equal(t, "7b2d1a", http.Key)
	assert.True(t, http.Pending)
	require.NotNil(t, http.Response)
	assert.Equal(t, []byte("%PDF-1.4"), http.Response.Body.Value)
	assert.Equal(t, "application/pdf", http.Response.Body.ContentType.Base())

	message := pact.Interactions[1]
	require.True(t, message.IsMessage())
	assert.Equal(t, "orders", message.Message.Metadata["queue"])
	assert.True(t, message.Message.Contents.ContentType.IsJSON())
	assert.JSONEq(t, `{"order": 1}`, message.Message.Contents.ValueString())
}

func TestParseBodies(t *testing.T) {
	t.Run("absent body is missing", func(t *testing.T) {
		pact := parseOne(t, `{"request": {"method": "GET", "path": "/"}, "response": {"status": 204}}`)
		assert.Equal(t, domain.BodyMissing, pact.Interactions[0].Response.Body.State)
	})

	t.Run("null body", func(t *testing.T) {
		pact := parseOne(t, `{"request": {"method": "GET", "path": "/"}, "response": {"status": 200, "body": null}}`)
		assert.Equal(t, domain.BodyNull, pact.Interactions[0].Response.Body.State)
	})

	t.Run("string body with a text content type is unwrapped", func(t *testing.T) {
		pact := parseOne(t, `{"request": {"method": "GET", "path": "/"},
			"response": {"status": 200, "headers": {"Content-Type": "text/plain"}, "body": "hello"}}`)
		body := pact.Interactions[0].Response.Body
		assert.Equal(t, "hello", body.ValueString())
	})

	t.Run("content type detected from the body", func(t *testing.T) {
		pact := parseOne(t, `{"request": {"method": "GET", "path": "/"},
			"response": {"status": 200, "body": {"a": 1}}}`)
		assert.True(t, pact.Interactions[0].Response.Body.ContentType.IsJSON())
	})
}

func TestParseErrors(t *testing.T) {
	t.Run("not JSON", func(t *testing.T) {
		_, err := pactfile.Parse([]byte("not a pact"), "bad")
		assert.Error(t, err)
	})

	t.Run("missing participant names", func(t *testing.T) {
		_, err := pactfile.Parse([]byte(`{"consumer": {"name": "C"}, "interactions": []}`), "bad")
		assert.Error(t, err)
	})

	t.Run("unrecognised rule category", func(t *testing.T) {
		_, err := pactfile.Parse([]byte(`{
			"consumer": {"name": "C"}, "provider": {"name": "P"},
			"interactions": [{"description": "d", "request": {
				"method": "GET", "path": "/",
				"matchingRules": {"bogus": {"$.a": {"matchers": []}}}
			}, "response": {"status": 200}}]
		}`), "bad")
		assert.Error(t, err)
	})
}

func parseOne(t *testing.T, interaction string) *domain.Pact {
	t.Helper()
	data := `{"consumer": {"name": "C"}, "provider": {"name": "P"},
		"interactions": [` + interaction + `]}`
	pact, err := pactfile.Parse([]byte(data), "inline")
	require.NoError(t, err)
	require.Len(t, pact.Interactions, 1)
	return pact
}
