// Package pactfile decodes pact contract documents (specification versions
// 2 to 4) into the domain model, and resolves pacts from files, directories,
// URLs and a pact broker.
package pactfile

import (
	"bytes"
	"encoding/base64"
	"net/url"
	"sort"
	"strings"

	jsoniter "github.com/json-iterator/go"

	"github.com/contractcheck/contractcheck/internal/core/domain"
	apperrors "github.com/contractcheck/contractcheck/internal/errors"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

type nameSection struct {
	Name string `json:"name"`
}

type document struct {
	Consumer     nameSection           `json:"consumer"`
	Provider     nameSection           `json:"provider"`
	Interactions []jsoniter.RawMessage `json:"interactions"`
	Messages     []jsoniter.RawMessage `json:"messages"`
	Metadata     map[string]any        `json:"metadata"`
}

type providerStateDoc struct {
	Name   string         `json:"name"`
	Params map[string]any `json:"params"`
}

type requestDoc struct {
	Method        string                         `json:"method"`
	Path          string                         `json:"path"`
	Query         jsoniter.RawMessage            `json:"query"`
	Headers       map[string]jsoniter.RawMessage `json:"headers"`
	Body          jsoniter.RawMessage            `json:"body"`
	MatchingRules map[string]any                 `json:"matchingRules"`
}

type responseDoc struct {
	Status        int                            `json:"status"`
	Headers       map[string]jsoniter.RawMessage `json:"headers"`
	Body          jsoniter.RawMessage            `json:"body"`
	MatchingRules map[string]any                 `json:"matchingRules"`
}

type interactionDoc struct {
	Type           string              `json:"type"`
	ID             string              `json:"_id"`
	Key            string              `json:"key"`
	Description    string              `json:"description"`
	ProviderState  string              `json:"providerState"`
	ProviderStates []providerStateDoc  `json:"providerStates"`
	Pending        bool                `json:"pending"`
	Request        *requestDoc         `json:"request"`
	Response       *responseDoc        `json:"response"`
	Contents       jsoniter.RawMessage `json:"contents"`
	MetaData       map[string]any      `json:"metaData"`
	Metadata       map[string]any      `json:"metadata"`
	MatchingRules  map[string]any      `json:"matchingRules"`
}

// V4 bodies are wrapped in an object carrying the content type and encoding
// alongside the content itself.
type contentDoc struct {
	Content     jsoniter.RawMessage `json:"content"`
	ContentType string              `json:"contentType"`
	Encoded     any                 `json:"encoded"`
}

// Parse decodes a pact document. The source is recorded on the returned pact
// for reporting.
func Parse(data []byte, source string) (*domain.Pact, error) {
	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodePactParseError, "failed to parse pact document")
	}
	if doc.Consumer.Name == "" || doc.Provider.Name == "" {
		return nil, apperrors.New(apperrors.CodePactParseError,
			"pact document is missing the consumer or provider name")
	}

	pact := &domain.Pact{
		Consumer: doc.Consumer.Name,
		Provider: doc.Provider.Name,
		Metadata: doc.Metadata,
		Source:   source,
	}
	v4 := strings.HasPrefix(pact.SpecificationVersion(), "4")

	for i, raw := range doc.Interactions {
		interaction, err := parseInteraction(raw, v4)
		if err != nil {
			return nil, apperrors.Wrapf(err, apperrors.CodePactParseError,
				"failed to parse interaction %d", i)
		}
		pact.Interactions = append(pact.Interactions, *interaction)
	}
	for i, raw := range doc.Messages {
		message, err := parseMessage(raw, v4)
		if err != nil {
			return nil, apperrors.Wrapf(err, apperrors.CodePactParseError,
				"failed to parse message %d", i)
		}
		pact.Interactions = append(pact.Interactions, *message)
	}
	return pact, nil
}

func parseInteraction(raw jsoniter.RawMessage, v4 bool) (*domain.Interaction, error) {
	var doc interactionDoc
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodePactParseError, "invalid interaction")
	}

	if doc.Type == "Asynchronous/Messages" || (doc.Request == nil && doc.Contents != nil) {
		return parseMessage(raw, v4)
	}

	interaction := &domain.Interaction{
		ID:             doc.ID,
		Key:            doc.Key,
		Description:    doc.Description,
		ProviderStates: providerStates(doc),
		Pending:        doc.Pending,
	}

	if doc.Request != nil {
		request := &domain.Request{
			Method:  strings.ToUpper(doc.Request.Method),
			Path:    doc.Request.Path,
			Headers: decodeHeaders(doc.Request.Headers),
		}
		query, err := decodeQuery(doc.Request.Query)
		if err != nil {
			return nil, err
		}
		request.Query = query
		request.Body = decodeBody(doc.Request.Body, headerContentType(request.Headers), v4)
		if err := decodeMatchingRules(doc.Request.MatchingRules, request.Rules()); err != nil {
			return nil, err
		}
		interaction.Request = request
	}

	if doc.Response != nil {
		response := &domain.Response{
			Status:  doc.Response.Status,
			Headers: decodeHeaders(doc.Response.Headers),
		}
		if response.Status == 0 {
			response.Status = 200
		}
		response.Body = decodeBody(doc.Response.Body, headerContentType(response.Headers), v4)
		if err := decodeMatchingRules(doc.Response.MatchingRules, response.Rules()); err != nil {
			return nil, err
		}
		interaction.Response = response
	}

	return interaction, nil
}

func parseMessage(raw jsoniter.RawMessage, v4 bool) (*domain.Interaction, error) {
	var doc interactionDoc
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodePactParseError, "invalid message")
	}

	metadata := doc.MetaData
	if metadata == nil {
		metadata = doc.Metadata
	}

	message := &domain.Message{Metadata: metadata}
	contentType := domain.ParseContentType(metadataContentType(metadata))
	message.Contents = decodeBody(doc.Contents, contentType, v4)
	if err := decodeMatchingRules(doc.MatchingRules, message.Rules()); err != nil {
		return nil, err
	}

	return &domain.Interaction{
		ID:             doc.ID,
		Key:            doc.Key,
		Description:    doc.Description,
		ProviderStates: providerStates(doc),
		Pending:        doc.Pending,
		Message:        message,
	}, nil
}

func providerStates(doc interactionDoc) []domain.ProviderState {
	if len(doc.ProviderStates) > 0 {
		states := make([]domain.ProviderState, len(doc.ProviderStates))
		for i, s := range doc.ProviderStates {
			states[i] = domain.ProviderState{Name: s.Name, Params: s.Params}
		}
		return states
	}
	if doc.ProviderState != "" {
		return []domain.ProviderState{{Name: doc.ProviderState}}
	}
	return nil
}

// decodeQuery accepts the V2 form, a single query string, and the V3 form, a
// map of parameter name to value or value list.
func decodeQuery(raw jsoniter.RawMessage) (map[string][]string, error) {
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil, nil
	}
	if raw[0] == '"' {
		var qs string
		if err := json.Unmarshal(raw, &qs); err != nil {
			return nil, apperrors.Wrap(err, apperrors.CodePactParseError, "invalid query string")
		}
		if qs == "" {
			return nil, nil
		}
		values, err := url.ParseQuery(qs)
		if err != nil {
			return nil, apperrors.Wrap(err, apperrors.CodePactParseError, "invalid query string")
		}
		return values, nil
	}

	var params map[string]jsoniter.RawMessage
	if err := json.Unmarshal(raw, &params); err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodePactParseError, "invalid query parameters")
	}
	out := make(map[string][]string, len(params))
	for key, value := range params {
		values, err := decodeStringOrList(value)
		if err != nil {
			return nil, apperrors.Wrapf(err, apperrors.CodePactParseError,
				"invalid query parameter %q", key)
		}
		out[key] = values
	}
	return out, nil
}

func decodeHeaders(headers map[string]jsoniter.RawMessage) map[string][]string {
	if len(headers) == 0 {
		return nil
	}
	out := make(map[string][]string, len(headers))
	for key, value := range headers {
		values, err := decodeStringOrList(value)
		if err != nil {
			// A header that is neither a string nor a list is rendered as
			// its JSON form rather than dropped.
			values = []string{string(value)}
		}
		out[key] = values
	}
	return out
}

func decodeStringOrList(raw jsoniter.RawMessage) ([]string, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	if raw[0] == '[' {
		var values []string
		if err := json.Unmarshal(raw, &values); err != nil {
			return nil, err
		}
		return values, nil
	}
	var value string
	if err := json.Unmarshal(raw, &value); err != nil {
		return nil, err
	}
	return []string{value}, nil
}

func headerContentType(headers map[string][]string) domain.ContentType {
	for key, values := range headers {
		if strings.EqualFold(key, "Content-Type") && len(values) > 0 {
			return domain.ParseContentType(values[0])
		}
	}
	return domain.ContentType{}
}

func metadataContentType(metadata map[string]any) string {
	for _, key := range []string{"contentType", "content-type"} {
		if ct, ok := metadata[key].(string); ok {
			return ct
		}
	}
	return ""
}

// decodeBody turns the wire form of a body into an OptionalBody. An absent
// field is a missing body, an explicit null a null body. V4 documents wrap
// the content in an object carrying its own content type and encoding.
func decodeBody(raw jsoniter.RawMessage, contentType domain.ContentType, v4 bool) domain.OptionalBody {
	if len(raw) == 0 {
		return domain.MissingBody()
	}
	if bytes.Equal(raw, []byte("null")) {
		return domain.NullBody()
	}

	if v4 && raw[0] == '{' {
		var content contentDoc
		if err := json.Unmarshal(raw, &content); err == nil && content.ContentType != "" {
			return decodeV4Content(content)
		}
	}

	if contentType.IsUnknown() {
		contentType = detectContentType(raw)
	}

	if raw[0] == '"' && !contentType.IsJSON() {
		var text string
		if err := json.Unmarshal(raw, &text); err == nil {
			return domain.PresentBody([]byte(text), contentType)
		}
	}
	return domain.PresentBody(raw, contentType)
}

func decodeV4Content(content contentDoc) domain.OptionalBody {
	contentType := domain.ParseContentType(content.ContentType)
	if len(content.Content) == 0 || bytes.Equal(content.Content, []byte("null")) {
		return domain.NullBody()
	}

	if content.Content[0] == '"' {
		var text string
		if err := json.Unmarshal(content.Content, &text); err == nil {
			if enc, ok := content.Encoded.(string); ok && strings.EqualFold(enc, "base64") {
				if decoded, err := base64.StdEncoding.DecodeString(text); err == nil {
					return domain.PresentBody(decoded, contentType)
				}
			}
			if !contentType.IsJSON() {
				return domain.PresentBody([]byte(text), contentType)
			}
		}
	}
	return domain.PresentBody(content.Content, contentType)
}

// detectContentType guesses the content type of a body that arrived without
// one, the way pact implementations do: JSON if it parses, XML on an XML
// prolog, plain text otherwise.
func detectContentType(raw []byte) domain.ContentType {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return domain.ParseContentType("text/plain")
	}
	switch trimmed[0] {
	case '{', '[':
		return domain.ParseContentType("application/json")
	case '"':
		var text string
		if err := json.Unmarshal(trimmed, &text); err == nil {
			if strings.HasPrefix(strings.TrimSpace(text), "<?xml") {
				return domain.ParseContentType("application/xml")
			}
		}
		return domain.ParseContentType("application/json")
	default:
		return domain.ParseContentType("text/plain")
	}
}

// V2 rule expressions carry the category in the path ("$.body.a"); V3 and
// later group the expressions under category keys.
func decodeMatchingRules(def map[string]any, rules *domain.MatchingRules) error {
	for _, key := range sortedKeys(def) {
		value := def[key]
		if strings.HasPrefix(key, "$.") {
			category, expr := splitV2Expression(key)
			if category == "" {
				return apperrors.Newf(apperrors.CodePactParseError,
					"unrecognised matching rule path %q", key)
			}
			if err := rules.AddFromDefinition(category, expr, value); err != nil {
				return err
			}
			continue
		}

		category := categoryName(key)
		if category == "" {
			return apperrors.Newf(apperrors.CodePactParseError,
				"unrecognised matching rule category %q", key)
		}
		section, ok := value.(map[string]any)
		if !ok {
			return apperrors.Newf(apperrors.CodePactParseError,
				"matching rules for category %q are not a map", key)
		}
		if _, ok := section["matchers"]; ok {
			// Single-value categories (path, status) attach rules to the
			// category itself.
			if err := rules.AddFromDefinition(category, "$", section); err != nil {
				return err
			}
			continue
		}
		for _, expr := range sortedKeys(section) {
			if err := rules.AddFromDefinition(category, expr, section[expr]); err != nil {
				return err
			}
		}
	}
	return nil
}

func splitV2Expression(key string) (string, string) {
	rest := strings.TrimPrefix(key, "$.")
	name := rest
	for i, c := range rest {
		if c == '.' || c == '[' {
			name = rest[:i]
			break
		}
	}
	category := categoryName(name)
	if category == "" {
		return "", ""
	}
	expr := "$" + strings.TrimPrefix(rest, name)
	return category, expr
}

func categoryName(name string) string {
	switch name {
	case "body":
		return domain.CategoryBody
	case "header", "headers":
		return domain.CategoryHeader
	case "query":
		return domain.CategoryQuery
	case "path":
		return domain.CategoryPath
	case "status":
		return domain.CategoryStatus
	case "metadata", "metaData":
		return domain.CategoryMetadata
	case "content", "contents":
		return domain.CategoryContents
	default:
		return ""
	}
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
