package service

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/contractcheck/contractcheck/internal/core/domain"
	"github.com/contractcheck/contractcheck/internal/core/ports"
)

// prepareRequest clones the expected request, substitutes ${key} expressions
// with the values returned by the state change handlers and applies the
// request filter. The pact's own request is never mutated.
func prepareRequest(expected *domain.Request, generated map[string]any, filter ports.RequestFilter) *domain.Request {
	request := cloneRequest(expected)
	if len(generated) > 0 {
		request.Path = substitute(request.Path, generated)
		for key, values := range request.Query {
			for i, value := range values {
				values[i] = substitute(value, generated)
			}
			request.Query[key] = values
		}
		for key, values := range request.Headers {
			for i, value := range values {
				values[i] = substitute(value, generated)
			}
			request.Headers[key] = values
		}
		if request.Body.IsPresent() {
			request.Body.Value = substituteBytes(request.Body.Value, generated)
		}
	}
	if filter != nil {
		filter(request)
	}
	return request
}

func cloneRequest(request *domain.Request) *domain.Request {
	out := &domain.Request{
		Method:        request.Method,
		Path:          request.Path,
		Query:         cloneValues(request.Query),
		Headers:       cloneValues(request.Headers),
		Body:          request.Body,
		MatchingRules: request.MatchingRules,
	}
	if request.Body.Value != nil {
		out.Body.Value = append([]byte(nil), request.Body.Value...)
	}
	return out
}

func cloneValues(values map[string][]string) map[string][]string {
	if values == nil {
		return nil
	}
	out := make(map[string][]string, len(values))
	for key, list := range values {
		out[key] = append([]string(nil), list...)
	}
	return out
}

func substitute(s string, values map[string]any) string {
	if !strings.Contains(s, "${") {
		return s
	}
	for key, value := range values {
		s = strings.ReplaceAll(s, "${"+key+"}", formatValue(value))
	}
	return s
}

func substituteBytes(b []byte, values map[string]any) []byte {
	if !bytes.Contains(b, []byte("${")) {
		return b
	}
	for key, value := range values {
		b = bytes.ReplaceAll(b, []byte("${"+key+"}"), []byte(formatValue(value)))
	}
	return b
}

func formatValue(value any) string {
	if s, ok := value.(string); ok {
		return s
	}
	return fmt.Sprintf("%v", value)
}
