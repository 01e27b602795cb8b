package matching

import (
	"bytes"
	"fmt"
	"io"
	"mime/multipart"

	"github.com/contractcheck/contractcheck/internal/core/domain"
)

type mimePart struct {
	name        string
	contentType string
	content     []byte
}

// MatchMultipart compares two multipart bodies part by part. Parts are
// paired up by their form field name; extra actual parts are ignored.
func MatchMultipart(expected, actual domain.OptionalBody, ctx *Context) []domain.Mismatch {
	expectedParts, expErr := parseMultipart(expected)
	actualParts, actErr := parseMultipart(actual)

	if expErr != nil || actErr != nil {
		var mismatches []domain.Mismatch
		if expErr != nil {
			mismatches = append(mismatches, domain.Mismatch{
				Type:        domain.MismatchBody,
				Path:        "$",
				Expected:    expected.ValueString(),
				Actual:      actual.ValueString(),
				Description: fmt.Sprintf("Failed to parse the expected body as a MIME multipart body: '%s'", expErr),
			})
		}
		if actErr != nil {
			mismatches = append(mismatches, domain.Mismatch{
				Type:        domain.MismatchBody,
				Path:        "$",
				Expected:    expected.ValueString(),
				Actual:      actual.ValueString(),
				Description: fmt.Sprintf("Failed to parse the actual body as a MIME multipart body: '%s'", actErr),
			})
		}
		return mismatches
	}

	var mismatches []domain.Mismatch
	for _, part := range expectedParts {
		actualPart, ok := findPart(actualParts, part.name)
		if !ok {
			mismatches = append(mismatches, domain.Mismatch{
				Type:        domain.MismatchBody,
				Path:        "$",
				Expected:    part.name,
				Description: fmt.Sprintf("Expected a MIME part '%s' but was missing", part.name),
			})
			continue
		}
		mismatches = append(mismatches, matchMIMEPart(part, actualPart, ctx)...)
	}
	return mismatches
}

func parseMultipart(body domain.OptionalBody) ([]mimePart, error) {
	boundary := body.ContentType.Params["boundary"]
	if boundary == "" {
		return nil, fmt.Errorf("no boundary parameter in content type '%s'", body.ContentType)
	}
	reader := multipart.NewReader(bytes.NewReader(body.Value), boundary)
	var parts []mimePart
	for {
		part, err := reader.NextPart()
		if err == io.EOF {
			return parts, nil
		}
		if err != nil {
			return nil, err
		}
		content, err := io.ReadAll(part)
		if err != nil {
			return nil, err
		}
		parts = append(parts, mimePart{
			name:        part.FormName(),
			contentType: part.Header.Get("Content-Type"),
			content:     content,
		})
	}
}

func findPart(parts []mimePart, name string) (mimePart, bool) {
	for _, part := range parts {
		if part.name == name {
			return part, true
		}
	}
	return mimePart{}, false
}

func matchMIMEPart(expected, actual mimePart, ctx *Context) []domain.Mismatch {
	path := []string{"$", expected.name}
	pathStr := "$." + expected.name

	if expected.contentType != "" {
		expectedCT := domain.ParseContentType(expected.contentType)
		actualCT := domain.ParseContentType(actual.contentType)
		if !expectedCT.Equal(actualCT) {
			return []domain.Mismatch{{
				Type:     domain.MismatchBody,
				Path:     pathStr,
				Expected: expected.contentType,
				Actual:   actual.contentType,
				Description: fmt.Sprintf("Expected MIME part '%s' with content type '%s' but was '%s'",
					expected.name, expected.contentType, actual.contentType),
			}}
		}
	}

	var failures []string
	if ctx.MatcherDefined(path) {
		failures = applyRuleList(path, ctx.SelectBestMatcher(path), func(rule domain.MatchingRule, cascaded bool) error {
			return matchBinaryRule(expected.content, actual.content, rule, cascaded)
		})
	} else if !bytes.Equal(expected.content, actual.content) {
		failures = []string{fmt.Sprintf("MIME part '%s': Expected '%s' to be equal to '%s'",
			expected.name, expected.content, actual.content)}
	}

	return bodyMismatches(pathStr, string(expected.content), string(actual.content), failures)
}
