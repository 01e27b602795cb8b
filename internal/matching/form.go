package matching

import (
	"fmt"
	"net/url"
	"sort"
	"strings"

	"github.com/contractcheck/contractcheck/internal/core/domain"
)

// MatchFormURLEncoded compares two form-encoded bodies by decoding them into
// parameter maps and comparing those the same way as query strings.
func MatchFormURLEncoded(expected, actual []byte, ctx *Context) []domain.Mismatch {
	expectedForm, expErr := url.ParseQuery(string(expected))
	actualForm, actErr := url.ParseQuery(string(actual))

	if expErr != nil || actErr != nil {
		var mismatches []domain.Mismatch
		if expErr != nil {
			mismatches = append(mismatches, domain.Mismatch{
				Type:        domain.MismatchBody,
				Path:        "$",
				Expected:    string(expected),
				Actual:      string(actual),
				Description: fmt.Sprintf("Could not parse expected body: %s", expErr),
			})
		}
		if actErr != nil {
			mismatches = append(mismatches, domain.Mismatch{
				Type:        domain.MismatchBody,
				Path:        "$",
				Expected:    string(expected),
				Actual:      string(actual),
				Description: fmt.Sprintf("Could not parse actual body: %s", actErr),
			})
		}
		return mismatches
	}

	result := MatchQuery(expectedForm, actualForm, ctx)
	var mismatches []domain.Mismatch
	for _, key := range mismatchKeys(result) {
		for _, m := range result[key] {
			mismatches = append(mismatches, domain.Mismatch{
				Type:        domain.MismatchBody,
				Path:        "$." + m.Parameter,
				Expected:    m.Expected,
				Actual:      m.Actual,
				Description: strings.ReplaceAll(m.Description, "query parameter", "form post parameter"),
			})
		}
	}
	return mismatches
}

func mismatchKeys(m map[string][]domain.Mismatch) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
