package domain

import (
	"encoding/json"
	"fmt"
)

type MismatchType string

const (
	MismatchMethod   MismatchType = "MethodMismatch"
	MismatchPath     MismatchType = "PathMismatch"
	MismatchStatus   MismatchType = "StatusMismatch"
	MismatchQuery    MismatchType = "QueryMismatch"
	MismatchHeader   MismatchType = "HeaderMismatch"
	MismatchBody     MismatchType = "BodyMismatch"
	MismatchBodyType MismatchType = "BodyTypeMismatch"
	MismatchMetadata MismatchType = "MetadataMismatch"
)

// Mismatch is a single difference between an expected and an actual value.
// The JSON field names follow the cross-language pact mismatch format, so
// serialized mismatches line up with the shared compatibility fixtures.
type Mismatch struct {
	Type        MismatchType `json:"type"`
	Path        string       `json:"path,omitempty"`
	Parameter   string       `json:"parameter,omitempty"`
	Key         string       `json:"key,omitempty"`
	Expected    string       `json:"expected"`
	Actual      string       `json:"actual"`
	Description string       `json:"mismatch,omitempty"`
}

func (m Mismatch) Summary() string {
	switch m.Type {
	case MismatchMethod:
		return fmt.Sprintf("expected method %s but received %s", m.Expected, m.Actual)
	case MismatchBody:
		return fmt.Sprintf("%s -> %s", m.Path, m.Description)
	default:
		return m.Description
	}
}

func (m Mismatch) MarshalJSON() ([]byte, error) {
	type alias Mismatch
	return json.Marshal(alias(m))
}

// BodyMatchResult is the outcome of comparing two bodies: either the content
// types were incompatible, or the bodies were compared and produced zero or
// more mismatches grouped by path.
type BodyMatchResult struct {
	TypeMismatch *Mismatch
	Mismatches   map[string][]Mismatch
}

func (r BodyMatchResult) Matched() bool {
	if r.TypeMismatch != nil {
		return false
	}
	for _, ms := range r.Mismatches {
		if len(ms) > 0 {
			return false
		}
	}
	return true
}

func (r BodyMatchResult) All() []Mismatch {
	var out []Mismatch
	if r.TypeMismatch != nil {
		out = append(out, *r.TypeMismatch)
	}
	for _, ms := range sortedKeys(r.Mismatches) {
		out = append(out, r.Mismatches[ms]...)
	}
	return out
}

// RequestMatchResult groups the mismatches of a request comparison by the
// request part that produced them.
type RequestMatchResult struct {
	Method  *Mismatch
	Path    []Mismatch
	Body    BodyMatchResult
	Query   map[string][]Mismatch
	Headers map[string][]Mismatch
}

func (r RequestMatchResult) AllMatched() bool {
	return r.Method == nil &&
		len(r.Path) == 0 &&
		r.Body.Matched() &&
		flatEmpty(r.Query) &&
		flatEmpty(r.Headers)
}

func (r RequestMatchResult) Mismatches() []Mismatch {
	var out []Mismatch
	if r.Method != nil {
		out = append(out, *r.Method)
	}
	out = append(out, r.Path...)
	out = append(out, r.Body.All()...)
	for _, k := range sortedKeys(r.Query) {
		out = append(out, r.Query[k]...)
	}
	for _, k := range sortedKeys(r.Headers) {
		out = append(out, r.Headers[k]...)
	}
	return out
}

// ResponseMatchResult groups the mismatches of a response comparison by the
// response part that produced them.
type ResponseMatchResult struct {
	Status  *Mismatch
	Headers map[string][]Mismatch
	Body    BodyMatchResult
}

func (r ResponseMatchResult) AllMatched() bool {
	return r.Status == nil && r.Body.Matched() && flatEmpty(r.Headers)
}

func (r ResponseMatchResult) Mismatches() []Mismatch {
	var out []Mismatch
	if r.Status != nil {
		out = append(out, *r.Status)
	}
	out = append(out, r.Body.All()...)
	for _, k := range sortedKeys(r.Headers) {
		out = append(out, r.Headers[k]...)
	}
	return out
}

// MessageMatchResult groups the mismatches of an asynchronous message
// comparison.
type MessageMatchResult struct {
	Body     BodyMatchResult
	Metadata map[string][]Mismatch
}

func (r MessageMatchResult) AllMatched() bool {
	return r.Body.Matched() && flatEmpty(r.Metadata)
}

func (r MessageMatchResult) Mismatches() []Mismatch {
	out := r.Body.All()
	for _, k := range sortedKeys(r.Metadata) {
		out = append(out, r.Metadata[k]...)
	}
	return out
}

func flatEmpty(m map[string][]Mismatch) bool {
	for _, ms := range m {
		if len(ms) > 0 {
			return false
		}
	}
	return true
}
