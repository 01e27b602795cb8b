package domain

import "fmt"

// ProviderState is a state the provider must be put into before an
// interaction is replayed, such as "user 1234 exists".
type ProviderState struct {
	Name   string         `json:"name"`
	Params map[string]any `json:"params,omitempty"`
}

func (s ProviderState) String() string {
	if len(s.Params) == 0 {
		return s.Name
	}
	return fmt.Sprintf("%s %v", s.Name, s.Params)
}

// Request is the HTTP request a consumer expects to send.
type Request struct {
	Method        string
	Path          string
	Query         map[string][]string
	Headers       map[string][]string
	Body          OptionalBody
	MatchingRules *MatchingRules
}

func (r *Request) Rules() *MatchingRules {
	if r.MatchingRules == nil {
		r.MatchingRules = NewMatchingRules()
	}
	return r.MatchingRules
}

func (r *Request) String() string {
	return fmt.Sprintf("Request ( method: %s, path: %s, query: %v, headers: %v, body: %s )",
		r.Method, r.Path, r.Query, r.Headers, r.Body)
}

// Response is the HTTP response a consumer expects to receive.
type Response struct {
	Status        int
	Headers       map[string][]string
	Body          OptionalBody
	MatchingRules *MatchingRules
}

func (r *Response) Rules() *MatchingRules {
	if r.MatchingRules == nil {
		r.MatchingRules = NewMatchingRules()
	}
	return r.MatchingRules
}

func (r *Response) String() string {
	return fmt.Sprintf("Response ( status: %d, headers: %v, body: %s )", r.Status, r.Headers, r.Body)
}

// Message is an asynchronous message a consumer expects to receive.
type Message struct {
	Contents      OptionalBody
	Metadata      map[string]any
	MatchingRules *MatchingRules
}

func (m *Message) Rules() *MatchingRules {
	if m.MatchingRules == nil {
		m.MatchingRules = NewMatchingRules()
	}
	return m.MatchingRules
}

// ContentType resolves the message content type from the body, falling back
// to the contentType metadata key.
func (m *Message) ContentType() ContentType {
	if !m.Contents.ContentType.IsUnknown() {
		return m.Contents.ContentType
	}
	if ct, ok := m.Metadata["contentType"].(string); ok {
		return ParseContentType(ct)
	}
	if ct, ok := m.Metadata["content-type"].(string); ok {
		return ParseContentType(ct)
	}
	return ContentType{}
}

// Interaction is a single expectation from a pact: either an HTTP
// request/response pair or an asynchronous message, never both.
type Interaction struct {
	ID             string
	Key            string
	Description    string
	ProviderStates []ProviderState
	Request        *Request
	Response       *Response
	Message        *Message
	Pending        bool
}

func (i *Interaction) IsMessage() bool {
	return i.Message != nil
}

// DisplayState renders the provider states for reporting, e.g.
// "Given user exists".
func (i *Interaction) DisplayState() string {
	if len(i.ProviderStates) == 0 {
		return ""
	}
	out := ""
	for n, s := range i.ProviderStates {
		if n > 0 {
			out += ", "
		}
		out += s.Name
	}
	return out
}

// VerificationNotice is broker-supplied text to surface at a given stage of
// the verification lifecycle.
type VerificationNotice struct {
	When string `json:"when"`
	Text string `json:"text"`
}

// Pact is a parsed contract between one consumer and one provider.
type Pact struct {
	Consumer     string
	Provider     string
	Interactions []Interaction
	Metadata     map[string]any
	Source       string
	Pending      bool
	Notices      []VerificationNotice
	// Links carries the HAL links from a broker-sourced pact, used to
	// publish verification results back.
	Links map[string]any
}

// SpecificationVersion extracts the pact specification version from the pact
// metadata, defaulting to 2.0.0.
func (p *Pact) SpecificationVersion() string {
	if p.Metadata == nil {
		return "2.0.0"
	}
	for _, key := range []string{"pactSpecification", "pact-specification"} {
		if section, ok := p.Metadata[key].(map[string]any); ok {
			if v, ok := section["version"].(string); ok {
				return v
			}
		}
	}
	return "2.0.0"
}
