package domain

import (
	"fmt"
	"mime"
	"strings"
)

type BodyState int

const (
	BodyMissing BodyState = iota
	BodyEmpty
	BodyNull
	BodyPresent
)

// OptionalBody distinguishes a body that was never specified from one that
// was specified to be empty or null. The distinction drives the body
// comparison rules: a missing expected body matches anything.
type OptionalBody struct {
	State       BodyState
	Value       []byte
	ContentType ContentType
}

func MissingBody() OptionalBody {
	return OptionalBody{State: BodyMissing}
}

func EmptyBody() OptionalBody {
	return OptionalBody{State: BodyEmpty}
}

func NullBody() OptionalBody {
	return OptionalBody{State: BodyNull}
}

func PresentBody(value []byte, contentType ContentType) OptionalBody {
	if len(value) == 0 {
		return OptionalBody{State: BodyEmpty, ContentType: contentType}
	}
	return OptionalBody{State: BodyPresent, Value: value, ContentType: contentType}
}

func (b OptionalBody) IsPresent() bool {
	return b.State == BodyPresent
}

func (b OptionalBody) ValueString() string {
	return string(b.Value)
}

func (b OptionalBody) String() string {
	switch b.State {
	case BodyMissing:
		return "Missing"
	case BodyEmpty:
		return "Empty"
	case BodyNull:
		return "Null"
	default:
		if !b.ContentType.IsUnknown() {
			return fmt.Sprintf("Present(%d bytes, %s)", len(b.Value), b.ContentType)
		}
		return fmt.Sprintf("Present(%d bytes)", len(b.Value))
	}
}

// ContentType is a parsed media type. Raw keeps the original header value
// including parameters; MediaType is the lowercased type/subtype.
type ContentType struct {
	Raw       string
	MediaType string
	Params    map[string]string
}

func ParseContentType(value string) ContentType {
	if value == "" {
		return ContentType{}
	}
	mediaType, params, err := mime.ParseMediaType(value)
	if err != nil {
		return ContentType{Raw: value, MediaType: strings.ToLower(strings.TrimSpace(value))}
	}
	return ContentType{Raw: value, MediaType: mediaType, Params: params}
}

func (c ContentType) IsUnknown() bool {
	return c.MediaType == ""
}

func (c ContentType) String() string {
	if c.Raw != "" {
		return c.Raw
	}
	return c.MediaType
}

func (c ContentType) Base() string {
	return c.MediaType
}

func (c ContentType) subType() string {
	if idx := strings.IndexByte(c.MediaType, '/'); idx >= 0 {
		return c.MediaType[idx+1:]
	}
	return ""
}

func (c ContentType) IsJSON() bool {
	sub := c.subType()
	return sub == "json" || strings.HasSuffix(sub, "+json")
}

func (c ContentType) IsXML() bool {
	sub := c.subType()
	return sub == "xml" || strings.HasSuffix(sub, "+xml")
}

func (c ContentType) IsText() bool {
	return strings.HasPrefix(c.MediaType, "text/") || c.IsJSON() || c.IsXML()
}

func (c ContentType) IsFormURLEncoded() bool {
	return c.MediaType == "application/x-www-form-urlencoded"
}

func (c ContentType) IsMultipart() bool {
	return strings.HasPrefix(c.MediaType, "multipart/")
}

// Equal compares only the type/subtype, ignoring parameters such as charset.
func (c ContentType) Equal(other ContentType) bool {
	return c.MediaType == other.MediaType
}
