package matching

import (
	"fmt"
	"strings"
	"time"
)

// Date and time rules carry patterns in the JVM SimpleDateFormat token
// alphabet, because that is what consumer DSLs emit. The patterns are
// converted to Go reference layouts before validation.
const (
	defaultDateFormat      = "yyyy-MM-dd"
	defaultTimeFormat      = "HH:mm:ss"
	defaultTimestampFormat = "yyyy-MM-dd'T'HH:mm:ssXXX"
)

type formatToken struct {
	pattern string
	layout  string
}

// Longest tokens first so e.g. "yyyy" is consumed before "yy".
var formatTokens = []formatToken{
	{"yyyy", "2006"},
	{"yy", "06"},
	{"MMMM", "January"},
	{"MMM", "Jan"},
	{"MM", "01"},
	{"M", "1"},
	{"dd", "02"},
	{"d", "2"},
	{"EEEE", "Monday"},
	{"EEE", "Mon"},
	{"HH", "15"},
	{"H", "15"},
	{"hh", "03"},
	{"h", "3"},
	{"mm", "04"},
	{"m", "4"},
	{"ss", "05"},
	{"s", "5"},
	{"SSSSSS", "000000"},
	{"SSS", "000"},
	{"S", "0"},
	{"a", "PM"},
	{"XXX", "Z07:00"},
	{"XX", "Z0700"},
	{"X", "Z07"},
	{"ZZ", "-0700"},
	{"Z", "-0700"},
	{"zzz", "MST"},
	{"z", "MST"},
}

// convertDatetimeFormat translates a SimpleDateFormat pattern into a Go time
// layout. Quoted sections are passed through literally.
func convertDatetimeFormat(format string) (string, error) {
	var out strings.Builder
	i := 0
	for i < len(format) {
		if format[i] == '\'' {
			end := strings.IndexByte(format[i+1:], '\'')
			if end < 0 {
				return "", fmt.Errorf("unterminated quote in datetime format %q", format)
			}
			if end == 0 {
				out.WriteByte('\'')
			} else {
				out.WriteString(format[i+1 : i+1+end])
			}
			i += end + 2
			continue
		}
		matched := false
		for _, token := range formatTokens {
			if strings.HasPrefix(format[i:], token.pattern) {
				out.WriteString(token.layout)
				i += len(token.pattern)
				matched = true
				break
			}
		}
		if matched {
			continue
		}
		c := format[i]
		if (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') {
			return "", fmt.Errorf("unsupported pattern letter %q in datetime format %q", string(c), format)
		}
		out.WriteByte(c)
		i++
	}
	return out.String(), nil
}

// validateDatetime checks that the value conforms to the given
// SimpleDateFormat pattern.
func validateDatetime(value, format string) error {
	layout, err := convertDatetimeFormat(format)
	if err != nil {
		return err
	}
	if _, err := time.Parse(layout, value); err != nil {
		return fmt.Errorf("value %q does not conform to the pattern %q", value, format)
	}
	return nil
}
