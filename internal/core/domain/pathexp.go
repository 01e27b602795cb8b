package domain

import (
	"fmt"
	"strconv"
	"strings"

	apperrors "github.com/contractcheck/contractcheck/internal/errors"
)

type TokenKind int

const (
	TokenRoot TokenKind = iota
	TokenField
	TokenIndex
	TokenStar
	TokenStarIndex
)

// PathToken is one element of a parsed path expression. A Field token carries
// the field name, an Index token the list index.
type PathToken struct {
	Kind  TokenKind
	Name  string
	Index int
}

func (t PathToken) String() string {
	switch t.Kind {
	case TokenRoot:
		return "$"
	case TokenField:
		return t.Name
	case TokenIndex:
		return fmt.Sprintf("[%d]", t.Index)
	case TokenStar:
		return "*"
	default:
		return "[*]"
	}
}

// Weight of matching this token against one segment of a concrete document
// path. Exact matches outrank wildcards; a zero weight disqualifies the whole
// expression.
func (t PathToken) Weight(segment string) int {
	switch t.Kind {
	case TokenRoot:
		if segment == "$" {
			return 2
		}
	case TokenField:
		if segment == t.Name {
			return 2
		}
	case TokenIndex:
		if idx, err := strconv.Atoi(segment); err == nil && idx == t.Index {
			return 2
		}
	case TokenStar:
		return 1
	case TokenStarIndex:
		if _, err := strconv.Atoi(segment); err == nil {
			return 1
		}
	}
	return 0
}

// PathWeight calculates how specifically the expression tokens select the
// given document path. The weight is the product of the per-token weights; an
// expression longer than the path, or any non-matching token, gives zero.
func PathWeight(tokens []PathToken, path []string) int {
	if len(path) < len(tokens) {
		return 0
	}
	weight := 1
	for i, token := range tokens {
		w := token.Weight(path[i])
		if w == 0 {
			return 0
		}
		weight *= w
	}
	return weight
}

// ParsePathTokens parses a path expression such as `$.a.b[2]['name'][*].*`
// into its tokens. Expressions must start with the `$` root marker.
func ParsePathTokens(expr string) ([]PathToken, error) {
	if expr == "" {
		return nil, apperrors.New(apperrors.CodePathParseError, "path expression is empty")
	}
	runes := []rune(expr)
	if runes[0] != '$' {
		return nil, apperrors.Newf(apperrors.CodePathParseError,
			"path expression %q does not start with a root marker '$'", expr)
	}
	tokens := []PathToken{{Kind: TokenRoot}}
	i := 1
	for i < len(runes) {
		switch runes[i] {
		case '.':
			i++
			if i >= len(runes) {
				return nil, apperrors.Newf(apperrors.CodePathParseError,
					"path expression %q ends with a dot", expr)
			}
			token, next, err := parseDotSegment(expr, runes, i)
			if err != nil {
				return nil, err
			}
			tokens = append(tokens, token)
			i = next
		case '[':
			token, next, err := parseBracketSegment(expr, runes, i+1)
			if err != nil {
				return nil, err
			}
			tokens = append(tokens, token)
			i = next
		default:
			return nil, apperrors.Newf(apperrors.CodePathParseError,
				"unexpected character %q at position %d in path expression %q", runes[i], i, expr)
		}
	}
	return tokens, nil
}

func parseDotSegment(expr string, runes []rune, start int) (PathToken, int, error) {
	if runes[start] == '*' {
		return PathToken{Kind: TokenStar}, start + 1, nil
	}
	end := start
	for end < len(runes) && runes[end] != '.' && runes[end] != '[' {
		end++
	}
	name := string(runes[start:end])
	if name == "" {
		return PathToken{}, 0, apperrors.Newf(apperrors.CodePathParseError,
			"empty field name at position %d in path expression %q", start, expr)
	}
	return PathToken{Kind: TokenField, Name: name}, end, nil
}

func parseBracketSegment(expr string, runes []rune, start int) (PathToken, int, error) {
	if start >= len(runes) {
		return PathToken{}, 0, apperrors.Newf(apperrors.CodePathParseError,
			"unterminated bracket in path expression %q", expr)
	}
	if runes[start] == '\'' || runes[start] == '"' {
		quote := runes[start]
		end := start + 1
		for end < len(runes) && runes[end] != quote {
			end++
		}
		if end >= len(runes) || end+1 >= len(runes) || runes[end+1] != ']' {
			return PathToken{}, 0, apperrors.Newf(apperrors.CodePathParseError,
				"unterminated string index in path expression %q", expr)
		}
		return PathToken{Kind: TokenField, Name: string(runes[start+1 : end])}, end + 2, nil
	}
	end := start
	for end < len(runes) && runes[end] != ']' {
		end++
	}
	if end >= len(runes) {
		return PathToken{}, 0, apperrors.Newf(apperrors.CodePathParseError,
			"unterminated bracket in path expression %q", expr)
	}
	content := strings.TrimSpace(string(runes[start:end]))
	if content == "*" {
		return PathToken{Kind: TokenStarIndex}, end + 1, nil
	}
	idx, err := strconv.Atoi(content)
	if err != nil || idx < 0 {
		return PathToken{}, 0, apperrors.Newf(apperrors.CodePathParseError,
			"expected an integer or '*' in brackets at position %d in path expression %q", start, expr)
	}
	return PathToken{Kind: TokenIndex, Index: idx}, end + 1, nil
}
