package fits

import (
	"strconv"
	"strings"
)

// ValueKind identifies the type of a header value.
type ValueKind uint8

const (
	// ValueUndefined is a keyword with a value indicator but an empty value.
	ValueUndefined ValueKind = iota
	ValueLogical
	ValueInt
	ValueFloat
	ValueString
	// ValueComplex values are kept as their raw "(re, im)" text.
	ValueComplex
)

func (k ValueKind) String() string {
	switch k {
	case ValueUndefined:
		return "undefined"
	case ValueLogical:
		return "logical"
	case ValueInt:
		return "integer"
	case ValueFloat:
		return "float"
	case ValueString:
		return "string"
	case ValueComplex:
		return "complex"
	default:
		return "unknown"
	}
}

// Value is a typed header value and its optional comment.
type Value struct {
	Kind    ValueKind
	Bool    bool
	Int     int64
	Float   float64
	Str     string
	Comment string
}

// Commentary is a card without a value: COMMENT, HISTORY or a blank keyword.
type Commentary struct {
	Keyword string
	Text    string
}

// card is one parsed 80-byte header record.
type card struct {
	keyword  string
	value    Value
	hasValue bool
	text     string // commentary text when hasValue is false
}

func parseCard(b []byte) card {
	c := card{keyword: strings.TrimRight(string(b[:keywordSize]), " ")}
	if b[keywordSize] != '=' || b[keywordSize+1] != ' ' ||
		c.keyword == "COMMENT" || c.keyword == "HISTORY" || c.keyword == "" {
		c.text = strings.TrimRight(string(b[keywordSize:]), " ")
		return c
	}
	c.hasValue = true
	c.value = parseValue(string(b[valueOffset:]))
	return c
}

// parseValue decodes the value field of a card. Text that does not parse as
// one of the fixed-format types is kept as a string so that typed lookups can
// report a type mismatch rather than the whole header failing.
func parseValue(field string) Value {
	s := strings.TrimLeft(field, " ")
	if strings.HasPrefix(s, "'") {
		str, rest := parseQuoted(s)
		return Value{Kind: ValueString, Str: str, Comment: parseComment(rest)}
	}

	token, comment := s, ""
	if i := strings.IndexByte(s, '/'); i >= 0 {
		token, comment = s[:i], parseComment(s[i:])
	}
	token = strings.TrimSpace(token)

	v := Value{Comment: comment}
	switch {
	case token == "":
		v.Kind = ValueUndefined
	case token == "T" || token == "F":
		v.Kind, v.Bool = ValueLogical, token == "T"
	case strings.HasPrefix(token, "("):
		v.Kind, v.Str = ValueComplex, token
	default:
		if n, err := strconv.ParseInt(token, 10, 64); err == nil {
			v.Kind, v.Int = ValueInt, n
		} else if f, err := strconv.ParseFloat(strings.NewReplacer("D", "E", "d", "e").Replace(token), 64); err == nil {
			v.Kind, v.Float = ValueFloat, f
		} else {
			v.Kind, v.Str = ValueString, token
		}
	}
	return v
}

// parseQuoted reads a quoted string starting at s[0] == '\''. Doubled quotes
// stand for a literal quote; trailing blanks are not significant.
func parseQuoted(s string) (string, string) {
	var sb strings.Builder
	i := 1
	for i < len(s) {
		if s[i] != '\'' {
			sb.WriteByte(s[i])
			i++
			continue
		}
		if i+1 < len(s) && s[i+1] == '\'' {
			sb.WriteByte('\'')
			i += 2
			continue
		}
		return strings.TrimRight(sb.String(), " "), s[i+1:]
	}
	// unterminated
	return strings.TrimRight(sb.String(), " "), ""
}

func parseComment(rest string) string {
	i := strings.IndexByte(rest, '/')
	if i < 0 {
		return ""
	}
	return strings.TrimSpace(rest[i+1:])
}
