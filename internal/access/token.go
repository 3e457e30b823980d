package access

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/unicode/norm"
)

// ErrMalformedToken reports a grant token that does not normalize to lower_snake_case.
var ErrMalformedToken = errors.New("access: malformed grant token")

// NormalizeToken converts a stored or requested token into its canonical lower_snake_case
// form. Surrounding whitespace is dropped, camel humps and separators (space, hyphen, dot)
// become underscores. The result is idempotent: NormalizeToken(NormalizeToken(x)) == NormalizeToken(x).
func NormalizeToken(raw string) (string, error) {
	folded := strings.TrimSpace(norm.NFKC.String(raw))
	if folded == "" {
		return "", fmt.Errorf("%w: empty", ErrMalformedToken)
	}

	var b strings.Builder
	b.Grow(len(folded) + 4)
	var prev rune
	for i, r := range folded {
		switch {
		case r == ' ' || r == '-' || r == '.' || r == '_':
			r = '_'
		case unicode.IsUpper(r) && i > 0 && (unicode.IsLower(prev) || unicode.IsDigit(prev)):
			b.WriteByte('_')
		}
		if r == '_' && prev == '_' {
			continue
		}
		b.WriteRune(r)
		prev = r
	}

	token := strings.Trim(cases.Lower(language.Und).String(b.String()), "_")
	if token == "" {
		return "", fmt.Errorf("%w: %q", ErrMalformedToken, raw)
	}
	for _, r := range token {
		if (r < 'a' || r > 'z') && (r < '0' || r > '9') && r != '_' {
			return "", fmt.Errorf("%w: %q", ErrMalformedToken, raw)
		}
	}
	return token, nil
}

// DecodeAccess splits a persisted access column into normalized tokens. Malformed tokens
// are returned separately so callers can log them without dropping the valid ones.
// Empty input yields no tokens.
func DecodeAccess(csv string) (tokens []string, malformed []string) {
	if strings.TrimSpace(csv) == "" {
		return nil, nil
	}
	seen := make(map[string]struct{})
	for _, part := range strings.Split(csv, ",") {
		if strings.TrimSpace(part) == "" {
			continue
		}
		token, err := NormalizeToken(part)
		if err != nil {
			malformed = append(malformed, part)
			continue
		}
		if _, dup := seen[token]; dup {
			continue
		}
		seen[token] = struct{}{}
		tokens = append(tokens, token)
	}
	return tokens, malformed
}

// EncodeAccess renders tokens into the persisted comma-separated form. Output is sorted
// and deduplicated; an empty set encodes to "".
func EncodeAccess(tokens []string) (string, error) {
	set := make(map[string]struct{}, len(tokens))
	for _, t := range tokens {
		token, err := NormalizeToken(t)
		if err != nil {
			return "", err
		}
		set[token] = struct{}{}
	}
	out := make([]string, 0, len(set))
	for t := range set {
		out = append(out, t)
	}
	sort.Strings(out)
	return strings.Join(out, ","), nil
}

// Label turns a token into a display label, e.g. "edit_task" -> "Edit Task".
func Label(token string) string {
	normalized, err := NormalizeToken(token)
	if err != nil {
		return strings.TrimSpace(token)
	}
	return cases.Title(language.English).String(strings.ReplaceAll(normalized, "_", " "))
}
