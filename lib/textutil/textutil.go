package textutil

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

var whitespaceRegex = regexp.MustCompile(`\s+`)

// NormalizeName lowercases and strips all whitespace.
func NormalizeName(name string) string {
	name = strings.ToLower(name)
	name = strings.Trim(name, " \n\t")
	name = whitespaceRegex.ReplaceAllString(name, "")
	return name
}

func MatchName(name string, matchers []string) bool {
	name = NormalizeName(name)
	for _, m := range matchers {
		if strings.Contains(name, m) {
			return true
		}
	}
	return false
}

// NormalizeEmail trims and lowercases an email address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Truncate cuts s to at most n runes.
func Truncate(s string, n int) string {
	if n < 0 || utf8.RuneCountInString(s) <= n {
		return s
	}
	runes := []rune(s)
	return string(runes[:n])
}

// Slug lowercases s and replaces whitespace runs with "-".
func Slug(s string) string {
	return whitespaceRegex.ReplaceAllString(strings.ToLower(strings.TrimSpace(s)), "-")
}

// SplitName splits a full name on the first space.
func SplitName(name string) (first, rest string) {
	name = strings.TrimSpace(name)
	first, rest, _ = strings.Cut(name, " ")
	return first, strings.TrimSpace(rest)
}

func isWordRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_'
}

// ContainsKeyword reports whether the lowercased text contains keyword.
// Keywords of 3 runes or fewer must appear as a whole word so that "ai"
// does not match "email".
func ContainsKeyword(text, keyword string) bool {
	if utf8.RuneCountInString(keyword) > 3 {
		return strings.Contains(text, keyword)
	}

	offset := 0
	for {
		idx := strings.Index(text[offset:], keyword)
		if idx < 0 {
			return false
		}
		start := offset + idx
		end := start + len(keyword)

		before, _ := utf8.DecodeLastRuneInString(text[:start])
		after, _ := utf8.DecodeRuneInString(text[end:])
		startOk := start == 0 || !isWordRune(before)
		endOk := end == len(text) || !isWordRune(after)
		if startOk && endOk {
			return true
		}
		offset = start + 1
	}
}

// ContainsAny reports whether text contains any of the keywords, with the
// word rules of ContainsKeyword.
func ContainsAny(text string, keywords ...string) bool {
	for _, k := range keywords {
		if ContainsKeyword(text, k) {
			return true
		}
	}
	return false
}

// Dedupe removes repeated entries keeping the first occurrence. Empty
// strings are dropped.
func Dedupe(values []string) []string {
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}

// MergeFold appends the entries of extra that are not already in base,
// comparing case-insensitively. The order of base is kept.
func MergeFold(base, extra []string) []string {
	seen := make(map[string]struct{}, len(base)+len(extra))
	out := make([]string, 0, len(base)+len(extra))
	for _, list := range [][]string{base, extra} {
		for _, v := range list {
			v = strings.TrimSpace(v)
			if v == "" {
				continue
			}
			key := strings.ToLower(v)
			if _, ok := seen[key]; ok {
				continue
			}
			seen[key] = struct{}{}
			out = append(out, v)
		}
	}
	return out
}
