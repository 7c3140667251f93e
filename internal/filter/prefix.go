package filter

import "strings"

// prefixSep separates the sentinel token from the rest of the query.
const prefixSep = ':'

// Vocabulary maps a sentinel token (lowercase) to the set of item kinds
// it narrows the candidate pool to. The token vocabulary is supplied by
// the host; the pipeline only defines the token-to-kind-set contract.
type Vocabulary map[string][]string

// Normalize lowercases all tokens so lookups are case-insensitive.
func (v Vocabulary) Normalize() Vocabulary {
	if len(v) == 0 {
		return v
	}
	out := make(Vocabulary, len(v))
	for tok, kinds := range v {
		out[strings.ToLower(tok)] = kinds
	}
	return out
}

// splitPrefix recognizes a leading "token:" sentinel against the
// vocabulary. It returns the kind set and the query remainder when the
// token is known; otherwise the whole query is literal text and the
// kind set is nil. A bare "token:" with empty remainder is still a
// valid kind narrowing with an empty fuzzy query.
func splitPrefix(vocab Vocabulary, query string) (kinds []string, rest string) {
	if len(vocab) == 0 {
		return nil, query
	}
	i := strings.IndexRune(query, prefixSep)
	if i <= 0 {
		return nil, query
	}
	kinds, ok := vocab[strings.ToLower(query[:i])]
	if !ok {
		return nil, query
	}
	return kinds, query[i+1:]
}
