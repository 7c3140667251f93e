package main

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/runger/selecta/internal/filter"
	"github.com/runger/selecta/internal/item"
)

// maxLineLen caps one input line in bytes; longer lines are truncated
// rather than rejected.
const maxLineLen = 4096

// readItems parses newline-separated items from r. Leading tabs encode
// hierarchy: a line indented one tab deeper than its predecessor
// becomes its child. An optional "kind<TAB>" prefix after the
// indentation tags the item's category for the prefix filter; lines
// without one have no kind.
func readItems(r io.Reader, kinded bool) ([]item.Item, error) {
	br := bufio.NewReaderSize(r, maxLineLen)

	var items []item.Item
	// parents[d] is the identity of the most recent item at depth d.
	var parents []string
	// occurrences disambiguates repeated lines so identities stay
	// stable when a producer re-delivers the same output.
	occurrences := make(map[string]int)

	for {
		chunk, isPrefix, err := br.ReadLine()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading items: %w", err)
		}
		line := string(chunk)
		// Keep the first maxLineLen bytes of an over-long line and
		// discard the remainder.
		for isPrefix {
			_, isPrefix, err = br.ReadLine()
			if err != nil {
				break
			}
		}
		if strings.TrimSpace(line) == "" {
			continue
		}

		depth := 0
		for depth < len(line) && line[depth] == '\t' {
			depth++
		}
		text := line[depth:]
		if depth > len(parents) {
			depth = len(parents) // Over-indented line attaches to the deepest open parent.
		}

		var kind string
		if kinded {
			if k, rest, ok := strings.Cut(text, "\t"); ok {
				kind, text = k, rest
			}
		}

		occ := occurrences[text]
		occurrences[text] = occ + 1
		it := item.Item{
			Display:  text,
			Payload:  text,
			Identity: fmt.Sprintf("%d\x00%s", occ, text),
			Kind:     kind,
		}
		if depth > 0 {
			it.ParentIdentity = parents[depth-1]
		}

		parents = append(parents[:depth], it.Identity)
		items = append(items, it)
	}
	return items, nil
}

// parseFilterFlags turns repeated "token=kind1,kind2" flags into a
// prefix-filter vocabulary, overlaying the config-supplied one.
func parseFilterFlags(vocab filter.Vocabulary, flags []string) (filter.Vocabulary, error) {
	if len(flags) == 0 {
		return vocab, nil
	}
	out := make(filter.Vocabulary, len(vocab)+len(flags))
	for tok, kinds := range vocab {
		out[tok] = kinds
	}
	for _, f := range flags {
		tok, kinds, ok := strings.Cut(f, "=")
		if !ok || tok == "" || kinds == "" {
			return nil, fmt.Errorf("--filter must be token=kind[,kind...] (got %q)", f)
		}
		out[tok] = strings.Split(kinds, ",")
	}
	return out, nil
}
