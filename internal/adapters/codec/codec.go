// Package codec encodes candidate collections to their text file formats.
//
// Two grammars are supported. The block grammar ("Key: value" lines, one block per
// candidate) is the canonical on-disk format. The delimited grammar (one
// pipe-separated line per candidate) is kept for importing and exporting legacy files.
// Both escape their own delimiters with a backslash, so files written here round-trip
// losslessly while unescaped legacy files still parse as before.
package codec

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"

	"github.com/gabay/core/internal/domain/entities"
	"github.com/gabay/core/internal/ports"
)

const (
	FormatBlock     = "block"
	FormatDelimited = "delimited"
)

// ForFormat returns the codec registered under name.
func ForFormat(name string) (ports.CandidateCodec, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case FormatBlock, "":
		return NewBlockCodec(), nil
	case FormatDelimited:
		return NewDelimitedCodec(), nil
	}
	return nil, fmt.Errorf("codec: unknown format %q", name)
}

// stanceSeparator joins an issue and a stance in both grammars.
const stanceSeparator = " - "

// escape backslash-escapes '\\', line breaks, tabs and every rune in specials.
// Whitespace at either end is escaped too, since decoders trim lines and list items.
func escape(s string, specials string) string {
	if s == "" {
		return s
	}
	runes := []rune(s)
	lead := 0
	for lead < len(runes) && unicode.IsSpace(runes[lead]) {
		lead++
	}
	trail := len(runes)
	for trail > lead && unicode.IsSpace(runes[trail-1]) {
		trail--
	}
	if lead == 0 && trail == len(runes) && !strings.ContainsAny(s, "\\\n\r\t"+specials) {
		return s
	}

	var b strings.Builder
	b.Grow(len(s) + 4)
	for i, r := range runes {
		edge := i < lead || i >= trail
		switch {
		case r == '\\':
			b.WriteString(`\\`)
		case r == '\n':
			b.WriteString(`\n`)
		case r == '\r':
			b.WriteString(`\r`)
		case r == '\t':
			b.WriteString(`\t`)
		case edge && r == ' ':
			b.WriteString(`\s`)
		case edge:
			fmt.Fprintf(&b, `\u%04X`, r)
		case strings.ContainsRune(specials, r):
			b.WriteByte('\\')
			b.WriteRune(r)
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}

// emptyItem marks an empty list element, which would otherwise vanish.
const emptyItem = `\e`

func unescape(s string) string {
	if !strings.Contains(s, `\`) {
		return s
	}
	runes := []rune(s)
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(runes); i++ {
		if runes[i] != '\\' {
			b.WriteRune(runes[i])
			continue
		}
		// a dangling backslash is kept literally
		if i+1 == len(runes) {
			b.WriteByte('\\')
			break
		}
		i++
		switch runes[i] {
		case 'n':
			b.WriteByte('\n')
		case 'r':
			b.WriteByte('\r')
		case 't':
			b.WriteByte('\t')
		case 's':
			b.WriteByte(' ')
		case 'e':
		case 'u':
			if i+4 < len(runes) {
				if code, err := strconv.ParseUint(string(runes[i+1:i+5]), 16, 32); err == nil {
					b.WriteRune(rune(code))
					i += 4
					continue
				}
			}
			b.WriteRune('u')
		default:
			b.WriteRune(runes[i])
		}
	}
	return b.String()
}

// splitEscaped splits s on every sep not preceded by an escaping backslash.
// The parts are returned still escaped.
func splitEscaped(s string, sep rune) []string {
	var parts []string
	var cur strings.Builder
	escaped := false
	for _, r := range s {
		switch {
		case escaped:
			cur.WriteByte('\\')
			cur.WriteRune(r)
			escaped = false
		case r == '\\':
			escaped = true
		case r == sep:
			parts = append(parts, cur.String())
			cur.Reset()
		default:
			cur.WriteRune(r)
		}
	}
	if escaped {
		cur.WriteByte('\\')
	}
	return append(parts, cur.String())
}

// splitList decodes a list slot. An empty slot is an empty list. With trim set,
// padding around raw items is dropped along with items that are blank before
// unescaping; escaped edges and the empty-item marker survive.
func splitList(raw string, sep rune, trim bool) []string {
	items := []string{}
	if raw == "" {
		return items
	}
	for _, part := range splitEscaped(raw, sep) {
		if trim {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
		}
		items = append(items, unescape(part))
	}
	return items
}

func joinList(items []string, sep string, specials string) string {
	escaped := make([]string, len(items))
	for i, item := range items {
		if item == "" {
			escaped[i] = emptyItem
			continue
		}
		escaped[i] = escape(item, specials)
	}
	return strings.Join(escaped, sep)
}

// parseStancePair reads "Issue - Stance".
func parseStancePair(s string) (entities.SocialIssue, entities.Stance, error) {
	idx := strings.LastIndex(s, stanceSeparator)
	if idx < 0 {
		return "", "", fmt.Errorf("social stance %q is not of the form \"Issue - Stance\"", s)
	}
	issue, ok := entities.LookupIssue(s[:idx])
	if !ok {
		return "", "", fmt.Errorf("unknown social issue %q", strings.TrimSpace(s[:idx]))
	}
	stance, err := entities.ParseStance(s[idx+len(stanceSeparator):])
	if err != nil {
		return "", "", err
	}
	return issue, stance, nil
}

// orderedStances lists a stance map in catalog order.
func orderedStances(m map[entities.SocialIssue]entities.Stance) []string {
	out := make([]string, 0, len(m))
	for _, issue := range entities.SocialIssues {
		if stance, ok := m[issue]; ok {
			out = append(out, string(issue)+stanceSeparator+string(stance))
		}
	}
	return out
}
