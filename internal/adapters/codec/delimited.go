package codec

import (
	"bufio"
	"bytes"
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/gabay/core/internal/domain/entities"
	"github.com/gabay/core/internal/ports"
)

const (
	fieldDelimiter = '|'
	listDelimiter  = ';'

	// delimitedFields is the minimum number of slots in a legacy line.
	delimitedFields = 13
)

// Slot positions of the delimited grammar. slotID is optional.
const (
	slotName = iota
	slotAge
	slotPosition
	slotParty
	slotRegion
	slotExperience
	slotSlogan
	slotPlatforms
	slotSupported
	slotOpposed
	slotLaws
	slotImage
	slotStances
	slotID
)

// DelimitedCodec reads and writes the compact one-line-per-candidate grammar:
//
//	name|age|position|party|region|years|slogan|platforms|supported|opposed|laws|image|stances[|id]
//
// List slots are ';'-joined; stance elements are "Issue - Stance".
type DelimitedCodec struct{}

// NewDelimitedCodec creates a legacy-format codec
func NewDelimitedCodec() *DelimitedCodec {
	return &DelimitedCodec{}
}

func (DelimitedCodec) Name() string { return FormatDelimited }

// Encode writes one line per candidate in collection order.
func (DelimitedCodec) Encode(candidates []*entities.Candidate) ([]byte, error) {
	var buf bytes.Buffer
	for _, c := range candidates {
		if c == nil {
			return nil, fmt.Errorf("codec: nil candidate")
		}
		buf.WriteString(encodeDelimited(c))
		buf.WriteByte('\n')
	}
	return buf.Bytes(), nil
}

func encodeDelimited(c *entities.Candidate) string {
	const scalar = "|;"
	id := ""
	if c.ID != uuid.Nil {
		id = c.ID.String()
	}
	fields := []string{
		escape(c.Name, scalar),
		strconv.Itoa(c.Age),
		escape(c.Position, scalar),
		escape(c.PartyAffiliation, scalar),
		escape(c.Region, scalar),
		strconv.Itoa(c.YearsOfExperience),
		escape(c.CampaignSlogan, scalar),
		joinList(c.Platforms, ";", scalar),
		joinList(c.SupportedIssues, ";", scalar),
		joinList(c.OpposedIssues, ";", scalar),
		joinList(c.NotableLaws, ";", scalar),
		escape(c.ImagePath, scalar),
		joinList(orderedStances(c.SocialStance), ";", scalar),
		id,
	}
	return strings.Join(fields, "|")
}

// Decode parses every non-blank line; malformed lines are reported, not fatal.
// A line without an id slot decodes with a nil ID.
func (DelimitedCodec) Decode(data []byte) (*ports.DecodeResult, error) {
	result := &ports.DecodeResult{Candidates: []*entities.Candidate{}}

	scanner := bufio.NewScanner(bytes.NewReader(data))
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimRight(scanner.Text(), "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		c, err := decodeDelimitedLine(line)
		if err != nil {
			result.Skipped = append(result.Skipped, ports.ParseIssue{Line: lineNo, Reason: err.Error()})
			continue
		}
		result.Candidates = append(result.Candidates, c)
	}
	if err := scanner.Err(); err != nil {
		return result, fmt.Errorf("codec: scan delimited data: %w", err)
	}
	return result, nil
}

func decodeDelimitedLine(line string) (*entities.Candidate, error) {
	slots := splitEscaped(line, fieldDelimiter)
	if len(slots) < delimitedFields {
		return nil, fmt.Errorf("expected at least %d fields, got %d", delimitedFields, len(slots))
	}

	age, err := strconv.Atoi(strings.TrimSpace(slots[slotAge]))
	if err != nil {
		return nil, fmt.Errorf("invalid age %q", slots[slotAge])
	}
	years, err := strconv.Atoi(strings.TrimSpace(slots[slotExperience]))
	if err != nil {
		return nil, fmt.Errorf("invalid years of experience %q", slots[slotExperience])
	}

	c := &entities.Candidate{
		Name:              unescape(slots[slotName]),
		Age:               age,
		Position:          unescape(slots[slotPosition]),
		PartyAffiliation:  unescape(slots[slotParty]),
		Region:            unescape(slots[slotRegion]),
		YearsOfExperience: years,
		CampaignSlogan:    unescape(slots[slotSlogan]),
		Platforms:         splitList(slots[slotPlatforms], listDelimiter, false),
		SupportedIssues:   splitList(slots[slotSupported], listDelimiter, false),
		OpposedIssues:     splitList(slots[slotOpposed], listDelimiter, false),
		NotableLaws:       splitList(slots[slotLaws], listDelimiter, false),
		ImagePath:         unescape(slots[slotImage]),
		SocialStance:      map[entities.SocialIssue]entities.Stance{},
	}

	for _, pair := range splitList(slots[slotStances], listDelimiter, true) {
		issue, stance, err := parseStancePair(pair)
		if err != nil {
			return nil, err
		}
		c.SocialStance[issue] = stance
	}

	if len(slots) > slotID {
		if raw := strings.TrimSpace(slots[slotID]); raw != "" {
			id, err := uuid.Parse(raw)
			if err != nil {
				return nil, fmt.Errorf("invalid id %q", raw)
			}
			c.ID = id
		}
	}

	c.Normalize()
	return c, nil
}
