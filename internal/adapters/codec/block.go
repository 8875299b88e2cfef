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

const blockHeader = "# Gabáy candidate profiles"

// block keys as written
const (
	keyID         = "ID"
	keyName       = "Name"
	keyAge        = "Age"
	keyPosition   = "Position"
	keyParty      = "Party Affiliation"
	keyRegion     = "Region"
	keyExperience = "Years of Experience"
	keySlogan     = "Campaign Slogan"
	keyPlatforms  = "Platforms"
	keySupported  = "Supported Issues"
	keyOpposed    = "Opposed Issues"
	keyLaws       = "Notable Laws"
	keyImage      = "Image"
	keyStances    = "Stances On Social Issues"
	keyStance     = "Social Stance"
)

// keyAliases maps every accepted spelling (lowercased) to its canonical key.
var keyAliases = map[string]string{
	"id":                       keyID,
	"name":                     keyName,
	"age":                      keyAge,
	"position":                 keyPosition,
	"positions":                keyPosition,
	"running position":         keyPosition,
	"party affiliation":        keyParty,
	"region":                   keyRegion,
	"hometown region":          keyRegion,
	"years of experience":      keyExperience,
	"campaign slogan":          keySlogan,
	"platforms":                keyPlatforms,
	"supported issues":         keySupported,
	"opposed issues":           keyOpposed,
	"notable laws":             keyLaws,
	"image":                    keyImage,
	"stances on social issues": keyStances,
	"social stance":            keyStance,
}

// BlockCodec reads and writes the key-value block grammar. A "Name:" line opens a
// new block; '#' lines and blank lines are ignored; a "Stances On Social Issues:"
// line opens a sub-block of "Issue - Stance" lines that ends at the next key.
type BlockCodec struct{}

// NewBlockCodec creates the canonical codec
func NewBlockCodec() *BlockCodec {
	return &BlockCodec{}
}

func (BlockCodec) Name() string { return FormatBlock }

// Encode writes a header comment followed by one blank-line separated block per candidate.
func (BlockCodec) Encode(candidates []*entities.Candidate) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString(blockHeader)
	buf.WriteByte('\n')

	for _, c := range candidates {
		if c == nil {
			return nil, fmt.Errorf("codec: nil candidate")
		}
		buf.WriteByte('\n')
		writeBlock(&buf, c)
	}
	return buf.Bytes(), nil
}

func writeBlock(buf *bytes.Buffer, c *entities.Candidate) {
	put := func(key, value string) {
		buf.WriteString(key)
		buf.WriteByte(':')
		if value != "" {
			buf.WriteByte(' ')
			buf.WriteString(value)
		}
		buf.WriteByte('\n')
	}

	put(keyName, escape(c.Name, ""))
	if c.ID != uuid.Nil {
		put(keyID, c.ID.String())
	}
	put(keyAge, strconv.Itoa(c.Age))
	put(keyPosition, escape(c.Position, ""))
	put(keyParty, escape(c.PartyAffiliation, ""))
	put(keyRegion, escape(c.Region, ""))
	put(keyExperience, strconv.Itoa(c.YearsOfExperience))
	put(keySlogan, escape(c.CampaignSlogan, ""))
	put(keyPlatforms, joinList(c.Platforms, "; ", ";"))
	put(keySupported, joinList(c.SupportedIssues, "; ", ";"))
	put(keyOpposed, joinList(c.OpposedIssues, "; ", ";"))
	put(keyLaws, joinList(c.NotableLaws, "; ", ";"))
	put(keyImage, escape(c.ImagePath, ""))
	put(keyStances, "")
	for _, line := range orderedStances(c.SocialStance) {
		buf.WriteString(line)
		buf.WriteByte('\n')
	}
}

// pendingBlock accumulates one candidate while decoding.
type pendingBlock struct {
	line      int
	candidate *entities.Candidate
	hasName   bool
	hasID     bool
	keys      int
	err       error
}

func newPendingBlock(line int) *pendingBlock {
	return &pendingBlock{
		line: line,
		candidate: &entities.Candidate{
			SocialStance: map[entities.SocialIssue]entities.Stance{},
		},
	}
}

// idOnly reports whether the block so far is a lone "ID:" line waiting for its name.
func (p *pendingBlock) idOnly() bool {
	return p.hasID && !p.hasName && p.keys == 1 && p.err == nil
}

func (p *pendingBlock) fail(err error) {
	if p.err == nil {
		p.err = err
	}
}

// Decode parses every block; blocks that cannot form a candidate are reported in Skipped.
// A block without an "ID:" line decodes with a nil ID.
func (BlockCodec) Decode(data []byte) (*ports.DecodeResult, error) {
	result := &ports.DecodeResult{Candidates: []*entities.Candidate{}}

	var cur *pendingBlock
	inStances := false
	afterBlank := false

	flush := func() {
		if cur == nil {
			return
		}
		switch {
		case cur.err != nil:
			result.Skipped = append(result.Skipped, ports.ParseIssue{Line: cur.line, Reason: cur.err.Error()})
		case !cur.hasName:
			result.Skipped = append(result.Skipped, ports.ParseIssue{Line: cur.line, Reason: "block has no Name"})
		default:
			cur.candidate.Normalize()
			result.Candidates = append(result.Candidates, cur.candidate)
		}
		cur = nil
	}

	scanner := bufio.NewScanner(bytes.NewReader(data))
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			afterBlank = true
			continue
		}
		if strings.HasPrefix(line, "#") {
			continue
		}

		key, value, isKey := splitKeyLine(line)
		if !isKey {
			if inStances && cur != nil {
				applyStance(cur, line)
			}
			// stray text outside a stance block is ignored
			continue
		}

		// "Name:" opens a block unless it follows a lone "ID:" line. An "ID:" opens
		// one after a blank line or a previous ID, so files that write the ID first
		// still pair up.
		switch {
		case cur == nil:
			cur = newPendingBlock(lineNo)
		case key == keyName && !cur.idOnly():
			flush()
			cur = newPendingBlock(lineNo)
		case key == keyID && (cur.hasID || afterBlank):
			flush()
			cur = newPendingBlock(lineNo)
		}
		afterBlank = false
		inStances = key == keyStances
		cur.keys++
		applyKey(cur, key, value)
	}
	flush()

	if err := scanner.Err(); err != nil {
		return result, fmt.Errorf("codec: scan block data: %w", err)
	}
	return result, nil
}

// splitKeyLine recognises "Key: value" lines for known keys only.
func splitKeyLine(line string) (string, string, bool) {
	rawKey, value, ok := strings.Cut(line, ":")
	if !ok {
		return "", "", false
	}
	key, known := keyAliases[strings.ToLower(strings.TrimSpace(rawKey))]
	if !known {
		return "", "", false
	}
	return key, strings.TrimSpace(value), true
}

func applyKey(p *pendingBlock, key, value string) {
	c := p.candidate
	switch key {
	case keyID:
		id, err := uuid.Parse(value)
		if err != nil {
			p.fail(fmt.Errorf("invalid ID %q", value))
			return
		}
		c.ID = id
		p.hasID = true
	case keyName:
		c.Name = unescape(value)
		p.hasName = true
	case keyAge:
		n, err := strconv.Atoi(value)
		if err != nil {
			p.fail(fmt.Errorf("invalid Age %q", value))
			return
		}
		c.Age = n
	case keyPosition:
		c.Position = unescape(value)
	case keyParty:
		c.PartyAffiliation = unescape(value)
	case keyRegion:
		c.Region = unescape(value)
	case keyExperience:
		n, err := strconv.Atoi(value)
		if err != nil {
			p.fail(fmt.Errorf("invalid Years of Experience %q", value))
			return
		}
		c.YearsOfExperience = n
	case keySlogan:
		c.CampaignSlogan = unescape(value)
	case keyPlatforms:
		c.Platforms = splitList(value, listDelimiter, true)
	case keySupported:
		c.SupportedIssues = splitList(value, listDelimiter, true)
	case keyOpposed:
		c.OpposedIssues = splitList(value, listDelimiter, true)
	case keyLaws:
		c.NotableLaws = splitList(value, listDelimiter, true)
	case keyImage:
		c.ImagePath = unescape(value)
	case keyStance:
		applyStance(p, value)
	case keyStances:
		// the sub-block follows on the next lines
	}
}

func applyStance(p *pendingBlock, pair string) {
	issue, stance, err := parseStancePair(pair)
	if err != nil {
		p.fail(err)
		return
	}
	p.candidate.SocialStance[issue] = stance
}
