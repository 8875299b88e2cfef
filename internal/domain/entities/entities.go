package entities

import (
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// Common errors
var (
	ErrCandidateNotFound = errors.New("candidate not found")
	ErrIndexOutOfRange   = errors.New("index out of range")
	ErrDuplicateID       = errors.New("candidate id already exists")
	ErrInvalidStance     = errors.New("invalid stance")
)

// DefaultImagePath is the placeholder used when a profile has no picture.
const DefaultImagePath = "resources/images/candidates/default.png"

// Stance is a candidate's position on a social issue
type Stance string

const (
	StanceAgree    Stance = "Agree"
	StanceDisagree Stance = "Disagree"
	StanceNeutral  Stance = "Neutral"
	StanceNoData   Stance = "No Data"
)

// Stances lists every valid stance label in display order
var Stances = []Stance{StanceAgree, StanceDisagree, StanceNeutral, StanceNoData}

// IsValid reports whether s is one of the four stance labels
func (s Stance) IsValid() bool {
	switch s {
	case StanceAgree, StanceDisagree, StanceNeutral, StanceNoData:
		return true
	}
	return false
}

// ParseStance matches a stance label case-insensitively.
func ParseStance(label string) (Stance, error) {
	label = strings.TrimSpace(label)
	for _, s := range Stances {
		if strings.EqualFold(label, string(s)) {
			return s, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidStance, label)
}

// SocialIssue names one entry of the social issue catalog
type SocialIssue string

// SocialIssues is the fixed catalog of issues a stance can be recorded for.
var SocialIssues = []SocialIssue{
	"Divorce",
	"Same-Sex Marriage",
	"Death Penalty",
	"Abortion",
	"Federalism",
	"Charter Change",
	"Mandatory ROTC",
	"Medical Marijuana",
	"SOGIE Equality Bill",
	"Lowering the Age of Criminal Responsibility",
	"Contractualization",
	"Political Dynasties",
}

// IsKnownIssue reports whether issue belongs to the catalog
func IsKnownIssue(issue SocialIssue) bool {
	_, ok := LookupIssue(string(issue))
	return ok
}

// LookupIssue finds the catalog entry matching name, ignoring case and surrounding spaces.
func LookupIssue(name string) (SocialIssue, bool) {
	name = strings.TrimSpace(name)
	for _, issue := range SocialIssues {
		if strings.EqualFold(name, string(issue)) {
			return issue, true
		}
	}
	return "", false
}

// Candidate represents a political candidate profile
type Candidate struct {
	ID                uuid.UUID              `json:"id"`
	Name              string                 `json:"name" validate:"notblank,min=2,max=100"`
	Age               int                    `json:"age" validate:"min=18,max=100"`
	Position          string                 `json:"position" validate:"notblank"`
	PartyAffiliation  string                 `json:"party_affiliation" validate:"notblank"`
	Region            string                 `json:"region"`
	YearsOfExperience int                    `json:"years_of_experience" validate:"min=0,max=80"`
	CampaignSlogan    string                 `json:"campaign_slogan"`
	Platforms         []string               `json:"platforms" validate:"required"`
	SupportedIssues   []string               `json:"supported_issues" validate:"required"`
	OpposedIssues     []string               `json:"opposed_issues" validate:"required"`
	NotableLaws       []string               `json:"notable_laws" validate:"required"`
	ImagePath         string                 `json:"image_path"`
	SocialStance      map[SocialIssue]Stance `json:"social_stance" validate:"required,dive,keys,social_issue,endkeys,stance"`
}

// Normalize replaces nil collections with empty ones and fills the placeholder image.
func (c *Candidate) Normalize() {
	if c.Platforms == nil {
		c.Platforms = []string{}
	}
	if c.SupportedIssues == nil {
		c.SupportedIssues = []string{}
	}
	if c.OpposedIssues == nil {
		c.OpposedIssues = []string{}
	}
	if c.NotableLaws == nil {
		c.NotableLaws = []string{}
	}
	if c.SocialStance == nil {
		c.SocialStance = map[SocialIssue]Stance{}
	}
	if strings.TrimSpace(c.ImagePath) == "" {
		c.ImagePath = DefaultImagePath
	}
}

// Clone returns a deep copy so callers never share list or map storage with the store.
func (c *Candidate) Clone() *Candidate {
	if c == nil {
		return nil
	}
	out := *c
	out.Platforms = cloneStrings(c.Platforms)
	out.SupportedIssues = cloneStrings(c.SupportedIssues)
	out.OpposedIssues = cloneStrings(c.OpposedIssues)
	out.NotableLaws = cloneStrings(c.NotableLaws)
	if c.SocialStance != nil {
		out.SocialStance = make(map[SocialIssue]Stance, len(c.SocialStance))
		for k, v := range c.SocialStance {
			out.SocialStance[k] = v
		}
	}
	return &out
}

// StanceOn returns the recorded stance, or No Data when the issue is absent
func (c *Candidate) StanceOn(issue SocialIssue) Stance {
	if s, ok := c.SocialStance[issue]; ok && s != "" {
		return s
	}
	return StanceNoData
}

// Matches reports whether any searchable field contains the lowercased needle.
func (c *Candidate) Matches(needle string) bool {
	for _, field := range []string{c.Name, c.Position, c.PartyAffiliation, c.Region, c.CampaignSlogan} {
		if containsFold(field, needle) {
			return true
		}
	}
	for _, list := range [][]string{c.Platforms, c.SupportedIssues, c.OpposedIssues, c.NotableLaws} {
		for _, item := range list {
			if containsFold(item, needle) {
				return true
			}
		}
	}
	for _, stance := range c.SocialStance {
		if containsFold(string(stance), needle) {
			return true
		}
	}
	return false
}

func containsFold(s, lowerNeedle string) bool {
	return strings.Contains(strings.ToLower(s), lowerNeedle)
}

func cloneStrings(in []string) []string {
	if in == nil {
		return nil
	}
	out := make([]string, len(in))
	copy(out, in)
	return out
}

// ValidationError describes the first rule a candidate violated
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// IndexError reports an out-of-range positional access
type IndexError struct {
	Index int
	Len   int
}

func (e *IndexError) Error() string {
	return fmt.Sprintf("index %d out of range [0, %d)", e.Index, e.Len)
}

func (e *IndexError) Unwrap() error {
	return ErrIndexOutOfRange
}
