package ports

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/gabay/core/internal/domain/entities"
)

// AuthService interface for admin authentication
type AuthService interface {
	Login(ctx context.Context, req LoginRequest) (*AuthResponse, error)
	ValidateToken(tokenString string) (*Claims, error)
}

// CandidateService interface for candidate browsing and administration
type CandidateService interface {
	ListCandidates(ctx context.Context, filter CandidateFilter) ([]*entities.Candidate, error)
	SearchCandidates(ctx context.Context, query string) ([]*entities.Candidate, error)
	GetCandidate(ctx context.Context, id uuid.UUID) (*entities.Candidate, error)
	CreateCandidate(ctx context.Context, req CandidateRequest) (*entities.Candidate, error)
	UpdateCandidate(ctx context.Context, id uuid.UUID, req CandidateRequest) (*entities.Candidate, error)
	DeleteCandidate(ctx context.Context, id uuid.UUID) error
	CompareCandidates(ctx context.Context, ids ...uuid.UUID) (*Comparison, error)
	Reload(ctx context.Context) (*LoadStats, error)
	ImportLegacy(ctx context.Context, data []byte) (*ImportReport, error)
	ExportLegacy(ctx context.Context) ([]byte, error)
}

// Request/Response Types

// Auth related types
type LoginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type AuthResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int64  `json:"expires_in"`
}

type Claims struct {
	Username string `json:"username"`
	Role     string `json:"role"`
}

// CandidateRequest is the form payload used to create or replace a profile
type CandidateRequest struct {
	Name              string            `json:"name"`
	Age               int               `json:"age"`
	Position          string            `json:"position"`
	PartyAffiliation  string            `json:"party_affiliation"`
	Region            string            `json:"region"`
	YearsOfExperience int               `json:"years_of_experience"`
	CampaignSlogan    string            `json:"campaign_slogan"`
	Platforms         []string          `json:"platforms"`
	SupportedIssues   []string          `json:"supported_issues"`
	OpposedIssues     []string          `json:"opposed_issues"`
	NotableLaws       []string          `json:"notable_laws"`
	ImagePath         string            `json:"image_path"`
	SocialStance      map[string]string `json:"social_stance"`
}

// ToCandidate builds a normalized entity from the request. Stance labels are
// matched case-insensitively; unknown labels and issues are passed through so
// the entity validator reports them. Two keys naming the same issue are rejected.
func (r CandidateRequest) ToCandidate() (*entities.Candidate, error) {
	c := &entities.Candidate{
		Name:              r.Name,
		Age:               r.Age,
		Position:          r.Position,
		PartyAffiliation:  r.PartyAffiliation,
		Region:            r.Region,
		YearsOfExperience: r.YearsOfExperience,
		CampaignSlogan:    r.CampaignSlogan,
		Platforms:         r.Platforms,
		SupportedIssues:   r.SupportedIssues,
		OpposedIssues:     r.OpposedIssues,
		NotableLaws:       r.NotableLaws,
		ImagePath:         r.ImagePath,
		SocialStance:      make(map[entities.SocialIssue]entities.Stance, len(r.SocialStance)),
	}
	for issue, label := range r.SocialStance {
		key := entities.SocialIssue(issue)
		if known, ok := entities.LookupIssue(issue); ok {
			key = known
		}
		if _, dup := c.SocialStance[key]; dup {
			return nil, &entities.ValidationError{
				Field:   "social_stance",
				Message: fmt.Sprintf("social issue %q is given more than once", key),
			}
		}
		stance, err := entities.ParseStance(label)
		if err != nil {
			stance = entities.Stance(label)
		}
		c.SocialStance[key] = stance
	}
	c.Normalize()
	return c, nil
}

// Comparison lines up the stances of several candidates across the catalog
type Comparison struct {
	Candidates []*entities.Candidate `json:"candidates"`
	Rows       []ComparisonRow       `json:"rows"`
	// Consensus lists the issues where every compared candidate holds the same recorded stance
	Consensus []entities.SocialIssue `json:"consensus"`
}

type ComparisonRow struct {
	Issue    entities.SocialIssue `json:"issue"`
	Stances  []entities.Stance    `json:"stances"`
	Agreeing bool                 `json:"agreeing"`
}

// ImportReport summarises a legacy import
type ImportReport struct {
	Imported   int          `json:"imported"`
	Skipped    []ParseIssue `json:"skipped"`
	Rejected   []string     `json:"rejected"`
	FinishedAt time.Time    `json:"finished_at"`
}
