package ports

import (
	"context"

	"github.com/google/uuid"

	"github.com/gabay/core/internal/domain/entities"
)

// CandidateRepository defines the interface for candidate data operations.
// Positional indices are only valid until the next mutating call.
type CandidateRepository interface {
	Load(ctx context.Context) error
	SaveAll(ctx context.Context) error
	GetAll(ctx context.Context) []*entities.Candidate
	Get(ctx context.Context, index int) (*entities.Candidate, error)
	Add(ctx context.Context, candidate *entities.Candidate) error
	Update(ctx context.Context, index int, candidate *entities.Candidate) error
	Delete(ctx context.Context, index int) error
	Search(ctx context.Context, query string) []*entities.Candidate
	Len(ctx context.Context) int

	GetByID(ctx context.Context, id uuid.UUID) (*entities.Candidate, error)
	UpdateByID(ctx context.Context, id uuid.UUID, candidate *entities.Candidate) error
	DeleteByID(ctx context.Context, id uuid.UUID) error
	IndexOf(ctx context.Context, id uuid.UUID) int
}

// CandidateCodec maps a candidate collection to and from its file representation
type CandidateCodec interface {
	Name() string
	Encode(candidates []*entities.Candidate) ([]byte, error)
	Decode(data []byte) (*DecodeResult, error)
}

// DecodeResult holds the records that parsed and the ones that were skipped
type DecodeResult struct {
	Candidates []*entities.Candidate
	Skipped    []ParseIssue
}

// ParseIssue describes one record dropped while decoding
type ParseIssue struct {
	Line   int    `json:"line"`
	Reason string `json:"reason"`
}

// LoadStats summarises the most recent load
type LoadStats struct {
	Loaded  int          `json:"loaded"`
	Skipped []ParseIssue `json:"skipped"`
}

// CandidateFilter narrows a listing. Empty fields match everything.
type CandidateFilter struct {
	Position string
	Party    string
	Region   string
}
