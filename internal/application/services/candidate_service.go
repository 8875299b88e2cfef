package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/gabay/core/internal/adapters/codec"
	"github.com/gabay/core/internal/domain/entities"
	"github.com/gabay/core/internal/infrastructure/logger"
	"github.com/gabay/core/internal/ports"
)

// MinSearchQueryLength is the shortest trimmed query that triggers a search
const MinSearchQueryLength = 2

var (
	ErrSearchQueryTooShort = errors.New("search query too short")
	ErrTooFewToCompare     = errors.New("at least two candidates are required to compare")
)

// Reloader is implemented by repositories that can report their last load
type Reloader interface {
	Stats() ports.LoadStats
}

// CandidateService handles candidate browsing and administration
type CandidateService struct {
	repo   ports.CandidateRepository
	legacy ports.CandidateCodec
	logger *logger.Logger
	now    func() time.Time
}

var _ ports.CandidateService = (*CandidateService)(nil)

// NewCandidateService creates a new candidate service
func NewCandidateService(repo ports.CandidateRepository, logger *logger.Logger) *CandidateService {
	return &CandidateService{
		repo:   repo,
		legacy: codec.NewDelimitedCodec(),
		logger: logger.WithComponent("candidate_service"),
		now:    time.Now,
	}
}

// ListCandidates returns all candidates matching filter in collection order
func (s *CandidateService) ListCandidates(ctx context.Context, filter ports.CandidateFilter) ([]*entities.Candidate, error) {
	all := s.repo.GetAll(ctx)
	out := make([]*entities.Candidate, 0, len(all))
	for _, c := range all {
		if !matchesFilter(c, filter) {
			continue
		}
		out = append(out, c)
	}
	return out, nil
}

func matchesFilter(c *entities.Candidate, f ports.CandidateFilter) bool {
	if f.Position != "" && !strings.EqualFold(strings.TrimSpace(f.Position), c.Position) {
		return false
	}
	if f.Party != "" && !strings.EqualFold(strings.TrimSpace(f.Party), c.PartyAffiliation) {
		return false
	}
	if f.Region != "" && !strings.EqualFold(strings.TrimSpace(f.Region), c.Region) {
		return false
	}
	return true
}

// SearchCandidates runs a case-insensitive substring search
func (s *CandidateService) SearchCandidates(ctx context.Context, query string) ([]*entities.Candidate, error) {
	trimmed := strings.TrimSpace(query)
	if utf8.RuneCountInString(trimmed) < MinSearchQueryLength {
		return nil, ErrSearchQueryTooShort
	}
	return s.repo.Search(ctx, trimmed), nil
}

// GetCandidate retrieves a candidate by ID
func (s *CandidateService) GetCandidate(ctx context.Context, id uuid.UUID) (*entities.Candidate, error) {
	return s.repo.GetByID(ctx, id)
}

// CreateCandidate validates and stores a new candidate
func (s *CandidateService) CreateCandidate(ctx context.Context, req ports.CandidateRequest) (*entities.Candidate, error) {
	candidate, err := req.ToCandidate()
	if err != nil {
		return nil, err
	}
	if err := s.repo.Add(ctx, candidate); err != nil {
		return nil, err
	}

	s.logger.LogCandidateChange("created", candidate.ID.String(), candidate.Name)
	return candidate, nil
}

// UpdateCandidate replaces an existing candidate's profile
func (s *CandidateService) UpdateCandidate(ctx context.Context, id uuid.UUID, req ports.CandidateRequest) (*entities.Candidate, error) {
	candidate, err := req.ToCandidate()
	if err != nil {
		return nil, err
	}
	if err := s.repo.UpdateByID(ctx, id, candidate); err != nil {
		return nil, err
	}

	s.logger.LogCandidateChange("updated", candidate.ID.String(), candidate.Name)
	return candidate, nil
}

// DeleteCandidate removes a candidate
func (s *CandidateService) DeleteCandidate(ctx context.Context, id uuid.UUID) error {
	existing, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if err := s.repo.DeleteByID(ctx, id); err != nil {
		return err
	}

	s.logger.LogCandidateChange("deleted", id.String(), existing.Name)
	return nil
}

// CompareCandidates lines up the stances of two or more candidates on every catalog issue
func (s *CandidateService) CompareCandidates(ctx context.Context, ids ...uuid.UUID) (*ports.Comparison, error) {
	if len(ids) < 2 {
		return nil, ErrTooFewToCompare
	}

	cmp := &ports.Comparison{
		Candidates: make([]*entities.Candidate, 0, len(ids)),
		Rows:       make([]ports.ComparisonRow, 0, len(entities.SocialIssues)),
		Consensus:  []entities.SocialIssue{},
	}
	for _, id := range ids {
		c, err := s.repo.GetByID(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("candidate %s: %w", id, err)
		}
		cmp.Candidates = append(cmp.Candidates, c)
	}

	for _, issue := range entities.SocialIssues {
		row := ports.ComparisonRow{Issue: issue, Stances: make([]entities.Stance, len(cmp.Candidates))}
		for i, c := range cmp.Candidates {
			row.Stances[i] = c.StanceOn(issue)
		}
		row.Agreeing = agreeing(row.Stances)
		if row.Agreeing {
			cmp.Consensus = append(cmp.Consensus, issue)
		}
		cmp.Rows = append(cmp.Rows, row)
	}
	return cmp, nil
}

// agreeing reports whether every stance is the same recorded position
func agreeing(stances []entities.Stance) bool {
	first := stances[0]
	if first == entities.StanceNoData {
		return false
	}
	for _, st := range stances[1:] {
		if st != first {
			return false
		}
	}
	return true
}

// Reload re-reads the backing file
func (s *CandidateService) Reload(ctx context.Context) (*ports.LoadStats, error) {
	if err := s.repo.Load(ctx); err != nil {
		return nil, fmt.Errorf("failed to reload candidates: %w", err)
	}

	stats := ports.LoadStats{Loaded: s.repo.Len(ctx)}
	if r, ok := s.repo.(Reloader); ok {
		stats = r.Stats()
	}
	s.logger.Infow("Candidates reloaded", "loaded", stats.Loaded, "skipped", len(stats.Skipped))
	return &stats, nil
}

// ImportLegacy adds every record of a delimited export that parses and validates
func (s *CandidateService) ImportLegacy(ctx context.Context, data []byte) (*ports.ImportReport, error) {
	decoded, err := s.legacy.Decode(data)
	if err != nil {
		return nil, fmt.Errorf("failed to decode legacy data: %w", err)
	}

	report := &ports.ImportReport{
		Skipped:  decoded.Skipped,
		Rejected: []string{},
	}
	if report.Skipped == nil {
		report.Skipped = []ports.ParseIssue{}
	}

	for _, c := range decoded.Candidates {
		if err := s.repo.Add(ctx, c); err != nil {
			var verr *entities.ValidationError
			if errors.As(err, &verr) || errors.Is(err, entities.ErrDuplicateID) {
				report.Rejected = append(report.Rejected, fmt.Sprintf("%s: %v", c.Name, err))
				continue
			}
			return report, fmt.Errorf("failed to import %q: %w", c.Name, err)
		}
		report.Imported++
	}

	report.FinishedAt = s.now()
	s.logger.Infow("Legacy import finished",
		"imported", report.Imported,
		"skipped", len(report.Skipped),
		"rejected", len(report.Rejected),
	)
	return report, nil
}

// ExportLegacy encodes the current collection in the delimited grammar
func (s *CandidateService) ExportLegacy(ctx context.Context) ([]byte, error) {
	data, err := s.legacy.Encode(s.repo.GetAll(ctx))
	if err != nil {
		return nil, fmt.Errorf("failed to export candidates: %w", err)
	}
	return data, nil
}
