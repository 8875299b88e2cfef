package repository

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/gabay/core/internal/adapters/filestore"
	"github.com/gabay/core/internal/domain/entities"
	"github.com/gabay/core/internal/infrastructure/logger"
	"github.com/gabay/core/internal/ports"
)

// CandidateStore owns the in-memory candidate collection and mirrors every
// accepted mutation to a single backing file.
type CandidateStore struct {
	mu         sync.RWMutex
	candidates []*entities.Candidate
	loaded     bool
	stats      ports.LoadStats

	files  *filestore.FileStore
	path   string
	codec  ports.CandidateCodec
	logger *logger.Logger
}

var _ ports.CandidateRepository = (*CandidateStore)(nil)

// derivedIDSpace namespaces the IDs given to records that were stored without one.
var derivedIDSpace = uuid.MustParse("6f1d2c3a-8b4e-4d7f-9a10-4c2b8e7d6a35")

// NewCandidateStore creates a store for path. Call Load before use.
func NewCandidateStore(files *filestore.FileStore, path string, codec ports.CandidateCodec, logger *logger.Logger) *CandidateStore {
	return &CandidateStore{
		candidates: []*entities.Candidate{},
		files:      files,
		path:       path,
		codec:      codec,
		logger:     logger.WithComponent("candidate_store").WithFields("path", path, "format", codec.Name()),
	}
}

// Path returns the backing file path
func (s *CandidateStore) Path() string {
	return s.path
}

// Load replaces the in-memory collection with the file contents.
// Unparseable records are skipped and logged; an I/O failure leaves the collection empty.
func (s *CandidateStore) Load(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.candidates = []*entities.Candidate{}
	s.stats = ports.LoadStats{}
	s.loaded = false

	if err := s.files.EnsureExists(s.path); err != nil {
		s.logger.Errorw("Failed to prepare candidate file", "error", err)
		return err
	}

	data, err := s.files.ReadAll(s.path)
	if err != nil {
		s.logger.Errorw("Failed to read candidate file", "error", err)
		return err
	}

	result, err := s.codec.Decode(data)
	if err != nil {
		s.logger.Errorw("Failed to decode candidate file", "error", err)
		return fmt.Errorf("failed to decode candidates: %w", err)
	}

	seen := make(map[uuid.UUID]bool, len(result.Candidates))
	skipped := result.Skipped
	for i, c := range result.Candidates {
		if c.ID == uuid.Nil {
			c.ID = s.derivedID(i, c)
		}
		if seen[c.ID] {
			skipped = append(skipped, ports.ParseIssue{Reason: fmt.Sprintf("duplicate id %s", c.ID)})
			continue
		}
		seen[c.ID] = true
		s.candidates = append(s.candidates, c)
	}

	for _, issue := range skipped {
		s.logger.Warnw("Skipped malformed candidate record", "line", issue.Line, "reason", issue.Reason)
	}

	s.stats = ports.LoadStats{Loaded: len(s.candidates), Skipped: skipped}
	s.loaded = true
	s.logger.Infow("Candidates loaded", "loaded", len(s.candidates), "skipped", len(skipped))
	return nil
}

// derivedID names a record that has no ID in the file. The ID depends only on the
// record's position and content, so reloading an unchanged file yields the same IDs;
// the next save writes them out.
func (s *CandidateStore) derivedID(position int, c *entities.Candidate) uuid.UUID {
	data, err := s.codec.Encode([]*entities.Candidate{c})
	if err != nil {
		return uuid.New()
	}
	return uuid.NewSHA1(derivedIDSpace, append([]byte(strconv.Itoa(position)+"\n"), data...))
}

// SaveAll overwrites the backing file with the current collection
func (s *CandidateStore) SaveAll(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.persistLocked()
}

func (s *CandidateStore) persistLocked() error {
	data, err := s.codec.Encode(s.candidates)
	if err != nil {
		s.logger.Errorw("Failed to encode candidates", "error", err)
		return fmt.Errorf("failed to encode candidates: %w", err)
	}

	if err := s.files.EnsureExists(s.path); err != nil {
		s.logger.Errorw("Failed to prepare candidate file", "error", err)
		return err
	}
	if err := s.files.WriteAll(s.path, data); err != nil {
		s.logger.Errorw("Failed to write candidate file", "error", err)
		return err
	}

	s.logger.Debugw("Candidates saved", "count", len(s.candidates), "bytes", len(data))
	return nil
}

// GetAll returns a snapshot of every candidate in collection order
func (s *CandidateStore) GetAll(ctx context.Context) []*entities.Candidate {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*entities.Candidate, len(s.candidates))
	for i, c := range s.candidates {
		out[i] = c.Clone()
	}
	return out
}

// Len returns the number of candidates currently held
func (s *CandidateStore) Len(ctx context.Context) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.candidates)
}

// Get returns a copy of the candidate at index
func (s *CandidateStore) Get(ctx context.Context, index int) (*entities.Candidate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if err := s.checkIndexLocked(index); err != nil {
		return nil, err
	}
	return s.candidates[index].Clone(), nil
}

// Add validates and appends a candidate, then persists the collection.
// A nil ID is replaced with a fresh one; the stored ID is written back to candidate.
func (s *CandidateStore) Add(ctx context.Context, candidate *entities.Candidate) error {
	if err := entities.Validate(candidate); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	stored := candidate.Clone()
	stored.Normalize()
	if stored.ID == uuid.Nil {
		stored.ID = uuid.New()
	}
	if s.indexOfLocked(stored.ID) >= 0 {
		return fmt.Errorf("%w: %s", entities.ErrDuplicateID, stored.ID)
	}

	s.candidates = append(s.candidates, stored)
	if err := s.persistLocked(); err != nil {
		s.candidates = s.candidates[:len(s.candidates)-1]
		return err
	}

	candidate.ID = stored.ID
	return nil
}

// Update validates candidate and replaces the record at index. The slot keeps its ID.
func (s *CandidateStore) Update(ctx context.Context, index int, candidate *entities.Candidate) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkIndexLocked(index); err != nil {
		return err
	}
	return s.replaceLocked(index, candidate)
}

// Delete removes the record at index; later records shift down by one.
func (s *CandidateStore) Delete(ctx context.Context, index int) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkIndexLocked(index); err != nil {
		return err
	}
	return s.removeLocked(index)
}

// Search returns every candidate with a field containing query, case-insensitively,
// in collection order. A blank query matches nothing.
func (s *CandidateStore) Search(ctx context.Context, query string) []*entities.Candidate {
	results := []*entities.Candidate{}
	if strings.TrimSpace(query) == "" {
		return results
	}
	needle := strings.ToLower(query)

	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, c := range s.candidates {
		if c.Matches(needle) {
			results = append(results, c.Clone())
		}
	}
	return results
}

// GetByID returns a copy of the candidate with id
func (s *CandidateStore) GetByID(ctx context.Context, id uuid.UUID) (*entities.Candidate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	idx := s.indexOfLocked(id)
	if idx < 0 {
		return nil, entities.ErrCandidateNotFound
	}
	return s.candidates[idx].Clone(), nil
}

// UpdateByID replaces the candidate with id
func (s *CandidateStore) UpdateByID(ctx context.Context, id uuid.UUID, candidate *entities.Candidate) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.indexOfLocked(id)
	if idx < 0 {
		return entities.ErrCandidateNotFound
	}
	return s.replaceLocked(idx, candidate)
}

// DeleteByID removes the candidate with id
func (s *CandidateStore) DeleteByID(ctx context.Context, id uuid.UUID) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.indexOfLocked(id)
	if idx < 0 {
		return entities.ErrCandidateNotFound
	}
	return s.removeLocked(idx)
}

// IndexOf returns the current position of id, or -1
func (s *CandidateStore) IndexOf(ctx context.Context, id uuid.UUID) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.indexOfLocked(id)
}

// Stats reports the outcome of the last Load
func (s *CandidateStore) Stats() ports.LoadStats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := s.stats
	stats.Skipped = append([]ports.ParseIssue(nil), s.stats.Skipped...)
	return stats
}

// CheckReadable reports whether the backing file can currently be opened
func (s *CandidateStore) CheckReadable() error {
	return s.files.Readable(s.path)
}

// Loaded reports whether the last Load succeeded
func (s *CandidateStore) Loaded() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loaded
}

func (s *CandidateStore) replaceLocked(index int, candidate *entities.Candidate) error {
	if err := entities.Validate(candidate); err != nil {
		return err
	}

	previous := s.candidates[index]
	stored := candidate.Clone()
	stored.Normalize()
	stored.ID = previous.ID

	s.candidates[index] = stored
	if err := s.persistLocked(); err != nil {
		s.candidates[index] = previous
		return err
	}

	candidate.ID = stored.ID
	return nil
}

func (s *CandidateStore) removeLocked(index int) error {
	previous := s.candidates
	next := make([]*entities.Candidate, 0, len(previous)-1)
	next = append(next, previous[:index]...)
	next = append(next, previous[index+1:]...)

	s.candidates = next
	if err := s.persistLocked(); err != nil {
		s.candidates = previous
		return err
	}
	return nil
}

func (s *CandidateStore) checkIndexLocked(index int) error {
	if index < 0 || index >= len(s.candidates) {
		return &entities.IndexError{Index: index, Len: len(s.candidates)}
	}
	return nil
}

func (s *CandidateStore) indexOfLocked(id uuid.UUID) int {
	for i, c := range s.candidates {
		if c.ID == id {
			return i
		}
	}
	return -1
}

// IsNotFound reports whether err means the requested candidate does not exist
func IsNotFound(err error) bool {
	return errors.Is(err, entities.ErrCandidateNotFound) || errors.Is(err, entities.ErrIndexOutOfRange)
}
