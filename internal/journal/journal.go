// Package journal turns user input into scored entries and records them.
package journal

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/pbaille/dreams/internal/domain"
	"github.com/pbaille/dreams/internal/scorer"
	"go.uber.org/zap"
)

// ErrTextRequired is returned when the dream text is blank
var ErrTextRequired = errors.New("dream text is required")

// Repository is the storage the journal records into
type Repository interface {
	AddEntry(ctx context.Context, d domain.Draft) (domain.Entry, error)
	ListEntries(ctx context.Context) ([]domain.Entry, error)
}

// Compose builds a scored draft from raw form input
func Compose(title, text, tags string, now time.Time) (domain.Draft, error) {
	title = strings.TrimSpace(title)
	text = strings.TrimSpace(text)
	tags = strings.TrimSpace(tags)

	if text == "" {
		return domain.Draft{}, ErrTextRequired
	}
	if title == "" {
		title = domain.DefaultTitle
	}

	scores := scorer.Score(text)
	return domain.Draft{
		DT:    now.UTC().Format(domain.DateLayout),
		Title: title,
		Text:  text,
		Tags:  tags,
		Sent:  scores.Sentiment,
		NI:    scores.NightmareIndex,
	}, nil
}

// Service records entries and lists them back
type Service struct {
	repo   Repository
	logger *zap.Logger
	now    func() time.Time
}

// Option configures a Service
type Option func(*Service)

// WithClock overrides the time source used for entry timestamps
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithLogger sets the logger
func WithLogger(l *zap.Logger) Option {
	return func(s *Service) { s.logger = l }
}

// New creates a Service over repo
func New(repo Repository, opts ...Option) *Service {
	s := &Service{
		repo:   repo,
		logger: zap.NewNop(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Record scores and stores a new entry, then returns it together with the
// refreshed list of all entries.
func (s *Service) Record(ctx context.Context, title, text, tags string) (domain.Entry, []domain.Entry, error) {
	d, err := Compose(title, text, tags, s.now())
	if err != nil {
		return domain.Entry{}, nil, err
	}

	entry, err := s.repo.AddEntry(ctx, d)
	if err != nil {
		return domain.Entry{}, nil, fmt.Errorf("record entry: %w", err)
	}

	s.logger.Debug("entry recorded",
		zap.Int64("id", entry.ID),
		zap.String("dt", entry.DT),
		zap.Float64("sent", entry.Sent),
		zap.Int("ni", entry.NI),
	)

	all, err := s.repo.ListEntries(ctx)
	if err != nil {
		return entry, nil, fmt.Errorf("refresh entries: %w", err)
	}
	return entry, all, nil
}

// Entries returns all entries, most recent first
func (s *Service) Entries(ctx context.Context) ([]domain.Entry, error) {
	return s.repo.ListEntries(ctx)
}
