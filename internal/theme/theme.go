// Package theme keeps the journal's day/night theme in step with the clock
// unless the user has chosen one explicitly.
package theme

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/pbaille/dreams/internal/domain"
	"go.uber.org/zap"
)

// PreferenceKey is the settings key holding an explicit theme choice
const PreferenceKey = "dj_theme"

// DefaultRefreshInterval is how often Run re-derives the theme
const DefaultRefreshInterval = 15 * time.Minute

// Preferences persists the explicit theme choice
type Preferences interface {
	GetSetting(ctx context.Context, key string) (string, bool, error)
	SetSetting(ctx context.Context, key, value string) error
	DeleteSetting(ctx context.Context, key string) error
}

// Infer picks the theme for the given local time. Dark-mode users always get
// night; otherwise 07:00 to 18:59 is day.
func Infer(now time.Time, prefersDark bool) domain.Theme {
	if prefersDark {
		return domain.Night
	}
	if h := now.Hour(); h >= 7 && h <= 18 {
		return domain.Day
	}
	return domain.Night
}

// Manager owns the current theme
type Manager struct {
	prefs       Preferences
	prefersDark bool
	now         func() time.Time
	logger      *zap.Logger

	mu      sync.RWMutex
	current domain.Theme

	// writeMu serializes Set, Toggle and Clear
	writeMu sync.Mutex
}

// Option configures a Manager
type Option func(*Manager)

// WithClock overrides the time source
func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

// WithPrefersDark makes inference always choose night
func WithPrefersDark(v bool) Option {
	return func(m *Manager) { m.prefersDark = v }
}

// WithLogger sets the logger
func WithLogger(l *zap.Logger) Option {
	return func(m *Manager) { m.logger = l }
}

// NewManager creates a Manager. Call Apply to load the initial theme.
func NewManager(prefs Preferences, opts ...Option) *Manager {
	m := &Manager{
		prefs:  prefs,
		now:    time.Now,
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(m)
	}
	m.current = m.infer()
	return m
}

func (m *Manager) infer() domain.Theme {
	return Infer(m.now(), m.prefersDark)
}

// Current returns the active theme
func (m *Manager) Current() domain.Theme {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.current
}

func (m *Manager) setCurrent(t domain.Theme) {
	m.mu.Lock()
	prev := m.current
	m.current = t
	m.mu.Unlock()

	if prev != t {
		m.logger.Debug("theme changed", zap.String("from", string(prev)), zap.String("to", string(t)))
	}
}

// saved returns the stored preference. Unknown stored values are ignored.
func (m *Manager) saved(ctx context.Context) (domain.Theme, bool, error) {
	v, ok, err := m.prefs.GetSetting(ctx, PreferenceKey)
	if err != nil || !ok {
		return "", false, err
	}
	t, valid := domain.ParseTheme(v)
	if !valid {
		m.logger.Warn("ignoring unknown saved theme", zap.String("value", v))
	}
	return t, valid, nil
}

// Apply loads the saved preference, falling back to the clock
func (m *Manager) Apply(ctx context.Context) (domain.Theme, error) {
	t, ok, err := m.saved(ctx)
	if err != nil {
		return m.Current(), fmt.Errorf("load theme: %w", err)
	}
	if !ok {
		t = m.infer()
	}
	m.setCurrent(t)
	return t, nil
}

// Explicit reports whether a theme preference is saved
func (m *Manager) Explicit(ctx context.Context) (bool, error) {
	_, ok, err := m.saved(ctx)
	return ok, err
}

// Set saves t as the explicit preference and activates it
func (m *Manager) Set(ctx context.Context, t domain.Theme) error {
	m.writeMu.Lock()
	defer m.writeMu.Unlock()
	return m.set(ctx, t)
}

func (m *Manager) set(ctx context.Context, t domain.Theme) error {
	if _, ok := domain.ParseTheme(string(t)); !ok {
		return fmt.Errorf("unknown theme %q", t)
	}
	if err := m.prefs.SetSetting(ctx, PreferenceKey, string(t)); err != nil {
		return fmt.Errorf("save theme: %w", err)
	}
	m.setCurrent(t)
	return nil
}

// Toggle switches night to day and anything else to night, saving the result
func (m *Manager) Toggle(ctx context.Context) (domain.Theme, error) {
	m.writeMu.Lock()
	defer m.writeMu.Unlock()

	next := domain.Night
	if m.Current() == domain.Night {
		next = domain.Day
	}
	if err := m.set(ctx, next); err != nil {
		return m.Current(), err
	}
	return next, nil
}

// Clear forgets the explicit preference and returns to the clock
func (m *Manager) Clear(ctx context.Context) (domain.Theme, error) {
	m.writeMu.Lock()
	defer m.writeMu.Unlock()

	if err := m.prefs.DeleteSetting(ctx, PreferenceKey); err != nil {
		return m.Current(), fmt.Errorf("clear theme: %w", err)
	}
	t := m.infer()
	m.setCurrent(t)
	return t, nil
}

// Refresh re-derives the theme from the clock when no preference is saved
func (m *Manager) Refresh(ctx context.Context) error {
	ok, err := m.Explicit(ctx)
	if err != nil {
		return fmt.Errorf("refresh theme: %w", err)
	}
	if !ok {
		m.setCurrent(m.infer())
	}
	return nil
}

// Run calls Refresh every interval until ctx is done. Refresh errors are
// logged and do not stop the loop.
func (m *Manager) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = DefaultRefreshInterval
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := m.Refresh(ctx); err != nil {
				m.logger.Warn("theme refresh failed", zap.Error(err))
			}
		}
	}
}
