package journal

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/pbaille/dreams/internal/domain"
	"github.com/pbaille/dreams/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedTime = time.Date(2024, 5, 17, 6, 42, 31, 0, time.FixedZone("CEST", 2*60*60))

func TestCompose(t *testing.T) {
	d, err := Compose("  Falling  ", "  I was scared, doom, nightmare!!  ", " lucid ", fixedTime)
	require.NoError(t, err)

	assert.Equal(t, "2024-05-17T04:42", d.DT)
	assert.Equal(t, "Falling", d.Title)
	assert.Equal(t, "I was scared, doom, nightmare!!", d.Text)
	assert.Equal(t, "lucid", d.Tags)
	assert.InDelta(t, -1.0, d.Sent, 1e-9)
	assert.Equal(t, 80, d.NI)
}

func TestComposeDefaultsTitle(t *testing.T) {
	d, err := Compose("   ", "a calm walk", "", fixedTime)
	require.NoError(t, err)
	assert.Equal(t, domain.DefaultTitle, d.Title)
	assert.Equal(t, 0, d.NI)
}

func TestComposeRequiresText(t *testing.T) {
	_, err := Compose("title", " \n\t ", "", fixedTime)
	assert.ErrorIs(t, err, ErrTextRequired)
}

func newService(t *testing.T) *Service {
	t.Helper()
	s, err := store.Open(context.Background(), filepath.Join(t.TempDir(), "dreams.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return New(s, WithClock(func() time.Time { return fixedTime }))
}

func TestRecord(t *testing.T) {
	ctx := context.Background()
	svc := newService(t)

	entry, all, err := svc.Record(ctx, "", "happy calm peace", "garden")
	require.NoError(t, err)

	assert.Positive(t, entry.ID)
	assert.Equal(t, "Untitled", entry.Title)
	assert.InDelta(t, 1.0, entry.Sent, 1e-9)
	require.Len(t, all, 1)
	assert.Equal(t, entry, all[0])

	listed, err := svc.Entries(ctx)
	require.NoError(t, err)
	assert.Equal(t, all, listed)
}

func TestRecordRejectsBlankText(t *testing.T) {
	svc := newService(t)
	_, _, err := svc.Record(context.Background(), "t", "", "")
	assert.ErrorIs(t, err, ErrTextRequired)

	all, err := svc.Entries(context.Background())
	require.NoError(t, err)
	assert.Empty(t, all)
}

type failingRepo struct{ err error }

func (f failingRepo) AddEntry(context.Context, domain.Draft) (domain.Entry, error) {
	return domain.Entry{}, f.err
}

func (f failingRepo) ListEntries(context.Context) ([]domain.Entry, error) {
	return nil, f.err
}

func TestRecordPropagatesStoreErrors(t *testing.T) {
	svc := New(failingRepo{err: store.ErrWrite})
	_, _, err := svc.Record(context.Background(), "", "text", "")
	assert.ErrorIs(t, err, store.ErrWrite)

	svc = New(failingRepo{err: errors.Join(store.ErrRead, errors.New("disk"))})
	_, err = svc.Entries(context.Background())
	assert.ErrorIs(t, err, store.ErrRead)
}
