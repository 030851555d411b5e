package loader

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/movies/internal/catalog"
	"github.com/wonny/movies/internal/contracts"
	"github.com/wonny/movies/internal/dataset"
	"github.com/wonny/movies/pkg/logger"
)

const header = "year;title;studios;producers;winner\n"

type countingInvalidator struct {
	calls int
	err   error
}

func (c *countingInvalidator) Invalidate(ctx context.Context) error {
	c.calls++
	return c.err
}

// failingRepo fails every write after embedding a working repository
type failingRepo struct {
	contracts.MovieRepository
	err error
}

func (f *failingRepo) SaveMovie(ctx context.Context, movie *contracts.Movie) error {
	return f.err
}

// cancelOnResetRepo cancels the caller's context as soon as the store is reset
type cancelOnResetRepo struct {
	contracts.MovieRepository
	cancel context.CancelFunc
}

func (c *cancelOnResetRepo) Reset(ctx context.Context) error {
	err := c.MovieRepository.Reset(ctx)
	c.cancel()
	return err
}

func newRepo(t *testing.T) *catalog.SQLiteRepository {
	t.Helper()
	repo, err := catalog.OpenSQLite(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })
	return repo
}

func writeDataset(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "movies.csv")
	require.NoError(t, os.WriteFile(path, []byte(header+body), 0o644))
	return path
}

func TestLoad_SharesProducersAndStudios(t *testing.T) {
	repo := newRepo(t)
	l := New(repo, nil, dataset.Lenient, logger.Nop())

	src := header +
		"1990;The Adventures of Ford Fairlane;20th Century Fox;Steven Perry and Joel Silver;yes\n" +
		"1991;Hudson Hawk;TriStar Pictures;Joel Silver;yes\n" +
		"1991;Return to the Blue Lagoon;Columbia Pictures;William A. Graham;\n" +
		"1992;Shining Through;20th Century Fox;Carol Baum, Howard Rosenman;\n"

	result, err := l.Load(context.Background(), strings.NewReader(src))
	require.NoError(t, err)

	assert.Equal(t, 4, result.Movies)
	assert.Equal(t, 2, result.Winners)
	assert.Equal(t, 5, result.Producers)
	assert.Equal(t, 3, result.Studios)
	assert.Zero(t, result.Skipped)

	records, err := repo.WinningRecords(context.Background())
	require.NoError(t, err)
	assert.ElementsMatch(t, []contracts.WinningRecord{
		{Producer: "Steven Perry", Year: 1990},
		{Producer: "Joel Silver", Year: 1990},
		{Producer: "Joel Silver", Year: 1991},
	}, records)
}

func TestLoad_LenientReportsSkippedRows(t *testing.T) {
	repo := newRepo(t)
	l := New(repo, nil, dataset.Lenient, logger.Nop())

	src := header +
		"1980;Can't Stop the Music;Associated Film Distribution;Allan Carr;yes\n" +
		"abc;Bad Year;Studio;Someone;yes\n"

	result, err := l.Load(context.Background(), strings.NewReader(src))
	require.NoError(t, err)

	assert.Equal(t, 1, result.Movies)
	assert.Equal(t, 1, result.Skipped)
	require.Len(t, result.SkippedRows(), 1)
	assert.Equal(t, 3, result.SkippedRows()[0].Line)
	assert.ErrorIs(t, result.SkippedRows()[0].Err, dataset.ErrMalformedRow)
	assert.Len(t, result.Errors, 1)
}

func TestLoad_StrictRejectsDataset(t *testing.T) {
	repo := newRepo(t)
	l := New(repo, nil, dataset.Strict, logger.Nop())

	src := header + "abc;Bad Year;Studio;Someone;yes\n"

	_, err := l.Load(context.Background(), strings.NewReader(src))
	require.Error(t, err)
	assert.ErrorIs(t, err, dataset.ErrMalformedRow)

	counts, err := repo.Counts(context.Background())
	require.NoError(t, err)
	assert.Zero(t, counts.Movies)
}

func TestLoad_StorageFailure(t *testing.T) {
	boom := errors.New("disk full")
	repo := &failingRepo{MovieRepository: newRepo(t), err: boom}
	l := New(repo, nil, dataset.Lenient, logger.Nop())

	_, err := l.Load(context.Background(), strings.NewReader(header+"1980;Title;Studio;Someone;yes\n"))
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "line 2")
}

func TestLoadSource_BundledDataset(t *testing.T) {
	repo := newRepo(t)
	l := New(repo, nil, dataset.Lenient, logger.Nop())

	result, err := l.LoadSource(context.Background(), "../../data/movielist.csv")
	require.NoError(t, err)

	assert.Equal(t, "../../data/movielist.csv", result.Source)
	assert.Positive(t, result.Movies)
	assert.Positive(t, result.Winners)
	assert.LessOrEqual(t, result.Winners, result.Movies)
}

func TestLoadSource_Missing(t *testing.T) {
	l := New(newRepo(t), nil, dataset.Lenient, logger.Nop())

	_, err := l.LoadSource(context.Background(), filepath.Join(t.TempDir(), "nope.csv"))
	assert.Error(t, err)
}

func TestReload_ReplacesCatalogAndInvalidates(t *testing.T) {
	repo := newRepo(t)
	inv := &countingInvalidator{}
	l := New(repo, nil, dataset.Lenient, logger.Nop())
	l.SetInvalidator(inv)
	ctx := context.Background()

	first := writeDataset(t,
		"1980;Can't Stop the Music;Associated Film Distribution;Allan Carr;yes\n"+
			"1981;Mommie Dearest;Paramount Pictures;Frank Yablans;yes\n")
	second := writeDataset(t, "1984;Bolero;Cannon Films;Bo Derek;yes\n")

	_, err := l.Reload(ctx, first)
	require.NoError(t, err)

	result, err := l.Reload(ctx, second)
	require.NoError(t, err)

	assert.Equal(t, 1, result.Movies)
	assert.Equal(t, 1, result.Producers)
	assert.Equal(t, second, result.Source)
	assert.Equal(t, 2, inv.calls)
}

func TestReload_BadDatasetKeepsCatalog(t *testing.T) {
	repo := newRepo(t)
	inv := &countingInvalidator{}
	l := New(repo, nil, dataset.Strict, logger.Nop())
	l.SetInvalidator(inv)
	ctx := context.Background()

	good := writeDataset(t, "1984;Bolero;Cannon Films;Bo Derek;yes\n")
	bad := writeDataset(t, "not-a-year;Broken;Studio;Someone;yes\n")

	_, err := l.Reload(ctx, good)
	require.NoError(t, err)

	_, err = l.Reload(ctx, bad)
	require.Error(t, err)

	counts, err := repo.Counts(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, counts.Movies)
	assert.Equal(t, 1, inv.calls)
}

func TestReload_InvalidatorErrorIsNotFatal(t *testing.T) {
	l := New(newRepo(t), nil, dataset.Lenient, logger.Nop())
	l.SetInvalidator(&countingInvalidator{err: errors.New("redis down")})

	_, err := l.Reload(context.Background(), writeDataset(t, "1984;Bolero;Cannon Films;Bo Derek;yes\n"))
	assert.NoError(t, err)
}

func TestLoad_InvalidatesAfterAppend(t *testing.T) {
	inv := &countingInvalidator{}
	l := New(newRepo(t), nil, dataset.Lenient, logger.Nop())
	l.SetInvalidator(inv)

	_, err := l.LoadSource(context.Background(), writeDataset(t, "1984;Bolero;Cannon Films;Bo Derek;yes\n"))
	require.NoError(t, err)
	assert.Equal(t, 1, inv.calls)

	_, err = l.Load(context.Background(), strings.NewReader(header+"1985;Rambo;Tri-Star;Buzz Feitshans;yes\n"))
	require.NoError(t, err)
	assert.Equal(t, 2, inv.calls)
}

func TestLoad_InvalidatesAfterFailedWrite(t *testing.T) {
	inv := &countingInvalidator{}
	repo := &failingRepo{MovieRepository: newRepo(t), err: errors.New("disk full")}
	l := New(repo, nil, dataset.Lenient, logger.Nop())
	l.SetInvalidator(inv)

	_, err := l.Load(context.Background(), strings.NewReader(header+"1980;Title;Studio;Someone;yes\n"))
	require.Error(t, err)
	assert.Equal(t, 1, inv.calls)
}

func TestReload_CancelAfterResetStillImports(t *testing.T) {
	base := newRepo(t)
	inv := &countingInvalidator{}

	seed := New(base, nil, dataset.Lenient, logger.Nop())
	_, err := seed.Reload(context.Background(), writeDataset(t,
		"1980;Can't Stop the Music;Associated Film Distribution;Allan Carr;yes\n"+
			"1981;Mommie Dearest;Paramount Pictures;Frank Yablans;yes\n"))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	l := New(&cancelOnResetRepo{MovieRepository: base, cancel: cancel}, nil, dataset.Lenient, logger.Nop())
	l.SetInvalidator(inv)

	result, err := l.Reload(ctx, writeDataset(t,
		"1984;Bolero;Cannon Films;Bo Derek;yes\n"+
			"1990;Ghosts Can't Do It;Triumph Releasing;Bo Derek;yes\n"+
			"1985;Rambo;Tri-Star;Buzz Feitshans;yes\n"))
	require.NoError(t, err)
	assert.ErrorIs(t, ctx.Err(), context.Canceled)
	assert.Equal(t, 3, result.Movies)

	counts, err := base.Counts(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, counts.Movies)
	assert.Equal(t, 2, counts.Producers)
	assert.Equal(t, 1, inv.calls)
}

func TestReload_FailedWriteAfterResetInvalidates(t *testing.T) {
	base := newRepo(t)
	inv := &countingInvalidator{}

	seed := New(base, nil, dataset.Lenient, logger.Nop())
	_, err := seed.Reload(context.Background(), writeDataset(t, "1984;Bolero;Cannon Films;Bo Derek;yes\n"))
	require.NoError(t, err)

	l := New(&failingRepo{MovieRepository: base, err: errors.New("disk full")}, nil, dataset.Lenient, logger.Nop())
	l.SetInvalidator(inv)

	_, err = l.Reload(context.Background(), writeDataset(t, "1985;Rambo;Tri-Star;Buzz Feitshans;yes\n"))
	require.Error(t, err)
	assert.Equal(t, 1, inv.calls)
}
