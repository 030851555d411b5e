package catalog

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/wonny/movies/internal/contracts"
	"github.com/wonny/movies/pkg/database"
)

//go:embed schema_postgres.sql
var postgresSchema string

// PostgresRepository implements contracts.MovieRepository on the shared pgx pool
type PostgresRepository struct {
	db *database.DB
}

// NewPostgresRepository applies the catalog schema and returns a repository over db
func NewPostgresRepository(ctx context.Context, db *database.DB) (*PostgresRepository, error) {
	// no arguments: pgx sends the multi-statement script with the simple protocol
	if _, err := db.Pool.Exec(ctx, postgresSchema); err != nil {
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}
	return &PostgresRepository{db: db}, nil
}

// DB exposes the underlying pool wrapper for health checks
func (r *PostgresRepository) DB() *database.DB {
	return r.db
}

// Close closes the pool
func (r *PostgresRepository) Close() error {
	r.db.Close()
	return nil
}

// Ping checks the database is reachable
func (r *PostgresRepository) Ping(ctx context.Context) error {
	return r.db.Ping(ctx)
}

// FindOrCreateProducer returns the producer named name, inserting it if needed
func (r *PostgresRepository) FindOrCreateProducer(ctx context.Context, name string) (contracts.Producer, error) {
	id, err := r.findOrCreate(ctx, "catalog.producers", name)
	if err != nil {
		return contracts.Producer{}, fmt.Errorf("find or create producer %q: %w", name, err)
	}
	return contracts.Producer{ID: id, Name: name}, nil
}

// FindOrCreateStudio returns the studio named name, inserting it if needed
func (r *PostgresRepository) FindOrCreateStudio(ctx context.Context, name string) (contracts.Studio, error) {
	id, err := r.findOrCreate(ctx, "catalog.studios", name)
	if err != nil {
		return contracts.Studio{}, fmt.Errorf("find or create studio %q: %w", name, err)
	}
	return contracts.Studio{ID: id, Name: name}, nil
}

func (r *PostgresRepository) findOrCreate(ctx context.Context, table, name string) (int64, error) {
	// DO UPDATE instead of DO NOTHING so RETURNING yields the existing row too
	query := `
		INSERT INTO ` + table + ` (name) VALUES ($1)
		ON CONFLICT (name) DO UPDATE SET name = EXCLUDED.name
		RETURNING id`

	var id int64
	if err := r.db.Pool.QueryRow(ctx, query, name).Scan(&id); err != nil {
		return 0, err
	}
	return id, nil
}

// SaveMovie inserts the movie with its producer and studio links in one transaction
func (r *PostgresRepository) SaveMovie(ctx context.Context, movie *contracts.Movie) error {
	tx, err := r.db.Pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	var id int64
	err = tx.QueryRow(ctx,
		"INSERT INTO catalog.movies (year, title, winner) VALUES ($1, $2, $3) RETURNING id",
		movie.Year, movie.Title, movie.Winner,
	).Scan(&id)
	if err != nil {
		return fmt.Errorf("insert movie %q: %w", movie.Title, err)
	}

	batch := &pgx.Batch{}
	for i, p := range movie.Producers {
		batch.Queue(`
			INSERT INTO catalog.movie_producers (movie_id, producer_id, position)
			VALUES ($1, $2, $3) ON CONFLICT DO NOTHING`, id, p.ID, i)
	}
	for i, s := range movie.Studios {
		batch.Queue(`
			INSERT INTO catalog.movie_studios (movie_id, studio_id, position)
			VALUES ($1, $2, $3) ON CONFLICT DO NOTHING`, id, s.ID, i)
	}

	if batch.Len() > 0 {
		if err := tx.SendBatch(ctx, batch).Close(); err != nil {
			return fmt.Errorf("link movie %q: %w", movie.Title, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit movie %q: %w", movie.Title, err)
	}

	movie.ID = id
	return nil
}

// GetMovie returns one movie with its producers and studios
func (r *PostgresRepository) GetMovie(ctx context.Context, id int64) (*contracts.Movie, error) {
	var m contracts.Movie
	err := r.db.Pool.QueryRow(ctx,
		"SELECT id, year, title, winner FROM catalog.movies WHERE id = $1", id,
	).Scan(&m.ID, &m.Year, &m.Title, &m.Winner)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("movie %d: %w", id, contracts.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("query movie %d: %w", id, err)
	}

	movies := []contracts.Movie{m}
	if err := r.attachLinks(ctx, movies, "m.id = $1", []any{id}); err != nil {
		return nil, err
	}
	return &movies[0], nil
}

// ListMovies returns movies ordered by year then insertion order
func (r *PostgresRepository) ListMovies(ctx context.Context, filter contracts.MovieFilter) ([]contracts.Movie, error) {
	where, args := postgresFilter(filter)

	rows, err := r.db.Pool.Query(ctx,
		"SELECT m.id, m.year, m.title, m.winner FROM catalog.movies m WHERE "+where+" ORDER BY m.year, m.id",
		args...,
	)
	if err != nil {
		return nil, fmt.Errorf("query movies: %w", err)
	}

	movies := []contracts.Movie{}
	for rows.Next() {
		var m contracts.Movie
		if err := rows.Scan(&m.ID, &m.Year, &m.Title, &m.Winner); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan movie: %w", err)
		}
		movies = append(movies, m)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate movies: %w", err)
	}

	if len(movies) == 0 {
		return movies, nil
	}

	if err := r.attachLinks(ctx, movies, where, args); err != nil {
		return nil, err
	}
	return movies, nil
}

func postgresFilter(filter contracts.MovieFilter) (string, []any) {
	clauses := []string{"TRUE"}
	var args []any
	if filter.Winner != nil {
		args = append(args, *filter.Winner)
		clauses = append(clauses, fmt.Sprintf("m.winner = $%d", len(args)))
	}
	if filter.Year != nil {
		args = append(args, *filter.Year)
		clauses = append(clauses, fmt.Sprintf("m.year = $%d", len(args)))
	}
	return strings.Join(clauses, " AND "), args
}

func (r *PostgresRepository) attachLinks(ctx context.Context, movies []contracts.Movie, where string, args []any) error {
	index := make(map[int64]int, len(movies))
	for i := range movies {
		index[movies[i].ID] = i
		movies[i].Producers = []contracts.Producer{}
		movies[i].Studios = []contracts.Studio{}
	}

	rows, err := r.db.Pool.Query(ctx, `
		SELECT mp.movie_id, p.id, p.name
		FROM catalog.movie_producers mp
		JOIN catalog.producers p ON p.id = mp.producer_id
		JOIN catalog.movies m ON m.id = mp.movie_id
		WHERE `+where+`
		ORDER BY mp.movie_id, mp.position`, args...)
	if err != nil {
		return fmt.Errorf("query movie producers: %w", err)
	}
	for rows.Next() {
		var movieID int64
		var p contracts.Producer
		if err := rows.Scan(&movieID, &p.ID, &p.Name); err != nil {
			rows.Close()
			return fmt.Errorf("scan movie producer: %w", err)
		}
		if i, ok := index[movieID]; ok {
			movies[i].Producers = append(movies[i].Producers, p)
		}
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterate movie producers: %w", err)
	}

	rows, err = r.db.Pool.Query(ctx, `
		SELECT ms.movie_id, s.id, s.name
		FROM catalog.movie_studios ms
		JOIN catalog.studios s ON s.id = ms.studio_id
		JOIN catalog.movies m ON m.id = ms.movie_id
		WHERE `+where+`
		ORDER BY ms.movie_id, ms.position`, args...)
	if err != nil {
		return fmt.Errorf("query movie studios: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var movieID int64
		var s contracts.Studio
		if err := rows.Scan(&movieID, &s.ID, &s.Name); err != nil {
			return fmt.Errorf("scan movie studio: %w", err)
		}
		if i, ok := index[movieID]; ok {
			movies[i].Studios = append(movies[i].Studios, s)
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterate movie studios: %w", err)
	}
	return nil
}

// ListProducers returns every producer ordered by name
func (r *PostgresRepository) ListProducers(ctx context.Context) ([]contracts.Producer, error) {
	rows, err := r.db.Pool.Query(ctx, "SELECT id, name FROM catalog.producers ORDER BY name")
	if err != nil {
		return nil, fmt.Errorf("query producers: %w", err)
	}
	defer rows.Close()

	producers := []contracts.Producer{}
	for rows.Next() {
		var p contracts.Producer
		if err := rows.Scan(&p.ID, &p.Name); err != nil {
			return nil, fmt.Errorf("scan producer: %w", err)
		}
		producers = append(producers, p)
	}
	return producers, rows.Err()
}

// ListStudios returns every studio ordered by name
func (r *PostgresRepository) ListStudios(ctx context.Context) ([]contracts.Studio, error) {
	rows, err := r.db.Pool.Query(ctx, "SELECT id, name FROM catalog.studios ORDER BY name")
	if err != nil {
		return nil, fmt.Errorf("query studios: %w", err)
	}
	defer rows.Close()

	studios := []contracts.Studio{}
	for rows.Next() {
		var s contracts.Studio
		if err := rows.Scan(&s.ID, &s.Name); err != nil {
			return nil, fmt.Errorf("scan studio: %w", err)
		}
		studios = append(studios, s)
	}
	return studios, rows.Err()
}

// WinningRecords returns one (producer, year) row per producer of each winning movie
func (r *PostgresRepository) WinningRecords(ctx context.Context) ([]contracts.WinningRecord, error) {
	rows, err := r.db.Pool.Query(ctx, `
		SELECT p.name, m.year
		FROM catalog.movies m
		JOIN catalog.movie_producers mp ON mp.movie_id = m.id
		JOIN catalog.producers p ON p.id = mp.producer_id
		WHERE m.winner
		ORDER BY m.year, m.id, mp.position`)
	if err != nil {
		return nil, fmt.Errorf("query winning records: %w", err)
	}
	defer rows.Close()

	records := []contracts.WinningRecord{}
	for rows.Next() {
		var rec contracts.WinningRecord
		if err := rows.Scan(&rec.Producer, &rec.Year); err != nil {
			return nil, fmt.Errorf("scan winning record: %w", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate winning records: %w", err)
	}
	return records, nil
}

// Counts summarizes the catalog
func (r *PostgresRepository) Counts(ctx context.Context) (contracts.CatalogCounts, error) {
	var c contracts.CatalogCounts
	err := r.db.Pool.QueryRow(ctx, `
		SELECT
			(SELECT COUNT(*) FROM catalog.movies),
			(SELECT COUNT(*) FROM catalog.movies WHERE winner),
			(SELECT COUNT(*) FROM catalog.producers),
			(SELECT COUNT(*) FROM catalog.studios)`,
	).Scan(&c.Movies, &c.Winners, &c.Producers, &c.Studios)
	if err != nil {
		return c, fmt.Errorf("count catalog: %w", err)
	}
	return c, nil
}

// Reset empties every catalog table
func (r *PostgresRepository) Reset(ctx context.Context) error {
	_, err := r.db.Pool.Exec(ctx, `
		TRUNCATE catalog.movie_producers, catalog.movie_studios,
		         catalog.movies, catalog.producers, catalog.studios
		RESTART IDENTITY`)
	if err != nil {
		return fmt.Errorf("reset catalog: %w", err)
	}
	return nil
}
