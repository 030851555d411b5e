package catalog

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"strings"

	_ "github.com/mattn/go-sqlite3"

	"github.com/wonny/movies/internal/contracts"
)

//go:embed schema_sqlite.sql
var sqliteSchema string

// SQLiteRepository implements contracts.MovieRepository on SQLite.
// An in-memory path (":memory:") gives a throwaway catalog for development and tests.
type SQLiteRepository struct {
	db *sql.DB
}

// OpenSQLite opens (or creates) the catalog at path and applies the schema.
// Safe to call on an existing database.
func OpenSQLite(path string) (*SQLiteRepository, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite only supports one writer; a single connection also keeps
	// an in-memory database alive and shared.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := applySQLitePragmas(db, isMemoryPath(path)); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply pragmas: %w", err)
	}

	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

func isMemoryPath(path string) bool {
	return path == ":memory:" || strings.Contains(path, "mode=memory")
}

func applySQLitePragmas(db *sql.DB, memory bool) error {
	pragmas := []string{
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	if !memory {
		pragmas = append(pragmas,
			"PRAGMA journal_mode = WAL",
			"PRAGMA synchronous = NORMAL",
		)
	}

	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			return fmt.Errorf("failed to execute %q: %w", pragma, err)
		}
	}
	return nil
}

// Close closes the database
func (r *SQLiteRepository) Close() error {
	if r.db == nil {
		return nil
	}
	return r.db.Close()
}

// Ping checks the database is reachable
func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// Stats exposes database/sql pool statistics
func (r *SQLiteRepository) Stats() sql.DBStats {
	return r.db.Stats()
}

// FindOrCreateProducer returns the producer named name, inserting it if needed
func (r *SQLiteRepository) FindOrCreateProducer(ctx context.Context, name string) (contracts.Producer, error) {
	id, err := r.findOrCreate(ctx, "producers", name)
	if err != nil {
		return contracts.Producer{}, fmt.Errorf("find or create producer %q: %w", name, err)
	}
	return contracts.Producer{ID: id, Name: name}, nil
}

// FindOrCreateStudio returns the studio named name, inserting it if needed
func (r *SQLiteRepository) FindOrCreateStudio(ctx context.Context, name string) (contracts.Studio, error) {
	id, err := r.findOrCreate(ctx, "studios", name)
	if err != nil {
		return contracts.Studio{}, fmt.Errorf("find or create studio %q: %w", name, err)
	}
	return contracts.Studio{ID: id, Name: name}, nil
}

// table is one of the two fixed names above, never user input
func (r *SQLiteRepository) findOrCreate(ctx context.Context, table, name string) (int64, error) {
	if _, err := r.db.ExecContext(ctx, "INSERT OR IGNORE INTO "+table+" (name) VALUES (?)", name); err != nil {
		return 0, err
	}

	var id int64
	if err := r.db.QueryRowContext(ctx, "SELECT id FROM "+table+" WHERE name = ?", name).Scan(&id); err != nil {
		return 0, err
	}
	return id, nil
}

// SaveMovie inserts the movie with its producer and studio links in one transaction
func (r *SQLiteRepository) SaveMovie(ctx context.Context, movie *contracts.Movie) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		"INSERT INTO movies (year, title, winner) VALUES (?, ?, ?)",
		movie.Year, movie.Title, movie.Winner,
	)
	if err != nil {
		return fmt.Errorf("insert movie %q: %w", movie.Title, err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("movie id: %w", err)
	}

	for i, p := range movie.Producers {
		if _, err := tx.ExecContext(ctx,
			"INSERT OR IGNORE INTO movie_producers (movie_id, producer_id, position) VALUES (?, ?, ?)",
			id, p.ID, i,
		); err != nil {
			return fmt.Errorf("link producer %q: %w", p.Name, err)
		}
	}

	for i, s := range movie.Studios {
		if _, err := tx.ExecContext(ctx,
			"INSERT OR IGNORE INTO movie_studios (movie_id, studio_id, position) VALUES (?, ?, ?)",
			id, s.ID, i,
		); err != nil {
			return fmt.Errorf("link studio %q: %w", s.Name, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit movie %q: %w", movie.Title, err)
	}

	movie.ID = id
	return nil
}

// GetMovie returns one movie with its producers and studios
func (r *SQLiteRepository) GetMovie(ctx context.Context, id int64) (*contracts.Movie, error) {
	var m contracts.Movie
	err := r.db.QueryRowContext(ctx,
		"SELECT id, year, title, winner FROM movies WHERE id = ?", id,
	).Scan(&m.ID, &m.Year, &m.Title, &m.Winner)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("movie %d: %w", id, contracts.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("query movie %d: %w", id, err)
	}

	movies := []contracts.Movie{m}
	if err := r.attachLinks(ctx, movies, "m.id = ?", []any{id}); err != nil {
		return nil, err
	}
	return &movies[0], nil
}

// ListMovies returns movies ordered by year then insertion order
func (r *SQLiteRepository) ListMovies(ctx context.Context, filter contracts.MovieFilter) ([]contracts.Movie, error) {
	where, args := sqliteFilter(filter)

	rows, err := r.db.QueryContext(ctx,
		"SELECT m.id, m.year, m.title, m.winner FROM movies m WHERE "+where+" ORDER BY m.year, m.id",
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
	// single connection: rows must be released before the link queries
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, fmt.Errorf("iterate movies: %w", err)
	}
	rows.Close()

	if len(movies) == 0 {
		return movies, nil
	}

	if err := r.attachLinks(ctx, movies, where, args); err != nil {
		return nil, err
	}
	return movies, nil
}

func sqliteFilter(filter contracts.MovieFilter) (string, []any) {
	clauses := []string{"1 = 1"}
	var args []any
	if filter.Winner != nil {
		clauses = append(clauses, "m.winner = ?")
		args = append(args, *filter.Winner)
	}
	if filter.Year != nil {
		clauses = append(clauses, "m.year = ?")
		args = append(args, *filter.Year)
	}
	return strings.Join(clauses, " AND "), args
}

// attachLinks fills Producers and Studios of movies matching where/args
func (r *SQLiteRepository) attachLinks(ctx context.Context, movies []contracts.Movie, where string, args []any) error {
	index := make(map[int64]int, len(movies))
	for i := range movies {
		index[movies[i].ID] = i
		movies[i].Producers = []contracts.Producer{}
		movies[i].Studios = []contracts.Studio{}
	}

	producerRows, err := r.db.QueryContext(ctx, `
		SELECT mp.movie_id, p.id, p.name
		FROM movie_producers mp
		JOIN producers p ON p.id = mp.producer_id
		JOIN movies m ON m.id = mp.movie_id
		WHERE `+where+`
		ORDER BY mp.movie_id, mp.position`, args...)
	if err != nil {
		return fmt.Errorf("query movie producers: %w", err)
	}
	for producerRows.Next() {
		var movieID int64
		var p contracts.Producer
		if err := producerRows.Scan(&movieID, &p.ID, &p.Name); err != nil {
			producerRows.Close()
			return fmt.Errorf("scan movie producer: %w", err)
		}
		if i, ok := index[movieID]; ok {
			movies[i].Producers = append(movies[i].Producers, p)
		}
	}
	if err := producerRows.Err(); err != nil {
		producerRows.Close()
		return fmt.Errorf("iterate movie producers: %w", err)
	}
	producerRows.Close()

	studioRows, err := r.db.QueryContext(ctx, `
		SELECT ms.movie_id, s.id, s.name
		FROM movie_studios ms
		JOIN studios s ON s.id = ms.studio_id
		JOIN movies m ON m.id = ms.movie_id
		WHERE `+where+`
		ORDER BY ms.movie_id, ms.position`, args...)
	if err != nil {
		return fmt.Errorf("query movie studios: %w", err)
	}
	defer studioRows.Close()
	for studioRows.Next() {
		var movieID int64
		var s contracts.Studio
		if err := studioRows.Scan(&movieID, &s.ID, &s.Name); err != nil {
			return fmt.Errorf("scan movie studio: %w", err)
		}
		if i, ok := index[movieID]; ok {
			movies[i].Studios = append(movies[i].Studios, s)
		}
	}
	if err := studioRows.Err(); err != nil {
		return fmt.Errorf("iterate movie studios: %w", err)
	}
	return nil
}

// ListProducers returns every producer ordered by name
func (r *SQLiteRepository) ListProducers(ctx context.Context) ([]contracts.Producer, error) {
	rows, err := r.db.QueryContext(ctx, "SELECT id, name FROM producers ORDER BY name")
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
func (r *SQLiteRepository) ListStudios(ctx context.Context) ([]contracts.Studio, error) {
	rows, err := r.db.QueryContext(ctx, "SELECT id, name FROM studios ORDER BY name")
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
func (r *SQLiteRepository) WinningRecords(ctx context.Context) ([]contracts.WinningRecord, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT p.name, m.year
		FROM movies m
		JOIN movie_producers mp ON mp.movie_id = m.id
		JOIN producers p ON p.id = mp.producer_id
		WHERE m.winner = 1
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
func (r *SQLiteRepository) Counts(ctx context.Context) (contracts.CatalogCounts, error) {
	var c contracts.CatalogCounts
	err := r.db.QueryRowContext(ctx, `
		SELECT
			(SELECT COUNT(*) FROM movies),
			(SELECT COUNT(*) FROM movies WHERE winner = 1),
			(SELECT COUNT(*) FROM producers),
			(SELECT COUNT(*) FROM studios)`,
	).Scan(&c.Movies, &c.Winners, &c.Producers, &c.Studios)
	if err != nil {
		return c, fmt.Errorf("count catalog: %w", err)
	}
	return c, nil
}

// Reset empties every table
func (r *SQLiteRepository) Reset(ctx context.Context) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	for _, table := range []string{"movie_producers", "movie_studios", "movies", "producers", "studios"} {
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return fmt.Errorf("reset %s: %w", table, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit reset: %w", err)
	}
	return nil
}
