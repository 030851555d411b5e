package contracts

import (
	"context"
	"errors"
)

// ErrNotFound is returned when a catalog lookup matches nothing
var ErrNotFound = errors.New("not found")

// ⭐ SSOT: 영화 카탈로그 저장소 인터페이스

// Movie is one nominated work from the dataset
type Movie struct {
	ID        int64      `json:"id"`
	Year      int        `json:"year"`
	Title     string     `json:"title"`
	Winner    bool       `json:"winner"`
	Studios   []Studio   `json:"studios"`
	Producers []Producer `json:"producers"`
}

// Producer is unique by name
type Producer struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// Studio is unique by name
type Studio struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// MovieFilter narrows ListMovies. Nil fields match everything.
type MovieFilter struct {
	Winner *bool
	Year   *int
}

// CatalogCounts summarizes the stored catalog
type CatalogCounts struct {
	Movies    int `json:"movies"`
	Winners   int `json:"winners"`
	Producers int `json:"producers"`
	Studios   int `json:"studios"`
}

// MovieRepository persists the movie catalog
type MovieRepository interface {
	// FindOrCreateProducer returns the producer with this name, creating it if absent
	FindOrCreateProducer(ctx context.Context, name string) (Producer, error)
	// FindOrCreateStudio returns the studio with this name, creating it if absent
	FindOrCreateStudio(ctx context.Context, name string) (Studio, error)
	// SaveMovie inserts the movie and its links; Producers and Studios must already exist.
	SaveMovie(ctx context.Context, movie *Movie) error

	// GetMovie returns the movie with this id or an error wrapping ErrNotFound
	GetMovie(ctx context.Context, id int64) (*Movie, error)
	ListMovies(ctx context.Context, filter MovieFilter) ([]Movie, error)
	ListProducers(ctx context.Context) ([]Producer, error)
	ListStudios(ctx context.Context) ([]Studio, error)

	// WinningRecords expands every winning movie into one record per credited producer
	WinningRecords(ctx context.Context) ([]WinningRecord, error)

	Counts(ctx context.Context) (CatalogCounts, error)
	// Reset removes every movie, producer and studio
	Reset(ctx context.Context) error
	Ping(ctx context.Context) error
	Close() error
}
