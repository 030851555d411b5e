// Package dataset reads the semicolon-delimited movie list
// (year;title;studios;producers;winner).
package dataset

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"

	"github.com/wonny/movies/internal/contracts"
)

var (
	ErrEmptyDataset  = errors.New("dataset is empty")
	ErrInvalidHeader = errors.New("invalid dataset header")
	ErrMalformedRow  = errors.New("malformed dataset row")
)

// Columns is the expected header, compared case-insensitively
var Columns = []string{"year", "title", "studios", "producers", "winner"}

const separator = ";"

// producers are split on the word "and" first, then on commas
var andSeparator = regexp.MustCompile(`\s+and\s+`)

// Policy decides what happens to a malformed row
type Policy int

const (
	// Lenient skips malformed rows and reports them in Result.Skipped
	Lenient Policy = iota
	// Strict aborts the parse at the first malformed row
	Strict
)

func (p Policy) String() string {
	if p == Strict {
		return "strict"
	}
	return "lenient"
}

// Row is one parsed movie line
type Row struct {
	Line      int
	Year      int
	Title     string
	Studios   []string
	Producers []string
	Winner    bool
}

// RowError records why a line was rejected
type RowError struct {
	Line int
	Err  error
}

func (e *RowError) Error() string {
	return fmt.Sprintf("line %d: %v", e.Line, e.Err)
}

func (e *RowError) Unwrap() error {
	return e.Err
}

// Result is the outcome of Parse
type Result struct {
	Rows    []Row
	Skipped []RowError
}

// Parse reads a dataset with a header line. Blank lines are ignored.
func Parse(r io.Reader, policy Policy) (*Result, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	result := &Result{}
	lineNo := 0
	headerSeen := false

	for scanner.Scan() {
		lineNo++
		line := strings.TrimRight(scanner.Text(), "\r")

		if !headerSeen {
			if err := checkHeader(line); err != nil {
				return nil, err
			}
			headerSeen = true
			continue
		}

		if strings.TrimSpace(line) == "" {
			continue
		}

		row, err := ParseRow(line)
		if err != nil {
			rowErr := RowError{Line: lineNo, Err: err}
			if policy == Strict {
				return nil, &rowErr
			}
			result.Skipped = append(result.Skipped, rowErr)
			continue
		}

		row.Line = lineNo
		result.Rows = append(result.Rows, row)
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read dataset: %w", err)
	}

	if !headerSeen {
		return nil, ErrEmptyDataset
	}

	return result, nil
}

func checkHeader(line string) error {
	line = strings.TrimPrefix(line, "\ufeff")
	fields := strings.Split(line, separator)
	if len(fields) != len(Columns) {
		return fmt.Errorf("%w: want %d columns, got %d", ErrInvalidHeader, len(Columns), len(fields))
	}

	for i, want := range Columns {
		if got := strings.ToLower(strings.TrimSpace(fields[i])); got != want {
			return fmt.Errorf("%w: column %d is %q, want %q", ErrInvalidHeader, i+1, got, want)
		}
	}

	return nil
}

// ParseRow parses one data line. A missing winner column means "not a winner".
func ParseRow(line string) (Row, error) {
	fields := strings.Split(line, separator)
	if len(fields) < 4 {
		return Row{}, fmt.Errorf("%w: want at least 4 columns, got %d", ErrMalformedRow, len(fields))
	}

	year, err := strconv.Atoi(strings.TrimSpace(fields[0]))
	if err != nil {
		return Row{}, fmt.Errorf("%w: invalid year %q", ErrMalformedRow, strings.TrimSpace(fields[0]))
	}

	title := strings.TrimSpace(fields[1])
	if title == "" {
		return Row{}, fmt.Errorf("%w: empty title", ErrMalformedRow)
	}

	winner := false
	if len(fields) > 4 {
		winner = strings.EqualFold(strings.TrimSpace(fields[4]), "yes")
	}

	return Row{
		Year:      year,
		Title:     title,
		Studios:   SplitStudios(fields[2]),
		Producers: SplitProducers(fields[3]),
		Winner:    winner,
	}, nil
}

// SplitStudios splits a studio cell on commas
func SplitStudios(cell string) []string {
	return uniqueTrimmed(strings.Split(cell, ","))
}

// SplitProducers splits a producer cell on " and " and commas.
// "A, B and C" yields [A B C].
func SplitProducers(cell string) []string {
	var parts []string
	for _, group := range andSeparator.Split(strings.TrimSpace(cell), -1) {
		parts = append(parts, strings.Split(group, ",")...)
	}
	return uniqueTrimmed(parts)
}

// uniqueTrimmed trims, drops empties and keeps the first occurrence of each name
func uniqueTrimmed(parts []string) []string {
	out := make([]string, 0, len(parts))
	seen := make(map[string]struct{}, len(parts))
	for _, p := range parts {
		name := strings.TrimSpace(p)
		if name == "" {
			continue
		}
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		out = append(out, name)
	}
	return out
}

// WinningRecords expands winning rows into one record per credited producer
func WinningRecords(rows []Row) []contracts.WinningRecord {
	records := make([]contracts.WinningRecord, 0, len(rows))
	for _, row := range rows {
		if !row.Winner {
			continue
		}
		for _, producer := range row.Producers {
			records = append(records, contracts.WinningRecord{Producer: producer, Year: row.Year})
		}
	}
	return records
}
