package contracts

// WinningRecord is one (producer, year) pair taken from a winning movie.
// A winner credited to N producers yields N records sharing the same year.
// ⭐ SSOT: 저장소 → 구간 엔진 입력
type WinningRecord struct {
	Producer string `json:"producer"`
	Year     int    `json:"year"`
}

// ProducerInterval is one pair of consecutive wins for one producer
type ProducerInterval struct {
	Producer     string `json:"producer"`
	Interval     int    `json:"interval"` // FollowingWin - PreviousWin, never negative
	PreviousWin  int    `json:"previousWin"`
	FollowingWin int    `json:"followingWin"`
}

// IntervalReport holds every interval equal to the global minimum and maximum.
// Both slices are non-nil so they encode as [] when empty.
// ⭐ SSOT: 구간 엔진 → API/CLI 출력
type IntervalReport struct {
	Min []ProducerInterval `json:"min"`
	Max []ProducerInterval `json:"max"`
}

// EmptyIntervalReport returns a report with no entries
func EmptyIntervalReport() IntervalReport {
	return IntervalReport{
		Min: []ProducerInterval{},
		Max: []ProducerInterval{},
	}
}

// IsEmpty reports whether no producer had two or more wins
func (r *IntervalReport) IsEmpty() bool {
	return len(r.Min) == 0 && len(r.Max) == 0
}

// MinInterval returns the global minimum interval, ok=false for an empty report
func (r *IntervalReport) MinInterval() (int, bool) {
	if len(r.Min) == 0 {
		return 0, false
	}
	return r.Min[0].Interval, true
}

// MaxInterval returns the global maximum interval, ok=false for an empty report
func (r *IntervalReport) MaxInterval() (int, bool) {
	if len(r.Max) == 0 {
		return 0, false
	}
	return r.Max[0].Interval, true
}
