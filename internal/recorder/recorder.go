package recorder

import "time"

// RunRecord is one reconciliation run as written to the journal.
type RunRecord struct {
	RunID     string
	Symbol    string
	Mode      string // "gaps", "force", "update", "backfill"
	Start     time.Time
	End       time.Time
	Ranges    int
	Fetched   int
	Succeeded int
	Failed    int
	Aborted   bool
	Note      string
	At        time.Time
}

// AlertRecord is a fired alert or a sent summary.
type AlertRecord struct {
	Symbol    string
	AlertType string // "fluctuation", "price_target", "summary"
	Price     float64
	Change    float64
	Message   string
	Delivered bool
	At        time.Time
}

// Recorder persists historical data for analysis.
type Recorder interface {
	RecordRun(rec *RunRecord) error
	RecordAlert(rec *AlertRecord) error
	RecentRuns(limit int) ([]RunRecord, error)
	Close() error
}
