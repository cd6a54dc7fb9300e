package scheduler

import (
	"fmt"
	"os"
	"strings"
	"time"

	"PriceStation/internal/statefile"
)

// DailyMarker records the local date of the last completed daily update.
type DailyMarker struct {
	Path string
	Now  func() time.Time
}

// NewDailyMarker returns a marker stored at path.
func NewDailyMarker(path string) *DailyMarker {
	return &DailyMarker{Path: path, Now: time.Now}
}

func (m *DailyMarker) today() string { return m.Now().Format("2006-01-02") }

// Done reports whether the update already ran today.
func (m *DailyMarker) Done() bool {
	data, err := os.ReadFile(m.Path)
	if err != nil {
		return false
	}
	return strings.TrimSpace(string(data)) == m.today()
}

// Mark records today as done.
func (m *DailyMarker) Mark() error {
	if err := statefile.WriteAtomic(m.Path, []byte(m.today()), 0644); err != nil {
		return fmt.Errorf("write daily marker: %w", err)
	}
	return nil
}
