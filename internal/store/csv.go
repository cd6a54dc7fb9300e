package store

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log"
	"math"
	"strconv"
	"strings"
	"time"

	"PriceStation/internal/model"
)

// ErrCorrupt marks a series file that could not be understood at all.
var ErrCorrupt = errors.New("corrupt series file")

const (
	colDate       = "date"
	colRecordedAt = "recorded_at"
)

// utf8BOM keeps spreadsheet tools from mangling non-ASCII labels.
var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

var dateLayouts = []string{
	model.DateLayout,
	time.RFC3339Nano,
	"2006-01-02 15:04:05Z07:00",
	"2006-01-02 15:04:05",
	"2006/01/02",
}

func parseTime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return t.UTC(), nil
		}
	}
	// ISO timestamps without a zone, as older files were written.
	if t, err := time.ParseInLocation("2006-01-02T15:04:05.999999999", s, time.UTC); err == nil {
		return t.UTC(), nil
	}
	return time.Time{}, fmt.Errorf("unrecognised time %q", s)
}

func formatTime(t time.Time) string {
	t = t.UTC()
	if t.Equal(model.Day(t)) {
		return t.Format(model.DateLayout)
	}
	return t.Format(time.RFC3339Nano)
}

func formatValue(v float64, ok bool) string {
	if !ok {
		return ""
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// headerAliases maps legacy column names onto the current ones.
var headerAliases = map[string]string{
	"timestamp": colRecordedAt,
}

// decode parses a series file. Rows with a bad date are dropped; a file without
// a usable header is reported as ErrCorrupt.
func decode(symbol string, schema model.Schema, data []byte) ([]model.Observation, error) {
	data = bytes.TrimPrefix(data, utf8BOM)
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, nil
	}

	r := csv.NewReader(bytes.NewReader(data))
	r.FieldsPerRecord = -1
	header, err := r.Read()
	if err != nil {
		return nil, fmt.Errorf("%w: read header: %v", ErrCorrupt, err)
	}

	dateIdx, recIdx := -1, -1
	fieldIdx := make(map[int]string)
	for i, h := range header {
		name := strings.ToLower(strings.TrimSpace(h))
		if alias, ok := headerAliases[name]; ok {
			name = alias
		}
		switch {
		case name == colDate:
			dateIdx = i
		case name == colRecordedAt:
			recIdx = i
		case schema.Has(name):
			fieldIdx[i] = name
		default:
			log.Printf("[WARN] store: %s: ignoring unknown column %q", symbol, h)
		}
	}
	if dateIdx < 0 {
		return nil, fmt.Errorf("%w: no date column in header %v", ErrCorrupt, header)
	}

	var obs []model.Observation
	line := 1
	for {
		rec, err := r.Read()
		line++
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: line %d: %v", ErrCorrupt, line, err)
		}
		if dateIdx >= len(rec) {
			continue
		}
		ts, err := parseTime(rec[dateIdx])
		if err != nil {
			log.Printf("[WARN] store: %s: line %d: %v, row dropped", symbol, line, err)
			continue
		}
		o := model.Observation{Time: ts, Fields: make(map[string]float64, len(fieldIdx))}
		for i, name := range fieldIdx {
			if i >= len(rec) {
				continue
			}
			if v := parseValue(rec[i]); !math.IsNaN(v) {
				o.Fields[name] = v
			}
		}
		if recIdx >= 0 && recIdx < len(rec) && strings.TrimSpace(rec[recIdx]) != "" {
			if rt, err := parseTime(rec[recIdx]); err == nil {
				o.RecordedAt = rt
			}
		}
		obs = append(obs, o)
	}
	return obs, nil
}

func parseValue(s string) float64 {
	s = strings.ReplaceAll(strings.TrimSpace(s), ",", "")
	if s == "" {
		return math.NaN()
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return math.NaN()
	}
	return v
}

// encode renders a series with a BOM, a header row and one row per observation.
func encode(schema model.Schema, obs []model.Observation) ([]byte, error) {
	var buf bytes.Buffer
	buf.Write(utf8BOM)
	w := csv.NewWriter(&buf)

	header := make([]string, 0, len(schema.Fields)+2)
	header = append(header, colDate)
	header = append(header, schema.Fields...)
	header = append(header, colRecordedAt)
	if err := w.Write(header); err != nil {
		return nil, err
	}

	row := make([]string, len(header))
	for _, o := range obs {
		row[0] = formatTime(o.Time)
		for i, f := range schema.Fields {
			v, ok := o.Value(f)
			row[i+1] = formatValue(v, ok)
		}
		row[len(row)-1] = ""
		if !o.RecordedAt.IsZero() {
			row[len(row)-1] = o.RecordedAt.UTC().Format(time.RFC3339Nano)
		}
		if err := w.Write(row); err != nil {
			return nil, err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
