package gaps

import (
	"testing"
	"time"

	"PriceStation/internal/model"
)

func mustDay(t *testing.T, s string) time.Time {
	t.Helper()
	d, err := model.ParseDay(s)
	if err != nil {
		t.Fatal(err)
	}
	return d
}

func seriesOf(t *testing.T, days ...string) model.Series {
	t.Helper()
	s := model.Series{Symbol: "Gold", Schema: model.GoldSchema}
	for _, d := range days {
		s.Observations = append(s.Observations, model.Observation{
			Time:   mustDay(t, d).Add(9 * time.Hour),
			Fields: map[string]float64{model.FieldBuy: 1, model.FieldSell: 2},
		})
	}
	return s
}

func rangesEqual(a, b []model.DateRange) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !a[i].From.Equal(b[i].From) || !a[i].To.Equal(b[i].To) {
			return false
		}
	}
	return true
}

func TestFindMissing(t *testing.T) {
	tests := []struct {
		name   string
		series model.Series
		start  string
		end    string
		want   [][2]string
	}{
		{
			name:   "empty series is one gap",
			series: seriesOf(t),
			start:  "2024-01-01", end: "2024-01-05",
			want: [][2]string{{"2024-01-01", "2024-01-05"}},
		},
		{
			name:   "single missing day",
			series: seriesOf(t, "2024-01-01", "2024-01-02", "2024-01-04", "2024-01-05"),
			start:  "2024-01-01", end: "2024-01-05",
			want: [][2]string{{"2024-01-03", "2024-01-03"}},
		},
		{
			name:   "full coverage",
			series: seriesOf(t, "2024-01-01", "2024-01-02", "2024-01-03"),
			start:  "2024-01-01", end: "2024-01-03",
			want: nil,
		},
		{
			name:   "edges and middle",
			series: seriesOf(t, "2024-01-03", "2024-01-04", "2024-01-07"),
			start:  "2024-01-01", end: "2024-01-09",
			want: [][2]string{
				{"2024-01-01", "2024-01-02"},
				{"2024-01-05", "2024-01-06"},
				{"2024-01-08", "2024-01-09"},
			},
		},
		{
			name:   "data outside range ignored",
			series: seriesOf(t, "2023-12-31", "2024-01-06"),
			start:  "2024-01-01", end: "2024-01-02",
			want: [][2]string{{"2024-01-01", "2024-01-02"}},
		},
		{
			name:   "inverted range",
			series: seriesOf(t),
			start:  "2024-01-05", end: "2024-01-01",
			want: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := FindMissing(tt.series, mustDay(t, tt.start), mustDay(t, tt.end))
			var want []model.DateRange
			for _, w := range tt.want {
				want = append(want, model.DateRange{From: mustDay(t, w[0]), To: mustDay(t, w[1])})
			}
			if !rangesEqual(got, want) {
				t.Errorf("FindMissing() = %v, want %v", got, want)
			}
		})
	}
}

func TestFindMissingSkipWeekends(t *testing.T) {
	// 2024-01-05 is a Friday, 2024-01-08 a Monday.
	f := Finder{SkipWeekends: true}

	got := f.FindMissing(seriesOf(t, "2024-01-04"), mustDay(t, "2024-01-04"), mustDay(t, "2024-01-09"))
	want := []model.DateRange{{From: mustDay(t, "2024-01-05"), To: mustDay(t, "2024-01-09")}}
	if !rangesEqual(got, want) {
		t.Errorf("FindMissing() = %v, want %v", got, want)
	}

	full := seriesOf(t, "2024-01-05", "2024-01-08")
	if got := f.FindMissing(full, mustDay(t, "2024-01-05"), mustDay(t, "2024-01-08")); len(got) != 0 {
		t.Errorf("weekend should not count as missing, got %v", got)
	}
}
