package schedule

import (
	"testing"
	"time"
)

func TestMonthNext(t *testing.T) {
	tokyo, err := time.LoadLocation("Asia/Tokyo")
	if err != nil {
		t.Skipf("zone database unavailable: %v", err)
	}

	tests := []struct {
		name string
		now  time.Time
		want string
	}{
		{"mid year", time.Date(2024, time.June, 15, 12, 0, 0, 0, tokyo), "2024-07"},
		{"last day of january", time.Date(2024, time.January, 31, 23, 59, 0, 0, tokyo), "2024-02"},
		{"december rolls the year", time.Date(2024, time.December, 31, 10, 0, 0, 0, tokyo), "2025-01"},
		{"first instant of month", time.Date(2025, time.March, 1, 0, 0, 0, 0, tokyo), "2025-04"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := MonthOf(tt.now).Next()
			if got.String() != tt.want {
				t.Errorf("Next: got %s, want %s", got, tt.want)
			}
			if got.Start().Location() != tokyo {
				t.Errorf("location: got %v, want %v", got.Start().Location(), tokyo)
			}
		})
	}
}

func TestMonthBounds(t *testing.T) {
	m := Month{Year: 2024, Month: time.February, Loc: time.UTC}

	if d := m.Days(); d != 29 {
		t.Errorf("Days: got %d, want 29", d)
	}
	if !m.Contains(time.Date(2024, time.February, 1, 0, 0, 0, 0, time.UTC)) {
		t.Error("expected month to contain its first instant")
	}
	if m.Contains(time.Date(2024, time.March, 1, 0, 0, 0, 0, time.UTC)) {
		t.Error("expected month to exclude the next month's first instant")
	}
	if m.Contains(time.Date(2024, time.January, 31, 23, 59, 59, 0, time.UTC)) {
		t.Error("expected month to exclude the previous month")
	}
}

func TestParseMonth(t *testing.T) {
	m, err := ParseMonth("2024-12", time.UTC)
	if err != nil {
		t.Fatalf("ParseMonth: %v", err)
	}
	if m.Year != 2024 || m.Month != time.December {
		t.Errorf("got %d-%d", m.Year, m.Month)
	}

	if _, err := ParseMonth("2024/12", time.UTC); err == nil {
		t.Error("expected error for malformed month")
	}
}
