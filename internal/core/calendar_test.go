package core

import (
	"errors"
	"testing"
	"time"
)

func TestBuildMonthGrid_Shape(t *testing.T) {
	for year := 2023; year <= 2026; year++ {
		for month := time.January; month <= time.December; month++ {
			ym := YearMonth{Year: year, Month: month}
			grid, err := BuildMonthGrid(ym.String())
			if err != nil {
				t.Fatalf("BuildMonthGrid(%s) error: %v", ym, err)
			}

			if len(grid)%7 != 0 {
				t.Errorf("%s: len = %d, want multiple of 7", ym, len(grid))
			}
			if grid[0].Weekday != time.Saturday {
				t.Errorf("%s: first weekday = %s, want Saturday", ym, grid[0].Weekday)
			}
			if grid[len(grid)-1].Weekday != time.Friday {
				t.Errorf("%s: last weekday = %s, want Friday", ym, grid[len(grid)-1].Weekday)
			}
			if grid[0].WeekIndex != 0 {
				t.Errorf("%s: first weekIndex = %d, want 0", ym, grid[0].WeekIndex)
			}

			inMonth := 0
			for i, d := range grid {
				if d.IsCurrentMonth {
					inMonth++
				}
				if d.Weekday != d.Date.Weekday() {
					t.Errorf("%s: day %s weekday mismatch", ym, d.Date)
				}
				if i == 0 {
					continue
				}
				prev := grid[i-1]
				if !d.Date.Equal(prev.Date.AddDays(1).Time) {
					t.Errorf("%s: %s does not follow %s", ym, d.Date, prev.Date)
				}
				want := prev.WeekIndex
				if d.Weekday == time.Saturday {
					want++
				}
				if d.WeekIndex != want {
					t.Errorf("%s: %s weekIndex = %d, want %d", ym, d.Date, d.WeekIndex, want)
				}
			}
			if inMonth != ym.Days() {
				t.Errorf("%s: current-month days = %d, want %d", ym, inMonth, ym.Days())
			}
			if WeekCount(grid) != len(grid)/7 {
				t.Errorf("%s: WeekCount = %d, want %d", ym, WeekCount(grid), len(grid)/7)
			}
		}
	}
}

func TestBuildMonthGrid_YearBoundaries(t *testing.T) {
	tests := []struct {
		token     string
		wantFirst string
		wantLast  string
	}{
		// 2025-01-01 is a Wednesday, 2025-01-31 a Friday.
		{"2025-01", "2024-12-28", "2025-01-31"},
		// 2025-12-01 is a Monday, 2025-12-31 a Wednesday.
		{"2025-12", "2025-11-29", "2026-01-02"},
		// 2024-02 is a leap February starting on Thursday.
		{"2024-02", "2024-01-27", "2024-03-01"},
	}

	for _, tt := range tests {
		t.Run(tt.token, func(t *testing.T) {
			grid, err := BuildMonthGrid(tt.token)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got := grid[0].Date.String(); got != tt.wantFirst {
				t.Errorf("first = %s, want %s", got, tt.wantFirst)
			}
			if got := grid[len(grid)-1].Date.String(); got != tt.wantLast {
				t.Errorf("last = %s, want %s", got, tt.wantLast)
			}
			for _, d := range grid {
				inToken := d.Date.YearMonth().String() == tt.token
				if d.IsCurrentMonth != inToken {
					t.Errorf("%s: isCurrentMonth = %v, want %v", d.Date, d.IsCurrentMonth, inToken)
				}
			}
		})
	}
}

func TestBuildMonthGrid_SaturdayFirstOfMonth(t *testing.T) {
	// 2025-02-01 is a Saturday, so no leading filler is needed.
	grid, err := BuildMonthGrid("2025-02")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := grid[0].Date.String(); got != "2025-02-01" {
		t.Fatalf("first = %s, want 2025-02-01", got)
	}
	if len(grid) != 28 {
		t.Errorf("len = %d, want 28", len(grid))
	}
	if grid[7].WeekIndex != 1 {
		t.Errorf("second Saturday weekIndex = %d, want 1", grid[7].WeekIndex)
	}
}

func TestBuildMonthGrid_InvalidToken(t *testing.T) {
	for _, token := range []string{"", "2025-13", "2025-00", "25-01", "2025-1", "2025/01", "2025-01-01"} {
		t.Run(token, func(t *testing.T) {
			_, err := BuildMonthGrid(token)
			if !errors.Is(err, ErrInvalidYearMonth) {
				t.Errorf("BuildMonthGrid(%q) err = %v, want ErrInvalidYearMonth", token, err)
			}
		})
	}
}
