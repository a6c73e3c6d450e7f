package core

import "time"

// Weeks in the display grid run Saturday through Friday.
const (
	GridFirstWeekday = time.Saturday
	GridLastWeekday  = time.Friday
)

// DayRecord is one cell of a month's display grid.
type DayRecord struct {
	Date           Date         `json:"date"`
	Weekday        time.Weekday `json:"dayOfWeek"`
	WeekIndex      int          `json:"weekIndex"`
	IsCurrentMonth bool         `json:"isCurrentMonth"`
}

// BuildMonthGrid parses a YYYY-MM token and returns its display grid.
func BuildMonthGrid(token string) ([]DayRecord, error) {
	ym, err := ParseYearMonth(token)
	if err != nil {
		return nil, err
	}
	return ym.Grid(), nil
}

// Grid returns whole Saturday-to-Friday weeks covering the month, in ascending
// date order, including filler days from the adjacent months.
func (ym YearMonth) Grid() []DayRecord {
	first := ym.FirstDay()
	last := ym.LastDay()

	lead := (int(first.Weekday()) - int(GridFirstWeekday) + 7) % 7
	trail := (int(GridLastWeekday) - int(last.Weekday()) + 7) % 7

	start := first.AddDays(-lead)
	end := last.AddDays(trail)

	days := make([]DayRecord, 0, 42)
	week := 0
	for d := start; !d.After(end.Time); d = d.AddDays(1) {
		// The first cell always opens week 0; only later Saturdays open a new week.
		if len(days) > 0 && d.Weekday() == GridFirstWeekday {
			week++
		}
		days = append(days, DayRecord{
			Date:           d,
			Weekday:        d.Weekday(),
			WeekIndex:      week,
			IsCurrentMonth: d.YearMonth() == ym,
		})
	}
	return days
}

// WeekCount returns the number of weeks in a grid.
func WeekCount(grid []DayRecord) int {
	if len(grid) == 0 {
		return 0
	}
	return grid[len(grid)-1].WeekIndex + 1
}
