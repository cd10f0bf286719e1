package timeoff_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/warp/leave-tracker/generic"
	"github.com/warp/leave-tracker/timeoff"
)

func days(v float64) generic.Amount {
	return generic.NewAmount(v, generic.UnitDays)
}

func ptr[T any](v T) *T { return &v }

// 1 day Jan-Aug, 1.5 Sep-Dec.
func racheal() timeoff.Pattern {
	p := timeoff.UniformPattern(1)
	for m := time.September; m <= time.December; m++ {
		p[m] = days(1.5)
	}
	return p
}

func TestCalculateAccrual(t *testing.T) {
	tests := []struct {
		name string
		in   timeoff.AccrualInput
		want string
	}{
		{
			name: "full year of 1.5 clamped to entitlement",
			in: timeoff.AccrualInput{
				JoinDate:        generic.NewTimePoint(2012, time.January, 1),
				Entitlement:     ptr(days(18)),
				Pattern:         timeoff.UniformPattern(1.5),
				SystemStartYear: 2026,
				Year:            2026,
				CursorMonth:     time.December,
			},
			want: "18",
		},
		{
			name: "cursor before join month accrues nothing",
			in: timeoff.AccrualInput{
				JoinDate:        generic.NewTimePoint(2023, time.July, 1),
				Entitlement:     ptr(days(14)),
				Pattern:         racheal(),
				SystemStartYear: 2020,
				Year:            2023,
				CursorMonth:     time.June,
			},
			want: "0",
		},
		{
			name: "mid-year joiner accrues from the join month",
			in: timeoff.AccrualInput{
				JoinDate:        generic.NewTimePoint(2023, time.July, 1),
				Entitlement:     ptr(days(14)),
				Pattern:         racheal(),
				SystemStartYear: 2020,
				Year:            2023,
				CursorMonth:     time.December,
			},
			want: "8",
		},
		{
			name: "join month counts even when joining mid-month",
			in: timeoff.AccrualInput{
				JoinDate:        generic.NewTimePoint(2025, time.November, 3),
				Pattern:         timeoff.UniformPattern(1),
				SystemStartYear: 2020,
				Year:            2025,
				CursorMonth:     time.December,
			},
			want: "2",
		},
		{
			name: "year before system start accrues nothing",
			in: timeoff.AccrualInput{
				JoinDate:        generic.NewTimePoint(2008, time.August, 8),
				Entitlement:     ptr(days(18)),
				Pattern:         timeoff.UniformPattern(1.5),
				SystemStartYear: 2026,
				Year:            2025,
				CursorMonth:     time.December,
			},
			want: "0",
		},
		{
			name: "partial year below the cap",
			in: timeoff.AccrualInput{
				JoinDate:        generic.NewTimePoint(2012, time.February, 1),
				Entitlement:     ptr(days(16)),
				Pattern:         timeoff.UniformPattern(1.5),
				SystemStartYear: 2026,
				Year:            2026,
				CursorMonth:     time.March,
			},
			want: "4.5",
		},
		{
			name: "unbounded entitlement is never clamped",
			in: timeoff.AccrualInput{
				JoinDate:        generic.NewTimePoint(2020, time.January, 1),
				Pattern:         timeoff.UniformPattern(2),
				SystemStartYear: 2026,
				Year:            2026,
				CursorMonth:     time.December,
			},
			want: "24",
		},
		{
			name: "months missing from the pattern accrue zero",
			in: timeoff.AccrualInput{
				JoinDate:        generic.NewTimePoint(2020, time.January, 1),
				Pattern:         timeoff.Pattern{time.February: days(3)},
				SystemStartYear: 2026,
				Year:            2026,
				CursorMonth:     time.June,
			},
			want: "3",
		},
		{
			name: "rounded to two decimals",
			in: timeoff.AccrualInput{
				JoinDate:        generic.NewTimePoint(2020, time.January, 1),
				Pattern:         timeoff.UniformPattern(1.333),
				SystemStartYear: 2026,
				Year:            2026,
				CursorMonth:     time.March,
			},
			want: "4",
		},
		{
			name: "invalid cursor accrues nothing",
			in: timeoff.AccrualInput{
				JoinDate:        generic.NewTimePoint(2020, time.January, 1),
				Pattern:         timeoff.UniformPattern(2),
				SystemStartYear: 2026,
				Year:            2026,
				CursorMonth:     0,
			},
			want: "0",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := timeoff.CalculateAccrual(tt.in)
			assert.Equal(t, tt.want, got.String())
		})
	}
}

func TestMonthlyPatternAccrual_GenerateAccruals(t *testing.T) {
	// GIVEN: Joined 2026-04-15 with 2 days a month
	schedule := &timeoff.MonthlyPatternAccrual{
		JoinDate:        generic.NewTimePoint(2026, time.April, 15),
		Pattern:         timeoff.DefaultPattern(),
		SystemStartYear: 2026,
	}

	// WHEN: Generating for the whole year
	events := schedule.GenerateAccruals(generic.StartOfYear(2026), generic.EndOfYear(2026))

	// THEN: April through December, one event each on the first
	assert.Len(t, events, 9)
	assert.Equal(t, "2026-04-01", events[0].At.String())
	assert.Equal(t, "2026-12-01", events[8].At.String())
	assert.Equal(t, "18", generic.SumAccruals(events).String())
}

func TestCursorFor(t *testing.T) {
	asOf := generic.NewTimePoint(2026, time.March, 15)

	assert.Equal(t, time.March, timeoff.CursorFor(asOf, generic.AccrueToDate))
	assert.Equal(t, time.December, timeoff.CursorFor(asOf, generic.AccrueFullYear))
}

func TestDayCount(t *testing.T) {
	tests := []struct {
		name    string
		start   generic.TimePoint
		end     generic.TimePoint
		halfDay bool
		want    string
	}{
		{"three inclusive days", generic.NewTimePoint(2026, time.March, 10), generic.NewTimePoint(2026, time.March, 12), false, "3"},
		{"single half day", generic.NewTimePoint(2026, time.March, 10), generic.NewTimePoint(2026, time.March, 10), true, "0.5"},
		{"end before start", generic.NewTimePoint(2026, time.March, 12), generic.NewTimePoint(2026, time.March, 10), false, "0"},
		{"end before start ignores half day", generic.NewTimePoint(2026, time.March, 12), generic.NewTimePoint(2026, time.March, 10), true, "0"},
		{"across a month boundary", generic.NewTimePoint(2026, time.February, 27), generic.NewTimePoint(2026, time.March, 2), false, "4"},
		{"half day on a range", generic.NewTimePoint(2026, time.March, 10), generic.NewTimePoint(2026, time.March, 12), true, "2.5"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := timeoff.DayCount(tt.start, tt.end, tt.halfDay)
			assert.Equal(t, tt.want, got.String())
		})
	}
}

func TestRoster_PatternFallsBackToDefault(t *testing.T) {
	roster := timeoff.NewRoster(
		timeoff.RosterEntry{Name: "A", JoinDate: generic.NewTimePoint(2020, time.January, 1), Pattern: timeoff.UniformPattern(1)},
		timeoff.RosterEntry{Name: "B", JoinDate: generic.NewTimePoint(2020, time.January, 1)},
		timeoff.RosterEntry{Name: "A", JoinDate: generic.NewTimePoint(2021, time.January, 1)},
	)

	assert.Len(t, roster.Entries(), 2, "duplicate names are dropped")
	assert.Equal(t, "12", roster.PatternFor("A").YearTotal().String())
	assert.Equal(t, "24", roster.PatternFor("B").YearTotal().String())
	assert.Equal(t, "24", roster.PatternFor("UNKNOWN").YearTotal().String())

	var nilRoster *timeoff.Roster
	assert.Empty(t, nilRoster.Entries())
	assert.Equal(t, "24", nilRoster.PatternFor("A").YearTotal().String())

	emps := roster.Employees()
	assert.Len(t, emps, 2)
	assert.True(t, emps[0].CurrentBalance.IsZero())
}
