package parsing

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/portfolio-engine/internal/types"
)

var fixedNow = time.Date(2025, time.June, 15, 0, 0, 0, 0, time.UTC)

func TestFirstYear(t *testing.T) {
	y, ok := FirstYear("2021-Present")
	require.True(t, ok)
	assert.Equal(t, 2021, y)

	y, ok = FirstYear("1/1/2025")
	require.True(t, ok)
	assert.Equal(t, 2025, y)

	_, ok = FirstYear("ongoing")
	assert.False(t, ok)
}

func TestParseDate(t *testing.T) {
	tests := []struct {
		input string
		want  time.Time
		ok    bool
	}{
		{"2021-03-04", time.Date(2021, 3, 4, 0, 0, 0, 0, time.UTC), true},
		{"2021-03", time.Date(2021, 3, 1, 0, 0, 0, 0, time.UTC), true},
		{"2019", time.Date(2019, 1, 1, 0, 0, 0, 0, time.UTC), true},
		{"1/15/2025", time.Date(2025, 1, 15, 0, 0, 0, 0, time.UTC), true},
		{"March 2020", time.Date(2020, 3, 1, 0, 0, 0, 0, time.UTC), true},
		{"circa 2012", time.Date(2012, 1, 1, 0, 0, 0, 0, time.UTC), true},
		{"Present", time.Time{}, false},
		{"", time.Time{}, false},
		{"tbd", time.Time{}, false},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, ok := ParseDate(tt.input)
			assert.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.True(t, tt.want.Equal(got), "got %v", got)
			}
		})
	}
}

func TestProjectSpan_OpenEndedRange(t *testing.T) {
	for _, end := range []string{"", "present", "PRESENT", " Present "} {
		span := ProjectSpan(types.Project{StartDate: "2021-01-01", EndDate: end}, fixedNow)
		assert.True(t, span.Open, "end %q", end)
		assert.Equal(t, []string{"2021", "2022", "2023", "2024", "2025"}, span.YearLabels())
	}
}

func TestProjectSpan_ClosedRange(t *testing.T) {
	span := ProjectSpan(types.Project{StartDate: "2016-05-01", EndDate: "2018-02-01"}, fixedNow)
	assert.False(t, span.Open)
	assert.Equal(t, []int{2016, 2017, 2018}, span.Years())
}

func TestProjectSpan_ReversedRangeIsNormalized(t *testing.T) {
	span := ProjectSpan(types.Project{StartDate: "2018", EndDate: "2016"}, fixedNow)
	assert.Equal(t, []int{2016, 2017, 2018}, span.Years())
}

func TestProjectSpan_EndOnly(t *testing.T) {
	span := ProjectSpan(types.Project{EndDate: "2014-06-30"}, fixedNow)
	assert.Equal(t, []int{2014}, span.Years())
}

func TestProjectSpan_LegacyYear(t *testing.T) {
	tests := []struct {
		year string
		want []string
	}{
		{"2021", []string{"2021"}},
		{"2021-Present", []string{"2021"}},
		{"1/1/2025", []string{"2025"}},
		{"", []string{types.UnknownYear}},
		{"ongoing", []string{types.UnknownYear}},
	}

	for _, tt := range tests {
		t.Run(tt.year, func(t *testing.T) {
			span := ProjectSpan(types.Project{Year: tt.year}, fixedNow)
			assert.Equal(t, tt.want, span.YearLabels())
		})
	}
}

func TestProjectSpan_UnparseableRangeFallsBackToLegacyYear(t *testing.T) {
	span := ProjectSpan(types.Project{StartDate: "tbd", EndDate: "tbd", Year: "2013"}, fixedNow)
	assert.Equal(t, []int{2013}, span.Years())
}

func TestProjectSpan_LegacyPresentIsOpen(t *testing.T) {
	span := ProjectSpan(types.Project{Year: "2021-Present"}, fixedNow)
	assert.True(t, span.Open)
	assert.Equal(t, 2025, span.EndYear)
	assert.Equal(t, []int{2021}, span.Years())

	closed := ProjectSpan(types.Project{Year: "2023"}, fixedNow)
	assert.False(t, closed.Open)
	assert.Negative(t, CompareRecency(span, closed), "ongoing legacy year beats a later closed year")
}

func TestCompareRecency(t *testing.T) {
	open2021 := ProjectSpan(types.Project{StartDate: "2021-01-01", EndDate: "present"}, fixedNow)
	open2023 := ProjectSpan(types.Project{StartDate: "2023-01-01"}, fixedNow)
	closed2024 := ProjectSpan(types.Project{StartDate: "2020-01-01", EndDate: "2024-12-31"}, fixedNow)
	closed2024Late := ProjectSpan(types.Project{StartDate: "2022-01-01", EndDate: "2024-12-31"}, fixedNow)
	legacy := ProjectSpan(types.Project{Year: "2019"}, fixedNow)
	undated := ProjectSpan(types.Project{}, fixedNow)

	assert.Negative(t, CompareRecency(open2021, closed2024), "open-ended beats any closed end")
	assert.Negative(t, CompareRecency(open2023, open2021), "later start wins among open spans")
	assert.Negative(t, CompareRecency(closed2024Late, closed2024), "start breaks end ties")
	assert.Negative(t, CompareRecency(closed2024, legacy))
	assert.Negative(t, CompareRecency(legacy, undated), "undated sorts last")
	assert.Zero(t, CompareRecency(undated, undated))
	assert.Zero(t, CompareRecency(closed2024, closed2024))
}
