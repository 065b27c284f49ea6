package analytics

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/j-veylop/agile-dashboard-tui/internal/models"
)

// slotSeries builds contiguous half-hour records starting at start with
// the given tax-inclusive prices.
func slotSeries(start time.Time, prices ...float64) []models.RateRecord {
	series := make([]models.RateRecord, len(prices))
	for i, p := range prices {
		from := start.Add(time.Duration(i) * 30 * time.Minute)
		series[i] = models.RateRecord{
			ValidFrom:   from,
			ValidTo:     from.Add(30 * time.Minute),
			ValueExcVAT: decimal.NewFromFloat(p / 1.05),
			ValueIncVAT: decimal.NewFromFloat(p),
		}
	}
	return series
}

var midnight = time.Date(2025, 1, 15, 0, 0, 0, 0, time.UTC)

func TestCurrentRate(t *testing.T) {
	series := slotSeries(midnight, 10, 20)

	got := CurrentRate(series, midnight.Add(30*time.Minute))
	if got == nil {
		t.Fatal("CurrentRate() at a slot boundary should return the starting slot")
	}
	if !got.ValueIncVAT.Equal(decimal.NewFromInt(20)) {
		t.Errorf("CurrentRate() price = %s, want 20", got.ValueIncVAT)
	}

	if got := CurrentRate(series, midnight.Add(time.Hour)); got != nil {
		t.Errorf("CurrentRate() past the series end = %v, want nil", got)
	}
}

func TestCurrentRate_Gap(t *testing.T) {
	series := append(slotSeries(midnight, 10), slotSeries(midnight.Add(2*time.Hour), 20)...)

	if got := CurrentRate(series, midnight.Add(time.Hour)); got != nil {
		t.Errorf("CurrentRate() in a gap = %v, want nil", got)
	}
}

func TestLowestUpcoming(t *testing.T) {
	series := slotSeries(midnight, 10, 20, 5, 15)

	got := LowestUpcoming(series, midnight, 2)
	if len(got) != 2 {
		t.Fatalf("LowestUpcoming() returned %d records, want 2", len(got))
	}
	if !got[0].ValueIncVAT.Equal(decimal.NewFromInt(5)) {
		t.Errorf("cheapest = %s, want 5", got[0].ValueIncVAT)
	}
	if !got[1].ValueIncVAT.Equal(decimal.NewFromInt(10)) {
		t.Errorf("second cheapest = %s, want 10", got[1].ValueIncVAT)
	}
}

func TestLowestUpcoming_ExcludesPast(t *testing.T) {
	series := slotSeries(midnight, 5, 20, 10)

	// The 5p slot has fully elapsed; the 20p slot is in progress.
	now := midnight.Add(45 * time.Minute)
	got := LowestUpcoming(series, now, 3)
	if len(got) != 2 {
		t.Fatalf("LowestUpcoming() returned %d records, want 2", len(got))
	}
	if !got[0].ValueIncVAT.Equal(decimal.NewFromInt(10)) {
		t.Errorf("cheapest upcoming = %s, want 10", got[0].ValueIncVAT)
	}
}

func TestHighestUpcoming(t *testing.T) {
	series := slotSeries(midnight, 10, 20, 5, 15)

	got := HighestUpcoming(series, midnight, 1)
	if len(got) != 1 {
		t.Fatalf("HighestUpcoming() returned %d records, want 1", len(got))
	}
	if !got[0].ValueIncVAT.Equal(decimal.NewFromInt(20)) {
		t.Errorf("most expensive = %s, want 20", got[0].ValueIncVAT)
	}
}

func TestBestAverageWindows_LowestMeanWins(t *testing.T) {
	// Window means over [10 20 5 15] with 2 slots: 15, 12.5, 10.
	series := slotSeries(midnight, 10, 20, 5, 15)

	got := BestAverageWindows(series, 1, 1)
	if len(got) != 1 {
		t.Fatalf("BestAverageWindows() returned %d windows, want 1", len(got))
	}

	wantStart := midnight.Add(time.Hour)
	wantEnd := midnight.Add(2 * time.Hour)
	if !got[0].Start.Equal(wantStart) || !got[0].End.Equal(wantEnd) {
		t.Errorf("best window = [%v, %v), want [%v, %v)", got[0].Start, got[0].End, wantStart, wantEnd)
	}
}

func TestBestAverageWindows_HalfHourGranularity(t *testing.T) {
	series := slotSeries(midnight, 10, 2, 15)

	got := BestAverageWindows(series, 0.5, 1)
	if len(got) != 1 {
		t.Fatalf("BestAverageWindows() returned %d windows, want 1", len(got))
	}
	if !got[0].Start.Equal(midnight.Add(30 * time.Minute)) {
		t.Errorf("best half-hour window starts at %v, want %v", got[0].Start, midnight.Add(30*time.Minute))
	}
}

func TestBestAverageWindows_NonOverlapping(t *testing.T) {
	series := slotSeries(midnight, 5, 6, 30, 30, 7, 8)

	got := BestAverageWindows(series, 1, 2)
	if len(got) != 2 {
		t.Fatalf("BestAverageWindows() returned %d windows, want 2", len(got))
	}
	if got[0].Overlaps(got[1]) {
		t.Errorf("windows %v and %v should not overlap", got[0], got[1])
	}
	if !got[0].Start.Equal(midnight) {
		t.Errorf("best window starts at %v, want %v", got[0].Start, midnight)
	}
}

func TestBestAverageWindows_SkipsGappedRuns(t *testing.T) {
	// Cheap slots either side of a gap must not form a window.
	series := append(slotSeries(midnight, 1), slotSeries(midnight.Add(2*time.Hour), 1, 50, 50)...)

	got := BestAverageWindows(series, 1, 1)
	if len(got) != 1 {
		t.Fatalf("BestAverageWindows() returned %d windows, want 1", len(got))
	}
	if !got[0].Start.Equal(midnight.Add(2 * time.Hour)) {
		t.Errorf("window spanning the gap was selected: starts at %v", got[0].Start)
	}
}

func TestBestAverageWindows_SeriesShorterThanWindow(t *testing.T) {
	series := slotSeries(midnight, 10, 20)

	if got := BestAverageWindows(series, 2, 1); got != nil {
		t.Errorf("BestAverageWindows() on short series = %v, want nil", got)
	}
}

func TestMergeOverlappingWindows(t *testing.T) {
	day := time.Date(2025, 1, 15, 0, 0, 0, 0, time.UTC)
	at := func(h, m int) time.Time { return day.Add(time.Duration(h)*time.Hour + time.Duration(m)*time.Minute) }

	windows := []models.TimeWindow{
		{Start: at(10, 0), End: at(10, 30)},
		{Start: at(10, 15), End: at(11, 0)},
		{Start: at(14, 0), End: at(14, 30)},
	}

	got := MergeOverlappingWindows(windows)
	if len(got) != 2 {
		t.Fatalf("MergeOverlappingWindows() returned %d windows, want 2", len(got))
	}
	if !got[0].Start.Equal(at(10, 0)) || !got[0].End.Equal(at(11, 0)) {
		t.Errorf("merged window = [%v, %v), want [10:00, 11:00)", got[0].Start, got[0].End)
	}
	if !got[1].Start.Equal(at(14, 0)) || !got[1].End.Equal(at(14, 30)) {
		t.Errorf("second window = [%v, %v), want [14:00, 14:30)", got[1].Start, got[1].End)
	}
}

func TestMergeOverlappingWindows_Empty(t *testing.T) {
	if got := MergeOverlappingWindows(nil); got != nil {
		t.Errorf("MergeOverlappingWindows(nil) = %v, want nil", got)
	}
}

func TestClassify_BelowMedianIsNeutral(t *testing.T) {
	day := slotSeries(midnight, 10, 20, 30, 40)

	got := Classify(day[0], day)
	if got.Score != 0 || got.Negative {
		t.Errorf("Classify(below median) = %+v, want zero score", got)
	}
}

func TestClassify_ScalesAboveMedian(t *testing.T) {
	day := slotSeries(midnight, 10, 20, 30, 40)
	// median 25, max 40

	top := Classify(day[3], day)
	if top.Score != 1 {
		t.Errorf("Classify(max) score = %v, want 1", top.Score)
	}

	mid := Classify(day[2], day)
	want := (30.0 - 25.0) / (40.0 - 25.0)
	if diff := mid.Score - want; diff > 1e-9 || diff < -1e-9 {
		t.Errorf("Classify(30) score = %v, want %v", mid.Score, want)
	}
}

func TestClassify_FlatDayIsNeutral(t *testing.T) {
	day := slotSeries(midnight, 15, 15, 15, 15)

	got := Classify(day[1], day)
	if got.Score != 0 {
		t.Errorf("Classify(flat day) score = %v, want 0", got.Score)
	}
}

func TestClassify_NegativeScale(t *testing.T) {
	day := slotSeries(midnight, -10, -5, 10, 20)

	deepest := Classify(day[0], day)
	if !deepest.Negative || deepest.Score != 1 {
		t.Errorf("Classify(most negative) = %+v, want negative score 1", deepest)
	}

	shallow := Classify(day[1], day)
	if !shallow.Negative {
		t.Error("Classify(-5) should be on the negative scale")
	}
	if diff := shallow.Score - 0.5; diff > 1e-9 || diff < -1e-9 {
		t.Errorf("Classify(-5) score = %v, want 0.5", shallow.Score)
	}
}

func TestSameDay(t *testing.T) {
	london, err := time.LoadLocation("Europe/London")
	if err != nil {
		t.Fatalf("loading zone: %v", err)
	}

	// 2025-06-15 is BST (UTC+1): local midnight is 23:00 UTC the day before.
	series := slotSeries(time.Date(2025, 6, 14, 22, 30, 0, 0, time.UTC), 1, 2, 3)

	got := SameDay(series, time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC), london)
	if len(got) != 2 {
		t.Fatalf("SameDay() returned %d records, want 2 (local-midnight boundary)", len(got))
	}
	if !got[0].ValidFrom.Equal(time.Date(2025, 6, 14, 23, 0, 0, 0, time.UTC)) {
		t.Errorf("first same-day record starts at %v, want 23:00 UTC", got[0].ValidFrom)
	}
}
