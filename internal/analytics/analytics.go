// Package analytics provides pure, stateless computations over a rate
// series. Every function here is deterministic and side-effect free so
// the presentation layer can call them on any snapshot at any time.
package analytics

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/j-veylop/agile-dashboard-tui/internal/models"
)

// CurrentRate returns the record whose interval contains now, or nil if
// the series has a gap there.
func CurrentRate(series []models.RateRecord, now time.Time) *models.RateRecord {
	for i := range series {
		if series[i].Contains(now) {
			rec := series[i]
			return &rec
		}
	}
	return nil
}

// LowestUpcoming returns up to count records that overlap or follow now,
// cheapest first by tax-inclusive price.
func LowestUpcoming(series []models.RateRecord, now time.Time, count int) []models.RateRecord {
	return rankedUpcoming(series, now, count, func(a, b models.RateRecord) bool {
		return a.ValueIncVAT.LessThan(b.ValueIncVAT)
	})
}

// HighestUpcoming returns up to count records that overlap or follow
// now, most expensive first by tax-inclusive price.
func HighestUpcoming(series []models.RateRecord, now time.Time, count int) []models.RateRecord {
	return rankedUpcoming(series, now, count, func(a, b models.RateRecord) bool {
		return a.ValueIncVAT.GreaterThan(b.ValueIncVAT)
	})
}

func rankedUpcoming(series []models.RateRecord, now time.Time, count int, less func(a, b models.RateRecord) bool) []models.RateRecord {
	if count <= 0 {
		return nil
	}

	var upcoming []models.RateRecord
	for _, r := range series {
		if r.ValidTo.After(now) {
			upcoming = append(upcoming, r)
		}
	}

	sort.SliceStable(upcoming, func(i, j int) bool {
		if upcoming[i].ValueIncVAT.Equal(upcoming[j].ValueIncVAT) {
			return upcoming[i].ValidFrom.Before(upcoming[j].ValidFrom)
		}
		return less(upcoming[i], upcoming[j])
	})

	if len(upcoming) > count {
		upcoming = upcoming[:count]
	}
	return upcoming
}

// Intensity classifies a record's price relative to the rest of its day.
// Score runs from 0 (neutral, at or below the day's median) to 1 (the
// day's most expensive slot). Negative-priced slots use their own scale,
// where 1 is the day's most negative price.
type Intensity struct {
	Score    float64
	Negative bool
}

// Classify scores a record against the records of the same day. The
// classification is relative: it must be recomputed whenever the day's
// record set changes.
func Classify(rec models.RateRecord, sameDay []models.RateRecord) Intensity {
	if rec.IsNegative() {
		mostNegative := rec.ValueIncVAT
		for _, r := range sameDay {
			if r.ValueIncVAT.LessThan(mostNegative) {
				mostNegative = r.ValueIncVAT
			}
		}
		score := 1.0
		if !mostNegative.IsZero() {
			score = rec.ValueIncVAT.Div(mostNegative).InexactFloat64()
		}
		return Intensity{Score: clamp01(score), Negative: true}
	}

	if len(sameDay) == 0 {
		return Intensity{}
	}

	med := median(sameDay)
	if rec.ValueIncVAT.LessThan(med) {
		return Intensity{}
	}

	max := sameDay[0].ValueIncVAT
	for _, r := range sameDay[1:] {
		if r.ValueIncVAT.GreaterThan(max) {
			max = r.ValueIncVAT
		}
	}

	spread := max.Sub(med)
	if spread.IsZero() {
		return Intensity{}
	}

	score := rec.ValueIncVAT.Sub(med).Div(spread).InexactFloat64()
	return Intensity{Score: clamp01(score)}
}

func median(series []models.RateRecord) decimal.Decimal {
	values := make([]decimal.Decimal, len(series))
	for i, r := range series {
		values[i] = r.ValueIncVAT
	}
	sort.Slice(values, func(i, j int) bool {
		return values[i].LessThan(values[j])
	})

	mid := len(values) / 2
	if len(values)%2 == 1 {
		return values[mid]
	}
	return decimal.Avg(values[mid-1], values[mid])
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// BestAverageWindows finds the cheapest contiguous runs of half-hour
// slots spanning windowHours (half-hour granularity, so 0.5 is the
// smallest useful value). Candidate windows are ranked ascending by mean
// tax-inclusive price; up to maxCount non-overlapping windows are
// returned, best first. Runs broken by a gap in the series are not
// candidates.
func BestAverageWindows(series []models.RateRecord, windowHours float64, maxCount int) []models.TimeWindow {
	slots := int(windowHours * 2)
	if slots < 1 || maxCount < 1 || len(series) < slots {
		return nil
	}

	sorted := make([]models.RateRecord, len(series))
	copy(sorted, series)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].ValidFrom.Before(sorted[j].ValidFrom)
	})

	type candidate struct {
		window models.TimeWindow
		mean   decimal.Decimal
	}

	var candidates []candidate
	for i := 0; i+slots <= len(sorted); i++ {
		run := sorted[i : i+slots]
		if !contiguous(run) {
			continue
		}

		values := make([]decimal.Decimal, slots)
		for j, r := range run {
			values[j] = r.ValueIncVAT
		}

		candidates = append(candidates, candidate{
			window: models.TimeWindow{Start: run[0].ValidFrom, End: run[slots-1].ValidTo},
			mean:   decimal.Avg(values[0], values[1:]...),
		})
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].mean.Equal(candidates[j].mean) {
			return candidates[i].window.Start.Before(candidates[j].window.Start)
		}
		return candidates[i].mean.LessThan(candidates[j].mean)
	})

	var windows []models.TimeWindow
	for _, c := range candidates {
		if len(windows) == maxCount {
			break
		}
		if overlapsAny(c.window, windows) {
			continue
		}
		windows = append(windows, c.window)
	}

	return windows
}

func contiguous(run []models.RateRecord) bool {
	for i := 1; i < len(run); i++ {
		if !run[i].ValidFrom.Equal(run[i-1].ValidTo) {
			return false
		}
	}
	return true
}

func overlapsAny(w models.TimeWindow, windows []models.TimeWindow) bool {
	for _, existing := range windows {
		if w.Overlaps(existing) {
			return true
		}
	}
	return false
}

// MergeOverlappingWindows collapses overlapping or touching windows into
// single spans so they render as one highlighted band. The result is
// sorted ascending by start.
func MergeOverlappingWindows(windows []models.TimeWindow) []models.TimeWindow {
	if len(windows) == 0 {
		return nil
	}

	sorted := make([]models.TimeWindow, len(windows))
	copy(sorted, windows)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].Start.Before(sorted[j].Start)
	})

	merged := []models.TimeWindow{sorted[0]}
	for _, w := range sorted[1:] {
		last := &merged[len(merged)-1]
		if !w.Start.After(last.End) {
			if w.End.After(last.End) {
				last.End = w.End
			}
			continue
		}
		merged = append(merged, w)
	}

	return merged
}

// SameDay filters the series to records whose ValidFrom falls on the
// same calendar day as t in the given zone. Classification is relative
// to the day the user sees, so day boundaries follow local wall time.
func SameDay(series []models.RateRecord, t time.Time, loc *time.Location) []models.RateRecord {
	year, month, day := t.In(loc).Date()

	var out []models.RateRecord
	for _, r := range series {
		y, m, d := r.ValidFrom.In(loc).Date()
		if y == year && m == month && d == day {
			out = append(out, r)
		}
	}
	return out
}
