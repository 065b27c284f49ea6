package rates

import (
	"time"

	"github.com/j-veylop/agile-dashboard-tui/internal/models"
)

// The upstream tariff publishes the next day's half-hourly prices in the
// late afternoon UK time. These constants encode that external schedule;
// they are business facts, not tunables.
const (
	// PublicationZone is the wall-clock zone the publisher's schedule
	// runs on.
	PublicationZone = "Europe/London"

	// PublicationHour is the local hour from which the next day's prices
	// are expected to be available.
	PublicationHour = 16

	// CoverageBoundaryHour is the local hour the cached series is
	// expected to reach on its final day.
	CoverageBoundaryHour = 23
)

// IsCovered reports whether the cached series already extends as far as
// the app needs, making a network refresh unnecessary. Before 16:00
// local the series must reach today 23:00 local; from 16:00 it must
// reach tomorrow 23:00 local. The boundary is computed in local wall
// time and compared in UTC so DST transitions resolve correctly. An
// empty series is never covered.
func IsCovered(now time.Time, series []models.RateRecord, loc *time.Location) bool {
	if len(series) == 0 {
		return false
	}

	local := now.In(loc)
	day := local
	if local.Hour() >= PublicationHour {
		day = local.AddDate(0, 0, 1)
	}

	boundary := time.Date(day.Year(), day.Month(), day.Day(), CoverageBoundaryHour, 0, 0, 0, loc)

	return !models.MaxValidTo(series).Before(boundary.UTC())
}
