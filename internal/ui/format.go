package ui

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/j-veylop/agile-dashboard-tui/internal/models"
)

// FormatPrice renders a pence-per-kWh price either as pence ("12.34p")
// or pounds ("£0.1234").
func FormatPrice(pence decimal.Decimal, pounds bool) string {
	if pounds {
		return fmt.Sprintf("£%s", pence.Div(decimal.NewFromInt(100)).StringFixed(4))
	}
	return fmt.Sprintf("%sp", pence.StringFixed(2))
}

// FormatWindow renders a time window as local wall-clock times, e.g.
// "02:00–04:00".
func FormatWindow(w models.TimeWindow, loc *time.Location) string {
	return fmt.Sprintf("%s–%s", w.Start.In(loc).Format("15:04"), w.End.In(loc).Format("15:04"))
}

// FormatSlot renders a record's interval start as a local day and time,
// e.g. "Wed 14:30".
func FormatSlot(r models.RateRecord, loc *time.Location) string {
	return r.ValidFrom.In(loc).Format("Mon 15:04")
}
