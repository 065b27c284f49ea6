package ui

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/j-veylop/agile-dashboard-tui/internal/models"
)

func TestFormatPrice_Pence(t *testing.T) {
	got := FormatPrice(decimal.RequireFromString("12.345"), false)
	if got != "12.35p" {
		t.Errorf("FormatPrice pence = %q, want %q", got, "12.35p")
	}
}

func TestFormatPrice_Pounds(t *testing.T) {
	got := FormatPrice(decimal.RequireFromString("12.34"), true)
	if got != "£0.1234" {
		t.Errorf("FormatPrice pounds = %q, want %q", got, "£0.1234")
	}
}

func TestFormatPrice_Negative(t *testing.T) {
	got := FormatPrice(decimal.RequireFromString("-2.5"), false)
	if got != "-2.50p" {
		t.Errorf("FormatPrice negative = %q, want %q", got, "-2.50p")
	}
}

func TestFormatWindow_LocalTime(t *testing.T) {
	london, err := time.LoadLocation("Europe/London")
	if err != nil {
		t.Fatalf("loading zone: %v", err)
	}

	// 01:00Z on a July day is 02:00 BST.
	w := models.TimeWindow{
		Start: time.Date(2025, 7, 10, 1, 0, 0, 0, time.UTC),
		End:   time.Date(2025, 7, 10, 3, 0, 0, 0, time.UTC),
	}
	got := FormatWindow(w, london)
	if got != "02:00–04:00" {
		t.Errorf("FormatWindow = %q, want %q", got, "02:00–04:00")
	}
}

func TestFormatSlot(t *testing.T) {
	// 2025-07-09 is a Wednesday.
	r := models.RateRecord{
		ValidFrom: time.Date(2025, 7, 9, 14, 30, 0, 0, time.UTC),
		ValidTo:   time.Date(2025, 7, 9, 15, 0, 0, 0, time.UTC),
	}
	got := FormatSlot(r, time.UTC)
	if got != "Wed 14:30" {
		t.Errorf("FormatSlot = %q, want %q", got, "Wed 14:30")
	}
}
