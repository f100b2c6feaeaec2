package metrics

import (
	"fmt"
	"math"
	"time"

	"github.com/dustin/go-humanize"
)

// FormatDistance renders meters as kilometers with two decimals
func FormatDistance(meters float64) string {
	return humanize.CommafWithDigits(meters/1000, 2) + "km"
}

// FormatElevation renders meters rounded to whole meters
func FormatElevation(meters float64) string {
	return humanize.Comma(int64(math.Round(meters))) + "m"
}

// FormatPace renders time per kilometer as m:ss/km
func FormatPace(pace time.Duration) string {
	if pace <= 0 {
		return "-"
	}
	secs := int64(pace.Round(time.Second) / time.Second)
	return fmt.Sprintf("%d:%02d/km", secs/60, secs%60)
}

// FormatSpeed renders meters per second as km/h
func FormatSpeed(mps float64) string {
	if mps <= 0 {
		return "-"
	}
	return humanize.FtoaWithDigits(mps*3.6, 1) + "km/h"
}

// FormatDuration renders a duration as h:mm:ss, or m:ss under an hour
func FormatDuration(d time.Duration) string {
	if d <= 0 {
		return "-"
	}
	secs := int64(d.Round(time.Second) / time.Second)
	h, m, s := secs/3600, (secs/60)%60, secs%60
	if h > 0 {
		return fmt.Sprintf("%d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%d:%02d", m, s)
}

// FormatArea renders square meters, switching to km² from one km²
func FormatArea(sqm float64) string {
	if sqm >= 1e6 {
		return humanize.CommafWithDigits(sqm/1e6, 2) + "km²"
	}
	return humanize.Comma(int64(math.Round(sqm))) + "m²"
}

// Rows returns label/value pairs in display order
func (m Metrics) Rows() [][2]string {
	return [][2]string{
		{"Distance", FormatDistance(m.Distance)},
		{"Pace", FormatPace(m.Pace)},
		{"Time", FormatDuration(m.Duration)},
		{"Discovered", FormatArea(m.DiscoveredArea)},
		{"Avg speed", FormatSpeed(m.AvgSpeed)},
		{"Max speed", FormatSpeed(m.MaxSpeed)},
		{"Min ASML", elevationOrDash(m, m.MinElevation)},
		{"Max ASML", elevationOrDash(m, m.MaxElevation)},
		{"ASML gain", elevationOrDash(m, m.Gain)},
		{"ASML loss", elevationOrDash(m, m.Loss)},
	}
}

func elevationOrDash(m Metrics, v float64) string {
	if !m.HasElevation {
		return "-"
	}
	return FormatElevation(v)
}
