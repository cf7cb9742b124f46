package analysis

import (
	"gonum.org/v1/gonum/stat"

	"github.com/couchcryptid/incident-risk-zones/internal/domain"
)

// Smooth applies a circular moving average with half-window m: bin i becomes
// the mean of bins i-m..i+m, indices taken modulo 24. m <= 0 returns the raw
// counts.
func Smooth(h domain.HourHistogram, m int) []float64 {
	out := make([]float64, domain.HoursPerDay)
	if m <= 0 {
		for i, c := range h {
			out[i] = float64(c)
		}
		return out
	}

	width := float64(2*m + 1)
	for i := range out {
		var sum int
		for j := i - m; j <= i+m; j++ {
			sum += h[mod(j, domain.HoursPerDay)]
		}
		out[i] = float64(sum) / width
	}
	return out
}

// Threshold returns mean + k*sigma of values, sigma being the population
// standard deviation.
func Threshold(values []float64, k float64) (threshold, mu, sigma float64) {
	mu, sigma = stat.PopMeanStdDev(values, nil)
	return mu + k*sigma, mu, sigma
}

// DetectDangerSlots finds the contiguous runs of hours whose smoothed count
// reaches mean + k*sigma.
//
// The scan visits hours 0..24, hour 24 aliasing hour 0, so a run still open
// at midnight is closed there; no run is opened at that final step. Each slot records the first critical hour and
// the first non-critical hour after it (exclusive end). When every hour is
// critical, which includes any uniform histogram, no boundary is ever seen
// and the result is the single slot {0, 0}.
func DetectDangerSlots(h domain.HourHistogram, k float64, m int) []domain.DangerSlot {
	values := Smooth(h, m)
	threshold, _, _ := Threshold(values, k)

	var critical [domain.HoursPerDay]bool
	for i, v := range values {
		critical[i] = v >= threshold
	}

	slots := []domain.DangerSlot{}
	open := false
	start := 0
	for i := 0; i <= domain.HoursPerDay; i++ {
		idx := i % domain.HoursPerDay
		if critical[idx] && !open && i < domain.HoursPerDay {
			start = idx
			open = true
		}
		if open && (!critical[idx] || i == domain.HoursPerDay) {
			slots = append(slots, domain.DangerSlot{Start: start, End: idx})
			open = false
		}
	}
	return slots
}

func mod(a, n int) int {
	r := a % n
	if r < 0 {
		r += n
	}
	return r
}
