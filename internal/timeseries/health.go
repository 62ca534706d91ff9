package timeseries

// VibrationHealthScore maps a mean vibration magnitude (mm/s) onto a 0-100
// machine health score. Scores degrade slowly in the normal band and steeply
// once the mean crosses the warning and damage thresholds.
func VibrationHealthScore(avg float64) float64 {
	switch {
	case avg > 10:
		s := 30 - (avg-10)*3
		if s < 0 {
			return 0
		}
		return s
	case avg > 5:
		return 70 - (avg-5)*8
	default:
		return 100 - avg*6
	}
}
