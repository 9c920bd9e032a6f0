package progression

import "github.com/lowaak/pulsefit/internal/zone"

// EstimateCalories estimates kcal burned using the Keytel regression, which
// has separate linear coefficient sets per biological sex. weightKg <= 0
// means the user never entered a weight; the estimate is skipped rather than
// guessed. Returns (0, false) when insufficient data.
func EstimateCalories(avgHeartRate, durationMinutes, age int, weightKg float64, male bool) (int, bool) {
	if weightKg <= 0 {
		return 0, false
	}
	if avgHeartRate <= 0 || durationMinutes <= 0 {
		return 0, false
	}

	var perMinute float64
	if male {
		perMinute = (-55.0969 + 0.6309*float64(avgHeartRate) + 0.1988*weightKg + 0.2017*float64(age)) / 4.184
	} else {
		perMinute = (-20.4022 + 0.4472*float64(avgHeartRate) - 0.1263*weightKg + 0.074*float64(age)) / 4.184
	}

	calories := int(perMinute * float64(durationMinutes))
	if calories < 0 {
		calories = 0
	}
	return calories, true
}

// EstimateEPOC approximates excess post-exercise oxygen consumption in kcal
// from time spent in the high-intensity zones. Rough by design - EPOC is
// typically 6-15% of total expenditure, scaling with intensity.
func EstimateEPOC(zoneSeconds zone.Times, durationMinutes int) int {
	if durationMinutes <= 0 {
		return 0
	}
	pushMinutes := float64(zoneSeconds.Seconds(zone.Push)) / 60.0
	peakMinutes := float64(zoneSeconds.Seconds(zone.Peak)) / 60.0
	epoc := int(pushMinutes*1.5 + peakMinutes*3.0)
	if epoc < 0 {
		epoc = 0
	}
	return epoc
}
