package zone

// Zone is one of the five heart-rate intensity bands. The ordinal values are
// stable and used as array indices and as the persisted representation.
type Zone int

// Define the constants related to the type
const (
	Rest   Zone = iota // 0
	WarmUp             // 1
	Active             // 2
	Push               // 3
	Peak               // 4
)

// Count is the number of zones; Times arrays are indexed by Zone ordinal.
const Count = 5

// Default lower bounds as percentage of max heart rate
const (
	DefaultWarmUpPercent = 50
	DefaultActivePercent = 60
	DefaultPushPercent   = 70
	DefaultPeakPercent   = 85
)

// PointsPerMinute returns the burn points earned per full minute in the zone.
func (z Zone) PointsPerMinute() int {
	switch z {
	case Active:
		return 1
	case Push:
		return 2
	case Peak:
		return 3
	default:
		// Rest and WarmUp earn nothing
		return 0
	}
}

func (z Zone) String() string {
	switch z {
	case Rest:
		return "Rest"
	case WarmUp:
		return "Warm-Up"
	case Active:
		return "Active"
	case Push:
		return "Push"
	case Peak:
		return "Peak"
	default:
		// This shouldn't happen...
		return "Unknown"
	}
}

// All lists the zones in ascending intensity order.
var All = [Count]Zone{Rest, WarmUp, Active, Push, Peak}

// Thresholds holds the lower percentage-of-max-HR bound for each zone above
// Rest. Users can override the defaults per profile.
type Thresholds struct {
	WarmUpPercent int
	ActivePercent int
	PushPercent   int
	PeakPercent   int
}

// DefaultThresholds returns the standard zone bounds.
func DefaultThresholds() Thresholds {
	return Thresholds{
		WarmUpPercent: DefaultWarmUpPercent,
		ActivePercent: DefaultActivePercent,
		PushPercent:   DefaultPushPercent,
		PeakPercent:   DefaultPeakPercent,
	}
}

// Classify maps a heart rate to its zone for the given max heart rate and
// thresholds. Bounds are checked from highest to lowest and ties resolve to
// the higher zone. Pure function, safe to call from any goroutine.
func Classify(bpm, maxHR int, t Thresholds) Zone {
	if maxHR <= 0 {
		return Rest
	}
	percentage := bpm * 100 / maxHR
	switch {
	case percentage >= t.PeakPercent:
		return Peak
	case percentage >= t.PushPercent:
		return Push
	case percentage >= t.ActivePercent:
		return Active
	case percentage >= t.WarmUpPercent:
		return WarmUp
	default:
		return Rest
	}
}

// Percentage returns bpm as a percentage of max heart rate, clamped to
// [0, 100] for display.
func Percentage(bpm, maxHR int) int {
	if maxHR <= 0 {
		return 0
	}
	p := bpm * 100 / maxHR
	if p < 0 {
		p = 0
	} else if p > 100 {
		p = 100
	}
	return p
}

// Times tracks elapsed seconds per zone as a fixed array indexed by zone
// ordinal, so every zone is always present with an explicit zero.
type Times [Count]int

// Add accrues seconds to a zone's bucket.
func (t *Times) Add(z Zone, seconds int) {
	t[z] += seconds
}

// Seconds returns the accrued seconds for a zone.
func (t Times) Seconds(z Zone) int {
	return t[z]
}

// Total returns the sum of all zone buckets.
func (t Times) Total() int {
	total := 0
	for _, s := range t {
		total += s
	}
	return total
}

// PushPeakSeconds returns the combined high-intensity time, the metric used
// for zone-target quests and the hyperfocus achievement.
func (t Times) PushPeakSeconds() int {
	return t[Push] + t[Peak]
}
