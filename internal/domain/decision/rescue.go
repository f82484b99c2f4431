package decision

import (
	"encoding/json"
	"time"
)

// Rescue pacing. An option's pattern rests for the throttle window
// after being served; three rescue resolutions with no approval in
// between mark the household exhausted.
const (
	RescueThrottleWindow = 72 * time.Hour
	RescueExhaustionRuns = 3
)

// RescueOption is one entry of the built-in rescue catalog. Key is
// the stable pattern identity the throttle tracks.
type RescueOption struct {
	Key         string  `json:"key"`
	Type        Type    `json:"rescueType"`
	Title       string  `json:"title"`
	EstMinutes  int     `json:"estMinutes"`
	VendorKey   string  `json:"vendorKey,omitempty"`
	DeepLinkURL string  `json:"deepLinkUrl,omitempty"`
	Confidence  float64 `json:"confidence"`
}

// RescuePayload is the stored record of a served rescue. It rides in
// the event payload so later selections can read which pattern ran.
type RescuePayload struct {
	TriggerReason string       `json:"triggerReason"`
	Rescue        RescueOption `json:"rescue"`
}

// RescueCatalog returns the built-in rescue options. The catalog is
// static; households share it.
func RescueCatalog() []RescueOption {
	return []RescueOption{
		{
			Key:         "order-pizza",
			Type:        TypeOrder,
			Title:       "Order pizza",
			EstMinutes:  35,
			VendorKey:   "pizza-local",
			DeepLinkURL: "https://order.example.com/pizza-local",
			Confidence:  0.90,
		},
		{
			Key:        "zero-cook-breakfast",
			Type:       TypeZeroCook,
			Title:      "Breakfast for dinner: eggs, toast, fruit",
			EstMinutes: 10,
			Confidence: 0.85,
		},
		{
			Key:         "order-thai",
			Type:        TypeOrder,
			Title:       "Order Thai takeout",
			EstMinutes:  40,
			VendorKey:   "thai-express",
			DeepLinkURL: "https://order.example.com/thai-express",
			Confidence:  0.80,
		},
		{
			Key:        "zero-cook-snack-plate",
			Type:       TypeZeroCook,
			Title:      "Snack plate: cheese, crackers, whatever's around",
			EstMinutes: 5,
			Confidence: 0.70,
		},
	}
}

// SelectRescue picks the highest-confidence option whose pattern has
// not been served inside the throttle window. Ties break by catalog
// order. When every pattern is resting, the best option is served
// anyway; rescue mode never comes back empty-handed.
func SelectRescue(options []RescueOption, recent []Event, now time.Time) RescueOption {
	used := usedRescueKeys(recent, now.Add(-RescueThrottleWindow))

	best := -1
	for i, opt := range options {
		if _, ok := used[opt.Key]; ok {
			continue
		}
		if best < 0 || opt.Confidence > options[best].Confidence {
			best = i
		}
	}
	if best < 0 {
		for i, opt := range options {
			if best < 0 || opt.Confidence > options[best].Confidence {
				best = i
			}
		}
	}
	return options[best]
}

// RescueStreak counts rescue resolutions, newest first, stopping at
// the first approval. Events with other dispositions do not break
// the streak; only an approval resets it.
func RescueStreak(recent []Event) int {
	streak := 0
	for _, e := range recent {
		switch e.UserAction {
		case ActionDRMTriggered:
			streak++
		case ActionApproved:
			return streak
		}
	}
	return streak
}

func usedRescueKeys(events []Event, cutoff time.Time) map[string]struct{} {
	used := make(map[string]struct{})
	for _, e := range events {
		if e.UserAction != ActionDRMTriggered || e.EffectiveAt().Before(cutoff) {
			continue
		}
		var p RescuePayload
		if err := json.Unmarshal(e.Payload, &p); err != nil || p.Rescue.Key == "" {
			continue
		}
		used[p.Rescue.Key] = struct{}{}
	}
	return used
}
