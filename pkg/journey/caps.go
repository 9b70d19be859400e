package journey

import (
	"fmt"
	"time"

	"github.com/dukex/journey/pkg/models"
)

// CapWindow is a frequency-cap window of the organization policy.
type CapWindow struct {
	Name     string
	Duration time.Duration
	Limit    int
}

// Rolling cap window lengths.
const (
	Day   = 24 * time.Hour
	Week  = 7 * Day
	Month = 30 * Day
)

// CapWindows lists the configured caps of a policy. A zero cap is not enforced.
func CapWindows(policy *models.OrganizationPolicy) []CapWindow {
	if policy == nil {
		return nil
	}

	windows := make([]CapWindow, 0, 3)

	for _, w := range []CapWindow{
		{Name: "day", Duration: Day, Limit: policy.CapPerDay},
		{Name: "week", Duration: Week, Limit: policy.CapPerWeek},
		{Name: "month", Duration: Month, Limit: policy.CapPerMonth},
	} {
		if w.Limit > 0 {
			windows = append(windows, w)
		}
	}

	return windows
}

// CapExceeded reports whether sent is over any configured cap of the policy. It only
// looks at a single run's count; historical sends are checked by the execution path.
func CapExceeded(sent int, policy *models.OrganizationPolicy) bool {
	for _, w := range CapWindows(policy) {
		if sent > w.Limit {
			return true
		}
	}

	return false
}

// String describes the window for trace details.
func (w CapWindow) String() string {
	return fmt.Sprintf("%d per %s", w.Limit, w.Name)
}
