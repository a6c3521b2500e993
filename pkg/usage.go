package pkg

import (
	"fmt"
	"math"
)

// EstimateUsagePercent returns resident as a share of total memory, in
// percent rounded to two decimals. Both values must use the same unit.
func EstimateUsagePercent(resident uint64, total uint64) (float64, error) {
	if total == 0 {
		return 0, fmt.Errorf("%w: total memory must be positive", ErrInvalidInput)
	}
	percent := float64(resident) / float64(total) * 100
	return math.Round(percent*100) / 100, nil
}
