package services

import (
	"slices"
)

// Lower bound on travelers per partition when none is configured.
const DefaultPartitionFloor = 1000

// PartitionPlan splits a geography into Count partitions of at most PerPart
// whole travelers each.
type PartitionPlan struct {
	Count   int
	PerPart int
}

// PlanPartitions sizes partitions for travelers rows against target. The
// count is ceil(travelers/target) and the travelers are then spread evenly,
// so 10,050 travelers against a target of 5,000 gives 3 partitions of 3,350.
func PlanPartitions(travelers, target int) PartitionPlan {
	if target < 1 {
		target = 1
	}
	if travelers <= 0 {
		return PartitionPlan{Count: 1, PerPart: 1}
	}
	k := (travelers + target - 1) / target
	return PartitionPlan{Count: k, PerPart: (travelers + k - 1) / k}
}

// TargetPartitionSize returns the median of the per-geography traveler counts,
// raised to floor.
func TargetPartitionSize(counts []int, floor int) int {
	if floor < 1 {
		floor = DefaultPartitionFloor
	}
	if len(counts) == 0 {
		return floor
	}
	sorted := slices.Clone(counts)
	slices.Sort(sorted)

	var median int
	if n := len(sorted); n%2 == 1 {
		median = sorted[n/2]
	} else {
		median = (sorted[n/2-1] + sorted[n/2]) / 2
	}
	return max(median, floor)
}
