package service

// BatchResult reports one batch pass. Row-level failures land in Errors
// without aborting the loop; Success is true only when Errors is empty.
type BatchResult struct {
	Success   bool     `json:"success"`
	Processed int      `json:"processed"`
	Errors    []string `json:"errors"`
}

func batchResult(processed int, errs []string) BatchResult {
	return BatchResult{
		Success:   len(errs) == 0,
		Processed: processed,
		Errors:    errs,
	}
}

func fatalResult(msg string) BatchResult {
	return BatchResult{
		Success: false,
		Errors:  []string{msg},
	}
}

// RewardCronResult aggregates the three concurrent reward sub-operations.
type RewardCronResult struct {
	Success         bool        `json:"success"`
	DailyRewards    BatchResult `json:"daily_rewards"`
	CompoundRewards BatchResult `json:"compound_rewards"`
	StakesCompleted int64       `json:"stakes_completed"`
	Errors          []string    `json:"errors"`
}
