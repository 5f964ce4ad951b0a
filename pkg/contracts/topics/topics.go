package topics

const (
	// Stakes
	StakePlaced = "stake_placed"

	// Settlement
	EventSettled = "event_settled"

	// DLQs
	EventSettledDLQ = "event_settled_dlq"
)
