package events

// StakePlaced é publicado pelo ledger-service após o commit de um palpite
type StakePlaced struct {
	MessageID  string `json:"message_id"`
	StakeID    int64  `json:"stake_id"`
	UserID     int64  `json:"user_id"`
	EventID    int64  `json:"event_id"`
	OptionID   int    `json:"option_id"`
	Cost       int64  `json:"cost"`
	NewBalance int64  `json:"new_balance"`
	TsUnixMs   int64  `json:"ts_unix_ms"`
}
