package dto

// PredictRequest é o corpo de POST /predict
type PredictRequest struct {
	UserID   int64 `json:"user_id"`
	EventID  int64 `json:"event_id"`
	OptionID int   `json:"option_id"`
}
