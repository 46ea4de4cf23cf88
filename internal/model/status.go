package model

// Status is the outcome sentinel attached to every analysis result. Recoverable
// conditions are reported through a status instead of an error.
type Status string

const (
	StatusOK               Status = "ok"
	StatusNoData           Status = "no_data"
	StatusNoUsers          Status = "no_users_found"
	StatusMissingUserID    Status = "missing_user_id"
	StatusLocationNotFound Status = "location_not_found"
	StatusFailed           Status = "failed"
)

// Message returns a human readable explanation of the status.
func (s Status) Message() string {
	switch s {
	case StatusOK:
		return "ok"
	case StatusNoData:
		return "no data"
	case StatusNoUsers:
		return "no users found"
	case StatusMissingUserID:
		return "cannot compute: no user identifier in input"
	case StatusLocationNotFound:
		return "location not found"
	case StatusFailed:
		return "analysis failed"
	default:
		return string(s)
	}
}
