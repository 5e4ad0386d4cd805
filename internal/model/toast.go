package model

// Severity grades a toast message.
type Severity string

const (
	SeveritySuccess Severity = "success"
	SeverityWarning Severity = "warning"
	SeverityError   Severity = "error"
	SeverityInfo    Severity = "info"
)

// Toast is a short-lived, user-facing notification.
type Toast struct {
	Message  string   `json:"message"`
	Severity Severity `json:"severity"`
}
