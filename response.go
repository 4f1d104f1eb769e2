package opspod

type ResponseType string

const (
	ResponseTypeStatus      ResponseType = "status"
	ResponseTypePartialText ResponseType = "partial-text"
	ResponseTypeWarning     ResponseType = "warning"
	ResponseTypeEnd         ResponseType = "end"
	ResponseTypeError       ResponseType = "error"
)

// Response represents a communication unit from the Agent to the caller/UI.
type Response struct {
	Content string       `json:"content,omitempty"`
	Type    ResponseType `json:"type"`
}
