package responses

const (
	TypeError   = "error"
	TypeSuccess = "success"
)

// Message is the body of every non-data response
type Message struct {
	Type    string `json:"type"`
	Message string `json:"message"`
	Code    int    `json:"code,omitzero"`
}
