package responses

import (
	"log"
	"net/http"

	"github.com/go-json-experiment/json"
)

// JSON streams payload with status. Headers are frozen once it returns
func JSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.MarshalWrite(w, payload); err != nil {
		log.Printf("[ERROR][HTTP] json response: %v", err)
	}
}

func Error(w http.ResponseWriter, status int, msg string) {
	JSON(w, status, Message{Type: TypeError, Message: msg})
}

// ErrorCode is Error with an application code the client can branch on
func ErrorCode(w http.ResponseWriter, status int, code int, msg string) {
	JSON(w, status, Message{Type: TypeError, Message: msg, Code: code})
}

func Success(w http.ResponseWriter, msg string) {
	JSON(w, http.StatusOK, Message{Type: TypeSuccess, Message: msg})
}
