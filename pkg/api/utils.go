package api

import (
	"encoding/json"
	"fmt"
	"net/http"
)

func respond(w http.ResponseWriter, status int, o interface{}) {
	data, err := json.Marshal(o)
	if err != nil {
		log.LogError(err, "cannot marshal response")
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(data)
}

func respondError(w http.ResponseWriter, status int, msg string, args ...interface{}) {
	respond(w, status, &Error{fmt.Sprintf(msg, args...)})
}
