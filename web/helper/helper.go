package helper

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"detectconsole/apperror"
)

func ReturnFailure(w http.ResponseWriter, err error) {
	var errr apperror.Apperror
	if !errors.As(err, &errr) {
		errr = apperror.ServerError
	}

	code, msg := errr.StatusAndMessage()
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("status", strconv.Itoa(code))
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": msg})
}

func ReturnSuccess(w http.ResponseWriter, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("status", strconv.Itoa(http.StatusOK))
	w.WriteHeader(http.StatusOK)

	if data == nil {
		return
	}

	_ = json.NewEncoder(w).Encode(data)
}
