package helper

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"camrelay/apperror"

	"github.com/gorilla/mux"
)

func ReturnFailure(w http.ResponseWriter, err error) {
	w.Header().Set("Content-Type", "application/json")
	var errr apperror.Apperror
	if !errors.As(err, &errr) {
		errr = apperror.ServerError
	}

	code, msg := errr.StatusAndMessage()
	w.Header().Set("status", strconv.Itoa(code))
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "error", "message": msg})
}

func ReturnSuccess(w http.ResponseWriter, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("status", strconv.Itoa(http.StatusOK))
	w.WriteHeader(http.StatusOK)

	if data == nil {
		return
	}

	if msg, ok := data.(map[string]string); ok {
		_ = json.NewEncoder(w).Encode(msg)
		return
	}
	_ = json.NewEncoder(w).Encode(data)
}

// CameraID reads the {id} route variable.
func CameraID(r *http.Request) (int, error) {
	raw := mux.Vars(r)["id"]
	id, err := strconv.Atoi(raw)

	if err != nil {
		return 0, apperror.InvalidCamera.SetMessage("Invalid camera number " + strconv.Quote(raw))
	}
	return id, nil
}
