package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
)

var errTrailingData = errors.New("request body must contain a single JSON object")

// Success sends a JSON response with the given status.
// The body is encoded before anything is written, so an encoding
// failure leaves w untouched for the caller to report.
func Success(w http.ResponseWriter, statusCode int, data interface{}) error {
	if data == nil {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(statusCode)
		return nil
	}

	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(data); err != nil {
		return err
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	// A failed write means the client is gone; there is nobody left to tell.
	w.Write(buf.Bytes())
	return nil
}

// DecodeJSON reads a JSON request body of at most maxBytes into v.
// Unknown fields and trailing data are rejected.
func DecodeJSON(w http.ResponseWriter, r *http.Request, v interface{}, maxBytes int64) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBytes)

	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()

	if err := decoder.Decode(v); err != nil {
		return err
	}
	if decoder.More() {
		return errTrailingData
	}
	return nil
}
