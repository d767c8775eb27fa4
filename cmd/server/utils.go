package main

import (
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/lychee-technology/swatches"
)

// APIResponse is the standard response format
type APIResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
	Code    string      `json:"code,omitempty"`
}

// writeJSON writes JSON response to http.ResponseWriter
func writeJSON(w http.ResponseWriter, statusCode int, data interface{}) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	return json.NewEncoder(w).Encode(data)
}

// writeError writes an error response
func writeError(w http.ResponseWriter, statusCode int, message string) error {
	return writeJSON(w, statusCode, APIResponse{
		Success: false,
		Error:   message,
	})
}

// writeSwatchError maps err to a status code and writes it with its error code.
func writeSwatchError(w http.ResponseWriter, err error) error {
	se, ok := swatches.AsSwatchError(err)
	if !ok {
		return writeError(w, http.StatusInternalServerError, err.Error())
	}
	return writeJSON(w, statusForError(se), APIResponse{
		Success: false,
		Error:   se.Message,
		Code:    se.Code,
	})
}

func statusForError(se *swatches.SwatchError) int {
	switch se.Type {
	case swatches.ErrorTypeValidation:
		return http.StatusBadRequest
	case swatches.ErrorTypeNotFound:
		return http.StatusNotFound
	case swatches.ErrorTypeConflict:
		return http.StatusConflict
	case swatches.ErrorTypeUnauthorized:
		return http.StatusUnauthorized
	case swatches.ErrorTypeExport:
		if se.Code == swatches.ErrCodeExportUnavailable {
			return http.StatusServiceUnavailable
		}
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// writeSuccess writes a success response
func writeSuccess(w http.ResponseWriter, statusCode int, data interface{}) error {
	return writeJSON(w, statusCode, APIResponse{Success: true, Data: data})
}

// readJSONBody reads and decodes JSON from request body
func readJSONBody(r *http.Request, v interface{}) error {
	defer r.Body.Close()
	return json.NewDecoder(r.Body).Decode(v)
}

// parseProductID parses a positive product id path value.
func parseProductID(s string) (swatches.ProductID, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid product id %q", s)
	}
	return swatches.ProductID(id), nil
}

// parseTermID parses a term id path value; "0" selects the add-term form.
func parseTermID(s string) (swatches.TermID, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id < 0 {
		return 0, fmt.Errorf("invalid term id %q", s)
	}
	return swatches.TermID(id), nil
}

// readSubmission accepts a JSON object of strings or an HTML form post.
func readSubmission(r *http.Request) (map[string]string, error) {
	if strings.HasPrefix(r.Header.Get("Content-Type"), "application/x-www-form-urlencoded") {
		if err := r.ParseForm(); err != nil {
			return nil, err
		}
		out := make(map[string]string, len(r.PostForm))
		for k, v := range r.PostForm {
			if len(v) > 0 {
				out[k] = v[0]
			}
		}
		return out, nil
	}
	var out map[string]string
	if err := readJSONBody(r, &out); err != nil {
		return nil, err
	}
	if out == nil {
		out = map[string]string{}
	}
	return out, nil
}

var errMissingToken = errors.New("missing bearer token")

// checkBearer compares the Authorization header against token in constant time.
func checkBearer(r *http.Request, token string) error {
	h := r.Header.Get("Authorization")
	got, ok := strings.CutPrefix(h, "Bearer ")
	if !ok || got == "" {
		return errMissingToken
	}
	if subtle.ConstantTimeCompare([]byte(got), []byte(token)) != 1 {
		return errors.New("invalid bearer token")
	}
	return nil
}
