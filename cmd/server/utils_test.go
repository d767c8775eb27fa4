package main

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/lychee-technology/swatches"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseProductID(t *testing.T) {
	tests := []struct {
		in      string
		want    swatches.ProductID
		wantErr bool
	}{
		{in: "1", want: 1},
		{in: "9007199254740991", want: 9007199254740991},
		{in: "0", wantErr: true},
		{in: "-3", wantErr: true},
		{in: "x", wantErr: true},
		{in: "", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := parseProductID(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseTermIDAllowsZero(t *testing.T) {
	id, err := parseTermID("0")
	require.NoError(t, err)
	assert.Equal(t, swatches.TermID(0), id)

	_, err = parseTermID("-1")
	assert.Error(t, err)
}

func TestStatusForError(t *testing.T) {
	tests := []struct {
		name string
		err  *swatches.SwatchError
		want int
	}{
		{"validation", swatches.NewValidationError("kind", "bad"), http.StatusBadRequest},
		{"not found", swatches.NewUnknownTaxonomyError("pa_size"), http.StatusNotFound},
		{"conflict", swatches.NewRunLockLostError("run-1"), http.StatusConflict},
		{"unauthorized", swatches.NewUnauthorizedError("no"), http.StatusUnauthorized},
		{"storage", swatches.NewStorageError("write", errors.New("x")), http.StatusInternalServerError},
		{"export failed", swatches.NewExportError("upload", errors.New("x")), http.StatusBadGateway},
		{"export unavailable", swatches.NewSwatchError(swatches.ErrorTypeExport, swatches.ErrCodeExportUnavailable, "off"), http.StatusServiceUnavailable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, statusForError(tt.err))
		})
	}
}

func TestWriteSwatchErrorPlainError(t *testing.T) {
	rr := httptest.NewRecorder()
	require.NoError(t, writeSwatchError(rr, errors.New("plain")))

	assert.Equal(t, http.StatusInternalServerError, rr.Code)
	assert.Equal(t, "application/json", rr.Header().Get("Content-Type"))
	assert.Contains(t, rr.Body.String(), "plain")
}

func TestCheckBearer(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	assert.ErrorIs(t, checkBearer(req, "tok"), errMissingToken)

	req.Header.Set("Authorization", "Basic tok")
	assert.ErrorIs(t, checkBearer(req, "tok"), errMissingToken)

	req.Header.Set("Authorization", "Bearer nope")
	assert.Error(t, checkBearer(req, "tok"))

	req.Header.Set("Authorization", "Bearer tok")
	assert.NoError(t, checkBearer(req, "tok"))
}

func TestReadSubmissionEmptyJSONObject(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`null`))
	got, err := readSubmission(req)
	require.NoError(t, err)
	assert.Empty(t, got)
}
