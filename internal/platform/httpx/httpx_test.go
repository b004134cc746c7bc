package httpx

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatusFor(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, http.StatusOK},
		{"validation", fmt.Errorf("%w: barcode", ErrValidation), http.StatusBadRequest},
		{"not found", fmt.Errorf("barcode %w", ErrNotFound), http.StatusNotFound},
		{"duplicate", ErrDuplicate, http.StatusInternalServerError},
		{"other", errors.New("connection reset"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, StatusFor(tc.err))
		})
	}
}

func TestMessageOmitsEmptyData(t *testing.T) {
	rr := httptest.NewRecorder()
	Message(rr, http.StatusBadRequest, "Todos los campos son obligatorios.")

	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, "application/json; charset=utf-8", rr.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"message":"Todos los campos son obligatorios."}`, rr.Body.String())
}

func TestMessageWithData(t *testing.T) {
	rr := httptest.NewRecorder()
	MessageWithData(rr, http.StatusOK, "ok", map[string]string{"code": "123"})

	assert.JSONEq(t, `{"message":"ok","data":{"code":"123"}}`, rr.Body.String())
}

func TestDecodeJSONRejectsOversizedBody(t *testing.T) {
	body := `{"barcode":"` + strings.Repeat("9", MaxBodyBytes) + `"}`
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	rr := httptest.NewRecorder()

	var target map[string]string
	err := DecodeJSON(rr, req, &target)
	require.Error(t, err)
}

func TestIsJSON(t *testing.T) {
	cases := map[string]bool{
		"":                                  true,
		"application/json":                  true,
		"application/json; charset=utf-8":   true,
		"application/merge-patch+json":      true,
		"application/x-www-form-urlencoded": false,
		"text/plain":                        false,
		"not a media type;;":                false,
	}
	for contentType, want := range cases {
		req := httptest.NewRequest(http.MethodPost, "/", nil)
		if contentType != "" {
			req.Header.Set("Content-Type", contentType)
		}
		assert.Equal(t, want, IsJSON(req), contentType)
	}
}
