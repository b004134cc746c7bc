package barcodes

import (
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/stocktrack/barcodes/internal/platform/httpx"
	"github.com/stocktrack/barcodes/internal/shared"
)

// Handler wires the /api endpoints.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, service: service}
}

// MountRoutes registers the barcode routes on the provided router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/check-code", h.checkCode)
	r.Get("/get-products", h.listProducts)
	r.Post("/save-code", h.saveCode)
	r.Put("/update-code", h.updateCode)
}

func (h *Handler) checkCode(w http.ResponseWriter, r *http.Request) {
	code := r.URL.Query().Get("barcode")
	exists, err := h.service.CheckCode(r.Context(), code)
	if err != nil {
		h.fail(w, r, "check barcode", code, err, func(error) string { return msgCodeRequired }, msgCheckFailed)
		return
	}
	httpx.JSON(w, http.StatusOK, checkResponse{Exists: exists})
}

func (h *Handler) listProducts(w http.ResponseWriter, r *http.Request) {
	records, err := h.service.List(r.Context())
	if err != nil {
		h.fail(w, r, "list products", "", err, nil, msgListFailed)
		return
	}
	h.logger.Debug("products listed", slog.Int("count", len(records)))
	httpx.JSON(w, http.StatusOK, records)
}

func (h *Handler) saveCode(w http.ResponseWriter, r *http.Request) {
	var req SaveRequest
	if !h.decode(w, r, &req) {
		return
	}

	created, err := h.service.Save(r.Context(), req)
	if err != nil {
		h.fail(w, r, "save barcode", req.Barcode, err, func(err error) string {
			if msg, ok := inputMessage(err); ok {
				return msg
			}
			return msgFieldsRequired
		}, msgSaveFailed)
		return
	}
	httpx.MessageWithData(w, http.StatusOK, msgSaved, created)
}

func (h *Handler) updateCode(w http.ResponseWriter, r *http.Request) {
	var req UpdateRequest
	if !h.decode(w, r, &req) {
		return
	}

	updated, err := h.service.Update(r.Context(), req)
	if err != nil {
		h.fail(w, r, "update barcode", req.Barcode, err, func(err error) string {
			if msg, ok := inputMessage(err); ok {
				return msg
			}
			return msgCodeRequired
		}, msgUpdateFailed)
		return
	}
	httpx.MessageWithData(w, http.StatusOK, msgUpdated, updated)
}

// decode reads the JSON body into target. An empty or non-JSON body leaves
// target at its zero value, so the field checks report what is missing.
func (h *Handler) decode(w http.ResponseWriter, r *http.Request, target any) bool {
	if !httpx.IsJSON(r) {
		return true
	}
	if err := httpx.DecodeJSON(w, r, target); err != nil && !errors.Is(err, io.EOF) {
		httpx.Message(w, http.StatusBadRequest, msgInvalidBody)
		return false
	}
	return true
}

func inputMessage(err error) (string, bool) {
	switch {
	case errors.Is(err, ErrInvalidDate):
		return msgInvalidDate, true
	case errors.Is(err, ErrInvalidBody):
		return msgInvalidBody, true
	}
	return "", false
}

// fail writes the status derived from err. invalid picks the 400 message of
// the route; store failures are logged and answered with storeMsg.
func (h *Handler) fail(w http.ResponseWriter, r *http.Request, op, code string, err error, invalid func(error) string, storeMsg string) {
	status := httpx.StatusFor(err)
	switch status {
	case http.StatusBadRequest:
		if invalid != nil {
			httpx.Message(w, status, invalid(err))
			return
		}
	case http.StatusNotFound:
		httpx.Message(w, status, msgNotFound)
		return
	}
	h.storeFailure(r, op, code, err)
	httpx.Message(w, http.StatusInternalServerError, storeMsg)
}

func (h *Handler) storeFailure(r *http.Request, op, code string, err error) {
	attrs := []any{
		slog.String("correlation_id", shared.CorrelationIDFromContext(r.Context())),
		slog.Bool("duplicate", errors.Is(err, ErrDuplicate)),
		slog.Any("error", err),
	}
	if code != "" {
		attrs = append(attrs, slog.String("barcode", code))
	}
	h.logger.Error(op, attrs...)
}
