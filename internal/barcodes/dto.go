package barcodes

import "encoding/json"

// SaveRequest is the body of POST /api/save-code. Zero values count as
// missing, so a weight or quantity of 0 is rejected. Numbers may arrive as
// JSON numbers or numeric strings.
type SaveRequest struct {
	Barcode        string      `json:"barcode" validate:"required"`
	Name           string      `json:"name" validate:"required"`
	EntryDate      string      `json:"entryDate" validate:"required"`
	ExpiryDate     string      `json:"expiryDate" validate:"required"`
	WithdrawalDate *string     `json:"withdrawalDate"`
	Weight         json.Number `json:"weight" validate:"required"`
	Quantity       json.Number `json:"quantity" validate:"required"`
	Batch          string      `json:"batch" validate:"required"`
}

// UpdateRequest is the body of PUT /api/update-code. Only the barcode is
// checked; omitted fields are written as NULL.
type UpdateRequest struct {
	Barcode        string       `json:"barcode" validate:"required"`
	EntryDate      *string      `json:"entryDate"`
	ExpiryDate     *string      `json:"expiryDate"`
	WithdrawalDate *string      `json:"withdrawalDate"`
	Weight         *json.Number `json:"weight"`
	Quantity       *json.Number `json:"quantity"`
	Batch          *string      `json:"batch"`
}

type checkResponse struct {
	Exists bool `json:"exists"`
}
