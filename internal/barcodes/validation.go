package barcodes

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
)

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name, _, _ := strings.Cut(field.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// missingFields lists the JSON names of the fields that failed validation.
func missingFields(err error) []string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return nil
	}
	fields := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		fields = append(fields, fe.Field())
	}
	return fields
}

func (s *Service) validateSave(req SaveRequest) (Record, error) {
	if err := s.validate.Struct(req); err != nil {
		if fields := missingFields(err); len(fields) > 0 {
			return Record{}, fmt.Errorf("%w: %s", ErrFieldsRequired, strings.Join(fields, ", "))
		}
		return Record{}, err
	}

	weight, err := parseWeight(req.Weight)
	if err != nil {
		return Record{}, err
	}
	quantity, err := parseQuantity(req.Quantity)
	if err != nil {
		return Record{}, err
	}
	var zero []string
	if weight == 0 {
		zero = append(zero, "weight")
	}
	if quantity == 0 {
		zero = append(zero, "quantity")
	}
	if len(zero) > 0 {
		return Record{}, fmt.Errorf("%w: %s", ErrFieldsRequired, strings.Join(zero, ", "))
	}

	entry, err := ParseDate(req.EntryDate)
	if err != nil {
		return Record{}, err
	}
	expiry, err := ParseDate(req.ExpiryDate)
	if err != nil {
		return Record{}, err
	}
	withdrawal, err := optionalDate(req.WithdrawalDate)
	if err != nil {
		return Record{}, err
	}

	batch := req.Batch
	return Record{
		Code:           req.Barcode,
		Name:           req.Name,
		EntryDate:      &entry,
		ExpiryDate:     &expiry,
		WithdrawalDate: withdrawal,
		Weight:         &weight,
		Quantity:       &quantity,
		Batch:          &batch,
	}, nil
}

func (s *Service) validateUpdate(req UpdateRequest) (Record, error) {
	if err := s.validate.Struct(req); err != nil {
		if len(missingFields(err)) > 0 {
			return Record{}, ErrCodeRequired
		}
		return Record{}, err
	}

	entry, err := optionalDate(req.EntryDate)
	if err != nil {
		return Record{}, err
	}
	expiry, err := optionalDate(req.ExpiryDate)
	if err != nil {
		return Record{}, err
	}
	withdrawal, err := optionalDate(req.WithdrawalDate)
	if err != nil {
		return Record{}, err
	}

	rec := Record{
		Code:           req.Barcode,
		EntryDate:      entry,
		ExpiryDate:     expiry,
		WithdrawalDate: withdrawal,
		Batch:          req.Batch,
	}
	if req.Weight != nil {
		weight, err := parseWeight(*req.Weight)
		if err != nil {
			return Record{}, err
		}
		rec.Weight = &weight
	}
	if req.Quantity != nil {
		quantity, err := parseQuantity(*req.Quantity)
		if err != nil {
			return Record{}, err
		}
		rec.Quantity = &quantity
	}
	return rec, nil
}

// optionalDate treats a missing or blank value as NULL.
func optionalDate(value *string) (*Date, error) {
	if value == nil || strings.TrimSpace(*value) == "" {
		return nil, nil
	}
	d, err := ParseDate(*value)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func parseWeight(n json.Number) (float64, error) {
	v, err := strconv.ParseFloat(strings.TrimSpace(n.String()), 64)
	if err != nil || math.IsInf(v, 0) || math.IsNaN(v) {
		return 0, fmt.Errorf("%w: weight %q", ErrInvalidBody, n)
	}
	return v, nil
}

// parseQuantity accepts integral values, including ones written as 10.0.
func parseQuantity(n json.Number) (int64, error) {
	raw := strings.TrimSpace(n.String())
	if v, err := strconv.ParseInt(raw, 10, 64); err == nil {
		return v, nil
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil || f != math.Trunc(f) || math.Abs(f) >= math.MaxInt64 {
		return 0, fmt.Errorf("%w: quantity %q", ErrInvalidBody, n)
	}
	return int64(f), nil
}
