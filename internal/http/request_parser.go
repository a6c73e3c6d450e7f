// Package http provides the JSON API server and its handlers.
//
// This file implements utilities for parsing and validating request bodies,
// path values and query parameters.

package http

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"presupuesto/internal/core"

	"github.com/shopspring/decimal"
)

const maxBodyBytes = 64 << 10

var errEmptyBody = errors.New("request body is required")

// amountField accepts a JSON number or an es-AR formatted string such as
// "1.234,50". Set is false when the field was absent or null.
type amountField struct {
	Value decimal.Decimal
	Set   bool
}

func (a *amountField) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*a = amountField{}
		return nil
	}

	var (
		d   decimal.Decimal
		err error
	)
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return fmt.Errorf("%w: %s", core.ErrInvalidAmount, b)
		}
		d, err = core.ParseAmount(s)
	} else {
		d, err = decimal.NewFromString(string(b))
		if err != nil {
			err = fmt.Errorf("%w: %s", core.ErrInvalidAmount, b)
		}
	}
	if err != nil {
		return err
	}
	*a = amountField{Value: d, Set: true}
	return nil
}

// Ptr returns the value for patch structs; nil when the field was not sent.
func (a amountField) Ptr() *decimal.Decimal {
	if !a.Set {
		return nil
	}
	v := a.Value
	return &v
}

// Require returns the value or a validation error naming field.
func (a amountField) Require(field string) (decimal.Decimal, error) {
	if !a.Set {
		return decimal.Zero, fmt.Errorf("%w: %s is required", core.ErrInvalidAmount, field)
	}
	return a.Value, nil
}

type (
	settingsRequest struct {
		PurchasePercent *int    `json:"purchasePercent"`
		Timezone        *string `json:"timezone"`
	}

	salesRequest struct {
		Amount amountField `json:"amount"`
	}

	commitmentRequest struct {
		Planned amountField `json:"planned"`
		Paid    amountField `json:"paid"`
	}

	purchaseRequest struct {
		Date     core.Date   `json:"date"`
		Amount   amountField `json:"amount"`
		Category string      `json:"category"`
		Note     string      `json:"note"`
	}

	suggestRequest struct {
		Description string `json:"description"`
	}
)

func (p settingsRequest) patch() core.SettingsPatch {
	patch := core.SettingsPatch{PurchasePercent: p.PurchasePercent}
	if p.Timezone != nil {
		tz := sanitizeInput(*p.Timezone)
		patch.Timezone = &tz
	}
	return patch
}

func (c commitmentRequest) patch() core.CommitmentPatch {
	return core.CommitmentPatch{Planned: c.Planned.Ptr(), Paid: c.Paid.Ptr()}
}

func (p purchaseRequest) record() (core.PurchaseRecord, error) {
	amount, err := p.Amount.Require("amount")
	if err != nil {
		return core.PurchaseRecord{}, err
	}
	return core.PurchaseRecord{
		Date:     p.Date,
		Amount:   amount,
		Category: sanitizeInput(p.Category),
		Note:     sanitizeInput(p.Note),
	}, nil
}

// decodeJSON reads a single JSON object from the body into dst. Unknown
// fields and trailing data are rejected.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return errEmptyBody
		}
		return err
	}
	if dec.More() {
		return errors.New("request body must contain a single JSON object")
	}
	return nil
}

// bodyError maps a decodeJSON failure onto a response. Values that parsed
// as JSON but failed domain checks are 422, malformed bodies are 400.
func bodyError(err error) *JSONResponseBuilder {
	if core.IsValidation(err) {
		return UnprocessableEntityError(err.Error())
	}
	var maxErr *http.MaxBytesError
	if errors.As(err, &maxErr) {
		return ErrorResponse(http.StatusRequestEntityTooLarge, "request body too large")
	}
	return BadRequestError("invalid request body: " + err.Error())
}

// parseBoolQuery reads a boolean query parameter, defaulting to false.
func parseBoolQuery(r *http.Request, key string) (bool, error) {
	v := strings.TrimSpace(r.URL.Query().Get(key))
	if v == "" {
		return false, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("invalid %s %q: must be true or false", key, v)
	}
	return b, nil
}

// parseLimitQuery reads a positive integer "limit" parameter. Zero means unset.
func parseLimitQuery(r *http.Request) (int, error) {
	v := strings.TrimSpace(r.URL.Query().Get("limit"))
	if v == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 1 {
		return 0, fmt.Errorf("invalid limit %q: must be a positive integer", v)
	}
	return n, nil
}
