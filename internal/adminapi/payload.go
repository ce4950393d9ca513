package adminapi

import (
	"bytes"
	stdjson "encoding/json"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/spf13/cast"
)

var errMissing = errors.New("missing value")

// numberText returns the literal of a JSON number or numeric string.
func numberText(raw stdjson.RawMessage) (string, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return "", errMissing
	}
	if raw[0] == '"' {
		var s string
		if err := stdjson.Unmarshal(raw, &s); err != nil {
			return "", err
		}
		return s, nil
	}
	switch raw[0] {
	case '{', '[', 't', 'f':
		return "", fmt.Errorf("not a number: %s", raw)
	}
	return string(raw), nil
}

// parsePrice accepts a JSON number or a numeric string.
func parsePrice(raw stdjson.RawMessage) (decimal.Decimal, error) {
	text, err := numberText(raw)
	if err != nil {
		return decimal.Zero, err
	}
	return decimal.NewFromString(text)
}

// parseQuantity accepts an integral JSON number or numeric string.
func parseQuantity(raw stdjson.RawMessage) (int, error) {
	text, err := numberText(raw)
	if err != nil {
		return 0, err
	}
	d, err := decimal.NewFromString(text)
	if err != nil {
		return 0, err
	}
	if !d.IsInteger() {
		return 0, fmt.Errorf("not an integer: %s", text)
	}
	return cast.ToIntE(d.String())
}

type productPayload struct {
	Name     string             `json:"name"`
	Price    stdjson.RawMessage `json:"price"`
	Quantity stdjson.RawMessage `json:"quantity"`
}

type linePayload struct {
	Name     string             `json:"name"`
	Quantity stdjson.RawMessage `json:"quantity"`
}

type orderPayload struct {
	CustomerName    string        `json:"customer_name"`
	CustomerAddress string        `json:"customer_address"`
	Products        []linePayload `json:"products"`
}
