package analysis

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/Veraticus/spice-capture/internal/common"
	"github.com/Veraticus/spice-capture/internal/model"
	"github.com/shopspring/decimal"
)

// Validate checks raw classification output against the result contract.
// Rules run in order and the first failure wins; every failure wraps
// common.ErrInvalidContract.
func Validate(raw []byte) (Result, error) {
	data := StripCodeFence(raw)

	var fields map[string]any
	decoder := json.NewDecoder(bytes.NewReader(data))
	decoder.UseNumber()
	if err := decoder.Decode(&fields); err != nil {
		return Result{}, contractError("parse JSON object: %s", describeDecodeError(data, err))
	}
	if fields == nil {
		return Result{}, contractError("expected a JSON object")
	}
	if decoder.More() {
		return Result{}, contractError("unexpected data after JSON object")
	}

	typ, err := validateType(fields["type"])
	if err != nil {
		return Result{}, err
	}

	amount, err := validateAmount(fields["amount"])
	if err != nil {
		return Result{}, err
	}

	category, err := requireText(fields, "category")
	if err != nil {
		return Result{}, err
	}
	description, err := requireText(fields, "description")
	if err != nil {
		return Result{}, err
	}

	confidence, err := validateConfidence(fields["confidence"])
	if err != nil {
		return Result{}, err
	}

	return Result{
		typ:         typ,
		amount:      amount,
		category:    category,
		description: description,
		confidence:  confidence,
	}, nil
}

func contractError(format string, args ...any) error {
	return fmt.Errorf("%w: %s", common.ErrInvalidContract, fmt.Sprintf(format, args...))
}

func validateType(v any) (model.TransactionType, error) {
	s, ok := v.(string)
	if !ok {
		return model.TypeUnset, contractError("type must be a string, got %T", v)
	}
	t := model.TransactionType(s)
	if !t.Valid() {
		return model.TypeUnset, contractError("type must be income or expense, got %q", s)
	}
	return t, nil
}

func validateAmount(v any) (decimal.Decimal, error) {
	var text string
	switch n := v.(type) {
	case json.Number:
		text = n.String()
	case string:
		text = strings.TrimSpace(n)
	case nil:
		return decimal.Zero, contractError("amount is required")
	default:
		return decimal.Zero, contractError("amount must be a number, got %T", v)
	}

	amount, err := decimal.NewFromString(text)
	if err != nil {
		return decimal.Zero, contractError("amount %q is not a number", text)
	}
	amount, err = model.CheckAmount(amount)
	if err != nil {
		return decimal.Zero, contractError("%s", err)
	}
	return amount, nil
}

func requireText(fields map[string]any, key string) (string, error) {
	v, present := fields[key]
	if !present || v == nil {
		return "", contractError("%s is required", key)
	}
	s, ok := v.(string)
	if !ok {
		return "", contractError("%s must be a string, got %T", key, v)
	}
	s = strings.TrimSpace(s)
	if s == "" {
		return "", contractError("%s must not be empty", key)
	}
	return s, nil
}

// validateConfidence treats an absent or null confidence as 0.
func validateConfidence(v any) (float64, error) {
	if v == nil {
		return 0, nil
	}
	n, ok := v.(json.Number)
	if !ok {
		return 0, contractError("confidence must be a number, got %T", v)
	}
	f, err := n.Float64()
	if err != nil {
		return 0, contractError("confidence %q is not a number", n.String())
	}
	return clamp(f, 0, 1), nil
}

func clamp(f, lo, hi float64) float64 {
	if f < lo {
		return lo
	}
	if f > hi {
		return hi
	}
	return f
}

// describeDecodeError adds a line and column to JSON syntax errors.
func describeDecodeError(data []byte, err error) string {
	var syntaxErr *json.SyntaxError
	if errors.As(err, &syntaxErr) {
		line, column := calculatePosition(data, syntaxErr.Offset)
		return fmt.Sprintf("%v (line %d, column %d)", err, line, column)
	}
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) {
		return fmt.Sprintf("got %s", typeErr.Value)
	}
	return err.Error()
}

func calculatePosition(data []byte, offset int64) (line int, column int) {
	line = 1
	column = 1
	for i := int64(0); i < offset && i < int64(len(data)); i++ {
		if data[i] == '\n' {
			line++
			column = 1
		} else {
			column++
		}
	}
	return line, column
}
