package handler

import (
	"bytes"
	"encoding/json"
	"net/http"

	"github.com/shopspring/decimal"

	"banking-api/internal/errors"
	"banking-api/internal/validation"
)

const maxBodyBytes = 1 << 20

var errMalformedBody = errors.NewValidationError(errors.Issue{
	Message: "request body must be a JSON object",
	Path:    []string{},
	Type:    "object.base",
})

// fields holds a decoded JSON object with its values kept raw so every
// field can be converted on its own and reported individually.
type fields struct {
	raw    map[string]json.RawMessage
	issues []errors.Issue
}

func decodeFields(w http.ResponseWriter, r *http.Request) (*fields, error) {
	var raw map[string]json.RawMessage
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(&raw); err != nil || raw == nil {
		return nil, errMalformedBody
	}
	return &fields{raw: raw}, nil
}

func (f *fields) value(name string) (json.RawMessage, bool) {
	v, ok := f.raw[name]
	if !ok || bytes.Equal(v, []byte("null")) {
		return nil, false
	}
	return v, true
}

// numberText accepts both JSON numbers and numeric strings.
func numberText(v json.RawMessage) string {
	var s string
	if err := json.Unmarshal(v, &s); err == nil {
		return s
	}
	return string(v)
}

// Int reads a whole number. A missing field yields 0 and is left to the
// struct rules.
func (f *fields) Int(name string) int64 {
	v, ok := f.value(name)
	if !ok {
		return 0
	}
	text := numberText(v)
	d, err := decimal.NewFromString(text)
	if err != nil {
		f.issues = append(f.issues, validation.NumberIssue(name, text))
		return 0
	}
	if !d.IsInteger() {
		f.issues = append(f.issues, validation.IntegerIssue(name, text))
		return 0
	}
	if !d.BigInt().IsInt64() {
		f.issues = append(f.issues, validation.UnsafeIssue(name, text))
		return 0
	}
	return d.IntPart()
}

// Decimal reads an exact decimal. A missing field yields the zero Decimal,
// which the "required" rule rejects.
func (f *fields) Decimal(name string) decimal.Decimal {
	v, ok := f.value(name)
	if !ok {
		return decimal.Decimal{}
	}
	text := numberText(v)
	d, err := decimal.NewFromString(text)
	if err != nil {
		f.issues = append(f.issues, validation.NumberIssue(name, text))
		return decimal.Decimal{}
	}
	return d
}

func (f *fields) String(name string) string {
	v, ok := f.value(name)
	if !ok {
		return ""
	}
	var s string
	if err := json.Unmarshal(v, &s); err != nil {
		f.issues = append(f.issues, validation.StringIssue(name, string(v)))
		return ""
	}
	return s
}

// replace swaps any conversion issue reported for name with issue.
func (f *fields) replace(name string, issue errors.Issue) {
	for i, is := range f.issues {
		if len(is.Path) == 1 && is.Path[0] == name {
			f.issues[i] = issue
		}
	}
}

// check merges conversion issues with the struct rules for payload.
func (f *fields) check(payload any) error {
	return validation.Merge(f.issues, validation.Struct(payload))
}
