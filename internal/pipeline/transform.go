package pipeline

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/dvloznov/ledger-intake/internal/domain"
)

// Alternative spellings accepted for a field. The model does not always
// keep the exact key casing it was asked for.
var fieldAliases = map[string][]string{
	fieldSubCategory: {"subcategory", "sub_category"},
	fieldAccount:     {"accountName", "account_name", "account"},
	fieldUnitDetails: {"unit_details"},
}

// decodeStrict accepts only a bare JSON array of objects.
func decodeStrict(raw string) ([]RawCandidate, []*RejectionError, error) {
	parsed, err := decodeJSON(strings.TrimSpace(raw))
	if err != nil {
		return nil, nil, fmt.Errorf("decodeStrict: %w", err)
	}
	items, ok := parsed.([]interface{})
	if !ok {
		return nil, nil, fmt.Errorf("decodeStrict: top-level value is %T, want array", parsed)
	}
	cands, rejects := transformItems(items)
	return cands, rejects, nil
}

// decodeLenient strips markdown fences and surrounding prose, and wraps a
// single object into a one-element array.
func decodeLenient(raw string) ([]RawCandidate, []*RejectionError, error) {
	parsed, err := decodeJSON(cleanModelJSON(raw))
	if err != nil {
		return nil, nil, fmt.Errorf("decodeLenient: %w", err)
	}
	var items []interface{}
	switch v := parsed.(type) {
	case []interface{}:
		items = v
	case map[string]interface{}:
		items = []interface{}{v}
	default:
		return nil, nil, fmt.Errorf("decodeLenient: top-level value is %T, want array or object", parsed)
	}
	cands, rejects := transformItems(items)
	return cands, rejects, nil
}

func decodeJSON(s string) (interface{}, error) {
	dec := json.NewDecoder(bytes.NewReader([]byte(s)))
	dec.UseNumber()

	var v interface{}
	if err := dec.Decode(&v); err != nil {
		return nil, fmt.Errorf("unmarshal JSON: %w", err)
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, errors.New("unexpected data after JSON value")
	}
	return v, nil
}

// transformItems converts decoded JSON elements into raw candidates.
// Elements of the wrong shape are rejected individually.
func transformItems(items []interface{}) ([]RawCandidate, []*RejectionError) {
	cands := make([]RawCandidate, 0, len(items))
	var rejects []*RejectionError

	for i, item := range items {
		obj, ok := item.(map[string]interface{})
		if !ok {
			rejects = append(rejects, &RejectionError{Index: i, Reason: fmt.Sprintf("element is %T, want object", item)})
			continue
		}
		c, err := transformObject(obj)
		if err != nil {
			var rej *RejectionError
			if errors.As(err, &rej) {
				rej.Index = i
				rejects = append(rejects, rej)
				continue
			}
			rejects = append(rejects, &RejectionError{Index: i, Reason: err.Error()})
			continue
		}
		cands = append(cands, c)
	}
	return cands, rejects
}

func transformObject(obj map[string]interface{}) (RawCandidate, error) {
	c := RawCandidate{Source: domain.SourceAI}

	strFields := []struct {
		key string
		dst *string
	}{
		{fieldDate, &c.Date},
		{fieldDescription, &c.Description},
		{fieldType, &c.Type},
		{fieldCategory, &c.Category},
		{fieldSubCategory, &c.SubCategory},
		{fieldAccount, &c.AccountName},
		{fieldUnitDetails, &c.UnitDetails},
		{fieldRemarks, &c.Remarks},
	}
	for _, f := range strFields {
		v, err := getStringField(obj, f.key)
		if err != nil {
			return RawCandidate{}, err
		}
		*f.dst = v
	}

	amount, err := getAmountField(obj, fieldAmount)
	if err != nil {
		return RawCandidate{}, err
	}
	c.Amount = amount
	return c, nil
}

// lookupField finds key or one of its aliases.
func lookupField(m map[string]interface{}, key string) (interface{}, bool) {
	if v, ok := m[key]; ok {
		return v, true
	}
	for _, alias := range fieldAliases[key] {
		if v, ok := m[alias]; ok {
			return v, true
		}
	}
	return nil, false
}

func getStringField(m map[string]interface{}, key string) (string, error) {
	v, ok := lookupField(m, key)
	if !ok || v == nil {
		return "", nil
	}
	switch val := v.(type) {
	case string:
		return strings.TrimSpace(val), nil
	case json.Number:
		return val.String(), nil
	default:
		return "", &RejectionError{Field: key, Reason: fmt.Sprintf("has type %T, want string", v)}
	}
}

// getAmountField keeps the number's literal text so that no precision is
// lost before decimal parsing.
func getAmountField(m map[string]interface{}, key string) (string, error) {
	v, ok := lookupField(m, key)
	if !ok || v == nil {
		return "", nil
	}
	switch val := v.(type) {
	case json.Number:
		return val.String(), nil
	case string:
		return strings.TrimSpace(val), nil
	default:
		return "", &RejectionError{Field: key, Reason: fmt.Sprintf("has type %T, want number", v)}
	}
}
