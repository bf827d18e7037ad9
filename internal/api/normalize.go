package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"cycleview/internal/models"
)

// NormalizeList turns either {data: [...], count?, filters?} or a bare
// array into a CycleList. It always returns a usable list. The error is
// non-nil when the payload matched neither shape or when rows that could
// not be decoded were dropped.
func NormalizeList(body []byte) (*models.CycleList, error) {
	list := &models.CycleList{
		Items:   []models.CycleSummary{},
		Filters: map[string]any{},
	}

	body = bytes.TrimSpace(body)
	switch firstByte(body) {
	case '[':
		items, err := decodeRows(body)
		list.Items = items
		list.Count = len(items)
		return list, err

	case '{':
		var envelope map[string]json.RawMessage
		if err := json.Unmarshal(body, &envelope); err != nil {
			return list, &MalformedResponseError{Kind: "list", Reason: err.Error()}
		}

		var malformed error
		data := bytes.TrimSpace(envelope["data"])
		if firstByte(data) == '[' {
			list.Items, malformed = decodeRows(data)
		} else {
			malformed = &MalformedResponseError{Kind: "list", Reason: "no data array"}
		}

		list.Count = len(list.Items)
		if raw, ok := envelope["count"]; ok {
			var count *int
			if err := json.Unmarshal(raw, &count); err == nil && count != nil {
				list.Count = *count
			}
		}
		if raw, ok := envelope["filters"]; ok {
			var filters map[string]any
			if err := json.Unmarshal(raw, &filters); err == nil && filters != nil {
				list.Filters = filters
			}
		}
		return list, malformed
	}

	return list, &MalformedResponseError{Kind: "list", Reason: "neither an object nor an array"}
}

// decodeRows decodes a JSON array of cycle rows one element at a time, so
// a single bad row costs only itself.
func decodeRows(data []byte) ([]models.CycleSummary, error) {
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return []models.CycleSummary{}, &MalformedResponseError{Kind: "list", Reason: "data: " + err.Error()}
	}

	items := make([]models.CycleSummary, 0, len(raw))
	var reasons []string
	for i, r := range raw {
		var c models.CycleSummary
		if err := json.Unmarshal(r, &c); err != nil {
			reasons = append(reasons, fmt.Sprintf("row %d: %v", i, err))
			continue
		}
		items = append(items, c)
	}
	if len(reasons) > 0 {
		return items, &MalformedResponseError{
			Kind:   "list",
			Reason: fmt.Sprintf("dropped %d of %d rows: %s", len(reasons), len(raw), strings.Join(reasons, "; ")),
		}
	}
	return items, nil
}

// NormalizeDetail unwraps {data: {...}} or accepts a bare object.
func NormalizeDetail(body []byte) (*models.CycleDetail, error) {
	body = bytes.TrimSpace(body)
	if firstByte(body) != '{' {
		return &models.CycleDetail{}, &MalformedResponseError{Kind: "detail", Reason: "not an object"}
	}

	var envelope map[string]json.RawMessage
	if err := json.Unmarshal(body, &envelope); err != nil {
		return &models.CycleDetail{}, &MalformedResponseError{Kind: "detail", Reason: err.Error()}
	}

	inner := body
	if data := bytes.TrimSpace(envelope["data"]); len(data) > 0 && !bytes.Equal(data, []byte("null")) {
		if firstByte(data) != '{' {
			return &models.CycleDetail{}, &MalformedResponseError{Kind: "detail", Reason: "data is not an object"}
		}
		inner = data
	}

	var detail models.CycleDetail
	if err := json.Unmarshal(inner, &detail); err != nil {
		return &models.CycleDetail{}, &MalformedResponseError{Kind: "detail", Reason: err.Error()}
	}
	return &detail, nil
}

func firstByte(b []byte) byte {
	if len(b) == 0 {
		return 0
	}
	return b[0]
}
