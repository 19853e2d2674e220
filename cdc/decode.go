package cdc

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"

	"github.com/poiesic/vectorflow/core"
)

const (
	payloadField = "payload"
	deletedField = "__deleted"
)

// DecodeChangeEvent parses a change event of the form
//
//	{"payload": {"id": 1, "name": "widget", "__deleted": "false"}}
//
// Column order is preserved. The __deleted flag is removed from the row and
// reported through ChangeEvent.Deleted; a missing flag means not deleted.
// Empty data is a tombstone and decodes to nil, nil.
func DecodeChangeEvent(data []byte) (*core.ChangeEvent, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, nil
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	if err := expectDelim(dec, '{'); err != nil {
		return nil, err
	}

	var event *core.ChangeEvent
	for dec.More() {
		key, err := readKey(dec)
		if err != nil {
			return nil, err
		}
		if key != payloadField || event != nil {
			if err := skipValue(dec); err != nil {
				return nil, err
			}
			continue
		}
		if event, err = decodePayload(dec); err != nil {
			return nil, err
		}
	}

	if event == nil {
		return nil, fmt.Errorf("%w: missing %q object", core.ErrInvalidChangeEvent, payloadField)
	}
	return event, nil
}

func decodePayload(dec *json.Decoder) (*core.ChangeEvent, error) {
	if err := expectDelim(dec, '{'); err != nil {
		return nil, err
	}

	event := &core.ChangeEvent{Operation: core.OperationUpsert}
	for dec.More() {
		column, err := readKey(dec)
		if err != nil {
			return nil, err
		}
		var raw any
		if err := dec.Decode(&raw); err != nil {
			return nil, fmt.Errorf("%w: column %s: %w", core.ErrInvalidChangeEvent, column, err)
		}

		if column == deletedField {
			if event.Deleted, err = parseDeleted(raw); err != nil {
				return nil, err
			}
			continue
		}

		event.Row.Columns = append(event.Row.Columns, column)
		event.Row.Values = append(event.Row.Values, normalize(raw))
	}

	if _, err := dec.Token(); err != nil {
		return nil, fmt.Errorf("%w: %w", core.ErrInvalidChangeEvent, err)
	}
	if event.Deleted {
		event.Operation = core.OperationDelete
	}
	return event, nil
}

func parseDeleted(raw any) (bool, error) {
	switch v := raw.(type) {
	case nil:
		return false, nil
	case bool:
		return v, nil
	case string:
		deleted, err := strconv.ParseBool(v)
		if err != nil {
			return false, fmt.Errorf("%w: %s is %q", core.ErrInvalidChangeEvent, deletedField, v)
		}
		return deleted, nil
	default:
		return false, fmt.Errorf("%w: %s has type %T", core.ErrInvalidChangeEvent, deletedField, raw)
	}
}

// normalize converts json.Number values to int64 when integral, float64 otherwise.
func normalize(v any) any {
	switch val := v.(type) {
	case json.Number:
		if i, err := val.Int64(); err == nil {
			return i
		}
		if f, err := val.Float64(); err == nil {
			return f
		}
		return val.String()
	case map[string]any:
		for k, item := range val {
			val[k] = normalize(item)
		}
		return val
	case []any:
		for i, item := range val {
			val[i] = normalize(item)
		}
		return val
	default:
		return v
	}
}

func expectDelim(dec *json.Decoder, want json.Delim) error {
	tok, err := dec.Token()
	if err != nil {
		if errors.Is(err, io.EOF) {
			err = io.ErrUnexpectedEOF
		}
		return fmt.Errorf("%w: %w", core.ErrInvalidChangeEvent, err)
	}
	if delim, ok := tok.(json.Delim); !ok || delim != want {
		return fmt.Errorf("%w: expected %q, got %v", core.ErrInvalidChangeEvent, want, tok)
	}
	return nil
}

func readKey(dec *json.Decoder) (string, error) {
	tok, err := dec.Token()
	if err != nil {
		return "", fmt.Errorf("%w: %w", core.ErrInvalidChangeEvent, err)
	}
	key, ok := tok.(string)
	if !ok {
		return "", fmt.Errorf("%w: expected object key, got %v", core.ErrInvalidChangeEvent, tok)
	}
	return key, nil
}

func skipValue(dec *json.Decoder) error {
	var discard json.RawMessage
	if err := dec.Decode(&discard); err != nil {
		return fmt.Errorf("%w: %w", core.ErrInvalidChangeEvent, err)
	}
	return nil
}
