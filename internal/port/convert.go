package port

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"

	"betic-lang/internal/runtime"
	"betic-lang/internal/types"
)

// BytesList converts raw bytes into a list value with the given element type.
func BytesList(elem types.Type, data []byte) *runtime.Value {
	items := make([]*runtime.Value, len(data))
	for i, b := range data {
		if elem.Is(types.Byte) {
			items[i] = runtime.NewByte(b)
		} else {
			items[i] = runtime.NewInt(int64(b))
		}
	}
	return runtime.NewList(elem, items)
}

// ListBytes converts a list of Int or Byte values in 0..255 into raw bytes.
func ListBytes(v *runtime.Value) ([]byte, error) {
	if !v.Type.Is(types.List) {
		return nil, fmt.Errorf("expected a byte list, got %s", v.Type)
	}
	out := make([]byte, len(v.Items))
	for i, item := range v.Items {
		if !item.Type.Is(types.Int) && !item.Type.Is(types.Byte) {
			return nil, fmt.Errorf("list item %d is of type %s, expected a byte", i, item.Type)
		}
		if item.Int < 0 || item.Int > 255 {
			return nil, fmt.Errorf("list item %d (%d) is out of byte range", i, item.Int)
		}
		out[i] = byte(item.Int)
	}
	return out, nil
}

// ParseJSON converts a JSON document into a value. Objects become maps that
// keep the document's key order, arrays become lists of Occult and null
// becomes none.
func ParseJSON(data []byte) (*runtime.Value, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	v, err := decodeJSON(dec)
	if err != nil {
		return nil, err
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, fmt.Errorf("unexpected data after JSON value")
	}
	return v, nil
}

func decodeJSON(dec *json.Decoder) (*runtime.Value, error) {
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}

	switch t := tok.(type) {
	case json.Delim:
		switch t {
		case '[':
			var items []*runtime.Value
			for dec.More() {
				item, err := decodeJSON(dec)
				if err != nil {
					return nil, err
				}
				items = append(items, item)
			}
			if _, err := dec.Token(); err != nil {
				return nil, err
			}
			return runtime.NewList(types.Named(types.Occult), items), nil

		case '{':
			var pairs []runtime.Pair
			for dec.More() {
				key, err := dec.Token()
				if err != nil {
					return nil, err
				}
				val, err := decodeJSON(dec)
				if err != nil {
					return nil, err
				}
				pairs = append(pairs, runtime.Pair{Key: fmt.Sprint(key), Value: val})
			}
			if _, err := dec.Token(); err != nil {
				return nil, err
			}
			return runtime.NewMap(types.Named(types.Occult), pairs), nil
		}

	case json.Number:
		if n, err := t.Int64(); err == nil {
			return runtime.NewInt(n), nil
		}
		f, err := t.Float64()
		if err != nil {
			return nil, err
		}
		return runtime.NewNumber(f), nil

	case string:
		return runtime.NewString(t), nil

	case bool:
		return runtime.NewBool(t), nil

	case nil:
		return runtime.None(), nil
	}

	return nil, fmt.Errorf("unexpected JSON token %v", tok)
}
