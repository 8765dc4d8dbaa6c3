package flowdetail

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

// ErrNotSequence is returned when a flow detail body is not a JSON array.
var ErrNotSequence = errors.New("flow detail payload is not a sequence of records")

// RawRecord is one diagnostic datum for a flow: a type tag and its payload.
type RawRecord struct {
	Type string
	Data Node
}

// RecordFromNode splits a decoded record object into its tag and payload.
// Values that are not objects yield a record with no type and no data.
func RecordFromNode(n Node) RawRecord {
	var r RawRecord
	if t, ok := n.Get("type"); ok {
		r.Type, _ = t.Text()
	}
	if d, ok := n.Get("data"); ok {
		r.Data = d
	}
	return r
}

// MarshalJSON implements json.Marshaler.
func (r RawRecord) MarshalJSON() ([]byte, error) {
	data := r.Data
	if data.Kind == KindLeaf && data.raw == "" {
		data = Null()
	}
	return Map(M("type", String(r.Type)), M("data", data)).MarshalJSON()
}

// UnmarshalJSON implements json.Unmarshaler.
func (r *RawRecord) UnmarshalJSON(b []byte) error {
	n, err := decodeValue(b)
	if err != nil {
		return err
	}
	*r = RecordFromNode(n)
	return nil
}

// DecodeRecords decodes a flow detail response body. The body must be a
// JSON array; anything else is a contract violation reported as
// ErrNotSequence.
func DecodeRecords(data []byte) ([]RawRecord, error) {
	root, err := decodeValue(data)
	if err != nil {
		return nil, fmt.Errorf("decode flow detail: %w", err)
	}
	if root.Kind != KindList {
		return nil, fmt.Errorf("%w: got %s", ErrNotSequence, root.Kind)
	}
	records := make([]RawRecord, 0, len(root.Items))
	for _, item := range root.Items {
		records = append(records, RecordFromNode(item))
	}
	return records, nil
}

func decodeValue(data []byte) (Node, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	n, err := decodeNode(dec)
	if err != nil {
		return Node{}, err
	}
	if _, err := dec.Token(); err != io.EOF {
		return Node{}, errors.New("unexpected data after top-level value")
	}
	return n, nil
}

func decodeNode(dec *json.Decoder) (Node, error) {
	tok, err := dec.Token()
	if err != nil {
		return Node{}, err
	}
	switch t := tok.(type) {
	case json.Delim:
		switch t {
		case '{':
			n := Node{Kind: KindMap}
			for dec.More() {
				kt, err := dec.Token()
				if err != nil {
					return Node{}, err
				}
				key, ok := kt.(string)
				if !ok {
					return Node{}, fmt.Errorf("unexpected object key %v", kt)
				}
				v, err := decodeNode(dec)
				if err != nil {
					return Node{}, err
				}
				n.Members = append(n.Members, Member{Key: key, Value: v})
			}
			if _, err := dec.Token(); err != nil {
				return Node{}, err
			}
			return n, nil
		case '[':
			n := Node{Kind: KindList, Items: []Node{}}
			for dec.More() {
				v, err := decodeNode(dec)
				if err != nil {
					return Node{}, err
				}
				n.Items = append(n.Items, v)
			}
			if _, err := dec.Token(); err != nil {
				return Node{}, err
			}
			return n, nil
		}
		return Node{}, fmt.Errorf("unexpected delimiter %q", rune(t))
	case string:
		return String(t), nil
	case json.Number:
		return Number(t.String()), nil
	case bool:
		return Bool(t), nil
	case nil:
		return Null(), nil
	}
	return Node{}, fmt.Errorf("unexpected token %T", tok)
}
