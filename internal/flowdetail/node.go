package flowdetail

import (
	"encoding/json"
	"strconv"
)

// Kind tags the variant held by a Node.
type Kind int

const (
	KindLeaf Kind = iota
	KindMap
	KindList
)

func (k Kind) String() string {
	switch k {
	case KindMap:
		return "map"
	case KindList:
		return "list"
	default:
		return "leaf"
	}
}

// Member is one key/value pair of a map node.
type Member struct {
	Key   string
	Value Node
}

// Node is one value of a decoded diagnostic payload. Map members keep
// document order so that searches over the tree are deterministic.
type Node struct {
	Kind    Kind
	Members []Member
	Items   []Node

	raw   string // JSON text of a leaf
	text  string // string view of a leaf
	isStr bool
	null  bool
}

// String returns a string leaf.
func String(s string) Node {
	b, _ := json.Marshal(s)
	return Node{Kind: KindLeaf, raw: string(b), text: s, isStr: true}
}

// Number returns a numeric leaf from its JSON literal.
func Number(literal string) Node {
	return Node{Kind: KindLeaf, raw: literal, text: literal}
}

// Int returns a numeric leaf.
func Int(v int64) Node {
	return Number(strconv.FormatInt(v, 10))
}

// Bool returns a boolean leaf.
func Bool(v bool) Node {
	s := strconv.FormatBool(v)
	return Node{Kind: KindLeaf, raw: s, text: s}
}

// Null returns the JSON null leaf.
func Null() Node {
	return Node{Kind: KindLeaf, raw: "null", null: true}
}

// Map returns a map node with the given members in order.
func Map(members ...Member) Node {
	return Node{Kind: KindMap, Members: members}
}

// List returns a list node.
func List(items ...Node) Node {
	if items == nil {
		items = []Node{}
	}
	return Node{Kind: KindList, Items: items}
}

// M is shorthand for building a Member.
func M(key string, value Node) Member {
	return Member{Key: key, Value: value}
}

// Get returns the value of the first member named key.
func (n Node) Get(key string) (Node, bool) {
	if n.Kind != KindMap {
		return Node{}, false
	}
	for _, m := range n.Members {
		if m.Key == key {
			return m.Value, true
		}
	}
	return Node{}, false
}

// Lookup follows a chain of map keys.
func (n Node) Lookup(keys ...string) (Node, bool) {
	cur := n
	for _, k := range keys {
		next, ok := cur.Get(k)
		if !ok {
			return Node{}, false
		}
		cur = next
	}
	return cur, true
}

// Has reports whether a map node carries key.
func (n Node) Has(key string) bool {
	_, ok := n.Get(key)
	return ok
}

// Text returns the string view of a non-null leaf. Numbers and booleans
// are returned as their JSON literal.
func (n Node) Text() (string, bool) {
	if n.Kind != KindLeaf || n.null || n.raw == "" {
		return "", false
	}
	return n.text, true
}

// IsString reports whether n is a string leaf.
func (n Node) IsString() bool {
	return n.Kind == KindLeaf && n.isStr
}

// IsNull reports whether n is the null leaf or the zero Node.
func (n Node) IsNull() bool {
	return n.Kind == KindLeaf && (n.null || n.raw == "")
}

// At walks path from n.
func (n Node) At(path Path) (Node, bool) {
	cur := n
	for _, step := range path {
		if step.IsIndex {
			if cur.Kind != KindList || step.Index < 0 || step.Index >= len(cur.Items) {
				return Node{}, false
			}
			cur = cur.Items[step.Index]
			continue
		}
		next, ok := cur.Get(step.Key)
		if !ok {
			return Node{}, false
		}
		cur = next
	}
	return cur, true
}

// JSON renders n as compact JSON text.
func (n Node) JSON() string {
	return string(n.appendJSON(nil))
}

func (n Node) appendJSON(buf []byte) []byte {
	switch n.Kind {
	case KindMap:
		buf = append(buf, '{')
		for i, m := range n.Members {
			if i > 0 {
				buf = append(buf, ',')
			}
			k, _ := json.Marshal(m.Key)
			buf = append(buf, k...)
			buf = append(buf, ':')
			buf = m.Value.appendJSON(buf)
		}
		return append(buf, '}')
	case KindList:
		buf = append(buf, '[')
		for i, item := range n.Items {
			if i > 0 {
				buf = append(buf, ',')
			}
			buf = item.appendJSON(buf)
		}
		return append(buf, ']')
	default:
		if n.raw == "" {
			return append(buf, "null"...)
		}
		return append(buf, n.raw...)
	}
}

// MarshalJSON implements json.Marshaler.
func (n Node) MarshalJSON() ([]byte, error) {
	return n.appendJSON(nil), nil
}

// UnmarshalJSON implements json.Unmarshaler, keeping member order.
func (n *Node) UnmarshalJSON(data []byte) error {
	decoded, err := decodeValue(data)
	if err != nil {
		return err
	}
	*n = decoded
	return nil
}
