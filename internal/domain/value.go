package domain

import (
	"fmt"
	"strconv"
)

// ValueKind tags a Value. The zero ValueKind marks an absent value.
type ValueKind int

const (
	ValueAbsent ValueKind = iota
	ValueScalar
	ValueURL
	ValueImage
	ValueGallery
	ValueKeyValues
)

func (k ValueKind) String() string {
	switch k {
	case ValueScalar:
		return "scalar"
	case ValueURL:
		return "url"
	case ValueImage:
		return "image"
	case ValueGallery:
		return "gallery"
	case ValueKeyValues:
		return "key_values"
	default:
		return "absent"
	}
}

// MarshalText lets the kind travel as a string in JSON payloads.
func (k ValueKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// UnmarshalText accepts the names MarshalText produces.
func (k *ValueKind) UnmarshalText(text []byte) error {
	for kind := ValueAbsent; kind <= ValueKeyValues; kind++ {
		if kind.String() == string(text) {
			*k = kind
			return nil
		}
	}
	return fmt.Errorf("domain: unknown value kind %q", text)
}

// ImageRef points at a media attachment. AttachmentID 0 means "no image".
type ImageRef struct {
	AttachmentID int64  `json:"attachment_id"`
	DisplayURL   string `json:"display_url,omitempty"`
	FullURL      string `json:"full_url,omitempty"`
	EditURL      string `json:"edit_url,omitempty"`
}

// KeyValue is one entry of an ordered key/value list.
type KeyValue struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// Value is the typed value of one attribute field. Only the member matching
// Kind is meaningful.
type Value struct {
	Kind    ValueKind  `json:"kind"`
	Text    string     `json:"text,omitempty"` // Scalar and URL
	Image   *ImageRef  `json:"image,omitempty"`
	Gallery []ImageRef `json:"gallery,omitempty"`
	Pairs   []KeyValue `json:"pairs,omitempty"`
}

func Text(s string) Value { return Value{Kind: ValueScalar, Text: s} }

func Int(n int64) Value { return Value{Kind: ValueScalar, Text: strconv.FormatInt(n, 10)} }

// Bool renders as "Yes"/"No".
func Bool(b bool) Value {
	if b {
		return Text("Yes")
	}
	return Text("No")
}

func URL(u string) Value { return Value{Kind: ValueURL, Text: u} }

// Image wraps ref; a nil ref is an image field with no image, not an absent field.
func Image(ref *ImageRef) Value { return Value{Kind: ValueImage, Image: ref} }

func Gallery(refs []ImageRef) Value { return Value{Kind: ValueGallery, Gallery: refs} }

func KeyValues(pairs []KeyValue) Value { return Value{Kind: ValueKeyValues, Pairs: pairs} }

// Present reports whether v carries a value at all.
func (v Value) Present() bool { return v.Kind != ValueAbsent }

// AttributeMap is an ordered label -> Value mapping with unique labels.
type AttributeMap struct {
	labels []string
	values map[string]Value
}

func NewAttributeMap() *AttributeMap {
	return &AttributeMap{values: make(map[string]Value)}
}

// Add appends label unless it is already present. It reports whether the
// value was stored.
func (m *AttributeMap) Add(label string, v Value) bool {
	if _, ok := m.values[label]; ok {
		return false
	}
	m.labels = append(m.labels, label)
	m.values[label] = v
	return true
}

// Get returns the value stored for label.
func (m *AttributeMap) Get(label string) (Value, bool) {
	if m == nil {
		return Value{}, false
	}
	v, ok := m.values[label]
	return v, ok
}

// Labels returns the labels in insertion order.
func (m *AttributeMap) Labels() []string {
	if m == nil {
		return nil
	}
	out := make([]string, len(m.labels))
	copy(out, m.labels)
	return out
}

func (m *AttributeMap) Len() int {
	if m == nil {
		return 0
	}
	return len(m.labels)
}

// Field is a label/value pair as rendered in the detail view.
type Field struct {
	Label string `json:"label"`
	Value Value  `json:"value"`
}

// Fields returns the map contents in order.
func (m *AttributeMap) Fields() []Field {
	out := make([]Field, 0, m.Len())
	for _, l := range m.Labels() {
		out = append(out, Field{Label: l, Value: m.values[l]})
	}
	return out
}

// ComparisonRow is one label aligned across two attribute maps.
type ComparisonRow struct {
	Label   string `json:"label"`
	Left    Value  `json:"left"`
	Right   Value  `json:"right"`
	Differs bool   `json:"differs"`
}
