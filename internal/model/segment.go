// internal/model/segment.go
package model

// Segment condition operators
const (
	OpEqual          = "e"
	OpNotEqual       = "dne"
	OpContains       = "c"
	OpNotContains    = "dnc"
	OpGreaterOrEqual = "igt"
	OpLessOrEqual    = "ilt"
	OpIsTrue         = "it"
	OpIsFalse        = "if"
	OpIsSet          = "is"
	OpIsNotSet       = "ins"
)

// Connectors for branch nodes
const (
	ConnectorAnd = "and"
	ConnectorOr  = "or"
)

// SegmentNode is a recursive condition tree. A node is either a leaf
// (Field/Operator/Value set) or a branch (Connector plus Conditions).
type SegmentNode struct {
	Connector  string        `json:"connector,omitempty"`
	Conditions []SegmentNode `json:"conditions,omitempty"`

	Field    string `json:"field,omitempty"`
	Operator string `json:"operator,omitempty"`
	Value    string `json:"value,omitempty"`
}

func (n *SegmentNode) IsLeaf() bool {
	return n.Field != "" || n.Operator != ""
}

// Segment is a named, reusable condition tree over customer fields.
type Segment struct {
	ID          int64       `json:"id"`
	Name        string      `json:"name"`
	Description string      `json:"description,omitempty"`
	Conditions  SegmentNode `json:"conditions"`
}
