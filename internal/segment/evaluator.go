// Package segment evaluates a saved condition tree against one customer at a
// time, so audience resolution can stream the customer collection instead of
// materializing it.
package segment

import (
	"strconv"
	"strings"

	"github.com/molevo/broadcast-backend/internal/model"
)

// FieldFunc resolves a condition field name to its value for the customer
// under evaluation. The boolean is false when the field is not set.
type FieldFunc func(name string) (string, bool)

// Evaluate walks the condition tree. Branch nodes combine children with
// and/or; leaf nodes compare one field. An "and" with no children matches
// vacuously, an "or" with no children does not.
func Evaluate(node *model.SegmentNode, fields FieldFunc) bool {
	if node == nil {
		return false
	}

	if node.IsLeaf() {
		return evalLeaf(node, fields)
	}

	if node.Connector == model.ConnectorOr {
		for i := range node.Conditions {
			if Evaluate(&node.Conditions[i], fields) {
				return true
			}
		}
		return false
	}

	// default connector is "and"
	for i := range node.Conditions {
		if !Evaluate(&node.Conditions[i], fields) {
			return false
		}
	}
	return true
}

// Matches evaluates a whole segment against a customer.
func Matches(seg *model.Segment, customer *model.Customer) bool {
	if seg == nil || customer == nil {
		return false
	}
	return Evaluate(&seg.Conditions, customer.Field)
}

func evalLeaf(node *model.SegmentNode, fields FieldFunc) bool {
	value, ok := fields(node.Field)

	switch node.Operator {
	case model.OpIsSet:
		return ok
	case model.OpIsNotSet:
		return !ok
	case model.OpEqual:
		return ok && value == node.Value
	case model.OpNotEqual:
		return !ok || value != node.Value
	case model.OpContains:
		return ok && strings.Contains(strings.ToLower(value), strings.ToLower(node.Value))
	case model.OpNotContains:
		return !ok || !strings.Contains(strings.ToLower(value), strings.ToLower(node.Value))
	case model.OpGreaterOrEqual:
		return ok && compare(value, node.Value) >= 0
	case model.OpLessOrEqual:
		return ok && compare(value, node.Value) <= 0
	case model.OpIsTrue:
		return ok && strings.EqualFold(value, "true")
	case model.OpIsFalse:
		return ok && strings.EqualFold(value, "false")
	}
	return false
}

// compare orders two values numerically when both parse as numbers, falling
// back to lexicographic order otherwise.
func compare(a, b string) int {
	fa, errA := strconv.ParseFloat(a, 64)
	fb, errB := strconv.ParseFloat(b, 64)
	if errA == nil && errB == nil {
		switch {
		case fa < fb:
			return -1
		case fa > fb:
			return 1
		default:
			return 0
		}
	}
	return strings.Compare(a, b)
}
