package db

import (
	"strings"
	"time"

	"clubledger-backend-go/internal/models"
)

// Op is a comparison operator supported by Query.
type Op string

const (
	OpEqual   Op = "=="
	OpGreater Op = ">"
)

// Query selects the documents of a collection whose Field compares to Value.
// Field may be a dotted path into nested maps (e.g. "payment.amount").
type Query struct {
	Collection string
	Field      string
	Op         Op
	Value      interface{}
}

// Matches evaluates the query against document fields with the same typing
// rules as the store: values of different kinds never compare.
func (q Query) Matches(data map[string]interface{}) bool {
	v, ok := lookupPath(data, q.Field)
	if !ok {
		return false
	}
	switch q.Op {
	case OpEqual:
		return equalValues(v, q.Value)
	case OpGreater:
		return greaterThan(v, q.Value)
	}
	return false
}

func lookupPath(data map[string]interface{}, path string) (interface{}, bool) {
	parts := strings.Split(path, ".")
	var cur interface{} = data
	for _, p := range parts {
		m, ok := cur.(map[string]interface{})
		if !ok {
			return nil, false
		}
		cur, ok = m[p]
		if !ok {
			return nil, false
		}
	}
	return cur, true
}

func equalValues(a, b interface{}) bool {
	if x, ok := models.ToFloat(a); ok {
		y, ok := models.ToFloat(b)
		return ok && x == y
	}
	switch x := a.(type) {
	case string:
		y, ok := b.(string)
		return ok && x == y
	case bool:
		y, ok := b.(bool)
		return ok && x == y
	case time.Time:
		y, ok := b.(time.Time)
		return ok && x.Equal(y)
	}
	return false
}

func greaterThan(a, b interface{}) bool {
	if x, ok := models.ToFloat(a); ok {
		y, ok := models.ToFloat(b)
		return ok && x > y
	}
	switch x := a.(type) {
	case string:
		y, ok := b.(string)
		return ok && x > y
	case time.Time:
		y, ok := b.(time.Time)
		return ok && x.After(y)
	}
	return false
}
