package models

import (
	"database/sql/driver"
	"encoding/json"
)

// Operator is a structured comparator in a rule condition.
type Operator string

const (
	OpEquals      Operator = "equals"
	OpNotEquals   Operator = "not_equals"
	OpContains    Operator = "contains"
	OpGreaterThan Operator = "greater_than"
	OpLessThan    Operator = "less_than"
)

// Comparator is either a bare literal (implied equals) or {operator, value}.
// It re-encodes in the shape it was decoded from.
type Comparator struct {
	Operator Operator
	Value    interface{}
	literal  bool
}

// Literal builds a comparator that matches when the payload value equals v.
func Literal(v interface{}) Comparator {
	return Comparator{Operator: OpEquals, Value: v, literal: true}
}

// Compare builds a structured comparator.
func Compare(op Operator, v interface{}) Comparator {
	return Comparator{Operator: op, Value: v}
}

// IsLiteral reports whether the comparator was written as a bare value.
func (c Comparator) IsLiteral() bool {
	return c.literal
}

type structuredComparator struct {
	Operator Operator    `json:"operator"`
	Value    interface{} `json:"value"`
}

func (c Comparator) MarshalJSON() ([]byte, error) {
	if c.literal {
		return json.Marshal(c.Value)
	}
	return json.Marshal(structuredComparator{Operator: c.Operator, Value: c.Value})
}

func (c *Comparator) UnmarshalJSON(data []byte) error {
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(data, &obj); err == nil {
		if rawOp, ok := obj["operator"]; ok {
			var sc structuredComparator
			if err := json.Unmarshal(rawOp, &sc.Operator); err != nil {
				return err
			}
			if rawVal, ok := obj["value"]; ok {
				if err := json.Unmarshal(rawVal, &sc.Value); err != nil {
					return err
				}
			}
			*c = Comparator{Operator: sc.Operator, Value: sc.Value}
			return nil
		}
	}

	var v interface{}
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*c = Literal(v)
	return nil
}

// Condition maps payload keys to comparators. All keys must match.
// An empty condition always matches.
type Condition map[string]Comparator

func (c Condition) Value() (driver.Value, error) {
	if c == nil {
		return "{}", nil
	}
	b, err := json.Marshal(c)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func (c *Condition) Scan(value interface{}) error {
	cond := Condition{}
	if err := scanJSON(value, &cond); err != nil {
		return err
	}
	*c = cond
	return nil
}
