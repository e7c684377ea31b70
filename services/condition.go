package services

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"

	"wacrm-backend/models"
)

// EvaluateCondition reports whether every key of cond matches payload.
// An empty condition always matches. Unknown operators never match.
func EvaluateCondition(cond models.Condition, payload map[string]interface{}) bool {
	for key, cmp := range cond {
		actual, present := payload[key]
		if !compare(key, cmp, actual, present) {
			return false
		}
	}
	return true
}

func compare(key string, cmp models.Comparator, actual interface{}, present bool) bool {
	switch cmp.Operator {
	case models.OpEquals:
		return present && valuesEqual(actual, cmp.Value)
	case models.OpNotEquals:
		return !present || !valuesEqual(actual, cmp.Value)
	case models.OpContains:
		s, ok := asString(actual)
		return ok && strings.Contains(s, fmt.Sprint(cmp.Value))
	case models.OpGreaterThan, models.OpLessThan:
		a, ok := asNumber(actual)
		if !ok {
			return false
		}
		b, ok := asNumber(cmp.Value)
		if !ok {
			return false
		}
		if cmp.Operator == models.OpGreaterThan {
			return a > b
		}
		return a < b
	default:
		log.Warn().Str("key", key).Str("operator", string(cmp.Operator)).
			Msg("unknown condition operator, treating as no match")
		return false
	}
}

func knownOperator(op models.Operator) bool {
	switch op {
	case models.OpEquals, models.OpNotEquals, models.OpContains, models.OpGreaterThan, models.OpLessThan:
		return true
	}
	return false
}

// valuesEqual compares numerically only when at least one side is already a
// number, so "10" and "10.0" stay distinct strings.
func valuesEqual(a, b interface{}) bool {
	if !isNumeric(a) && !isNumeric(b) {
		return fmt.Sprint(a) == fmt.Sprint(b)
	}
	if an, ok := asNumber(a); ok {
		if bn, ok := asNumber(b); ok {
			return an == bn
		}
	}
	return fmt.Sprint(a) == fmt.Sprint(b)
}

func isNumeric(v interface{}) bool {
	switch v.(type) {
	case float64, float32, int, int32, int64, uint, json.Number:
		return true
	}
	return false
}

func asString(v interface{}) (string, bool) {
	switch s := v.(type) {
	case string:
		return s, true
	case fmt.Stringer:
		return s.String(), true
	case models.Stage:
		return string(s), true
	}
	return "", false
}

func asNumber(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		return f, err == nil
	}
	return 0, false
}
