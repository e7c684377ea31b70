package models

import (
	"encoding/json"
	"fmt"
)

// scanJSON decodes a JSON column value into dest. Postgres drivers hand back
// []byte, SQLite may hand back string.
func scanJSON(value interface{}, dest interface{}) error {
	switch v := value.(type) {
	case nil:
		return nil
	case []byte:
		if len(v) == 0 {
			return nil
		}
		return json.Unmarshal(v, dest)
	case string:
		if v == "" {
			return nil
		}
		return json.Unmarshal([]byte(v), dest)
	default:
		return fmt.Errorf("models: unsupported JSON column type %T", value)
	}
}
