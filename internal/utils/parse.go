package utils

import (
	"encoding/json"
	"fmt"

	"github.com/kaptinlin/jsonrepair"
)

// DecodeLenient unmarshals data into T. When data is not valid JSON (a
// truncated error body, for example) it is repaired with jsonrepair and
// decoded again.
func DecodeLenient[T any](data []byte) (T, error) {
	var result T
	err := json.Unmarshal(data, &result)
	if err == nil {
		return result, nil
	}

	repaired, repairErr := jsonrepair.JSONRepair(string(data))
	if repairErr != nil {
		return result, fmt.Errorf("failed to unmarshal as %T and failed to repair JSON: unmarshal error: %w, repair error: %v", result, err, repairErr)
	}
	if err := json.Unmarshal([]byte(repaired), &result); err != nil {
		return result, fmt.Errorf("failed to unmarshal repaired JSON as %T: %w", result, err)
	}
	return result, nil
}
