// Package jsonutil handles type-sloppy JSON produced by language models.
// Entity extraction responses frequently return confidence as a quoted
// string, or names as bare numbers; these helpers coerce without failing
// the whole parse.
package jsonutil

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// FlexibleStringValue converts a json.RawMessage to a string, handling cases where
// LLMs return numbers or booleans instead of strings. Returns empty string for null/empty.
func FlexibleStringValue(raw json.RawMessage) string {
	if len(raw) == 0 || string(raw) == "null" {
		return ""
	}

	// Try string first
	var strVal string
	if err := json.Unmarshal(raw, &strVal); err == nil {
		return strVal
	}

	// Try number
	var numVal float64
	if err := json.Unmarshal(raw, &numVal); err == nil {
		if numVal == float64(int64(numVal)) {
			return fmt.Sprintf("%d", int64(numVal))
		}
		return fmt.Sprintf("%g", numVal)
	}

	// Try boolean
	var boolVal bool
	if err := json.Unmarshal(raw, &boolVal); err == nil {
		return fmt.Sprintf("%t", boolVal)
	}

	// Fallback: return raw string representation
	return string(raw)
}

// FlexibleFloatValue converts a json.RawMessage to a float64, handling
// confidence values that arrive as quoted strings ("0.9"), percentages
// ("90%"), or plain numbers. Returns the fallback for null, empty, or
// unparseable input.
func FlexibleFloatValue(raw json.RawMessage, fallback float64) float64 {
	if len(raw) == 0 || string(raw) == "null" {
		return fallback
	}

	var numVal float64
	if err := json.Unmarshal(raw, &numVal); err == nil {
		return numVal
	}

	var strVal string
	if err := json.Unmarshal(raw, &strVal); err == nil {
		strVal = strings.TrimSpace(strVal)
		pct := false
		if strings.HasSuffix(strVal, "%") {
			strVal = strings.TrimSuffix(strVal, "%")
			pct = true
		}
		if parsed, perr := strconv.ParseFloat(strVal, 64); perr == nil {
			if pct {
				return parsed / 100
			}
			return parsed
		}
	}

	return fallback
}
