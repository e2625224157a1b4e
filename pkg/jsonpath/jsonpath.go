package jsonpath

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/tidwall/gjson"
)

// Extract extracts a value from a JSON document using a JSONPath expression
func Extract(json string, path string) (string, error) {
	result, err := lookup(json, path)
	if err != nil {
		return "", err
	}

	// Handle null values
	if result.Type == gjson.Null {
		return "null", nil
	}

	return result.String(), nil
}

// ExtractUint extracts an unsigned integer (guild, channel, message and user IDs)
// from a JSON document. IDs are accepted both as JSON numbers and as decimal strings,
// since 64-bit IDs do not survive a round trip through float64.
func ExtractUint(json string, path string) (uint64, error) {
	result, err := lookup(json, path)
	if err != nil {
		return 0, err
	}

	v, ok := parseUint(result)
	if !ok {
		return 0, fmt.Errorf("value at %s is not an unsigned integer: %s", path, result.Raw)
	}
	return v, nil
}

// ExtractUints extracts every unsigned integer matched by path. A path that resolves
// to an empty array returns an empty, non-nil slice.
func ExtractUints(json string, path string) ([]uint64, error) {
	result, err := lookup(json, path)
	if err != nil {
		return nil, err
	}

	if !result.IsArray() {
		return nil, fmt.Errorf("value at %s is not an array", path)
	}

	items := result.Array()
	values := make([]uint64, 0, len(items))
	for i, item := range items {
		v, ok := parseUint(item)
		if !ok {
			return nil, fmt.Errorf("%s[%d] is not an unsigned integer: %s", path, i, item.Raw)
		}
		values = append(values, v)
	}

	return values, nil
}

// Count returns the length of the array at path, or an error when the value is not an array.
func Count(json string, path string) (int, error) {
	result, err := lookup(json, path)
	if err != nil {
		return 0, err
	}
	if !result.IsArray() {
		return 0, fmt.Errorf("value at %s is not an array", path)
	}
	return len(result.Array()), nil
}

// Exists reports whether path resolves to a value in json.
func Exists(json string, path string) bool {
	_, err := lookup(json, path)
	return err == nil
}

// parseUint accepts a JSON number or a decimal string holding a whole,
// non-negative value that fits in 64 bits.
func parseUint(r gjson.Result) (uint64, bool) {
	var s string
	switch r.Type {
	case gjson.Number:
		s = r.Raw
	case gjson.String:
		s = r.Str
	default:
		return 0, false
	}
	v, err := strconv.ParseUint(s, 10, 64)
	return v, err == nil
}

func lookup(json string, path string) (gjson.Result, error) {
	if json == "" {
		return gjson.Result{}, fmt.Errorf("empty JSON string")
	}
	if path == "" {
		return gjson.Result{}, fmt.Errorf("empty JSONPath expression")
	}

	result := gjson.Get(json, convertToGjsonPath(path))
	if !result.Exists() {
		return gjson.Result{}, fmt.Errorf("path not found: %s", path)
	}
	return result, nil
}

// convertToGjsonPath converts a JSONPath expression to a gjson path.
//
//	$.guilds[0].guild_id -> guilds.0.guild_id
//	$.guilds[*].guild_id -> guilds.#.guild_id
func convertToGjsonPath(path string) string {
	if path == "$" {
		return "@this"
	}

	path = strings.TrimPrefix(path, "$")
	if path == "" {
		return "@this"
	}
	path = strings.TrimPrefix(path, ".")

	// Bracketed member names: $['name'] and $["name"]
	path = strings.NewReplacer("['", ".", "']", "", "[\"", ".", "\"]", "").Replace(path)

	// Wildcards and indexes
	path = strings.ReplaceAll(path, "[*]", ".#")
	path = strings.ReplaceAll(path, "[", ".")
	path = strings.ReplaceAll(path, "]", "")

	return strings.TrimPrefix(path, ".")
}
