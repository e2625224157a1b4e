package jsonpath

import (
	"testing"
)

const guildList = `{
	"guilds": [
		{"guild_id": 2721664628324040709, "host": ""},
		{"guild_id": "18418463542574935072", "host": "remote"}
	],
	"name": "test",
	"empty": [],
	"owner": null
}`

func TestExtract(t *testing.T) {
	tests := []struct {
		name          string
		path          string
		expected      string
		expectedError bool
	}{
		{
			name:     "Simple property",
			path:     "$.name",
			expected: "test",
		},
		{
			name:     "Object in array",
			path:     "$.guilds[1].host",
			expected: "remote",
		},
		{
			name:     "Bracket notation",
			path:     "$['name']",
			expected: "test",
		},
		{
			name:     "Null value",
			path:     "$.owner",
			expected: "null",
		},
		{
			name:          "Non-existent property",
			path:          "$.channels",
			expectedError: true,
		},
		{
			name:          "Array index out of bounds",
			path:          "$.guilds[5].guild_id",
			expectedError: true,
		},
		{
			name:          "Empty path",
			path:          "",
			expectedError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := Extract(guildList, tt.path)

			if tt.expectedError && err == nil {
				t.Errorf("Expected error, got nil")
			}
			if !tt.expectedError && err != nil {
				t.Errorf("Expected no error, got %v", err)
			}
			if !tt.expectedError && result != tt.expected {
				t.Errorf("Expected %q, got %q", tt.expected, result)
			}
		})
	}

	if _, err := Extract("", "$.name"); err == nil {
		t.Errorf("Expected error for empty JSON, got nil")
	}
}

func TestExtractUint(t *testing.T) {
	// Numeric IDs larger than 2^53 must not lose precision
	id, err := ExtractUint(guildList, "$.guilds[0].guild_id")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if id != 2721664628324040709 {
		t.Errorf("Expected 2721664628324040709, got %d", id)
	}

	// String-encoded IDs
	id, err = ExtractUint(guildList, "$.guilds[1].guild_id")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if id != 18418463542574935072 {
		t.Errorf("Expected 18418463542574935072, got %d", id)
	}

	if _, err := ExtractUint(guildList, "$.guilds[1].host"); err == nil {
		t.Error("Expected error for non-numeric string")
	}
	if _, err := ExtractUint(guildList, "$.guilds"); err == nil {
		t.Error("Expected error for array value")
	}
}

func TestExtractUintRejectsMalformedNumbers(t *testing.T) {
	tests := []struct {
		name string
		json string
	}{
		{"negative number", `{"id": -1}`},
		{"fraction", `{"id": 1.5}`},
		{"exponent", `{"id": 1e3}`},
		{"overflow", `{"id": 18446744073709551616}`},
		{"trailing garbage in string", `{"id": "12abc"}`},
		{"negative string", `{"id": "-7"}`},
		{"boolean", `{"id": true}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if v, err := ExtractUint(tt.json, "$.id"); err == nil {
				t.Errorf("Expected error, got %d", v)
			}
		})
	}

	if _, err := ExtractUints(`{"ids": [1, -2]}`, "$.ids"); err == nil {
		t.Error("Expected error for a negative element")
	}
	if _, err := ExtractUints(`{"ids": ["3", "4x"]}`, "$.ids"); err == nil {
		t.Error("Expected error for a malformed string element")
	}
}

func TestExtractUints(t *testing.T) {
	ids, err := ExtractUints(guildList, "$.guilds[*].guild_id")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if len(ids) != 2 {
		t.Fatalf("Expected 2 ids, got %d", len(ids))
	}
	if ids[0] != 2721664628324040709 || ids[1] != 18418463542574935072 {
		t.Errorf("Unexpected ids: %v", ids)
	}

	ids, err = ExtractUints(guildList, "$.empty")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if ids == nil || len(ids) != 0 {
		t.Errorf("Expected empty non-nil slice, got %#v", ids)
	}

	if _, err := ExtractUints(guildList, "$.name"); err == nil {
		t.Error("Expected error for non-array value")
	}
}

func TestCountAndExists(t *testing.T) {
	n, err := Count(guildList, "$.guilds")
	if err != nil || n != 2 {
		t.Errorf("Count = %d, %v; want 2, nil", n, err)
	}
	if _, err := Count(guildList, "$.name"); err == nil {
		t.Error("Expected error counting a string")
	}

	if !Exists(guildList, "$.owner") {
		t.Error("Expected $.owner to exist")
	}
	if Exists(guildList, "$.missing") {
		t.Error("Expected $.missing not to exist")
	}
}

func TestConvertToGjsonPath(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"$", "@this"},
		{"$.name", "name"},
		{"$.guilds[0].guild_id", "guilds.0.guild_id"},
		{"$.guilds[*].guild_id", "guilds.#.guild_id"},
		{"$['name']", "name"},
		{"$[\"name\"]", "name"},
		{"$[0]", "0"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := convertToGjsonPath(tt.input); got != tt.expected {
				t.Errorf("convertToGjsonPath(%q) = %q, want %q", tt.input, got, tt.expected)
			}
		})
	}
}
