// Package domain holds the persisted entities of the recruiting core.
// Every entity is a flat, gorm-tagged struct joined by id;
// JSON-valued columns use gorm.io/datatypes.JSON so both the embedded
// SQLite reference schema and the Postgres reference schema store the
// identical on-wire shape.
package domain

import (
	"encoding/json"
	"strings"

	"gorm.io/datatypes"
)

func toLower(s string) string { return strings.ToLower(strings.TrimSpace(s)) }

func decodeStringSlice(raw datatypes.JSON) []string {
	if len(raw) == 0 {
		return nil
	}
	var out []string
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil
	}
	return out
}

func encodeStringSlice(in []string) datatypes.JSON {
	if in == nil {
		in = []string{}
	}
	b, err := json.Marshal(in)
	if err != nil {
		return datatypes.JSON([]byte("[]"))
	}
	return datatypes.JSON(b)
}
