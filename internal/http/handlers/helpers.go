package handlers

import (
	"encoding/json"

	"gorm.io/datatypes"
)

func encodeStrings(in []string) datatypes.JSON {
	if in == nil {
		in = []string{}
	}
	b, err := json.Marshal(in)
	if err != nil {
		return datatypes.JSON([]byte("[]"))
	}
	return datatypes.JSON(b)
}
