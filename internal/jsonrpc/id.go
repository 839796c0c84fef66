package jsonrpc

import (
	"bytes"
	"encoding/json"
	"errors"
	"strconv"
)

// errInvalidID is returned for ids that are neither an integer nor a string.
var errInvalidID = errors.New("id must be an integer or string")

// ID is a request id. Unlike jsonrpc2.ID it keeps negative integers.
type ID struct {
	Num      int64
	Str      string
	IsString bool
}

// NumberID returns an integer id.
func NumberID(n int64) *ID {
	return &ID{Num: n}
}

// StringID returns a string id.
func StringID(s string) *ID {
	return &ID{Str: s, IsString: true}
}

func (id ID) String() string {
	if id.IsString {
		return strconv.Quote(id.Str)
	}

	return strconv.FormatInt(id.Num, 10)
}

func (id ID) MarshalJSON() ([]byte, error) {
	if id.IsString {
		return json.Marshal(id.Str)
	}

	return []byte(strconv.FormatInt(id.Num, 10)), nil
}

func (id *ID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return errInvalidID
	}

	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return errInvalidID
		}

		*id = ID{Str: s, IsString: true}

		return nil
	}

	n, err := strconv.ParseInt(string(data), 10, 64)
	if err != nil {
		return errInvalidID
	}

	*id = ID{Num: n}

	return nil
}
