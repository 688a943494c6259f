package codec

import (
	"bytes"
	"encoding/json"
	"strconv"
)

// flexFloat accepts a JSON number or a numeric string. Strings make the
// non-finite values "NaN" and "Inf" representable so they can be rejected
// by validation rather than by the JSON parser.
type flexFloat float64

func (f *flexFloat) UnmarshalJSON(data []byte) error {
	raw, err := unquoteIfString(data)
	if err != nil {
		return err
	}
	v, err := strconv.ParseFloat(string(raw), 64)
	if err != nil {
		return err
	}
	*f = flexFloat(v)
	return nil
}

// flexInt accepts a JSON integer or a numeric string.
type flexInt int64

func (i *flexInt) UnmarshalJSON(data []byte) error {
	raw, err := unquoteIfString(data)
	if err != nil {
		return err
	}
	v, err := strconv.ParseInt(string(raw), 10, 64)
	if err != nil {
		return err
	}
	*i = flexInt(v)
	return nil
}

func unquoteIfString(data []byte) ([]byte, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || data[0] != '"' {
		return data, nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, err
	}
	return []byte(s), nil
}
