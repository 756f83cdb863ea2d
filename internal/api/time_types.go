package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"

	"github.com/danielgtaylor/huma/v2"
)

// FlexTime is a client timestamp accepted as either:
//   - an RFC 3339 string, with or without fractional seconds
//   - epoch milliseconds, as a JSON number or a numeric string
//
// It keeps the raw text so the service layer parses and reports it like any
// other field.
type FlexTime string

// UnmarshalJSON accepts a string or an integral number.
func (ft *FlexTime) UnmarshalJSON(data []byte) error {
	if bytes.Equal(data, []byte("null")) {
		return nil
	}

	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*ft = FlexTime(s)
		return nil
	}

	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("cannot unmarshal %s into FlexTime", string(data))
	}
	ms, err := strconv.ParseInt(n.String(), 10, 64)
	if err != nil {
		// Some encoders send large integers in float notation.
		f, ferr := n.Float64()
		if ferr != nil || math.IsNaN(f) || f < math.MinInt64 || f >= math.MaxInt64 {
			return fmt.Errorf("cannot unmarshal %s into FlexTime", string(data))
		}
		ms = int64(f)
	}
	*ft = FlexTime(strconv.FormatInt(ms, 10))
	return nil
}

// Schema lets huma accept both encodings.
func (FlexTime) Schema(_ huma.Registry) *huma.Schema {
	return &huma.Schema{
		Description: "RFC 3339 timestamp or epoch milliseconds",
		OneOf: []*huma.Schema{
			{Type: huma.TypeString},
			{Type: huma.TypeNumber},
		},
	}
}

// ptr returns nil for an absent timestamp.
func (ft *FlexTime) ptr() *string {
	if ft == nil {
		return nil
	}
	s := string(*ft)
	return &s
}
