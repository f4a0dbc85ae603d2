package chclient

import (
	"net/http"

	goccyjson "github.com/goccy/go-json"
)

// chSummary mirrors the subset of ClickHouse's X-ClickHouse-Summary
// response header this client cares about.
type chSummary struct {
	WrittenRows string `json:"written_rows"`
	ReadRows    string `json:"read_rows"`
}

// countSummaryRows reads rows-affected from the X-ClickHouse-Summary
// header ClickHouse attaches to query responses. Its numeric fields are
// sent as JSON strings, not numbers, hence the string-typed struct
// fields and the manual parse below.
func countSummaryRows(resp *http.Response) (int64, error) {
	raw := resp.Header.Get("X-ClickHouse-Summary")
	if raw == "" {
		return 0, nil
	}
	var s chSummary
	if err := goccyjson.Unmarshal([]byte(raw), &s); err != nil {
		return 0, nil
	}
	return parseDecimalInt64(s.WrittenRows), nil
}

func parseDecimalInt64(s string) int64 {
	var n int64
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c < '0' || c > '9' {
			return n
		}
		n = n*10 + int64(c-'0')
	}
	return n
}
