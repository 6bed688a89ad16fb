package util

import (
	"bytes"
	"encoding/json"
)

// CompactJSON 去除 JSON 中无意义的空白，用于保证载荷按字节稳定往返
func CompactJSON(raw []byte) (json.RawMessage, error) {
	var buf bytes.Buffer
	if err := json.Compact(&buf, raw); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
