package server

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
)

// encodeAggregate serializes the merged pairs of a round as a JSON object of
// base64 strings. An empty round encodes as "{}".
func encodeAggregate(pairs map[string][]byte) ([]byte, error) {
	data := make(map[string]string, len(pairs))
	for k, v := range pairs {
		data[k] = base64.StdEncoding.EncodeToString(v)
	}

	blob, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("failed to serialize round aggregate: %w", err)
	}
	return blob, nil
}

// decodeAggregate reverses encodeAggregate.
func decodeAggregate(blob []byte) (map[string][]byte, error) {
	var data map[string]string
	if err := json.Unmarshal(blob, &data); err != nil {
		return nil, fmt.Errorf("failed to deserialize round aggregate: %w", err)
	}

	pairs := make(map[string][]byte, len(data))
	for k, v := range data {
		decoded, err := base64.StdEncoding.DecodeString(v)
		if err != nil {
			return nil, fmt.Errorf("failed to decode value for key %s: %w", k, err)
		}
		pairs[k] = decoded
	}
	return pairs, nil
}
