package notify

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"sort"

	"github.com/google/uuid"
)

// IdempotencyKey returns the first 16 hex characters of the SHA-256
// digest of the canonical (sorted-key) JSON encoding of
// {trip_id, type, extra} — matching the original system's
// hashlib.sha256(json.dumps(data, sort_keys=True)) derivation.
func IdempotencyKey(tripID uuid.UUID, notificationType Type, extra map[string]string) string {
	canonical := canonicalJSON(map[string]interface{}{
		"trip_id": tripID.String(),
		"type":    string(notificationType),
		"extra":   extra,
	})
	sum := sha256.Sum256(canonical)
	return hex.EncodeToString(sum[:])[:16]
}

// canonicalJSON serializes v with object keys sorted, recursively, so
// the same logical value always hashes to the same bytes regardless of
// map iteration order.
func canonicalJSON(v interface{}) []byte {
	sorted := sortKeys(v)
	b, _ := json.Marshal(sorted)
	return b
}

func sortKeys(v interface{}) interface{} {
	switch val := v.(type) {
	case map[string]interface{}:
		keys := make([]string, 0, len(val))
		for k := range val {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		ordered := make(orderedMap, 0, len(keys))
		for _, k := range keys {
			ordered = append(ordered, kv{k, sortKeys(val[k])})
		}
		return ordered
	case map[string]string:
		m := make(map[string]interface{}, len(val))
		for k, v := range val {
			m[k] = v
		}
		return sortKeys(m)
	default:
		return v
	}
}

type kv struct {
	Key   string
	Value interface{}
}

type orderedMap []kv

func (o orderedMap) MarshalJSON() ([]byte, error) {
	b := []byte{'{'}
	for i, pair := range o {
		if i > 0 {
			b = append(b, ',')
		}
		keyBytes, _ := json.Marshal(pair.Key)
		b = append(b, keyBytes...)
		b = append(b, ':')
		valBytes, _ := json.Marshal(pair.Value)
		b = append(b, valBytes...)
	}
	b = append(b, '}')
	return b, nil
}
