package aggregate

import (
	"encoding/json"
	"fmt"

	"github.com/fastygo/storefront/domain"
)

// Codec converts an aggregate to and from its stored payload.
type Codec[T domain.Aggregate] struct {
	Kind   string
	Owner  func(T) string
	Encode func(T) ([]byte, error)
	Decode func([]byte) (T, error)
}

// JSONCodec stores the aggregate snapshot S as JSON and rebuilds it through restore,
// so every load revalidates the aggregate.
func JSONCodec[T domain.Aggregate, S any](kind string, owner func(T) string, snapshot func(T) S, restore func(S) (T, error)) Codec[T] {
	return Codec[T]{
		Kind:  kind,
		Owner: owner,
		Encode: func(agg T) ([]byte, error) {
			return json.Marshal(snapshot(agg))
		},
		Decode: func(data []byte) (T, error) {
			var (
				zero T
				snap S
			)
			if err := json.Unmarshal(data, &snap); err != nil {
				return zero, fmt.Errorf("decode %s: %w", kind, err)
			}
			return restore(snap)
		},
	}
}
