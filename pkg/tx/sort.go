package tx

import (
	"bytes"
	"sort"
)

// sortBySerialization sorts items in place by the byte order of ser(item).
// Each item is serialized once.
func sortBySerialization[T any](items []T, ser func(T) []byte) {
	keyed := make([]struct {
		key  []byte
		item T
	}, len(items))
	for i, it := range items {
		keyed[i].key = ser(it)
		keyed[i].item = it
	}
	sort.SliceStable(keyed, func(i, j int) bool {
		return bytes.Compare(keyed[i].key, keyed[j].key) < 0
	})
	for i := range keyed {
		items[i] = keyed[i].item
	}
}
