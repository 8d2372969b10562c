package layering

// KeyFunc extracts the identity used to line up entries across layers.
type KeyFunc[T any, K comparable] func(T) K

// ApplyFunc copies the overridable part of src onto dst.
type ApplyFunc[T any] func(dst *T, src T)

// Overlay resolves keyed slices against a base. The result is a deep copy of
// base, in base order, with entries from layers applied on top. Layers are
// ordered from strongest to weakest; the weakest is applied first so stronger
// layers win. Entries whose key is not present in base are dropped.
func Overlay[T any, K comparable](base []T, key KeyFunc[T, K], apply ApplyFunc[T], layers ...[]T) []T {
	if base == nil {
		return nil
	}
	out := Clone(base)
	index := make(map[K]int, len(out))
	for i := range out {
		k := key(out[i])
		if _, seen := index[k]; !seen {
			index[k] = i
		}
	}

	for l := len(layers) - 1; l >= 0; l-- {
		for _, entry := range layers[l] {
			i, ok := index[key(entry)]
			if !ok {
				continue
			}
			apply(&out[i], Clone(entry))
		}
	}
	return out
}

// Dropped returns the entries of layer whose key does not exist in base, in
// layer order. Callers use it to report persisted data that no longer has a
// descriptor.
func Dropped[T any, K comparable](base, layer []T, key KeyFunc[T, K]) []T {
	known := make(map[K]struct{}, len(base))
	for _, entry := range base {
		known[key(entry)] = struct{}{}
	}
	var out []T
	for _, entry := range layer {
		if _, ok := known[key(entry)]; !ok {
			out = append(out, entry)
		}
	}
	return out
}
