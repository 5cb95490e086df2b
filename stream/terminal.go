package stream

// Collect consumes s into a slice.
func Collect[T any](s Stream[T]) ([]T, error) {
	seq, err := s.take()
	if err != nil {
		return nil, err
	}

	out := []T{}
	for v := range seq {
		out = append(out, v)
	}
	return out, nil
}

// Count consumes s and returns the number of elements.
func Count[T any](s Stream[T]) (int, error) {
	seq, err := s.take()
	if err != nil {
		return 0, err
	}

	n := 0
	for range seq {
		n++
	}
	return n, nil
}

// Fold combines every element into identity with fn, left to right. An empty stream
// yields identity.
func Fold[T any, A any](s Stream[T], identity A, fn func(acc A, v T) A) (A, error) {
	seq, err := s.take()
	if err != nil {
		return identity, err
	}

	acc := identity
	for v := range seq {
		acc = fn(acc, v)
	}
	return acc, nil
}

// Reduce combines the elements pairwise with fn, left to right. ok is false when the
// stream was empty.
func Reduce[T any](s Stream[T], fn func(a, b T) T) (result T, ok bool, err error) {
	seq, err := s.take()
	if err != nil {
		return result, false, err
	}

	for v := range seq {
		if !ok {
			result, ok = v, true
			continue
		}
		result = fn(result, v)
	}
	return result, ok, nil
}

// ToMap consumes s into a map. When two elements produce the same key their values are
// combined with merge.
func ToMap[T any, K comparable, V any](s Stream[T], key func(T) K, value func(T) V, merge func(V, V) V) (map[K]V, error) {
	seq, err := s.take()
	if err != nil {
		return nil, err
	}

	out := make(map[K]V)
	for v := range seq {
		k := key(v)
		if existing, ok := out[k]; ok {
			out[k] = merge(existing, value(v))
		} else {
			out[k] = value(v)
		}
	}
	return out, nil
}

// Sum is a merge function adding two numbers.
func Sum[N ~int | ~int64 | ~float64](a, b N) N {
	return a + b
}

// MergeInto folds src into dst, combining values of shared keys with merge.
func MergeInto[K comparable, V any](dst, src map[K]V, merge func(V, V) V) {
	for k, v := range src {
		if existing, ok := dst[k]; ok {
			dst[k] = merge(existing, v)
		} else {
			dst[k] = v
		}
	}
}
