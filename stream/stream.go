// Package stream provides lazy, finite, single-consumption sequence pipelines.
//
// A Stream is built from a source (Of, FromSlice, Range, Words), transformed by
// intermediate operations (Map, Filter, Peek, Concat) and consumed by exactly one
// terminal operation (Collect, Count, Reduce, Fold, ToMap). Nothing runs until the
// terminal operation iterates. Using a stream a second time, directly or through a
// stream derived from it, reports ErrConsumed.
//
//	words := stream.Words("Wholly is a fluffy sheep with a dark nose")
//	caps := stream.Map(words, capitalize)
//	kept := stream.Filter(caps, startsWithConsonant)
//	s, ok, err := stream.Reduce(kept, func(a, b string) string { return a + b })
//
// Streams run on the calling goroutine. Parallel aggregation over a pool is provided by
// CountWords.
package stream

import (
	"errors"
	"iter"
	"strings"
	"sync/atomic"
)

// ErrConsumed is returned when a stream is used after it was already consumed or
// turned into another stream.
var ErrConsumed = errors.New("stream has already been operated upon or closed")

// Stream is a lazy sequence of T that can be consumed once. The zero value is an
// empty stream.
type Stream[T any] struct {
	seq  iter.Seq[T]
	used *atomic.Bool
	err  error
}

func newStream[T any](seq iter.Seq[T]) Stream[T] {
	return Stream[T]{seq: seq, used: new(atomic.Bool)}
}

func failed[T any](err error) Stream[T] {
	return Stream[T]{err: err}
}

// take hands out the underlying sequence exactly once.
func (s Stream[T]) take() (iter.Seq[T], error) {
	if s.err != nil {
		return nil, s.err
	}
	if s.used == nil {
		return func(func(T) bool) {}, nil
	}
	if !s.used.CompareAndSwap(false, true) {
		return nil, ErrConsumed
	}
	return s.seq, nil
}

// All consumes the stream as an iterator for use with range.
func (s Stream[T]) All() (iter.Seq[T], error) {
	return s.take()
}

// Of returns a stream over the given values.
func Of[T any](values ...T) Stream[T] {
	return FromSlice(values)
}

// FromSlice returns a stream over the elements of values. The slice is read lazily.
func FromSlice[T any](values []T) Stream[T] {
	return newStream(func(yield func(T) bool) {
		for _, v := range values {
			if !yield(v) {
				return
			}
		}
	})
}

// FromSeq wraps an existing iterator. The resulting stream may only be consumed once
// even if seq itself could be replayed.
func FromSeq[T any](seq iter.Seq[T]) Stream[T] {
	return newStream(seq)
}

// Range returns the integers in [start, end).
func Range(start, end int) Stream[int] {
	return newStream(func(yield func(int) bool) {
		for i := start; i < end; i++ {
			if !yield(i) {
				return
			}
		}
	})
}

// Words splits sentence on single spaces, keeping punctuation attached to words.
func Words(sentence string) Stream[string] {
	if sentence == "" {
		return Of[string]()
	}
	return newStream(func(yield func(string) bool) {
		for w := range strings.SplitSeq(sentence, " ") {
			if !yield(w) {
				return
			}
		}
	})
}

// Map returns a stream of fn applied to every element of s.
func Map[T any, R any](s Stream[T], fn func(T) R) Stream[R] {
	seq, err := s.take()
	if err != nil {
		return failed[R](err)
	}
	return newStream(func(yield func(R) bool) {
		for v := range seq {
			if !yield(fn(v)) {
				return
			}
		}
	})
}

// Filter returns a stream of the elements of s for which keep returns true.
func Filter[T any](s Stream[T], keep func(T) bool) Stream[T] {
	seq, err := s.take()
	if err != nil {
		return failed[T](err)
	}
	return newStream(func(yield func(T) bool) {
		for v := range seq {
			if keep(v) && !yield(v) {
				return
			}
		}
	})
}

// Peek calls fn on every element as it flows through, without changing it.
func Peek[T any](s Stream[T], fn func(T)) Stream[T] {
	return Map(s, func(v T) T {
		fn(v)
		return v
	})
}

// Concat returns a stream of the elements of a followed by those of b.
func Concat[T any](a, b Stream[T]) Stream[T] {
	first, err := a.take()
	if err != nil {
		return failed[T](err)
	}
	second, err := b.take()
	if err != nil {
		return failed[T](err)
	}
	return newStream(func(yield func(T) bool) {
		for v := range first {
			if !yield(v) {
				return
			}
		}
		for v := range second {
			if !yield(v) {
				return
			}
		}
	})
}
