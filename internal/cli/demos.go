package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"math/rand"
	"regexp"
	"slices"
	"strings"
	"time"
	"unicode"

	"github.com/utkarsh5026/lambdapool/pool"
	"github.com/utkarsh5026/lambdapool/stream"
)

const (
	defaultSentence = "Wholly is a fluffy sheep with a dark nose"
	sentenceDirty   = "This IS, a caSe of VERy dirty... sentence... JUst, clean, it!"
	sentenceUpper   = "- THIS - OTHER - SENTENCE - IS - JUST - UPPER - CASE -"
)

var (
	errNonPositive = errors.New("b must be positive")
	punctuation    = regexp.MustCompile(`[.,!]`)
	stopwords      = map[string]bool{"a": true, "is": true, "it": true, "of": true, "this": true}
)

// Pair is the input of one sine job.
type Pair struct {
	A, B float64
}

// GeneratePairs returns n pairs drawn from a generator seeded with seed, so runs with
// the same seed see the same inputs.
func GeneratePairs(seed int64, n int) []Pair {
	r := rand.New(rand.NewSource(seed)) // #nosec G404 -- reproducible demo inputs
	pairs := make([]Pair, n)
	for i := range pairs {
		pairs[i] = Pair{A: r.Float64(), B: r.Float64()}
	}
	return pairs
}

func sine(a, b float64) (float64, error) {
	if b <= 0 {
		return 0, fmt.Errorf("%w, got %v", errNonPositive, b)
	}
	return math.Sin(a) / math.Sqrt(b), nil
}

// sineJob computes sin(a)/sqrt(b) for its own inputs.
type sineJob struct {
	pair Pair
}

func (j sineJob) Compute(ctx context.Context) (float64, error) {
	return sine(j.pair.A, j.pair.B)
}

// SineJobs builds one job per pair, either as named sineJob values or as closures.
func SineJobs(pairs []Pair, closures bool) []pool.Job[float64] {
	jobs := make([]pool.Job[float64], len(pairs))
	for i, pr := range pairs {
		if closures {
			jobs[i] = pool.JobFunc[float64](func(ctx context.Context) (float64, error) {
				return sine(pr.A, pr.B)
			})
		} else {
			jobs[i] = sineJob{pair: pr}
		}
	}
	return jobs
}

// RunManyJobs submits one sine job per pair and returns their results in pair order.
func RunManyJobs(ctx context.Context, p *pool.WorkerPool, pairs []Pair, closures bool) ([]Row, error) {
	results, err := pool.SubmitBatch(ctx, p, SineJobs(pairs, closures))
	if err != nil {
		return nil, err
	}

	rows := make([]Row, len(results))
	for i, r := range results {
		rows[i] = resultRow(r, fmt.Sprintf("a=%.2f b=%.2f", pairs[i].A, pairs[i].B), func(v float64) string {
			return fmt.Sprintf("%.2f", v)
		})
	}
	return rows, nil
}

// RunCallable submits a job that works for about d and returns the time it finished.
// The handle status is written to out right after submission, before waiting.
func RunCallable(ctx context.Context, p *pool.WorkerPool, d time.Duration, out io.Writer) (*pool.Handle[time.Time], error) {
	h, err := pool.Submit(p, pool.JobFunc[time.Time](func(ctx context.Context) (time.Time, error) {
		_, _ = fmt.Fprintln(out, "Start producing!")
		if err := produce(ctx, d, out); err != nil {
			return time.Time{}, err
		}
		_, _ = fmt.Fprintln(out, "Production completed!")
		return time.Now(), nil
	}))
	if err != nil {
		return nil, err
	}

	_, _ = fmt.Fprintf(out, "The job is done? %v\n", h.Status() != pool.StatusPending)
	return h, nil
}

// RunRunnable submits a fire-and-forget job that works for about d.
func RunRunnable(p *pool.WorkerPool, d time.Duration, out io.Writer) (*pool.Handle[pool.Void], error) {
	return pool.Execute(p, func(ctx context.Context) error {
		_, _ = fmt.Fprintln(out, "Start working!")
		if err := produce(ctx, d, out); err != nil {
			return err
		}
		_, _ = fmt.Fprintln(out, "Work completed!")
		return nil
	})
}

// produce sleeps d in two steps, printing progress.
func produce(ctx context.Context, d time.Duration, out io.Writer) error {
	step := d / 2
	for range 2 {
		_, _ = fmt.Fprintln(out, "...")
		select {
		case <-time.After(step):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

// ProductOfRange multiplies 0..n-1 starting from the identity 1.
func ProductOfRange(n int) (int, error) {
	return stream.Fold(stream.Range(0, n), 1, func(acc, v int) int { return acc * v })
}

// ConsonantSentence capitalises every word of sentence, drops the words starting with
// a vowel and concatenates the rest. ok is false when no word is left.
func ConsonantSentence(sentence string) (string, bool, error) {
	words := stream.Filter(stream.Words(sentence), func(w string) bool { return w != "" })
	capitalised := stream.Map(words, capitalise)
	kept := stream.Filter(capitalised, func(w string) bool {
		return !strings.ContainsRune("AEIOU", []rune(w)[0])
	})
	return stream.Reduce(kept, func(a, b string) string { return a + b })
}

func capitalise(w string) string {
	runes := []rune(strings.ToLower(w))
	runes[0] = unicode.ToUpper(runes[0])
	return string(runes)
}

// MergedCounts cleans two sentences differently, merges them into one stream and counts
// the remaining non-stopword words.
func MergedCounts(dirty, upper string) (map[string]int, error) {
	first := stream.Map(stream.Words(dirty), func(w string) string {
		return punctuation.ReplaceAllString(w, "")
	})
	second := stream.Filter(stream.Words(upper), func(w string) bool { return w != "-" })

	merged := stream.Filter(stream.Map(stream.Concat(first, second), strings.ToLower), func(w string) bool {
		return w != "" && !stopwords[w]
	})
	return stream.ToMap(merged,
		func(w string) string { return w },
		func(string) int { return 1 },
		stream.Sum[int],
	)
}

// WordCountRows counts words in parallel and returns one row per word, most frequent
// first.
func WordCountRows(ctx context.Context, p *pool.WorkerPool, text string, chunkSize int) ([]Row, error) {
	counts, err := stream.CountWords(ctx, p, strings.Fields(text), chunkSize)
	if err != nil {
		return nil, err
	}
	return countRows(counts), nil
}

func countRows(counts map[string]int) []Row {
	words := make([]string, 0, len(counts))
	for w := range counts {
		words = append(words, w)
	}
	slices.SortFunc(words, func(a, b string) int {
		if counts[a] != counts[b] {
			return counts[b] - counts[a]
		}
		return strings.Compare(a, b)
	})

	rows := make([]Row, len(words))
	for i, w := range words {
		rows[i] = Row{Index: i, Input: w, Value: fmt.Sprint(counts[w]), Status: "completed"}
	}
	return rows
}

func resultRow[R any](r pool.Result[R], input string, format func(R) string) Row {
	row := Row{Index: r.Index, Input: input}
	if r.Error != nil {
		row.Status = "failed"
		row.Error = r.Error.Error()
		return row
	}
	row.Status = "completed"
	row.Value = format(r.Value)
	return row
}
