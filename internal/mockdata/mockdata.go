// Package mockdata generates deterministic placeholder aggregates for the
// dashboard views until real analytics pipelines back them.
package mockdata

import (
	"context"
	"fmt"
	"hash/fnv"
	"math"
	"math/rand/v2"
	"sort"
	"time"
)

// DateLayout is the format of range bounds.
const DateLayout = "2006-01-02"

// DefaultDays is the series length when no range is given.
const DefaultDays = 7

// MaxDays caps series length for long ranges.
const MaxDays = 90

// Range bounds the data window. Zero values mean open.
type Range struct {
	From time.Time
	To   time.Time
}

// ParseRange parses from/to in DateLayout. Empty strings leave a bound open.
func ParseRange(from, to string) (Range, error) {
	var r Range
	var err error
	if from != "" {
		if r.From, err = time.Parse(DateLayout, from); err != nil {
			return Range{}, fmt.Errorf("invalid from %q: expected YYYY-MM-DD", from)
		}
	}
	if to != "" {
		if r.To, err = time.Parse(DateLayout, to); err != nil {
			return Range{}, fmt.Errorf("invalid to %q: expected YYYY-MM-DD", to)
		}
	}
	if !r.From.IsZero() && !r.To.IsZero() && r.To.Before(r.From) {
		return Range{}, fmt.Errorf("from %s is after to %s", from, to)
	}
	return r, nil
}

// Key is a stable cache key fragment for the range.
func (r Range) Key() string {
	return formatDate(r.From) + ".." + formatDate(r.To)
}

// Days is the number of points a daily series has for this range.
func (r Range) Days() int {
	if r.From.IsZero() || r.To.IsZero() {
		return DefaultDays
	}
	n := int(r.To.Sub(r.From).Hours()/24) + 1
	return min(max(n, 1), MaxDays)
}

// labels returns day labels: dates when the range is closed, D-n otherwise.
func (r Range) labels() []string {
	n := r.Days()
	out := make([]string, n)
	if r.From.IsZero() || r.To.IsZero() {
		for i := range out {
			if d := n - 1 - i; d == 0 {
				out[i] = "D0"
			} else {
				out[i] = fmt.Sprintf("D-%d", d)
			}
		}
		return out
	}
	start := r.To.AddDate(0, 0, -(n - 1))
	for i := range out {
		out[i] = start.AddDate(0, 0, i).Format(DateLayout)
	}
	return out
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(DateLayout)
}

// now is the clock for labels of open-ended ranges.
var now = time.Now

// Source produces one named aggregate.
type Source func(ctx context.Context, r Range) (any, error)

// Get returns the generator for a source name.
func Get(name string) (Source, bool) {
	fn, ok := registry[name]
	if !ok {
		return nil, false
	}
	return func(ctx context.Context, r Range) (any, error) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		return fn(newGen(name, r), r), nil
	}, true
}

// Names lists every registered source, sorted.
func Names() []string {
	out := make([]string, 0, len(registry))
	for k := range registry {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// gen is a seeded generator; identical (source, range) pairs yield identical data.
type gen struct {
	rnd *rand.Rand
}

func newGen(name string, r Range) *gen {
	h := fnv.New64a()
	_, _ = h.Write([]byte(name + "|" + r.Key()))
	seed := h.Sum64()
	return &gen{rnd: rand.New(rand.NewPCG(seed, seed>>1|1))}
}

// around returns base scaled by up to ±spread (fraction), rounded to 2 decimals.
func (g *gen) around(base, spread float64) float64 {
	v := base * (1 + spread*(2*g.rnd.Float64()-1))
	return math.Round(v*100) / 100
}

func (g *gen) count(base float64, spread float64) int64 {
	return int64(math.Round(g.around(base, spread)))
}

func (g *gen) ratio(base, spread float64) float64 {
	v := base * (1 + spread*(2*g.rnd.Float64()-1))
	return math.Round(min(max(v, 0), 1)*1000) / 1000
}

// trend is a gently growing daily series ending near end.
func (g *gen) trend(n int, end, growth float64) []int64 {
	out := make([]int64, n)
	for i := range out {
		back := float64(n - 1 - i)
		v := end * math.Pow(1-growth, back) * (1 + 0.03*(2*g.rnd.Float64()-1))
		out[i] = int64(math.Round(v))
	}
	return out
}

// shares returns n fractions that sum to 1.
func (g *gen) shares(n int) []float64 {
	w := make([]float64, n)
	var sum float64
	for i := range w {
		w[i] = 0.5 + g.rnd.Float64()
		sum += w[i]
	}
	for i := range w {
		w[i] = math.Round(w[i]/sum*1000) / 1000
	}
	return w
}

type obj = map[string]any
