package game

import (
	"fmt"
	"sort"
	"strings"
)

// IllegalStateError describes a broken invariant inside a search. It is
// raised as a panic value since it signals a programming or configuration error.
type IllegalStateError struct {
	Invariant string
	Context   map[string]any
}

func (e *IllegalStateError) Error() string {
	if len(e.Context) == 0 {
		return "illegal state: " + e.Invariant
	}
	keys := make([]string, 0, len(e.Context))
	for k := range e.Context {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	pairs := make([]string, len(keys))
	for i, k := range keys {
		pairs[i] = fmt.Sprintf("%s=%v", k, e.Context[k])
	}
	return fmt.Sprintf("illegal state: %s (%s)", e.Invariant, strings.Join(pairs, ", "))
}

// Raise panics with an IllegalStateError built from alternating key/value pairs.
func Raise(invariant string, keyvals ...any) {
	ctx := make(map[string]any, len(keyvals)/2)
	for i := 0; i+1 < len(keyvals); i += 2 {
		ctx[fmt.Sprint(keyvals[i])] = keyvals[i+1]
	}
	panic(&IllegalStateError{Invariant: invariant, Context: ctx})
}
