// Package cache provides short-lived memoization of backend reads with
// claim semantics, so concurrent readers of one key issue a single fetch.
package cache

type hitResult[T any] struct {
	data    T
	valid   bool
	claimed bool
}

type Cache[T any] interface {
	// getOrClaim returns the entry for key, or claims it for the caller
	// when absent. A claimed entry is invalid until set.
	getOrClaim(key string) hitResult[T]
	set(key string, data T)
	delete(key string)
	// wait blocks briefly before re-checking a claimed-but-unset entry.
	wait()
}
