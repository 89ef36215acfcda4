package payment

type asyncState int

const (
	asyncIdle asyncState = iota
	asyncLoading
	asyncReady
	asyncFailed
)

// Ticket identifies one request issued against an AsyncValue.
type Ticket struct {
	Key string
	seq uint64
}

// AsyncValue tracks one stream of asynchronous results. Only the most recently
// issued request may settle it: results carrying an older ticket are dropped,
// so a slow response for a previous key never overwrites a newer one.
//
// AsyncValue is not safe for concurrent use; the owner serializes access.
type AsyncValue[T any] struct {
	state asyncState
	value T
	err   string
	key   string
	seq   uint64
}

// Begin starts a request for key, clearing any previous value or error.
func (a *AsyncValue[T]) Begin(key string) Ticket {
	var zero T
	a.seq++
	a.key = key
	a.state = asyncLoading
	a.value = zero
	a.err = ""
	return Ticket{Key: key, seq: a.seq}
}

// Resolve settles the request with a value. It reports false for stale tickets.
func (a *AsyncValue[T]) Resolve(t Ticket, v T) bool {
	if !a.current(t) {
		return false
	}
	a.state = asyncReady
	a.value = v
	a.err = ""
	return true
}

// Fail settles the request with an error message. It reports false for stale tickets.
func (a *AsyncValue[T]) Fail(t Ticket, msg string) bool {
	if !a.current(t) {
		return false
	}
	var zero T
	a.state = asyncFailed
	a.value = zero
	a.err = msg
	return true
}

// FailNow records a terminal error without a request, e.g. for missing configuration.
func (a *AsyncValue[T]) FailNow(key, msg string) {
	a.Fail(a.Begin(key), msg)
}

// Reset abandons the request in flight, if any, and clears the value. Results for
// tickets issued before Reset are dropped.
func (a *AsyncValue[T]) Reset() {
	var zero T
	a.seq++
	a.key = ""
	a.state = asyncIdle
	a.value = zero
	a.err = ""
}

// Loading reports whether the latest request is in flight.
func (a *AsyncValue[T]) Loading() bool {
	return a.state == asyncLoading
}

// Err returns the latest error message, or "".
func (a *AsyncValue[T]) Err() string {
	return a.err
}

// Value returns the settled value; ok is false unless the latest request succeeded.
func (a *AsyncValue[T]) Value() (T, bool) {
	return a.value, a.state == asyncReady
}

// Key returns the key of the latest request.
func (a *AsyncValue[T]) Key() string {
	return a.key
}

func (a *AsyncValue[T]) current(t Ticket) bool {
	return a.state == asyncLoading && t.seq == a.seq && t.Key == a.key
}
