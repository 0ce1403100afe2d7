package insight

// Degradable wraps a stage result that may have been substituted with a
// hard-coded fallback. The pipeline proceeds either way, but callers can
// observe that a fallback was used and why.
type Degradable[T any] struct {
	Value    T
	Degraded bool
	Cause    error
}

// Ok wraps a genuine stage result.
func Ok[T any](v T) Degradable[T] {
	return Degradable[T]{Value: v}
}

// Fallback wraps a substituted result together with the error that forced
// the substitution.
func Fallback[T any](v T, cause error) Degradable[T] {
	return Degradable[T]{Value: v, Degraded: true, Cause: cause}
}
