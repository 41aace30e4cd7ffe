package feed

// Merge folds several states of one element type into one. A loading state
// wins over an error, an error over complete; complete data is concatenated
// in argument order.
func Merge[T any](states ...State[T]) State[T] {
	out := State[T]{Status: StatusComplete, Data: []T{}}
	for _, s := range states {
		if s.Status == StatusLoading {
			return State[T]{Status: StatusLoading}
		}
	}
	for _, s := range states {
		if s.Status == StatusError {
			return State[T]{Status: StatusError, Err: s.Err}
		}
		out.Data = append(out.Data, s.Data...)
	}
	return out
}
