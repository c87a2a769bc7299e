package exceptions

// Cast finds the first error in the chain of err that implements T.
func Cast[T any](err error) (T, bool) {
	var zero T
	for err != nil {
		if interfaceError, isInterface := err.(T); isInterface {
			return interfaceError, true
		}
		switch x := err.(type) {
		case interface{ Unwrap() error }:
			err = x.Unwrap()
		case interface{ Unwrap() []error }:
			for _, innerErr := range x.Unwrap() {
				if interfaceError, isInterface := Cast[T](innerErr); isInterface {
					return interfaceError, true
				}
			}
			return zero, false
		default:
			return zero, false
		}
	}
	return zero, false
}
