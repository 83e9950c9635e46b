package util

// Recover is a helper function to recover from a panic and set the error pointer to the recovered error.
// If the panic is not an error, it will be re-panicked.
//
// Usage:
//
//	func fn() (err error) {
//		defer Recover(&err)
//		// code that may panic(err)
//	}
func Recover(err *error) {
	if r := recover(); r != nil {
		if e, ok := r.(error); ok {
			*err = e
		} else {
			panic(r)
		}
	}
}

// RecoverFunc is a helper function to recover from a panic and set the error pointer to the recovered error.
// If the panic is not an error, it will be re-panicked.
//
// Usage:
//
//	return RecoverFunc(func() error {
//		// code that may panic(err)
//	})
func RecoverFunc(fn func() error) (err error) {
	defer Recover(&err)
	return fn()
}
