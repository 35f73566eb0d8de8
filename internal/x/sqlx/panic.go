package sqlx

// PanicSentinel is the value passed to panic() by the functions in this
// package.
type PanicSentinel struct {
	Cause error
}

// Must panics with a PanicSentinel if err is non-nil.
func Must(err error) {
	if err != nil {
		panic(PanicSentinel{err})
	}
}

// Recover assigns the cause of a PanicSentinel panic to *err.
//
// It must be called directly by a deferred statement. Panics with any other
// value are re-raised.
func Recover(err *error) {
	switch v := recover().(type) {
	case nil:
	case PanicSentinel:
		*err = v.Cause
	default:
		panic(v)
	}
}
