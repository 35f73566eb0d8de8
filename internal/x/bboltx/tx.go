package bboltx

import (
	"go.etcd.io/bbolt"
)

// PanicSentinel is the value passed to panic() by Must().
type PanicSentinel struct {
	Cause error
}

// Must panics with a PanicSentinel if err is non-nil.
//
// The panic is converted back to an error by Recover().
func Must(err error) {
	if err != nil {
		panic(PanicSentinel{err})
	}
}

// Recover assigns the cause of a PanicSentinel panic to *err.
//
// It must be called directly by a deferred statement. Panics with any other
// value are propagated.
func Recover(err *error) {
	if err == nil {
		panic("err must be a non-nil pointer")
	}

	if v := recover(); v != nil {
		p, ok := v.(PanicSentinel)
		if !ok {
			panic(v)
		}

		*err = p.Cause
	}
}

// Update runs fn in a read-write transaction.
//
// The transaction is committed if fn returns, and rolled back if it panics.
func Update(db *bbolt.DB, fn func(tx *bbolt.Tx)) {
	Must(db.Update(func(tx *bbolt.Tx) error {
		fn(tx)
		return nil
	}))
}

// View runs fn in a read-only transaction.
func View(db *bbolt.DB, fn func(tx *bbolt.Tx)) {
	Must(db.View(func(tx *bbolt.Tx) error {
		fn(tx)
		return nil
	}))
}
