package bboltx

import (
	"context"
	"errors"
	"os"

	"github.com/dogmatiq/linger"
	"go.etcd.io/bbolt"
)

// DefaultFileMode is the mode used for new database files when no mode is
// given to Open().
const DefaultFileMode os.FileMode = 0600

// Open opens the database at path, creating it if it does not exist.
//
// BoltDB databases are locked exclusively by the process that opens them, so
// Open() waits for the lock until ctx's deadline, or opts.Timeout if it is
// sooner. It returns context.DeadlineExceeded if the lock is not acquired in
// time.
func Open(
	ctx context.Context,
	path string,
	mode os.FileMode,
	opts *bbolt.Options,
) (*bbolt.DB, error) {
	// A non-positive timeout in the options means "wait forever", so the
	// context must be checked first.
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if mode == 0 {
		mode = DefaultFileMode
	}

	db, err := bbolt.Open(path, mode, withDeadline(ctx, opts))
	if errors.Is(err, bbolt.ErrTimeout) {
		return nil, context.DeadlineExceeded
	}

	return db, err
}

// withDeadline returns a copy of opts with its timeout capped at the time
// remaining until ctx's deadline.
func withDeadline(ctx context.Context, opts *bbolt.Options) *bbolt.Options {
	timeout, ok := linger.FromContextDeadline(ctx)
	if !ok {
		return opts
	}

	var clone bbolt.Options
	if opts == nil {
		clone = *bbolt.DefaultOptions
	} else if opts.Timeout > 0 && opts.Timeout <= timeout {
		return opts
	} else {
		clone = *opts
	}

	clone.Timeout = timeout
	return &clone
}
