// Package boltdbtest provides BoltDB databases for use in Ginkgo tests.
package boltdbtest

import (
	"path/filepath"
	"time"

	"github.com/onsi/ginkgo/v2"
	"github.com/onsi/gomega"
	"go.etcd.io/bbolt"
)

// Path returns the path of a BoltDB file that does not yet exist.
//
// Its directory is removed when the current test ends.
func Path() string {
	return filepath.Join(ginkgo.GinkgoT().TempDir(), "data.boltdb")
}

// Open opens a BoltDB database at a new Path().
//
// The database is closed when the current test ends.
func Open() *bbolt.DB {
	db, err := bbolt.Open(Path(), 0600, &bbolt.Options{Timeout: time.Second})
	gomega.Expect(err).ShouldNot(gomega.HaveOccurred())

	ginkgo.DeferCleanup(db.Close)

	return db
}
