package bboltx

import "go.etcd.io/bbolt"

// BucketParent is a *bbolt.Tx or *bbolt.Bucket.
type BucketParent interface {
	CreateBucketIfNotExists([]byte) (*bbolt.Bucket, error)
	Bucket([]byte) *bbolt.Bucket
}

var (
	_ BucketParent = (*bbolt.Tx)(nil)
	_ BucketParent = (*bbolt.Bucket)(nil)
)

// CreateBucketIfNotExists creates nested buckets with names given by the
// elements of path.
func CreateBucketIfNotExists(p BucketParent, path ...[]byte) *bbolt.Bucket {
	if len(path) == 0 {
		panic("at least one path element must be provided")
	}

	var (
		b   *bbolt.Bucket
		err error
	)

	for _, n := range path {
		b, err = p.CreateBucketIfNotExists(n)
		Must(err)

		p = b
	}

	return b
}

// TryBucket gets nested buckets with names given by the elements of path.
//
// It returns false if any of the nested buckets does not exist.
func TryBucket(p BucketParent, path ...[]byte) (*bbolt.Bucket, bool) {
	if len(path) == 0 {
		panic("at least one path element must be provided")
	}

	var b *bbolt.Bucket

	for _, n := range path {
		b = p.Bucket(n)
		if b == nil {
			return nil, false
		}

		p = b
	}

	return b, true
}

// GetPath returns the value at the end of path. All elements of the path
// except the last are bucket names.
//
// It returns nil if any of the buckets or the value do not exist.
func GetPath(p BucketParent, path ...[]byte) []byte {
	n := len(path) - 1
	if n < 1 {
		panic("at least two path elements must be provided")
	}

	b, ok := TryBucket(p, path[:n]...)
	if !ok {
		return nil
	}

	return b.Get(path[n])
}

// PutPath writes v to the key at the end of path, creating the buckets as
// necessary.
func PutPath(p BucketParent, v []byte, path ...[]byte) {
	n := len(path) - 1
	if n < 1 {
		panic("at least two path elements must be provided")
	}

	b := CreateBucketIfNotExists(p, path[:n]...)
	Must(b.Put(path[n], v))
}

// DeletePath deletes the key at the end of path.
//
// It is not an error if the key or any of the buckets do not exist.
func DeletePath(p BucketParent, path ...[]byte) {
	n := len(path) - 1
	if n < 1 {
		panic("at least two path elements must be provided")
	}

	if b, ok := TryBucket(p, path[:n]...); ok {
		Must(b.Delete(path[n]))
	}
}
