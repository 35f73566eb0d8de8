package persistence

import (
	"context"
	"fmt"
)

// Batch is a set of operations that are persisted atomically.
//
// A batch may contain at most one operation per entity.
type Batch []Operation

// MustValidate panics if more than one of the batch's operations affects the
// same entity.
func (b Batch) MustValidate() {
	seen := make(map[entityKey]struct{}, len(b))

	for _, op := range b {
		k := op.entityKey()

		if _, ok := seen[k]; ok {
			panic(fmt.Sprintf(
				"batch contains multiple operations for the same entity (%s)",
				k,
			))
		}

		seen[k] = struct{}{}
	}
}

// AcceptVisitor calls op.AcceptVisitor(ctx, v) for each operation in order,
// stopping at the first error.
func (b Batch) AcceptVisitor(ctx context.Context, v OperationVisitor) error {
	for _, op := range b {
		if err := op.AcceptVisitor(ctx, v); err != nil {
			return err
		}
	}

	return nil
}
