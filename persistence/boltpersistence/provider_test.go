package boltpersistence_test

import (
	"context"
	"time"

	"github.com/dogmatiq/eventcore/internal/testing/boltdbtest"
	"github.com/dogmatiq/eventcore/persistence"
	. "github.com/dogmatiq/eventcore/persistence/boltpersistence"
	"github.com/dogmatiq/eventcore/persistence/internal/providertest"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("type Provider", func() {
	providertest.Declare(
		func(ctx context.Context, in providertest.In) providertest.Out {
			return providertest.Out{
				NewProvider: func() (persistence.Provider, func()) {
					return &Provider{
						DB: boltdbtest.Open(),
					}, nil
				},
			}
		},
		nil,
	)

	Describe("func Open()", func() {
		It("does not close the database when the last data-store is closed", func() {
			db := boltdbtest.Open()

			provider := &Provider{
				DB: db,
			}

			ds, err := provider.Open(context.Background(), "<tenant>")
			Expect(err).ShouldNot(HaveOccurred())

			err = ds.Close()
			Expect(err).ShouldNot(HaveOccurred())

			tx, err := db.Begin(false)
			Expect(err).ShouldNot(HaveOccurred())
			tx.Rollback()
		})
	})
})

var _ = Describe("type Provider (with a path)", func() {
	providertest.Declare(
		func(ctx context.Context, in providertest.In) providertest.Out {
			return providertest.Out{
				NewProvider: func() (persistence.Provider, func()) {
					return &Provider{
						Path: boltdbtest.Path(),
					}, nil
				},
			}
		},
		nil,
	)

	Describe("func Open()", func() {
		It("returns an error if the DB can not be opened", func() {
			db := boltdbtest.Open()

			provider := &Provider{
				Path: db.Path(), // use the same file as the (open) DB.
			}

			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
			defer cancel()

			ds, err := provider.Open(ctx, "<tenant>")
			if ds != nil {
				ds.Close()
			}
			Expect(err).To(Equal(context.DeadlineExceeded))
		})

		It("persists data across re-opening the file", func() {
			provider := &Provider{
				Path: boltdbtest.Path(),
			}

			ds, err := provider.Open(context.Background(), "<tenant>")
			Expect(err).ShouldNot(HaveOccurred())

			_, err = ds.Persist(
				context.Background(),
				persistence.Batch{
					persistence.AppendStreamEvent{
						StreamID:       "<stream>",
						Partition:      "<partition>",
						SequenceNumber: 1,
					},
				},
			)
			Expect(err).ShouldNot(HaveOccurred())

			err = ds.Close()
			Expect(err).ShouldNot(HaveOccurred())

			ds, err = provider.Open(context.Background(), "<tenant>")
			Expect(err).ShouldNot(HaveOccurred())
			defer ds.Close()

			next, err := ds.NextStreamPosition(context.Background(), "<stream>")
			Expect(err).ShouldNot(HaveOccurred())
			Expect(next).To(BeNumerically("==", 1))
		})
	})
})
