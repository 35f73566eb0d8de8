package sqlite_test

import (
	"context"
	"database/sql"

	"github.com/dogmatiq/eventcore/internal/testing/sqltest"
	"github.com/dogmatiq/eventcore/persistence"
	"github.com/dogmatiq/eventcore/persistence/internal/providertest"
	"github.com/dogmatiq/eventcore/persistence/sqlpersistence"
	. "github.com/dogmatiq/eventcore/persistence/sqlpersistence/sqlite"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("type driver", func() {
	var (
		db    *sql.DB
		close func()
	)

	providertest.Declare(
		func(ctx context.Context, in providertest.In) providertest.Out {
			db, close = sqltest.OpenSQLite()

			err := Driver.CreateSchema(ctx, db)
			Expect(err).ShouldNot(HaveOccurred())

			return providertest.Out{
				NewProvider: func() (persistence.Provider, func()) {
					return &sqlpersistence.Provider{
						DB:     db,
						Driver: Driver,
					}, nil
				},
				IsShared: true,
			}
		},
		func() {
			close()
		},
	)

	Describe("func IsCompatibleWith()", func() {
		It("returns nil for an SQLite database", func() {
			db, close := sqltest.OpenSQLite()
			defer close()

			err := Driver.IsCompatibleWith(context.Background(), db)
			Expect(err).ShouldNot(HaveOccurred())
		})
	})

	Describe("func CreateSchema()", func() {
		It("does not return an error if the schema already exists", func() {
			db, close := sqltest.OpenSQLite()
			defer close()

			err := Driver.CreateSchema(context.Background(), db)
			Expect(err).ShouldNot(HaveOccurred())

			err = Driver.CreateSchema(context.Background(), db)
			Expect(err).ShouldNot(HaveOccurred())
		})
	})

	Describe("func DropSchema()", func() {
		It("does not return an error if the schema does not exist", func() {
			db, close := sqltest.OpenSQLite()
			defer close()

			err := Driver.DropSchema(context.Background(), db)
			Expect(err).ShouldNot(HaveOccurred())
		})
	})
})
