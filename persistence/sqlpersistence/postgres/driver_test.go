package postgres_test

import (
	"context"
	"database/sql"
	"time"

	"github.com/dogmatiq/eventcore/internal/testing/sqltest"
	"github.com/dogmatiq/eventcore/persistence"
	"github.com/dogmatiq/eventcore/persistence/internal/providertest"
	"github.com/dogmatiq/eventcore/persistence/sqlpersistence"
	. "github.com/dogmatiq/eventcore/persistence/sqlpersistence/postgres"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("type driver", func() {
	var db *sql.DB

	providertest.Declare(
		func(ctx context.Context, in providertest.In) providertest.Out {
			var ok bool
			db, ok = sqltest.OpenPostgres()
			if !ok {
				Skip(sqltest.PostgresDSNVariable + " is not set")
			}

			err := Driver.DropSchema(ctx, db)
			Expect(err).ShouldNot(HaveOccurred())

			err = Driver.CreateSchema(ctx, db)
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
			if db == nil {
				return
			}

			ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
			defer cancel()

			err := Driver.DropSchema(ctx, db)
			Expect(err).ShouldNot(HaveOccurred())

			db.Close()
			db = nil
		},
	)

	Describe("func IsCompatibleWith()", func() {
		It("returns an error for an SQLite database", func() {
			db, close := sqltest.OpenSQLite()
			defer close()

			err := Driver.IsCompatibleWith(context.Background(), db)
			Expect(err).Should(HaveOccurred())
		})
	})
})
