package sqlpersistence_test

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"time"

	"github.com/dogmatiq/eventcore/internal/testing/sqltest"
	"github.com/dogmatiq/eventcore/persistence"
	"github.com/dogmatiq/eventcore/persistence/internal/providertest"
	. "github.com/dogmatiq/eventcore/persistence/sqlpersistence"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/multierr"
)

var _ = Describe("type Provider", func() {
	var (
		db    *sql.DB
		close func()
	)

	Context("SQLite", func() {
		providertest.Declare(
			func(ctx context.Context, in providertest.In) providertest.Out {
				db, close = sqltest.OpenSQLite()

				err := CreateSchema(ctx, db)
				Expect(err).ShouldNot(HaveOccurred())

				return providertest.Out{
					NewProvider: func() (persistence.Provider, func()) {
						return &Provider{
							DB: db,
						}, nil
					},
					IsShared: true,
				}
			},
			func() {
				close()
			},
		)
	})

	Context("PostgreSQL", func() {
		providertest.Declare(
			func(ctx context.Context, in providertest.In) providertest.Out {
				var ok bool
				db, ok = sqltest.OpenPostgres()
				if !ok {
					Skip(sqltest.PostgresDSNVariable + " is not set")
				}

				err := DropSchema(ctx, db)
				Expect(err).ShouldNot(HaveOccurred())

				err = CreateSchema(ctx, db)
				Expect(err).ShouldNot(HaveOccurred())

				return providertest.Out{
					NewProvider: func() (persistence.Provider, func()) {
						return &Provider{
							DB: db,
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

				err := DropSchema(ctx, db)
				Expect(err).ShouldNot(HaveOccurred())

				db.Close()
				db = nil
			},
		)
	})

	Describe("func Open()", func() {
		It("returns an error if a compatible driver can not be found", func() {
			provider := &Provider{
				DB: sql.OpenDB(stubConnector{}),
			}

			ds, err := provider.Open(context.Background(), "<tenant>")
			if ds != nil {
				ds.Close()
			}

			Expect(multierr.Errors(err)).To(ContainElement(
				MatchError("none of the built-in drivers support sqlpersistence_test.stubDriver"),
			))
		})

		It("returns an error if the DB can not be opened", func() {
			provider := &Provider{
				DriverName: "<nonsense-driver>",
				DSN:        "<nonsense-dsn>",
			}

			ds, err := provider.Open(context.Background(), "<tenant>")
			if ds != nil {
				ds.Close()
			}
			Expect(err).Should(HaveOccurred())
		})

		It("shares one pool between data-stores of different tenants", func() {
			db, close := sqltest.OpenSQLite()
			defer close()

			provider := &Provider{
				DB:           db,
				CreateSchema: true,
			}

			a, err := provider.Open(context.Background(), "<tenant-a>")
			Expect(err).ShouldNot(HaveOccurred())
			defer a.Close()

			b, err := provider.Open(context.Background(), "<tenant-b>")
			Expect(err).ShouldNot(HaveOccurred())
			defer b.Close()

			Expect(db.PingContext(context.Background())).To(Succeed())
		})
	})
})

var _ = Describe("type Provider (with a DSN)", func() {
	var close func()

	providertest.Declare(
		func(ctx context.Context, in providertest.In) providertest.Out {
			var dsn string
			dsn, close = sqltest.SQLiteDSN()

			return providertest.Out{
				NewProvider: func() (persistence.Provider, func()) {
					return &Provider{
						DriverName:   "sqlite",
						DSN:          dsn,
						MaxOpenConns: 1,
						CreateSchema: true,
					}, nil
				},
				IsShared: true,
			}
		},
		func() {
			close()
		},
	)

	Context("const DefaultMaxOpenConns", func() {
		It("is not zero", func() {
			Expect(DefaultMaxOpenConns).To(BeNumerically(">", 0))
		})
	})

	Context("const DefaultMaxConnLifetime", func() {
		It("is not zero", func() {
			Expect(DefaultMaxConnLifetime).To(BeNumerically(">", 0))
		})
	})
})

// stubConnector is a driver.Connector that never connects.
type stubConnector struct{}

func (stubConnector) Connect(context.Context) (driver.Conn, error) {
	return nil, errors.New("<connect error>")
}

func (stubConnector) Driver() driver.Driver {
	return stubDriver{}
}

type stubDriver struct{}

func (stubDriver) Open(string) (driver.Conn, error) {
	return nil, errors.New("<open error>")
}
