package postgres_test

import (
	"context"
	"testing"
	"time"

	postgres_adapter "trackinghub/internal/adapters/out/postgres"
	"trackinghub/internal/core/domain/model/agent"
	"trackinghub/internal/core/domain/model/order"
	"trackinghub/internal/core/ports"
	"trackinghub/internal/pkg/errs"

	"github.com/stretchr/testify/suite"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	gorm_postgres "gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// UnitOfWorkIntegrationTestSuite runs the Unit of Work against a real
// PostgreSQL database.
type UnitOfWorkIntegrationTestSuite struct {
	suite.Suite
	container *postgres.PostgresContainer
	db        *gorm.DB
	factory   ports.UnitOfWorkFactory
}

func (suite *UnitOfWorkIntegrationTestSuite) SetupSuite() {
	ctx := context.Background()

	container, err := postgres.Run(ctx,
		"postgres:15-alpine",
		postgres.WithDatabase("testdb"),
		postgres.WithUsername("testuser"),
		postgres.WithPassword("testpass"),
		testcontainers.WithWaitStrategy(wait.ForLog("database system is ready to accept connections").
			WithOccurrence(2)),
	)
	suite.Require().NoError(err)
	suite.container = container

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	suite.Require().NoError(err)

	db, err := gorm.Open(gorm_postgres.Open(dsn), &gorm.Config{})
	suite.Require().NoError(err)
	suite.db = db

	suite.Require().NoError(postgres_adapter.Migrate(db))
	suite.factory = postgres_adapter.NewGormUnitOfWorkFactory(db)
}

func (suite *UnitOfWorkIntegrationTestSuite) SetupTest() {
	err := suite.db.Exec("TRUNCATE TABLE agent_locations, order_transitions").Error
	suite.Require().NoError(err)
}

func (suite *UnitOfWorkIntegrationTestSuite) TearDownSuite() {
	if suite.container != nil {
		err := suite.container.Terminate(context.Background())
		suite.Require().NoError(err)
	}
}

func (suite *UnitOfWorkIntegrationTestSuite) sample(lat float64, at time.Time) agent.LocationSample {
	s, err := agent.NewLocationSample(7, lat, 36.81, at)
	suite.Require().NoError(err)
	return s
}

func (suite *UnitOfWorkIntegrationTestSuite) TestFactory_CreatesSeparateInstances() {
	uow1 := suite.factory.Create()
	uow2 := suite.factory.Create()

	suite.NotSame(uow1, uow2)
	suite.NotNil(uow1.LocationRepository())
	suite.NotNil(uow1.TransitionRepository())
}

func (suite *UnitOfWorkIntegrationTestSuite) TestTransactionLifecycle() {
	ctx := context.Background()
	uow := suite.factory.Create()

	suite.Require().NoError(uow.Begin(ctx))
	suite.Require().NoError(uow.Begin(ctx), "Multiple begin calls should be safe")
	suite.Require().NoError(uow.Commit(ctx))

	suite.Require().NoError(uow.Begin(ctx))
	suite.Require().NoError(uow.Rollback(ctx))

	suite.Require().Error(uow.Commit(ctx), "Should error when committing without active transaction")
	suite.Require().Error(uow.Rollback(ctx), "Should error when rolling back without active transaction")
}

func (suite *UnitOfWorkIntegrationTestSuite) TestCommitPersistsAcrossRepositories() {
	ctx := context.Background()
	now := time.Now().UTC()
	uow := suite.factory.Create()

	suite.Require().NoError(uow.Begin(ctx))

	stored, err := uow.LocationRepository().Save(ctx, suite.sample(-1.28, now))
	suite.Require().NoError(err)
	suite.True(stored)

	actor := suite.sample(0, now).AgentID()
	ev, err := order.NewStatusEvent(42, order.Assigned, order.OutForDelivery, &actor, now)
	suite.Require().NoError(err)
	suite.Require().NoError(uow.TransitionRepository().Add(ctx, ev))

	suite.Require().NoError(uow.Commit(ctx))

	got, err := suite.factory.Create().LocationRepository().Get(ctx, 7)
	suite.Require().NoError(err)
	suite.InDelta(-1.28, got.Lat(), 1e-9)

	var count int64
	suite.Require().NoError(suite.db.Table("order_transitions").Count(&count).Error)
	suite.Equal(int64(1), count)
}

func (suite *UnitOfWorkIntegrationTestSuite) TestRollbackDiscardsChanges() {
	ctx := context.Background()
	uow := suite.factory.Create()

	suite.Require().NoError(uow.Begin(ctx))
	_, err := uow.LocationRepository().Save(ctx, suite.sample(-1.28, time.Now()))
	suite.Require().NoError(err)
	suite.Require().NoError(uow.Rollback(ctx))

	_, err = suite.factory.Create().LocationRepository().Get(ctx, 7)
	suite.Require().ErrorIs(err, errs.ErrObjectNotFound)
}

func TestUnitOfWorkIntegrationTestSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration tests in short mode")
	}
	suite.Run(t, new(UnitOfWorkIntegrationTestSuite))
}
