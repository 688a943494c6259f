package cmd

import (
	"log/slog"

	httpin "trackinghub/internal/adapters/in/http"
	"trackinghub/internal/adapters/in/ws"
	"trackinghub/internal/adapters/out/postgres"
	"trackinghub/internal/adapters/out/restapi"
	"trackinghub/internal/core/application/usecases/commands"
	"trackinghub/internal/core/application/usecases/queries"
	"trackinghub/internal/hub"
	"trackinghub/internal/jobs"

	"gorm.io/gorm"
)

// CompositionRoot wires the hub's adapters, use cases and jobs. Shared
// collaborators are built once; handlers are created on demand.
type CompositionRoot struct {
	cfg        Config
	gormDB     *gorm.DB
	logger     *slog.Logger
	uowFactory *postgres.GormUnitOfWorkFactory
	restClient *restapi.Client
	hub        *hub.Hub
}

func NewCompositionRoot(cfg Config, gormDB *gorm.DB, logger *slog.Logger) (*CompositionRoot, error) {
	restClient, err := restapi.NewClient(cfg.RestBaseURL,
		restapi.WithTimeout(cfg.RestTimeout),
		restapi.WithLogger(logger),
	)
	if err != nil {
		return nil, err
	}

	return &CompositionRoot{
		cfg:        cfg,
		gormDB:     gormDB,
		logger:     logger,
		uowFactory: postgres.NewGormUnitOfWorkFactory(gormDB),
		restClient: restClient,
		hub: hub.New(
			hub.WithBufferSize(cfg.HubBufferSize),
			hub.WithAuthorizer(restClient),
			hub.WithLogger(logger),
		),
	}, nil
}

// Hub returns the shared subscription hub.
func (c *CompositionRoot) Hub() *hub.Hub {
	return c.hub
}

func (c *CompositionRoot) CreateRecordLocationCommandHandler() commands.RecordLocationCommandHandler {
	return commands.NewRecordLocationCommandHandler(c.uowFactory, c.hub, nil, c.logger)
}

func (c *CompositionRoot) CreateUpdateDeliveryStatusCommandHandler() *commands.UpdateDeliveryStatusCommandHandler {
	return commands.NewUpdateDeliveryStatusCommandHandler(c.restClient, c.uowFactory, c.hub, c.logger)
}

func (c *CompositionRoot) CreateFlushLocationsCommandHandler() commands.FlushLocationsCommandHandler {
	return commands.NewFlushLocationsCommandHandler(c.uowFactory, c.restClient, c.cfg.RestServiceToken, c.logger)
}

func (c *CompositionRoot) CreateGetAgentLocationQueryHandler() queries.GetAgentLocationQueryHandler {
	return queries.NewGetAgentLocationQueryHandler(c.gormDB)
}

func (c *CompositionRoot) CreateGetOrderTransitionsQueryHandler() queries.GetOrderTransitionsQueryHandler {
	return queries.NewGetOrderTransitionsQueryHandler(c.gormDB)
}

func (c *CompositionRoot) CreateGateway() *ws.Gateway {
	return ws.NewGateway(
		c.restClient,
		c.hub,
		c.CreateRecordLocationCommandHandler(),
		c.CreateUpdateDeliveryStatusCommandHandler(),
		ws.WithAuthTimeout(c.cfg.WSAuthTimeout),
		ws.WithLogger(c.logger),
	)
}

func (c *CompositionRoot) CreateHTTPServer() *httpin.Server {
	return httpin.NewServer(
		c.CreateGetAgentLocationQueryHandler(),
		c.CreateGetOrderTransitionsQueryHandler(),
	)
}

func (c *CompositionRoot) CreateJobManager() *jobs.JobManager {
	return jobs.NewJobManager(c.CreateFlushLocationsCommandHandler(), c.cfg.LocationFlushSchedule, c.logger)
}
