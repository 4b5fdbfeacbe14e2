package internal

import (
	"context"
	"fmt"
	"sync"

	"github.com/hbomb79/mediagetter/internal/acquire"
	"github.com/hbomb79/mediagetter/internal/api"
	historyapi "github.com/hbomb79/mediagetter/internal/api/history"
	"github.com/hbomb79/mediagetter/internal/database"
	"github.com/hbomb79/mediagetter/internal/event"
	"github.com/hbomb79/mediagetter/internal/history"
	"github.com/hbomb79/mediagetter/internal/http/httpx"
	"github.com/hbomb79/mediagetter/internal/scraper"
	"github.com/hbomb79/mediagetter/internal/staging"
	"github.com/hbomb79/mediagetter/internal/store"
	"github.com/hbomb79/mediagetter/pkg/logger"
)

var log = logger.Get("Core")

// mediaGetter represents the top-level object for the server, and is responsible
// for constructing the pipeline, its supporting services and the REST gateway.
type mediaGetter struct {
	config   Config
	eventBus event.EventCoordinator
	db       DatabaseManager

	staging *staging.Area
	store   *store.Store

	acquireService  *acquire.Service
	activityService *activityService
	restGateway     *api.RestGateway
}

func New(config Config) (*mediaGetter, error) {
	if level, ok := logger.ParseLevel(config.LogLevel); ok {
		logger.SetMinLoggingLevel(level.Level())
	} else {
		log.Warnf("Unknown log level %q, defaulting to INFO\n", config.LogLevel)
	}

	log.Emit(logger.DEBUG, "Bootstrapping services using config: %#v\n", config)
	mg := &mediaGetter{config: config, eventBus: event.New()}

	area, err := staging.New(config.ScratchDir)
	if err != nil {
		return nil, fmt.Errorf("failed to construct staging area: %w", err)
	}
	if purged := area.Purge(); purged > 0 {
		log.Emit(logger.REMOVE, "Purged %d abandoned staged files from %s\n", purged, area.Dir())
	}
	mg.staging = area

	if st, err := store.New(config.StoreRoot, store.DifferenceHasher{}, area); err == nil {
		mg.store = st
	} else {
		return nil, fmt.Errorf("failed to construct store: %w", err)
	}

	client, err := httpx.New(config.HTTP)
	if err != nil {
		return nil, fmt.Errorf("failed to construct HTTP client: %w", err)
	}
	dispatcher := scraper.NewSiteDispatcher(client, config.HTTP.Agent(), area, config.Twitter)

	var (
		recorder     acquire.Recorder
		historyStore historyapi.Store
	)
	if config.Database.Enabled {
		db := database.New()
		ledger := history.NewStore(func() database.Queryable { return db.GetSqlxDb() })
		mg.db, recorder, historyStore = db, ledger, ledger
	}

	if serv, err := acquire.New(config.Acquire, dispatcher, mg.store, recorder, mg.eventBus); err == nil {
		mg.acquireService = serv
	} else {
		return nil, fmt.Errorf("failed to construct acquisition service: %w", err)
	}

	mg.restGateway = api.NewRestGateway(&config.RestConfig, mg.acquireService, historyStore)
	mg.activityService = newActivityService(mg.restGateway, mg.eventBus)

	return mg, nil
}

// Run will start all services, and connect to the database (if enabled).
//
// This function will not return until all services have stopped. To stop, the
// provided context must be cancelled. Errors from which a service cannot recover
// will also cause every other service to stop.
func (mg *mediaGetter) Run(parent context.Context) error {
	ctx, cancel := context.WithCancelCause(parent)
	defer cancel(nil)

	crashHandler := func(label string, err error) {
		log.Emit(logger.FATAL, "Service crash (%s)! %s\n", label, err.Error())
		cancel(fmt.Errorf("service %s crashed: %w", label, err))
	}

	if mg.db != nil {
		log.Emit(logger.NEW, "Connecting to database...\n")
		if err := mg.db.Connect(ctx, mg.config.Database); err != nil {
			return fmt.Errorf("failed to connect to database: %w", err)
		}
		defer mg.db.Close()
	}

	wg := &sync.WaitGroup{}
	mg.spawnAsyncService(ctx, wg, mg.acquireService, "acquire-service", crashHandler)
	mg.spawnAsyncService(ctx, wg, mg.activityService, "activity-service", crashHandler)
	mg.spawnAsyncService(ctx, wg, mg.restGateway, "rest-gateway", crashHandler)
	log.Emit(logger.SUCCESS, "Services spawned!\n")

	wg.Wait()
	if cause := context.Cause(ctx); cause != nil && cause != ctx.Err() {
		return cause
	}

	return nil
}

// spawnAsyncService will run the provided service as it's own
// go-routine, ensuring that the service waitgroup is updated correctly.
func (mg *mediaGetter) spawnAsyncService(ctx context.Context, wg *sync.WaitGroup, service RunnableService, serviceLabel string, crashHandler func(string, error)) {
	log.Emit(logger.NEW, "Spawning %s\n", serviceLabel)
	wg.Add(1)

	go func() {
		defer wg.Done()
		defer func() {
			if r := recover(); r != nil {
				crashHandler(serviceLabel, fmt.Errorf("panic %v", r))
			}
		}()

		if err := service.Run(ctx); err != nil {
			crashHandler(serviceLabel, err)
		}
	}()
}
