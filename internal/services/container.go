package services

import (
	"context"
	"database/sql"
	"sync"

	"github.com/go-redis/redis/v8"
	"github.com/sirupsen/logrus"

	"github.com/fixturefox/fixturefox/internal/config"
	"github.com/fixturefox/fixturefox/internal/engine"
	"github.com/fixturefox/fixturefox/internal/formats"
	"github.com/fixturefox/fixturefox/internal/imports"
	"github.com/fixturefox/fixturefox/internal/models"
	"github.com/fixturefox/fixturefox/internal/parser"
	"github.com/fixturefox/fixturefox/internal/profiles"
	"github.com/fixturefox/fixturefox/internal/releases"
	"github.com/fixturefox/fixturefox/internal/repositories"
	"github.com/fixturefox/fixturefox/internal/sources"
)

// Container holds all the application services and manages their lifecycle
type Container struct {
	// Configuration
	config *config.Config
	logger *logrus.Logger

	// Infrastructure
	db          *sql.DB
	redisClient *redis.Client

	// Repositories
	sourceRepo  repositories.SourceRepository
	healthRepo  repositories.SourceHealthRepository
	blockRepo   repositories.BlocklistRepository
	pendingRepo repositories.PendingImportRepository
	eventRepo   repositories.EventRepository
	profileRepo repositories.ProfileRepository

	// Core services
	engine  *engine.Engine
	tracker *sources.HealthTracker
	cache   *releases.Cache

	// WebSocket hub for real-time updates
	eventsHub *EventsHub

	// Lifecycle management
	stopChan chan struct{}
	wg       sync.WaitGroup
	mu       sync.RWMutex
}

// NewContainer creates a new service container. redisClient may be nil;
// the release cache then runs on the in-process store.
func NewContainer(db *sql.DB, redisClient *redis.Client, cfg *config.Config, logger *logrus.Logger) *Container {
	container := &Container{
		config:      cfg,
		logger:      logger,
		db:          db,
		redisClient: redisClient,
		stopChan:    make(chan struct{}),
	}

	container.initializeRepositories()
	container.eventsHub = NewEventsHub(logger)
	container.initializeEngine()

	return container
}

// initializeRepositories initializes all repository instances
func (c *Container) initializeRepositories() {
	c.sourceRepo = repositories.NewSourceRepository(c.db)
	c.healthRepo = repositories.NewSourceHealthRepository(c.db)
	c.blockRepo = repositories.NewBlocklistRepository(c.db)
	c.pendingRepo = repositories.NewPendingImportRepository(c.db)
	c.eventRepo = repositories.NewEventRepository(c.db)
	c.profileRepo = repositories.NewProfileRepository(c.db)
}

// initializeEngine wires the decision engine from its collaborators
func (c *Container) initializeEngine() {
	var store releases.Store
	if c.redisClient != nil {
		store = releases.NewRedisStore(c.redisClient)
	} else {
		store = releases.NewMemoryStore()
	}

	c.tracker = sources.NewHealthTracker(c.healthRepo, c.logger)
	c.cache = releases.NewCache(store, c.config.Engine.CacheTTL(), c.logger)

	blocklist := releases.NewBlocklist(c.blockRepo, c.logger)
	evaluator := profiles.NewEvaluator(models.DefaultQualityTable(), formats.NewMatcher())
	importMatcher := imports.NewMatcher(c.config.Engine.AutoImportThreshold, c.config.Engine.AutoImportMargin, c.logger)
	pending := imports.NewPendingManager(c.pendingRepo, c.logger)

	c.engine = engine.New(
		c.tracker,
		c.cache,
		blocklist,
		evaluator,
		importMatcher,
		pending,
		parser.NewParser(),
		c.sourceRepo,
		c.eventRepo,
		c.eventsHub,
		c.logger,
	)
}

// Start starts all background services
func (c *Container) Start() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.logger.Info("Starting service container")

	// Start events hub
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		c.eventsHub.Start()
	}()

	c.logger.Info("Service container started successfully")
}

// Stop gracefully stops all services
func (c *Container) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.logger.Info("Stopping service container")

	close(c.stopChan)
	c.eventsHub.Stop()
	c.wg.Wait()

	c.logger.Info("Service container stopped")
}

// HealthCheck reports the health of the container's infrastructure
func (c *Container) HealthCheck(ctx context.Context) map[string]string {
	status := map[string]string{"database": "ok"}

	if err := c.db.PingContext(ctx); err != nil {
		status["database"] = err.Error()
	}

	if c.redisClient != nil {
		status["redis"] = "ok"
		if err := c.redisClient.Ping(ctx).Err(); err != nil {
			status["redis"] = err.Error()
		}
	}

	return status
}

// Engine returns the release decision engine
func (c *Container) Engine() *engine.Engine {
	return c.engine
}

// EventsHub returns the WebSocket events hub
func (c *Container) EventsHub() *EventsHub {
	return c.eventsHub
}

// Tracker returns the source health tracker
func (c *Container) Tracker() *sources.HealthTracker {
	return c.tracker
}

// SourceRepository returns the source repository
func (c *Container) SourceRepository() repositories.SourceRepository {
	return c.sourceRepo
}

// ProfileRepository returns the quality profile repository
func (c *Container) ProfileRepository() repositories.ProfileRepository {
	return c.profileRepo
}

// EventRepository returns the event library repository
func (c *Container) EventRepository() repositories.EventRepository {
	return c.eventRepo
}

// Config returns the application configuration
func (c *Container) Config() *config.Config {
	return c.config
}

// Logger returns the application logger
func (c *Container) Logger() *logrus.Logger {
	return c.logger
}
