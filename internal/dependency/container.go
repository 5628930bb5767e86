// Package dependency wires core chatrelay services using go.uber.org/dig.
package dependency

import (
	"github.com/redis/go-redis/v9"
	"go.uber.org/dig"

	"github.com/chatrelay/chatrelay/internal/catalog"
	"github.com/chatrelay/chatrelay/internal/config"
	"github.com/chatrelay/chatrelay/internal/tasks"
	"github.com/chatrelay/chatrelay/internal/toolserver"
	"github.com/chatrelay/chatrelay/internal/tracker"
)

// Container holds the resolved core service singletons.
// Callers use the typed getter methods; they never need to import dig directly.
type Container struct {
	builder    *catalog.Builder
	taskClient *tasks.Client
	toolClient *toolserver.Client
	runs       tracker.Tracker
	conns      Connections
}

func (c *Container) CatalogBuilder() *catalog.Builder  { return c.builder }
func (c *Container) TaskClient() *tasks.Client         { return c.taskClient }
func (c *Container) ToolClient() *toolserver.Client    { return c.toolClient }
func (c *Container) Tracker() tracker.Tracker          { return c.runs }
func (c *Container) Connections() []catalog.Connection { return c.conns }

// Connections is a named slice type so dig can distinguish the converted
// connection list from other slices when injecting it.
type Connections []catalog.Connection

// New builds and wires all core services from cfg.
func New(cfg *config.Config) (*Container, error) {
	d := dig.New()

	if err := d.Provide(func() *config.Config { return cfg }); err != nil {
		return nil, err
	}
	if err := d.Provide(newCatalogBuilder); err != nil {
		return nil, err
	}
	if err := d.Provide(newTaskClient); err != nil {
		return nil, err
	}
	if err := d.Provide(newToolClient); err != nil {
		return nil, err
	}
	if err := d.Provide(newTracker); err != nil {
		return nil, err
	}
	if err := d.Provide(newConnections); err != nil {
		return nil, err
	}

	var result *Container
	err := d.Invoke(func(
		builder *catalog.Builder,
		taskClient *tasks.Client,
		toolClient *toolserver.Client,
		runs tracker.Tracker,
		conns Connections,
	) {
		result = &Container{
			builder:    builder,
			taskClient: taskClient,
			toolClient: toolClient,
			runs:       runs,
			conns:      conns,
		}
	})
	return result, err
}

func newCatalogBuilder(cfg *config.Config) *catalog.Builder {
	return catalog.NewBuilder(cfg.Server.BaseURL, cfg.Server.Timeout())
}

func newTaskClient(cfg *config.Config) *tasks.Client {
	return tasks.NewClient(cfg.Server.BaseURL, cfg.Server.Timeout())
}

func newToolClient(cfg *config.Config) *toolserver.Client {
	return toolserver.NewClient(cfg.Server.Timeout())
}

// newTracker picks the Redis-backed tracker when the config enables it, so
// task runs become visible (and stoppable) across instances sharing the
// same Redis.
func newTracker(cfg *config.Config) (tracker.Tracker, error) {
	if !cfg.Redis.Enabled {
		return tracker.NewLocal(), nil
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	return tracker.NewRedis(client)
}

func newConnections(cfg *config.Config) Connections {
	conns := make(Connections, 0, len(cfg.Connections))
	for _, c := range cfg.Connections {
		conns = append(conns, catalog.Connection{
			BaseURL:  c.BaseURL,
			APIKey:   c.APIKey,
			Enabled:  c.Enabled(),
			ModelIDs: c.ModelIDs,
			IDPrefix: c.PrefixID,
			Tags:     c.Tags,
		})
	}
	return conns
}
