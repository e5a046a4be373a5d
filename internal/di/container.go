// Package di wires the services the canopy CLI needs: logger, kind
// registry, tree builder and file watcher. Services are created lazily and
// singletons are created exactly once, even under concurrent Get calls.
package di

import (
	"context"
	stderrors "errors"
	"fmt"
	"os"
	"sort"
	"sync"

	"github.com/conneroisu/canopy/internal/builder"
	"github.com/conneroisu/canopy/internal/config"
	"github.com/conneroisu/canopy/internal/flyweight"
	"github.com/conneroisu/canopy/internal/kind"
	"github.com/conneroisu/canopy/internal/logging"
	"github.com/conneroisu/canopy/internal/watcher"
)

// Service names registered by Initialize.
const (
	ServiceLogger      = "logger"
	ServiceRegistry    = "registry"
	ServiceTreeBuilder = "builder"
	ServiceWatcher     = "watcher"

	// ServiceKindCache is only registered when registry.ttl is set.
	ServiceKindCache = "kind-cache"
)

// KindRegistry is the flyweight registry of leaf kinds.
type KindRegistry = flyweight.Registry[string, *kind.Kind]

// KindCache keeps kinds alive across registries until they expire.
type KindCache = flyweight.Expiring[string, *kind.Kind]

// FactoryFunc creates a service instance using the dependency resolver
type FactoryFunc func(resolver DependencyResolver) (interface{}, error)

// DependencyResolver resolves dependencies from inside a factory and
// detects circular dependencies
type DependencyResolver interface {
	Get(name string) (interface{}, error)
}

// ServiceDefinition defines how a service should be created and managed
type ServiceDefinition struct {
	Name         string
	Factory      FactoryFunc
	Singleton    bool
	Dependencies []string
	Tags         []string
}

// ServiceContainer manages dependency injection for the application
type ServiceContainer struct {
	services    map[string]*ServiceDefinition
	singletons  map[string]interface{}
	creating    map[string]*sync.WaitGroup // Track singletons being created
	mu          sync.RWMutex
	config      *config.Config
	initialized bool
}

// NewServiceContainer creates a new dependency injection container. A nil
// configuration is replaced by the defaults.
func NewServiceContainer(cfg *config.Config) *ServiceContainer {
	if cfg == nil {
		cfg = config.Default()
	}
	return &ServiceContainer{
		services:   make(map[string]*ServiceDefinition),
		singletons: make(map[string]interface{}),
		creating:   make(map[string]*sync.WaitGroup),
		config:     cfg,
	}
}

// Config returns the container's configuration.
func (c *ServiceContainer) Config() *config.Config { return c.config }

// Register registers a transient service: every Get creates a new instance
func (c *ServiceContainer) Register(name string, factory FactoryFunc) *ServiceBuilder {
	return c.register(&ServiceDefinition{Name: name, Factory: factory})
}

// RegisterSingleton registers a service created once on first use
func (c *ServiceContainer) RegisterSingleton(name string, factory FactoryFunc) *ServiceBuilder {
	return c.register(&ServiceDefinition{Name: name, Factory: factory, Singleton: true})
}

// RegisterInstance registers an existing instance as a singleton
func (c *ServiceContainer) RegisterInstance(name string, instance interface{}) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.singletons[name] = instance
	c.services[name] = &ServiceDefinition{Name: name, Singleton: true}
}

func (c *ServiceContainer) register(def *ServiceDefinition) *ServiceBuilder {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.services[def.Name] = def
	return &ServiceBuilder{definition: def, container: c}
}

// Has checks if a service is registered
func (c *ServiceContainer) Has(name string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, exists := c.services[name]
	return exists
}

// Get retrieves a service from the container
func (c *ServiceContainer) Get(name string) (interface{}, error) {
	return c.resolve(name, make(map[string]bool))
}

// MustGet retrieves a service and panics if it cannot be created
func (c *ServiceContainer) MustGet(name string) interface{} {
	instance, err := c.Get(name)
	if err != nil {
		panic(fmt.Sprintf("failed to get service '%s': %v", name, err))
	}
	return instance
}

type resolver struct {
	container *ServiceContainer
	resolving map[string]bool
}

func (r *resolver) Get(name string) (interface{}, error) {
	return r.container.resolve(name, r.resolving)
}

func (c *ServiceContainer) resolve(name string, resolving map[string]bool) (interface{}, error) {
	if resolving[name] {
		return nil, fmt.Errorf("circular dependency detected for service '%s'", name)
	}

	c.mu.RLock()
	def, exists := c.services[name]
	c.mu.RUnlock()
	if !exists {
		return nil, fmt.Errorf("service '%s' not registered", name)
	}

	if !def.Singleton {
		instance, err := c.create(def, resolving)
		if err != nil {
			return nil, fmt.Errorf("failed to create service '%s': %w", name, err)
		}
		return instance, nil
	}

	for {
		c.mu.Lock()
		if instance, ok := c.singletons[name]; ok {
			c.mu.Unlock()
			return instance, nil
		}
		wg, busy := c.creating[name]
		if !busy {
			// Reserve creation; other callers wait on wg
			wg = &sync.WaitGroup{}
			wg.Add(1)
			c.creating[name] = wg
			c.mu.Unlock()
			break
		}
		c.mu.Unlock()
		wg.Wait()
	}

	instance, err := c.create(def, resolving)

	c.mu.Lock()
	wg := c.creating[name]
	delete(c.creating, name)
	if err == nil {
		c.singletons[name] = instance
	}
	c.mu.Unlock()
	wg.Done()

	if err != nil {
		return nil, fmt.Errorf("failed to create singleton service '%s': %w", name, err)
	}
	return instance, nil
}

func (c *ServiceContainer) create(def *ServiceDefinition, resolving map[string]bool) (interface{}, error) {
	if def.Factory == nil {
		return nil, fmt.Errorf("factory is nil")
	}
	resolving[def.Name] = true
	defer delete(resolving, def.Name)
	return def.Factory(&resolver{container: c, resolving: resolving})
}

// Initialize registers the core services. Services registered before
// Initialize, for example a logger instance in tests, are kept.
func (c *ServiceContainer) Initialize() error {
	if c.initialized {
		return nil
	}
	c.registerCoreServices()
	c.initialized = true
	return nil
}

func (c *ServiceContainer) registerCoreServices() {
	cfg := c.config

	if !c.Has(ServiceLogger) {
		c.RegisterSingleton(ServiceLogger, func(DependencyResolver) (interface{}, error) {
			return logging.Logger(logging.NewLogger(cfg.LoggerConfig(os.Stderr))), nil
		}).WithTag("core")
	}

	registryDeps := []string{ServiceLogger}
	if cfg.Registry.TTL > 0 {
		registryDeps = append(registryDeps, ServiceKindCache)
		if !c.Has(ServiceKindCache) {
			c.RegisterSingleton(ServiceKindCache, func(DependencyResolver) (interface{}, error) {
				return flyweight.NewExpiring(cfg.KindFactory(), cfg.Registry.TTL, cfg.Registry.TTL), nil
			}).WithTag("core")
		}
	}

	if !c.Has(ServiceRegistry) {
		c.RegisterSingleton(ServiceRegistry, func(r DependencyResolver) (interface{}, error) {
			return newKindRegistry(cfg, r)
		}).DependsOn(registryDeps...).WithTag("core")
	}

	if !c.Has(ServiceTreeBuilder) {
		c.RegisterSingleton(ServiceTreeBuilder, func(r DependencyResolver) (interface{}, error) {
			logger, err := getLogger(r)
			if err != nil {
				return nil, err
			}
			reg, err := r.Get(ServiceRegistry)
			if err != nil {
				return nil, err
			}
			return builder.New(reg.(*KindRegistry), logger), nil
		}).DependsOn(ServiceLogger, ServiceRegistry).WithTag("core")
	}

	if !c.Has(ServiceWatcher) {
		c.Register(ServiceWatcher, func(r DependencyResolver) (interface{}, error) {
			logger, err := getLogger(r)
			if err != nil {
				return nil, err
			}
			return watcher.NewFileWatcher(cfg.Watch.Debounce, logger)
		}).DependsOn(ServiceLogger).WithTag("cli")
	}
}

// newKindRegistry creates a kind registry. With a kind cache registered,
// first lookups in the registry are served from the cache.
func newKindRegistry(cfg *config.Config, r DependencyResolver) (*KindRegistry, error) {
	logger, err := getLogger(r)
	if err != nil {
		return nil, err
	}
	opts := []flyweight.Option[string]{flyweight.WithLogger[string](logger)}
	if cfg.Registry.CaseFold {
		opts = append(opts, flyweight.WithCaseFold())
	}

	factory := cfg.KindFactory()
	if cfg.Registry.TTL > 0 {
		service, err := r.Get(ServiceKindCache)
		if err != nil {
			return nil, err
		}
		cache, ok := service.(*KindCache)
		if !ok {
			return nil, fmt.Errorf("service '%s' is %T, not a kind cache", ServiceKindCache, service)
		}
		factory = cache.GetOrCreate
	}
	return flyweight.New(factory, opts...), nil
}

func getLogger(r DependencyResolver) (logging.Logger, error) {
	service, err := r.Get(ServiceLogger)
	if err != nil {
		return nil, err
	}
	logger, ok := service.(logging.Logger)
	if !ok {
		return nil, fmt.Errorf("service '%s' is %T, not a logging.Logger", ServiceLogger, service)
	}
	return logger, nil
}

// Shutdown stops every created singleton that can be stopped and forgets
// all instances
func (c *ServiceContainer) Shutdown(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	var errs []error
	for _, name := range sortedKeys(c.singletons) {
		switch s := c.singletons[name].(type) {
		case interface{ Shutdown(context.Context) error }:
			if err := s.Shutdown(ctx); err != nil {
				errs = append(errs, fmt.Errorf("failed to shutdown %s: %w", name, err))
			}
		case interface{ Stop() error }:
			if err := s.Stop(); err != nil {
				errs = append(errs, fmt.Errorf("failed to stop %s: %w", name, err))
			}
		}
	}

	c.singletons = make(map[string]interface{})
	return stderrors.Join(errs...)
}

// ServiceBuilder provides a fluent interface over a service definition
type ServiceBuilder struct {
	definition *ServiceDefinition
	container  *ServiceContainer
}

// DependsOn records dependencies of the service
func (sb *ServiceBuilder) DependsOn(dependencies ...string) *ServiceBuilder {
	sb.container.mu.Lock()
	sb.definition.Dependencies = append(sb.definition.Dependencies, dependencies...)
	sb.container.mu.Unlock()
	return sb
}

// WithTag adds tags to the service
func (sb *ServiceBuilder) WithTag(tags ...string) *ServiceBuilder {
	sb.container.mu.Lock()
	sb.definition.Tags = append(sb.definition.Tags, tags...)
	sb.container.mu.Unlock()
	return sb
}

// Convenience methods for typed service retrieval

// GetLogger retrieves the application logger
func (c *ServiceContainer) GetLogger() (logging.Logger, error) {
	return getLogger(&resolver{container: c, resolving: make(map[string]bool)})
}

// GetRegistry retrieves the kind registry
func (c *ServiceContainer) GetRegistry() (*KindRegistry, error) {
	service, err := c.Get(ServiceRegistry)
	if err != nil {
		return nil, err
	}
	return service.(*KindRegistry), nil
}

// GetBuilder retrieves the tree builder
func (c *ServiceContainer) GetBuilder() (*builder.Builder, error) {
	service, err := c.Get(ServiceTreeBuilder)
	if err != nil {
		return nil, err
	}
	return service.(*builder.Builder), nil
}

// NewTreeBuilder creates a builder over a fresh kind registry, separate
// from the shared one returned by GetBuilder. Its kinds still come from the
// kind cache when registry.ttl is set.
func (c *ServiceContainer) NewTreeBuilder() (*builder.Builder, error) {
	r := &resolver{container: c, resolving: make(map[string]bool)}
	logger, err := getLogger(r)
	if err != nil {
		return nil, err
	}
	reg, err := newKindRegistry(c.config, r)
	if err != nil {
		return nil, err
	}
	return builder.New(reg, logger), nil
}

// NewFileWatcher creates a file watcher configured with the watch debounce.
// The caller owns it and must Stop it.
func (c *ServiceContainer) NewFileWatcher() (*watcher.FileWatcher, error) {
	service, err := c.Get(ServiceWatcher)
	if err != nil {
		return nil, err
	}
	return service.(*watcher.FileWatcher), nil
}

// ListServices returns the registered service names in order
func (c *ServiceContainer) ListServices() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return sortedKeys(c.services)
}

// GetServiceDefinition returns a copy of the definition for a service
func (c *ServiceContainer) GetServiceDefinition(name string) (ServiceDefinition, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	def, exists := c.services[name]
	if !exists {
		return ServiceDefinition{}, false
	}
	return *def, true
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
