package docview

import (
	"fmt"
	"sort"
	"sync"
)

// DriverFactory builds a document store from a config
type DriverFactory func(cfg *Config) (FileReader, error)

var (
	driverFactories = make(map[string]DriverFactory)
	factoryMutex    sync.RWMutex
)

// RegisterDriver registers a store factory under name. Driver packages call it
// from init, so importing a driver for side effects makes it available.
func RegisterDriver(name string, factory DriverFactory) {
	factoryMutex.Lock()
	defer factoryMutex.Unlock()
	driverFactories[name] = factory
}

// CreateDriver creates the store named by cfg.Driver
func CreateDriver(cfg *Config) (FileReader, error) {
	factoryMutex.RLock()
	factory, exists := driverFactories[cfg.Driver]
	factoryMutex.RUnlock()

	if !exists {
		return nil, fmt.Errorf("driver %s not registered", cfg.Driver)
	}

	return factory(cfg)
}

// RegisteredDrivers returns the names of all registered drivers, sorted
func RegisteredDrivers() []string {
	factoryMutex.RLock()
	defer factoryMutex.RUnlock()

	names := make([]string, 0, len(driverFactories))
	for name := range driverFactories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
