// factory.go implements the storage backend registry and factory, mapping
// backend type strings (local, s3) to constructor functions.
package storage

import (
	"fmt"

	"github.com/modvault/modvault/internal/config"
)

// FactoryFunc constructs a storage backend from configuration
type FactoryFunc func(*config.Config) (Storage, error)

var factories = make(map[string]FactoryFunc)

// Register registers a storage backend factory
func Register(name string, factory FactoryFunc) {
	factories[name] = factory
}

// NewStorage creates a storage backend based on configuration
func NewStorage(cfg *config.Config) (Storage, error) {
	factory, ok := factories[cfg.Storage.Backend]
	if !ok {
		return nil, fmt.Errorf("unsupported storage backend: %s (must be 'local' or 's3')", cfg.Storage.Backend)
	}

	return factory(cfg)
}
