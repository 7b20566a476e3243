package population

import (
	"fmt"

	"github.com/synaptica-ai/planscore/pkg/common/config"
	"github.com/synaptica-ai/planscore/pkg/common/database"
	"github.com/synaptica-ai/planscore/pkg/common/logger"
	"gorm.io/gorm"
)

// Backends are the storage pieces a binary runs on.
type Backends struct {
	// DB is nil when Postgres was unreachable and Store is in memory.
	DB    *gorm.DB
	Store Store
	Cache Cache
}

// Open connects Postgres and Redis. Either one being down degrades to the
// in-process equivalent instead of failing; a failed migration is an error.
func Open(cfg *config.Config) (*Backends, error) {
	b := &Backends{}

	db, err := database.GetPostgres()
	if err != nil {
		logger.Log.WithError(err).Warn("plan store falling back to memory")
		b.Store = NewMemoryStore()
	} else {
		repo := NewRepository(db)
		if err := repo.AutoMigrate(); err != nil {
			return nil, fmt.Errorf("migrating plan tables: %w", err)
		}
		b.DB = db
		b.Store = repo
	}

	client, err := database.GetRedis()
	if err != nil {
		logger.Log.WithError(err).Warn("percentile cache falling back to memory")
		_ = database.CloseRedis()
		b.Cache = NewMemoryCache(cfg.PercentileCacheTTL)
	} else {
		b.Cache = NewRedisCache(client, cfg.PercentileCacheTTL)
	}
	return b, nil
}

func (b *Backends) Close() {
	if b.DB != nil {
		if err := database.ClosePostgres(); err != nil {
			logger.Log.WithError(err).Warn("closing postgres")
		}
	}
	if _, ok := b.Cache.(*RedisCache); ok {
		if err := database.CloseRedis(); err != nil {
			logger.Log.WithError(err).Warn("closing redis")
		}
	}
}

func RegistryConfigFrom(cfg *config.Config) RegistryConfig {
	return RegistryConfig{
		URL:          cfg.RegistryURL,
		TokenURL:     cfg.RegistryTokenURL,
		ClientID:     cfg.RegistryClientID,
		ClientSecret: cfg.RegistryClientSecret,
		Scopes:       cfg.RegistryScopes,
		Timeout:      cfg.RegistryTimeout,
	}
}
