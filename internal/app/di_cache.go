package app

import (
	"fmt"

	cacheRepository "github.com/msiav/vehicle-cache/internal/cache/repository"
	cacheUseCase "github.com/msiav/vehicle-cache/internal/cache/usecase"
)

// VehicleRepository returns the cached vehicle repository instance.
func (c *Container) VehicleRepository() (cacheUseCase.VehicleRepository, error) {
	var err error
	c.vehicleRepoInit.Do(func() {
		c.vehicleRepo, err = c.initVehicleRepository()
		if err != nil {
			c.initErrors["vehicleRepo"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["vehicleRepo"]; exists {
		return nil, storedErr
	}
	return c.vehicleRepo, nil
}

// ApprehensionRepository returns the apprehension record repository instance.
func (c *Container) ApprehensionRepository() (cacheUseCase.ApprehensionRepository, error) {
	var err error
	c.apprehensionRepoInit.Do(func() {
		c.apprehensionRepo, err = c.initApprehensionRepository()
		if err != nil {
			c.initErrors["apprehensionRepo"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["apprehensionRepo"]; exists {
		return nil, storedErr
	}
	return c.apprehensionRepo, nil
}

// CacheUseCase returns the cache use case instance.
func (c *Container) CacheUseCase() (cacheUseCase.CacheUseCase, error) {
	var err error
	c.cacheUseCaseInit.Do(func() {
		c.cacheUseCase, err = c.initCacheUseCase()
		if err != nil {
			c.initErrors["cacheUseCase"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["cacheUseCase"]; exists {
		return nil, storedErr
	}
	return c.cacheUseCase, nil
}

// QueryResultUseCase returns the query result use case instance.
func (c *Container) QueryResultUseCase() (cacheUseCase.QueryResultUseCase, error) {
	var err error
	c.queryResultUseCaseInit.Do(func() {
		c.queryResultUseCase, err = c.initQueryResultUseCase()
		if err != nil {
			c.initErrors["queryResultUseCase"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["queryResultUseCase"]; exists {
		return nil, storedErr
	}
	return c.queryResultUseCase, nil
}

// initVehicleRepository creates the vehicle repository instance.
func (c *Container) initVehicleRepository() (cacheUseCase.VehicleRepository, error) {
	db, err := c.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database for vehicle repository: %w", err)
	}

	// Select the appropriate repository based on the database driver
	switch c.config.DBDriver {
	case "mysql":
		return cacheRepository.NewMySQLVehicleRepository(db), nil
	case "postgres":
		return cacheRepository.NewPostgreSQLVehicleRepository(db), nil
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", c.config.DBDriver)
	}
}

// initApprehensionRepository creates the apprehension record repository instance.
func (c *Container) initApprehensionRepository() (cacheUseCase.ApprehensionRepository, error) {
	db, err := c.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database for apprehension repository: %w", err)
	}

	// Select the appropriate repository based on the database driver
	switch c.config.DBDriver {
	case "mysql":
		return cacheRepository.NewMySQLApprehensionRepository(db), nil
	case "postgres":
		return cacheRepository.NewPostgreSQLApprehensionRepository(db), nil
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", c.config.DBDriver)
	}
}

// initCacheUseCase creates the cache use case with all its dependencies.
func (c *Container) initCacheUseCase() (cacheUseCase.CacheUseCase, error) {
	txManager, err := c.TxManager()
	if err != nil {
		return nil, fmt.Errorf("failed to get tx manager for cache use case: %w", err)
	}

	vehicleRepo, err := c.VehicleRepository()
	if err != nil {
		return nil, fmt.Errorf("failed to get vehicle repository for cache use case: %w", err)
	}

	gate, err := c.CryptoGate()
	if err != nil {
		return nil, fmt.Errorf("failed to get crypto gate for cache use case: %w", err)
	}

	businessMetrics, err := c.BusinessMetrics()
	if err != nil {
		return nil, fmt.Errorf("failed to get business metrics for cache use case: %w", err)
	}

	useCase := cacheUseCase.NewCacheUseCase(
		txManager,
		vehicleRepo,
		gate,
		c.Logger(),
		c.config.CacheMaxHistoricalDays,
	)

	return cacheUseCase.NewCacheUseCaseWithMetrics(useCase, businessMetrics), nil
}

// initQueryResultUseCase creates the query result use case with all its dependencies.
func (c *Container) initQueryResultUseCase() (cacheUseCase.QueryResultUseCase, error) {
	txManager, err := c.TxManager()
	if err != nil {
		return nil, fmt.Errorf("failed to get tx manager for query result use case: %w", err)
	}

	vehicleRepo, err := c.VehicleRepository()
	if err != nil {
		return nil, fmt.Errorf("failed to get vehicle repository for query result use case: %w", err)
	}

	apprehensionRepo, err := c.ApprehensionRepository()
	if err != nil {
		return nil, fmt.Errorf("failed to get apprehension repository for query result use case: %w", err)
	}

	return cacheUseCase.NewQueryResultUseCase(txManager, vehicleRepo, apprehensionRepo), nil
}
