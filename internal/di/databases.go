// Package di provides dependency injection for database connections.
package di

import (
	"fmt"

	"github.com/aristath/capm/internal/config"
	"github.com/aristath/capm/internal/database"
	"github.com/rs/zerolog"
)

// InitializeDatabases opens both databases and applies schemas
func InitializeDatabases(cfg *config.Config, log zerolog.Logger) (*Container, error) {
	container := &Container{}

	// 1. market.db - Read-mostly market inputs
	marketDB, err := database.New(database.Config{
		Path:    cfg.MarketDBPath,
		Profile: database.ProfileReadMostly,
		Name:    "market",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize market database: %w", err)
	}
	container.MarketDB = marketDB

	// 2. portfolio.db - Selection runs, written once per run
	portfolioDB, err := database.New(database.Config{
		Path:    cfg.PortfolioDBPath,
		Profile: database.ProfileLedger,
		Name:    "portfolio",
	})
	if err != nil {
		marketDB.Close()
		return nil, fmt.Errorf("failed to initialize portfolio database: %w", err)
	}
	container.PortfolioDB = portfolioDB

	// Apply schemas to all databases
	for _, db := range []*database.DB{marketDB, portfolioDB} {
		if err := db.Migrate(); err != nil {
			marketDB.Close()
			portfolioDB.Close()
			return nil, fmt.Errorf("failed to apply schema to %s: %w", db.Name(), err)
		}
	}

	log.Info().
		Str("market", cfg.MarketDBPath).
		Str("portfolio", cfg.PortfolioDBPath).
		Msg("All databases initialized and schemas applied")

	return container, nil
}
