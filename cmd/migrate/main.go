package main

import (
	"context"
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/reelwork/marketplace/internal/identity"
	"github.com/reelwork/marketplace/internal/migrations"
	"github.com/reelwork/marketplace/pkg/config"
	"github.com/reelwork/marketplace/pkg/database"
	"github.com/reelwork/marketplace/pkg/logger"
)

func main() {
	cfg := config.MustLoad()
	log, err := logger.Init(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	ctx := context.Background()
	db, err := database.OpenPostgres(ctx, cfg.DatabaseURL, database.Options{Name: "main", Verbose: true, MaxOpenConns: 2})
	if err != nil {
		log.Fatal("failed to connect to database", zap.Error(err))
	}
	defer database.Close(db)

	if err := migrations.Run(db); err != nil {
		log.Fatal("migration failed", zap.Error(err))
	}

	identityDB, err := database.OpenPostgres(ctx, cfg.IdentityDatabaseURL, database.Options{Name: "identity", Verbose: true, MaxOpenConns: 2})
	if err != nil {
		log.Fatal("failed to connect to identity database", zap.Error(err))
	}
	defer database.Close(identityDB)

	if err := identity.Migrate(identityDB); err != nil {
		log.Fatal("identity migration failed", zap.Error(err))
	}

	fmt.Fprintln(os.Stdout, "migrations completed")
}
