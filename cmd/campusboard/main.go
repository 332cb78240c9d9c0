package main

import (
	"context"
	"time"

	"github.com/joho/godotenv"

	"campusboard/internal/app"
	"campusboard/internal/retention"
	"campusboard/pkg/config"
	"campusboard/pkg/logger"
	"campusboard/pkg/shutdown"
)

// build metadata - set via ldflags during build/release
var (
	version   = "dev"
	commit    = "none"
	buildDate = "unknown"
)

func main() {
	_ = godotenv.Load(".env")
	logger.Init()

	addrVal, dbVal, cfgVal, setFlags := config.ParseCommandFlags()
	cfgPath := config.ResolveConfigPath(cfgVal, setFlags["config"])

	cfg, _, envUsed, err := config.LoadEffective(cfgPath)
	if err != nil {
		shutdown.Abort("failed to load config", err, "", 0)
	}

	// flags win over env/config when explicitly set
	addr := cfg.Addr()
	if setFlags["addr"] {
		addr = addrVal
	}
	dbPath := cfg.Storage.DBPath
	if dbPath == "" || setFlags["db"] {
		dbPath = dbVal
	}
	source := "config"
	switch {
	case setFlags["addr"] || setFlags["db"]:
		source = "flags"
	case envUsed:
		source = "env"
	}

	eff := config.EffectiveConfigResult{Config: cfg, Addr: addr, DBPath: dbPath, Source: source}

	if lvl := cfg.Logging.Level; lvl != "" {
		logger.InitWithLevel(lvl)
	}

	a, err := app.New(eff, version, commit, buildDate)
	if err != nil {
		shutdown.Abort("startup failed", err, dbPath)
	}

	ctx, cancel := shutdown.SetupSignalHandler(context.Background())
	defer cancel()

	stopRetention, err := retention.Start(ctx, eff)
	if err != nil {
		shutdown.Abort("retention startup failed", err, dbPath)
	}
	defer stopRetention()

	if err := a.Run(ctx); err != nil {
		logger.Error("server_error", "error", err)
	}

	// graceful drain
	drainCtx, drainCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer drainCancel()
	if err := a.Close(drainCtx); err != nil {
		logger.Error("shutdown_error", "error", err)
	}
	logger.Info("shutdown_complete")
}
