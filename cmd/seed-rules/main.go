// Command seed-rules upserts pricing rules from a YAML file.
package main

import (
	"context"
	"flag"
	"os"

	"leadmarket_backend/internal/pricing/repository"
	"leadmarket_backend/platform/config"
	"leadmarket_backend/platform/db"
	"leadmarket_backend/platform/logger"
)

func main() {
	path := flag.String("file", "cmd/seed-rules/pricing_rules.yaml", "path to the pricing rule seed file")
	dryRun := flag.Bool("dry-run", false, "validate the file without writing")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	log := logger.New(cfg.Env)
	log.Info("starting pricing rule seed", "file", *path, "dryRun", *dryRun)

	f, err := os.Open(*path)
	if err != nil {
		log.Error("failed to open seed file", "error", err)
		os.Exit(1)
	}
	defer func() { _ = f.Close() }()

	rules, err := parseSeed(f)
	if err != nil {
		log.Error("invalid seed file", "error", err)
		os.Exit(1)
	}
	if *dryRun {
		log.Info("seed file is valid", "rules", len(rules))
		return
	}

	ctx := context.Background()
	pool, err := db.NewPool(ctx, cfg)
	if err != nil {
		log.Error("failed to connect to database", "error", err)
		panic("failed to connect to database: " + err.Error())
	}
	defer pool.Close()

	if err := db.RunMigrations(ctx, pool); err != nil {
		log.Error("failed to run database migrations", "error", err)
		panic("failed to run database migrations: " + err.Error())
	}

	repo := repository.New(pool)
	for _, params := range rules {
		rule, err := repo.UpsertRule(ctx, params)
		if err != nil {
			log.Error("failed to upsert rule", "ruleType", params.RuleType, "key", params.Key, "error", err)
			os.Exit(1)
		}
		log.Debug("upserted rule", "id", rule.ID, "ruleType", rule.RuleType, "key", rule.Key)
	}

	log.Info("pricing rules seeded", "rules", len(rules))
}
