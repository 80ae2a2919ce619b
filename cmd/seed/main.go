package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/micaja/api/internal/auth"
	"github.com/micaja/api/internal/config"
	"github.com/micaja/api/internal/database"
	"github.com/micaja/api/internal/logger"
	"github.com/rs/zerolog"
)

func main() {
	// CLI flags
	ownerFlag := flag.String("owner", "", "Owner ID (UUID); a new one is generated when empty")
	tablesFlag := flag.String("tables", "", "Comma-separated table names")
	ttl := flag.Duration("ttl", 30*24*time.Hour, "Token lifetime")
	flag.Parse()

	// Fall back to environment variables
	if *ownerFlag == "" {
		*ownerFlag = os.Getenv("SEED_OWNER_ID")
	}
	if *tablesFlag == "" {
		*tablesFlag = os.Getenv("SEED_TABLES")
	}

	// Fall back to defaults
	if *tablesFlag == "" {
		*tablesFlag = "Mesa 1,Mesa 2,Mesa 3,Barra"
	}

	cfg := config.Load()
	log := logger.New(cfg.LogLevel, true)

	ownerID := uuid.New()
	if *ownerFlag != "" {
		id, err := uuid.Parse(*ownerFlag)
		if err != nil {
			log.Fatal().Err(err).Msg("invalid owner id")
		}
		ownerID = id
	}

	if err := database.Migrate(cfg.DatabaseURL); err != nil {
		log.Fatal().Err(err).Msg("run migrations")
	}

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("unable to connect to database")
	}
	defer pool.Close()

	if err := pool.Ping(ctx); err != nil {
		log.Fatal().Err(err).Msg("unable to ping database")
	}

	// Seed in a transaction so a partial table list is never left behind
	tx, err := pool.Begin(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("begin transaction")
	}
	defer tx.Rollback(ctx)

	created, err := seedTables(ctx, tx, ownerID, splitNames(*tablesFlag), log)
	if err != nil {
		log.Fatal().Err(err).Msg("seed tables")
	}
	if err := tx.Commit(ctx); err != nil {
		log.Fatal().Err(err).Msg("commit")
	}

	token, err := auth.GenerateToken(cfg.JWTSecret, ownerID, *ttl)
	if err != nil {
		log.Fatal().Err(err).Msg("generate token")
	}

	log.Info().Str("owner_id", ownerID.String()).Int("tables_created", created).Msg("seed completed")
	fmt.Println(token)
}

func splitNames(s string) []string {
	var out []string
	for _, n := range strings.Split(s, ",") {
		if n = strings.TrimSpace(n); n != "" {
			out = append(out, n)
		}
	}
	return out
}

// seedTables appends the missing tables after the owner's existing ones.
func seedTables(ctx context.Context, tx pgx.Tx, ownerID uuid.UUID, names []string, log zerolog.Logger) (int, error) {
	q := database.New(tx)

	existing, err := q.ListTableConfigs(ctx, ownerID)
	if err != nil {
		return 0, fmt.Errorf("list tables: %w", err)
	}
	have := make(map[string]bool, len(existing))
	next := int32(0)
	for _, t := range existing {
		have[t.TableName] = true
		if t.OrderIndex >= next {
			next = t.OrderIndex + 1
		}
	}

	created := 0
	for _, name := range names {
		if have[name] {
			log.Info().Str("table", name).Msg("table already exists, skipping")
			continue
		}
		err := q.InsertTableConfig(ctx, database.InsertTableConfigParams{
			OwnerID:    ownerID,
			TableName:  name,
			OrderIndex: next,
		})
		if err != nil {
			return created, fmt.Errorf("insert table %q: %w", name, err)
		}
		have[name] = true
		next++
		created++
	}
	return created, nil
}
