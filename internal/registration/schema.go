package registration

import (
	"context"
	"database/sql"
	"embed"

	"github.com/nao1215/ccshuffle/pkg/migration"
	"go.uber.org/zap"
)

//go:embed migrations
var migrationsFS embed.FS

// initSchema はマイグレーションを実行してユーザーのスキーマを適用する。
func initSchema(ctx context.Context, db *sql.DB, logger *zap.Logger) error {
	_, err := migration.Run(ctx, db, migrationsFS, "migrations", logger)
	return err
}
