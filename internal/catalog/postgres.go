package catalog

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// puzzleRow is the puzzle_entries table layout.
type puzzleRow struct {
	StylizedRef   string   `gorm:"column:stylized_ref;primaryKey"`
	ContentRef    string   `gorm:"column:content_ref"`
	StyleRef      string   `gorm:"column:style_ref"`
	Decoy1Ref     string   `gorm:"column:decoy1_ref"`
	Decoy2Ref     string   `gorm:"column:decoy2_ref"`
	ProcessFrames []string `gorm:"column:process_frames;serializer:json"`
}

func (puzzleRow) TableName() string { return "puzzle_entries" }

func (r puzzleRow) entry() PuzzleEntry {
	return PuzzleEntry{
		StylizedRef:   r.StylizedRef,
		ContentRef:    r.ContentRef,
		StyleRef:      r.StyleRef,
		DecoyRefs:     [2]string{r.Decoy1Ref, r.Decoy2Ref},
		ProcessFrames: r.ProcessFrames,
	}
}

// PostgresSource reads every row of puzzle_entries on each Load.
type PostgresSource struct {
	pool   *pgxpool.Pool
	sqlDB  *sql.DB
	db     *gorm.DB
	logger *zap.Logger
}

func NewPostgresSource(ctx context.Context, dsn string, logger *zap.Logger) (*PostgresSource, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to create pgx pool: %w", err)
	}

	sqlDB := stdlib.OpenDBFromPool(pool)
	db, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), &gorm.Config{
		Logger: gormlogger.Discard,
	})
	if err != nil {
		sqlDB.Close()
		pool.Close()
		return nil, fmt.Errorf("failed to open gorm: %w", err)
	}

	return &PostgresSource{pool: pool, sqlDB: sqlDB, db: db, logger: logger}, nil
}

func (s *PostgresSource) Load(ctx context.Context) (Catalog, error) {
	var rows []puzzleRow
	if err := s.db.WithContext(ctx).Order("stylized_ref").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDataUnavailable, err)
	}

	cat, skipped := catalogFromRows(rows)
	if skipped != nil {
		s.logger.Warn("skipped malformed catalog rows",
			zap.String("origin", "postgres"),
			zap.Int("skipped", len(multierr.Errors(skipped))),
			zap.Int("loaded", len(cat)),
			zap.Error(skipped),
		)
	}
	return cat, nil
}

func (s *PostgresSource) Close() error {
	err := s.sqlDB.Close()
	s.pool.Close()
	return err
}

func catalogFromRows(rows []puzzleRow) (Catalog, error) {
	cat := make(Catalog, len(rows))
	var skipped error
	for _, row := range rows {
		entry := row.entry()
		if err := entry.Validate(); err != nil {
			skipped = multierr.Append(skipped, err)
			continue
		}
		cat[entry.StylizedRef] = entry
	}
	return cat, skipped
}
