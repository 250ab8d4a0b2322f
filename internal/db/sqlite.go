package db

import (
	"fmt"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormLogger "gorm.io/gorm/logger"

	"github.com/tener/recruit-core/internal/platform/envutil"
	"github.com/tener/recruit-core/internal/platform/logger"
)

// SQLiteService owns the embedded, file-backed reference schema. It is
// semantically identical to PostgresService: same entities,
// same AutoMigrateAll, same query surface through *gorm.DB. Entity ids
// are assigned client-side (uuid.New in the repos) so neither backend
// needs a DB-side generator.
type SQLiteService struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewSQLiteService(logg *logger.Logger) (*SQLiteService, error) {
	serviceLog := logg.With("service", "SQLiteService")
	path := envutil.String("SQLITE_PATH", "recruit_core.db")

	gdb, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: gormLogger.Default.LogMode(gormLogger.Warn),
	})
	if err != nil {
		serviceLog.Error("failed to open sqlite database", "error", err, "path", path)
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	return &SQLiteService{db: gdb, log: serviceLog}, nil
}

func (s *SQLiteService) DB() *gorm.DB { return s.db }

func (s *SQLiteService) AutoMigrateAll() error {
	s.log.Info("auto migrating sqlite tables")
	if err := AutoMigrateAll(s.db); err != nil {
		s.log.Error("sqlite automigrate failed", "error", err)
		return err
	}
	return nil
}
