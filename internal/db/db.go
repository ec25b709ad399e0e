package db

import (
	"fmt"
	"strings"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/relicai/relic-backend/internal/logger"
	"github.com/relicai/relic-backend/internal/types"
	"github.com/relicai/relic-backend/internal/utils"
)

// DBService owns the single database handle for the process. It is
// constructed once in main and passed to every consumer; there is no package
// level singleton. SQLite is the default (local-first deployments), Postgres
// is available for shared lab installs via DB_DRIVER=postgres.
type DBService struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewDBService(log *logger.Logger) (*DBService, error) {
	serviceLog := log.With("service", "DBService")

	driver := strings.ToLower(utils.GetEnv("DB_DRIVER", "sqlite", log))

	var dialector gorm.Dialector
	switch driver {
	case "sqlite":
		path := utils.GetEnv("RELIC_DB_PATH", "relic.db", log)
		dsn := fmt.Sprintf("file:%s?_busy_timeout=5000&_journal_mode=WAL&_foreign_keys=on", path)
		dialector = sqlite.Open(dsn)
	case "postgres":
		host := utils.GetEnv("POSTGRES_HOST", "localhost", log)
		port := utils.GetEnv("POSTGRES_PORT", "5432", log)
		user := utils.GetEnv("POSTGRES_USER", "postgres", log)
		password := utils.GetEnv("POSTGRES_PASSWORD", "", log)
		name := utils.GetEnv("POSTGRES_NAME", "relic", log)
		dsn := fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable", user, password, host, port, name)
		dialector = postgres.Open(dsn)
	default:
		return nil, fmt.Errorf("unknown DB_DRIVER %q", driver)
	}

	serviceLog.Info("Opening database", "driver", driver)
	gdb, err := gorm.Open(dialector, &gorm.Config{
		Logger:         gormlogger.Default.LogMode(gormlogger.Silent),
		TranslateError: true,
	})
	if err != nil {
		serviceLog.Error("Failed to open database", "driver", driver, "error", err)
		return nil, fmt.Errorf("open database: %w", err)
	}

	if driver == "sqlite" {
		// One writer connection: every transaction on the store is totally
		// ordered, which is what keeps the denormalized parent lists from
		// racing (read-append-write never interleaves).
		sqlDB, err := gdb.DB()
		if err != nil {
			return nil, fmt.Errorf("access sql.DB: %w", err)
		}
		sqlDB.SetMaxOpenConns(1)
	}

	return &DBService{db: gdb, log: serviceLog}, nil
}

func (s *DBService) DB() *gorm.DB { return s.db }

func (s *DBService) AutoMigrateAll() error {
	s.log.Info("Auto migrating tables...")
	err := s.db.AutoMigrate(
		&types.Artifact{},
		&types.ArtifactImage{},
		&types.Model3D{},
		&types.InfoCard{},
		&types.ColorVariant{},
	)
	if err != nil {
		s.log.Error("Auto migration failed", "error", err)
		return err
	}
	return nil
}

func (s *DBService) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	s.log.Info("Closing database")
	return sqlDB.Close()
}
