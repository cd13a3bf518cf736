package repositories

import (
	"fmt"
	"github.com/glebarez/sqlite"
	"github.com/maxaizer/scout-pipeline/internal/config"
	"github.com/maxaizer/scout-pipeline/internal/entities"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type DbContext struct {
	DB *gorm.DB
}

func NewDbContext(cfg config.DBConfig) (*DbContext, error) {

	var dialector gorm.Dialector
	switch cfg.Driver {
	case config.DriverPostgres:
		dialector = postgres.Open(cfg.ConnectionString)
	case config.DriverSqlite, "":
		dialector = sqlite.Open(cfg.ConnectionString)
	default:
		return nil, fmt.Errorf("unsupported db driver: %q", cfg.Driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger:                                   logger.Default.LogMode(logger.Error),
		DisableForeignKeyConstraintWhenMigrating: true,
	})
	if err != nil {
		return nil, err
	}

	if db.Dialector.Name() == "sqlite" {
		// sqlite allows a single writer; queue callers instead of failing with SQLITE_BUSY
		sqlDB, err := db.DB()
		if err != nil {
			return nil, err
		}
		sqlDB.SetMaxOpenConns(1)
	}

	return &DbContext{DB: db}, nil
}

func (c *DbContext) Migrate() error {

	models := []struct {
		name  string
		model any
	}{
		{"Position", entities.Position{}},
		{"PipelineRun", entities.PipelineRun{}},
		{"StepResult", entities.StepResult{}},
		{"PromptTemplate", entities.PromptTemplate{}},
		{"PromptExecution", entities.PromptExecution{}},
		{"Candidate", entities.Candidate{}},
		{"PositionCandidate", entities.PositionCandidate{}},
		{"ScoutMessage", entities.ScoutMessage{}},
		{"ScoutHistory", entities.ScoutHistory{}},
		{"ScrapingTask", entities.ScrapingTask{}},
		{"ArbitraryData", entities.ArbitraryData{}},
	}

	for _, m := range models {
		if err := c.DB.AutoMigrate(m.model); err != nil {
			return fmt.Errorf("failed to migrate %s entity: %w", m.name, err)
		}
	}

	if err := c.DB.Exec("CREATE UNIQUE INDEX IF NOT EXISTS idx_single_default_template " +
		"ON prompt_templates (step_name) WHERE is_default").Error; err != nil {
		return fmt.Errorf("failed to create default template index: %w", err)
	}

	return nil
}

func (c *DbContext) Close() error {
	db, err := c.DB.DB()
	if err != nil {
		return err
	}

	return db.Close()
}
