package db

import (
	"fmt"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/nutribunda/mpasi-backend/internal/platform/envutil"
	"github.com/nutribunda/mpasi-backend/internal/platform/logger"
	"github.com/nutribunda/mpasi-backend/internal/types"
)

// CatalogService owns the chunk catalog: chunk text and age metadata live
// here, vectors live in the vector store, joined by chunk ID.
type CatalogService struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewCatalogService(log *logger.Logger) (*CatalogService, error) {
	serviceLog := log.With("service", "CatalogService")

	path := envutil.Str("CATALOG_DB_PATH", "data/catalog.db")

	log.Info("Opening chunk catalog...", "path", path)
	gdb, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		log.Error("Failed to open chunk catalog", "path", path, "error", err)
		return nil, fmt.Errorf("failed to open chunk catalog at %s: %w", path, err)
	}

	return &CatalogService{db: gdb, log: serviceLog}, nil
}

// NewCatalogServiceAt opens a catalog at an explicit path, bypassing env
// resolution. Used by the indexer CLI and tests.
func NewCatalogServiceAt(log *logger.Logger, path string) (*CatalogService, error) {
	gdb, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open chunk catalog at %s: %w", path, err)
	}
	return &CatalogService{db: gdb, log: log.With("service", "CatalogService")}, nil
}

func (s *CatalogService) AutoMigrateAll() error {
	s.log.Info("Auto migrating catalog tables...")
	if err := s.db.AutoMigrate(&types.RuleChunk{}); err != nil {
		s.log.Error("Auto migration failed for catalog tables", "error", err)
		return err
	}
	s.log.Info("Catalog migration complete")
	return nil
}

func (s *CatalogService) InsertChunks(chunks []types.RuleChunk) error {
	if len(chunks) == 0 {
		return nil
	}
	if err := s.db.Create(&chunks).Error; err != nil {
		return fmt.Errorf("failed to insert %d chunks: %w", len(chunks), err)
	}
	return nil
}

// GetChunks resolves catalog rows for the given IDs; missing IDs are silently
// absent from the result, callers treat that as a stale vector.
func (s *CatalogService) GetChunks(ids []uuid.UUID) (map[uuid.UUID]types.RuleChunk, error) {
	out := make(map[uuid.UUID]types.RuleChunk, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	var rows []types.RuleChunk
	if err := s.db.Where("id IN ?", ids).Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to load chunks: %w", err)
	}
	for _, row := range rows {
		out[row.ID] = row
	}
	return out, nil
}

func (s *CatalogService) CountChunks() (int64, error) {
	var n int64
	if err := s.db.Model(&types.RuleChunk{}).Count(&n).Error; err != nil {
		return 0, fmt.Errorf("failed to count chunks: %w", err)
	}
	return n, nil
}

func (s *CatalogService) DeleteAllChunks() error {
	if err := s.db.Where("1 = 1").Delete(&types.RuleChunk{}).Error; err != nil {
		return fmt.Errorf("failed to clear chunk catalog: %w", err)
	}
	return nil
}

// Ping verifies the underlying handle, for readiness reporting.
func (s *CatalogService) Ping() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Ping()
}
