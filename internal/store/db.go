package store

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const (
	defaultHistoryLimit = 50
	maxHistoryLimit     = 500
)

// Database wraps the GORM DB handle and exposes repository helpers.
type Database struct {
	gorm *gorm.DB
	mu   sync.Mutex
}

// Open initializes the SQLite-backed database at the provided path.
func Open(path string, silent bool) (*Database, error) {
	cfg := &gorm.Config{}
	if silent {
		cfg.Logger = logger.Default.LogMode(logger.Silent)
	}
	db, err := gorm.Open(sqlite.Open(path), cfg)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.AutoMigrate(&LookupRecord{}); err != nil {
		return nil, fmt.Errorf("auto migrate: %w", err)
	}
	if err := db.Exec("PRAGMA journal_mode=WAL").Error; err != nil {
		logrus.WithError(err).Warn("enable WAL mode")
	}
	if err := db.Exec("PRAGMA synchronous=NORMAL").Error; err != nil {
		logrus.WithError(err).Warn("set synchronous pragma")
	}
	if err := applyIndexes(db); err != nil {
		return nil, fmt.Errorf("apply indexes: %w", err)
	}
	return &Database{gorm: db}, nil
}

// Close closes the underlying database connection.
func (d *Database) Close() error {
	if d == nil {
		return nil
	}
	sqlDB, err := d.gorm.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// SaveLookup appends a lookup to the history.
func (d *Database) SaveLookup(rec *LookupRecord) error {
	if d == nil {
		return errors.New("database is nil")
	}
	if rec == nil {
		return errors.New("lookup record is nil")
	}
	rec.Domain = strings.TrimSpace(rec.Domain)
	rec.DomainNormalized = normalizeDomainKey(rec.Domain)
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.gorm.Create(rec).Error
}

// RecentLookups returns matching lookups newest first along with the total
// number of matching rows.
func (d *Database) RecentLookups(q LookupQuery) ([]LookupRecord, int64, error) {
	if d == nil {
		return nil, 0, errors.New("database is nil")
	}
	limit := q.Limit
	if limit <= 0 {
		limit = defaultHistoryLimit
	}
	if limit > maxHistoryLimit {
		limit = maxHistoryLimit
	}

	query := d.gorm.Model(&LookupRecord{})
	if key := normalizeDomainKey(q.Domain); key != "" {
		query = query.Where("domain_normalized = ?", key)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var rows []LookupRecord
	if err := query.Order("id DESC").Limit(limit).Find(&rows).Error; err != nil {
		return nil, 0, err
	}
	return rows, total, nil
}

// CountLookups returns the number of stored lookups.
func (d *Database) CountLookups() (int64, error) {
	var count int64
	if err := d.gorm.Model(&LookupRecord{}).Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// normalizeDomainKey reduces a submitted domain or URL to its bare host so
// "https://www.Example.com/login" and "example.com" share history.
func normalizeDomainKey(value string) string {
	lower := strings.ToLower(strings.TrimSpace(value))
	if idx := strings.Index(lower, "://"); idx >= 0 {
		lower = lower[idx+3:]
	}
	for _, sep := range []string{"/", "?", "#"} {
		if idx := strings.Index(lower, sep); idx >= 0 {
			lower = lower[:idx]
		}
	}
	if idx := strings.LastIndex(lower, "@"); idx >= 0 {
		lower = lower[idx+1:]
	}
	if idx := strings.IndexRune(lower, ':'); idx >= 0 {
		lower = lower[:idx]
	}
	lower = strings.Trim(lower, ".")
	return strings.TrimPrefix(lower, "www.")
}

func applyIndexes(db *gorm.DB) error {
	stmts := []string{
		"CREATE INDEX IF NOT EXISTS idx_lookup_records_domain_created ON lookup_records(domain_normalized, created_at)",
	}
	for _, stmt := range stmts {
		if err := db.Exec(stmt).Error; err != nil {
			return err
		}
	}
	return nil
}
