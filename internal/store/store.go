package store

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/glebarez/sqlite"
	"github.com/rs/zerolog"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/takeshq/takes/internal/models"
)

var (
	// ErrNotFound means no take matched the given id.
	ErrNotFound = errors.New("take not found")
	// ErrDuplicateID means an insert collided on the primary key.
	ErrDuplicateID = errors.New("duplicate take id")
	// ErrStatusConflict means a conditional update found the row in a
	// different status than expected.
	ErrStatusConflict = errors.New("take status conflict")
)

// Store wraps the takes database. All take mutations keep
// users.total_takes_time in step with takes.elapsed_time_ms inside the
// same transaction.
type Store struct {
	db     *gorm.DB
	logger zerolog.Logger
}

// Open sets up the database connection, runs migrations and returns a
// ready Store.
func Open(path string, log zerolog.Logger) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent), // Quiet by default
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	s := &Store{
		db:     db,
		logger: log.With().Str("component", "store").Logger(),
	}

	if err := s.migrate(); err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return s, nil
}

// migrate creates/updates the database schema
func (s *Store) migrate() error {
	if err := s.db.AutoMigrate(&models.Take{}, &models.User{}); err != nil {
		return err
	}
	// One open (active or paused) take per user, enforced at the storage
	// layer as well as in the engine.
	return s.db.Exec(`CREATE UNIQUE INDEX IF NOT EXISTS idx_takes_open_user
		ON takes(user_id) WHERE status IN ('active', 'paused')`).Error
}

// Close closes the database connection
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// FindOpenByUser returns the user's take in one of the given statuses, or
// nil if there is none. Callers pass the statuses they consider open.
func (s *Store) FindOpenByUser(userID string, statuses ...string) (*models.Take, error) {
	var take models.Take
	err := s.db.Where("user_id = ? AND status IN ?", userID, statuses).First(&take).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &take, nil
}

// FindByStatus returns all takes with the given status, ordered by
// creation time. The sweep uses this as its point-in-time snapshot.
func (s *Store) FindByStatus(status string) ([]models.Take, error) {
	var takes []models.Take
	err := s.db.Where("status = ?", status).Order("created_at ASC").Find(&takes).Error
	if err != nil {
		return nil, err
	}
	return takes, nil
}

// FindByThread returns the user's take anchored to the given thread
// timestamp, or nil.
func (s *Store) FindByThread(userID, ts string) (*models.Take, error) {
	var take models.Take
	err := s.db.Where("user_id = ? AND ts = ?", userID, ts).First(&take).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &take, nil
}

// InsertTake creates a take and credits its elapsed time to the owner's
// running total.
func (s *Store) InsertTake(take *models.Take) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&models.Take{}).Where("id = ?", take.ID).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return ErrDuplicateID
		}
		if err := tx.Create(take).Error; err != nil {
			return err
		}
		return adjustUserTotal(tx, take.UserID, take.ElapsedTimeMs)
	})
}

// UpdateTake applies a partial column update to a take. A change to
// elapsed_time_ms moves the difference onto the owner's running total.
func (s *Store) UpdateTake(id string, fields map[string]any) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		old, err := lockTake(tx, id)
		if err != nil {
			return err
		}
		if err := tx.Model(&models.Take{}).Where("id = ?", id).Updates(fields).Error; err != nil {
			return err
		}
		return settleElapsedDelta(tx, old, fields)
	})
}

// UpdateTakeIfStatus applies a partial update only if the row is still in
// the expected status. The losing side of a stop-vs-sweep race sees
// ErrStatusConflict instead of double-finalizing the take.
func (s *Store) UpdateTakeIfStatus(id, expectStatus string, fields map[string]any) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		old, err := lockTake(tx, id)
		if err != nil {
			return err
		}
		if old.Status != expectStatus {
			return ErrStatusConflict
		}
		res := tx.Model(&models.Take{}).
			Where("id = ? AND status = ?", id, expectStatus).
			Updates(fields)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrStatusConflict
		}
		return settleElapsedDelta(tx, old, fields)
	})
}

// DeleteTake removes a take and debits its elapsed time from the owner's
// running total.
func (s *Store) DeleteTake(id string) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		old, err := lockTake(tx, id)
		if err != nil {
			return err
		}
		if err := tx.Delete(&models.Take{}, "id = ?", id).Error; err != nil {
			return err
		}
		return adjustUserTotal(tx, old.UserID, -old.ElapsedTimeMs)
	})
}

// GetUser returns a user row, or nil if the user is unknown.
func (s *Store) GetUser(id string) (*models.User, error) {
	var user models.User
	err := s.db.First(&user, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// GetOrCreateUser returns the user row, creating an empty one on first
// contact.
func (s *Store) GetOrCreateUser(id string) (*models.User, error) {
	user := models.User{ID: id}
	if err := s.db.FirstOrCreate(&user, models.User{ID: id}).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// lockTake loads the current row inside the transaction.
func lockTake(tx *gorm.DB, id string) (*models.Take, error) {
	var take models.Take
	err := tx.First(&take, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &take, nil
}

// settleElapsedDelta moves an elapsed_time_ms change onto the owner's
// total: -old +new.
func settleElapsedDelta(tx *gorm.DB, old *models.Take, fields map[string]any) error {
	raw, ok := fields["elapsed_time_ms"]
	if !ok {
		return nil
	}
	newMs, err := toInt64(raw)
	if err != nil {
		return err
	}
	return adjustUserTotal(tx, old.UserID, newMs-old.ElapsedTimeMs)
}

func adjustUserTotal(tx *gorm.DB, userID string, deltaMs int64) error {
	if deltaMs == 0 {
		return nil
	}
	return tx.Model(&models.User{}).Where("id = ?", userID).
		Update("total_takes_time", gorm.Expr("total_takes_time + ?", deltaMs)).Error
}

func toInt64(v any) (int64, error) {
	switch n := v.(type) {
	case int64:
		return n, nil
	case int:
		return int64(n), nil
	default:
		return 0, fmt.Errorf("elapsed_time_ms must be an integer, got %T", v)
	}
}
