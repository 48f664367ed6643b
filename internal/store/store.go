// Package store persists profiles and the durable mirror of sessions with gorm.
// Postgres URLs use the pgx driver; anything else is treated as a sqlite path.
package store

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/glebarez/sqlite"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var ErrNotFound = errors.New("record not found")

type Store struct {
	db *gorm.DB
}

func Open(dsn string, log *zap.Logger) (*Store, error) {
	dialector, memory := dialectorFor(dsn)
	db, err := gorm.Open(dialector, &gorm.Config{Logger: newGormLogger(log)})
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if memory {
		// every sqlite connection to :memory: is its own database
		sqlDB, err := db.DB()
		if err != nil {
			return nil, fmt.Errorf("open database: %w", err)
		}
		sqlDB.SetMaxOpenConns(1)
	}
	return &Store{db: db}, nil
}

func dialectorFor(dsn string) (gorm.Dialector, bool) {
	if strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://") {
		return postgres.Open(dsn), false
	}
	path := strings.TrimPrefix(dsn, "sqlite://")
	return sqlite.Open(path), path == ":memory:" || strings.Contains(path, "mode=memory")
}

func (s *Store) Migrate(ctx context.Context) error {
	if err := s.db.WithContext(ctx).AutoMigrate(models()...); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}

func (s *Store) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// UpsertProfile inserts p or overwrites the handle, ratio and username of the profile
// already bound to p.Identity.
func (s *Store) UpsertProfile(ctx context.Context, p Profile) (Profile, error) {
	p.ID = 0
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "identity"}},
		DoUpdates: clause.AssignmentColumns([]string{"username", "handle", "skill_ratio", "updated_at"}),
	}).Create(&p).Error
	if err != nil {
		return Profile{}, fmt.Errorf("upsert profile %s: %w", p.Identity, err)
	}
	return s.GetProfile(ctx, p.Identity)
}

func (s *Store) GetProfile(ctx context.Context, identity string) (Profile, error) {
	var p Profile
	err := s.db.WithContext(ctx).Where("identity = ?", identity).First(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return Profile{}, ErrNotFound
	}
	if err != nil {
		return Profile{}, fmt.Errorf("get profile %s: %w", identity, err)
	}
	return p, nil
}

func (s *Store) ListProfiles(ctx context.Context) ([]Profile, error) {
	var profiles []Profile
	if err := s.db.WithContext(ctx).Order("created_at").Find(&profiles).Error; err != nil {
		return nil, fmt.Errorf("list profiles: %w", err)
	}
	return profiles, nil
}

// CreateSession stores rec as active and returns its durable id.
func (s *Store) CreateSession(ctx context.Context, rec *SessionRecord) (uint, error) {
	rec.ID = 0
	rec.Active = true
	if err := s.db.WithContext(ctx).Omit(clause.Associations).Create(rec).Error; err != nil {
		return 0, fmt.Errorf("create session %s: %w", rec.SessionID, err)
	}
	return rec.ID, nil
}

// AddMember appends a membership row. Duplicates are not checked here.
func (s *Store) AddMember(ctx context.Context, recordID uint, identity string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := exists(tx, recordID); err != nil {
			return err
		}
		m := Membership{SessionRef: recordID, IdentityRef: identity}
		if err := tx.Create(&m).Error; err != nil {
			return fmt.Errorf("add member %s to %d: %w", identity, recordID, err)
		}
		return nil
	})
}

// CloseSession marks the record inactive. Closing a closed record is a no-op.
func (s *Store) CloseSession(ctx context.Context, recordID uint) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := exists(tx, recordID); err != nil {
			return err
		}
		err := tx.Model(&SessionRecord{}).Where("id = ?", recordID).Update("active", false).Error
		if err != nil {
			return fmt.Errorf("close session %d: %w", recordID, err)
		}
		return nil
	})
}

func (s *Store) SetExternalRef(ctx context.Context, recordID uint, ref string) error {
	res := s.db.WithContext(ctx).Model(&SessionRecord{}).Where("id = ?", recordID).Update("external_ref", ref)
	if res.Error != nil {
		return fmt.Errorf("set external ref on %d: %w", recordID, res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Store) GetSession(ctx context.Context, recordID uint) (SessionRecord, error) {
	var rec SessionRecord
	err := s.db.WithContext(ctx).Preload("Members", func(db *gorm.DB) *gorm.DB {
		return db.Order("id")
	}).First(&rec, recordID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return SessionRecord{}, ErrNotFound
	}
	if err != nil {
		return SessionRecord{}, fmt.Errorf("get session %d: %w", recordID, err)
	}
	return rec, nil
}

// ListMembers returns the memberships of a record in join order.
func (s *Store) ListMembers(ctx context.Context, recordID uint) ([]Membership, error) {
	if err := exists(s.db.WithContext(ctx), recordID); err != nil {
		return nil, err
	}
	var members []Membership
	if err := s.db.WithContext(ctx).Where("session_ref = ?", recordID).Order("id").Find(&members).Error; err != nil {
		return nil, fmt.Errorf("list members of %d: %w", recordID, err)
	}
	return members, nil
}

// ListActive returns active records, newest first, with their memberships.
func (s *Store) ListActive(ctx context.Context) ([]SessionRecord, error) {
	var recs []SessionRecord
	err := s.db.WithContext(ctx).
		Preload("Members", func(db *gorm.DB) *gorm.DB { return db.Order("id") }).
		Where("active = ?", true).
		Order("created_at desc").
		Find(&recs).Error
	if err != nil {
		return nil, fmt.Errorf("list active sessions: %w", err)
	}
	return recs, nil
}

func exists(tx *gorm.DB, recordID uint) error {
	var count int64
	if err := tx.Model(&SessionRecord{}).Where("id = ?", recordID).Count(&count).Error; err != nil {
		return fmt.Errorf("find session %d: %w", recordID, err)
	}
	if count == 0 {
		return ErrNotFound
	}
	return nil
}
