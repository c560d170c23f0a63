package session

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

type sessionRow struct {
	ID        string    `gorm:"primaryKey;size:64"`
	UserID    int64     `gorm:"index"`
	Payload   string    `gorm:"type:text;not null"`
	ExpiresAt time.Time `gorm:"index"`
	CreatedAt time.Time
}

func (sessionRow) TableName() string { return "web_sessions" }

func isPostgres(dsn string) bool {
	return strings.HasPrefix(dsn, "postgres://") ||
		strings.HasPrefix(dsn, "postgresql://") ||
		strings.Contains(dsn, "host=")
}

func configurePool(sqlDB *sql.DB, postgres bool) {
	const (
		maxOpenConns    = 20
		maxIdleConns    = 10
		connMaxLifetime = 30 * time.Minute
		connMaxIdleTime = 5 * time.Minute
	)

	if !postgres {
		// one writer; also keeps a :memory: database alive across calls
		sqlDB.SetMaxOpenConns(1)
		sqlDB.SetMaxIdleConns(1)
		return
	}
	sqlDB.SetMaxOpenConns(maxOpenConns)
	sqlDB.SetMaxIdleConns(maxIdleConns)
	sqlDB.SetConnMaxLifetime(connMaxLifetime)
	sqlDB.SetConnMaxIdleTime(connMaxIdleTime)
}

// OpenDB connects to postgres when dsn looks like a postgres URL or keyword
// string, otherwise to an sqlite file (":memory:" works too).
func OpenDB(ctx context.Context, dsn string) (*gorm.DB, error) {
	if dsn == "" {
		return nil, fmt.Errorf("DATABASE_URL is empty")
	}

	pg := isPostgres(dsn)
	dialector := sqlite.Open(dsn)
	if pg {
		dialector = postgres.Open(dsn)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		PrepareStmt: pg,
		NowFunc:     func() time.Time { return time.Now().UTC() },
		Logger:      logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("connect db: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("get sql.DB: %w", err)
	}
	configurePool(sqlDB, pg)

	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := sqlDB.PingContext(pingCtx); err != nil {
		return nil, fmt.Errorf("ping db: %w", err)
	}

	return db, nil
}

// SQLStore keeps sessions in the web_sessions table.
type SQLStore struct {
	db  *gorm.DB
	ttl time.Duration
	now func() time.Time
}

// NewSQLStore migrates the sessions table and returns the store.
func NewSQLStore(ctx context.Context, db *gorm.DB, ttl time.Duration) (*SQLStore, error) {
	if err := db.WithContext(ctx).AutoMigrate(&sessionRow{}); err != nil {
		return nil, fmt.Errorf("migrate sessions: %w", err)
	}
	return &SQLStore{db: db, ttl: ttl, now: func() time.Time { return time.Now().UTC() }}, nil
}

func (s *SQLStore) Save(ctx context.Context, sess *Session) error {
	b, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	row := sessionRow{
		ID:        sess.ID,
		UserID:    sess.UserID,
		Payload:   string(b),
		ExpiresAt: s.now().Add(s.ttl),
		CreatedAt: sess.CreatedAt.UTC(),
	}
	err = s.db.WithContext(ctx).
		Clauses(clause.OnConflict{UpdateAll: true}).
		Create(&row).Error
	if err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}

func (s *SQLStore) Load(ctx context.Context, id string) (*Session, error) {
	var row sessionRow
	err := s.db.WithContext(ctx).First(&row, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}
	if !s.now().Before(row.ExpiresAt) {
		_ = s.Delete(ctx, id)
		return nil, ErrSessionNotFound
	}
	var sess Session
	if err := json.Unmarshal([]byte(row.Payload), &sess); err != nil {
		return nil, fmt.Errorf("decode session: %w", err)
	}
	return &sess, nil
}

func (s *SQLStore) Delete(ctx context.Context, id string) error {
	if err := s.db.WithContext(ctx).Delete(&sessionRow{}, "id = ?", id).Error; err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

func (s *SQLStore) RevokeAllForUser(ctx context.Context, userID int64) error {
	if err := s.db.WithContext(ctx).Delete(&sessionRow{}, "user_id = ?", userID).Error; err != nil {
		return fmt.Errorf("revoke sessions: %w", err)
	}
	return nil
}

// PurgeExpired removes rows past their expiry and returns how many went.
func (s *SQLStore) PurgeExpired(ctx context.Context) (int64, error) {
	res := s.db.WithContext(ctx).Where("expires_at <= ?", s.now()).Delete(&sessionRow{})
	return res.RowsAffected, res.Error
}
