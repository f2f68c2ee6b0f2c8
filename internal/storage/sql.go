package storage

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database"
	migratepg "github.com/golang-migrate/migrate/v4/database/postgres"
	migratesqlite "github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/xaenox/council-bot/internal/models"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrations embed.FS

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

func init() {
	sqlx.BindDriver(DriverSQLite, sqlx.QUESTION)
}

type DatabaseConfig struct {
	Driver   string
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string
	// Path is the database file for the sqlite driver.
	Path string
}

func (c DatabaseConfig) DSN() string {
	if c.Driver == DriverSQLite {
		return c.Path + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"
	}
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode)
}

// SQLStorage implements Storage on PostgreSQL or SQLite.
type SQLStorage struct {
	db     *sqlx.DB
	driver string
	logger *zap.Logger
}

func NewSQLStorage(ctx context.Context, config DatabaseConfig, logger *zap.Logger) (*SQLStorage, error) {
	if config.Driver != DriverPostgres && config.Driver != DriverSQLite {
		return nil, fmt.Errorf("unsupported database driver %q", config.Driver)
	}

	db, err := sqlx.ConnectContext(ctx, config.Driver, config.DSN())
	if err != nil {
		return nil, fmt.Errorf("error connecting to the database: %w", err)
	}
	if config.Driver == DriverSQLite {
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
		db.SetConnMaxLifetime(time.Hour)
	}

	storage := &SQLStorage{db: db, driver: config.Driver, logger: logger}

	if err := storage.initializeSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("error initializing database schema: %w", err)
	}

	logger.Info("Database ready", zap.String("driver", config.Driver))
	return storage, nil
}

func (s *SQLStorage) initializeSchema() error {
	src, err := iofs.New(migrations, "migrations")
	if err != nil {
		return fmt.Errorf("error reading migrations: %w", err)
	}

	var driver database.Driver
	switch s.driver {
	case DriverPostgres:
		driver, err = migratepg.WithInstance(s.db.DB, &migratepg.Config{})
	case DriverSQLite:
		driver, err = migratesqlite.WithInstance(s.db.DB, &migratesqlite.Config{})
	}
	if err != nil {
		return fmt.Errorf("error creating migration driver: %w", err)
	}

	// The migrate instance is not closed: closing it would close s.db.
	m, err := migrate.NewWithInstance("iofs", src, s.driver, driver)
	if err != nil {
		return fmt.Errorf("error creating migrator: %w", err)
	}
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("error executing migrations: %w", err)
	}
	return nil
}

// Message methods
func (s *SQLStorage) SaveMessage(ctx context.Context, msg *models.Message) (*models.Message, error) {
	query := `
		INSERT INTO messages (id, content, user_id, chat_id, message_id, created_at, processed)
		VALUES (:id, :content, :user_id, :chat_id, :message_id, :created_at, :processed)
		ON CONFLICT (id) DO UPDATE SET
			content = excluded.content,
			user_id = excluded.user_id,
			chat_id = excluded.chat_id,
			message_id = excluded.message_id,
			processed = excluded.processed`

	rec := toMessageRecord(msg)
	if _, err := s.db.NamedExecContext(ctx, query, rec); err != nil {
		return nil, fmt.Errorf("error saving message: %w", err)
	}
	return rec.toModel()
}

func (s *SQLStorage) GetMessage(ctx context.Context, id uuid.UUID) (*models.Message, error) {
	query := s.db.Rebind(`
		SELECT id, content, user_id, chat_id, message_id, created_at, processed
		FROM messages
		WHERE id = ?`)

	var rec messageRecord
	if err := s.db.GetContext(ctx, &rec, query, id.String()); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("error getting message: %w", err)
	}
	return rec.toModel()
}

func (s *SQLStorage) GetUnprocessed(ctx context.Context, limit int) ([]*models.Message, error) {
	if limit <= 0 {
		limit = defaultLimit
	}
	query := s.db.Rebind(`
		SELECT id, content, user_id, chat_id, message_id, created_at, processed
		FROM messages
		WHERE processed = ?
		ORDER BY created_at ASC
		LIMIT ?`)

	var recs []messageRecord
	if err := s.db.SelectContext(ctx, &recs, query, false, limit); err != nil {
		return nil, fmt.Errorf("error querying unprocessed messages: %w", err)
	}

	result := make([]*models.Message, 0, len(recs))
	for _, rec := range recs {
		msg, err := rec.toModel()
		if err != nil {
			return nil, err
		}
		result = append(result, msg)
	}
	return result, nil
}

func (s *SQLStorage) MarkAsProcessed(ctx context.Context, id uuid.UUID) error {
	query := s.db.Rebind(`UPDATE messages SET processed = ? WHERE id = ?`)

	result, err := s.db.ExecContext(ctx, query, true, id.String())
	if err != nil {
		return fmt.Errorf("error marking message processed: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("error getting rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return &models.NotFoundError{Entity: "message", ID: id.String()}
	}
	return nil
}

// Project methods
func (s *SQLStorage) SaveProject(ctx context.Context, project *models.Project) (*models.Project, error) {
	query := `
		INSERT INTO projects (id, name, description, status, created_at, updated_at)
		VALUES (:id, :name, :description, :status, :created_at, :updated_at)
		ON CONFLICT (id) DO UPDATE SET
			name = excluded.name,
			description = excluded.description,
			status = excluded.status,
			updated_at = excluded.updated_at`

	rec := toProjectRecord(project)
	if _, err := s.db.NamedExecContext(ctx, query, rec); err != nil {
		if isUniqueViolation(err) {
			return nil, &models.DuplicateNameError{Name: project.Name}
		}
		return nil, fmt.Errorf("error saving project: %w", err)
	}
	return rec.toModel()
}

func (s *SQLStorage) GetProject(ctx context.Context, id uuid.UUID) (*models.Project, error) {
	query := s.db.Rebind(`
		SELECT id, name, description, status, created_at, updated_at
		FROM projects
		WHERE id = ?`)

	var rec projectRecord
	if err := s.db.GetContext(ctx, &rec, query, id.String()); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("error getting project: %w", err)
	}
	return rec.toModel()
}

func (s *SQLStorage) GetActiveProjects(ctx context.Context) ([]*models.Project, error) {
	query := s.db.Rebind(`
		SELECT id, name, description, status, created_at, updated_at
		FROM projects
		WHERE status = ?
		ORDER BY created_at ASC`)

	return s.selectProjects(ctx, query, string(models.StatusActive))
}

func (s *SQLStorage) SearchProjects(ctx context.Context, query string) ([]*models.Project, error) {
	q := s.db.Rebind(`
		SELECT id, name, description, status, created_at, updated_at
		FROM projects
		WHERE LOWER(name) LIKE ? ESCAPE '\' OR LOWER(description) LIKE ? ESCAPE '\'
		ORDER BY created_at ASC`)

	pattern := likePattern(query)
	return s.selectProjects(ctx, q, pattern, pattern)
}

func (s *SQLStorage) selectProjects(ctx context.Context, query string, args ...any) ([]*models.Project, error) {
	var recs []projectRecord
	if err := s.db.SelectContext(ctx, &recs, query, args...); err != nil {
		return nil, fmt.Errorf("error querying projects: %w", err)
	}

	result := make([]*models.Project, 0, len(recs))
	for _, rec := range recs {
		p, err := rec.toModel()
		if err != nil {
			return nil, err
		}
		result = append(result, p)
	}
	return result, nil
}

// Knowledge methods
func (s *SQLStorage) SaveKnowledge(ctx context.Context, entry *models.KnowledgeEntry) (*models.KnowledgeEntry, error) {
	query := `
		INSERT INTO knowledge_entries (id, content, source_message_id, project_id, tags, created_at)
		VALUES (:id, :content, :source_message_id, :project_id, :tags, :created_at)
		ON CONFLICT (id) DO UPDATE SET
			content = excluded.content,
			source_message_id = excluded.source_message_id,
			project_id = excluded.project_id,
			tags = excluded.tags`

	rec := toKnowledgeRecord(entry)
	if _, err := s.db.NamedExecContext(ctx, query, rec); err != nil {
		return nil, fmt.Errorf("error saving knowledge entry: %w", err)
	}
	return rec.toModel()
}

func (s *SQLStorage) GetKnowledge(ctx context.Context, id uuid.UUID) (*models.KnowledgeEntry, error) {
	query := s.db.Rebind(`
		SELECT id, content, source_message_id, project_id, tags, created_at
		FROM knowledge_entries
		WHERE id = ?`)

	var rec knowledgeRecord
	if err := s.db.GetContext(ctx, &rec, query, id.String()); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("error getting knowledge entry: %w", err)
	}
	return rec.toModel()
}

func (s *SQLStorage) GetKnowledgeByProject(ctx context.Context, projectID uuid.UUID) ([]*models.KnowledgeEntry, error) {
	query := s.db.Rebind(`
		SELECT id, content, source_message_id, project_id, tags, created_at
		FROM knowledge_entries
		WHERE project_id = ?
		ORDER BY created_at DESC`)

	return s.selectKnowledge(ctx, query, projectID.String())
}

func (s *SQLStorage) SearchKnowledge(ctx context.Context, query string, limit int) ([]*models.KnowledgeEntry, error) {
	if limit <= 0 {
		limit = defaultLimit
	}
	q := s.db.Rebind(`
		SELECT id, content, source_message_id, project_id, tags, created_at
		FROM knowledge_entries
		WHERE LOWER(content) LIKE ? ESCAPE '\'
		ORDER BY created_at DESC
		LIMIT ?`)

	return s.selectKnowledge(ctx, q, likePattern(query), limit)
}

func (s *SQLStorage) ListKnowledge(ctx context.Context, offset, limit int) ([]*models.KnowledgeEntry, error) {
	if limit <= 0 {
		limit = defaultLimit
	}
	q := s.db.Rebind(`
		SELECT id, content, source_message_id, project_id, tags, created_at
		FROM knowledge_entries
		ORDER BY created_at, id
		LIMIT ? OFFSET ?`)

	return s.selectKnowledge(ctx, q, limit, max(offset, 0))
}

func (s *SQLStorage) selectKnowledge(ctx context.Context, query string, args ...any) ([]*models.KnowledgeEntry, error) {
	var recs []knowledgeRecord
	if err := s.db.SelectContext(ctx, &recs, query, args...); err != nil {
		return nil, fmt.Errorf("error querying knowledge entries: %w", err)
	}

	result := make([]*models.KnowledgeEntry, 0, len(recs))
	for _, rec := range recs {
		entry, err := rec.toModel()
		if err != nil {
			return nil, err
		}
		result = append(result, entry)
	}
	return result, nil
}

func (s *SQLStorage) Close() error {
	return s.db.Close()
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// likePattern builds a case-insensitive substring pattern for LIKE ... ESCAPE '\'.
func likePattern(query string) string {
	return "%" + likeEscaper.Replace(strings.ToLower(query)) + "%"
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}
