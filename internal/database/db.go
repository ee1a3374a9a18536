package database

import (
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// DB represents the database connection with pooling
type DB struct {
	*sql.DB
	pool     *ConnectionPool
	prepared map[string]*sql.Stmt
	mutex    sync.RWMutex
}

// ConnectionPool manages database connection pooling
type ConnectionPool struct {
	db           *sql.DB
	maxOpenConns int
	maxIdleConns int
	maxLifetime  time.Duration
}

// NewConnectionPool creates a new database connection pool
func NewConnectionPool(db *sql.DB, maxOpen, maxIdle int, maxLifetime time.Duration) *ConnectionPool {
	db.SetMaxOpenConns(maxOpen)
	db.SetMaxIdleConns(maxIdle)
	db.SetConnMaxLifetime(maxLifetime)

	return &ConnectionPool{
		db:           db,
		maxOpenConns: maxOpen,
		maxIdleConns: maxIdle,
		maxLifetime:  maxLifetime,
	}
}

// GetStats returns connection pool statistics
func (cp *ConnectionPool) GetStats() map[string]interface{} {
	stats := cp.db.Stats()

	return map[string]interface{}{
		"open_connections":     stats.OpenConnections,
		"in_use":               stats.InUse,
		"idle":                 stats.Idle,
		"max_open_connections": cp.maxOpenConns,
		"max_idle_connections": cp.maxIdleConns,
		"max_lifetime_seconds": cp.maxLifetime.Seconds(),
		"wait_count":           stats.WaitCount,
		"wait_duration_ms":     stats.WaitDuration.Milliseconds(),
	}
}

// NewDB creates a new database connection with pooling and runs migrations
func NewDB(dataDir string) (*DB, error) {
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	dbPath := filepath.Join(dataDir, "placement_readiness.db")

	connStr := fmt.Sprintf("%s?_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)&_pragma=foreign_keys(ON)&_pragma=busy_timeout(5000)", dbPath)

	return open(connStr)
}

// NewMemoryDB creates an in-memory database, used by tests
func NewMemoryDB() (*DB, error) {
	return open("file::memory:?cache=shared&_pragma=foreign_keys(ON)")
}

func open(connStr string) (*DB, error) {
	db, err := sql.Open("sqlite3", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	pool := NewConnectionPool(db, 25, 5, 5*time.Minute)

	database := &DB{
		DB:       db,
		pool:     pool,
		prepared: make(map[string]*sql.Stmt),
	}

	if err := database.migrate(); err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	if err := database.initPreparedStatements(); err != nil {
		return nil, fmt.Errorf("failed to initialize prepared statements: %w", err)
	}

	slog.Info("Database initialized with connection pooling",
		"max_open_conns", pool.maxOpenConns,
		"max_idle_conns", pool.maxIdleConns,
		"max_lifetime", pool.maxLifetime)

	return database, nil
}

// migrate creates the necessary tables
func (db *DB) migrate() error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS students (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			email TEXT NOT NULL,
			role TEXT NOT NULL DEFAULT 'student',
			created_at DATETIME NOT NULL,
			updated_at DATETIME NOT NULL
		)`,

		`CREATE TABLE IF NOT EXISTS term_records (
			id TEXT PRIMARY KEY,
			student_id TEXT NOT NULL,
			term INTEGER NOT NULL,
			score REAL NOT NULL,
			created_at DATETIME NOT NULL,
			FOREIGN KEY (student_id) REFERENCES students(id)
		)`,

		`CREATE TABLE IF NOT EXISTS resumes (
			student_id TEXT PRIMARY KEY,
			ai_score REAL NOT NULL,
			sections TEXT NOT NULL, -- JSON resume sections
			updated_at DATETIME NOT NULL,
			FOREIGN KEY (student_id) REFERENCES students(id)
		)`,

		`CREATE TABLE IF NOT EXISTS interview_sessions (
			id TEXT PRIMARY KEY,
			student_id TEXT NOT NULL,
			score REAL, -- NULL when no score was recorded
			completed_at DATETIME NOT NULL,
			FOREIGN KEY (student_id) REFERENCES students(id)
		)`,

		`CREATE TABLE IF NOT EXISTS attendance (
			student_id TEXT PRIMARY KEY,
			percentage REAL NOT NULL,
			updated_at DATETIME NOT NULL,
			FOREIGN KEY (student_id) REFERENCES students(id)
		)`,

		`CREATE TABLE IF NOT EXISTS readiness_profiles (
			subject_id TEXT PRIMARY KEY,
			composite INTEGER NOT NULL,
			factors TEXT NOT NULL, -- JSON factor breakdown
			computed_at DATETIME NOT NULL,
			FOREIGN KEY (subject_id) REFERENCES students(id)
		)`,

		`CREATE TABLE IF NOT EXISTS interventions (
			id TEXT PRIMARY KEY,
			subject_id TEXT NOT NULL,
			type TEXT NOT NULL,
			status TEXT NOT NULL,
			projected_delta INTEGER NOT NULL,
			actual_delta INTEGER, -- NULL until completed
			created_at DATETIME NOT NULL,
			completed_at DATETIME,
			FOREIGN KEY (subject_id) REFERENCES students(id)
		)`,

		// Indexes for performance
		`CREATE INDEX IF NOT EXISTS idx_term_records_student ON term_records(student_id, term)`,
		`CREATE INDEX IF NOT EXISTS idx_interview_sessions_student ON interview_sessions(student_id, completed_at DESC)`,
		`CREATE INDEX IF NOT EXISTS idx_interventions_subject ON interventions(subject_id, created_at DESC)`,
		`CREATE INDEX IF NOT EXISTS idx_interventions_status ON interventions(subject_id, status)`,
	}

	for _, query := range queries {
		if _, err := db.Exec(query); err != nil {
			return fmt.Errorf("failed to execute migration: %w", err)
		}
	}

	return nil
}

// initPreparedStatements initializes frequently used prepared statements
func (db *DB) initPreparedStatements() error {
	statements := map[string]string{
		"upsert_profile": `INSERT INTO readiness_profiles (subject_id, composite, factors, computed_at)
			VALUES (?, ?, ?, ?)
			ON CONFLICT(subject_id) DO UPDATE SET
			composite = excluded.composite,
			factors = excluded.factors,
			computed_at = excluded.computed_at`,

		"get_profile": `SELECT subject_id, composite, factors, computed_at
			FROM readiness_profiles WHERE subject_id = ?`,

		"get_term_scores": `SELECT score FROM term_records
			WHERE student_id = ? ORDER BY term ASC`,

		"get_recent_sessions": `SELECT score, completed_at FROM interview_sessions
			WHERE student_id = ? ORDER BY completed_at DESC LIMIT ?`,

		"count_scored_sessions": `SELECT COUNT(*) FROM interview_sessions
			WHERE student_id = ? AND score IS NOT NULL`,

		"insert_intervention": `INSERT INTO interventions
			(id, subject_id, type, status, projected_delta, actual_delta, created_at, completed_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,

		"get_intervention": `SELECT id, subject_id, type, status, projected_delta, actual_delta, created_at, completed_at
			FROM interventions WHERE subject_id = ? AND id = ?`,

		"update_intervention": `UPDATE interventions
			SET status = ?, actual_delta = ?, completed_at = ?
			WHERE id = ?`,
	}

	db.mutex.Lock()
	defer db.mutex.Unlock()

	for name, query := range statements {
		stmt, err := db.Prepare(query)
		if err != nil {
			return fmt.Errorf("failed to prepare statement %s: %w", name, err)
		}
		db.prepared[name] = stmt

		slog.Debug("Prepared statement initialized", "name", name)
	}

	return nil
}

// GetPreparedStatement retrieves a prepared statement
func (db *DB) GetPreparedStatement(name string) (*sql.Stmt, error) {
	db.mutex.RLock()
	defer db.mutex.RUnlock()

	stmt, exists := db.prepared[name]
	if !exists {
		return nil, fmt.Errorf("prepared statement %s not found", name)
	}

	return stmt, nil
}

// GetPoolStats returns database connection pool statistics
func (db *DB) GetPoolStats() map[string]interface{} {
	return db.pool.GetStats()
}

// Close closes the database connection and prepared statements
func (db *DB) Close() error {
	db.mutex.Lock()
	defer db.mutex.Unlock()

	for name, stmt := range db.prepared {
		if err := stmt.Close(); err != nil {
			slog.Warn("Failed to close prepared statement", "name", name, "error", err)
		}
	}

	db.prepared = make(map[string]*sql.Stmt)

	return db.DB.Close()
}
