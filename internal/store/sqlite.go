package store

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

// SQLiteStore implements the record store over a single SQLite file.
// Single-process, single-writer; every exported method is one atomic
// statement (or a short sequence with no cross-call transaction promise).
type SQLiteStore struct {
	db *sql.DB
}

// Open opens or creates the database at the given path and ensures the
// schema exists.
func Open(dbPath string) (*SQLiteStore, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create db dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(wal)&_pragma=foreign_keys(on)")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	s := &SQLiteStore{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

func (s *SQLiteStore) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS users (
		user_id    TEXT PRIMARY KEY,
		username   TEXT NOT NULL,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS user_memory (
		id      INTEGER PRIMARY KEY AUTOINCREMENT,
		user_id TEXT NOT NULL,
		context TEXT NOT NULL,
		FOREIGN KEY (user_id) REFERENCES users(user_id)
	);

	CREATE TABLE IF NOT EXISTS prompt_rules (
		id               INTEGER PRIMARY KEY AUTOINCREMENT,
		rule_text        TEXT NOT NULL,
		error_category   TEXT DEFAULT 'general',
		validation_score REAL DEFAULT 0.0,
		created_at       TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_user_memory_user ON user_memory(user_id);
	CREATE INDEX IF NOT EXISTS idx_prompt_rules_category ON prompt_rules(error_category);
	`
	_, err := s.db.Exec(schema)
	return err
}

func (s *SQLiteStore) Close() error { return s.db.Close() }

// ==================== users ====================

// CreateUser registers a user. It returns false (and no error) when the id
// is already taken; the first registration wins.
func (s *SQLiteStore) CreateUser(userID, username string) (bool, error) {
	_, err := s.db.Exec(`INSERT INTO users (user_id, username) VALUES (?, ?)`, userID, username)
	if err != nil {
		if isUniqueViolation(err) {
			return false, nil
		}
		return false, fmt.Errorf("create user: %w", err)
	}
	return true, nil
}

func isUniqueViolation(err error) bool {
	return strings.Contains(err.Error(), "UNIQUE constraint failed") ||
		strings.Contains(err.Error(), "constraint failed")
}

func (s *SQLiteStore) UserExists(userID string) (bool, error) {
	var count int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM users WHERE user_id = ?`, userID).Scan(&count); err != nil {
		return false, fmt.Errorf("user exists: %w", err)
	}
	return count > 0, nil
}

func (s *SQLiteStore) GetUsername(userID string) (string, bool, error) {
	var name string
	err := s.db.QueryRow(`SELECT username FROM users WHERE user_id = ?`, userID).Scan(&name)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("get username: %w", err)
	}
	return name, true, nil
}

// ==================== rules ====================

// GetAllRules returns every rule text joined by newlines, in insertion
// order, ready to be embedded in the system prompt.
func (s *SQLiteStore) GetAllRules() (string, error) {
	rows, err := s.db.Query(`SELECT rule_text FROM prompt_rules ORDER BY id ASC`)
	if err != nil {
		return "", fmt.Errorf("get rules: %w", err)
	}
	defer rows.Close()

	var texts []string
	for rows.Next() {
		var t string
		if err := rows.Scan(&t); err != nil {
			return "", fmt.Errorf("scan rule: %w", err)
		}
		texts = append(texts, t)
	}
	if err := rows.Err(); err != nil {
		return "", fmt.Errorf("iterate rules: %w", err)
	}
	return strings.Join(texts, "\n"), nil
}

// ListRules returns the full rule records in insertion order.
func (s *SQLiteStore) ListRules() ([]Rule, error) {
	rows, err := s.db.Query(`SELECT id, rule_text, error_category, validation_score, created_at FROM prompt_rules ORDER BY id ASC`)
	if err != nil {
		return nil, fmt.Errorf("list rules: %w", err)
	}
	defer rows.Close()

	var rules []Rule
	for rows.Next() {
		var r Rule
		var createdAt string
		if err := rows.Scan(&r.ID, &r.Text, &r.Category, &r.ValidationScore, &createdAt); err != nil {
			return nil, fmt.Errorf("scan rule: %w", err)
		}
		r.CreatedAt = parseTimestamp(createdAt)
		rules = append(rules, r)
	}
	return rules, rows.Err()
}

func (s *SQLiteStore) SaveRule(text, category string, score float64) (int64, error) {
	res, err := s.db.Exec(
		`INSERT INTO prompt_rules (rule_text, error_category, validation_score) VALUES (?, ?, ?)`,
		text, category, score,
	)
	if err != nil {
		return 0, fmt.Errorf("save rule: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("save rule id: %w", err)
	}
	return id, nil
}

// HasRule reports whether a rule with the exact same text already exists.
func (s *SQLiteStore) HasRule(text string) (bool, error) {
	var count int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM prompt_rules WHERE rule_text = ?`, text).Scan(&count); err != nil {
		return false, fmt.Errorf("has rule: %w", err)
	}
	return count > 0, nil
}

func (s *SQLiteStore) GetRulesByCategory(category string) ([]string, error) {
	rows, err := s.db.Query(`SELECT rule_text FROM prompt_rules WHERE error_category = ? ORDER BY id ASC`, category)
	if err != nil {
		return nil, fmt.Errorf("rules by category: %w", err)
	}
	defer rows.Close()

	var texts []string
	for rows.Next() {
		var t string
		if err := rows.Scan(&t); err != nil {
			return nil, fmt.Errorf("scan rule: %w", err)
		}
		texts = append(texts, t)
	}
	return texts, rows.Err()
}

// ==================== memory ====================

// ListUserMemory returns the raw memory entries of one user in insertion
// order.
func (s *SQLiteStore) ListUserMemory(userID string) ([]string, error) {
	rows, err := s.db.Query(`SELECT context FROM user_memory WHERE user_id = ? ORDER BY id ASC`, userID)
	if err != nil {
		return nil, fmt.Errorf("list memory: %w", err)
	}
	defer rows.Close()

	var contexts []string
	for rows.Next() {
		var c string
		if err := rows.Scan(&c); err != nil {
			return nil, fmt.Errorf("scan memory: %w", err)
		}
		contexts = append(contexts, c)
	}
	return contexts, rows.Err()
}

// GetUserMemory returns the user's accumulated memory formatted as a prompt
// block, or the empty string when nothing is stored.
func (s *SQLiteStore) GetUserMemory(userID string) (string, error) {
	contexts, err := s.ListUserMemory(userID)
	if err != nil {
		return "", err
	}
	if len(contexts) == 0 {
		return "", nil
	}
	var b strings.Builder
	b.WriteString("HISTORIAL DE MEMORIA DEL USUARIO:")
	for _, c := range contexts {
		b.WriteString("\n- ")
		b.WriteString(c)
	}
	return b.String(), nil
}

func (s *SQLiteStore) SaveUserMemory(userID, context string) (int64, error) {
	res, err := s.db.Exec(`INSERT INTO user_memory (user_id, context) VALUES (?, ?)`, userID, context)
	if err != nil {
		return 0, fmt.Errorf("save memory: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("save memory id: %w", err)
	}
	return id, nil
}

// ==================== stats ====================

func (s *SQLiteStore) GetSystemStats() (Stats, error) {
	stats := Stats{ErrorDistribution: make(map[string]int)}

	if err := s.db.QueryRow(`SELECT COUNT(*) FROM prompt_rules`).Scan(&stats.TotalRules); err != nil {
		return stats, fmt.Errorf("count rules: %w", err)
	}
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM users`).Scan(&stats.TotalUsers); err != nil {
		return stats, fmt.Errorf("count users: %w", err)
	}
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM user_memory`).Scan(&stats.TotalMemories); err != nil {
		return stats, fmt.Errorf("count memories: %w", err)
	}

	rows, err := s.db.Query(`
		SELECT error_category, COUNT(*) FROM prompt_rules
		WHERE error_category IS NOT NULL
		GROUP BY error_category`)
	if err != nil {
		return stats, fmt.Errorf("error distribution: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var category string
		var count int
		if err := rows.Scan(&category, &count); err != nil {
			return stats, fmt.Errorf("scan distribution: %w", err)
		}
		stats.ErrorDistribution[category] = count
	}
	if err := rows.Err(); err != nil {
		return stats, fmt.Errorf("iterate distribution: %w", err)
	}

	var avg sql.NullFloat64
	if err := s.db.QueryRow(`SELECT AVG(validation_score) FROM prompt_rules WHERE validation_score > 0`).Scan(&avg); err != nil {
		return stats, fmt.Errorf("avg score: %w", err)
	}
	if avg.Valid {
		stats.AvgValidationScore = avg.Float64
	}
	return stats, nil
}

// ==================== resets ====================

// ResetAll clears every record family and restarts the id sequences, so the
// next insert in each table gets id 1 again.
func (s *SQLiteStore) ResetAll() error {
	stmts := []string{
		`DELETE FROM prompt_rules`,
		`DELETE FROM user_memory`,
		`DELETE FROM users`,
		`DELETE FROM sqlite_sequence WHERE name = 'prompt_rules'`,
		`DELETE FROM sqlite_sequence WHERE name = 'user_memory'`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("reset: %w", err)
		}
	}
	return nil
}

func (s *SQLiteStore) ClearRules() error {
	if _, err := s.db.Exec(`DELETE FROM prompt_rules`); err != nil {
		return fmt.Errorf("clear rules: %w", err)
	}
	return nil
}

func (s *SQLiteStore) ClearMemories() error {
	if _, err := s.db.Exec(`DELETE FROM user_memory`); err != nil {
		return fmt.Errorf("clear memories: %w", err)
	}
	return nil
}

func parseTimestamp(raw string) time.Time {
	for _, layout := range []string{"2006-01-02 15:04:05", time.RFC3339} {
		if t, err := time.Parse(layout, raw); err == nil {
			return t
		}
	}
	return time.Time{}
}
