// Package questions persists the questions the agent could not answer.
//
// The store is a standalone curation utility — it is not wired into the
// chat loop. Whoever reviews the knowledge gaps (via the CLI) adds,
// searches, annotates, and deletes rows here.
package questions

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"
	"time"
)

const questionColumns = "id, question_text, category, asked_by, notes, created_at"

// Question is one unanswered question row. The ID is assigned by the
// store on insert; rows are hard-deleted once resolved.
type Question struct {
	ID           int64     `json:"id"`
	QuestionText string    `json:"question_text"`
	Category     string    `json:"category,omitempty"`
	AskedBy      string    `json:"asked_by,omitempty"`
	Notes        string    `json:"notes,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

// CategoryCount is one row of CategoryStats output.
type CategoryCount struct {
	Category string `json:"category"`
	Count    int    `json:"count"`
}

// Store manages question persistence in SQLite.
type Store struct {
	db         *sql.DB
	ftsEnabled bool
	logger     *slog.Logger
}

// NewStore opens (creating if necessary) the question database.
func NewStore(dbPath string, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}

	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	s := &Store{db: db, logger: logger.With("component", "questions")}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return s, nil
}

func (s *Store) migrate() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS unanswered_questions (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			question_text TEXT NOT NULL,
			category TEXT,
			asked_by TEXT,
			notes TEXT,
			created_at TEXT NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_questions_category ON unanswered_questions(category);
		CREATE INDEX IF NOT EXISTS idx_questions_created ON unanswered_questions(created_at);
	`)
	if err != nil {
		return err
	}

	s.tryEnableFTS()
	return nil
}

// tryEnableFTS creates the FTS5 virtual table for full-text search.
// Falls back to LIKE-based search when FTS5 is not available.
func (s *Store) tryEnableFTS() {
	_, err := s.db.Exec(`
		CREATE VIRTUAL TABLE IF NOT EXISTS questions_fts USING fts5(
			question_text,
			content=unanswered_questions,
			content_rowid=id
		)
	`)
	if err != nil {
		s.logger.Warn("FTS5 not available for questions, using LIKE fallback", "error", err)
		return
	}
	s.ftsEnabled = true

	if _, err := s.db.Exec(`INSERT INTO questions_fts(questions_fts) VALUES('rebuild')`); err != nil {
		s.logger.Warn("failed to rebuild questions FTS index", "error", err)
		s.ftsEnabled = false
	}
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Add inserts a new unanswered question and returns its generated ID.
// category, askedBy, and notes may be empty and are stored as NULL.
func (s *Store) Add(ctx context.Context, questionText, category, askedBy, notes string) (int64, error) {
	if strings.TrimSpace(questionText) == "" {
		return 0, fmt.Errorf("question text is required")
	}

	result, err := s.db.ExecContext(ctx, `
		INSERT INTO unanswered_questions (question_text, category, asked_by, notes, created_at)
		VALUES (?, ?, ?, ?, ?)
	`, questionText, nullStr(category), nullStr(askedBy), nullStr(notes),
		time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return 0, fmt.Errorf("insert: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("last insert id: %w", err)
	}

	s.rebuildFTS()
	return id, nil
}

// ListAll returns every unanswered question, newest first.
func (s *Store) ListAll(ctx context.Context) ([]*Question, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+questionColumns+` FROM unanswered_questions ORDER BY created_at DESC, id DESC`)
	if err != nil {
		return nil, fmt.Errorf("query: %w", err)
	}
	defer rows.Close()

	return scanQuestions(rows)
}

// Search returns questions whose text matches keyword under full-text
// search, newest first. Uses FTS5 when available (stemming per the
// engine's tokenizer) with a LIKE fallback otherwise.
func (s *Store) Search(ctx context.Context, keyword string) ([]*Question, error) {
	if s.ftsEnabled {
		return s.searchFTS(ctx, keyword)
	}
	return s.searchLIKE(ctx, keyword)
}

func (s *Store) searchFTS(ctx context.Context, keyword string) ([]*Question, error) {
	sanitized := sanitizeFTS5Query(keyword)
	if sanitized == "" {
		return nil, nil
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT `+questionColumns+`
		FROM unanswered_questions
		WHERE id IN (SELECT rowid FROM questions_fts WHERE questions_fts MATCH ?)
		ORDER BY created_at DESC, id DESC
	`, sanitized)
	if err != nil {
		s.logger.Warn("FTS5 search failed, falling back to LIKE", "error", err, "keyword", keyword)
		return s.searchLIKE(ctx, keyword)
	}
	defer rows.Close()

	return scanQuestions(rows)
}

func (s *Store) searchLIKE(ctx context.Context, keyword string) ([]*Question, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+questionColumns+` FROM unanswered_questions WHERE question_text LIKE ? ORDER BY created_at DESC, id DESC`,
		"%"+keyword+"%")
	if err != nil {
		return nil, fmt.Errorf("query: %w", err)
	}
	defer rows.Close()

	return scanQuestions(rows)
}

// ListByCategory returns questions with an exact category match, newest first.
func (s *Store) ListByCategory(ctx context.Context, category string) ([]*Question, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+questionColumns+` FROM unanswered_questions WHERE category = ? ORDER BY created_at DESC, id DESC`,
		category)
	if err != nil {
		return nil, fmt.Errorf("query: %w", err)
	}
	defer rows.Close()

	return scanQuestions(rows)
}

// Delete removes a question, typically once it has been answered.
// Returns true iff a row with that ID existed.
func (s *Store) Delete(ctx context.Context, id int64) (bool, error) {
	result, err := s.db.ExecContext(ctx, `DELETE FROM unanswered_questions WHERE id = ?`, id)
	if err != nil {
		return false, fmt.Errorf("delete: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	if affected > 0 {
		s.rebuildFTS()
	}
	return affected > 0, nil
}

// UpdateNotes replaces the notes field of a question. Notes are the
// only mutable field of a stored row. Returns true iff the row existed.
func (s *Store) UpdateNotes(ctx context.Context, id int64, notes string) (bool, error) {
	result, err := s.db.ExecContext(ctx,
		`UPDATE unanswered_questions SET notes = ? WHERE id = ?`, nullStr(notes), id)
	if err != nil {
		return false, fmt.Errorf("update: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return affected > 0, nil
}

// CategoryStats returns question counts per category, descending by
// count. Uncategorized rows are reported under an empty category.
func (s *Store) CategoryStats(ctx context.Context) ([]CategoryCount, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT COALESCE(category, ''), COUNT(*) AS count
		FROM unanswered_questions
		GROUP BY category
		ORDER BY count DESC, category ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query: %w", err)
	}
	defer rows.Close()

	var stats []CategoryCount
	for rows.Next() {
		var cc CategoryCount
		if err := rows.Scan(&cc.Category, &cc.Count); err != nil {
			return nil, fmt.Errorf("scan: %w", err)
		}
		stats = append(stats, cc)
	}
	return stats, rows.Err()
}

// --- scan helpers ---

func scanQuestions(rows *sql.Rows) ([]*Question, error) {
	var questions []*Question
	for rows.Next() {
		var q Question
		var category, askedBy, notes sql.NullString
		var createdStr string

		if err := rows.Scan(&q.ID, &q.QuestionText, &category, &askedBy, &notes, &createdStr); err != nil {
			return nil, fmt.Errorf("scan: %w", err)
		}

		q.Category = category.String
		q.AskedBy = askedBy.String
		q.Notes = notes.String

		created, err := time.Parse(time.RFC3339, createdStr)
		if err != nil {
			return nil, fmt.Errorf("parse created_at: %w", err)
		}
		q.CreatedAt = created

		questions = append(questions, &q)
	}
	return questions, rows.Err()
}

// --- FTS helpers ---

func (s *Store) rebuildFTS() {
	if !s.ftsEnabled {
		return
	}
	if _, err := s.db.Exec(`INSERT INTO questions_fts(questions_fts) VALUES('rebuild')`); err != nil {
		s.logger.Warn("failed to rebuild questions FTS index", "error", err)
	}
}

func sanitizeFTS5Query(query string) string {
	words := strings.Fields(query)
	if len(words) == 0 {
		return ""
	}
	quoted := make([]string, len(words))
	for i, w := range words {
		w = strings.ReplaceAll(w, `"`, `""`)
		quoted[i] = `"` + w + `"`
	}
	return strings.Join(quoted, " ")
}

// --- SQL helpers ---

func nullStr(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}
