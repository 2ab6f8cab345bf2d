// Package store persists analysis results in SQLite: a cache keyed by the
// content hash of the analysed text, the characters and relationships each
// result found, an audit log, and a sqlite-vec index of facet vectors for
// similarity search.
package store

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"time"

	sqlite_vec "github.com/asg017/sqlite-vec-go-bindings/cgo"
	_ "github.com/mattn/go-sqlite3"
)

func init() {
	sqlite_vec.Auto()
}

// ErrNotFound is returned when a lookup matches no row.
var ErrNotFound = errors.New("store: not found")

// Document represents a row in the documents table.
type Document struct {
	ID          int64  `json:"id"`
	Path        string `json:"path"`
	Filename    string `json:"filename"`
	Format      string `json:"format"`
	ContentHash string `json:"content_hash"`
	Status      string `json:"status"`
	Metadata    string `json:"metadata,omitempty"`
	CreatedAt   string `json:"created_at"`
	UpdatedAt   string `json:"updated_at"`
}

// Analysis represents a row in the analyses table. Result holds the JSON
// encoded aggregate result; the summary columns are copies of its fields
// for querying.
type Analysis struct {
	ID             int64          `json:"id"`
	ContentHash    string         `json:"content_hash"`
	Text           string         `json:"text"`
	Result         string         `json:"result"`
	SentimentLabel string         `json:"sentiment_label"`
	PrimaryTone    string         `json:"primary_tone"`
	Mood           string         `json:"mood"`
	PrimaryPeriod  string         `json:"primary_period"`
	PrimarySetting string         `json:"primary_setting"`
	LexiconVersion string         `json:"lexicon_version"`
	Characters     []string       `json:"characters"`
	Relationships  []Relationship `json:"relationships"`
	CreatedAt      string         `json:"created_at"`
	UpdatedAt      string         `json:"updated_at"`
}

// Passage represents a row in the document_passages table: the text at one
// position of a document, identified by its content hash.
type Passage struct {
	Position    int    `json:"position"`
	Heading     string `json:"heading,omitempty"`
	ContentHash string `json:"content_hash"`
}

// DocumentAnalysis is the cached analysis of the passage at one position
// of a document.
type DocumentAnalysis struct {
	Position int    `json:"position"`
	Heading  string `json:"heading,omitempty"`
	Analysis
}

// Relationship represents a row in the relationships table.
type Relationship struct {
	Character1   string `json:"character_1"`
	Character2   string `json:"character_2"`
	RelationType string `json:"relation_type"`
	Indicator    string `json:"indicator"`
}

// LogEntry represents a row in the analysis_log table.
type LogEntry struct {
	ContentHash string `json:"content_hash"`
	Source      string `json:"source"` // api, batch, file, stream
	CacheHit    bool   `json:"cache_hit"`
	Degraded    bool   `json:"degraded"`
	Diagnostics string `json:"diagnostics,omitempty"` // JSON array
	DurationMS  int64  `json:"duration_ms"`
}

// Match is one result of a similarity search.
type Match struct {
	AnalysisID  int64   `json:"analysis_id"`
	ContentHash string  `json:"content_hash"`
	Text        string  `json:"text"`
	DocumentID  *int64  `json:"document_id,omitempty"`
	Position    int     `json:"position"`
	Score       float64 `json:"score"`
}

// Store wraps the SQLite database for all gonarrate persistence.
type Store struct {
	db        *sql.DB
	vectorDim int
}

// New opens (or creates) a SQLite database at the given path and
// initialises the schema including the sqlite-vec virtual table.
func New(dbPath string, vectorDim int) (*Store, error) {
	if vectorDim <= 0 {
		return nil, fmt.Errorf("invalid vector dimension %d", vectorDim)
	}
	dir := filepath.Dir(dbPath)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("creating db directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_foreign_keys=on&_busy_timeout=30000")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}
	if _, err := db.Exec(schemaSQL(vectorDim)); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(30 * time.Minute)

	s := &Store{db: db, vectorDim: vectorDim}
	if err := s.Migrate(context.Background()); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}
	return s, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// DB returns the underlying *sql.DB for advanced queries.
func (s *Store) DB() *sql.DB {
	return s.db
}

// VectorDim returns the configured facet vector dimension.
func (s *Store) VectorDim() int {
	return s.vectorDim
}

// ContentHash is the cache key of a text: hex SHA-256 of its bytes.
func ContentHash(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}

// --- Document operations ---

// UpsertDocument inserts or updates a document record. Returns the document ID.
func (s *Store) UpsertDocument(ctx context.Context, doc Document) (int64, error) {
	var id int64
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO documents (path, filename, format, content_hash, status, metadata)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(path) DO UPDATE SET
			filename = excluded.filename,
			format = excluded.format,
			content_hash = excluded.content_hash,
			status = excluded.status,
			metadata = excluded.metadata,
			updated_at = CURRENT_TIMESTAMP
		RETURNING id
	`, doc.Path, doc.Filename, doc.Format, doc.ContentHash, doc.Status, nullable(doc.Metadata)).Scan(&id)
	return id, err
}

const documentColumns = `id, path, filename, format, content_hash, status, metadata, created_at, updated_at`

func scanDocument(row interface{ Scan(...any) error }) (*Document, error) {
	d := &Document{}
	var status, metadata sql.NullString
	err := row.Scan(&d.ID, &d.Path, &d.Filename, &d.Format, &d.ContentHash,
		&status, &metadata, &d.CreatedAt, &d.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	d.Status = status.String
	d.Metadata = metadata.String
	return d, nil
}

// GetDocumentByPath retrieves a document by its file path.
func (s *Store) GetDocumentByPath(ctx context.Context, path string) (*Document, error) {
	return scanDocument(s.db.QueryRowContext(ctx,
		"SELECT "+documentColumns+" FROM documents WHERE path = ?", path))
}

// GetDocument retrieves a document by ID.
func (s *Store) GetDocument(ctx context.Context, id int64) (*Document, error) {
	return scanDocument(s.db.QueryRowContext(ctx,
		"SELECT "+documentColumns+" FROM documents WHERE id = ?", id))
}

// ListDocuments returns all documents, newest first.
func (s *Store) ListDocuments(ctx context.Context) ([]Document, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT "+documentColumns+" FROM documents ORDER BY created_at DESC, id DESC")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	docs := make([]Document, 0)
	for rows.Next() {
		d, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		docs = append(docs, *d)
	}
	return docs, rows.Err()
}

// UpdateDocumentStatus updates just the status field.
func (s *Store) UpdateDocumentStatus(ctx context.Context, id int64, status string) error {
	_, err := s.db.ExecContext(ctx,
		"UPDATE documents SET status = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?",
		status, id)
	return err
}

// SetDocumentPassages replaces the passage list of a document.
func (s *Store) SetDocumentPassages(ctx context.Context, documentID int64, passages []Passage) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx,
			"DELETE FROM document_passages WHERE document_id = ?", documentID); err != nil {
			return err
		}
		for _, p := range passages {
			if _, err := tx.ExecContext(ctx, `
				INSERT INTO document_passages (document_id, position, heading, content_hash)
				VALUES (?, ?, ?, ?)`,
				documentID, p.Position, nullable(p.Heading), p.ContentHash); err != nil {
				return fmt.Errorf("inserting passage %d: %w", p.Position, err)
			}
		}
		return nil
	})
}

// exclusiveAnalyses selects the analyses referenced by document ?1 and by
// no other document.
const exclusiveAnalyses = `
	SELECT a.id FROM analyses a
	WHERE a.content_hash IN (SELECT content_hash FROM document_passages WHERE document_id = ?1)
	AND NOT EXISTS (
		SELECT 1 FROM document_passages o
		WHERE o.content_hash = a.content_hash AND o.document_id <> ?1
	)`

// DeleteDocument removes a document, its passage list, and the analyses no
// other document shares.
func (s *Store) DeleteDocument(ctx context.Context, id int64) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx,
			"DELETE FROM vec_analyses WHERE analysis_id IN ("+exclusiveAnalyses+")", id); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx,
			"DELETE FROM analyses WHERE id IN ("+exclusiveAnalyses+")", id); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, "DELETE FROM document_passages WHERE document_id = ?", id); err != nil {
			return err
		}
		res, err := tx.ExecContext(ctx, "DELETE FROM documents WHERE id = ?", id)
		if err != nil {
			return err
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return ErrNotFound
		}
		return nil
	})
}

// --- Analysis operations ---

// SaveAnalysis stores a, replacing any row with the same content hash, and
// indexes vector for similarity search. An all-zero vector removes the
// analysis from the index since it has no cosine direction. Returns the
// analysis ID.
func (s *Store) SaveAnalysis(ctx context.Context, a Analysis, vector []float32) (int64, error) {
	if vector != nil && len(vector) != s.vectorDim {
		return 0, fmt.Errorf("vector has %d dimensions, store expects %d", len(vector), s.vectorDim)
	}

	var id int64
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		err := tx.QueryRowContext(ctx, `
			INSERT INTO analyses (content_hash, text, result,
				sentiment_label, primary_tone, mood, primary_period, primary_setting, lexicon_version)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(content_hash) DO UPDATE SET
				text = excluded.text,
				result = excluded.result,
				sentiment_label = excluded.sentiment_label,
				primary_tone = excluded.primary_tone,
				mood = excluded.mood,
				primary_period = excluded.primary_period,
				primary_setting = excluded.primary_setting,
				lexicon_version = excluded.lexicon_version,
				updated_at = CURRENT_TIMESTAMP
			RETURNING id
		`, a.ContentHash, a.Text, a.Result,
			a.SentimentLabel, a.PrimaryTone, a.Mood, a.PrimaryPeriod, a.PrimarySetting,
			a.LexiconVersion).Scan(&id)
		if err != nil {
			return fmt.Errorf("upserting analysis: %w", err)
		}

		if err := replaceGraph(ctx, tx, id, a.Characters, a.Relationships); err != nil {
			return err
		}

		if _, err := tx.ExecContext(ctx, "DELETE FROM vec_analyses WHERE analysis_id = ?", id); err != nil {
			return fmt.Errorf("clearing vector: %w", err)
		}
		if vector != nil && !zero(vector) {
			if _, err := tx.ExecContext(ctx,
				"INSERT INTO vec_analyses (analysis_id, facets) VALUES (?, ?)",
				id, serializeFloat32(vector)); err != nil {
				return fmt.Errorf("inserting vector: %w", err)
			}
		}
		return nil
	})
	return id, err
}

func replaceGraph(ctx context.Context, tx *sql.Tx, id int64, chars []string, rels []Relationship) error {
	if _, err := tx.ExecContext(ctx, "DELETE FROM characters WHERE analysis_id = ?", id); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM relationships WHERE analysis_id = ?", id); err != nil {
		return err
	}
	for i, name := range chars {
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO characters (analysis_id, position, name) VALUES (?, ?, ?)",
			id, i, name); err != nil {
			return fmt.Errorf("inserting character: %w", err)
		}
	}
	for _, r := range rels {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO relationships (analysis_id, character1, character2, relation_type, indicator)
			VALUES (?, ?, ?, ?, ?)`,
			id, r.Character1, r.Character2, r.RelationType, r.Indicator); err != nil {
			return fmt.Errorf("inserting relationship: %w", err)
		}
	}
	return nil
}

const analysisColumns = `a.id, a.content_hash, a.text, a.result,
	a.sentiment_label, a.primary_tone, a.mood, a.primary_period, a.primary_setting, a.lexicon_version,
	a.created_at, a.updated_at`

// scanAnalysis reads analysisColumns followed by any extra columns.
func scanAnalysis(row interface{ Scan(...any) error }, extra ...any) (*Analysis, error) {
	a := &Analysis{}
	var label, tone, mood, period, place sql.NullString
	dest := append([]any{&a.ID, &a.ContentHash, &a.Text, &a.Result,
		&label, &tone, &mood, &period, &place, &a.LexiconVersion, &a.CreatedAt, &a.UpdatedAt}, extra...)
	err := row.Scan(dest...)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	a.SentimentLabel = label.String
	a.PrimaryTone = tone.String
	a.Mood = mood.String
	a.PrimaryPeriod = period.String
	a.PrimarySetting = place.String
	return a, nil
}

// GetAnalysisByHash returns the cached analysis of the text with the given
// content hash, or ErrNotFound.
func (s *Store) GetAnalysisByHash(ctx context.Context, hash string) (*Analysis, error) {
	a, err := scanAnalysis(s.db.QueryRowContext(ctx,
		"SELECT "+analysisColumns+" FROM analyses a WHERE a.content_hash = ?", hash))
	if err != nil {
		return nil, err
	}
	if err := s.loadGraph(ctx, a); err != nil {
		return nil, err
	}
	return a, nil
}

// ListAnalyses returns the cached analyses of a document in passage order.
// Passages without a cached analysis are skipped.
func (s *Store) ListAnalyses(ctx context.Context, documentID int64) ([]DocumentAnalysis, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+analysisColumns+`, p.position, p.heading
		FROM document_passages p
		JOIN analyses a ON a.content_hash = p.content_hash
		WHERE p.document_id = ?
		ORDER BY p.position`, documentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]DocumentAnalysis, 0)
	for rows.Next() {
		var position int
		var heading sql.NullString
		a, err := scanAnalysis(rows, &position, &heading)
		if err != nil {
			return nil, err
		}
		out = append(out, DocumentAnalysis{Position: position, Heading: heading.String, Analysis: *a})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for i := range out {
		if err := s.loadGraph(ctx, &out[i].Analysis); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func (s *Store) loadGraph(ctx context.Context, a *Analysis) error {
	a.Characters = make([]string, 0)
	a.Relationships = make([]Relationship, 0)

	rows, err := s.db.QueryContext(ctx,
		"SELECT name FROM characters WHERE analysis_id = ? ORDER BY position", a.ID)
	if err != nil {
		return err
	}
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			rows.Close()
			return err
		}
		a.Characters = append(a.Characters, name)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return err
	}

	rows, err = s.db.QueryContext(ctx, `
		SELECT character1, character2, relation_type, COALESCE(indicator, '')
		FROM relationships WHERE analysis_id = ? ORDER BY id`, a.ID)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var r Relationship
		if err := rows.Scan(&r.Character1, &r.Character2, &r.RelationType, &r.Indicator); err != nil {
			return err
		}
		a.Relationships = append(a.Relationships, r)
	}
	return rows.Err()
}

// DocumentGraph merges the characters and relationships of every cached
// passage of a document. Characters are in first-appearance order across
// passages; relationships are de-duplicated by (character1, character2, type).
func (s *Store) DocumentGraph(ctx context.Context, documentID int64) ([]string, []Relationship, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT c.name FROM document_passages p
		JOIN analyses a ON a.content_hash = p.content_hash
		JOIN characters c ON c.analysis_id = a.id
		WHERE p.document_id = ?
		ORDER BY p.position, c.position`, documentID)
	if err != nil {
		return nil, nil, err
	}
	chars := make([]string, 0)
	seen := make(map[string]bool)
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			rows.Close()
			return nil, nil, err
		}
		if !seen[name] {
			seen[name] = true
			chars = append(chars, name)
		}
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, nil, err
	}

	rows, err = s.db.QueryContext(ctx, `
		SELECT r.character1, r.character2, r.relation_type, COALESCE(MIN(r.indicator), '')
		FROM document_passages p
		JOIN analyses a ON a.content_hash = p.content_hash
		JOIN relationships r ON r.analysis_id = a.id
		WHERE p.document_id = ?
		GROUP BY r.character1, r.character2, r.relation_type
		ORDER BY MIN(p.position), MIN(r.id)`, documentID)
	if err != nil {
		return nil, nil, err
	}
	defer rows.Close()
	rels := make([]Relationship, 0)
	for rows.Next() {
		var r Relationship
		if err := rows.Scan(&r.Character1, &r.Character2, &r.RelationType, &r.Indicator); err != nil {
			return nil, nil, err
		}
		rels = append(rels, r)
	}
	return chars, rels, rows.Err()
}

// --- Similarity ---

// Similar performs a KNN search over stored facet vectors and returns up to
// k analyses ordered by decreasing cosine similarity. excludeHash, when set,
// drops the analysis of the query text itself. A match found in documents
// reports its earliest occurrence.
func (s *Store) Similar(ctx context.Context, vector []float32, k int, excludeHash string) ([]Match, error) {
	if len(vector) != s.vectorDim {
		return nil, fmt.Errorf("vector has %d dimensions, store expects %d", len(vector), s.vectorDim)
	}
	matches := make([]Match, 0)
	if k <= 0 || zero(vector) {
		return matches, nil
	}
	limit := k
	if excludeHash != "" {
		limit++
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT v.analysis_id, v.distance, a.content_hash, a.text, p.document_id, COALESCE(p.position, 0)
		FROM vec_analyses v
		JOIN analyses a ON a.id = v.analysis_id
		LEFT JOIN document_passages p ON p.rowid = (
			SELECT rowid FROM document_passages
			WHERE content_hash = a.content_hash
			ORDER BY document_id, position LIMIT 1
		)
		WHERE v.facets MATCH ? AND k = ?
		ORDER BY v.distance
	`, serializeFloat32(vector), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var m Match
		var distance float64
		var docID sql.NullInt64
		if err := rows.Scan(&m.AnalysisID, &distance, &m.ContentHash, &m.Text, &docID, &m.Position); err != nil {
			return nil, err
		}
		if m.ContentHash == excludeHash {
			continue
		}
		if docID.Valid {
			m.DocumentID = &docID.Int64
		}
		// cosine distance is 1 - cosine similarity
		m.Score = 1.0 - distance
		if len(matches) < k {
			matches = append(matches, m)
		}
	}
	return matches, rows.Err()
}

// --- Audit log ---

// LogAnalysis records one analysis request.
func (s *Store) LogAnalysis(ctx context.Context, e LogEntry) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO analysis_log (content_hash, source, cache_hit, degraded, diagnostics, duration_ms)
		VALUES (?, ?, ?, ?, ?, ?)`,
		e.ContentHash, e.Source, e.CacheHit, e.Degraded, nullable(e.Diagnostics), e.DurationMS)
	return err
}

// Stats holds counts of key database objects.
type Stats struct {
	Documents     int `json:"documents"`
	Analyses      int `json:"analyses"`
	Vectors       int `json:"vectors"`
	Characters    int `json:"characters"`
	Relationships int `json:"relationships"`
	Requests      int `json:"requests"`
	CacheHits     int `json:"cache_hits"`
	Degraded      int `json:"degraded"`
}

// Stats returns counts of documents, analyses, vectors, graph rows and
// logged requests.
func (s *Store) Stats(ctx context.Context) (*Stats, error) {
	stats := &Stats{}
	queries := []struct {
		query string
		dest  *int
	}{
		{"SELECT COUNT(*) FROM documents", &stats.Documents},
		{"SELECT COUNT(*) FROM analyses", &stats.Analyses},
		{"SELECT COUNT(*) FROM vec_analyses", &stats.Vectors},
		{"SELECT COUNT(DISTINCT name) FROM characters", &stats.Characters},
		{"SELECT COUNT(*) FROM relationships", &stats.Relationships},
		{"SELECT COUNT(*) FROM analysis_log", &stats.Requests},
		{"SELECT COUNT(*) FROM analysis_log WHERE cache_hit = 1", &stats.CacheHits},
		{"SELECT COUNT(*) FROM analysis_log WHERE degraded = 1", &stats.Degraded},
	}
	for _, q := range queries {
		if err := s.db.QueryRowContext(ctx, q.query).Scan(q.dest); err != nil {
			return nil, fmt.Errorf("counting %s: %w", q.query, err)
		}
	}
	return stats, nil
}

// --- helpers ---

func (s *Store) inTx(ctx context.Context, fn func(*sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}
	return tx.Commit()
}

func nullable(s string) any {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	return s
}

func zero(v []float32) bool {
	for _, f := range v {
		if f != 0 {
			return false
		}
	}
	return true
}

// serializeFloat32 converts a float32 slice to little-endian bytes for sqlite-vec.
func serializeFloat32(v []float32) []byte {
	buf := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}
