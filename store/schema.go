package store

import "fmt"

// schemaSQL returns the DDL for all tables. vectorDim controls the vec0
// virtual table dimension.
func schemaSQL(vectorDim int) string {
	return fmt.Sprintf(`
-- Source files analysed passage by passage
CREATE TABLE IF NOT EXISTS documents (
    id INTEGER PRIMARY KEY,
    path TEXT NOT NULL UNIQUE,
    filename TEXT NOT NULL,
    format TEXT NOT NULL,
    content_hash TEXT NOT NULL,
    status TEXT DEFAULT 'pending',
    metadata JSON,
    created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
    updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
);

-- Cached analysis results keyed by the SHA-256 of the analysed text
CREATE TABLE IF NOT EXISTS analyses (
    id INTEGER PRIMARY KEY,
    content_hash TEXT NOT NULL UNIQUE,
    text TEXT NOT NULL,
    result JSON NOT NULL,
    sentiment_label TEXT,
    primary_tone TEXT,
    mood TEXT,
    primary_period TEXT,
    primary_setting TEXT,
    created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
    updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
);

-- Passages of each document; a text shared by several documents has one
-- analysis and one row here per occurrence
CREATE TABLE IF NOT EXISTS document_passages (
    document_id INTEGER NOT NULL REFERENCES documents(id) ON DELETE CASCADE,
    position INTEGER NOT NULL,
    heading TEXT,
    content_hash TEXT NOT NULL,
    PRIMARY KEY (document_id, position)
);

-- Facet vectors via sqlite-vec
CREATE VIRTUAL TABLE IF NOT EXISTS vec_analyses USING vec0(
    analysis_id INTEGER PRIMARY KEY,
    facets float[%d] distance_metric=cosine
);

-- Characters found in each analysis, in first-mention order
CREATE TABLE IF NOT EXISTS characters (
    analysis_id INTEGER NOT NULL REFERENCES analyses(id) ON DELETE CASCADE,
    position INTEGER NOT NULL,
    name TEXT NOT NULL,
    PRIMARY KEY (analysis_id, position)
);

-- Relationship edges found in each analysis
CREATE TABLE IF NOT EXISTS relationships (
    id INTEGER PRIMARY KEY,
    analysis_id INTEGER NOT NULL REFERENCES analyses(id) ON DELETE CASCADE,
    character1 TEXT NOT NULL,
    character2 TEXT NOT NULL,
    relation_type TEXT NOT NULL,
    indicator TEXT
);

-- Analysis audit log
CREATE TABLE IF NOT EXISTS analysis_log (
    id INTEGER PRIMARY KEY,
    content_hash TEXT NOT NULL,
    source TEXT NOT NULL,
    cache_hit INTEGER NOT NULL DEFAULT 0,
    degraded INTEGER NOT NULL DEFAULT 0,
    diagnostics JSON,
    duration_ms INTEGER DEFAULT 0,
    created_at DATETIME DEFAULT CURRENT_TIMESTAMP
);

-- Indexes
CREATE INDEX IF NOT EXISTS idx_document_passages_hash ON document_passages(content_hash);
CREATE INDEX IF NOT EXISTS idx_characters_name ON characters(name);
CREATE INDEX IF NOT EXISTS idx_relationships_analysis ON relationships(analysis_id);
CREATE INDEX IF NOT EXISTS idx_relationships_type ON relationships(relation_type);
CREATE INDEX IF NOT EXISTS idx_documents_hash ON documents(content_hash);
CREATE INDEX IF NOT EXISTS idx_analysis_log_hash ON analysis_log(content_hash);
`, vectorDim)
}
