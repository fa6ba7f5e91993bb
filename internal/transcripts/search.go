// Package transcripts retrieves meeting-transcript excerpts by vector
// similarity. Retrieval is optional grounding for the narrative stage: every
// failure here degrades to an empty result instead of propagating.
package transcripts

import (
	"context"
	"database/sql"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/saleslens/sales_insights/internal/llm"
)

const defaultLimit = 5

// Chunk is one pre-indexed transcript excerpt. Rows are owned by the
// external corpus ETL and never created or mutated here.
type Chunk struct {
	DocUID      string
	ChunkIdx    int
	Source      string
	Title       string
	Text        string
	Author      string
	MeetingDate time.Time
	Distance    float64
}

// Searcher embeds queries and runs nearest-neighbour search over doc_chunks.
type Searcher struct {
	db       *sql.DB
	embedder llm.Embedder
	logger   *slog.Logger
}

// NewSearcher wires the transcript corpus connection and embedding model.
func NewSearcher(db *sql.DB, embedder llm.Embedder, logger *slog.Logger) *Searcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Searcher{db: db, embedder: embedder, logger: logger}
}

const searchSQL = `
SELECT
	doc_uid,
	chunk_idx,
	source,
	title,
	text,
	author,
	meeting_date,
	embedding <=> $1::vector AS distance
FROM doc_chunks
WHERE ($2 = '' OR source = $2)
	AND ($3::date IS NULL OR meeting_date >= $3)
ORDER BY embedding <=> $1::vector
LIMIT $4`

// Search returns the transcript chunks nearest to queryText, optionally
// filtered by source and a meeting-date floor. It never returns an error:
// embedding or query failures are logged and yield an empty set.
func (s *Searcher) Search(ctx context.Context, queryText string, limit int, source string, dateFloor *time.Time) []Chunk {
	if strings.TrimSpace(queryText) == "" {
		return nil
	}
	if limit <= 0 {
		limit = defaultLimit
	}

	embedding, err := s.embedder.Embed(ctx, queryText)
	if err != nil {
		s.logger.Warn("transcript embedding failed", "error", err)
		return nil
	}

	var floor any
	if dateFloor != nil {
		floor = dateFloor.Format("2006-01-02")
	}

	rows, err := s.db.QueryContext(ctx, searchSQL, vectorLiteral(embedding), source, floor, limit)
	if err != nil {
		s.logger.Warn("transcript similarity query failed", "error", err)
		return nil
	}
	defer rows.Close()

	var chunks []Chunk
	for rows.Next() {
		var chunk Chunk
		var title, author sql.NullString
		var meetingDate sql.NullTime
		if err := rows.Scan(
			&chunk.DocUID,
			&chunk.ChunkIdx,
			&chunk.Source,
			&title,
			&chunk.Text,
			&author,
			&meetingDate,
			&chunk.Distance,
		); err != nil {
			s.logger.Warn("transcript row scan failed", "error", err)
			return nil
		}
		chunk.Title = title.String
		chunk.Author = author.String
		if meetingDate.Valid {
			chunk.MeetingDate = meetingDate.Time
		}
		chunks = append(chunks, chunk)
	}
	if err := rows.Err(); err != nil {
		s.logger.Warn("transcript row iteration failed", "error", err)
		return nil
	}
	return chunks
}

// vectorLiteral renders an embedding as the pgvector input literal.
func vectorLiteral(embedding []float64) string {
	var b strings.Builder
	b.WriteByte('[')
	for i, v := range embedding {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(strconv.FormatFloat(v, 'f', -1, 64))
	}
	b.WriteByte(']')
	return b.String()
}

// FilterByPerson keeps chunks whose text mentions any case-insensitive
// variant of the name (full, first, last). When filtering empties the set,
// the first 3 unfiltered chunks are returned instead: partial relevance
// beats no context.
func FilterByPerson(chunks []Chunk, name string) []Chunk {
	if strings.TrimSpace(name) == "" || len(chunks) == 0 {
		return chunks
	}

	parts := strings.Fields(strings.ToLower(name))
	variations := make(map[string]struct{})
	variations[strings.ToLower(strings.TrimSpace(name))] = struct{}{}
	if len(parts) > 0 {
		variations[parts[0]] = struct{}{}
		variations[parts[len(parts)-1]] = struct{}{}
	}

	var filtered []Chunk
	for _, chunk := range chunks {
		text := strings.ToLower(chunk.Text)
		for variation := range variations {
			if strings.Contains(text, variation) {
				filtered = append(filtered, chunk)
				break
			}
		}
	}

	if len(filtered) > 0 {
		return filtered
	}
	if len(chunks) > 3 {
		return chunks[:3]
	}
	return chunks
}
