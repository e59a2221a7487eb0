package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log"

	"github.com/lib/pq"

	"github.com/sentencechat/backend/internal/sentencing"
)

// offenceColumns is the column list shared by fetch_offence_by_id and
// search_offences, in scan order.
const offenceColumns = `offence_id, canonical_name, short_name, offence_category, provision,
	guideline_url, legislation_url, maximum_sentence_type, maximum_sentence_amount,
	minimum_sentence_code, specified_violent, specified_sexual, specified_terrorist,
	listed_offence, schedule18a_offence, schedule19za, cta_notification`

// chunkColumns is the column list shared by the two chunk search functions,
// minus their score columns.
const chunkColumns = `chunk_id, guideline_id, offence_id, section_type, section_heading,
	chunk_text, source_url`

// PostgresStore calls the sentencing database functions over a direct
// connection. It is selected when DATABASE_URL is configured, bypassing
// PostgREST.
type PostgresStore struct {
	db     *sql.DB
	logger *log.Logger
}

// NewPostgresStore opens and verifies a connection pool.
func NewPostgresStore(databaseURL string) (*PostgresStore, error) {
	if databaseURL == "" {
		return nil, fmt.Errorf("missing DATABASE_URL")
	}

	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	s := &PostgresStore{
		db:     db,
		logger: log.New(log.Writer(), "[PostgresStore] ", log.LstdFlags),
	}
	s.logger.Println("Postgres store initialized")
	return s, nil
}

// mapPQError surfaces invalid-UUID casts as ErrInvalidOffenceID so the API
// layer can report them as validation failures.
func mapPQError(op string, err error) error {
	if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "22P02" {
		return fmt.Errorf("%s: %w", op, ErrInvalidOffenceID)
	}
	return fmt.Errorf("%s: %w", op, err)
}

type rowScanner interface {
	Scan(dest ...any) error
}

// scanOffence reads one offence row. When score is non-nil an extra trailing
// score column is scanned into it.
func scanOffence(row rowScanner, score *float64) (*sentencing.OffenceRecord, error) {
	var (
		rec                                              sentencing.OffenceRecord
		shortName, category, provision                   sql.NullString
		guidelineURL, legislationURL, maxType, maxAmount sql.NullString
		minCode                                          sql.NullString
		violent, sexual, terrorist, listed               sql.NullBool
		sched18a, sched19za, cta                         sql.NullBool
	)

	dest := []any{
		&rec.OffenceID, &rec.CanonicalName, &shortName, &category, &provision,
		&guidelineURL, &legislationURL, &maxType, &maxAmount,
		&minCode, &violent, &sexual, &terrorist,
		&listed, &sched18a, &sched19za, &cta,
	}
	if score != nil {
		dest = append(dest, score)
	}
	if err := row.Scan(dest...); err != nil {
		return nil, err
	}

	rec.ShortName = shortName.String
	rec.OffenceCategory = category.String
	rec.Provision = provision.String
	rec.GuidelineURL = guidelineURL.String
	rec.LegislationURL = legislationURL.String
	rec.MaximumSentenceType = maxType.String
	rec.MaximumSentenceAmount = maxAmount.String
	rec.MinimumSentenceCode = minCode.String
	rec.SpecifiedViolent = violent.Bool
	rec.SpecifiedSexual = sexual.Bool
	rec.SpecifiedTerrorist = terrorist.Bool
	rec.ListedOffence = listed.Bool
	rec.Schedule18AOffence = sched18a.Bool
	rec.Schedule19ZA = sched19za.Bool
	rec.CTANotification = cta.Bool
	return &rec, nil
}

func (s *PostgresStore) FetchOffenceByID(ctx context.Context, offenceID string) (*sentencing.OffenceRecord, error) {
	query := `SELECT ` + offenceColumns + ` FROM fetch_offence_by_id($1)`
	rec, err := scanOffence(s.db.QueryRowContext(ctx, query, offenceID), nil)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, mapPQError("fetch_offence_by_id", err)
	}
	return rec, nil
}

func (s *PostgresStore) SearchOffences(ctx context.Context, query string, limit int) ([]OffenceMatch, error) {
	q := `SELECT ` + offenceColumns + `, score FROM search_offences($1, $2)`
	rows, err := s.db.QueryContext(ctx, q, query, limit)
	if err != nil {
		return nil, mapPQError("search_offences", err)
	}
	defer rows.Close()

	var matches []OffenceMatch
	for rows.Next() {
		var match OffenceMatch
		rec, err := scanOffence(rows, &match.Score)
		if err != nil {
			return nil, mapPQError("search_offences", err)
		}
		match.OffenceRecord = *rec
		matches = append(matches, match)
	}
	if err := rows.Err(); err != nil {
		return nil, mapPQError("search_offences", err)
	}
	return matches, nil
}

func (s *PostgresStore) FetchSentencingMatrix(ctx context.Context, offenceID string) ([]sentencing.MatrixRow, error) {
	q := `SELECT matrix_id, guideline_id, offence_id, culpability, harm,
		starting_point_text, category_range_text FROM fetch_sentencing_matrix($1)`
	rows, err := s.db.QueryContext(ctx, q, offenceID)
	if err != nil {
		return nil, mapPQError("fetch_sentencing_matrix", err)
	}
	defer rows.Close()

	var matrix []sentencing.MatrixRow
	for rows.Next() {
		var (
			row                        sentencing.MatrixRow
			culpability, harm          sql.NullString
			startingPoint, rangeText   sql.NullString
		)
		if err := rows.Scan(&row.MatrixID, &row.GuidelineID, &row.OffenceID,
			&culpability, &harm, &startingPoint, &rangeText); err != nil {
			return nil, mapPQError("fetch_sentencing_matrix", err)
		}
		row.Culpability = culpability.String
		row.Harm = harm.String
		row.StartingPointText = startingPoint.String
		row.CategoryRangeText = rangeText.String
		matrix = append(matrix, row)
	}
	if err := rows.Err(); err != nil {
		return nil, mapPQError("fetch_sentencing_matrix", err)
	}
	return matrix, nil
}

// scanChunk reads one chunk row. Hybrid rows carry vector and text score
// columns ahead of the blended score.
func scanChunk(rows *sql.Rows, hybrid bool) (GuidelineChunk, error) {
	var (
		chunk                        GuidelineChunk
		offenceID                    sql.NullString
		sectionType, sectionHeading  sql.NullString
		sourceURL                    sql.NullString
		vectorScore, textScore       sql.NullFloat64
	)

	dest := []any{&chunk.ChunkID, &chunk.GuidelineID, &offenceID,
		&sectionType, &sectionHeading, &chunk.ChunkText, &sourceURL}
	if hybrid {
		dest = append(dest, &vectorScore, &textScore)
	}
	dest = append(dest, &chunk.Score)

	if err := rows.Scan(dest...); err != nil {
		return chunk, err
	}

	if offenceID.Valid {
		chunk.OffenceID = &offenceID.String
	}
	if sectionType.Valid {
		chunk.SectionType = &sectionType.String
	}
	if sectionHeading.Valid {
		chunk.SectionHeading = &sectionHeading.String
	}
	if sourceURL.Valid {
		chunk.SourceURL = &sourceURL.String
	}
	if hybrid {
		if vectorScore.Valid {
			chunk.VectorScore = &vectorScore.Float64
		}
		if textScore.Valid {
			chunk.TextScore = &textScore.Float64
		}
	}
	return chunk, nil
}

func (s *PostgresStore) collectChunks(rows *sql.Rows, op string, hybrid bool) ([]GuidelineChunk, error) {
	defer rows.Close()

	var chunks []GuidelineChunk
	for rows.Next() {
		chunk, err := scanChunk(rows, hybrid)
		if err != nil {
			return nil, mapPQError(op, err)
		}
		chunks = append(chunks, chunk)
	}
	if err := rows.Err(); err != nil {
		return nil, mapPQError(op, err)
	}
	return chunks, nil
}

func (s *PostgresStore) SearchChunksText(ctx context.Context, query string, topK int, offenceID *string) ([]GuidelineChunk, error) {
	q := `SELECT ` + chunkColumns + `, score FROM search_chunks_text($1, $2, $3)`
	rows, err := s.db.QueryContext(ctx, q, query, topK, toNullString(offenceID))
	if err != nil {
		return nil, mapPQError("search_chunks_text", err)
	}
	return s.collectChunks(rows, "search_chunks_text", false)
}

func (s *PostgresStore) SearchChunksHybrid(ctx context.Context, query string, embedding []float32, topK int, offenceID *string) ([]GuidelineChunk, error) {
	q := `SELECT ` + chunkColumns + `, vector_score, text_score, score
		FROM search_chunks_hybrid($1, $2::vector, $3, $4)`
	rows, err := s.db.QueryContext(ctx, q, query, vectorLiteral(embedding), topK, toNullString(offenceID))
	if err != nil {
		return nil, mapPQError("search_chunks_hybrid", err)
	}
	return s.collectChunks(rows, "search_chunks_hybrid", true)
}

func (s *PostgresStore) StoreCalculationAudit(ctx context.Context, offenceID string, request, result any) error {
	requestJSON, err := json.Marshal(request)
	if err != nil {
		return fmt.Errorf("store_calculation_audit: failed to encode request: %w", err)
	}
	resultJSON, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("store_calculation_audit: failed to encode result: %w", err)
	}

	_, err = s.db.ExecContext(ctx,
		`SELECT store_calculation_audit($1, $2::jsonb, $3::jsonb)`,
		offenceID, string(requestJSON), string(resultJSON))
	if err != nil {
		return mapPQError("store_calculation_audit", err)
	}
	return nil
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *PostgresStore) Close() error {
	return s.db.Close()
}

func toNullString(v *string) sql.NullString {
	if v == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *v, Valid: true}
}
