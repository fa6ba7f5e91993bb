package assist

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/saleslens/sales_insights/internal/chart"
	"github.com/saleslens/sales_insights/internal/mirror"
	"github.com/saleslens/sales_insights/internal/safesql"
	"github.com/saleslens/sales_insights/internal/schema"
	"github.com/saleslens/sales_insights/internal/transcripts"
)

// User-safe failure messages. Raw SQL, provider errors and stack detail go
// to logs only; surfacing them would echo prompt-injection payloads back
// into the UI.
const (
	msgCouldNotProcess = "Sorry, I couldn't process your query. Please try rephrasing it."
	msgNoValidQuery    = "Could not generate a valid query from your request."
	msgNoData          = "No data found matching your query."

	descriptionFallback       = "Query Results"
	descriptionConversational = "AI Assistant Response"

	defaultTranscriptLimit = 15
)

// QueryGate validates and executes generated SQL.
type QueryGate interface {
	Execute(ctx context.Context, sqlText string) (mirror.ResultSet, error)
}

// TranscriptSearcher retrieves grounding excerpts; implementations never
// fail, they degrade to an empty set.
type TranscriptSearcher interface {
	Search(ctx context.Context, queryText string, limit int, source string, dateFloor *time.Time) []transcripts.Chunk
}

// Processor sequences one user turn through classification, generation,
// execution, retrieval and synthesis. Every failure path terminates in a
// structured, user-safe Result; nothing raises past this boundary.
type Processor struct {
	generator        *Generator
	synthesizer      *Synthesizer
	gate             QueryGate
	searcher         TranscriptSearcher
	transcriptSource string
	transcriptLimit  int
	logger           *slog.Logger
}

// NewProcessor wires the pipeline. searcher may be nil when no transcript
// corpus is configured; retrieval is then skipped entirely.
func NewProcessor(generator *Generator, synthesizer *Synthesizer, gate QueryGate, searcher TranscriptSearcher, transcriptSource string, logger *slog.Logger) *Processor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Processor{
		generator:        generator,
		synthesizer:      synthesizer,
		gate:             gate,
		searcher:         searcher,
		transcriptSource: transcriptSource,
		transcriptLimit:  defaultTranscriptLimit,
		logger:           logger,
	}
}

// WithTranscriptLimit overrides how many transcript chunks are retrieved per
// turn. Non-positive limits keep the default.
func (p *Processor) WithTranscriptLimit(limit int) *Processor {
	if limit > 0 {
		p.transcriptLimit = limit
	}
	return p
}

// Process handles one user utterance. The conversation is owned by the
// calling session layer; the processor only reads it for context and appends
// exactly one exchange on a successful turn.
func (p *Processor) Process(ctx context.Context, userQuery string, partition schema.Partition, conversation *Conversation) Result {
	if !IsDataQuery(userQuery) {
		return p.processConversational(ctx, userQuery, partition, conversation)
	}
	return p.processDataQuery(ctx, userQuery, partition, conversation)
}

func (p *Processor) processDataQuery(ctx context.Context, userQuery string, partition schema.Partition, conversation *Conversation) Result {
	spec, result, err := p.runDataQuery(ctx, userQuery, partition, conversation)
	if err != nil {
		return failure(userQuery, userMessage(err))
	}

	chunks := p.retrieveTranscripts(ctx, userQuery, spec)

	summary := p.synthesizer.Summarize(ctx, userQuery, result.Rows, chunks, partition)

	description := spec.Description
	if description == "" {
		description = descriptionFallback
	}
	chartType := normalizeChartType(spec.ChartType)

	if conversation != nil {
		conversation.RecordDataExchange(userQuery, spec, result.Rows, summary)
	}

	return Result{
		Success:     true,
		UserQuery:   userQuery,
		Description: description,
		ChartType:   chartType,
		Data:        chart.FormatData(result.Rows, result.Columns, chartType),
		Summary:     summary,
		RawResults:  result.Rows,
	}
}

// runDataQuery performs generation, parsing and execution, classifying every
// failure with the turn taxonomy. Logged detail stays here; the caller only
// sees the sentinel.
func (p *Processor) runDataQuery(ctx context.Context, userQuery string, partition schema.Partition, conversation *Conversation) (QuerySpec, mirror.ResultSet, error) {
	raw, err := p.generator.GenerateSQL(ctx, userQuery, partition, conversation)
	if err != nil {
		p.logger.Error("sql generation failed", "partition", partition, "error", err)
		return QuerySpec{}, mirror.ResultSet{}, fmt.Errorf("%w: %w", ErrModelTransport, err)
	}

	spec, err := ParseModelResponse(raw)
	if err != nil {
		p.logger.Error("model response unparseable", "partition", partition, "error", err)
		return QuerySpec{}, mirror.ResultSet{}, err
	}
	if spec.SQL == "" {
		// The model declined to produce SQL; its description explains why,
		// but only the generic message is surfaced.
		p.logger.Info("no sql generated", "partition", partition, "description", spec.Description)
		return QuerySpec{}, mirror.ResultSet{}, ErrNoSQL
	}

	p.logger.Info("executing generated query",
		"partition", partition,
		"description", spec.Description,
		"chart_type", spec.ChartType,
	)

	result, err := p.gate.Execute(ctx, spec.SQL)
	if err != nil {
		if errors.Is(err, safesql.ErrRejected) {
			p.logger.Warn("query rejected by safety gate", "sql", spec.SQL, "error", err)
		} else {
			p.logger.Error("query execution failed", "sql", spec.SQL, "error", err)
		}
		return QuerySpec{}, mirror.ResultSet{}, fmt.Errorf("%w: %w", ErrExecution, err)
	}

	if result.Empty() {
		return QuerySpec{}, mirror.ResultSet{}, ErrEmptyResult
	}
	return spec, result, nil
}

// retrieveTranscripts is optional augmentation: any failure inside the
// searcher already degrades to an empty set, and a nil searcher skips it.
func (p *Processor) retrieveTranscripts(ctx context.Context, userQuery string, spec QuerySpec) []transcripts.Chunk {
	if p.searcher == nil {
		return nil
	}

	searchQuery := spec.TranscriptQuery
	if searchQuery == "" {
		searchQuery = userQuery
	}

	var dateFloor *time.Time
	if days, ok := ExtractTimeFloorDays(userQuery); ok {
		floor := time.Now().UTC().AddDate(0, 0, -days)
		dateFloor = &floor
	}

	chunks := p.searcher.Search(ctx, searchQuery, p.transcriptLimit, p.transcriptSource, dateFloor)
	if name := ExtractPersonName(userQuery); name != "" {
		chunks = transcripts.FilterByPerson(chunks, name)
	}
	return chunks
}

func (p *Processor) processConversational(ctx context.Context, userQuery string, partition schema.Partition, conversation *Conversation) Result {
	conversationContext := ""
	if conversation != nil {
		conversationContext = conversation.BuildPromptFragment(partition)
	}

	// Advice questions still benefit from meeting context ("how is Sarah
	// doing with renewals?"); retrieval degrades to empty like elsewhere.
	chunks := p.retrieveTranscripts(ctx, userQuery, QuerySpec{})

	reply, err := p.synthesizer.Conversational(ctx, userQuery, conversationContext, chunks, partition)
	if err != nil {
		p.logger.Error("conversational reply failed", "partition", partition, "error", err)
		return failure(userQuery, msgCouldNotProcess)
	}

	if conversation != nil {
		conversation.RecordConversationalExchange(userQuery, reply)
	}

	return Result{
		Success:     true,
		UserQuery:   userQuery,
		Description: descriptionConversational,
		ChartType:   ChartText,
		Summary:     reply,
	}
}

func failure(userQuery, message string) Result {
	return Result{Success: false, UserQuery: userQuery, Error: message}
}
