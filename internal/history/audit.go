package history

import (
	"context"
	"time"

	"github.com/saleslens/sales_insights/internal/llm"
)

// AuditedModel wraps a chat model and records one model_events row per call.
// Audit writes are best-effort and never affect the wrapped call's outcome.
type AuditedModel struct {
	model llm.ChatModel
	store *Store
	stage string
}

// NewAuditedModel wraps model so every completion is audited under stage.
func NewAuditedModel(model llm.ChatModel, store *Store, stage string) *AuditedModel {
	return &AuditedModel{model: model, store: store, stage: stage}
}

func (a *AuditedModel) Complete(ctx context.Context, systemPrompt, userMessage string, opts llm.GenerationOptions) (string, error) {
	start := time.Now()
	raw, err := a.model.Complete(ctx, systemPrompt, userMessage, opts)

	if a.store != nil {
		event := ModelEvent{
			Stage:      a.stage,
			Model:      opts.Model,
			DurationMS: time.Since(start).Milliseconds(),
			Success:    err == nil,
		}
		if err != nil {
			event.ErrorMessage = err.Error()
		}
		// Dropped on failure; the pipeline never depends on audit rows.
		_ = a.store.RecordModelEvent(event)
	}
	return raw, err
}
