package middleware

import (
	"log/slog"

	"github.com/sweetpotato0/bookaudit/pkg/logging"
)

// PromptAudit records every prompt and raw response at debug level, keyed by
// agent and chunk. It replaces ad-hoc prompt log files with structured logs.
type PromptAudit struct {
	logger *slog.Logger
}

// NewPromptAudit creates a prompt auditing middleware
func NewPromptAudit(logger *slog.Logger) *PromptAudit {
	if logger == nil {
		logger = logging.WithComponent("prompt-audit")
	}
	return &PromptAudit{logger: logger}
}

// Name returns the middleware name
func (m *PromptAudit) Name() string {
	return "PromptAudit"
}

// Execute logs the prompt before the call and the raw response after it
func (m *PromptAudit) Execute(ctx *Context, next Handler) error {
	m.logger.Debug("prompt issued",
		"agent", ctx.Agent,
		"chunk_id", ctx.ChunkID,
		"prompt", ctx.Prompt,
	)
	err := next(ctx)
	if err != nil {
		m.logger.Debug("provider call failed",
			"agent", ctx.Agent,
			"chunk_id", ctx.ChunkID,
			"error", err,
		)
		return err
	}
	m.logger.Debug("raw response received",
		"agent", ctx.Agent,
		"chunk_id", ctx.ChunkID,
		"response", ctx.Response,
	)
	return nil
}
