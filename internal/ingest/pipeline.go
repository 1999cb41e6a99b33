package ingest

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cvlens/cvlens/internal/analyze"
	"github.com/cvlens/cvlens/internal/candidate"
	"github.com/cvlens/cvlens/internal/mail"
	"github.com/cvlens/cvlens/internal/scoring"
	"go.uber.org/zap"
)

// Summary is the per-pass result: how many items completed and how many
// failed. Per-item failures never abort the rest of a pass.
type Summary struct {
	Processed int
	Errors    int
}

// Pipeline wires the mail source, the selector, the store, the analyzer and
// the scoring engine into three batch passes. The passes are sequential by
// construction; a single pipeline instance must be the only writer.
type Pipeline struct {
	source   mail.Source
	selector *Selector
	store    *candidate.Store
	cache    *Cache
	analyzer analyze.Analyzer
	engine   *scoring.Engine
	logger   *zap.Logger
}

func NewPipeline(
	source mail.Source,
	selector *Selector,
	store *candidate.Store,
	cache *Cache,
	analyzer analyze.Analyzer,
	engine *scoring.Engine,
	logger *zap.Logger,
) *Pipeline {
	return &Pipeline{
		source:   source,
		selector: selector,
		store:    store,
		cache:    cache,
		analyzer: analyzer,
		engine:   engine,
		logger:   logger,
	}
}

// Sync pulls messages received since the given time and creates a candidate
// record per message that carries an eligible, previously unseen document.
func (p *Pipeline) Sync(ctx context.Context, folderID string, since time.Time) (Summary, error) {
	messages, err := p.source.Messages(ctx, folderID, since)
	if err != nil {
		return Summary{}, fmt.Errorf("listing messages: %w", err)
	}

	p.logger.Info("fetched messages", zap.Int("count", len(messages)))

	var summary Summary
	for _, msg := range messages {
		if err := ctx.Err(); err != nil {
			return summary, err
		}

		if _, ok := p.store.ByMessageID(msg.ID); ok {
			summary.Processed++
			continue
		}

		if err := p.ingest(msg); err != nil {
			summary.Errors++
			p.logger.Error("message ingestion failed",
				zap.String("message_id", msg.ID), zap.Error(err))
			p.logFailure(msg.ID, candidate.ActionFetch, err)
			continue
		}
		summary.Processed++
	}

	return summary, nil
}

func (p *Pipeline) ingest(msg *mail.Message) error {
	att := p.selector.Select(msg.Attachments)
	if att == nil {
		p.logger.Debug("no eligible attachment", zap.String("message_id", msg.ID))
		return p.store.Log(candidate.LogEntry{
			SourceMessageID: msg.ID,
			Action:          candidate.ActionFetch,
			Outcome:         candidate.OutcomeSkipped,
			Message:         "no eligible attachment",
			Timestamp:       time.Now().UTC(),
		})
	}

	hash := Fingerprint(att.Bytes)
	result, err := p.store.Create(candidate.Metadata{
		SourceMessageID: msg.ID,
		DocumentHash:    hash,
		ReceivedAt:      msg.ReceivedAt,
		SenderAddress:   msg.Sender.Address,
		SenderName:      msg.Sender.Name,
		Subject:         msg.Subject,
		Filename:        att.Name,
		SizeBytes:       att.SizeBytes,
	})
	if err != nil {
		return err
	}

	if result == candidate.Duplicate {
		return p.store.Log(candidate.LogEntry{
			SourceMessageID: msg.ID,
			Action:          candidate.ActionFetch,
			Outcome:         candidate.OutcomeSkipped,
			Message:         "duplicate document",
			Timestamp:       time.Now().UTC(),
		})
	}

	if err := p.cache.Put(msg.ID, att.Name, att.Bytes); err != nil {
		return err
	}

	return p.store.Log(candidate.LogEntry{
		SourceMessageID: msg.ID,
		Action:          candidate.ActionFetch,
		Outcome:         candidate.OutcomeSuccess,
		Message:         att.Name,
		Timestamp:       time.Now().UTC(),
	})
}

// Analyze runs the external analyzer over every record that has no analysis
// yet. Analyzer failures are recorded on the record and retried next pass.
func (p *Pipeline) Analyze(ctx context.Context) (Summary, error) {
	var summary Summary
	for _, rec := range p.store.Unanalyzed() {
		if err := ctx.Err(); err != nil {
			return summary, err
		}

		if err := p.analyzeOne(ctx, rec); err != nil {
			summary.Errors++
			p.logger.Error("analysis failed",
				zap.String("message_id", rec.SourceMessageID), zap.Error(err))
			continue
		}
		summary.Processed++
	}

	return summary, nil
}

func (p *Pipeline) analyzeOne(ctx context.Context, rec *candidate.Record) error {
	document, err := p.cache.Get(rec.SourceMessageID, rec.Filename)
	if err != nil {
		err = fmt.Errorf("document not in cache: %w", err)
		return p.recordAnalysisFailure(rec.SourceMessageID, err)
	}

	result, err := p.analyzer.Analyze(ctx, rec.Filename, document)
	if err != nil {
		return p.recordAnalysisFailure(rec.SourceMessageID, err)
	}

	if err := p.store.ApplyAnalysis(rec.SourceMessageID, result); err != nil {
		return err
	}

	outcome := "analysis complete"
	if result.Partial {
		outcome = "analysis complete (raw text only)"
	}

	return p.store.Log(candidate.LogEntry{
		SourceMessageID: rec.SourceMessageID,
		Action:          candidate.ActionAnalyze,
		Outcome:         candidate.OutcomeSuccess,
		Message:         outcome,
		Timestamp:       time.Now().UTC(),
	})
}

func (p *Pipeline) recordAnalysisFailure(messageID string, cause error) error {
	if err := p.store.SetAnalysisError(messageID, cause.Error()); err != nil {
		return err
	}
	p.logFailure(messageID, candidate.ActionAnalyze, cause)
	return cause
}

// Score runs the scoring engine over every analyzed-but-unscored record.
func (p *Pipeline) Score(ctx context.Context) (Summary, error) {
	var summary Summary
	for _, rec := range p.store.Unscored() {
		if err := ctx.Err(); err != nil {
			return summary, err
		}

		if err := p.scoreOne(rec); err != nil {
			summary.Errors++
			p.logger.Error("scoring failed",
				zap.String("message_id", rec.SourceMessageID), zap.Error(err))
			p.logFailure(rec.SourceMessageID, candidate.ActionScore, err)
			continue
		}
		summary.Processed++
	}

	return summary, nil
}

func (p *Pipeline) scoreOne(rec *candidate.Record) error {
	plain, err := p.store.Decrypt(rec)
	if err != nil {
		if errors.Is(err, candidate.ErrCorruptRecord) {
			return err
		}
		return fmt.Errorf("decrypting record: %w", err)
	}

	total, breakdown := p.engine.Score(plain)
	if err := p.store.ApplyScore(rec.SourceMessageID, total, breakdown); err != nil {
		return err
	}

	return p.store.Log(candidate.LogEntry{
		SourceMessageID: rec.SourceMessageID,
		Action:          candidate.ActionScore,
		Outcome:         candidate.OutcomeSuccess,
		Message:         fmt.Sprintf("scored %.1f", total),
		Timestamp:       time.Now().UTC(),
	})
}

// Run executes the three passes in order and reports one summary per pass.
func (p *Pipeline) Run(ctx context.Context, folderID string, since time.Time) (synced, analyzed, scored Summary, err error) {
	if synced, err = p.Sync(ctx, folderID, since); err != nil {
		return synced, analyzed, scored, err
	}
	if analyzed, err = p.Analyze(ctx); err != nil {
		return synced, analyzed, scored, err
	}
	scored, err = p.Score(ctx)
	return synced, analyzed, scored, err
}

func (p *Pipeline) logFailure(messageID, action string, cause error) {
	entry := candidate.LogEntry{
		SourceMessageID: messageID,
		Action:          action,
		Outcome:         candidate.OutcomeFailed,
		Message:         cause.Error(),
		Timestamp:       time.Now().UTC(),
	}
	if err := p.store.Log(entry); err != nil {
		p.logger.Warn("writing processing log entry failed", zap.Error(err))
	}
}
