package service

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/portier-acs/portier/server/internal/metrics"
	"github.com/portier-acs/portier/server/internal/portier/store"
	"github.com/portier-acs/portier/server/internal/portier/types"
)

// DecisionPublisher delivers a decision back to the scanner that produced
// the scan.  The MQTT client implements this; tests use a recorder.
type DecisionPublisher interface {
	PublishDecision(ctx context.Context, scannerUID string, d types.Decision) error
}

// ScanService is the per-message core of the scan pipeline: resolve the
// scanner, resolve (and auto-register) the tag, evaluate, audit, publish.
// Handle never returns an error — every path ends in either a published
// decision or a logged drop, so a malformed or failing message can never
// take the subscriber down.
type ScanService struct {
	scanners  *ScannerDirectory
	tags      *TagRegistry
	evaluator *Evaluator
	events    store.ScanEventStore
	publisher DecisionPublisher
	metrics   *metrics.Metrics
	logger    *log.Logger
}

type ScanDependencies struct {
	Scanners  *ScannerDirectory
	Tags      *TagRegistry
	Evaluator *Evaluator
	Events    store.ScanEventStore
	Publisher DecisionPublisher
	Metrics   *metrics.Metrics
	Logger    *log.Logger
}

func NewScanService(d ScanDependencies) *ScanService {
	return &ScanService{
		scanners:  d.Scanners,
		tags:      d.Tags,
		evaluator: d.Evaluator,
		events:    d.Events,
		publisher: d.Publisher,
		metrics:   d.Metrics,
		logger:    d.Logger,
	}
}

// Handle processes one inbound scan message to completion.
func (s *ScanService) Handle(ctx context.Context, msg types.ScanMessage) {
	scanner, err := s.scanners.Resolve(ctx, msg.ScannerUID)
	if errors.Is(err, ErrNotFound) || errors.Is(err, ErrInvalidScannerUID) {
		s.logger.Printf("scan dropped: unknown scanner uid=%q tag=%q", msg.ScannerUID, msg.TagUID)
		s.metrics.DroppedMessages.WithLabelValues("unknown_scanner").Inc()
		return
	}
	if err != nil {
		// Without a scanner row there is no audit target and no trusted
		// response topic; drop rather than guess.
		s.logger.Printf("scan dropped: scanner lookup uid=%q: %v", msg.ScannerUID, err)
		s.metrics.DroppedMessages.WithLabelValues("storage_error").Inc()
		return
	}
	// Best-effort, but a failure still reaches the operator log.
	if err := s.scanners.NoteSeen(ctx, scanner.ID); err != nil {
		s.logger.Printf("scan: note seen scanner=%d: %v", scanner.ID, err)
	}

	decision := types.DecisionDeny
	var userID *int64

	tag, existed, err := s.tags.Resolve(ctx, msg.TagUID)
	switch {
	case err != nil:
		// Registration failure fails safe: DENY, no owner attributed.
		s.logger.Printf("scan: tag resolve uid=%q: %v", msg.TagUID, err)
	case !existed:
		s.logger.Printf("scan: auto-registered tag uid=%q (unowned)", msg.TagUID)
	case tag.OwnerUserID != nil:
		userID = tag.OwnerUserID
		d, err := s.evaluator.Decide(ctx, *userID, scanner.ID, msg.ScannedAt)
		if err != nil {
			// Fail-safe DENY on evaluation storage failure.
			s.logger.Printf("scan: evaluation user=%d scanner=%d: %v", *userID, scanner.ID, err)
			d = types.DecisionDeny
		}
		decision = d
	}

	// The decision reaches the hardware before the audit write; a slow or
	// failed audit must never hold the door.
	if err := s.publisher.PublishDecision(ctx, scanner.UID, decision); err != nil {
		s.logger.Printf("scan: publish decision scanner=%s: %v", scanner.UID, err)
		s.metrics.PublishFailures.Inc()
	}
	s.metrics.Decisions.WithLabelValues(string(decision)).Inc()

	ev := types.ScanEvent{
		UserID:    userID,
		ScannerID: scanner.ID,
		Decision:  decision,
		ScannedAt: msg.ScannedAt,
	}
	if ev.ScannedAt.IsZero() {
		ev.ScannedAt = time.Now().UTC()
	}
	if _, err := s.events.Append(ctx, ev); err != nil {
		s.logger.Printf("scan: audit write scanner=%d decision=%s: %v", scanner.ID, decision, err)
		s.metrics.AuditWriteFailures.Inc()
	}
}
