/*
scheduler.go - Periodic settlement audit

PURPOSE:
  Settlements that no cycle claims are silently absent from every
  balance. The audit walks every tenant on a cron schedule, rebuilds each
  employee's ledger as of now, and records how many settlements went
  unattributed, how many cycles are over-settled and how many employees
  have unusable hire dates. Each tenant pass is stored as an AuditRun.

DESIGN:
  - robfig/cron drives the schedule (standard 5-field spec)
  - Runs are serialized; a manual run waits for a scheduled one
  - A tenant failing does not stop the others

CONFIGURATION:
  - Spec:    cron expression (default "0 3 * * *")
  - Enabled: whether the schedule is active; RunNow works either way

USAGE:
  audit := NewAuditScheduler(store, service, "0 3 * * *", logger)
  if err := audit.Start(); err != nil { ... }
  defer audit.Stop()

SEE ALSO:
  - handlers.go: ListAuditRuns, TriggerAudit
  - annualleave/service.go: Ledgers, anomaly logging
*/
package api

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/warp/leave-ledger/annualleave"
	"github.com/warp/leave-ledger/store/sqlite"
)

// AuditScheduler runs the settlement audit on a cron schedule.
type AuditScheduler struct {
	Store   *sqlite.Store
	Service *annualleave.Service
	Spec    string
	Enabled bool
	Now     func() time.Time

	logger *zap.Logger
	cron   *cron.Cron
	mu     sync.Mutex // guards cron
	runMu  sync.Mutex // one audit at a time
}

// NewAuditScheduler creates an enabled scheduler for the given cron spec.
func NewAuditScheduler(store *sqlite.Store, svc *annualleave.Service, spec string, logger *zap.Logger) *AuditScheduler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuditScheduler{
		Store:   store,
		Service: svc,
		Spec:    spec,
		Enabled: true,
		Now:     time.Now,
		logger:  logger,
	}
}

// Start registers the audit job and starts the cron runner.
func (s *AuditScheduler) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.Enabled {
		s.logger.Info("audit scheduler disabled")
		return nil
	}
	if s.cron != nil {
		return nil
	}

	c := cron.New()
	if _, err := c.AddFunc(s.Spec, s.scheduledRun); err != nil {
		return fmt.Errorf("audit schedule %q: %w", s.Spec, err)
	}
	c.Start()
	s.cron = c

	s.logger.Info("audit scheduler started", zap.String("spec", s.Spec))
	return nil
}

// Stop halts the cron runner and waits for a running audit to finish.
func (s *AuditScheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cron == nil {
		return
	}
	<-s.cron.Stop().Done()
	s.cron = nil
	s.logger.Info("audit scheduler stopped")
}

// NextRun returns the next scheduled time, or zero when not scheduled.
func (s *AuditScheduler) NextRun() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cron == nil {
		return time.Time{}
	}
	entries := s.cron.Entries()
	if len(entries) == 0 {
		return time.Time{}
	}
	return entries[0].Next
}

func (s *AuditScheduler) scheduledRun() {
	if _, err := s.RunNow(context.Background()); err != nil {
		s.logger.Error("scheduled audit failed", zap.Error(err))
	}
}

// RunNow audits every tenant and returns one run per tenant.
func (s *AuditScheduler) RunNow(ctx context.Context) ([]sqlite.AuditRun, error) {
	s.runMu.Lock()
	defer s.runMu.Unlock()

	tenants, err := s.Store.ListTenants(ctx)
	if err != nil {
		return nil, fmt.Errorf("list tenants: %w", err)
	}

	now := s.Now()
	runs := make([]sqlite.AuditRun, 0, len(tenants))
	for _, tenant := range tenants {
		run := sqlite.AuditRun{
			ID:        uuid.NewString(),
			TenantID:  tenant,
			Status:    sqlite.AuditRunning,
			StartedAt: time.Now().UTC(),
		}
		if err := s.Store.SaveAuditRun(ctx, run); err != nil {
			return runs, fmt.Errorf("save audit run: %w", err)
		}

		s.auditTenant(ctx, &run, now)

		completed := time.Now().UTC()
		run.CompletedAt = &completed
		if err := s.Store.SaveAuditRun(ctx, run); err != nil {
			return runs, fmt.Errorf("save audit run: %w", err)
		}
		runs = append(runs, run)
	}

	s.logger.Info("audit completed", zap.Int("tenants", len(runs)))
	return runs, nil
}

func (s *AuditScheduler) auditTenant(ctx context.Context, run *sqlite.AuditRun, now time.Time) {
	log := s.logger.With(zap.String("tenant_id", string(run.TenantID)), zap.String("run_id", run.ID))

	ledgers, failed, err := s.Service.Ledgers(ctx, run.TenantID, now)
	if err != nil {
		run.Status = sqlite.AuditFailed
		run.Error = err.Error()
		log.Error("audit failed", zap.Error(err))
		return
	}

	run.Employees = len(ledgers) + len(failed)
	for _, l := range ledgers {
		run.Unattributed += len(l.Unattributed)
		run.OverSettled += len(l.OverSettled())
	}
	for id, ferr := range failed {
		log.Warn("employee skipped", zap.String("employee_id", string(id)), zap.Error(ferr))
	}
	if len(failed) > 0 {
		run.Error = fmt.Sprintf("%d employee(s) with unusable hire date", len(failed))
	}
	run.Status = sqlite.AuditCompleted

	log.Info("tenant audited",
		zap.Int("employees", run.Employees),
		zap.Int("unattributed", run.Unattributed),
		zap.Int("over_settled", run.OverSettled),
	)
}
