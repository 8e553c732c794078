package annualleave

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/warp/leave-ledger/generic"
)

// Service fetches a ledger's inputs and assembles it. It holds no mutable
// state; concurrent calls are independent.
type Service struct {
	source    generic.Source
	assembler *Assembler
	logger    *zap.Logger
}

// NewService wires a Source. A nil logger discards output.
func NewService(source generic.Source, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		source:    source,
		assembler: NewAssembler(),
		logger:    logger,
	}
}

// BuildLedger resolves the tenant's calculation mode once, fetches usage and
// settlements, and assembles the ledger as of now.
func (s *Service) BuildLedger(ctx context.Context, id generic.EmployeeID, now time.Time) (*Ledger, error) {
	emp, err := s.source.GetEmployee(ctx, id)
	if err != nil {
		return nil, err
	}

	mode, err := s.source.GetCalculationMode(ctx, emp.TenantID)
	if err != nil {
		return nil, fmt.Errorf("calculation mode for tenant %s: %w", emp.TenantID, err)
	}

	return s.buildFor(ctx, emp, mode, now)
}

func (s *Service) buildFor(ctx context.Context, emp generic.Employee, mode generic.CalculationMode, now time.Time) (*Ledger, error) {
	ledger := &Ledger{
		EmployeeID: emp.ID,
		TenantID:   emp.TenantID,
		Mode:       mode,
		AsOf:       asOf(now),
	}

	hire, err := checkHireDate(emp, now)
	if err != nil {
		return nil, err
	}
	if hire == nil {
		ledger.HireDateMissing = true
		return ledger, nil
	}
	ledger.HireDate = hire

	usage, err := s.source.GetApprovedAnnualLeaveUsage(ctx, emp.ID)
	if err != nil {
		return nil, fmt.Errorf("usage for %s: %w", emp.ID, err)
	}
	settlements, err := s.source.GetSettlements(ctx, emp.ID)
	if err != nil {
		return nil, fmt.Errorf("settlements for %s: %w", emp.ID, err)
	}

	cycles, err := s.assembler.BuildLedger(emp, usage, settlements, mode, now)
	if err != nil {
		return nil, err
	}
	ledger.Cycles = cycles
	ledger.Unattributed = s.assembler.Unattributed(cycles, settlements)

	s.report(ledger)
	return ledger, nil
}

// report logs the settlement anomalies of one ledger.
func (s *Service) report(l *Ledger) {
	for _, rec := range l.Unattributed {
		s.logger.Warn("unattributed settlement",
			zap.String("employee_id", string(l.EmployeeID)),
			zap.String("settlement_id", rec.ID),
			zap.String("days", rec.Days.String()),
			zap.String("notes", rec.Notes),
			zap.Time("transacted_at", rec.TransactedAt),
		)
	}
	for _, c := range l.OverSettled() {
		s.logger.Warn("over-settled cycle",
			zap.String("employee_id", string(l.EmployeeID)),
			zap.String("cycle", c.Label),
			zap.String("balance", c.Balance.String()),
		)
	}
}

// Mode returns the tenant's calculation mode.
func (s *Service) Mode(ctx context.Context, tenantID generic.TenantID) (generic.CalculationMode, error) {
	return s.source.GetCalculationMode(ctx, tenantID)
}

// Ledgers builds the ledger of every employee in a tenant. Employees whose
// hire date is unusable are returned in the error map instead of failing
// the whole batch.
func (s *Service) Ledgers(ctx context.Context, tenantID generic.TenantID, now time.Time) ([]*Ledger, map[generic.EmployeeID]error, error) {
	mode, err := s.source.GetCalculationMode(ctx, tenantID)
	if err != nil {
		return nil, nil, err
	}
	employees, err := s.source.ListEmployees(ctx, tenantID)
	if err != nil {
		return nil, nil, err
	}

	var ledgers []*Ledger
	failed := make(map[generic.EmployeeID]error)
	for _, emp := range employees {
		if err := ctx.Err(); err != nil {
			return nil, nil, err
		}
		l, err := s.buildFor(ctx, emp, mode, now)
		if err != nil {
			if generic.IsDataQuality(err) {
				failed[emp.ID] = err
				continue
			}
			return nil, nil, err
		}
		ledgers = append(ledgers, l)
	}
	return ledgers, failed, nil
}
