/*
settlement.go - Attributing cash settlements to accrual cycles

PURPOSE:
  Settlement rows come from a separate workflow and only some carry an
  explicit cycle tag. Older rows identify the cycle in free-text notes
  ("滿2年特休結算") or not at all. The attributor decides, per cycle, which
  rows count against it.

MATCHING POLICY (ordered, first decisive matcher wins):
  1. ExplicitTag:  target_cycle set -> include iff it equals the cycle index.
  2. NotesPattern: notes mention "<n>年" or "滿<n>年" -> include iff some
                   mentioned n equals the cycle index. Only mentions on the
                   target's scale count: years ("2024年度") for calendar
                   cycles, service years ("滿2年") for anniversary cycles.
  3. DateRange:    include iff the transaction date is inside the window.

  A decisive "exclude" stops the chain: a row tagged for cycle 2 whose date
  falls inside cycle 3 counts for cycle 2 only.

NOTES PARSER:
  <n> is an integer or decimal ("0.5年") not preceded by another digit or a
  dot, so "11年" never reads as "1年" and "v1.5年" never reads as "5年".
  "滿半年" reads as 0.5.
  Rows whose notes mention a cycle that doesn't exist in the ledger match
  nothing and surface as unattributed.
*/
package annualleave

import (
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/warp/leave-ledger/generic"
)

// MatchKind names the strategy that decided an attribution.
type MatchKind string

const (
	MatchExplicitTag  MatchKind = "explicit_tag"
	MatchNotesPattern MatchKind = "notes_pattern"
	MatchDateRange    MatchKind = "date_range"
	MatchNone         MatchKind = "none"
)

// Verdict is a matcher's answer for one record against one cycle.
type Verdict int

const (
	Abstain Verdict = iota // not applicable, ask the next matcher
	Include
	Exclude
)

// Target is the cycle a record is tested against.
type Target struct {
	Index  decimal.Decimal
	Window generic.Period
}

// Matcher is one attribution strategy.
type Matcher interface {
	Kind() MatchKind
	Match(rec generic.SettlementRecord, target Target) Verdict
}

// =============================================================================
// STRATEGIES
// =============================================================================

// ExplicitTagMatcher honours SettlementRecord.TargetCycle.
type ExplicitTagMatcher struct{}

func (ExplicitTagMatcher) Kind() MatchKind { return MatchExplicitTag }

func (ExplicitTagMatcher) Match(rec generic.SettlementRecord, target Target) Verdict {
	if rec.TargetCycle == nil {
		return Abstain
	}
	return verdict(rec.TargetCycle.Equal(target.Index))
}

// NotesPatternMatcher reads cycle numbers out of free-text notes.
type NotesPatternMatcher struct{}

func (NotesPatternMatcher) Kind() MatchKind { return MatchNotesPattern }

func (NotesPatternMatcher) Match(rec generic.SettlementRecord, target Target) Verdict {
	decisive := false
	for _, n := range ParseNoteCycles(rec.Notes) {
		if isCalendarIndex(n) != isCalendarIndex(target.Index) {
			continue
		}
		if n.Equal(target.Index) {
			return Include
		}
		decisive = true
	}
	if !decisive {
		return Abstain
	}
	return Exclude
}

// isCalendarIndex tells calendar-year indexes apart from service-year ones.
func isCalendarIndex(n decimal.Decimal) bool {
	return n.GreaterThan(maxCycleIndex)
}

// DateRangeMatcher falls back to the transaction date.
type DateRangeMatcher struct{}

func (DateRangeMatcher) Kind() MatchKind { return MatchDateRange }

func (DateRangeMatcher) Match(rec generic.SettlementRecord, target Target) Verdict {
	if rec.TransactedAt.IsZero() {
		return Abstain
	}
	return verdict(target.Window.Contains(generic.DateOf(rec.TransactedAt)))
}

func verdict(ok bool) Verdict {
	if ok {
		return Include
	}
	return Exclude
}

var noteCycle = regexp.MustCompile(`(\d+(?:\.\d+)?)年`)

// halfYearNote is the half-year cycle's own label.
const halfYearNote = "滿半年"

// ParseNoteCycles returns every cycle number mentioned in notes, in order.
func ParseNoteCycles(notes string) []decimal.Decimal {
	var out []decimal.Decimal
	if strings.Contains(notes, halfYearNote) {
		out = append(out, halfYearIndex)
	}
	for _, m := range noteCycle.FindAllStringSubmatchIndex(notes, -1) {
		start := m[2]
		if start > 0 {
			if prev := notes[start-1]; prev == '.' || (prev >= '0' && prev <= '9') {
				continue
			}
		}
		n, err := decimal.NewFromString(notes[m[2]:m[3]])
		if err != nil {
			continue
		}
		out = append(out, n)
	}
	return out
}

// =============================================================================
// ATTRIBUTOR
// =============================================================================

// Attributor applies matchers in order.
type Attributor struct {
	Matchers []Matcher
}

// NewAttributor returns the standard ExplicitTag, NotesPattern, DateRange chain.
func NewAttributor() *Attributor {
	return &Attributor{Matchers: []Matcher{
		ExplicitTagMatcher{},
		NotesPatternMatcher{},
		DateRangeMatcher{},
	}}
}

// DefaultAttributor is the chain used by BuildLedger.
var DefaultAttributor = NewAttributor()

// Attribute reports whether rec belongs to target and which matcher decided.
func (a *Attributor) Attribute(rec generic.SettlementRecord, target Target) (bool, MatchKind) {
	for _, m := range a.Matchers {
		switch m.Match(rec, target) {
		case Include:
			return true, m.Kind()
		case Exclude:
			return false, m.Kind()
		}
	}
	return false, MatchNone
}

// SettledDays sums the days of every record attributed to the target cycle.
func (a *Attributor) SettledDays(records []generic.SettlementRecord, window generic.Period, index decimal.Decimal) decimal.Decimal {
	target := Target{Index: index, Window: window}
	total := decimal.Zero
	for _, rec := range records {
		if ok, _ := a.Attribute(rec, target); ok {
			total = total.Add(rec.Days)
		}
	}
	return generic.Round(total)
}

// SettledDays uses DefaultAttributor.
func SettledDays(records []generic.SettlementRecord, window generic.Period, index decimal.Decimal) decimal.Decimal {
	return DefaultAttributor.SettledDays(records, window, index)
}
