package refresh

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/systmms/credfresh/internal/config"
	"github.com/systmms/credfresh/internal/freshness"
	"github.com/systmms/credfresh/internal/history"
	"github.com/systmms/credfresh/internal/logging"
	"github.com/systmms/credfresh/internal/store"
)

// Assessment pairs one (service, account) with its freshness report.
type Assessment struct {
	Service string
	Account string
	Policy  config.ServicePolicy
	Report  freshness.Report
}

// Subject formats the (service, account) pair for logs.
func (a Assessment) Subject() string {
	if a.Account == "" {
		return a.Service
	}
	return a.Service + "/" + a.Account
}

// Orchestrator drives the per-pair workflow: assess, back up, attempt,
// record. One pair's failure never blocks the others.
type Orchestrator struct {
	def      *config.Definition
	store    store.Store
	registry *Registry
	history  history.Recorder
	logger   *logging.Logger
	now      func() time.Time
}

// NewOrchestrator creates an orchestrator over the given store and
// registry. The history recorder may be nil when outcomes should not be
// persisted (e.g. dry assessment paths).
func NewOrchestrator(def *config.Definition, st store.Store, registry *Registry, hist history.Recorder, logger *logging.Logger) *Orchestrator {
	return &Orchestrator{
		def:      def,
		store:    st,
		registry: registry,
		history:  hist,
		logger:   logger,
		now:      time.Now,
	}
}

// Thresholds returns the global warning/critical thresholds.
func (o *Orchestrator) Thresholds() freshness.Thresholds {
	return freshness.Thresholds{
		WarningDays:  o.def.ExpirationWarningDays,
		CriticalDays: o.def.ExpirationCriticalDays,
	}
}

// Assess classifies every (service, account) pair for the named services.
// Accessor-level problems fold into the report (UNKNOWN plus a warning);
// nothing here is fatal.
func (o *Orchestrator) Assess(ctx context.Context, services []string) ([]Assessment, error) {
	th := o.Thresholds()
	now := o.now()

	var assessments []Assessment
	for _, service := range services {
		if err := ctx.Err(); err != nil {
			return assessments, err
		}

		policy, ok := o.def.Services[service]
		if !ok {
			return assessments, fmt.Errorf("service %q not found in configuration", service)
		}

		for _, account := range policy.BundleAccounts() {
			var warning string
			b, err := o.store.Load(ctx, service, account)
			if err != nil {
				b = nil
				var parseErr *store.ParseError
				switch {
				case errors.Is(err, store.ErrNotFound):
					// No bundle yet; UNKNOWN says exactly that.
				case errors.As(err, &parseErr):
					warning = parseErr.Error()
					o.logger.Warn("Bundle for %s is unreadable, treating as missing: %v", service, parseErr.Err)
				default:
					warning = err.Error()
					o.logger.Warn("Could not read bundle for %s: %v", service, err)
				}
			}

			report := freshness.Classify(b, policy, th, now)
			report.Service = service
			report.Account = account
			report.Warning = warning
			recordClassification(service, string(report.Status))

			assessments = append(assessments, Assessment{
				Service: service,
				Account: account,
				Policy:  policy,
				Report:  report,
			})
		}
	}
	return assessments, nil
}

// NeedsRefresh decides whether an assessment crosses the refresh line:
// expired or missing bundles always do; critical services refresh at
// CRITICAL; any service refreshes once days left are inside the critical
// threshold, to pre-empt failures before the next scheduled run.
func (o *Orchestrator) NeedsRefresh(a Assessment) bool {
	switch a.Report.Status {
	case freshness.StatusExpired, freshness.StatusUnknown:
		return true
	case freshness.StatusCritical:
		if a.Policy.Critical {
			return true
		}
	}

	if a.Report.Status == freshness.StatusCritical || a.Report.Status == freshness.StatusWarning {
		if a.Report.DaysLeft != nil && *a.Report.DaysLeft <= o.def.ExpirationCriticalDays {
			return true
		}
	}
	return false
}

// sortMostStaleFirst orders attempts so a run cut short by a timeout has
// already handled the most urgent services. Deterministic: severity, then
// days left, then name.
func sortMostStaleFirst(assessments []Assessment) {
	sort.SliceStable(assessments, func(i, j int) bool {
		ri, rj := assessments[i].Report, assessments[j].Report
		if ri.Status.Severity() != rj.Status.Severity() {
			return ri.Status.Severity() > rj.Status.Severity()
		}
		di, dj := daysOrMax(ri.DaysLeft), daysOrMax(rj.DaysLeft)
		if di != dj {
			return di < dj
		}
		if assessments[i].Service != assessments[j].Service {
			return assessments[i].Service < assessments[j].Service
		}
		return assessments[i].Account < assessments[j].Account
	})
}

func daysOrMax(d *int) int {
	if d == nil {
		return int(^uint(0) >> 1)
	}
	return *d
}

// Run assesses the named services and refreshes every pair that needs it
// (or all of them when force is set), most stale first. The context is
// honored between pairs and inside each attempt; outcomes gathered so far
// are returned either way.
func (o *Orchestrator) Run(ctx context.Context, services []string, mode Mode, force bool) ([]Outcome, error) {
	assessments, err := o.Assess(ctx, services)
	if err != nil {
		return nil, err
	}

	var pending []Assessment
	for _, a := range assessments {
		if force || o.NeedsRefresh(a) {
			pending = append(pending, a)
		} else {
			o.logger.Debug("Skipping %s: status %s", a.Subject(), a.Report.Status)
		}
	}
	sortMostStaleFirst(pending)

	outcomes := make([]Outcome, 0, len(pending))
	for _, a := range pending {
		if err := ctx.Err(); err != nil {
			return outcomes, err
		}

		outcome := o.attempt(ctx, a, mode)
		outcomes = append(outcomes, outcome)
		recordAttempt(outcome.Service, outcome.Success)

		if o.history != nil {
			if err := o.history.Record(history.Entry{
				Service:   outcome.Service,
				Account:   outcome.Account,
				Success:   outcome.Success,
				Reason:    outcome.Reason,
				Strategy:  outcome.Strategy,
				Backup:    backupLocation(outcome),
				Timestamp: outcome.Timestamp,
				Duration:  outcome.Duration,
			}); err != nil {
				o.logger.Warn("Could not record refresh history for %s: %v", outcome.Subject(), err)
			}
		}
	}
	return outcomes, nil
}

func backupLocation(o Outcome) string {
	if o.Backup == nil {
		return ""
	}
	return o.Backup.Location
}

// attempt runs the BACKUP → ATTEMPT → verify → replace chain for one pair.
// Every exit path yields exactly one outcome.
func (o *Orchestrator) attempt(ctx context.Context, a Assessment, mode Mode) Outcome {
	start := o.now()
	outcome := Outcome{
		Service:   a.Service,
		Account:   a.Account,
		Critical:  a.Policy.Critical,
		Timestamp: start,
	}
	fail := func(err error) Outcome {
		outcome.Success = false
		outcome.Err = err
		outcome.Reason = err.Error()
		outcome.Duration = o.now().Sub(start)
		o.logger.Error("Refresh failed for %s: %v", a.Subject(), err)
		return outcome
	}

	// Backup always precedes the attempt; a missing bundle is fine, a
	// failing copy is not (the attempt would risk the only good bundle).
	ref, err := o.store.Backup(ctx, a.Service, a.Account)
	switch {
	case err == nil:
		outcome.Backup = ref
		o.logger.Debug("Backed up %s to %s", a.Subject(), ref.Location)
	case errors.Is(err, store.ErrNoFilesToBackup):
		o.logger.Debug("Nothing to back up for %s", a.Subject())
	default:
		return fail(fmt.Errorf("backup failed, refresh aborted: %w", err))
	}

	strategyName := a.Policy.Refresh.Strategy
	if strategyName == "" {
		return fail(fmt.Errorf("no refresh procedure configured for service %s", a.Service))
	}
	outcome.Strategy = strategyName

	strategy, err := o.registry.Create(strategyName)
	if err != nil {
		return fail(err)
	}

	if !strategy.SupportsMode(mode) {
		return fail(fmt.Errorf("%w: strategy %s cannot run in %s mode", ErrUnsupportedMode, strategyName, mode))
	}

	b, err := strategy.Fetch(ctx, Request{
		Service: a.Service,
		Account: a.Account,
		Mode:    mode,
		Policy:  a.Policy,
	})
	if err != nil {
		return fail(err)
	}

	if err := b.Validate(); err != nil {
		return fail(fmt.Errorf("fetched bundle rejected: %w", err))
	}

	if err := o.store.Replace(ctx, a.Service, a.Account, b); err != nil {
		return fail(fmt.Errorf("could not write new bundle: %w", err))
	}

	outcome.Success = true
	outcome.Reason = fmt.Sprintf("bundle refreshed (%d items)", len(b.Items))
	outcome.Duration = o.now().Sub(start)
	o.logger.Info("Refreshed %s (%d items)", a.Subject(), len(b.Items))
	return outcome
}
