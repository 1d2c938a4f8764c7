// Package daysync reconciles the device-local day store with the remote
// mirror. Local storage is the source of truth; the remote copy is refreshed
// in the background and preferred on read when it is reachable.
package daysync

import (
	"context"
	"fmt"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/jgoulah/plantlog/internal/calc"
	"github.com/jgoulah/plantlog/internal/linking"
	"github.com/jgoulah/plantlog/internal/session"
	"github.com/jgoulah/plantlog/pkg/models"
)

// Source tells where a loaded record came from
type Source string

const (
	SourceLocal  Source = "local"
	SourceRemote Source = "remote"
)

// Local is the device store
type Local interface {
	FindDay(ctx context.Context, dateKey string) *models.DayRecord
	LoadDay(ctx context.Context, dateKey string) models.DayRecord
	SaveDay(ctx context.Context, r models.DayRecord) error
	DeleteDay(ctx context.Context, dateKey string) error
	DatesInMonth(ctx context.Context, month string) ([]string, error)
	LoadSettings(ctx context.Context) models.UserSettings
	SaveSettings(ctx context.Context, settings models.UserSettings) error
}

// Remote is the per-user relational mirror
type Remote interface {
	FetchDay(ctx context.Context, userID uuid.UUID, dateKey string) (*models.DayRecord, error)
	UpsertDay(ctx context.Context, userID uuid.UUID, record models.DayRecord) error
	DeleteDay(ctx context.Context, userID uuid.UUID, dateKey string) error
	ListMonth(ctx context.Context, userID uuid.UUID, month string) ([]models.DaySummary, error)
	FetchProfile(ctx context.Context, userID uuid.UUID) (*models.UserSettings, error)
	UpsertProfile(ctx context.Context, userID uuid.UUID, settings models.UserSettings) error
}

// Sessions reports the signed-in user
type Sessions interface {
	Current(ctx context.Context) (*session.Session, error)
}

// Notifier receives the summary of every saved day
type Notifier interface {
	Publish(summary models.DaySummary) error
}

// Orchestrator loads, saves and deletes day records across both stores
type Orchestrator struct {
	local    Local
	remote   Remote
	sessions Sessions
	notifier Notifier
	validate *validator.Validate
	logger   *zap.Logger

	pending sync.WaitGroup

	mu        sync.Mutex
	mirroring map[string]int // dates with a remote upsert still running
}

// Option configures an Orchestrator
type Option func(*Orchestrator)

// WithRemote enables the remote mirror
func WithRemote(r Remote, s Sessions) Option {
	return func(o *Orchestrator) {
		o.remote = r
		o.sessions = s
	}
}

// WithNotifier publishes each saved day's summary
func WithNotifier(n Notifier) Option {
	return func(o *Orchestrator) {
		o.notifier = n
	}
}

// New creates an Orchestrator that works local-only unless WithRemote is given
func New(local Local, logger *zap.Logger, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		local:     local,
		validate:  validator.New(),
		logger:    logger.Named("daysync"),
		mirroring: make(map[string]int),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// user returns the signed-in user id, or false when the remote is unusable
func (o *Orchestrator) user(ctx context.Context) (uuid.UUID, bool) {
	if o.remote == nil || o.sessions == nil {
		return uuid.Nil, false
	}
	s, err := o.sessions.Current(ctx)
	if err != nil || s == nil {
		return uuid.Nil, false
	}
	return s.UserID, true
}

func (o *Orchestrator) track(dateKey string, delta int) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.mirroring[dateKey] += delta; o.mirroring[dateKey] <= 0 {
		delete(o.mirroring, dateKey)
	}
}

func (o *Orchestrator) inFlight(dateKey string) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.mirroring[dateKey] > 0
}

// LoadDay returns the record for dateKey with yesterday's closing readings
// carried in. A reachable remote copy wins over the local one, except for
// dates whose latest save is still being mirrored.
func (o *Orchestrator) LoadDay(ctx context.Context, dateKey string) (models.DayRecord, Source) {
	prevKey, hasPrev := linking.PreviousDateKey(dateKey)

	var localPrev *models.DayRecord
	if hasPrev {
		localPrev = o.local.FindDay(ctx, prevKey)
	}
	result := linking.Link(o.local.LoadDay(ctx, dateKey), localPrev)

	userID, ok := o.user(ctx)
	if !ok || o.inFlight(dateKey) {
		return result, SourceLocal
	}

	remoteDay, err := o.remote.FetchDay(ctx, userID, dateKey)
	if err != nil {
		o.logger.Warn("remote load failed, using local record", zap.String("date", dateKey), zap.Error(err))
		return result, SourceLocal
	}
	if remoteDay == nil {
		return result, SourceLocal
	}

	prev := localPrev
	if hasPrev && !o.inFlight(prevKey) {
		remotePrev, err := o.remote.FetchDay(ctx, userID, prevKey)
		if err != nil {
			o.logger.Warn("remote load of previous day failed", zap.String("date", prevKey), zap.Error(err))
		} else if remotePrev != nil {
			prev = remotePrev
		}
	}
	return linking.Link(*remoteDay, prev), SourceRemote
}

// SaveDay writes the record locally and then mirrors it in the background.
// Only a local failure is returned.
func (o *Orchestrator) SaveDay(ctx context.Context, record models.DayRecord) error {
	record = record.Normalize()
	for id, t := range record.Turbines {
		t.Hours = models.ClampHours(t.Hours)
		record.Turbines[id] = t
	}

	if err := o.local.SaveDay(ctx, record); err != nil {
		return fmt.Errorf("saving locally: %w", err)
	}

	userID, signedIn := o.user(ctx)
	if !signedIn && o.notifier == nil {
		return nil
	}

	bg := context.WithoutCancel(ctx)
	if signedIn {
		o.track(record.DateKey, 1)
	}
	o.pending.Add(1)
	go func() {
		defer o.pending.Done()
		o.mirror(bg, userID, signedIn, record)
	}()
	return nil
}

func (o *Orchestrator) mirror(ctx context.Context, userID uuid.UUID, signedIn bool, record models.DayRecord) {
	if signedIn {
		err := o.remote.UpsertDay(ctx, userID, record)
		o.track(record.DateKey, -1)
		if err != nil {
			o.logger.Error("remote sync failed", zap.String("date", record.DateKey), zap.Error(err))
		} else {
			o.logger.Debug("remote sync done", zap.String("date", record.DateKey))
		}
	}
	if o.notifier != nil {
		if err := o.notifier.Publish(calc.Summarize(record)); err != nil {
			o.logger.Warn("publishing summary failed", zap.String("date", record.DateKey), zap.Error(err))
		}
	}
}

// Wait blocks until every background mirror has finished
func (o *Orchestrator) Wait() {
	o.pending.Wait()
}

// DeleteDay removes the remote copy (when signed in) and then the local one.
// If the remote delete fails the local record is left alone.
func (o *Orchestrator) DeleteDay(ctx context.Context, dateKey string) error {
	if userID, ok := o.user(ctx); ok {
		if err := o.remote.DeleteDay(ctx, userID, dateKey); err != nil {
			return fmt.Errorf("deleting remote day: %w", err)
		}
	}
	if err := o.local.DeleteDay(ctx, dateKey); err != nil {
		return fmt.Errorf("deleting local day: %w", err)
	}
	return nil
}

// ListMonth returns the summaries of every saved day in month (YYYY-MM)
func (o *Orchestrator) ListMonth(ctx context.Context, month string) ([]models.DaySummary, error) {
	if userID, ok := o.user(ctx); ok {
		sums, err := o.remote.ListMonth(ctx, userID, month)
		if err == nil {
			return sums, nil
		}
		o.logger.Warn("remote month listing failed, using local records", zap.String("month", month), zap.Error(err))
	}

	dates, err := o.local.DatesInMonth(ctx, month)
	if err != nil {
		return nil, err
	}
	sums := make([]models.DaySummary, 0, len(dates))
	for _, d := range dates {
		if r := o.local.FindDay(ctx, d); r != nil {
			sums = append(sums, calc.Summarize(*r))
		}
	}
	return sums, nil
}

// MonthRecords returns the linked record of every saved day in month, for reports
func (o *Orchestrator) MonthRecords(ctx context.Context, month string) ([]models.DayRecord, error) {
	sums, err := o.ListMonth(ctx, month)
	if err != nil {
		return nil, err
	}
	local, err := o.local.DatesInMonth(ctx, month)
	if err != nil {
		return nil, err
	}

	dates := append([]string{}, local...)
	for _, s := range sums {
		dates = append(dates, s.DateKey)
	}
	dates = models.SortDateKeys(dates)

	records := make([]models.DayRecord, 0, len(dates))
	for _, d := range dates {
		r, _ := o.LoadDay(ctx, d)
		records = append(records, r)
	}
	return records, nil
}

// LoadSettings returns the remote profile when reachable, else the local settings
func (o *Orchestrator) LoadSettings(ctx context.Context) models.UserSettings {
	if userID, ok := o.user(ctx); ok {
		p, err := o.remote.FetchProfile(ctx, userID)
		if err != nil {
			o.logger.Warn("remote profile load failed", zap.Error(err))
		} else if p != nil {
			return *p
		}
	}
	return o.local.LoadSettings(ctx)
}

// SaveSettings validates and stores settings locally, then mirrors them
func (o *Orchestrator) SaveSettings(ctx context.Context, settings models.UserSettings) error {
	if err := o.validate.Struct(settings); err != nil {
		return fmt.Errorf("invalid settings: %w", err)
	}
	if err := o.local.SaveSettings(ctx, settings); err != nil {
		return fmt.Errorf("saving settings locally: %w", err)
	}

	userID, ok := o.user(ctx)
	if !ok {
		return nil
	}
	bg := context.WithoutCancel(ctx)
	o.pending.Add(1)
	go func() {
		defer o.pending.Done()
		if err := o.remote.UpsertProfile(bg, userID, settings); err != nil {
			o.logger.Error("remote profile sync failed", zap.Error(err))
		}
	}()
	return nil
}
