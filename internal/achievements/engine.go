package achievements

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/jonathan/portfolio-engine/internal/events"
	"github.com/jonathan/portfolio-engine/internal/scheduler"
	"github.com/jonathan/portfolio-engine/internal/store"
	"github.com/jonathan/portfolio-engine/internal/types"
)

// DefaultDismissDelay is how long a badge stays in the recently-unlocked
// state before it collapses.
const DefaultDismissDelay = 5 * time.Second

const persistTimeout = 5 * time.Second

type idSet map[string]struct{}

func (s idSet) add(id string) bool {
	if _, ok := s[id]; ok {
		return false
	}
	s[id] = struct{}{}
	return true
}

func (s idSet) sorted() []string {
	out := make([]string, 0, len(s))
	for id := range s {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

func (s idSet) addAll(ids []string) {
	for _, id := range ids {
		if id != "" {
			s[id] = struct{}{}
		}
	}
}

// recentTimer is the pending collapse of a recent unlock. gen tells a stale
// callback from the one armed by the current unlock.
type recentTimer struct {
	cancel scheduler.Cancel
	gen    uint64
}

// Engine owns every counter and set behind the badge tray. All methods are
// safe for concurrent use. Unlocks are monotonic: nothing but Reset removes one.
type Engine struct {
	mu     sync.Mutex
	saveMu sync.Mutex

	badges       []types.Badge
	known        idSet
	rules        Rules
	sched        scheduler.Scheduler
	store        store.Store
	key          string
	now          func() time.Time
	logger       *zap.Logger
	dismissDelay time.Duration
	bus          *events.Bus

	unlockedAt  map[string]time.Time
	recent      map[string]recentTimer
	recentGen   uint64
	dismissed   idSet
	hovered     string
	bubbleCount int
	projects    idSet
	roles       idSet
	footerLinks idSet
	sections    idSet

	inHeadZone bool
	dwell      scheduler.Cancel
	dwellGen   uint64

	milestones []scheduler.Cancel
	started    bool
	stopped    bool

	// unlocks made by the current update, published after the lock is released
	pending []string
}

// Option configures an Engine.
type Option func(*Engine)

// WithScheduler sets the timer source. Defaults to wall-clock timers.
func WithScheduler(s scheduler.Scheduler) Option {
	return func(e *Engine) { e.sched = s }
}

// WithStore persists state under key after every change and rehydrates it on Start.
func WithStore(s store.Store, key string) Option {
	return func(e *Engine) {
		e.store = s
		if key != "" {
			e.key = key
		}
	}
}

// WithClock sets the clock used for unlock timestamps.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// WithLogger sets the logger. Defaults to a no-op logger.
func WithLogger(l *zap.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// WithRules replaces the default unlock rules.
func WithRules(r Rules) Option {
	return func(e *Engine) { e.rules = r }
}

// WithDismissDelay sets how long an unlock stays "recent".
func WithDismissDelay(d time.Duration) Option {
	return func(e *Engine) { e.dismissDelay = d }
}

// New creates an engine over the badge catalog. A nil catalog means Catalog().
func New(badges []types.Badge, opts ...Option) *Engine {
	if badges == nil {
		badges = Catalog()
	}
	e := &Engine{
		badges:       badges,
		known:        make(idSet, len(badges)),
		rules:        DefaultRules(),
		sched:        scheduler.Real{},
		key:          store.DefaultKey,
		now:          time.Now,
		logger:       zap.NewNop(),
		dismissDelay: DefaultDismissDelay,
	}
	for _, b := range badges {
		e.known[b.ID] = struct{}{}
	}
	for _, opt := range opts {
		opt(e)
	}
	e.clearLocked()
	return e
}

func (e *Engine) clearLocked() {
	for _, timer := range e.recent {
		timer.cancel()
	}
	e.stopDwellLocked()
	e.inHeadZone = false
	e.unlockedAt = make(map[string]time.Time)
	e.recent = make(map[string]recentTimer)
	e.dismissed = make(idSet)
	e.hovered = ""
	e.bubbleCount = 0
	e.projects = make(idSet)
	e.roles = make(idSet)
	e.footerLinks = make(idSet)
	e.sections = make(idSet)
}

// Start rehydrates persisted state and arms the elapsed-time milestones. Only
// the first call has any effect. A missing or unreadable snapshot starts the
// engine empty.
func (e *Engine) Start(ctx context.Context) {
	e.mu.Lock()
	if e.started || e.stopped {
		e.mu.Unlock()
		return
	}
	e.started = true
	e.mu.Unlock()

	var snap *types.BadgeSnapshot
	if e.store != nil {
		loaded, err := e.store.Load(ctx, e.key)
		switch {
		case err == nil:
			snap = loaded
		case errors.Is(err, store.ErrNotFound):
		default:
			e.logger.Warn("ignoring unreadable badge snapshot", zap.String("key", e.key), zap.Error(err))
		}
	}

	e.update(func() bool {
		changed := false
		if snap != nil {
			changed = e.rehydrateLocked(snap)
		}
		for _, m := range e.rules.Milestones {
			if _, done := e.unlockedAt[m.Badge]; done {
				continue
			}
			badge := m.Badge
			e.milestones = append(e.milestones, e.sched.ScheduleOnce(m.After, func() {
				e.update(func() bool { return e.unlockLocked(badge) })
			}))
		}
		return changed
	})
}

func (e *Engine) rehydrateLocked(snap *types.BadgeSnapshot) bool {
	if snap.Version != types.BadgeSnapshotVersion {
		e.logger.Info("discarding badge snapshot with other version", zap.String("version", snap.Version))
		return false
	}

	for _, id := range snap.Unlocked {
		if _, ok := e.known[id]; !ok {
			continue
		}
		at := time.Time{}
		if raw, ok := snap.UnlockedAt[id]; ok {
			if parsed, err := time.Parse(time.RFC3339Nano, raw); err == nil {
				at = parsed
			}
		}
		e.unlockedAt[id] = at
		// previously unlocked badges come back collapsed
		e.dismissed.add(id)
	}
	if snap.BubbleCount > e.bubbleCount {
		e.bubbleCount = snap.BubbleCount
	}
	// merge, since events may have landed while the snapshot was loading
	e.projects.addAll(snap.Projects)
	e.roles.addAll(snap.Roles)
	e.footerLinks.addAll(snap.FooterLinks)
	e.sections.addAll(snap.Sections)

	e.logger.Debug("rehydrated badge state", zap.String("key", e.key), zap.Int("unlocked", len(e.unlockedAt)))
	return true
}

// Stop cancels every pending timer. The engine ignores timer callbacks that
// race with Stop and cannot be started again.
func (e *Engine) Stop() {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.stopped = true
	for _, cancel := range e.milestones {
		cancel()
	}
	e.milestones = nil
	for id, timer := range e.recent {
		timer.cancel()
		delete(e.recent, id)
	}
	e.stopDwellLocked()
}

// Reset clears in-memory state and deletes the persisted record. Milestone
// timers keep running.
func (e *Engine) Reset(ctx context.Context) error {
	e.mu.Lock()
	e.clearLocked()
	e.saveMu.Lock()
	e.mu.Unlock()
	defer e.saveMu.Unlock()

	if e.store == nil {
		return nil
	}
	return e.store.Delete(ctx, e.key)
}

// update runs fn under the lock, persists when fn reports a change, and then
// publishes the unlocks fn made.
func (e *Engine) update(fn func() bool) []string {
	e.mu.Lock()
	if e.stopped {
		e.mu.Unlock()
		return nil
	}
	e.pending = nil
	changed := fn()
	unlocked := e.pending
	e.pending = nil

	var snap *types.BadgeSnapshot
	if changed && e.store != nil {
		snap = e.snapshotLocked()
		// taking saveMu before releasing mu keeps saves in mutation order
		e.saveMu.Lock()
	}
	bus := e.bus
	e.mu.Unlock()

	if snap != nil {
		ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
		if err := e.store.Save(ctx, e.key, snap); err != nil {
			e.logger.Warn("failed to persist badge state", zap.String("key", e.key), zap.Error(err))
		}
		cancel()
		e.saveMu.Unlock()
	}

	for _, id := range unlocked {
		e.logger.Info("badge unlocked", zap.String("badge", id), zap.String("key", e.key))
		if bus != nil {
			bus.Publish(events.Event{Name: events.BadgeUnlocked, ID: id})
		}
	}
	return unlocked
}

// unlockLocked marks id unlocked and recent, and schedules its collapse.
func (e *Engine) unlockLocked(id string) bool {
	if _, ok := e.known[id]; !ok {
		e.logger.Debug("unlock of unknown badge ignored", zap.String("badge", id))
		return false
	}
	if _, done := e.unlockedAt[id]; done {
		return false
	}

	e.unlockedAt[id] = e.now()
	e.pending = append(e.pending, id)
	e.recentGen++
	gen := e.recentGen
	cancel := e.sched.ScheduleOnce(e.dismissDelay, func() {
		e.update(func() bool {
			if timer, ok := e.recent[id]; !ok || timer.gen != gen {
				return false
			}
			delete(e.recent, id)
			e.dismissed.add(id)
			return true
		})
	})
	e.recent[id] = recentTimer{cancel: cancel, gen: gen}
	return true
}

// Unlock unlocks a badge directly. It reports whether this call unlocked it.
func (e *Engine) Unlock(id string) bool {
	return len(e.update(func() bool { return e.unlockLocked(id) })) > 0
}

// SectionVisible records a section reported at the given visibility ratio.
func (e *Engine) SectionVisible(id string, ratio float64) {
	e.update(func() bool {
		if ratio < e.rules.MinVisibleRatio {
			return false
		}
		required := false
		for _, s := range e.rules.RequiredSections {
			if s == id {
				required = true
				break
			}
		}
		if !required || !e.sections.add(id) {
			return false
		}
		for _, s := range e.rules.RequiredSections {
			if _, seen := e.sections[s]; !seen {
				return true
			}
		}
		e.unlockLocked(SectionScout)
		return true
	})
}

// BubbleCollected takes a running total. Stale or duplicate totals are absorbed
// by keeping the maximum.
func (e *Engine) BubbleCollected(total int) {
	e.update(func() bool {
		changed := false
		if total > e.bubbleCount {
			e.bubbleCount = total
			changed = true
		}
		for _, t := range e.rules.BubbleThresholds {
			if e.bubbleCount >= t.At && e.unlockLocked(t.Badge) {
				changed = true
			}
		}
		return changed
	})
}

// ProjectOpened records a distinct project id. total is the number of
// projects on the page; zero skips the completeness check.
func (e *Engine) ProjectOpened(id string, total int) {
	if id == "" {
		return
	}
	e.update(func() bool {
		changed := e.projects.add(id)
		n := len(e.projects)
		if n >= 1 && e.unlockLocked(ProjectFirstSteps) {
			changed = true
		}
		if e.rules.ProjectExplorerAt > 0 && n >= e.rules.ProjectExplorerAt && e.unlockLocked(ProjectExplorer) {
			changed = true
		}
		if total > 0 && n >= total && e.unlockLocked(ProjectCompletionist) {
			changed = true
		}
		return changed
	})
}

// RoleOpened records a distinct career role id.
func (e *Engine) RoleOpened(id string, total int) {
	if id == "" {
		return
	}
	e.update(func() bool {
		changed := e.roles.add(id)
		if total > 0 && len(e.roles) >= total && e.unlockLocked(Journeyman) {
			changed = true
		}
		return changed
	})
}

// FooterLinkClicked records a distinct footer link id.
func (e *Engine) FooterLinkClicked(id string) {
	if id == "" {
		return
	}
	e.update(func() bool {
		changed := e.footerLinks.add(id)
		if len(e.footerLinks) >= e.rules.FooterLinksRequired && e.unlockLocked(FooterFriend) {
			changed = true
		}
		return changed
	})
}

// JournalLinkClicked unlocks JournalReader.
func (e *Engine) JournalLinkClicked() {
	e.update(func() bool { return e.unlockLocked(JournalReader) })
}

// FeatureToggled unlocks SpaceNerd when the mode is switched on.
func (e *Engine) FeatureToggled(enabled bool) {
	if !enabled {
		return
	}
	e.update(func() bool { return e.unlockLocked(SpaceNerd) })
}

// PointerMoved tracks the pointer against the portrait's head zone. Entering
// starts the dwell timer and leaving cancels it; time spent inside does not
// accumulate across visits.
func (e *Engine) PointerMoved(x, y float64, portrait Rect) {
	e.update(func() bool {
		inside := portrait.InHeadZone(x, y, e.rules.HeadZoneRatio)
		switch {
		case inside && !e.inHeadZone:
			e.inHeadZone = true
			e.startDwellLocked()
		case !inside && e.inHeadZone:
			e.inHeadZone = false
			e.stopDwellLocked()
		}
		return false
	})
}

// PointerLeft cancels any running dwell.
func (e *Engine) PointerLeft() {
	e.update(func() bool {
		e.inHeadZone = false
		e.stopDwellLocked()
		return false
	})
}

func (e *Engine) startDwellLocked() {
	if e.dwell != nil {
		return
	}
	if _, done := e.unlockedAt[BuddaBadge]; done {
		return
	}
	e.dwellGen++
	gen := e.dwellGen
	e.dwell = e.sched.ScheduleOnce(e.rules.DwellDuration, func() {
		e.update(func() bool {
			if gen != e.dwellGen || e.dwell == nil {
				return false
			}
			e.dwell = nil
			return e.unlockLocked(BuddaBadge)
		})
	})
}

func (e *Engine) stopDwellLocked() {
	if e.dwell == nil {
		return
	}
	e.dwell()
	e.dwell = nil
	e.dwellGen++
}

// Dwelling reports whether a dwell timer is running.
func (e *Engine) Dwelling() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.dwell != nil
}

// Dismiss collapses an unlocked badge early.
func (e *Engine) Dismiss(id string) bool {
	changed := false
	e.update(func() bool {
		if _, ok := e.unlockedAt[id]; !ok {
			return false
		}
		if timer, ok := e.recent[id]; ok {
			timer.cancel()
			delete(e.recent, id)
		}
		changed = e.dismissed.add(id)
		return changed
	})
	return changed
}

// Hover expands a dismissed badge for display. Unlock state is untouched.
func (e *Engine) Hover(id string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, ok := e.dismissed[id]; ok {
		e.hovered = id
	}
}

// Unhover clears the hover expansion.
func (e *Engine) Unhover() {
	e.mu.Lock()
	e.hovered = ""
	e.mu.Unlock()
}

// IsUnlocked reports whether id has been unlocked.
func (e *Engine) IsUnlocked(id string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	_, ok := e.unlockedAt[id]
	return ok
}

// Tray returns the unlocked badges in catalog order with their display state.
// Locked badges never appear.
func (e *Engine) Tray() []types.TrayBadge {
	e.mu.Lock()
	defer e.mu.Unlock()

	tray := make([]types.TrayBadge, 0, len(e.unlockedAt))
	for _, b := range e.badges {
		at, ok := e.unlockedAt[b.ID]
		if !ok {
			continue
		}
		_, recent := e.recent[b.ID]
		_, dismissed := e.dismissed[b.ID]
		tray = append(tray, types.TrayBadge{
			Badge:      b,
			UnlockedAt: at,
			Recent:     recent,
			Dismissed:  dismissed,
			Collapsed:  dismissed && e.hovered != b.ID,
		})
	}
	return tray
}

// Snapshot returns the persistable state.
func (e *Engine) Snapshot() *types.BadgeSnapshot {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.snapshotLocked()
}

func (e *Engine) snapshotLocked() *types.BadgeSnapshot {
	unlocked := make([]string, 0, len(e.unlockedAt))
	at := make(map[string]string, len(e.unlockedAt))
	for _, b := range e.badges {
		t, ok := e.unlockedAt[b.ID]
		if !ok {
			continue
		}
		unlocked = append(unlocked, b.ID)
		if !t.IsZero() {
			at[b.ID] = t.UTC().Format(time.RFC3339Nano)
		}
	}
	return &types.BadgeSnapshot{
		Version:     types.BadgeSnapshotVersion,
		Unlocked:    unlocked,
		UnlockedAt:  at,
		Dismissed:   e.dismissed.sorted(),
		BubbleCount: e.bubbleCount,
		Projects:    e.projects.sorted(),
		Roles:       e.roles.sorted(),
		FooterLinks: e.footerLinks.sorted(),
		Sections:    e.sections.sorted(),
	}
}

// Handle applies one bus event.
func (e *Engine) Handle(ev events.Event) {
	switch ev.Name {
	case events.ProjectOpened:
		e.ProjectOpened(ev.ID, ev.Total)
	case events.RoleOpened:
		e.RoleOpened(ev.ID, ev.Total)
	case events.BubbleCollected:
		e.BubbleCollected(ev.Count)
	case events.FooterLinkClicked:
		e.FooterLinkClicked(ev.ID)
	case events.FeatureToggleChanged:
		e.FeatureToggled(ev.Enabled)
	case events.JournalLinkClicked:
		e.JournalLinkClicked()
	case events.SectionVisible:
		ratio := 1.0
		// producers that only report threshold crossings omit the ratio
		if ev.Ratio != nil {
			ratio = *ev.Ratio
		}
		e.SectionVisible(ev.ID, ratio)
	}
}

// Subscribe wires the engine to every signal on bus and publishes its
// unlocks there as badge-unlocked events. The returned handle undoes both.
func (e *Engine) Subscribe(bus *events.Bus) events.Unsubscribe {
	e.mu.Lock()
	e.bus = bus
	e.mu.Unlock()

	var unsubs []events.Unsubscribe
	for _, name := range events.Names {
		if name == events.BadgeUnlocked {
			continue
		}
		unsubs = append(unsubs, bus.Subscribe(name, e.Handle))
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			for _, u := range unsubs {
				u()
			}
			e.mu.Lock()
			if e.bus == bus {
				e.bus = nil
			}
			e.mu.Unlock()
		})
	}
}
