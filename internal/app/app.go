// Package app holds the application state shared by the rfbviz presentation
// shells: configuration, the current metric-table selection, and the
// operations the shells invoke on the annotation store and journal.
package app

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"slices"
	"sync"

	"github.com/chainguard-dev/clog"

	"github.com/ayusman/rfbviz/internal/annotation"
	"github.com/ayusman/rfbviz/internal/store"
)

var (
	// ErrUnknownAnnotator is returned for annotator IDs other than the two
	// configured ones.
	ErrUnknownAnnotator = errors.New("unknown annotator")
	// ErrConfirmationRequired is returned when a destructive replacement is
	// requested without explicit confirmation.
	ErrConfirmationRequired = errors.New("replacement requires explicit confirmation")
	// ErrNoJournal is returned by operations that need the journal when the
	// app runs without one.
	ErrNoJournal = errors.New("journal not configured")
)

// Config holds configuration options for the application.
type Config struct {
	Layout annotation.Layout
	// BackupDir receives copies of annotations overwritten by Replace.
	BackupDir string
	// Annotators are the two annotator IDs compared side by side.
	Annotators [2]string
	// Aggregation and SkipPolicy select the initial metric table.
	Aggregation string
	SkipPolicy  string
}

// Selection identifies the metric table currently shown.
type Selection struct {
	Aggregation string
	SkipPolicy  string
}

// App is the application state owned by a presentation shell.
type App struct {
	config  Config
	store   *annotation.Store
	journal *store.Store

	mu           sync.RWMutex
	selection    Selection
	onAdjudicate func(instanceID, annotator string)
}

// New validates config and creates an App. journal may be nil, in which case
// nothing is journaled and Restore is unavailable. A selection persisted in
// the journal overrides the configured one.
func New(ctx context.Context, config Config, journal *store.Store) (*App, error) {
	if err := validateConfig(config); err != nil {
		return nil, err
	}
	if config.BackupDir == "" {
		config.BackupDir = filepath.Join(config.Layout.DataDir, "backups")
	}

	a := &App{
		config:  config,
		store:   annotation.New(config.Layout),
		journal: journal,
		selection: Selection{
			Aggregation: config.Aggregation,
			SkipPolicy:  config.SkipPolicy,
		},
	}
	a.restoreSelection(ctx)
	return a, nil
}

func validateConfig(c Config) error {
	if !annotation.ValidAggregation(c.Aggregation) {
		return fmt.Errorf("%w: %q", annotation.ErrUnknownAggregation, c.Aggregation)
	}
	if err := annotation.ValidateComponent("skip policy", c.SkipPolicy); err != nil {
		return err
	}
	for _, id := range c.Annotators {
		if err := annotation.ValidateComponent("annotator", id); err != nil {
			return err
		}
	}
	if c.Annotators[0] == c.Annotators[1] {
		return fmt.Errorf("annotators must differ, both are %q", c.Annotators[0])
	}
	return nil
}

// restoreSelection applies the persisted selection, ignoring values that no
// longer validate.
func (a *App) restoreSelection(ctx context.Context) {
	if a.journal == nil {
		return
	}
	log := clog.FromContext(ctx)

	if v, err := a.journal.Settings().Get(store.SettingAggregation); err == nil && annotation.ValidAggregation(v) {
		a.selection.Aggregation = v
	} else if err != nil && !errors.Is(err, store.ErrNotFound) {
		log.Warnf("Failed to load persisted aggregation: %v", err)
	}

	if v, err := a.journal.Settings().Get(store.SettingSkipPolicy); err == nil && annotation.ValidateComponent("skip policy", v) == nil {
		a.selection.SkipPolicy = v
	} else if err != nil && !errors.Is(err, store.ErrNotFound) {
		log.Warnf("Failed to load persisted skip policy: %v", err)
	}
}

// Config returns the configuration the app was created with.
func (a *App) Config() Config {
	return a.config
}

// Store returns the annotation store.
func (a *App) Store() *annotation.Store {
	return a.store
}

// Annotators returns the two configured annotator IDs.
func (a *App) Annotators() [2]string {
	return a.config.Annotators
}

// Selection returns the current metric-table selection.
func (a *App) Selection() Selection {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.selection
}

// SetAggregation switches the aggregation method and persists it.
func (a *App) SetAggregation(ctx context.Context, aggregation string) error {
	if !annotation.ValidAggregation(aggregation) {
		return fmt.Errorf("%w: %q", annotation.ErrUnknownAggregation, aggregation)
	}

	a.mu.Lock()
	a.selection.Aggregation = aggregation
	a.mu.Unlock()

	return a.persist(ctx, store.SettingAggregation, aggregation)
}

// SetSkipPolicy switches the skip policy and persists it.
func (a *App) SetSkipPolicy(ctx context.Context, skipPolicy string) error {
	if err := annotation.ValidateComponent("skip policy", skipPolicy); err != nil {
		return err
	}

	a.mu.Lock()
	a.selection.SkipPolicy = skipPolicy
	a.mu.Unlock()

	return a.persist(ctx, store.SettingSkipPolicy, skipPolicy)
}

// SetSelection updates aggregation and skip policy together. Empty values
// are left unchanged, and nothing is applied unless both values are valid.
func (a *App) SetSelection(ctx context.Context, aggregation, skipPolicy string) error {
	if aggregation != "" && !annotation.ValidAggregation(aggregation) {
		return fmt.Errorf("%w: %q", annotation.ErrUnknownAggregation, aggregation)
	}
	if skipPolicy != "" {
		if err := annotation.ValidateComponent("skip policy", skipPolicy); err != nil {
			return err
		}
	}

	if aggregation != "" {
		if err := a.SetAggregation(ctx, aggregation); err != nil {
			return err
		}
	}
	if skipPolicy != "" {
		return a.SetSkipPolicy(ctx, skipPolicy)
	}
	return nil
}

// ToggleAggregation flips between product and average and returns the new
// value.
func (a *App) ToggleAggregation(ctx context.Context) (string, error) {
	next := annotation.AggregationAverage
	if a.Selection().Aggregation == annotation.AggregationAverage {
		next = annotation.AggregationProduct
	}
	return next, a.SetAggregation(ctx, next)
}

func (a *App) persist(ctx context.Context, key, value string) error {
	if a.journal == nil {
		return nil
	}
	if err := a.journal.Settings().Set(key, value); err != nil {
		return fmt.Errorf("persist %s: %w", key, err)
	}
	clog.FromContext(ctx).With("key", key).With("value", value).Debug("Persisted setting")
	return nil
}

func (a *App) checkAnnotator(id string) error {
	if !slices.Contains(a.config.Annotators[:], id) {
		return fmt.Errorf("%w: %q", ErrUnknownAnnotator, id)
	}
	return nil
}
