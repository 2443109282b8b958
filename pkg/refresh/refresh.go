// Package refresh runs AI lookups over stored seeds in bulk. Only blank
// fields are filled: every value already in the catalog counts as a user
// edit.
package refresh

import (
	"context"
	"sync"

	"github.com/seedkeeper/seedkeeper/pkg/ai"
	"github.com/seedkeeper/seedkeeper/pkg/merge"
	"github.com/seedkeeper/seedkeeper/pkg/populate"
	"github.com/seedkeeper/seedkeeper/pkg/schema"
	"github.com/seedkeeper/seedkeeper/pkg/storage"
)

// Logger abstracts logging so callers can use logrus, stdlib log, or any
// other logger that satisfies this interface.
type Logger interface {
	Infof(format string, args ...interface{})
	Warnf(format string, args ...interface{})
	Errorf(format string, args ...interface{})
	Debugf(format string, args ...interface{})
}

// nopLogger silently discards all messages.
type nopLogger struct{}

func (nopLogger) Infof(string, ...interface{})  {}
func (nopLogger) Warnf(string, ...interface{})  {}
func (nopLogger) Errorf(string, ...interface{}) {}
func (nopLogger) Debugf(string, ...interface{}) {}

// Config holds everything Run needs.
type Config struct {
	DB          *storage.DB
	Client      ai.Client
	Registry    *schema.Registry // nil selects schema.Default()
	Filter      storage.ListOptions
	Section     string // optional; restricts lookups to one form section
	Concurrency int    // defaults to 3 if <= 0
	DryRun      bool   // look up and merge, but don't write
	Log         Logger // optional; nil = no logging

	// OnSeedDone is called per seed from worker goroutines once its lookup
	// finished. Nil = no callback.
	OnSeedDone func(seed storage.Seed, changes merge.ChangeSet, err error)
}

// Result holds the outcome of a refresh run.
type Result struct {
	Seeds   int           // seeds looked at
	Updated int           // seeds with at least one change
	Changes []SeedChanges // per updated seed, in completion order
	Errors  []error       // non-fatal, one per failed seed
}

// SeedChanges is the merge change set applied to one seed.
type SeedChanges struct {
	UID     string
	Name    string
	Changes merge.ChangeSet
}

// Run lists the seeds matching cfg.Filter and fills their blank fields
// concurrently. A failed lookup is recorded in Result.Errors and does not
// stop the run.
func Run(ctx context.Context, cfg Config) (*Result, error) {
	log := cfg.Log
	if log == nil {
		log = nopLogger{}
	}
	concurrency := cfg.Concurrency
	if concurrency <= 0 {
		concurrency = 3
	}
	reg := cfg.Registry
	if reg == nil {
		reg = schema.Default()
	}

	seeds, err := cfg.DB.ListSeeds(ctx, cfg.Filter)
	if err != nil {
		return nil, err
	}
	result := &Result{Seeds: len(seeds)}
	if len(seeds) == 0 {
		return result, nil
	}
	log.Infof("Refreshing %d seeds with %d workers", len(seeds), concurrency)

	seedChan := make(chan storage.Seed, len(seeds))

	var mu sync.Mutex
	var wg sync.WaitGroup
	for i := 0; i < concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for s := range seedChan {
				changes, err := refreshOne(ctx, cfg, reg, s, log)

				mu.Lock()
				if err != nil {
					result.Errors = append(result.Errors, err)
				} else if len(changes) > 0 {
					result.Updated++
					result.Changes = append(result.Changes, SeedChanges{UID: s.UID, Name: s.DisplayName(), Changes: changes})
				}
				mu.Unlock()

				if cfg.OnSeedDone != nil {
					cfg.OnSeedDone(s, changes, err)
				}
			}
		}()
	}

	for _, s := range seeds {
		seedChan <- s
	}
	close(seedChan)
	wg.Wait()

	return result, nil
}

// refreshOne looks one seed up and stores the merge result.
func refreshOne(ctx context.Context, cfg Config, reg *schema.Registry, s storage.Seed, log Logger) (merge.ChangeSet, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	state := s.LockedFormState()
	session := populate.NewSession(cfg.Client, reg, log)
	res, err := session.Populate(ctx, populate.Request{
		Query: ai.Query{SeedName: s.SeedName, VarietyName: s.VarietyName, Section: cfg.Section},
		State: state,
	})
	if err != nil {
		log.Warnf("Lookup failed for %s: %v", s.DisplayName(), err)
		return nil, err
	}
	if res.NoOp {
		log.Debugf("Nothing new for %s", s.DisplayName())
		return nil, nil
	}
	if cfg.DryRun {
		return res.Changes, nil
	}

	updated := storage.SeedFromState(s.UID, res.State)
	if _, err := cfg.DB.UpdateSeed(ctx, updated, res.Changes); err != nil {
		log.Warnf("Database error for %s: %v", s.DisplayName(), err)
		return nil, err
	}
	return res.Changes, nil
}
