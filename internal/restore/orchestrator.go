package restore

import (
	"context"
	"fmt"
	"slices"

	"github.com/rs/zerolog"

	"github.com/roach88/cacherestore/internal/cachekey"
	"github.com/roach88/cacherestore/internal/config"
)

// Deps are the collaborators of an Orchestrator.
type Deps struct {
	Provider    Provider
	Environment Environment
	Outputs     OutputSink
	State       StateSink
	Logger      zerolog.Logger
}

// Orchestrator sequences lookups and restores for one step.
// It holds no state between runs; running it twice against the same provider
// yields the same Outcome.
type Orchestrator struct {
	inputs   config.Inputs
	provider Provider
	env      Environment
	outputs  OutputSink
	state    StateSink
	log      zerolog.Logger
}

// New creates an Orchestrator for the given inputs.
func New(inputs config.Inputs, deps Deps) *Orchestrator {
	return &Orchestrator{
		inputs:   inputs,
		provider: deps.Provider,
		env:      deps.Environment,
		outputs:  deps.Outputs,
		state:    deps.State,
		log:      deps.Logger,
	}
}

// Report is the result of Run.
type Report struct {
	Outcome Outcome
	// Failure is the error that was turned into the failure signal, nil on success.
	Failure error
}

// Run executes Restore and converts any error it returns into the failure
// signal. The returned error is non-nil only when the failure signal itself
// could not be written.
func (o *Orchestrator) Run(ctx context.Context) (Report, error) {
	outcome, err := o.Restore(ctx)
	if err == nil {
		return Report{Outcome: outcome}, nil
	}

	if ferr := o.outputs.SetFailed(err.Error()); ferr != nil {
		return Report{Failure: err}, fmt.Errorf("signal failure %q: %w", err.Error(), ferr)
	}
	return Report{Failure: err}, nil
}

// Restore runs the three phases and writes outputs and state. It returns the
// outcome, or an error that should fail the step; it never emits the failure
// signal itself.
func (o *Orchestrator) Restore(ctx context.Context) (Outcome, error) {
	outcome := newOutcome()

	if err := o.setOutputs(
		OutputHit, false,
		OutputHitPrimaryKey, false,
		OutputHitFirstMatch, false,
		OutputRestoredKey, false,
		OutputRestoredKeys, []string{},
	); err != nil {
		return Outcome{}, err
	}

	if !o.env.CacheFeatureAvailable() {
		o.log.Warn().Msg("Cache service is not available. Configure a cache store to enable caching.")
		return outcome, nil
	}

	if !o.env.ValidEvent() {
		return Outcome{}, NewInvalidEventError(o.env.EventName())
	}

	lookedUpKey, err := o.primaryPhase(ctx, &outcome)
	if err != nil {
		return Outcome{}, err
	}

	skipRest := o.inputs.SkipRestoreOnHitPrimaryKey && lookedUpKey != ""

	if len(o.inputs.RestorePrefixesFirstMatch) > 0 && outcome.RestoredKey == "" && !skipRest {
		if err := o.firstMatchPhase(ctx, &outcome); err != nil {
			return Outcome{}, err
		}
	}

	if !skipRest {
		o.allMatchesPhase(ctx, &outcome)
	}

	if err := o.state.SetState(StateRestoredKey, outcome.RestoredKey); err != nil {
		return Outcome{}, fmt.Errorf("save state %s: %w", StateRestoredKey, err)
	}

	outcome.Hit = true
	if err := o.setOutputs(
		OutputHit, true,
		OutputRestoredKey, outcome.RestoredKey,
		OutputRestoredKeys, outcome.RestoredKeys,
	); err != nil {
		return Outcome{}, err
	}

	return outcome, nil
}

// primaryPhase looks up and restores the primary key. It returns the key the
// lookup found, which may be a prefix match of the primary key.
func (o *Orchestrator) primaryPhase(ctx context.Context, outcome *Outcome) (string, error) {
	primaryKey := o.inputs.PrimaryKey
	if err := o.state.SetState(StatePrimaryKey, primaryKey); err != nil {
		return "", fmt.Errorf("save state %s: %w", StatePrimaryKey, err)
	}

	o.log.Info().Msgf("Searching for a cache with the key %q.", primaryKey)
	lookedUpKey := o.lookup(ctx, Request{PrimaryKey: primaryKey, RestoreKeys: []string{}, LookupOnly: true})

	if lookedUpKey == "" {
		if o.inputs.FailOn.Matches(config.KeyTypePrimary, config.ResultMiss) {
			return "", NewNotFoundError(primaryKey)
		}
		o.log.Info().Msg("Could not find a cache.")
		return "", nil
	}

	if !cachekey.ExactMatch(primaryKey, lookedUpKey) {
		o.log.Debug().Str("found", lookedUpKey).Msg("lookup matched a key prefixed by the primary key")
		return lookedUpKey, nil
	}

	o.log.Info().Msgf("Found a cache with the given %q.", config.InputPrimaryKey)
	outcome.HitPrimaryKey = true
	if err := o.outputs.SetOutput(OutputHitPrimaryKey, true); err != nil {
		return "", fmt.Errorf("set output %s: %w", OutputHitPrimaryKey, err)
	}

	if o.inputs.SkipRestoreOnHitPrimaryKey {
		o.log.Info().Msgf("Skipping restore because %q is set.", config.InputSkipRestoreOnHitPrimaryKey)
		return lookedUpKey, nil
	}

	restoredKey := o.restore(ctx, primaryKey)
	if restoredKey == "" {
		if o.inputs.FailOn.Matches(config.KeyTypePrimary, config.ResultNotRestored) {
			return "", NewNotRestoredError(primaryKey)
		}
		return lookedUpKey, nil
	}

	outcome.RestoredKey = restoredKey
	outcome.addRestored(restoredKey)
	return lookedUpKey, nil
}

func (o *Orchestrator) firstMatchPhase(ctx context.Context, outcome *Outcome) error {
	prefixes := o.inputs.RestorePrefixesFirstMatch
	o.log.Info().Strs("prefixes", prefixes).Msgf("Searching for a cache using the %q.", config.InputRestorePrefixesFirstMatch)

	foundKey := o.lookup(ctx, Request{PrimaryKey: "", RestoreKeys: prefixes, LookupOnly: true})
	if foundKey == "" {
		if o.inputs.FailOn.Matches(config.KeyTypeFirstMatch, config.ResultMiss) {
			return NewNotFoundError(o.inputs.PrimaryKey)
		}
		o.log.Info().Msg("Could not find a cache.")
		return nil
	}

	o.log.Info().Msgf("Found a cache using the %q.", config.InputRestorePrefixesFirstMatch)
	outcome.HitFirstMatch = true
	if err := o.outputs.SetOutput(OutputHitFirstMatch, true); err != nil {
		return fmt.Errorf("set output %s: %w", OutputHitFirstMatch, err)
	}

	restoredKey := o.restore(ctx, foundKey)
	if restoredKey == "" {
		if o.inputs.FailOn.Matches(config.KeyTypeFirstMatch, config.ResultNotRestored) {
			return NewNotRestoredError(foundKey)
		}
		return nil
	}

	outcome.RestoredKey = restoredKey
	outcome.addRestored(restoredKey)
	return nil
}

func (o *Orchestrator) allMatchesPhase(ctx context.Context, outcome *Outcome) {
	skip := slices.Clone(outcome.RestoredKeys)
	keys, err := o.provider.RestoreAll(ctx, o.inputs.RestorePrefixesAllMatches, skip)
	if err != nil {
		o.log.Warn().Err(err).Msg("Restoring caches by prefix failed.")
	}
	outcome.addRestored(keys...)
}

// lookup treats provider errors as a miss.
func (o *Orchestrator) lookup(ctx context.Context, req Request) string {
	key, err := o.provider.Lookup(ctx, req)
	if err != nil {
		o.log.Warn().Err(err).Str("primary_key", req.PrimaryKey).Strs("restore_keys", req.RestoreKeys).Msg("Cache lookup failed.")
		return ""
	}
	return key
}

// restore treats provider errors as a failed restore.
func (o *Orchestrator) restore(ctx context.Context, key string) string {
	restoredKey, err := o.provider.Restore(ctx, key)
	if err != nil {
		o.log.Warn().Err(err).Str("key", key).Msg("Cache restore failed.")
		return ""
	}
	if restoredKey == "" {
		o.log.Info().Str("key", key).Msg("Could not restore the cache.")
	} else {
		o.log.Info().Str("key", restoredKey).Msg("Restored the cache.")
	}
	return restoredKey
}

// setOutputs writes name/value pairs in order.
func (o *Orchestrator) setOutputs(pairs ...any) error {
	for i := 0; i+1 < len(pairs); i += 2 {
		name := pairs[i].(string)
		if err := o.outputs.SetOutput(name, pairs[i+1]); err != nil {
			return fmt.Errorf("set output %s: %w", name, err)
		}
	}
	return nil
}
