// Package pipeline combines the rule-based matchers with the language-model
// fallback into a single interpretation step.
//
// Interpret never fails: low-confidence rule results are escalated to the
// fallback when it is available, and every degraded answer carries a note
// explaining why it may be incomplete.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/nadzzz/domus/internal/cache"
	"github.com/nadzzz/domus/internal/device"
	"github.com/nadzzz/domus/internal/executor"
	"github.com/nadzzz/domus/internal/message"
	"github.com/nadzzz/domus/internal/metrics"
	"github.com/nadzzz/domus/internal/nlp/entity"
	"github.com/nadzzz/domus/internal/nlp/intent"
	"github.com/nadzzz/domus/internal/nlp/negation"
	"github.com/nadzzz/domus/internal/nlp/normalize"
)

// Rule results at or above both thresholds skip the fallback.
const (
	IntentThreshold = 0.8
	DeviceThreshold = 0.7
)

// Confidence notes.
const (
	NoteNoIntent            = "intent not identified"
	NoteNoDevice            = "device not specified"
	NoteLowConfidence       = "low confidence rule-based match"
	NoteFallbackUnavailable = "(fallback unavailable)"
	NoteFallback            = "interpreted by fallback model"
	NoteFallbackNoIntent    = "intent not recognized"
)

// ErrNoSource is returned by ReloadFromSource when no source is configured.
var ErrNoSource = errors.New("no device source configured")

// Fallback interprets an utterance with a language model.
type Fallback interface {
	Name() string
	Interpret(ctx context.Context, text string, devices []message.Device) (message.Interpretation, error)
}

// Availability is the cached fallback reachability flag.
type Availability interface {
	Available() bool
	MarkUnavailable(err error)
}

// Options configures a Pipeline. Everything but the normalizer is optional.
type Options struct {
	Normalizer *normalize.Normalizer

	// Fallback is consulted for low-confidence results. Nil disables it.
	Fallback Fallback
	// Availability gates fallback calls. Nil treats the fallback as always
	// available.
	Availability Availability
	// FallbackTimeout bounds one fallback call. Zero means 60s.
	FallbackTimeout time.Duration

	// Cache stores fallback answers. Nil disables caching.
	Cache cache.Cache

	// Source supplies snapshots to ReloadFromSource.
	Source device.Source

	// Executor runs interpretations for Execute. Nil never executes.
	Executor *executor.Executor
}

// Pipeline interprets utterances. It is safe for concurrent use; the only
// mutable state is the device index, swapped atomically by Reload.
type Pipeline struct {
	norm     *normalize.Normalizer
	negation *negation.Detector
	intents  *intent.Matcher
	entities *entity.Matcher

	fallback     Fallback
	availability Availability
	timeout      time.Duration
	cache        cache.Cache
	source       device.Source
	executor     *executor.Executor
}

// New creates a Pipeline with an empty device index.
func New(opts Options) *Pipeline {
	n := opts.Normalizer
	if n == nil {
		n = normalize.Default()
	}
	timeout := opts.FallbackTimeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &Pipeline{
		norm:         n,
		negation:     negation.New(n),
		intents:      intent.New(n),
		entities:     entity.New(n),
		fallback:     opts.Fallback,
		availability: opts.Availability,
		timeout:      timeout,
		cache:        opts.Cache,
		source:       opts.Source,
		executor:     opts.Executor,
	}
}

// Result is one interpretation with its confidence note.
type Result struct {
	Interpretation message.Interpretation

	// Note explains a result that was not accepted with high confidence.
	// It is empty for accepted rule results.
	Note string

	// Path is the decision path: rules, fallback, cache or degraded.
	Path string
}

// ruleResult is the rule path outcome for one utterance.
type ruleResult struct {
	negation negation.Result
	residual string
	intent   intent.Match
	entities entity.Entities
}

func (r ruleResult) interpretation() message.Interpretation {
	return message.Interpretation{
		Intent:  r.intent.Intent,
		Device:  r.entities.Device.Key,
		Negated: r.negation.Negated,
	}
}

func (r ruleResult) accepted() bool {
	return r.intent.Confidence >= IntentThreshold && r.entities.Device.Confidence >= DeviceThreshold
}

func (p *Pipeline) rules(snap entity.Snapshot, text string) ruleResult {
	r := ruleResult{negation: p.negation.Detect(text), residual: text}
	if r.negation.Negated {
		r.residual = p.negation.RemoveNegation(text)
	}
	r.intent = p.intents.Match(r.residual)
	r.entities = snap.Extract(r.residual)
	return r
}

// Interpret resolves text to an intent, a device and a negation flag.
func (p *Pipeline) Interpret(ctx context.Context, text string) Result {
	start := time.Now()
	res := p.interpret(ctx, p.entities.Snapshot(), text)

	metrics.Interpretations.WithLabelValues(res.Path, string(res.Interpretation.Intent)).Inc()
	metrics.InterpretLatency.WithLabelValues(res.Path).Observe(time.Since(start).Seconds())
	slog.Info("command interpreted",
		"path", res.Path,
		"intent", res.Interpretation.Intent,
		"device", res.Interpretation.Device,
		"negated", res.Interpretation.Negated,
		"note", res.Note,
		"latency_ms", time.Since(start).Milliseconds(),
	)
	return res
}

func (p *Pipeline) interpret(ctx context.Context, snap entity.Snapshot, text string) Result {
	rr := p.rules(snap, text)
	rule := rr.interpretation()

	slog.Debug("rule-based match",
		"negation", rr.negation.Type,
		"residual", rr.residual,
		"intent", rr.intent.Intent,
		"intent_confidence", rr.intent.Confidence,
		"device", rr.entities.Device.Key,
		"device_confidence", rr.entities.Device.Confidence,
	)

	if rr.accepted() {
		return Result{Interpretation: rule, Path: metrics.PathRules}
	}
	if !p.fallbackAvailable() {
		return Result{Interpretation: rule, Note: ruleNote(rule, true), Path: metrics.PathDegraded}
	}

	guess, path, err := p.consult(ctx, snap, text)
	if err != nil {
		slog.Warn("fallback failed, using rule-based result", "error", err)
		if p.availability != nil {
			p.availability.MarkUnavailable(err)
		}
		return Result{Interpretation: rule, Note: ruleNote(rule, true), Path: metrics.PathDegraded}
	}

	if rr.negation.Negated {
		guess.Negated = true
	}
	if guess.Intent == message.IntentUnknown && rule.Intent != message.IntentUnknown {
		return Result{Interpretation: rule, Note: ruleNote(rule, false), Path: metrics.PathRules}
	}
	return Result{Interpretation: guess, Note: fallbackNote(guess), Path: path}
}

func (p *Pipeline) fallbackAvailable() bool {
	if p.fallback == nil {
		return false
	}
	return p.availability == nil || p.availability.Available()
}

// consult asks the fallback about the raw text, going through the cache.
func (p *Pipeline) consult(ctx context.Context, snap entity.Snapshot, text string) (message.Interpretation, string, error) {
	var key string
	if p.cache != nil {
		key = cache.Key(p.norm.Normalize(text), snap.Version())
		if v, ok := p.cache.Get(ctx, key); ok {
			metrics.CacheLookups.WithLabelValues("hit").Inc()
			return v, metrics.PathCached, nil
		}
		metrics.CacheLookups.WithLabelValues("miss").Inc()
	}

	callCtx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	start := time.Now()
	guess, err := p.fallback.Interpret(callCtx, text, snap.Devices())
	metrics.FallbackLatency.Observe(time.Since(start).Seconds())
	metrics.FallbackCalls.WithLabelValues(p.fallback.Name(), metrics.Outcome(err)).Inc()
	if err != nil {
		return message.Interpretation{}, "", err
	}

	if p.cache != nil {
		if err := p.cache.Set(ctx, key, guess); err != nil {
			slog.Warn("caching fallback answer failed", "error", err)
		}
	}
	return guess, metrics.PathFallback, nil
}

func ruleNote(r message.Interpretation, unavailable bool) string {
	note := NoteLowConfidence
	switch {
	case r.Intent == message.IntentUnknown:
		note = NoteNoIntent
	case r.Device == "":
		note = NoteNoDevice
	}
	if unavailable {
		note += " " + NoteFallbackUnavailable
	}
	return note
}

func fallbackNote(r message.Interpretation) string {
	switch {
	case r.Intent == message.IntentUnknown:
		return NoteFallbackNoIntent
	case r.Device == "":
		return NoteNoDevice
	default:
		return NoteFallback
	}
}

// Execute interprets text and runs the result against the IoT backend
// using the endpoints of the device from the same snapshot.
func (p *Pipeline) Execute(ctx context.Context, text string) (Result, message.Execution) {
	snap := p.entities.Snapshot()
	res := p.interpret(ctx, snap, text)

	var endpoints message.Endpoints
	if d, ok := snap.Device(res.Interpretation.Device); ok {
		endpoints = d.Endpoints
	}
	exec := p.executor.Execute(ctx, res.Interpretation, endpoints)

	outcome := "skipped"
	switch {
	case exec.Executed:
		outcome = "executed"
	case exec.EndpointCalled != "":
		outcome = "failed"
	}
	metrics.Executions.WithLabelValues(outcome).Inc()
	metrics.Interpretations.WithLabelValues(res.Path, string(res.Interpretation.Intent)).Inc()
	return res, exec
}

// Reload publishes a new device snapshot. On error the current snapshot
// stays in place.
func (p *Pipeline) Reload(devices []message.Device) error {
	err := p.entities.Reload(devices)
	metrics.Reloads.WithLabelValues(metrics.Outcome(err)).Inc()
	if err != nil {
		return fmt.Errorf("reloading devices: %w", err)
	}
	metrics.Devices.Set(float64(len(devices)))
	slog.Info("devices reloaded", "count", len(devices), "version", p.entities.Version())
	return nil
}

// ReloadFromSource loads a snapshot from the configured source and
// publishes it. It returns the number of devices loaded.
func (p *Pipeline) ReloadFromSource(ctx context.Context) (int, error) {
	if p.source == nil {
		return 0, ErrNoSource
	}
	devices, err := p.source.Load(ctx)
	if err != nil {
		metrics.Reloads.WithLabelValues(metrics.Outcome(err)).Inc()
		return 0, fmt.Errorf("loading devices: %w", err)
	}
	if err := p.Reload(devices); err != nil {
		return 0, err
	}
	return len(devices), nil
}

// Devices returns the current device catalog.
func (p *Pipeline) Devices() []message.Device { return p.entities.Devices() }

// Device returns one device of the current catalog.
func (p *Pipeline) Device(key string) (message.Device, bool) { return p.entities.Device(key) }

// Version returns the device index version.
func (p *Pipeline) Version() uint64 { return p.entities.Version() }
