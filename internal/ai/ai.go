// Package ai generates study content with a generative model. Every
// response is requested as JSON under an explicit schema and checked at the
// boundary; anything that does not conform is a *ParseFailure.
package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"google.golang.org/genai"

	lerrors "github.com/FocuswithJustin/lumina/core/errors"
	"github.com/FocuswithJustin/lumina/core/study"
	"github.com/FocuswithJustin/lumina/core/suggest"
	"github.com/FocuswithJustin/lumina/internal/logging"
	"github.com/FocuswithJustin/lumina/internal/metrics"
	"github.com/FocuswithJustin/lumina/internal/session"
)

const (
	// DailyFallback is returned by DailyVerse when the model fails.
	DailyFallback = "Psalm 119:105"

	// MaxSearchResults bounds Search.
	MaxSearchResults = 6
)

// Operation names used in logs, metrics and errors.
const (
	OpAnalyze = "analyze"
	OpSearch  = "search"
	OpDaily   = "daily_verse"
	OpContext = "passage_context"
	OpPrayer  = "generate_prayer"
)

// ParseFailure reports model output that is empty, not JSON, or does not
// match the response schema.
type ParseFailure struct {
	Operation string
	Raw       string
	Err       *lerrors.ParseError
}

func (e *ParseFailure) Error() string {
	return fmt.Sprintf("ai %s: %v", e.Operation, e.Err)
}

func (e *ParseFailure) Unwrap() error {
	return e.Err
}

func parseFailure(op, raw, msg string, cause error) *ParseFailure {
	return &ParseFailure{
		Operation: op,
		Raw:       raw,
		Err:       &lerrors.ParseError{Format: "JSON", Path: op, Message: msg, Err: cause},
	}
}

// CredentialSource yields the key and model for the next call. It is
// consulted per call so preference changes apply immediately.
type CredentialSource func() session.Credentials

// Service is the AI analysis collaborator.
type Service struct {
	gen     Generator
	creds   CredentialSource
	metrics *metrics.Metrics
	now     func() time.Time
	newID   func() string
}

// Option configures a Service.
type Option func(*Service)

// WithMetrics records every call.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// WithClock overrides the timestamp source for generated prayers.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithIDs overrides the prayer id generator.
func WithIDs(newID func() string) Option {
	return func(s *Service) { s.newID = newID }
}

// NewService builds a Service.
func NewService(gen Generator, creds CredentialSource, opts ...Option) *Service {
	s := &Service{gen: gen, creds: creds, now: time.Now, newID: uuid.NewString}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// call runs one request and returns the trimmed text.
func (s *Service) call(ctx context.Context, op string, req Request) (string, error) {
	c := s.creds()
	req.APIKey, req.Model = c.APIKey, c.Model

	start := time.Now()
	text, err := s.gen.Generate(ctx, req)
	elapsed := time.Since(start)

	logging.AIRequest(ctx, op, req.Model, elapsed, err)
	s.metrics.AIRequest(op, elapsed, err)
	if err != nil {
		return "", lerrors.NewUnavailable("ai", op, err)
	}
	return strings.TrimSpace(text), nil
}

// decode checks text against schema and unmarshals it into out.
func decode(op, text string, schema *genai.Schema, out any) error {
	if text == "" {
		return parseFailure(op, text, "no content generated", nil)
	}
	var raw any
	if err := json.Unmarshal([]byte(text), &raw); err != nil {
		return parseFailure(op, text, "malformed JSON", err)
	}
	if err := conform(schema, raw, ""); err != nil {
		return parseFailure(op, text, err.Error(), err)
	}
	if err := json.Unmarshal([]byte(text), out); err != nil {
		return parseFailure(op, text, "unexpected shape", err)
	}
	return nil
}

// validator is implemented by every study record.
type validator interface{ Validate() error }

func check(op, text string, v validator) error {
	if err := v.Validate(); err != nil {
		return parseFailure(op, text, err.Error(), err)
	}
	return nil
}

// Analyze generates a study of ref, optionally compared with comparison.
// Trailing suggestion labels such as "(Context)" are stripped from both.
func (s *Service) Analyze(ctx context.Context, ref, comparison string, includeKJV bool) (*study.Study, error) {
	ref = suggest.Reference(ref)
	comparison = suggest.Reference(comparison)
	if ref == "" {
		return nil, lerrors.NewValidation("query", "required")
	}
	isComparison := comparison != ""

	schema := studySchema(includeKJV, isComparison)
	text, err := s.call(ctx, OpAnalyze, Request{
		System: analyzeSystem(ref, comparison, includeKJV),
		Prompt: analyzePrompt(ref, comparison),
		Schema: schema,
	})
	if err != nil {
		return nil, err
	}

	var out study.Study
	if err := decode(OpAnalyze, text, schema, &out); err != nil {
		return nil, err
	}
	if err := check(OpAnalyze, text, &out); err != nil {
		return nil, err
	}
	if out.VerseReference == "" {
		out.VerseReference = ref
	}
	return &out, nil
}

// Search finds up to MaxSearchResults verses for a topic, phrase or
// reference.
func (s *Service) Search(ctx context.Context, query string) ([]study.SearchResult, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, lerrors.NewValidation("query", "required")
	}
	text, err := s.call(ctx, OpSearch, Request{Prompt: searchPrompt(query), Schema: searchSchema})
	if err != nil {
		return nil, err
	}

	var results []study.SearchResult
	if err := decode(OpSearch, text, searchSchema, &results); err != nil {
		return nil, err
	}
	for _, r := range results {
		if err := check(OpSearch, text, r); err != nil {
			return nil, err
		}
	}
	if len(results) > MaxSearchResults {
		results = results[:MaxSearchResults]
	}
	return results, nil
}

// DailyVerse picks a reference suited to date. It always returns a usable
// reference: on any failure DailyFallback comes back with the error.
func (s *Service) DailyVerse(ctx context.Context, date time.Time) (string, error) {
	text, err := s.call(ctx, OpDaily, Request{Prompt: dailyPrompt(date)})
	if err != nil {
		return DailyFallback, err
	}
	ref := strings.Trim(firstLine(text), `"'`)
	if ref == "" {
		return DailyFallback, parseFailure(OpDaily, text, "no content generated", nil)
	}
	return ref, nil
}

// PassageContext fetches the verses around ref and a historical summary.
func (s *Service) PassageContext(ctx context.Context, ref string) (*study.PassageContext, error) {
	ref = suggest.Reference(ref)
	if ref == "" {
		return nil, lerrors.NewValidation("ref", "required")
	}
	text, err := s.call(ctx, OpContext, Request{Prompt: contextPrompt(ref), Schema: passageSchema})
	if err != nil {
		return nil, err
	}

	var out study.PassageContext
	if err := decode(OpContext, text, passageSchema, &out); err != nil {
		return nil, err
	}
	if err := check(OpContext, text, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GeneratePrayer writes a prayer inspired by character on theme. Either may
// be empty, leaving the choice to the model. The result carries a fresh
// UUID and the current time in milliseconds.
func (s *Service) GeneratePrayer(ctx context.Context, character, theme string) (*study.Prayer, error) {
	character, theme = strings.TrimSpace(character), strings.TrimSpace(theme)
	text, err := s.call(ctx, OpPrayer, Request{Prompt: prayerPrompt(character, theme), Schema: prayerSchema})
	if err != nil {
		return nil, err
	}

	var out study.Prayer
	if err := decode(OpPrayer, text, prayerSchema, &out); err != nil {
		return nil, err
	}
	out.ID = s.newID()
	out.Timestamp = s.now().UnixMilli()
	out.Theme = theme
	if err := check(OpPrayer, text, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func firstLine(s string) string {
	line, _, _ := strings.Cut(strings.TrimSpace(s), "\n")
	return strings.TrimSpace(line)
}
