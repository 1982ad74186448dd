// Package rag answers questions by retrieving indexed chunks, assembling them
// into a bounded prompt, and handing the prompt to the generation capability.
package rag

//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_rag.go -package=mocks patriotpilot/internal/rag Retriever,Generator

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/semaphore"

	"patriotpilot/internal/contextutil"
	"patriotpilot/internal/retrieval"
	"patriotpilot/internal/service"
)

// DefaultAdmissionWait is how long a request waits for an in-flight slot.
const DefaultAdmissionWait = 5 * time.Second

// Retriever selects ranked chunks for a query.
type Retriever interface {
	Retrieve(ctx context.Context, query string, policy retrieval.Policy) ([]retrieval.Hit, error)
}

// Generator is the opaque generation capability.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// Options configures a Service.
type Options struct {
	// Policy, K and Threshold fill in fields a request leaves unset.
	Policy    retrieval.PolicyKind
	K         int
	Threshold float64
	// MaxInflight bounds concurrent requests; <= 0 means 1.
	MaxInflight     int
	AdmissionWait   time.Duration
	EmbedTimeout    time.Duration
	GenerateTimeout time.Duration
}

// Service is the query-time pipeline over one loaded index. It is built once
// at startup, never mutated, and shared by every handler.
type Service struct {
	retriever Retriever
	generator Generator
	assembler *Assembler
	opts      Options
	inflight  *semaphore.Weighted
}

// NewService creates a Service. Zero-valued options take package defaults.
func NewService(retriever Retriever, generator Generator, assembler *Assembler, opts Options) *Service {
	if opts.Policy == "" {
		opts.Policy = retrieval.TopK
	}
	if opts.K <= 0 {
		opts.K = retrieval.DefaultK
	}
	if opts.MaxInflight <= 0 {
		opts.MaxInflight = 1
	}
	if opts.AdmissionWait <= 0 {
		opts.AdmissionWait = DefaultAdmissionWait
	}
	return &Service{
		retriever: retriever,
		generator: generator,
		assembler: assembler,
		opts:      opts,
		inflight:  semaphore.NewWeighted(int64(opts.MaxInflight)),
	}
}

// ResolvePolicy fills unset request fields from the service defaults and validates the result.
func (s *Service) ResolvePolicy(kind string, k int, threshold *float64) (retrieval.Policy, error) {
	if kind == "" {
		kind = string(s.opts.Policy)
	}
	if k == 0 {
		k = s.opts.K
	}
	t := s.opts.Threshold
	if threshold != nil {
		t = *threshold
	}
	return retrieval.ParsePolicy(kind, k, t)
}

// Ask retrieves chunks for the question, assembles the prompt and generates an
// answer. An empty retrieval still reaches the generator with an empty context.
// The call either returns an answer or fails as a whole.
func (s *Service) Ask(ctx context.Context, req AskRequest) (AskResponse, error) {
	logger := contextutil.LoggerFromContext(ctx)

	policy, err := s.ResolvePolicy(req.Policy, req.K, req.Threshold)
	if err != nil {
		return AskResponse{}, err
	}

	release, err := s.admit(ctx)
	if err != nil {
		return AskResponse{}, err
	}
	defer release()

	hits, err := s.retrieve(ctx, req.Question, policy)
	if err != nil {
		return AskResponse{}, err
	}

	contextText := s.assembler.Context(hits)
	prompt := RenderPrompt(contextText, req.Question)
	logger.DebugContext(ctx, "prompt assembled", "hits", len(hits), "prompt_length", len(prompt))

	answer, err := s.generate(ctx, prompt)
	if err != nil {
		return AskResponse{}, err
	}

	logger.InfoContext(ctx, "question answered",
		"policy", policy.String(),
		"hits", len(hits),
		"answer_length", len(answer),
	)
	return AskResponse{
		Answer:        answer,
		Sources:       hits,
		Policy:        policy.String(),
		ContextLength: s.assembler.budget.Measure(contextText),
	}, nil
}

// Retrieve returns ranked chunks without generating.
func (s *Service) Retrieve(ctx context.Context, req RetrieveRequest) (RetrieveResponse, error) {
	policy, err := s.ResolvePolicy(req.Policy, req.K, req.Threshold)
	if err != nil {
		return RetrieveResponse{}, err
	}

	release, err := s.admit(ctx)
	if err != nil {
		return RetrieveResponse{}, err
	}
	defer release()

	hits, err := s.retrieve(ctx, req.Query, policy)
	if err != nil {
		return RetrieveResponse{}, err
	}
	return RetrieveResponse{Hits: hits, Policy: policy.String()}, nil
}

// admit takes an in-flight slot, waiting at most AdmissionWait.
func (s *Service) admit(ctx context.Context) (func(), error) {
	waitCtx, cancel := context.WithTimeout(ctx, s.opts.AdmissionWait)
	defer cancel()

	if err := s.inflight.Acquire(waitCtx, 1); err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		contextutil.LoggerFromContext(ctx).WarnContext(ctx, "request rejected", "max_inflight", s.opts.MaxInflight)
		return nil, service.ErrBusy
	}
	return func() { s.inflight.Release(1) }, nil
}

func (s *Service) retrieve(ctx context.Context, query string, policy retrieval.Policy) ([]retrieval.Hit, error) {
	if s.opts.EmbedTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.opts.EmbedTimeout)
		defer cancel()
	}
	hits, err := s.retriever.Retrieve(ctx, query, policy)
	if err != nil {
		return nil, err
	}
	if hits == nil {
		hits = []retrieval.Hit{}
	}
	return hits, nil
}

func (s *Service) generate(ctx context.Context, prompt string) (string, error) {
	if s.opts.GenerateTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.opts.GenerateTimeout)
		defer cancel()
	}
	answer, err := s.generator.Generate(ctx, prompt)
	if err != nil {
		contextutil.LoggerFromContext(ctx).ErrorContext(ctx, "failed to get LLM response", "error", err)
		if errors.Is(err, context.DeadlineExceeded) {
			err = fmt.Errorf("generation timed out after %s: %w", s.opts.GenerateTimeout, err)
		}
		return "", service.WrapError(service.Classify(service.ErrGenerationFailure, err), "failed to get LLM response")
	}
	return answer, nil
}
