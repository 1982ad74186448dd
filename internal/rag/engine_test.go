package rag_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"patriotpilot/internal/rag"
	"patriotpilot/internal/rag/mocks"
	"patriotpilot/internal/retrieval"
	"patriotpilot/internal/service"
)

func newService(retriever rag.Retriever, generator rag.Generator, opts rag.Options) *rag.Service {
	if opts.Threshold == 0 {
		opts.Threshold = 0.7
	}
	return rag.NewService(retriever, generator, rag.NewAssembler(rag.CharBudget{Max: 512}), opts)
}

func TestService_Ask(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	hits := []retrieval.Hit{
		{Ordinal: 2, Text: "contact email: csgmuedu", Distance: 0.1, Similarity: 0.995},
		{Ordinal: 0, Text: "name: computer science", Distance: 0.4, Similarity: 0.92},
	}
	retriever := mocks.NewMockRetriever(ctrl)
	retriever.EXPECT().Retrieve(gomock.Any(), "how do i contact cs?", retrieval.TopKPolicy(3)).Return(hits, nil)

	generator := mocks.NewMockGenerator(ctrl)
	generator.EXPECT().
		Generate(gomock.Any(), "Here is the gathered information:\n"+
			"- contact email: csgmuedu\n- name: computer science\n"+
			"\n\nNow, answer the following question based on the information above:\n"+
			"how do i contact cs?\nAnswer:").
		Return("Email the department.", nil)

	resp, err := newService(retriever, generator, rag.Options{}).Ask(context.Background(), rag.AskRequest{Question: "how do i contact cs?"})
	require.NoError(t, err)
	assert.Equal(t, "Email the department.", resp.Answer)
	assert.Equal(t, hits, resp.Sources)
	assert.Equal(t, "topk(3)", resp.Policy)
	assert.Equal(t, 51, resp.ContextLength)
}

func TestService_Ask_EmptyRetrievalStillGenerates(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	retriever := mocks.NewMockRetriever(ctrl)
	retriever.EXPECT().Retrieve(gomock.Any(), "q", retrieval.ThresholdPolicy(0.7)).Return(nil, nil)

	generator := mocks.NewMockGenerator(ctrl)
	generator.EXPECT().
		Generate(gomock.Any(), "Here is the gathered information:\n\n\nNow, answer the following question based on the information above:\nq\nAnswer:").
		Return("best effort", nil)

	resp, err := newService(retriever, generator, rag.Options{}).Ask(context.Background(), rag.AskRequest{Question: "q", Policy: "threshold"})
	require.NoError(t, err)
	assert.Equal(t, "best effort", resp.Answer)
	assert.NotNil(t, resp.Sources)
	assert.Empty(t, resp.Sources)
	assert.Equal(t, 0, resp.ContextLength)
}

func TestService_ResolvePolicy(t *testing.T) {
	svc := newService(nil, nil, rag.Options{Policy: retrieval.Threshold, K: 5, Threshold: 0.6})
	half := 0.5

	tests := []struct {
		name      string
		kind      string
		k         int
		threshold *float64
		want      retrieval.Policy
		wantErr   bool
	}{
		{name: "all defaults", want: retrieval.ThresholdPolicy(0.6)},
		{name: "explicit threshold", kind: "threshold", threshold: &half, want: retrieval.ThresholdPolicy(0.5)},
		{name: "topk default k", kind: "topk", want: retrieval.TopKPolicy(5)},
		{name: "topk explicit k", kind: "topk", k: 1, want: retrieval.TopKPolicy(1)},
		{name: "negative k", kind: "topk", k: -1, wantErr: true},
		{name: "unknown kind", kind: "bm25", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := svc.ResolvePolicy(tt.kind, tt.k, tt.threshold)
			if tt.wantErr {
				assert.ErrorIs(t, err, service.ErrInvalidInput)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestService_Ask_Errors(t *testing.T) {
	tests := []struct {
		name    string
		req     rag.AskRequest
		setup   func(r *mocks.MockRetriever, g *mocks.MockGenerator)
		wantErr error
	}{
		{
			name:    "invalid policy",
			req:     rag.AskRequest{Question: "q", Policy: "nearest"},
			setup:   func(r *mocks.MockRetriever, g *mocks.MockGenerator) {},
			wantErr: service.ErrInvalidInput,
		},
		{
			name: "embedding failure",
			req:  rag.AskRequest{Question: "q"},
			setup: func(r *mocks.MockRetriever, g *mocks.MockGenerator) {
				r.EXPECT().Retrieve(gomock.Any(), "q", gomock.Any()).
					Return(nil, service.WrapError(service.ErrEmbeddingFailure, "failed to embed query"))
			},
			wantErr: service.ErrEmbeddingFailure,
		},
		{
			name: "generation failure",
			req:  rag.AskRequest{Question: "q"},
			setup: func(r *mocks.MockRetriever, g *mocks.MockGenerator) {
				r.EXPECT().Retrieve(gomock.Any(), "q", gomock.Any()).Return([]retrieval.Hit{{Text: "x"}}, nil)
				g.EXPECT().Generate(gomock.Any(), gomock.Any()).Return("", errors.New("502 bad gateway"))
			},
			wantErr: service.ErrGenerationFailure,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			defer ctrl.Finish()

			retriever := mocks.NewMockRetriever(ctrl)
			generator := mocks.NewMockGenerator(ctrl)
			tt.setup(retriever, generator)

			resp, err := newService(retriever, generator, rag.Options{}).Ask(context.Background(), tt.req)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.Empty(t, resp.Answer)
		})
	}
}

func TestService_Ask_Timeouts(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	retriever := mocks.NewMockRetriever(ctrl)
	retriever.EXPECT().Retrieve(gomock.Any(), "q", gomock.Any()).
		DoAndReturn(func(ctx context.Context, _ string, _ retrieval.Policy) ([]retrieval.Hit, error) {
			deadline, ok := ctx.Deadline()
			assert.True(t, ok, "retrieval should run under the embed timeout")
			assert.WithinDuration(t, time.Now().Add(time.Minute), deadline, 5*time.Second)
			return []retrieval.Hit{}, nil
		})

	generator := mocks.NewMockGenerator(ctrl)
	generator.EXPECT().Generate(gomock.Any(), gomock.Any()).
		DoAndReturn(func(ctx context.Context, _ string) (string, error) {
			<-ctx.Done()
			return "", ctx.Err()
		})

	svc := newService(retriever, generator, rag.Options{EmbedTimeout: time.Minute, GenerateTimeout: 20 * time.Millisecond})
	_, err := svc.Ask(context.Background(), rag.AskRequest{Question: "q"})
	assert.ErrorIs(t, err, service.ErrGenerationFailure)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestService_AdmissionLimit(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	started := make(chan struct{})
	release := make(chan struct{})

	retriever := mocks.NewMockRetriever(ctrl)
	retriever.EXPECT().Retrieve(gomock.Any(), gomock.Any(), gomock.Any()).Return([]retrieval.Hit{}, nil).Times(2)

	generator := mocks.NewMockGenerator(ctrl)
	generator.EXPECT().Generate(gomock.Any(), gomock.Any()).
		DoAndReturn(func(ctx context.Context, _ string) (string, error) {
			close(started)
			<-release
			return "slow answer", nil
		})

	svc := newService(retriever, generator, rag.Options{MaxInflight: 1, AdmissionWait: 20 * time.Millisecond})

	done := make(chan error, 1)
	go func() {
		_, err := svc.Ask(context.Background(), rag.AskRequest{Question: "first"})
		done <- err
	}()
	<-started

	_, err := svc.Ask(context.Background(), rag.AskRequest{Question: "second"})
	assert.ErrorIs(t, err, service.ErrBusy)

	_, err = svc.Retrieve(context.Background(), rag.RetrieveRequest{Query: "third"})
	assert.ErrorIs(t, err, service.ErrBusy)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = svc.Ask(ctx, rag.AskRequest{Question: "cancelled"})
	assert.ErrorIs(t, err, context.Canceled)

	close(release)
	require.NoError(t, <-done)

	// The slot is free again.
	resp, err := svc.Retrieve(context.Background(), rag.RetrieveRequest{Query: "fourth"})
	require.NoError(t, err)
	assert.Empty(t, resp.Hits)
}

func TestService_Retrieve(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	hits := []retrieval.Hit{{Ordinal: 4, Text: "advising: room 4300", Similarity: 0.8}}
	retriever := mocks.NewMockRetriever(ctrl)
	retriever.EXPECT().Retrieve(gomock.Any(), "where is advising", retrieval.TopKPolicy(1)).Return(hits, nil)

	resp, err := newService(retriever, mocks.NewMockGenerator(ctrl), rag.Options{}).
		Retrieve(context.Background(), rag.RetrieveRequest{Query: "where is advising", K: 1})
	require.NoError(t, err)
	assert.Equal(t, hits, resp.Hits)
	assert.Equal(t, "topk(1)", resp.Policy)
}
