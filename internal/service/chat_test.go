package service_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"patriotpilot/internal/service"
	"patriotpilot/internal/service/mocks"

	"go.uber.org/mock/gomock"
)

func init() {
	// Keep test output clean; the service logs through slog.Default().
	slog.SetDefault(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestNewChatService(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	svc := service.NewChatService(mocks.NewMockGenerator(ctrl))
	if svc == nil {
		t.Fatal("NewChatService() returned nil")
	}
}

func TestChatService_ProcessChat(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockGenerator := mocks.NewMockGenerator(ctrl)
	svc := service.NewChatService(mockGenerator)

	tests := []struct {
		name         string
		req          service.ChatRequest
		mockSetup    func()
		wantErr      bool
		wantReply    string
		checkErrType func(error) bool
	}{
		{
			name: "successful chat",
			req:  service.ChatRequest{Message: "Where is the CS department?"},
			mockSetup: func() {
				mockGenerator.EXPECT().
					Generate(gomock.Any(), "Where is the CS department?").
					Return("Engineering Building.", nil)
			},
			wantReply: "Engineering Building.",
		},
		{
			name:      "empty message",
			req:       service.ChatRequest{Message: ""},
			mockSetup: func() {},
			wantErr:   true,
			checkErrType: func(err error) bool {
				var validationErr *service.ValidationError
				return errors.As(err, &validationErr) && validationErr.Field == "message"
			},
		},
		{
			name:      "whitespace only message",
			req:       service.ChatRequest{Message: "   \n\t"},
			mockSetup: func() {},
			wantErr:   true,
			checkErrType: func(err error) bool {
				return errors.Is(err, service.ErrInvalidInput)
			},
		},
		{
			name: "generator error",
			req:  service.ChatRequest{Message: "hello"},
			mockSetup: func() {
				mockGenerator.EXPECT().
					Generate(gomock.Any(), "hello").
					Return("", errors.New("connection refused"))
			},
			wantErr: true,
			checkErrType: func(err error) bool {
				return errors.Is(err, service.ErrGenerationFailure)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.mockSetup()

			got, err := svc.ProcessChat(context.Background(), tt.req)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ProcessChat() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				if tt.checkErrType != nil && !tt.checkErrType(err) {
					t.Errorf("ProcessChat() error type mismatch: %v", err)
				}
				return
			}
			if got.Reply != tt.wantReply {
				t.Errorf("ProcessChat() reply = %q, want %q", got.Reply, tt.wantReply)
			}
		})
	}
}
