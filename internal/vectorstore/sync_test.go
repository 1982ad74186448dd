package vectorstore_test

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/mock/gomock"

	"patriotpilot/internal/vectorstore"
	"patriotpilot/internal/vectorstore/mocks"
)

func TestCheckSync(t *testing.T) {
	unavailable := errors.New("connection refused")

	tests := []struct {
		name      string
		buildID   string
		setup     func(*mocks.MockVectorStore)
		wantErr   error
		wantNoErr bool
	}{
		{
			name:    "in sync",
			buildID: "build-2",
			setup: func(m *mocks.MockVectorStore) {
				m.EXPECT().Count(gomock.Any(), "chunks").Return(3, nil)
				m.EXPECT().CountBuild(gomock.Any(), "chunks", "build-2").Return(3, nil)
			},
			wantNoErr: true,
		},
		{
			name:    "count differs",
			buildID: "build-2",
			setup: func(m *mocks.MockVectorStore) {
				m.EXPECT().Count(gomock.Any(), "chunks").Return(2, nil)
			},
			wantErr: vectorstore.ErrOutOfSync,
		},
		{
			name:    "same count from another build",
			buildID: "build-2",
			setup: func(m *mocks.MockVectorStore) {
				m.EXPECT().Count(gomock.Any(), "chunks").Return(3, nil)
				m.EXPECT().CountBuild(gomock.Any(), "chunks", "build-2").Return(0, nil)
			},
			wantErr: vectorstore.ErrOutOfSync,
		},
		{
			name:    "index without build id",
			buildID: "",
			setup:   func(m *mocks.MockVectorStore) {},
			wantErr: vectorstore.ErrOutOfSync,
		},
		{
			name:    "count fails",
			buildID: "build-2",
			setup: func(m *mocks.MockVectorStore) {
				m.EXPECT().Count(gomock.Any(), "chunks").Return(0, unavailable)
			},
			wantErr: unavailable,
		},
		{
			name:    "build count fails",
			buildID: "build-2",
			setup: func(m *mocks.MockVectorStore) {
				m.EXPECT().Count(gomock.Any(), "chunks").Return(3, nil)
				m.EXPECT().CountBuild(gomock.Any(), "chunks", "build-2").Return(0, unavailable)
			},
			wantErr: unavailable,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			defer ctrl.Finish()

			store := mocks.NewMockVectorStore(ctrl)
			tt.setup(store)

			err := vectorstore.CheckSync(context.Background(), store, "chunks", tt.buildID, 3)
			if tt.wantNoErr {
				if err != nil {
					t.Errorf("CheckSync() error = %v", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("CheckSync() error = %v, want %v", err, tt.wantErr)
			}
			if errors.Is(err, vectorstore.ErrOutOfSync) != (tt.wantErr == vectorstore.ErrOutOfSync) {
				t.Errorf("CheckSync() error = %v, out-of-sync classification wrong", err)
			}
		})
	}
}
