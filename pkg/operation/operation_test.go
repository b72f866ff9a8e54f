// Copyright 2025 walteh LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package operation

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/fatih/color"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/walteh/extsort/pkg/config"
	"github.com/walteh/extsort/pkg/log"
	"gitlab.com/tozd/go/errors"
)

func writeTree(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for rel, content := range files {
		path := filepath.Join(root, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755), "creating parent directory")
		require.NoError(t, os.WriteFile(path, []byte(content), 0644), "writing file")
	}
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	content, err := os.ReadFile(path)
	require.NoError(t, err, "reading %s", path)
	return string(content)
}

func testContext(t *testing.T) context.Context {
	t.Helper()
	return zerolog.New(zerolog.TestWriter{T: t}).WithContext(context.Background())
}

// testOptions builds options writing console output to the returned buffer
func testOptions(t *testing.T, source, dest string) (Options, *bytes.Buffer) {
	t.Helper()
	color.NoColor = true
	t.Cleanup(func() { color.NoColor = false })

	cfg := config.Default()
	cfg.Destination = dest

	var buf bytes.Buffer
	return Options{
		Source:  source,
		Config:  cfg,
		Console: log.New(&buf),
	}, &buf
}

// 🔧 MockOperation is a mock implementation of the Operation interface
type MockOperation struct {
	mock.Mock
}

func (m *MockOperation) Execute(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

func TestRunner(t *testing.T) {
	tests := []struct {
		name    string
		async   bool
		err     error
		wantErr string
	}{
		{name: "sync_success"},
		{name: "async_success", async: true},
		{name: "sync_error", err: errors.New("boom"), wantErr: "boom"},
		{name: "async_error", async: true, err: errors.New("boom"), wantErr: "executing operation: boom"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := testContext(t)
			op := &MockOperation{}
			op.On("Execute", mock.Anything).Return(tt.err)

			err := NewRunner(zerolog.Ctx(ctx), tt.async).Run(ctx, op)
			if tt.wantErr != "" {
				require.Error(t, err, "run should fail")
				assert.Contains(t, err.Error(), tt.wantErr, "error should carry the operation error")
			} else {
				require.NoError(t, err, "run should succeed")
			}
			op.AssertExpectations(t)
		})
	}
}

type blockingOperation struct {
	release chan struct{}
}

func (b *blockingOperation) Execute(ctx context.Context) error {
	<-b.release
	return nil
}

func TestRunnerAsyncCancel(t *testing.T) {
	ctx, cancel := context.WithTimeout(testContext(t), 20*time.Millisecond)
	defer cancel()

	op := &blockingOperation{release: make(chan struct{})}
	defer close(op.release)

	err := NewRunner(nil, true).Run(ctx, op)
	require.Error(t, err, "cancelled run should fail")
	assert.ErrorIs(t, err, context.DeadlineExceeded, "error should wrap the context error")
}

func TestNewBaseOperationDefaults(t *testing.T) {
	op := NewBaseOperation(Options{})
	require.NotNil(t, op.Config, "config should default")
	require.NotNil(t, op.Console, "console should default")
	require.NotNil(t, op.StatusMgr, "status manager should default")
	assert.Equal(t, config.DefaultDestination, op.StatusMgr.BaseDir(), "destination should default to dist")
}
