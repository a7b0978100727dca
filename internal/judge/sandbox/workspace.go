package sandbox

import (
	"context"
	"os"
	"path/filepath"

	appErr "codejudge/pkg/errors"
	"codejudge/pkg/utils/logger"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Workspace hands out uniquely named scratch directories and guarantees
// their removal.
type Workspace struct {
	root string
}

// NewWorkspace creates a provider rooted at root. Empty root uses the OS
// temp directory.
func NewWorkspace(root string) (*Workspace, error) {
	if root == "" {
		root = os.TempDir()
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, appErr.Wrapf(err, appErr.SandboxUnavailable, "create work root failed")
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, appErr.Wrapf(err, appErr.SandboxUnavailable, "resolve work root failed")
	}
	return &Workspace{root: abs}, nil
}

// Root returns the directory under which scopes are created.
func (w *Workspace) Root() string {
	return w.root
}

// With creates a fresh directory, writes content to fileName inside it, runs
// fn with the directory path and removes the directory on every exit path.
func (w *Workspace) With(ctx context.Context, fileName string, content []byte, fn func(dir string) error) (err error) {
	if fileName == "" || filepath.Base(fileName) != fileName {
		return appErr.ValidationError("source_file_name", "must be a plain file name")
	}
	dir := filepath.Join(w.root, "judge-"+uuid.NewString())
	if mkErr := os.Mkdir(dir, 0o755); mkErr != nil {
		return appErr.Wrapf(mkErr, appErr.SandboxUnavailable, "create workspace failed")
	}
	defer func() {
		if rmErr := os.RemoveAll(dir); rmErr != nil {
			logger.Warn(ctx, "remove workspace failed", zap.String("dir", dir), zap.Error(rmErr))
		}
		if r := recover(); r != nil {
			err = appErr.Newf(appErr.InternalServerError, "workspace scope panicked: %v", r)
		}
	}()

	path := filepath.Join(dir, fileName)
	if writeErr := os.WriteFile(path, content, 0o644); writeErr != nil {
		return appErr.Wrapf(writeErr, appErr.SandboxUnavailable, "write source failed")
	}
	return fn(dir)
}
