package gateway

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	json "github.com/goccy/go-json"
	"github.com/spf13/afero"

	"github.com/fermata-io/fermata/internal/domain"
	"github.com/fermata-io/fermata/internal/ports"
)

const (
	pendingDir   = "pending"
	decisionsDir = "decisions"
)

// FileGateway publishes pending approvals as JSON files and drains
// decision files written by an external approver (typically the fermata
// CLI). The filesystem is the out-of-band channel; nothing here blocks
// waiting for a human.
type FileGateway struct {
	fs     afero.Fs
	dir    string
	logger *slog.Logger
	mu     sync.Mutex
}

type pendingFile struct {
	ExecutionID string                    `json:"execution_id"`
	Request     *domain.SuspensionRequest `json:"request"`
	PublishedAt time.Time                 `json:"published_at"`
}

type decisionFile struct {
	ExecutionID string                 `json:"execution_id"`
	Confirmed   bool                   `json:"confirmed"`
	Metadata    map[string]interface{} `json:"metadata,omitempty"`
	DecidedAt   time.Time              `json:"decided_at,omitempty"`
}

func NewFileGateway(fs afero.Fs, dir string, logger *slog.Logger) (*FileGateway, error) {
	if logger == nil {
		logger = slog.Default()
	}

	for _, sub := range []string{pendingDir, decisionsDir} {
		if err := fs.MkdirAll(filepath.Join(dir, sub), 0o755); err != nil {
			return nil, domain.NewStorageError("mkdir", filepath.Join(dir, sub), err)
		}
	}

	return &FileGateway{
		fs:     fs,
		dir:    dir,
		logger: logger.With("component", "file-gateway"),
	}, nil
}

func (g *FileGateway) Publish(ctx context.Context, executionID string, req *domain.SuspensionRequest) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	data, err := json.MarshalIndent(pendingFile{
		ExecutionID: executionID,
		Request:     req,
		PublishedAt: time.Now(),
	}, "", "  ")
	if err != nil {
		return domain.Error{
			Type:    domain.ErrorTypeInternal,
			Message: "failed to serialize pending approval",
			Details: map[string]interface{}{
				"execution_id": executionID,
				"error":        err.Error(),
			},
		}
	}

	path := g.pendingPath(executionID)
	if err := afero.WriteFile(g.fs, path, data, 0o644); err != nil {
		return domain.NewStorageError("write", path, err)
	}

	g.logger.Info("approval published",
		"execution_id", executionID,
		"hint", req.Hint,
		"path", path,
	)
	return nil
}

func (g *FileGateway) Withdraw(ctx context.Context, executionID string) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	path := g.pendingPath(executionID)
	if err := g.fs.Remove(path); err != nil && !os.IsNotExist(err) {
		return domain.NewStorageError("remove", path, err)
	}
	return nil
}

func (g *FileGateway) Pending(ctx context.Context) ([]ports.PendingApproval, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	dir := filepath.Join(g.dir, pendingDir)
	infos, err := afero.ReadDir(g.fs, dir)
	if err != nil {
		return nil, domain.NewStorageError("readdir", dir, err)
	}

	var out []ports.PendingApproval
	for _, info := range infos {
		if info.IsDir() || !strings.HasSuffix(info.Name(), ".json") {
			continue
		}
		path := filepath.Join(dir, info.Name())
		data, readErr := afero.ReadFile(g.fs, path)
		if readErr != nil {
			return nil, domain.NewStorageError("read", path, readErr)
		}

		var pf pendingFile
		if decErr := json.Unmarshal(data, &pf); decErr != nil {
			g.logger.Warn("skipping malformed pending file", "path", path, "error", decErr.Error())
			continue
		}
		out = append(out, ports.PendingApproval{
			ExecutionID: pf.ExecutionID,
			Request:     pf.Request,
		})
	}

	sort.Slice(out, func(i, j int) bool { return out[i].ExecutionID < out[j].ExecutionID })
	return out, nil
}

// PollDecisions drains the decisions directory. Each decision file is
// consumed exactly once; its pending counterpart is removed alongside it.
func (g *FileGateway) PollDecisions(ctx context.Context) ([]ports.ArrivedDecision, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	dir := filepath.Join(g.dir, decisionsDir)
	infos, err := afero.ReadDir(g.fs, dir)
	if err != nil {
		return nil, domain.NewStorageError("readdir", dir, err)
	}

	var out []ports.ArrivedDecision
	for _, info := range infos {
		if info.IsDir() || !strings.HasSuffix(info.Name(), ".json") {
			continue
		}
		path := filepath.Join(dir, info.Name())
		data, readErr := afero.ReadFile(g.fs, path)
		if readErr != nil {
			return nil, domain.NewStorageError("read", path, readErr)
		}

		var df decisionFile
		if decErr := json.Unmarshal(data, &df); decErr != nil {
			g.logger.Warn("skipping malformed decision file", "path", path, "error", decErr.Error())
			continue
		}

		if err := g.fs.Remove(path); err != nil && !os.IsNotExist(err) {
			return nil, domain.NewStorageError("remove", path, err)
		}
		if err := g.fs.Remove(g.pendingPath(df.ExecutionID)); err != nil && !os.IsNotExist(err) {
			return nil, domain.NewStorageError("remove", g.pendingPath(df.ExecutionID), err)
		}

		decidedAt := df.DecidedAt
		if decidedAt.IsZero() {
			decidedAt = info.ModTime()
		}

		out = append(out, ports.ArrivedDecision{
			ExecutionID: df.ExecutionID,
			Decision: &domain.Decision{
				Confirmed: df.Confirmed,
				Metadata:  df.Metadata,
				DecidedAt: decidedAt,
			},
		})
	}

	sort.Slice(out, func(i, j int) bool { return out[i].ExecutionID < out[j].ExecutionID })
	return out, nil
}

func (g *FileGateway) pendingPath(executionID string) string {
	return filepath.Join(g.dir, pendingDir, executionID+".json")
}

// WriteDecision records an approver's answer for a suspended execution.
// Exposed for the CLI, which shares the approvals directory with the
// embedding application.
func WriteDecision(fs afero.Fs, dir, executionID string, confirmed bool, metadata map[string]interface{}) error {
	data, err := json.MarshalIndent(decisionFile{
		ExecutionID: executionID,
		Confirmed:   confirmed,
		Metadata:    metadata,
		DecidedAt:   time.Now(),
	}, "", "  ")
	if err != nil {
		return domain.Error{
			Type:    domain.ErrorTypeInternal,
			Message: "failed to serialize decision",
			Details: map[string]interface{}{
				"execution_id": executionID,
				"error":        err.Error(),
			},
		}
	}

	path := filepath.Join(dir, decisionsDir, executionID+".json")
	if err := fs.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return domain.NewStorageError("mkdir", filepath.Dir(path), err)
	}
	if err := afero.WriteFile(fs, path, data, 0o644); err != nil {
		return domain.NewStorageError("write", path, err)
	}
	return nil
}
