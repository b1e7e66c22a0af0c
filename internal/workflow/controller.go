package workflow

import (
	"context"
	"errors"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/joseph-ayodele/engagement-analyzer/constants"
	"github.com/joseph-ayodele/engagement-analyzer/internal/analysis"
	"github.com/joseph-ayodele/engagement-analyzer/internal/client"
	"github.com/joseph-ayodele/engagement-analyzer/internal/common"
)

// ErrDiscarded is returned when a result arrived after the session was reset.
var ErrDiscarded = errors.New("result discarded: session was reset")

// Backend is the API surface the controller drives.
type Backend interface {
	Extract(ctx context.Context, f client.File) (*client.Extraction, error)
	Analyze(ctx context.Context, req client.AnalyzeRequest) (*analysis.Result, error)
	QuickAnalyze(ctx context.Context, text string) (*analysis.Result, error)
}

// FileStatus is the per-file upload state shown to the user.
type FileStatus struct {
	Name       string                   `json:"name"`
	Status     constants.ArtifactStatus `json:"status"`
	Extraction *client.Extraction       `json:"extraction,omitempty"`
	Error      string                   `json:"error,omitempty"`
}

type Controller struct {
	backend Backend
	state   *State
	timeout time.Duration
	logger  *slog.Logger

	mu    sync.Mutex
	files map[string]*FileStatus
	order []string
}

type Option func(*Controller)

func WithAnalysisTimeout(d time.Duration) Option {
	return func(c *Controller) {
		if d > 0 {
			c.timeout = d
		}
	}
}

func NewController(b Backend, st *State, logger *slog.Logger, opts ...Option) *Controller {
	if st == nil {
		st = NewState()
	}
	if logger == nil {
		logger = slog.Default()
	}
	c := &Controller{
		backend: b,
		state:   st,
		timeout: analysis.DefaultTimeout,
		logger:  logger,
		files:   make(map[string]*FileStatus),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

func (c *Controller) State() *State { return c.state }

// Upload extracts each file not already uploaded in this session, in order.
// Every success replaces the session text, so the last success wins.
func (c *Controller) Upload(ctx context.Context, files []client.File) ([]FileStatus, error) {
	t, err := c.state.BeginExtraction()
	if err != nil {
		return nil, err
	}
	defer c.state.End(t)

	var out []FileStatus
	for _, f := range files {
		name := filepath.Base(f.Name)
		if !c.claim(name) {
			c.logger.Info("workflow.upload.skip_duplicate", "file", name)
			continue
		}
		c.setStatus(name, FileStatus{Name: name, Status: constants.ArtifactProcessing})

		ex, err := c.backend.Extract(ctx, f)
		if err != nil {
			c.logger.Warn("workflow.upload.failed", "file", name, "code", common.CodeOf(err), "error", err)
			out = append(out, c.setStatus(name, FileStatus{Name: name, Status: constants.ArtifactError, Error: common.PublicMessage(err)}))
			continue
		}
		out = append(out, c.setStatus(name, FileStatus{Name: name, Status: constants.ArtifactSuccess, Extraction: ex}))
		if !c.state.ApplyText(t, ex.ExtractedText) {
			c.logger.Info("workflow.upload.discarded", "file", name)
			return out, ErrDiscarded
		}
	}
	return out, nil
}

// Files lists the session's uploads in upload order.
func (c *Controller) Files() []FileStatus {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]FileStatus, 0, len(c.order))
	for _, n := range c.order {
		out = append(out, *c.files[n])
	}
	return out
}

func (c *Controller) claim(name string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.files[name]; ok {
		return false
	}
	c.files[name] = &FileStatus{Name: name, Status: constants.ArtifactQueued}
	c.order = append(c.order, name)
	return true
}

func (c *Controller) setStatus(name string, fs FileStatus) FileStatus {
	c.mu.Lock()
	defer c.mu.Unlock()
	if cur, ok := c.files[name]; ok {
		*cur = fs
	}
	return fs
}

// Analyze sends the session text for analysis. Only one request may be in flight.
func (c *Controller) Analyze(ctx context.Context, contentType, platform string, mode constants.AnalysisMode) (*analysis.Result, error) {
	t, text, err := c.state.BeginAnalysis()
	if err != nil {
		return nil, err
	}
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var res *analysis.Result
	if mode == constants.ModeQuick {
		res, err = c.backend.QuickAnalyze(ctx, text)
	} else {
		res, err = c.backend.Analyze(ctx, client.AnalyzeRequest{Text: text, ContentType: contentType, Platform: platform})
	}
	if err != nil {
		c.state.End(t)
		if common.CodeOf(err) == "" && errors.Is(ctx.Err(), context.DeadlineExceeded) {
			err = common.NewTimeoutError(common.CodeAnalysisTimeout, "Analysis timed out", err)
		}
		c.logger.Warn("workflow.analyze.failed", "code", common.CodeOf(err), "error", err)
		return nil, err
	}
	if !c.state.CompleteAnalysis(t, res) {
		c.logger.Info("workflow.analyze.discarded", "analysis_id", res.ID)
		return nil, ErrDiscarded
	}
	return res, nil
}

// Reset clears the session and forgets uploaded file names.
func (c *Controller) Reset() {
	c.state.ClearResults()
	c.mu.Lock()
	c.files = make(map[string]*FileStatus)
	c.order = nil
	c.mu.Unlock()
}
