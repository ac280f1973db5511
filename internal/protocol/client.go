package protocol

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v5"

	"github.com/hustsync/hustsync/internal/httpclient"
	"github.com/hustsync/hustsync/internal/status"
)

const (
	// DefaultMaxTries bounds the attempts of one retried request
	DefaultMaxTries = 5

	// DefaultInitialInterval is the first backoff delay
	DefaultInitialInterval = 500 * time.Millisecond
)

var (
	// ErrWorkerExists is returned by Register when the id is already registered
	ErrWorkerExists = errors.New("worker already registered")

	// ErrWorkerNotFound is returned when the manager does not know the worker
	ErrWorkerNotFound = errors.New("worker not registered")

	// ErrStaleUpdate is returned when the manager holds a newer status for the job
	ErrStaleUpdate = errors.New("status update is stale")
)

// Client talks to the manager API
type Client struct {
	http            httpclient.Client
	apiBase         string
	maxTries        uint
	initialInterval time.Duration
}

// ClientOption configures a Client
type ClientOption func(*Client)

// WithMaxTries sets how many times a retried request is attempted
func WithMaxTries(n uint) ClientOption {
	return func(c *Client) {
		if n > 0 {
			c.maxTries = n
		}
	}
}

// WithInitialInterval sets the first backoff delay
func WithInitialInterval(d time.Duration) ClientOption {
	return func(c *Client) {
		if d > 0 {
			c.initialInterval = d
		}
	}
}

// NewClient creates a manager client rooted at apiBase
func NewClient(apiBase string, hc httpclient.Client, opts ...ClientOption) *Client {
	c := &Client{
		http:            hc,
		apiBase:         strings.TrimRight(apiBase, "/"),
		maxTries:        DefaultMaxTries,
		initialInterval: DefaultInitialInterval,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) url(path string) string {
	return c.apiBase + path
}

// retry runs op with exponential backoff. Rejected requests are not retried;
// 404 maps to ErrWorkerNotFound and 409 to conflict.
func retry[T any](ctx context.Context, c *Client, what string, conflict error, op func() (T, error)) (T, error) {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = c.initialInterval

	attempt := 0
	return backoff.Retry(ctx, func() (T, error) {
		attempt++
		res, err := op()
		if err == nil {
			return res, nil
		}
		switch code := httpclient.StatusCode(err); {
		case code == http.StatusNotFound:
			return res, backoff.Permanent(fmt.Errorf("%w: %w", ErrWorkerNotFound, err))
		case code == http.StatusConflict && conflict != nil:
			return res, backoff.Permanent(fmt.Errorf("%w: %w", conflict, err))
		case httpclient.Rejected(err):
			return res, backoff.Permanent(err)
		}
		slog.Debug("Manager request failed, retrying", "request", what, "attempt", attempt, "error", err)
		return res, err
	}, backoff.WithBackOff(b), backoff.WithMaxTries(c.maxTries))
}

// Register creates the worker record. The manager fills in a token when it is empty.
func (c *Client) Register(ctx context.Context, w status.WorkerStatus) (status.WorkerStatus, error) {
	return retry(ctx, c, "register", ErrWorkerExists, func() (status.WorkerStatus, error) {
		var out status.WorkerStatus
		err := c.http.PostJSON(ctx, c.url(WorkersPath), w, &out)
		return out, err
	})
}

// Heartbeat refreshes the worker's last-online time
func (c *Client) Heartbeat(ctx context.Context, workerID string) (status.WorkerStatus, error) {
	return retry(ctx, c, "heartbeat", nil, func() (status.WorkerStatus, error) {
		var out status.WorkerStatus
		err := c.http.PutJSON(ctx, c.url(WorkerPath(workerID)), struct{}{}, &out)
		return out, err
	})
}

// Deregister removes the worker record
func (c *Client) Deregister(ctx context.Context, workerID string) error {
	return c.http.Delete(ctx, c.url(WorkerPath(workerID)))
}

// UpdateStatus pushes one job status. A stale report yields ErrStaleUpdate and is not retried.
func (c *Client) UpdateStatus(ctx context.Context, workerID string, m status.MirrorStatus) error {
	_, err := retry(ctx, c, "update status", ErrStaleUpdate, func() (struct{}, error) {
		return struct{}{}, c.http.PostJSON(ctx, c.url(WorkerJobPath(workerID, m.Name)), m, nil)
	})
	return err
}

// DeleteStatus removes a job's status, used when a mirror leaves the configuration
func (c *Client) DeleteStatus(ctx context.Context, workerID, mirrorID string) error {
	err := c.http.Delete(ctx, c.url(WorkerJobPath(workerID, mirrorID)))
	if httpclient.StatusCode(err) == http.StatusNotFound {
		return nil
	}
	return err
}

// GetSchedules returns the schedule the manager holds for the worker
func (c *Client) GetSchedules(ctx context.Context, workerID string) (MirrorSchedules, error) {
	var out MirrorSchedules
	err := c.http.GetJSON(ctx, c.url(WorkerSchedulesPath(workerID)), &out)
	return out, err
}

// ReportSchedules sends the worker's next run times
func (c *Client) ReportSchedules(ctx context.Context, workerID string, s MirrorSchedules) error {
	return c.http.PostJSON(ctx, c.url(WorkerSchedulesPath(workerID)), s, nil)
}

// PollCommands drains the commands queued for the worker
func (c *Client) PollCommands(ctx context.Context, workerID string) ([]WorkerCmd, error) {
	var out []WorkerCmd
	err := c.http.GetJSON(ctx, c.url(WorkerCommandsPath(workerID)), &out)
	if httpclient.StatusCode(err) == http.StatusNotFound {
		return nil, fmt.Errorf("%w: %w", ErrWorkerNotFound, err)
	}
	return out, err
}

// SendCommand asks the manager to relay a command
func (c *Client) SendCommand(ctx context.Context, cmd ClientCmd) error {
	return c.http.PostJSON(ctx, c.url(CmdPath), cmd, nil)
}

// ListJobs returns the manager's web status view
func (c *Client) ListJobs(ctx context.Context) ([]status.WebMirrorStatus, error) {
	var out []status.WebMirrorStatus
	err := c.http.GetJSON(ctx, c.url(JobsPath), &out)
	return out, err
}

// ListWorkers returns every registered worker
func (c *Client) ListWorkers(ctx context.Context) ([]WorkerInfo, error) {
	var out []WorkerInfo
	err := c.http.GetJSON(ctx, c.url(WorkersPath), &out)
	return out, err
}

// WorkerInfo is a worker record as listed by the manager
type WorkerInfo struct {
	status.WorkerStatus
	Stale bool `json:"stale"`
}

// PostWorkerCmd delivers a command straight to a worker's control server
func PostWorkerCmd(ctx context.Context, hc httpclient.Client, workerURL string, cmd WorkerCmd) error {
	return hc.PostJSON(ctx, workerURL, cmd, nil)
}
