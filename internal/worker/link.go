package worker

import (
	"context"

	"github.com/hustsync/hustsync/internal/protocol"
	"github.com/hustsync/hustsync/internal/status"
)

//go:generate mockgen -destination=mocks/mock_link.go -package=mocks -source=link.go ManagerClient

// ManagerClient is the part of the manager API a worker uses.
// *protocol.Client implements it.
type ManagerClient interface {
	Register(ctx context.Context, w status.WorkerStatus) (status.WorkerStatus, error)
	Heartbeat(ctx context.Context, workerID string) (status.WorkerStatus, error)
	UpdateStatus(ctx context.Context, workerID string, rec status.MirrorStatus) error
	DeleteStatus(ctx context.Context, workerID, mirrorID string) error
	GetSchedules(ctx context.Context, workerID string) (protocol.MirrorSchedules, error)
	ReportSchedules(ctx context.Context, workerID string, s protocol.MirrorSchedules) error
	PollCommands(ctx context.Context, workerID string) ([]protocol.WorkerCmd, error)
}

var _ ManagerClient = (*protocol.Client)(nil)
