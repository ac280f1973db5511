package manager

import (
	"sync"

	"github.com/hustsync/hustsync/internal/protocol"
)

// maxQueuedCommands bounds the backlog of a worker that never polls
const maxQueuedCommands = 64

// commandQueue holds commands waiting for a worker's next poll
type commandQueue struct {
	mu      sync.Mutex
	pending map[string][]protocol.WorkerCmd
}

func newCommandQueue() *commandQueue {
	return &commandQueue{pending: make(map[string][]protocol.WorkerCmd)}
}

// push appends cmd, discarding the oldest command when the backlog is full
func (q *commandQueue) push(workerID string, cmd protocol.WorkerCmd) {
	q.mu.Lock()
	defer q.mu.Unlock()

	cmds := append(q.pending[workerID], cmd)
	if len(cmds) > maxQueuedCommands {
		cmds = cmds[len(cmds)-maxQueuedCommands:]
	}
	q.pending[workerID] = cmds
}

// drain returns and clears the commands of workerID, oldest first
func (q *commandQueue) drain(workerID string) []protocol.WorkerCmd {
	q.mu.Lock()
	defer q.mu.Unlock()

	cmds := q.pending[workerID]
	delete(q.pending, workerID)
	if cmds == nil {
		return []protocol.WorkerCmd{}
	}
	return cmds
}

func (q *commandQueue) drop(workerID string) {
	q.mu.Lock()
	defer q.mu.Unlock()
	delete(q.pending, workerID)
}
