package worker

import (
	"context"
	"fmt"

	"github.com/hibiken/asynq"
	"github.com/sirupsen/logrus"
)

// Sweeper deletes expired revocations and reports how many went.
type Sweeper interface {
	SweepExpired(ctx context.Context) (int64, error)
}

// RevokedSweepHandler processes tasks.TypeRevokedSweep.
type RevokedSweepHandler struct {
	sweeper Sweeper
}

func NewRevokedSweepHandler(sweeper Sweeper) *RevokedSweepHandler {
	if sweeper == nil {
		panic("Sweeper cannot be nil for RevokedSweepHandler")
	}
	return &RevokedSweepHandler{sweeper: sweeper}
}

// ProcessTask implements asynq.Handler.
func (h *RevokedSweepHandler) ProcessTask(ctx context.Context, t *asynq.Task) error {
	taskID := ""
	if rw := t.ResultWriter(); rw != nil {
		taskID = rw.TaskID()
	}
	currentRetry, _ := asynq.GetRetryCount(ctx)
	logCtx := logrus.WithFields(logrus.Fields{
		"task_id":   taskID,
		"task_type": t.Type(),
		"retry":     currentRetry,
	})
	logCtx.Info("Processing revoked token sweep...")

	n, err := h.sweeper.SweepExpired(ctx)
	if err != nil {
		return fmt.Errorf("sweep revoked tokens: %w", err)
	}
	logCtx.WithField("deleted", n).Info("Revoked token sweep finished")
	return nil
}
