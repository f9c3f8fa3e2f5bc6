package jobs

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/AngelCh415/leadsync/internal/store"
	"github.com/AngelCh415/leadsync/internal/utils"
)

const CRMPollJobName = "crm_poll"

// Refresher re-fetches the CRM export into the snapshot cache.
type Refresher interface {
	Refresh(ctx context.Context) (store.Snapshot, error)
}

// CRMPollJob keeps the snapshot cache warm so dashboard requests rarely wait
// on the upstream sheet. Failed syncs are retried with backoff.
type CRMPollJob struct {
	src     Refresher
	backoff utils.Backoff
	logger  *zap.Logger
	timeout time.Duration
}

func NewCRMPollJob(src Refresher, backoff utils.Backoff, logger *zap.Logger, timeout time.Duration) *CRMPollJob {
	return &CRMPollJob{src: src, backoff: backoff, logger: logger, timeout: timeout}
}

// Run is the scheduler entry point.
func (j *CRMPollJob) Run() {
	ctx, cancel := context.WithTimeout(context.Background(), j.timeout)
	defer cancel()
	_ = j.RunContext(ctx)
}

func (j *CRMPollJob) RunContext(ctx context.Context) error {
	start := time.Now()
	var snap store.Snapshot
	err := j.backoff.Do(ctx, func(attempt int) error {
		var err error
		snap, err = j.src.Refresh(ctx)
		if err != nil {
			j.logger.Warn("crm sync attempt failed",
				zap.Int("attempt", attempt+1),
				zap.Int("max_attempts", j.backoff.Attempts()),
				zap.Error(err))
		}
		return err
	})
	if err != nil {
		j.logger.Error("crm sync failed",
			zap.Error(err),
			zap.Duration("duration", time.Since(start)))
		return err
	}

	j.logger.Info("crm sync completed",
		zap.Int("version", snap.Version),
		zap.Int("bytes", len(snap.Raw)),
		zap.Duration("duration", time.Since(start)))
	return nil
}
