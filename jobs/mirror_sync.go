// ABOUTME: Periodic full rewrite and push of the store mirror
// ABOUTME: Catches writes a failed observer call missed and syncs charm to its server
package jobs

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/incial/crm/mirror"
	"github.com/incial/crm/store"
)

const mirrorSyncTimeout = time.Minute

// MirrorSyncJob rewrites every collection into the mirror.
type MirrorSyncJob struct {
	mirror *mirror.Mirror
	store  *store.Store
	logger *zap.Logger
}

func NewMirrorSyncJob(m *mirror.Mirror, s *store.Store, logger *zap.Logger) *MirrorSyncJob {
	return &MirrorSyncJob{mirror: m, store: s, logger: logger}
}

// Run executes the sync. Errors are logged; the next tick retries.
func (j *MirrorSyncJob) Run() {
	ctx, cancel := context.WithTimeout(context.Background(), mirrorSyncTimeout)
	defer cancel()

	start := time.Now()
	if err := j.mirror.Sync(ctx, j.store); err != nil {
		j.logger.Error("Mirror sync failed",
			zap.String("backend", j.mirror.Backend()),
			zap.Error(err),
		)
		return
	}
	j.logger.Info("Mirror sync completed",
		zap.String("backend", j.mirror.Backend()),
		zap.Duration("duration", time.Since(start)),
	)
}
