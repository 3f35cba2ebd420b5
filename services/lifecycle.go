package services

import (
	"context"
	"time"

	"github.com/bradselph/ThreadWarden/errorhandler"
	"github.com/bradselph/ThreadWarden/logger"
	"github.com/bradselph/ThreadWarden/metrics"
	"github.com/bradselph/ThreadWarden/models"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// Lock-and-close steps, in the order they run.
const (
	stepLock    = "lock"
	stepNotice  = "notice"
	stepTag     = "tag"
	stepArchive = "archive"
	stepReport  = "report"
)

// MaxAppliedTags is the most tags Discord allows on one forum thread.
const MaxAppliedTags = 5

type LifecycleConfig struct {
	ForumIDs        []string
	ExemptThreadIDs []string
	InactiveDays    int
	ReportChannelID string
	AutoLockTagName string
	LockedMarker    string
	MaxNameLength   int
	ForumPause      time.Duration
	Location        *time.Location
}

// LifecycleController locks and archives forum threads that have been
// inactive for longer than the configured number of days.
type LifecycleController struct {
	platform Platform
	ledger   ClosureLedger
	schedule Schedule
	cfg      LifecycleConfig
	exempt   map[string]struct{}

	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error
}

func NewLifecycleController(platform Platform, ledger ClosureLedger, schedule Schedule, cfg LifecycleConfig) *LifecycleController {
	if ledger == nil {
		ledger = NewMemoryLedger()
	}
	if schedule == nil {
		schedule = IntervalSchedule{Interval: 24 * time.Hour}
	}
	if cfg.MaxNameLength <= 0 {
		cfg.MaxNameLength = DefaultMaxNameLength
	}
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	return &LifecycleController{
		platform: platform,
		ledger:   ledger,
		schedule: schedule,
		cfg:      cfg,
		exempt:   idSet(cfg.ExemptThreadIDs),
		now:      time.Now,
		sleep:    sleepContext,
	}
}

func (c *LifecycleController) threshold() time.Duration {
	return time.Duration(c.cfg.InactiveDays) * 24 * time.Hour
}

// Run scans every configured forum, waits for the next scheduled cycle and
// repeats until ctx is cancelled.
func (c *LifecycleController) Run(ctx context.Context) error {
	logger.Log.WithField("forums", len(c.cfg.ForumIDs)).
		WithField("inactive_days", c.cfg.InactiveDays).
		Info("Starting thread lifecycle scan loop")

	for {
		if err := c.RunScanCycle(ctx); err != nil {
			return err
		}

		now := c.now()
		next, err := c.schedule.Next(now)
		if err != nil {
			logger.Log.WithError(err).Error("Failed to compute next scan time, retrying in 24h")
			next = now.Add(24 * time.Hour)
		}
		logger.Log.Infof("Next scan cycle at %s", next.Format(time.RFC3339))

		if err := c.sleep(ctx, next.Sub(now)); err != nil {
			logger.Log.Info("Thread lifecycle scan loop stopped")
			return err
		}
	}
}

// RunScanCycle scans each configured forum once. Forum and thread failures
// are logged and skipped; only cancellation of ctx is returned.
func (c *LifecycleController) RunScanCycle(ctx context.Context) error {
	started := c.now()
	var scanned, closed int

	for i, forumID := range c.cfg.ForumIDs {
		if err := ctx.Err(); err != nil {
			return err
		}

		if i > 0 {
			if err := c.sleep(ctx, c.cfg.ForumPause); err != nil {
				return err
			}
		}

		s, cl := c.scanForum(ctx, forumID)
		scanned += s
		closed += cl
	}

	metrics.ScanCycles.Inc()
	metrics.LastScanTimestamp.SetToCurrentTime()
	logger.Log.WithFields(logrus.Fields{
		"forums":   len(c.cfg.ForumIDs),
		"scanned":  scanned,
		"closed":   closed,
		"duration": c.now().Sub(started).Round(time.Millisecond).String(),
	}).Info("Scan cycle complete")
	return ctx.Err()
}

func (c *LifecycleController) scanForum(ctx context.Context, forumID string) (scanned, closed int) {
	forum, err := c.platform.Forum(ctx, forumID)
	if err != nil {
		metrics.ForumResolveFailures.WithLabelValues(forumID).Inc()
		logger.Log.WithError(err).Errorf("Cannot find forum with ID %s", forumID)
		return 0, 0
	}

	threads, err := c.platform.ActiveThreads(ctx, forum)
	if err != nil {
		logger.Log.WithError(err).Errorf("Failed to list threads of forum %s", forumID)
		return 0, 0
	}

	for _, thread := range threads {
		if ctx.Err() != nil {
			return scanned, closed
		}
		if thread.Archived || c.isExempt(thread.ID) {
			continue
		}

		scanned++
		metrics.ThreadsScanned.WithLabelValues(forumID).Inc()

		last, ok := c.lastActivity(ctx, thread)
		if !ok || !IsInactive(c.now(), last.CreatedAt, c.threshold()) {
			continue
		}

		if err := c.lockAndClose(ctx, forum, thread, last); err != nil {
			logger.Log.WithError(err).WithField("thread", thread.ID).Error("Failed to close inactive thread")
			continue
		}
		closed++
	}
	return scanned, closed
}

func (c *LifecycleController) isExempt(threadID string) bool {
	_, ok := c.exempt[threadID]
	return ok
}

// lastActivity fetches the thread's last message. A thread without one, or
// whose last message was deleted, is not eligible this cycle.
func (c *LifecycleController) lastActivity(ctx context.Context, thread *models.Thread) (*models.Message, bool) {
	if thread.LastMessageID == "" {
		return nil, false
	}

	msg, err := c.platform.Message(ctx, thread.ID, thread.LastMessageID)
	if err != nil {
		if errorhandler.IsNotFound(err) {
			logger.Log.WithField("thread", thread.ID).Debug("Last message not found, skipping thread")
		} else {
			logger.Log.WithError(err).WithField("thread", thread.ID).Warn("Failed to fetch last message")
		}
		return nil, false
	}
	return msg, true
}

// lockAndClose runs the lock, notice, tag, archive and report steps in order.
// The first failing step aborts the rest; completed steps are kept.
func (c *LifecycleController) lockAndClose(ctx context.Context, forum *models.Forum, thread *models.Thread, last *models.Message) error {
	log := logger.Log.WithField("thread", thread.ID).WithField("forum", forum.ID)

	name := WithMarker(c.cfg.LockedMarker, thread.Name, c.cfg.MaxNameLength)
	locked := true
	if err := c.platform.EditThread(ctx, thread.ID, models.ThreadEdit{Name: &name, Locked: &locked}); err != nil {
		return c.stepFailed(stepLock, thread, err)
	}
	thread.Name = name
	thread.Locked = true
	log.Infof("Thread locked and renamed in %s", forum.Name)

	if err := c.platform.SendMessage(ctx, thread.ID, LockNotice(c.cfg.InactiveDays)); err != nil {
		return c.stepFailed(stepNotice, thread, err)
	}

	if err := c.appendAutoLockTag(ctx, forum, thread, log); err != nil {
		return c.stepFailed(stepTag, thread, err)
	}

	archived := true
	if err := c.platform.EditThread(ctx, thread.ID, models.ThreadEdit{Archived: &archived}); err != nil {
		return c.stepFailed(stepArchive, thread, err)
	}
	thread.Archived = true
	closedAt := c.now()
	metrics.ThreadsClosed.WithLabelValues(forum.ID).Inc()
	log.Infof("Thread closed in %s", forum.Name)

	if c.cfg.ReportChannelID == "" {
		return nil
	}
	if err := c.reportClosure(ctx, forum, thread, last, closedAt); err != nil {
		return c.stepFailed(stepReport, thread, err)
	}
	return nil
}

// appendAutoLockTag adds the forum's auto-lock tag to the thread's tags. It is
// a no-op when the forum has no such tag or the thread already carries it. A
// thread at Discord's tag limit is left alone with a warning.
func (c *LifecycleController) appendAutoLockTag(ctx context.Context, forum *models.Forum, thread *models.Thread, log *logrus.Entry) error {
	tag, ok := FindTag(forum.AvailableTags, c.cfg.AutoLockTagName)
	if !ok || HasTag(thread.AppliedTags, tag.Name) {
		return nil
	}
	if len(thread.AppliedTags) >= MaxAppliedTags {
		log.Warnf("Thread already has %d tags, not adding %q", len(thread.AppliedTags), tag.Name)
		return nil
	}

	tags := append(thread.AppliedTagIDs(), tag.ID)
	if err := c.platform.EditThread(ctx, thread.ID, models.ThreadEdit{AppliedTags: &tags}); err != nil {
		return err
	}
	thread.AppliedTags = append(thread.AppliedTags, tag)
	return nil
}

func (c *LifecycleController) reportClosure(ctx context.Context, forum *models.Forum, thread *models.Thread, last *models.Message, closedAt time.Time) error {
	reported, err := c.ledger.HasReported(ctx, thread.ID, last.ID)
	if err != nil {
		return errors.Wrap(err, "check closure ledger")
	}
	if reported {
		metrics.StatsReports.WithLabelValues("duplicate").Inc()
		logger.Log.WithField("thread", thread.ID).Debug("Statistics already sent for this closure")
		return nil
	}

	stats, err := AggregateThreadStats(ctx, c.platform, thread, closedAt)
	if err != nil {
		metrics.StatsReports.WithLabelValues("failed").Inc()
		return err
	}

	embed := CreateStatsEmbed(stats, c.cfg.LockedMarker, c.cfg.Location)
	if err := c.platform.SendEmbed(ctx, c.cfg.ReportChannelID, embed); err != nil {
		metrics.StatsReports.WithLabelValues("failed").Inc()
		return err
	}
	metrics.StatsReports.WithLabelValues("sent").Inc()

	closure := &models.ThreadClosure{
		ThreadID:         thread.ID,
		LastMessageID:    last.ID,
		ForumID:          forum.ID,
		GuildID:          forum.GuildID,
		ThreadName:       thread.Name,
		ClosedAt:         closedAt,
		ParticipantCount: stats.ParticipantCount,
		MessageCount:     stats.MessageCount,
		ReportChannelID:  c.cfg.ReportChannelID,
	}
	if err := c.ledger.RecordClosure(ctx, closure); err != nil {
		logger.Log.WithError(err).WithField("thread", thread.ID).Error("Failed to record thread closure")
	}
	return nil
}

func (c *LifecycleController) stepFailed(step string, thread *models.Thread, err error) error {
	metrics.LockStepFailures.WithLabelValues(step).Inc()
	return errors.Wrapf(err, "lock-and-close step %q for thread %s", step, thread.ID)
}

func idSet(ids []string) map[string]struct{} {
	set := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set
}
