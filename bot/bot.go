package bot

import (
	"context"
	"sync"
	"time"

	"github.com/bradselph/ThreadWarden/logger"
	"github.com/bradselph/ThreadWarden/models"
	"github.com/bradselph/ThreadWarden/platform"

	"github.com/bwmarrin/discordgo"
	"github.com/pkg/errors"
)

const handlerTimeout = 30 * time.Second

// ScanLoop is the thread lifecycle controller's long-running loop.
type ScanLoop interface {
	Run(ctx context.Context) error
}

type ThreadUpdateHandler interface {
	HandleThreadUpdate(ctx context.Context, before, after *models.Thread) error
}

type ForumResolver interface {
	Forum(ctx context.Context, forumID string) (*models.Forum, error)
}

// NewSession creates a gateway session that tracks threads in its state so
// thread updates carry the previous snapshot.
func NewSession(token string) (*discordgo.Session, error) {
	if token == "" {
		return nil, errors.New("DISCORD_TOKEN environment variable not set")
	}

	session, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, errors.Wrap(err, "error creating discord session")
	}
	session.Identify.Intents = discordgo.IntentsGuilds
	session.StateEnabled = true
	session.State.TrackChannels = true
	session.State.TrackThreads = true
	return session, nil
}

type handlers struct {
	ctx        context.Context
	forums     ForumResolver
	controller ScanLoop
	listener   ThreadUpdateHandler

	startOnce sync.Once
	done      chan struct{}
}

func newHandlers(ctx context.Context, forums ForumResolver, controller ScanLoop, listener ThreadUpdateHandler) *handlers {
	return &handlers{
		ctx:        ctx,
		forums:     forums,
		controller: controller,
		listener:   listener,
		done:       make(chan struct{}),
	}
}

// StartBot registers the gateway handlers and opens the session. The scan
// loop starts on the first Ready event and stops when ctx is cancelled.
func StartBot(ctx context.Context, session *discordgo.Session, client *platform.DiscordClient, controller ScanLoop, listener ThreadUpdateHandler) error {
	h := newHandlers(ctx, &stateFirstResolver{state: session.State, client: client}, controller, listener)
	session.AddHandler(h.onReady)
	session.AddHandler(h.onThreadUpdate)

	if err := session.Open(); err != nil {
		return errors.Wrap(err, "error connecting to gateway")
	}

	if err := session.UpdateWatchStatus(0, "for inactive forum threads"); err != nil {
		logger.Log.WithError(err).Error("Error setting presence")
	}
	return nil
}

func (h *handlers) onReady(_ *discordgo.Session, r *discordgo.Ready) {
	if r != nil && r.User != nil {
		logger.Log.Infof("Logged in as %s", r.User.Username)
	}

	h.startOnce.Do(func() {
		go func() {
			defer close(h.done)
			defer func() {
				if rec := recover(); rec != nil {
					logger.Log.Errorf("Panic recovered in scan loop: %v", rec)
				}
			}()
			if err := h.controller.Run(h.ctx); err != nil && !errors.Is(err, context.Canceled) {
				logger.Log.WithError(err).Error("Scan loop stopped")
			}
		}()
	})
}

func (h *handlers) onThreadUpdate(_ *discordgo.Session, e *discordgo.ThreadUpdate) {
	defer func() {
		if r := recover(); r != nil {
			logger.Log.Errorf("Panic recovered in thread update handler: %v", r)
		}
	}()

	ctx, cancel := context.WithTimeout(h.ctx, handlerTimeout)
	defer cancel()
	h.handleThreadUpdate(ctx, e)
}

func (h *handlers) handleThreadUpdate(ctx context.Context, e *discordgo.ThreadUpdate) {
	if e == nil || e.Channel == nil || e.ParentID == "" {
		return
	}

	forum, err := h.forums.Forum(ctx, e.ParentID)
	if err != nil {
		// Threads outside forum channels carry no tags.
		logger.Log.WithError(err).WithField("thread", e.ID).Debug("Ignoring update of thread outside a forum")
		return
	}

	after := platform.ThreadFromChannel(e.Channel, forum.AvailableTags)
	var before *models.Thread
	if e.BeforeUpdate != nil {
		before = platform.ThreadFromChannel(e.BeforeUpdate, forum.AvailableTags)
	}

	if err := h.listener.HandleThreadUpdate(ctx, before, after); err != nil {
		logger.Log.WithError(err).WithField("thread", e.ID).Warn("Thread update not handled")
	}
}

// stateFirstResolver reads forums from the gateway state and only falls back
// to the REST client when the channel is not cached.
type stateFirstResolver struct {
	state  *discordgo.State
	client *platform.DiscordClient
}

func (r *stateFirstResolver) Forum(ctx context.Context, forumID string) (*models.Forum, error) {
	if ch, err := r.state.Channel(forumID); err == nil {
		if ch.Type != discordgo.ChannelTypeGuildForum {
			return nil, errors.Errorf("channel %s is not a forum", forumID)
		}
		return platform.ForumFromChannel(ch), nil
	}
	return r.client.Forum(ctx, forumID)
}
