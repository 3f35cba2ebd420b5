package platform

import (
	"context"

	"github.com/bradselph/ThreadWarden/errorhandler"
	"github.com/bradselph/ThreadWarden/models"
	"github.com/bwmarrin/discordgo"
	"github.com/pkg/errors"
	"golang.org/x/time/rate"
)

// maxPageSize is the largest page Discord returns for message history.
const maxPageSize = 100

// DiscordClient performs thread lifecycle operations against the Discord REST
// API. Every call waits on a shared rate limiter first.
type DiscordClient struct {
	session *discordgo.Session
	limiter *rate.Limiter
}

func NewDiscordClient(session *discordgo.Session, rps float64, burst int) *DiscordClient {
	if rps <= 0 {
		rps = 5
	}
	if burst <= 0 {
		burst = 1
	}
	return &DiscordClient{
		session: session,
		limiter: rate.NewLimiter(rate.Limit(rps), burst),
	}
}

func (c *DiscordClient) wait(ctx context.Context) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return errors.Wrap(err, "rate limiter")
	}
	return nil
}

func (c *DiscordClient) Forum(ctx context.Context, forumID string) (*models.Forum, error) {
	if err := c.wait(ctx); err != nil {
		return nil, err
	}

	ch, err := c.session.Channel(forumID, discordgo.WithContext(ctx))
	if err != nil {
		return nil, classify(err, "channel "+forumID)
	}
	if ch.Type != discordgo.ChannelTypeGuildForum {
		return nil, errorhandler.NewNotFoundError(errors.Errorf("channel %s is not a forum", forumID), "forum "+forumID)
	}
	return ForumFromChannel(ch), nil
}

func (c *DiscordClient) ActiveThreads(ctx context.Context, forum *models.Forum) ([]*models.Thread, error) {
	if err := c.wait(ctx); err != nil {
		return nil, err
	}

	list, err := c.session.GuildThreadsActive(forum.GuildID, discordgo.WithContext(ctx))
	if err != nil {
		return nil, classify(err, "active threads of guild "+forum.GuildID)
	}

	threads := make([]*models.Thread, 0)
	for _, ch := range list.Threads {
		if ch.ParentID != forum.ID {
			continue
		}
		threads = append(threads, ThreadFromChannel(ch, forum.AvailableTags))
	}
	return threads, nil
}

func (c *DiscordClient) Message(ctx context.Context, threadID, messageID string) (*models.Message, error) {
	if err := c.wait(ctx); err != nil {
		return nil, err
	}

	m, err := c.session.ChannelMessage(threadID, messageID, discordgo.WithContext(ctx))
	if err != nil {
		return nil, classify(err, "message "+messageID)
	}
	return MessageFromDiscord(m), nil
}

// History returns the thread's messages newest first. A limit of zero or less
// reads the whole history.
func (c *DiscordClient) History(ctx context.Context, threadID string, limit int) ([]*models.Message, error) {
	messages := make([]*models.Message, 0)
	before := ""

	for {
		pageSize := maxPageSize
		if limit > 0 {
			remaining := limit - len(messages)
			if remaining <= 0 {
				return messages, nil
			}
			if remaining < pageSize {
				pageSize = remaining
			}
		}

		if err := c.wait(ctx); err != nil {
			return nil, err
		}
		page, err := c.session.ChannelMessages(threadID, pageSize, before, "", "", discordgo.WithContext(ctx))
		if err != nil {
			return nil, classify(err, "history of thread "+threadID)
		}

		for _, m := range page {
			messages = append(messages, MessageFromDiscord(m))
		}
		if len(page) < pageSize {
			return messages, nil
		}
		before = page[len(page)-1].ID
	}
}

func (c *DiscordClient) User(ctx context.Context, userID string) (*models.User, error) {
	if err := c.wait(ctx); err != nil {
		return nil, err
	}

	u, err := c.session.User(userID, discordgo.WithContext(ctx))
	if err != nil {
		return nil, classify(err, "user "+userID)
	}
	return &models.User{ID: u.ID, Name: u.Username}, nil
}

func (c *DiscordClient) EditThread(ctx context.Context, threadID string, edit models.ThreadEdit) error {
	if err := c.wait(ctx); err != nil {
		return err
	}

	data := &discordgo.ChannelEdit{
		Locked:      edit.Locked,
		Archived:    edit.Archived,
		AppliedTags: edit.AppliedTags,
	}
	if edit.Name != nil {
		data.Name = *edit.Name
	}

	if _, err := c.session.ChannelEdit(threadID, data, discordgo.WithContext(ctx)); err != nil {
		return errorhandler.NewMutationError(err, "edit thread "+threadID)
	}
	return nil
}

func (c *DiscordClient) SendMessage(ctx context.Context, channelID, content string) error {
	if err := c.wait(ctx); err != nil {
		return err
	}

	if _, err := c.session.ChannelMessageSend(channelID, content, discordgo.WithContext(ctx)); err != nil {
		return errorhandler.NewMutationError(err, "send message to "+channelID)
	}
	return nil
}

func (c *DiscordClient) SendEmbed(ctx context.Context, channelID string, embed *discordgo.MessageEmbed) error {
	if err := c.wait(ctx); err != nil {
		return err
	}

	if _, err := c.session.ChannelMessageSendEmbed(channelID, embed, discordgo.WithContext(ctx)); err != nil {
		return errorhandler.NewMutationError(err, "send embed to "+channelID)
	}
	return nil
}

func classify(err error, what string) error {
	if errorhandler.IsNotFound(err) {
		return errorhandler.NewNotFoundError(err, what)
	}
	return errorhandler.NewDiscordError(err, what)
}
