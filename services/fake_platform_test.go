package services

import (
	"context"
	"sync"
	"time"

	"github.com/bradselph/ThreadWarden/errorhandler"
	"github.com/bradselph/ThreadWarden/models"
	"github.com/bwmarrin/discordgo"
	"github.com/pkg/errors"
)

const botName = "ThreadWarden"

type call struct {
	Op       string
	TargetID string
	Edit     models.ThreadEdit
	Content  string
	Embed    *discordgo.MessageEmbed
}

// fakePlatform is an in-memory Discord used by the lifecycle and resolution tests.
type fakePlatform struct {
	mu sync.Mutex

	forums   map[string]*models.Forum
	threads  map[string][]*models.Thread
	messages map[string]*models.Message
	history  map[string][]*models.Message
	users    map[string]*models.User

	// failures maps an operation (see editKind) to the error it returns.
	failures map[string]error
	calls    []call
}

func newFakePlatform() *fakePlatform {
	return &fakePlatform{
		forums:   make(map[string]*models.Forum),
		threads:  make(map[string][]*models.Thread),
		messages: make(map[string]*models.Message),
		history:  make(map[string][]*models.Message),
		users:    make(map[string]*models.User),
		failures: make(map[string]error),
	}
}

func (f *fakePlatform) addForum(forum *models.Forum, threads ...*models.Thread) {
	f.forums[forum.ID] = forum
	f.threads[forum.ID] = append(f.threads[forum.ID], threads...)
}

// addMessage stores msg as part of the thread history, newest first.
func (f *fakePlatform) addMessage(threadID string, msg *models.Message) {
	f.messages[threadID+"/"+msg.ID] = msg
	f.history[threadID] = append([]*models.Message{msg}, f.history[threadID]...)
}

func (f *fakePlatform) record(c call) {
	f.calls = append(f.calls, c)
}

func (f *fakePlatform) callsFor(op string) []call {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []call
	for _, c := range f.calls {
		if c.Op == op {
			out = append(out, c)
		}
	}
	return out
}

func (f *fakePlatform) ops() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, 0, len(f.calls))
	for _, c := range f.calls {
		out = append(out, c.Op)
	}
	return out
}

func (f *fakePlatform) Forum(_ context.Context, forumID string) (*models.Forum, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	forum, ok := f.forums[forumID]
	if !ok {
		return nil, errorhandler.NewNotFoundError(errors.New("unknown channel"), "channel "+forumID)
	}
	return forum, nil
}

func (f *fakePlatform) ActiveThreads(_ context.Context, forum *models.Forum) ([]*models.Thread, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.failures["threads"]; err != nil {
		return nil, err
	}
	return f.threads[forum.ID], nil
}

func (f *fakePlatform) Message(_ context.Context, threadID, messageID string) (*models.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.failures["message"]; err != nil {
		return nil, err
	}
	msg, ok := f.messages[threadID+"/"+messageID]
	if !ok {
		return nil, errorhandler.NewNotFoundError(errors.New("unknown message"), "message "+messageID)
	}
	return msg, nil
}

func (f *fakePlatform) History(_ context.Context, threadID string, _ int) ([]*models.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.failures["history"]; err != nil {
		return nil, err
	}
	return append([]*models.Message(nil), f.history[threadID]...), nil
}

func (f *fakePlatform) User(_ context.Context, userID string) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[userID]
	if !ok {
		return nil, errorhandler.NewNotFoundError(errors.New("unknown user"), "user "+userID)
	}
	return u, nil
}

func (f *fakePlatform) EditThread(_ context.Context, threadID string, edit models.ThreadEdit) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	op := editKind(edit)
	f.record(call{Op: op, TargetID: threadID, Edit: edit})
	if err := f.failures[op]; err != nil {
		return errorhandler.NewMutationError(err, "edit thread "+threadID)
	}
	return nil
}

func (f *fakePlatform) SendMessage(_ context.Context, channelID, content string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record(call{Op: "send", TargetID: channelID, Content: content})
	if err := f.failures["send"]; err != nil {
		return errorhandler.NewMutationError(err, "send message to "+channelID)
	}
	msg := &models.Message{
		ID:         "notice-" + channelID,
		AuthorID:   "1",
		AuthorName: botName,
		CreatedAt:  time.Now(),
	}
	f.messages[channelID+"/"+msg.ID] = msg
	f.history[channelID] = append([]*models.Message{msg}, f.history[channelID]...)
	return nil
}

func (f *fakePlatform) SendEmbed(_ context.Context, channelID string, embed *discordgo.MessageEmbed) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record(call{Op: "embed", TargetID: channelID, Embed: embed})
	if err := f.failures["embed"]; err != nil {
		return errorhandler.NewMutationError(err, "send embed to "+channelID)
	}
	return nil
}

// editKind names an edit after the step that issues it.
func editKind(edit models.ThreadEdit) string {
	switch {
	case edit.Locked != nil:
		return "lock"
	case edit.Archived != nil:
		return "archive"
	case edit.AppliedTags != nil && edit.Name != nil:
		return "resolve"
	case edit.AppliedTags != nil:
		return "tags"
	default:
		return "edit"
	}
}

type fakeLedger struct {
	reported map[string]bool
	recorded []*models.ThreadClosure
	err      error
}

func newFakeLedger() *fakeLedger {
	return &fakeLedger{reported: make(map[string]bool)}
}

func (l *fakeLedger) HasReported(_ context.Context, threadID, lastMessageID string) (bool, error) {
	if l.err != nil {
		return false, l.err
	}
	return l.reported[closureKey(threadID, lastMessageID)], nil
}

func (l *fakeLedger) RecordClosure(_ context.Context, closure *models.ThreadClosure) error {
	l.recorded = append(l.recorded, closure)
	l.reported[closureKey(closure.ThreadID, closure.LastMessageID)] = true
	return nil
}
