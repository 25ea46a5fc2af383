package mirror

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/gotd/td/session"
	"github.com/gotd/td/telegram"
	"github.com/gotd/td/telegram/dcs"
	"github.com/gotd/td/telegram/message"
	"github.com/gotd/td/tg"
	"github.com/gotd/td/tgerr"
	"golang.org/x/net/proxy"

	"github.com/atai-labs/search-mirror/internal/biz/domain"
	"github.com/atai-labs/search-mirror/internal/biz/repo"
)

const (
	fetchAttempts = 6
	fetchDelay    = 700 * time.Millisecond
	startTimeout  = 30 * time.Second
)

// Config holds mirror session settings
type Config struct {
	APIID       int
	APIHash     string
	SessionFile string
	TargetBot   string // upstream bot username, without @
	ProxyAddr   string // optional SOCKS5 host:port
}

// Client is the mirror user-account session talking to the upstream
// search bot over MTProto
type Client struct {
	config Config

	client *telegram.Client
	api    *tg.Client
	sender *message.Sender

	targetMu   sync.RWMutex
	targetID   int64
	targetHash int64

	events chan repo.MirrorEvent

	cancel  context.CancelFunc
	done    chan struct{}
	stopped bool
	stopMu  sync.Mutex
}

// NewClient creates a new mirror client
func NewClient(config Config) *Client {
	config.TargetBot = strings.TrimPrefix(config.TargetBot, "@")
	return &Client{
		config: config,
		events: make(chan repo.MirrorEvent, 100),
		done:   make(chan struct{}),
	}
}

// Start connects the session, resolves the upstream target and begins
// dispatching its messages. Returns once the session is usable.
func (c *Client) Start(ctx context.Context) error {
	dispatcher := tg.NewUpdateDispatcher()
	dispatcher.OnNewMessage(func(ctx context.Context, e tg.Entities, u *tg.UpdateNewMessage) error {
		c.dispatch(repo.MirrorEventNewMessage, u.Message)
		return nil
	})
	dispatcher.OnEditMessage(func(ctx context.Context, e tg.Entities, u *tg.UpdateEditMessage) error {
		c.dispatch(repo.MirrorEventEdit, u.Message)
		return nil
	})

	opts := telegram.Options{
		SessionStorage: &session.FileStorage{Path: c.config.SessionFile},
		UpdateHandler:  dispatcher,
	}
	if c.config.ProxyAddr != "" {
		socks, err := proxy.SOCKS5("tcp", c.config.ProxyAddr, nil, proxy.Direct)
		if err != nil {
			return fmt.Errorf("failed to create proxy dialer: %w", err)
		}
		dialer, ok := socks.(proxy.ContextDialer)
		if !ok {
			return fmt.Errorf("proxy dialer does not support context dialing")
		}
		opts.Resolver = dcs.Plain(dcs.PlainOptions{Dial: dialer.DialContext})
	}

	c.client = telegram.NewClient(c.config.APIID, c.config.APIHash, opts)

	runCtx, cancel := context.WithCancel(context.Background())
	c.cancel = cancel

	ready := make(chan error, 1)
	go func() {
		defer close(c.done)
		err := c.client.Run(runCtx, func(ctx context.Context) error {
			status, err := c.client.Auth().Status(ctx)
			if err != nil {
				return fmt.Errorf("auth status: %w", err)
			}
			if !status.Authorized {
				return fmt.Errorf("mirror session is not authorized, create the session file first")
			}

			c.api = c.client.API()
			c.sender = message.NewSender(c.api)

			if err := c.resolveTarget(ctx); err != nil {
				return err
			}

			ready <- nil
			<-ctx.Done()
			return ctx.Err()
		})
		// Deliver startup failures to the waiting Start call; after
		// startup the error only means shutdown.
		if err != nil {
			select {
			case ready <- err:
			default:
				fmt.Printf("[Mirror] Session terminated: %v\n", err)
			}
		}
	}()

	select {
	case err := <-ready:
		if err != nil {
			cancel()
			return err
		}
	case <-time.After(startTimeout):
		cancel()
		return fmt.Errorf("mirror session start timed out")
	case <-ctx.Done():
		cancel()
		return ctx.Err()
	}

	fmt.Printf("[Mirror] Session started, target @%s (ID: %d)\n", c.config.TargetBot, c.TargetID())
	return nil
}

// Stop disconnects the session
func (c *Client) Stop() {
	c.stopMu.Lock()
	if c.stopped {
		c.stopMu.Unlock()
		return
	}
	c.stopped = true
	c.stopMu.Unlock()

	if c.cancel != nil {
		c.cancel()
	}
	select {
	case <-c.done:
	case <-time.After(5 * time.Second):
	}
	close(c.events)
}

// Events gets the event channel
func (c *Client) Events() <-chan repo.MirrorEvent {
	return c.events
}

// TargetID returns the resolved upstream bot's user ID
func (c *Client) TargetID() int64 {
	c.targetMu.RLock()
	defer c.targetMu.RUnlock()
	return c.targetID
}

// SendCommand sends a message to the upstream bot, retrying once after
// a flood wait
func (c *Client) SendCommand(ctx context.Context, text string) error {
	_, err := c.sender.To(c.peer()).Text(ctx, text)
	if wait, ok := tgerr.AsFloodWait(err); ok {
		fmt.Printf("[Mirror] Flood wait %s before resending\n", wait)
		if err := sleep(ctx, wait+time.Second); err != nil {
			return err
		}
		_, err = c.sender.To(c.peer()).Text(ctx, text)
	}
	if err != nil {
		return fmt.Errorf("failed to send command: %w", err)
	}
	return nil
}

// ClickButton replays a callback payload against an upstream message
func (c *Client) ClickButton(ctx context.Context, msgID int, data []byte) error {
	req := &tg.MessagesGetBotCallbackAnswerRequest{
		Peer:  c.peer(),
		MsgID: msgID,
	}
	req.SetData(data)

	_, err := c.api.MessagesGetBotCallbackAnswer(ctx, req)
	if wait, ok := tgerr.AsFloodWait(err); ok {
		fmt.Printf("[Mirror] Flood wait %s before retrying click\n", wait)
		if err := sleep(ctx, wait+time.Second); err != nil {
			return err
		}
		_, err = c.api.MessagesGetBotCallbackAnswer(ctx, req)
	}
	if err != nil {
		return fmt.Errorf("failed to invoke callback: %w", err)
	}
	return nil
}

// FetchMessage re-reads an upstream message, polling briefly until it
// has content; the upstream edits results in place after a click
func (c *Client) FetchMessage(ctx context.Context, msgID int) (*domain.MirrorMessage, error) {
	for attempt := 0; attempt < fetchAttempts; attempt++ {
		res, err := c.api.MessagesGetMessages(ctx, []tg.InputMessageClass{
			&tg.InputMessageID{ID: msgID},
		})
		if err != nil {
			fmt.Printf("[Mirror] Fetch message failed: %v\n", err)
		} else if msg := firstMessage(res); msg != nil {
			converted := convertMessage(msg)
			if converted.Text != "" || len(converted.Rows) > 0 {
				return converted, nil
			}
		}
		if err := sleep(ctx, fetchDelay); err != nil {
			return nil, err
		}
	}
	return nil, fmt.Errorf("message %d has no content after %d attempts", msgID, fetchAttempts)
}

// resolveTarget looks up the upstream bot and pins its access hash
func (c *Client) resolveTarget(ctx context.Context) error {
	res, err := c.api.ContactsResolveUsername(ctx, c.config.TargetBot)
	if err != nil {
		return fmt.Errorf("failed to resolve target bot @%s: %w", c.config.TargetBot, err)
	}
	for _, u := range res.Users {
		if user, ok := u.(*tg.User); ok && user.Bot {
			c.targetMu.Lock()
			c.targetID = user.ID
			c.targetHash = user.AccessHash
			c.targetMu.Unlock()
			return nil
		}
	}
	return fmt.Errorf("target @%s did not resolve to a bot", c.config.TargetBot)
}

func (c *Client) peer() tg.InputPeerClass {
	c.targetMu.RLock()
	defer c.targetMu.RUnlock()
	return &tg.InputPeerUser{UserID: c.targetID, AccessHash: c.targetHash}
}

// dispatch forwards a target-bot message to the event channel. Other
// traffic on the account is ignored.
func (c *Client) dispatch(eventType repo.MirrorEventType, msg tg.MessageClass) {
	m, ok := msg.(*tg.Message)
	if !ok || m.Out {
		return
	}
	peer, ok := m.PeerID.(*tg.PeerUser)
	if !ok || peer.UserID != c.TargetID() {
		return
	}

	select {
	case c.events <- repo.MirrorEvent{Type: eventType, Message: convertMessage(m)}:
	default:
		fmt.Printf("[Mirror] Event buffer full, dropping %s for msg %d\n", eventType, m.ID)
	}
}

// firstMessage extracts the first concrete message from a fetch result
func firstMessage(res tg.MessagesMessagesClass) *tg.Message {
	var messages []tg.MessageClass
	switch v := res.(type) {
	case *tg.MessagesMessages:
		messages = v.Messages
	case *tg.MessagesMessagesSlice:
		messages = v.Messages
	case *tg.MessagesChannelMessages:
		messages = v.Messages
	}
	for _, m := range messages {
		if msg, ok := m.(*tg.Message); ok {
			return msg
		}
	}
	return nil
}

// convertMessage normalizes an MTProto message into the domain type
func convertMessage(m *tg.Message) *domain.MirrorMessage {
	out := &domain.MirrorMessage{ID: m.ID, Text: m.Message}

	markup, ok := m.GetReplyMarkup()
	if !ok {
		return out
	}
	inline, ok := markup.(*tg.ReplyInlineMarkup)
	if !ok {
		return out
	}

	for _, row := range inline.Rows {
		var outRow []domain.Button
		for _, btn := range row.Buttons {
			switch b := btn.(type) {
			case *tg.KeyboardButtonURL:
				outRow = append(outRow, domain.Button{Label: b.Text, URL: b.URL, SourceMsgID: m.ID})
			case *tg.KeyboardButtonCallback:
				outRow = append(outRow, domain.Button{Label: b.Text, Data: b.Data, SourceMsgID: m.ID})
			}
		}
		if len(outRow) > 0 {
			out.Rows = append(out.Rows, outRow)
		}
	}
	return out
}

func sleep(ctx context.Context, d time.Duration) error {
	select {
	case <-time.After(d):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
