package chat

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"phrasedesk/internal/model"
	"phrasedesk/internal/realtime"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

// Watcher follows the team chat through the websocket push and a polling
// fallback. Both feed one Timeline so each message is emitted once.
type Watcher struct {
	Server string // base URL, e.g. http://localhost:8080
	Token  string
	Poll   time.Duration
	Limit  int
	Client *http.Client

	timeline *Timeline
	emit     func(model.ChatMessage)
}

// NewWatcher returns a watcher that calls emit for every new message in id order
func NewWatcher(server, token string, poll time.Duration, emit func(model.ChatMessage)) *Watcher {
	if poll <= 0 {
		poll = 5 * time.Second
	}
	return &Watcher{
		Server:   strings.TrimRight(server, "/"),
		Token:    token,
		Poll:     poll,
		Limit:    50,
		Client:   &http.Client{Timeout: 10 * time.Second},
		timeline: NewTimeline(),
		emit:     emit,
	}
}

// Timeline exposes the merged message set
func (w *Watcher) Timeline() *Timeline {
	return w.timeline
}

// Run blocks until ctx is cancelled. A dropped websocket is redialled on the
// next poll tick; polling keeps the timeline complete in between.
func (w *Watcher) Run(ctx context.Context) error {
	if err := w.PollOnce(ctx); err != nil {
		return err
	}

	pushed := make(chan []model.ChatMessage, 16)
	var conn *websocket.Conn
	defer func() {
		if conn != nil {
			_ = conn.Close()
		}
	}()

	dial := func() {
		c, err := w.dial(ctx)
		if err != nil {
			log.Debug().Err(err).Msg("chat websocket unavailable, polling only")
			return
		}
		conn = c
		go w.readPush(ctx, c, pushed)
	}
	dial()

	ticker := time.NewTicker(w.Poll)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msgs, ok := <-pushed:
			if !ok {
				pushed = make(chan []model.ChatMessage, 16)
				conn = nil
				continue
			}
			w.merge(msgs)
		case <-ticker.C:
			if err := w.PollOnce(ctx); err != nil {
				log.Warn().Err(err).Msg("chat poll failed")
			}
			if conn == nil {
				dial()
			}
		}
	}
}

func (w *Watcher) merge(msgs []model.ChatMessage) {
	for _, m := range w.timeline.Merge(msgs...) {
		if w.emit != nil {
			w.emit(m)
		}
	}
}

// PollOnce fetches every message above the timeline's high-water mark
func (w *Watcher) PollOnce(ctx context.Context) error {
	q := url.Values{}
	if high := w.timeline.HighWater(); high > 0 {
		q.Set("after", strconv.FormatUint(uint64(high), 10))
	}
	if w.Limit > 0 {
		q.Set("limit", strconv.Itoa(w.Limit))
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, w.Server+"/api/chat/messages?"+q.Encode(), nil)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+w.Token)

	resp, err := w.Client.Do(req)
	if err != nil {
		return fmt.Errorf("poll chat: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("poll chat: status %d: %s", resp.StatusCode, bytes.TrimSpace(body))
	}

	var env struct {
		Data []model.ChatMessage `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return fmt.Errorf("poll chat: decode: %w", err)
	}
	w.merge(env.Data)
	return nil
}

func (w *Watcher) dial(ctx context.Context) (*websocket.Conn, error) {
	u, err := url.Parse(w.Server)
	if err != nil {
		return nil, err
	}
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	default:
		u.Scheme = "ws"
	}
	u.Path = "/ws"
	u.RawQuery = url.Values{"token": {w.Token}, "tables": {realtime.TableChat}}.Encode()

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, u.String(), nil)
	return conn, err
}

// readPush decodes hub frames until the connection drops or ctx ends, then closes out
func (w *Watcher) readPush(ctx context.Context, conn *websocket.Conn, out chan<- []model.ChatMessage) {
	defer close(out)
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		msgs := DecodeFrame(data)
		if len(msgs) == 0 {
			continue
		}
		select {
		case out <- msgs:
		case <-ctx.Done():
			return
		}
	}
}

// DecodeFrame extracts chat inserts from a hub frame. A frame may carry several
// newline separated events.
func DecodeFrame(data []byte) []model.ChatMessage {
	var out []model.ChatMessage
	sc := bufio.NewScanner(bytes.NewReader(data))
	sc.Buffer(make([]byte, 0, 64*1024), 1<<20)
	for sc.Scan() {
		line := bytes.TrimSpace(sc.Bytes())
		if len(line) == 0 {
			continue
		}
		var ev struct {
			Table  string             `json:"table"`
			Type   realtime.EventType `json:"type"`
			Record json.RawMessage    `json:"record"`
		}
		if err := json.Unmarshal(line, &ev); err != nil {
			continue
		}
		if ev.Table != realtime.TableChat || ev.Type != realtime.Insert {
			continue
		}
		var m model.ChatMessage
		if err := json.Unmarshal(ev.Record, &m); err == nil {
			out = append(out, m)
		}
	}
	return out
}
