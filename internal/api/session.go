package api

import (
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/embano1/healthscribe-demo/internal/audio"
	"github.com/embano1/healthscribe-demo/internal/conversation"
	"github.com/embano1/healthscribe-demo/internal/highlight"
	"github.com/embano1/healthscribe-demo/internal/notify"
	"github.com/embano1/healthscribe-demo/internal/types"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10

	sendBuffer = 64

	// seekTolerance is how close a reported time must be to a pending seek target for the
	// seek to count as done.
	seekTolerance = 0.25
)

// client -> server message types
const (
	msgReady  = "ready"
	msgPeaks  = "peaks"
	msgTime   = "time"
	msgSeeked = "seeked"
	msgSelect = "select"
	msgSkip   = "skip"
	msgReset  = "reset"
)

// server -> client message types
const (
	msgHighlight    = "highlight"
	msgSeek         = "seek"
	msgNotification = "notification"
	msgRegions      = "regions"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

type clientMessage struct {
	Type          string               `json:"type"`
	Duration      float64              `json:"duration"`
	Peaks         []float64            `json:"peaks"`
	CurrentTime   float64              `json:"currentTime"`
	SummaryKey    string               `json:"summaryKey"`
	EvidenceLinks []types.EvidenceLink `json:"evidenceLinks"`
	Section       string               `json:"section"`
	Entry         int                  `json:"entry"`
	SmallTalk     bool                 `json:"smallTalk"`
	Silence       bool                 `json:"silence"`
}

type highlightMessage struct {
	Type string `json:"type"`
	highlight.Selection
}

type seekMessage struct {
	Type     string  `json:"type"`
	Fraction float64 `json:"fraction"`
}

type notificationMessage struct {
	Type string `json:"type"`
	notify.Notification
}

type regionsMessage struct {
	Type      string         `json:"type"`
	Silence   []audio.Region `json:"silence"`
	SmallTalk []audio.Region `json:"smallTalk"`
	Skipping  []audio.Region `json:"skipping"`
}

// Session streams highlight changes for one conversation to a connected player.
func (h *Handler) Session(c *gin.Context) {
	v, ok := h.conversation(c)
	if !ok {
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.WithError(err).Warn("WebSocket upgrade failed")
		return
	}

	log := h.log.WithFields(logrus.Fields{"job": v.JobName, "request_id": requestID(c)})
	s := newSession(v, conn, log, h.opts)
	log.Info("Session started")
	s.run()
	log.Info("Session closed")
}

// session owns the highlight state of one connection. Only the read loop touches it.
type session struct {
	view *conversation.View
	conn *websocket.Conn
	log  logrus.FieldLogger
	send chan []byte

	player      *remotePlayer
	coordinator *highlight.Coordinator
	skipper     *audio.Skipper

	silence       []audio.Region
	lastHighlight highlight.Selection
}

func newSession(v *conversation.View, conn *websocket.Conn, log logrus.FieldLogger, opts Options) *session {
	s := &session{
		view: v,
		conn: conn,
		log:  log,
		send: make(chan []byte, sendBuffer),
	}
	s.player = &remotePlayer{session: s, duration: v.Duration, loaded: v.Duration > 0}

	n := notify.Multi(notify.NewLogNotifier(log), notify.Func(s.notify))
	s.coordinator = highlight.NewCoordinator(v.Segments, s.player, n)
	s.skipper = audio.NewSkipper(s.player)
	s.silence = v.Silence
	s.skipper.SetSilence(v.Silence)
	s.skipper.SetSmallTalk(v.SmallTalk)
	s.skipper.Enable(opts.SkipSilence, opts.SkipSmallTalk)
	return s
}

func (s *session) run() {
	done := make(chan struct{})
	go func() {
		defer close(done)
		s.writeLoop()
	}()

	s.sendRegions()
	s.readLoop()

	close(s.send)
	<-done
}

func (s *session) readLoop() {
	s.conn.SetReadDeadline(time.Now().Add(pongWait))
	s.conn.SetPongHandler(func(string) error {
		return s.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, raw, err := s.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.log.WithError(err).Warn("WebSocket read failed")
			}
			return
		}
		s.conn.SetReadDeadline(time.Now().Add(pongWait))

		var msg clientMessage
		if err := json.Unmarshal(raw, &msg); err != nil {
			s.notify(notify.New(notify.LevelWarning, notify.KindProtocol, "Malformed message: "+err.Error()))
			continue
		}
		s.handle(msg)
	}
}

func (s *session) writeLoop() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		s.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-s.send:
			s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				s.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}
			if err := s.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				s.log.WithError(err).Warn("WebSocket write failed")
				return
			}
		case <-ticker.C:
			s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (s *session) handle(msg clientMessage) {
	switch msg.Type {
	case msgReady:
		s.player.duration = msg.Duration
		s.player.loaded = msg.Duration > 0

	case msgPeaks:
		duration, ok := s.player.Duration()
		if !ok {
			s.notify(notify.New(notify.LevelInfo, notify.KindAudioNotReady, "Audio is not ready yet. Send peaks after the audio has loaded."))
			return
		}
		s.silence = audio.DetectSilence(msg.Peaks, duration)
		s.skipper.SetSilence(s.silence)
		s.sendRegions()

	case msgTime, msgSeeked:
		if msg.Type == msgSeeked {
			s.player.pending = false
		}
		s.onTime(msg.CurrentTime)

	case msgSelect:
		key, links := msg.SummaryKey, msg.EvidenceLinks
		if msg.Section != "" {
			entry, ok := s.view.Entry(msg.Section, msg.Entry)
			if !ok {
				s.notify(notify.New(notify.LevelWarning, notify.KindProtocol, "Unknown summary entry."))
				return
			}
			key, links = conversation.SummaryKey(msg.Section, msg.Entry), entry.EvidenceLinks
		}
		sel, err := s.coordinator.SelectSegment(key, links)
		if errors.Is(err, highlight.ErrEmptyEvidence) {
			return
		}
		s.sendHighlight(sel)

	case msgSkip:
		s.skipper.Enable(msg.Silence, msg.SmallTalk)
		s.sendRegions()

	case msgReset:
		s.coordinator.Reset()
		s.sendHighlight(s.coordinator.Selection())

	default:
		s.notify(notify.New(notify.LevelWarning, notify.KindProtocol, "Unknown message type "+msg.Type))
	}
}

// onTime applies a playback time update. Updates reported while a seek is still in flight
// describe the old position and are dropped.
func (s *session) onTime(t float64) {
	if s.player.pending {
		if math.Abs(t-s.player.target) > seekTolerance {
			return
		}
		s.player.pending = false
	}

	if _, skipped := s.skipper.OnTimeUpdate(t); skipped {
		return
	}
	if sel := s.coordinator.OnAudioTimeAdvance(t); !sameSelection(sel, s.lastHighlight) {
		s.sendHighlight(sel)
	}
}

func (s *session) sendHighlight(sel highlight.Selection) {
	s.lastHighlight = sel
	s.write(highlightMessage{Type: msgHighlight, Selection: sel})
}

func (s *session) sendRegions() {
	s.write(regionsMessage{
		Type:      msgRegions,
		Silence:   nonNil(s.silence),
		SmallTalk: nonNil(s.view.SmallTalk),
		Skipping:  nonNil(s.skipper.Regions()),
	})
}

func (s *session) notify(n notify.Notification) {
	s.write(notificationMessage{Type: msgNotification, Notification: n})
}

func (s *session) write(v interface{}) {
	raw, err := json.Marshal(v)
	if err != nil {
		s.log.WithError(err).Error("Encoding message failed")
		return
	}
	select {
	case s.send <- raw:
	default:
		s.log.Warn("Send buffer full, message dropped")
	}
}

// remotePlayer stands in for the browser's audio element.
type remotePlayer struct {
	session  *session
	duration float64
	loaded   bool

	pending bool
	target  float64
}

func (p *remotePlayer) Duration() (float64, bool) {
	return p.duration, p.loaded && p.duration > 0
}

func (p *remotePlayer) SeekTo(fraction float64) {
	p.pending = true
	p.target = fraction * p.duration
	p.session.write(seekMessage{Type: msgSeek, Fraction: fraction})
}

func sameSelection(a, b highlight.Selection) bool {
	if a.SelectedSegmentID != b.SelectedSegmentID || len(a.AllSegmentIDs) != len(b.AllSegmentIDs) {
		return false
	}
	for i := range a.AllSegmentIDs {
		if a.AllSegmentIDs[i] != b.AllSegmentIDs[i] {
			return false
		}
	}
	return true
}

func nonNil(r []audio.Region) []audio.Region {
	if r == nil {
		return []audio.Region{}
	}
	return r
}
