// Package gameserver dispatches identity-addressed client requests to the
// room registry and fans room snapshots out to connection mailboxes.
package gameserver

import (
	"encoding/json"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/cory-johannsen/hangman/internal/config"
	"github.com/cory-johannsen/hangman/internal/game/roster"
	"github.com/cory-johannsen/hangman/internal/game/session"
	"github.com/cory-johannsen/hangman/internal/observability"
)

// Settings are the room defaults and limits the hub applies to requests.
type Settings struct {
	Word               string
	DefaultMaxWrong    int
	DefaultTurnSeconds int
	MaxWrongLimit      int
	TurnSecondsLimit   int
	HostName           string
	PlayerName         string
	NameMaxLength      int
	MaxRooms           int
	CodeLength         int
	Policy             session.Policy
	OutboxSize         int
}

// NewSettings derives hub settings from configuration.
func NewSettings(game config.GameConfig, limits config.LimitsConfig) Settings {
	return Settings{
		Word:               game.DefaultWord,
		DefaultMaxWrong:    game.DefaultMaxWrong,
		DefaultTurnSeconds: game.DefaultTurnSeconds,
		MaxWrongLimit:      game.MaxWrongLimit,
		TurnSecondsLimit:   game.TurnSecondsLimit,
		HostName:           game.HostName,
		PlayerName:         game.PlayerName,
		NameMaxLength:      game.NameMaxLength,
		MaxRooms:           game.MaxRooms,
		CodeLength:         game.CodeLength,
		Policy: session.Policy{
			ArmInLobby:         game.ArmLobbyClock,
			FreezeWhenFinished: game.FreezeFinished,
		},
		OutboxSize: limits.OutboxSize,
	}
}

// OutcomeSink receives finished games. Enqueue is called with a room lock
// held and must not block.
type OutcomeSink interface {
	Enqueue(o session.Outcome) bool
}

// HubOption configures a Hub.
type HubOption func(*Hub)

// WithOutcomeSink forwards finished games to sink.
func WithOutcomeSink(sink OutcomeSink) HubOption {
	return func(h *Hub) { h.sink = sink }
}

// WithRegistryOptions appends registry options after those derived from Settings.
func WithRegistryOptions(opts ...session.Option) HubOption {
	return func(h *Hub) { h.registryOpts = append(h.registryOpts, opts...) }
}

// WithIDGenerator replaces the connection identity generator.
func WithIDGenerator(fn func() string) HubOption {
	return func(h *Hub) { h.newID = fn }
}

// Hub owns the registry and every connection's mailbox.
//
// Lock order: Hub.mu, then registry and room locks, then Hub.boxMu.
// Publish runs under a room lock and takes only boxMu.
//
// Requests for one identity are expected to arrive serially, which every
// transport guarantees by reading each connection from one goroutine.
type Hub struct {
	logger   *zap.Logger
	settings Settings
	registry *session.Registry
	sink     OutcomeSink
	newID    func() string

	registryOpts []session.Option

	mu      sync.Mutex
	members map[string]string

	boxMu sync.RWMutex
	boxes map[string]*Mailbox

	dropped atomic.Int64
}

// NewHub creates a Hub and its registry.
//
// Precondition: logger must be non-nil.
func NewHub(logger *zap.Logger, settings Settings, opts ...HubOption) *Hub {
	h := &Hub{
		logger:   logger,
		settings: settings,
		newID:    uuid.NewString,
		members:  make(map[string]string),
		boxes:    make(map[string]*Mailbox),
	}
	for _, opt := range opts {
		opt(h)
	}
	regOpts := []session.Option{
		session.WithCapacity(settings.MaxRooms),
		session.WithCodeLength(settings.CodeLength),
		session.WithPolicy(settings.Policy),
		session.WithPublisher(h),
		session.WithOutcomeHandler(h.finished),
	}
	h.registry = session.NewRegistry(append(regOpts, h.registryOpts...)...)
	return h
}

// Connect registers a new connection and returns its mailbox. The mailbox
// ID is the participant identity for every later request.
func (h *Hub) Connect() *Mailbox {
	box := NewMailbox(h.newID(), h.settings.OutboxSize)
	h.boxMu.Lock()
	h.boxes[box.ID()] = box
	h.boxMu.Unlock()
	h.logger.Info("connection opened", zap.String("conn_id", box.ID()))
	return box
}

// Disconnect removes id from its room and closes its mailbox. Idempotent.
func (h *Hub) Disconnect(id string) {
	h.leaveCurrent(id)

	h.boxMu.Lock()
	box, ok := h.boxes[id]
	delete(h.boxes, id)
	h.boxMu.Unlock()
	if ok {
		box.Close()
		h.logger.Info("connection closed", zap.String("conn_id", id))
	}
}

// HandleMessage decodes one inbound frame and dispatches it. Malformed
// frames and unknown types are ignored.
func (h *Hub) HandleMessage(id string, raw []byte) {
	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		h.logger.Debug("ignoring malformed frame", zap.String("conn_id", id), zap.Error(err))
		return
	}
	h.Dispatch(id, env)
}

// Dispatch routes a decoded envelope.
func (h *Hub) Dispatch(id string, env Envelope) {
	payload := env.Payload
	if len(payload) == 0 || string(payload) == "null" {
		payload = json.RawMessage("{}")
	}
	decode := func(v any) bool {
		if err := json.Unmarshal(payload, v); err != nil {
			h.logger.Debug("ignoring malformed payload",
				zap.String("conn_id", id),
				zap.String("type", env.Type),
				zap.Error(err),
			)
			return false
		}
		return true
	}

	switch env.Type {
	case TypeCreate:
		var req CreateRequest
		if decode(&req) {
			h.Create(id, req)
		}
	case TypeJoin:
		var req JoinRequest
		if decode(&req) {
			h.Join(id, req)
		}
	case TypeStartGame:
		var req StartRequest
		if decode(&req) {
			h.Start(id, req)
		}
	case TypeGuess:
		var req GuessRequest
		if decode(&req) {
			h.Guess(id, req)
		}
	case TypeState:
		h.State(id)
	default:
		h.logger.Debug("ignoring unknown message type", zap.String("conn_id", id), zap.String("type", env.Type))
	}
}

// Create opens a room hosted by id, leaving any room id is already in.
//
// Postcondition: On success id receives a state snapshot then roomCreated;
// on failure id receives an error and no room is created.
func (h *Hub) Create(id string, req CreateRequest) {
	h.leaveCurrent(id)

	host := roster.Participant{
		ID:   id,
		Name: NormalizeName(req.Name.Value, h.settings.HostName, h.settings.NameMaxLength),
	}
	cfg := session.Config{
		Word:         h.settings.Word,
		MaxWrong:     bounded(req.MaxWrong, h.settings.DefaultMaxWrong, h.settings.MaxWrongLimit),
		TurnDuration: time.Duration(bounded(req.TurnSeconds, h.settings.DefaultTurnSeconds, h.settings.TurnSecondsLimit)) * time.Second,
	}

	s, err := h.registry.Create(host, cfg)
	if err != nil {
		h.logger.Warn("room creation rejected", zap.String("conn_id", id), zap.Error(err))
		h.sendError(id, err)
		return
	}
	h.setMembership(id, s.Code())
	h.logger.Info("room created",
		append(observability.RoomFields(s.Code(), id),
			zap.Int("max_wrong", cfg.MaxWrong),
			zap.Duration("turn", cfg.TurnDuration),
			zap.Int("rooms", h.registry.Len()),
		)...,
	)
	h.send(id, Message{Type: TypeRoomCreated, RoomCode: s.Code()})
}

// Join adds id to the named room, then leaves any other room id was in.
//
// Postcondition: Unknown rooms and finished rooms produce an error for id
// only, and id keeps its current room.
func (h *Hub) Join(id string, req JoinRequest) {
	code := session.NormalizeCode(req.RoomCode.Value)
	s, ok := h.registry.Get(code)
	if !ok {
		h.sendError(id, session.ErrNotFound)
		return
	}
	if current, _ := h.membership(id); current == code {
		h.send(id, snapshotMessage(s.Snapshot()))
		return
	}
	p := roster.Participant{
		ID:   id,
		Name: NormalizeName(req.Name.Value, h.settings.PlayerName, h.settings.NameMaxLength),
	}
	if err := s.Join(p); err != nil {
		h.sendError(id, err)
		return
	}
	h.leaveCurrent(id)
	h.setMembership(id, code)
	h.logger.Info("participant joined", observability.RoomFields(code, id)...)
}

// Start begins play in the named room, or in id's room when the code is omitted.
// A named room that does not exist produces "room not found"; non-hosts and
// rooms that are not waiting are ignored.
func (h *Hub) Start(id string, req StartRequest) {
	s, ok := h.resolve(id, req.RoomCode)
	if !ok {
		h.notFound(id, req.RoomCode)
		return
	}
	started, err := s.Start(id)
	if errors.Is(err, session.ErrNotFound) {
		h.sendError(id, err)
		return
	}
	if err != nil || !started {
		h.logger.Debug("start ignored", observability.RoomFields(s.Code(), id)...)
		return
	}
	h.logger.Info("game started", observability.RoomFields(s.Code(), id)...)
}

// Guess submits a letter in the named room, or in id's room when the code is
// omitted. A named room that does not exist produces "room not found"; every
// other rejected guess is a silent no-op.
func (h *Hub) Guess(id string, req GuessRequest) {
	if !req.Letter.Set {
		return
	}
	s, ok := h.resolve(id, req.RoomCode)
	if !ok {
		h.notFound(id, req.RoomCode)
		return
	}
	accepted, err := s.Guess(id, req.Letter.Value)
	if errors.Is(err, session.ErrNotFound) {
		h.sendError(id, err)
		return
	}
	h.logger.Debug("guess",
		append(observability.RoomFields(s.Code(), id),
			zap.String("letter", req.Letter.Value),
			zap.Bool("accepted", accepted && err == nil),
		)...,
	)
}

// State sends id the current snapshot of its room, or an error if id is in none.
func (h *Hub) State(id string) {
	s, ok := h.resolve(id, OptionalString{})
	if !ok {
		h.sendError(id, session.ErrNotFound)
		return
	}
	h.send(id, snapshotMessage(s.Snapshot()))
}

// RoomCount returns the number of active rooms.
func (h *Hub) RoomCount() int {
	return h.registry.Len()
}

// Room returns the room id currently belongs to.
func (h *Hub) Room(id string) (string, bool) {
	return h.membership(id)
}

// Dropped returns the number of outbound messages discarded on full mailboxes.
func (h *Hub) Dropped() int64 {
	return h.dropped.Load()
}

// Close tears down every room and closes every mailbox.
func (h *Hub) Close() {
	h.registry.Close()

	h.mu.Lock()
	h.members = make(map[string]string)
	h.mu.Unlock()

	h.boxMu.Lock()
	boxes := h.boxes
	h.boxes = make(map[string]*Mailbox)
	h.boxMu.Unlock()
	for _, box := range boxes {
		box.Close()
	}
}

// Publish implements session.Publisher.
func (h *Hub) Publish(snap session.Snapshot, recipients []string) {
	msg := snapshotMessage(snap)
	h.boxMu.RLock()
	defer h.boxMu.RUnlock()
	for _, id := range recipients {
		h.pushLocked(id, msg)
	}
}

func (h *Hub) finished(o session.Outcome) {
	h.logger.Info("game finished",
		zap.String("room", o.RoomCode),
		zap.String("status", string(o.Status)),
		zap.Int("wrong", o.Wrong),
		zap.Int("players", len(o.Players)),
	)
	if h.sink != nil && !h.sink.Enqueue(o) {
		h.logger.Warn("outcome archive queue full, result dropped", zap.String("room", o.RoomCode))
	}
}

// leaveCurrent removes id from its room, deleting the room when it empties.
func (h *Hub) leaveCurrent(id string) {
	h.mu.Lock()
	code, ok := h.members[id]
	delete(h.members, id)
	h.mu.Unlock()
	if !ok {
		return
	}
	s, ok := h.registry.Get(code)
	if !ok {
		return
	}
	if _, empty := s.Leave(id); empty {
		h.registry.Delete(code)
		h.logger.Info("room closed",
			zap.String("room", code),
			zap.Int("rooms", h.registry.Len()),
		)
	}
}

func (h *Hub) resolve(id string, code OptionalString) (*session.Session, bool) {
	target := session.NormalizeCode(code.Value)
	if target == "" {
		var ok bool
		if target, ok = h.membership(id); !ok {
			return nil, false
		}
	}
	return h.registry.Get(target)
}

// notFound reports a missing room to id when the request named one. A request
// without a code from a participant in no room stays silent.
func (h *Hub) notFound(id string, code OptionalString) {
	if session.NormalizeCode(code.Value) != "" {
		h.sendError(id, session.ErrNotFound)
	}
}

func (h *Hub) membership(id string) (string, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	code, ok := h.members[id]
	return code, ok
}

func (h *Hub) setMembership(id, code string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.members[id] = code
}

func (h *Hub) send(id string, msg Message) {
	h.boxMu.RLock()
	defer h.boxMu.RUnlock()
	h.pushLocked(id, msg)
}

func (h *Hub) sendError(id string, err error) {
	h.send(id, Message{Type: TypeError, Error: ErrorMessage(err)})
}

// pushLocked requires boxMu held for reading.
func (h *Hub) pushLocked(id string, msg Message) {
	box, ok := h.boxes[id]
	if !ok {
		return
	}
	if err := box.Push(msg); err != nil {
		h.dropped.Add(1)
		h.logger.Warn("dropping outbound message",
			zap.String("conn_id", id),
			zap.String("type", msg.Type),
			zap.Error(err),
		)
	}
}

func snapshotMessage(snap session.Snapshot) Message {
	return Message{Type: TypeSnapshot, Snapshot: &snap}
}

// bounded returns v when it is set and within [1, limit], otherwise def.
func bounded(v OptionalInt, def, limit int) int {
	if !v.Set || v.Value < 1 || (limit > 0 && v.Value > limit) {
		return def
	}
	return v.Value
}

// ErrorMessage maps an engine error to the text shown to the requester.
func ErrorMessage(err error) string {
	switch {
	case errors.Is(err, session.ErrCapacity):
		return "maximum number of rooms reached"
	case errors.Is(err, session.ErrNotFound):
		return "room not found"
	case errors.Is(err, session.ErrFinished):
		return "room already finished"
	case errors.Is(err, session.ErrInvalidWord), errors.Is(err, session.ErrInvalidConfig):
		return "invalid room settings"
	default:
		return "room could not be created"
	}
}
