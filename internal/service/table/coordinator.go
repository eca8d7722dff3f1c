package table

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"pokermates/internal/service/game"
	"pokermates/internal/service/ledger"
	appErr "pokermates/pkg/errors"
	"pokermates/pkg/logger"
	"pokermates/pkg/monitor"

	"go.uber.org/zap"
)

const outboundBuffer = 8

// Coordinator is the single authority a connection talks to. It owns one
// lock-guarded session per room; operations on different rooms never share
// a lock. Durable effects go through the ledger first, then the in-memory
// session is updated and the new snapshot broadcast; on error nothing is
// mutated and only the caller hears about it.
type Coordinator struct {
	mu       sync.RWMutex
	sessions map[int64]*session

	ledger  *ledger.Service
	games   *game.Service
	metrics *monitor.Metrics

	newRand func() *rand.Rand
}

type Option func(*Coordinator)

// WithRandSource fixes the deck shuffle source, for replayable tests.
func WithRandSource(f func() *rand.Rand) Option {
	return func(c *Coordinator) { c.newRand = f }
}

func WithMetrics(m *monitor.Metrics) Option {
	return func(c *Coordinator) { c.metrics = m }
}

func NewCoordinator(ledgerSvc *ledger.Service, gameSvc *game.Service, opts ...Option) *Coordinator {
	c := &Coordinator{
		sessions: make(map[int64]*session),
		ledger:   ledgerSvc,
		games:    gameSvc,
		newRand: func() *rand.Rand {
			return rand.New(rand.NewSource(time.Now().UnixNano()))
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// SyncRoomState re-reads ledger truth for the room and merges it into the
// in-memory session. Returns nil and evicts the session when the room no
// longer exists.
func (c *Coordinator) SyncRoomState(ctx context.Context, roomID int64) (*RoomSnapshot, error) {
	sess, err := c.getSession(ctx, roomID)
	if err != nil {
		return nil, err
	}
	if sess == nil {
		return nil, nil
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()
	if err := c.syncLocked(ctx, sess); err != nil {
		return nil, err
	}
	if sess.members == nil {
		return nil, nil
	}
	snap := sess.snapshotLocked(0)
	return &snap, nil
}

// Connect registers a live connection for an already-seated member and
// returns its outbound channel. The new connection gets a full snapshot
// immediately, and the room hears an updated presence broadcast.
func (c *Coordinator) Connect(ctx context.Context, connID string, roomID, userID int64) (<-chan OutgoingMessage, error) {
	sess, err := c.getSession(ctx, roomID)
	if err != nil {
		return nil, err
	}
	if sess == nil {
		return nil, appErr.ErrRoomNotFound
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()

	if err := c.syncLocked(ctx, sess); err != nil {
		return nil, err
	}
	if sess.members == nil {
		return nil, appErr.ErrRoomNotFound
	}
	member := sess.memberByUser(userID)
	if member == nil {
		return nil, appErr.ErrNotAMember
	}

	ch := make(chan OutgoingMessage, outboundBuffer)
	member.conns[connID] = ch
	if c.metrics != nil {
		c.metrics.OpenConnections.Inc()
	}

	c.pushLocked(sess, member, connID)
	c.broadcastLocked(sess)
	return ch, nil
}

// Disconnect drops a single connection. The seat stays; closing one tab
// never evicts a multi-tab player, and even the last tab closing leaves the
// member seated until an explicit leave.
func (c *Coordinator) Disconnect(roomID, userID int64, connID string) {
	sess := c.lookup(roomID)
	if sess == nil {
		return
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()
	member := sess.memberByUser(userID)
	if member == nil {
		return
	}
	if ch, ok := member.conns[connID]; ok {
		delete(member.conns, connID)
		close(ch)
		if c.metrics != nil {
			c.metrics.OpenConnections.Dec()
		}
	}
	c.broadcastLocked(sess)
}

// Leave is the deliberate exit: the durable seat is removed (folding the
// player out of any running hand first), the stack returns to the global
// balance, and the room either re-broadcasts or dissolves.
func (c *Coordinator) Leave(ctx context.Context, roomID, userID int64, connID string) error {
	sess := c.lookup(roomID)
	if sess == nil {
		// no live session; still honor the durable leave
		_, err := c.ledger.LeaveRoom(ctx, roomID, userID)
		return err
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()

	if member := sess.memberByUser(userID); member != nil && connID != "" {
		if ch, ok := member.conns[connID]; ok {
			delete(member.conns, connID)
			close(ch)
			if c.metrics != nil {
				c.metrics.OpenConnections.Dec()
			}
		}
	}

	if sess.hand != nil && !sess.hand.Finished() {
		if seat := sess.hand.SeatOf(userID); seat != nil {
			if err := sess.hand.ForceFold(userID); err != nil {
				return err
			}
			if sess.hand.Finished() {
				if err := c.finishHandLocked(ctx, sess); err != nil {
					return err
				}
			} else if err := c.games.FlushSeatStack(ctx, roomID, userID, seat.Stack); err != nil {
				return err
			}
		}
	}

	details, err := c.ledger.LeaveRoom(ctx, roomID, userID)
	if err != nil {
		return err
	}
	if details == nil {
		c.evict(roomID, sess)
		return nil
	}

	// closes the leaver's remaining connections (other tabs) with the rest
	// of the merge
	c.applyDetailsLocked(sess, details)
	c.broadcastLocked(sess)
	return nil
}

// applyDetailsLocked merges ledger truth into the session and keeps the
// connection gauge in step with the channels the merge closed.
func (c *Coordinator) applyDetailsLocked(sess *session, details *ledger.RoomDetails) {
	closed := sess.applyDetails(details)
	if c.metrics != nil && closed > 0 {
		c.metrics.OpenConnections.Sub(float64(closed))
	}
}

// StartHand deals a new hand for the room. At most one non-complete hand
// exists per room, enforced here under the session lock.
func (c *Coordinator) StartHand(ctx context.Context, roomID, userID int64) error {
	sess := c.lookup(roomID)
	if sess == nil {
		return appErr.ErrRoomNotFound
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()

	if sess.memberByUser(userID) == nil {
		return appErr.ErrNotAMember
	}
	if sess.hand != nil && !sess.hand.Finished() {
		return appErr.ErrHandInProgress
	}
	if sess.hand != nil && !sess.settled {
		// the previous hand's write-back failed; settle it before any
		// new deal can rebuild seats from ledger truth
		if err := c.finishHandLocked(ctx, sess); err != nil {
			return err
		}
	}

	if err := c.syncLocked(ctx, sess); err != nil {
		return err
	}
	if sess.members == nil {
		return appErr.ErrRoomNotFound
	}

	seats := make([]game.SeatConfig, 0, len(sess.members))
	for _, m := range sess.members {
		if m.Chips <= 0 {
			continue
		}
		seats = append(seats, game.SeatConfig{
			UserID:   m.UserID,
			Username: m.Username,
			Stack:    m.Chips,
		})
	}
	if len(seats) < 2 {
		return appErr.ErrNotEnoughPlayers
	}

	sess.dealerIdx = (sess.dealerIdx + 1) % len(seats)
	hand, err := game.NewHand(roomID, seats, sess.smallBlind, sess.bigBlind, sess.dealerIdx, c.newRand())
	if err != nil {
		return err
	}

	handID, err := c.games.RecordHandStart(ctx, hand)
	if err != nil {
		return err
	}
	sess.hand = hand
	sess.handID = handID
	sess.settled = false
	if c.metrics != nil {
		c.metrics.HandsStarted.Inc()
	}
	logger.Log.Info("hand started",
		zap.Int64("roomID", roomID),
		zap.Int64("handID", handID),
		zap.Int("players", len(seats)),
	)

	// blinds may already have decided everything on a degenerate deal
	if hand.Finished() {
		if err := c.finishHandLocked(ctx, sess); err != nil {
			c.broadcastLocked(sess)
			return err
		}
	}
	c.broadcastLocked(sess)
	return nil
}

// Act applies a betting action from userID. Turn order is enforced by the
// engine regardless of message arrival order.
func (c *Coordinator) Act(ctx context.Context, roomID, userID int64, action game.ActionType, amount int64) error {
	sess := c.lookup(roomID)
	if sess == nil {
		return appErr.ErrRoomNotFound
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()

	if sess.hand == nil || sess.hand.Finished() {
		return appErr.ErrNoActiveHand
	}
	if err := sess.hand.Act(userID, action, amount); err != nil {
		return err
	}
	if c.metrics != nil {
		c.metrics.ActionsProcessed.WithLabelValues(string(action)).Inc()
	}

	if sess.hand.Finished() {
		if err := c.finishHandLocked(ctx, sess); err != nil {
			c.broadcastLocked(sess)
			return err
		}
	}
	c.broadcastLocked(sess)
	return nil
}

// Snapshot renders the room as seen by viewerID without mutating anything.
func (c *Coordinator) Snapshot(roomID, viewerID int64) (*RoomSnapshot, error) {
	sess := c.lookup(roomID)
	if sess == nil {
		return nil, appErr.ErrRoomNotFound
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()
	snap := sess.snapshotLocked(viewerID)
	return &snap, nil
}

// finishHandLocked settles the archive and refreshes member chips from the
// final seat stacks. The completed hand stays visible until the next deal.
// A failed archive write leaves nothing durable changed: the hand stays
// unsettled, the error goes back to the caller, and the next deal is
// refused until a retry succeeds.
func (c *Coordinator) finishHandLocked(ctx context.Context, sess *session) error {
	if err := c.games.RecordHandComplete(ctx, sess.handID, sess.hand); err != nil {
		logger.Log.Error("failed to archive completed hand",
			zap.Int64("roomID", sess.roomID),
			zap.Int64("handID", sess.handID),
			zap.Error(err),
		)
		return err
	}
	sess.settled = true
	for _, seat := range sess.hand.Seats() {
		if m := sess.memberByUser(seat.UserID); m != nil {
			m.Chips = seat.Stack
		}
	}
	if c.metrics != nil {
		c.metrics.HandsCompleted.Inc()
	}
	logger.Log.Info("hand complete",
		zap.Int64("roomID", sess.roomID),
		zap.Int64("handID", sess.handID),
		zap.Int64("pot", sess.hand.Pot()),
	)
	return nil
}

// syncLocked refreshes a session from the ledger; a vanished room clears
// the member list and evicts the session.
func (c *Coordinator) syncLocked(ctx context.Context, sess *session) error {
	details, err := c.ledger.GetRoomDetails(ctx, sess.roomID)
	if err != nil {
		if err == appErr.ErrRoomNotFound {
			sess.members = nil
			c.evict(sess.roomID, sess)
			return nil
		}
		return err
	}
	c.applyDetailsLocked(sess, details)
	return nil
}

func (c *Coordinator) getSession(ctx context.Context, roomID int64) (*session, error) {
	if sess := c.lookup(roomID); sess != nil {
		return sess, nil
	}

	details, err := c.ledger.GetRoomDetails(ctx, roomID)
	if err != nil {
		if err == appErr.ErrRoomNotFound {
			return nil, nil
		}
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if sess, ok := c.sessions[roomID]; ok {
		return sess, nil
	}
	sess := &session{roomID: roomID, dealerIdx: -1}
	sess.applyDetails(details)
	c.sessions[roomID] = sess
	if c.metrics != nil {
		c.metrics.ActiveRooms.Set(float64(len(c.sessions)))
	}
	return sess, nil
}

func (c *Coordinator) lookup(roomID int64) *session {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.sessions[roomID]
}

func (c *Coordinator) evict(roomID int64, sess *session) {
	for _, m := range sess.members {
		for connID, ch := range m.conns {
			delete(m.conns, connID)
			close(ch)
			if c.metrics != nil {
				c.metrics.OpenConnections.Dec()
			}
		}
	}
	sess.members = nil

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.sessions[roomID] == sess {
		delete(c.sessions, roomID)
		if c.metrics != nil {
			c.metrics.ActiveRooms.Set(float64(len(c.sessions)))
		}
	}
}

func (c *Coordinator) pushLocked(sess *session, member *memberState, connID string) {
	ch, ok := member.conns[connID]
	if !ok {
		return
	}
	msg := OutgoingMessage{
		Type: "state",
		Seq:  sess.nextSeq(),
		Data: sess.snapshotLocked(member.UserID),
	}
	select {
	case ch <- msg:
	default:
		logger.Log.Warn("table subscriber channel full",
			zap.Int64("userID", member.UserID),
			zap.Int64("roomID", sess.roomID),
		)
	}
}

func (c *Coordinator) broadcastLocked(sess *session) {
	seq := sess.nextSeq()
	fanout := 0
	for _, m := range sess.members {
		if len(m.conns) == 0 {
			continue
		}
		snap := sess.snapshotLocked(m.UserID)
		msg := OutgoingMessage{Type: "state", Seq: seq, Data: snap}
		for connID, ch := range m.conns {
			select {
			case ch <- msg:
				fanout++
			default:
				logger.Log.Warn("table subscriber channel full",
					zap.Int64("userID", m.UserID),
					zap.String("connID", connID),
					zap.Int64("roomID", sess.roomID),
				)
			}
		}
	}
	if c.metrics != nil && fanout > 0 {
		c.metrics.BroadcastFanout.Observe(float64(fanout))
	}
}
