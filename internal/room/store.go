// Package room owns the shared-state room records: creation, membership,
// ready negotiation, and the start countdown. All room data lives in Redis
// so any server process sees the same rooms; mutations additionally hold a
// per-room in-process lock so concurrent read-modify-write cycles on the
// same room cannot interleave.
package room

import (
	"context"
	"crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/davidagustin/tic-tac-toe/internal/auth"
	"github.com/davidagustin/tic-tac-toe/internal/cache"
	"github.com/davidagustin/tic-tac-toe/internal/errs"
	"github.com/davidagustin/tic-tac-toe/internal/models"
)

const (
	MaxPlayers    = 2
	MaxSpectators = 8
	MaxTotal      = 10
	MaxNameLen    = 30

	// RoomTTL bounds the life of an abandoned room and everything keyed
	// under it.
	RoomTTL = 2 * time.Hour

	CodeLen = 8

	CountdownSeconds = 3
)

// Store is the Redis-backed room repository.
type Store struct {
	rdb *redis.Client

	mu         sync.Mutex
	locks      map[string]*sync.Mutex
	countdowns map[string]uint64
}

func NewStore(rdb *redis.Client) *Store {
	return &Store{
		rdb:        rdb,
		locks:      make(map[string]*sync.Mutex),
		countdowns: make(map[string]uint64),
	}
}

// lockRoom serializes mutations of one room within this process. The
// returned func releases the lock.
func (s *Store) lockRoom(roomID string) func() {
	s.mu.Lock()
	l, ok := s.locks[roomID]
	if !ok {
		l = &sync.Mutex{}
		s.locks[roomID] = l
	}
	s.mu.Unlock()

	l.Lock()
	return l.Unlock
}

// releaseRoom drops the lock entry once a room is gone.
func (s *Store) releaseRoom(roomID string) {
	s.mu.Lock()
	delete(s.locks, roomID)
	delete(s.countdowns, roomID)
	s.mu.Unlock()
}

const codeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"

func newRoomCode() (string, error) {
	buf := make([]byte, CodeLen)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate room code: %w", err)
	}
	for i, b := range buf {
		buf[i] = codeAlphabet[int(b)%len(codeAlphabet)]
	}
	return string(buf), nil
}

// HostInfo identifies the creating user.
type HostInfo struct {
	UserID string
	Name   string
	Rating int
}

// Create allocates a room with the host seated on the first side. Guests
// cannot create rooms; the handler enforces that before calling here.
func (s *Store) Create(ctx context.Context, name, password string, gt models.GameType, host HostInfo) (*models.Room, error) {
	name = strings.TrimSpace(name)
	if name == "" || len(name) > MaxNameLen {
		return nil, fmt.Errorf("%w: room name", errs.ErrInvalidInput)
	}
	if gt != models.GameTypeTicTacToe && gt != models.GameTypeChess {
		return nil, fmt.Errorf("%w: game type %q", errs.ErrInvalidInput, gt)
	}

	if existing, err := s.UserRoom(ctx, host.UserID); err != nil {
		return nil, err
	} else if existing != "" {
		return nil, errs.ErrAlreadyInRoom
	}

	var passwordHash string
	if password != "" {
		hash, err := auth.CreateHash(password, auth.RoomParams)
		if err != nil {
			return nil, fmt.Errorf("hash room password: %w", err)
		}
		passwordHash = hash
	}

	roomID, err := newRoomCode()
	if err != nil {
		return nil, err
	}

	firstSide, _ := models.Sides(gt)
	now := time.Now().UTC()
	room := &models.Room{
		ID:           roomID,
		Name:         name,
		HostID:       host.UserID,
		HasPassword:  passwordHash != "",
		PasswordHash: passwordHash,
		GameType:     gt,
		Status:       models.RoomWaiting,
		Players: []models.RoomMember{{
			UserID:    host.UserID,
			Name:      host.Name,
			Rating:    host.Rating,
			Role:      models.RolePlayer,
			Connected: true,
			Side:      firstSide,
		}},
		Spectators: []models.RoomMember{},
		CreatedAt:  now,
		ExpiresAt:  now.Add(RoomTTL),
	}

	raw, err := json.Marshal(room)
	if err != nil {
		return nil, fmt.Errorf("marshal room: %w", err)
	}

	pipe := s.rdb.Pipeline()
	pipe.Set(ctx, cache.KeyRoom(roomID), raw, RoomTTL)
	pipe.SAdd(ctx, cache.KeyRoomList, roomID)
	pipe.Set(ctx, cache.KeyUserRoom(host.UserID), roomID, RoomTTL)
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, fmt.Errorf("store room: %w", err)
	}
	return room, nil
}

// Get loads a room record, errs.ErrNotFound if absent or expired.
func (s *Store) Get(ctx context.Context, roomID string) (*models.Room, error) {
	data, err := s.rdb.Get(ctx, cache.KeyRoom(roomID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("%w: room %s", errs.ErrNotFound, roomID)
	}
	if err != nil {
		return nil, fmt.Errorf("load room %s: %w", roomID, err)
	}
	var room models.Room
	if err := json.Unmarshal(data, &room); err != nil {
		return nil, fmt.Errorf("decode room %s: %w", roomID, err)
	}
	return &room, nil
}

// Save rewrites a room preserving its remaining TTL.
func (s *Store) Save(ctx context.Context, room *models.Room) error {
	raw, err := json.Marshal(room)
	if err != nil {
		return fmt.Errorf("marshal room: %w", err)
	}
	ttl, err := s.rdb.TTL(ctx, cache.KeyRoom(room.ID)).Result()
	if err != nil || ttl <= 0 {
		ttl = RoomTTL
	}
	return s.rdb.Set(ctx, cache.KeyRoom(room.ID), raw, ttl).Err()
}

// Delete removes the room and everything keyed under it, including every
// member's reverse index.
func (s *Store) Delete(ctx context.Context, roomID string) error {
	room, _ := s.Get(ctx, roomID)

	pipe := s.rdb.Pipeline()
	pipe.Del(ctx, cache.KeyRoom(roomID))
	pipe.SRem(ctx, cache.KeyRoomList, roomID)
	pipe.Del(ctx, cache.KeyRoomChat(roomID))
	pipe.Del(ctx, cache.KeyGameState(roomID))
	pipe.Del(ctx, cache.KeyRematch(roomID))
	if room != nil {
		for _, m := range append(room.Players, room.Spectators...) {
			pipe.Del(ctx, cache.KeyUserRoom(m.UserID))
		}
	}
	_, err := pipe.Exec(ctx)
	s.releaseRoom(roomID)
	return err
}

// List returns summaries of every live room, pruning ids whose records
// already expired.
func (s *Store) List(ctx context.Context) ([]models.RoomInfo, error) {
	ids, err := s.rdb.SMembers(ctx, cache.KeyRoomList).Result()
	if err != nil {
		return nil, fmt.Errorf("list rooms: %w", err)
	}
	if len(ids) == 0 {
		return []models.RoomInfo{}, nil
	}

	pipe := s.rdb.Pipeline()
	cmds := make([]*redis.StringCmd, len(ids))
	for i, id := range ids {
		cmds[i] = pipe.Get(ctx, cache.KeyRoom(id))
	}
	_, _ = pipe.Exec(ctx)

	rooms := make([]models.RoomInfo, 0, len(ids))
	var expired []interface{}
	for i, cmd := range cmds {
		data, err := cmd.Bytes()
		if err != nil {
			expired = append(expired, ids[i])
			continue
		}
		var room models.Room
		if err := json.Unmarshal(data, &room); err != nil {
			expired = append(expired, ids[i])
			continue
		}
		rooms = append(rooms, room.Summary(MaxPlayers, MaxSpectators))
	}
	if len(expired) > 0 {
		s.rdb.SRem(ctx, cache.KeyRoomList, expired...)
	}
	return rooms, nil
}

// UserRoom returns the id of the room the user occupies, "" if none.
func (s *Store) UserRoom(ctx context.Context, userID string) (string, error) {
	id, err := s.rdb.Get(ctx, cache.KeyUserRoom(userID)).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("user room index: %w", err)
	}
	return id, nil
}

// Join adds a user to a room. A member rejoining only flips their connected
// flag. New arrivals take the open player seat while the room is waiting,
// otherwise a spectator slot.
func (s *Store) Join(ctx context.Context, roomID, password string, member models.RoomMember) (*models.Room, error) {
	if existing, err := s.UserRoom(ctx, member.UserID); err != nil {
		return nil, err
	} else if existing != "" && existing != roomID {
		return nil, errs.ErrAlreadyInRoom
	}

	unlock := s.lockRoom(roomID)
	defer unlock()

	room, err := s.Get(ctx, roomID)
	if err != nil {
		return nil, err
	}

	if room.PasswordHash != "" {
		if password == "" {
			return nil, errs.ErrPasswordRequired
		}
		ok, err := auth.ComparePasswordAndHash(password, room.PasswordHash)
		if err != nil || !ok {
			return nil, errs.ErrWrongPassword
		}
	}

	if existing := room.Member(member.UserID); existing != nil {
		existing.Connected = true
		if err := s.Save(ctx, room); err != nil {
			return nil, err
		}
		return room, nil
	}

	if room.TotalMembers() >= MaxTotal {
		return nil, errs.ErrRoomFull
	}

	_, secondSide := models.Sides(room.GameType)
	switch {
	case len(room.Players) < MaxPlayers && room.Status == models.RoomWaiting:
		member.Role = models.RolePlayer
		member.Side = secondSide
		member.Ready = false
		member.Connected = true
		room.Players = append(room.Players, member)
	case len(room.Spectators) < MaxSpectators:
		member.Role = models.RoleSpectator
		member.Side = ""
		member.Ready = false
		member.Connected = true
		room.Spectators = append(room.Spectators, member)
	default:
		return nil, errs.ErrRoomFull
	}

	if err := s.rdb.Set(ctx, cache.KeyUserRoom(member.UserID), roomID, RoomTTL).Err(); err != nil {
		return nil, fmt.Errorf("index user room: %w", err)
	}
	if err := s.Save(ctx, room); err != nil {
		return nil, err
	}
	return room, nil
}

// LeaveResult describes the membership change Leave produced.
type LeaveResult struct {
	Room      *models.Room
	Deleted   bool
	NewHostID string
}

// Leave removes a user from a room. The last member out deletes the room.
// A departing host hands off to the first remaining player, else the first
// spectator, promoting them into the vacated seat. When one player remains
// in a waiting room their side resets to the first side, their ready flag
// clears, and the first spectator is promoted opposite them. Any pending
// start countdown is cancelled.
func (s *Store) Leave(ctx context.Context, roomID, userID string) (*LeaveResult, error) {
	unlock := s.lockRoom(roomID)

	room, err := s.Get(ctx, roomID)
	if err != nil {
		unlock()
		s.rdb.Del(ctx, cache.KeyUserRoom(userID))
		return &LeaveResult{Deleted: true}, nil
	}

	wasPlayer := room.Player(userID) != nil
	room.Players = removeMember(room.Players, userID)
	room.Spectators = removeMember(room.Spectators, userID)
	s.rdb.Del(ctx, cache.KeyUserRoom(userID))

	if wasPlayer {
		s.CancelCountdown(roomID)
	}

	if room.TotalMembers() == 0 {
		unlock()
		if err := s.Delete(ctx, roomID); err != nil {
			return nil, err
		}
		return &LeaveResult{Deleted: true}, nil
	}
	defer unlock()

	firstSide, secondSide := models.Sides(room.GameType)

	var newHostID string
	if room.HostID == userID {
		if len(room.Players) > 0 {
			newHostID = room.Players[0].UserID
		} else {
			newHostID = room.Spectators[0].UserID
		}
		room.HostID = newHostID

		if len(room.Players) == 0 {
			promoted := room.Spectators[0]
			room.Spectators = room.Spectators[1:]
			promoted.Role = models.RolePlayer
			promoted.Side = firstSide
			room.Players = append(room.Players, promoted)
		}
	}

	if len(room.Players) == 1 {
		room.Players[0].Side = firstSide
		room.Players[0].Ready = false
		if len(room.Spectators) > 0 && room.Status == models.RoomWaiting {
			promoted := room.Spectators[0]
			room.Spectators = room.Spectators[1:]
			promoted.Role = models.RolePlayer
			promoted.Side = secondSide
			promoted.Ready = false
			room.Players = append(room.Players, promoted)
		}
	}

	if err := s.Save(ctx, room); err != nil {
		return nil, err
	}
	return &LeaveResult{Room: room, NewHostID: newHostID}, nil
}

func removeMember(members []models.RoomMember, userID string) []models.RoomMember {
	out := members[:0]
	for _, m := range members {
		if m.UserID != userID {
			out = append(out, m)
		}
	}
	return out
}

// ToggleReady flips the player's ready flag. allReady is true when both
// seats are filled and ready. Toggling to unready cancels a pending
// countdown.
func (s *Store) ToggleReady(ctx context.Context, roomID, userID string) (room *models.Room, ready, allReady bool, err error) {
	unlock := s.lockRoom(roomID)
	defer unlock()

	room, err = s.Get(ctx, roomID)
	if err != nil {
		return nil, false, false, err
	}

	player := room.Player(userID)
	if player == nil {
		return nil, false, false, fmt.Errorf("%w: not seated as a player", errs.ErrForbidden)
	}
	player.Ready = !player.Ready
	if !player.Ready {
		s.CancelCountdown(roomID)
	}

	if err = s.Save(ctx, room); err != nil {
		return nil, false, false, err
	}

	allReady = len(room.Players) == MaxPlayers
	for _, p := range room.Players {
		allReady = allReady && p.Ready
	}
	return room, player.Ready, allReady, nil
}

// SetStatus transitions the room's lifecycle status.
func (s *Store) SetStatus(ctx context.Context, roomID string, status models.RoomStatus) (*models.Room, error) {
	unlock := s.lockRoom(roomID)
	defer unlock()

	room, err := s.Get(ctx, roomID)
	if err != nil {
		return nil, err
	}
	room.Status = status
	if err := s.Save(ctx, room); err != nil {
		return nil, err
	}
	return room, nil
}

// ClearReady drops both players' ready flags after a game ends so a rematch
// needs fresh confirmation.
func (s *Store) ClearReady(ctx context.Context, roomID string) (*models.Room, error) {
	unlock := s.lockRoom(roomID)
	defer unlock()

	room, err := s.Get(ctx, roomID)
	if err != nil {
		return nil, err
	}
	for i := range room.Players {
		room.Players[i].Ready = false
	}
	room.Status = models.RoomWaiting
	if err := s.Save(ctx, room); err != nil {
		return nil, err
	}
	return room, nil
}

// BeginCountdown registers a new countdown and returns its generation. A
// later CancelCountdown, or a newer BeginCountdown, invalidates it.
func (s *Store) BeginCountdown(roomID string) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.countdowns[roomID]++
	return s.countdowns[roomID]
}

// CancelCountdown invalidates any countdown in flight for the room.
func (s *Store) CancelCountdown(roomID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.countdowns[roomID]++
}

// CountdownCurrent reports whether gen is still the live countdown.
func (s *Store) CountdownCurrent(roomID string, gen uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.countdowns[roomID] == gen
}
