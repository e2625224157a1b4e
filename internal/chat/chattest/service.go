// Package chattest provides an in-memory chat service for tests.
package chattest

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/wesleyorama2/chatload/internal/chat"
)

// DefaultChannel is the channel every new guild starts with unless
// Service.DefaultChannel is changed.
const DefaultChannel = "general"

type user struct {
	id          uint64
	identity    string
	displayName string
	secret      string
	status      string
	isBot       bool
}

type message struct {
	id     uint64
	author uint64
	text   string
}

type channel struct {
	id       uint64
	name     string
	messages []*message
}

type guild struct {
	id       uint64
	name     string
	owner    uint64
	members  map[uint64]bool
	channels []*channel
}

type invite struct {
	guild uint64
	uses  int
	limit int
}

// Service is a fake chat.Client backed by memory. The zero value is not usable;
// create one with New.
type Service struct {
	// Latency is added to every call and subscription.
	Latency time.Duration

	// DefaultChannel is created together with each guild. Empty means none.
	DefaultChannel string

	mu       sync.Mutex
	nextID   uint64
	users    map[string]*user
	tokens   map[string]*user
	guilds   map[uint64]*guild
	invites  map[string]*invite
	streams  map[*Stream][]uint64
	media    map[string]chat.Media
	calls    map[chat.Operation]int
	failures map[chat.Operation]error
	authFail error
}

// New creates an empty service.
func New() *Service {
	return &Service{
		DefaultChannel: DefaultChannel,
		nextID:         1000,
		users:          make(map[string]*user),
		tokens:         make(map[string]*user),
		guilds:         make(map[uint64]*guild),
		invites:        make(map[string]*invite),
		streams:        make(map[*Stream][]uint64),
		media:          make(map[string]chat.Media),
		calls:          make(map[chat.Operation]int),
		failures:       make(map[chat.Operation]error),
	}
}

// Fail makes every later call to op return err. A nil err clears the failure.
func (s *Service) Fail(op chat.Operation, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err == nil {
		delete(s.failures, op)
		return
	}
	s.failures[op] = err
}

// FailAuth makes Authenticate and Register return err. A nil err clears it.
func (s *Service) FailAuth(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.authFail = err
}

// Calls returns how many times op was called, failed calls included.
func (s *Service) Calls(op chat.Operation) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[op]
}

// Users returns the number of registered accounts.
func (s *Service) Users() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.users)
}

// Guilds returns the number of existing guilds.
func (s *Service) Guilds() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.guilds)
}

// Messages returns the number of messages stored in a channel.
func (s *Service) Messages(guildID, channelID uint64) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if g, ok := s.guilds[guildID]; ok {
		if c := g.channel(channelID); c != nil {
			return len(c.messages)
		}
	}
	return 0
}

// Members returns the member count of a guild.
func (s *Service) Members(guildID uint64) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if g, ok := s.guilds[guildID]; ok {
		return len(g.members)
	}
	return 0
}

// EndStreams terminates every open subscription. A nil err ends them cleanly
// (io.EOF); otherwise Next returns err after queued events are drained.
func (s *Service) EndStreams(err error) {
	s.mu.Lock()
	streams := make([]*Stream, 0, len(s.streams))
	for st := range s.streams {
		streams = append(streams, st)
	}
	s.streams = make(map[*Stream][]uint64)
	s.mu.Unlock()

	for _, st := range streams {
		st.End(err)
	}
}

// Authenticate implements chat.Client.
func (s *Service) Authenticate(ctx context.Context, identity, secret string) (*chat.Session, error) {
	if err := s.wait(ctx); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.authFail != nil {
		return nil, s.authFail
	}
	u, ok := s.users[identity]
	if !ok || u.secret != secret {
		return nil, &chat.AuthError{Identity: identity, Status: http.StatusUnauthorized, Message: "wrong credentials"}
	}
	return s.session(u), nil
}

// Register implements chat.Client.
func (s *Service) Register(ctx context.Context, identity, displayName, secret string) (*chat.Session, error) {
	if err := s.wait(ctx); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.authFail != nil {
		return nil, s.authFail
	}
	if _, ok := s.users[identity]; ok {
		return nil, fmt.Errorf("register %s: status %d: account exists", identity, http.StatusConflict)
	}
	u := &user{
		id:          s.newID(),
		identity:    identity,
		displayName: displayName,
		secret:      secret,
		status:      chat.StatusOnline,
	}
	s.users[identity] = u
	return s.session(u), nil
}

// Subscribe implements chat.Client.
func (s *Service) Subscribe(ctx context.Context, sess *chat.Session, guilds []uint64) (chat.EventStream, error) {
	if err := s.wait(ctx); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.tokens[sess.Token]
	if !ok {
		return nil, &chat.AuthError{Identity: sess.Identity, Status: http.StatusUnauthorized}
	}
	for _, id := range guilds {
		g, ok := s.guilds[id]
		if !ok || !g.members[u.id] {
			return nil, &chat.StreamError{Message: fmt.Sprintf("not a member of guild %d", id)}
		}
	}

	st := NewStream()
	st.onClose = func() {
		s.mu.Lock()
		delete(s.streams, st)
		s.mu.Unlock()
	}
	s.streams[st] = append([]uint64(nil), guilds...)
	return st, nil
}

// Call implements chat.Client.
func (s *Service) Call(ctx context.Context, sess *chat.Session, req chat.Request) (*chat.Response, error) {
	if err := s.wait(ctx); err != nil {
		return nil, &chat.ServiceError{Op: req.Op, Err: err}
	}

	var p params
	if req.Params != nil {
		raw, err := json.Marshal(req.Params)
		if err != nil {
			return nil, &chat.ServiceError{Op: req.Op, Err: err}
		}
		if err := json.Unmarshal(raw, &p); err != nil {
			return nil, &chat.ServiceError{Op: req.Op, Status: http.StatusBadRequest, Message: err.Error()}
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.calls[req.Op]++
	if err, ok := s.failures[req.Op]; ok {
		return nil, err
	}

	u, ok := s.tokens[sess.Token]
	if !ok {
		return nil, reject(req.Op, http.StatusUnauthorized, "invalid session")
	}

	body, err := s.dispatch(u, req.Op, p)
	if err != nil {
		return nil, err
	}
	raw, err := json.Marshal(body)
	if err != nil {
		return nil, &chat.ServiceError{Op: req.Op, Err: err}
	}
	return &chat.Response{Op: req.Op, Body: raw}, nil
}

// UploadMedia implements chat.Client.
func (s *Service) UploadMedia(ctx context.Context, sess *chat.Session, m chat.Media) (string, error) {
	if err := s.wait(ctx); err != nil {
		return "", &chat.ServiceError{Op: chat.OpUploadMedia, Err: err}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.calls[chat.OpUploadMedia]++
	if err, ok := s.failures[chat.OpUploadMedia]; ok {
		return "", err
	}
	if _, ok := s.tokens[sess.Token]; !ok {
		return "", reject(chat.OpUploadMedia, http.StatusUnauthorized, "invalid session")
	}

	id := fmt.Sprintf("%d", s.newID())
	m.Data = append([]byte(nil), m.Data...)
	s.media[id] = m
	return id, nil
}

// DownloadMedia implements chat.Client.
func (s *Service) DownloadMedia(ctx context.Context, sess *chat.Session, id string) (*chat.Media, error) {
	if err := s.wait(ctx); err != nil {
		return nil, &chat.ServiceError{Op: chat.OpDownloadMedia, Err: err}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.calls[chat.OpDownloadMedia]++
	if err, ok := s.failures[chat.OpDownloadMedia]; ok {
		return nil, err
	}
	if _, ok := s.tokens[sess.Token]; !ok {
		return nil, reject(chat.OpDownloadMedia, http.StatusUnauthorized, "invalid session")
	}

	m, ok := s.media[id]
	if !ok {
		return nil, reject(chat.OpDownloadMedia, http.StatusNotFound, "no such media")
	}
	m.Data = append([]byte(nil), m.Data...)
	return &m, nil
}

func (s *Service) wait(ctx context.Context) error {
	if s.Latency <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(s.Latency)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func (s *Service) newID() uint64 {
	s.nextID++
	return s.nextID
}

func (s *Service) session(u *user) *chat.Session {
	token := fmt.Sprintf("tok-%d-%d", u.id, s.newID())
	s.tokens[token] = u
	return &chat.Session{Identity: u.identity, UserID: u.id, Token: token}
}

func (s *Service) publish(guildID uint64, ev chat.Event) {
	for st, guilds := range s.streams {
		for _, id := range guilds {
			if id == guildID {
				st.Push(ev)
				break
			}
		}
	}
}

func (g *guild) channel(id uint64) *channel {
	for _, c := range g.channels {
		if c.id == id {
			return c
		}
	}
	return nil
}

func reject(op chat.Operation, status int, msg string) error {
	return &chat.ServiceError{Op: op, Status: status, Message: msg}
}
