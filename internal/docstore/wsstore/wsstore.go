// Package wsstore implements the document store over the websocket gateway,
// so a remote client sees the same semantics as a process holding the store
// directly. Requests are matched to replies by id; snapshot pushes are
// replayed to local subscribers through a hub.
package wsstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"

	"github.com/project-alluminati/alluminati-backend/internal/docstore"
	"github.com/project-alluminati/alluminati-backend/internal/types"
)

const (
	writeTimeout = 3 * time.Second
	replyTimeout = 10 * time.Second
)

var ErrClosed = errors.New("wsstore: connection closed")

type Store struct {
	conn *websocket.Conn

	mu      sync.Mutex
	pending map[string]chan types.Response
	subs    map[string]int // live local subscriptions per code
	closed  bool

	hub *docstore.Hub
}

var _ docstore.Store = (*Store)(nil)

// Dial connects to a gateway /ws endpoint and starts the reader.
func Dial(ctx context.Context, url string) (*Store, error) {
	conn, _, err := websocket.Dial(ctx, url, nil)
	if err != nil {
		return nil, fmt.Errorf("wsstore: dial %s: %w", url, err)
	}
	s := &Store{
		conn:    conn,
		pending: make(map[string]chan types.Response),
		subs:    make(map[string]int),
		hub:     docstore.NewHub(),
	}
	go s.readLoop()
	return s, nil
}

// Close tears down the connection; in-flight calls fail with ErrClosed.
func (s *Store) Close() error {
	return s.conn.Close(websocket.StatusNormalClosure, "bye")
}

func (s *Store) readLoop() {
	for {
		_, data, err := s.conn.Read(context.Background())
		if err != nil {
			s.fail()
			return
		}
		var resp types.Response
		if err := json.Unmarshal(data, &resp); err != nil {
			continue
		}
		switch resp.Type {
		case types.TypeResult:
			s.mu.Lock()
			ch, ok := s.pending[resp.ID]
			delete(s.pending, resp.ID)
			s.mu.Unlock()
			if ok {
				ch <- resp
			}
		case types.TypeSnapshot:
			s.hub.Publish(docstore.Snapshot{
				Code:   resp.Code,
				Exists: resp.Exists,
				Data:   resp.Data,
			})
		}
	}
}

// fail wakes every waiter after the connection drops.
func (s *Store) fail() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	for id, ch := range s.pending {
		delete(s.pending, id)
		close(ch)
	}
}

func (s *Store) roundTrip(ctx context.Context, req types.Request) (types.Response, error) {
	req.ID = uuid.NewString()
	ch := make(chan types.Response, 1)

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return types.Response{}, ErrClosed
	}
	s.pending[req.ID] = ch
	s.mu.Unlock()

	payload, err := json.Marshal(req)
	if err != nil {
		s.drop(req.ID)
		return types.Response{}, fmt.Errorf("wsstore: encode: %w", err)
	}
	writeCtx, cancel := context.WithTimeout(ctx, writeTimeout)
	err = s.conn.Write(writeCtx, websocket.MessageText, payload)
	cancel()
	if err != nil {
		s.drop(req.ID)
		return types.Response{}, fmt.Errorf("wsstore: write: %w", err)
	}

	select {
	case resp, ok := <-ch:
		if !ok {
			return types.Response{}, ErrClosed
		}
		if resp.Error == types.ErrNotFound {
			return resp, docstore.ErrNotFound
		}
		if resp.Error != "" {
			return resp, fmt.Errorf("wsstore: %s: %s", req.Op, resp.Error)
		}
		return resp, nil
	case <-ctx.Done():
		s.drop(req.ID)
		return types.Response{}, ctx.Err()
	case <-time.After(replyTimeout):
		s.drop(req.ID)
		return types.Response{}, fmt.Errorf("wsstore: %s: reply timeout", req.Op)
	}
}

func (s *Store) drop(id string) {
	s.mu.Lock()
	delete(s.pending, id)
	s.mu.Unlock()
}

func (s *Store) Create(ctx context.Context, data map[string]any) (string, error) {
	resp, err := s.roundTrip(ctx, types.Request{Op: types.OpCreate, Data: data})
	if err != nil {
		return "", err
	}
	return resp.Code, nil
}

func (s *Store) Set(ctx context.Context, code string, data map[string]any) error {
	_, err := s.roundTrip(ctx, types.Request{Op: types.OpSet, Code: code, Data: data})
	return err
}

func (s *Store) Get(ctx context.Context, code string) (map[string]any, error) {
	resp, err := s.roundTrip(ctx, types.Request{Op: types.OpGet, Code: code})
	if err != nil {
		return nil, err
	}
	return resp.Data, nil
}

func (s *Store) Update(ctx context.Context, code string, fields map[string]any) error {
	_, err := s.roundTrip(ctx, types.Request{Op: types.OpUpdate, Code: code, Fields: fields})
	return err
}

func (s *Store) Delete(ctx context.Context, code string) error {
	_, err := s.roundTrip(ctx, types.Request{Op: types.OpDelete, Code: code})
	return err
}

func (s *Store) ListAll(ctx context.Context) (map[string]map[string]any, error) {
	resp, err := s.roundTrip(ctx, types.Request{Op: types.OpList, Code: ""})
	if err != nil {
		return nil, err
	}
	if resp.Records == nil {
		return map[string]map[string]any{}, nil
	}
	return resp.Records, nil
}

// Subscribe registers locally and keeps exactly one gateway subscription per
// code alive while any local subscriber remains. The gateway sends the
// current snapshot on subscribe, so the initial delivery comes through the
// same push path as every later one.
func (s *Store) Subscribe(ctx context.Context, code string, fn func(docstore.Snapshot)) (docstore.UnsubscribeFunc, error) {
	sub := s.hub.Add(code, fn)

	s.mu.Lock()
	first := s.subs[code] == 0
	s.subs[code]++
	s.mu.Unlock()

	if first {
		if _, err := s.roundTrip(ctx, types.Request{Op: types.OpSubscribe, Code: code}); err != nil {
			sub.Close()
			s.release(ctx, code)
			return nil, err
		}
	} else {
		// Later subscribers don't retrigger the gateway; hand them the
		// current state directly.
		doc, err := s.Get(ctx, code)
		switch {
		case errors.Is(err, docstore.ErrNotFound):
			sub.Send(docstore.Snapshot{Code: code, Exists: false})
		case err != nil:
			sub.Close()
			s.release(ctx, code)
			return nil, err
		default:
			sub.Send(docstore.Snapshot{Code: code, Exists: true, Data: doc})
		}
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			sub.Close()
			s.release(context.Background(), code)
		})
	}, nil
}

func (s *Store) release(ctx context.Context, code string) {
	s.mu.Lock()
	s.subs[code]--
	last := s.subs[code] <= 0
	if last {
		delete(s.subs, code)
	}
	closed := s.closed
	s.mu.Unlock()

	if last && !closed {
		_, _ = s.roundTrip(ctx, types.Request{Op: types.OpUnsubscribe, Code: code})
	}
}
