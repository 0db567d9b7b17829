// Package ws is the websocket document gateway. Each connection gets a
// writer goroutine fed by an outbox channel; the reader loop decodes store
// operations and applies them directly. The gateway trusts every client:
// there is no validation beyond JSON well-formedness, matching the
// protocol's everyone-can-write-everything model.
package ws

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/coder/websocket"
	"go.uber.org/zap"

	"github.com/project-alluminati/alluminati-backend/internal/docstore"
	"github.com/project-alluminati/alluminati-backend/internal/types"
)

const (
	outboxSize   = 32
	writeTimeout = 3 * time.Second
)

func Handler(store docstore.Store, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := websocket.Accept(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close(websocket.StatusNormalClosure, "bye")

		c := &gatewayConn{
			store: store,
			log:   log,
			out:   make(chan types.Response, outboxSize),
			subs:  make(map[string]docstore.UnsubscribeFunc),
		}
		defer c.teardown()

		writeCtx, writeCancel := context.WithCancel(r.Context())
		defer writeCancel()
		go func() {
			for resp := range c.out {
				payload, _ := json.Marshal(resp)
				ctx, cancel := context.WithTimeout(writeCtx, writeTimeout)
				_ = conn.Write(ctx, websocket.MessageText, payload)
				cancel()
			}
		}()

		for {
			_, data, err := conn.Read(r.Context())
			if err != nil {
				switch websocket.CloseStatus(err) {
				case websocket.StatusNormalClosure, websocket.StatusGoingAway:
				default:
					log.Debug("gateway read ended", zap.Error(err))
				}
				return
			}

			var req types.Request
			if err := json.Unmarshal(data, &req); err != nil {
				c.send(types.Response{Type: types.TypeResult, Error: "bad json"})
				continue
			}
			c.send(c.handle(r.Context(), req))
		}
	}
}

type gatewayConn struct {
	store docstore.Store
	log   *zap.Logger
	subs  map[string]docstore.UnsubscribeFunc

	mu     sync.Mutex
	out    chan types.Response
	closed bool
}

// send queues a frame, dropping it if the connection can't keep up. Every
// mutation also produces a snapshot, so a dropped frame self-corrects.
// Subscription callbacks can fire during teardown; the closed flag keeps
// them off the closed outbox.
func (c *gatewayConn) send(resp types.Response) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	select {
	case c.out <- resp:
	default:
	}
}

func (c *gatewayConn) handle(ctx context.Context, req types.Request) types.Response {
	resp := types.Response{Type: types.TypeResult, ID: req.ID, Code: req.Code}

	switch req.Op {
	case types.OpGet:
		data, err := c.store.Get(ctx, req.Code)
		if err != nil {
			resp.Error = wireError(err)
			return resp
		}
		resp.Exists = true
		resp.Data = data

	case types.OpSet:
		if err := c.store.Set(ctx, req.Code, req.Data); err != nil {
			resp.Error = wireError(err)
		}

	case types.OpUpdate:
		if err := c.store.Update(ctx, req.Code, req.Fields); err != nil {
			resp.Error = wireError(err)
		}

	case types.OpDelete:
		if err := c.store.Delete(ctx, req.Code); err != nil {
			resp.Error = wireError(err)
		}

	case types.OpCreate:
		code, err := c.store.Create(ctx, req.Data)
		if err != nil {
			resp.Error = wireError(err)
			return resp
		}
		resp.Code = code

	case types.OpList:
		records, err := c.store.ListAll(ctx)
		if err != nil {
			resp.Error = wireError(err)
			return resp
		}
		resp.Records = records

	case types.OpSubscribe:
		if _, ok := c.subs[req.Code]; ok {
			return resp
		}
		unsub, err := c.store.Subscribe(ctx, req.Code, func(snap docstore.Snapshot) {
			c.send(types.Response{
				Type:   types.TypeSnapshot,
				Code:   snap.Code,
				Exists: snap.Exists,
				Data:   snap.Data,
			})
		})
		if err != nil {
			resp.Error = wireError(err)
			return resp
		}
		c.subs[req.Code] = unsub

	case types.OpUnsubscribe:
		if unsub, ok := c.subs[req.Code]; ok {
			delete(c.subs, req.Code)
			unsub()
		}

	default:
		c.log.Debug("unknown op", zap.String("op", req.Op))
		resp.Error = "unknown op"
	}
	return resp
}

func (c *gatewayConn) teardown() {
	for code, unsub := range c.subs {
		delete(c.subs, code)
		unsub()
	}
	c.mu.Lock()
	c.closed = true
	close(c.out)
	c.mu.Unlock()
}

func wireError(err error) string {
	if errors.Is(err, docstore.ErrNotFound) {
		return types.ErrNotFound
	}
	return err.Error()
}
