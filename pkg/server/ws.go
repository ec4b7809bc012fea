package server

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/allendavis-developer/cashgen-extension/pkg/logging"
	"github.com/allendavis-developer/cashgen-extension/pkg/types"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	// the listener binds to loopback; same-machine callers only
	CheckOrigin: func(*http.Request) bool { return true },
}

// wsConn wraps a websocket with a write lock: session responses land on the
// connection from per-session goroutines.
type wsConn struct {
	mu   sync.Mutex
	log  *logging.Logger
	conn *websocket.Conn
}

func (c *wsConn) send(env types.Envelope) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.conn.WriteJSON(env); err != nil {
		c.log.Warnf("failed to write websocket message: %v", err)
	}
}

// handleWebsocket relays the worker protocol: session-starting actions get
// their terminal response echoed back with the caller's requestId; delivery
// actions are fire-and-forget into the orchestrator.
func (s *Server) handleWebsocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warnf("websocket upgrade failed: %v", err)
		return
	}
	defer conn.Close()
	c := &wsConn{log: s.log, conn: conn}
	s.log.Debugf("websocket client connected from %s", r.RemoteAddr)

	for {
		var env types.Envelope
		if err := conn.ReadJSON(&env); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				s.log.Warnf("websocket read failed: %v", err)
			}
			return
		}
		s.dispatchEnvelope(r.Context(), c, env)
	}
}

func (s *Server) dispatchEnvelope(ctx context.Context, c *wsConn, env types.Envelope) {
	switch env.Action {
	case types.ActionScrape:
		var req types.ScrapeRequest
		if !c.decode(env, &req) {
			return
		}
		// dispatch inside the goroutine: the session blocks until its
		// terminal response and the read loop must keep consuming
		// deliveries sent on this same connection
		go func() { c.respond(env, s.orch.Scrape(ctx, req)) }()

	case types.ActionScrapeStockBarcodes:
		var req types.StockLookupRequest
		if !c.decode(env, &req) {
			return
		}
		go func() { c.respond(env, s.orch.StockLookup(ctx, req)) }()

	case types.ActionMarkExternallyListed:
		var req types.MarkListedRequest
		if !c.decode(env, &req) {
			return
		}
		go func() { c.respond(env, s.orch.MarkListed(ctx, req)) }()

	case types.ActionScrapedData:
		var batch types.ResultBatch
		if !c.decode(env, &batch) {
			return
		}
		s.orch.DeliverBatch(batch)

	case types.ActionStockData:
		var res types.StockResult
		if !c.decode(env, &res) {
			return
		}
		s.orch.DeliverRecord(res)

	case types.ActionWorkerReady:
		var ready types.WorkerReady
		if !c.decode(env, &ready) {
			return
		}
		if work, ok := s.orch.WorkerReady(ready.SessionID, ready.Competitor); ok {
			c.send(types.Envelope{Action: types.ActionStartScraping, Data: mustMarshal(work)})
		}

	case types.ActionAbortScraping:
		var abort types.AbortRequest
		if !c.decode(env, &abort) {
			return
		}
		s.orch.AbortSession(abort.SessionID)

	default:
		s.log.Warnf("unknown websocket action %q", env.Action)
	}
}

// respond sends a session's terminal response back on the caller's envelope.
func (c *wsConn) respond(req types.Envelope, resp *types.SessionResponse) {
	data, err := json.Marshal(resp)
	if err != nil {
		c.log.Errorf("failed to marshal session response: %v", err)
		return
	}
	c.send(types.Envelope{Action: req.Action, RequestID: req.RequestID, Data: data})
}

func (c *wsConn) decode(env types.Envelope, v interface{}) bool {
	if err := json.Unmarshal(env.Data, v); err != nil {
		c.log.Warnf("malformed %s payload: %v", env.Action, err)
		c.send(types.Envelope{
			Action:    env.Action,
			RequestID: env.RequestID,
			Data:      mustMarshal(types.NewFailureResponse("malformed payload: " + err.Error())),
		})
		return false
	}
	return true
}

func mustMarshal(v interface{}) json.RawMessage {
	data, err := json.Marshal(v)
	if err != nil {
		return json.RawMessage(`{}`)
	}
	return data
}
