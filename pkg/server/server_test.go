package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/allendavis-developer/cashgen-extension/pkg/types"
)

// fakeOrchestrator records calls and replies with canned responses. When
// scrapeGate is set, Scrape blocks until a batch is delivered, holding the
// session in flight the way a real fan-out does.
type fakeOrchestrator struct {
	mu         sync.Mutex
	scrapes    []types.ScrapeRequest
	lookups    []types.StockLookupRequest
	batches    []types.ResultBatch
	records    []types.StockResult
	ready      []string
	aborted    []string
	response   *types.SessionResponse
	scrapeGate chan struct{}
}

func newFakeOrchestrator() *fakeOrchestrator {
	return &fakeOrchestrator{
		response: types.NewSuccessResponse([]types.PriceResult{{Competitor: "SiteX", Title: "t", Price: 9.99}}),
	}
}

func (f *fakeOrchestrator) Scrape(_ context.Context, req types.ScrapeRequest) *types.SessionResponse {
	f.mu.Lock()
	f.scrapes = append(f.scrapes, req)
	gate := f.scrapeGate
	f.mu.Unlock()
	if gate != nil {
		<-gate
	}
	return f.response
}

func (f *fakeOrchestrator) StockLookup(_ context.Context, req types.StockLookupRequest) *types.SessionResponse {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lookups = append(f.lookups, req)
	return f.response
}

func (f *fakeOrchestrator) MarkListed(context.Context, types.MarkListedRequest) *types.SessionResponse {
	return f.response
}

func (f *fakeOrchestrator) DeliverBatch(batch types.ResultBatch) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.batches = append(f.batches, batch)
	if f.scrapeGate != nil {
		select {
		case <-f.scrapeGate:
		default:
			close(f.scrapeGate)
		}
	}
	return true
}

func (f *fakeOrchestrator) DeliverRecord(res types.StockResult) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.records = append(f.records, res)
	return true
}

func (f *fakeOrchestrator) WorkerReady(sessionID, competitor string) (*types.StartWork, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ready = append(f.ready, sessionID)
	if competitor == "" {
		return nil, false
	}
	return &types.StartWork{
		SessionID:  sessionID,
		Competitor: competitor,
		Selectors:  map[string]string{"title": ".title", "price": ".price"},
	}, true
}

func (f *fakeOrchestrator) AbortSession(sessionID string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.aborted = append(f.aborted, sessionID)
	return true
}

func (f *fakeOrchestrator) batchCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.batches)
}

func newTestServer(t *testing.T) (*httptest.Server, *fakeOrchestrator) {
	t.Helper()
	orch := newFakeOrchestrator()
	ts := httptest.NewServer(New(orch, "127.0.0.1:0").Router())
	t.Cleanup(ts.Close)
	return ts, orch
}

func TestHealthEndpoint(t *testing.T) {
	ts, _ := newTestServer(t)

	resp, err := http.Get(ts.URL + "/healthz")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestScrapeEndpoint(t *testing.T) {
	ts, orch := newTestServer(t)

	body, _ := json.Marshal(types.ScrapeRequest{Query: "iphone", Competitors: []string{"SiteX"}})
	resp, err := http.Post(ts.URL+"/api/scrape", "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var out types.SessionResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	assert.True(t, out.Success)

	require.Len(t, orch.scrapes, 1)
	assert.Equal(t, "iphone", orch.scrapes[0].Query)
}

func TestScrapeEndpointRejectsMalformedBody(t *testing.T) {
	ts, _ := newTestServer(t)

	resp, err := http.Post(ts.URL+"/api/scrape", "application/json", strings.NewReader("{not json"))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func dialWS(t *testing.T, ts *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func TestWebsocketScrapeEchoesRequestID(t *testing.T) {
	ts, _ := newTestServer(t)
	conn := dialWS(t, ts)

	data, _ := json.Marshal(types.ScrapeRequest{Query: "iphone", Competitors: []string{"SiteX"}})
	require.NoError(t, conn.WriteJSON(types.Envelope{
		Action:    types.ActionScrape,
		RequestID: "req-42",
		Data:      data,
	}))

	var reply types.Envelope
	require.NoError(t, conn.ReadJSON(&reply))
	assert.Equal(t, types.ActionScrape, reply.Action)
	assert.Equal(t, "req-42", reply.RequestID)

	var out types.SessionResponse
	require.NoError(t, json.Unmarshal(reply.Data, &out))
	assert.True(t, out.Success)
}

func TestWebsocketDeliversBatches(t *testing.T) {
	ts, orch := newTestServer(t)
	conn := dialWS(t, ts)

	data, _ := json.Marshal(types.ResultBatch{SessionID: "s1", Competitor: "SiteX"})
	require.NoError(t, conn.WriteJSON(types.Envelope{Action: types.ActionScrapedData, Data: data}))

	require.Eventually(t, func() bool { return orch.batchCount() == 1 },
		time.Second, 10*time.Millisecond)
	assert.Equal(t, "s1", orch.batches[0].SessionID)
}

func TestWebsocketReadsDeliveriesDuringInFlightSession(t *testing.T) {
	orch := newFakeOrchestrator()
	orch.scrapeGate = make(chan struct{})
	ts := httptest.NewServer(New(orch, "127.0.0.1:0").Router())
	t.Cleanup(ts.Close)
	conn := dialWS(t, ts)

	// the session only resolves once its batch arrives, and that batch
	// travels on the same connection
	data, _ := json.Marshal(types.ScrapeRequest{Query: "iphone", Competitors: []string{"SiteX"}})
	require.NoError(t, conn.WriteJSON(types.Envelope{
		Action:    types.ActionScrape,
		RequestID: "req-7",
		Data:      data,
	}))

	batch, _ := json.Marshal(types.ResultBatch{SessionID: "s1", Competitor: "SiteX"})
	require.NoError(t, conn.WriteJSON(types.Envelope{Action: types.ActionScrapedData, Data: batch}))

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var reply types.Envelope
	require.NoError(t, conn.ReadJSON(&reply))
	assert.Equal(t, types.ActionScrape, reply.Action)
	assert.Equal(t, "req-7", reply.RequestID)

	var out types.SessionResponse
	require.NoError(t, json.Unmarshal(reply.Data, &out))
	assert.True(t, out.Success)
	require.Equal(t, 1, orch.batchCount())
}

func TestWebsocketWorkerReadyGetsInstructions(t *testing.T) {
	ts, _ := newTestServer(t)
	conn := dialWS(t, ts)

	data, _ := json.Marshal(types.WorkerReady{SessionID: "s1", Competitor: "SiteX"})
	require.NoError(t, conn.WriteJSON(types.Envelope{Action: types.ActionWorkerReady, Data: data}))

	var reply types.Envelope
	require.NoError(t, conn.ReadJSON(&reply))
	assert.Equal(t, types.ActionStartScraping, reply.Action)

	var work types.StartWork
	require.NoError(t, json.Unmarshal(reply.Data, &work))
	assert.Equal(t, "s1", work.SessionID)
	assert.Equal(t, "SiteX", work.Competitor)
	assert.NotEmpty(t, work.Selectors)
}

func TestWebsocketMalformedPayloadGetsFailure(t *testing.T) {
	ts, _ := newTestServer(t)
	conn := dialWS(t, ts)

	require.NoError(t, conn.WriteJSON(types.Envelope{
		Action:    types.ActionScrape,
		RequestID: "req-1",
		Data:      json.RawMessage(`"not an object"`),
	}))

	var reply types.Envelope
	require.NoError(t, conn.ReadJSON(&reply))
	assert.Equal(t, "req-1", reply.RequestID)

	var out types.SessionResponse
	require.NoError(t, json.Unmarshal(reply.Data, &out))
	assert.False(t, out.Success)
	assert.Contains(t, out.Error, "malformed payload")
}
