package orchestrator

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/allendavis-developer/cashgen-extension/pkg/scrape"
	"github.com/allendavis-developer/cashgen-extension/pkg/types"
)

const stockDetailPage = `<html><body>
  <input id="stock-name" value="iPhone 13 128GB Blue">
  <div class="detail-view">
    <div class="detail"><strong>Barserial</strong>: BS-991</div>
  </div>
</body></html>`

func TestStockLookupNotFound(t *testing.T) {
	stock := scrape.DefaultStockConfig()
	w := newFakeWorker("w1")
	w.onSubmit = func(string) {
		// no match: the site returns to the listing page
		w.fireLoad(stock.SearchURL)
	}
	o := newTestOrchestrator(t, &fakeFactory{workers: []*fakeWorker{w}}, nil, stock)

	resp := o.StockLookup(context.Background(), types.StockLookupRequest{Barcodes: []string{"999"}})

	require.True(t, resp.Success)
	assert.False(t, resp.Partial)
	results := resp.Results.([]types.StockRecord)
	require.Len(t, results, 1)
	assert.Equal(t, "999", results[0].Barcode)
	assert.True(t, results[0].NotFound)
	assert.Empty(t, results[0].Error)
}

func TestStockLookupMixedOutcomesFollowInputOrder(t *testing.T) {
	stock := scrape.DefaultStockConfig()
	w := newFakeWorker("w1")
	w.html = stockDetailPage
	w.onSubmit = func(value string) {
		if value == "111" {
			w.fireLoad("https://nospos.com/stock/8814/edit")
		} else {
			w.fireLoad(stock.SearchURL)
		}
	}
	o := newTestOrchestrator(t, &fakeFactory{workers: []*fakeWorker{w}}, nil, stock)

	resp := o.StockLookup(context.Background(), types.StockLookupRequest{Barcodes: []string{"111", "222"}})

	require.True(t, resp.Success)
	results := resp.Results.([]types.StockRecord)
	require.Len(t, results, 2)

	assert.Equal(t, "111", results[0].Barcode)
	assert.Equal(t, "iPhone 13 128GB Blue", results[0].Name)
	assert.Equal(t, "BS-991", results[0].Barserial)
	assert.Equal(t, "https://nospos.com/stock/8814/edit", results[0].DetailURL)
	assert.False(t, results[0].NotFound)

	assert.Equal(t, "222", results[1].Barcode)
	assert.True(t, results[1].NotFound)
}

func TestStockLookupEmptyDetailViewIsNotFound(t *testing.T) {
	stock := scrape.DefaultStockConfig()
	w := newFakeWorker("w1")
	// some misses land on a bare detail URL instead of the listing
	w.html = "<html><body><p>nothing here</p></body></html>"
	w.onSubmit = func(string) {
		w.fireLoad("https://nospos.com/stock/8814")
	}
	o := newTestOrchestrator(t, &fakeFactory{workers: []*fakeWorker{w}}, nil, stock)

	resp := o.StockLookup(context.Background(), types.StockLookupRequest{Barcodes: []string{"333"}})

	require.True(t, resp.Success)
	results := resp.Results.([]types.StockRecord)
	require.Len(t, results, 1)
	assert.Equal(t, "333", results[0].Barcode)
	assert.True(t, results[0].NotFound)
	assert.Empty(t, results[0].Error)
}

func TestStockLookupAbortsOnLoginPage(t *testing.T) {
	stock := scrape.DefaultStockConfig()
	w := newFakeWorker("w1")
	w.onSubmit = func(string) {
		w.fireLoad("https://nospos.com/site/standard-login")
	}
	o := newTestOrchestrator(t, &fakeFactory{workers: []*fakeWorker{w}}, nil, stock)

	resp := o.StockLookup(context.Background(), types.StockLookupRequest{Barcodes: []string{"111", "222"}})

	require.False(t, resp.Success)
	assert.Equal(t, AbortMustLogIn, resp.Error)
	assert.Nil(t, resp.Results)
	assert.True(t, w.isClosed(), "the login abort also closes the worker")
}

func TestStockLookupAbortsWhenWorkerClosed(t *testing.T) {
	stock := scrape.DefaultStockConfig()
	w := newFakeWorker("w1")
	w.onSubmit = func(string) {
		// the user closes the tab mid-session
		_ = w.Close()
	}
	o := newTestOrchestrator(t, &fakeFactory{workers: []*fakeWorker{w}}, nil, stock)

	resp := o.StockLookup(context.Background(), types.StockLookupRequest{Barcodes: []string{"111"}})

	require.False(t, resp.Success)
	assert.Equal(t, AbortTabClosed, resp.Error)
}

func TestStockLookupAbortsOnDisallowedNavigation(t *testing.T) {
	stock := scrape.DefaultStockConfig()
	w := newFakeWorker("w1")
	o := newTestOrchestrator(t, &fakeFactory{workers: []*fakeWorker{w}}, nil, stock)

	h := o.StartStockLookup(types.StockLookupRequest{Barcodes: []string{"111"}})
	time.Sleep(20 * time.Millisecond)
	w.fireNavigate("https://somewhere-else.test/")

	resp := <-h.Response
	require.False(t, resp.Success)
	assert.Equal(t, AbortNavigatedAway, resp.Error)
}

func TestStockLookupEmptyItemListResolvesImmediately(t *testing.T) {
	o := newTestOrchestrator(t, &fakeFactory{}, nil, nil)

	start := time.Now()
	resp := o.StockLookup(context.Background(), types.StockLookupRequest{})

	require.True(t, resp.Success)
	assert.Len(t, resp.Results.([]types.StockRecord), 0)
	assert.Less(t, time.Since(start), 100*time.Millisecond)
}

func TestStockLookupTimeoutReturnsPartial(t *testing.T) {
	stock := scrape.DefaultStockConfig()
	w := newFakeWorker("w1")
	submissions := 0
	w.onSubmit = func(string) {
		submissions++
		if submissions == 1 {
			w.fireLoad(stock.SearchURL)
		}
		// the second submission never navigates: the session stalls and
		// the timeout closes it with what accumulated
	}
	o := newTestOrchestrator(t, &fakeFactory{workers: []*fakeWorker{w}}, nil, stock)
	o.opts.SequentialTimeout = 150 * time.Millisecond

	resp := o.StockLookup(context.Background(), types.StockLookupRequest{Barcodes: []string{"111", "222"}})

	require.True(t, resp.Success)
	assert.True(t, resp.Partial)
	results := resp.Results.([]types.StockRecord)
	require.Len(t, results, 1)
	assert.Equal(t, "111", results[0].Barcode)
}

func TestStockLookupDuplicateLoadEmitsNoDuplicateRecord(t *testing.T) {
	stock := scrape.DefaultStockConfig()
	w := newFakeWorker("w1")
	w.onSubmit = func(string) {
		w.fireLoad(stock.SearchURL)
	}
	o := newTestOrchestrator(t, &fakeFactory{workers: []*fakeWorker{w}}, nil, stock)

	resp := o.StockLookup(context.Background(), types.StockLookupRequest{Barcodes: []string{"999"}})
	require.True(t, resp.Success)
	require.Len(t, resp.Results.([]types.StockRecord), 1)

	// a stray re-initialization after resolution finds no checkpoint and
	// must do nothing
	w.fireLoad(stock.SearchURL)
	time.Sleep(20 * time.Millisecond)
}
