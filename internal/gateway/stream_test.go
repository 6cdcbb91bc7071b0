package gateway

import (
	"bytes"
	"context"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"

	"workshop-optimizer/internal/search"
)

func TestServeStream(t *testing.T) {
	in := strings.Join([]string{
		`{"type":"catalog","catalog":{"A":{"categories":["x"],"value":100,"time":12,"popularity":1,"supply":2},"B":{"categories":["x"],"value":50,"time":12,"popularity":1,"supply":2}}}`,
		``,
		`{"type":"hello"}`,
		`{"type":"optimize","id":"bad","groove":"three"}`,
		`{"type":"optimize","id":"good","workshops":[1],"groove":0,"maxGroove":35,"maxResults":1}`,
	}, "\n")

	w := NewWorker(search.NewEngine(search.DefaultConfig(), nil), 4, nil)
	w.Start()
	var out bytes.Buffer
	require.NoError(t, ServeStream(context.Background(), w, strings.NewReader(in), &out, nil))

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 3)

	assert.Equal(t, KindReady, gjson.Get(lines[0], "type").String())

	assert.Equal(t, KindOptimized, gjson.Get(lines[1], "type").String())
	assert.Equal(t, "bad", gjson.Get(lines[1], "id").String())
	assert.NotEmpty(t, gjson.Get(lines[1], "error").String())

	assert.Equal(t, "good", gjson.Get(lines[2], "id").String())
	assert.False(t, gjson.Get(lines[2], "error").Exists())
	assert.Equal(t, `["B","A"]`, gjson.Get(lines[2], "results.0.products").Raw)
	assert.Equal(t, int64(252), gjson.Get(lines[2], "results.0.value").Int())
}

func TestStreamTransport_RoundTrip(t *testing.T) {
	toWorkerR, toWorkerW := io.Pipe()
	fromWorkerR, fromWorkerW := io.Pipe()

	w := NewWorker(search.NewEngine(search.DefaultConfig(), nil), 4, nil)
	w.Start()
	served := make(chan error, 1)
	go func() {
		err := ServeStream(context.Background(), w, toWorkerR, fromWorkerW, nil)
		_ = fromWorkerW.Close()
		served <- err
	}()

	g := New(NewStreamTransport(fromWorkerR, toWorkerW, nil), abResolver())

	_, err := g.Optimize(testContext(t), abRequest)
	assert.ErrorIs(t, err, ErrNoCatalog, "sentinel survives the stream")

	require.NoError(t, g.PushCatalog(abSnapshot()))
	plans, err := g.Optimize(testContext(t), abRequest)
	require.NoError(t, err)
	require.Len(t, plans, 2)
	assert.Equal(t, []string{"B", "A"}, plans[0].IDs())

	require.NoError(t, g.Close())
	select {
	case err := <-served:
		assert.NoError(t, err)
	case <-time.After(waitFor):
		t.Fatal("worker stream did not finish")
	}
}

func TestWorker_EnqueueWaitsForRoom(t *testing.T) {
	w := NewWorker(search.NewEngine(search.DefaultConfig(), nil), 1, nil)
	require.NoError(t, w.Send(optimizeMessage("1", abRequest)))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, w.Enqueue(ctx, optimizeMessage("2", abRequest)), context.DeadlineExceeded)

	w.Start()
	require.NoError(t, w.Enqueue(testContext(t), optimizeMessage("3", abRequest)))
	assert.Equal(t, "1", recv(t, w.Replies()).ID)
	assert.Equal(t, "3", recv(t, w.Replies()).ID)
	require.NoError(t, w.Close())
}

func TestServeStream_UndecodableCatalogClearsCatalog(t *testing.T) {
	in := strings.Join([]string{
		`{"type":"catalog","catalog":{"A":{"categories":["x"],"value":100,"time":12,"popularity":1,"supply":2}}}`,
		`{"type":"catalog","catalog":{"A":{"categories":["x"],"value":"oops","time":12,"popularity":1,"supply":2}}}`,
		`{"type":"optimize","id":"q","workshops":[1],"groove":0,"maxGroove":35}`,
	}, "\n")

	w := NewWorker(search.NewEngine(search.DefaultConfig(), nil), 4, nil)
	w.Start()
	var out bytes.Buffer
	require.NoError(t, ServeStream(context.Background(), w, strings.NewReader(in), &out, nil))

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, KindReady, gjson.Get(lines[0], "type").String())
	assert.Equal(t, KindError, gjson.Get(lines[1], "type").String())
	assert.NotEmpty(t, gjson.Get(lines[1], "error").String())

	assert.Equal(t, KindOptimized, gjson.Get(lines[2], "type").String())
	assert.Equal(t, "q", gjson.Get(lines[2], "id").String())
	assert.Equal(t, ErrNoCatalog.Error(), gjson.Get(lines[2], "error").String())
	assert.False(t, gjson.Get(lines[2], "results").Exists(), "old catalog must not be searched")
}

func TestGateway_WorkerGone(t *testing.T) {
	pr, pw := io.Pipe()
	g := New(NewStreamTransport(pr, io.Discard, nil), abResolver())
	defer g.Close()

	p, err := g.Submit(abRequest)
	require.NoError(t, err)

	require.NoError(t, pw.Close())
	_, err = p.Wait(testContext(t))
	assert.ErrorIs(t, err, ErrWorkerGone)

	_, err = g.Submit(abRequest)
	assert.ErrorIs(t, err, ErrWorkerGone)
	assert.ErrorIs(t, g.PushCatalog(abSnapshot()), ErrWorkerGone)
	assert.Equal(t, 0, g.Outstanding())
}

func TestWorker_CloseReleasesEnqueue(t *testing.T) {
	w := NewWorker(search.NewEngine(search.DefaultConfig(), nil), 1, nil)
	require.NoError(t, w.Send(optimizeMessage("1", abRequest)))

	errc := make(chan error, 1)
	go func() { errc <- w.Enqueue(context.Background(), optimizeMessage("2", abRequest)) }()

	require.NoError(t, w.Close())
	select {
	case err := <-errc:
		assert.ErrorIs(t, err, ErrClosed)
	case <-time.After(waitFor):
		t.Fatal("Enqueue still blocked after Close")
	}
	assert.Equal(t, "1", recv(t, w.Replies()).ID)
}
