package gateway

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"sync"

	"github.com/tidwall/gjson"
)

// maxFrame bounds one newline-delimited JSON frame. Catalog frames carry the
// whole snapshot.
const maxFrame = 16 << 20

// rejectedMessage stands in for an optimize frame that failed to decode, so
// the peer still gets exactly one reply for it, in order.
type rejectedMessage struct {
	id  string
	err error
}

func (rejectedMessage) Kind() string { return KindOptimize }

// rejectedCatalog stands in for a catalog frame that failed to decode. The
// worker treats it like a catalog that failed to build.
type rejectedCatalog struct {
	err error
}

func (rejectedCatalog) Kind() string { return KindCatalog }

// ServeStream runs the worker protocol over newline-delimited JSON: frames
// are read from r and replies written to out. It returns once r is exhausted
// and every queued message has been answered. w must already be started.
func ServeStream(ctx context.Context, w *Worker, r io.Reader, out io.Writer, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.Default()
	}

	errc := make(chan error, 1)
	go func() {
		enc := json.NewEncoder(out)
		var werr error
		for reply := range w.Replies() {
			if werr != nil {
				continue
			}
			werr = enc.Encode(reply)
		}
		errc <- werr
	}()

	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), maxFrame)
	var readErr error
	for sc.Scan() {
		line := bytes.TrimSpace(sc.Bytes())
		if len(line) == 0 {
			continue
		}
		msg, err := DecodeMessage(line)
		if err != nil {
			switch gjson.GetBytes(line, "type").String() {
			case KindOptimize:
				msg = rejectedMessage{id: gjson.GetBytes(line, "id").String(), err: err}
			case KindCatalog:
				msg = rejectedCatalog{err: err}
			default:
				logger.Warn("[worker] skipping frame", "err", err)
				continue
			}
		}
		if err := w.Enqueue(ctx, msg); err != nil {
			readErr = err
			break
		}
	}
	if readErr == nil {
		readErr = sc.Err()
	}

	_ = w.Close()
	return errors.Join(readErr, <-errc)
}

// StreamTransport is the client side of ServeStream. It implements Transport
// over a pair of byte streams, such as the pipes of a worker process.
type StreamTransport struct {
	logger  *slog.Logger
	mu      sync.Mutex
	enc     *json.Encoder
	w       io.Writer
	replies chan Reply
	done    chan struct{}
}

// NewStreamTransport starts reading replies from r. The reply channel closes
// when r reaches EOF or fails.
func NewStreamTransport(r io.Reader, w io.Writer, logger *slog.Logger) *StreamTransport {
	if logger == nil {
		logger = slog.Default()
	}
	t := &StreamTransport{
		logger:  logger,
		enc:     json.NewEncoder(w),
		w:       w,
		replies: make(chan Reply, DefaultQueueDepth),
		done:    make(chan struct{}),
	}
	go t.read(r)
	return t
}

// Send writes one frame.
func (t *StreamTransport) Send(msg Message) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.enc.Encode(msg)
}

// Replies implements Transport.
func (t *StreamTransport) Replies() <-chan Reply { return t.replies }

// Done is closed once the read side has stopped.
func (t *StreamTransport) Done() <-chan struct{} { return t.done }

// Close closes the write side if it is closable. The peer sees EOF, drains
// and closes its output, which ends the reply stream.
func (t *StreamTransport) Close() error {
	if c, ok := t.w.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

func (t *StreamTransport) read(r io.Reader) {
	defer close(t.done)
	defer close(t.replies)
	dec := json.NewDecoder(r)
	for {
		var reply Reply
		if err := dec.Decode(&reply); err != nil {
			if !errors.Is(err, io.EOF) {
				t.logger.Error("[gateway] reading replies", "err", err)
			}
			return
		}
		// Restore sentinels that callers match on.
		if reply.Error == ErrNoCatalog.Error() {
			reply.Err = ErrNoCatalog
		}
		t.replies <- reply
	}
}
