package fastview

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	channerics "github.com/niceyeti/channerics/channels"
	"golang.org/x/sync/errgroup"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 1 * time.Second
	// Maximum message size allowed from peer; the page never sends more than control frames.
	maxMessageSize = 512
	pingResolution = time.Millisecond * 500
	// The number of pings to tolerate losing before concluding the peer is gone.
	pongWait = pingResolution * 4
	// Time to wait for the peer's close frame before dropping the connection.
	closeGracePeriod = time.Second
	// Time to wait on a congested read or write before giving up.
	sockWait = time.Second
)

var upgrader = websocket.Upgrader{}

// ErrPongDeadlineExceeded indicates the peer stopped answering pings.
var ErrPongDeadlineExceeded = errors.New("client disconnect, pong deadline exceeded")

// ErrSockCongestion indicates there are too many waiters on the socket for a given op.
var ErrSockCongestion = errors.New("sock op failed due to congestion")

// Client publishes updates unidirectionally to a browser over a websocket.
// Items on the updates chan should be idempotent ele-updates, such that
// dropping intervening items still leaves the page consistent.
type Client[T any] struct {
	id      string
	updates <-chan T
	ws      *websock
	rootCtx context.Context
}

// NewClient upgrades the request to a websocket and returns a client that
// publishes items from updates until the peer disconnects or the request ends.
func NewClient[T any](
	updates <-chan T,
	w http.ResponseWriter,
	r *http.Request,
) (*Client[T], error) {
	ws, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already replied to the client with an http error.
		return nil, fmt.Errorf("websocket upgrade: %w", err)
	}
	ws.SetReadLimit(maxMessageSize)

	return &Client[T]{
		id:      uuid.NewString(),
		updates: updates,
		ws:      newWebsock(ws),
		rootCtx: r.Context(),
	}, nil
}

// ID identifies the client in logs.
func (cli *Client[T]) ID() string {
	return cli.id
}

// Sync runs the reader, the ping-pong liveness check and the publisher until
// one of them fails or the request context ends, then closes the socket.
// Sync returns nil upon a clean client disconnect.
func (cli *Client[T]) Sync() error {
	log.Printf("[fastview] client %s connected", cli.id)
	defer log.Printf("[fastview] client %s disconnected", cli.id)
	defer cli.ws.Close()

	group, groupCtx := errgroup.WithContext(cli.rootCtx)
	group.Go(func() error {
		return cli.readMessages(groupCtx)
	})
	group.Go(func() error {
		return cli.pingPong(groupCtx)
	})
	group.Go(func() error {
		return cli.publish(groupCtx)
	})
	group.Go(func() error {
		// ReadMessage does not observe the context; expire it so the reader returns.
		<-groupCtx.Done()
		_ = cli.ws.Conn().SetReadDeadline(time.Now())
		return nil
	})

	if err := group.Wait(); err != nil && !isClosure(err) {
		return fmt.Errorf("client %s: %w", cli.id, err)
	}
	return nil
}

// pingPong requires that readMessages is running, since the pong handler is
// only invoked from within reads.
func (cli *Client[T]) pingPong(ctx context.Context) error {
	pong := make(chan struct{}, 1)
	cli.ws.Conn().SetPongHandler(func(_ string) error {
		select {
		case pong <- struct{}{}:
		default:
		}
		return nil
	})

	pinger := channerics.NewTicker(ctx.Done(), pingResolution)
	lastPong := time.Now()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-pinger:
			if time.Since(lastPong) > pongWait {
				return ErrPongDeadlineExceeded
			}
			err := cli.ws.Write(ctx, func(ws *websocket.Conn) error {
				return ws.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait))
			})
			if err != nil {
				return fmt.Errorf("ping failed: %w", err)
			}
		case <-pong:
			lastPong = time.Now()
		}
	}
}

// readMessages drains the peer's messages. Errors returned by websocket
// reads are permanent, hence any error tears the client down.
func (cli *Client[T]) readMessages(ctx context.Context) error {
	for {
		if ctx.Err() != nil {
			return nil
		}
		err := cli.ws.Read(ctx, func(ws *websocket.Conn) error {
			_, _, readErr := ws.ReadMessage()
			return readErr
		})
		if err != nil {
			return err
		}
	}
}

func (cli *Client[T]) publish(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case updates, ok := <-cli.updates:
			if !ok {
				return nil
			}
			err := cli.ws.Write(ctx, func(ws *websocket.Conn) error {
				if err := ws.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
					return fmt.Errorf("failed to set deadline: %w", err)
				}
				return ws.WriteJSON(updates)
			})
			if err != nil {
				return fmt.Errorf("publish failed: %w", err)
			}
		}
	}
}

func isClosure(err error) bool {
	var closeErr *websocket.CloseError
	if errors.As(err, &closeErr) {
		return closeErr.Code == websocket.CloseNormalClosure ||
			closeErr.Code == websocket.CloseGoingAway ||
			closeErr.Code == websocket.CloseNoStatusReceived
	}
	return false
}

// websock serializes reads and writes to the websocket, which permits only
// one concurrent reader and one concurrent writer.
type websock struct {
	readSem  chan struct{}
	writeSem chan struct{}
	ws       *websocket.Conn
}

func newWebsock(ws *websocket.Conn) *websock {
	return &websock{
		readSem:  make(chan struct{}, 1),
		writeSem: make(chan struct{}, 1),
		ws:       ws,
	}
}

// Conn returns the underlying websocket, for non-concurrent setup such as adding handlers.
func (sock *websock) Conn() *websocket.Conn {
	return sock.ws
}

// Close sends a close frame and closes the connection. The write semaphore is
// held so that no publisher races the close frame; readers are unblocked by
// the connection closing.
func (sock *websock) Close() {
	sock.writeSem <- struct{}{}
	defer func() { <-sock.writeSem }()

	_ = sock.ws.WriteControl(
		websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(closeGracePeriod))
	sock.ws.Close()
}

// Read serializes read operations on the websocket.
func (sock *websock) Read(
	ctx context.Context,
	readFn func(*websocket.Conn) error,
) error {
	select {
	case <-ctx.Done():
		return nil
	case sock.readSem <- struct{}{}:
		defer func() { <-sock.readSem }()
		return readFn(sock.ws)
	case <-time.After(sockWait):
		return ErrSockCongestion
	}
}

// Write serializes write operations on the websocket.
func (sock *websock) Write(
	ctx context.Context,
	writeFn func(*websocket.Conn) error,
) error {
	select {
	case <-ctx.Done():
		return nil
	case sock.writeSem <- struct{}{}:
		defer func() { <-sock.writeSem }()
		return writeFn(sock.ws)
	case <-time.After(sockWait):
		return ErrSockCongestion
	}
}
