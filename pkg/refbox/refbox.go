// Package refbox obtains raw task specifications from the referee box.
package refbox

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"strconv"
	"time"

	"github.com/go-zeromq/zmq4"

	"github.com/cgast/atwork/pkg/taskspec"
)

// Defaults used when no configuration is given.
const (
	DefaultHost    = "192.168.51.167"
	DefaultPort    = 11111
	DefaultTeam    = "b-it-bots"
	DefaultTimeout = 30 * time.Second
)

// ErrEmptyReply is returned when the referee box answers with no payload.
var ErrEmptyReply = errors.New("refbox: empty reply")

// Fetcher acquires one raw specification string.
type Fetcher interface {
	FetchRawSpec(ctx context.Context) (string, error)
}

// Client requests a specification over a ZeroMQ REQ socket. The request
// payload is the team name; the reply's first frame is the specification.
type Client struct {
	Host    string
	Port    int
	Team    string
	Timeout time.Duration
	Logger  *slog.Logger
}

// NewClient returns a Client with defaults filled in for zero fields.
func NewClient(host string, port int, team string) *Client {
	c := &Client{Host: host, Port: port, Team: team}
	if c.Host == "" {
		c.Host = DefaultHost
	}
	if c.Port == 0 {
		c.Port = DefaultPort
	}
	if c.Team == "" {
		c.Team = DefaultTeam
	}
	return c
}

// Endpoint is the ZeroMQ address the client dials.
func (c *Client) Endpoint() string {
	return "tcp://" + net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

func (c *Client) logger() *slog.Logger {
	if c.Logger != nil {
		return c.Logger
	}
	return slog.Default()
}

// FetchRawSpec blocks until the referee box replies, the timeout elapses,
// or ctx is cancelled.
func (c *Client) FetchRawSpec(ctx context.Context) (string, error) {
	timeout := c.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	sock := zmq4.NewReq(ctx, zmq4.WithDialerTimeout(timeout))
	defer sock.Close()

	endpoint := c.Endpoint()
	c.logger().Debug("waiting for task specification", "endpoint", endpoint, "team", c.Team)

	if err := sock.Dial(endpoint); err != nil {
		return "", fmt.Errorf("refbox: dial %s: %w", endpoint, err)
	}
	if err := sock.Send(zmq4.NewMsgString(c.Team)); err != nil {
		return "", fmt.Errorf("refbox: send request: %w", err)
	}

	type reply struct {
		msg zmq4.Msg
		err error
	}
	done := make(chan reply, 1)
	go func() {
		msg, err := sock.Recv()
		done <- reply{msg, err}
	}()

	select {
	case <-ctx.Done():
		return "", fmt.Errorf("refbox: waiting for reply from %s: %w", endpoint, ctx.Err())
	case r := <-done:
		if r.err != nil {
			return "", fmt.Errorf("refbox: receive reply: %w", r.err)
		}
		if len(r.msg.Frames) == 0 || len(r.msg.Frames[0]) == 0 {
			return "", ErrEmptyReply
		}
		spec := string(r.msg.Frames[0])
		c.logger().Info("task specification received", "spec", spec)
		return spec, nil
	}
}

// StaticFetcher always returns Spec.
type StaticFetcher struct {
	Spec string
}

func (f StaticFetcher) FetchRawSpec(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return f.Spec, nil
}

// Simulated returns a fetcher serving the built-in specification for t.
func Simulated(t taskspec.TaskType) (StaticFetcher, error) {
	spec, err := taskspec.Fixture(t)
	if err != nil {
		return StaticFetcher{}, fmt.Errorf("refbox: simulate: %w", err)
	}
	return StaticFetcher{Spec: spec}, nil
}
