package rpc

import (
	"bufio"
	"encoding/json"
	"fmt"
	"net"
	"os"
	"sync"
	"time"

	"github.com/dmgomes/nextup/internal/notify"
)

// Client talks to a running server over its unix socket.
type Client struct {
	mu     sync.Mutex
	conn   net.Conn
	reader *bufio.Reader
}

// Connect dials the server socket.
func Connect(socketPath string) (*Client, error) {
	conn, err := net.DialTimeout("unix", socketPath, 2*time.Second)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", socketPath, err)
	}
	return &Client{conn: conn, reader: bufio.NewReader(conn)}, nil
}

// TryConnect dials the server socket if it exists. Returns nil without
// error when no server is running, so callers can fall back to direct
// storage access.
func TryConnect(socketPath string) (*Client, error) {
	if _, err := os.Stat(socketPath); os.IsNotExist(err) {
		return nil, nil
	}
	client, err := Connect(socketPath)
	if err != nil {
		// Stale socket from a dead server.
		return nil, nil
	}
	return client, nil
}

// Close closes the connection.
func (c *Client) Close() error {
	return c.conn.Close()
}

// Call sends one request and decodes the response data into result,
// which may be nil when the caller only cares about success. Wire error
// codes come back as the matching sentinel error where one exists.
func (c *Client) Call(operation string, args interface{}, result interface{}) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	req := Request{Operation: operation}
	if args != nil {
		raw, err := json.Marshal(args)
		if err != nil {
			return fmt.Errorf("failed to encode args: %w", err)
		}
		req.Args = raw
	}

	if err := json.NewEncoder(c.conn).Encode(req); err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}

	line, err := c.reader.ReadBytes('\n')
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}
	var resp Response
	if err := json.Unmarshal(line, &resp); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	if !resp.Success {
		if sentinel := sentinelForCode(resp.Code); sentinel != nil {
			return fmt.Errorf("%s: %w", resp.Error, sentinel)
		}
		return fmt.Errorf("%s", resp.Error)
	}
	if result != nil && len(resp.Data) > 0 {
		if err := json.Unmarshal(resp.Data, result); err != nil {
			return fmt.Errorf("failed to decode response data: %w", err)
		}
	}
	return nil
}

// Ping checks that the server is alive.
func (c *Client) Ping() (*PingResponse, error) {
	var pong PingResponse
	if err := c.Call(OpPing, nil, &pong); err != nil {
		return nil, err
	}
	return &pong, nil
}

// Subscribe turns this client's connection into an event stream and
// invokes the handler for every received event until the connection
// drops or Close is called. The client cannot issue calls afterwards.
func (c *Client) Subscribe(topics []string, handler func(notify.Event)) error {
	c.mu.Lock()
	req := Request{Operation: OpSubscribe}
	if len(topics) > 0 {
		raw, err := json.Marshal(SubscribeArgs{Topics: topics})
		if err != nil {
			c.mu.Unlock()
			return fmt.Errorf("failed to encode args: %w", err)
		}
		req.Args = raw
	}
	if err := json.NewEncoder(c.conn).Encode(req); err != nil {
		c.mu.Unlock()
		return fmt.Errorf("failed to send subscribe: %w", err)
	}

	line, err := c.reader.ReadBytes('\n')
	if err != nil {
		c.mu.Unlock()
		return fmt.Errorf("failed to read subscribe ack: %w", err)
	}
	c.mu.Unlock()

	var resp Response
	if err := json.Unmarshal(line, &resp); err != nil {
		return fmt.Errorf("failed to decode subscribe ack: %w", err)
	}
	if !resp.Success {
		return fmt.Errorf("subscribe rejected: %s", resp.Error)
	}

	for {
		line, err := c.reader.ReadBytes('\n')
		if err != nil {
			return nil
		}
		var ev notify.Event
		if err := json.Unmarshal(line, &ev); err != nil {
			continue
		}
		handler(ev)
	}
}
