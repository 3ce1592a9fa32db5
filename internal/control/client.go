package control

import (
	"encoding/json"
	"fmt"
	"net"
	"time"
)

// Client dials the daemon's control-plane Unix socket and issues
// status/reload/stop requests, mirroring internal/rpc.Client's verb
// shape (Start/Stop/Reload returning a Success/Message envelope).
type Client struct {
	conn net.Conn
	dec  *json.Decoder
	enc  *json.Encoder
}

// Dial connects to the daemon's control socket at socketPath.
func Dial(socketPath string) (*Client, error) {
	conn, err := net.DialTimeout("unix", socketPath, 3*time.Second)
	if err != nil {
		return nil, fmt.Errorf("control: connect to daemon: %w", err)
	}
	return &Client{
		conn: conn,
		dec:  json.NewDecoder(conn),
		enc:  json.NewEncoder(conn),
	}, nil
}

// Close closes the underlying connection.
func (c *Client) Close() error {
	return c.conn.Close()
}

func (c *Client) roundTrip(cmd Command) (Response, error) {
	if err := c.enc.Encode(Request{Command: cmd}); err != nil {
		return Response{}, fmt.Errorf("control: send %s: %w", cmd, err)
	}
	var resp Response
	if err := c.dec.Decode(&resp); err != nil {
		return Response{}, fmt.Errorf("control: read %s response: %w", cmd, err)
	}
	return resp, nil
}

// Status requests the daemon's current health snapshot.
func (c *Client) Status() (StatusInfo, error) {
	resp, err := c.roundTrip(CmdStatus)
	if err != nil {
		return StatusInfo{}, err
	}
	if !resp.Success || resp.Status == nil {
		return StatusInfo{}, fmt.Errorf("control: status failed: %s", resp.Message)
	}
	return *resp.Status, nil
}

// Reload asks the daemon to reload its configuration.
func (c *Client) Reload() error {
	resp, err := c.roundTrip(CmdReload)
	if err != nil {
		return err
	}
	if !resp.Success {
		return fmt.Errorf("control: reload failed: %s", resp.Message)
	}
	return nil
}

// Stop asks the daemon to shut down gracefully.
func (c *Client) Stop() error {
	resp, err := c.roundTrip(CmdStop)
	if err != nil {
		return err
	}
	if !resp.Success {
		return fmt.Errorf("control: stop failed: %s", resp.Message)
	}
	return nil
}
