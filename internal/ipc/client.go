package ipc

import (
	"net"
	"net/rpc"
	"net/rpc/jsonrpc"
	"time"
)

// Client provides RPC access to the daemon.
type Client struct {
	conn   net.Conn
	client *rpc.Client
}

// Dial connects to the IPC server at the given socket path.
func Dial(path string) (*Client, error) {
	conn, err := net.DialTimeout("unix", path, 2*time.Second)
	if err != nil {
		return nil, err
	}
	rpcClient := rpc.NewClientWithCodec(jsonrpc.NewClientCodec(conn))
	return &Client{conn: conn, client: rpcClient}, nil
}

// Close closes the underlying connection.
func (c *Client) Close() error {
	if c.client != nil {
		_ = c.client.Close()
	}
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}

// Status retrieves the daemon status.
func (c *Client) Status() (*StatusResponse, error) {
	var resp StatusResponse
	if err := c.client.Call("Recap.Status", StatusRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Submit enqueues a media source for processing.
func (c *Client) Submit(source string, opts SummaryOptions) (*SubmitResponse, error) {
	var resp SubmitResponse
	req := SubmitRequest{Source: source, Options: opts}
	if err := c.client.Call("Recap.Submit", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Jobs returns the active jobs and the retained terminal window.
func (c *Client) Jobs() (*JobsResponse, error) {
	var resp JobsResponse
	if err := c.client.Call("Recap.Jobs", JobsRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Job returns details for a single job.
func (c *Client) Job(id string) (*JobResponse, error) {
	var resp JobResponse
	if err := c.client.Call("Recap.Job", JobRequest{ID: id}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Health returns component readiness as seen by the daemon.
func (c *Client) Health() (*HealthResponse, error) {
	var resp HealthResponse
	if err := c.client.Call("Recap.Health", HealthRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// TestNotification triggers a notification test via the daemon.
func (c *Client) TestNotification() (*TestNotificationResponse, error) {
	var resp TestNotificationResponse
	if err := c.client.Call("Recap.TestNotification", TestNotificationRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}
