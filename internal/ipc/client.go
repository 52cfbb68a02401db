package ipc

import (
	"net"
	"net/rpc"
	"net/rpc/jsonrpc"
	"time"
)

// Client provides RPC access to a running daemon.
type Client struct {
	conn   net.Conn
	client *rpc.Client
}

// Dial connects to the control socket.
func Dial(path string) (*Client, error) {
	conn, err := net.DialTimeout("unix", path, 2*time.Second)
	if err != nil {
		return nil, err
	}
	return &Client{conn: conn, client: rpc.NewClientWithCodec(jsonrpc.NewClientCodec(conn))}, nil
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

// Status retrieves the daemon status snapshot.
func (c *Client) Status() (*StatusResponse, error) {
	var resp StatusResponse
	if err := c.client.Call("Vidwall.Status", StatusRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Pause engages the user pause.
func (c *Client) Pause() (*PauseResponse, error) {
	var resp PauseResponse
	if err := c.client.Call("Vidwall.Pause", PauseRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Resume clears the user pause.
func (c *Client) Resume() (*ResumeResponse, error) {
	var resp ResumeResponse
	if err := c.client.Call("Vidwall.Resume", ResumeRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Toggle flips the user pause.
func (c *Client) Toggle() (*ToggleResponse, error) {
	var resp ToggleResponse
	if err := c.client.Call("Vidwall.Toggle", ToggleRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Mute silences audio.
func (c *Client) Mute() (*MuteResponse, error) {
	var resp MuteResponse
	if err := c.client.Call("Vidwall.Mute", MuteRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Unmute restores audio.
func (c *Client) Unmute() (*UnmuteResponse, error) {
	var resp UnmuteResponse
	if err := c.client.Call("Vidwall.Unmute", UnmuteRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// SetVolume adjusts playback volume.
func (c *Client) SetVolume(volume float64) (*SetVolumeResponse, error) {
	var resp SetVolumeResponse
	if err := c.client.Call("Vidwall.SetVolume", SetVolumeRequest{Volume: volume}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Reload asks the daemon to reread its configuration.
func (c *Client) Reload() (*ReloadResponse, error) {
	var resp ReloadResponse
	if err := c.client.Call("Vidwall.Reload", ReloadRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Stop shuts the daemon down.
func (c *Client) Stop() (*StopResponse, error) {
	var resp StopResponse
	if err := c.client.Call("Vidwall.Stop", StopRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}
