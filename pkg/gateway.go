package pkg

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/sirupsen/logrus"
)

const (
	opTerminate = "terminate"
	opMemory    = "fetch memory map"
	opSnapshot  = "fetch snapshot"
)

// Client talks to the inspector backend. Every call is a single request with
// no retry; failures come back as *GatewayError.
type Client struct {
	baseURL string
	client  *http.Client
}

func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		client: &http.Client{
			Timeout: timeout,
		},
	}
}

// Terminate asks the inspector to kill pid. Any 2xx status is success.
func (c *Client) Terminate(ctx context.Context, pid int32) error {
	_, err := c.do(ctx, opTerminate, pid, http.MethodPost, "/tasks", pidBody(pid))
	return err
}

// FetchMemoryMap returns the memory regions of pid.
func (c *Client) FetchMemoryMap(ctx context.Context, pid int32) (*MemoryMap, error) {
	body, err := c.do(ctx, opMemory, pid, http.MethodPost, "/memory", pidBody(pid))
	if err != nil {
		return nil, err
	}
	if err := requireFields(body, "total_rss", "total_size", "blocks"); err != nil {
		return nil, c.fail(opMemory, pid, 0, ErrMalformedResponse, err)
	}
	result := &MemoryMap{}
	if err := json.Unmarshal(body, result); err != nil {
		return nil, c.fail(opMemory, pid, 0, ErrMalformedResponse, err)
	}
	for i := range result.Blocks {
		if result.Blocks[i].Permissions == nil {
			result.Blocks[i].Permissions = []string{}
		}
	}
	return result, nil
}

// FetchSnapshot pulls the current process list and system totals.
func (c *Client) FetchSnapshot(ctx context.Context) (*Snapshot, error) {
	body, err := c.do(ctx, opSnapshot, 0, http.MethodGet, "/tasks", nil)
	if err != nil {
		return nil, err
	}
	if err := requireFields(body, "memory", "processes"); err != nil {
		return nil, c.fail(opSnapshot, 0, 0, ErrMalformedResponse, err)
	}
	snapshot := NewSnapshot()
	if err := json.Unmarshal(body, snapshot); err != nil {
		return nil, c.fail(opSnapshot, 0, 0, ErrMalformedResponse, err)
	}
	return snapshot, nil
}

func (c *Client) do(ctx context.Context, op string, pid int32, method, path string, body io.Reader) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, c.fail(op, pid, 0, ErrTransport, err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "text/plain")
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, c.fail(op, pid, 0, ErrTransport, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, c.fail(op, pid, resp.StatusCode, ErrTransport, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var cause error
		if msg := strings.TrimSpace(string(data)); msg != "" {
			cause = errors.New(msg)
		}
		return nil, c.fail(op, pid, resp.StatusCode, ErrBackend, cause)
	}
	return data, nil
}

func (c *Client) fail(op string, pid int32, status int, kind error, cause error) error {
	err := &GatewayError{Op: op, Pid: pid, Status: status, Kind: kind, Err: cause}
	logrus.WithFields(logrus.Fields{
		"op":     op,
		"pid":    pid,
		"status": status,
	}).WithError(err).Warningln("inspector call failed")
	return err
}

func pidBody(pid int32) io.Reader {
	return strings.NewReader(strconv.Itoa(int(pid)))
}

// requireFields checks that data is a JSON object carrying every key.
func requireFields(data []byte, keys ...string) error {
	var fields map[string]jsoniter.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return err
	}
	var missing []string
	for _, k := range keys {
		if _, ok := fields[k]; !ok {
			missing = append(missing, k)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing fields: %s", strings.Join(missing, ", "))
	}
	return nil
}
