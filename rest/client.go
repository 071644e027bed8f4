// Copyright 2026 The Drover Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use file except in compliance with the License.
// You may obtain a copy of the license at
//
//    http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package rest

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/drover-io/drover"
)

// WorkerList is a snapshot of all slots plus the change marker the next
// watch should resume from.
type WorkerList struct {
	Workers []*WorkerInfo

	etag string
}

// LogInfo is a batch of log records plus the change marker the next watch
// should resume from.  Records are incremental: a watch only returns lines
// the caller has not seen.
type LogInfo struct {
	Records []drover.LogRecord

	etag string
}

// Client talks to a drover status server.  The zero duration GetX calls
// return promptly; the WatchX calls long-poll until the server side
// changes or the context ends.
type Client struct {
	user   string
	pass   string
	auth   bool
	base   string
	client *http.Client
}

// SetAuth supplies basic-auth credentials for every request.
func (c *Client) SetAuth(user string, pass string) {
	c.user = user
	c.pass = pass
	c.auth = true
}

// poll issues a conditional GET.  If etag is set it is sent as
// If-None-Match, and wait > 0 additionally requests a server-side long
// poll of that many seconds.  On 304 the returned etag is empty and v is
// untouched; otherwise v is decoded and the fresh etag returned.
func (c *Client) poll(ctx context.Context, url string, etag string, wait int, v interface{}) (string, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", url, nil)
	if err != nil {
		return "", err
	}
	if c.auth {
		req.SetBasicAuth(c.user, c.pass)
	}
	if etag != "" {
		req.Header.Set("If-None-Match", etag)
		if wait > 0 {
			req.Header.Set(PollEtagHeader, etag)
			req.Header.Set(PollTimeHeader, strconv.Itoa(wait))
		}
	}
	res, err := c.client.Do(req)
	if err != nil {
		return "", err
	}
	defer res.Body.Close()
	if res.StatusCode == http.StatusNotModified {
		return "", nil
	}
	if res.StatusCode != http.StatusOK {
		return "", &Error{Code: res.StatusCode, Message: res.Status}
	}
	body, err := io.ReadAll(res.Body)
	if err != nil {
		return "", err
	}
	if err := json.Unmarshal(body, v); err != nil {
		return "", err
	}
	return res.Header.Get("Etag"), nil
}

func (c *Client) pollPool(ctx context.Context, secs int, last *PoolInfo) (*PoolInfo, error) {
	otag := ""
	if last != nil {
		otag = last.etag
	}
	v := &PoolInfo{}
	etag, err := c.poll(ctx, c.base+"/", otag, secs, v)
	if err != nil {
		return nil, err
	}
	if etag == "" {
		return last, nil
	}
	v.etag = etag
	return v, nil
}

// GetPool returns the pool snapshot.
func (c *Client) GetPool() (*PoolInfo, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return c.pollPool(ctx, 0, nil)
}

// WatchPool blocks until the pool changes relative to last (or the context
// ends), returning the fresh snapshot.  Passing nil returns immediately.
func (c *Client) WatchPool(ctx context.Context, last *PoolInfo) (*PoolInfo, error) {
	secs := maxPollSecs
	if last == nil {
		secs = 0
	}
	return c.pollPool(ctx, secs, last)
}

func (c *Client) pollWorkers(ctx context.Context, secs int, last *WorkerList) (*WorkerList, error) {
	otag := ""
	if last != nil {
		otag = last.etag
	}
	v := &WorkerList{}
	etag, err := c.poll(ctx, c.base+"/workers", otag, secs, &v.Workers)
	if err != nil {
		return nil, err
	}
	if etag == "" {
		return last, nil
	}
	v.etag = etag
	return v, nil
}

// GetWorkers returns a snapshot of every slot.
func (c *Client) GetWorkers() (*WorkerList, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return c.pollWorkers(ctx, 0, nil)
}

// WatchWorkers blocks until any slot changes relative to last (or the
// context ends).
func (c *Client) WatchWorkers(ctx context.Context, last *WorkerList) (*WorkerList, error) {
	secs := maxPollSecs
	if last == nil {
		secs = 0
	}
	return c.pollWorkers(ctx, secs, last)
}

// GetWorker returns the snapshot of one slot.
func (c *Client) GetWorker(slot int) (*WorkerInfo, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	v := &WorkerInfo{}
	url := c.base + "/workers/" + strconv.Itoa(slot)
	if _, err := c.poll(ctx, url, "", 0, v); err != nil {
		return nil, err
	}
	return v, nil
}

func (c *Client) pollLog(ctx context.Context, secs int, last *LogInfo) (*LogInfo, error) {
	otag := ""
	if last != nil {
		otag = last.etag
	}
	v := &LogInfo{}
	etag, err := c.poll(ctx, c.base+"/log", otag, secs, &v.Records)
	if err != nil {
		return nil, err
	}
	if etag == "" {
		return &LogInfo{etag: otag}, nil
	}
	v.etag = etag
	return v, nil
}

// GetLog returns the buffered log.
func (c *Client) GetLog() (*LogInfo, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return c.pollLog(ctx, 0, nil)
}

// WatchLog blocks until records newer than last exist (or the context
// ends), and returns only those new records.
func (c *Client) WatchLog(ctx context.Context, last *LogInfo) (*LogInfo, error) {
	secs := maxPollSecs
	if last == nil {
		secs = 0
	}
	return c.pollLog(ctx, secs, last)
}

// NewClient returns a Client handle.  The transport may be nil for the
// default; pass one to configure TLS or timeouts.  baseURI points at the
// root of the status server.
func NewClient(t *http.Transport, baseURI string) *Client {
	if t == nil {
		t = &http.Transport{}
	}
	return &Client{
		base:   baseURI,
		client: &http.Client{Transport: t},
	}
}
