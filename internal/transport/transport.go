// Package transport implements the optional remote push of a finished
// export over HTTP/3, adapted from the teacher's
// internal/runtime/netstack/http3.go client helper — generalized here from
// a general HTTP/3 client factory into a single-purpose "push these bytes
// to a collector" pusher.
package transport

import (
	"bytes"
	"context"
	"crypto/tls"
	"fmt"
	"net/http"
	"time"

	http3 "github.com/quic-go/quic-go/http3"
)

// Options configures the remote pusher.
type Options struct {
	TLSConfig *tls.Config
	Timeout   time.Duration
}

// Pusher sends finished export payloads to a remote collector over HTTP/3.
type Pusher struct {
	client *http.Client
}

// NewPusher builds a Pusher. TLSConfig is upgraded to TLS 1.3 with the "h3"
// ALPN token if it doesn't already specify one, matching the teacher's
// HTTP3Client helper.
func NewPusher(opts Options) *Pusher {
	tlsCfg := opts.TLSConfig
	if tlsCfg == nil {
		tlsCfg = &tls.Config{MinVersion: tls.VersionTLS13, NextProtos: []string{"h3"}}
	} else if tlsCfg.MinVersion == 0 || tlsCfg.MinVersion < tls.VersionTLS13 {
		c := tlsCfg.Clone()
		c.MinVersion = tls.VersionTLS13

		if len(c.NextProtos) == 0 {
			c.NextProtos = []string{"h3"}
		}

		tlsCfg = c
	}

	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	tr := &http3.Transport{TLSClientConfig: tlsCfg}

	return &Pusher{client: &http.Client{Transport: tr, Timeout: timeout}}
}

// Push POSTs payload to url with the given content type, returning an error
// on any non-2xx response.
func (p *Pusher) Push(ctx context.Context, url, contentType string, payload []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("transport: build request: %w", err)
	}

	req.Header.Set("Content-Type", contentType)

	resp, err := p.client.Do(req)
	if err != nil {
		return fmt.Errorf("transport: push to %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		return fmt.Errorf("transport: push to %s: unexpected status %s", url, resp.Status)
	}

	return nil
}

// Close releases the underlying HTTP/3 round tripper.
func (p *Pusher) Close() {
	if tr, ok := p.client.Transport.(*http3.Transport); ok {
		_ = tr.Close()
	}
}
