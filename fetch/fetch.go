// Package fetch is the non-core HTTP collaborator that retrieves a
// did:webvh log and its witness proof file from a DID's base URL. The
// core (webvhdoc, canon, scid, proof, builder, replay, witness, resolver)
// never imports it; a resolver.Fetcher is supplied by the caller instead
// (see spec §1: "the network fetch of the log is external").
//
// Grounded on cocoon/identity.go's FetchDidDoc/FetchDidAuditLog: build a
// URL from an identifier, GET it, decode the body, turn a non-200 into an
// error.
package fetch

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/didwebvh/webvh-go/webvhdoc"
	"github.com/hashicorp/go-retryablehttp"
)

// Client fetches a did:webvh log and witness proof file over HTTP, using
// go-retryablehttp's retry-wrapped *http.Client (see DESIGN.md) rather than
// an indigo-internal helper.
type Client struct {
	HTTP *retryablehttp.Client
}

// New builds a Client with retryablehttp's default backoff policy and its
// logger silenced (the resolver layer does its own structured logging).
func New() *Client {
	c := retryablehttp.NewClient()
	c.Logger = nil
	return &Client{HTTP: c}
}

// FetchLog retrieves and decodes <did's base url>/did.jsonl: one
// webvhdoc.Entry per line, in log order.
func (c *Client) FetchLog(ctx context.Context, did webvhdoc.DID) ([]webvhdoc.Entry, error) {
	body, err := c.get(ctx, did.LogURL())
	if err != nil {
		return nil, fmt.Errorf("fetch: log: %w", err)
	}
	defer body.Close()

	var entries []webvhdoc.Entry
	scanner := bufio.NewScanner(body)
	scanner.Buffer(make([]byte, 0, 64*1024), 8*1024*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var entry webvhdoc.Entry
		if err := json.Unmarshal(line, &entry); err != nil {
			return nil, fmt.Errorf("fetch: decode log line: %w", err)
		}
		entries = append(entries, entry)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("fetch: scan log: %w", err)
	}
	return entries, nil
}

// FetchWitnessProofs retrieves <did's base url>/did-witness.json. A 404 is
// not an error: it means the log has no witnesses configured, or none have
// published proofs yet, and callers should treat it as an empty file.
func (c *Client) FetchWitnessProofs(ctx context.Context, did webvhdoc.DID) (webvhdoc.WitnessProofFile, error) {
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, did.WitnessProofURL(), nil)
	if err != nil {
		return nil, fmt.Errorf("fetch: witness proofs: %w", err)
	}
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch: witness proofs: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusNotFound {
		return nil, nil
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch: witness proofs: unexpected status %d", resp.StatusCode)
	}

	var file webvhdoc.WitnessProofFile
	if err := json.NewDecoder(resp.Body).Decode(&file); err != nil {
		return nil, fmt.Errorf("fetch: decode witness proofs: %w", err)
	}
	return file, nil
}

func (c *Client) get(ctx context.Context, url string) (io.ReadCloser, error) {
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("unexpected status %d for %s", resp.StatusCode, url)
	}
	return resp.Body, nil
}
