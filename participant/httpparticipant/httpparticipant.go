// Package httpparticipant implements tcc.Participant over plain HTTP
// POSTs, for participants that run as separate services. Grounded on the
// teacher's client construction style (functional options over a struct,
// a default *http.Client with an explicit timeout rather than the
// zero-value client, which never times out) and on SPEC_FULL.md §4.1's
// classification rule: 5xx and network/timeout failures are retryable,
// 4xx responses are terminal business rejections.
package httpparticipant

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/Dorico-Dynamics/txova-tcc/tcc"
)

// DefaultTimeout bounds a single Try/Confirm/Cancel HTTP call.
const DefaultTimeout = 10 * time.Second

// Participant implements tcc.Participant by POSTing to
// {baseURL}/try, {baseURL}/confirm, and {baseURL}/cancel, each with a
// JSON body of {"txId": "..."}.
type Participant struct {
	id      string
	baseURL string
	client  *http.Client
}

// Option configures a Participant.
type Option func(*Participant)

// WithHTTPClient overrides the default client, e.g. to share one
// connection pool across many participants or to inject tracing
// middleware via a custom RoundTripper.
func WithHTTPClient(client *http.Client) Option {
	return func(p *Participant) { p.client = client }
}

// New creates a Participant identified by id, calling out to baseURL.
func New(id, baseURL string, opts ...Option) *Participant {
	p := &Participant{
		id:      id,
		baseURL: baseURL,
		client:  &http.Client{Timeout: DefaultTimeout},
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

var _ tcc.Participant = (*Participant)(nil)

func (p *Participant) ID() string { return p.id }

func (p *Participant) Try(ctx context.Context, txID string) error {
	return p.post(ctx, "try", txID)
}

func (p *Participant) Confirm(ctx context.Context, txID string) error {
	return p.post(ctx, "confirm", txID)
}

func (p *Participant) Cancel(ctx context.Context, txID string) error {
	return p.post(ctx, "cancel", txID)
}

type requestBody struct {
	TxID string `json:"txId"`
}

func (p *Participant) post(ctx context.Context, op, txID string) error {
	body, err := json.Marshal(requestBody{TxID: txID})
	if err != nil {
		return tcc.Wrap(tcc.CodeParticipantExecution, "marshal request body", err)
	}

	url := fmt.Sprintf("%s/%s", p.baseURL, op)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return tcc.Wrap(tcc.CodeParticipantExecution, "build request", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		// A network error (including the request's own context deadline
		// firing) is transient from the coordinator's point of view.
		return tcc.Wrap(tcc.CodeParticipantExecution,
			fmt.Sprintf("participant %s: %s request failed", p.id, op), err).WithRetryable(true)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}

	respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	baseErr := tcc.Newf(tcc.CodeParticipantExecution,
		"participant %s: %s returned status %d: %s", p.id, op, resp.StatusCode, string(respBody))

	if resp.StatusCode >= 500 {
		return baseErr.WithRetryable(true)
	}
	// 4xx: the participant rejected the request for a business reason
	// (e.g. insufficient funds, already cancelled). Not retryable.
	return baseErr.WithRetryable(false)
}
