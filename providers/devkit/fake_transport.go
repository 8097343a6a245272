package devkit

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/goliatone/go-ledgerflow/core"
)

// Reply is one scripted exchange. Err short-circuits the response.
type Reply struct {
	Response core.TransportResponse
	Err      error
}

// JSONReply encodes body as the response payload of a scripted exchange.
func JSONReply(status int, body any) Reply {
	payload, err := json.Marshal(body)
	if err != nil {
		return Reply{Err: fmt.Errorf("devkit: encode reply: %w", err)}
	}
	return Reply{Response: core.TransportResponse{
		StatusCode: status,
		Headers:    map[string]string{"Content-Type": "application/json"},
		Body:       payload,
	}}
}

func ErrorReply(err error) Reply {
	return Reply{Err: err}
}

// FakeTransport replays scripted replies in order and repeats the last one
// once the script runs out.
type FakeTransport struct {
	mu       sync.Mutex
	replies  []Reply
	requests []core.TransportRequest
}

func NewFakeTransport(replies ...Reply) *FakeTransport {
	return &FakeTransport{replies: append([]Reply(nil), replies...)}
}

func (*FakeTransport) Kind() string {
	return "fake"
}

func (f *FakeTransport) Do(_ context.Context, req core.TransportRequest) (core.TransportResponse, error) {
	if f == nil {
		return core.TransportResponse{}, fmt.Errorf("devkit: fake transport is nil")
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	f.requests = append(f.requests, cloneRequest(req))
	if len(f.replies) == 0 {
		return core.TransportResponse{StatusCode: 200, Headers: map[string]string{}}, nil
	}
	index := len(f.requests) - 1
	if index >= len(f.replies) {
		index = len(f.replies) - 1
	}
	reply := f.replies[index]
	return cloneResponse(reply.Response), reply.Err
}

func (f *FakeTransport) Requests() []core.TransportRequest {
	if f == nil {
		return nil
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]core.TransportRequest, 0, len(f.requests))
	for _, item := range f.requests {
		out = append(out, cloneRequest(item))
	}
	return out
}

// LastRequest returns the most recent request, or false when none was sent.
func (f *FakeTransport) LastRequest() (core.TransportRequest, bool) {
	requests := f.Requests()
	if len(requests) == 0 {
		return core.TransportRequest{}, false
	}
	return requests[len(requests)-1], true
}

func cloneRequest(in core.TransportRequest) core.TransportRequest {
	out := in
	out.Headers = cloneStrings(in.Headers)
	out.Query = cloneStrings(in.Query)
	out.Body = append([]byte(nil), in.Body...)
	out.Metadata = map[string]any{}
	for key, value := range in.Metadata {
		out.Metadata[key] = value
	}
	return out
}

func cloneResponse(in core.TransportResponse) core.TransportResponse {
	out := in
	out.Headers = cloneStrings(in.Headers)
	out.Body = append([]byte(nil), in.Body...)
	return out
}

func cloneStrings(in map[string]string) map[string]string {
	out := make(map[string]string, len(in))
	for key, value := range in {
		out[key] = value
	}
	return out
}

var _ core.TransportAdapter = (*FakeTransport)(nil)
