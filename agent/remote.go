package agent

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// RemoteAgentOptions configures a RemoteAgent.
type RemoteAgentOptions struct {
	BaseAgentOptions

	// AuthToken, when set, is sent as a bearer token on every request.
	AuthToken string
	// HTTPClient overrides the default client (30s timeout).
	HTTPClient *http.Client
}

// RemoteAgent delegates turns to an agent served over HTTP. The remote
// contract mirrors the backend contract: POST <base>/chat returns the full
// response, POST <base>/chat/stream returns raw response fragments as chunked
// body data in emission order.
type RemoteAgent struct {
	BaseAgent
	baseURL   string
	authToken string
	client    *http.Client
}

type remoteChatRequest struct {
	ThreadID string `json:"thread_id"`
	Message  string `json:"message"`
}

type remoteChatResponse struct {
	Content string `json:"content"`
}

// NewRemoteAgent creates an agent that forwards turns to baseURL.
func NewRemoteAgent(name, baseURL string, optFns ...func(o *RemoteAgentOptions)) *RemoteAgent {
	opts := RemoteAgentOptions{
		BaseAgentOptions: BaseAgentOptions{
			Description: fmt.Sprintf("Remote agent at %s", baseURL),
		},
		HTTPClient: &http.Client{Timeout: 30 * time.Second},
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	base := NewBaseAgent(name, func(o *BaseAgentOptions) { *o = opts.BaseAgentOptions })
	return &RemoteAgent{
		BaseAgent: base,
		baseURL:   baseURL,
		authToken: opts.AuthToken,
		client:    opts.HTTPClient,
	}
}

func (a *RemoteAgent) invocationError(err error) *InvocationError {
	return &InvocationError{Agent: a.Name(), Backend: "remote:" + a.baseURL, Err: err}
}

func (a *RemoteAgent) post(ctx context.Context, path string, req Request) (*http.Response, error) {
	body, err := json.Marshal(remoteChatRequest{ThreadID: req.ThreadID, Message: req.Message})
	if err != nil {
		return nil, a.invocationError(fmt.Errorf("encode request: %w", err))
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, a.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, a.invocationError(err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if a.authToken != "" {
		httpReq.Header.Set("Authorization", "Bearer "+a.authToken)
	}
	resp, err := a.client.Do(httpReq)
	if err != nil {
		return nil, a.invocationError(err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, a.invocationError(fmt.Errorf("remote returned status %d", resp.StatusCode))
	}
	return resp, nil
}

// HandleMessage implements Agent via a single POST round trip.
func (a *RemoteAgent) HandleMessage(ctx context.Context, req Request) (string, error) {
	resp, err := a.post(ctx, "/chat", req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	var out remoteChatResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", a.invocationError(fmt.Errorf("decode response: %w", err))
	}
	return out.Content, nil
}

// HandleMessageStream implements Agent by forwarding chunked body data as
// fragments until the remote closes the stream.
func (a *RemoteAgent) HandleMessageStream(ctx context.Context, req Request) (<-chan string, <-chan error) {
	out := make(chan string)
	errCh := make(chan error, 1)

	go func() {
		defer close(out)
		defer close(errCh)

		resp, err := a.post(ctx, "/chat/stream", req)
		if err != nil {
			errCh <- err
			return
		}
		defer resp.Body.Close()

		buf := make([]byte, 512)
		for {
			n, err := resp.Body.Read(buf)
			if n > 0 {
				select {
				case <-ctx.Done():
					errCh <- ctx.Err()
					return
				case out <- string(buf[:n]):
				}
			}
			if err == io.EOF {
				return
			}
			if err != nil {
				errCh <- a.invocationError(err)
				return
			}
		}
	}()

	return out, errCh
}
