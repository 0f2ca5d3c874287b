package webhook

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	gh "github.com/google/go-github/v68/github"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/XiaoConstantine/robinrelay/internal/events"
)

const secret = "s3cret"

type recordingDispatcher struct {
	events []events.Event
}

func (d *recordingDispatcher) Dispatch(ctx context.Context, ev events.Event) int {
	d.events = append(d.events, ev)
	return 1
}

func sign(body string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(body))
	return "sha256=" + hex.EncodeToString(mac.Sum(nil))
}

func newServer(t *testing.T) (*httptest.Server, *recordingDispatcher) {
	t.Helper()
	d := &recordingDispatcher{}
	mux := http.NewServeMux()
	NewHandler(secret, d).Routes(mux)
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv, d
}

func deliver(t *testing.T, url, event, body, signature string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(http.MethodPost, url, strings.NewReader(body))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-GitHub-Event", event)
	req.Header.Set("X-GitHub-Delivery", "delivery-1")
	if signature != "" {
		req.Header.Set("X-Hub-Signature-256", signature)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

const pullRequestOpened = `{
  "action": "opened",
  "number": 4,
  "pull_request": {"number": 4, "title": "Gears", "head": {"sha": "0123456789"}},
  "repository": {"name": "widgets", "owner": {"login": "octo"}}
}`

func TestHandler_DispatchesSignedEvent(t *testing.T) {
	srv, d := newServer(t)

	resp := deliver(t, srv.URL+"/", "pull_request", pullRequestOpened, sign(pullRequestOpened))

	assert.Equal(t, http.StatusAccepted, resp.StatusCode)
	require.Len(t, d.events, 1)
	ev := d.events[0]
	assert.Equal(t, "delivery-1", ev.ID)
	assert.Equal(t, events.PullRequestOpened, ev.Type)
	payload, ok := ev.Payload.(*gh.PullRequestEvent)
	require.True(t, ok)
	assert.Equal(t, "0123456789", payload.GetPullRequest().GetHead().GetSHA())
	assert.False(t, ev.ReceivedAt.IsZero())
}

func TestHandler_WebhookPath(t *testing.T) {
	srv, d := newServer(t)
	body := `{"action":"created","issue":{"number":1},"comment":{"body":"hi"}}`

	resp := deliver(t, srv.URL+"/webhook", "issue_comment", body, sign(body))

	assert.Equal(t, http.StatusAccepted, resp.StatusCode)
	require.Len(t, d.events, 1)
	assert.Equal(t, events.IssueCommentCreated, d.events[0].Type)
}

func TestHandler_RejectsBadSignature(t *testing.T) {
	srv, d := newServer(t)

	resp := deliver(t, srv.URL+"/", "pull_request", pullRequestOpened, "sha256=deadbeef")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp = deliver(t, srv.URL+"/", "pull_request", pullRequestOpened, "")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	assert.Empty(t, d.events)
}

func TestHandler_RejectsUnknownEvent(t *testing.T) {
	srv, d := newServer(t)
	body := `{}`

	resp := deliver(t, srv.URL+"/", "not_an_event", body, sign(body))

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Empty(t, d.events)
}

func TestHandler_Healthz(t *testing.T) {
	srv, _ := newServer(t)

	resp, err := http.Get(srv.URL + "/healthz")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestEventType(t *testing.T) {
	assert.Equal(t, "installation.deleted", EventType("installation", &gh.InstallationEvent{Action: gh.Ptr("deleted")}))
	assert.Equal(t, "push", EventType("push", &gh.PushEvent{}))
	assert.Equal(t, "ping", EventType("ping", &gh.PingEvent{}))
}
