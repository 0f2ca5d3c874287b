// Package webhook receives code host webhook deliveries over HTTP and hands
// them to the event router.
package webhook

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/XiaoConstantine/dspy-go/pkg/logging"
	gh "github.com/google/go-github/v68/github"
	"github.com/google/uuid"

	"github.com/XiaoConstantine/robinrelay/internal/events"
)

// Dispatcher schedules an event and returns how many handlers took it.
type Dispatcher interface {
	Dispatch(ctx context.Context, ev events.Event) int
}

// Handler verifies, parses and dispatches webhook deliveries. It answers as
// soon as the event is scheduled; handlers finish in the background.
type Handler struct {
	secret     []byte
	dispatcher Dispatcher
	now        func() time.Time
}

// NewHandler creates a webhook handler. An empty secret disables signature
// verification, which is only meant for local testing.
func NewHandler(secret string, dispatcher Dispatcher) *Handler {
	return &Handler{
		secret:     []byte(secret),
		dispatcher: dispatcher,
		now:        time.Now,
	}
}

// Routes registers the webhook endpoints and a liveness probe on mux.
func (h *Handler) Routes(mux *http.ServeMux) {
	mux.Handle("POST /", h)
	mux.Handle("POST /webhook", h)
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
}

// ServeHTTP implements http.Handler.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := logging.GetLogger()

	payload, err := gh.ValidatePayload(r, h.secret)
	if err != nil {
		logger.Warn(ctx, "Rejected webhook delivery from %s: %v", r.RemoteAddr, err)
		http.Error(w, "invalid signature", http.StatusUnauthorized)
		return
	}

	hookType := gh.WebHookType(r)
	parsed, err := gh.ParseWebHook(hookType, payload)
	if err != nil {
		logger.Warn(ctx, "Unparseable %q webhook: %v", hookType, err)
		http.Error(w, "unsupported or malformed event", http.StatusBadRequest)
		return
	}

	id := gh.DeliveryID(r)
	if id == "" {
		id = uuid.NewString()
	}
	ev := events.Event{
		ID:         id,
		Type:       EventType(hookType, parsed),
		Payload:    parsed,
		ReceivedAt: h.now(),
	}

	handlers := h.dispatcher.Dispatch(ctx, ev)
	logger.Debug(ctx, "[%s] %s scheduled for %d handlers", ev.ID, ev.Type, handlers)

	writeJSON(w, http.StatusAccepted, map[string]interface{}{
		"id":       ev.ID,
		"event":    ev.Type,
		"handlers": handlers,
	})
}

// EventType names a parsed payload "<event>.<action>", or just "<event>" for
// events without an action.
func EventType(hookType string, payload interface{}) string {
	if a, ok := payload.(interface{ GetAction() string }); ok {
		if action := a.GetAction(); action != "" {
			return hookType + "." + action
		}
	}
	return hookType
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
