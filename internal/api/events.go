package api

import (
	"context"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/sse"

	"github.com/smazurov/pomodorox/internal/events"
)

// registerSSERoutes registers the native Huma SSE endpoint.
func (s *Server) registerSSERoutes() {
	sse.Register(s.api, huma.Operation{
		OperationID: "events-stream",
		Method:      http.MethodGet,
		Path:        "/api/events",
		Summary:     "Server-Sent Events Stream",
		Description: "Real-time stream of phase transitions and settings changes",
		Tags:        []string{"events"},
		Security:    withAuth(),
		Errors:      []int{401},
	}, map[string]any{
		"phase-changed":    events.PhaseChangedEvent{},
		"settings-updated": events.SettingsUpdatedEvent{},
	}, func(ctx context.Context, _ *struct{}, send sse.Sender) {
		if s.eventBus == nil {
			return
		}

		eventCh := make(chan any, 10)
		unsubscribers := []func(){
			events.SubscribeToChannel[events.PhaseChangedEvent](s.eventBus, eventCh),
			events.SubscribeToChannel[events.SettingsUpdatedEvent](s.eventBus, eventCh),
		}
		defer func() {
			for _, unsub := range unsubscribers {
				unsub()
			}
		}()

		// Start every stream with the current phase so clients need no extra request.
		state := s.phase.Current()
		if err := send.Data(events.PhaseChangedEvent{
			Phase:      state.Phase.String(),
			Previous:   state.Phase.Next().String(),
			DurationMs: state.Duration.Milliseconds(),
			Cycle:      state.Cycle,
			Timestamp:  state.EnteredAt.UTC().Format(time.RFC3339),
		}); err != nil {
			return
		}

		for {
			select {
			case <-ctx.Done():
				return
			case event := <-eventCh:
				if err := send.Data(event); err != nil {
					return
				}
			}
		}
	})
}
