package api

import (
	"context"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"

	"github.com/smazurov/pomodorox/internal/api/models"
)

func (s *Server) registerPhaseRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "get-phase",
		Method:      http.MethodGet,
		Path:        "/api/phase",
		Summary:     "Current Phase",
		Description: "Report the active phase and its progress",
		Tags:        []string{"phase"},
		Security:    withAuth(),
		Errors:      []int{401},
	}, func(ctx context.Context, input *struct{}) (*models.PhaseResponse, error) {
		now := s.now()
		state := s.phase.Current()
		return &models.PhaseResponse{
			Body: models.PhaseData{
				Phase:       state.Phase.String(),
				EnteredAt:   state.EnteredAt.UTC().Format(time.RFC3339),
				DurationMs:  state.Duration.Milliseconds(),
				RemainingMs: state.Remaining(now).Milliseconds(),
				Fraction:    state.Fraction(now),
				Cycle:       state.Cycle,
			},
		}, nil
	})
}
