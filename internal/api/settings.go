package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/smazurov/pomodorox/internal/api/models"
	"github.com/smazurov/pomodorox/internal/metrics"
	"github.com/smazurov/pomodorox/internal/settings"
)

func settingsData(cfg settings.Config) models.SettingsData {
	return models.SettingsData{
		Debug:     cfg.Debug,
		WorkDelay: cfg.WorkDelay.Milliseconds(),
		RestDelay: cfg.RestDelay.Milliseconds(),
	}
}

func (s *Server) registerSettingsRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "get-settings",
		Method:      http.MethodGet,
		Path:        "/api/settings",
		Summary:     "Get Settings",
		Description: "Return the live configuration",
		Tags:        []string{"settings"},
		Security:    withAuth(),
		Errors:      []int{401},
	}, func(ctx context.Context, input *struct{}) (*models.SettingsResponse, error) {
		return &models.SettingsResponse{Body: settingsData(s.settings.Current())}, nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID: "update-settings",
		Method:      http.MethodPut,
		Path:        "/api/settings",
		Summary:     "Update Settings",
		Description: "Apply and persist a new configuration. Durations take effect at the next phase entry.",
		Tags:        []string{"settings"},
		Security:    withAuth(),
		Errors:      []int{400, 401, 422, 429},
	}, func(ctx context.Context, input *models.SettingsUpdateRequest) (*models.SettingsUpdateResponse, error) {
		if !s.writes.Allow() {
			return nil, huma.Error429TooManyRequests("settings updated too often, retry later")
		}
		cfg := settings.Config{
			Debug:     input.Body.Debug,
			WorkDelay: settings.DelayFromMillis(input.Body.WorkDelay),
			RestDelay: settings.DelayFromMillis(input.Body.RestDelay),
		}
		result := s.settings.Apply(ctx, cfg, settings.SourceAPI)

		body := models.SettingsUpdateResult{
			SettingsData: settingsData(result.Config),
			Persisted:    result.Persisted,
		}
		if result.PersistErr != nil {
			body.Warning = result.PersistErr.Error()
		}
		return &models.SettingsUpdateResponse{Body: body}, nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID: "get-metrics",
		Method:      http.MethodGet,
		Path:        "/api/metrics",
		Summary:     "Counters",
		Description: "Phase and settings counters since boot",
		Tags:        []string{"system"},
		Security:    withAuth(),
		Errors:      []int{401},
	}, func(ctx context.Context, input *struct{}) (*models.MetricsResponse, error) {
		snap := metrics.Get()
		return &models.MetricsResponse{
			Body: models.MetricsData{
				Phase:            snap.Phase,
				Transitions:      snap.Transitions,
				SettingsApplied:  snap.SettingsApplied,
				SettingsRejected: snap.SettingsRejected,
				PersistFailures:  snap.PersistFailures,
				LoadFailures:     snap.LoadFailures,
			},
		}, nil
	})
}
