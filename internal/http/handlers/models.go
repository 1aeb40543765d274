package handlers

import (
	"net/http"
)

type modeDTO struct {
	Key   string `json:"key"`
	Title string `json:"title,omitempty"`
	Notes string `json:"notes,omitempty"`
}

type modelDTO struct {
	ID       string    `json:"id"`
	Title    string    `json:"title"`
	Category string    `json:"category"`
	Output   string    `json:"output"`
	Modes    []modeDTO `json:"modes,omitempty"`
}

// ListModels exposes the registry contents to the chat layer, which renders
// its generation menu from this listing.
func (a *App) ListModels(w http.ResponseWriter, r *http.Request) {
	ids := a.Registry.List()
	models := make([]modelDTO, 0, len(ids))
	for _, id := range ids {
		spec, ok := a.Registry.Get(id)
		if !ok {
			continue
		}
		dto := modelDTO{
			ID:       spec.ID,
			Title:    spec.Title,
			Category: string(spec.Category),
			Output:   string(spec.Output),
		}
		for _, m := range spec.Modes {
			dto.Modes = append(dto.Modes, modeDTO{Key: m.Key, Title: m.Title, Notes: m.Notes})
		}
		models = append(models, dto)
	}
	a.json(w, http.StatusOK, map[string]any{
		"version": a.Registry.Version(),
		"models":  models,
	})
}
