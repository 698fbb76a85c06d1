// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package controlapi

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/taibuivan/yomira/internal/pipeline/model"
	"github.com/taibuivan/yomira/internal/platform/apperr"
	"github.com/taibuivan/yomira/internal/platform/respond"
)

// resyncTrigger is the narrow slice of [*driver.Driver] this handler
// depends on.
type resyncTrigger interface {
	RunEntityNow(ctx context.Context, entity model.Entity) error
}

type resyncHandler struct {
	driver resyncTrigger
}

var validEntities = map[string]model.Entity{
	string(model.EntityFilm):   model.EntityFilm,
	string(model.EntityGenre):  model.EntityGenre,
	string(model.EntityPerson): model.EntityPerson,
}

// trigger handles POST /v1/resync/{entity}: runs one immediate
// out-of-cadence pass for the named entity, through the same lease
// guard and backoff stack as a scheduled pass. It blocks for the
// duration of the pass — callers needing a fire-and-forget trigger
// should call it from a background goroutine on their side.
func (h *resyncHandler) trigger(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "entity")
	entity, ok := validEntities[name]
	if !ok {
		respond.Error(w, r, apperr.ValidationError("unknown entity", apperr.FieldError{
			Field: "entity", Message: name,
		}))
		return
	}

	if err := h.driver.RunEntityNow(r.Context(), entity); err != nil {
		respond.Error(w, r, apperr.Internal(err))
		return
	}

	respond.OK(w, map[string]string{"entity": name, "status": "resynced"})
}
