// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package transform implements the Record Transformer (spec §4.6): it
converts the raw denormalized rows produced by the Joiner into the
sink-document shapes the Writer bulk-upserts.

Grounded on the original `db_objects.py`'s FilmWork.__post_init__, which
splits a film's persons into per-role name lists and {id,name} objects
via dynamic setattr; here that becomes an explicit, statically-typed
switch over [model.Role] building five pre-declared slices, per spec
§9's note that dynamic attribute assembly has no Go equivalent.
*/
package transform

import (
	"fmt"

	"github.com/taibuivan/yomira/internal/pipeline/model"
	"github.com/taibuivan/yomira/internal/platform/apperr"
)

// Film converts a denormalized [model.FilmWork] into the [model.FilmDocument]
// shape the "movies" index expects. It returns a VALIDATION_ERROR
// [*apperr.AppError] if a required field is missing or a person carries
// an unrecognized role.
func Film(fw model.FilmWork) (model.FilmDocument, error) {
	if fw.ID == "" {
		return model.FilmDocument{}, apperr.ValidationError("film_work: missing id")
	}
	if fw.Title == "" {
		return model.FilmDocument{}, apperr.ValidationError("film_work: missing title",
			apperr.FieldError{Field: "title", Message: "required"})
	}

	doc := model.FilmDocument{
		ID:           fw.ID,
		IMDBRating:   fw.Rating,
		Genre:        fw.Genres,
		Title:        fw.Title,
		Description:  fw.Description,
		Director:     []string{},
		ActorsNames:  []string{},
		WritersNames: []string{},
		Actors:       []model.PersonDoc{},
		Writers:      []model.PersonDoc{},
	}

	for _, p := range fw.Persons {
		switch p.Role {
		case model.RoleDirector:
			doc.Director = append(doc.Director, p.Name)
		case model.RoleActor:
			doc.ActorsNames = append(doc.ActorsNames, p.Name)
			doc.Actors = append(doc.Actors, model.PersonDoc{ID: p.ID, Name: p.Name})
		case model.RoleWriter:
			doc.WritersNames = append(doc.WritersNames, p.Name)
			doc.Writers = append(doc.Writers, model.PersonDoc{ID: p.ID, Name: p.Name})
		default:
			return model.FilmDocument{}, apperr.ValidationError(
				fmt.Sprintf("film_work %s: unrecognized person role %q", fw.ID, p.Role),
				apperr.FieldError{Field: "persons.role", Message: string(p.Role)},
			)
		}
	}

	return doc, nil
}

// Genre converts a denormalized [model.Genre] into the [model.GenreDocument]
// shape the "genres" index expects.
func Genre(g model.Genre) (model.GenreDocument, error) {
	if g.ID == "" {
		return model.GenreDocument{}, apperr.ValidationError("genre: missing id")
	}
	if g.Name == "" {
		return model.GenreDocument{}, apperr.ValidationError("genre: missing name",
			apperr.FieldError{Field: "name", Message: "required"})
	}

	filmIDs := g.FilmIDs
	if filmIDs == nil {
		filmIDs = []string{}
	}
	return model.GenreDocument{
		ID:          g.ID,
		Name:        g.Name,
		Description: g.Description,
		FilmIDs:     filmIDs,
	}, nil
}

// Person converts a denormalized [model.Person] into the
// [model.PersonDocument] shape the "persons" index expects.
func Person(p model.Person) (model.PersonDocument, error) {
	if p.ID == "" {
		return model.PersonDocument{}, apperr.ValidationError("person: missing id")
	}
	if p.FullName == "" {
		return model.PersonDocument{}, apperr.ValidationError("person: missing full_name",
			apperr.FieldError{Field: "full_name", Message: "required"})
	}

	roles := make([]string, 0, len(p.Roles))
	for _, r := range p.Roles {
		if !r.Valid() {
			return model.PersonDocument{}, apperr.ValidationError(
				fmt.Sprintf("person %s: unrecognized role %q", p.ID, r),
				apperr.FieldError{Field: "roles", Message: string(r)},
			)
		}
		roles = append(roles, string(r))
	}

	filmIDs := p.FilmIDs
	if filmIDs == nil {
		filmIDs = []string{}
	}
	return model.PersonDocument{
		ID:      p.ID,
		Name:    p.FullName,
		Roles:   roles,
		FilmIDs: filmIDs,
	}, nil
}
