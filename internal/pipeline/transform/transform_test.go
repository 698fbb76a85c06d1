// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package transform_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taibuivan/yomira/internal/pipeline/model"
	"github.com/taibuivan/yomira/internal/pipeline/transform"
	"github.com/taibuivan/yomira/internal/platform/apperr"
)

/*
TestFilm_SplitsPersonsByRole verifies that a film's persons are split
into per-role name lists and {id,name} objects, mirroring the original
FilmWork.__post_init__ behavior.
*/
func TestFilm_SplitsPersonsByRole(t *testing.T) {
	fw := model.FilmWork{
		ID:     "film-1",
		Title:  "The Go Gopher",
		Rating: 8.5,
		Genres: []string{"Action"},
		Persons: []model.PersonRef{
			{ID: "p1", Name: "Ada Director", Role: model.RoleDirector},
			{ID: "p2", Name: "Bob Actor", Role: model.RoleActor},
			{ID: "p3", Name: "Cid Writer", Role: model.RoleWriter},
			{ID: "p4", Name: "Dex Actor", Role: model.RoleActor},
		},
	}

	doc, err := transform.Film(fw)
	require.NoError(t, err)

	assert.Equal(t, []string{"Ada Director"}, doc.Director)
	assert.Equal(t, []string{"Bob Actor", "Dex Actor"}, doc.ActorsNames)
	assert.Equal(t, []string{"Cid Writer"}, doc.WritersNames)
	assert.Equal(t, []model.PersonDoc{{ID: "p2", Name: "Bob Actor"}, {ID: "p4", Name: "Dex Actor"}}, doc.Actors)
	assert.Equal(t, []model.PersonDoc{{ID: "p3", Name: "Cid Writer"}}, doc.Writers)
}

/*
TestFilm_NoPersons verifies the document still carries empty (not nil)
slices when a film has no linked persons, so the sink never receives a
JSON `null` for an array field.
*/
func TestFilm_NoPersons(t *testing.T) {
	doc, err := transform.Film(model.FilmWork{ID: "film-2", Title: "Empty"})
	require.NoError(t, err)

	assert.Equal(t, []string{}, doc.Director)
	assert.Equal(t, []string{}, doc.ActorsNames)
	assert.Equal(t, []string{}, doc.WritersNames)
	assert.Equal(t, []model.PersonDoc{}, doc.Actors)
	assert.Equal(t, []model.PersonDoc{}, doc.Writers)
}

/*
TestFilm_UnrecognizedRole verifies that an invalid role aborts the
transform with a VALIDATION_ERROR AppError rather than silently
dropping the person.
*/
func TestFilm_UnrecognizedRole(t *testing.T) {
	fw := model.FilmWork{
		ID:    "film-3",
		Title: "Broken",
		Persons: []model.PersonRef{
			{ID: "p1", Name: "Unknown", Role: "producer"},
		},
	}

	_, err := transform.Film(fw)
	require.Error(t, err)
	ae := apperr.As(err)
	require.NotNil(t, ae)
	assert.Equal(t, "VALIDATION_ERROR", ae.Code)
}

/*
TestFilm_MissingTitle verifies that a film missing its required title
field is rejected.
*/
func TestFilm_MissingTitle(t *testing.T) {
	_, err := transform.Film(model.FilmWork{ID: "film-4"})
	require.Error(t, err)
	ae := apperr.As(err)
	require.NotNil(t, ae)
	assert.Equal(t, "VALIDATION_ERROR", ae.Code)
}

/*
TestGenre verifies the straightforward genre document projection.
*/
func TestGenre(t *testing.T) {
	doc, err := transform.Genre(model.Genre{
		ID:      "g1",
		Name:    "Action",
		FilmIDs: []string{"film-1", "film-2"},
	})
	require.NoError(t, err)
	assert.Equal(t, "g1", doc.ID)
	assert.Equal(t, "Action", doc.Name)
	assert.Equal(t, []string{"film-1", "film-2"}, doc.FilmIDs)
}

/*
TestGenre_NilFilmIDs verifies that a genre with no linked films still
produces an empty slice, not nil.
*/
func TestGenre_NilFilmIDs(t *testing.T) {
	doc, err := transform.Genre(model.Genre{ID: "g2", Name: "Drama"})
	require.NoError(t, err)
	assert.Equal(t, []string{}, doc.FilmIDs)
}

/*
TestPerson verifies the person document projection, including the
[]model.Role -> []string conversion.
*/
func TestPerson(t *testing.T) {
	doc, err := transform.Person(model.Person{
		ID:       "p1",
		FullName: "Ada Director",
		Roles:    []model.Role{model.RoleDirector, model.RoleActor},
		FilmIDs:  []string{"film-1"},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"director", "actor"}, doc.Roles)
	assert.Equal(t, []string{"film-1"}, doc.FilmIDs)
}

/*
TestPerson_UnrecognizedRole verifies that an invalid role on a person
record is rejected the same way a bad role on a film's persons is.
*/
func TestPerson_UnrecognizedRole(t *testing.T) {
	_, err := transform.Person(model.Person{
		ID:       "p2",
		FullName: "Bad Role",
		Roles:    []model.Role{"producer"},
	})
	require.Error(t, err)
	ae := apperr.As(err)
	require.NotNil(t, ae)
	assert.Equal(t, "VALIDATION_ERROR", ae.Code)
}
