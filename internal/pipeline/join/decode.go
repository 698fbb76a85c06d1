// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package join

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/taibuivan/yomira/internal/pipeline/model"
	"github.com/taibuivan/yomira/internal/pipeline/source"
)

// jsonPerson mirrors the shape of the `jsonb_build_object('role', ...,
// 'id', ..., 'name', ...)` aggregate produced by filmJoinSQL.
type jsonPerson struct {
	Role string `json:"role"`
	ID   string `json:"id"`
	Name string `json:"name"`
}

func decodeFilmRow(row source.Row) (model.FilmWork, error) {
	id, err := colString(row, "id")
	if err != nil {
		return model.FilmWork{}, err
	}
	title, _ := colString(row, "title")
	description, _ := colString(row, "description")
	rating, _ := colFloat(row, "rating")
	filmType, _ := colString(row, "type")
	created, _ := colTime(row, "created")
	modified, err := colTime(row, "modified")
	if err != nil {
		return model.FilmWork{}, err
	}

	var rawPersons []jsonPerson
	if err := colJSON(row, "persons", &rawPersons); err != nil {
		return model.FilmWork{}, fmt.Errorf("join: decode persons: %w", err)
	}
	persons := make([]model.PersonRef, 0, len(rawPersons))
	for _, p := range rawPersons {
		persons = append(persons, model.PersonRef{ID: p.ID, Name: p.Name, Role: model.Role(p.Role)})
	}

	var genres []string
	if err := colJSON(row, "genres", &genres); err != nil {
		return model.FilmWork{}, fmt.Errorf("join: decode genres: %w", err)
	}
	genres = dedupStrings(genres)

	return model.FilmWork{
		ID:          id,
		Title:       title,
		Description: description,
		Rating:      rating,
		Type:        filmType,
		Created:     created,
		Modified:    modified,
		Genres:      genres,
		Persons:     persons,
	}, nil
}

func decodeGenreRow(row source.Row) (model.Genre, error) {
	id, err := colString(row, "id")
	if err != nil {
		return model.Genre{}, err
	}
	name, _ := colString(row, "name")
	description, _ := colString(row, "description")
	modified, err := colTime(row, "modified")
	if err != nil {
		return model.Genre{}, err
	}

	var filmIDs []string
	if err := colJSON(row, "film_ids", &filmIDs); err != nil {
		return model.Genre{}, fmt.Errorf("join: decode film_ids: %w", err)
	}

	return model.Genre{
		ID:          id,
		Name:        name,
		Description: description,
		Modified:    modified,
		FilmIDs:     dedupStrings(filmIDs),
	}, nil
}

func decodePersonRow(row source.Row) (model.Person, error) {
	id, err := colString(row, "id")
	if err != nil {
		return model.Person{}, err
	}
	fullName, _ := colString(row, "full_name")
	modified, err := colTime(row, "modified")
	if err != nil {
		return model.Person{}, err
	}

	var rawRoles []string
	if err := colJSON(row, "roles", &rawRoles); err != nil {
		return model.Person{}, fmt.Errorf("join: decode roles: %w", err)
	}
	roles := make([]model.Role, 0, len(rawRoles))
	for _, r := range dedupStrings(rawRoles) {
		roles = append(roles, model.Role(r))
	}

	var filmIDs []string
	if err := colJSON(row, "film_ids", &filmIDs); err != nil {
		return model.Person{}, fmt.Errorf("join: decode film_ids: %w", err)
	}

	return model.Person{
		ID:       id,
		FullName: fullName,
		Modified: modified,
		Roles:    roles,
		FilmIDs:  dedupStrings(filmIDs),
	}, nil
}

// colString, colFloat, colTime and colJSON bridge pgx's decoded Go
// values (strings, uuid.UUID, time.Time, json/jsonb as []byte or
// string) into the concrete types the model package expects. The
// aggregation itself (DISTINCT, NULL filtering) happens in SQL; these
// only decode what Postgres already returns.

func colString(row source.Row, col string) (string, error) {
	v, ok := row[col]
	if !ok || v == nil {
		return "", nil
	}
	if s, ok := stringify(v); ok {
		return s, nil
	}
	return "", fmt.Errorf("join: column %q is not string-like", col)
}

func colFloat(row source.Row, col string) (float64, error) {
	v, ok := row[col]
	if !ok || v == nil {
		return 0, nil
	}
	switch f := v.(type) {
	case float64:
		return f, nil
	case float32:
		return float64(f), nil
	default:
		return 0, fmt.Errorf("join: column %q is not numeric", col)
	}
}

func colTime(row source.Row, col string) (time.Time, error) {
	v, ok := row[col]
	if !ok || v == nil {
		return time.Time{}, nil
	}
	if t, ok := v.(time.Time); ok {
		return t, nil
	}
	return time.Time{}, fmt.Errorf("join: column %q is not a timestamp", col)
}

func colJSON(row source.Row, col string, out any) error {
	v, ok := row[col]
	if !ok || v == nil {
		return nil
	}
	switch b := v.(type) {
	case []byte:
		return json.Unmarshal(b, out)
	case string:
		return json.Unmarshal([]byte(b), out)
	default:
		return fmt.Errorf("join: column %q is not JSON-shaped", col)
	}
}

func stringify(v any) (string, bool) {
	switch t := v.(type) {
	case string:
		return t, true
	case fmt.Stringer:
		return t.String(), true
	default:
		return "", false
	}
}

func dedupStrings(in []string) []string {
	if len(in) == 0 {
		return in
	}
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s == "" {
			continue
		}
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}
