// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package join implements the Record Joiner (spec §4.5): given an
id-tuple for one entity, it streams back the fully denormalized rows
used by the Transformer, aggregating the entity-specific linked
collections (persons/genres for films, film ids for genres and
persons) with DISTINCT, NULL-filtered aggregation.

Grounded on the row-to-struct scanning style used throughout this
codebase's repository layer, generalized from pgxpool.QueryRow (one
row) to the multi-row streaming discipline this package requires
(§4.5: "streamed one row at a time using the fetch-many discipline").
*/
package join

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/taibuivan/yomira/internal/pipeline/model"
	"github.com/taibuivan/yomira/internal/pipeline/source"
)

// FilmJoiner fetches fully denormalized film_work rows.
type FilmJoiner struct{ pool *pgxpool.Pool }

// NewFilmJoiner constructs a FilmJoiner.
func NewFilmJoiner(pool *pgxpool.Pool) *FilmJoiner { return &FilmJoiner{pool: pool} }

const filmJoinSQL = `
	SELECT
		fw.id,
		fw.title,
		fw.description,
		fw.rating,
		fw.type,
		fw.created,
		fw.modified,
		COALESCE(
			JSON_AGG(
				DISTINCT JSONB_BUILD_OBJECT(
					'role', pfw.role,
					'id', p.id,
					'name', p.full_name
				)
			) FILTER (WHERE p.id IS NOT NULL),
			'[]'
		) AS persons,
		COALESCE(JSON_AGG(DISTINCT g.name) FILTER (WHERE g.name IS NOT NULL), '[]') AS genres
	FROM film_work fw
	LEFT JOIN person_film_work pfw ON pfw.film_work_id = fw.id
	LEFT JOIN person p ON p.id = pfw.person_id
	LEFT JOIN genre_film_work gfw ON gfw.film_work_id = fw.id
	LEFT JOIN genre g ON g.id = gfw.genre_id
	WHERE fw.id = ANY($1)
	GROUP BY fw.id
	ORDER BY fw.modified`

// Fetch streams the denormalized film_work rows for ids.
func (j *FilmJoiner) Fetch(ctx context.Context, ids []string) (*FilmIter, error) {
	reader, err := source.Open(ctx, j.pool, filmJoinSQL, []any{ids})
	if err != nil {
		return nil, fmt.Errorf("join: open film fetch: %w", err)
	}
	return &FilmIter{reader: reader}, nil
}

// FilmIter streams [model.FilmWork] values.
type FilmIter struct{ reader *source.Reader }

// Next returns the next denormalized film, or ok=false when exhausted.
func (it *FilmIter) Next(ctx context.Context) (model.FilmWork, bool, error) {
	row, ok, err := it.reader.Next(ctx)
	if err != nil || !ok {
		return model.FilmWork{}, false, err
	}
	fw, err := decodeFilmRow(row)
	return fw, true, err
}

// Close releases the underlying reader.
func (it *FilmIter) Close(ctx context.Context) error { return it.reader.Close(ctx) }

// GenreJoiner fetches fully denormalized genre rows.
type GenreJoiner struct{ pool *pgxpool.Pool }

// NewGenreJoiner constructs a GenreJoiner.
func NewGenreJoiner(pool *pgxpool.Pool) *GenreJoiner { return &GenreJoiner{pool: pool} }

const genreJoinSQL = `
	SELECT
		g.id,
		g.name,
		g.description,
		g.modified,
		COALESCE(JSON_AGG(DISTINCT gfw.film_work_id) FILTER (WHERE gfw.film_work_id IS NOT NULL), '[]') AS film_ids
	FROM genre g
	LEFT JOIN genre_film_work gfw ON gfw.genre_id = g.id
	WHERE g.id = ANY($1)
	GROUP BY g.id
	ORDER BY g.modified`

// Fetch streams the denormalized genre rows for ids.
func (j *GenreJoiner) Fetch(ctx context.Context, ids []string) (*GenreIter, error) {
	reader, err := source.Open(ctx, j.pool, genreJoinSQL, []any{ids})
	if err != nil {
		return nil, fmt.Errorf("join: open genre fetch: %w", err)
	}
	return &GenreIter{reader: reader}, nil
}

// GenreIter streams [model.Genre] values.
type GenreIter struct{ reader *source.Reader }

// Next returns the next denormalized genre, or ok=false when exhausted.
func (it *GenreIter) Next(ctx context.Context) (model.Genre, bool, error) {
	row, ok, err := it.reader.Next(ctx)
	if err != nil || !ok {
		return model.Genre{}, false, err
	}
	g, err := decodeGenreRow(row)
	return g, true, err
}

// Close releases the underlying reader.
func (it *GenreIter) Close(ctx context.Context) error { return it.reader.Close(ctx) }

// PersonJoiner fetches fully denormalized person rows.
type PersonJoiner struct{ pool *pgxpool.Pool }

// NewPersonJoiner constructs a PersonJoiner.
func NewPersonJoiner(pool *pgxpool.Pool) *PersonJoiner { return &PersonJoiner{pool: pool} }

const personJoinSQL = `
	SELECT
		person.id,
		person.full_name,
		person.modified,
		COALESCE(JSON_AGG(DISTINCT pfw.role) FILTER (WHERE pfw.role IS NOT NULL), '[]') AS roles,
		COALESCE(JSON_AGG(DISTINCT fw.id) FILTER (WHERE fw.id IS NOT NULL), '[]') AS film_ids
	FROM person
	LEFT JOIN person_film_work pfw ON pfw.person_id = person.id
	LEFT JOIN film_work fw ON fw.id = pfw.film_work_id
	WHERE person.id = ANY($1)
	GROUP BY person.id
	ORDER BY person.modified`

// Fetch streams the denormalized person rows for ids.
func (j *PersonJoiner) Fetch(ctx context.Context, ids []string) (*PersonIter, error) {
	reader, err := source.Open(ctx, j.pool, personJoinSQL, []any{ids})
	if err != nil {
		return nil, fmt.Errorf("join: open person fetch: %w", err)
	}
	return &PersonIter{reader: reader}, nil
}

// PersonIter streams [model.Person] values.
type PersonIter struct{ reader *source.Reader }

// Next returns the next denormalized person, or ok=false when exhausted.
func (it *PersonIter) Next(ctx context.Context) (model.Person, bool, error) {
	row, ok, err := it.reader.Next(ctx)
	if err != nil || !ok {
		return model.Person{}, false, err
	}
	p, err := decodePersonRow(row)
	return p, true, err
}

// Close releases the underlying reader.
func (it *PersonIter) Close(ctx context.Context) error { return it.reader.Close(ctx) }
