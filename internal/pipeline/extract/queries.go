// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package extract

import (
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/taibuivan/yomira/internal/pipeline/model"
)

// FilmAxes returns the three ordered axes that drive the film pipeline:
// the film's own row, its linked genres, and its linked persons — in
// that fixed order (spec §4.8: "Axis ordering within an entity is fixed
// by construction"). fetchSize and bunchSize are the two distinct
// pagination knobs described in [NewAxis].
func FilmAxes(pool *pgxpool.Pool, fetchSize, bunchSize int) []Axis {
	return []Axis{
		NewAxis(pool, model.KeyMovieFilmWorkSince, filmBySelfSQL, fetchSize, bunchSize),
		NewAxis(pool, model.KeyMovieGenreSince, filmByGenreSQL, fetchSize, bunchSize),
		NewAxis(pool, model.KeyMoviePersonSince, filmByPersonSQL, fetchSize, bunchSize),
	}
}

// GenreAxes returns the two ordered axes that drive the genre pipeline.
func GenreAxes(pool *pgxpool.Pool, fetchSize, bunchSize int) []Axis {
	return []Axis{
		NewAxis(pool, model.KeyGenreFilmWorkSince, genreByFilmSQL, fetchSize, bunchSize),
		NewAxis(pool, model.KeyGenreGenreSince, genreBySelfSQL, fetchSize, bunchSize),
	}
}

// PersonAxes returns the two ordered axes that drive the person pipeline.
func PersonAxes(pool *pgxpool.Pool, fetchSize, bunchSize int) []Axis {
	return []Axis{
		NewAxis(pool, model.KeyPersonFilmWorkSince, personByFilmSQL, fetchSize, bunchSize),
		NewAxis(pool, model.KeyPersonPersonSince, personBySelfSQL, fetchSize, bunchSize),
	}
}

// Every query below orders by (min_modified|modified, id) to make the
// ordering total, per spec §4.4's tie-break requirement: two rows
// sharing a timestamp must still be ordered deterministically, or the
// watermark-after-commit invariant can silently skip rows.

const filmBySelfSQL = `
	SELECT
		fw.id AS id,
		fw.modified AS modified
	FROM film_work fw
	WHERE fw.modified >= $1
	ORDER BY fw.modified, fw.id`

const filmByGenreSQL = `
	SELECT
		gfw.film_work_id AS id,
		MIN(g.modified) AS modified
	FROM genre g
	INNER JOIN genre_film_work gfw ON g.id = gfw.genre_id
	WHERE g.modified >= $1
	GROUP BY gfw.film_work_id
	ORDER BY modified, id`

const filmByPersonSQL = `
	SELECT
		pfw.film_work_id AS id,
		MIN(p.modified) AS modified
	FROM person p
	INNER JOIN person_film_work pfw ON p.id = pfw.person_id
	WHERE p.modified >= $1
	GROUP BY pfw.film_work_id
	ORDER BY modified, id`

const genreBySelfSQL = `
	SELECT
		g.id AS id,
		g.modified AS modified
	FROM genre g
	WHERE g.modified >= $1
	ORDER BY g.modified, g.id`

const genreByFilmSQL = `
	SELECT
		gfw.genre_id AS id,
		MIN(fw.modified) AS modified
	FROM film_work fw
	INNER JOIN genre_film_work gfw ON fw.id = gfw.film_work_id
	WHERE fw.modified >= $1
	GROUP BY gfw.genre_id
	ORDER BY modified, id`

const personBySelfSQL = `
	SELECT
		p.id AS id,
		p.modified AS modified
	FROM person p
	WHERE p.modified >= $1
	ORDER BY p.modified, p.id`

const personByFilmSQL = `
	SELECT
		pfw.person_id AS id,
		MIN(fw.modified) AS modified
	FROM film_work fw
	INNER JOIN person_film_work pfw ON fw.id = pfw.film_work_id
	WHERE fw.modified >= $1
	GROUP BY pfw.person_id
	ORDER BY modified, id`
