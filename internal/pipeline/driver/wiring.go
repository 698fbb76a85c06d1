// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package driver

import (
	"context"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/taibuivan/yomira/internal/pipeline/checkpoint"
	"github.com/taibuivan/yomira/internal/pipeline/coordinator"
	"github.com/taibuivan/yomira/internal/pipeline/extract"
	"github.com/taibuivan/yomira/internal/pipeline/join"
	"github.com/taibuivan/yomira/internal/pipeline/model"
	"github.com/taibuivan/yomira/internal/pipeline/sink"
	"github.com/taibuivan/yomira/internal/pipeline/transform"
)

// Wire builds the three entity coordinators (film, genre, person) and
// registers them on d, in the fixed order spec §4.8 requires. It is
// split from [New] so that tests can construct a [Driver] without a
// live Postgres pool or sink client.
func Wire(d *Driver, log *slog.Logger, pool *pgxpool.Pool, store *checkpoint.Store, client sink.BulkClient, fetchSize, bunchSize, batchSize int) {
	onRowError := func(entity model.Entity, axisKey string, err error) {
		log.Error("row transform failed, aborting axis pass",
			slog.String("entity", string(entity)),
			slog.String("axis", axisKey),
			slog.Any("error", err),
		)
	}

	filmJoiner := join.NewFilmJoiner(pool)
	filmCoordinator := coordinator.New[model.FilmWork](
		model.EntityFilm,
		extract.FilmAxes(pool, fetchSize, bunchSize),
		store,
		func(ctx context.Context, ids []string) (coordinator.RowIter[model.FilmWork], error) {
			return filmJoiner.Fetch(ctx, ids)
		},
		func(raw model.FilmWork) (string, any, error) {
			doc, err := transform.Film(raw)
			if err != nil {
				return "", nil, err
			}
			return doc.ID, doc, nil
		},
		sink.NewWriter(client, model.IndexMovies, batchSize),
		onRowError,
	)

	genreJoiner := join.NewGenreJoiner(pool)
	genreCoordinator := coordinator.New[model.Genre](
		model.EntityGenre,
		extract.GenreAxes(pool, fetchSize, bunchSize),
		store,
		func(ctx context.Context, ids []string) (coordinator.RowIter[model.Genre], error) {
			return genreJoiner.Fetch(ctx, ids)
		},
		func(raw model.Genre) (string, any, error) {
			doc, err := transform.Genre(raw)
			if err != nil {
				return "", nil, err
			}
			return doc.ID, doc, nil
		},
		sink.NewWriter(client, model.IndexGenres, batchSize),
		onRowError,
	)

	personJoiner := join.NewPersonJoiner(pool)
	personCoordinator := coordinator.New[model.Person](
		model.EntityPerson,
		extract.PersonAxes(pool, fetchSize, bunchSize),
		store,
		func(ctx context.Context, ids []string) (coordinator.RowIter[model.Person], error) {
			return personJoiner.Fetch(ctx, ids)
		},
		func(raw model.Person) (string, any, error) {
			doc, err := transform.Person(raw)
			if err != nil {
				return "", nil, err
			}
			return doc.ID, doc, nil
		},
		sink.NewWriter(client, model.IndexPersons, batchSize),
		onRowError,
	)

	d.Register(model.EntityFilm, filmCoordinator)
	d.Register(model.EntityGenre, genreCoordinator)
	d.Register(model.EntityPerson, personCoordinator)
}
