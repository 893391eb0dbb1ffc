// Package processor handles incoming dataset-published messages and drives
// parse passes. It resolves the dataset record, downloads the document and
// hands it to the parse engine; HTTP-triggered reparses reuse the same path.
package processor

import (
	"context"

	"github.com/Gobusters/ectologger"

	"github.com/Ramsey-B/fern/internal/repositories/dataset"
	"github.com/Ramsey-B/fern/pkg/kafka"
	"github.com/Ramsey-B/fern/pkg/models"
	"github.com/Ramsey-B/fern/pkg/parse"
	"github.com/Ramsey-B/fern/pkg/tracing"
)

// Processor consumes dataset-published messages and runs parse passes
type Processor struct {
	logger      ectologger.Logger
	datasetRepo *dataset.Repository
	fetcher     Fetcher
	engine      *parse.Engine

	sem chan struct{}
}

// NewProcessor creates a dataset processor. workers caps concurrent parse
// passes; values below 1 mean a single worker.
func NewProcessor(
	logger ectologger.Logger,
	datasetRepo *dataset.Repository,
	fetcher Fetcher,
	engine *parse.Engine,
	workers int,
) *Processor {
	if workers < 1 {
		workers = 1
	}
	return &Processor{
		logger:      logger,
		datasetRepo: datasetRepo,
		fetcher:     fetcher,
		engine:      engine,
		sem:         make(chan struct{}, workers),
	}
}

// ProcessMessage handles an incoming Kafka message
func (p *Processor) ProcessMessage(ctx context.Context, msg *kafka.IncomingMessage) error {
	ctx, span := tracing.StartSpan(ctx, "processor.ProcessMessage")
	defer span.End()

	log := p.logger.WithContext(ctx).WithFields(map[string]any{
		"key":    msg.Key,
		"topic":  msg.Topic,
		"offset": msg.Offset,
	})

	published := msg.DatasetPublished
	if published == nil {
		if err := msg.ParseDatasetPublished(); err != nil {
			log.WithError(err).Error("Failed to parse dataset published message")
			return err
		}
		published = msg.DatasetPublished
	}

	if published.Identifier == "" || published.Publisher == "" || published.SourceURL == "" {
		log.WithFields(map[string]any{
			"identifier": published.Identifier,
			"publisher":  published.Publisher,
		}).Warn("Skipping dataset message: missing required fields")
		return nil // Skip message, don't retry
	}

	select {
	case p.sem <- struct{}{}:
		defer func() { <-p.sem }()
	case <-ctx.Done():
		return ctx.Err()
	}

	ds, err := p.resolveDataset(ctx, published)
	if err != nil {
		return err
	}

	return p.ParseDataset(ctx, ds)
}

// ParseDataset downloads the dataset document and runs one parse pass.
func (p *Processor) ParseDataset(ctx context.Context, ds *models.Dataset) error {
	ctx, span := tracing.StartSpan(ctx, "processor.ParseDataset")
	defer span.End()

	log := p.logger.WithContext(ctx).WithFields(map[string]any{
		"dataset_id": ds.ID,
		"identifier": ds.Identifier,
	})

	content, err := p.fetcher.Fetch(ctx, ds.SourceURL)
	if err != nil {
		log.WithError(err).Error("Failed to fetch dataset document")
		return err
	}

	if _, err := p.engine.ParseDataset(ctx, ds, content); err != nil {
		// Document-level parse failures are recorded as dataset notes; the
		// message is consumed either way since a retry cannot fix the input.
		log.WithError(err).Warn("Dataset parse failed")
	}
	return nil
}

// resolveDataset finds the dataset row for a message, creating it on first
// sight of a new registry identifier.
func (p *Processor) resolveDataset(ctx context.Context, published *kafka.DatasetPublishedMessage) (*models.Dataset, error) {
	ctx, span := tracing.StartSpan(ctx, "processor.resolveDataset")
	defer span.End()

	ds, err := p.datasetRepo.GetByIdentifier(ctx, published.Identifier)
	if err != nil {
		return nil, err
	}
	if ds != nil {
		return ds, nil
	}

	ds, err = p.datasetRepo.Create(ctx, models.CreateDatasetRequest{
		Identifier: published.Identifier,
		Publisher:  published.Publisher,
		SourceURL:  published.SourceURL,
	})
	if err != nil {
		return nil, err
	}

	p.logger.WithContext(ctx).WithFields(map[string]any{
		"dataset_id": ds.ID,
		"identifier": ds.Identifier,
		"publisher":  ds.Publisher,
	}).Info("Registered new dataset")
	return ds, nil
}
