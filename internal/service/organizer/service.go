package organizer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"filesorter/internal/models"
	"filesorter/internal/service/ai"
	"filesorter/internal/storage"
)

// Store persists an upload batch for the duration of one request.
type Store interface {
	Save(ctx context.Context, files []models.UploadedFile) (*storage.Batch, error)
	Cleanup(batch *storage.Batch) error
}

// Service runs the upload, summarize, classify and render pipeline.
type Service struct {
	store      Store
	summarizer ai.Summarizer
	classifier ai.Classifier
}

func NewService(store Store, summarizer ai.Summarizer, classifier ai.Classifier) (*Service, error) {
	if store == nil || summarizer == nil || classifier == nil {
		return nil, errors.New("organizer: store, summarizer and classifier are required")
	}
	return &Service{store: store, summarizer: summarizer, classifier: classifier}, nil
}

// Run processes one batch. Local copies are removed once summarizing is done,
// whatever the outcome. A failing file yields a "요약 실패" summary rather than
// an error; only storage and classification failures abort the run.
func (s *Service) Run(ctx context.Context, files []models.UploadedFile) (*models.Result, error) {
	batch, err := s.store.Save(ctx, files)
	defer func() { s.cleanup(batch) }()
	if err != nil {
		return nil, fmt.Errorf("store uploads: %w", err)
	}

	summaries := s.summarize(ctx, batch.Files)
	s.cleanup(batch)
	batch = nil

	spec, err := s.classifier.Classify(ctx, summaries)
	if err != nil {
		var cerr *ai.ClassificationError
		if !errors.As(err, &cerr) {
			err = &ai.ClassificationError{Err: err}
		}
		return nil, err
	}

	return &models.Result{
		Summaries:        summaries,
		OrganizationSpec: spec,
		MarkdownSummary:  RenderMarkdown(spec),
	}, nil
}

func (s *Service) summarize(ctx context.Context, files []models.TempFile) []models.Summary {
	summaries := make([]models.Summary, 0, len(files))
	for _, file := range files {
		text, err := s.summarizer.Summarize(ctx, file)
		if err != nil {
			slog.Warn("summarize failed", "file", file.FileName, "err", err)
			text = ai.FailedSummary(err)
		} else {
			text = ai.NormalizeSummary(file.FileName, text)
		}
		summaries = append(summaries, models.Summary{FileName: file.FileName, Summary: text})
	}
	return summaries
}

func (s *Service) cleanup(batch *storage.Batch) {
	if batch == nil {
		return
	}
	if err := s.store.Cleanup(batch); err != nil {
		slog.Warn("cleanup temp files", "dir", batch.Dir, "err", err)
	}
}
