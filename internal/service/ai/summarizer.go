package ai

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"google.golang.org/genai"

	"filesorter/internal/models"
)

const (
	DefaultModel       = "gemini-2.0-flash"
	failedSummaryLabel = "요약 실패"
	remoteDeleteWait   = 10 * time.Second
)

var ErrEmptyResponse = errors.New("model returned no text")

// Summarizer produces a short description of one stored file.
type Summarizer interface {
	Summarize(ctx context.Context, file models.TempFile) (string, error)
}

type fileService interface {
	UploadFromPath(ctx context.Context, path string, config *genai.UploadFileConfig) (*genai.File, error)
	Get(ctx context.Context, name string, config *genai.GetFileConfig) (*genai.File, error)
	Delete(ctx context.Context, name string, config *genai.DeleteFileConfig) (*genai.DeleteFileResponse, error)
}

type contentGenerator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// GeminiSummarizer uploads a file through the Gemini Files API and asks the
// model to summarize it. The remote copy is deleted afterwards.
type GeminiSummarizer struct {
	files     fileService
	generator contentGenerator
	model     string
	pollEvery time.Duration
}

func NewGeminiSummarizer(client *genai.Client, model string) (*GeminiSummarizer, error) {
	if client == nil {
		return nil, errors.New("genai client is required")
	}
	if model == "" {
		model = DefaultModel
	}
	return &GeminiSummarizer{
		files:     client.Files,
		generator: client.Models,
		model:     model,
		pollEvery: 2 * time.Second,
	}, nil
}

func (s *GeminiSummarizer) Summarize(ctx context.Context, file models.TempFile) (string, error) {
	remote, err := s.upload(ctx, file)
	if err != nil {
		return "", fmt.Errorf("파일 업로드 실패: %s (%w)", file.FileName, err)
	}
	defer s.forget(ctx, remote.Name)

	contents := []*genai.Content{
		genai.NewContentFromParts([]*genai.Part{
			genai.NewPartFromURI(remote.URI, remote.MIMEType),
			genai.NewPartFromText(summaryPrompt),
		}, genai.RoleUser),
	}
	resp, err := s.generator.GenerateContent(ctx, s.model, contents, nil)
	if err != nil {
		return "", fmt.Errorf("generate summary: %w", err)
	}
	text := strings.TrimSpace(resp.Text())
	if text == "" {
		return "", ErrEmptyResponse
	}
	return text, nil
}

// upload pushes the file and waits until the service has finished processing it.
func (s *GeminiSummarizer) upload(ctx context.Context, file models.TempFile) (*genai.File, error) {
	remote, err := s.files.UploadFromPath(ctx, file.StoredPath, &genai.UploadFileConfig{
		MIMEType:    file.MimeType,
		DisplayName: file.FileName,
	})
	if err != nil {
		return nil, err
	}
	name := remote.Name
	for remote.State == genai.FileStateProcessing {
		select {
		case <-ctx.Done():
			s.forget(ctx, name)
			return nil, ctx.Err()
		case <-time.After(s.pollEvery):
		}
		remote, err = s.files.Get(ctx, name, nil)
		if err != nil {
			s.forget(ctx, name)
			return nil, fmt.Errorf("poll file state: %w", err)
		}
	}
	if remote.State == genai.FileStateFailed {
		s.forget(ctx, name)
		msg := "processing failed"
		if remote.Error != nil && remote.Error.Message != "" {
			msg = remote.Error.Message
		}
		return nil, errors.New(msg)
	}
	return remote, nil
}

// forget deletes the remote copy. It outlives request cancellation and only logs failures.
func (s *GeminiSummarizer) forget(ctx context.Context, name string) {
	if name == "" {
		return
	}
	delCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), remoteDeleteWait)
	defer cancel()
	if _, err := s.files.Delete(delCtx, name, nil); err != nil {
		slog.Warn("delete remote file", slog.String("name", name), slog.Any("err", err))
	}
}

// NormalizeSummary prefixes text with "<fileName> - " unless the model already did.
func NormalizeSummary(fileName, text string) string {
	text = strings.TrimSpace(text)
	if strings.HasPrefix(text, fileName+" -") {
		return text
	}
	return fileName + " - " + text
}

// FailedSummary is recorded in place of a summary when a file could not be summarized.
func FailedSummary(err error) string {
	return fmt.Sprintf("%s: %v", failedSummaryLabel, err)
}
