// Package generate writes blog content with a language model. It serves the
// content service's generation endpoint.
package generate

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/eringen/pressroom/editor"
	"github.com/eringen/pressroom/richtext"
)

// ErrRateLimited is returned when generations arrive faster than allowed.
var ErrRateLimited = errors.New("too many generation requests, try again shortly")

// Service turns generation requests into sanitised HTML.
type Service struct {
	provider Provider
	limiter  *rate.Limiter
	logger   *zap.Logger
}

// Option configures a Service.
type Option func(*Service)

// WithLogger sets the service logger.
func WithLogger(l *zap.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithRateLimit allows n generations per interval with a burst of n.
func WithRateLimit(n int, per time.Duration) Option {
	return func(s *Service) {
		if n > 0 && per > 0 {
			s.limiter = rate.NewLimiter(rate.Every(per/time.Duration(n)), n)
		}
	}
}

// New returns a Service over p.
func New(p Provider, opts ...Option) *Service {
	s := &Service{
		provider: p,
		limiter:  rate.NewLimiter(rate.Every(6*time.Second), 10),
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// GenerateContent builds the prompt, calls the provider and normalises the
// answer to sanitised HTML. An empty answer is an error.
func (s *Service) GenerateContent(ctx context.Context, req editor.GenerationRequest) (editor.GenerationResponse, error) {
	if s == nil || s.provider == nil {
		return editor.GenerationResponse{}, ErrNotConfigured
	}
	if !s.limiter.Allow() {
		return editor.GenerationResponse{}, ErrRateLimited
	}
	system, prompt := BuildPrompt(req)

	start := time.Now()
	raw, err := s.provider.Complete(ctx, system, prompt)
	if err != nil {
		s.logger.Error("content generation failed", zap.String("contentType", req.ContentType), zap.Error(err))
		return editor.GenerationResponse{}, err
	}
	html, err := richtext.Normalize(raw)
	if err != nil {
		return editor.GenerationResponse{}, fmt.Errorf("normalise generated content: %w", err)
	}
	if html == "" {
		return editor.GenerationResponse{}, editor.ErrNoContentGenerated
	}
	s.logger.Info("content generated",
		zap.String("contentType", req.ContentType),
		zap.Int("words", richtext.WordCount(html)),
		zap.Duration("took", time.Since(start)))
	return editor.GenerationResponse{GeneratedContent: html}, nil
}

var _ editor.Generator = (*Service)(nil)
