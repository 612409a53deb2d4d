package runner

import (
	"context"

	"github.com/shouni/go-storyboard-kit/pkg/publisher"
	"github.com/shouni/go-storyboard-kit/pkg/storyboard"
)

// DefaultPublisherRunner は pkg/publisher を利用した標準実装です。
type DefaultPublisherRunner struct {
	publisher *publisher.StoryboardPublisher
}

func NewDefaultPublisherRunner(pub *publisher.StoryboardPublisher) *DefaultPublisherRunner {
	return &DefaultPublisherRunner{
		publisher: pub,
	}
}

func (pr *DefaultPublisherRunner) Run(ctx context.Context, shots []storyboard.Shot, outputDir, title string) (publisher.PublishResult, error) {
	opts := publisher.Options{
		OutputDir: outputDir,
		Title:     title,
	}

	return pr.publisher.Publish(ctx, shots, opts)
}
