package llm

import (
	"context"

	"golang.org/x/time/rate"
)

// limitedModel throttles requests to the wrapped model.
type limitedModel struct {
	ChatModel
	limiter *rate.Limiter
}

// Limit caps the request rate of m at rps requests per second. A non-positive
// rps returns m unchanged.
func Limit(m ChatModel, rps float64) ChatModel {
	if rps <= 0 {
		return m
	}
	return &limitedModel{ChatModel: m, limiter: rate.NewLimiter(rate.Limit(rps), 1)}
}

func (l *limitedModel) Complete(ctx context.Context, messages []Message) (*Response, error) {
	if err := l.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	return l.ChatModel.Complete(ctx, messages)
}
