package handlers

import (
	"context"

	"github.com/airenas/asr-stream-client/internal/api"
	"github.com/airenas/go-app/pkg/goapp"
)

type Handler interface {
	Process(context.Context, *api.FullResult) (*api.FullResult, error)
}

// ListHandler passes a result through a chain of middleware. A failing
// middleware is skipped, the result keeps flowing.
type ListHandler struct {
	handlers []Handler
}

func NewListHandler() (*ListHandler, error) {
	res := &ListHandler{}
	return res, nil
}

func (sp *ListHandler) Process(ctx context.Context, data *api.FullResult) (*api.FullResult, error) {
	for i, h := range sp.handlers {
		goapp.Log.Debug().Int("handler", i).Msg("Processing")
		if dataNew, err := h.Process(ctx, data); err != nil {
			goapp.Log.Error().Err(err).Msg("Can't process")
		} else {
			data = dataNew
		}
	}
	return data, nil
}

func (sp *ListHandler) Add(h Handler) {
	sp.handlers = append(sp.handlers, h)
}
