package handlers

import (
	"context"
	"fmt"
	"testing"

	"github.com/airenas/asr-stream-client/internal/api"
)

func TestCleaner_Process(t *testing.T) {
	tests := []struct {
		name string
		txt  string
		want string
	}{
		{name: "trims", txt: "  labas  ", want: "labas"},
		{name: "underscores", txt: "dvidešimt_penki", want: "dvidešimt penki"},
		{name: "empty", txt: "", want: ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewCleaner()
			data := &api.FullResult{Result: api.Result{Hypotheses: []api.Hypothesis{{Transcript: tt.txt}}}}
			got, err := c.Process(context.Background(), data)
			if err != nil {
				t.Fatalf("Process() failed: %v", err)
			}
			if got.Result.Hypotheses[0].Transcript != tt.want {
				t.Errorf("Process() = %q, want %q", got.Result.Hypotheses[0].Transcript, tt.want)
			}
		})
	}
}

type failingHandler struct{}

func (failingHandler) Process(ctx context.Context, data *api.FullResult) (*api.FullResult, error) {
	return nil, fmt.Errorf("boom")
}

func TestListHandler_SkipsFailing(t *testing.T) {
	l, err := NewListHandler()
	if err != nil {
		t.Fatalf("NewListHandler() failed: %v", err)
	}
	l.Add(failingHandler{})
	l.Add(NewCleaner())

	data := &api.FullResult{Result: api.Result{Hypotheses: []api.Hypothesis{{Transcript: " x_y "}}}}
	got, err := l.Process(context.Background(), data)
	if err != nil {
		t.Fatalf("Process() failed: %v", err)
	}
	if got.Result.Hypotheses[0].Transcript != "x y" {
		t.Errorf("Process() = %q, want %q", got.Result.Hypotheses[0].Transcript, "x y")
	}
}
