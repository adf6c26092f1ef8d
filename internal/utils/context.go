package utils

import (
	"context"
	"strings"
)

type key int

const (
	// CtxContext context key for custom context object
	CtxContext key = iota
)

// CustomData accumulates recognition text over one connection.
type CustomData struct {
	PartialResult string
	Finals        []string
}

// Text joins all committed finals and the trailing partial.
func (d *CustomData) Text() string {
	res := strings.Join(d.Finals, " ")
	if d.PartialResult != "" {
		if res != "" {
			res += " "
		}
		res += d.PartialResult
	}
	return res
}

func CustomContext(ctx context.Context) (context.Context, *CustomData) {
	res, ok := ctx.Value(CtxContext).(*CustomData)
	if ok {
		return ctx, res
	}
	res = &CustomData{}
	return context.WithValue(ctx, CtxContext, res), res
}
