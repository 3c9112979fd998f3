package fixtures

import (
	"context"
	"fmt"
)

type Service interface {
	Run(ctx context.Context) error
}

type (
	Worker struct{ name string }
	Mode   int
)

type Queue[T any] struct {
	items []T
}

func (q *Queue[T]) Push(item T) {
	q.items = append(q.items, item)
}

func (w Worker) Name() string { return w.name }

func (w *Worker) Run(ctx context.Context) error {
	logStart()
	return helper(ctx)
}

func helper(ctx context.Context) error {
	fmt.Println("running")
	return ctx.Err()
}

func logStart() {
	fmt.Println("start")
}
