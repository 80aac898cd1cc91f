package helpers

import "context"

// CallWithContext runs fn, which cannot observe ctx itself, and returns early
// with ctx.Err() when ctx ends first. fn keeps running in the background.
func CallWithContext[T any](ctx context.Context, fn func() (T, error)) (T, error) {
	type result struct {
		val T
		err error
	}
	done := make(chan result, 1)
	go func() {
		v, err := fn()
		done <- result{val: v, err: err}
	}()

	select {
	case r := <-done:
		return r.val, r.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}
