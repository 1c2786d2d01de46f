package function

import "slices"

// Nest wraps final in funcs so that the first function ends up outermost;
// `function.Nest(final, a, b, c)` equals `a(b(c(final)))`.
// It is used to apply HTTP middlewares in the order they are listed.
func Nest[T any](final T, funcs ...func(T) T) T {
	for _, wrap := range slices.Backward(funcs) {
		final = wrap(final)
	}
	return final
}
