package helpers

func Ptr[T any](value T) *T {
	return &value
}

func SafeValue[T any](value *T) T {
	if value == nil {
		return *new(T)
	}
	return *value
}

func SafeLastN[T any](slice []T, lastN int) []T {
	if len(slice) > lastN {
		return slice[len(slice)-lastN:]
	}
	return slice
}

// Truncate cuts s to at most n runes.
func Truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
