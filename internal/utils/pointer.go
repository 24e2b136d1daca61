package utils

// Ptr returns a pointer to a copy of v.
//
//	maxTokens := utils.Ptr(2048)
func Ptr[T any](v T) *T {
	return &v
}
