package util

// ApplyConversion applies a converter function to each of the models
// provided. The returned slice is never nil, so an empty input
// marshals to an empty JSON array rather than null.
func ApplyConversion[T any, K any](models []T, converter func(T) K) []K {
	dtos := make([]K, 0, len(models))
	for _, v := range models {
		dtos = append(dtos, converter(v))
	}

	return dtos
}
