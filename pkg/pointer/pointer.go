// Package pointer has helpers for the optional columns of stored records.
package pointer

// To returns a pointer to a copy of value.
func To[T any](value T) *T {
	return &value
}

// Copy returns a pointer to a copy of *value, or nil.
func Copy[T any](value *T) *T {
	if value == nil {
		return nil
	}
	return To(*value)
}

// String returns a pointer to the provided value
func String(value string) *string {
	return To(value)
}

// StringOrDefault returns value if not nil, otherwise a pointer to
// defaultValue.
func StringOrDefault(value *string, defaultValue string) *string {
	if value != nil {
		return value
	}
	return &defaultValue
}

// StringIfValid maps a nullable column to a pointer.
func StringIfValid(valid bool, value string) *string {
	if valid {
		return &value
	}
	return nil
}

// StringCopy returns a pointer that's a copy of the provided value
func StringCopy(value *string) *string {
	return Copy(value)
}
