package util

// StringPtr returns a pointer to v, or nil for the empty string.
func StringPtr(v string) *string {
	if v == "" {
		return nil
	}
	return &v
}

func DerefString(v *string) string {
	if v == nil {
		return ""
	}
	return *v
}
