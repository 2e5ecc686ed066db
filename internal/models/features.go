package models

import "strings"

// MaxFeatures caps the number of tags kept on a profile.
const MaxFeatures = 5

// FeaturesToString joins tags into the stored comma-delimited form.
// Tags are trimmed, empty ones skipped, and only the first MaxFeatures kept.
func FeaturesToString(tags []string) string {
	return strings.Join(normalizeFeatures(tags), ",")
}

// FeaturesFromString splits the stored form back into at most MaxFeatures tags.
func FeaturesFromString(s string) []string {
	if strings.TrimSpace(s) == "" {
		return []string{}
	}
	return normalizeFeatures(strings.Split(s, ","))
}

func normalizeFeatures(tags []string) []string {
	out := make([]string, 0, MaxFeatures)
	for _, t := range tags {
		t = strings.TrimSpace(t)
		if t == "" {
			continue
		}
		out = append(out, t)
		if len(out) == MaxFeatures {
			break
		}
	}
	return out
}
