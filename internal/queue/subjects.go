package queue

import "strings"

var tokenReplacer = strings.NewReplacer(".", "_", "*", "_", ">", "_", " ", "_")

// token makes s safe for use as a single NATS subject token.
func token(s string) string {
	if s == "" {
		return "_"
	}
	return tokenReplacer.Replace(s)
}

func DetectionSubject(owner string) string {
	return DetectionsSubjectBase + "." + token(owner)
}

func AlertSubject(owner string) string {
	return AlertsSubjectBase + "." + token(owner)
}
