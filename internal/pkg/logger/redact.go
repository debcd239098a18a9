package logger

import "strings"

// identifierKeys are field names whose values identify a single user.
var identifierKeys = []string{"odid", "user_id", "userid", "device_id"}

// RedactID masks a user identifier for safe logging.
// "3f2a9c41-77de" → "3f2a***"
// Short identifiers (≤4 chars) are fully masked: "ab12" → "***"
func RedactID(id string) string {
	if len(id) > 4 {
		return id[:4] + "***"
	}
	return "***"
}

func redactValue(key, val string) string {
	key = strings.ToLower(key)
	for _, k := range identifierKeys {
		if strings.Contains(key, k) {
			return RedactID(val)
		}
	}
	return val
}
