package types

import "log/slog"

const redactedPlaceholder = "***REDACTED***"

var redactedJSON = []byte(`"` + redactedPlaceholder + `"`)

// SecretString holds a credential, such as the inference API key, that must
// never reach a log line, a config dump or a response body. Every formatting
// path (fmt verbs, JSON, slog) prints a placeholder. Unmask returns the raw
// value for the one place that needs it: the Authorization header.
type SecretString string

func (s SecretString) String() string {
	return redactedPlaceholder
}

// GoString covers %#v, which would otherwise print the raw string.
func (s SecretString) GoString() string {
	return redactedPlaceholder
}

func (s SecretString) MarshalJSON() ([]byte, error) {
	return redactedJSON, nil
}

func (s SecretString) LogValue() slog.Value {
	return slog.StringValue(redactedPlaceholder)
}

// IsZero reports whether no secret was configured, without unmasking it.
func (s SecretString) IsZero() bool {
	return s == ""
}

func (s SecretString) Unmask() string {
	return string(s)
}
