package instance

import "os"

const envInstanceID = "SMARTINV_INSTANCE_ID"

// ID identifies this process in logs. Checks SMARTINV_INSTANCE_ID, then the
// platform dyno name, then the hostname.
func ID() string {
	for _, key := range []string{envInstanceID, "DYNO"} {
		if id := os.Getenv(key); id != "" {
			return id
		}
	}
	if host, err := os.Hostname(); err == nil && host != "" {
		return host
	}
	return "local"
}
