package version

// Version is the current version of the voiceqa server
const Version = "0.0.7"

// UserAgent returns the User-Agent string for HTTP requests
func UserAgent() string {
	return "voiceqa/" + Version
}

// ServerHeader returns the Server header value for HTTP responses
func ServerHeader() string {
	return "voiceqa/" + Version
}
