package usercfg

const (
	DefaultAPIURL             = "http://localhost:5267/api"
	DefaultHTTPTimeoutSeconds = 15
	DefaultHTTPRetries        = 2
	DefaultHighlightSeconds   = 20
)

func getDefaults() Config {
	retries := DefaultHTTPRetries
	return Config{
		SchemaVersion:      CurrentSchemaVersion,
		APIURL:             DefaultAPIURL,
		HTTPTimeoutSeconds: DefaultHTTPTimeoutSeconds,
		HTTPRetries:        &retries,
		HighlightSeconds:   DefaultHighlightSeconds,
	}
}
