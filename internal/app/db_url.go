package app

import (
	"net/url"
	"strings"
)

// postgresApplicationName joins the service name and the binary role, e.g.
// "player-risk-alerts:pipeline", so pg_stat_activity separates a batch run from the API.
func postgresApplicationName(service, component string) string {
	service = strings.TrimSpace(service)
	component = strings.TrimSpace(component)
	switch {
	case service == "":
		return component
	case component == "":
		return service
	default:
		return service + ":" + component
	}
}

// normalizeDBURL sets application_name on URL and keyword style connection strings. An
// explicit value already present wins.
func normalizeDBURL(raw, applicationName string) string {
	applicationName = strings.TrimSpace(applicationName)
	if applicationName == "" {
		return raw
	}

	if parsed, ok := parseDBURL(raw); ok {
		query := parsed.Query()
		if query.Get("application_name") != "" {
			return raw
		}
		query.Set("application_name", applicationName)
		parsed.RawQuery = query.Encode()
		return parsed.String()
	}

	if _, ok := dsnValue(raw, "application_name"); ok || strings.TrimSpace(raw) == "" {
		return raw
	}
	return strings.TrimSpace(raw) + " application_name='" + strings.ReplaceAll(applicationName, "'", `\'`) + "'"
}

func dbNameFromURL(raw string) string {
	if parsed, ok := parseDBURL(raw); ok {
		return strings.TrimSpace(strings.TrimPrefix(parsed.Path, "/"))
	}
	name, _ := dsnValue(raw, "dbname")
	return name
}

// describeDBTarget renders host/dbname for error messages without credentials.
func describeDBTarget(raw string) string {
	if parsed, ok := parseDBURL(raw); ok {
		return parsed.Host + parsed.Path
	}
	host, _ := dsnValue(raw, "host")
	if port, ok := dsnValue(raw, "port"); ok {
		host += ":" + port
	}
	return host + "/" + dbNameFromURL(raw)
}

func parseDBURL(raw string) (*url.URL, bool) {
	parsed, err := url.Parse(strings.TrimSpace(raw))
	if err != nil || parsed == nil || (parsed.Scheme != "postgres" && parsed.Scheme != "postgresql") {
		return nil, false
	}
	return parsed, true
}

func dsnValue(raw, key string) (string, bool) {
	for _, token := range strings.Fields(raw) {
		k, v, found := strings.Cut(token, "=")
		if found && k == key {
			return strings.Trim(v, `"'`), true
		}
	}
	return "", false
}
