package app

import "strings"

// parseHeaderOverrides parses the --header CLI value, a semicolon-separated
// list of Name=Value pairs added to every replayed request.
func parseHeaderOverrides(override string) map[string]string {
	if override == "" {
		return nil
	}
	parsed := make(map[string]string)
	for _, pair := range strings.Split(override, ";") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}

		parts := strings.SplitN(pair, "=", 2)
		if len(parts) != 2 {
			continue
		}

		name := strings.TrimSpace(parts[0])
		value := strings.TrimSpace(parts[1])
		if name != "" && value != "" {
			parsed[name] = value
		}
	}
	if len(parsed) == 0 {
		return nil
	}
	return parsed
}
