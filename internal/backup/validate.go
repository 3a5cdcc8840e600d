package backup

import (
	"encoding/json"
	"fmt"
)

// Validate lists the problems that prevent data from being imported.
//
// It checks the raw JSON so that wrong types are reported instead of failing to decode.
func Validate(data []byte) []string {
	var raw struct {
		Version   *string         `json:"version"`
		Albums    json.RawMessage `json:"albums"`
		Songs     json.RawMessage `json:"songs"`
		Playlists json.RawMessage `json:"playlists"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return []string{fmt.Sprintf("Malformed backup: %v", err)}
	}

	var problems []string
	if raw.Version == nil || *raw.Version == "" {
		problems = append(problems, "Missing version field")
	}

	albums, ok := records(raw.Albums)
	if !ok {
		problems = append(problems, "Invalid or missing albums array")
	}
	songs, ok := records(raw.Songs)
	if !ok {
		problems = append(problems, "Invalid or missing songs array")
	}
	playlists, ok := records(raw.Playlists)
	if !ok && len(raw.Playlists) > 0 && string(raw.Playlists) != "null" {
		problems = append(problems, "Invalid playlists array")
	}

	for i, a := range albums {
		if !hasStrings(a, "id", "title", "artist") {
			problems = append(problems, fmt.Sprintf("Album at index %d missing required fields", i))
		}
	}
	for i, s := range songs {
		if !hasStrings(s, "id", "title", "albumId") {
			problems = append(problems, fmt.Sprintf("Song at index %d missing required fields", i))
		}
	}
	for i, p := range playlists {
		if !hasStrings(p, "id", "name") || !isArray(p["songIds"]) {
			problems = append(problems, fmt.Sprintf("Playlist at index %d missing required fields", i))
		}
	}
	return problems
}

// records decodes a JSON array of objects. ok is false when msg is absent or not an array.
func records(msg json.RawMessage) ([]map[string]json.RawMessage, bool) {
	if !isArray(msg) {
		return nil, false
	}

	var items []json.RawMessage
	if err := json.Unmarshal(msg, &items); err != nil {
		return nil, false
	}

	out := make([]map[string]json.RawMessage, len(items))
	for i, item := range items {
		// Non-object entries decode to nil and fail the field checks.
		json.Unmarshal(item, &out[i])
	}
	return out, true
}

func hasStrings(obj map[string]json.RawMessage, fields ...string) bool {
	for _, f := range fields {
		var s string
		if err := json.Unmarshal(obj[f], &s); err != nil || s == "" {
			return false
		}
	}
	return true
}

func isArray(msg json.RawMessage) bool {
	for _, c := range msg {
		switch c {
		case ' ', '\t', '\n', '\r':
			continue
		case '[':
			return true
		default:
			return false
		}
	}
	return false
}
