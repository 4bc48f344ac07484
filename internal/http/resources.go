package http

import (
	"embed"
	"encoding/json"
	"fmt"
	"strings"
)

//go:embed resources/*.json
var resourceFiles embed.FS

// renderResource reads an embedded JSON document and substitutes each
// {placeholder} with its JSON-escaped value.
func renderResource(name string, values map[string]string) (json.RawMessage, error) {
	data, err := resourceFiles.ReadFile("resources/" + name)
	if err != nil {
		return nil, err
	}

	pairs := make([]string, 0, len(values)*2)
	for key, value := range values {
		escaped, err := json.Marshal(value)
		if err != nil {
			return nil, err
		}
		pairs = append(pairs, "{"+key+"}", strings.Trim(string(escaped), `"`))
	}

	rendered := strings.NewReplacer(pairs...).Replace(string(data))
	if !json.Valid([]byte(rendered)) {
		return nil, fmt.Errorf("resource %s rendered to invalid JSON", name)
	}
	return json.RawMessage(rendered), nil
}
