package inspect

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// ParseWhere turns "field=value" pairs into an exact-match filter. Values
// are decoded as YAML scalars, so "true" is a boolean and "3" a number;
// quote them to force a string.
func ParseWhere(pairs []string) (map[string]any, error) {
	if len(pairs) == 0 {
		return nil, nil
	}
	where := make(map[string]any, len(pairs))
	for _, pair := range pairs {
		key, raw, ok := strings.Cut(pair, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid filter %q (expected field=value)", pair)
		}
		var value any
		if err := yaml.Unmarshal([]byte(raw), &value); err != nil {
			return nil, fmt.Errorf("invalid value in filter %q: %w", pair, err)
		}
		if _, isMap := value.(map[string]any); isMap {
			value = raw
		}
		where[key] = value
	}
	return where, nil
}
