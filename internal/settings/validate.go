package settings

import (
	"fmt"
	"strconv"
	"strings"
)

// ValidationError represents an invalid settings value.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Themes accepted by general.theme.
var Themes = []string{"system", "light", "dark"}

// ParseFlag reads a yes/no style boolean.
func ParseFlag(s string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "yes", "y", "true", "1", "on":
		return true, nil
	case "no", "n", "false", "0", "off":
		return false, nil
	}
	return false, fmt.Errorf("not a yes/no value: %q", s)
}

// FormatFlag renders a boolean the way the settings file stores it.
func FormatFlag(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

// normalize validates value for key and returns what gets stored.
func normalize(key, value string) (any, error) {
	def, ok := lookup(key)
	if !ok {
		return nil, ValidationError{Field: key, Message: "unknown setting"}
	}
	value = strings.TrimSpace(value)

	switch def.kind {
	case kindFlag:
		b, err := ParseFlag(value)
		if err != nil {
			return nil, ValidationError{Field: key, Message: err.Error()}
		}
		return FormatFlag(b), nil

	case kindInt:
		n, err := strconv.Atoi(value)
		if err != nil {
			return nil, ValidationError{Field: key, Message: fmt.Sprintf("not an integer: %q", value)}
		}
		if n < def.min {
			return nil, ValidationError{Field: key, Message: fmt.Sprintf("must be >= %d", def.min)}
		}
		return n, nil

	default:
		if key == KeyTheme {
			for _, t := range Themes {
				if strings.EqualFold(value, t) {
					return t, nil
				}
			}
			return nil, ValidationError{Field: key, Message: fmt.Sprintf("must be one of %s", strings.Join(Themes, ", "))}
		}
		return value, nil
	}
}
