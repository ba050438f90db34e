package properties

import (
	"slices"
	"strings"
)

// EnvName converts a property key to an environment variable name:
// letters are upper-cased, digits kept and everything else becomes '_'.
func EnvName(key string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z':
			return r - 'a' + 'A'
		case r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		default:
			return '_'
		}
	}, key)
}

// ToEnv converts properties to KEY=value pairs sorted by key.
func ToEnv(props map[string]string) []string {
	keys := make([]string, 0, len(props))
	for k := range props {
		keys = append(keys, k)
	}
	slices.Sort(keys)

	env := make([]string, 0, len(props))
	for _, k := range keys {
		env = append(env, EnvName(k)+"="+props[k])
	}
	return env
}

// ToEnvMap is ToEnv as a map.
func ToEnvMap(props map[string]string) map[string]string {
	env := make(map[string]string, len(props))
	for k, v := range props {
		env[EnvName(k)] = v
	}
	return env
}
