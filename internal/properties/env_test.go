package properties

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEnvName(t *testing.T) {
	tests := map[string]string{
		"log.level":          "LOG_LEVEL",
		"quarkus.http.port":  "QUARKUS_HTTP_PORT",
		"app-name":           "APP_NAME",
		"ALREADY_UPPER_1":    "ALREADY_UPPER_1",
		"db.url[primary]":    "DB_URL_PRIMARY_",
		"mixedCase.Property": "MIXEDCASE_PROPERTY",
	}
	for in, expected := range tests {
		assert.Equal(t, expected, EnvName(in), in)
	}
}

func TestToEnv(t *testing.T) {
	props := map[string]string{"log.level": "info", "app.greeting": "hi there"}

	assert.Equal(t, []string{"APP_GREETING=hi there", "LOG_LEVEL=info"}, ToEnv(props))
	assert.Equal(t, map[string]string{"APP_GREETING": "hi there", "LOG_LEVEL": "info"}, ToEnvMap(props))
	assert.Empty(t, ToEnv(nil))
}
