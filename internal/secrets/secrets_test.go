package secrets

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatFor(t *testing.T) {
	tests := []struct {
		path string
		want string
	}{
		{"secrets.env", "dotenv"},
		{"secrets.ENV", "dotenv"},
		{"secrets.json", "json"},
		{"secrets.yaml", "yaml"},
		{"secrets.yml", "yaml"},
		{"secrets", "yaml"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, formatFor(tt.path), "path %s", tt.path)
	}
}

func TestParseDotenv(t *testing.T) {
	values, err := parseDotenv([]byte(`# rendering credentials
OME_API_USERNAME=admin

OME_API_PASSWORD='s3cret=with=equals'
OME_ACCESS_TOKEN="tok123"
`))
	require.NoError(t, err)

	assert.Equal(t, "admin", values[KeyUsername])
	assert.Equal(t, "s3cret=with=equals", values[KeyPassword])
	assert.Equal(t, "tok123", values[KeyAccessToken])
}

func TestParseDotenv_MalformedLine(t *testing.T) {
	_, err := parseDotenv([]byte("NOT A KV PAIR\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unexpected dotenv line")
}

func TestParseYAML_Flattens(t *testing.T) {
	values, err := parseYAML([]byte(`
OME_ACCESS_TOKEN: tok123
api:
  username: admin
  password: s3cret
`))
	require.NoError(t, err)

	assert.Equal(t, "tok123", values["OME_ACCESS_TOKEN"])
	assert.Equal(t, "admin", values["api.username"])
	assert.Equal(t, "s3cret", values["api.password"])
}

func TestParseYAML_Malformed(t *testing.T) {
	_, err := parseYAML([]byte("a: [b: c\n"))
	require.Error(t, err)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load("/nonexistent/secrets.yaml")
	require.Error(t, err)
}
