package openml

import (
	"log"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewClientFileScheme(t *testing.T) {
	dir := t.TempDir()
	client, err := NewClient("file://"+dir, "", log.Default())
	require.NoError(t, err)
	_, ok := client.(*FileStore)
	assert.True(t, ok, "file URIs select the file store")
	assert.Equal(t, dir, client.URI())
}

func TestNewClientFromEnv(t *testing.T) {
	require.NoError(t, os.Setenv(ServerURLEnvName, "file://"+t.TempDir()))
	defer os.Unsetenv(ServerURLEnvName)
	client, err := NewClient("", "", nil)
	require.NoError(t, err)
	_, ok := client.(*FileStore)
	assert.True(t, ok)
}

func TestNewClientHTTPScheme(t *testing.T) {
	client, err := NewClient("https://platform.example.org", "secret", nil)
	require.NoError(t, err)
	_, ok := client.(*RESTClient)
	assert.True(t, ok, "http(s) URIs select the REST client")
}

func TestNewClientUnknownScheme(t *testing.T) {
	_, err := NewClient("ftp://platform.example.org", "", nil)
	assert.Error(t, err)
}

func TestParametersFromStruct(t *testing.T) {
	type settings struct {
		Kernel  string
		Degree  int
		Weights []float64
	}
	params, err := ParametersFromStruct(settings{Kernel: "radial", Degree: 3, Weights: []float64{0.5, 1}})
	require.NoError(t, err)
	assert.Equal(t, []SetupParameter{
		{Name: "Kernel", Value: "radial"},
		{Name: "Degree", Value: "3"},
		{Name: "Weights_0", Value: "0.5"},
		{Name: "Weights_1", Value: "1"},
	}, params)

	params, err = ParametersFromStruct(&settings{Kernel: "linear"})
	require.NoError(t, err)
	assert.Equal(t, "linear", params[0].Value)

	_, err = ParametersFromStruct(42)
	assert.Error(t, err)
}
