package postgres

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPoolConfig(t *testing.T) {
	pcfg, err := poolConfig(Config{
		URL:             "postgres://u:p@localhost:5432/vigil?sslmode=disable",
		ApplicationName: "vigil-engine",
		MaxConns:        4,
		MinConns:        8,
	})
	require.NoError(t, err)
	assert.Equal(t, int32(4), pcfg.MaxConns)
	assert.Equal(t, int32(0), pcfg.MinConns, "min above max is ignored")
	assert.Equal(t, "vigil-engine", pcfg.ConnConfig.RuntimeParams["application_name"])

	_, err = poolConfig(Config{})
	require.Error(t, err)

	_, err = poolConfig(Config{URL: "://bad"})
	require.Error(t, err)
}
