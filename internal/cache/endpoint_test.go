package cache

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseEndpoint(t *testing.T) {
	ep, err := ParseEndpoint("redis-node-1:7001")
	require.NoError(t, err)
	assert.Equal(t, Endpoint{Host: "redis-node-1", Port: 7001}, ep)

	ep, err = ParseEndpoint(" redis-node-2 ")
	require.NoError(t, err)
	assert.Equal(t, 6379, ep.Port)

	ep, err = ParseEndpoint("[::1]:6380")
	require.NoError(t, err)
	assert.Equal(t, "[::1]:6380", ep.String())

	for _, bad := range []string{"", ":6379", "host:0", "host:abc", "host:70000"} {
		_, err := ParseEndpoint(bad)
		assert.ErrorIs(t, err, ErrInvalid, bad)
	}
}

func TestParseEndpoints(t *testing.T) {
	eps, err := ParseEndpoints("a:1, ,b:2,")
	require.NoError(t, err)
	assert.Equal(t, []Endpoint{{Host: "a", Port: 1}, {Host: "b", Port: 2}}, eps)

	eps, err = ParseEndpoints("")
	require.NoError(t, err)
	require.Len(t, eps, 1)
	assert.Equal(t, DefaultEndpoint, eps[0].String())

	_, err = ParseEndpoints("a:1,b:x")
	assert.Error(t, err)
}

func TestTopology_ActiveEndpoint(t *testing.T) {
	assert.Equal(t, Endpoint{}, Topology{}.ActiveEndpoint())
	topo := Topology{Endpoints: mustEndpoints("a:1", "b:2"), Active: 1}
	assert.Equal(t, "b:2", topo.ActiveEndpoint().String())
}
