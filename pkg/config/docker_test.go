package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestResolveHostForDocker_NonLoopbackUnchanged(t *testing.T) {
	for _, host := range []string{"warehouse.example.com", "192.168.1.100", dockerHostGateway, ""} {
		assert.Equal(t, host, ResolveHostForDocker(host), host)
	}
}

func TestResolveHostForDocker_Loopback(t *testing.T) {
	want := "localhost"
	if IsRunningInDocker() {
		want = dockerHostGateway
	}
	assert.Equal(t, want, ResolveHostForDocker("localhost"))
}

func TestIsLoopback(t *testing.T) {
	assert.True(t, isLoopback("localhost"))
	assert.True(t, isLoopback("127.0.0.1"))
	assert.True(t, isLoopback("::1"))
	assert.False(t, isLoopback("db"))
}
