package redis

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestChannelNames(t *testing.T) {
	assert.Equal(t, "pairing:K7QX2M", PairingChannel("K7QX2M"))
	assert.Equal(t, "device:phone:sxk-client-id", DeviceKey("phone", "sxk-client-id"))
}

func TestNewClient_InvalidURL(t *testing.T) {
	_, err := NewClient(context.Background(), "not-a-redis-url")
	assert.Error(t, err)
}
