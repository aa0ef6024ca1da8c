package redisx

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/conforma/remitos-api/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_DisabledWithoutAddr(t *testing.T) {
	assert.Nil(t, New(config.Redis{}))
}

func TestNew_Ping(t *testing.T) {
	mr := miniredis.RunT(t)
	c := New(config.Redis{Addr: mr.Addr()})
	require.NotNil(t, c)
	defer c.Close()
	assert.NoError(t, Ping(context.Background(), c))
}
