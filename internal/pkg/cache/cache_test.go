package cache

import (
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetGetDelete(t *testing.T) {
	mr := miniredis.RunT(t)
	SetClient(redis.NewClient(&redis.Options{Addr: mr.Addr()}))
	t.Cleanup(func() { SetClient(nil) })

	require.NoError(t, Set("tablefox:test", "value", time.Minute))
	got, err := Get("tablefox:test")
	require.NoError(t, err)
	assert.Equal(t, "value", got)

	mr.FastForward(2 * time.Minute)
	_, err = Get("tablefox:test")
	assert.ErrorIs(t, err, redis.Nil)

	require.NoError(t, Set("tablefox:test", "value", 0))
	require.NoError(t, Delete("tablefox:test"))
	assert.False(t, mr.Exists("tablefox:test"))
}
