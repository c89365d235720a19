package cache

import (
	"context"
	"testing"

	"github.com/ManuelReschke/freelancedesk/internal/pkg/env"
	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestSetupCacheConnects(t *testing.T) {
	mr := miniredis.RunT(t)
	env.Env = map[string]string{"CACHE_HOST": mr.Host(), "CACHE_PORT": mr.Port()}
	defer func() { env.Env = nil; client = nil }()

	rdb := SetupCache(zap.NewNop())
	require.NoError(t, rdb.Set(context.Background(), "k", "v", 0).Err())
	got, err := mr.Get("k")
	require.NoError(t, err)
	assert.Equal(t, "v", got)
	assert.Same(t, rdb, GetClient())
}
