package snmp

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/bedecarroll/unet-sub002/internal/errs"
)

func TestPoolAcquireBlocksUntilRelease(t *testing.T) {
	p := NewPool(1)

	release, err := p.Acquire(context.Background())
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = p.Acquire(ctx)
	require.Error(t, err, "second acquire must block until the first permit is released")
	require.Equal(t, errs.KindTimeout, errs.KindOf(err))

	release()
	release2, err := p.Acquire(context.Background())
	require.NoError(t, err)
	release2()
}

func TestPoolAcquireAllowsUpToLimit(t *testing.T) {
	p := NewPool(3)
	var releases []func()
	for i := 0; i < 3; i++ {
		r, err := p.Acquire(context.Background())
		require.NoError(t, err)
		releases = append(releases, r)
	}
	for _, r := range releases {
		r()
	}
}
