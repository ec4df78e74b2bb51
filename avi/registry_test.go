package avi

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLibraryRegistryLoadsOnce(t *testing.T) {
	r := NewLibraryRegistry()
	var calls int32

	var wg sync.WaitGroup
	results := make([]any, 10)
	for i := 0; i < 10; i++ {
		i := i
		wg.Add(1)
		go func() {
			defer wg.Done()
			v, err := r.LoadOnce("lib", func() (any, error) {
				atomic.AddInt32(&calls, 1)
				return "loaded", nil
			})
			require.NoError(t, err)
			results[i] = v
		}()
	}
	wg.Wait()

	require.EqualValues(t, 1, calls)
	for _, v := range results {
		require.Equal(t, "loaded", v)
	}
}

func TestLibraryRegistryFailedInitIsNotCached(t *testing.T) {
	r := NewLibraryRegistry()
	boom := errors.New("boom")

	_, err := r.LoadOnce("lib", func() (any, error) { return nil, boom })
	require.Error(t, err)

	v, err := r.LoadOnce("lib", func() (any, error) { return "ok", nil })
	require.NoError(t, err)
	require.Equal(t, "ok", v)
}
