package adapter

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEndpointProvider_Failover(t *testing.T) {
	p, err := NewEndpointProvider("http://a", "http://b", "", "http://a")
	require.NoError(t, err)
	assert.Equal(t, 2, p.Len())
	assert.Equal(t, "http://a", p.Current())

	require.NoError(t, p.Failover("http://a"))
	assert.Equal(t, "http://b", p.Current())

	// Stale failure report for an endpoint no longer active
	require.NoError(t, p.Failover("http://a"))
	assert.Equal(t, "http://b", p.Current())

	require.NoError(t, p.Failover("http://b"))
	assert.Equal(t, "http://a", p.Current())

	p.Failover("http://a")
	p.Reset()
	assert.Equal(t, "http://a", p.Current())
}

func TestEndpointProvider_SingleEndpoint(t *testing.T) {
	p, err := NewEndpointProvider("http://only")
	require.NoError(t, err)
	assert.Error(t, p.Failover("http://only"))
	assert.Equal(t, "http://only", p.Current())

	_, err = NewEndpointProvider("")
	assert.Error(t, err)
}

func TestEndpointProvider_Health(t *testing.T) {
	p, err := NewEndpointProvider("http://a", "http://b")
	require.NoError(t, err)

	p.RecordSuccess("http://a", 100*time.Millisecond)
	p.RecordSuccess("http://a", 300*time.Millisecond)
	p.RecordFailure("http://a")
	p.RecordFailure("http://unknown")

	health := p.Health()
	require.Len(t, health, 2)

	a := health[0]
	assert.Equal(t, int64(3), a.TotalRequests)
	assert.Equal(t, int64(1), a.FailedRequests)
	assert.InDelta(t, 2.0/3.0, a.SuccessRate, 1e-9)
	assert.Equal(t, 200*time.Millisecond, a.AverageLatency)
	assert.Equal(t, 1, a.ConsecutiveFails)
	assert.True(t, a.Active)

	b := health[1]
	assert.Zero(t, b.TotalRequests)
	assert.False(t, b.Active)
}
