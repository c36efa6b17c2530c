package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marketrun/backend/pkg/enums"
)

func TestAgentMetaSetStatusRefreshesTimestamp(t *testing.T) {
	meta := AgentMeta{}
	at := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)

	meta.SetStatus(enums.AgentStatusAway, false, at)

	assert.Equal(t, enums.AgentStatusAway, meta.Status)
	assert.False(t, meta.AcceptingOrders)
	require.NotNil(t, meta.StatusUpdatedAt)
	assert.Equal(t, at, *meta.StatusUpdatedAt)
}

func TestAgentMetaSetAcceptingOrdersLeavesStatusAlone(t *testing.T) {
	meta := AgentMeta{}
	meta.SetStatus(enums.AgentStatusAvailable, true, time.Now().UTC())

	later := time.Now().UTC().Add(time.Minute)
	meta.SetAcceptingOrders(false, later)

	assert.Equal(t, enums.AgentStatusAvailable, meta.Status)
	assert.False(t, meta.AcceptingOrders)
	assert.Equal(t, later, *meta.StatusUpdatedAt)
}

func TestAgentMetaSetBusy(t *testing.T) {
	meta := AgentMeta{}
	meta.SetStatus(enums.AgentStatusAvailable, true, time.Now().UTC())

	at := time.Now().UTC().Add(time.Second)
	meta.SetBusy(at)

	assert.Equal(t, enums.AgentStatusBusy, meta.Status)
	assert.False(t, meta.AcceptingOrders)
	assert.Equal(t, at, *meta.StatusUpdatedAt)
}

func TestAgentMetaAppendImagesIsAppendOnly(t *testing.T) {
	meta := AgentMeta{VerificationImages: []string{"a.jpg"}}

	meta.AppendImages([]string{"b.jpg", "c.jpg"})
	meta.AppendImages(nil)

	assert.Equal(t, []string{"a.jpg", "b.jpg", "c.jpg"}, []string(meta.VerificationImages))
}

func TestAgentMetaDefaults(t *testing.T) {
	var meta *AgentMeta
	fallback := time.Now().UTC()

	assert.Equal(t, enums.AgentStatusOffline, meta.EffectiveStatus())
	assert.Equal(t, fallback, meta.LastStatusUpdate(fallback))

	empty := AgentMeta{}
	assert.Equal(t, enums.AgentStatusOffline, empty.EffectiveStatus())
}
