package entitlements

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/modelgate-platform/modelgate/internal/tiers"
)

type fakeRegistry struct {
	tiers map[string]*tiers.SubscriptionType
}

func (f *fakeRegistry) Get(_ context.Context, id string) (*tiers.SubscriptionType, error) {
	return f.tiers[id], nil
}

func TestMessageLimit(t *testing.T) {
	assert.True(t, FromCeiling(-1).IsUnlimited())
	assert.True(t, FromCeiling(tiers.UnlimitedMessages).IsUnlimited())
	assert.False(t, FromCeiling(0).IsUnlimited())
	assert.False(t, FromCeiling(20).IsUnlimited())

	assert.Equal(t, 20, FromCeiling(20).N())
	assert.Equal(t, 20, LimitOf(20).Ceiling())
	assert.Equal(t, -1, Unlimited().Ceiling())
}

func TestAllowsModel(t *testing.T) {
	e := Entitlements{ModelIDs: []string{"gpt-4o", "gpt-4o-mini"}}
	assert.True(t, e.AllowsModel("gpt-4o"))
	assert.False(t, e.AllowsModel("o3"))
	assert.False(t, Entitlements{}.AllowsModel("gpt-4o"))
}

func TestResolve(t *testing.T) {
	reg := &fakeRegistry{tiers: map[string]*tiers.SubscriptionType{
		"free": {ID: "free", MaxMessagesPerDay: 20, AvailableModelIDs: []string{"gpt-4o-mini"}, Active: true},
		"vip":  {ID: "vip", MaxMessagesPerDay: -1, AvailableModelIDs: []string{"gpt-4o", "o3"}, Active: true},
	}}
	resolver := NewResolver(reg)
	ctx := context.Background()

	ent, err := resolver.Resolve(ctx, "free")
	require.NoError(t, err)
	assert.False(t, ent.Limit.IsUnlimited())
	assert.Equal(t, 20, ent.Limit.N())
	assert.True(t, ent.AllowsModel("gpt-4o-mini"))

	ent, err = resolver.Resolve(ctx, "vip")
	require.NoError(t, err)
	assert.True(t, ent.Limit.IsUnlimited())
}

func TestResolve_UnknownTier(t *testing.T) {
	resolver := NewResolver(&fakeRegistry{tiers: map[string]*tiers.SubscriptionType{}})

	_, err := resolver.Resolve(context.Background(), "ghost")
	assert.ErrorIs(t, err, ErrUnknownTier)
}

func TestResolve_DeactivatedTierUnchanged(t *testing.T) {
	reg := &fakeRegistry{tiers: map[string]*tiers.SubscriptionType{
		"legacy": {ID: "legacy", MaxMessagesPerDay: 50, AvailableModelIDs: []string{"gpt-4o-mini"}, Active: true},
	}}
	resolver := NewResolver(reg)
	ctx := context.Background()

	before, err := resolver.Resolve(ctx, "legacy")
	require.NoError(t, err)

	// Deactivation blocks new assignment, not existing holders.
	reg.tiers["legacy"].Active = false

	after, err := resolver.Resolve(ctx, "legacy")
	require.NoError(t, err)
	assert.Equal(t, before, after)
}
