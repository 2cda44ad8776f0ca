//go:build integration

package compliance_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kycflow/internal/kyc/compliance"
	"kycflow/internal/kyc/ports"
	"kycflow/pkg/testutil/containers"
)

func TestRedisWatchlist(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	ctx := context.Background()
	rc := containers.NewRedisContainer(t)
	wl := compliance.NewRedisWatchlist(rc.Client)

	applicant := ports.Applicant{Nationality: "fr", IdentityDigest: "abc"}

	listed, err := wl.Listed(ctx, applicant)
	require.NoError(t, err)
	assert.False(t, listed)

	require.NoError(t, wl.AddIdentity(ctx, "abc"))
	listed, err = wl.Listed(ctx, applicant)
	require.NoError(t, err)
	assert.True(t, listed)

	require.NoError(t, wl.AddNationality(ctx, "kp"))
	listed, err = wl.Listed(ctx, ports.Applicant{Nationality: "KP", IdentityDigest: "zzz"})
	require.NoError(t, err)
	assert.True(t, listed)
}

func TestRedisAMLList(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	ctx := context.Background()
	rc := containers.NewRedisContainer(t)
	list := compliance.NewRedisAMLList(rc.Client)

	applicant := ports.Applicant{Country: "sy", IdentityDigest: "abc"}

	hit, err := list.Screen(ctx, applicant)
	require.NoError(t, err)
	assert.False(t, hit)

	require.NoError(t, list.AddCountry(ctx, "SY"))
	hit, err = list.Screen(ctx, applicant)
	require.NoError(t, err)
	assert.True(t, hit)

	require.NoError(t, list.AddIdentity(ctx, "def"))
	hit, err = list.Screen(ctx, ports.Applicant{Country: "US", IdentityDigest: "def"})
	require.NoError(t, err)
	assert.True(t, hit)
}
