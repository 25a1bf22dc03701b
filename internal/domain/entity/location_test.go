package entity

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func ptr[T any](v T) *T { return &v }

func TestDistanceKm(t *testing.T) {
	delhi := Location{Lat: 28.6139, Lon: 77.2090}
	mumbai := Location{Lat: 19.0760, Lon: 72.8777}

	require.InDelta(t, 1150, delhi.DistanceKm(mumbai), 15)
	require.InDelta(t, 0, delhi.DistanceKm(delhi), 1e-9)
	require.InDelta(t, delhi.DistanceKm(mumbai), mumbai.DistanceKm(delhi), 1e-9)
}

func TestWithinRadius(t *testing.T) {
	center := Location{Lat: 28.6139, Lon: 77.2090}
	near := Report{ID: "near", Lat: ptr(28.62), Lon: ptr(77.21)}
	far := Report{ID: "far", Lat: ptr(19.07), Lon: ptr(72.87)}
	unknown := Report{ID: "unknown"}

	pred := WithinRadius(center, 5)
	require.True(t, pred(near))
	require.False(t, pred(far))
	require.False(t, pred(unknown))

	require.True(t, HasLocation(near))
	require.False(t, HasLocation(unknown))
	require.False(t, HasLocation(Report{Lat: ptr(1.0)}))
}
