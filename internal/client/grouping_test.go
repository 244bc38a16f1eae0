package client

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wolfeidau/provisioner/internal/models"
)

func TestGroupPermittables(t *testing.T) {
	t.Run("partitions by group in first-seen order and collapses duplicates", func(t *testing.T) {
		endpoints := []models.PermittableEndpoint{
			{Path: "/x/y", Method: "POST", GroupID: "x"},
			{Path: "/y/z", Method: "POST", GroupID: "x"},
			{Path: "/y/z", Method: "POST", GroupID: "x"},
			{Path: "/y/z", Method: "GET", GroupID: "x"},
			{Path: "/m/n", Method: "GET", GroupID: "m"},
		}

		groups := GroupPermittables(endpoints)
		require.Len(t, groups, 2)

		assert.Equal(t, "x", groups[0].Identifier)
		assert.Equal(t, []models.PermittableEndpoint{
			{Path: "/x/y", Method: "POST", GroupID: "x"},
			{Path: "/y/z", Method: "POST", GroupID: "x"},
			{Path: "/y/z", Method: "GET", GroupID: "x"},
		}, groups[0].Permittables)

		assert.Equal(t, "m", groups[1].Identifier)
		assert.Len(t, groups[1].Permittables, 1)
	})

	t.Run("flattening reproduces every endpoint exactly once", func(t *testing.T) {
		endpoints := []models.PermittableEndpoint{
			{Path: "/a", Method: "GET", GroupID: "g1"},
			{Path: "/b", Method: "GET", GroupID: "g2"},
			{Path: "/a", Method: "GET", GroupID: "g1"},
			{Path: "/c", Method: "DELETE", GroupID: "g1"},
		}

		var flattened []models.PermittableEndpoint
		for _, group := range GroupPermittables(endpoints) {
			flattened = append(flattened, group.Permittables...)
		}

		assert.ElementsMatch(t, []models.PermittableEndpoint{
			{Path: "/a", Method: "GET", GroupID: "g1"},
			{Path: "/b", Method: "GET", GroupID: "g2"},
			{Path: "/c", Method: "DELETE", GroupID: "g1"},
		}, flattened)
	})

	t.Run("empty input yields no groups", func(t *testing.T) {
		assert.Empty(t, GroupPermittables(nil))
	})
}

func TestCallEndpointSets(t *testing.T) {
	permissions := []models.ApplicationPermission{
		{
			EndpointSetIdentifier: "forPurposeFoo",
			Permission: models.Permission{
				PermittableGroupIdentifier: "x",
				AllowedOperations:          models.AllOperations(),
			},
		},
		{
			EndpointSetIdentifier: "forPurposeBar",
			Permission: models.Permission{
				PermittableGroupIdentifier: "m",
				AllowedOperations:          []models.AllowedOperation{models.OperationRead},
			},
		},
	}

	sets := CallEndpointSets(permissions)
	require.Len(t, sets, 2)

	assert.Equal(t, models.CallEndpointSet{
		Identifier:                  "forPurposeFoo",
		PermittableGroupIdentifiers: []string{"x"},
	}, sets[0])
	assert.Equal(t, models.CallEndpointSet{
		Identifier:                  "forPurposeBar",
		PermittableGroupIdentifiers: []string{"m"},
	}, sets[1])
}

func TestCallEndpointSetsMergesSharedPurpose(t *testing.T) {
	permissions := []models.ApplicationPermission{
		{EndpointSetIdentifier: "shared", Permission: models.Permission{PermittableGroupIdentifier: "a"}},
		{EndpointSetIdentifier: "shared", Permission: models.Permission{PermittableGroupIdentifier: "b"}},
	}

	sets := CallEndpointSets(permissions)
	require.Len(t, sets, 1)
	assert.Equal(t, []string{"a", "b"}, sets[0].PermittableGroupIdentifiers)
}
