package client

import (
	"github.com/wolfeidau/provisioner/internal/models"
)

// GroupPermittables partitions endpoints into permittable groups. Group
// emission follows first-seen order; endpoints are de-duplicated per group
// while keeping their first-seen order inside it.
func GroupPermittables(endpoints []models.PermittableEndpoint) []models.PermittableGroup {
	var order []string
	grouped := make(map[string][]models.PermittableEndpoint)
	seen := make(map[string]map[models.PermittableEndpoint]struct{})

	for _, endpoint := range endpoints {
		if _, ok := grouped[endpoint.GroupID]; !ok {
			order = append(order, endpoint.GroupID)
			seen[endpoint.GroupID] = make(map[models.PermittableEndpoint]struct{})
		}
		if _, dup := seen[endpoint.GroupID][endpoint]; dup {
			continue
		}
		seen[endpoint.GroupID][endpoint] = struct{}{}
		grouped[endpoint.GroupID] = append(grouped[endpoint.GroupID], endpoint)
	}

	groups := make([]models.PermittableGroup, 0, len(order))
	for _, groupID := range order {
		groups = append(groups, models.PermittableGroup{
			Identifier:   groupID,
			Permittables: grouped[groupID],
		})
	}
	return groups
}

// CallEndpointSets partitions required permissions into call endpoint sets
// keyed by the caller-declared endpoint-set purpose, in first-seen order.
func CallEndpointSets(permissions []models.ApplicationPermission) []models.CallEndpointSet {
	var order []string
	grouped := make(map[string][]string)

	for _, permission := range permissions {
		if _, ok := grouped[permission.EndpointSetIdentifier]; !ok {
			order = append(order, permission.EndpointSetIdentifier)
		}
		grouped[permission.EndpointSetIdentifier] = append(
			grouped[permission.EndpointSetIdentifier],
			permission.Permission.PermittableGroupIdentifier,
		)
	}

	sets := make([]models.CallEndpointSet, 0, len(order))
	for _, purpose := range order {
		sets = append(sets, models.CallEndpointSet{
			Identifier:                  purpose,
			PermittableGroupIdentifiers: grouped[purpose],
		})
	}
	return sets
}
