package services

import (
	"context"
	"testing"

	"entrepreneur-connect-backend/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func discoverIDs(items []models.DiscoverItem) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		out = append(out, item.Profile.ID)
	}
	return out
}

func TestDiscoverRanksByDistance(t *testing.T) {
	e := newEnv()
	ctx := context.Background()

	e.addProfile("viewer", "Vera", "V", ptr(48.8566), ptr(2.3522)) // Paris
	e.addProfile("nocoords-old", "Old", "N", nil, nil)
	e.addProfile("lyon", "Léa", "L", ptr(45.7640), ptr(4.8357))
	e.addProfile("versailles", "Victor", "V", ptr(48.8049), ptr(2.1204))
	e.addProfile("nocoords-new", "New", "N", nil, nil)
	e.addProfile("lille", "Louis", "L", ptr(50.6292), ptr(3.0573))

	items, err := e.discoverySvc.Discover(ctx, "viewer", models.DiscoverFilter{})
	require.NoError(t, err)

	assert.Equal(t, []string{"versailles", "lille", "lyon", "nocoords-new", "nocoords-old"}, discoverIDs(items))

	require.NotNil(t, items[0].DistanceKM)
	assert.Equal(t, "18 km", items[0].Distance)
	assert.Equal(t, "400+ km", items[2].Distance)
	assert.Nil(t, items[3].DistanceKM)
	assert.Empty(t, items[3].Distance)
}

func TestDiscoverTiesKeepStoreOrder(t *testing.T) {
	e := newEnv()
	ctx := context.Background()

	e.addProfile("viewer", "Vera", "V", ptr(48.8566), ptr(2.3522))
	e.addProfile("first", "A", "A", ptr(45.7640), ptr(4.8357))
	e.addProfile("second", "B", "B", ptr(45.7640), ptr(4.8357))

	items, err := e.discoverySvc.Discover(ctx, "viewer", models.DiscoverFilter{})
	require.NoError(t, err)

	// Store order is newest first
	assert.Equal(t, []string{"second", "first"}, discoverIDs(items))
}

func TestDiscoverWithoutViewerCoordinates(t *testing.T) {
	e := newEnv()
	ctx := context.Background()

	e.addProfile("viewer", "Vera", "V", nil, nil)
	e.addProfile("lyon", "Léa", "L", ptr(45.7640), ptr(4.8357))
	e.addProfile("other", "Otto", "O", nil, nil)

	items, err := e.discoverySvc.Discover(ctx, "viewer", models.DiscoverFilter{})
	require.NoError(t, err)
	assert.Equal(t, []string{"other", "lyon"}, discoverIDs(items))
	for _, item := range items {
		assert.Nil(t, item.DistanceKM)
	}
}

func TestDiscoverAnnotatesRelations(t *testing.T) {
	e := newEnv()
	ctx := context.Background()

	e.addProfile("viewer", "Vera", "V", nil, nil)
	e.addProfile("b", "Bob", "B", nil, nil)
	e.addProfile("c", "Chloé", "C", nil, nil)
	e.addProfile("d", "Dan", "D", nil, nil)

	_, err := e.relationshipSvc.SendRequest(ctx, "viewer", "b")
	require.NoError(t, err)
	conn, err := e.relationshipSvc.SendRequest(ctx, "c", "viewer")
	require.NoError(t, err)
	_, err = e.relationshipSvc.AcceptRequest(ctx, "viewer", conn.ID)
	require.NoError(t, err)

	items, err := e.discoverySvc.Discover(ctx, "viewer", models.DiscoverFilter{})
	require.NoError(t, err)

	relations := make(map[string]string)
	for _, item := range items {
		relations[item.Profile.ID] = item.Relation.String()
	}
	assert.Equal(t, map[string]string{
		"b": "sent_pending",
		"c": "received_accepted",
		"d": "none",
	}, relations)
}

func TestDiscoverFilters(t *testing.T) {
	e := newEnv()
	ctx := context.Background()

	e.addProfile("viewer", "Vera", "V", nil, nil)
	e.profiles.add(models.Profile{ID: "tech", FirstName: "Tom", Sector: "Tech", City: "Paris", Skills: []string{"Golang"}})
	e.profiles.add(models.Profile{ID: "food", FirstName: "Fanny", Sector: "Food", City: "Lyon"})

	items, err := e.discoverySvc.Discover(ctx, "viewer", models.DiscoverFilter{Sector: "Tech"})
	require.NoError(t, err)
	assert.Equal(t, []string{"tech"}, discoverIDs(items))

	items, err = e.discoverySvc.Discover(ctx, "viewer", models.DiscoverFilter{City: " lyon "})
	require.NoError(t, err)
	assert.Equal(t, []string{"food"}, discoverIDs(items))

	items, err = e.discoverySvc.Discover(ctx, "viewer", models.DiscoverFilter{Query: "golang"})
	require.NoError(t, err)
	assert.Equal(t, []string{"tech"}, discoverIDs(items))
}

func TestCities(t *testing.T) {
	e := newEnv()
	cities := e.discoverySvc.Cities()
	assert.Contains(t, cities, "Paris")
	assert.Contains(t, cities, "Lyon")
	assert.IsIncreasing(t, cities)
}
