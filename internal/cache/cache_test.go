package cache

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/modvault/modvault/internal/db/models"
)

func TestNilClientAlwaysMisses(t *testing.T) {
	c := New(nil, nil)
	ctx := context.Background()

	assert.Nil(t, c.GetUserProjects(ctx, 7))

	// Writes and invalidations against a nil client are silent no-ops
	c.SetUserProjects(ctx, 7, []models.Project{{ID: 1, Slug: "my-mod"}})
	c.InvalidateUserProjects(7)
	assert.Nil(t, c.GetUserProjects(ctx, 7))
}

func TestUserProjectsKey(t *testing.T) {
	assert.Equal(t, "user:7:projects", userProjectsKey(7))
}
