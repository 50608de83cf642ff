package entity

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tbarracha/Spirekit-sub001/domain"
)

type user struct {
	AuditedEntity[string]
	Name string `db:"name"`
}

func TestEntity_LifecycleAccessors(t *testing.T) {
	u := &user{}
	u.ID = "u1"
	now := time.Now().UTC()

	u.SetCreatedAt(now)
	u.SetUpdatedAt(now.Add(time.Second))
	u.SetState(domain.StateActive)

	var e domain.IEntity[string] = u
	assert.Equal(t, "u1", e.GetID())
	assert.True(t, e.GetCreatedAt().Equal(now))
	assert.True(t, e.GetUpdatedAt().After(e.GetCreatedAt()))
	assert.True(t, u.IsActive())
	assert.False(t, u.IsDeleted())

	u.SetState(domain.StateDeleted)
	assert.True(t, u.IsDeleted())
}

func TestAuditedEntity_Actors(t *testing.T) {
	u := &user{}
	assert.Nil(t, u.GetCreatedBy())

	alice := "alice"
	var a domain.IAuditable = u
	a.SetCreatedBy(&alice)
	a.SetUpdatedBy(&alice)
	require.NotNil(t, u.CreatedBy)
	assert.Equal(t, "alice", *u.GetUpdatedBy())
}

func TestNewStringID(t *testing.T) {
	id1, id2 := NewStringID(), NewStringID()
	assert.NotEqual(t, id1, id2)
	_, err := uuid.Parse(id1)
	assert.NoError(t, err)
}
