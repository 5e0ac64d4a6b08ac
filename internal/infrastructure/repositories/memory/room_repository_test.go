package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/suissa/purecore-ninjalive/internal/core/domain"
)

func TestCreateAndGet(t *testing.T) {
	repo := NewRoomRepository()
	ctx := context.Background()

	room := domain.NewRoom("alpha", 5, "", "user-a")
	require.NoError(t, repo.Create(ctx, room))

	got, err := repo.GetByID(ctx, "alpha")
	require.NoError(t, err)
	assert.Equal(t, room, got)

	_, err = repo.GetByID(ctx, "missing")
	assert.ErrorIs(t, err, domain.ErrRoomNotFound)
}

func TestAddMemberCapacityBound(t *testing.T) {
	repo := NewRoomRepository()
	ctx := context.Background()

	room := domain.NewRoom("alpha", 2, "", "user-a")
	require.NoError(t, repo.Create(ctx, room))

	require.NoError(t, repo.AddMember(ctx, "alpha", "user-b"))
	err := repo.AddMember(ctx, "alpha", "user-c")
	assert.ErrorIs(t, err, domain.ErrRoomFull)

	// Capacity holds after every join.
	got, err := repo.GetByID(ctx, "alpha")
	require.NoError(t, err)
	assert.LessOrEqual(t, got.MemberCount(), got.Capacity)
}

func TestAddMemberUniqueness(t *testing.T) {
	repo := NewRoomRepository()
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, domain.NewRoom("alpha", 5, "", "user-a")))

	err := repo.AddMember(ctx, "alpha", "user-a")
	assert.ErrorIs(t, err, domain.ErrAlreadyJoined)
}

func TestRemoveMember(t *testing.T) {
	repo := NewRoomRepository()
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, domain.NewRoom("alpha", 5, "", "user-a")))
	require.NoError(t, repo.AddMember(ctx, "alpha", "user-b"))

	require.NoError(t, repo.RemoveMember(ctx, "alpha", "user-b"))
	assert.ErrorIs(t, repo.RemoveMember(ctx, "alpha", "user-b"), domain.ErrParticipantNotFound)
	assert.ErrorIs(t, repo.RemoveMember(ctx, "missing", "user-b"), domain.ErrRoomNotFound)
}

func TestSetAdminRequiresMembership(t *testing.T) {
	repo := NewRoomRepository()
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, domain.NewRoom("alpha", 5, "", "user-a")))
	require.NoError(t, repo.AddMember(ctx, "alpha", "user-b"))

	require.NoError(t, repo.SetAdmin(ctx, "alpha", "user-b"))
	room, err := repo.GetByID(ctx, "alpha")
	require.NoError(t, err)
	assert.Equal(t, domain.ParticipantID("user-b"), room.Admin)

	assert.ErrorIs(t, repo.SetAdmin(ctx, "alpha", "stranger"), domain.ErrParticipantNotFound)
}

func TestDeleteForgetsRoomSettings(t *testing.T) {
	repo := NewRoomRepository()
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, domain.NewRoom("beta", 2, "secret", "user-a")))
	require.NoError(t, repo.Delete(ctx, "beta"))

	// Recreation starts from scratch, with no memory of prior password or
	// capacity.
	fresh := domain.NewRoom("beta", 0, "", "user-b")
	require.NoError(t, repo.Create(ctx, fresh))

	got, err := repo.GetByID(ctx, "beta")
	require.NoError(t, err)
	assert.Equal(t, domain.DefaultRoomCapacity, got.Capacity)
	assert.Empty(t, got.Password)
	assert.Equal(t, domain.ParticipantID("user-b"), got.Admin)
}

func TestListActive(t *testing.T) {
	repo := NewRoomRepository()
	ctx := context.Background()

	rooms, err := repo.ListActive(ctx)
	require.NoError(t, err)
	assert.Empty(t, rooms)

	require.NoError(t, repo.Create(ctx, domain.NewRoom("alpha", 5, "", "user-a")))
	require.NoError(t, repo.Create(ctx, domain.NewRoom("beta", 5, "", "user-b")))

	rooms, err = repo.ListActive(ctx)
	require.NoError(t, err)
	assert.Len(t, rooms, 2)
}
