package profile

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/tsudoi-app/tsudoi/internal/model"
	"github.com/tsudoi-app/tsudoi/internal/store/memstore"
)

type fakeAvatars struct {
	uploaded map[string][]byte
	deleted  []string
	n        int
}

func (f *fakeAvatars) UploadAvatar(_ context.Context, userID string, data []byte) (string, error) {
	if f.uploaded == nil {
		f.uploaded = make(map[string][]byte)
	}
	f.uploaded[userID] = data
	f.n++
	return fmt.Sprintf("https://cdn.example.com/avatars/%s/%d.jpg", userID, f.n), nil
}

func (f *fakeAvatars) DeleteByURL(_ context.Context, avatarURL string) error {
	f.deleted = append(f.deleted, avatarURL)
	return nil
}

func newTestService() (*Service, *memstore.Profiles, *fakeAvatars) {
	profs := memstore.NewProfiles()
	avatars := &fakeAvatars{}
	return NewService(profs, avatars, zap.NewNop().Sugar()), profs, avatars
}

func TestGet_CreatesStubOnFirstAccess(t *testing.T) {
	ctx := context.Background()
	svc, profs, _ := newTestService()

	p, err := svc.Get(ctx, "u1", "alice")
	require.NoError(t, err)
	assert.Equal(t, "alice", p.Username)

	stored, err := profs.Get(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "alice", stored.Username)
}

func TestUpdate_KeepsAvatarWhenOmitted(t *testing.T) {
	ctx := context.Background()
	svc, profs, _ := newTestService()

	require.NoError(t, profs.Upsert(ctx, &model.Profile{
		ID: "u1", Username: "alice", AvatarURL: "https://cdn.example.com/a.jpg",
	}))

	require.NoError(t, svc.Update(ctx, &model.Profile{ID: "u1", Username: "alice", Prefecture: "Tokyo"}))

	p, err := profs.Get(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "Tokyo", p.Prefecture)
	assert.Equal(t, "https://cdn.example.com/a.jpg", p.AvatarURL)
}

func TestUpdate_RequiresUsername(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newTestService()

	err := svc.Update(ctx, &model.Profile{ID: "u1", Username: "   "})
	require.Error(t, err)
}

func TestSetAvatar_UploadsAndRecordsURL(t *testing.T) {
	ctx := context.Background()
	svc, profs, avatars := newTestService()

	require.NoError(t, profs.Upsert(ctx, &model.Profile{ID: "u1", Username: "alice"}))

	url, err := svc.SetAvatar(ctx, "u1", []byte{0xff, 0xd8})
	require.NoError(t, err)
	assert.Contains(t, url, "u1")
	assert.NotEmpty(t, avatars.uploaded["u1"])

	p, err := profs.Get(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, url, p.AvatarURL)
}

func TestSetAvatar_DeletesReplacedObject(t *testing.T) {
	ctx := context.Background()
	svc, profs, avatars := newTestService()

	require.NoError(t, profs.Upsert(ctx, &model.Profile{ID: "u1", Username: "alice"}))

	first, err := svc.SetAvatar(ctx, "u1", []byte{0xff, 0xd8})
	require.NoError(t, err)
	assert.Empty(t, avatars.deleted)

	second, err := svc.SetAvatar(ctx, "u1", []byte{0xff, 0xd9})
	require.NoError(t, err)
	assert.NotEqual(t, first, second)
	assert.Equal(t, []string{first}, avatars.deleted)

	p, err := profs.Get(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, second, p.AvatarURL)
}
