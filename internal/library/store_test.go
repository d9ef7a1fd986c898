// File: internal/library/store_test.go
package library_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/rtlsec/phishletgen-cli/api/schemas"
	"github.com/rtlsec/phishletgen-cli/internal/library"
)

type fakeRemote struct {
	mu          sync.Mutex
	list        schemas.SavedPhishletList
	deleteErr   error
	deleteCalls []string
	saveSeq     int
}

func (f *fakeRemote) ListPhishlets(ctx context.Context) (*schemas.SavedPhishletList, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := f.list
	return &out, nil
}

func (f *fakeRemote) SavePhishlet(ctx context.Context, create schemas.SavedPhishletCreate) (*schemas.SavedPhishlet, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.saveSeq++
	return &schemas.SavedPhishlet{
		ID:               create.Name + "-id",
		Name:             create.Name,
		TargetURL:        create.TargetURL,
		Tags:             create.Tags,
		YAMLContent:      create.YAMLContent,
		ValidationStatus: schemas.ValidationUnknown,
	}, nil
}

func (f *fakeRemote) GetPhishlet(ctx context.Context, id string) (*schemas.SavedPhishlet, error) {
	return nil, errors.New("not implemented")
}

func (f *fakeRemote) DeletePhishlet(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleteCalls = append(f.deleteCalls, id)
	return f.deleteErr
}

func seededStore(t *testing.T) (*library.Store, *fakeRemote) {
	t.Helper()
	remote := &fakeRemote{
		list: schemas.SavedPhishletList{
			Phishlets: []schemas.SavedPhishlet{
				{ID: "1", Name: "Example Mail", TargetURL: "https://mail.example.com", Tags: []string{"email", "o365"}},
				{ID: "2", Name: "corp-vpn", TargetURL: "https://vpn.corp.example.org", Tags: []string{"VPN"}},
				{ID: "3", Name: "webbank", TargetURL: "https://bank.example.net/login", Tags: nil},
			},
			Total: 3,
		},
	}
	store := library.New(remote, zap.NewNop())
	require.NoError(t, store.Refresh(context.Background()))
	return store, remote
}

func TestFilterProperties(t *testing.T) {
	store, _ := seededStore(t)

	t.Run("empty query matches everything", func(t *testing.T) {
		assert.Len(t, store.Filter(""), 3)
		assert.Len(t, store.Filter("   "), 3)
	})

	t.Run("case-insensitive name match", func(t *testing.T) {
		got := store.Filter("EXAMPLE MAIL")
		require.Len(t, got, 1)
		assert.Equal(t, "1", got[0].ID)
	})

	t.Run("url match", func(t *testing.T) {
		got := store.Filter("bank.example")
		require.Len(t, got, 1)
		assert.Equal(t, "3", got[0].ID)
	})

	t.Run("tag match is case-insensitive", func(t *testing.T) {
		got := store.Filter("vpn")
		// Matches both the "VPN" tag on 2 and its URL.
		require.Len(t, got, 1)
		assert.Equal(t, "2", got[0].ID)
	})

	t.Run("no match", func(t *testing.T) {
		assert.Empty(t, store.Filter("nonexistent"))
	})

	t.Run("filtering never mutates the collection", func(t *testing.T) {
		before := store.All()
		_ = store.Filter("example")
		_ = store.Filter("")
		assert.Equal(t, before, store.All())
	})
}

func TestRefreshReplacesCollectionWholesale(t *testing.T) {
	store, remote := seededStore(t)
	require.Equal(t, 3, store.Len())

	remote.mu.Lock()
	remote.list = schemas.SavedPhishletList{
		Phishlets: []schemas.SavedPhishlet{{ID: "9", Name: "fresh"}},
		Total:     1,
	}
	remote.mu.Unlock()

	require.NoError(t, store.Refresh(context.Background()))
	all := store.All()
	require.Len(t, all, 1)
	assert.Equal(t, "9", all[0].ID, "the server list is authoritative")
}

func TestSavePrependsNewestFirst(t *testing.T) {
	store, _ := seededStore(t)

	saved, err := store.Save(context.Background(), schemas.SavedPhishletCreate{
		Name:        "newest",
		YAMLContent: "name: newest\n",
	})
	require.NoError(t, err)
	assert.Equal(t, "newest-id", saved.ID)

	all := store.All()
	require.Len(t, all, 4)
	assert.Equal(t, "newest-id", all[0].ID, "new entries display first")
}

func TestDeleteRequiresConfirmationStep(t *testing.T) {
	store, remote := seededStore(t)

	err := store.ConfirmDelete(context.Background(), "1")
	assert.ErrorIs(t, err, library.ErrDeleteNotRequested)
	assert.Empty(t, remote.deleteCalls, "no remote call without the explicit request step")
	assert.Equal(t, 3, store.Len())
}

func TestConfirmedDeleteRemovesLocally(t *testing.T) {
	store, remote := seededStore(t)

	store.RequestDelete("2")
	require.NoError(t, store.ConfirmDelete(context.Background(), "2"))

	assert.Equal(t, []string{"2"}, remote.deleteCalls)
	assert.Equal(t, 2, store.Len())
	_, ok := store.Get("2")
	assert.False(t, ok)
}

func TestCancelledDeleteIssuesNoCall(t *testing.T) {
	store, remote := seededStore(t)

	store.RequestDelete("1")
	store.CancelDelete("1")

	err := store.ConfirmDelete(context.Background(), "1")
	assert.ErrorIs(t, err, library.ErrDeleteNotRequested)
	assert.Empty(t, remote.deleteCalls)
	assert.Equal(t, 3, store.Len())
}

func TestFailedRemoteDeleteLeavesCollectionUntouched(t *testing.T) {
	store, remote := seededStore(t)
	before := store.All()

	remote.mu.Lock()
	remote.deleteErr = errors.New("503 service unavailable")
	remote.mu.Unlock()

	store.RequestDelete("1")
	err := store.ConfirmDelete(context.Background(), "1")
	require.Error(t, err)

	assert.Equal(t, before, store.All(), "local collection must be identical after a failed delete")
}

func TestGet(t *testing.T) {
	store, _ := seededStore(t)

	got, ok := store.Get("3")
	require.True(t, ok)
	assert.Equal(t, "webbank", got.Name)

	_, ok = store.Get("missing")
	assert.False(t, ok)
}
