package enrich

import (
	"context"
	"errors"
	"testing"
	"time"

	"waypoint-sync/core/fetch"
	"waypoint-sync/feature/ugc/models"
	"waypoint-sync/feature/ugc/skiplist"
	"waypoint-sync/feature/ugc/store/storetest"
	"waypoint-sync/feature/waypoint"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockAPI struct {
	mock.Mock
}

func (m *mockAPI) GetAsset(ctx context.Context, kind waypoint.AssetKind, assetID string) (*waypoint.AssetDetail, error) {
	args := m.Called(ctx, kind, assetID)
	if d, ok := args.Get(0).(*waypoint.AssetDetail); ok {
		return d, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockAPI) GetUsers(ctx context.Context, xuids []string) ([]waypoint.User, error) {
	args := m.Called(ctx, xuids)
	if u, ok := args.Get(0).([]waypoint.User); ok {
		return u, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockAPI) GetAppearance(ctx context.Context, xuid string) (*waypoint.Appearance, error) {
	args := m.Called(ctx, xuid)
	if a, ok := args.Get(0).(*waypoint.Appearance); ok {
		return a, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockAPI) GetEmblem(ctx context.Context, emblemPath string) (*waypoint.Emblem, error) {
	args := m.Called(ctx, emblemPath)
	if e, ok := args.Get(0).(*waypoint.Emblem); ok {
		return e, args.Error(1)
	}
	return nil, args.Error(1)
}

var published = time.Date(2025, 3, 1, 8, 0, 0, 0, time.UTC)

func summary(id string) waypoint.AssetSummary {
	s := waypoint.AssetSummary{AssetID: id, AssetKind: waypoint.KindMap, ThumbnailURL: "https://thumb/" + id}
	s.DatePublishedUtc.ISO8601Date = published
	s.DateCreatedUtc.ISO8601Date = published.Add(-time.Hour)
	s.DateModifiedUtc.ISO8601Date = published
	return s
}

func appearance(tag, emblemPath string) *waypoint.Appearance {
	a := &waypoint.Appearance{ServiceTag: tag}
	a.Emblem.EmblemPath = emblemPath
	return a
}

func emblem(path string) *waypoint.Emblem {
	e := &waypoint.Emblem{}
	e.CommonData.DisplayPath.Media.MediaURL.Path = path
	return e
}

func detail(id string, contributors []string, admin string, tags ...string) *waypoint.AssetDetail {
	d := &waypoint.AssetDetail{
		AssetID:       id,
		VersionID:     "ver-1",
		VersionNumber: 2,
		PublicName:    "Asset " + id,
		Contributors:  contributors,
		Admin:         admin,
		Tags:          tags,
	}
	d.Files.Prefix = "https://blob/" + id + "/"
	d.Files.FileRelativePaths = []string{"map.mvar"}
	d.AssetStats.Likes = 5
	return d
}

func expectUser(api *mockAPI, xuid, gamertag, tag string) {
	api.On("GetAppearance", mock.Anything, xuid).Return(appearance(tag, "/Inventory/Emblems/"+xuid+".json"), nil).Maybe()
	api.On("GetEmblem", mock.Anything, "/Inventory/Emblems/"+xuid+".json").
		Return(emblem("/progression/Inventory/Emblems/"+gamertag+".png"), nil).Maybe()
}

func TestProcessFullyAttributedAsset(t *testing.T) {
	s := storetest.New(t)
	api := new(mockAPI)
	ctx := context.Background()

	api.On("GetAsset", mock.Anything, waypoint.KindMap, "a1").
		Return(detail("a1", []string{"xuid(100)", "xuid(200)"}, "xuid(100)", " Forge", "forge", "SLAYER "), nil)
	api.On("GetUsers", mock.Anything, []string{"100", "200"}).
		Return([]waypoint.User{{Xuid: "100", Gamertag: "Alpha"}, {Xuid: "200", Gamertag: "Bravo"}}, nil)
	expectUser(api, "100", "Alpha", "ALP")
	expectUser(api, "200", "Bravo", "BRV")

	e := New(api, s, nil, nil)
	require.NoError(t, e.Process(ctx, waypoint.KindMap, summary("a1")))

	asset, err := s.FindAsset(ctx, "a1")
	require.NoError(t, err)
	assert.Equal(t, "100", asset.AuthorID)
	assert.Equal(t, "Asset a1", asset.Name)
	assert.Equal(t, 5, asset.Likes)
	assert.True(t, asset.DatePublishedUtc.Equal(published))
	require.Len(t, asset.Contributors, 2)
	assert.Equal(t, "Alpha", asset.Contributors[0].Gamertag)
	assert.Equal(t, "ALP", asset.Contributors[0].ServiceTag)
	assert.Equal(t, "emblems/alpha.png", asset.Contributors[0].EmblemPath)
	require.Len(t, asset.Tags, 2)
	assert.Equal(t, "forge", asset.Tags[0].Name)
	assert.Equal(t, "slayer", asset.Tags[1].Name)
	api.AssertExpectations(t)
}

func TestProcessIsIdempotent(t *testing.T) {
	s := storetest.New(t)
	api := new(mockAPI)
	ctx := context.Background()

	api.On("GetAsset", mock.Anything, waypoint.KindMap, "a1").
		Return(detail("a1", []string{"xuid(100)"}, "xuid(100)", "forge"), nil)
	api.On("GetUsers", mock.Anything, []string{"100"}).
		Return([]waypoint.User{{Xuid: "100", Gamertag: "Alpha"}}, nil)
	expectUser(api, "100", "Alpha", "ALP")

	e := New(api, s, nil, nil)
	require.NoError(t, e.Process(ctx, waypoint.KindMap, summary("a1")))
	first, err := s.FindAsset(ctx, "a1")
	require.NoError(t, err)

	require.NoError(t, e.Process(ctx, waypoint.KindMap, summary("a1")))
	second, err := s.FindAsset(ctx, "a1")
	require.NoError(t, err)

	assert.Equal(t, first, second)
	var assets, contributors, tags int64
	s.DB().Model(&models.UgcAsset{}).Count(&assets)
	s.DB().Model(&models.Contributor{}).Count(&contributors)
	s.DB().Model(&models.Tag{}).Count(&tags)
	assert.Equal(t, int64(1), assets)
	assert.Equal(t, int64(1), contributors)
	assert.Equal(t, int64(1), tags)
}

func TestSystemContributorFallback(t *testing.T) {
	tests := []struct {
		name         string
		contributors []string
		admin        string
		users        []waypoint.User
		wantAuthor   string
	}{
		{
			name:         "unresolved contributor",
			contributors: []string{"xuid(100)", "xuid(200)"},
			admin:        "xuid(100)",
			users:        []waypoint.User{{Xuid: "100", Gamertag: "Alpha"}},
			wantAuthor:   "100",
		},
		{
			name:         "anonymous admin",
			contributors: []string{"xuid(100)"},
			admin:        "aaid(abc)",
			users:        []waypoint.User{{Xuid: "100", Gamertag: "Alpha"}},
			wantAuthor:   "343",
		},
		{
			name:         "anonymous contributors only",
			contributors: []string{"aaid(abc)"},
			admin:        "aaid(abc)",
			wantAuthor:   "343",
		},
		{
			name:         "numeric gamertag collides with admin",
			contributors: []string{"xuid(100)"},
			admin:        "xuid(100)",
			users:        []waypoint.User{{Xuid: "100", Gamertag: "100"}},
			wantAuthor:   "100",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := storetest.New(t)
			api := new(mockAPI)
			ctx := context.Background()

			api.On("GetAsset", mock.Anything, waypoint.KindMap, "a1").Return(detail("a1", tt.contributors, tt.admin), nil)
			if tt.users != nil {
				api.On("GetUsers", mock.Anything, mock.Anything).Return(tt.users, nil)
			}
			expectUser(api, "100", "Alpha", "ALP")

			require.NoError(t, New(api, s, nil, nil).Process(ctx, waypoint.KindMap, summary("a1")))

			asset, err := s.FindAsset(ctx, "a1")
			require.NoError(t, err)
			assert.Equal(t, tt.wantAuthor, asset.AuthorID)

			var system int
			for _, c := range asset.Contributors {
				if c.Xuid == SystemXuid {
					system++
					assert.Equal(t, SystemGamertag, c.Gamertag)
					assert.Equal(t, SystemServiceTag, c.ServiceTag)
				}
			}
			assert.Equal(t, 1, system)
			if tt.users == nil {
				api.AssertNotCalled(t, "GetUsers", mock.Anything, mock.Anything)
			}
		})
	}
}

func TestAdminAddedToLookup(t *testing.T) {
	s := storetest.New(t)
	api := new(mockAPI)
	ctx := context.Background()

	api.On("GetAsset", mock.Anything, waypoint.KindMap, "a1").
		Return(detail("a1", []string{"xuid(200)", "aaid(x)"}, "xuid(100)"), nil)
	api.On("GetUsers", mock.Anything, []string{"200", "100"}).
		Return([]waypoint.User{{Xuid: "200", Gamertag: "Bravo"}, {Xuid: "100", Gamertag: "Alpha"}}, nil)
	expectUser(api, "100", "Alpha", "ALP")
	expectUser(api, "200", "Bravo", "BRV")

	require.NoError(t, New(api, s, nil, nil).Process(ctx, waypoint.KindMap, summary("a1")))
	api.AssertExpectations(t)
}

func TestMissingEmblemFallsBack(t *testing.T) {
	s := storetest.New(t)
	api := new(mockAPI)
	ctx := context.Background()

	api.On("GetAsset", mock.Anything, waypoint.KindMap, "a1").Return(detail("a1", []string{"xuid(100)"}, "xuid(100)"), nil)
	api.On("GetUsers", mock.Anything, []string{"100"}).Return([]waypoint.User{{Xuid: "100", Gamertag: "Alpha"}}, nil)
	api.On("GetAppearance", mock.Anything, "100").Return(appearance("ALP", ""), nil)

	require.NoError(t, New(api, s, nil, nil).Process(ctx, waypoint.KindMap, summary("a1")))

	asset, err := s.FindAsset(ctx, "a1")
	require.NoError(t, err)
	require.Len(t, asset.Contributors, 1)
	assert.Equal(t, waypoint.FallbackEmblem, asset.Contributors[0].EmblemPath)
	api.AssertNotCalled(t, "GetEmblem", mock.Anything, mock.Anything)
}

func TestSkipListedAssetNeverFetched(t *testing.T) {
	s := storetest.New(t)
	api := new(mockAPI)

	e := New(api, s, skiplist.New("bad"), nil)
	err := e.Process(context.Background(), waypoint.KindMap, summary("bad"))
	assert.ErrorIs(t, err, ErrSkipped)
	api.AssertNotCalled(t, "GetAsset", mock.Anything, mock.Anything, mock.Anything)
}

func TestDetailFailurePropagates(t *testing.T) {
	s := storetest.New(t)
	api := new(mockAPI)
	upstream := &fetch.Error{Method: "GET", URL: "https://x/hi/maps/a1", Attempts: 3, StatusCode: 500}
	api.On("GetAsset", mock.Anything, waypoint.KindMap, "a1").Return(nil, upstream)

	err := New(api, s, nil, nil).Process(context.Background(), waypoint.KindMap, summary("a1"))
	require.Error(t, err)

	var enrichErr *Error
	require.True(t, errors.As(err, &enrichErr))
	assert.Equal(t, "a1", enrichErr.AssetID)
	assert.Equal(t, "detail", enrichErr.Step)
	assert.Equal(t, 500, fetch.StatusCode(err))

	_, err = s.FindAsset(context.Background(), "a1")
	assert.Error(t, err)
}

func TestAppearanceFailurePropagates(t *testing.T) {
	s := storetest.New(t)
	api := new(mockAPI)
	api.On("GetAsset", mock.Anything, waypoint.KindMap, "a1").Return(detail("a1", []string{"xuid(100)"}, "xuid(100)"), nil)
	api.On("GetUsers", mock.Anything, []string{"100"}).Return([]waypoint.User{{Xuid: "100", Gamertag: "Alpha"}}, nil)
	api.On("GetAppearance", mock.Anything, "100").Return(nil, errors.New("timeout"))

	err := New(api, s, nil, nil).Process(context.Background(), waypoint.KindMap, summary("a1"))
	var enrichErr *Error
	require.True(t, errors.As(err, &enrichErr))
	assert.Equal(t, "appearance", enrichErr.Step)
}

func TestNormalizeTags(t *testing.T) {
	assert.Equal(t, []string{"forge", "slayer"}, NormalizeTags([]string{" Forge", "forge ", "", "SLAYER", "  "}))
	assert.Empty(t, NormalizeTags(nil))
}

func TestAuthorID(t *testing.T) {
	assert.Equal(t, "100", AuthorID("xuid(100)"))
	assert.Equal(t, "343", AuthorID("aaid(1)"))
	assert.Equal(t, "343", AuthorID(""))
}
