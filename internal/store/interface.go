// Package store defines the persistence interface for the Playlore catalog.
package store

import (
	"context"
	"time"

	"github.com/playlore/playlore-server/internal/domain"
	"github.com/playlore/playlore-server/internal/filter"
)

// Store defines the interface for all persistence operations.
type Store interface {
	// Lifecycle
	Close() error
	SetSearchIndexer(indexer SearchIndexer)
	Cache() *QueryCache
	Now() time.Time

	GameStore
	QueryStore
	TagStore
	PlatformStore
	CategoryStore
	GameDataStore
	PlaylistStore
	SyncStore
}

// GameStore persists games and their additional apps.
type GameStore interface {
	SaveGame(ctx context.Context, g *domain.Game) error
	UpdateGames(ctx context.Context, games []*domain.Game) error
	FindGame(ctx context.Context, gameID string) (*domain.Game, error)
	FindGames(ctx context.Context, ids []string) ([]*domain.Game, error)
	RemoveGame(ctx context.Context, gameID string) error
	CountGames(ctx context.Context) (int, error)
	DistinctValues(ctx context.Context, field string, excludeEmpty bool) ([]string, error)
	FindAllGamesPaged(ctx context.Context, params PaginationParams) (*PaginatedResult[*domain.Game], error)
	DuplicateGame(ctx context.Context, gameID string, deep bool) (*domain.Game, error)
	NukeTags(ctx context.Context, tagNames []string) (int, error)
	RebuildTaggedFields(ctx context.Context) (int, error)
}

// QueryStore answers browse queries over compiled filters.
type QueryStore interface {
	QueryKeyset(ctx context.Context, c *filter.Compiled, pageSize int) (*Keyset, error)
	CountFiltered(ctx context.Context, c *filter.Compiled) (int, error)
	QueryPage(ctx context.Context, c *filter.Compiled, boundary *Boundary, pageSize int, shallow bool) ([]*domain.Game, error)
	QueryRange(ctx context.Context, c *filter.Compiled, ranges []Range, shallow bool) ([][]*domain.Game, error)
	QueryRowIndex(ctx context.Context, c *filter.Compiled, gameID string) (int, error)
	RandomSample(ctx context.Context, c *filter.Compiled, count int) ([]*domain.Game, error)
}

// TagStore persists tags and their aliases.
type TagStore interface {
	GetTag(ctx context.Context, id int64) (*domain.Tag, error)
	ResolveTag(ctx context.Context, name string) (*domain.Tag, error)
	ListTags(ctx context.Context) ([]*domain.Tag, error)
	CreateTag(ctx context.Context, name, categoryName string) (*domain.Tag, error)
	GetOrCreateTag(ctx context.Context, name, categoryName string) (*domain.Tag, bool, error)
	UpdateTag(ctx context.Context, id int64, description, categoryName string) (*domain.Tag, error)
	MergeTags(ctx context.Context, sourceID, targetID int64) (*domain.Tag, error)
	DeleteTag(ctx context.Context, id int64, detach bool) error
	AddTagAlias(ctx context.Context, tagID int64, name string) (domain.Alias, error)
	RemoveTagAlias(ctx context.Context, tagID, aliasID int64) error
	SetTagPrimaryAlias(ctx context.Context, tagID, aliasID int64) error
	ElectTagPrimaryAlias(ctx context.Context, tagID int64) (int64, error)
	FixTagPrimaryAliases(ctx context.Context) (int, error)
	CleanupTagAliases(ctx context.Context) (AliasCleanupResult, error)
	TagSuggestions(ctx context.Context, prefix string, limit int) ([]string, error)
	CleanupCommaTags(ctx context.Context) (int, error)
}

// PlatformStore persists platforms and their aliases.
type PlatformStore interface {
	GetPlatform(ctx context.Context, id int64) (*domain.Platform, error)
	ResolvePlatform(ctx context.Context, name string) (*domain.Platform, error)
	ListPlatforms(ctx context.Context) ([]*domain.Platform, error)
	CreatePlatform(ctx context.Context, name string) (*domain.Platform, error)
	GetOrCreatePlatform(ctx context.Context, name string) (*domain.Platform, bool, error)
	UpdatePlatform(ctx context.Context, id int64, description string) (*domain.Platform, error)
	MergePlatforms(ctx context.Context, sourceID, targetID int64) (*domain.Platform, error)
	DeletePlatform(ctx context.Context, id int64, detach bool) error
	AddPlatformAlias(ctx context.Context, platformID int64, name string) (domain.Alias, error)
	RemovePlatformAlias(ctx context.Context, platformID, aliasID int64) error
	SetPlatformPrimaryAlias(ctx context.Context, platformID, aliasID int64) error
	FixPlatformPrimaryAliases(ctx context.Context) (int, error)
	CleanupPlatformAliases(ctx context.Context) (AliasCleanupResult, error)
	PlatformSuggestions(ctx context.Context, prefix string, limit int) ([]string, error)
}

// CategoryStore persists tag categories.
type CategoryStore interface {
	CreateCategory(ctx context.Context, c *domain.TagCategory) error
	GetCategory(ctx context.Context, id int64) (*domain.TagCategory, error)
	GetCategoryByName(ctx context.Context, name string) (*domain.TagCategory, error)
	ListCategories(ctx context.Context) ([]*domain.TagCategory, error)
	UpdateCategory(ctx context.Context, c *domain.TagCategory) error
	DeleteCategory(ctx context.Context, id int64) error
}

// GameDataStore persists content packages.
type GameDataStore interface {
	SaveGameData(ctx context.Context, d *domain.GameData) error
	GetGameData(ctx context.Context, dataID string) (*domain.GameData, error)
	ListGameData(ctx context.Context, gameID string) ([]domain.GameData, error)
	SetActiveGameData(ctx context.Context, gameID string, dataID *string) error
	InstallGameData(ctx context.Context, dataID, path string) (*domain.GameData, error)
	UninstallGameData(ctx context.Context, dataID string) (*domain.GameData, error)
	DeleteGameData(ctx context.Context, dataID string) error
}

// PlaylistStore persists playlists.
type PlaylistStore interface {
	CreatePlaylist(ctx context.Context, p *domain.Playlist) error
	UpdatePlaylist(ctx context.Context, p *domain.Playlist) error
	GetPlaylist(ctx context.Context, playlistID string) (*domain.Playlist, error)
	ListPlaylists(ctx context.Context) ([]*domain.Playlist, error)
	DeletePlaylist(ctx context.Context, playlistID string) error
	AddPlaylistGame(ctx context.Context, playlistID, gameID, notes string) (*domain.PlaylistGame, error)
	RemovePlaylistGame(ctx context.Context, playlistID, gameID string) error
	UpdatePlaylistGameNotes(ctx context.Context, playlistID, gameID, notes string) error
}

// SyncStore applies remote changes and tracks watermarks.
type SyncStore interface {
	GetCatalogCheckpoint(ctx context.Context) (CatalogCheckpoint, error)
	GetWatermarks(ctx context.Context, source string) (map[domain.SyncKind]domain.Watermark, error)
	SaveWatermark(ctx context.Context, source string, kind domain.SyncKind, w domain.Watermark) error
	LoadSource(ctx context.Context, src *domain.MetadataSource) error
	ApplyPlatformChanges(ctx context.Context, ch *domain.IdentityChanges) (domain.ApplyStats, error)
	ApplyTagChanges(ctx context.Context, ch *domain.IdentityChanges) (domain.ApplyStats, error)
	ApplyGameBatch(ctx context.Context, b *domain.GameBatch) (domain.ApplyStats, error)
}

// AliasCleanupResult reports what an alias cleanup changed.
type AliasCleanupResult struct {
	Renamed int `json:"renamed"`
	Deleted int `json:"deleted"`
	Skipped int `json:"skipped"`
}
