package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestGame_PrimaryPlatform(t *testing.T) {
	assert.Equal(t, "Flash", (&Game{Platforms: []string{"Flash", "HTML5"}}).PrimaryPlatform())
	assert.Equal(t, "Shockwave", (&Game{PlatformsStr: "Shockwave; Flash"}).PrimaryPlatform())
	assert.Empty(t, (&Game{}).PrimaryPlatform())
}

func TestSplitCache(t *testing.T) {
	assert.Equal(t, []string{"Action", "Puzzle"}, SplitCache("Action; Puzzle"))
	assert.Equal(t, []string{"Action", "Puzzle"}, SplitCache(" Action ;; Puzzle; "))
	assert.Nil(t, SplitCache("  "))
}

func TestTimestamps(t *testing.T) {
	added := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	now := added.Add(time.Hour)

	var fresh Timestamps
	fresh.InitTimestamps(now)
	assert.Equal(t, now, fresh.DateAdded)
	assert.Equal(t, now, fresh.DateModified)

	kept := Timestamps{DateAdded: added}
	kept.InitTimestamps(now)
	assert.Equal(t, added, kept.DateAdded)

	kept.Touch(now.Add(time.Minute))
	assert.Equal(t, added, kept.DateAdded)
	assert.Equal(t, now.Add(time.Minute), kept.DateModified)
}

func TestGameData_InstallState(t *testing.T) {
	d := &GameData{}
	assert.True(t, d.Valid())

	d.PresentOnDisk = true
	assert.False(t, d.Valid(), "present without a path")

	d.MarkInstalled("/games/alien.zip")
	assert.True(t, d.Valid())
	assert.Equal(t, "/games/alien.zip", *d.Path)

	d.MarkUninstalled()
	assert.Nil(t, d.Path)
	assert.False(t, d.PresentOnDisk)
	assert.True(t, d.Valid())
}

func TestRemoteChanges_LatestModification(t *testing.T) {
	t1 := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	t2 := t1.Add(48 * time.Hour)

	ic := &IdentityChanges{Records: []RemoteIdentity{{DateModified: t2}, {DateModified: t1}}}
	assert.Equal(t, t2, ic.LatestModification())
	assert.True(t, (&IdentityChanges{}).LatestModification().IsZero())

	b := &GameBatch{Games: []*Game{
		{Timestamps: Timestamps{DateModified: t1}},
		{Timestamps: Timestamps{DateModified: t2}},
	}}
	assert.Equal(t, t2, b.LatestModification())

	r := RemoteIdentity{Name: "Flash", Aliases: []string{"Adobe Flash"}}
	assert.Equal(t, []string{"Flash", "Adobe Flash"}, r.AllNames())
}
