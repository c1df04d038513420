package main

import (
	"flag"
	"path/filepath"
	"testing"

	"github.com/pressly/goose/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v2"

	"libraryapi/db"
)

func TestCollectMigrations_ParsesEmbeddedSet(t *testing.T) {
	fsys, dir := source("")
	goose.SetBaseFS(fsys)
	t.Cleanup(func() { goose.SetBaseFS(nil) })

	migrations, err := goose.CollectMigrations(dir, 0, goose.MaxVersion)
	require.NoError(t, err)
	require.Len(t, migrations, 5)
	for i, m := range migrations {
		assert.EqualValues(t, i+1, m.Version)
	}
}

func TestSource(t *testing.T) {
	fsys, dir := source("")
	assert.Equal(t, db.Migrations, fsys)
	assert.Equal(t, db.MigrationsDir, dir)

	fsys, dir = source("/custom/migrations")
	assert.Nil(t, fsys)
	assert.Equal(t, "/custom/migrations", dir)
}

func TestNewApp_Commands(t *testing.T) {
	app := newApp()

	var names []string
	for _, c := range app.Commands {
		names = append(names, c.Name)
	}
	assert.ElementsMatch(t, []string{"up", "down", "status", "version", "create"}, names)
}

func TestCreate_RequiresName(t *testing.T) {
	set := flag.NewFlagSet("create", flag.ContinueOnError)
	set.String("dir", t.TempDir(), "")
	c := cli.NewContext(newApp(), set, nil)

	err := create(c)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "name is required")
}

func TestCreate_WritesSQLFile(t *testing.T) {
	dir := t.TempDir()
	set := flag.NewFlagSet("create", flag.ContinueOnError)
	set.String("dir", dir, "")
	require.NoError(t, set.Parse([]string{"add_book_language"}))
	c := cli.NewContext(newApp(), set, nil)

	require.NoError(t, create(c))

	files, err := filepath.Glob(filepath.Join(dir, "*_add_book_language.sql"))
	require.NoError(t, err)
	assert.Len(t, files, 1)
}
