package database

import (
	"testing"

	"socialnet/internal/config"
	"socialnet/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
)

func TestDialector_SelectsDriver(t *testing.T) {
	t.Parallel()

	d, err := Dialector(&config.Config{DBDriver: "sqlite", DBPath: ":memory:"})
	require.NoError(t, err)
	assert.Equal(t, "sqlite", d.Name())

	d, err = Dialector(&config.Config{DBDriver: "postgres", DBHost: "localhost", DBPort: "5432"})
	require.NoError(t, err)
	assert.Equal(t, "postgres", d.Name())

	d, err = Dialector(&config.Config{DBDriver: "postgres", DBHost: "ignored", DatabaseURL: "postgres://u:p@db:5432/socialnet"})
	require.NoError(t, err)
	pg, ok := d.(*postgres.Dialector)
	require.True(t, ok)
	assert.Equal(t, "postgres://u:p@db:5432/socialnet", pg.DSN)

	_, err = Dialector(&config.Config{DBDriver: "mysql"})
	assert.Error(t, err)
}

func TestSqliteDSN(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "app.db?_busy_timeout=5000&_foreign_keys=on", sqliteDSN("app.db"))
	assert.Equal(t, "file::memory:?cache=shared&_busy_timeout=5000&_foreign_keys=on", sqliteDSN("file::memory:?cache=shared"))
}

func TestConnect_MigratesSchemaAndRoundTripsJSONColumns(t *testing.T) {
	db, err := Connect(&config.Config{DBDriver: "sqlite", DBPath: ":memory:"})
	require.NoError(t, err)

	for _, table := range []string{"users", "posts", "conversations"} {
		assert.True(t, db.Migrator().HasTable(table), "missing table %s", table)
	}

	user := models.User{
		ID:         "u_1",
		Username:   "alice",
		Email:      "a@x.com",
		Password:   "hash",
		Categories: models.NewStringSet("Tech", "Music"),
		Following:  models.NewStringSet("u_2"),
	}
	require.NoError(t, db.Create(&user).Error)

	var loaded models.User
	require.NoError(t, db.First(&loaded, "id = ?", "u_1").Error)
	assert.Equal(t, models.StringSet{"Tech", "Music"}, loaded.Categories)
	assert.Equal(t, models.StringSet{"u_2"}, loaded.Following)
	assert.Empty(t, loaded.Followers)

	post := models.Post{
		ID:       "p_1",
		AuthorID: "u_1",
		Text:     "hello",
		Comments: models.Comments{{ID: "c_1", AuthorID: "u_1", Text: "first", CreatedAt: 1}},
	}
	require.NoError(t, db.Create(&post).Error)

	var loadedPost models.Post
	require.NoError(t, db.First(&loadedPost, "id = ?", "p_1").Error)
	require.Len(t, loadedPost.Comments, 1)
	assert.Equal(t, "first", loadedPost.Comments[0].Text)
}

func TestPersistentModels_CoversDomainTables(t *testing.T) {
	t.Parallel()

	var haveUser, havePost, haveConv bool
	for _, m := range PersistentModels() {
		switch m.(type) {
		case *models.User:
			haveUser = true
		case *models.Post:
			havePost = true
		case *models.Conversation:
			haveConv = true
		}
	}
	assert.True(t, haveUser && havePost && haveConv)
}
