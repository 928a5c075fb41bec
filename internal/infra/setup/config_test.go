package setup

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildDSN(t *testing.T) {
	dsn, err := buildDSN("app", "secret", "", "", "")
	require.NoError(t, err)
	assert.Equal(t, "app:secret@tcp(127.0.0.1:3306)/whistle?charset=utf8mb4&parseTime=True&loc=UTC", dsn)

	dsn, err = buildDSN("app", "secret", "db", "3307", "chat")
	require.NoError(t, err)
	assert.Equal(t, "app:secret@tcp(db:3307)/chat?charset=utf8mb4&parseTime=True&loc=UTC", dsn)

	_, err = buildDSN("", "secret", "", "", "")
	assert.Error(t, err)
	_, err = buildDSN("app", "", "", "", "")
	assert.Error(t, err)
}

func TestMigrateDB_NilConnection(t *testing.T) {
	assert.Error(t, MigrateDB(nil))
}
