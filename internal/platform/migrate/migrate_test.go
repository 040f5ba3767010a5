package migrate

import (
	"bytes"
	"io/fs"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"setlist/migrations"
)

func TestSplitTableName(t *testing.T) {
	schema, table := splitTableName("auth.users")
	assert.Equal(t, "auth", schema)
	assert.Equal(t, "users", table)

	schema, table = splitTableName("rate_limits")
	assert.Empty(t, schema)
	assert.Equal(t, "rate_limits", table)
}

func TestEmbeddedMigrationsAreOrdered(t *testing.T) {
	names, err := fs.Glob(migrations.Files, "*.sql")
	require.NoError(t, err)
	assert.Equal(t, []string{"00001_users.sql", "00002_rate_limits.sql", "00003_users_email_ci.sql"}, names)
}

func TestGooseLoggerPrintf(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	gooseSlogLogger{logger: logger}.Printf("OK   %s\n", "00001_users.sql")

	assert.Contains(t, buf.String(), "OK   00001_users.sql")
	assert.Contains(t, buf.String(), "component=migrate")

	// A nil logger is a no-op.
	gooseSlogLogger{}.Printf("ignored")
}
