package migrations

import (
	"io/fs"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmbeddedMigrationsArePaired(t *testing.T) {
	entries, err := fs.ReadDir(schemaFS, "sql")
	require.NoError(t, err)

	ups, downs := map[string]bool{}, map[string]bool{}
	for _, e := range entries {
		name := e.Name()
		switch {
		case strings.HasSuffix(name, ".up.sql"):
			ups[strings.TrimSuffix(name, ".up.sql")] = true
		case strings.HasSuffix(name, ".down.sql"):
			downs[strings.TrimSuffix(name, ".down.sql")] = true
		}
	}

	require.NotEmpty(t, ups)
	assert.Equal(t, ups, downs)
}

func TestSchemaDeclaresUniquenessGuarantees(t *testing.T) {
	raw, err := fs.ReadFile(schemaFS, "sql/000001_init_schema.up.sql")
	require.NoError(t, err)
	schema := string(raw)

	assert.Contains(t, schema, "qr_token       VARCHAR(128) NOT NULL UNIQUE")
	assert.Contains(t, schema, "payment_ref    VARCHAR(255) UNIQUE")
	assert.Contains(t, schema, "UNIQUE (profile_id, event_id, update_key)")
	assert.Contains(t, schema, "endpoint       TEXT NOT NULL UNIQUE")
}
