// pkg/privilege/privilege_test.go
package privilege

import (
	"context"
	"os"
	"testing"

	"github.com/i474232898/weatherctl/pkg/wxerr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheckPrivileges(t *testing.T) {
	t.Parallel()

	check, err := CheckPrivileges(context.Background())
	require.NoError(t, err)

	assert.Equal(t, os.Geteuid(), check.UserID)
	assert.Equal(t, os.Getegid(), check.GroupID)
	assert.Equal(t, os.Geteuid() == 0, check.IsRoot)
	assert.NotEmpty(t, check.Username)
	assert.False(t, check.Timestamp.IsZero())
}

func TestRequireRoot(t *testing.T) {
	t.Parallel()

	err := RequireRoot(context.Background())
	if os.Geteuid() == 0 {
		assert.NoError(t, err)
		return
	}

	require.Error(t, err)
	assert.True(t, wxerr.IsExpectedUserError(err))
	assert.Contains(t, err.Error(), "Run this command as root or with sudo")
	assert.Equal(t, 1, wxerr.GetExitCode(err))
}
