package version

import (
	"encoding/json"
	"regexp"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVersion_FollowsSemverOrDev(t *testing.T) {
	// Given: a build with or without ldflags
	if Version == "dev" {
		return
	}

	// Then: an injected version is semver
	semver := regexp.MustCompile(`^v?\d+\.\d+\.\d+(-[a-zA-Z0-9.]+)?$`)
	require.True(t, semver.MatchString(Version), "got: %s", Version)
}

func TestString_ContainsBuildInfo(t *testing.T) {
	str := String()

	assert.Contains(t, str, "nearmatch "+Version)
	assert.Contains(t, str, "commit: "+Commit)
	assert.Contains(t, str, GoVersion)
	assert.Equal(t, Version, Short())
}

func TestGetInfo_JSON(t *testing.T) {
	// Given: the current build info
	info := GetInfo()

	// When: serialized for `nearmatch version --json`
	data, err := json.Marshal(info)
	require.NoError(t, err)

	// Then: platform fields are present and keys are snake_case
	var decoded map[string]string
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, runtime.GOOS, decoded["os"])
	assert.Equal(t, runtime.GOARCH, decoded["arch"])
	assert.Equal(t, Version, decoded["version"])
	assert.Contains(t, decoded, "go_version")
}
