package index

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// Stored note hashes are stamped with the notelink build that indexed them,
// so an upgraded binary re-reads every note instead of trusting rows its
// predecessor wrote.
const buildStamp = "v="

var buildVersion string

func SetBuildVersion(version string) {
	buildVersion = strings.TrimSpace(version)
}

// ContentHash is the hex sha256 of content, stamped with the build version
// when one is set.
func ContentHash(content []byte) string {
	digest := sha256.Sum256(content)
	if buildVersion == "" {
		return hex.EncodeToString(digest[:])
	}
	return buildStamp + buildVersion + ";" + hex.EncodeToString(digest[:])
}

// stampedBuild returns the build a stored hash carries; an unstamped hash
// belongs to the empty build.
func stampedBuild(stored string) (string, bool) {
	rest, stamped := strings.CutPrefix(stored, buildStamp)
	if !stamped {
		return "", true
	}
	build, _, ok := strings.Cut(rest, ";")
	return build, ok
}

func hashMatchesBuildVersion(stored string) bool {
	build, ok := stampedBuild(stored)
	return ok && build == buildVersion
}
