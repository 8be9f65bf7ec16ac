package index

import (
	"strings"
	"testing"
)

func TestContentHashBuildStamp(t *testing.T) {
	t.Cleanup(func() { SetBuildVersion("") })

	SetBuildVersion("")
	plain := ContentHash([]byte("# Ada"))
	if strings.HasPrefix(plain, "v=") || len(plain) != 64 {
		t.Fatalf("expected bare hex digest, got %q", plain)
	}
	if !hashMatchesBuildVersion(plain) {
		t.Fatalf("expected unstamped hash to match empty build")
	}

	SetBuildVersion(" 1.2.0 ")
	stamped := ContentHash([]byte("# Ada"))
	if stamped != "v=1.2.0;"+plain {
		t.Fatalf("unexpected stamped hash %q", stamped)
	}
	if !hashMatchesBuildVersion(stamped) {
		t.Fatalf("expected stamped hash to match its build")
	}
	if hashMatchesBuildVersion(plain) {
		t.Fatalf("expected unstamped hash to be stale for build 1.2.0")
	}
	if hashMatchesBuildVersion("v=1.1.0;" + plain) {
		t.Fatalf("expected older build to be stale")
	}
	if hashMatchesBuildVersion("v=1.2.0") {
		t.Fatalf("expected malformed stamp to be stale")
	}
}
