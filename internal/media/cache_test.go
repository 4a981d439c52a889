package media

import "testing"

func TestSplitLocator(t *testing.T) {
	bucket, object, err := splitLocator("gs://footage/tenant-a/clip_001.mp4")
	if err != nil {
		t.Fatalf("splitLocator: %v", err)
	}
	if bucket != "footage" || object != "tenant-a/clip_001.mp4" {
		t.Fatalf("unexpected split: %q %q", bucket, object)
	}

	for _, bad := range []string{"", "footage/clip.mp4", "gs://", "gs://footage", "gs://footage/"} {
		if _, _, err := splitLocator(bad); err == nil {
			t.Fatalf("expected error for %q", bad)
		}
	}
}
