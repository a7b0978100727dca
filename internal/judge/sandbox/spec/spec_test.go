package spec

import "testing"

func TestMergeKeepsBaseForZeroOverrides(t *testing.T) {
	base := ResourceLimit{CPUTimeMs: 1000, WallTimeMs: 2000, MemoryMB: 256, PIDs: 32}
	got := Merge(base, ResourceLimit{MemoryMB: 512, OutputMB: 8})
	want := ResourceLimit{CPUTimeMs: 1000, WallTimeMs: 2000, MemoryMB: 512, OutputMB: 8, PIDs: 32}
	if got != want {
		t.Fatalf("expected %+v, got %+v", want, got)
	}
}
