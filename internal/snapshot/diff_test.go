package snapshot

import "testing"

func TestDiff(t *testing.T) {
	tests := []struct {
		name     string
		previous string
		current  string
		want     string
		changed  bool
	}{
		{
			name:     "identical",
			previous: "PARTITION BY RANGE (D)\n(\n  PARTITION P1\n)",
			current:  "PARTITION BY RANGE (D)\n(\n  PARTITION P1\n)",
			want:     "",
			changed:  false,
		},
		{
			name:     "partition added",
			previous: "(\n  PARTITION P1\n)",
			current:  "(\n  PARTITION P1,\n  PARTITION P2\n)",
			want: "--- old\n+++ new\n@@ -1,3 +1,4 @@\n" +
				" (\n-  PARTITION P1\n+  PARTITION P1,\n+  PARTITION P2\n )\n",
			changed: true,
		},
		{
			name:     "from empty",
			previous: "",
			current:  "A\nB",
			want:     "--- old\n+++ new\n@@ -0,0 +1,2 @@\n+A\n+B\n",
			changed:  true,
		},
		{
			name:     "to empty",
			previous: "A",
			current:  "",
			want:     "--- old\n+++ new\n@@ -1 +0,0 @@\n-A\n",
			changed:  true,
		},
		{
			name:     "both empty",
			previous: "",
			current:  "",
			want:     "",
			changed:  false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Diff(tt.previous, tt.current, "old", "new")
			if err != nil {
				t.Fatalf("Diff() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("Diff() =\n%q\nwant\n%q", got, tt.want)
			}
			if c := Changed(tt.previous, tt.current); c != tt.changed {
				t.Errorf("Changed() = %v, want %v", c, tt.changed)
			}
		})
	}
}
