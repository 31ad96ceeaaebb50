package validation

import "testing"

func TestValidateSemver(t *testing.T) {
	tests := []struct {
		version string
		wantErr bool
	}{
		{"1.0.0", false},
		{"0.1.0-beta.2", false},
		{"2.3.4+build.5", false},
		{"v1.2.3", false},
		{"", true},
		{"not-a-version", true},
		{"1..0", true},
	}

	for _, tt := range tests {
		t.Run(tt.version, func(t *testing.T) {
			err := ValidateSemver(tt.version)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateSemver(%q) error = %v, wantErr %v", tt.version, err, tt.wantErr)
			}
		})
	}
}

func TestCompareSemver(t *testing.T) {
	tests := []struct {
		v1, v2 string
		want   int
	}{
		{"1.0.0", "1.0.1", -1},
		{"1.0.1", "1.0.0", 1},
		{"1.0.0", "1.0.0", 0},
		{"2.0.0", "1.9.9", 1},
	}

	for _, tt := range tests {
		got, err := CompareSemver(tt.v1, tt.v2)
		if err != nil {
			t.Fatalf("CompareSemver(%q, %q): %v", tt.v1, tt.v2, err)
		}
		if got != tt.want {
			t.Errorf("CompareSemver(%q, %q) = %d, want %d", tt.v1, tt.v2, got, tt.want)
		}
	}
}
