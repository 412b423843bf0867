package updater

import "testing"

func TestParseSemver(t *testing.T) {
	tests := []struct {
		in      string
		want    Semver
		wantErr bool
	}{
		{"1.2.3", Semver{1, 2, 3}, false},
		{"v0.4.0", Semver{0, 4, 0}, false},
		{"1.2.3-rc.1", Semver{1, 2, 3}, false},
		{"dev", Semver{}, true},
		{"1.2", Semver{}, true},
		{"1.2.x", Semver{}, true},
	}

	for _, tt := range tests {
		got, err := ParseSemver(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseSemver(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if !tt.wantErr && got != tt.want {
			t.Errorf("ParseSemver(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestSemverLessThan(t *testing.T) {
	tests := []struct {
		a, b string
		want bool
	}{
		{"1.0.0", "2.0.0", true},
		{"1.9.9", "2.0.0", true},
		{"1.2.3", "1.2.4", true},
		{"1.2.3", "1.2.3", false},
		{"2.0.0", "1.9.9", false},
	}

	for _, tt := range tests {
		a, _ := ParseSemver(tt.a)
		b, _ := ParseSemver(tt.b)
		if got := a.LessThan(b); got != tt.want {
			t.Errorf("%s < %s = %v, want %v", tt.a, tt.b, got, tt.want)
		}
	}
}
