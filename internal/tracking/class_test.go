// Lookout - Radio Target Continuity Tracking
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/lookout

package tracking

import (
	"errors"
	"testing"
	"time"
)

func TestParseClass(t *testing.T) {
	tests := []struct {
		input string
		want  Class
		ok    bool
	}{
		{"A", ClassA, true},
		{"a", ClassA, true},
		{" b ", ClassB, true},
		{"aton", ClassATON, true},
		{"Base", ClassBASE, true},
		{"SAR", ClassSAR, true},
		{"aircraft", ClassAIRCRAFT, true},
		{"", "", false},
		{"C", "", false},
		{"vessel", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, ok := ParseClass(tt.input)
			if ok != tt.ok || got != tt.want {
				t.Errorf("ParseClass(%q) = (%q, %v), expected (%q, %v)", tt.input, got, ok, tt.want, tt.ok)
			}
		})
	}
}

func TestThresholdsValidate(t *testing.T) {
	tests := []struct {
		name    string
		th      Thresholds
		wantErr error
	}{
		{"valid", Thresholds{2, time.Minute, 2 * time.Minute, 3 * time.Minute}, nil},
		{"equal durations", Thresholds{1, time.Minute, time.Minute, time.Minute}, nil},
		{"zero count", Thresholds{0, time.Minute, 2 * time.Minute, 3 * time.Minute}, ErrInvalidConfirmCount},
		{"zero duration", Thresholds{1, 0, 2 * time.Minute, 3 * time.Minute}, ErrNonPositiveDuration},
		{"remove before lost", Thresholds{1, time.Minute, 5 * time.Minute, 3 * time.Minute}, ErrThresholdOrder},
		{"confirm after lost", Thresholds{1, 6 * time.Minute, 5 * time.Minute, 9 * time.Minute}, ErrThresholdOrder},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.th.Validate()
			if tt.wantErr == nil && err != nil {
				t.Errorf("unexpected error: %v", err)
			}
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Errorf("expected %v, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestThresholdTable(t *testing.T) {
	t.Run("defaults are valid", func(t *testing.T) {
		if err := DefaultThresholds().Validate(); err != nil {
			t.Errorf("default table invalid: %v", err)
		}
	})

	t.Run("missing class rejected", func(t *testing.T) {
		tt := DefaultThresholds()
		delete(tt, ClassSAR)
		if err := tt.Validate(); err == nil {
			t.Error("expected error for missing class")
		}
	})

	t.Run("unknown class rejected", func(t *testing.T) {
		tt := DefaultThresholds()
		tt["C"] = tt[ClassA]
		if err := tt.Validate(); err == nil {
			t.Error("expected error for unsupported class")
		}
	})

	t.Run("lookup falls back to default class", func(t *testing.T) {
		tt := DefaultThresholds()
		if got := tt.Lookup("unknown"); got != tt[ClassB] {
			t.Errorf("Lookup(unknown) = %+v, expected class B thresholds", got)
		}
	})

	t.Run("sweep order by removeAfter then name", func(t *testing.T) {
		got := DefaultThresholds().SweepOrder()
		want := []Class{ClassAIRCRAFT, ClassA, ClassBASE, ClassSAR, ClassB, ClassATON}
		if len(got) != len(want) {
			t.Fatalf("SweepOrder() = %v, expected %v", got, want)
		}
		for i := range want {
			if got[i] != want[i] {
				t.Fatalf("SweepOrder() = %v, expected %v", got, want)
			}
		}
	})

	t.Run("min interval", func(t *testing.T) {
		if got := DefaultThresholds().MinInterval(); got != 30*time.Second {
			t.Errorf("MinInterval() = %v, expected 30s", got)
		}
	})

	t.Run("clone is independent", func(t *testing.T) {
		orig := DefaultThresholds()
		c := orig.Clone()
		c[ClassA] = Thresholds{1, time.Second, time.Second, time.Second}
		if orig[ClassA].ConfirmAfterMsgs != 2 {
			t.Error("Clone shares storage with original")
		}
	})
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"defaults", func(*Config) {}, false},
		{"debounce zero", func(c *Config) { c.Debounce = 0 }, true},
		{"debounce too long", func(c *Config) { c.Debounce = time.Second }, true},
		{"trail zero", func(c *Config) { c.TrailCapacity = 0 }, true},
		{"sweep longer than tightest threshold", func(c *Config) { c.SweepInterval = time.Minute }, true},
		{"sweep equal to tightest threshold", func(c *Config) { c.SweepInterval = 30 * time.Second }, false},
		{"bad thresholds", func(c *Config) {
			th := c.Thresholds[ClassB]
			th.RemoveAfter = th.LostAfter - time.Second
			c.Thresholds[ClassB] = th
		}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
