package template

import (
	"testing"
	"time"
)

func TestCheckCompatibilityOK(t *testing.T) {
	d := &Descriptor{
		CLIMinVersion: "1.0.0",
		CLIMaxVersion: "<2.0.0",
		FlutterMinSDK: "3.0.0",
		DartMinSDK:    "2.17.0",
	}
	env := Environment{CLIVersion: "1.5.0", FlutterSDK: "3.10.0", DartSDK: "3.0.0", Now: time.Now()}

	report := CheckCompatibility(d, env)
	if !report.OK {
		t.Fatalf("report.OK = false, errors: %v", report.Errors)
	}
	if len(report.Warnings) != 0 {
		t.Fatalf("unexpected warnings: %v", report.Warnings)
	}
}

func TestCheckCompatibilityBelowMinimum(t *testing.T) {
	d := &Descriptor{CLIMinVersion: "2.0.0"}
	env := Environment{CLIVersion: "1.0.0", Now: time.Now()}

	report := CheckCompatibility(d, env)
	if report.OK {
		t.Fatal("report.OK = true, want false")
	}
	if len(report.Errors) != 1 {
		t.Fatalf("Errors = %v, want one entry", report.Errors)
	}
}

func TestCheckCompatibilityMaxConstraintViolated(t *testing.T) {
	d := &Descriptor{CLIMaxVersion: "<2.0.0"}
	env := Environment{CLIVersion: "2.5.0", Now: time.Now()}

	report := CheckCompatibility(d, env)
	if report.OK {
		t.Fatal("report.OK = true, want false")
	}
}

func TestCheckCompatibilityEOLPastIsError(t *testing.T) {
	past := time.Now().Add(-24 * time.Hour)
	d := &Descriptor{EOLDate: &past}
	report := CheckCompatibility(d, Environment{Now: time.Now()})
	if report.OK {
		t.Fatal("report.OK = true, want false for a past EOL date")
	}
}

func TestCheckCompatibilityApproachingEOLIsWarning(t *testing.T) {
	soon := time.Now().Add(30 * 24 * time.Hour)
	d := &Descriptor{EOLDate: &soon}
	report := CheckCompatibility(d, Environment{Now: time.Now()})
	if !report.OK {
		t.Fatalf("report.OK = false, errors: %v", report.Errors)
	}
	if len(report.Warnings) != 1 {
		t.Fatalf("Warnings = %v, want one entry", report.Warnings)
	}
}

func TestCheckCompatibilityDeprecatedIsWarningNotError(t *testing.T) {
	d := &Descriptor{Deprecated: true}
	report := CheckCompatibility(d, Environment{Now: time.Now()})
	if !report.OK {
		t.Fatalf("report.OK = false, errors: %v", report.Errors)
	}
	if len(report.Warnings) != 1 {
		t.Fatalf("Warnings = %v, want one entry", report.Warnings)
	}
}
