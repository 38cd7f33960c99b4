package template

import (
	"fmt"
	"time"

	"github.com/Masterminds/semver/v3"
)

// approachingEOLWindow is how far ahead of eol_date a warning is raised
// (spec §4.5).
const approachingEOLWindow = 60 * 24 * time.Hour

// Environment carries the running versions the compatibility gate checks
// a template's declared bounds against (spec §4.5).
type Environment struct {
	CLIVersion  string
	FlutterSDK  string
	DartSDK     string
	Now         time.Time
}

// CompatibilityReport is the structured {ok, errors[], warnings[]} result
// (spec §4.5, §8's "if any errors, ok is false" invariant).
type CompatibilityReport struct {
	OK       bool     `json:"ok"`
	Errors   []string `json:"errors"`
	Warnings []string `json:"warnings"`
}

// CheckCompatibility evaluates d's declared bounds against env.
func CheckCompatibility(d *Descriptor, env Environment) CompatibilityReport {
	var errs, warns []string

	if d.CLIMinVersion != "" {
		if err := checkMinVersion(env.CLIVersion, d.CLIMinVersion); err != nil {
			errs = append(errs, fmt.Sprintf("CLI version %s is below required minimum %s", env.CLIVersion, d.CLIMinVersion))
		}
	}
	if d.CLIMaxVersion != "" {
		if ok, err := checkConstraint(env.CLIVersion, d.CLIMaxVersion); err != nil || !ok {
			errs = append(errs, fmt.Sprintf("CLI version %s does not satisfy maximum constraint %s", env.CLIVersion, d.CLIMaxVersion))
		}
	}
	if d.FlutterMinSDK != "" {
		if err := checkMinVersion(env.FlutterSDK, d.FlutterMinSDK); err != nil {
			errs = append(errs, fmt.Sprintf("Flutter SDK %s is below required minimum %s", env.FlutterSDK, d.FlutterMinSDK))
		}
	}
	if d.DartMinSDK != "" {
		if err := checkMinVersion(env.DartSDK, d.DartMinSDK); err != nil {
			errs = append(errs, fmt.Sprintf("Dart SDK %s is below required minimum %s", env.DartSDK, d.DartMinSDK))
		}
	}

	now := env.Now
	if now.IsZero() {
		now = time.Now()
	}
	if d.EOLDate != nil {
		if now.After(*d.EOLDate) {
			errs = append(errs, fmt.Sprintf("template reached end of life on %s", d.EOLDate.Format("2006-01-02")))
		} else if d.EOLDate.Sub(now) <= approachingEOLWindow {
			warns = append(warns, fmt.Sprintf("template approaching end of life on %s", d.EOLDate.Format("2006-01-02")))
		}
	}
	if d.Deprecated {
		msg := "template is deprecated"
		if d.DeprecationDate != nil {
			msg = fmt.Sprintf("template deprecated on %s", d.DeprecationDate.Format("2006-01-02"))
		}
		warns = append(warns, msg)
	}

	return CompatibilityReport{OK: len(errs) == 0, Errors: errs, Warnings: warns}
}

func checkMinVersion(current, min string) error {
	cv, err := semver.NewVersion(current)
	if err != nil {
		return err
	}
	mv, err := semver.NewVersion(min)
	if err != nil {
		return err
	}
	if cv.LessThan(mv) {
		return fmt.Errorf("%s < %s", current, min)
	}
	return nil
}

func checkConstraint(current, constraint string) (bool, error) {
	cv, err := semver.NewVersion(current)
	if err != nil {
		return false, err
	}
	c, err := semver.NewConstraint(constraint)
	if err != nil {
		return false, err
	}
	return c.Check(cv), nil
}
