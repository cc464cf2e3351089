// Package config holds the environment inputs spec §6 describes: a handful
// of global flags supplied by the surrounding toolchain (out of scope here)
// that toggle behaviors documented alongside the component they affect.
package config

import "github.com/caarlos0/env/v6"

// Flags is the set of environment inputs named in spec §6. The documented
// defaults are the envDefault tags below: WarnPortBinding, WarnInfLoop and
// SpecifyBlocks on, every other flag off. The zero value has every flag off,
// so callers wanting the defaults use Default or FromEnviron.
type Flags struct {
	// DebugElaborate turns on verbose per-phase logging in the scope builder,
	// parameter resolver and emitter.
	DebugElaborate bool `env:"IVL_DEBUG_ELABORATE"`

	// WarnPortBinding turns a scalar port-width mismatch from silent into a
	// warning (spec §7: "fatal if in an instance array, warning if scalar").
	WarnPortBinding bool `env:"IVL_WARN_PORTBINDING" envDefault:"true"`

	// WarnInfLoop turns on the warning for a POSSIBLE_DELAY always-block body
	// (spec §4.5 "Always-without-delay check").
	WarnInfLoop bool `env:"IVL_WARN_INF_LOOP" envDefault:"true"`

	// SpecifyBlocks enables elaboration of specify paths (spec §4.4.5). When
	// false, specify blocks are parsed into PForm by the upstream collaborator
	// but ignored by the Structural Elaborator.
	SpecifyBlocks bool `env:"IVL_SPECIFY_BLOCKS" envDefault:"true"`

	// Synthesis narrows @* sensitivity-list computation to inputs only,
	// filtering out outputs per spec §4.5 (Event-control statement) and
	// §9 (Open Questions, ANYEDGE probe note).
	Synthesis bool `env:"IVL_SYNTHESIS"`

	// ErrorImplicit turns an implicit-wire auto-creation (spec §4.4.1) from
	// silent into a reported error.
	ErrorImplicit bool `env:"IVL_ERROR_IMPLICIT"`
}

// FromEnviron loads Flags from the process environment, applying the
// defaults declared above for any variable that is unset.
func FromEnviron() (Flags, error) {
	var f Flags
	if err := env.Parse(&f); err != nil {
		return Flags{}, err
	}
	return f, nil
}

// Default returns the documented zero-configuration defaults without
// touching the environment; used by tests and by library callers that embed
// the elaborator without a surrounding CLI.
func Default() Flags {
	f, _ := FromEnviron0()
	return f
}

// FromEnviron0 is FromEnviron against an empty environment; split out so
// Default can reuse the envDefault tags without depending on os.Environ.
func FromEnviron0() (Flags, error) {
	var f Flags
	if err := env.ParseWithOptions(&f, env.Options{Environment: map[string]string{}}); err != nil {
		return Flags{}, err
	}
	return f, nil
}
