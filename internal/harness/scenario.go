package harness

import (
	"bytes"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/roach88/keywarden/internal/engine"
	"github.com/roach88/keywarden/internal/keys"
	"github.com/roach88/keywarden/internal/roster"
)

// DefaultPlaceholderDomain marks roster rows whose real email is still
// unknown. Scenarios can override it, but in practice never need to.
const DefaultPlaceholderDomain = "@FIXME.mq.edu.au"

// Scenario is one scripted reconciliation session.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario demonstrates.
	Description string `yaml:"description"`

	// Day is the provisioning date, YYYY-MM-DD. Key names encode it and
	// the frozen clock starts at its midnight UTC.
	Day string `yaml:"day"`

	// Roster lists the enrolled students.
	Roster []RosterRow `yaml:"roster"`

	// Remote lists the keys the fake account starts with.
	Remote []RemoteRow `yaml:"remote,omitempty"`

	// Targets is the operator's desired state, one row per student, as
	// the update op reads it.
	Targets []TargetRow `yaml:"targets,omitempty"`

	// OverrideLimit applies one limit to every provisioned key instead
	// of the roster budgets.
	OverrideLimit *float64 `yaml:"override_limit,omitempty"`

	// FailCall makes the n-th mutating remote call fail (1-based).
	// Zero means no call fails.
	FailCall int `yaml:"fail_call,omitempty"`

	// PlaceholderDomain overrides DefaultPlaceholderDomain.
	PlaceholderDomain string `yaml:"placeholder_domain,omitempty"`

	// Ops run in order: check, provision, update, refresh-limits.
	Ops []string `yaml:"ops"`

	// Assertions validate the final changelog and remote state.
	Assertions []Assertion `yaml:"assertions"`
}

// RosterRow is one student in scenario form.
type RosterRow struct {
	FirstName string   `yaml:"first_name"`
	LastName  string   `yaml:"last_name"`
	Email     string   `yaml:"email"`
	MQID      string   `yaml:"mq_id"`
	Budget    *float64 `yaml:"budget,omitempty"`
	Reset     string   `yaml:"reset,omitempty"`
}

// RemoteRow is one pre-existing remote key in scenario form. A nil limit
// is an unlimited key.
type RemoteRow struct {
	Hash     string   `yaml:"hash"`
	Name     string   `yaml:"name"`
	Label    string   `yaml:"label,omitempty"`
	Limit    *float64 `yaml:"limit,omitempty"`
	Usage    float64  `yaml:"usage,omitempty"`
	Disabled bool     `yaml:"disabled,omitempty"`
	Reset    string   `yaml:"reset,omitempty"`
}

// TargetRow is one student's desired state. Nil fields were never set by
// the operator. Unlimited clears the limit ceiling; it conflicts with a
// concrete limit.
type TargetRow struct {
	Email     string   `yaml:"email"`
	Limit     *float64 `yaml:"limit,omitempty"`
	Unlimited bool     `yaml:"unlimited,omitempty"`
	Disabled  *bool    `yaml:"disabled,omitempty"`
}

// Assertion validates the changelog or final remote state.
type Assertion struct {
	// Type is one of the Assert* constants.
	Type string `yaml:"type"`

	// Action is the changelog action (changelog_contains,
	// changelog_count).
	Action string `yaml:"action,omitempty"`

	// KeyName narrows changelog_contains to entries whose key carries
	// this name in the final remote state.
	KeyName string `yaml:"key_name,omitempty"`

	// Count is the expected number of entries (changelog_count).
	Count int `yaml:"count,omitempty"`

	// Actions is the expected action order (changelog_order).
	Actions []string `yaml:"actions,omitempty"`

	// Name selects the remote key (remote_state).
	Name string `yaml:"name,omitempty"`

	// Limit is the expected final limit; nil skips the check. Unlimited
	// expects the cleared state.
	Limit     *float64 `yaml:"limit,omitempty"`
	Unlimited bool     `yaml:"unlimited,omitempty"`

	// Disabled is the expected final disabled flag; nil skips the check.
	Disabled *bool `yaml:"disabled,omitempty"`
}

// Assertion type constants.
const (
	AssertChangelogContains = "changelog_contains"
	AssertChangelogOrder    = "changelog_order"
	AssertChangelogCount    = "changelog_count"
	AssertRemoteState       = "remote_state"
)

// Op constants, in the order an operator would reach for them.
const (
	OpCheck         = "check"
	OpProvision     = "provision"
	OpUpdate        = "update"
	OpRefreshLimits = "refresh-limits"
)

// LoadScenario reads and parses a scenario YAML file. Unknown fields are
// rejected so a typo like "assertion:" fails loudly instead of silently
// skipping checks.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}

	return &scenario, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}

	if _, err := s.day(); err != nil {
		return err
	}

	if len(s.Roster) == 0 {
		return fmt.Errorf("roster list is required and must be non-empty")
	}
	for i, row := range s.Roster {
		if row.Email == "" {
			return fmt.Errorf("roster[%d]: email is required", i)
		}
		if row.MQID == "" {
			return fmt.Errorf("roster[%d]: mq_id is required (email: %s)", i, row.Email)
		}
		if _, err := keys.ParseCadence(row.Reset); err != nil {
			return fmt.Errorf("roster[%d]: %w", i, err)
		}
	}

	for i, row := range s.Remote {
		if row.Hash == "" {
			return fmt.Errorf("remote[%d]: hash is required", i)
		}
		if row.Name == "" {
			return fmt.Errorf("remote[%d]: name is required (hash: %s)", i, row.Hash)
		}
	}

	for i, row := range s.Targets {
		if row.Email == "" {
			return fmt.Errorf("targets[%d]: email is required", i)
		}
		if row.Limit != nil && row.Unlimited {
			return fmt.Errorf("targets[%d]: limit and unlimited conflict (email: %s)", i, row.Email)
		}
	}

	if len(s.Ops) == 0 {
		return fmt.Errorf("ops list is required and must be non-empty")
	}
	for i, op := range s.Ops {
		switch op {
		case OpCheck, OpProvision, OpUpdate, OpRefreshLimits:
		default:
			return fmt.Errorf("ops[%d]: unknown op %q", i, op)
		}
	}

	if s.FailCall < 0 {
		return fmt.Errorf("fail_call must be non-negative")
	}

	if len(s.Assertions) == 0 {
		return fmt.Errorf("assertions list is required and must be non-empty")
	}
	for i, assertion := range s.Assertions {
		if err := validateAssertion(i, &assertion); err != nil {
			return err
		}
	}

	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}

	switch a.Type {
	case AssertChangelogContains:
		if a.Action == "" {
			return fmt.Errorf("assertions[%d]: action is required for changelog_contains", index)
		}
	case AssertChangelogOrder:
		if len(a.Actions) == 0 {
			return fmt.Errorf("assertions[%d]: actions list is required for changelog_order", index)
		}
	case AssertChangelogCount:
		if a.Action == "" {
			return fmt.Errorf("assertions[%d]: action is required for changelog_count", index)
		}
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for changelog_count", index)
		}
	case AssertRemoteState:
		if a.Name == "" {
			return fmt.Errorf("assertions[%d]: name is required for remote_state", index)
		}
		if a.Limit != nil && a.Unlimited {
			return fmt.Errorf("assertions[%d]: limit and unlimited conflict", index)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}

	return nil
}

// day parses the scenario day into the frozen clock's start.
func (s *Scenario) day() (time.Time, error) {
	if s.Day == "" {
		return time.Time{}, fmt.Errorf("day is required (YYYY-MM-DD)")
	}
	day, err := time.Parse("2006-01-02", s.Day)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid day %q: %w", s.Day, err)
	}
	return day.UTC(), nil
}

// placeholderDomain resolves the configured or default domain.
func (s *Scenario) placeholderDomain() string {
	if s.PlaceholderDomain != "" {
		return s.PlaceholderDomain
	}
	return DefaultPlaceholderDomain
}

// roster converts the scenario rows into the domain roster.
func (s *Scenario) roster() roster.Roster {
	ros := make(roster.Roster, len(s.Roster))
	for _, row := range s.Roster {
		budget := keys.Unlimited()
		if row.Budget != nil {
			budget = keys.LimitOf(*row.Budget)
		}
		cadence, _ := keys.ParseCadence(row.Reset)
		ros[row.Email] = roster.Student{
			FirstName: row.FirstName,
			LastName:  row.LastName,
			Email:     row.Email,
			MQID:      row.MQID,
			Budget:    budget,
			Cadence:   cadence,
		}
	}
	return ros
}

// remoteKeys converts the scenario rows into the fake account's starting
// key list, in listing order.
func (s *Scenario) remoteKeys() []keys.RemoteKey {
	ks := make([]keys.RemoteKey, 0, len(s.Remote))
	for _, row := range s.Remote {
		limit := keys.Unlimited()
		if row.Limit != nil {
			limit = keys.LimitOf(*row.Limit)
		}
		ks = append(ks, keys.RemoteKey{
			Hash:     row.Hash,
			Name:     row.Name,
			Label:    row.Label,
			Limit:    limit,
			Usage:    row.Usage,
			Disabled: row.Disabled,
			Cadence:  keys.Cadence(row.Reset),
		})
	}
	return ks
}

// targets converts the scenario rows into the diff input.
func (s *Scenario) targets() map[string]engine.Target {
	targets := make(map[string]engine.Target, len(s.Targets))
	for _, row := range s.Targets {
		var limit *keys.Limit
		if row.Limit != nil {
			l := keys.LimitOf(*row.Limit)
			limit = &l
		} else if row.Unlimited {
			l := keys.Unlimited()
			limit = &l
		}
		targets[row.Email] = engine.Target{
			Limit:    limit,
			Disabled: row.Disabled,
		}
	}
	return targets
}

// overrideLimit converts the scenario override for the provision planner.
func (s *Scenario) overrideLimit() *keys.Limit {
	if s.OverrideLimit == nil {
		return nil
	}
	l := keys.LimitOf(*s.OverrideLimit)
	return &l
}
