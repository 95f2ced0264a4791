package presence

import (
	"sort"
	"strings"
	"time"

	"github.com/cmlabs-hris/presence-backend-go/internal/pkg/utils"
)

// EmployeeConfig carries the per-employee settings the evaluator reads.
type EmployeeConfig struct {
	Employee    string
	RestDays    []time.Weekday
	ContractEnd *time.Time
	UpdatedAt   time.Time
}

// IsRestDay reports whether the weekday of date is one of the employee's rest days.
func (c EmployeeConfig) IsRestDay(date time.Time) bool {
	wd := date.Weekday()
	for _, d := range c.RestDays {
		if d == wd {
			return true
		}
	}
	return false
}

// IsActive is false for dates strictly after the contract end.
func (c EmployeeConfig) IsActive(date time.Time) bool {
	if c.ContractEnd == nil {
		return true
	}
	return !utils.DateOf(date).After(utils.DateOf(*c.ContractEnd))
}

// RestDayIndexes returns the rest days as sorted Monday=0 indexes.
func (c EmployeeConfig) RestDayIndexes() []int {
	idx := make([]int, 0, len(c.RestDays))
	for _, d := range c.RestDays {
		idx = append(idx, utils.MondayIndex(d))
	}
	sort.Ints(idx)
	return idx
}

// ConfigSet is an immutable snapshot of employee configurations for one run.
// Lookups are safe from any number of goroutines.
type ConfigSet struct {
	defaults EmployeeConfig
	configs  map[string]EmployeeConfig
}

// For returns the configuration of employee. The boolean is false when the
// employee has no explicit entry and the defaults were returned.
func (s ConfigSet) For(employee string) (EmployeeConfig, bool) {
	if cfg, ok := s.configs[normalizeEmployee(employee)]; ok {
		return cfg, true
	}
	cfg := s.defaults
	cfg.Employee = employee
	return cfg, false
}

func (s ConfigSet) Len() int {
	return len(s.configs)
}

// Employees lists the employees with an explicit configuration, sorted.
func (s ConfigSet) Employees() []string {
	names := make([]string, 0, len(s.configs))
	for _, cfg := range s.configs {
		names = append(names, cfg.Employee)
	}
	sort.Strings(names)
	return names
}

// ConfigBuilder collects configuration calls before a run. It is not safe for
// concurrent use; Build hands out a ConfigSet that no later call can change.
type ConfigBuilder struct {
	defaultRestDays []time.Weekday
	configs         map[string]EmployeeConfig
}

func NewConfigBuilder(rules Rules) *ConfigBuilder {
	return &ConfigBuilder{
		defaultRestDays: append([]time.Weekday(nil), rules.DefaultRestDays...),
		configs:         make(map[string]EmployeeConfig),
	}
}

func (b *ConfigBuilder) entry(employee string) EmployeeConfig {
	key := normalizeEmployee(employee)
	cfg, ok := b.configs[key]
	if !ok {
		cfg = EmployeeConfig{
			Employee: strings.TrimSpace(employee),
			RestDays: append([]time.Weekday(nil), b.defaultRestDays...),
		}
	}
	return cfg
}

// SetRestDays replaces the rest days of employee. Duplicates are ignored.
func (b *ConfigBuilder) SetRestDays(employee string, days ...time.Weekday) *ConfigBuilder {
	cfg := b.entry(employee)
	seen := make(map[time.Weekday]bool, len(days))
	cfg.RestDays = cfg.RestDays[:0:0]
	for _, d := range days {
		if !seen[d] {
			seen[d] = true
			cfg.RestDays = append(cfg.RestDays, d)
		}
	}
	b.configs[normalizeEmployee(employee)] = cfg
	return b
}

// SetContractEnd records the last active day of employee.
func (b *ConfigBuilder) SetContractEnd(employee string, end time.Time) *ConfigBuilder {
	cfg := b.entry(employee)
	d := utils.DateOf(end)
	cfg.ContractEnd = &d
	b.configs[normalizeEmployee(employee)] = cfg
	return b
}

// Merge applies a stored configuration. Fields already set by earlier calls
// are overwritten.
func (b *ConfigBuilder) Merge(cfg EmployeeConfig) *ConfigBuilder {
	if cfg.RestDays != nil {
		b.SetRestDays(cfg.Employee, cfg.RestDays...)
	}
	if cfg.ContractEnd != nil {
		b.SetContractEnd(cfg.Employee, *cfg.ContractEnd)
	}
	return b
}

func (b *ConfigBuilder) Build() ConfigSet {
	configs := make(map[string]EmployeeConfig, len(b.configs))
	for k, cfg := range b.configs {
		cfg.RestDays = append([]time.Weekday(nil), cfg.RestDays...)
		if cfg.ContractEnd != nil {
			end := *cfg.ContractEnd
			cfg.ContractEnd = &end
		}
		configs[k] = cfg
	}
	return ConfigSet{
		defaults: EmployeeConfig{RestDays: append([]time.Weekday(nil), b.defaultRestDays...)},
		configs:  configs,
	}
}

func normalizeEmployee(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}
