package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/cmlabs-hris/presence-backend-go/internal/domain/presence"
	"github.com/cmlabs-hris/presence-backend-go/internal/pkg/utils"
	"github.com/cmlabs-hris/presence-backend-go/internal/pkg/validator"
	"gopkg.in/yaml.v3"
)

// rulesFile mirrors presence.Rules. Clock values are "HH:MM", durations use
// Go syntax ("45m", "1h15m") and weekdays are Monday=0 .. Sunday=6. Absent
// keys keep the default value.
type rulesFile struct {
	WorkingDays     []int `yaml:"working_days"`
	DefaultRestDays []int `yaml:"default_rest_days"`

	StandardStart    *string        `yaml:"standard_start"`
	StandardEnd      *string        `yaml:"standard_end"`
	NightThreshold   *string        `yaml:"night_threshold"`
	StandardDuration *time.Duration `yaml:"standard_duration"`
	StandardPause    *time.Duration `yaml:"standard_pause"`

	PauseWindowStart    *string        `yaml:"pause_window_start"`
	PauseWindowEnd      *string        `yaml:"pause_window_end"`
	MissingBreakPenalty *time.Duration `yaml:"missing_break_penalty"`
	OutOfWindowPenalty  *time.Duration `yaml:"out_of_window_penalty"`
	PauseTolerance      *time.Duration `yaml:"pause_tolerance"`
	ReducedPause        *time.Duration `yaml:"reduced_pause"`

	LateThreshold      *time.Duration `yaml:"late_threshold"`
	LargeLateThreshold *time.Duration `yaml:"large_late_threshold"`
	LatePenalty        *time.Duration `yaml:"late_penalty"`

	DefaultEntry *string `yaml:"default_entry"`
	DefaultExit  *string `yaml:"default_exit"`
}

// LoadRules reads a YAML rules file on top of presence.DefaultRules.
func LoadRules(path string) (presence.Rules, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return presence.Rules{}, fmt.Errorf("read rules file: %w", err)
	}
	rules, err := ParseRules(data)
	if err != nil {
		return presence.Rules{}, fmt.Errorf("rules file %s: %w", path, err)
	}
	return rules, nil
}

// ParseRules decodes YAML rules and validates the result. Unknown keys are rejected.
func ParseRules(data []byte) (presence.Rules, error) {
	var f rulesFile
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil && !errors.Is(err, io.EOF) {
		return presence.Rules{}, fmt.Errorf("%w: %v", presence.ErrInvalidRules, err)
	}

	rules := presence.DefaultRules()
	if f.WorkingDays != nil {
		days, err := weekdays("working_days", f.WorkingDays)
		if err != nil {
			return presence.Rules{}, err
		}
		rules.WorkingDays = days
	}
	if f.DefaultRestDays != nil {
		days, err := weekdays("default_rest_days", f.DefaultRestDays)
		if err != nil {
			return presence.Rules{}, err
		}
		rules.DefaultRestDays = days
	}

	clocks := []struct {
		key string
		dst *utils.Clock
		v   *string
	}{
		{"standard_start", &rules.StandardStart, f.StandardStart},
		{"standard_end", &rules.StandardEnd, f.StandardEnd},
		{"night_threshold", &rules.NightThreshold, f.NightThreshold},
		{"pause_window_start", &rules.PauseWindowStart, f.PauseWindowStart},
		{"pause_window_end", &rules.PauseWindowEnd, f.PauseWindowEnd},
		{"default_entry", &rules.DefaultEntry, f.DefaultEntry},
		{"default_exit", &rules.DefaultExit, f.DefaultExit},
	}
	for _, c := range clocks {
		if err := setClock(c.key, c.dst, c.v); err != nil {
			return presence.Rules{}, err
		}
	}

	setDuration(&rules.StandardDuration, f.StandardDuration)
	setDuration(&rules.StandardPause, f.StandardPause)
	setDuration(&rules.MissingBreakPenalty, f.MissingBreakPenalty)
	setDuration(&rules.OutOfWindowPenalty, f.OutOfWindowPenalty)
	setDuration(&rules.PauseTolerance, f.PauseTolerance)
	setDuration(&rules.ReducedPause, f.ReducedPause)
	setDuration(&rules.LateThreshold, f.LateThreshold)
	setDuration(&rules.LargeLateThreshold, f.LargeLateThreshold)
	setDuration(&rules.LatePenalty, f.LatePenalty)

	if err := rules.Validate(); err != nil {
		return presence.Rules{}, err
	}
	return rules, nil
}

func weekdays(key string, idx []int) ([]time.Weekday, error) {
	seen := make(map[time.Weekday]bool, len(idx))
	days := make([]time.Weekday, 0, len(idx))
	for _, i := range idx {
		wd, err := utils.WeekdayFromMondayIndex(i)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %v", presence.ErrInvalidRules, key, err)
		}
		if !seen[wd] {
			seen[wd] = true
			days = append(days, wd)
		}
	}
	return days, nil
}

func setClock(key string, dst *utils.Clock, v *string) error {
	if v == nil {
		return nil
	}
	if !validator.IsValidClock(*v) {
		return fmt.Errorf("%w: %s must be HH:MM or HH:MM:SS, got %q", presence.ErrInvalidRules, key, *v)
	}
	c, err := utils.ParseClock(*v)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", presence.ErrInvalidRules, key, err)
	}
	*dst = c
	return nil
}

func setDuration(dst *time.Duration, v *time.Duration) {
	if v != nil {
		*dst = *v
	}
}
