// Package heuristics holds the reviewable keyword and rule tables that drive
// intent classification, scope resolution, corpus-edition matching and table
// subtype detection. The tables are data: they ship as an embedded YAML file
// and can be replaced at runtime without code changes.
package heuristics

import (
	_ "embed"
	"fmt"
	"os"
	"regexp"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/kirillkom/guideline-retrieval/internal/core/domain"
)

//go:embed rules.yaml
var defaultRules []byte

// Edition marker names referenced by the boost cascade and merge guarantee.
const (
	EditionTreatmentCurrent     = "treatment_current"
	EditionPediatricDSTreatment = "pediatric_ds_treatment"
	EditionDiagnosisModule      = "diagnosis_module"
	EditionPreventionCurrent    = "prevention_current"
	EditionDRTreatmentCurrent   = "dr_treatment_current"
	EditionDSSpecific           = "ds_specific"
	EditionPediatricDRTables    = "pediatric_dr_tables"
	EditionPediatricTPTLegacy   = "pediatric_tpt_legacy_tables"
)

// Intent flag names.
const (
	FlagScreening         = "screening"
	FlagDiagnosis         = "diagnosis"
	FlagPrevention        = "prevention"
	FlagInfectionControl  = "infection_control"
	FlagRegimen           = "regimen"
	FlagAdjustRegimen     = "adjust_regimen"
	FlagToxicity          = "toxicity"
	FlagMonitoring        = "monitoring"
	FlagTreatmentFailure  = "treatment_failure"
	FlagPediatric         = "pediatric"
	FlagSpecialPopulation = "special_population"
	FlagDrugResistance    = "drug_resistance"
	FlagTPT               = "tpt"
	FlagDRTPT             = "dr_tpt"
	FlagComorbidity       = "comorbidity"
)

type Rules struct {
	Version            string               `yaml:"version"`
	Intents            map[string][]string  `yaml:"intents"`
	FlagScopes         map[string]string    `yaml:"flag_scopes"`
	PreventiveFlags    []string             `yaml:"preventive_flags"`
	RegimenFlags       []string             `yaml:"regimen_flags"`
	ScopePriority      []string             `yaml:"scope_priority"`
	MinKeywordHits     int                  `yaml:"min_keyword_hits"`
	ScopeKeywords      map[string][]string  `yaml:"scope_keywords"`
	ModuleScopes       map[string]string    `yaml:"module_scopes"`
	ScopeChunkPatterns map[string][]string  `yaml:"scope_chunk_patterns"`
	Editions           map[string][]Matcher `yaml:"editions"`
	Tables             TableRules           `yaml:"tables"`

	intentOrder   []string
	chunkPatterns map[domain.Scope][]*regexp.Regexp
	priority      map[domain.Scope]int
}

type TableRules struct {
	DosingCues              []string    `yaml:"dosing_cues"`
	PediatricCues           []string    `yaml:"pediatric_cues"`
	DecisionCues            []string    `yaml:"decision_cues"`
	RegimenCues             []string    `yaml:"regimen_cues"`
	RegimenCompanionColumns []string    `yaml:"regimen_companion_columns"`
	TimelineCues            []string    `yaml:"timeline_cues"`
	TimepointHeader         string      `yaml:"timepoint_header"`
	InteractionCues         []string    `yaml:"interaction_cues"`
	ToxicityCues            []string    `yaml:"toxicity_cues"`
	Columns                 ColumnRules `yaml:"columns"`

	timepoint *regexp.Regexp
}

type ColumnRules struct {
	WeightBand         []string `yaml:"weight_band"`
	DosingExclude      []string `yaml:"dosing_exclude"`
	Condition          []string `yaml:"condition"`
	Action             []string `yaml:"action"`
	RegimenName        []string `yaml:"regimen_name"`
	RegimenDetail      []string `yaml:"regimen_detail"`
	Schedule           []string `yaml:"schedule"`
	InteractionDrug    []string `yaml:"interaction_drug"`
	InteractionEffect  []string `yaml:"interaction_effect"`
	ToxicityEvent      []string `yaml:"toxicity_event"`
	ToxicityGrade      []string `yaml:"toxicity_grade"`
	ToxicityManagement []string `yaml:"toxicity_management"`
}

// IsTimepoint reports whether a header label looks like a schedule column.
func (t TableRules) IsTimepoint(header string) bool {
	if t.timepoint == nil {
		return false
	}
	return t.timepoint.MatchString(NormalizeText(header))
}

// Default parses the embedded rules. It panics on a broken embedded file,
// which can only happen at build time.
func Default() *Rules {
	rules, err := Parse(defaultRules)
	if err != nil {
		panic(fmt.Sprintf("heuristics: embedded rules: %v", err))
	}
	return rules
}

// Load reads rules from path, or returns the embedded defaults when path is empty.
func Load(path string) (*Rules, error) {
	if strings.TrimSpace(path) == "" {
		return Default(), nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read rules file: %w", err)
	}
	return Parse(raw)
}

func Parse(raw []byte) (*Rules, error) {
	var rules Rules
	if err := yaml.Unmarshal(raw, &rules); err != nil {
		return nil, fmt.Errorf("parse rules: %w", err)
	}
	if err := rules.compile(); err != nil {
		return nil, err
	}
	return &rules, nil
}

func (r *Rules) compile() error {
	if len(r.Intents) == 0 {
		return fmt.Errorf("rules: no intent groups defined")
	}
	if r.MinKeywordHits <= 0 {
		r.MinKeywordHits = 2
	}

	r.intentOrder = make([]string, 0, len(r.Intents))
	for flag := range r.Intents {
		r.intentOrder = append(r.intentOrder, flag)
	}
	sort.Strings(r.intentOrder)

	r.priority = make(map[domain.Scope]int, len(r.ScopePriority))
	for i, raw := range r.ScopePriority {
		scope, ok := domain.ParseScope(raw)
		if !ok || scope == domain.ScopeNone {
			return fmt.Errorf("rules: unknown scope %q in scope_priority", raw)
		}
		r.priority[scope] = i
	}
	for flag, raw := range r.FlagScopes {
		if scope, ok := domain.ParseScope(raw); !ok || scope == domain.ScopeNone {
			return fmt.Errorf("rules: flag %q maps to unknown scope %q", flag, raw)
		}
	}
	for module, raw := range r.ModuleScopes {
		if scope, ok := domain.ParseScope(raw); !ok || scope == domain.ScopeNone {
			return fmt.Errorf("rules: module %q maps to unknown scope %q", module, raw)
		}
	}

	r.chunkPatterns = make(map[domain.Scope][]*regexp.Regexp, len(r.ScopeChunkPatterns))
	for raw, patterns := range r.ScopeChunkPatterns {
		scope, ok := domain.ParseScope(raw)
		if !ok || scope == domain.ScopeNone {
			return fmt.Errorf("rules: unknown scope %q in scope_chunk_patterns", raw)
		}
		for _, p := range patterns {
			re, err := regexp.Compile(p)
			if err != nil {
				return fmt.Errorf("rules: scope %s pattern %q: %w", raw, p, err)
			}
			r.chunkPatterns[scope] = append(r.chunkPatterns[scope], re)
		}
	}

	for name, matchers := range r.Editions {
		for i := range matchers {
			matchers[i].normalize()
		}
		r.Editions[name] = matchers
	}

	if r.Tables.TimepointHeader != "" {
		re, err := regexp.Compile(r.Tables.TimepointHeader)
		if err != nil {
			return fmt.Errorf("rules: timepoint_header: %w", err)
		}
		r.Tables.timepoint = re
	}
	return nil
}

// scopeRank orders scopes by configured priority; unknown scopes sort last.
func (r *Rules) scopeRank(s domain.Scope) int {
	if rank, ok := r.priority[s]; ok {
		return rank
	}
	return len(r.priority) + 1
}

// MatchesEdition reports whether chunk falls under the named edition marker.
// Unknown marker names match nothing.
func (r *Rules) MatchesEdition(name string, chunk domain.Chunk) bool {
	for _, m := range r.Editions[name] {
		if m.Match(chunk) {
			return true
		}
	}
	return false
}
