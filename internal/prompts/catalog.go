// Package prompts renders the reasoning prompts for each agent stage from an embedded,
// per-sport YAML catalog.
package prompts

import (
	"embed"
	"fmt"
	"sort"
	"strings"
	"text/template"
	"time"

	"github.com/riskibarqy/player-risk-alerts/internal/domain/stage"
	"github.com/riskibarqy/player-risk-alerts/internal/usecase"
	"github.com/valyala/bytebufferpool"
	"gopkg.in/yaml.v3"
)

const DefaultSport = "soccer"

//go:embed catalog/*.yaml
var bundled embed.FS

type stageSpec struct {
	System      string  `yaml:"system"`
	User        string  `yaml:"user"`
	WebSearch   bool    `yaml:"web_search"`
	MaxTokens   int     `yaml:"max_tokens"`
	Temperature float64 `yaml:"temperature"`
}

type catalogFile struct {
	Sport  string               `yaml:"sport"`
	Stages map[string]stageSpec `yaml:"stages"`
}

type compiled struct {
	system      *template.Template
	user        *template.Template
	webSearch   bool
	maxTokens   int
	temperature float64
}

// Catalog holds the compiled templates of one sport. It is safe for concurrent use.
type Catalog struct {
	sport  string
	stages map[stage.Stage]compiled
}

var funcs = template.FuncMap{
	"inc": func(i int) int { return i + 1 },
	"pct": func(v float64) string { return fmt.Sprintf("%.0f%%", v*100) },
	"date": func(t time.Time) string {
		return t.UTC().Format("2006-01-02")
	},
	"join": strings.Join,
}

// Sports lists the bundled catalogs.
func Sports() []string {
	entries, err := bundled.ReadDir("catalog")
	if err != nil {
		return nil
	}
	out := make([]string, 0, len(entries))
	for _, e := range entries {
		name := e.Name()
		if ext := strings.LastIndex(name, "."); ext > 0 {
			out = append(out, name[:ext])
		}
	}
	sort.Strings(out)
	return out
}

// Load compiles the bundled catalog for sport. An empty sport selects DefaultSport.
func Load(sport string) (*Catalog, error) {
	sport = strings.ToLower(strings.TrimSpace(sport))
	if sport == "" {
		sport = DefaultSport
	}
	raw, err := bundled.ReadFile("catalog/" + sport + ".yaml")
	if err != nil {
		return nil, fmt.Errorf("no prompt catalog for sport %q", sport)
	}
	return Parse(raw)
}

// Parse compiles a catalog document. Every stage must define a user template.
func Parse(raw []byte) (*Catalog, error) {
	var file catalogFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("decode prompt catalog: %w", err)
	}

	c := &Catalog{sport: file.Sport, stages: make(map[stage.Stage]compiled, len(file.Stages))}
	for name, spec := range file.Stages {
		st, err := stage.Parse(name)
		if err != nil {
			return nil, fmt.Errorf("prompt catalog %q: %w", file.Sport, err)
		}
		if strings.TrimSpace(spec.User) == "" {
			return nil, fmt.Errorf("prompt catalog %q: %s user template is empty", file.Sport, st)
		}

		system, err := compile(string(st)+".system", spec.System)
		if err != nil {
			return nil, err
		}
		user, err := compile(string(st)+".user", spec.User)
		if err != nil {
			return nil, err
		}
		c.stages[st] = compiled{
			system:      system,
			user:        user,
			webSearch:   spec.WebSearch,
			maxTokens:   spec.MaxTokens,
			temperature: spec.Temperature,
		}
	}

	for _, st := range stage.All() {
		if _, ok := c.stages[st]; !ok {
			return nil, fmt.Errorf("prompt catalog %q: missing %s stage", file.Sport, st)
		}
	}
	return c, nil
}

func compile(name, text string) (*template.Template, error) {
	tmpl, err := template.New(name).Funcs(funcs).Option("missingkey=error").Parse(text)
	if err != nil {
		return nil, fmt.Errorf("parse %s template: %w", name, err)
	}
	return tmpl, nil
}

func (c *Catalog) Sport() string {
	return c.sport
}

// Render fills the stage templates. data must be the prompt data type of the stage.
func (c *Catalog) Render(st stage.Stage, data any) (usecase.ReasoningRequest, error) {
	spec, ok := c.stages[st]
	if !ok {
		return usecase.ReasoningRequest{}, fmt.Errorf("no prompt for stage %q", st)
	}
	if err := checkData(st, data); err != nil {
		return usecase.ReasoningRequest{}, err
	}

	system, err := execute(spec.system, data)
	if err != nil {
		return usecase.ReasoningRequest{}, err
	}
	user, err := execute(spec.user, data)
	if err != nil {
		return usecase.ReasoningRequest{}, err
	}

	return usecase.ReasoningRequest{
		Stage:       st,
		System:      system,
		User:        user,
		WebSearch:   spec.webSearch,
		MaxTokens:   spec.maxTokens,
		Temperature: spec.temperature,
	}, nil
}

func execute(tmpl *template.Template, data any) (string, error) {
	buf := bytebufferpool.Get()
	defer bytebufferpool.Put(buf)

	if err := tmpl.Execute(buf, data); err != nil {
		return "", fmt.Errorf("render %s: %w", tmpl.Name(), err)
	}
	return strings.TrimSpace(buf.String()), nil
}

func checkData(st stage.Stage, data any) error {
	var ok bool
	switch st {
	case stage.Research:
		switch data.(type) {
		case usecase.ResearchPromptData, *usecase.ResearchPromptData:
			ok = true
		}
	case stage.Analyst:
		switch data.(type) {
		case usecase.AnalystPromptData, *usecase.AnalystPromptData:
			ok = true
		}
	case stage.Shark:
		switch data.(type) {
		case usecase.SharkPromptData, *usecase.SharkPromptData:
			ok = true
		}
	}
	if !ok {
		return fmt.Errorf("%s prompt cannot render %T", st, data)
	}
	return nil
}
