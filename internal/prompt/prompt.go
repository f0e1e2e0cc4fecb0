package prompt

import (
	"bytes"
	_ "embed"
	"os"
	"sync/atomic"
	"text/template"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v2"
)

type Kind string

const (
	KindEvaluate Kind = "evaluate"
	KindCorrect  Kind = "correct"
	KindImprove  Kind = "improve"
	KindAnalyze  Kind = "analyze"
)

var Kinds = []Kind{KindEvaluate, KindCorrect, KindImprove, KindAnalyze}

var ErrUnknownKind = errors.New("unknown prompt kind")

//go:embed templates.yaml
var defaultTemplates []byte

// Input is what templates can refer to. Neither field is escaped.
type Input struct {
	Text     string
	TaskType string
}

type templateSet = map[Kind]*template.Template

// Builder is safe for concurrent use; Override swaps the whole set at once.
type Builder struct {
	current atomic.Value
}

// NewBuilder loads the embedded templates and, when overridePath is not
// empty, replaces the kinds present in that YAML file.
func NewBuilder(overridePath string) (*Builder, error) {
	b := &Builder{}
	b.current.Store(templateSet{})
	if err := b.Override(defaultTemplates); err != nil {
		return nil, errors.Wrap(err, "Failed to load embedded prompts")
	}
	if overridePath == "" {
		return b, nil
	}

	body, err := os.ReadFile(overridePath)
	if err != nil {
		return nil, errors.Wrap(err, "Failed to read prompts file")
	}
	if err := b.Override(body); err != nil {
		return nil, errors.Wrapf(err, "Failed to load prompts from %s", overridePath)
	}
	return b, nil
}

// Override replaces the kinds present in the YAML body. On error the
// current templates are left untouched.
func (b *Builder) Override(body []byte) error {
	raw := map[Kind]string{}
	if err := yaml.Unmarshal(body, &raw); err != nil {
		return err
	}

	next := templateSet{}
	for kind, tmpl := range b.templates() {
		next[kind] = tmpl
	}
	for kind, text := range raw {
		if !known(kind) {
			return errors.Wrapf(ErrUnknownKind, "%q", kind)
		}
		tmpl, err := template.New(string(kind)).Option("missingkey=error").Parse(text)
		if err != nil {
			return errors.Wrapf(err, "Failed to parse %s template", kind)
		}
		next[kind] = tmpl
	}
	b.current.Store(next)
	return nil
}

func (b *Builder) templates() templateSet {
	return b.current.Load().(templateSet)
}

func known(kind Kind) bool {
	for _, k := range Kinds {
		if k == kind {
			return true
		}
	}
	return false
}

func (b *Builder) Build(kind Kind, in Input) (string, error) {
	tmpl, ok := b.templates()[kind]
	if !ok {
		return "", errors.Wrapf(ErrUnknownKind, "%q", kind)
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, in); err != nil {
		return "", errors.Wrapf(err, "Failed to render %s prompt", kind)
	}
	return buf.String(), nil
}

func (b *Builder) Evaluate(text, taskType string) (string, error) {
	return b.Build(KindEvaluate, Input{Text: text, TaskType: taskType})
}

func (b *Builder) Correct(text string) (string, error) {
	return b.Build(KindCorrect, Input{Text: text})
}

func (b *Builder) Improve(text string) (string, error) {
	return b.Build(KindImprove, Input{Text: text})
}

func (b *Builder) Analyze(text string) (string, error) {
	return b.Build(KindAnalyze, Input{Text: text})
}
