package gradle

import (
	"fmt"

	"github.com/jward/rewrite"
	"github.com/jward/rewrite/cst"
)

func init() {
	rewrite.Register("gradle.ChangeDependencyClassifier", func() rewrite.Recipe {
		return &ChangeDependencyClassifier{}
	})
}

// ChangeDependencyClassifier sets, replaces or removes the classifier of
// matching dependencies in build.gradle files. Both string notation and map
// notation are handled; quotes and formatting are preserved.
type ChangeDependencyClassifier struct {
	GroupID       string `yaml:"groupId" option:"Group" description:"The first part of a dependency coordinate 'com.google.guava:guava:VERSION'. This can be a glob expression." example:"com.fasterxml.jackson*" validate:"required"`
	ArtifactID    string `yaml:"artifactId" option:"Artifact" description:"The second part of a dependency coordinate 'com.google.guava:guava:VERSION'. This can be a glob expression." example:"jackson-module*" validate:"required"`
	NewClassifier string `yaml:"newClassifier" option:"New classifier" description:"A qualification classifier for the dependency. Empty removes the classifier." example:"sources"`
	Configuration string `yaml:"configuration" option:"Dependency configuration" description:"The dependency configuration to search for dependencies in." example:"api"`
}

func (r *ChangeDependencyClassifier) Name() string {
	return "gradle.ChangeDependencyClassifier"
}

func (r *ChangeDependencyClassifier) DisplayName() string {
	return "Change a Gradle dependency classifier"
}

func (r *ChangeDependencyClassifier) Description() string {
	return "Finds dependencies declared in `build.gradle` files and changes their classifier."
}

func (r *ChangeDependencyClassifier) InstanceName() string {
	return fmt.Sprintf("`%s:%s` to `%s`", r.GroupID, r.ArtifactID, r.NewClassifier)
}

func (r *ChangeDependencyClassifier) Validate() error {
	if r.GroupID == "" || r.ArtifactID == "" {
		return nil
	}
	_, err := NewDependencyMatcher(r.GroupID + ":" + r.ArtifactID)
	return err
}

func (r *ChangeDependencyClassifier) Visitor() rewrite.Visitor {
	return rewrite.Check(IsBuildGradle(), rewrite.VisitorFunc(func(_ *rewrite.Cursor, t rewrite.Tree) (rewrite.Tree, error) {
		matcher, err := NewDependencyMatcher(r.GroupID + ":" + r.ArtifactID)
		if err != nil {
			return t, err
		}
		out := t
		for _, d := range declarations(t) {
			if r.Configuration != "" && d.configuration.Text() != r.Configuration {
				continue
			}
			if entries, ok := mapEntries(d.args); ok {
				out = r.changeMapNotation(out, entries, matcher)
				continue
			}
			if lit, ok := asLiteral(d.args[0]); ok {
				out = r.changeStringNotation(out, lit, matcher)
			}
		}
		return out, nil
	}))
}

func (r *ChangeDependencyClassifier) changeStringNotation(t rewrite.Tree, lit literal, m *DependencyMatcher) rewrite.Tree {
	dep, ok := ParseDependency(lit.value)
	if !ok || dep.Version == "" || dep.Classifier == r.NewClassifier {
		return t
	}
	if !m.Matches(dep.Group, dep.Artifact, dep.Version) {
		return t
	}
	text := lit.quote + dep.WithClassifier(r.NewClassifier).String() + lit.quote
	return cst.ReplaceLeaf(t, lit.leaf.ID(), lit.leaf.WithText(text))
}

func (r *ChangeDependencyClassifier) changeMapNotation(t rewrite.Tree, entries []mapEntry, m *DependencyMatcher) rewrite.Tree {
	var (
		group, artifact, version, classifier string
		hasGroup, hasArtifact, hasClassifier bool
		groupQuote                           = "'"
		nameEntry, classifierEntry           *mapEntry
	)
	for i := range entries {
		e := &entries[i]
		if !e.hasValue {
			continue
		}
		switch e.name() {
		case "group":
			group, hasGroup = e.value.value, true
			groupQuote = e.value.quote
		case "name":
			if i > 0 && nameEntry == nil {
				nameEntry = e
			}
			artifact, hasArtifact = e.value.value, true
		case "version":
			version = e.value.value
		case "classifier":
			classifier, hasClassifier = e.value.value, true
			classifierEntry = e
		}
	}
	if !hasGroup || !hasArtifact || !m.Matches(group, artifact, version) {
		return t
	}
	// An empty classifier entry is still removed when no classifier is wanted.
	if hasClassifier && r.NewClassifier != "" && classifier == r.NewClassifier ||
		!hasClassifier && r.NewClassifier == "" {
		return t
	}

	switch {
	case !hasClassifier:
		keyPrefix, valuePrefix := " ", " "
		if nameEntry != nil {
			keyPrefix, valuePrefix = nameEntry.key.Prefix(), nameEntry.value.leaf.Prefix()
		}
		last := entries[len(entries)-1].last
		return cst.InsertAfter(t, last.ID(),
			cst.NewToken("", ","),
			cst.NewLeaf("identifier", keyPrefix, "classifier"),
			cst.NewToken("", ":"),
			cst.NewLeaf("string", valuePrefix, groupQuote+r.NewClassifier+groupQuote),
		)
	case r.NewClassifier == "":
		return removeEntry(t, entries, classifierEntry)
	default:
		v := classifierEntry.value
		return cst.ReplaceLeaf(t, v.leaf.ID(), v.leaf.WithText(v.quote+r.NewClassifier+v.quote))
	}
}

// removeEntry blanks the tokens of e together with one adjacent comma.
func removeEntry(t rewrite.Tree, entries []mapEntry, e *mapEntry) rewrite.Tree {
	blank := []*cst.Leaf{e.key, e.colon, e.value.leaf}
	switch {
	case e.comma != nil:
		blank = append(blank, e.comma)
	case e != &entries[len(entries)-1]:
		for i := range entries {
			if &entries[i] == e {
				blank = append(blank, entries[i+1].comma)
				break
			}
		}
	}
	for _, l := range blank {
		t = cst.ReplaceLeaf(t, l.ID(), l.WithText("").WithPrefix(""))
	}
	return t
}
