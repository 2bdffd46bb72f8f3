package policy

import (
	"strings"
	"testing"

	"pgregory.net/rapid"

	"github.com/Dicklesworthstone/harness/internal/config"
)

var tokenGen = rapid.SampledFrom([]string{"-r", "foo", "--force", "origin", "main", ".", "-la", "x"})

func TestProperty_AliasIdempotence(t *testing.T) {
	cfg := config.Default()
	cfg.Tools.Aliases = map[string]string{"grep": "rg"}
	cfg.Tools.Deprecated.Observe = []string{"rg"}
	e := New(cfg)

	rapid.Check(t, func(t *rapid.T) {
		args := rapid.SliceOfN(tokenGen, 0, 4).Draw(t, "args")
		tail := strings.Join(args, " ")

		viaAlias := e.Classify(strings.TrimSpace("grep " + tail))
		direct := e.Classify(strings.TrimSpace("rg " + tail))
		if viaAlias != direct {
			t.Fatalf("alias decision %+v != direct decision %+v", viaAlias, direct)
		}
	})
}

func TestProperty_ClassifyTotalAndWhitespaceInsensitive(t *testing.T) {
	e := New(lifecycleConfig())
	head := rapid.SampledFrom([]string{"git", "rm", "nc", "grep", "find", "curl", "ls", "gpf", ""})
	space := rapid.SampledFrom([]string{" ", "  ", "\t", " \t "})

	rapid.Check(t, func(t *rapid.T) {
		tokens := append([]string{head.Draw(t, "head")}, rapid.SliceOfN(tokenGen, 0, 3).Draw(t, "args")...)
		sep := space.Draw(t, "sep")

		compact := e.Classify(strings.Join(tokens, " "))
		spaced := e.Classify(sep + strings.Join(tokens, sep) + sep)
		if compact != spaced {
			t.Fatalf("whitespace changed decision: %+v vs %+v", compact, spaced)
		}
		if compact.Status < Allowed || compact.Status > Disabled {
			t.Fatalf("status out of range: %v", compact.Status)
		}
		if (compact.Status == Allowed) != (compact.Rule == "") {
			t.Fatalf("rule/status mismatch: %+v", compact)
		}
	})
}
