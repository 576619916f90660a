package reducer

import (
	"strings"

	"github.com/GaraRoyal/memoryvault/vault"
)

// Legacy relationship impacts are free-text descriptions from older
// extraction prompts ("Trust deepens between them"). They are matched
// against an ordered table of (dimension, direction, phrase-set) rules;
// the first matching rule per dimension wins. This is a fuzzy fallback
// classifier for old extraction output, not NLP.
//
// Every legacy-format impact additionally increments familiarity by 1,
// whether or not any rule fires; structured impacts never do this
// implicitly.

// legacyRule matches when the text contains any anchor AND, if cues are
// present, any cue.
type legacyRule struct {
	dimension string
	delta     float64
	anchors   []string
	cues      []string
}

var legacyRules = []legacyRule{
	{"trust", +1, []string{"trust"}, []string{"increas", "deepen", "gain", "grow", "strengthen", "build", "restor"}},
	{"trust", -1, []string{"trust"}, []string{"decreas", "erod", "shatter", "los", "break", "broken", "weaken"}},
	{"trust", -1, []string{"distrust", "suspicio"}, nil},

	{"tension", +1, []string{"tension"}, []string{"ris", "rise", "increas", "grow", "escalat", "mount"}},
	{"tension", +1, []string{"conflict", "argument", "hostil", "clash"}, nil},
	{"tension", -1, []string{"tension"}, []string{"eas", "dissolv", "decreas", "fad", "melt"}},
	{"tension", -1, []string{"reconcil"}, nil},

	{"respect", +1, []string{"respect"}, []string{"gain", "grow", "earn", "increas", "deepen"}},
	{"respect", +1, []string{"admir", "impress"}, nil},
	{"respect", -1, []string{"respect"}, []string{"los", "diminish", "decreas"}},
	{"respect", -1, []string{"disdain", "contempt", "disrespect"}, nil},

	{"attraction", +1, []string{"attract", "desire", "drawn to", "infatuat"}, nil},
	{"attraction", -1, []string{"repuls", "revolt"}, nil},

	{"fear", +1, []string{"fear"}, []string{"grow", "increas", "deepen", "instill"}},
	{"fear", +1, []string{"terrif", "afraid", "intimidat", "frighten"}, nil},
	{"fear", -1, []string{"fear"}, []string{"fad", "subsid", "eas", "overcom"}},
	{"fear", -1, []string{"reassur"}, nil},

	{"loyalty", +1, []string{"loyal"}, []string{"prov", "deepen", "strengthen", "affirm", "grow"}},
	{"loyalty", +1, []string{"devot", "stood by", "stand by"}, nil},
	{"loyalty", -1, []string{"betray", "abandon", "desert", "forsak"}, nil},
}

// ApplyLegacyImpact classifies a legacy free-text impact and applies
// the resulting deltas. Familiarity goes up by 1 unconditionally: any
// recorded interaction increases familiarity under the legacy format.
func ApplyLegacyImpact(rel *vault.Relationship, text string) {
	lower := strings.ToLower(text)

	matched := make(map[string]bool, 7)
	for _, rule := range legacyRules {
		if matched[rule.dimension] {
			continue
		}
		if !containsAny(lower, rule.anchors) {
			continue
		}
		if len(rule.cues) > 0 && !containsAny(lower, rule.cues) {
			continue
		}
		rel.Adjust(rule.dimension, rule.delta)
		matched[rule.dimension] = true
	}

	rel.Adjust("familiarity", 1)
}

func containsAny(s string, subs []string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
