// Package disease defines the closed label vocabulary shared by the model,
// the post-processor and the knowledge base.
package disease

import (
	"fmt"
	"strings"
)

// Label is a member of the fixed disease vocabulary.
type Label string

// Vocabulary labels in model output order.
const (
	Healthy       Label = "Healthy"
	EarlyBlight   Label = "Early Blight"
	LateBlight    Label = "Late Blight"
	LeafSpot      Label = "Leaf Spot"
	PowderyMildew Label = "Powdery Mildew"
	Rust          Label = "Rust"
	BacterialSpot Label = "Bacterial Spot"
	MosaicVirus   Label = "Mosaic Virus"
	Yellowing     Label = "Yellowing"
	Wilting       Label = "Wilting"
	OtherUnknown  Label = "Other/Unknown"
)

var labels = [...]Label{
	Healthy,
	EarlyBlight,
	LateBlight,
	LeafSpot,
	PowderyMildew,
	Rust,
	BacterialSpot,
	MosaicVirus,
	Yellowing,
	Wilting,
	OtherUnknown,
}

// NumClasses is the size of the vocabulary.
const NumClasses = len(labels)

// Labels returns a copy of the vocabulary in model output order.
func Labels() []Label {
	out := make([]Label, NumClasses)
	copy(out, labels[:])
	return out
}

// Strings returns the vocabulary as plain strings.
func Strings() []string {
	out := make([]string, NumClasses)
	for i, l := range labels {
		out[i] = string(l)
	}
	return out
}

// Index returns the output position of l.
func Index(l Label) (int, bool) {
	for i, v := range labels {
		if v == l {
			return i, true
		}
	}
	return -1, false
}

// Valid reports whether l belongs to the vocabulary.
func (l Label) Valid() bool {
	_, ok := Index(l)
	return ok
}

func (l Label) String() string { return string(l) }

// Parse resolves a label name case-insensitively. Underscores, dashes and
// missing slashes are tolerated ("early_blight", "other-unknown").
func Parse(s string) (Label, error) {
	key := normalize(s)
	for _, l := range labels {
		if normalize(string(l)) == key {
			return l, nil
		}
	}
	return "", fmt.Errorf("unknown disease label %q", s)
}

func normalize(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	r := strings.NewReplacer("_", "", "-", "", " ", "", "/", "")
	return r.Replace(s)
}
