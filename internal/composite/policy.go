// internal/composite/policy.go - Layer kinds, burn policies and mask predicates
package composite

import (
	"fmt"

	"github.com/paulmach/orb/geojson"
)

// RGB is a burn colour for bands 1-3
type RGB [3]uint8

// Predicate matches features whose Field value is (or, with Not, is not) in In
type Predicate struct {
	Field string
	In    []string
	Not   bool
}

// Match evaluates the predicate. A missing or null attribute is never in
// the set, so it matches only negated predicates.
func (p Predicate) Match(props geojson.Properties) bool {
	value, ok := props[p.Field]
	if !ok || value == nil {
		return p.Not
	}

	s, isString := value.(string)
	if !isString {
		s = fmt.Sprint(value)
	}

	found := false
	for _, candidate := range p.In {
		if candidate == s {
			found = true
			break
		}
	}
	return found != p.Not
}

// Rule burns Color for the features it claims. A nil When is a catch-all.
type Rule struct {
	Name  string
	When  *Predicate
	Color RGB
}

// BurnPolicy is an ordered rule list; each feature is claimed by the first
// rule that matches it. The last rule is always a catch-all, so every
// feature burns into exactly one class.
type BurnPolicy struct {
	Rules []Rule
}

// Flat burns every feature with one colour
func Flat(c RGB) BurnPolicy {
	return BurnPolicy{Rules: []Rule{{Name: "all", Color: c}}}
}

// Classified builds a policy from ordered rules
func Classified(rules ...Rule) BurnPolicy {
	return BurnPolicy{Rules: rules}
}

// Validate checks that the policy has rules and ends with a catch-all
func (p BurnPolicy) Validate() error {
	if len(p.Rules) == 0 {
		return fmt.Errorf("burn policy has no rules")
	}
	if p.Rules[len(p.Rules)-1].When != nil {
		return fmt.Errorf("burn policy must end with a catch-all rule")
	}
	for i, r := range p.Rules[:len(p.Rules)-1] {
		if r.When == nil {
			return fmt.Errorf("rule %d (%s) is a catch-all before the last rule", i, r.Name)
		}
	}
	return nil
}

// Classify returns the index of the rule claiming f
func (p BurnPolicy) Classify(f *geojson.Feature) int {
	for i, r := range p.Rules {
		if r.When == nil || r.When.Match(f.Properties) {
			return i
		}
	}
	return -1
}

// MaskPredicate decides which pixels of a layer raster overwrite the canvas
type MaskPredicate int

const (
	// MaskNonZero selects pixels where any colour band is above zero
	MaskNonZero MaskPredicate = iota
	// MaskNotBackground selects pixels where any colour band differs from
	// the 255 background
	MaskNotBackground
)

// Background returns the initial band value the predicate is paired with
func (m MaskPredicate) Background() uint8 {
	if m == MaskNotBackground {
		return 255
	}
	return 0
}

// Test reports whether a band value marks the pixel
func (m MaskPredicate) Test(v uint8) bool {
	if m == MaskNotBackground {
		return v != 255
	}
	return v > 0
}

// String implements fmt.Stringer
func (m MaskPredicate) String() string {
	if m == MaskNotBackground {
		return "!=255"
	}
	return ">0"
}

// OverlayMode decides what masked canvas pixels become
type OverlayMode int

const (
	// OverlayCopy copies the layer's colour onto the canvas
	OverlayCopy OverlayMode = iota
	// OverlayBlank forces the canvas colour bands to zero
	OverlayBlank
)

// Kind is a thematic layer category. It fixes the layer's paint priority,
// default burn policy, mask predicate and overlay mode.
type Kind int

const (
	KindBoundary Kind = iota
	KindVegetation
	KindParcels
	KindTopographic
)

// Vegetation attribute and classes
const (
	EssenceField = "ESSENCE"
)

// Standard burn colours
var (
	ColorBoundary     = RGB{0, 0, 0}
	ColorBroadleaf    = RGB{80, 200, 120}
	ColorUnclassified = RGB{25, 50, 60}
	ColorOtherForest  = RGB{50, 200, 80}
	ColorParcels      = RGB{25, 50, 60}
	ColorTopographic  = RGB{0, 0, 0}
)

// BroadleafSpecies and UnclassifiedSpecies are the ESSENCE values of the
// first two vegetation classes
var (
	BroadleafSpecies    = []string{"Feuillus", "Châtaignier", "Chênes sempervirents", "Chênes décidus", "Hêtre"}
	UnclassifiedSpecies = []string{"NC", "NR"}
)

// String implements fmt.Stringer
func (k Kind) String() string {
	switch k {
	case KindBoundary:
		return "boundary"
	case KindVegetation:
		return "vegetation"
	case KindParcels:
		return "parcels"
	case KindTopographic:
		return "topographic"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Mask returns the kind's mask predicate
func (k Kind) Mask() MaskPredicate {
	if k == KindTopographic {
		return MaskNotBackground
	}
	return MaskNonZero
}

// Overlay returns the kind's overlay mode
func (k Kind) Overlay() OverlayMode {
	if k == KindTopographic {
		return OverlayBlank
	}
	return OverlayCopy
}

// DefaultPolicy returns the kind's standard burn policy
func (k Kind) DefaultPolicy() BurnPolicy {
	switch k {
	case KindVegetation:
		return Classified(
			Rule{Name: "broadleaf", When: &Predicate{Field: EssenceField, In: BroadleafSpecies}, Color: ColorBroadleaf},
			Rule{Name: "unclassified", When: &Predicate{Field: EssenceField, In: UnclassifiedSpecies}, Color: ColorUnclassified},
			Rule{Name: "other", Color: ColorOtherForest},
		)
	case KindParcels:
		return Flat(ColorParcels)
	case KindTopographic:
		return Flat(ColorTopographic)
	default:
		return Flat(ColorBoundary)
	}
}
