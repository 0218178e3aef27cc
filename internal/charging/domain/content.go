package charging

import (
	"math"

	"github.com/google/uuid"
)

// ContentType classifies an item embedded inside a deck.
type ContentType string

const (
	ContentBooster        ContentType = "BOOSTER"
	ContentDetonator      ContentType = "DETONATOR"
	ContentPackage        ContentType = "PACKAGE"
	ContentDetonatingCord ContentType = "DETONATING_CORD"
	ContentShockTube      ContentType = "SHOCK_TUBE"
)

// ContentCategory is derived from the content type: Physical items
// carry explosive mass, Initiators fire with a delay, Trace items only
// propagate the detonation front.
type ContentCategory string

const (
	CategoryPhysical  ContentCategory = "PHYSICAL"
	CategoryInitiator ContentCategory = "INITIATOR"
	CategoryTrace     ContentCategory = "TRACE"
)

// Category derives the content category from the type.
func (t ContentType) Category() ContentCategory {
	switch t {
	case ContentDetonator:
		return CategoryInitiator
	case ContentDetonatingCord, ContentShockTube:
		return CategoryTrace
	default:
		return CategoryPhysical
	}
}

// DecoupledContent is one item embedded inside a deck: a cartridge,
// booster, detonator, or a length of cord/tube. LengthFromCollar
// follows the hole's sign convention; Length and Diameter are the
// item's own dimensions (m, mm).
type DecoupledContent struct {
	ContentID             string
	Type                  ContentType
	LengthFromCollar      float64
	Length                float64
	Diameter              float64
	Density               float64
	DeliveryVodMs         float64
	DelayMs               float64
	CoreLoadGramsPerMetre float64
}

// NewContentID generates a content identity.
func NewContentID() string { return "content-" + uuid.NewString() }

// Category returns the derived content category.
func (c DecoupledContent) Category() ContentCategory {
	return c.Type.Category()
}

// TotalDelayMs returns the item's contribution to initiation timing:
// Trace items burn over their length, Initiators add their delay on
// top of the burn, Physical items contribute nothing.
func (c DecoupledContent) TotalDelayMs() float64 {
	var burnRate float64
	if c.DeliveryVodMs != 0 {
		burnRate = 1000 / c.DeliveryVodMs
	}
	switch c.Category() {
	case CategoryTrace:
		return burnRate * c.Length
	case CategoryInitiator:
		return c.DelayMs + burnRate*c.Length
	default:
		return 0
	}
}

// Mass returns the item's explosive mass in kg: cylinder mass for
// items with a diameter and density, core load mass for cords.
func (c DecoupledContent) Mass() float64 {
	if c.CoreLoadGramsPerMetre > 0 {
		return c.CoreLoadGramsPerMetre * math.Abs(c.Length) / 1000
	}
	radius := c.Diameter / 2000
	return math.Pi * radius * radius * math.Abs(c.Length) * c.Density * 1000
}
