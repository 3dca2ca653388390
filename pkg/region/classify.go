package region

import (
	"math"
	"strings"

	"github.com/vtprint/vtp/pkg/errors"
	"github.com/vtprint/vtp/pkg/geom"
	"github.com/vtprint/vtp/pkg/solid"
)

// OutsidePolicy decides what a point outside every region classifies as.
type OutsidePolicy string

const (
	// OutsideBaseline leaves points outside every region unclassified, so
	// they keep the slicer's extrusion.
	OutsideBaseline OutsidePolicy = "baseline"
	// OutsideNearest assigns points outside every region to the region
	// whose surface is closest.
	OutsideNearest OutsidePolicy = "nearest"
)

// ParseOutsidePolicy parses a policy name. The empty string selects
// OutsideBaseline.
func ParseOutsidePolicy(s string) (OutsidePolicy, error) {
	switch OutsidePolicy(strings.ToLower(strings.TrimSpace(s))) {
	case "", OutsideBaseline:
		return OutsideBaseline, nil
	case OutsideNearest:
		return OutsideNearest, nil
	}
	return "", errors.New(errors.ErrCodeConfiguration, "unknown outside policy %q (want baseline or nearest)", s)
}

// Classifier selects the region containing a point.
type Classifier struct {
	regions []*Region
	policy  OutsidePolicy
}

// NewClassifier returns a classifier over regions in the given order.
func NewClassifier(regions []*Region, policy OutsidePolicy) *Classifier {
	rs := make([]*Region, len(regions))
	copy(rs, regions)
	if policy == "" {
		policy = OutsideBaseline
	}
	return &Classifier{regions: rs, policy: policy}
}

// Classify returns the first region, in declaration order, whose solid
// contains p. A nil result means p is in no region.
func (c *Classifier) Classify(p geom.Point) *Region {
	for _, r := range c.regions {
		if r.Solid.Contains(p) {
			return r
		}
	}
	if c.policy == OutsideNearest {
		return c.nearest(p)
	}
	return nil
}

// Policy returns the outside policy.
func (c *Classifier) Policy() OutsidePolicy { return c.policy }

// Regions returns the classifier's regions in order.
func (c *Classifier) Regions() []*Region { return c.regions }

func (c *Classifier) nearest(p geom.Point) *Region {
	var best *Region
	bestDist := math.Inf(1)
	for _, r := range c.regions {
		d, ok := r.Solid.(solid.Distancer)
		if !ok {
			continue
		}
		dist := math.Abs(d.Distance(p))
		if math.IsNaN(dist) {
			continue
		}
		// Strict comparison keeps the earlier region on ties.
		if dist < bestDist {
			best, bestDist = r, dist
		}
	}
	return best
}
