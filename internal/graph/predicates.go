// Package graph provides the in-memory semantic fact store. Facts are
// (subject, predicate, object) triples over item codes; within a run
// the graph only grows, so rule evaluation against it is idempotent.
package graph

// Attribute predicates seeded from parsed specifications.
const (
	PredHasSeries       = "hasSeries"
	PredHasVariant      = "hasVariant"
	PredHasBore         = "hasBore"
	PredHasStroke       = "hasStroke"
	PredHasRodEnd       = "hasRodEnd"
	PredHasInstallation = "hasInstallation"
	PredHasSpecial      = "hasSpecialFeatures"
	PredHasName         = "hasName"
	PredHasCategory     = "hasCategory"
	PredHasQuantity     = "hasQuantity"
)

// Relation predicates asserted by classification and compatibility
// rules.
const (
	PredIsA            = "isA"
	PredPartOf         = "partOf"
	PredCompatibleWith = "compatibleWith"
	PredRecommendedFor = "recommendedFor"
	PredRequires       = "requires"
)

// Well-known classification objects. The tier sets drive the
// mutual-exclusion validation after closure.
const (
	ClassHydraulicCylinder = "HydraulicCylinder"
	ClassComponentItem     = "ComponentItem"

	TierBoreMicro      = "MicroBore"
	TierBoreSmall      = "SmallBore"
	TierBoreMedium     = "MediumBore"
	TierBoreLarge      = "LargeBore"
	TierBoreExtraLarge = "ExtraLargeBore"

	TierStrokeShort     = "ShortStroke"
	TierStrokeMedium    = "MediumStroke"
	TierStrokeLong      = "LongStroke"
	TierStrokeExtraLong = "ExtraLongStroke"

	TagSeriesStandard  = "StandardSeries"
	TagSeriesHeavyDuty = "HeavyDuty"
	TagSeriesCompact   = "CompactSeries"
	TagSeriesLightDuty = "LightDuty"

	TagRodEndYoke           = "YokeRodEnd"
	TagRodEndInternalThread = "InternalThreadRodEnd"
	TagRodEndExternalThread = "ExternalThreadRodEnd"
	TagRodEndPin            = "PinRodEnd"

	ClassComplexConfiguration = "ComplexConfiguration"
	ClassHighPressure         = "HighPressure"
	ReqRedundantSealing       = "RedundantSealing"
	ReqEnhancedBushing        = "EnhancedBushing"
)

// BoreTiers and StrokeTiers enumerate the mutually exclusive members
// of each classification dimension, in ascending order.
var (
	BoreTiers = []string{
		TierBoreMicro, TierBoreSmall, TierBoreMedium,
		TierBoreLarge, TierBoreExtraLarge,
	}
	StrokeTiers = []string{
		TierStrokeShort, TierStrokeMedium,
		TierStrokeLong, TierStrokeExtraLong,
	}
)
