package models

// Booking statuses. Forward-only except cancellation.
const (
	StatusPending   = "pending"
	StatusConfirmed = "confirmed"
	StatusActive    = "active"
	StatusCompleted = "completed"
	StatusCancelled = "cancelled"
)

// Serialized unit lifecycle statuses.
const (
	UnitAvailable   = "available"
	UnitRented      = "rented"
	UnitMaintenance = "maintenance"
	UnitRetired     = "retired"
)

// Unit condition grades.
const (
	ConditionExcellent = "excellent"
	ConditionGood      = "good"
	ConditionFair      = "fair"
	ConditionPoor      = "poor"
)

// Catalog entry kinds.
const (
	KindSerialized = "serialized"
	KindPooled     = "pooled"
)

// Headset types offered with pooled crew packages.
const (
	HeadsetSurveillance = "2-Wire Surveillance Kit"
	HeadsetLightweight  = "HMN9013B Lightweight Headset"
	HeadsetSpeakerMic   = "Remote Speaker Microphone"
)

// Fixed ratios for pooled packages: every walkie ships with
// two batteries and one headset.
const (
	BatteriesPerUnit = 2
	HeadsetsPerUnit  = 1
)

// CrewSizes lists the only package sizes sold.
var CrewSizes = []int{6, 8, 12, 16, 24, 32}

const (
	// DateLayout is the canonical date-only format used across
	// storage and the API. No time-of-day is modeled.
	DateLayout = "2006-01-02"

	// WorkerQueueSize размер очереди воркера экспорта
	WorkerQueueSize = 1000

	// AvailabilityCacheTTL время жизни кэша доступности в секундах
	AvailabilityCacheTTL = 5 * 60
)

// ValidCrewSize reports whether n is one of the sold package sizes.
func ValidCrewSize(n int) bool {
	for _, s := range CrewSizes {
		if s == n {
			return true
		}
	}
	return false
}

// ValidUnitStatus reports whether s is a known unit lifecycle status.
func ValidUnitStatus(s string) bool {
	switch s {
	case UnitAvailable, UnitRented, UnitMaintenance, UnitRetired:
		return true
	}
	return false
}

// ValidCondition reports whether s is a known condition grade.
func ValidCondition(s string) bool {
	switch s {
	case ConditionExcellent, ConditionGood, ConditionFair, ConditionPoor:
		return true
	}
	return false
}
