package domain

// StateSnapshot Model, one serialized aggregate state per row
type StateSnapshot struct {
	ID        uint   `gorm:"primaryKey"`                 // Primary key
	Payload   []byte `gorm:"type:longblob;not null"`     // Serialized state
	SizeBytes int    `gorm:"not null"`                   // Payload size
	Users     int    `gorm:"not null;default:0"`         // User count at capture time
	Proposals int    `gorm:"not null;default:0"`         // Live proposal count at capture time
	Rounds    int    `gorm:"not null;default:0"`         // Round results at capture time
	Payments  int    `gorm:"not null;default:0"`         // Payment history length at capture time
	CreatedAt int64  `gorm:"autoCreateTime:milli;index"` // Timestamp of capture in milliseconds
}
