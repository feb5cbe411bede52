package history

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// SearchRecord is one accepted dashboard lookup.
type SearchRecord struct {
	ID         uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	Query      string         `gorm:"index" json:"query"`
	ByCoords   bool           `json:"by_coords"`
	Lat        float64        `json:"lat"`
	Lon        float64        `json:"lon"`
	Location   string         `json:"location"`
	TempC      float64        `json:"temp_c"`
	Condition  string         `json:"condition"`
	Trend      datatypes.JSON `gorm:"type:jsonb" json:"trend"`
	SearchedAt time.Time      `gorm:"index" json:"searched_at"`
}
