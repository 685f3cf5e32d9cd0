package clubs

import (
	"errors"
	"time"
)

var ErrClubNotFound = errors.New("club not found")

// Club is a rowing club the athletes belong to.
type Club struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"createdAt"`
}
