package domain

import (
	"board-lab/errors"
	"fmt"
	"math"

	"github.com/go-playground/validator/v10"
)

const MaxRoomIDLength = 128

var validate = validator.New(validator.WithRequiredStructEnabled())

type roomRequest struct {
	ID string `validate:"required,max=128,printascii"`
}

func ValidateRoomID(id RoomID) error {
	if err := validate.Struct(roomRequest{ID: string(id)}); err != nil {
		return fmt.Errorf("%w: %v", errors.ErrInvalidRoomID, err)
	}
	return nil
}

// ValidateSegment rejects segments no client could have rendered.
func ValidateSegment(s Segment) error {
	for _, v := range []float64{s.X0, s.Y0, s.X1, s.Y1, s.Width} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%w: non finite value", errors.ErrInvalidSegment)
		}
	}
	if err := validate.Struct(s); err != nil {
		return fmt.Errorf("%w: %v", errors.ErrInvalidSegment, err)
	}
	return nil
}
