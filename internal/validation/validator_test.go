package validation

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

type programForm struct {
	SpeakerID string `json:"speaker_id" validate:"required"`
	Date      string `json:"date" validate:"required,isodate,weekend"`
	Time      string `json:"time" validate:"required,clock"`
	Talk      int    `json:"talk" validate:"talknumber"`
	Email     string `json:"email" validate:"omitempty,email"`
	Role      string `json:"role" validate:"omitempty,oneof=admin user pending"`
	Talks     []int  `json:"talks" validate:"dive,talknumber"`
}

func TestStruct(t *testing.T) {
	ctx := context.Background()

	t.Run("valid input", func(t *testing.T) {
		errs := Struct(ctx, programForm{
			SpeakerID: "s1",
			Date:      "2024-06-15",
			Time:      "10:30",
			Talk:      194,
			Email:     "a@b.it",
			Role:      "user",
			Talks:     []int{1, 42},
		})
		assert.Nil(t, errs)
	})

	t.Run("reports every failing field by json name", func(t *testing.T) {
		errs := Struct(ctx, programForm{
			Date:  "2024-06-17",
			Time:  "25:00",
			Talk:  195,
			Email: "nope",
			Role:  "owner",
			Talks: []int{5, 0},
		})
		assert.Equal(t, map[string]string{
			"speaker_id": MsgRequired,
			"date":       MsgWeekend,
			"time":       MsgClock,
			"talk":       MsgTalkNumber,
			"email":      MsgEmail,
			"role":       MsgOneOf,
			"talks[1]":   MsgTalkNumber,
		}, errs)
	})

	t.Run("malformed date stops at the format rule", func(t *testing.T) {
		errs := Struct(ctx, programForm{SpeakerID: "s1", Date: "15/06/2024", Time: "10:00", Talk: 1})
		assert.Equal(t, MsgDate, errs["date"])
	})
}
